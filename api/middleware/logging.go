package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// RequestID tags every request with an id, honoring one supplied by the
// caller in X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

// Logger logs one line per completed request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		requestID := c.GetString(RequestIDKey)
		log.Printf("[API] %s %s %s status=%d latency=%s ip=%s",
			requestID, c.Request.Method, path,
			c.Writer.Status(), time.Since(start).Round(time.Microsecond), c.ClientIP())

		for _, e := range c.Errors {
			log.Printf("[API] %s error: %v", requestID, e.Err)
		}
	}
}

// Recovery converts handler panics into 500 responses instead of dropping
// the connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID := c.GetString(RequestIDKey)
				log.Printf("[API] %s panic recovered: %v", requestID, err)
				c.AbortWithStatusJSON(500, gin.H{
					"error":      "internal server error",
					"request_id": requestID,
				})
			}
		}()

		c.Next()
	}
}
