// Package handlers contains the gin handlers for the tripflow HTTP API.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tripflow/tripflow/pkg/domain"
)

// fail maps sentinel errors onto HTTP status codes and writes a JSON error
// body.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrAgentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrServiceUnavailable):
		status = http.StatusServiceUnavailable
	}

	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
