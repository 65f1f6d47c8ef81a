// Package auth provides password hashing, JWT issuance, and the gin
// middleware protecting the API.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/tripflow/tripflow/pkg/config"
	"github.com/tripflow/tripflow/pkg/domain"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "user_id"

// Service signs and validates access tokens.
type Service struct {
	jwtSecret  []byte
	ttl        time.Duration
	refreshTTL time.Duration
}

// NewService creates an auth service from the auth section of the config.
func NewService(cfg config.AuthConfig) (*Service, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: auth jwt_secret is not set", domain.ErrConfigurationError)
	}

	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Service{
		jwtSecret:  []byte(cfg.JWTSecret),
		ttl:        ttl,
		refreshTTL: 7 * 24 * time.Hour,
	}, nil
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) < 6 {
		return "", fmt.Errorf("%w: password must be at least 6 characters", domain.ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks a plaintext password against its bcrypt hash.
func VerifyPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	return nil
}

// GenerateToken creates a signed JWT for the given user id.
func (s *Service) GenerateToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses a JWT and returns the user id it was issued for.
func (s *Service) ValidateToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: invalid token claims", domain.ErrUnauthorized)
	}
	if typ, _ := claims["typ"].(string); typ == "refresh" {
		return "", fmt.Errorf("%w: refresh token used as access token", domain.ErrUnauthorized)
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: missing sub claim", domain.ErrUnauthorized)
	}

	return userID, nil
}

// GenerateRefreshToken creates a long-lived JWT that can only be exchanged
// for a fresh token pair.
func (s *Service) GenerateRefreshToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"typ": "refresh",
		"iat": now.Unix(),
		"exp": now.Add(s.refreshTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

// ValidateRefreshToken checks a refresh token and returns its user id.
// Access tokens are rejected here so they cannot be replayed as refresh
// tokens.
func (s *Service) ValidateRefreshToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: invalid refresh token", domain.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: invalid token claims", domain.ErrUnauthorized)
	}
	if typ, _ := claims["typ"].(string); typ != "refresh" {
		return "", fmt.Errorf("%w: not a refresh token", domain.ErrUnauthorized)
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: missing sub claim", domain.ErrUnauthorized)
	}
	return userID, nil
}

// TokenTTL returns the configured token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.ttl
}

// Middleware implements JWT bearer token authentication for gin routes.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		userID, err := s.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID retrieves the authenticated user id from the gin context.
func UserID(c *gin.Context) string {
	id, _ := c.Get(UserIDKey)
	userID, _ := id.(string)
	return userID
}
