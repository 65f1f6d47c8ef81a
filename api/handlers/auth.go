package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tripflow/tripflow/pkg/auth"
	"github.com/tripflow/tripflow/pkg/store"
)

// AuthHandler implements registration, login, and token refresh.
type AuthHandler struct {
	store *store.Store
	auth  *auth.Service
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(s *store.Store, a *auth.Service) *AuthHandler {
	return &AuthHandler{store: s, auth: a}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) tokenResponse(c *gin.Context, status int, user *store.User) {
	accessToken, err := h.auth.GenerateToken(user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	refreshToken, err := h.auth.GenerateRefreshToken(user.ID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(status, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "bearer",
		"expires_in":    int(h.auth.TokenTTL().Seconds()),
		"user":          user,
	})
}

// Register creates an account and logs it in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	user, err := h.store.CreateUser(c.Request.Context(), req.Email, hash, req.Name)
	if err != nil {
		fail(c, err)
		return
	}

	h.tokenResponse(c, http.StatusCreated, user)
}

// Login exchanges credentials for a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "邮箱或密码错误"})
		return
	}
	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "邮箱或密码错误"})
		return
	}

	h.tokenResponse(c, http.StatusOK, user)
}

// Refresh exchanges a refresh token for a new token pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	userID, err := h.auth.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	h.tokenResponse(c, http.StatusOK, user)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.store.GetUserByID(c.Request.Context(), auth.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
