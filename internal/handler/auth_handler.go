package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/model"
)

type loginService interface {
	Configured() bool
	Login(password string) (*model.TokenResponse, error)
}

// AuthHandler handles household login.
type AuthHandler struct {
	auth   loginService
	logger *zap.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(auth loginService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger,
	}
}

// Login trades the household password for a bearer token
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var request model.LoginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.auth.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Auth not provisioned"})
		return
	}

	response, err := h.auth.Login(request.Password)
	if err != nil {
		h.logger.Debug("login failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, response)
}
