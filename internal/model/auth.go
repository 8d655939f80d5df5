package model

import "time"

// LoginRequest is the household login body. A single shared password
// guards the mutating and private routes.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// TokenResponse is returned after a successful login.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
