package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/foyerhq/home-api/internal/config"
	"github.com/foyerhq/home-api/internal/model"
)

// AuthService guards the private household routes. A single shared
// password is verified against a configured bcrypt hash and traded for a
// short-lived HS256 token.
type AuthService struct {
	cfg    config.AuthConfig
	logger *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(cfg config.AuthConfig, logger *zap.Logger) *AuthService {
	return &AuthService{
		cfg:    cfg,
		logger: logger,
	}
}

// Configured reports whether a password hash and signing secret were
// provisioned. Protected routes answer 503 until they are.
func (s *AuthService) Configured() bool {
	return s.cfg.PasswordHash != "" && s.cfg.JWTSecret != ""
}

// Login verifies the household password and issues a bearer token.
func (s *AuthService) Login(password string) (*model.TokenResponse, error) {
	if !s.Configured() {
		return nil, errors.New("auth not provisioned")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug("password verification failed", zap.Error(err))
		return nil, errors.New("invalid password")
	}

	expiresAt := time.Now().Add(s.cfg.TokenDuration)
	claims := jwt.MapClaims{
		"sub": "household",
		"exp": expiresAt.Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		s.logger.Error("failed to sign token", zap.Error(err))
		return nil, err
	}

	return &model.TokenResponse{
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken checks a bearer token's signature and expiry.
func (s *AuthService) ValidateToken(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return err
	}

	if !token.Valid {
		return errors.New("invalid token")
	}

	return nil
}
