package auth

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidUsername is returned when the username is empty after trimming.
var ErrInvalidUsername = errors.New("invalid username")

// Service issues and checks login tokens. Logins are name-only: any
// non-empty username gets a token.
type Service struct {
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(jwtConfig *JWTConfig) *Service {
	return &Service{jwtConfig: jwtConfig}
}

// Login trims username and returns a token for it along with the trimmed name.
func (s *Service) Login(username string) (token, name string, err error) {
	name = strings.TrimSpace(username)
	if name == "" {
		return "", "", ErrInvalidUsername
	}

	token, err = GenerateToken(s.jwtConfig, name)
	if err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	return token, name, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}
