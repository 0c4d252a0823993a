package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/auth"
	"github.com/vovakirdan/wirechat-relay/internal/core"
)

// APIHandlers provides HTTP handlers for authentication endpoints.
type APIHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		log:         logger,
	}
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
}

// AuthResponse represents the authentication response body.
type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is returned by the administrative endpoints.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Login issues a token for a username.
// POST /api/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid username"})
		return
	}

	token, username, err := h.authService.Login(req.Username)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidUsername) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid username"})
			return
		}
		h.log.Error().Err(err).Msg("failed to issue token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("identity", username).Msg("user logged in")
	c.JSON(http.StatusOK, AuthResponse{Token: token, Username: username})
}

// writeAdminError maps a coordinator error onto an admin endpoint response.
func writeAdminError(c *gin.Context, logger *zerolog.Logger, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, StatusResponse{Success: false, Message: core.AsCoreError(err).Message})
	case errors.Is(err, core.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, StatusResponse{Success: false, Message: core.AsCoreError(err).Message})
	default:
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("admin operation failed")
		c.JSON(http.StatusInternalServerError, StatusResponse{Success: false, Message: err.Error()})
	}
}
