package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

// UserHandlers provides HTTP handlers for participant records.
type UserHandlers struct {
	coord *core.Coordinator
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(coord *core.Coordinator, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		coord: coord,
		log:   logger,
	}
}

// ListUsers returns every known participant with its live connection, if any.
// GET /api/users
func (h *UserHandlers) ListUsers(c *gin.Context) {
	participants, err := h.coord.ListParticipants(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]proto.Participant, 0, len(participants))
	for _, p := range participants {
		response = append(response, proto.Participant{
			ID:        p.ID,
			Username:  p.Username,
			SocketID:  p.ConnectionID,
			CreatedAt: p.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, response)
}

// DeleteUser removes one participant record.
// DELETE /api/users/:id
func (h *UserHandlers) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if err := h.coord.DeleteParticipant(c.Request.Context(), id); err != nil {
		writeAdminError(c, h.log, err)
		return
	}

	h.log.Info().Str("participant_id", id).Msg("user deleted")
	c.JSON(http.StatusOK, StatusResponse{Success: true, Message: "User deleted"})
}

// DeleteAllUsers purges every participant record.
// DELETE /api/users/all
func (h *UserHandlers) DeleteAllUsers(c *gin.Context) {
	if err := h.coord.PurgeParticipants(c.Request.Context()); err != nil {
		writeAdminError(c, h.log, err)
		return
	}

	h.log.Info().Msg("all users deleted")
	c.JSON(http.StatusOK, StatusResponse{Success: true, Message: "All users deleted"})
}
