package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

// MessageHandlers serves message history and message administration.
type MessageHandlers struct {
	coord        *core.Coordinator
	historyLimit int
	log          *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(coord *core.Coordinator, historyLimit int, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		coord:        coord,
		historyLimit: historyLimit,
		log:          logger,
	}
}

// ListMessages returns the oldest history_limit messages, oldest first.
// GET /api/messages
func (h *MessageHandlers) ListMessages(c *gin.Context) {
	msgs, err := h.coord.ListMessages(c.Request.Context(), h.historyLimit, true)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]proto.Message, 0, len(msgs))
	for _, msg := range msgs {
		response = append(response, messageToProto(msg))
	}
	c.JSON(http.StatusOK, response)
}

// DeleteMessage removes one message and notifies every connection.
// DELETE /api/messages/:id
func (h *MessageHandlers) DeleteMessage(c *gin.Context) {
	id := c.Param("id")
	if err := h.coord.DeleteMessage(c.Request.Context(), id); err != nil {
		writeAdminError(c, h.log, err)
		return
	}

	h.log.Info().Str("message_id", id).Msg("message deleted")
	c.JSON(http.StatusOK, StatusResponse{Success: true, Message: "Message deleted"})
}

// DeleteAllMessages purges the message history.
// DELETE /api/messages/all
func (h *MessageHandlers) DeleteAllMessages(c *gin.Context) {
	if err := h.coord.PurgeMessages(c.Request.Context()); err != nil {
		writeAdminError(c, h.log, err)
		return
	}

	h.log.Info().Msg("all messages deleted")
	c.JSON(http.StatusOK, StatusResponse{Success: true, Message: "All messages deleted"})
}

// ClearAll purges messages and users.
// DELETE /api/clear_all
func (h *MessageHandlers) ClearAll(c *gin.Context) {
	if err := h.coord.PurgeAll(c.Request.Context()); err != nil {
		writeAdminError(c, h.log, err)
		return
	}

	h.log.Info().Msg("all data cleared")
	c.JSON(http.StatusOK, StatusResponse{Success: true, Message: "All messages and users deleted"})
}
