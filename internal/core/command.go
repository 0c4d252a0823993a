package core

import (
	"strings"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin binds the connection to a participant identity.
	CommandJoin CommandKind = iota
	// CommandSendMessage stores and routes a chat message.
	CommandSendMessage
	// CommandDelivered acknowledges delivery of a message.
	CommandDelivered
	// CommandRead acknowledges that a message was read.
	CommandRead
	// CommandTyping toggles the typing indicator.
	CommandTyping
	// CommandDeleteMessage removes a message for everyone.
	CommandDeleteMessage
)

// Command represents an action requested by a client.
type Command struct {
	Kind      CommandKind
	RequestID string
	Identity  string
	Send      SendRequest
	MessageID string
	Typing    bool
}

// SendRequest is an outbound chat message as composed by a client.
type SendRequest struct {
	Body      string
	IsPrivate bool
	To        string
	File      *store.FileRef
}

// Validate rejects messages with nothing to show and private messages without a target.
func (r SendRequest) Validate() error {
	if strings.TrimSpace(r.Body) == "" && r.File == nil {
		return invalidInput("message body or file is required")
	}
	if r.IsPrivate && strings.TrimSpace(r.To) == "" {
		return invalidInput("private message requires a target")
	}
	return nil
}
