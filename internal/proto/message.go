package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello          = "hello"
	InboundTypeJoin           = "user_join"
	InboundTypeSendMessage    = "send_message"
	InboundTypePrivateMessage = "private_message"
	InboundTypeDelivered      = "message_delivered"
	InboundTypeRead           = "message_read"
	InboundTypeTyping         = "typing"
	InboundTypeDeleteMessage  = "delete_message"

	OutboundTypeEvent = "event"
	OutboundTypeAck   = "ack"
	OutboundTypeError = "error"
)

// HelloData is sent by the client to introduce itself.
type HelloData struct {
	Token    string `json:"token,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
}

// JoinData binds the connection to a username.
type JoinData struct {
	Username string `json:"username"`
}

// SendMessageData is a chat message from the client.
type SendMessageData struct {
	Message   string `json:"message"`
	IsPrivate bool   `json:"isPrivate,omitempty"`
	To        string `json:"to,omitempty"`
	File      *File  `json:"file,omitempty"`
}

// PrivateMessageData is the legacy form of a private send.
type PrivateMessageData struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// Ref names a message or participant by id.
type Ref struct {
	ID string `json:"id"`
}

// TypingData toggles the typing indicator. Clients may also send a bare boolean.
type TypingData struct {
	IsTyping bool `json:"isTyping"`
}

// File references an uploaded attachment.
type File struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Mimetype string `json:"mimetype"`
	Size     int64  `json:"size"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Message is a stored chat message as seen by clients.
type Message struct {
	ID          string    `json:"id"`
	Sender      string    `json:"sender"`
	SenderID    string    `json:"senderId"`
	Message     string    `json:"message"`
	IsPrivate   bool      `json:"isPrivate"`
	To          *string   `json:"to"`
	File        *File     `json:"file"`
	DeliveredTo []string  `json:"deliveredTo"`
	ReadBy      []string  `json:"readBy"`
	Timestamp   time.Time `json:"timestamp"`
}

// OnlineUser is an entry of the user_list event.
type OnlineUser struct {
	Username string `json:"username"`
	SocketID string `json:"socketId"`
}

// UserNotice is the payload of user_joined and user_left.
type UserNotice struct {
	Username string `json:"username"`
	ID       string `json:"id"`
}

// Receipt is the payload of message_delivered and message_read.
type Receipt struct {
	ID string `json:"id"`
	By string `json:"by"`
}

// AckData confirms that a message was stored.
type AckData struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// Participant is a persisted user as returned by the REST API.
type Participant struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	SocketID  string    `json:"socketId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
