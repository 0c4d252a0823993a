package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a message or participant does not exist.
var ErrNotFound = errors.New("not found")

// Participant is a persisted chat user, identified by a unique username.
type Participant struct {
	ID           string
	Username     string
	ConnectionID string // empty when the participant has no live connection
	CreatedAt    time.Time
}

// FileRef points at an uploaded attachment. Upload itself happens elsewhere.
type FileRef struct {
	Name     string `json:"filename" bson:"filename"`
	URL      string `json:"url" bson:"url"`
	MimeType string `json:"mimetype" bson:"mimetype"`
	Size     int64  `json:"size" bson:"size"`
}

// Message represents a persisted chat message.
type Message struct {
	ID           string
	Sender       string
	SenderConnID string
	Body         string
	IsPrivate    bool
	To           string // target identity, set iff IsPrivate
	File         *FileRef
	DeliveredTo  []string
	ReadBy       []string
	CreatedAt    time.Time
}

// NewMessage holds the fields supplied on insert. The store assigns ID and CreatedAt.
type NewMessage struct {
	Sender       string
	SenderConnID string
	Body         string
	IsPrivate    bool
	To           string
	File         *FileRef
}

// SetUpdate names the connection ids to union into a message's receipt sets.
// Empty fields are ignored.
type SetUpdate struct {
	Delivered string
	Read      string
}

// MessageStore handles message persistence.
type MessageStore interface {
	// InsertMessage persists a message with empty receipt sets and returns it with
	// its store-assigned id and creation time.
	InsertMessage(ctx context.Context, msg NewMessage) (*Message, error)

	// GetMessage retrieves a message by id. Returns ErrNotFound if absent.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// UpdateMessageSets adds connection ids to the delivered/read sets with set-union
	// semantics. Reports whether the message exists.
	UpdateMessageSets(ctx context.Context, id string, update SetUpdate) (bool, error)

	// DeleteMessage removes a message. Reports whether it existed.
	DeleteMessage(ctx context.Context, id string) (bool, error)

	// DeleteAllMessages removes every message.
	DeleteAllMessages(ctx context.Context) error

	// ListMessages returns up to limit messages ordered by creation time.
	ListMessages(ctx context.Context, limit int, ascending bool) ([]*Message, error)
}

// ParticipantStore handles participant persistence.
type ParticipantStore interface {
	// UpsertParticipant creates the participant on first join and points its live
	// connection at connID.
	UpsertParticipant(ctx context.Context, username, connID string) (*Participant, error)

	// ClearConnection unsets the live connection of any participant bound to connID.
	ClearConnection(ctx context.Context, connID string) error

	// ListParticipants returns all participants ordered by creation time.
	ListParticipants(ctx context.Context) ([]*Participant, error)

	// DeleteParticipant removes a participant by id. Reports whether it existed.
	DeleteParticipant(ctx context.Context, id string) (bool, error)

	// DeleteAllParticipants removes every participant.
	DeleteAllParticipants(ctx context.Context) error
}

// Store aggregates all storage interfaces.
type Store interface {
	MessageStore
	ParticipantStore

	// Close closes the underlying database connection.
	Close() error
}
