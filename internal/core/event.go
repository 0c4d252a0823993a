package core

import "github.com/vovakirdan/wirechat-relay/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventUserList carries the full presence snapshot.
	EventUserList EventKind = iota
	// EventUserJoined notifies clients about a participant joining.
	EventUserJoined
	// EventUserLeft notifies clients about a participant leaving.
	EventUserLeft
	// EventTypingUsers carries identities currently composing.
	EventTypingUsers
	// EventReceiveMessage delivers a public message.
	EventReceiveMessage
	// EventPrivateMessage delivers a private message to its target or echoes it to the sender.
	EventPrivateMessage
	// EventMessageDelivered tells a sender that a connection received its message.
	EventMessageDelivered
	// EventMessageRead tells a sender that a connection read its message.
	EventMessageRead
	// EventMessageDeleted retracts a message.
	EventMessageDeleted
	// EventMessagesCleared retracts every message.
	EventMessagesCleared
	// EventUsersCleared announces that all participant records were purged.
	EventUsersCleared
	// EventDataCleared announces that messages and participants were purged.
	EventDataCleared
	// EventUserDeleted announces removal of a single participant record.
	EventUserDeleted
	// EventAck confirms a send to its originator.
	EventAck
	// EventError notifies a client about a domain error.
	EventError
)

var eventNames = [...]string{
	EventUserList:         "user_list",
	EventUserJoined:       "user_joined",
	EventUserLeft:         "user_left",
	EventTypingUsers:      "typing_users",
	EventReceiveMessage:   "receive_message",
	EventPrivateMessage:   "private_message",
	EventMessageDelivered: "message_delivered",
	EventMessageRead:      "message_read",
	EventMessageDeleted:   "message_deleted",
	EventMessagesCleared:  "messages_cleared",
	EventUsersCleared:     "users_cleared",
	EventDataCleared:      "data_cleared",
	EventUserDeleted:      "user_deleted",
	EventAck:              "ack",
	EventError:            "error",
}

// String returns the wire name of the event.
func (k EventKind) String() string {
	if int(k) < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// AckStatusStored is the ack status of a persisted message.
const AckStatusStored = "stored"

// Event is sent to clients to describe what happened in the system.
// Events are shared between recipients and must not be mutated after sending.
type Event struct {
	Kind          EventKind
	RequestID     string          // EventAck, EventError
	Presence      []PresenceEntry // EventUserList
	User          *PresenceEntry  // EventUserJoined, EventUserLeft
	Typing        []string        // EventTypingUsers
	Message       *store.Message  // EventReceiveMessage, EventPrivateMessage
	Receipt       *Receipt        // EventMessageDelivered, EventMessageRead
	MessageID     string          // EventMessageDeleted, EventAck
	ParticipantID string          // EventUserDeleted
	Status        string          // EventAck
	Error         *CoreError
}

// PresenceEntry pairs an online identity with its live connection.
type PresenceEntry struct {
	Identity     string
	ConnectionID string
}

// Receipt reports which connection acknowledged a message.
type Receipt struct {
	MessageID string
	By        string
}
