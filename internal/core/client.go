package core

const clientEventBuffer = 64

// Client is one live transport session as seen by the core layer.
type Client struct {
	ID string
	// Hint is the identity claimed at handshake (e.g. from a login token). It is
	// the second tier of sender resolution. Only the connection's own read loop
	// writes it.
	Hint   string
	Events chan *Event
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id, hint string) *Client {
	return &Client{
		ID:     id,
		Hint:   hint,
		Events: make(chan *Event, clientEventBuffer),
	}
}
