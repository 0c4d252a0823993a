package core

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// Coordinator ties the registry, presence, routing and receipts together and
// is the only entry point transports use.
type Coordinator struct {
	store    store.Store
	hub      *Hub
	registry *Registry
	presence *Presence
	tracker  *Tracker
	router   *Router
	log      *zerolog.Logger
}

// Option customizes a Coordinator.
type Option func(*options)

type options struct {
	sanitizer Sanitizer
}

// WithSanitizer sets the body sanitizer applied before persisting messages.
// Passing nil disables sanitizing.
func WithSanitizer(s Sanitizer) Option {
	return func(o *options) {
		o.sanitizer = s
	}
}

// New creates a coordinator over st. Bodies are stripped of HTML unless
// WithSanitizer says otherwise.
func New(st store.Store, logger *zerolog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	o := options{sanitizer: NewHTMLSanitizer()}
	for _, opt := range opts {
		opt(&o)
	}

	hub := NewHub(logger)
	registry := NewRegistry()
	tracker := NewTracker(st, registry, hub)

	return &Coordinator{
		store:    st,
		hub:      hub,
		registry: registry,
		presence: NewPresence(registry, hub),
		tracker:  tracker,
		router:   NewRouter(st, registry, hub, tracker, o.sanitizer, logger),
		log:      logger,
	}
}

// Connect makes a freshly opened connection reachable by broadcasts. The
// connection has no identity until it joins.
func (c *Coordinator) Connect(client *Client) {
	c.hub.Register(client)
	c.log.Debug().Str("conn_id", client.ID).Msg("connection opened")
}

// Disconnect releases everything held by client and closes its event channel.
// It is safe to call more than once.
func (c *Coordinator) Disconnect(ctx context.Context, client *Client) {
	identity, bound := c.registry.Unbind(client.ID)
	if !c.hub.Unregister(client) && !bound {
		return
	}

	if err := c.store.ClearConnection(context.WithoutCancel(ctx), client.ID); err != nil {
		c.log.Error().Err(err).Str("conn_id", client.ID).Msg("clear connection failed")
	}

	c.presence.Left(identity, client.ID, bound)
	c.log.Debug().Str("conn_id", client.ID).Str("identity", identity).Bool("bound", bound).Msg("connection closed")
}

// Join binds client to identity. A previous connection of the same identity
// stays open but is no longer addressable.
func (c *Coordinator) Join(ctx context.Context, client *Client, identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return invalidInput("identity is required")
	}

	if _, err := c.store.UpsertParticipant(context.WithoutCancel(ctx), identity, client.ID); err != nil {
		return storeUnavailable("upsert participant", err)
	}

	// Only the connection's own read loop joins, so nothing rebinds it in between.
	released, _ := c.registry.IdentityOf(client.ID)
	if released == identity {
		released = ""
	}
	superseded := c.registry.Bind(client.ID, identity)
	if superseded != "" {
		c.log.Info().Str("identity", identity).Str("conn_id", client.ID).Str("superseded", superseded).Msg("identity rebound to new connection")
	}
	c.presence.Joined(identity, client.ID, released, superseded)
	return nil
}

// Send validates and routes a message composed on client.
func (c *Coordinator) Send(ctx context.Context, client *Client, requestID string, req SendRequest) (*RouteResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.To = strings.TrimSpace(req.To)

	res, err := c.router.Route(ctx, client, requestID, req)
	if err != nil {
		c.log.Error().Err(err).Str("conn_id", client.ID).Msg("send failed")
		return nil, err
	}
	return res, nil
}

// MarkDelivered records a delivery receipt. Failures are logged, never
// reported to the acknowledging connection.
func (c *Coordinator) MarkDelivered(ctx context.Context, client *Client, messageID string) {
	if err := c.tracker.Delivered(ctx, messageID, client.ID); err != nil {
		c.log.Error().Err(err).Str("message_id", messageID).Str("conn_id", client.ID).Msg("delivery receipt failed")
	}
}

// MarkRead records a read receipt. Failures are logged only.
func (c *Coordinator) MarkRead(ctx context.Context, client *Client, messageID string) {
	if err := c.tracker.Read(ctx, messageID, client.ID); err != nil {
		c.log.Error().Err(err).Str("message_id", messageID).Str("conn_id", client.ID).Msg("read receipt failed")
	}
}

// SetTyping toggles the typing flag of client.
func (c *Coordinator) SetTyping(client *Client, typing bool) {
	c.presence.SetTyping(client.ID, typing)
}

// DeleteMessage removes a message and tells every connection to retract it.
func (c *Coordinator) DeleteMessage(ctx context.Context, id string) error {
	found, err := c.store.DeleteMessage(ctx, id)
	if err != nil {
		return storeUnavailable("delete message", err)
	}
	if !found {
		return notFound("message not found")
	}
	c.hub.Broadcast(&Event{Kind: EventMessageDeleted, MessageID: id})
	return nil
}

// DeleteParticipant removes a participant record. Live bindings are untouched.
func (c *Coordinator) DeleteParticipant(ctx context.Context, id string) error {
	found, err := c.store.DeleteParticipant(ctx, id)
	if err != nil {
		return storeUnavailable("delete participant", err)
	}
	if !found {
		return notFound("user not found")
	}
	c.hub.Broadcast(&Event{Kind: EventUserDeleted, ParticipantID: id})
	return nil
}

// PurgeMessages deletes every message.
func (c *Coordinator) PurgeMessages(ctx context.Context) error {
	if err := c.store.DeleteAllMessages(ctx); err != nil {
		return storeUnavailable("delete messages", err)
	}
	c.hub.Broadcast(&Event{Kind: EventMessagesCleared})
	return nil
}

// PurgeParticipants deletes every participant record.
func (c *Coordinator) PurgeParticipants(ctx context.Context) error {
	if err := c.store.DeleteAllParticipants(ctx); err != nil {
		return storeUnavailable("delete participants", err)
	}
	c.hub.Broadcast(&Event{Kind: EventUsersCleared})
	return nil
}

// PurgeAll deletes messages and participants.
func (c *Coordinator) PurgeAll(ctx context.Context) error {
	if err := c.store.DeleteAllMessages(ctx); err != nil {
		return storeUnavailable("delete messages", err)
	}
	if err := c.store.DeleteAllParticipants(ctx); err != nil {
		return storeUnavailable("delete participants", err)
	}
	c.hub.Broadcast(&Event{Kind: EventDataCleared})
	return nil
}

// ListMessages returns up to limit stored messages. A limit <= 0 means all.
func (c *Coordinator) ListMessages(ctx context.Context, limit int, ascending bool) ([]*store.Message, error) {
	msgs, err := c.store.ListMessages(ctx, limit, ascending)
	if err != nil {
		return nil, storeUnavailable("list messages", err)
	}
	return msgs, nil
}

// ListParticipants returns every participant record.
func (c *Coordinator) ListParticipants(ctx context.Context) ([]*store.Participant, error) {
	participants, err := c.store.ListParticipants(ctx)
	if err != nil {
		return nil, storeUnavailable("list participants", err)
	}
	return participants, nil
}

// Presence returns the current online snapshot.
func (c *Coordinator) Presence() []PresenceEntry {
	return c.presence.Snapshot()
}

// TypingUsers returns the identities currently composing.
func (c *Coordinator) TypingUsers() []string {
	return c.presence.TypingUsers()
}

// ConnectionOf returns the live connection bound to identity.
func (c *Coordinator) ConnectionOf(identity string) (string, bool) {
	return c.registry.ConnectionOf(identity)
}

// Connections returns the number of open connections, joined or not.
func (c *Coordinator) Connections() int {
	return c.hub.Len()
}

// Dispatch executes cmd on behalf of client. Failures are reported back to
// the client as an error event tagged with the command's request id.
func (c *Coordinator) Dispatch(ctx context.Context, client *Client, cmd *Command) {
	var err error
	switch cmd.Kind {
	case CommandJoin:
		err = c.Join(ctx, client, cmd.Identity)
	case CommandSendMessage:
		_, err = c.Send(ctx, client, cmd.RequestID, cmd.Send)
	case CommandDelivered:
		c.MarkDelivered(ctx, client, cmd.MessageID)
	case CommandRead:
		c.MarkRead(ctx, client, cmd.MessageID)
	case CommandTyping:
		c.SetTyping(client, cmd.Typing)
	case CommandDeleteMessage:
		err = c.DeleteMessage(ctx, cmd.MessageID)
	default:
		err = NewError(ErrCodeBadRequest, "unknown command")
	}

	if err != nil {
		c.ReportError(client, cmd.RequestID, err)
	}
}

// ReportError sends err to client as an error event.
func (c *Coordinator) ReportError(client *Client, requestID string, err error) {
	c.hub.Send(client.ID, &Event{Kind: EventError, RequestID: requestID, Error: AsCoreError(err)})
}
