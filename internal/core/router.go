package core

import (
	"context"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// AnonymousSender labels messages whose sender could not be resolved.
const AnonymousSender = "Anonymous"

// Sanitizer cleans a message body before it is persisted.
type Sanitizer interface {
	Sanitize(s string) string
}

// NewHTMLSanitizer strips all markup from message bodies. The result is plain
// text: entities produced by the policy are decoded again so ordinary
// punctuation is stored as typed.
func NewHTMLSanitizer() Sanitizer {
	return &htmlSanitizer{policy: bluemonday.StrictPolicy()}
}

type htmlSanitizer struct {
	policy *bluemonday.Policy
}

func (s *htmlSanitizer) Sanitize(body string) string {
	return html.UnescapeString(s.policy.Sanitize(body))
}

// RouteResult describes the outcome of a routed message.
type RouteResult struct {
	Message *store.Message
	// Delivered is false when a private message had no live target. The
	// message is stored either way.
	Delivered bool
}

// Router persists messages and fans them out to their audience.
type Router struct {
	store     store.MessageStore
	registry  *Registry
	gateway   Gateway
	tracker   *Tracker
	sanitizer Sanitizer
	log       *zerolog.Logger
}

// NewRouter creates a router. sanitizer may be nil.
func NewRouter(st store.MessageStore, registry *Registry, gateway Gateway, tracker *Tracker, sanitizer Sanitizer, logger *zerolog.Logger) *Router {
	return &Router{
		store:     st,
		registry:  registry,
		gateway:   gateway,
		tracker:   tracker,
		sanitizer: sanitizer,
		log:       logger,
	}
}

// Route stores req and delivers it. The sender receives its stored ack before
// any copy of the message, then a delivery receipt for its own connection.
//
// Sender attribution falls back from the registry to the client's identity
// hint and finally to AnonymousSender; routing never fails for lack of one.
func (r *Router) Route(ctx context.Context, sender *Client, requestID string, req SendRequest) (*RouteResult, error) {
	if r.sanitizer != nil {
		req.Body = r.sanitizer.Sanitize(req.Body)
		// A body of pure markup may have nothing left.
		if err := req.Validate(); err != nil {
			return nil, err
		}
	}

	newMsg := store.NewMessage{
		Sender:       r.resolveSender(sender),
		SenderConnID: sender.ID,
		Body:         req.Body,
		IsPrivate:    req.IsPrivate,
		File:         req.File,
	}
	if req.IsPrivate {
		newMsg.To = req.To
	}

	// The write must finish even if the sender disconnects meanwhile.
	msg, err := r.store.InsertMessage(context.WithoutCancel(ctx), newMsg)
	if err != nil {
		return nil, storeUnavailable("insert message", err)
	}

	r.gateway.Send(sender.ID, &Event{
		Kind:      EventAck,
		RequestID: requestID,
		Status:    AckStatusStored,
		MessageID: msg.ID,
	})

	res := &RouteResult{Message: msg, Delivered: true}
	if msg.IsPrivate {
		res.Delivered = r.sendPrivate(sender.ID, msg)
	} else {
		r.gateway.Broadcast(&Event{Kind: EventReceiveMessage, Message: msg})
	}

	if err := r.tracker.recordFor(ctx, msg, sender.ID, receiptDelivered); err != nil {
		r.log.Error().Err(err).Str("message_id", msg.ID).Str("conn_id", sender.ID).Msg("self delivery receipt failed")
	}

	return res, nil
}

// sendPrivate delivers msg to its target, if online, and echoes it to the
// sender. Reports whether the target was reachable.
func (r *Router) sendPrivate(senderConnID string, msg *store.Message) bool {
	targetConnID, online := r.registry.ConnectionOf(msg.To)
	if online && targetConnID != senderConnID {
		r.gateway.Send(targetConnID, &Event{Kind: EventPrivateMessage, Message: msg})
	}
	r.gateway.Send(senderConnID, &Event{Kind: EventPrivateMessage, Message: msg})
	return online
}

func (r *Router) resolveSender(c *Client) string {
	if identity, ok := r.registry.IdentityOf(c.ID); ok {
		return identity
	}
	if c.Hint != "" {
		return c.Hint
	}
	return AnonymousSender
}
