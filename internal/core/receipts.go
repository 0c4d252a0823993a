package core

import (
	"context"
	"errors"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

type receiptKind int

const (
	receiptDelivered receiptKind = iota
	receiptRead
)

func (k receiptKind) update(connID string) store.SetUpdate {
	if k == receiptRead {
		return store.SetUpdate{Read: connID}
	}
	return store.SetUpdate{Delivered: connID}
}

func (k receiptKind) event() EventKind {
	if k == receiptRead {
		return EventMessageRead
	}
	return EventMessageDelivered
}

// Tracker records delivered and read receipts and notifies the original
// sender connection of each one. Delivered and read are independent sets;
// a read does not imply a delivery at the data layer.
//
// Anyone online may acknowledge a public message. A private message only
// accepts receipts from its sender connection or the live connection of its
// target; others are ignored.
type Tracker struct {
	store    store.MessageStore
	registry *Registry
	gateway  Gateway
}

// NewTracker creates a receipt tracker.
func NewTracker(st store.MessageStore, registry *Registry, gateway Gateway) *Tracker {
	return &Tracker{store: st, registry: registry, gateway: gateway}
}

// Delivered records that connID received message id. Missing messages are a
// silent no-op.
func (t *Tracker) Delivered(ctx context.Context, id, connID string) error {
	return t.record(ctx, id, connID, receiptDelivered)
}

// Read records that connID read message id. Missing messages are a silent no-op.
func (t *Tracker) Read(ctx context.Context, id, connID string) error {
	return t.record(ctx, id, connID, receiptRead)
}

func (t *Tracker) record(ctx context.Context, id, connID string, kind receiptKind) error {
	ctx = context.WithoutCancel(ctx)

	msg, err := t.store.GetMessage(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeUnavailable("get message", err)
	}
	if !t.isRecipient(msg, connID) {
		return nil
	}

	return t.recordFor(ctx, msg, connID, kind)
}

func (t *Tracker) isRecipient(msg *store.Message, connID string) bool {
	if !msg.IsPrivate || connID == msg.SenderConnID {
		return true
	}
	target, online := t.registry.ConnectionOf(msg.To)
	return online && target == connID
}

// recordFor is record for a message the caller already holds, skipping the lookup.
func (t *Tracker) recordFor(ctx context.Context, msg *store.Message, connID string, kind receiptKind) error {
	found, err := t.store.UpdateMessageSets(context.WithoutCancel(ctx), msg.ID, kind.update(connID))
	if err != nil {
		return storeUnavailable("update receipts", err)
	}
	if !found {
		// Deleted after the lookup.
		return nil
	}
	t.notify(msg, connID, kind)
	return nil
}

// notify reaches the sender connection recorded on the message. A sender that
// has since disconnected simply misses it.
func (t *Tracker) notify(msg *store.Message, connID string, kind receiptKind) {
	t.gateway.Send(msg.SenderConnID, &Event{
		Kind:    kind.event(),
		Receipt: &Receipt{MessageID: msg.ID, By: connID},
	})
}
