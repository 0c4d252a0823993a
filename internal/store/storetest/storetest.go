// Package storetest holds behaviour tests shared by every store.Store backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// Factory returns an empty store. The suite closes it when the test ends.
type Factory func(t *testing.T) store.Store

// Run executes the shared suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("insert and get message", func(t *testing.T) {
		st := open(t, newStore)
		ctx := context.Background()

		inserted, err := st.InsertMessage(ctx, store.NewMessage{
			Sender:       "alice",
			SenderConnID: "c1",
			Body:         "hi",
		})
		require.NoError(t, err)
		require.NotEmpty(t, inserted.ID)
		assert.Empty(t, inserted.DeliveredTo)
		assert.Empty(t, inserted.ReadBy)
		assert.False(t, inserted.CreatedAt.IsZero())

		got, err := st.GetMessage(ctx, inserted.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Sender)
		assert.Equal(t, "c1", got.SenderConnID)
		assert.Equal(t, "hi", got.Body)
		assert.False(t, got.IsPrivate)
		assert.Nil(t, got.File)
	})

	t.Run("private message with file", func(t *testing.T) {
		st := open(t, newStore)
		ctx := context.Background()

		file := &store.FileRef{Name: "cat.png", URL: "http://host/uploads/cat.png", MimeType: "image/png", Size: 42}
		inserted, err := st.InsertMessage(ctx, store.NewMessage{
			Sender:       "alice",
			SenderConnID: "c1",
			IsPrivate:    true,
			To:           "bob",
			File:         file,
		})
		require.NoError(t, err)

		got, err := st.GetMessage(ctx, inserted.ID)
		require.NoError(t, err)
		assert.True(t, got.IsPrivate)
		assert.Equal(t, "bob", got.To)
		assert.Empty(t, got.Body)
		require.NotNil(t, got.File)
		assert.Equal(t, *file, *got.File)
	})

	t.Run("get missing message", func(t *testing.T) {
		st := open(t, newStore)

		_, err := st.GetMessage(context.Background(), "999999")
		assert.ErrorIs(t, err, store.ErrNotFound)

		_, err = st.GetMessage(context.Background(), "not-an-id")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("receipt sets are unions", func(t *testing.T) {
		st := open(t, newStore)
		ctx := context.Background()

		msg, err := st.InsertMessage(ctx, store.NewMessage{Sender: "alice", SenderConnID: "c1", Body: "x"})
		require.NoError(t, err)

		for range 2 {
			found, err := st.UpdateMessageSets(ctx, msg.ID, store.SetUpdate{Delivered: "c1"})
			require.NoError(t, err)
			require.True(t, found)
		}
		found, err := st.UpdateMessageSets(ctx, msg.ID, store.SetUpdate{Delivered: "c2", Read: "c2"})
		require.NoError(t, err)
		require.True(t, found)
		found, err = st.UpdateMessageSets(ctx, msg.ID, store.SetUpdate{Read: "c2"})
		require.NoError(t, err)
		require.True(t, found)

		got, err := st.GetMessage(ctx, msg.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"c1", "c2"}, got.DeliveredTo)
		assert.Equal(t, []string{"c2"}, got.ReadBy)
	})

	t.Run("update sets on missing message", func(t *testing.T) {
		st := open(t, newStore)

		found, err := st.UpdateMessageSets(context.Background(), "424242", store.SetUpdate{Delivered: "c1"})
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("delete message", func(t *testing.T) {
		st := open(t, newStore)
		ctx := context.Background()

		keep, err := st.InsertMessage(ctx, store.NewMessage{Sender: "a", SenderConnID: "c1", Body: "keep"})
		require.NoError(t, err)
		drop, err := st.InsertMessage(ctx, store.NewMessage{Sender: "a", SenderConnID: "c1", Body: "drop"})
		require.NoError(t, err)

		found, err := st.DeleteMessage(ctx, drop.ID)
		require.NoError(t, err)
		assert.True(t, found)

		found, err = st.DeleteMessage(ctx, drop.ID)
		require.NoError(t, err)
		assert.False(t, found)

		msgs, err := st.ListMessages(ctx, 0, true)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, keep.ID, msgs[0].ID)
	})

	t.Run("list messages ordered and limited", func(t *testing.T) {
		st := open(t, newStore)
		ctx := context.Background()

		var ids []string
		for _, body := range []string{"one", "two", "three"} {
			msg, err := st.InsertMessage(ctx, store.NewMessage{Sender: "a", SenderConnID: "c1", Body: body})
			require.NoError(t, err)
			ids = append(ids, msg.ID)
			time.Sleep(2 * time.Millisecond)
		}
		_, err := st.UpdateMessageSets(ctx, ids[1], store.SetUpdate{Delivered: "c9"})
		require.NoError(t, err)

		asc, err := st.ListMessages(ctx, 0, true)
		require.NoError(t, err)
		require.Len(t, asc, 3)
		assert.Equal(t, ids, []string{asc[0].ID, asc[1].ID, asc[2].ID})
		assert.Equal(t, []string{"c9"}, asc[1].DeliveredTo)
		assert.Empty(t, asc[0].DeliveredTo)

		desc, err := st.ListMessages(ctx, 2, false)
		require.NoError(t, err)
		require.Len(t, desc, 2)
		assert.Equal(t, ids[2], desc[0].ID)
		assert.Equal(t, ids[1], desc[1].ID)
	})

	t.Run("delete all messages", func(t *testing.T) {
		st := open(t, newStore)
		ctx := context.Background()

		msg, err := st.InsertMessage(ctx, store.NewMessage{Sender: "a", SenderConnID: "c1", Body: "x"})
		require.NoError(t, err)
		_, err = st.UpdateMessageSets(ctx, msg.ID, store.SetUpdate{Delivered: "c1"})
		require.NoError(t, err)

		require.NoError(t, st.DeleteAllMessages(ctx))

		msgs, err := st.ListMessages(ctx, 0, true)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("participant upsert and clear", func(t *testing.T) {
		st := open(t, newStore)
		ctx := context.Background()

		first, err := st.UpsertParticipant(ctx, "alice", "c1")
		require.NoError(t, err)
		assert.Equal(t, "alice", first.Username)
		assert.Equal(t, "c1", first.ConnectionID)

		second, err := st.UpsertParticipant(ctx, "alice", "c2")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "c2", second.ConnectionID)

		// Clearing a stale connection leaves the newer binding alone.
		require.NoError(t, st.ClearConnection(ctx, "c1"))
		list, err := st.ListParticipants(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "c2", list[0].ConnectionID)

		require.NoError(t, st.ClearConnection(ctx, "c2"))
		list, err = st.ListParticipants(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Empty(t, list[0].ConnectionID)
	})

	t.Run("usernames are case sensitive", func(t *testing.T) {
		st := open(t, newStore)
		ctx := context.Background()

		_, err := st.UpsertParticipant(ctx, "alice", "c1")
		require.NoError(t, err)
		_, err = st.UpsertParticipant(ctx, "Alice", "c2")
		require.NoError(t, err)

		list, err := st.ListParticipants(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("delete participants", func(t *testing.T) {
		st := open(t, newStore)
		ctx := context.Background()

		alice, err := st.UpsertParticipant(ctx, "alice", "c1")
		require.NoError(t, err)
		_, err = st.UpsertParticipant(ctx, "bob", "c2")
		require.NoError(t, err)

		found, err := st.DeleteParticipant(ctx, alice.ID)
		require.NoError(t, err)
		assert.True(t, found)
		found, err = st.DeleteParticipant(ctx, alice.ID)
		require.NoError(t, err)
		assert.False(t, found)

		list, err := st.ListParticipants(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "bob", list[0].Username)

		require.NoError(t, st.DeleteAllParticipants(ctx))
		list, err = st.ListParticipants(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func open(t *testing.T, newStore Factory) store.Store {
	t.Helper()
	st := newStore(t)
	t.Cleanup(func() { _ = st.Close() })
	return st
}
