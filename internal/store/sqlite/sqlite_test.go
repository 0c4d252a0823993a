package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-relay/internal/store"
	"github.com/vovakirdan/wirechat-relay/internal/store/storetest"
)

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		st, err := New(":memory:")
		require.NoError(t, err)
		return st
	})
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.db")
	ctx := context.Background()

	st, err := New(path)
	require.NoError(t, err)
	msg, err := st.InsertMessage(ctx, store.NewMessage{Sender: "alice", SenderConnID: "c1", Body: "persisted"})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// Schema statements must tolerate an existing database.
	st, err = New(path)
	require.NoError(t, err)
	defer st.Close()

	got, err := st.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, "persisted", got.Body)
}

func TestNewWithSetupFailure(t *testing.T) {
	_, err := NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(`CREATE TABLE broken (`)
		return err
	})
	require.Error(t, err)
}

func TestListMessagesLongHistory(t *testing.T) {
	st, err := New(":memory:")
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	// More rows than SQLite accepts bound parameters in one statement.
	const total = 33000
	_, err = st.db.ExecContext(ctx, `
		WITH RECURSIVE seq(n) AS (SELECT 1 UNION ALL SELECT n + 1 FROM seq WHERE n < ?)
		INSERT INTO messages (sender, sender_conn_id, body, is_private, created_at)
		SELECT 'alice', 'c1', 'm' || n, 0, ? FROM seq
	`, total, time.Now().UTC())
	require.NoError(t, err)

	_, err = st.UpdateMessageSets(ctx, "1", store.SetUpdate{Delivered: "c2", Read: "c2"})
	require.NoError(t, err)

	msgs, err := st.ListMessages(ctx, 0, true)
	require.NoError(t, err)
	require.Len(t, msgs, total)
	assert.Equal(t, "1", msgs[0].ID)
	assert.Equal(t, []string{"c2"}, msgs[0].DeliveredTo)
	assert.Equal(t, []string{"c2"}, msgs[0].ReadBy)
	assert.Empty(t, msgs[total-1].DeliveredTo)
}
