package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-relay/internal/store"
	"github.com/vovakirdan/wirechat-relay/internal/store/storetest"
)

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("WIRECHAT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("WIRECHAT_TEST_MONGO_URI not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		dbName := "wirechat_test_" + uuid.NewString()[:8]
		st, err := New(ctx, uri, dbName)
		require.NoError(t, err)
		return droppingStore{MongoStore: st, database: dbName}
	})
}

// droppingStore removes the per-test database before disconnecting.
type droppingStore struct {
	*MongoStore
	database string
}

func (d droppingStore) Close() error {
	_ = d.client.Database(d.database).Drop(context.Background())
	return d.MongoStore.Close()
}
