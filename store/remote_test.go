package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/listwatch/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need a live server and are skipped unless one is configured.

// TestPostgresBackend_RoundTrip verifies save and load against PostgreSQL
func TestPostgresBackend_RoundTrip(t *testing.T) {
	dsn := os.Getenv("LISTWATCH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LISTWATCH_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	backend, err := NewPostgresBackend(ctx, dsn)
	require.NoError(t, err)
	defer backend.Close()

	records := map[string]record.Record{
		"1": sampleRecord("1"),
		"2": sampleRecord("2"),
	}
	require.NoError(t, backend.Save(ctx, records))

	loaded, err := backend.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, records["1"].About, loaded["1"].About)
	assert.True(t, records["1"].FirstSeen.Equal(loaded["1"].FirstSeen))

	require.NoError(t, backend.Save(ctx, map[string]record.Record{"2": sampleRecord("2")}))
	loaded, err = backend.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

// TestMongoBackend_RoundTrip verifies save and load against MongoDB
func TestMongoBackend_RoundTrip(t *testing.T) {
	uri := os.Getenv("LISTWATCH_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("LISTWATCH_TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	backend, err := NewMongoBackend(ctx, MongoConfig{
		URI:        uri,
		Database:   "listwatch_test",
		Collection: "snapshots",
		Key:        uuid.NewString(),
	})
	require.NoError(t, err)
	defer backend.Close()
	defer backend.collection.Drop(ctx)

	_, err = backend.Load(ctx)
	assert.ErrorIs(t, err, ErrNoState)

	records := map[string]record.Record{"1": sampleRecord("1")}
	require.NoError(t, backend.Save(ctx, records))

	loaded, err := backend.Load(ctx)
	require.NoError(t, err)
	require.Contains(t, loaded, "1")
	assert.Equal(t, records["1"].Data, loaded["1"].Data)
	assert.Equal(t, records["1"].Goals, loaded["1"].Goals)
	assert.WithinDuration(t, records["1"].FirstSeen, loaded["1"].FirstSeen, time.Millisecond)
}
