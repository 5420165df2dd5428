package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Store = (*SQLiteStore)(nil)
var _ Store = NoopStore{}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := Record{
		SessionID:       "sess-1",
		UserID:          "user-1",
		Mode:            "SINGLE",
		RequestMessage:  "ping",
		ResponseMessage: "pong",
		ActivatedSkills: []string{"search", "summarize"},
		EventCount:      3,
		Timestamp:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, rec))

	records, err := store.ListBySession(ctx, "sess-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.NotZero(t, got.ID)
	assert.Equal(t, "SINGLE", got.Mode)
	assert.Equal(t, "ping", got.RequestMessage)
	assert.Equal(t, "pong", got.ResponseMessage)
	assert.Equal(t, []string{"search", "summarize"}, got.ActivatedSkills)
	assert.Equal(t, 3, got.EventCount)
}

func TestSQLiteStore_ListMostRecentFirstWithLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, msg := range []string{"first", "second", "third"} {
		require.NoError(t, store.Save(ctx, Record{
			SessionID:       "sess-1",
			UserID:          "user-1",
			Mode:            "SINGLE",
			RequestMessage:  msg,
			ResponseMessage: "ok",
			EventCount:      i,
		}))
	}

	records, err := store.ListBySession(ctx, "sess-1", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "third", records[0].RequestMessage)
	assert.Equal(t, "second", records[1].RequestMessage)
}

func TestSQLiteStore_ListScopedBySession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Record{SessionID: "sess-1", UserID: "u", Mode: "SINGLE", RequestMessage: "a", ResponseMessage: "x"}))
	require.NoError(t, store.Save(ctx, Record{SessionID: "sess-2", UserID: "u", Mode: "SINGLE", RequestMessage: "b", ResponseMessage: "y"}))

	records, err := store.ListBySession(ctx, "sess-2", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].RequestMessage)
}

func TestSQLiteStore_EmptySkillsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Record{SessionID: "sess-1", UserID: "u", Mode: "SINGLE", RequestMessage: "a", ResponseMessage: "x"}))

	records, err := store.ListBySession(ctx, "sess-1", 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].ActivatedSkills)
}
