package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MT2-0901/nexus-agent/core"
)

var _ core.SessionStore = (*InMemoryStore)(nil)

func TestInMemoryStore_CreateIsIdempotent(t *testing.T) {
	store := NewInMemoryStore()

	first, err := store.Create("app", "user", "sess-1")
	require.NoError(t, err)

	first.AddEvent(core.NewUserEvent("run-1", core.NewTextContent("user", "hi")))
	require.NoError(t, store.AppendEvent("app", "user", "sess-1", core.NewUserEvent("run-1", core.NewTextContent("user", "hi"))))

	again, err := store.Create("app", "user", "sess-1")
	require.NoError(t, err)
	assert.Len(t, again.Events(), 1)
}

func TestInMemoryStore_ExistsAndGet(t *testing.T) {
	store := NewInMemoryStore()

	ok, err := store.Exists("app", "user", "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Get("app", "user", "sess-1")
	require.Error(t, err)

	_, err = store.Create("app", "user", "sess-1")
	require.NoError(t, err)

	ok, err = store.Exists("app", "user", "sess-1")
	require.NoError(t, err)
	assert.True(t, ok)

	sess, err := store.Get("app", "user", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)
}

func TestInMemoryStore_IdentityIsTripleScoped(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Create("app", "alice", "sess-1")
	require.NoError(t, err)

	ok, err := store.Exists("app", "bob", "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryStore_GetReturnsClone(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Create("app", "user", "sess-1")
	require.NoError(t, err)

	sess, err := store.Get("app", "user", "sess-1")
	require.NoError(t, err)
	sess.AddEvent(core.NewUserEvent("run-1", core.NewTextContent("user", "local only")))

	fresh, err := store.Get("app", "user", "sess-1")
	require.NoError(t, err)
	assert.Empty(t, fresh.Events())
}

func TestInMemoryStore_AppendEventCreatesSession(t *testing.T) {
	store := NewInMemoryStore()

	err := store.AppendEvent("app", "user", "sess-1", core.NewUserEvent("run-1", core.NewTextContent("user", "hi")))
	require.NoError(t, err)

	sess, err := store.Get("app", "user", "sess-1")
	require.NoError(t, err)
	assert.Len(t, sess.Events(), 1)
}
