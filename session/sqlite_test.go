package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freelancing-solutions/agenthub/core"
)

// Interface compliance (compile-time assertions)
var (
	_ KV = (*InMemoryKV)(nil)
	_ KV = (*SQLiteKV)(nil)
)

func newTestSQLiteKV(t *testing.T) *SQLiteKV {
	t.Helper()
	kv, err := NewSQLiteKV(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestSQLiteKV_SetGetDelete(t *testing.T) {
	kv := newTestSQLiteKV(t)
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "k1", []byte("v1"), time.Hour))
	got, ok, err := kv.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), got)

	// Upsert replaces the value and refreshes expiry.
	require.NoError(t, kv.Set(ctx, "k1", []byte("v2"), time.Hour))
	got, ok, err = kv.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, kv.Delete(ctx, "k1"))
	_, ok, err = kv.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteKV_Expiry(t *testing.T) {
	kv := newTestSQLiteKV(t)
	ctx := context.Background()

	clock := newFakeClock()
	kv.SetClock(clock.Now)

	require.NoError(t, kv.Set(ctx, "short", []byte("x"), time.Minute))
	require.NoError(t, kv.Set(ctx, "long", []byte("y"), time.Hour))

	clock.Advance(2 * time.Minute)

	_, ok, err := kv.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok, "entry past its TTL reads as absent")

	_, ok, err = kv.Get(ctx, "long")
	require.NoError(t, err)
	assert.True(t, ok)

	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"long"}, keys)
}

func TestSQLiteKV_Vacuum(t *testing.T) {
	kv := newTestSQLiteKV(t)
	ctx := context.Background()

	clock := newFakeClock()
	kv.SetClock(clock.Now)

	require.NoError(t, kv.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, kv.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, kv.Set(ctx, "c", []byte("3"), time.Hour))

	clock.Advance(10 * time.Minute)

	removed, err := kv.Vacuum(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, keys)
}

func TestStore_WithSQLiteBackend(t *testing.T) {
	kv := newTestSQLiteKV(t)
	store := NewStore(func(o *Options) { o.KV = kv })
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, store.AddMessage(ctx, sess.ID, core.RoleUser, "persisted", nil, ""))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "persisted", got.Messages[0].Content)
}
