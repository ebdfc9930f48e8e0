package editstate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), "redis://"+s.Addr(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func storesUnderTest(t *testing.T) map[string]Store {
	rs, _ := setupTestRedis(t, time.Hour)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  rs,
	}
}

func TestTracker_Lifecycle(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
			tr := NewTracker(store, func() time.Time { return now })

			cur, err := tr.Current(ctx, "alice", "e1")
			require.NoError(t, err)
			assert.Equal(t, Show, cur.Mode)

			st, err := tr.BeginEdit(ctx, "alice", "e1")
			require.NoError(t, err)
			assert.Equal(t, Edit, st.Mode)

			// sessions are per actor
			other, err := tr.Current(ctx, "bob", "e1")
			require.NoError(t, err)
			assert.Equal(t, Show, other.Mode)

			cur, err = tr.Current(ctx, "alice", "e1")
			require.NoError(t, err)
			assert.Equal(t, Edit, cur.Mode)
			assert.True(t, now.Equal(cur.Since))

			st, err = tr.Committed(ctx, "alice", "e1")
			require.NoError(t, err)
			assert.Equal(t, Show, st.Mode)

			cur, err = tr.Current(ctx, "alice", "e1")
			require.NoError(t, err)
			assert.Equal(t, Show, cur.Mode)
		})
	}
}

func TestTracker_CancelReturnsToShow(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(NewMemoryStore(), nil)

	_, err := tr.BeginEdit(ctx, "alice", "e1")
	require.NoError(t, err)
	st, err := tr.Cancel(ctx, "alice", "e1")
	require.NoError(t, err)
	assert.Equal(t, Show, st.Mode)
}

func TestRedisStore_EditSessionExpires(t *testing.T) {
	store, s := setupTestRedis(t, time.Minute)
	ctx := context.Background()
	tr := NewTracker(store, nil)

	_, err := tr.BeginEdit(ctx, "alice", "e1")
	require.NoError(t, err)
	assert.True(t, s.Exists("editstate:alice:e1"))

	s.FastForward(2 * time.Minute)

	cur, err := tr.Current(ctx, "alice", "e1")
	require.NoError(t, err)
	assert.Equal(t, Show, cur.Mode)
}

func TestRedisStore_ShowDeletesKey(t *testing.T) {
	store, s := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, State{ActorID: "a", EntryID: "e", Mode: Edit}))
	require.True(t, s.Exists("editstate:a:e"))
	require.NoError(t, store.Put(ctx, State{ActorID: "a", EntryID: "e", Mode: Show}))
	assert.False(t, s.Exists("editstate:a:e"))
}

func TestRedisStore_CorruptValue(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	store := NewRedisStoreWithClient(client, time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, s.Set("editstate:a:e", "{not json"))
	_, err := store.Get(context.Background(), "a", "e")
	assert.Error(t, err)
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-url://", time.Hour)
	assert.Error(t, err)
}
