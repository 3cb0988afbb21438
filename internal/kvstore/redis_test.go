package kvstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client)
}

func TestGetSetRemove(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "k1", "v1"))

	val, found, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v1", val)

	// Overwrite
	require.NoError(t, s.Set(ctx, "k1", "v2"))
	val, _, err = s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "v2", val)

	require.NoError(t, s.Remove(ctx, "k1"))
	_, found, err = s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)

	// Removing an absent key is fine.
	require.NoError(t, s.Remove(ctx, "k1"))
}

func TestListKeys(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "conversation_u1_u2", "[]"))
	require.NoError(t, s.Set(ctx, "conversation_u1_u3", "[]"))
	require.NoError(t, s.Set(ctx, "@notifications:u1", "[]"))

	keys, err := s.ListKeys(ctx, "conversation_")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"conversation_u1_u2", "conversation_u1_u3"}, keys)

	keys, err = s.ListKeys(ctx, "posts")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestConnectBadAddress(t *testing.T) {
	t.Parallel()

	_, err := Connect("127.0.0.1:1")
	assert.Error(t, err)

	_, err = Connect("not-a-url://%%%")
	assert.Error(t, err)
}

func TestJSONHelpers(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	found, err := GetJSON(ctx, s, "rec", &record{})
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, s, "rec", record{Name: "alpha", Count: 3}))

	var got record
	found, err = GetJSON(ctx, s, "rec", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, record{Name: "alpha", Count: 3}, got)

	// Corrupt data surfaces as an error for callers to degrade on.
	require.NoError(t, s.Set(ctx, "rec", "{broken"))
	_, err = GetJSON(ctx, s, "rec", &got)
	assert.Error(t, err)
}
