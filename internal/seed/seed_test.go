package seed

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conecta/internal/events"
	"conecta/internal/kvstore"
	"conecta/internal/store"
)

func TestRun(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	kv := kvstore.NewRedisStore(client)
	bus := events.NewBus()
	notifications := store.NewNotificationStore(kv, bus, nil)
	social := store.NewSocialStore(kv, notifications)
	stores := Stores{
		Conversations: store.NewConversationStore(kv, bus),
		Notifications: notifications,
		Posts:         store.NewPostStore(kv, bus, notifications, social),
		Social:        social,
	}

	ctx := context.Background()
	require.NoError(t, Run(ctx, stores, Options{NumUsers: 4, NumPosts: 5, Seed: 42}))

	posts := stores.Posts.Load(ctx)
	assert.Len(t, posts, 5)

	userKeys, err := kv.ListKeys(ctx, "clerk_user_")
	require.NoError(t, err)
	assert.Len(t, userKeys, 4)

	convKeys, err := kv.ListKeys(ctx, "conversation_")
	require.NoError(t, err)
	assert.Len(t, convKeys, 2)

	// Seeding twice with the same seed creates fresh ids, so posts double.
	require.NoError(t, Run(ctx, stores, Options{NumUsers: 4, NumPosts: 5, Seed: 42}))
	assert.Len(t, stores.Posts.Load(ctx), 10)
}
