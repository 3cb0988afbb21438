package store

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"conecta/internal/events"
	"conecta/internal/kvstore"
)

type testStores struct {
	kv            kvstore.Store
	bus           *events.Bus
	conversations *ConversationStore
	notifications *NotificationStore
	posts         *PostStore
	social        *SocialStore
}

func newTestStores(t *testing.T) *testStores {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	kv := kvstore.NewRedisStore(client)
	bus := events.NewBus()
	notifications := NewNotificationStore(kv, bus, nil)
	social := NewSocialStore(kv, notifications)

	return &testStores{
		kv:            kv,
		bus:           bus,
		conversations: NewConversationStore(kv, bus),
		notifications: notifications,
		posts:         NewPostStore(kv, bus, notifications, social),
		social:        social,
	}
}
