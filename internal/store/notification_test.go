package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conecta/internal/events"
	"conecta/internal/models"
)

var alice = models.UserRef{ID: "u1", Username: "alice"}

type recordingAlerter struct {
	alerts []models.Notification
}

func (r *recordingAlerter) Alert(_ context.Context, n models.Notification) {
	r.alerts = append(r.alerts, n)
}

func TestAddNotification(t *testing.T) {
	t.Parallel()

	s := newTestStores(t)
	ctx := context.Background()

	n, stored := s.notifications.Add(ctx, alice, models.NotificationLike, "post42", "u2", AddOptions{})
	require.True(t, stored)
	require.NotNil(t, n)
	assert.Equal(t, "@alice curtiu seu post", n.Message)
	assert.Equal(t, "post42", n.PostID)
	assert.False(t, n.Read)

	list := s.notifications.List(ctx, "u2")
	require.Len(t, list, 1)
	assert.Equal(t, n.ID, list[0].ID)
}

func TestAddNotificationDuplicateSuppression(t *testing.T) {
	t.Parallel()

	s := newTestStores(t)
	ctx := context.Background()

	_, stored := s.notifications.Add(ctx, alice, models.NotificationLike, "post42", "u2", AddOptions{})
	require.True(t, stored)

	n, stored := s.notifications.Add(ctx, alice, models.NotificationLike, "post42", "u2", AddOptions{})
	assert.False(t, stored)
	assert.Nil(t, n)

	likes := 0
	for _, entry := range s.notifications.List(ctx, "u2") {
		if entry.Type == models.NotificationLike && entry.PostID == "post42" && entry.Actor.ID == "u1" {
			likes++
		}
	}
	assert.Equal(t, 1, likes)

	// A different type for the same post is not a duplicate.
	_, stored = s.notifications.Add(ctx, alice, models.NotificationComment, "post42", "u2", AddOptions{})
	assert.True(t, stored)
	assert.Len(t, s.notifications.List(ctx, "u2"), 2)
}

func TestAddNotificationSilentSkips(t *testing.T) {
	t.Parallel()

	s := newTestStores(t)
	ctx := context.Background()

	t.Run("missing target", func(t *testing.T) {
		_, stored := s.notifications.Add(ctx, alice, models.NotificationLike, "post42", "", AddOptions{})
		assert.False(t, stored)
	})

	t.Run("self action", func(t *testing.T) {
		_, stored := s.notifications.Add(ctx, alice, models.NotificationLike, "post42", alice.ID, AddOptions{})
		assert.False(t, stored)
		assert.Empty(t, s.notifications.List(ctx, alice.ID))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, stored := s.notifications.Add(ctx, alice, models.NotificationType("poke"), "", "u2", AddOptions{})
		assert.False(t, stored)
	})
}

func TestAddNotificationPrependsNewestFirst(t *testing.T) {
	t.Parallel()

	s := newTestStores(t)
	ctx := context.Background()

	s.notifications.Add(ctx, alice, models.NotificationLike, "post1", "u2", AddOptions{})
	s.notifications.Add(ctx, alice, models.NotificationComment, "post1", "u2", AddOptions{})
	s.notifications.Add(ctx, alice, models.NotificationFollow, "", "u2", AddOptions{})

	list := s.notifications.List(ctx, "u2")
	require.Len(t, list, 3)
	assert.Equal(t, models.NotificationFollow, list[0].Type)
	assert.Equal(t, models.NotificationComment, list[1].Type)
	assert.Equal(t, models.NotificationLike, list[2].Type)
}

func TestAddNotificationAlerts(t *testing.T) {
	t.Parallel()

	mr := newTestStores(t)
	alerter := &recordingAlerter{}
	notifications := NewNotificationStore(mr.kv, mr.bus, alerter)
	ctx := context.Background()

	// Acting device is not the target: no alert.
	notifications.Add(ctx, alice, models.NotificationLike, "post1", "u2", AddOptions{CurrentUserID: "u1"})
	assert.Empty(t, alerter.alerts)

	// Acting device is the target.
	notifications.Add(ctx, alice, models.NotificationComment, "post1", "u2", AddOptions{CurrentUserID: "u2"})
	require.Len(t, alerter.alerts, 1)
	assert.Equal(t, models.NotificationComment, alerter.alerts[0].Type)

	// ForceNotify alerts regardless.
	notifications.Add(ctx, alice, models.NotificationFollow, "", "u2", AddOptions{ForceNotify: true})
	assert.Len(t, alerter.alerts, 2)
}

func TestAddNotificationEmitsEvent(t *testing.T) {
	t.Parallel()

	s := newTestStores(t)
	ctx := context.Background()

	var recipients []string
	s.bus.Subscribe(events.NotificationAdded, func(_ context.Context, payload any) {
		recipients = append(recipients, payload.(string))
	})

	s.notifications.Add(ctx, alice, models.NotificationLike, "post1", "u2", AddOptions{})
	s.notifications.Add(ctx, alice, models.NotificationLike, "post1", "u2", AddOptions{}) // suppressed

	assert.Equal(t, []string{"u2"}, recipients)
}

func TestMarkReadAndCountUnread(t *testing.T) {
	t.Parallel()

	s := newTestStores(t)
	ctx := context.Background()

	first, _ := s.notifications.Add(ctx, alice, models.NotificationLike, "post1", "u2", AddOptions{})
	s.notifications.Add(ctx, alice, models.NotificationComment, "post1", "u2", AddOptions{})
	require.Equal(t, 2, s.notifications.CountUnread(ctx, "u2"))

	assert.True(t, s.notifications.MarkRead(ctx, "u2", first.ID))
	assert.Equal(t, 1, s.notifications.CountUnread(ctx, "u2"))

	// Marking again is a no-op, unknown ids report false.
	assert.True(t, s.notifications.MarkRead(ctx, "u2", first.ID))
	assert.False(t, s.notifications.MarkRead(ctx, "u2", "missing"))
}

func TestMarkAllRead(t *testing.T) {
	t.Parallel()

	s := newTestStores(t)
	ctx := context.Background()

	s.notifications.Add(ctx, alice, models.NotificationLike, "post1", "u2", AddOptions{})
	s.notifications.Add(ctx, alice, models.NotificationComment, "post1", "u2", AddOptions{})

	list := s.notifications.MarkAllRead(ctx, "u2")
	require.Len(t, list, 2)
	for _, n := range list {
		assert.True(t, n.Read)
	}
	assert.Equal(t, 0, s.notifications.CountUnread(ctx, "u2"))

	// Idempotent.
	assert.Equal(t, list, s.notifications.MarkAllRead(ctx, "u2"))
}

func TestClearAll(t *testing.T) {
	t.Parallel()

	s := newTestStores(t)
	ctx := context.Background()

	s.notifications.Add(ctx, alice, models.NotificationLike, "post1", "u2", AddOptions{})
	s.notifications.ClearAll(ctx, "u2")

	assert.Empty(t, s.notifications.List(ctx, "u2"))
	assert.Equal(t, 0, s.notifications.CountUnread(ctx, "u2"))
}
