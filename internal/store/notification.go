package store

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"conecta/internal/events"
	"conecta/internal/kvstore"
	"conecta/internal/middleware"
	"conecta/internal/models"
)

const notificationsKeyPrefix = "@notifications:"

func notificationsKey(userID string) string {
	return notificationsKeyPrefix + userID
}

// Alerter receives the local alert side effect when the acting device is the
// notification's target.
type Alerter interface {
	Alert(ctx context.Context, n models.Notification)
}

// LogAlerter is the default Alerter; the WebSocket stream carries the
// notification to the UI, so locally a log line is enough.
type LogAlerter struct{}

func (LogAlerter) Alert(ctx context.Context, n models.Notification) {
	middleware.Logger.InfoContext(ctx, "local alert",
		"notification_id", n.ID, "type", string(n.Type), "message", n.Message)
}

// AddOptions carries the optional parameters of NotificationStore.Add.
type AddOptions struct {
	// CurrentUserID is the user signed in on the acting device. When it
	// equals the target, the Alerter fires.
	CurrentUserID string
	// ForceNotify fires the Alerter regardless of who the target is.
	ForceNotify bool
}

// NotificationStore persists per-recipient notification feeds, newest first.
type NotificationStore struct {
	kv      kvstore.Store
	bus     *events.Bus
	alerter Alerter
	locks   *keyedMutex
}

func NewNotificationStore(kv kvstore.Store, bus *events.Bus, alerter Alerter) *NotificationStore {
	if alerter == nil {
		alerter = LogAlerter{}
	}
	return &NotificationStore{kv: kv, bus: bus, alerter: alerter, locks: newKeyedMutex()}
}

// Add records a notification for targetUserID. It silently skips when the
// target is absent, when the actor is the target, or when an entry with the
// same (type, postId, actor.id) already exists for the recipient. Returns
// the stored notification and whether anything was stored.
func (s *NotificationStore) Add(ctx context.Context, actor models.UserRef, typ models.NotificationType, postID, targetUserID string, opts AddOptions) (*models.Notification, bool) {
	if targetUserID == "" || actor.ID == targetUserID {
		return nil, false
	}
	if !typ.Valid() {
		middleware.Logger.WarnContext(ctx, "unknown notification type, skipping",
			"type", string(typ))
		return nil, false
	}

	key := notificationsKey(targetUserID)
	unlock := s.locks.Lock(key)
	defer unlock()

	list := s.load(ctx, targetUserID)
	for _, n := range list {
		if n.Type == typ && n.PostID == postID && n.Actor.ID == actor.ID {
			return nil, false
		}
	}

	n := models.Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		Message:   models.NotificationText(typ, actor),
		Read:      false,
		CreatedAt: time.Now().UnixMilli(),
		PostID:    postID,
		Actor:     actor,
	}

	list = append([]models.Notification{n}, list...)
	if err := kvstore.SetJSON(ctx, s.kv, key, list); err != nil {
		middleware.Logger.ErrorContext(ctx, "notification write failed, not recorded",
			"target", targetUserID, "type", string(typ), "error", err)
		return nil, false
	}

	s.bus.Emit(ctx, events.NotificationAdded, targetUserID)

	if opts.ForceNotify || opts.CurrentUserID == targetUserID {
		s.alerter.Alert(ctx, n)
	}
	return &n, true
}

// List returns the recipient's notifications, most recent first.
func (s *NotificationStore) List(ctx context.Context, userID string) []models.Notification {
	list := s.load(ctx, userID)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt > list[j].CreatedAt
	})
	return list
}

// MarkRead flips read on a single notification. Reports whether the id was
// found.
func (s *NotificationStore) MarkRead(ctx context.Context, userID, id string) bool {
	key := notificationsKey(userID)
	unlock := s.locks.Lock(key)
	defer unlock()

	list := s.load(ctx, userID)
	for i := range list {
		if list[i].ID != id {
			continue
		}
		if list[i].Read {
			return true
		}
		list[i].Read = true
		if err := kvstore.SetJSON(ctx, s.kv, key, list); err != nil {
			middleware.Logger.ErrorContext(ctx, "notification write failed, read state lost",
				"target", userID, "error", err)
		}
		return true
	}
	return false
}

// MarkAllRead flips read on every notification and returns the updated list.
// The notifications screen calls this when it is opened.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) []models.Notification {
	key := notificationsKey(userID)
	unlock := s.locks.Lock(key)
	defer unlock()

	list := s.load(ctx, userID)
	changed := false
	for i := range list {
		if !list[i].Read {
			list[i].Read = true
			changed = true
		}
	}
	if changed {
		if err := kvstore.SetJSON(ctx, s.kv, key, list); err != nil {
			middleware.Logger.ErrorContext(ctx, "notification write failed, read state lost",
				"target", userID, "error", err)
		}
	}
	return list
}

// ClearAll empties the recipient's feed.
func (s *NotificationStore) ClearAll(ctx context.Context, userID string) {
	key := notificationsKey(userID)
	unlock := s.locks.Lock(key)
	defer unlock()

	if err := s.kv.Remove(ctx, key); err != nil {
		middleware.Logger.ErrorContext(ctx, "notification clear failed",
			"target", userID, "error", err)
	}
}

// CountUnread counts notifications with read == false.
func (s *NotificationStore) CountUnread(ctx context.Context, userID string) int {
	count := 0
	for _, n := range s.load(ctx, userID) {
		if !n.Read {
			count++
		}
	}
	return count
}

func (s *NotificationStore) load(ctx context.Context, userID string) []models.Notification {
	var list []models.Notification
	found, err := kvstore.GetJSON(ctx, s.kv, notificationsKey(userID), &list)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "notification load failed, returning empty list",
			"target", userID, "error", err)
		return []models.Notification{}
	}
	if !found || list == nil {
		return []models.Notification{}
	}
	return list
}
