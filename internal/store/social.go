package store

import (
	"context"

	"conecta/internal/kvstore"
	"conecta/internal/middleware"
	"conecta/internal/models"
)

func followersKey(userID string) string { return "followers_" + userID }
func followingKey(userID string) string { return "following_" + userID }
func mutedKey(userID string) string     { return "muted_" + userID }
func clerkUserKey(userID string) string { return "clerk_user_" + userID }

// SocialStore persists the follow graph, mute lists and cached user
// snapshots.
type SocialStore struct {
	kv            kvstore.Store
	notifications *NotificationStore
	locks         *keyedMutex
}

func NewSocialStore(kv kvstore.Store, notifications *NotificationStore) *SocialStore {
	return &SocialStore{kv: kv, notifications: notifications, locks: newKeyedMutex()}
}

// Followers returns the users following userID.
func (s *SocialStore) Followers(ctx context.Context, userID string) []models.UserRef {
	return s.loadUsers(ctx, followersKey(userID))
}

// Following returns the users userID follows.
func (s *SocialStore) Following(ctx context.Context, userID string) []models.UserRef {
	return s.loadUsers(ctx, followingKey(userID))
}

// IsFollowing reports whether followerID follows targetID.
func (s *SocialStore) IsFollowing(ctx context.Context, followerID, targetID string) bool {
	for _, u := range s.Following(ctx, followerID) {
		if u.ID == targetID {
			return true
		}
	}
	return false
}

// Follow records follower -> target on both sides of the graph and notifies
// the target. A repeated follow changes nothing.
func (s *SocialStore) Follow(ctx context.Context, follower, target models.UserRef, currentUserID string) bool {
	if follower.ID == target.ID || target.ID == "" {
		return false
	}

	added := s.addUser(ctx, followersKey(target.ID), follower)
	s.addUser(ctx, followingKey(follower.ID), target)
	if !added {
		return false
	}

	s.notifications.Add(ctx, follower, models.NotificationFollow, "", target.ID,
		AddOptions{CurrentUserID: currentUserID})
	return true
}

// Unfollow removes follower -> target from both sides of the graph.
func (s *SocialStore) Unfollow(ctx context.Context, followerID, targetID string) {
	s.removeUser(ctx, followersKey(targetID), followerID)
	s.removeUser(ctx, followingKey(followerID), targetID)
}

// ToggleMute adds or removes peerID from userID's mute list and reports the
// resulting state. A muted peer's messages arrive without notifications.
func (s *SocialStore) ToggleMute(ctx context.Context, userID, peerID string) bool {
	key := mutedKey(userID)
	unlock := s.locks.Lock(key)
	defer unlock()

	var muted []string
	found, err := kvstore.GetJSON(ctx, s.kv, key, &muted)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "mute list load failed",
			"user_id", userID, "error", err)
		return false
	}
	if !found || muted == nil {
		muted = []string{}
	}

	nowMuted := true
	for i, id := range muted {
		if id == peerID {
			muted = append(muted[:i], muted[i+1:]...)
			nowMuted = false
			break
		}
	}
	if nowMuted {
		muted = append(muted, peerID)
	}

	if err := kvstore.SetJSON(ctx, s.kv, key, muted); err != nil {
		middleware.Logger.ErrorContext(ctx, "mute list write failed",
			"user_id", userID, "error", err)
	}
	return nowMuted
}

// IsMuted reports whether userID has muted peerID.
func (s *SocialStore) IsMuted(ctx context.Context, userID, peerID string) bool {
	var muted []string
	found, err := kvstore.GetJSON(ctx, s.kv, mutedKey(userID), &muted)
	if err != nil || !found {
		return false
	}
	for _, id := range muted {
		if id == peerID {
			return true
		}
	}
	return false
}

// SaveUserSnapshot caches a user's identity record locally.
func (s *SocialStore) SaveUserSnapshot(ctx context.Context, u models.UserRef) {
	if err := kvstore.SetJSON(ctx, s.kv, clerkUserKey(u.ID), u); err != nil {
		middleware.Logger.WarnContext(ctx, "user snapshot write failed",
			"user_id", u.ID, "error", err)
	}
}

// UserSnapshot returns the cached identity record for userID, if present.
func (s *SocialStore) UserSnapshot(ctx context.Context, userID string) (models.UserRef, bool) {
	var u models.UserRef
	found, err := kvstore.GetJSON(ctx, s.kv, clerkUserKey(userID), &u)
	if err != nil || !found {
		return models.UserRef{}, false
	}
	return u, true
}

func (s *SocialStore) loadUsers(ctx context.Context, key string) []models.UserRef {
	var users []models.UserRef
	found, err := kvstore.GetJSON(ctx, s.kv, key, &users)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "user list load failed, returning empty list",
			"key", key, "error", err)
		return []models.UserRef{}
	}
	if !found || users == nil {
		return []models.UserRef{}
	}
	return users
}

func (s *SocialStore) addUser(ctx context.Context, key string, u models.UserRef) bool {
	unlock := s.locks.Lock(key)
	defer unlock()

	users := s.loadUsers(ctx, key)
	for _, existing := range users {
		if existing.ID == u.ID {
			return false
		}
	}
	users = append(users, u)
	if err := kvstore.SetJSON(ctx, s.kv, key, users); err != nil {
		middleware.Logger.ErrorContext(ctx, "user list write failed",
			"key", key, "error", err)
		return false
	}
	return true
}

func (s *SocialStore) removeUser(ctx context.Context, key, userID string) {
	unlock := s.locks.Lock(key)
	defer unlock()

	users := s.loadUsers(ctx, key)
	for i, u := range users {
		if u.ID == userID {
			users = append(users[:i], users[i+1:]...)
			if err := kvstore.SetJSON(ctx, s.kv, key, users); err != nil {
				middleware.Logger.ErrorContext(ctx, "user list write failed",
					"key", key, "error", err)
			}
			return
		}
	}
}
