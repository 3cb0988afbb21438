package store

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"conecta/internal/events"
	"conecta/internal/kvstore"
	"conecta/internal/middleware"
	"conecta/internal/models"
)

const (
	postsKey          = "posts"
	commentsKeyPrefix = "@comments:"
)

func commentsKey(postID string) string {
	return commentsKeyPrefix + postID
}

// FollowerSource lists the followers of a user; new-post notifications fan
// out to them.
type FollowerSource interface {
	Followers(ctx context.Context, userID string) []models.UserRef
}

// PostStore persists the feed and per-post comment lists.
type PostStore struct {
	kv            kvstore.Store
	bus           *events.Bus
	notifications *NotificationStore
	followers     FollowerSource
	locks         *keyedMutex
}

func NewPostStore(kv kvstore.Store, bus *events.Bus, notifications *NotificationStore, followers FollowerSource) *PostStore {
	return &PostStore{kv: kv, bus: bus, notifications: notifications, followers: followers, locks: newKeyedMutex()}
}

// Load returns all stored posts, newest first. Every load runs the like-list
// migration so legacy records are fixed the first time they are seen; the
// migrated form is persisted only when it differs from the stored one.
func (s *PostStore) Load(ctx context.Context) []models.Post {
	unlock := s.locks.Lock(postsKey)
	defer unlock()
	return s.loadMigrated(ctx)
}

func (s *PostStore) loadMigrated(ctx context.Context) []models.Post {
	var posts []models.Post
	found, err := kvstore.GetJSON(ctx, s.kv, postsKey, &posts)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "post load failed, returning empty feed",
			"error", err)
		return []models.Post{}
	}
	if !found || posts == nil {
		return []models.Post{}
	}

	before, err := json.Marshal(posts)
	if err != nil {
		return posts
	}

	migrateLikes(posts)

	after, err := json.Marshal(posts)
	if err != nil {
		return posts
	}
	if !bytes.Equal(before, after) {
		if err := s.kv.Set(ctx, postsKey, string(after)); err != nil {
			middleware.Logger.ErrorContext(ctx, "post write failed, like migration not persisted",
				"error", err)
		}
	}
	return posts
}

// migrateLikes upgrades legacy like lists that stored usernames instead of
// user ids. A list whose first entry contains "@" is treated as legacy; in
// it, entries equal to the post author's username become the author's id.
// Other entries are left alone. Running this on migrated data changes
// nothing.
func migrateLikes(posts []models.Post) {
	for p := range posts {
		likes := posts[p].Likes
		if len(likes) == 0 || !strings.Contains(likes[0], "@") {
			continue
		}
		for i, entry := range likes {
			if entry == posts[p].User.Username {
				likes[i] = posts[p].User.ID
			}
		}
	}
}

// Create prepends a new post to the feed and notifies the author's
// followers.
func (s *PostStore) Create(ctx context.Context, author models.UserRef, content, image string) *models.Post {
	post := models.Post{
		ID:        uuid.NewString(),
		User:      author,
		Content:   content,
		Image:     image,
		Likes:     []string{},
		CreatedAt: time.Now().UnixMilli(),
	}

	unlock := s.locks.Lock(postsKey)
	posts := s.loadMigrated(ctx)
	posts = append([]models.Post{post}, posts...)
	err := kvstore.SetJSON(ctx, s.kv, postsKey, posts)
	unlock()

	if err != nil {
		middleware.Logger.ErrorContext(ctx, "post write failed, post not persisted",
			"post_id", post.ID, "error", err)
		return &post
	}

	for _, follower := range s.followers.Followers(ctx, author.ID) {
		s.notifications.Add(ctx, author, models.NotificationPost, post.ID, follower.ID, AddOptions{})
	}

	s.bus.Emit(ctx, events.PostUpdated, post.ID)
	return &post
}

// Delete removes a post wholesale, owner only. The post's comment list goes
// with it. Reports whether a post was removed.
func (s *PostStore) Delete(ctx context.Context, postID, requesterID string) bool {
	unlock := s.locks.Lock(postsKey)
	defer unlock()

	posts := s.loadMigrated(ctx)
	for i, p := range posts {
		if p.ID != postID {
			continue
		}
		if p.User.ID != requesterID {
			return false
		}

		posts = append(posts[:i], posts[i+1:]...)
		if err := kvstore.SetJSON(ctx, s.kv, postsKey, posts); err != nil {
			middleware.Logger.ErrorContext(ctx, "post write failed, delete not persisted",
				"post_id", postID, "error", err)
			return false
		}
		if err := s.kv.Remove(ctx, commentsKey(postID)); err != nil {
			middleware.Logger.WarnContext(ctx, "comment list cleanup failed",
				"post_id", postID, "error", err)
		}

		s.bus.Emit(ctx, events.PostUpdated, postID)
		return true
	}
	return false
}

// ToggleLike adds liker to the post's like list, or removes them if already
// present. A newly added like notifies the post's author.
func (s *PostStore) ToggleLike(ctx context.Context, postID string, liker models.UserRef, currentUserID string) *models.Post {
	unlock := s.locks.Lock(postsKey)

	posts := s.loadMigrated(ctx)
	var updated *models.Post
	liked := false
	for i := range posts {
		if posts[i].ID != postID {
			continue
		}

		if idx := likeIndex(posts[i].Likes, liker.ID); idx >= 0 {
			posts[i].Likes = append(posts[i].Likes[:idx], posts[i].Likes[idx+1:]...)
		} else {
			posts[i].Likes = append(posts[i].Likes, liker.ID)
			liked = true
		}
		updated = &posts[i]
		break
	}
	if updated == nil {
		unlock()
		return nil
	}

	if err := kvstore.SetJSON(ctx, s.kv, postsKey, posts); err != nil {
		middleware.Logger.ErrorContext(ctx, "post write failed, like not persisted",
			"post_id", postID, "error", err)
	}
	result := *updated
	unlock()

	if liked {
		s.notifications.Add(ctx, liker, models.NotificationLike, postID, result.User.ID,
			AddOptions{CurrentUserID: currentUserID})
	}

	s.bus.Emit(ctx, events.PostUpdated, postID)
	return &result
}

func likeIndex(likes []string, userID string) int {
	for i, l := range likes {
		if l == userID {
			return i
		}
	}
	return -1
}

// Comments returns the comment list for a post, oldest first.
func (s *PostStore) Comments(ctx context.Context, postID string) []models.Comment {
	var comments []models.Comment
	found, err := kvstore.GetJSON(ctx, s.kv, commentsKey(postID), &comments)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "comment load failed, returning empty list",
			"post_id", postID, "error", err)
		return []models.Comment{}
	}
	if !found || comments == nil {
		return []models.Comment{}
	}
	return comments
}

// AddComment appends a comment to the post's list and notifies the author.
func (s *PostStore) AddComment(ctx context.Context, postID string, author models.UserRef, text string, currentUserID string) *models.Comment {
	comment := models.Comment{
		ID:        uuid.NewString(),
		User:      author,
		Text:      text,
		CreatedAt: time.Now().UnixMilli(),
	}

	key := commentsKey(postID)
	unlock := s.locks.Lock(key)
	comments := s.Comments(ctx, postID)
	comments = append(comments, comment)
	err := kvstore.SetJSON(ctx, s.kv, key, comments)
	unlock()

	if err != nil {
		middleware.Logger.ErrorContext(ctx, "comment write failed, comment not persisted",
			"post_id", postID, "error", err)
		return &comment
	}

	if owner, ok := s.find(ctx, postID); ok {
		s.notifications.Add(ctx, author, models.NotificationComment, postID, owner.User.ID,
			AddOptions{CurrentUserID: currentUserID})
	}

	s.bus.Emit(ctx, events.PostUpdated, postID)
	return &comment
}

func (s *PostStore) find(ctx context.Context, postID string) (*models.Post, bool) {
	for _, p := range s.Load(ctx) {
		if p.ID == postID {
			return &p, true
		}
	}
	return nil, false
}

// UpdateAuthorProfile rewrites the display fields of every stored snapshot
// of the given user: post authors, comment authors, notification actors,
// follower and following lists, and the cached user record. Like lists hold
// plain ids and are untouched.
func (s *PostStore) UpdateAuthorProfile(ctx context.Context, updated models.UserRef) {
	s.rewritePosts(ctx, updated)
	s.rewriteLists(ctx, commentsKeyPrefix, func(raw string) (string, bool) {
		return rewriteCommentAuthors(raw, updated)
	})
	s.rewriteLists(ctx, notificationsKeyPrefix, func(raw string) (string, bool) {
		return rewriteNotificationActors(raw, updated)
	})
	s.rewriteLists(ctx, "followers_", func(raw string) (string, bool) {
		return rewriteUserRefs(raw, updated)
	})
	s.rewriteLists(ctx, "following_", func(raw string) (string, bool) {
		return rewriteUserRefs(raw, updated)
	})

	if err := kvstore.SetJSON(ctx, s.kv, "clerk_user_"+updated.ID, updated); err != nil {
		middleware.Logger.WarnContext(ctx, "user snapshot write failed",
			"user_id", updated.ID, "error", err)
	}

	s.bus.Emit(ctx, events.PostUpdated, "")
}

func (s *PostStore) rewritePosts(ctx context.Context, updated models.UserRef) {
	unlock := s.locks.Lock(postsKey)
	defer unlock()

	posts := s.loadMigrated(ctx)
	changed := false
	for i := range posts {
		if posts[i].User.ID == updated.ID && posts[i].User != updated {
			posts[i].User = updated
			changed = true
		}
	}
	if !changed {
		return
	}
	if err := kvstore.SetJSON(ctx, s.kv, postsKey, posts); err != nil {
		middleware.Logger.ErrorContext(ctx, "post write failed, profile update not persisted",
			"user_id", updated.ID, "error", err)
	}
}

// rewriteLists applies fn to the raw JSON value of every key under prefix,
// writing back only entries fn actually changed.
func (s *PostStore) rewriteLists(ctx context.Context, prefix string, fn func(raw string) (string, bool)) {
	keys, err := s.kv.ListKeys(ctx, prefix)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "key listing failed during profile update",
			"prefix", prefix, "error", err)
		return
	}

	for _, key := range keys {
		raw, found, err := s.kv.Get(ctx, key)
		if err != nil || !found {
			continue
		}
		rewritten, changed := fn(raw)
		if !changed {
			continue
		}
		if err := s.kv.Set(ctx, key, rewritten); err != nil {
			middleware.Logger.WarnContext(ctx, "profile update write failed",
				"key", key, "error", err)
		}
	}
}

func rewriteCommentAuthors(raw string, updated models.UserRef) (string, bool) {
	var comments []models.Comment
	if err := json.Unmarshal([]byte(raw), &comments); err != nil {
		return raw, false
	}
	changed := false
	for i := range comments {
		if comments[i].User.ID == updated.ID && comments[i].User != updated {
			comments[i].User = updated
			changed = true
		}
	}
	if !changed {
		return raw, false
	}
	out, err := json.Marshal(comments)
	if err != nil {
		return raw, false
	}
	return string(out), true
}

func rewriteNotificationActors(raw string, updated models.UserRef) (string, bool) {
	var list []models.Notification
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return raw, false
	}
	changed := false
	for i := range list {
		if list[i].Actor.ID == updated.ID && list[i].Actor != updated {
			list[i].Actor = updated
			changed = true
		}
	}
	if !changed {
		return raw, false
	}
	out, err := json.Marshal(list)
	if err != nil {
		return raw, false
	}
	return string(out), true
}

func rewriteUserRefs(raw string, updated models.UserRef) (string, bool) {
	var list []models.UserRef
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return raw, false
	}
	changed := false
	for i := range list {
		if list[i].ID == updated.ID && list[i] != updated {
			list[i] = updated
			changed = true
		}
	}
	if !changed {
		return raw, false
	}
	out, err := json.Marshal(list)
	if err != nil {
		return raw, false
	}
	return string(out), true
}
