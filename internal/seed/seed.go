// Package seed provides demo-data seeding utilities for development and testing.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"conecta/internal/models"
	"conecta/internal/store"
)

// Options configuration for the seeder
type Options struct {
	NumUsers                int
	NumPosts                int
	MessagesPerConversation int
	Seed                    int64
}

// Stores bundles the destinations the seeder writes through.
type Stores struct {
	Conversations *store.ConversationStore
	Notifications *store.NotificationStore
	Posts         *store.PostStore
	Social        *store.SocialStore
}

// Run fills the local stores with demo users, posts, follows and
// conversations. All writes go through the store layer so notifications and
// events fire exactly as they would in normal use.
func Run(ctx context.Context, stores Stores, opts Options) error {
	if opts.NumUsers < 2 {
		opts.NumUsers = 8
	}
	if opts.NumPosts <= 0 {
		opts.NumPosts = 20
	}
	if opts.MessagesPerConversation <= 0 {
		opts.MessagesPerConversation = 6
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	gofakeit.Seed(opts.Seed)
	rng := rand.New(rand.NewSource(opts.Seed))

	users := make([]models.UserRef, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		username := strings.ToLower(gofakeit.Username())
		u := models.UserRef{
			ID:          fmt.Sprintf("user_%s", gofakeit.UUID()[:12]),
			Username:    username,
			DisplayName: gofakeit.Name(),
			Avatar:      fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		}
		stores.Social.SaveUserSnapshot(ctx, u)
		users = append(users, u)
	}
	log.Printf("seeded %d users", len(users))

	// Everyone follows a few random others.
	followCount := 3
	if followCount > len(users) {
		followCount = len(users)
	}
	for _, follower := range users {
		for _, j := range rng.Perm(len(users))[:followCount] {
			target := users[j]
			if target.ID == follower.ID {
				continue
			}
			stores.Social.Follow(ctx, follower, target, follower.ID)
		}
	}

	for i := 0; i < opts.NumPosts; i++ {
		author := users[rng.Intn(len(users))]
		post := stores.Posts.Create(ctx, author, gofakeit.Sentence(12), "")

		likeCount := rng.Intn(4)
		if likeCount > len(users) {
			likeCount = len(users)
		}
		for _, j := range rng.Perm(len(users))[:likeCount] {
			stores.Posts.ToggleLike(ctx, post.ID, users[j], users[j].ID)
		}
		if rng.Intn(2) == 0 {
			commenter := users[rng.Intn(len(users))]
			stores.Posts.AddComment(ctx, post.ID, commenter, gofakeit.Sentence(6), commenter.ID)
		}
	}
	log.Printf("seeded %d posts", opts.NumPosts)

	// Pairwise conversations between consecutive users.
	for i := 0; i+1 < len(users); i += 2 {
		a, b := users[i], users[i+1]
		at := time.Now().Add(-time.Duration(opts.MessagesPerConversation) * time.Minute)
		for m := 0; m < opts.MessagesPerConversation; m++ {
			sender, receiver := a, b
			if m%2 == 1 {
				sender, receiver = b, a
			}
			msg := models.Message{
				ID:         models.NewMessageID(at),
				SenderID:   sender.ID,
				ReceiverID: receiver.ID,
				Content:    gofakeit.HipsterSentence(8),
				Timestamp:  at.UTC().Format(time.RFC3339Nano),
			}
			stores.Conversations.AppendMessage(ctx, sender.ID, receiver.ID, msg)
			at = at.Add(time.Minute)
		}
	}
	log.Printf("seeded %d conversations", len(users)/2)

	return ctx.Err()
}
