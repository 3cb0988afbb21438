// Command main runs the demo-data seeder for the Conecta agent.
package main

import (
	"context"
	"flag"
	"log"

	"conecta/internal/config"
	"conecta/internal/events"
	"conecta/internal/kvstore"
	"conecta/internal/seed"
	"conecta/internal/store"
)

func main() {
	// Parse command line flags
	numUsers := flag.Int("users", 8, "Number of users to create")
	numPosts := flag.Int("posts", 20, "Number of posts to create")
	messages := flag.Int("messages", 6, "Messages per seeded conversation")
	randSeed := flag.Int64("seed", 0, "Random seed (0 = time-based)")
	flag.Parse()

	log.Println("Demo Data Seeder")
	log.Println("================")
	log.Printf("Target: %d users, %d posts\n", *numUsers, *numPosts)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to storage
	kv, err := kvstore.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to storage: %v", err)
	}
	defer kv.Close()

	bus := events.NewBus()
	notifications := store.NewNotificationStore(kv, bus, nil)
	social := store.NewSocialStore(kv, notifications)
	stores := seed.Stores{
		Conversations: store.NewConversationStore(kv, bus),
		Notifications: notifications,
		Posts:         store.NewPostStore(kv, bus, notifications, social),
		Social:        social,
	}

	if err := seed.Run(context.Background(), stores, seed.Options{
		NumUsers:                *numUsers,
		NumPosts:                *numPosts,
		MessagesPerConversation: *messages,
		Seed:                    *randSeed,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}
