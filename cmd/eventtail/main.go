// Package main provides a debug tool that tails the agent's event stream.
package main

import (
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"conecta/internal/middleware"
)

func main() {
	host := flag.String("host", "localhost:8642", "Agent host")
	userID := flag.String("user", "debug-user", "User id to connect as")
	secret := flag.String("secret", "your-secret-key-change-in-production", "Session secret")
	flag.Parse()

	token, err := middleware.IssueSessionToken(*userID, *secret)
	if err != nil {
		log.Fatalf("Failed to sign session token: %v", err)
	}

	u := url.URL{
		Scheme:   "ws",
		Host:     *host,
		Path:     "/api/ws/events",
		RawQuery: "token=" + url.QueryEscape(token),
	}
	log.Printf("Connecting to %s as %s", u.String(), *userID)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	log.Println("Connected; waiting for events (Ctrl+C to quit)")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Printf("Read error: %v", err)
				return
			}
			log.Printf("event: %s", message)
		}
	}()

	select {
	case <-interrupt:
		log.Println("Interrupted, closing connection")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	case <-done:
	}
}
