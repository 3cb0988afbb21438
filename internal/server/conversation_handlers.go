package server

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"conecta/internal/models"
	"conecta/internal/store"
)

// GetConversations returns the chats-list view for the signed-in user.
func (s *Server) GetConversations(c *fiber.Ctx) error {
	selfID := currentUserID(c)
	return c.JSON(s.conversations.Summaries(c.UserContext(), selfID))
}

// GetMessages returns the full conversation with a peer, oldest first.
func (s *Server) GetMessages(c *fiber.Ctx) error {
	peerID, err := requireParam(c, "peerId")
	if err != nil {
		return err
	}
	selfID := currentUserID(c)
	return c.JSON(s.conversations.LoadMessages(c.UserContext(), selfID, peerID))
}

type sendMessageRequest struct {
	Content  string         `json:"content"`
	ImageURI string         `json:"imageUri"`
	Sender   models.UserRef `json:"sender"`
}

// SendMessage appends a message to the conversation with a peer. The peer is
// notified unless they muted the sender.
func (s *Server) SendMessage(c *fiber.Ctx) error {
	peerID, err := requireParam(c, "peerId")
	if err != nil {
		return err
	}
	selfID := currentUserID(c)

	var req sendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Content == "" && req.ImageURI == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("message content or image is required"))
	}
	if req.Sender.ID == "" {
		req.Sender.ID = selfID
	}
	if req.Sender.ID != selfID {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("sender must be the signed-in user"))
	}

	now := time.Now()
	msg := models.Message{
		ID:         models.NewMessageID(now),
		SenderID:   selfID,
		ReceiverID: peerID,
		Content:    req.Content,
		ImageURI:   req.ImageURI,
		Timestamp:  now.UTC().Format(time.RFC3339Nano),
	}

	msgs := s.conversations.AppendMessage(c.UserContext(), selfID, peerID, msg)

	// Muted senders still deliver the message, just without a notification.
	if !s.social.IsMuted(c.UserContext(), peerID, selfID) {
		s.notifications.Add(c.UserContext(), req.Sender, models.NotificationMessage, "", peerID,
			store.AddOptions{CurrentUserID: selfID})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  msg,
		"messages": msgs,
	})
}

// MarkConversationRead flips read on every message addressed to the
// signed-in user and returns the updated conversation.
func (s *Server) MarkConversationRead(c *fiber.Ctx) error {
	peerID, err := requireParam(c, "peerId")
	if err != nil {
		return err
	}
	selfID := currentUserID(c)
	return c.JSON(s.conversations.MarkAllReceivedAsRead(c.UserContext(), selfID, peerID))
}

// DeleteConversation erases the conversation with a peer.
func (s *Server) DeleteConversation(c *fiber.Ctx) error {
	peerID, err := requireParam(c, "peerId")
	if err != nil {
		return err
	}
	selfID := currentUserID(c)
	s.conversations.DeleteConversation(c.UserContext(), selfID, peerID)
	return c.SendStatus(fiber.StatusNoContent)
}
