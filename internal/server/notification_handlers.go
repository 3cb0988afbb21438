package server

import (
	"github.com/gofiber/fiber/v2"

	"conecta/internal/models"
)

// GetNotifications returns the signed-in user's feed, newest first.
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	return c.JSON(s.notifications.List(c.UserContext(), currentUserID(c)))
}

// GetUnreadCount returns how many notifications are unread.
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"count": s.notifications.CountUnread(c.UserContext(), currentUserID(c)),
	})
}

// MarkNotificationRead flips read on a single notification.
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := requireParam(c, "id")
	if err != nil {
		return err
	}
	if !s.notifications.MarkRead(c.UserContext(), currentUserID(c), id) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("notification", id))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkAllNotificationsRead flips read on the whole feed and returns it; the
// notifications screen calls this on open.
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	return c.JSON(s.notifications.MarkAllRead(c.UserContext(), currentUserID(c)))
}

// ClearNotifications empties the feed.
func (s *Server) ClearNotifications(c *fiber.Ctx) error {
	s.notifications.ClearAll(c.UserContext(), currentUserID(c))
	return c.SendStatus(fiber.StatusNoContent)
}
