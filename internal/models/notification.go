package models

import "fmt"

// NotificationType enumerates the actions that can produce a notification.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationFollow  NotificationType = "follow"
	NotificationMessage NotificationType = "message"
	NotificationPost    NotificationType = "post"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationLike, NotificationComment, NotificationFollow,
		NotificationMessage, NotificationPost:
		return true
	}
	return false
}

// Notification is a single entry in a recipient's notification feed, stored
// most-recent-first. Two notifications with the same (type, postId, actor.id)
// never coexist for one recipient.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt int64            `json:"createdAt"` // epoch millis
	PostID    string           `json:"postId,omitempty"`
	Actor     UserRef          `json:"actor"`
}

// NotificationText renders the human-readable message for a notification
// type. The templates are fixed and match the mobile client's copy.
func NotificationText(t NotificationType, actor UserRef) string {
	switch t {
	case NotificationLike:
		return fmt.Sprintf("@%s curtiu seu post", actor.Username)
	case NotificationComment:
		return fmt.Sprintf("@%s comentou em seu post", actor.Username)
	case NotificationFollow:
		return fmt.Sprintf("@%s começou a seguir você", actor.Username)
	case NotificationMessage:
		return fmt.Sprintf("Nova mensagem de @%s", actor.Username)
	case NotificationPost:
		return fmt.Sprintf("@%s criou uma nova publicação", actor.Username)
	}
	return ""
}
