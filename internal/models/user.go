// Package models contains data structures for the application's domain models.
package models

// UserRef is a snapshot of a user's identity as embedded in posts, comments,
// messages and notifications. The id is stable and used as the join key
// everywhere; display fields may be refreshed from the identity provider at
// any time.
type UserRef struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}
