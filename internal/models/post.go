package models

// Post is a feed entry. Likes hold user ids (post-migration; legacy data may
// still carry usernames until the migration pass rewrites them). Comments
// live under their own storage key; the field is populated only when a
// caller assembles the full detail view.
type Post struct {
	ID        string    `json:"id"`
	User      UserRef   `json:"user"`
	Content   string    `json:"content,omitempty"`
	Image     string    `json:"image,omitempty"`
	Likes     []string  `json:"likes"`
	Comments  []Comment `json:"comments,omitempty"`
	CreatedAt int64     `json:"createdAt"` // epoch millis
}

// Comment is a single comment on a post.
type Comment struct {
	ID        string  `json:"id"`
	User      UserRef `json:"user"`
	Text      string  `json:"text"`
	CreatedAt int64   `json:"createdAt"` // epoch millis
}

// LikedBy reports whether the given user id is present in the like list.
func (p Post) LikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}
