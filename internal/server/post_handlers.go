package server

import (
	"github.com/gofiber/fiber/v2"

	"conecta/internal/backend"
	"conecta/internal/middleware"
	"conecta/internal/models"
)

// GetPosts returns the local feed, newest first.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	return c.JSON(s.posts.Load(c.UserContext()))
}

type createPostRequest struct {
	Content string         `json:"content"`
	Image   string         `json:"image"`
	Author  models.UserRef `json:"author"`
}

// CreatePost publishes a post locally and mirrors it to the companion
// backend best-effort.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Content == "" && req.Image == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("post content or image is required"))
	}
	if err := validateUserRef(req.Author); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}
	if req.Author.ID != currentUserID(c) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("author must be the signed-in user"))
	}

	post := s.posts.Create(c.UserContext(), req.Author, req.Content, req.Image)

	// The local feed is the source of truth; a backend outage must not
	// block publishing.
	if _, err := s.backend.CreatePost(c.UserContext(), backend.RemotePost{
		ID:        post.ID,
		UserID:    post.User.ID,
		Username:  post.User.Username,
		Content:   post.Content,
		Image:     post.Image,
		CreatedAt: post.CreatedAt,
	}); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "post not mirrored to backend",
			"post_id", post.ID, "error", err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetRemotePosts fetches the backend's feed.
func (s *Server) GetRemotePosts(c *fiber.Ctx) error {
	posts, err := s.backend.ListPosts(c.UserContext())
	if err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "remote feed fetch failed", "error", err)
		return models.RespondWithError(c, fiber.StatusBadGateway, err)
	}
	return c.JSON(posts)
}

// DeletePost removes a post; only its owner may.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := requireParam(c, "id")
	if err != nil {
		return err
	}
	if !s.posts.Delete(c.UserContext(), id, currentUserID(c)) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("post", id))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type toggleLikeRequest struct {
	User models.UserRef `json:"user"`
}

// ToggleLike adds or removes the signed-in user's like on a post.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := requireParam(c, "id")
	if err != nil {
		return err
	}

	var req toggleLikeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	selfID := currentUserID(c)
	if req.User.ID == "" {
		req.User.ID = selfID
	}
	if req.User.ID != selfID {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("liker must be the signed-in user"))
	}

	post := s.posts.ToggleLike(c.UserContext(), id, req.User, selfID)
	if post == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("post", id))
	}
	return c.JSON(post)
}

// GetComments returns a post's comments, oldest first.
func (s *Server) GetComments(c *fiber.Ctx) error {
	id, err := requireParam(c, "id")
	if err != nil {
		return err
	}
	return c.JSON(s.posts.Comments(c.UserContext(), id))
}

type createCommentRequest struct {
	Text   string         `json:"text"`
	Author models.UserRef `json:"author"`
}

// CreateComment appends a comment to a post.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, err := requireParam(c, "id")
	if err != nil {
		return err
	}

	var req createCommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Text == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("comment text is required"))
	}
	if err := validateUserRef(req.Author); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}
	selfID := currentUserID(c)
	if req.Author.ID != selfID {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("author must be the signed-in user"))
	}

	comment := s.posts.AddComment(c.UserContext(), id, req.Author, req.Text, selfID)
	return c.Status(fiber.StatusCreated).JSON(comment)
}
