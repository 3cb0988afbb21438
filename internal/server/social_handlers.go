package server

import (
	"github.com/gofiber/fiber/v2"

	"conecta/internal/models"
)

// GetFollowers lists a user's followers.
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	id, err := requireParam(c, "id")
	if err != nil {
		return err
	}
	return c.JSON(s.social.Followers(c.UserContext(), id))
}

// GetFollowing lists who a user follows.
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	id, err := requireParam(c, "id")
	if err != nil {
		return err
	}
	return c.JSON(s.social.Following(c.UserContext(), id))
}

type followRequest struct {
	Follower models.UserRef `json:"follower"`
	Target   models.UserRef `json:"target"`
}

// FollowUser records the signed-in user following the target.
func (s *Server) FollowUser(c *fiber.Ctx) error {
	targetID, err := requireParam(c, "id")
	if err != nil {
		return err
	}

	var req followRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	selfID := currentUserID(c)
	if err := validateUserRef(req.Follower); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}
	if req.Follower.ID != selfID {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("follower must be the signed-in user"))
	}
	if req.Target.ID == "" {
		req.Target.ID = targetID
	}
	if req.Target.ID != targetID {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("target does not match route"))
	}

	followed := s.social.Follow(c.UserContext(), req.Follower, req.Target, selfID)
	return c.JSON(fiber.Map{"following": true, "changed": followed})
}

// UnfollowUser removes the signed-in user's follow of the target.
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	targetID, err := requireParam(c, "id")
	if err != nil {
		return err
	}
	s.social.Unfollow(c.UserContext(), currentUserID(c), targetID)
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleMute flips whether the signed-in user has muted the target.
func (s *Server) ToggleMute(c *fiber.Ctx) error {
	targetID, err := requireParam(c, "id")
	if err != nil {
		return err
	}
	muted := s.social.ToggleMute(c.UserContext(), currentUserID(c), targetID)
	return c.JSON(fiber.Map{"muted": muted})
}

// GetUserSnapshot returns the locally cached identity record for a user.
func (s *Server) GetUserSnapshot(c *fiber.Ctx) error {
	id, err := requireParam(c, "id")
	if err != nil {
		return err
	}
	u, found := s.social.UserSnapshot(c.UserContext(), id)
	if !found {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("user", id))
	}
	return c.JSON(u)
}

type updateProfileRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

// UpdateMyProfile refreshes the signed-in user's display fields everywhere
// they are embedded: posts, comments, notification actors and follow lists.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Username == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("username is required"))
	}

	updated := models.UserRef{
		ID:          currentUserID(c),
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Avatar:      req.Avatar,
	}
	s.posts.UpdateAuthorProfile(c.UserContext(), updated)

	return c.JSON(updated)
}
