package server

import (
	"github.com/gofiber/fiber/v2"

	"conecta/internal/middleware"
	"conecta/internal/models"
)

type sendCodeRequest struct {
	Email string `json:"email"`
}

// SendCode asks the companion backend to email a sign-in code.
func (s *Server) SendCode(c *fiber.Ctx) error {
	var req sendCodeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Email == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("email is required"))
	}

	if err := s.backend.SendCode(c.UserContext(), req.Email); err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "send-code failed", "error", err)
		return models.RespondWithError(c, fiber.StatusBadGateway, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"sent": true})
}

type verifyCodeRequest struct {
	Email string         `json:"email"`
	Code  string         `json:"code"`
	User  models.UserRef `json:"user"`
}

// VerifyCode checks the emailed code with the backend. On success the agent
// caches the user snapshot and issues the session token the UI uses on every
// further request.
func (s *Server) VerifyCode(c *fiber.Ctx) error {
	var req verifyCodeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Email == "" || req.Code == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("email and code are required"))
	}
	if err := validateUserRef(req.User); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}

	result, err := s.backend.VerifyCode(c.UserContext(), req.Email, req.Code)
	if err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "verify-code failed", "error", err)
		return models.RespondWithError(c, fiber.StatusBadGateway, err)
	}
	if !result.Valid {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid verification code"))
	}

	s.social.SaveUserSnapshot(c.UserContext(), req.User)

	token, err := middleware.IssueSessionToken(req.User.ID, s.config.SessionSecret)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"token": token,
		"user":  req.User,
	})
}
