package server

import (
	"strings"

	"conecta/internal/models"

	"github.com/gofiber/fiber/v2"
)

// currentUserID returns the authenticated user id placed in locals by the
// session middleware.
func currentUserID(c *fiber.Ctx) string {
	if uid, ok := c.Locals("userID").(string); ok {
		return uid
	}
	return ""
}

// requireParam reads a non-empty route parameter or responds 400.
func requireParam(c *fiber.Ctx, name string) (string, error) {
	value := strings.TrimSpace(c.Params(name))
	if value == "" {
		return "", models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(name+" is required"))
	}
	return value, nil
}

// parseBody binds the JSON request body or responds 400.
func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	return nil
}

// validateUserRef checks the minimal identity fields of an embedded user.
func validateUserRef(u models.UserRef) error {
	if u.ID == "" {
		return models.NewValidationError("user id is required")
	}
	if u.Username == "" {
		return models.NewValidationError("username is required")
	}
	return nil
}
