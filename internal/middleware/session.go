package middleware

import (
	"context"
	"strings"

	"conecta/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// SessionRequired returns middleware that validates the device session token
// the UI attaches after the identity-provider sign-in completes. The token is
// an HS256 JWT whose subject is the signed-in user's id; handlers read it
// from c.Locals("userID").
func SessionRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)

		// WebSocket upgrades cannot carry headers from the browser client,
		// so the token may arrive as a query parameter there.
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		userID, ok := parseSessionToken(tokenString, secret)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired session token"))
		}

		c.Locals("userID", userID)
		ctx := context.WithValue(c.UserContext(), UserIDKey, userID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// OptionalSession extracts the user id from the Authorization header if
// present but does not enforce it.
func OptionalSession(c *fiber.Ctx, secret string) (string, bool) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		return "", false
	}
	return parseSessionToken(tokenString, secret)
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func parseSessionToken(tokenString, secret string) (string, bool) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}

	if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != "conecta-agent" {
		return "", false
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", false
	}
	return sub, true
}

// IssueSessionToken signs a session token for the given user id. The agent
// issues these after the UI completes the identity-provider handshake.
func IssueSessionToken(userID, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "conecta-agent",
		"sub": userID,
	})
	return token.SignedString([]byte(secret))
}
