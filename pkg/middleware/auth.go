package middleware

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"

	"codearena/pkg/apperr"
	"codearena/pkg/models"
	"codearena/pkg/services"
)

// RequireAuth validates the bearer token and loads the current user into
// c.Locals("user"). The user is re-read from the database so deactivated
// accounts are cut off even while their access token is still valid.
func RequireAuth(auth services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, err := bearerToken(c)
		if err != nil {
			return err
		}
		user, err := auth.VerifyToken(tokenStr)
		if err != nil {
			return err
		}
		c.Locals("user", user)
		return c.Next()
	}
}

// OptionalAuth loads the user when a valid token is present and continues
// anonymously otherwise.
func OptionalAuth(auth services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, err := bearerToken(c)
		if err == nil {
			if user, verr := auth.VerifyToken(tokenStr); verr == nil {
				c.Locals("user", user)
			}
		}
		return c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin {
			return apperr.Forbidden("admin access required")
		}
		return c.Next()
	}
}

// RequireAdminKey guards the bootstrap route that promotes the first admin,
// before any admin account exists.
func RequireAdminKey() fiber.Handler {
	expected := os.Getenv("ADMIN_SECRET_KEY")
	if expected == "" {
		expected = "dev-admin-secret"
	}
	return func(c *fiber.Ctx) error {
		if c.Get("X-Admin-Key") != expected {
			return apperr.Forbidden("invalid admin key")
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil outside RequireAuth.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, ok := c.Locals("user").(models.User)
	if !ok {
		return nil
	}
	return &user
}

func bearerToken(c *fiber.Ctx) (string, error) {
	auth := c.Get("Authorization")
	if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
		return "", apperr.ErrMissingToken
	}
	return strings.TrimSpace(auth[7:]), nil
}
