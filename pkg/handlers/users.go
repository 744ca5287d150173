package handlers

import (
	"github.com/gofiber/fiber/v2"

	"codearena/pkg/apperr"
	"codearena/pkg/services"
)

type UserHandler struct {
	users services.UserService
}

func NewUsers(users services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (uh *UserHandler) Search(c *fiber.Ctx) error {
	results, err := uh.users.Search(c.Query("q"), c.QueryInt("limit", 10))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": results, "count": len(results)})
}

func (uh *UserHandler) Leaderboard(c *fiber.Ctx) error {
	users, err := uh.users.GlobalLeaderboard(c.QueryInt("limit", 25))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"leaderboard": users})
}

// Admin endpoints.

func (uh *UserHandler) List(c *fiber.Ctx) error {
	users, err := uh.users.List(c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": users, "count": len(users)})
}

func (uh *UserHandler) SetAdmin(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("user id must be numeric")
	}
	var req struct {
		IsAdmin bool `json:"is_admin"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	if err := uh.users.SetAdmin(id, req.IsAdmin); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (uh *UserHandler) Deactivate(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("user id must be numeric")
	}
	if err := uh.users.Deactivate(id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (uh *UserHandler) Stats(c *fiber.Ctx) error {
	stats, err := uh.users.Stats()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"stats": stats})
}
