package handlers

import (
	"github.com/gofiber/fiber/v2"

	"codearena/pkg/apperr"
	"codearena/pkg/middleware"
	"codearena/pkg/models"
	"codearena/pkg/services"
)

type GamificationHandler struct {
	xp services.GamificationService
}

func NewGamification(xp services.GamificationService) *GamificationHandler {
	return &GamificationHandler{xp: xp}
}

func (gh *GamificationHandler) MyXP(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	xp, err := gh.xp.UserXP(user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"xp":            xp,
		"next_level_xp": services.XPForLevel(xp.CurrentLevel),
	})
}

func (gh *GamificationHandler) History(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	txs, err := gh.xp.XPHistory(user.ID, c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"transactions": txs, "count": len(txs)})
}

func (gh *GamificationHandler) Leaderboard(c *fiber.Ctx) error {
	board, err := gh.xp.XPLeaderboard(c.QueryInt("limit", 25))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"leaderboard": board})
}

func (gh *GamificationHandler) DailyChallenge(c *fiber.Ctx) error {
	challenge, err := gh.xp.DailyChallenge()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"challenge": challenge})
}

func (gh *GamificationHandler) CompleteDailyChallenge(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("challenge id must be numeric")
	}
	user := middleware.CurrentUser(c)
	result, err := gh.xp.CompleteDailyChallenge(user.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (gh *GamificationHandler) Achievements(c *fiber.Ctx) error {
	list, err := gh.xp.Achievements()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"achievements": list})
}

func (gh *GamificationHandler) MyAchievements(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	list, err := gh.xp.UserAchievements(user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"achievements": list, "count": len(list)})
}

func (gh *GamificationHandler) CreateStudyGroup(c *fiber.Ctx) error {
	var req models.CreateStudyGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	user := middleware.CurrentUser(c)
	group, err := gh.xp.CreateStudyGroup(req, user.ID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"group": group})
}

func (gh *GamificationHandler) ListStudyGroups(c *fiber.Ctx) error {
	groups, err := gh.xp.ListStudyGroups(c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"groups": groups, "count": len(groups)})
}

func (gh *GamificationHandler) GetStudyGroup(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("group id must be numeric")
	}
	group, err := gh.xp.GetStudyGroup(id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"group": group})
}

func (gh *GamificationHandler) JoinStudyGroup(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("group id must be numeric")
	}
	user := middleware.CurrentUser(c)
	if err := gh.xp.JoinStudyGroup(id, user.ID); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true})
}
