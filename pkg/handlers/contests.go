package handlers

import (
	"github.com/gofiber/fiber/v2"

	"codearena/pkg/apperr"
	"codearena/pkg/middleware"
	"codearena/pkg/models"
	"codearena/pkg/services"
)

type ContestHandler struct {
	contests services.ContestService
}

func NewContests(contests services.ContestService) *ContestHandler {
	return &ContestHandler{contests: contests}
}

func (ch *ContestHandler) List(c *fiber.Ctx) error {
	list, err := ch.contests.List(c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"contests": list, "count": len(list)})
}

func (ch *ContestHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("contest id must be numeric")
	}
	contest, err := ch.contests.Get(id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"contest": contest})
}

func (ch *ContestHandler) Create(c *fiber.Ctx) error {
	var req models.CreateContestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	user := middleware.CurrentUser(c)
	contest, err := ch.contests.Create(req, user.ID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"contest": contest})
}

func (ch *ContestHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("contest id must be numeric")
	}
	var req models.CreateContestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	contest, err := ch.contests.Update(id, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"contest": contest})
}

func (ch *ContestHandler) AddProblem(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("contest id must be numeric")
	}
	var req struct {
		ProblemID int `json:"problem_id"`
		Points    int `json:"points"`
		Ordinal   int `json:"ordinal"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	if req.ProblemID <= 0 {
		return apperr.Validation("problem_id is required")
	}
	if err := ch.contests.AddProblem(id, req.ProblemID, req.Points, req.Ordinal); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true})
}

func (ch *ContestHandler) RemoveProblem(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("contest id must be numeric")
	}
	problemID, err := c.ParamsInt("problemId")
	if err != nil {
		return apperr.Validation("problem id must be numeric")
	}
	if err := ch.contests.RemoveProblem(id, problemID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (ch *ContestHandler) Problems(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("contest id must be numeric")
	}
	user := middleware.CurrentUser(c)
	problems, err := ch.contests.Problems(id, user.ID, user.IsAdmin)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"problems": problems, "count": len(problems)})
}

func (ch *ContestHandler) Register(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("contest id must be numeric")
	}
	user := middleware.CurrentUser(c)
	if err := ch.contests.Register(id, user.ID); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true})
}

func (ch *ContestHandler) Unregister(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("contest id must be numeric")
	}
	user := middleware.CurrentUser(c)
	if err := ch.contests.Unregister(id, user.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (ch *ContestHandler) Participants(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("contest id must be numeric")
	}
	users, err := ch.contests.Participants(id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"participants": users, "count": len(users)})
}

func (ch *ContestHandler) Leaderboard(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("contest id must be numeric")
	}
	board, err := ch.contests.Leaderboard(id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"leaderboard": board})
}
