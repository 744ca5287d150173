package handlers

import (
	"github.com/gofiber/fiber/v2"

	"codearena/pkg/apperr"
	"codearena/pkg/middleware"
	"codearena/pkg/models"
	"codearena/pkg/services"
)

type ProblemHandler struct {
	problems services.ProblemService
	judge    services.Judge
}

func NewProblems(problems services.ProblemService, judge services.Judge) *ProblemHandler {
	return &ProblemHandler{problems: problems, judge: judge}
}

func (ph *ProblemHandler) Languages(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"languages": ph.judge.SupportedLanguages()})
}

func (ph *ProblemHandler) List(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	isAdmin := user != nil && user.IsAdmin
	list, err := ph.problems.List(
		c.Query("difficulty"),
		c.Query("tag"),
		isAdmin,
		c.QueryInt("limit", 20),
		c.QueryInt("offset", 0),
	)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"problems": list, "count": len(list)})
}

func (ph *ProblemHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("problem id must be numeric")
	}
	user := middleware.CurrentUser(c)
	isAdmin := user != nil && user.IsAdmin
	problem, err := ph.problems.Get(id, isAdmin)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"problem": problem})
}

func (ph *ProblemHandler) Create(c *fiber.Ctx) error {
	var req models.CreateProblemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	problem, err := ph.problems.Create(req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"problem": problem})
}

func (ph *ProblemHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("problem id must be numeric")
	}
	var req models.CreateProblemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	problem, err := ph.problems.Update(id, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"problem": problem})
}

func (ph *ProblemHandler) AddTestCase(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("problem id must be numeric")
	}
	var req models.CreateTestCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	tc, err := ph.problems.AddTestCase(id, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"test_case": tc})
}

func (ph *ProblemHandler) TestCases(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("problem id must be numeric")
	}
	cases, err := ph.problems.TestCases(id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"test_cases": cases})
}
