package handlers

import (
	"github.com/gofiber/fiber/v2"

	"codearena/pkg/apperr"
	"codearena/pkg/middleware"
	"codearena/pkg/models"
	"codearena/pkg/services"
)

type SubmissionHandler struct {
	subs services.SubmissionService
}

func NewSubmissions(subs services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{subs: subs}
}

func (sh *SubmissionHandler) Submit(c *fiber.Ctx) error {
	problemID, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("problem id must be numeric")
	}
	var req models.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	user := middleware.CurrentUser(c)
	sub, err := sh.subs.Submit(user.ID, problemID, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"submission": sub})
}

func (sh *SubmissionHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("submission id must be numeric")
	}
	user := middleware.CurrentUser(c)
	sub, err := sh.subs.Get(id, user.ID, user.IsAdmin)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"submission": sub})
}

func (sh *SubmissionHandler) Mine(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	subs, err := sh.subs.List(models.SubmissionFilter{
		UserID:    user.ID,
		ProblemID: c.QueryInt("problem_id", 0),
		ContestID: c.QueryInt("contest_id", 0),
		Status:    c.Query("status"),
		Language:  c.Query("language"),
		Limit:     c.QueryInt("limit", 20),
		Offset:    c.QueryInt("offset", 0),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"submissions": subs, "count": len(subs)})
}

func (sh *SubmissionHandler) ForProblem(c *fiber.Ctx) error {
	problemID, err := c.ParamsInt("id")
	if err != nil {
		return apperr.Validation("problem id must be numeric")
	}
	subs, err := sh.subs.List(models.SubmissionFilter{
		ProblemID: problemID,
		Status:    c.Query("status"),
		Limit:     c.QueryInt("limit", 20),
		Offset:    c.QueryInt("offset", 0),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"submissions": subs, "count": len(subs)})
}
