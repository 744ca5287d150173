package services

import (
	"database/sql"
	"errors"
	"log"
	"regexp"
	"strings"
	"time"

	"codearena/pkg/apperr"
	"codearena/pkg/cache"
	"codearena/pkg/models"
	"codearena/pkg/repository"
)

var validDifficulties = map[string]bool{"easy": true, "medium": true, "hard": true}

type ProblemService interface {
	List(difficulty, tag string, includeUnpublished bool, limit, offset int) ([]models.Problem, error)
	Get(id int, includeUnpublished bool) (models.Problem, error)
	Create(req models.CreateProblemRequest) (models.Problem, error)
	Update(id int, req models.CreateProblemRequest) (models.Problem, error)
	AddTestCase(problemID int, req models.CreateTestCaseRequest) (models.TestCase, error)
	TestCases(problemID int) ([]models.TestCase, error)
}

type problemService struct {
	repo  repository.ProblemRepository
	cache *cache.Redis
}

func NewProblemService(repo repository.ProblemRepository, c *cache.Redis) ProblemService {
	return &problemService{repo: repo, cache: c}
}

func (s *problemService) List(difficulty, tag string, includeUnpublished bool, limit, offset int) ([]models.Problem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if difficulty != "" && !validDifficulties[difficulty] {
		return nil, apperr.Validation("difficulty must be easy, medium or hard")
	}
	problems, err := s.repo.List(difficulty, tag, !includeUnpublished, limit, offset)
	if err != nil {
		log.Printf("[PROBLEMS] list failed: %v", err)
		return nil, apperr.Internal()
	}
	return problems, nil
}

func (s *problemService) Get(id int, includeUnpublished bool) (models.Problem, error) {
	var p models.Problem
	key := cache.ProblemKey(id)
	if !s.cache.Get(key, &p) {
		var err error
		p, err = s.repo.GetByID(id)
		if errors.Is(err, sql.ErrNoRows) {
			return models.Problem{}, apperr.NotFound("problem not found")
		}
		if err != nil {
			log.Printf("[PROBLEMS] load %d failed: %v", id, err)
			return models.Problem{}, apperr.Internal()
		}
		samples, err := s.repo.SampleCases(id)
		if err != nil {
			log.Printf("[PROBLEMS] sample cases for %d failed: %v", id, err)
			return models.Problem{}, apperr.Internal()
		}
		p.SampleCases = samples
		s.cache.Set(key, p, 5*time.Minute)
	}

	if !p.IsPublished && !includeUnpublished {
		return models.Problem{}, apperr.NotFound("problem not found")
	}
	return p, nil
}

func (s *problemService) Create(req models.CreateProblemRequest) (models.Problem, error) {
	if err := validateProblem(&req); err != nil {
		return models.Problem{}, err
	}
	p, err := s.repo.Create(req, slugify(req.Title))
	if err != nil {
		log.Printf("[PROBLEMS] create failed: %v", err)
		return models.Problem{}, apperr.Internal()
	}
	return p, nil
}

func (s *problemService) Update(id int, req models.CreateProblemRequest) (models.Problem, error) {
	if err := validateProblem(&req); err != nil {
		return models.Problem{}, err
	}
	p, err := s.repo.Update(id, req)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Problem{}, apperr.NotFound("problem not found")
	}
	if err != nil {
		log.Printf("[PROBLEMS] update %d failed: %v", id, err)
		return models.Problem{}, apperr.Internal()
	}
	s.cache.Del(cache.ProblemKey(id))
	return p, nil
}

func (s *problemService) AddTestCase(problemID int, req models.CreateTestCaseRequest) (models.TestCase, error) {
	if req.ExpectedOutput == "" {
		return models.TestCase{}, apperr.Validation("expected output is required")
	}
	if req.Points <= 0 {
		req.Points = 10
	}
	if _, err := s.repo.GetByID(problemID); errors.Is(err, sql.ErrNoRows) {
		return models.TestCase{}, apperr.NotFound("problem not found")
	} else if err != nil {
		log.Printf("[PROBLEMS] load %d failed: %v", problemID, err)
		return models.TestCase{}, apperr.Internal()
	}
	tc, err := s.repo.AddTestCase(problemID, req)
	if err != nil {
		log.Printf("[PROBLEMS] add test case to %d failed: %v", problemID, err)
		return models.TestCase{}, apperr.Internal()
	}
	s.cache.Del(cache.ProblemKey(problemID))
	return tc, nil
}

func (s *problemService) TestCases(problemID int) ([]models.TestCase, error) {
	cases, err := s.repo.TestCases(problemID)
	if err != nil {
		log.Printf("[PROBLEMS] test cases for %d failed: %v", problemID, err)
		return nil, apperr.Internal()
	}
	return cases, nil
}

func validateProblem(req *models.CreateProblemRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return apperr.Validation("title is required")
	}
	if req.Description == "" {
		return apperr.Validation("description is required")
	}
	if !validDifficulties[req.Difficulty] {
		return apperr.Validation("difficulty must be easy, medium or hard")
	}
	if req.TimeLimitMS <= 0 {
		req.TimeLimitMS = 1000
	}
	if req.MemoryLimitMB <= 0 {
		req.MemoryLimitMB = 256
	}
	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}
