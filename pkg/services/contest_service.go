package services

import (
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"codearena/pkg/apperr"
	"codearena/pkg/broker"
	"codearena/pkg/cache"
	"codearena/pkg/models"
	"codearena/pkg/repository"
)

const leaderboardTTL = 30 * time.Second

type ContestService interface {
	List(limit, offset int) ([]models.Contest, error)
	Get(id int) (models.Contest, error)
	Create(req models.CreateContestRequest, createdBy int) (models.Contest, error)
	Update(id int, req models.CreateContestRequest) (models.Contest, error)
	AddProblem(contestID, problemID, points, ordinal int) error
	RemoveProblem(contestID, problemID int) error
	Problems(contestID, userID int, isAdmin bool) ([]models.Problem, error)
	Register(contestID, userID int) error
	Unregister(contestID, userID int) error
	Participants(contestID int) ([]models.User, error)
	Leaderboard(contestID int) ([]models.LeaderboardRow, error)
}

type contestService struct {
	repo   repository.ContestRepository
	cache  *cache.Redis
	broker *broker.Broker
}

func NewContestService(repo repository.ContestRepository, c *cache.Redis, b *broker.Broker) ContestService {
	return &contestService{repo: repo, cache: c, broker: b}
}

func (s *contestService) List(limit, offset int) ([]models.Contest, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	contests, err := s.repo.List(limit, offset)
	if err != nil {
		log.Printf("[CONTESTS] list failed: %v", err)
		return nil, apperr.Internal()
	}
	return contests, nil
}

func (s *contestService) Get(id int) (models.Contest, error) {
	contest, err := s.repo.GetByID(id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Contest{}, apperr.NotFound("contest not found")
	}
	if err != nil {
		log.Printf("[CONTESTS] load %d failed: %v", id, err)
		return models.Contest{}, apperr.Internal()
	}
	return contest, nil
}

func (s *contestService) Create(req models.CreateContestRequest, createdBy int) (models.Contest, error) {
	if err := validateContest(req); err != nil {
		return models.Contest{}, err
	}
	contest, err := s.repo.Create(req, createdBy)
	if err != nil {
		log.Printf("[CONTESTS] create failed: %v", err)
		return models.Contest{}, apperr.Internal()
	}
	return contest, nil
}

func (s *contestService) Update(id int, req models.CreateContestRequest) (models.Contest, error) {
	if err := validateContest(req); err != nil {
		return models.Contest{}, err
	}
	contest, err := s.repo.Update(id, req)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Contest{}, apperr.NotFound("contest not found")
	}
	if err != nil {
		log.Printf("[CONTESTS] update %d failed: %v", id, err)
		return models.Contest{}, apperr.Internal()
	}
	return contest, nil
}

func (s *contestService) AddProblem(contestID, problemID, points, ordinal int) error {
	if points <= 0 {
		points = 100
	}
	if _, err := s.Get(contestID); err != nil {
		return err
	}
	if err := s.repo.AddProblem(contestID, problemID, points, ordinal); err != nil {
		log.Printf("[CONTESTS] add problem %d to %d failed: %v", problemID, contestID, err)
		return apperr.Internal()
	}
	return nil
}

func (s *contestService) RemoveProblem(contestID, problemID int) error {
	if err := s.repo.RemoveProblem(contestID, problemID); err != nil {
		log.Printf("[CONTESTS] remove problem %d from %d failed: %v", problemID, contestID, err)
		return apperr.Internal()
	}
	return nil
}

// Problems hides the problem set until the contest starts. Private contests
// additionally require registration. Admins bypass both checks.
func (s *contestService) Problems(contestID, userID int, isAdmin bool) ([]models.Problem, error) {
	contest, err := s.Get(contestID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && time.Now().Before(contest.StartTime) {
		return nil, apperr.ErrContestNotStarted
	}
	if !isAdmin && !contest.IsPublic {
		registered, err := s.repo.IsRegistered(contestID, userID)
		if err != nil {
			log.Printf("[CONTESTS] registration lookup failed: %v", err)
			return nil, apperr.Internal()
		}
		if !registered {
			return nil, apperr.ErrNotRegistered
		}
	}
	problems, err := s.repo.Problems(contestID)
	if err != nil {
		log.Printf("[CONTESTS] problems for %d failed: %v", contestID, err)
		return nil, apperr.Internal()
	}
	return problems, nil
}

func (s *contestService) Register(contestID, userID int) error {
	contest, err := s.Get(contestID)
	if err != nil {
		return err
	}
	if time.Now().After(contest.EndTime) {
		return apperr.ErrContestEnded
	}
	if err := s.repo.Register(contestID, userID); err != nil {
		log.Printf("[CONTESTS] register user %d to %d failed: %v", userID, contestID, err)
		return apperr.Internal()
	}
	if s.broker != nil {
		s.broker.Broadcast("contest.registration", "contests", map[string]int{
			"contest_id": contestID,
			"user_id":    userID,
		})
	}
	return nil
}

func (s *contestService) Unregister(contestID, userID int) error {
	contest, err := s.Get(contestID)
	if err != nil {
		return err
	}
	if time.Now().After(contest.StartTime) {
		return apperr.Forbidden("cannot unregister after the contest has started")
	}
	if err := s.repo.Unregister(contestID, userID); err != nil {
		log.Printf("[CONTESTS] unregister user %d from %d failed: %v", userID, contestID, err)
		return apperr.Internal()
	}
	return nil
}

func (s *contestService) Participants(contestID int) ([]models.User, error) {
	users, err := s.repo.Participants(contestID)
	if err != nil {
		log.Printf("[CONTESTS] participants for %d failed: %v", contestID, err)
		return nil, apperr.Internal()
	}
	return users, nil
}

// Leaderboard is cached briefly; accepted contest submissions invalidate it.
func (s *contestService) Leaderboard(contestID int) ([]models.LeaderboardRow, error) {
	key := cache.ContestLeaderboardKey(contestID)
	var board []models.LeaderboardRow
	if s.cache.Get(key, &board) {
		return board, nil
	}

	if _, err := s.Get(contestID); err != nil {
		return nil, err
	}
	board, err := s.repo.Leaderboard(contestID)
	if err != nil {
		log.Printf("[CONTESTS] leaderboard for %d failed: %v", contestID, err)
		return nil, apperr.Internal()
	}
	s.cache.Set(key, board, leaderboardTTL)
	return board, nil
}

func validateContest(req models.CreateContestRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return apperr.Validation("title is required")
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return apperr.Validation("start and end times are required")
	}
	if !req.EndTime.After(req.StartTime) {
		return apperr.Validation("end time must be after start time")
	}
	return nil
}
