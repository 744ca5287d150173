package services

import (
	"log"
	"strings"
	"time"

	"codearena/pkg/apperr"
	"codearena/pkg/cache"
	"codearena/pkg/models"
	"codearena/pkg/repository"
)

type UserService interface {
	Search(query string, limit int) ([]models.User, error)
	List(limit, offset int) ([]models.User, error)
	GlobalLeaderboard(limit int) ([]models.User, error)
	SetAdmin(userID int, isAdmin bool) error
	Deactivate(userID int) error
	Stats() (repository.PlatformStats, error)
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Redis
}

func NewUserService(repo repository.UserRepository, c *cache.Redis) UserService {
	return &userService{repo: repo, cache: c}
}

func (s *userService) Search(query string, limit int) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, apperr.Validation("search query must be at least 2 characters")
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	users, err := s.repo.Search(query, limit)
	if err != nil {
		log.Printf("[USERS] search failed: %v", err)
		return nil, apperr.Internal()
	}
	return users, nil
}

func (s *userService) List(limit, offset int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	users, err := s.repo.List(limit, offset)
	if err != nil {
		log.Printf("[USERS] list failed: %v", err)
		return nil, apperr.Internal()
	}
	return users, nil
}

func (s *userService) GlobalLeaderboard(limit int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	key := cache.GlobalLeaderboardKey()
	var users []models.User
	if s.cache.Get(key, &users) && len(users) >= limit {
		return users[:limit], nil
	}
	users, err := s.repo.GlobalLeaderboard(limit)
	if err != nil {
		log.Printf("[USERS] leaderboard failed: %v", err)
		return nil, apperr.Internal()
	}
	s.cache.Set(key, users, time.Minute)
	return users, nil
}

func (s *userService) SetAdmin(userID int, isAdmin bool) error {
	if err := s.repo.SetAdmin(userID, isAdmin); err != nil {
		log.Printf("[USERS] set admin for %d failed: %v", userID, err)
		return apperr.Internal()
	}
	return nil
}

func (s *userService) Deactivate(userID int) error {
	if err := s.repo.Deactivate(userID); err != nil {
		log.Printf("[USERS] deactivate %d failed: %v", userID, err)
		return apperr.Internal()
	}
	s.cache.Del(cache.GlobalLeaderboardKey())
	return nil
}

func (s *userService) Stats() (repository.PlatformStats, error) {
	stats, err := s.repo.Stats()
	if err != nil {
		log.Printf("[USERS] stats failed: %v", err)
		return repository.PlatformStats{}, apperr.Internal()
	}
	return stats, nil
}
