package services

import (
	"database/sql"
	"errors"
	"log"
	"math"
	"math/rand"
	"time"

	"codearena/pkg/apperr"
	"codearena/pkg/models"
	"codearena/pkg/repository"
)

// XP sources.
const (
	SourceSubmission     = "submission"
	SourceAchievement    = "achievement"
	SourceStreak         = "streak"
	SourceDailyChallenge = "daily_challenge"
)

// maxStreakBonus caps the extra XP a long streak adds to a daily challenge.
const maxStreakBonus = 50

var dailyChallengePool = []models.DailyChallenge{
	{Title: "Solve 3 Problems", Description: "Complete any 3 coding problems today", XPReward: 50, Difficulty: "easy"},
	{Title: "Perfect Score", Description: "Get a perfect score on any problem", XPReward: 100, Difficulty: "medium"},
	{Title: "Streak Master", Description: "Maintain your activity streak", XPReward: 75, Difficulty: "easy"},
	{Title: "Language Explorer", Description: "Solve problems in 2 different programming languages", XPReward: 125, Difficulty: "hard"},
	{Title: "Speed Demon", Description: "Solve a problem in under 10 minutes", XPReward: 80, Difficulty: "medium"},
}

// XP awarded per difficulty on first accepted solution.
var difficultyXP = map[string]int{
	"easy":   50,
	"medium": 100,
	"hard":   200,
}

type GamificationService interface {
	InitXP(userID int) error
	UserXP(userID int) (models.UserXP, error)
	AddXP(userID, amount int, reason, source string) (models.XPResult, error)
	AwardForSolve(userID int, difficulty string) (models.XPResult, error)
	UpdateStreak(userID int) (int, error)
	DailyChallenge() (models.DailyChallenge, error)
	CompleteDailyChallenge(userID, challengeID int) (models.DailyChallengeResult, error)
	XPHistory(userID, limit, offset int) ([]models.XPTransaction, error)
	XPLeaderboard(limit int) ([]models.XPLeaderboardRow, error)
	Achievements() ([]models.Achievement, error)
	UserAchievements(userID int) ([]models.UserAchievement, error)
	CheckAchievements(userID int, triggerType string, value int) ([]models.Achievement, error)
	CreateStudyGroup(req models.CreateStudyGroupRequest, createdBy int) (models.StudyGroup, error)
	ListStudyGroups(limit, offset int) ([]models.StudyGroup, error)
	GetStudyGroup(id int) (models.StudyGroup, error)
	JoinStudyGroup(groupID, userID int) error
}

type gamificationService struct {
	repo repository.GamificationRepository
	now  func() time.Time
}

func NewGamificationService(repo repository.GamificationRepository) GamificationService {
	return &gamificationService{repo: repo, now: time.Now}
}

// XPForLevel returns the XP needed to advance from the given level to the
// next one. The curve grows by half each level: 100, 150, 225, 337, ...
func XPForLevel(level int) int {
	return int(math.Floor(100 * math.Pow(1.5, float64(level-1))))
}

func (s *gamificationService) InitXP(userID int) error {
	if _, err := s.repo.InitUserXP(userID); err != nil {
		log.Printf("[XP] init failed for user %d: %v", userID, err)
		return apperr.Internal()
	}
	return nil
}

func (s *gamificationService) UserXP(userID int) (models.UserXP, error) {
	xp, err := s.repo.GetUserXP(userID)
	if errors.Is(err, sql.ErrNoRows) {
		xp, err = s.repo.InitUserXP(userID)
	}
	if err != nil {
		log.Printf("[XP] load failed for user %d: %v", userID, err)
		return models.UserXP{}, apperr.Internal()
	}
	return xp, nil
}

func (s *gamificationService) AddXP(userID, amount int, reason, source string) (models.XPResult, error) {
	if amount <= 0 {
		return models.XPResult{}, apperr.Validation("xp amount must be positive")
	}

	xp, err := s.UserXP(userID)
	if err != nil {
		return models.XPResult{}, err
	}

	current := xp.CurrentXP + amount
	total := xp.TotalXP + amount
	level := xp.CurrentLevel
	for current >= XPForLevel(level) {
		current -= XPForLevel(level)
		level++
	}

	if err := s.repo.UpdateXP(userID, current, total); err != nil {
		log.Printf("[XP] update failed for user %d: %v", userID, err)
		return models.XPResult{}, apperr.Internal()
	}

	result := models.XPResult{
		NewXP:      current,
		NewTotalXP: total,
		XPEarned:   amount,
		NewLevel:   level,
	}

	if level > xp.CurrentLevel {
		if err := s.repo.UpdateLevel(userID, level); err != nil {
			log.Printf("[XP] level update failed for user %d: %v", userID, err)
			return models.XPResult{}, apperr.Internal()
		}
		result.LevelUp = true
		if _, err := s.CheckAchievements(userID, models.TriggerLevel, level); err != nil {
			log.Printf("[XP] level achievement check failed for user %d: %v", userID, err)
		}
	}

	tx, err := s.repo.RecordTransaction(userID, amount, reason, source)
	if err != nil {
		log.Printf("[XP] transaction record failed for user %d: %v", userID, err)
		return models.XPResult{}, apperr.Internal()
	}
	result.Tx = tx

	return result, nil
}

func (s *gamificationService) AwardForSolve(userID int, difficulty string) (models.XPResult, error) {
	amount, ok := difficultyXP[difficulty]
	if !ok {
		amount = difficultyXP["medium"]
	}
	return s.AddXP(userID, amount, "problem solved ("+difficulty+")", SourceSubmission)
}

// UpdateStreak bumps the daily streak. Activity on consecutive days extends
// it, a gap resets it to one, repeated activity on the same day is a no-op.
func (s *gamificationService) UpdateStreak(userID int) (int, error) {
	xp, err := s.UserXP(userID)
	if err != nil {
		return 0, err
	}

	today := s.now().Truncate(24 * time.Hour)
	last := xp.LastActivityDate.Truncate(24 * time.Hour)

	streak := xp.StreakDays
	switch {
	case last.Equal(today):
		return streak, nil
	case last.Equal(today.AddDate(0, 0, -1)):
		streak++
	default:
		streak = 1
	}

	if err := s.repo.UpdateStreak(userID, streak, today); err != nil {
		log.Printf("[XP] streak update failed for user %d: %v", userID, err)
		return 0, apperr.Internal()
	}

	if _, err := s.CheckAchievements(userID, models.TriggerStreak, streak); err != nil {
		log.Printf("[XP] streak achievement check failed for user %d: %v", userID, err)
	}
	return streak, nil
}

// DailyChallenge returns today's challenge, minting one from the pool on
// first request of the day.
func (s *gamificationService) DailyChallenge() (models.DailyChallenge, error) {
	pick := dailyChallengePool[rand.Intn(len(dailyChallengePool))]
	pick.ChallengeDate = s.now().UTC().Truncate(24 * time.Hour)
	c, err := s.repo.EnsureDailyChallenge(pick)
	if err != nil {
		log.Printf("[XP] daily challenge load failed: %v", err)
		return models.DailyChallenge{}, apperr.Internal()
	}
	return c, nil
}

// CompleteDailyChallenge awards the challenge XP plus a streak bonus of two
// XP per streak day, capped at maxStreakBonus. A challenge completes at most
// once per user.
func (s *gamificationService) CompleteDailyChallenge(userID, challengeID int) (models.DailyChallengeResult, error) {
	c, err := s.repo.GetDailyChallenge(challengeID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DailyChallengeResult{}, apperr.NotFound("daily challenge not found")
	}
	if err != nil {
		log.Printf("[XP] challenge %d load failed: %v", challengeID, err)
		return models.DailyChallengeResult{}, apperr.Internal()
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	if !c.ChallengeDate.Equal(today) {
		return models.DailyChallengeResult{}, apperr.Validation("challenge is not active today")
	}

	done, err := s.repo.HasCompletedChallenge(userID, challengeID)
	if err != nil {
		log.Printf("[XP] challenge completion lookup failed for user %d: %v", userID, err)
		return models.DailyChallengeResult{}, apperr.Internal()
	}
	if done {
		return models.DailyChallengeResult{}, apperr.ErrChallengeDone
	}

	xp, err := s.UserXP(userID)
	if err != nil {
		return models.DailyChallengeResult{}, err
	}
	bonus := xp.StreakDays * 2
	if bonus > maxStreakBonus {
		bonus = maxStreakBonus
	}

	if err := s.repo.CompleteChallenge(userID, challengeID); err != nil {
		log.Printf("[XP] challenge completion failed for user %d: %v", userID, err)
		return models.DailyChallengeResult{}, apperr.Internal()
	}
	if _, err := s.AddXP(userID, c.XPReward+bonus, "daily challenge: "+c.Title, SourceDailyChallenge); err != nil {
		return models.DailyChallengeResult{}, err
	}

	return models.DailyChallengeResult{
		XPEarned:    c.XPReward + bonus,
		BonusEarned: bonus > 0,
		BonusAmount: bonus,
	}, nil
}

func (s *gamificationService) XPHistory(userID, limit, offset int) ([]models.XPTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	txs, err := s.repo.XPHistory(userID, limit, offset)
	if err != nil {
		log.Printf("[XP] history failed for user %d: %v", userID, err)
		return nil, apperr.Internal()
	}
	return txs, nil
}

func (s *gamificationService) XPLeaderboard(limit int) ([]models.XPLeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	board, err := s.repo.XPLeaderboard(limit)
	if err != nil {
		log.Printf("[XP] leaderboard failed: %v", err)
		return nil, apperr.Internal()
	}
	return board, nil
}

func (s *gamificationService) Achievements() ([]models.Achievement, error) {
	list, err := s.repo.Achievements()
	if err != nil {
		log.Printf("[XP] achievement list failed: %v", err)
		return nil, apperr.Internal()
	}
	return list, nil
}

func (s *gamificationService) UserAchievements(userID int) ([]models.UserAchievement, error) {
	list, err := s.repo.UserAchievements(userID)
	if err != nil {
		log.Printf("[XP] user achievements failed for user %d: %v", userID, err)
		return nil, apperr.Internal()
	}
	return list, nil
}

// CheckAchievements awards every unearned achievement of the given trigger
// whose threshold the value meets, granting its XP reward. Returns the newly
// earned achievements.
func (s *gamificationService) CheckAchievements(userID int, triggerType string, value int) ([]models.Achievement, error) {
	all, err := s.repo.Achievements()
	if err != nil {
		return nil, err
	}
	earned, err := s.repo.UserAchievements(userID)
	if err != nil {
		return nil, err
	}
	have := make(map[int]bool, len(earned))
	for _, ua := range earned {
		have[ua.ID] = true
	}

	var awarded []models.Achievement
	for _, a := range all {
		if a.TriggerType != triggerType || value < a.Threshold || have[a.ID] {
			continue
		}
		if err := s.repo.AwardAchievement(userID, a.ID); err != nil {
			return awarded, err
		}
		awarded = append(awarded, a)
		if a.XPReward > 0 {
			if _, err := s.AddXP(userID, a.XPReward, "achievement: "+a.Title, SourceAchievement); err != nil {
				log.Printf("[XP] reward grant failed for user %d achievement %s: %v", userID, a.Code, err)
			}
		}
	}
	return awarded, nil
}

func (s *gamificationService) CreateStudyGroup(req models.CreateStudyGroupRequest, createdBy int) (models.StudyGroup, error) {
	if req.Name == "" {
		return models.StudyGroup{}, apperr.Validation("group name is required")
	}
	if req.MaxMembers <= 0 {
		req.MaxMembers = 20
	}
	g, err := s.repo.CreateStudyGroup(req, createdBy)
	if err != nil {
		log.Printf("[XP] study group create failed: %v", err)
		return models.StudyGroup{}, apperr.Internal()
	}
	if err := s.repo.JoinStudyGroup(g.ID, createdBy, "owner"); err != nil {
		log.Printf("[XP] study group owner join failed: %v", err)
	}
	g.Members = 1
	return g, nil
}

func (s *gamificationService) ListStudyGroups(limit, offset int) ([]models.StudyGroup, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	groups, err := s.repo.ListStudyGroups(limit, offset)
	if err != nil {
		log.Printf("[XP] study group list failed: %v", err)
		return nil, apperr.Internal()
	}
	return groups, nil
}

func (s *gamificationService) GetStudyGroup(id int) (models.StudyGroup, error) {
	g, err := s.repo.GetStudyGroup(id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StudyGroup{}, apperr.NotFound("study group not found")
	}
	if err != nil {
		log.Printf("[XP] study group load failed: %v", err)
		return models.StudyGroup{}, apperr.Internal()
	}
	return g, nil
}

func (s *gamificationService) JoinStudyGroup(groupID, userID int) error {
	g, err := s.GetStudyGroup(groupID)
	if err != nil {
		return err
	}
	if g.Members >= g.MaxMembers {
		return apperr.Forbidden("study group is full")
	}
	if err := s.repo.JoinStudyGroup(groupID, userID, "member"); err != nil {
		log.Printf("[XP] study group join failed: %v", err)
		return apperr.Internal()
	}
	return nil
}
