package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codearena/pkg/apperr"
	"codearena/pkg/models"
)

type fakeXPRepo struct {
	xp           map[int]models.UserXP
	txs          []models.XPTransaction
	achievements []models.Achievement
	earned       map[int][]int
	challenges   map[int]models.DailyChallenge
	completed    map[[2]int]bool
}

func newFakeXPRepo() *fakeXPRepo {
	return &fakeXPRepo{
		xp:         make(map[int]models.UserXP),
		earned:     make(map[int][]int),
		challenges: make(map[int]models.DailyChallenge),
		completed:  make(map[[2]int]bool),
	}
}

func (f *fakeXPRepo) GetUserXP(userID int) (models.UserXP, error) {
	x, ok := f.xp[userID]
	if !ok {
		return models.UserXP{}, sql.ErrNoRows
	}
	return x, nil
}

func (f *fakeXPRepo) InitUserXP(userID int) (models.UserXP, error) {
	if x, ok := f.xp[userID]; ok {
		return x, nil
	}
	x := models.UserXP{UserID: userID, CurrentLevel: 1}
	f.xp[userID] = x
	return x, nil
}

func (f *fakeXPRepo) UpdateXP(userID, currentXP, totalXP int) error {
	x := f.xp[userID]
	x.CurrentXP = currentXP
	x.TotalXP = totalXP
	f.xp[userID] = x
	return nil
}

func (f *fakeXPRepo) UpdateLevel(userID, level int) error {
	x := f.xp[userID]
	x.CurrentLevel = level
	f.xp[userID] = x
	return nil
}

func (f *fakeXPRepo) UpdateStreak(userID, streakDays int, lastActivity time.Time) error {
	x := f.xp[userID]
	x.StreakDays = streakDays
	x.LastActivityDate = lastActivity
	f.xp[userID] = x
	return nil
}

func (f *fakeXPRepo) RecordTransaction(userID, amount int, reason, source string) (models.XPTransaction, error) {
	tx := models.XPTransaction{
		ID: len(f.txs) + 1, UserID: userID, Amount: amount,
		Reason: reason, Source: source, CreatedAt: time.Now(),
	}
	f.txs = append(f.txs, tx)
	return tx, nil
}

func (f *fakeXPRepo) XPHistory(userID, limit, offset int) ([]models.XPTransaction, error) {
	var out []models.XPTransaction
	for _, tx := range f.txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeXPRepo) XPLeaderboard(limit int) ([]models.XPLeaderboardRow, error) {
	return nil, nil
}

func (f *fakeXPRepo) EnsureDailyChallenge(c models.DailyChallenge) (models.DailyChallenge, error) {
	for _, existing := range f.challenges {
		if existing.ChallengeDate.Equal(c.ChallengeDate) {
			return existing, nil
		}
	}
	c.ID = len(f.challenges) + 1
	f.challenges[c.ID] = c
	return c, nil
}

func (f *fakeXPRepo) GetDailyChallenge(id int) (models.DailyChallenge, error) {
	c, ok := f.challenges[id]
	if !ok {
		return models.DailyChallenge{}, sql.ErrNoRows
	}
	return c, nil
}

func (f *fakeXPRepo) HasCompletedChallenge(userID, challengeID int) (bool, error) {
	return f.completed[[2]int{userID, challengeID}], nil
}

func (f *fakeXPRepo) CompleteChallenge(userID, challengeID int) error {
	f.completed[[2]int{userID, challengeID}] = true
	return nil
}

func (f *fakeXPRepo) Achievements() ([]models.Achievement, error) {
	return f.achievements, nil
}

func (f *fakeXPRepo) UserAchievements(userID int) ([]models.UserAchievement, error) {
	var out []models.UserAchievement
	for _, id := range f.earned[userID] {
		for _, a := range f.achievements {
			if a.ID == id {
				out = append(out, models.UserAchievement{Achievement: a})
			}
		}
	}
	return out, nil
}

func (f *fakeXPRepo) AwardAchievement(userID, achievementID int) error {
	f.earned[userID] = append(f.earned[userID], achievementID)
	return nil
}

func (f *fakeXPRepo) CreateStudyGroup(req models.CreateStudyGroupRequest, createdBy int) (models.StudyGroup, error) {
	return models.StudyGroup{ID: 1, Name: req.Name, CreatedBy: createdBy, MaxMembers: req.MaxMembers}, nil
}

func (f *fakeXPRepo) ListStudyGroups(limit, offset int) ([]models.StudyGroup, error) {
	return nil, nil
}

func (f *fakeXPRepo) GetStudyGroup(id int) (models.StudyGroup, error) {
	return models.StudyGroup{}, sql.ErrNoRows
}

func (f *fakeXPRepo) JoinStudyGroup(groupID, userID int, role string) error { return nil }

func (f *fakeXPRepo) StudyGroupMemberCount(groupID int) (int, error) { return 0, nil }

func newTestXPService(repo *fakeXPRepo) *gamificationService {
	return &gamificationService{repo: repo, now: time.Now}
}

func TestXPForLevelCurve(t *testing.T) {
	assert.Equal(t, 100, XPForLevel(1))
	assert.Equal(t, 150, XPForLevel(2))
	assert.Equal(t, 225, XPForLevel(3))
	assert.Equal(t, 337, XPForLevel(4))
	assert.Greater(t, XPForLevel(10), XPForLevel(9))
}

func TestAddXPAccumulates(t *testing.T) {
	repo := newFakeXPRepo()
	svc := newTestXPService(repo)

	result, err := svc.AddXP(1, 40, "test", SourceSubmission)
	require.NoError(t, err)
	assert.Equal(t, 40, result.NewXP)
	assert.Equal(t, 40, result.NewTotalXP)
	assert.False(t, result.LevelUp)
	assert.Equal(t, 1, result.NewLevel)
	assert.Equal(t, "test", result.Tx.Reason)
}

func TestAddXPLevelsUp(t *testing.T) {
	repo := newFakeXPRepo()
	svc := newTestXPService(repo)

	// 120 XP crosses the 100 XP needed for level 1 -> 2.
	result, err := svc.AddXP(1, 120, "test", SourceSubmission)
	require.NoError(t, err)
	assert.True(t, result.LevelUp)
	assert.Equal(t, 2, result.NewLevel)
	assert.Equal(t, 20, result.NewXP)
	assert.Equal(t, 120, result.NewTotalXP)
}

func TestAddXPMultiLevelJump(t *testing.T) {
	repo := newFakeXPRepo()
	svc := newTestXPService(repo)

	// 100 + 150 = 250 spent crossing two levels, 50 left over.
	result, err := svc.AddXP(1, 300, "test", SourceSubmission)
	require.NoError(t, err)
	assert.Equal(t, 3, result.NewLevel)
	assert.Equal(t, 50, result.NewXP)
}

func TestAddXPRejectsNonPositive(t *testing.T) {
	svc := newTestXPService(newFakeXPRepo())
	_, err := svc.AddXP(1, 0, "test", SourceSubmission)
	assert.Error(t, err)
	_, err = svc.AddXP(1, -5, "test", SourceSubmission)
	assert.Error(t, err)
}

func TestUpdateStreak(t *testing.T) {
	repo := newFakeXPRepo()
	svc := newTestXPService(repo)
	day := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day }

	streak, err := svc.UpdateStreak(1)
	require.NoError(t, err)
	assert.Equal(t, 1, streak)

	// Same day again: unchanged.
	streak, err = svc.UpdateStreak(1)
	require.NoError(t, err)
	assert.Equal(t, 1, streak)

	// Next day extends.
	day = day.Add(24 * time.Hour)
	streak, err = svc.UpdateStreak(1)
	require.NoError(t, err)
	assert.Equal(t, 2, streak)

	// A two-day gap resets.
	day = day.Add(72 * time.Hour)
	streak, err = svc.UpdateStreak(1)
	require.NoError(t, err)
	assert.Equal(t, 1, streak)
}

func TestCheckAchievementsAwardsOnce(t *testing.T) {
	repo := newFakeXPRepo()
	repo.achievements = []models.Achievement{
		{ID: 1, Code: "first_blood", Title: "First Blood", TriggerType: models.TriggerProblemsSolved, Threshold: 1, XPReward: 50},
		{ID: 2, Code: "problem_10", Title: "Ten Down", TriggerType: models.TriggerProblemsSolved, Threshold: 10, XPReward: 100},
		{ID: 3, Code: "streak_7", Title: "Week Warrior", TriggerType: models.TriggerStreak, Threshold: 7, XPReward: 150},
	}
	svc := newTestXPService(repo)

	awarded, err := svc.CheckAchievements(1, models.TriggerProblemsSolved, 1)
	require.NoError(t, err)
	require.Len(t, awarded, 1)
	assert.Equal(t, "first_blood", awarded[0].Code)

	// Reward XP was granted.
	xp, _ := repo.GetUserXP(1)
	assert.Equal(t, 50, xp.TotalXP)

	// Re-checking the same trigger awards nothing new.
	awarded, err = svc.CheckAchievements(1, models.TriggerProblemsSolved, 5)
	require.NoError(t, err)
	assert.Empty(t, awarded)

	// Crossing the next threshold awards the next one only.
	awarded, err = svc.CheckAchievements(1, models.TriggerProblemsSolved, 10)
	require.NoError(t, err)
	require.Len(t, awarded, 1)
	assert.Equal(t, "problem_10", awarded[0].Code)
}

func TestDailyChallengeIsStableWithinADay(t *testing.T) {
	repo := newFakeXPRepo()
	svc := newTestXPService(repo)
	day := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day }

	first, err := svc.DailyChallenge()
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	// Later the same day every caller sees the same challenge.
	day = day.Add(10 * time.Hour)
	second, err := svc.DailyChallenge()
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// A new day mints a new one.
	day = day.Add(24 * time.Hour)
	third, err := svc.DailyChallenge()
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestCompleteDailyChallengeAwardsStreakBonus(t *testing.T) {
	repo := newFakeXPRepo()
	svc := newTestXPService(repo)
	day := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day }

	challenge, err := svc.DailyChallenge()
	require.NoError(t, err)

	repo.xp[1] = models.UserXP{UserID: 1, CurrentLevel: 1, StreakDays: 5}

	result, err := svc.CompleteDailyChallenge(1, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, challenge.XPReward+10, result.XPEarned)
	assert.True(t, result.BonusEarned)
	assert.Equal(t, 10, result.BonusAmount)

	xp, _ := repo.GetUserXP(1)
	assert.Equal(t, challenge.XPReward+10, xp.TotalXP)
}

func TestCompleteDailyChallengeBonusIsCapped(t *testing.T) {
	repo := newFakeXPRepo()
	svc := newTestXPService(repo)
	day := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day }

	challenge, err := svc.DailyChallenge()
	require.NoError(t, err)

	repo.xp[1] = models.UserXP{UserID: 1, CurrentLevel: 1, StreakDays: 100}

	result, err := svc.CompleteDailyChallenge(1, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, result.BonusAmount)
}

func TestCompleteDailyChallengeOnlyOnce(t *testing.T) {
	repo := newFakeXPRepo()
	svc := newTestXPService(repo)
	day := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day }

	challenge, err := svc.DailyChallenge()
	require.NoError(t, err)

	_, err = svc.CompleteDailyChallenge(1, challenge.ID)
	require.NoError(t, err)

	_, err = svc.CompleteDailyChallenge(1, challenge.ID)
	assert.ErrorIs(t, err, apperr.ErrChallengeDone)

	// Another user can still complete it.
	_, err = svc.CompleteDailyChallenge(2, challenge.ID)
	assert.NoError(t, err)
}

func TestCompleteExpiredDailyChallengeRejected(t *testing.T) {
	repo := newFakeXPRepo()
	svc := newTestXPService(repo)
	day := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day }

	challenge, err := svc.DailyChallenge()
	require.NoError(t, err)

	day = day.Add(48 * time.Hour)
	_, err = svc.CompleteDailyChallenge(1, challenge.ID)
	assert.Error(t, err)
}
