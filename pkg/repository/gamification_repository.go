package repository

import (
	"database/sql"
	"time"

	"codearena/pkg/models"
)

type GamificationRepository interface {
	GetUserXP(userID int) (models.UserXP, error)
	InitUserXP(userID int) (models.UserXP, error)
	UpdateXP(userID, currentXP, totalXP int) error
	UpdateLevel(userID, level int) error
	UpdateStreak(userID, streakDays int, lastActivity time.Time) error
	RecordTransaction(userID, amount int, reason, source string) (models.XPTransaction, error)
	XPHistory(userID, limit, offset int) ([]models.XPTransaction, error)
	XPLeaderboard(limit int) ([]models.XPLeaderboardRow, error)

	EnsureDailyChallenge(c models.DailyChallenge) (models.DailyChallenge, error)
	GetDailyChallenge(id int) (models.DailyChallenge, error)
	HasCompletedChallenge(userID, challengeID int) (bool, error)
	CompleteChallenge(userID, challengeID int) error

	Achievements() ([]models.Achievement, error)
	UserAchievements(userID int) ([]models.UserAchievement, error)
	AwardAchievement(userID, achievementID int) error

	CreateStudyGroup(req models.CreateStudyGroupRequest, createdBy int) (models.StudyGroup, error)
	ListStudyGroups(limit, offset int) ([]models.StudyGroup, error)
	GetStudyGroup(id int) (models.StudyGroup, error)
	JoinStudyGroup(groupID, userID int, role string) error
	StudyGroupMemberCount(groupID int) (int, error)
}

type gamificationRepository struct {
	db *sql.DB
}

func NewGamificationRepository(db *sql.DB) GamificationRepository {
	return &gamificationRepository{db: db}
}

func (r *gamificationRepository) GetUserXP(userID int) (models.UserXP, error) {
	var xp models.UserXP
	err := r.db.QueryRow(`
		SELECT user_id, current_xp, total_xp, current_level, streak_days, last_activity_date
		FROM user_xp WHERE user_id = $1`, userID,
	).Scan(&xp.UserID, &xp.CurrentXP, &xp.TotalXP, &xp.CurrentLevel, &xp.StreakDays, &xp.LastActivityDate)
	return xp, err
}

func (r *gamificationRepository) InitUserXP(userID int) (models.UserXP, error) {
	var xp models.UserXP
	err := r.db.QueryRow(`
		INSERT INTO user_xp (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING user_id, current_xp, total_xp, current_level, streak_days, last_activity_date`,
		userID,
	).Scan(&xp.UserID, &xp.CurrentXP, &xp.TotalXP, &xp.CurrentLevel, &xp.StreakDays, &xp.LastActivityDate)
	return xp, err
}

func (r *gamificationRepository) UpdateXP(userID, currentXP, totalXP int) error {
	_, err := r.db.Exec(
		`UPDATE user_xp SET current_xp = $2, total_xp = $3 WHERE user_id = $1`,
		userID, currentXP, totalXP)
	return err
}

func (r *gamificationRepository) UpdateLevel(userID, level int) error {
	_, err := r.db.Exec(
		`UPDATE user_xp SET current_level = $2 WHERE user_id = $1`, userID, level)
	return err
}

func (r *gamificationRepository) UpdateStreak(userID, streakDays int, lastActivity time.Time) error {
	_, err := r.db.Exec(
		`UPDATE user_xp SET streak_days = $2, last_activity_date = $3 WHERE user_id = $1`,
		userID, streakDays, lastActivity)
	return err
}

func (r *gamificationRepository) RecordTransaction(userID, amount int, reason, source string) (models.XPTransaction, error) {
	var tx models.XPTransaction
	err := r.db.QueryRow(`
		INSERT INTO xp_transactions (user_id, amount, reason, source)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, amount, reason, source, created_at`,
		userID, amount, reason, source,
	).Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Reason, &tx.Source, &tx.CreatedAt)
	return tx, err
}

func (r *gamificationRepository) XPHistory(userID, limit, offset int) ([]models.XPTransaction, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, amount, reason, source, created_at
		FROM xp_transactions WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.XPTransaction
	for rows.Next() {
		var tx models.XPTransaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Reason, &tx.Source, &tx.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (r *gamificationRepository) XPLeaderboard(limit int) ([]models.XPLeaderboardRow, error) {
	rows, err := r.db.Query(`
		SELECT u.id, u.username, x.total_xp, x.current_level
		FROM user_xp x JOIN users u ON u.id = x.user_id
		WHERE u.is_active
		ORDER BY x.total_xp DESC, u.username
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var board []models.XPLeaderboardRow
	rank := 0
	for rows.Next() {
		var row models.XPLeaderboardRow
		if err := rows.Scan(&row.UserID, &row.Username, &row.TotalXP, &row.Level); err != nil {
			return nil, err
		}
		rank++
		row.Rank = rank
		board = append(board, row)
	}
	return board, rows.Err()
}

// EnsureDailyChallenge inserts the candidate for its date, or returns the
// challenge another instance already created. The UNIQUE date constraint
// makes the race harmless.
func (r *gamificationRepository) EnsureDailyChallenge(c models.DailyChallenge) (models.DailyChallenge, error) {
	err := r.db.QueryRow(`
		INSERT INTO daily_challenges (title, description, xp_reward, difficulty, challenge_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (challenge_date) DO UPDATE SET challenge_date = EXCLUDED.challenge_date
		RETURNING id, title, description, xp_reward, difficulty, challenge_date`,
		c.Title, c.Description, c.XPReward, c.Difficulty, c.ChallengeDate,
	).Scan(&c.ID, &c.Title, &c.Description, &c.XPReward, &c.Difficulty, &c.ChallengeDate)
	return c, err
}

func (r *gamificationRepository) GetDailyChallenge(id int) (models.DailyChallenge, error) {
	var c models.DailyChallenge
	err := r.db.QueryRow(`
		SELECT id, title, description, xp_reward, difficulty, challenge_date
		FROM daily_challenges WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.XPReward, &c.Difficulty, &c.ChallengeDate)
	return c, err
}

func (r *gamificationRepository) HasCompletedChallenge(userID, challengeID int) (bool, error) {
	var done bool
	err := r.db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM user_daily_challenges WHERE user_id = $1 AND challenge_id = $2
		)`, userID, challengeID,
	).Scan(&done)
	return done, err
}

func (r *gamificationRepository) CompleteChallenge(userID, challengeID int) error {
	_, err := r.db.Exec(`
		INSERT INTO user_daily_challenges (user_id, challenge_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, challengeID)
	return err
}

func (r *gamificationRepository) Achievements() ([]models.Achievement, error) {
	rows, err := r.db.Query(`
		SELECT id, code, title, description, trigger_type, threshold, xp_reward
		FROM achievements ORDER BY trigger_type, threshold`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Achievement
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.ID, &a.Code, &a.Title, &a.Description, &a.TriggerType, &a.Threshold, &a.XPReward); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *gamificationRepository) UserAchievements(userID int) ([]models.UserAchievement, error) {
	rows, err := r.db.Query(`
		SELECT a.id, a.code, a.title, a.description, a.trigger_type, a.threshold, a.xp_reward, ua.earned_at
		FROM user_achievements ua JOIN achievements a ON a.id = ua.achievement_id
		WHERE ua.user_id = $1
		ORDER BY ua.earned_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.UserAchievement
	for rows.Next() {
		var ua models.UserAchievement
		if err := rows.Scan(&ua.ID, &ua.Code, &ua.Title, &ua.Description, &ua.TriggerType,
			&ua.Threshold, &ua.XPReward, &ua.EarnedAt); err != nil {
			return nil, err
		}
		list = append(list, ua)
	}
	return list, rows.Err()
}

func (r *gamificationRepository) AwardAchievement(userID, achievementID int) error {
	_, err := r.db.Exec(`
		INSERT INTO user_achievements (user_id, achievement_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, achievementID)
	return err
}

func (r *gamificationRepository) CreateStudyGroup(req models.CreateStudyGroupRequest, createdBy int) (models.StudyGroup, error) {
	var g models.StudyGroup
	err := r.db.QueryRow(`
		INSERT INTO study_groups (name, description, created_by, max_members)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, description, COALESCE(created_by, 0), max_members, created_at`,
		req.Name, req.Description, createdBy, req.MaxMembers,
	).Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.MaxMembers, &g.CreatedAt)
	return g, err
}

func (r *gamificationRepository) ListStudyGroups(limit, offset int) ([]models.StudyGroup, error) {
	rows, err := r.db.Query(`
		SELECT g.id, g.name, g.description, COALESCE(g.created_by, 0), g.max_members, g.created_at,
		       (SELECT COUNT(*) FROM study_group_members m WHERE m.group_id = g.id)
		FROM study_groups g
		ORDER BY g.created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.StudyGroup
	for rows.Next() {
		var g models.StudyGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.MaxMembers,
			&g.CreatedAt, &g.Members); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *gamificationRepository) GetStudyGroup(id int) (models.StudyGroup, error) {
	var g models.StudyGroup
	err := r.db.QueryRow(`
		SELECT g.id, g.name, g.description, COALESCE(g.created_by, 0), g.max_members, g.created_at,
		       (SELECT COUNT(*) FROM study_group_members m WHERE m.group_id = g.id)
		FROM study_groups g WHERE g.id = $1`, id,
	).Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.MaxMembers, &g.CreatedAt, &g.Members)
	return g, err
}

func (r *gamificationRepository) JoinStudyGroup(groupID, userID int, role string) error {
	_, err := r.db.Exec(`
		INSERT INTO study_group_members (group_id, user_id, role) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`, groupID, userID, role)
	return err
}

func (r *gamificationRepository) StudyGroupMemberCount(groupID int) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM study_group_members WHERE group_id = $1`, groupID).Scan(&count)
	return count, err
}
