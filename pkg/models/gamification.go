package models

import "time"

type UserXP struct {
	UserID           int       `json:"user_id"`
	CurrentXP        int       `json:"current_xp"`
	TotalXP          int       `json:"total_xp"`
	CurrentLevel     int       `json:"current_level"`
	StreakDays       int       `json:"streak_days"`
	LastActivityDate time.Time `json:"last_activity_date"`
}

type XPTransaction struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Amount    int       `json:"amount"`
	Reason    string    `json:"reason"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type XPResult struct {
	NewXP      int           `json:"new_xp"`
	NewTotalXP int           `json:"new_total_xp"`
	XPEarned   int           `json:"xp_earned"`
	LevelUp    bool          `json:"level_up"`
	NewLevel   int           `json:"new_level"`
	Tx         XPTransaction `json:"transaction"`
}

// Achievement trigger types.
const (
	TriggerProblemsSolved = "problems_solved"
	TriggerLevel          = "level"
	TriggerStreak         = "streak"
)

type Achievement struct {
	ID          int    `json:"id"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
	TriggerType string `json:"trigger_type"`
	Threshold   int    `json:"threshold"`
	XPReward    int    `json:"xp_reward"`
}

type UserAchievement struct {
	Achievement
	EarnedAt time.Time `json:"earned_at"`
}

type XPLeaderboardRow struct {
	Rank     int    `json:"rank"`
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	TotalXP  int    `json:"total_xp"`
	Level    int    `json:"level"`
}

type DailyChallenge struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	XPReward      int       `json:"xp_reward"`
	Difficulty    string    `json:"difficulty"`
	ChallengeDate time.Time `json:"challenge_date"`
}

type DailyChallengeResult struct {
	XPEarned    int  `json:"xp_earned"`
	BonusEarned bool `json:"bonus_earned"`
	BonusAmount int  `json:"bonus_amount"`
}

type StudyGroup struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   int       `json:"created_by"`
	MaxMembers  int       `json:"max_members"`
	Members     int       `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateStudyGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxMembers  int    `json:"max_members"`
}
