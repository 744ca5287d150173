package models

import "time"

type Contest struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	IsPublic     bool      `json:"is_public"`
	CreatedBy    int       `json:"created_by"`
	Participants int       `json:"participants,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreateContestRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsPublic    *bool     `json:"is_public"`
}

type ContestProblem struct {
	ContestID int `json:"contest_id"`
	ProblemID int `json:"problem_id"`
	Points    int `json:"points"`
	Ordinal   int `json:"ordinal"`
}

type ContestRegistration struct {
	ContestID    int       `json:"contest_id"`
	UserID       int       `json:"user_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

// LeaderboardRow is computed from submissions: participants rank by problems
// solved, ties broken by accumulated penalty time.
type LeaderboardRow struct {
	Rank        int    `json:"rank"`
	UserID      int    `json:"user_id"`
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	Solved      int    `json:"solved"`
	PenaltyMins int    `json:"penalty_mins"`
}
