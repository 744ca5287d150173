package models

import "time"

// Submission verdicts.
const (
	StatusPending    = "Pending"
	StatusProcessing = "Processing"
	StatusAccepted   = "AC"
	StatusWrongAns   = "WA"
	StatusTimeLimit  = "TLE"
	StatusMemLimit   = "MLE"
	StatusCompileErr = "CE"
	StatusRuntimeErr = "RE"
)

type Submission struct {
	ID              int       `json:"id"`
	UserID          int       `json:"user_id"`
	ProblemID       int       `json:"problem_id"`
	ContestID       *int      `json:"contest_id,omitempty"`
	Language        string    `json:"language"`
	SourceCode      string    `json:"source_code,omitempty"`
	Status          string    `json:"status"`
	ExecutionTimeMS int       `json:"execution_time_ms"`
	MemoryUsedKB    int       `json:"memory_used_kb"`
	TestCasesPassed int       `json:"test_cases_passed"`
	TotalTestCases  int       `json:"total_test_cases"`
	Score           int       `json:"score"`
	ProblemTitle    string    `json:"problem_title,omitempty"`
	Username        string    `json:"username,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type SubmitRequest struct {
	SourceCode string `json:"source_code"`
	Language   string `json:"language"`
	ContestID  *int   `json:"contest_id"`
}

type SubmissionFilter struct {
	UserID    int
	ProblemID int
	ContestID int
	Status    string
	Language  string
	Limit     int
	Offset    int
}
