package repository

import (
	"database/sql"
	"fmt"

	"codearena/pkg/models"
)

type SubmissionRepository interface {
	Create(userID, problemID int, contestID *int, language, sourceCode string, totalCases int) (models.Submission, error)
	GetByID(id int) (models.Submission, error)
	ApplyVerdict(id int, status string, execMS, memKB, passed, total, score int) error
	List(f models.SubmissionFilter) ([]models.Submission, error)
	HasAccepted(userID, problemID int) (bool, error)
	IncrementSolved(userID int) (int, error)
}

type submissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(userID, problemID int, contestID *int, language, sourceCode string, totalCases int) (models.Submission, error) {
	var s models.Submission
	err := r.db.QueryRow(`
		INSERT INTO submissions (user_id, problem_id, contest_id, language, source_code, status, total_test_cases)
		VALUES ($1, $2, $3, $4, $5, 'Processing', $6)
		RETURNING id, user_id, problem_id, contest_id, language, status, total_test_cases, created_at`,
		userID, problemID, contestID, language, sourceCode, totalCases,
	).Scan(&s.ID, &s.UserID, &s.ProblemID, &s.ContestID, &s.Language, &s.Status, &s.TotalTestCases, &s.CreatedAt)
	return s, err
}

func (r *submissionRepository) GetByID(id int) (models.Submission, error) {
	var s models.Submission
	err := r.db.QueryRow(`
		SELECT s.id, s.user_id, s.problem_id, s.contest_id, s.language, s.source_code,
		       s.status, s.execution_time_ms, s.memory_used_kb, s.test_cases_passed,
		       s.total_test_cases, s.score, s.created_at, p.title, u.username
		FROM submissions s
		JOIN problems p ON p.id = s.problem_id
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.ProblemID, &s.ContestID, &s.Language, &s.SourceCode,
		&s.Status, &s.ExecutionTimeMS, &s.MemoryUsedKB, &s.TestCasesPassed,
		&s.TotalTestCases, &s.Score, &s.CreatedAt, &s.ProblemTitle, &s.Username)
	return s, err
}

func (r *submissionRepository) ApplyVerdict(id int, status string, execMS, memKB, passed, total, score int) error {
	_, err := r.db.Exec(`
		UPDATE submissions
		SET status = $2, execution_time_ms = $3, memory_used_kb = $4,
		    test_cases_passed = $5, total_test_cases = $6, score = $7
		WHERE id = $1`,
		id, status, execMS, memKB, passed, total, score)
	return err
}

// List returns submissions without source code; zero filter fields are
// ignored.
func (r *submissionRepository) List(f models.SubmissionFilter) ([]models.Submission, error) {
	query := `
		SELECT s.id, s.user_id, s.problem_id, s.contest_id, s.language, s.status,
		       s.execution_time_ms, s.memory_used_kb, s.test_cases_passed,
		       s.total_test_cases, s.score, s.created_at, p.title, u.username
		FROM submissions s
		JOIN problems p ON p.id = s.problem_id
		JOIN users u ON u.id = s.user_id
		WHERE 1=1`
	args := []interface{}{}

	add := func(cond string, val interface{}) {
		args = append(args, val)
		query += fmt.Sprintf(" AND %s = $%d", cond, len(args))
	}

	if f.UserID > 0 {
		add("s.user_id", f.UserID)
	}
	if f.ProblemID > 0 {
		add("s.problem_id", f.ProblemID)
	}
	if f.ContestID > 0 {
		add("s.contest_id", f.ContestID)
	}
	if f.Status != "" {
		add("s.status", f.Status)
	}
	if f.Language != "" {
		add("s.language", f.Language)
	}

	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY s.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Submission
	for rows.Next() {
		var s models.Submission
		if err := rows.Scan(&s.ID, &s.UserID, &s.ProblemID, &s.ContestID, &s.Language, &s.Status,
			&s.ExecutionTimeMS, &s.MemoryUsedKB, &s.TestCasesPassed,
			&s.TotalTestCases, &s.Score, &s.CreatedAt, &s.ProblemTitle, &s.Username); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *submissionRepository) HasAccepted(userID, problemID int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM submissions WHERE user_id = $1 AND problem_id = $2 AND status = 'AC')`,
		userID, problemID).Scan(&exists)
	return exists, err
}

// IncrementSolved bumps the solver's counter and returns the new total.
func (r *submissionRepository) IncrementSolved(userID int) (int, error) {
	var solved int
	err := r.db.QueryRow(
		`UPDATE users SET problems_solved = problems_solved + 1 WHERE id = $1
		 RETURNING problems_solved`, userID).Scan(&solved)
	return solved, err
}
