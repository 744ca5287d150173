package repository

import (
	"database/sql"

	"codearena/pkg/models"

	"github.com/lib/pq"
)

const problemColumns = `id, title, slug, description, difficulty, time_limit_ms,
	memory_limit_mb, COALESCE(topic_tags, '{}'), is_published, created_at, updated_at`

type ProblemRepository interface {
	List(difficulty, tag string, publishedOnly bool, limit, offset int) ([]models.Problem, error)
	GetByID(id int) (models.Problem, error)
	Create(req models.CreateProblemRequest, slug string) (models.Problem, error)
	Update(id int, req models.CreateProblemRequest) (models.Problem, error)
	AddTestCase(problemID int, req models.CreateTestCaseRequest) (models.TestCase, error)
	TestCases(problemID int) ([]models.TestCase, error)
	SampleCases(problemID int) ([]models.TestCase, error)
}

type problemRepository struct {
	db *sql.DB
}

func NewProblemRepository(db *sql.DB) ProblemRepository {
	return &problemRepository{db: db}
}

func (r *problemRepository) List(difficulty, tag string, publishedOnly bool, limit, offset int) ([]models.Problem, error) {
	rows, err := r.db.Query(`
		SELECT `+problemColumns+`
		FROM problems
		WHERE ($1 = '' OR difficulty = $1)
		  AND ($2 = '' OR $2 = ANY(topic_tags))
		  AND (NOT $3 OR is_published)
		ORDER BY id
		LIMIT $4 OFFSET $5
	`, difficulty, tag, publishedOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProblems(rows)
}

func (r *problemRepository) GetByID(id int) (models.Problem, error) {
	return scanProblem(r.db.QueryRow(
		`SELECT `+problemColumns+` FROM problems WHERE id = $1`, id))
}

func (r *problemRepository) Create(req models.CreateProblemRequest, slug string) (models.Problem, error) {
	return scanProblem(r.db.QueryRow(`
		INSERT INTO problems (title, slug, description, difficulty, time_limit_ms, memory_limit_mb, topic_tags, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+problemColumns,
		req.Title, slug, req.Description, req.Difficulty, req.TimeLimitMS,
		req.MemoryLimitMB, pq.Array(req.TopicTags), req.IsPublished,
	))
}

func (r *problemRepository) Update(id int, req models.CreateProblemRequest) (models.Problem, error) {
	return scanProblem(r.db.QueryRow(`
		UPDATE problems SET title = $2, description = $3, difficulty = $4,
			time_limit_ms = $5, memory_limit_mb = $6, topic_tags = $7,
			is_published = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING `+problemColumns,
		id, req.Title, req.Description, req.Difficulty, req.TimeLimitMS,
		req.MemoryLimitMB, pq.Array(req.TopicTags), req.IsPublished,
	))
}

func (r *problemRepository) AddTestCase(problemID int, req models.CreateTestCaseRequest) (models.TestCase, error) {
	var tc models.TestCase
	err := r.db.QueryRow(`
		INSERT INTO test_cases (problem_id, input, expected_output, is_sample, points)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, problem_id, input, expected_output, is_sample, points`,
		problemID, req.Input, req.ExpectedOutput, req.IsSample, req.Points,
	).Scan(&tc.ID, &tc.ProblemID, &tc.Input, &tc.ExpectedOutput, &tc.IsSample, &tc.Points)
	return tc, err
}

func (r *problemRepository) TestCases(problemID int) ([]models.TestCase, error) {
	return r.queryTestCases(
		`SELECT id, problem_id, input, expected_output, is_sample, points
		 FROM test_cases WHERE problem_id = $1 ORDER BY is_sample DESC, id`, problemID)
}

func (r *problemRepository) SampleCases(problemID int) ([]models.TestCase, error) {
	return r.queryTestCases(
		`SELECT id, problem_id, input, expected_output, is_sample, points
		 FROM test_cases WHERE problem_id = $1 AND is_sample ORDER BY id`, problemID)
}

func (r *problemRepository) queryTestCases(query string, problemID int) ([]models.TestCase, error) {
	rows, err := r.db.Query(query, problemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []models.TestCase
	for rows.Next() {
		var tc models.TestCase
		if err := rows.Scan(&tc.ID, &tc.ProblemID, &tc.Input, &tc.ExpectedOutput, &tc.IsSample, &tc.Points); err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}
	return cases, rows.Err()
}

func scanProblem(row *sql.Row) (models.Problem, error) {
	var p models.Problem
	var tags pq.StringArray
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &p.Difficulty,
		&p.TimeLimitMS, &p.MemoryLimitMB, &tags, &p.IsPublished, &p.CreatedAt, &p.UpdatedAt)
	p.TopicTags = tags
	return p, err
}

func scanProblems(rows *sql.Rows) ([]models.Problem, error) {
	var problems []models.Problem
	for rows.Next() {
		var p models.Problem
		var tags pq.StringArray
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &p.Difficulty,
			&p.TimeLimitMS, &p.MemoryLimitMB, &tags, &p.IsPublished, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.TopicTags = tags
		problems = append(problems, p)
	}
	return problems, rows.Err()
}
