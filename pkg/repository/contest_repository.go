package repository

import (
	"database/sql"

	"codearena/pkg/models"
)

const contestColumns = `id, title, description, start_time, end_time, is_public, COALESCE(created_by, 0), created_at`

type ContestRepository interface {
	List(limit, offset int) ([]models.Contest, error)
	GetByID(id int) (models.Contest, error)
	Create(req models.CreateContestRequest, createdBy int) (models.Contest, error)
	Update(id int, req models.CreateContestRequest) (models.Contest, error)
	AddProblem(contestID, problemID, points, ordinal int) error
	RemoveProblem(contestID, problemID int) error
	Problems(contestID int) ([]models.Problem, error)
	Register(contestID, userID int) error
	Unregister(contestID, userID int) error
	IsRegistered(contestID, userID int) (bool, error)
	Participants(contestID int) ([]models.User, error)
	Leaderboard(contestID int) ([]models.LeaderboardRow, error)
}

type contestRepository struct {
	db *sql.DB
}

func NewContestRepository(db *sql.DB) ContestRepository {
	return &contestRepository{db: db}
}

func scanContest(row *sql.Row) (models.Contest, error) {
	var c models.Contest
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.StartTime, &c.EndTime,
		&c.IsPublic, &c.CreatedBy, &c.CreatedAt)
	return c, err
}

func (r *contestRepository) List(limit, offset int) ([]models.Contest, error) {
	rows, err := r.db.Query(`
		SELECT c.id, c.title, c.description, c.start_time, c.end_time, c.is_public,
		       COALESCE(c.created_by, 0), c.created_at,
		       (SELECT COUNT(*) FROM contest_registrations cr WHERE cr.contest_id = c.id)
		FROM contests c
		ORDER BY c.start_time DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contests []models.Contest
	for rows.Next() {
		var c models.Contest
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.StartTime, &c.EndTime,
			&c.IsPublic, &c.CreatedBy, &c.CreatedAt, &c.Participants); err != nil {
			return nil, err
		}
		contests = append(contests, c)
	}
	return contests, rows.Err()
}

func (r *contestRepository) GetByID(id int) (models.Contest, error) {
	return scanContest(r.db.QueryRow(`SELECT `+contestColumns+` FROM contests WHERE id = $1`, id))
}

func (r *contestRepository) Create(req models.CreateContestRequest, createdBy int) (models.Contest, error) {
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	return scanContest(r.db.QueryRow(`
		INSERT INTO contests (title, description, start_time, end_time, is_public, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+contestColumns,
		req.Title, req.Description, req.StartTime, req.EndTime, isPublic, createdBy,
	))
}

func (r *contestRepository) Update(id int, req models.CreateContestRequest) (models.Contest, error) {
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	return scanContest(r.db.QueryRow(`
		UPDATE contests SET title = $2, description = $3, start_time = $4, end_time = $5, is_public = $6
		WHERE id = $1
		RETURNING `+contestColumns,
		id, req.Title, req.Description, req.StartTime, req.EndTime, isPublic,
	))
}

func (r *contestRepository) AddProblem(contestID, problemID, points, ordinal int) error {
	_, err := r.db.Exec(`
		INSERT INTO contest_problems (contest_id, problem_id, points, ordinal)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (contest_id, problem_id) DO UPDATE SET points = $3, ordinal = $4`,
		contestID, problemID, points, ordinal)
	return err
}

func (r *contestRepository) RemoveProblem(contestID, problemID int) error {
	_, err := r.db.Exec(
		`DELETE FROM contest_problems WHERE contest_id = $1 AND problem_id = $2`,
		contestID, problemID)
	return err
}

func (r *contestRepository) Problems(contestID int) ([]models.Problem, error) {
	rows, err := r.db.Query(`
		SELECT p.id, p.title, p.slug, p.description, p.difficulty, p.time_limit_ms,
		       p.memory_limit_mb, COALESCE(p.topic_tags, '{}'), p.is_published, p.created_at, p.updated_at
		FROM contest_problems cp
		JOIN problems p ON p.id = cp.problem_id
		WHERE cp.contest_id = $1
		ORDER BY cp.ordinal, cp.problem_id
	`, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProblems(rows)
}

func (r *contestRepository) Register(contestID, userID int) error {
	_, err := r.db.Exec(`
		INSERT INTO contest_registrations (contest_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		contestID, userID)
	return err
}

func (r *contestRepository) Unregister(contestID, userID int) error {
	_, err := r.db.Exec(
		`DELETE FROM contest_registrations WHERE contest_id = $1 AND user_id = $2`,
		contestID, userID)
	return err
}

func (r *contestRepository) IsRegistered(contestID, userID int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM contest_registrations WHERE contest_id = $1 AND user_id = $2)`,
		contestID, userID).Scan(&exists)
	return exists, err
}

func (r *contestRepository) Participants(contestID int) ([]models.User, error) {
	rows, err := r.db.Query(`
		SELECT u.id, u.uuid, u.username, u.full_name, u.country, u.problems_solved, cr.registered_at
		FROM contest_registrations cr
		JOIN users u ON u.id = cr.user_id
		WHERE cr.contest_id = $1
		ORDER BY cr.registered_at
	`, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		var registeredAt sql.NullTime
		if err := rows.Scan(&u.ID, &u.UUID, &u.Username, &u.FullName, &u.Country,
			&u.ProblemsSolved, &registeredAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Leaderboard ranks registered participants by accepted problems inside the
// contest window; ties break on summed minutes from contest start to each
// first accepted submission.
func (r *contestRepository) Leaderboard(contestID int) ([]models.LeaderboardRow, error) {
	rows, err := r.db.Query(`
		WITH solved AS (
			SELECT s.user_id, s.problem_id, MIN(s.created_at) AS first_ac
			FROM submissions s
			WHERE s.contest_id = $1 AND s.status = 'AC'
			GROUP BY s.user_id, s.problem_id
		)
		SELECT u.id, u.username, u.full_name,
		       COUNT(sv.problem_id) AS solved,
		       COALESCE(SUM(EXTRACT(EPOCH FROM (sv.first_ac - c.start_time)) / 60)::int, 0) AS penalty
		FROM contest_registrations cr
		JOIN users u ON u.id = cr.user_id
		JOIN contests c ON c.id = cr.contest_id
		LEFT JOIN solved sv ON sv.user_id = u.id
		WHERE cr.contest_id = $1
		GROUP BY u.id, u.username, u.full_name
		ORDER BY solved DESC, penalty ASC, u.username
	`, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var board []models.LeaderboardRow
	rank := 0
	for rows.Next() {
		var row models.LeaderboardRow
		if err := rows.Scan(&row.UserID, &row.Username, &row.FullName, &row.Solved, &row.PenaltyMins); err != nil {
			return nil, err
		}
		rank++
		row.Rank = rank
		board = append(board, row)
	}
	return board, rows.Err()
}
