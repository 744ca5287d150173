package repository

import (
	"database/sql"

	"codearena/pkg/models"
)

// PlatformStats backs the admin dashboard overview.
type PlatformStats struct {
	TotalUsers       int `json:"total_users"`
	TotalProblems    int `json:"total_problems"`
	TotalContests    int `json:"total_contests"`
	TotalSubmissions int `json:"total_submissions"`
	ActiveSessions   int `json:"active_sessions"`
}

type UserRepository interface {
	Search(query string, limit int) ([]models.User, error)
	List(limit, offset int) ([]models.User, error)
	GlobalLeaderboard(limit int) ([]models.User, error)
	SetAdmin(userID int, isAdmin bool) error
	Deactivate(userID int) error
	Stats() (PlatformStats, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Search(query string, limit int) ([]models.User, error) {
	rows, err := r.db.Query(`
		SELECT `+userColumns+` FROM users
		WHERE is_active AND (username ILIKE '%' || $1 || '%' OR full_name ILIKE '%' || $1 || '%')
		ORDER BY problems_solved DESC
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *userRepository) List(limit, offset int) ([]models.User, error) {
	rows, err := r.db.Query(
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *userRepository) GlobalLeaderboard(limit int) ([]models.User, error) {
	rows, err := r.db.Query(`
		SELECT `+userColumns+` FROM users
		WHERE is_active
		ORDER BY problems_solved DESC, username
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *userRepository) SetAdmin(userID int, isAdmin bool) error {
	_, err := r.db.Exec(`UPDATE users SET is_admin = $2, updated_at = NOW() WHERE id = $1`, userID, isAdmin)
	return err
}

// Deactivate soft-deletes: the row stays for submission history.
func (r *userRepository) Deactivate(userID int) error {
	_, err := r.db.Exec(`UPDATE users SET is_active = false, updated_at = NOW() WHERE id = $1`, userID)
	return err
}

func (r *userRepository) Stats() (PlatformStats, error) {
	var s PlatformStats
	err := r.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM problems),
			(SELECT COUNT(*) FROM contests),
			(SELECT COUNT(*) FROM submissions),
			(SELECT COUNT(*) FROM sessions WHERE expires_at > NOW())`,
	).Scan(&s.TotalUsers, &s.TotalProblems, &s.TotalContests, &s.TotalSubmissions, &s.ActiveSessions)
	return s, err
}

func scanUsers(rows *sql.Rows) ([]models.User, error) {
	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.UUID, &u.Username, &u.Email, &u.FullName, &u.Country,
			&u.Timezone, &u.Bio, &u.IsAdmin, &u.IsActive, &u.ProblemsSolved, &u.LastLogin, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
