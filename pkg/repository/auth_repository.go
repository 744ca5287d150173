package repository

import (
	"database/sql"
	"strings"
	"time"

	"codearena/pkg/models"
)

const userColumns = `id, uuid, username, email, full_name, country, timezone, bio,
	is_admin, is_active, problems_solved, last_login, created_at`

type AuthRepository interface {
	CreateUser(username, email, passwordHash, fullName, country, timezone string) (models.User, error)
	GetUserByLogin(login string) (models.User, string, error)
	GetUserByID(id int) (models.User, error)
	GetUserByUsername(username string) (models.User, error)
	GetPasswordHash(userID int) (string, error)
	UpdatePassword(userID int, passwordHash string) error
	UpdateProfile(userID int, req models.UpdateProfileRequest) (models.User, error)
	TouchLastLogin(userID int) error
	CreateSession(userID int, refreshToken, userAgent, ip string, expiresAt time.Time) error
	GetSessionByToken(token string) (models.Session, models.User, error)
	UpdateSession(sessionID int, newRefresh string, expiresAt time.Time) error
	DeleteSessionByID(sessionID int) error
	DeleteSessionByToken(token string) error
	DeleteAllSessionsByUserID(userID int) error
	GetActiveSessionsByUserID(userID int) ([]models.Session, error)
	DeleteExpiredSessions() (int64, error)
}

type authRepository struct {
	db *sql.DB
}

func NewAuthRepository(db *sql.DB) AuthRepository {
	return &authRepository{db: db}
}

func scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.UUID, &u.Username, &u.Email, &u.FullName, &u.Country,
		&u.Timezone, &u.Bio, &u.IsAdmin, &u.IsActive, &u.ProblemsSolved, &u.LastLogin, &u.CreatedAt)
	return u, err
}

func (r *authRepository) CreateUser(username, email, passwordHash, fullName, country, timezone string) (models.User, error) {
	return scanUser(r.db.QueryRow(
		`INSERT INTO users (username, email, password_hash, full_name, country, timezone)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+userColumns,
		strings.ToLower(username), strings.ToLower(email), passwordHash, fullName, country, timezone,
	))
}

// GetUserByLogin resolves a username or an email address, returning the user
// together with the stored password hash.
func (r *authRepository) GetUserByLogin(login string) (models.User, string, error) {
	var u models.User
	var hash string
	err := r.db.QueryRow(
		`SELECT `+userColumns+`, password_hash FROM users WHERE username = $1 OR email = $1`,
		strings.ToLower(strings.TrimSpace(login)),
	).Scan(&u.ID, &u.UUID, &u.Username, &u.Email, &u.FullName, &u.Country,
		&u.Timezone, &u.Bio, &u.IsAdmin, &u.IsActive, &u.ProblemsSolved, &u.LastLogin, &u.CreatedAt, &hash)
	return u, hash, err
}

func (r *authRepository) GetUserByID(id int) (models.User, error) {
	return scanUser(r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *authRepository) GetUserByUsername(username string) (models.User, error) {
	return scanUser(r.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE username = $1`, strings.ToLower(username)))
}

func (r *authRepository) GetPasswordHash(userID int) (string, error) {
	var hash string
	err := r.db.QueryRow(`SELECT password_hash FROM users WHERE id = $1`, userID).Scan(&hash)
	return hash, err
}

func (r *authRepository) UpdatePassword(userID int, passwordHash string) error {
	_, err := r.db.Exec(
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, userID,
	)
	return err
}

// UpdateProfile applies the whitelisted fields only; nil pointers leave the
// stored value untouched.
func (r *authRepository) UpdateProfile(userID int, req models.UpdateProfileRequest) (models.User, error) {
	return scanUser(r.db.QueryRow(
		`UPDATE users SET
			full_name = COALESCE($2, full_name),
			bio       = COALESCE($3, bio),
			country   = COALESCE($4, country),
			timezone  = COALESCE($5, timezone),
			updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		userID, req.FullName, req.Bio, req.Country, req.Timezone,
	))
}

func (r *authRepository) TouchLastLogin(userID int) error {
	_, err := r.db.Exec(`UPDATE users SET last_login = NOW() WHERE id = $1`, userID)
	return err
}

func (r *authRepository) CreateSession(userID int, refreshToken, userAgent, ip string, expiresAt time.Time) error {
	_, err := r.db.Exec(
		`INSERT INTO sessions (user_id, refresh_token, user_agent, ip, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		userID, refreshToken, userAgent, ip, expiresAt,
	)
	return err
}

func (r *authRepository) GetSessionByToken(token string) (models.Session, models.User, error) {
	var session models.Session
	var user models.User
	err := r.db.QueryRow(
		`SELECT s.id, s.user_id, s.expires_at,
		        u.uuid, u.username, u.email, u.full_name, u.is_admin, u.is_active, u.created_at
		 FROM sessions s JOIN users u ON u.id = s.user_id
		 WHERE s.refresh_token = $1`, token,
	).Scan(&session.ID, &session.UserID, &session.ExpiresAt,
		&user.UUID, &user.Username, &user.Email, &user.FullName, &user.IsAdmin, &user.IsActive, &user.CreatedAt)
	user.ID = session.UserID
	return session, user, err
}

func (r *authRepository) UpdateSession(sessionID int, newRefresh string, expiresAt time.Time) error {
	_, err := r.db.Exec(
		`UPDATE sessions SET refresh_token = $1, expires_at = $2 WHERE id = $3`,
		newRefresh, expiresAt, sessionID,
	)
	return err
}

func (r *authRepository) DeleteSessionByID(sessionID int) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE id = $1`, sessionID)
	return err
}

func (r *authRepository) DeleteSessionByToken(token string) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE refresh_token = $1`, token)
	return err
}

func (r *authRepository) DeleteAllSessionsByUserID(userID int) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (r *authRepository) GetActiveSessionsByUserID(userID int) ([]models.Session, error) {
	rows, err := r.db.Query(
		`SELECT id, user_agent, ip, expires_at, created_at FROM sessions
		 WHERE user_id = $1 AND expires_at > NOW() ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.UserAgent, &s.IP, &s.ExpiresAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.UserID = userID
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *authRepository) DeleteExpiredSessions() (int64, error) {
	res, err := r.db.Exec(`DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
