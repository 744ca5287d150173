package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (AuthRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAuthRepository(db), mock
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "uuid", "username", "email", "full_name", "country", "timezone", "bio",
		"is_admin", "is_active", "problems_solved", "last_login", "created_at",
	}).AddRow(1, "u-1", "alice", "alice@example.com", "Alice", "BR", "UTC", "",
		false, true, 3, nil, time.Now())
}

// loginRows carries the extra password_hash column GetUserByLogin selects.
func loginRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "uuid", "username", "email", "full_name", "country", "timezone", "bio",
		"is_admin", "is_active", "problems_solved", "last_login", "created_at", "password_hash",
	}).AddRow(1, "u-1", "alice", "alice@example.com", "Alice", "BR", "UTC", "",
		false, true, 3, nil, time.Now(), "bcrypt-hash")
}

func TestCreateUserLowercasesIdentity(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "alice@example.com", "hash", "Alice", "BR", "UTC").
		WillReturnRows(userRows())

	user, err := repo.CreateUser("Alice", "Alice@Example.COM", "hash", "Alice", "BR", "UTC")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByLoginMatchesUsernameOrEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1 OR email = \$1`).
		WithArgs("alice").
		WillReturnRows(loginRows())

	_, hash, err := repo.GetUserByLogin("  Alice ")
	require.NoError(t, err)
	assert.Equal(t, "bcrypt-hash", hash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPasswordHash(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT password_hash FROM users WHERE id = \$1`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow("bcrypt-hash"))

	hash, err := repo.GetPasswordHash(7)
	require.NoError(t, err)
	assert.Equal(t, "bcrypt-hash", hash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAndRotateSession(t *testing.T) {
	repo, mock := newMockRepo(t)
	expires := time.Now().Add(7 * 24 * time.Hour)

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs(1, "refresh-1", "go-test", "127.0.0.1", expires).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.CreateSession(1, "refresh-1", "go-test", "127.0.0.1", expires))

	mock.ExpectExec(`UPDATE sessions SET refresh_token = \$1, expires_at = \$2 WHERE id = \$3`).
		WithArgs("refresh-2", expires, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateSession(5, "refresh-2", expires))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpiredSessionsReportsCount(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at < NOW\(\)`).
		WillReturnResult(sqlmock.NewResult(0, 42))

	n, err := repo.DeleteExpiredSessions()
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAllSessionsByUserID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM sessions WHERE user_id = \$1`).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.DeleteAllSessionsByUserID(3))
	assert.NoError(t, mock.ExpectationsWereMet())
}
