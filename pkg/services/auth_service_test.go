package services

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codearena/pkg/apperr"
	"codearena/pkg/models"
	"codearena/pkg/repository"
	"codearena/pkg/token"
)

type fakeAuthRepo struct {
	users    map[int]models.User
	hashes   map[int]string
	sessions map[string]models.Session
	nextID   int
	nextSess int
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{
		users:    make(map[int]models.User),
		hashes:   make(map[int]string),
		sessions: make(map[string]models.Session),
	}
}

func (f *fakeAuthRepo) CreateUser(username, email, passwordHash, fullName, country, timezone string) (models.User, error) {
	username = strings.ToLower(username)
	email = strings.ToLower(email)
	for _, u := range f.users {
		if u.Username == username {
			return models.User{}, &pq.Error{Code: "23505", Constraint: "users_username_key"}
		}
		if u.Email == email {
			return models.User{}, &pq.Error{Code: "23505", Constraint: "users_email_key"}
		}
	}
	f.nextID++
	u := models.User{
		ID: f.nextID, Username: username, Email: email, FullName: fullName,
		Country: country, Timezone: timezone, IsActive: true, CreatedAt: time.Now(),
	}
	f.users[u.ID] = u
	f.hashes[u.ID] = passwordHash
	return u, nil
}

func (f *fakeAuthRepo) GetUserByLogin(login string) (models.User, string, error) {
	login = strings.ToLower(login)
	for id, u := range f.users {
		if u.Username == login || u.Email == login {
			return u, f.hashes[id], nil
		}
	}
	return models.User{}, "", sql.ErrNoRows
}

func (f *fakeAuthRepo) GetUserByID(id int) (models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return models.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeAuthRepo) GetUserByUsername(username string) (models.User, error) {
	for _, u := range f.users {
		if u.Username == strings.ToLower(username) {
			return u, nil
		}
	}
	return models.User{}, sql.ErrNoRows
}

func (f *fakeAuthRepo) GetPasswordHash(userID int) (string, error) {
	hash, ok := f.hashes[userID]
	if !ok {
		return "", sql.ErrNoRows
	}
	return hash, nil
}

func (f *fakeAuthRepo) UpdatePassword(userID int, passwordHash string) error {
	f.hashes[userID] = passwordHash
	return nil
}

func (f *fakeAuthRepo) UpdateProfile(userID int, req models.UpdateProfileRequest) (models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return models.User{}, sql.ErrNoRows
	}
	if req.FullName != nil {
		u.FullName = *req.FullName
	}
	if req.Bio != nil {
		u.Bio = *req.Bio
	}
	if req.Country != nil {
		u.Country = *req.Country
	}
	if req.Timezone != nil {
		u.Timezone = *req.Timezone
	}
	f.users[userID] = u
	return u, nil
}

func (f *fakeAuthRepo) TouchLastLogin(userID int) error { return nil }

func (f *fakeAuthRepo) CreateSession(userID int, refreshToken, userAgent, ip string, expiresAt time.Time) error {
	f.nextSess++
	f.sessions[refreshToken] = models.Session{
		ID: f.nextSess, UserID: userID, RefreshToken: refreshToken,
		UserAgent: userAgent, IP: ip, ExpiresAt: expiresAt,
	}
	return nil
}

func (f *fakeAuthRepo) GetSessionByToken(tok string) (models.Session, models.User, error) {
	s, ok := f.sessions[tok]
	if !ok {
		return models.Session{}, models.User{}, sql.ErrNoRows
	}
	return s, f.users[s.UserID], nil
}

func (f *fakeAuthRepo) UpdateSession(sessionID int, newRefresh string, expiresAt time.Time) error {
	for tok, s := range f.sessions {
		if s.ID == sessionID {
			delete(f.sessions, tok)
			s.RefreshToken = newRefresh
			s.ExpiresAt = expiresAt
			f.sessions[newRefresh] = s
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeAuthRepo) DeleteSessionByID(sessionID int) error {
	for tok, s := range f.sessions {
		if s.ID == sessionID {
			delete(f.sessions, tok)
		}
	}
	return nil
}

func (f *fakeAuthRepo) DeleteSessionByToken(tok string) error {
	delete(f.sessions, tok)
	return nil
}

func (f *fakeAuthRepo) DeleteAllSessionsByUserID(userID int) error {
	for tok, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, tok)
		}
	}
	return nil
}

func (f *fakeAuthRepo) GetActiveSessionsByUserID(userID int) ([]models.Session, error) {
	var out []models.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeAuthRepo) DeleteExpiredSessions() (int64, error) {
	var n int64
	now := time.Now()
	for tok, s := range f.sessions {
		if now.After(s.ExpiresAt) {
			delete(f.sessions, tok)
			n++
		}
	}
	return n, nil
}

type stubXPRepo struct {
	repository.GamificationRepository
}

func (stubXPRepo) InitUserXP(userID int) (models.UserXP, error) {
	return models.UserXP{UserID: userID, CurrentLevel: 1}, nil
}

func newTestAuthService() (AuthService, *fakeAuthRepo) {
	repo := newFakeAuthRepo()
	issuer := token.NewIssuer("test-secret", 15*time.Minute)
	return NewAuthService(repo, stubXPRepo{}, issuer, 7*24*time.Hour), repo
}

func register(t *testing.T, svc AuthService, username, email string) models.AuthResponse {
	t.Helper()
	resp, err := svc.Register(models.RegisterRequest{
		Username: username,
		Email:    email,
		Password: "hunter22",
		FullName: "Test User",
	}, "go-test", "127.0.0.1")
	require.NoError(t, err)
	return resp
}

func TestRegisterIssuesTokens(t *testing.T) {
	svc, _ := newTestAuthService()

	resp := register(t, svc, "alice", "alice@example.com")
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, 15*60, resp.ExpiresIn)

	user, err := svc.VerifyToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestAuthService()

	cases := []struct {
		name string
		req  models.RegisterRequest
	}{
		{"short username", models.RegisterRequest{Username: "ab", Email: "a@b.co", Password: "hunter22", FullName: "A"}},
		{"bad username chars", models.RegisterRequest{Username: "bad user!", Email: "a@b.co", Password: "hunter22", FullName: "A"}},
		{"bad email", models.RegisterRequest{Username: "alice", Email: "not-an-email", Password: "hunter22", FullName: "A"}},
		{"short password", models.RegisterRequest{Username: "alice", Email: "a@b.co", Password: "12345", FullName: "A"}},
		{"missing full name", models.RegisterRequest{Username: "alice", Email: "a@b.co", Password: "hunter22"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(tc.req, "", "")
			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
		})
	}
}

func TestRegisterDuplicates(t *testing.T) {
	svc, _ := newTestAuthService()
	register(t, svc, "alice", "alice@example.com")

	_, err := svc.Register(models.RegisterRequest{
		Username: "alice", Email: "other@example.com", Password: "hunter22", FullName: "A",
	}, "", "")
	assert.ErrorIs(t, err, apperr.ErrDuplicateUsername)

	_, err = svc.Register(models.RegisterRequest{
		Username: "alice2", Email: "alice@example.com", Password: "hunter22", FullName: "A",
	}, "", "")
	assert.ErrorIs(t, err, apperr.ErrDuplicateEmail)
}

func TestLoginByUsernameAndEmail(t *testing.T) {
	svc, _ := newTestAuthService()
	register(t, svc, "alice", "alice@example.com")

	for _, login := range []string{"alice", "alice@example.com"} {
		resp, err := svc.Login(models.LoginRequest{Username: login, Password: "hunter22"}, "", "")
		require.NoError(t, err, "login via %q", login)
		assert.NotEmpty(t, resp.AccessToken)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestAuthService()
	register(t, svc, "alice", "alice@example.com")

	_, errUnknown := svc.Login(models.LoginRequest{Username: "nobody", Password: "hunter22"}, "", "")
	_, errWrongPw := svc.Login(models.LoginRequest{Username: "alice", Password: "wrong"}, "", "")

	assert.ErrorIs(t, errUnknown, apperr.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPw, apperr.ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrongPw.Error())
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, repo := newTestAuthService()
	resp := register(t, svc, "alice", "alice@example.com")

	refreshed, err := svc.Refresh(resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, refreshed.RefreshToken)

	// The old token is gone; reusing it must fail.
	_, err = svc.Refresh(resp.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrSessionNotFound)

	// The rotated token still works.
	_, err = svc.Refresh(refreshed.RefreshToken)
	require.NoError(t, err)
	assert.Len(t, repo.sessions, 1)
}

func TestRefreshExpiredSession(t *testing.T) {
	svc, repo := newTestAuthService()
	resp := register(t, svc, "alice", "alice@example.com")

	s := repo.sessions[resp.RefreshToken]
	s.ExpiresAt = time.Now().Add(-time.Hour)
	repo.sessions[resp.RefreshToken] = s

	_, err := svc.Refresh(resp.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrSessionExpired)
	assert.Empty(t, repo.sessions, "expired session should be deleted on sight")
}

func TestLogoutKillsRefreshOnly(t *testing.T) {
	svc, _ := newTestAuthService()
	resp := register(t, svc, "alice", "alice@example.com")

	require.NoError(t, svc.Logout(resp.RefreshToken))

	_, err := svc.Refresh(resp.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrSessionNotFound)

	// The access token stays valid until it expires on its own.
	_, err = svc.VerifyToken(resp.AccessToken)
	assert.NoError(t, err)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	svc, repo := newTestAuthService()
	resp := register(t, svc, "alice", "alice@example.com")
	userID := resp.User.ID

	err := svc.ChangePassword(userID, "wrong-current", "newpassword")
	assert.ErrorIs(t, err, apperr.ErrWrongPassword)

	require.NoError(t, svc.ChangePassword(userID, "hunter22", "newpassword"))
	assert.Empty(t, repo.sessions)

	_, err = svc.Login(models.LoginRequest{Username: "alice", Password: "hunter22"}, "", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = svc.Login(models.LoginRequest{Username: "alice", Password: "newpassword"}, "", "")
	assert.NoError(t, err)
}

func TestChangePasswordUnknownUserIsNotFound(t *testing.T) {
	svc, _ := newTestAuthService()

	err := svc.ChangePassword(999, "whatever", "newpassword")
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Status)
}

func TestVerifyTokenRejectsDeactivatedUser(t *testing.T) {
	svc, repo := newTestAuthService()
	resp := register(t, svc, "alice", "alice@example.com")

	u := repo.users[resp.User.ID]
	u.IsActive = false
	repo.users[resp.User.ID] = u

	_, err := svc.VerifyToken(resp.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestUpdateProfilePartial(t *testing.T) {
	svc, _ := newTestAuthService()
	resp := register(t, svc, "alice", "alice@example.com")

	bio := "I like graphs"
	updated, err := svc.UpdateProfile(resp.User.ID, models.UpdateProfileRequest{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "I like graphs", updated.Bio)
	assert.Equal(t, "Test User", updated.FullName, "unset fields keep their value")
}

func TestPublicProfileHidesEmail(t *testing.T) {
	svc, _ := newTestAuthService()
	register(t, svc, "alice", "alice@example.com")

	profile, err := svc.PublicProfile("alice")
	require.NoError(t, err)
	assert.Empty(t, profile.Email)
	assert.Equal(t, "alice", profile.Username)
}
