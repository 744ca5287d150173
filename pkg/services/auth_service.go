package services

import (
	"database/sql"
	"errors"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode"

	"codearena/pkg/apperr"
	"codearena/pkg/models"
	"codearena/pkg/repository"
	"codearena/pkg/token"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type AuthService interface {
	Register(req models.RegisterRequest, userAgent, ip string) (models.AuthResponse, error)
	Login(req models.LoginRequest, userAgent, ip string) (models.AuthResponse, error)
	VerifyToken(tokenStr string) (models.User, error)
	Refresh(refreshToken string) (models.AuthResponse, error)
	Logout(refreshToken string) error
	LogoutAll(userID int) error
	ChangePassword(userID int, currentPassword, newPassword string) error
	UpdateProfile(userID int, req models.UpdateProfileRequest) (models.User, error)
	Profile(userID int) (models.User, error)
	PublicProfile(username string) (models.User, error)
	Sessions(userID int) ([]models.Session, error)
	SweepExpiredSessions()
}

type authService struct {
	repo       repository.AuthRepository
	xp         repository.GamificationRepository
	issuer     *token.Issuer
	refreshTTL time.Duration
}

func NewAuthService(repo repository.AuthRepository, xp repository.GamificationRepository, issuer *token.Issuer, refreshTTL time.Duration) AuthService {
	return &authService{repo: repo, xp: xp, issuer: issuer, refreshTTL: refreshTTL}
}

func (s *authService) Register(req models.RegisterRequest, userAgent, ip string) (models.AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}

	if err := validateUsername(req.Username); err != nil {
		return models.AuthResponse{}, err
	}
	if err := validateEmail(req.Email); err != nil {
		return models.AuthResponse{}, err
	}
	if err := validatePassword(req.Password); err != nil {
		return models.AuthResponse{}, err
	}
	if req.FullName == "" {
		return models.AuthResponse{}, apperr.Validation("Full name is required")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		log.Println("[AUTH] hash error:", err)
		return models.AuthResponse{}, apperr.Internal()
	}

	user, err := s.repo.CreateUser(req.Username, req.Email, hash, req.FullName, req.Country, req.Timezone)
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return models.AuthResponse{}, dup
		}
		log.Println("[AUTH] create user error:", err)
		return models.AuthResponse{}, apperr.Internal()
	}

	if _, err := s.xp.InitUserXP(user.ID); err != nil {
		// XP row is recoverable; the account is already created.
		log.Println("[AUTH] init xp error:", err)
	}

	return s.newSession(user, userAgent, ip)
}

func (s *authService) Login(req models.LoginRequest, userAgent, ip string) (models.AuthResponse, error) {
	if req.Username == "" || req.Password == "" {
		return models.AuthResponse{}, apperr.Validation("Username and password are required")
	}

	user, hash, err := s.repo.GetUserByLogin(req.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AuthResponse{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		log.Println("[AUTH] login query error:", err)
		return models.AuthResponse{}, apperr.Internal()
	}

	// Same error for unknown user and wrong password: no username probing.
	if !CheckPassword(req.Password, hash) {
		return models.AuthResponse{}, apperr.ErrInvalidCredentials
	}
	if !user.IsActive {
		return models.AuthResponse{}, apperr.ErrInvalidCredentials
	}

	if err := s.repo.TouchLastLogin(user.ID); err != nil {
		log.Println("[AUTH] touch last_login error:", err)
	}

	return s.newSession(user, userAgent, ip)
}

// VerifyToken checks signature and expiry, then re-reads the user so role
// and profile changes apply immediately even for still-valid tokens.
func (s *authService) VerifyToken(tokenStr string) (models.User, error) {
	claims, err := s.issuer.Verify(tokenStr)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return models.User{}, apperr.ErrTokenExpired
		}
		return models.User{}, apperr.ErrInvalidToken
	}

	user, err := s.repo.GetUserByID(claims.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.ErrInvalidToken
	}
	if err != nil {
		log.Println("[AUTH] verify lookup error:", err)
		return models.User{}, apperr.Internal()
	}
	if !user.IsActive {
		return models.User{}, apperr.ErrInvalidToken
	}
	return user, nil
}

func (s *authService) Refresh(refreshToken string) (models.AuthResponse, error) {
	if refreshToken == "" {
		return models.AuthResponse{}, apperr.Validation("Refresh token is required")
	}

	session, user, err := s.repo.GetSessionByToken(refreshToken)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AuthResponse{}, apperr.ErrSessionNotFound
	}
	if err != nil {
		log.Println("[AUTH] refresh query error:", err)
		return models.AuthResponse{}, apperr.Internal()
	}

	if time.Now().After(session.ExpiresAt) {
		s.repo.DeleteSessionByID(session.ID)
		return models.AuthResponse{}, apperr.ErrSessionExpired
	}
	if !user.IsActive {
		return models.AuthResponse{}, apperr.ErrSessionNotFound
	}

	// Rotation: every refresh replaces the token and extends the session.
	newRefresh := uuid.NewString()
	if err := s.repo.UpdateSession(session.ID, newRefresh, time.Now().Add(s.refreshTTL)); err != nil {
		log.Println("[AUTH] rotate session error:", err)
		return models.AuthResponse{}, apperr.Internal()
	}

	accessToken, err := s.issuer.Issue(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		log.Println("[AUTH] issue token error:", err)
		return models.AuthResponse{}, apperr.Internal()
	}

	return models.AuthResponse{
		Success:      true,
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		User:         user,
		ExpiresIn:    int(s.issuer.TTL().Seconds()),
	}, nil
}

// Logout revokes the presented refresh token. Already-issued access tokens
// stay valid until natural expiry; only future refreshes are cut off.
func (s *authService) Logout(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repo.DeleteSessionByToken(refreshToken); err != nil {
		log.Println("[AUTH] logout error:", err)
		return apperr.Internal()
	}
	return nil
}

func (s *authService) LogoutAll(userID int) error {
	if err := s.repo.DeleteAllSessionsByUserID(userID); err != nil {
		log.Println("[AUTH] logout-all error:", err)
		return apperr.Internal()
	}
	return nil
}

func (s *authService) ChangePassword(userID int, currentPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.repo.GetPasswordHash(userID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		log.Println("[AUTH] change password lookup error:", err)
		return apperr.Internal()
	}
	if !CheckPassword(currentPassword, hash) {
		return apperr.ErrWrongPassword
	}

	newHash, err := HashPassword(newPassword)
	if err != nil {
		log.Println("[AUTH] hash error:", err)
		return apperr.Internal()
	}
	if err := s.repo.UpdatePassword(userID, newHash); err != nil {
		log.Println("[AUTH] update password error:", err)
		return apperr.Internal()
	}

	// Every session is revoked so stolen refresh tokens die with the
	// old password.
	if err := s.repo.DeleteAllSessionsByUserID(userID); err != nil {
		log.Println("[AUTH] revoke sessions error:", err)
	}
	return nil
}

func (s *authService) UpdateProfile(userID int, req models.UpdateProfileRequest) (models.User, error) {
	user, err := s.repo.UpdateProfile(userID, req)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		log.Println("[AUTH] update profile error:", err)
		return models.User{}, apperr.Internal()
	}
	return user, nil
}

func (s *authService) Profile(userID int) (models.User, error) {
	user, err := s.repo.GetUserByID(userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		log.Println("[AUTH] profile error:", err)
		return models.User{}, apperr.Internal()
	}
	return user, nil
}

func (s *authService) PublicProfile(username string) (models.User, error) {
	user, err := s.repo.GetUserByUsername(username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		log.Println("[AUTH] public profile error:", err)
		return models.User{}, apperr.Internal()
	}
	// Public view: strip contact details.
	user.Email = ""
	return user, nil
}

func (s *authService) Sessions(userID int) ([]models.Session, error) {
	sessions, err := s.repo.GetActiveSessionsByUserID(userID)
	if err != nil {
		log.Println("[AUTH] sessions error:", err)
		return nil, apperr.Internal()
	}
	return sessions, nil
}

func (s *authService) SweepExpiredSessions() {
	n, err := s.repo.DeleteExpiredSessions()
	if err != nil {
		log.Println("[AUTH] sweep error:", err)
		return
	}
	if n > 0 {
		log.Printf("[AUTH] swept %d expired sessions", n)
	}
}

func (s *authService) newSession(user models.User, userAgent, ip string) (models.AuthResponse, error) {
	accessToken, err := s.issuer.Issue(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		log.Println("[AUTH] issue token error:", err)
		return models.AuthResponse{}, apperr.Internal()
	}

	refreshToken := uuid.NewString()
	if err := s.repo.CreateSession(user.ID, refreshToken, userAgent, ip, time.Now().Add(s.refreshTTL)); err != nil {
		log.Println("[AUTH] create session error:", err)
		return models.AuthResponse{}, apperr.Internal()
	}

	return models.AuthResponse{
		Success:      true,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
		ExpiresIn:    int(s.issuer.TTL().Seconds()),
	}, nil
}

// duplicateError maps a unique-constraint violation to the matching typed
// error, or returns nil for anything else.
func duplicateError(err error) *apperr.Error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return nil
	}
	if strings.Contains(pqErr.Constraint, "email") {
		return apperr.ErrDuplicateEmail
	}
	return apperr.ErrDuplicateUsername
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validateUsername(u string) error {
	if len(u) < 3 {
		return apperr.Validation("Username must be at least 3 characters")
	}
	if len(u) > 30 {
		return apperr.Validation("Username is too long (max 30)")
	}
	for _, r := range u {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			return apperr.Validation("Username may only contain letters, digits, _ and -")
		}
	}
	return nil
}

func validateEmail(e string) error {
	if !emailRe.MatchString(e) {
		return apperr.Validation("Invalid email address")
	}
	return nil
}

func validatePassword(p string) error {
	if len(p) < 6 {
		return apperr.Validation("Password must be at least 6 characters")
	}
	if len(p) > 128 {
		return apperr.Validation("Password is too long")
	}
	return nil
}
