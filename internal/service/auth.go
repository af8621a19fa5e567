package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Skotchmaster/session_manager/internal/audit"
	"github.com/Skotchmaster/session_manager/internal/events"
	"github.com/Skotchmaster/session_manager/internal/metrics"
	"github.com/Skotchmaster/session_manager/internal/models"
	"github.com/Skotchmaster/session_manager/internal/repo"
	"github.com/Skotchmaster/session_manager/internal/tokens"
)

type AuthService struct {
	Repo     UserStore
	Hasher   PasswordHasher
	Issuer   *tokens.Issuer
	Verifier tokens.Verifier
	Events   events.Publisher
	Audit    audit.Recorder
	Metrics  *metrics.Metrics
}

// LoginResult is a freshly issued token pair. RefreshToken is only ever handed to the cookie.
type LoginResult struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             models.PublicUser
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	user, err := createUser(ctx, s.Repo, s.Hasher, in)
	if err != nil {
		return nil, err
	}
	logger(ctx, "auth.register").Info("user registered", "user_id", user.ID)
	publish(ctx, s.Events, events.Event{Type: events.TypeUserRegistered, UserID: user.ID, Username: user.Username})
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logger(ctx, "auth.login")

	user, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.loginFailed(ctx, 0, email, "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if !s.Hasher.Verify(password, user.PasswordHash) {
		s.loginFailed(ctx, user.ID, email, "wrong password")
		return nil, ErrInvalidCredentials
	}

	res, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	// Unconditional: a new login supersedes whatever session the user had.
	if _, err := s.Repo.SetRefreshToken(ctx, user.ID, res.RefreshToken); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	l.Info("login ok", "user_id", user.ID)
	s.Metrics.Login("success")
	record(ctx, s.Audit, audit.Stamp(ctx, audit.Entry{Action: audit.ActionLoginSuccess, UserID: user.ID}))
	publish(ctx, s.Events, events.Event{Type: events.TypeUserLoggedIn, UserID: user.ID, Username: user.Username})
	return res, nil
}

func (s *AuthService) loginFailed(ctx context.Context, userID uint, email, reason string) {
	logger(ctx, "auth.login").Warn("login failed", "reason", reason)
	s.Metrics.Login("failure")
	record(ctx, s.Audit, audit.Stamp(ctx, audit.Entry{
		Action: audit.ActionLoginFailed,
		UserID: userID,
		Meta:   map[string]any{"identifier": email, "reason": reason},
	}))
}

// Refresh rotates the session: the presented token must be the one currently stored, and the
// replacement is written only if nobody else rotated the slot since it was read.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	l := logger(ctx, "auth.refresh")

	if refreshToken == "" {
		s.Metrics.Refresh("missing")
		return nil, ErrRefreshMissing
	}

	claims, err := s.Verifier.VerifyRefresh(refreshToken)
	if err != nil {
		l.Info("refresh token rejected", "error", err)
		s.Metrics.Refresh("invalid")
		return nil, ErrInvalidRefreshToken
	}
	id, err := strconv.ParseUint(claims.UserID, 10, 64)
	if err != nil {
		s.Metrics.Refresh("invalid")
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.Repo.FindByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.Metrics.Refresh("no_session")
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.RefreshToken == nil || *user.RefreshToken == "" {
		s.Metrics.Refresh("no_session")
		return nil, ErrSessionNotFound
	}
	if subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(refreshToken)) != 1 {
		l.Warn("stale refresh token presented", "user_id", user.ID)
		s.Metrics.Refresh("reuse")
		record(ctx, s.Audit, audit.Stamp(ctx, audit.Entry{Action: audit.ActionRefreshReuse, UserID: user.ID}))
		return nil, ErrRefreshReuse
	}

	res, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	ok, err := s.Repo.SwapRefreshToken(ctx, user.ID, user.RefreshVersion, &res.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !ok {
		l.Warn("refresh lost rotation race", "user_id", user.ID)
		s.Metrics.Refresh("race_lost")
		record(ctx, s.Audit, audit.Stamp(ctx, audit.Entry{Action: audit.ActionRefreshRace, UserID: user.ID}))
		return nil, ErrRefreshRace
	}

	s.Metrics.Refresh("success")
	record(ctx, s.Audit, audit.Stamp(ctx, audit.Entry{Action: audit.ActionRefreshSuccess, UserID: user.ID}))
	return res, nil
}

// Logout clears the stored token if it matches. No token or no match is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		s.Metrics.Logout("no_token")
		return nil
	}

	user, err := s.Repo.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.Metrics.Logout("no_session")
			return nil
		}
		return fmt.Errorf("find session: %w", err)
	}

	ok, err := s.Repo.SwapRefreshToken(ctx, user.ID, user.RefreshVersion, nil)
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	if !ok {
		// Rotated or cleared concurrently; the presented token is dead either way.
		s.Metrics.Logout("no_session")
		return nil
	}

	logger(ctx, "auth.logout").Info("session cleared", "user_id", user.ID)
	s.Metrics.Logout("success")
	record(ctx, s.Audit, audit.Stamp(ctx, audit.Entry{Action: audit.ActionLogout, UserID: user.ID}))
	publish(ctx, s.Events, events.Event{Type: events.TypeUserLoggedOut, UserID: user.ID, Username: user.Username})
	return nil
}

func (s *AuthService) issuePair(user *models.User) (*LoginResult, error) {
	sub := strconv.FormatUint(uint64(user.ID), 10)

	access, accessExp, err := s.Issuer.IssueAccessToken(sub, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.Issuer.IssueRefreshToken(sub)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		User:             user.Public(),
	}, nil
}

// createUser is shared by signup and the admin create route.
func createUser(ctx context.Context, store UserStore, h PasswordHasher, in RegisterInput) (*models.User, error) {
	taken, err := store.UsernameOrEmailTaken(ctx, in.Username, in.Email, 0)
	if err != nil {
		return nil, fmt.Errorf("check identity: %w", err)
	}
	if taken {
		return nil, ErrConflict
	}

	user, err := RegisterUser(h, in)
	if err != nil {
		return nil, err
	}

	if err := store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
