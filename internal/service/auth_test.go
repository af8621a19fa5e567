package service

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/session_manager/internal/audit"
	"github.com/Skotchmaster/session_manager/internal/events"
	"github.com/Skotchmaster/session_manager/internal/models"
	"github.com/Skotchmaster/session_manager/internal/tokens"
)

func TestAuthService_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.register(t, "alice", "alice@x.com", "")

	u, err := f.repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.NotEqual(t, "secret123", u.PasswordHash)
	assert.Nil(t, u.RefreshToken)
	assert.Equal(t, []string{events.TypeUserRegistered}, f.events.types())

	_, err = f.auth.Register(ctx, RegisterInput{Username: "alice", Fullname: "A", Email: "new@x.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = f.auth.Register(ctx, RegisterInput{Username: "bob", Fullname: "B", Email: "alice@x.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.auth.Register(ctx, RegisterInput{Username: "carol", Fullname: "C", Email: "c@x.com", Password: "secret123", Role: "root"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestAuthService_Register_PublishFailureIgnored(t *testing.T) {
	f := newFixture(t)
	f.events.err = errBroker

	f.register(t, "alice", "alice@x.com", "admin")
}

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "alice", "alice@x.com", "admin")

	res, err := f.auth.Login(ctx, "alice@x.com", "secret123")
	require.NoError(t, err)

	claims, err := f.auth.Verifier.VerifyAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatUint(uint64(id), 10), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	stored, err := f.repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, res.RefreshToken, *stored.RefreshToken)
	assert.Equal(t, models.PublicUser{ID: id, Username: "alice", Fullname: "Test alice", Email: "alice@x.com", Role: "admin"}, res.User)

	assert.Contains(t, f.events.types(), events.TypeUserLoggedIn)
	assert.Equal(t, []string{audit.ActionLoginSuccess}, f.audit.actions())
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "")

	_, err := f.auth.Login(ctx, "alice@x.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.auth.Login(ctx, "nobody@x.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, []string{audit.ActionLoginFailed, audit.ActionLoginFailed}, f.audit.actions())
}

func TestAuthService_Login_SupersedesPreviousSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "")

	first, err := f.auth.Login(ctx, "alice@x.com", "secret123")
	require.NoError(t, err)
	second, err := f.auth.Login(ctx, "alice@x.com", "secret123")
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.auth.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshReuse)

	_, err = f.auth.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestAuthService_Refresh_Rotates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "alice", "alice@x.com", "")

	login, err := f.auth.Login(ctx, "alice@x.com", "secret123")
	require.NoError(t, err)

	next, err := f.auth.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, next.RefreshToken)
	assert.NotEmpty(t, next.AccessToken)

	stored, err := f.repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, next.RefreshToken, *stored.RefreshToken)

	// The old token is now a replay.
	_, err = f.auth.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshReuse)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, f.audit.actions(), audit.ActionRefreshReuse)

	// A failed replay does not revoke the live token.
	_, err = f.auth.Refresh(ctx, next.RefreshToken)
	assert.NoError(t, err)
}

func TestAuthService_Refresh_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "alice", "alice@x.com", "")
	sub := strconv.FormatUint(uint64(id), 10)

	_, err := f.auth.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrRefreshMissing)

	_, err = f.auth.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	login, err := f.auth.Login(ctx, "alice@x.com", "secret123")
	require.NoError(t, err)
	_, err = f.auth.Refresh(ctx, login.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	other := &tokens.Issuer{AccessSecret: []byte("a"), RefreshSecret: []byte("b"), RefreshTTL: f.auth.Issuer.RefreshTTL}
	forged, _, err := other.IssueRefreshToken(sub)
	require.NoError(t, err)
	_, err = f.auth.Refresh(ctx, forged)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	ghost, _, err := f.auth.Issuer.IssueRefreshToken("9999")
	require.NoError(t, err)
	_, err = f.auth.Refresh(ctx, ghost)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAuthService_Refresh_AfterLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "alice", "alice@x.com", "")

	login, err := f.auth.Login(ctx, "alice@x.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, f.auth.Logout(ctx, login.RefreshToken))

	stored, err := f.repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, stored.RefreshToken)

	_, err = f.auth.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Contains(t, f.events.types(), events.TypeUserLoggedOut)
}

func TestAuthService_Refresh_LostRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "alice", "alice@x.com", "")

	login, err := f.auth.Login(ctx, "alice@x.com", "secret123")
	require.NoError(t, err)

	store := &swapHookStore{GormRepo: f.repo}
	store.before = func() {
		// Another request rotates the same session first.
		_, err := f.repo.SetRefreshToken(ctx, id, "rotated-elsewhere")
		require.NoError(t, err)
	}
	f.auth.Repo = store

	_, err = f.auth.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshRace)
	assert.Contains(t, f.audit.actions(), audit.ActionRefreshRace)

	stored, err := f.repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "rotated-elsewhere", *stored.RefreshToken)
}

func TestAuthService_Logout_NoOps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "")

	assert.NoError(t, f.auth.Logout(ctx, ""))
	assert.NoError(t, f.auth.Logout(ctx, "not-a-live-token"))

	login, err := f.auth.Login(ctx, "alice@x.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, f.auth.Logout(ctx, login.RefreshToken))
	assert.NoError(t, f.auth.Logout(ctx, login.RefreshToken))
}

func TestAuthService_AuditFailureIgnored(t *testing.T) {
	f := newFixture(t)
	f.audit.err = errors.New("es unavailable")
	f.register(t, "alice", "alice@x.com", "")

	_, err := f.auth.Login(context.Background(), "alice@x.com", "secret123")
	assert.NoError(t, err)
}

func TestAuthService_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a", "a@x.com", "")

	_, err := f.auth.Register(ctx, RegisterInput{Username: "a2", Fullname: "A", Email: "a@x.com", Password: "secret123"})
	require.ErrorIs(t, err, ErrConflict)

	login, err := f.auth.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	t1, r1 := login.AccessToken, login.RefreshToken

	second, err := f.auth.Refresh(ctx, r1)
	require.NoError(t, err)
	t2, r2 := second.AccessToken, second.RefreshToken
	require.NotEqual(t, t1, t2)
	require.NotEqual(t, r1, r2)

	_, err = f.auth.Refresh(ctx, r1)
	require.ErrorIs(t, err, ErrRefreshReuse)

	third, err := f.auth.Refresh(ctx, r2)
	require.NoError(t, err)
	t3, r3 := third.AccessToken, third.RefreshToken
	require.NotEqual(t, t2, t3)
	require.NotEqual(t, r2, r3)

	require.NoError(t, f.auth.Logout(ctx, r3))
	_, err = f.auth.Refresh(ctx, r3)
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.ErrorIs(t, err, ErrForbidden)
}
