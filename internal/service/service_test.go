package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/session_manager/internal/audit"
	"github.com/Skotchmaster/session_manager/internal/db"
	"github.com/Skotchmaster/session_manager/internal/events"
	"github.com/Skotchmaster/session_manager/internal/hash"
	"github.com/Skotchmaster/session_manager/internal/metrics"
	"github.com/Skotchmaster/session_manager/internal/repo"
	"github.com/Skotchmaster/session_manager/internal/tokens"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (r *recordingAudit) Record(_ context.Context, e audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return r.err
}

func (r *recordingAudit) Search(_ context.Context, q audit.Query) (int64, []audit.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.Entry
	for _, e := range r.entries {
		if e.UserID == q.UserID {
			out = append(out, e)
		}
	}
	return int64(len(out)), out, nil
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type fixture struct {
	repo   *repo.GormRepo
	auth   *AuthService
	users  *UserService
	events *recordingPublisher
	audit  *recordingAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gdb, err := db.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := repo.New(gdb)
	hasher := hash.Bcrypt{Cost: bcrypt.MinCost}
	pub := &recordingPublisher{}
	rec := &recordingAudit{}
	access, refresh := []byte("test-jwt-secret"), []byte("test-refresh-secret")

	return &fixture{
		repo: r,
		auth: &AuthService{
			Repo:   r,
			Hasher: hasher,
			Issuer: &tokens.Issuer{
				AccessSecret:  access,
				RefreshSecret: refresh,
				AccessTTL:     15 * time.Minute,
				RefreshTTL:    7 * 24 * time.Hour,
			},
			Verifier: tokens.Verifier{AccessSecret: access, RefreshSecret: refresh},
			Events:   pub,
			Audit:    rec,
			Metrics:  metrics.New(),
		},
		users:  &UserService{Repo: r, Hasher: hasher, Events: pub, Audit: rec},
		events: pub,
		audit:  rec,
	}
}

func (f *fixture) register(t *testing.T, username, email, role string) uint {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterInput{
		Username: username,
		Fullname: "Test " + username,
		Email:    email,
		Password: "secret123",
		Role:     role,
	})
	require.NoError(t, err)
	return u.ID
}

func ptr(s string) *string { return &s }

// swapHookStore runs before() ahead of the first SwapRefreshToken call, letting a test
// slip a concurrent writer in between the read and the compare-and-swap.
type swapHookStore struct {
	*repo.GormRepo
	once   sync.Once
	before func()
}

func (s *swapHookStore) SwapRefreshToken(ctx context.Context, userID uint, expected uint64, token *string) (bool, error) {
	s.once.Do(s.before)
	return s.GormRepo.SwapRefreshToken(ctx, userID, expected, token)
}

var errBroker = errors.New("broker down")
