package service

import (
	"context"
	"log/slog"

	"github.com/Skotchmaster/session_manager/internal/audit"
	"github.com/Skotchmaster/session_manager/internal/events"
	"github.com/Skotchmaster/session_manager/internal/logging"
	"github.com/Skotchmaster/session_manager/internal/models"
)

// UserStore is the persistence the session manager needs. Refresh-token writes go through
// SetRefreshToken (unconditional) or SwapRefreshToken (compare-and-swap on RefreshVersion).
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	UsernameOrEmailTaken(ctx context.Context, username, email string, excludeID uint) (bool, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByRefreshToken(ctx context.Context, token string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id uint) error
	SetRefreshToken(ctx context.Context, userID uint, token string) (uint64, error)
	SwapRefreshToken(ctx context.Context, userID uint, expectedVersion uint64, token *string) (bool, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// publish and record never fail the caller; delivery problems are only logged.
func publish(ctx context.Context, p events.Publisher, e events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		logging.FromContext(ctx).Error("event publish failed", "type", e.Type, "user_id", e.UserID, "error", err)
	}
}

func record(ctx context.Context, r audit.Recorder, e audit.Entry) {
	if r == nil {
		return
	}
	if err := r.Record(ctx, e); err != nil {
		logging.FromContext(ctx).Error("audit record failed", "action", e.Action, "user_id", e.UserID, "error", err)
	}
}

func logger(ctx context.Context, svc string) *slog.Logger {
	return logging.FromContext(ctx).With("svc", svc)
}
