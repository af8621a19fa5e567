package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/session_manager/internal/audit"
	"github.com/Skotchmaster/session_manager/internal/events"
	"github.com/Skotchmaster/session_manager/internal/models"
	"github.com/Skotchmaster/session_manager/internal/repo"
)

type UserService struct {
	Repo   UserStore
	Hasher PasswordHasher
	Events events.Publisher
	Audit  audit.Recorder
}

// Actor is the authenticated caller as established by the access gate.
type Actor struct {
	ID   uint
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// UpdateInput fields are optional; nil or empty leaves the stored value alone.
type UpdateInput struct {
	Username *string
	Fullname *string
	Email    *string
	Password *string
	Role     *string
}

func (s *UserService) List(ctx context.Context) ([]models.PublicUser, error) {
	users, err := s.Repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]models.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.PublicUser, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	pub := user.Public()
	return &pub, nil
}

func (s *UserService) Create(ctx context.Context, in RegisterInput) (*models.PublicUser, error) {
	user, err := createUser(ctx, s.Repo, s.Hasher, in)
	if err != nil {
		return nil, err
	}
	logger(ctx, "users.create").Info("user created", "user_id", user.ID, "role", user.Role)
	publish(ctx, s.Events, events.Event{Type: events.TypeUserRegistered, UserID: user.ID, Username: user.Username})
	pub := user.Public()
	return &pub, nil
}

// Update applies in to user id. Role changes from non-admin actors are dropped silently.
func (s *UserService) Update(ctx context.Context, actor Actor, id uint, in UpdateInput) (*models.PublicUser, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	newName, newEmail := "", ""
	if set(in.Username) && *in.Username != user.Username {
		newName = *in.Username
	}
	if set(in.Email) && *in.Email != user.Email {
		newEmail = *in.Email
	}
	if newName != "" || newEmail != "" {
		taken, err := s.Repo.UsernameOrEmailTaken(ctx, newName, newEmail, user.ID)
		if err != nil {
			return nil, fmt.Errorf("check identity: %w", err)
		}
		if taken {
			return nil, ErrConflict
		}
	}

	if newName != "" {
		user.Username = newName
	}
	if newEmail != "" {
		user.Email = newEmail
	}
	if set(in.Fullname) {
		user.Fullname = *in.Fullname
	}
	if set(in.Password) {
		if err := UpdatePassword(s.Hasher, user, *in.Password); err != nil {
			return nil, err
		}
	}
	if set(in.Role) && actor.IsAdmin() {
		if !models.ValidRole(*in.Role) {
			return nil, ErrInvalidRole
		}
		user.Role = *in.Role
	}

	if err := s.Repo.UpdateProfile(ctx, user); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			return nil, ErrConflict
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	logger(ctx, "users.update").Info("user updated", "user_id", user.ID, "actor_id", actor.ID)
	publish(ctx, s.Events, events.Event{Type: events.TypeUserUpdated, UserID: user.ID, Username: user.Username})
	pub := user.Public()
	return &pub, nil
}

func (s *UserService) Delete(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	logger(ctx, "users.delete").Info("user deleted", "user_id", id)
	publish(ctx, s.Events, events.Event{Type: events.TypeUserDeleted, UserID: id})
	return nil
}

// AuditTrail returns the most recent audit entries for a user.
func (s *UserService) AuditTrail(ctx context.Context, id uint, from, size int) (int64, []audit.Entry, error) {
	if s.Audit == nil {
		return 0, nil, nil
	}
	total, entries, err := s.Audit.Search(ctx, audit.Query{UserID: id, From: from, Size: size})
	if err != nil {
		return 0, nil, fmt.Errorf("search audit: %w", err)
	}
	return total, entries, nil
}

func (s *UserService) find(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func set(p *string) bool { return p != nil && *p != "" }
