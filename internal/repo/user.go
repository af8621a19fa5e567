package repo

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/session_manager/internal/models"
)

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

// UsernameOrEmailTaken reports whether another user (not excludeID) holds either value.
// Empty values are ignored.
func (r *GormRepo) UsernameOrEmailTaken(ctx context.Context, username, email string, excludeID uint) (bool, error) {
	q := r.DB.WithContext(ctx).Model(&models.User{})
	switch {
	case username != "" && email != "":
		q = q.Where("username = ? OR email = ?", username, email)
	case username != "":
		q = q.Where("username = ?", username)
	case email != "":
		q = q.Where("email = ?", email)
	default:
		return false, nil
	}
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return count > 0, nil
}

func (r *GormRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *GormRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *GormRepo) FindByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return r.findOne(ctx, "refresh_token = ?", token)
}

func (r *GormRepo) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *GormRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.DB.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateProfile writes the profile columns only; the refresh-token slot is left to the
// compare-and-swap methods so a profile edit never clobbers a concurrent rotation.
func (r *GormRepo) UpdateProfile(ctx context.Context, u *models.User) error {
	res := r.DB.WithContext(ctx).Model(u).
		Select("username", "fullname", "email", "password_hash", "role", "updated_at").
		Updates(u)
	if res.Error != nil {
		return fmt.Errorf("update user: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) DeleteUser(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
