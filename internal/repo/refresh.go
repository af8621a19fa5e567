package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/session_manager/internal/models"
)

// SetRefreshToken overwrites the stored token regardless of its current value and
// returns the new version. Used by login, which always supersedes the prior session.
func (r *GormRepo) SetRefreshToken(ctx context.Context, userID uint, token string) (uint64, error) {
	var version uint64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]any{
				"refresh_token":   token,
				"refresh_version": gorm.Expr("refresh_version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.User{}).
			Select("refresh_version").
			Where("id = ?", userID).
			Row().Scan(&version)
	})
	if err != nil {
		return 0, fmt.Errorf("set refresh token: %w", err)
	}
	return version, nil
}

// SwapRefreshToken replaces the stored token only if the row is still at expectedVersion.
// A nil token clears the slot. It reports false when another writer got there first.
func (r *GormRepo) SwapRefreshToken(ctx context.Context, userID uint, expectedVersion uint64, token *string) (bool, error) {
	var value any = gorm.Expr("NULL")
	if token != nil {
		value = *token
	}
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND refresh_version = ?", userID, expectedVersion).
		Updates(map[string]any{
			"refresh_token":   value,
			"refresh_version": gorm.Expr("refresh_version + 1"),
		})
	if res.Error != nil {
		return false, fmt.Errorf("swap refresh token: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
