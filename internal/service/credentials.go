package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/session_manager/internal/hash"
	"github.com/Skotchmaster/session_manager/internal/models"
)

type RegisterInput struct {
	Username string
	Fullname string
	Email    string
	Password string
	Role     string
}

// RegisterUser builds a new identity record with the password already hashed.
// It does not persist anything.
func RegisterUser(h PasswordHasher, in RegisterInput) (*models.User, error) {
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	digest, err := hashPassword(h, in.Password)
	if err != nil {
		return nil, err
	}
	return &models.User{
		Username:     in.Username,
		Fullname:     in.Fullname,
		Email:        in.Email,
		PasswordHash: digest,
		Role:         role,
	}, nil
}

// UpdatePassword replaces the digest on u. The caller persists u.
func UpdatePassword(h PasswordHasher, u *models.User, password string) error {
	digest, err := hashPassword(h, password)
	if err != nil {
		return err
	}
	u.PasswordHash = digest
	return nil
}

// hashPassword reports over-long input as a caller error rather than an internal one.
func hashPassword(h PasswordHasher, password string) (string, error) {
	digest, err := h.Hash(password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooLong) {
			return "", ErrPasswordLong
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return digest, nil
}
