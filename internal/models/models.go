package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// User is the identity record. RefreshToken holds the single honorable refresh token;
// RefreshVersion is bumped on every write to it so rotations can compare-and-swap.
type User struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"        json:"id"`
	Username       string    `gorm:"uniqueIndex;not null"            json:"username"`
	Fullname       string    `gorm:"not null"                        json:"fullname"`
	Email          string    `gorm:"uniqueIndex;not null"            json:"email"`
	PasswordHash   string    `gorm:"not null"                        json:"-"`
	Role           string    `gorm:"not null;default:user"           json:"role"`
	RefreshToken   *string   `gorm:"index"                           json:"-"`
	RefreshVersion uint64    `gorm:"not null;default:0"              json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// PublicUser is the subset of User fields returned to callers.
type PublicUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Fullname: u.Fullname,
		Email:    u.Email,
		Role:     u.Role,
	}
}
