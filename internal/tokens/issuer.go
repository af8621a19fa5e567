package tokens

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer signs access and refresh tokens. Each class has its own secret so a leaked
// key for one class cannot forge the other.
type Issuer struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

func (i *Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now().UTC()
	}
	return time.Now().UTC()
}

func (i *Issuer) IssueAccessToken(userID, role string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.AccessTTL)
	claims := AccessClaims{
		UserID:           userID,
		Role:             role,
		Type:             TypeAccess,
		RegisteredClaims: registered(userID, now, exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.AccessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

func (i *Issuer) IssueRefreshToken(userID string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.RefreshTTL)
	claims := RefreshClaims{
		UserID:           userID,
		Type:             TypeRefresh,
		RegisteredClaims: registered(userID, now, exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.RefreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, exp, nil
}

// registered carries a random jti so two tokens minted in the same second never collide.
func registered(subject string, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        uuid.NewString(),
	}
}
