package tokens

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks signature and expiry only; it never consults the user store.
type Verifier struct {
	AccessSecret  []byte
	RefreshSecret []byte
}

func (v Verifier) VerifyAccess(tokenStr string) (*AccessClaims, error) {
	return AccessClaimsFromToken(tokenStr, v.AccessSecret)
}

func (v Verifier) VerifyRefresh(tokenStr string) (*RefreshClaims, error) {
	return RefreshClaimsFromToken(tokenStr, v.RefreshSecret)
}

func AccessClaimsFromToken(tokenStr string, accessSecret []byte) (*AccessClaims, error) {
	var claims AccessClaims
	if err := parse(tokenStr, accessSecret, &claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess || claims.UserID == "" {
		return nil, ErrInvalid
	}
	return &claims, nil
}

func RefreshClaimsFromToken(tokenStr string, refreshSecret []byte) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := parse(tokenStr, refreshSecret, &claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh || claims.UserID == "" {
		return nil, ErrInvalid
	}
	return &claims, nil
}

func parse(tokenStr string, secret []byte, claims jwt.Claims) error {
	if tokenStr == "" || len(secret) == 0 {
		return ErrInvalid
	}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %w", ErrExpired, err)
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !tkn.Valid {
		return ErrInvalid
	}
	return nil
}
