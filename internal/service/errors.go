package service

import "errors"

// Error classes. Every error a caller should see wraps exactly one of these.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// Error is a caller-safe failure: Msg may be shown to clients, Kind selects the status.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

var (
	ErrConflict     = &Error{Kind: ErrBadRequest, Msg: "Username or Email already in use"}
	ErrInvalidRole  = &Error{Kind: ErrBadRequest, Msg: "Role must be either user or admin"}
	ErrPasswordLong = &Error{Kind: ErrBadRequest, Msg: "Password must be at most 72 bytes"}

	ErrInvalidCredentials = &Error{Kind: ErrUnauthorized, Msg: "Invalid credentials"}
	ErrRefreshMissing     = &Error{Kind: ErrUnauthorized, Msg: "Refresh token not found"}

	ErrInvalidRefreshToken = &Error{Kind: ErrForbidden, Msg: "Invalid refresh token"}
	ErrSessionNotFound     = &Error{Kind: ErrForbidden, Msg: "User not found or refresh token not valid"}
	ErrRefreshReuse        = &Error{Kind: ErrForbidden, Msg: "Refresh token mismatch"}
	ErrRefreshRace         = &Error{Kind: ErrForbidden, Msg: "Refresh token already rotated"}

	ErrUserNotFound = &Error{Kind: ErrNotFound, Msg: "User not found"}
)
