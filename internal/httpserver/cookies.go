package httpserver

import (
	"net/http"
	"time"

	"github.com/Skotchmaster/session_manager/internal/config"
)

func createRefreshCookie(rc config.RefreshCookie, value string) *http.Cookie {
	return &http.Cookie{
		Name:     rc.Name,
		Value:    value,
		Path:     rc.Path,
		Expires:  time.Now().Add(rc.MaxAge),
		MaxAge:   int(rc.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   rc.Secure,
		SameSite: rc.SameSite,
	}
}

func deleteRefreshCookie(rc config.RefreshCookie) *http.Cookie {
	return &http.Cookie{
		Name:     rc.Name,
		Value:    "",
		Path:     rc.Path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   rc.Secure,
		SameSite: rc.SameSite,
	}
}
