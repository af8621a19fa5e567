package auth

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/session_manager/internal/metrics"
	"github.com/Skotchmaster/session_manager/internal/tokens"
)

var testIssuer = &tokens.Issuer{
	AccessSecret:  []byte("test-jwt-secret"),
	RefreshSecret: []byte("test-refresh-secret"),
	AccessTTL:     15 * time.Minute,
	RefreshTTL:    time.Hour,
}

func newTestEcho() *echo.Echo {
	g := NewGate(testIssuer.AccessSecret, metrics.New())
	e := echo.New()

	whoami := func(c echo.Context) error {
		id, _ := UserID(c)
		return c.String(http.StatusOK, strconv.FormatUint(uint64(id), 10)+":"+Role(c))
	}
	users := e.Group("/users", g.Authenticate)
	users.GET("/me", whoami)
	users.GET("", whoami, g.RequireAdmin)
	users.GET("/:id", whoami, g.RequireSelfOrAdmin("id"))
	return e
}

func accessToken(t *testing.T, id, role string) string {
	t.Helper()
	tok, _, err := testIssuer.IssueAccessToken(id, role)
	require.NoError(t, err)
	return tok
}

func do(e *echo.Echo, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authz != "" {
		req.Header.Set(echo.HeaderAuthorization, authz)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	e := newTestEcho()
	refresh, _, err := testIssuer.IssueRefreshToken("1")
	require.NoError(t, err)

	expired := *testIssuer
	expired.Now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, _, err := expired.IssueAccessToken("1", "user")
	require.NoError(t, err)

	cases := []struct {
		name   string
		authz  string
		status int
		body   string
	}{
		{"no header", "", http.StatusUnauthorized, "Access token missing"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "Access token missing"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, "Access token missing"},
		{"garbage", "Bearer nope", http.StatusForbidden, "Invalid or expired token"},
		{"expired", "Bearer " + stale, http.StatusForbidden, "Invalid or expired token"},
		{"refresh token", "Bearer " + refresh, http.StatusForbidden, "Invalid or expired token"},
		{"valid", "Bearer " + accessToken(t, "1", "user"), http.StatusOK, "1:user"},
		{"lowercase scheme", "bearer " + accessToken(t, "1", "user"), http.StatusOK, "1:user"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, "/users/me", tc.authz)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.body)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	e := newTestEcho()

	rec := do(e, "/users", "Bearer "+accessToken(t, "1", "user"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access denied: Admins only")

	rec = do(e, "/users", "Bearer "+accessToken(t, "2", "admin"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2:admin", rec.Body.String())
}

func TestRequireSelfOrAdmin(t *testing.T) {
	e := newTestEcho()

	cases := []struct {
		name   string
		path   string
		id     string
		role   string
		status int
	}{
		{"self", "/users/5", "5", "user", http.StatusOK},
		{"other user", "/users/6", "5", "user", http.StatusForbidden},
		{"non numeric as user", "/users/abc", "5", "user", http.StatusForbidden},
		{"admin on other", "/users/6", "1", "admin", http.StatusOK},
		{"admin on non numeric", "/users/abc", "1", "admin", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, tc.path, "Bearer "+accessToken(t, tc.id, tc.role))
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusForbidden {
				assert.Contains(t, rec.Body.String(), `"Access denied"`)
			}
		})
	}
}

func TestRequireSelfOrAdmin_UnauthenticatedShortCircuits(t *testing.T) {
	e := newTestEcho()

	rec := do(e, "/users/5", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("  Bearer   abc "))
	assert.Empty(t, bearerToken("Bearer"))
	assert.Empty(t, bearerToken("Token abc"))
	assert.Empty(t, bearerToken(""))
}
