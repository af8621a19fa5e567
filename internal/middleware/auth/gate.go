package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/session_manager/internal/logging"
	"github.com/Skotchmaster/session_manager/internal/metrics"
	"github.com/Skotchmaster/session_manager/internal/models"
	"github.com/Skotchmaster/session_manager/internal/tokens"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

const (
	msgTokenMissing = "Access token missing"
	msgTokenInvalid = "Invalid or expired token"
	msgAdminsOnly   = "Access denied: Admins only"
	msgDenied       = "Access denied"
)

// Gate guards routes with the access token from the Authorization header.
// It never looks at the refresh cookie.
type Gate struct {
	AccessSecret []byte
	Metrics      *metrics.Metrics
}

func NewGate(accessSecret []byte, m *metrics.Metrics) *Gate {
	return &Gate{AccessSecret: accessSecret, Metrics: m}
}

// Authenticate verifies the bearer token and stores the caller identity on the context.
func (g *Gate) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if raw == "" {
			g.Metrics.GateDenied("missing_token")
			return echo.NewHTTPError(http.StatusUnauthorized, msgTokenMissing)
		}

		claims, err := tokens.AccessClaimsFromToken(raw, g.AccessSecret)
		if err != nil {
			logging.FromContext(c.Request().Context()).Debug("access token rejected", "error", err)
			g.Metrics.GateDenied("invalid_token")
			return echo.NewHTTPError(http.StatusForbidden, msgTokenInvalid)
		}
		id, err := strconv.ParseUint(claims.UserID, 10, 64)
		if err != nil {
			g.Metrics.GateDenied("invalid_token")
			return echo.NewHTTPError(http.StatusForbidden, msgTokenInvalid)
		}

		c.Set(ctxUserID, uint(id))
		c.Set(ctxRole, claims.Role)
		return next(c)
	}
}

// RequireAdmin must run after Authenticate.
func (g *Gate) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if Role(c) != models.RoleAdmin {
			g.Metrics.GateDenied("not_admin")
			return echo.NewHTTPError(http.StatusForbidden, msgAdminsOnly)
		}
		return next(c)
	}
}

// RequireSelfOrAdmin lets admins through and otherwise requires the path parameter
// to name the caller's own id.
func (g *Gate) RequireSelfOrAdmin(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if Role(c) == models.RoleAdmin {
				return next(c)
			}
			uid, ok := UserID(c)
			target, err := strconv.ParseUint(c.Param(param), 10, 64)
			if !ok || err != nil || uint(target) != uid {
				g.Metrics.GateDenied("not_owner")
				return echo.NewHTTPError(http.StatusForbidden, msgDenied)
			}
			return next(c)
		}
	}
}

func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(ctxUserID).(uint)
	return id, ok
}

func Role(c echo.Context) string {
	role, _ := c.Get(ctxRole).(string)
	return role
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
