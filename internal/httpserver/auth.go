package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/session_manager/internal/config"
	"github.com/Skotchmaster/session_manager/internal/logging"
	"github.com/Skotchmaster/session_manager/internal/service"
)

type AuthHTTP struct {
	Svc    *service.AuthService
	Cookie config.RefreshCookie
}

type signupRequest struct {
	Username string `json:"username" validate:"required"`
	Fullname string `json:"fullname" validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role"     validate:"omitempty,oneof=user admin"`
}

func (r signupRequest) input() service.RegisterInput {
	return service.RegisterInput{
		Username: r.Username,
		Fullname: r.Fullname,
		Email:    r.Email,
		Password: r.Password,
		Role:     r.Role,
	}
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if _, err := h.Svc.Register(c.Request().Context(), req.input()); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "User registered successfully"})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}

	c.SetCookie(createRefreshCookie(h.Cookie, res.RefreshToken))
	logging.FromContext(ctx).Info("login_successful", "user_id", res.User.ID)

	return c.JSON(http.StatusOK, echo.Map{
		"message":     "Login successful",
		"accessToken": res.AccessToken,
		"user":        res.User,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	var raw string
	if cookie, err := c.Cookie(h.Cookie.Name); err == nil {
		raw = cookie.Value
	}

	res, err := h.Svc.Refresh(c.Request().Context(), raw)
	if err != nil {
		return err
	}

	c.SetCookie(createRefreshCookie(h.Cookie, res.RefreshToken))
	return c.JSON(http.StatusOK, echo.Map{"accessToken": res.AccessToken})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	var raw string
	if cookie, err := c.Cookie(h.Cookie.Name); err == nil {
		raw = cookie.Value
	}

	c.SetCookie(deleteRefreshCookie(h.Cookie))
	if err := h.Svc.Logout(c.Request().Context(), raw); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}
