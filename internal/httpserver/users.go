package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/session_manager/internal/audit"
	authmw "github.com/Skotchmaster/session_manager/internal/middleware/auth"
	"github.com/Skotchmaster/session_manager/internal/service"
	"github.com/Skotchmaster/session_manager/internal/util"
)

type UsersHTTP struct {
	Svc *service.UserService
}

type updateRequest struct {
	Username *string `json:"username" validate:"omitempty,min=1"`
	Fullname *string `json:"fullname" validate:"omitempty,min=1"`
	Email    *string `json:"email"    validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6,max=72"`
	Role     *string `json:"role"     validate:"omitempty,oneof=user admin"`
}

func (h *UsersHTTP) List(c echo.Context) error {
	users, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UsersHTTP) Me(c echo.Context) error {
	id, ok := authmw.UserID(c)
	if !ok {
		return service.ErrUserNotFound
	}
	user, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UsersHTTP) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	user, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UsersHTTP) Create(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.Svc.Create(c.Request().Context(), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "User created", "user": user})
}

func (h *UsersHTTP) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	actorID, _ := authmw.UserID(c)
	actor := service.Actor{ID: actorID, Role: authmw.Role(c)}
	user, err := h.Svc.Update(c.Request().Context(), actor, id, service.UpdateInput{
		Username: req.Username,
		Fullname: req.Fullname,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User updated", "user": user})
}

func (h *UsersHTTP) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted"})
}

// Audit lists the user's recent auth events, newest first. Query params: page, size.
func (h *UsersHTTP) Audit(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, size := util.Calculate(page, size)

	total, entries, err := h.Svc.AuditTrail(c.Request().Context(), id, from, size)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "entries": entries})
}

// pathID treats an id that cannot name a user the same as a missing user.
func pathID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, service.ErrUserNotFound
	}
	return uint(id), nil
}
