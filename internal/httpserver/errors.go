package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/session_manager/internal/logging"
	"github.com/Skotchmaster/session_manager/internal/service"
)

const msgServerError = "Server error"

// HTTPErrorHandler renders every error as {message}, or {errors:[...]} for validation failures.
// Anything not classified by the service layer becomes a 500 without details.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he := toHTTPError(err)
	if he.Code >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("internal error", "error", err)
	}

	var body any
	switch m := he.Message.(type) {
	case string:
		body = echo.Map{"message": m}
	default:
		body = m
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(he.Code)
	} else {
		err = c.JSON(he.Code, body)
	}
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("write error response", "error", err)
	}
}

func toHTTPError(err error) *echo.HTTPError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return &echo.HTTPError{Code: http.StatusBadRequest, Message: echo.Map{"errors": verr.Fields}}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if _, ok := he.Message.(string); !ok {
			return &echo.HTTPError{Code: he.Code, Message: http.StatusText(he.Code)}
		}
		return he
	}

	var se *service.Error
	if errors.As(err, &se) {
		return &echo.HTTPError{Code: statusFor(se.Kind), Message: se.Msg}
	}
	return &echo.HTTPError{Code: http.StatusInternalServerError, Message: msgServerError}
}

func statusFor(kind error) int {
	switch {
	case errors.Is(kind, service.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(kind, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(kind, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, service.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
