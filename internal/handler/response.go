package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/uch-creative-hub/booking-api/internal/service"
)

// ok writes {"success": true, ...body}.
func ok(c echo.Context, status int, body echo.Map) error {
	if body == nil {
		body = echo.Map{}
	}
	body["success"] = true
	return c.JSON(status, body)
}

func fail(c echo.Context, status int, kind, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "error": kind, "message": msg})
}

// writeError maps a service error onto the response envelope.  Unknown
// errors are logged and reported as a generic 500.
func writeError(c echo.Context, err error) error {
	var (
		status int
		kind   string
	)
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		status, kind = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, service.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrAlreadyRedeemed):
		status, kind = http.StatusConflict, "already_redeemed"
	case errors.Is(err, service.ErrConflict):
		status, kind = http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrExpired):
		status, kind = http.StatusGone, "expired"
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}).Error("request failed")
		return fail(c, http.StatusInternalServerError, "internal", "internal server error")
	}
	return fail(c, status, kind, message(err))
}

// message drops the leading "<kind>: " of a wrapped service error.
func message(err error) string {
	msg := err.Error()
	for _, k := range []error{service.ErrInvalidRequest, service.ErrNotFound, service.ErrForbidden,
		service.ErrConflict, service.ErrExpired} {
		if rest, found := strings.CutPrefix(msg, k.Error()+": "); found {
			return rest
		}
	}
	return msg
}
