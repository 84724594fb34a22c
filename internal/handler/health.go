package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness probe; it answers "ok" without touching
// dependencies.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
