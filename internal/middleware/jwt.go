package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/uch-creative-hub/booking-api/internal/utils"
)

// JWTAuth validates the Bearer access token and stores the caller's id
// (uint64) and role in the context under "user_id" and "role".  Handlers
// read them back with UserID and Role.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return deny(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			}
			id, err := utils.ParseAccessToken(secret, strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
			if err != nil {
				return deny(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			}
			c.Set(ctxUserID, id.UserID)
			c.Set(ctxRole, id.Role)
			return next(c)
		}
	}
}

// deny writes the service's error envelope.
func deny(c echo.Context, status int, kind, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "error": kind, "message": msg})
}
