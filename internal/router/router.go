// Package router wires handlers and middleware onto echo routes.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uch-creative-hub/booking-api/internal/handler"
	"github.com/uch-creative-hub/booking-api/internal/middleware"
	"github.com/uch-creative-hub/booking-api/internal/model"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Auth     *handler.AuthHandler
	Bookings *handler.BookingHandler
	Admin    *handler.AdminHandler
	Checkin  *handler.CheckinHandler
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAPI mounts the /api tree.  limit throttles the endpoints that
// write or authenticate.
func RegisterAPI(e *echo.Echo, h Handlers, jwtSecret string, limit echo.MiddlewareFunc) {
	api := e.Group("/api")
	auth := middleware.JWTAuth(jwtSecret)

	a := api.Group("/auth")
	a.POST("/register", h.Auth.Register, limit)
	a.POST("/login", h.Auth.Login, limit)
	a.POST("/refresh", h.Auth.Refresh, limit)
	a.POST("/logout", h.Auth.Logout)
	a.GET("/me", h.Auth.Me, auth)

	b := api.Group("/bookings")
	b.GET("/available-slots", h.Bookings.AvailableSlots)
	b.GET("/schedule", h.Bookings.Schedule)
	b.POST("", h.Bookings.Create, auth, limit)
	b.GET("/my-history", h.Bookings.MyHistory, auth)

	adm := api.Group("/admin", auth, middleware.RequireRole(model.RoleAdmin))
	adm.GET("/bookings", h.Admin.List)
	adm.PATCH("/bookings/:id/status", h.Admin.UpdateStatus)
	adm.POST("/bookings/:id/generate-qr", h.Admin.GenerateQR)

	api.POST("/checkin", h.Checkin.Checkin, auth, limit)
}
