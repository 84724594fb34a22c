package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/uch-creative-hub/booking-api/internal/config"
	"github.com/uch-creative-hub/booking-api/internal/database"
	"github.com/uch-creative-hub/booking-api/internal/handler"
	"github.com/uch-creative-hub/booking-api/internal/metrics"
	"github.com/uch-creative-hub/booking-api/internal/middleware"
	"github.com/uch-creative-hub/booking-api/internal/repository"
	"github.com/uch-creative-hub/booking-api/internal/router"
	"github.com/uch-creative-hub/booking-api/internal/service"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	loc, err := cfg.Location()
	if err != nil {
		logrus.Fatalf("invalid APP_TIMEZONE %q: %v", cfg.Timezone, err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		logrus.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	metrics.Register()

	users := repository.NewUserRepo(db)
	refresh := repository.NewTokenRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	qrRepo := repository.NewQRTokenRepo(db)
	checkinRepo := repository.NewCheckinRepo(db)

	cal := service.NewCalendar(loc, cfg.Rooms)
	notifier := service.NewNotifier(service.NewAMQPPublisher(cfg.RabbitURL))
	if cfg.AdminEmail == "" {
		logrus.Warn("ADMIN_EMAIL not set; new-booking notifications will be dropped")
	}
	slots := service.NewAvailabilityService(cal, bookingRepo)
	bookings := service.NewBookingService(cal, bookingRepo, notifier, cfg.AdminEmail)
	checkins := service.NewCheckinService(cal, bookingRepo, qrRepo, checkinRepo, notifier, cfg.AdminEmail)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logrus.StandardLogger()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))

	router.RegisterRoutes(e)
	router.RegisterAPI(e, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, refresh),
		Bookings: handler.NewBookingHandler(slots, bookings, loc),
		Admin:    handler.NewAdminHandler(bookings, checkins, loc),
		Checkin:  handler.NewCheckinHandler(checkins, loc),
	}, cfg.JWTSecret, middleware.RateLimit(config.LoadRateLimitConfig(), rdb))

	go func() {
		addr := ":" + cfg.Port
		logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "tz": loc.String()}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logrus.Errorf("shutdown: %v", err)
	}
	logrus.Info("server stopped")
}

func setupLogging(cfg config.Config) {
	logrus.SetOutput(os.Stdout)
	if cfg.Env == "prod" || cfg.Env == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
