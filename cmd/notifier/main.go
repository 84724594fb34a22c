// Command notifier consumes booking events from RabbitMQ and emails them.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/uch-creative-hub/booking-api/internal/config"
	"github.com/uch-creative-hub/booking-api/internal/mail"
	"github.com/uch-creative-hub/booking-api/internal/queue"
)

func main() {
	cfg := config.Load()
	logrus.SetOutput(os.Stdout)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logrus.WithField("queue", queue.NotificationQueue).Info("notifier started")
	err := queue.StartNotificationConsumer(ctx, cfg.RabbitURL, mail.NewSMTPMailer(cfg.SMTP))
	if err != nil && !errors.Is(err, context.Canceled) {
		logrus.Fatalf("notifier: %v", err)
	}
	logrus.Info("notifier stopped")
}
