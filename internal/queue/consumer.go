package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Mailer delivers a rendered notification.
type Mailer interface {
	Send(to, subject, body string) error
}

// StartNotificationConsumer connects to RabbitMQ, declares the notification
// queue (durable) and emails every event it receives.  It reconnects with
// exponential backoff and returns only when ctx is cancelled.  Messages that
// cannot be handled are rejected without requeue so a poison message cannot
// spin the worker.
func StartNotificationConsumer(ctx context.Context, url string, mailer Mailer) error {
	log := logrus.WithField("component", "notification-consumer")
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, mailer, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, mailer Mailer, log *logrus.Entry) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		log.WithError(err).Warn("set QoS failed")
	}
	if _, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(NotificationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(d.Body, mailer); err != nil {
				log.WithError(err).WithField("message_id", d.MessageId).Error("handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(body []byte, mailer Mailer) error {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Recipient == "" {
		logrus.WithFields(logrus.Fields{"type": ev.Type, "booking_id": ev.BookingID}).
			Warn("notification without recipient dropped")
		return nil
	}
	subject, text, err := ev.Message()
	if err != nil {
		return err
	}
	if err := mailer.Send(ev.Recipient, subject, text); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	logrus.WithFields(logrus.Fields{"type": ev.Type, "booking_id": ev.BookingID, "to": ev.Recipient}).
		Info("notification sent")
	return nil
}
