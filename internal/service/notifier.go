package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	q "github.com/uch-creative-hub/booking-api/internal/queue"
)

// Publisher sends a notification event to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev q.NotificationEvent) error
}

// AMQPPublisher publishes events to the durable notification queue.  It
// dials per publish; notification volume is a handful per booking.
type AMQPPublisher struct {
	URL   string
	Queue string
}

func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Queue: q.NotificationQueue}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev q.NotificationEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", p.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// Notifier publishes events in the background so a slow or absent broker
// never fails or delays the request that produced them.
type Notifier struct {
	pub     Publisher
	timeout time.Duration
}

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub, timeout: 5 * time.Second}
}

// Notify publishes ev on its own goroutine.  Errors are logged.  A nil
// Notifier drops events.
func (n *Notifier) Notify(ev q.NotificationEvent) {
	if n == nil || n.pub == nil {
		return
	}
	if ev.OccurredAt == "" {
		ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.pub.Publish(ctx, ev); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"type":       ev.Type,
				"booking_id": ev.BookingID,
			}).Warn("publish notification failed")
		}
	}()
}
