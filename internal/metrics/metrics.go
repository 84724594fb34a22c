package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "creative_hub"

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_created_total",
			Help:      "Count of booking requests by room.",
		},
		[]string{"room"},
	)

	bookingRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_create_rejected_total",
			Help:      "Count of booking requests refused, by reason.",
		},
		[]string{"reason"},
	)

	adminDecision = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_decision_total",
			Help:      "Count of admin decisions over bookings.",
		},
		[]string{"decision"},
	)

	qrIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qr_token_issued_total",
			Help:      "Count of generate-QR requests by outcome (new or existing).",
		},
		[]string{"result"},
	)

	checkins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkin_total",
			Help:      "Count of token redemptions by outcome.",
		},
		[]string{"result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingRejected, adminDecision, qrIssued, checkins)
	})
}

func IncBookingCreated(room string) {
	bookingCreated.WithLabelValues(room).Inc()
}

func IncBookingRejected(reason string) {
	bookingRejected.WithLabelValues(reason).Inc()
}

func IncAdminDecision(decision string) {
	adminDecision.WithLabelValues(decision).Inc()
}

func IncQRIssued(result string) {
	qrIssued.WithLabelValues(result).Inc()
}

func IncCheckin(result string) {
	checkins.WithLabelValues(result).Inc()
}
