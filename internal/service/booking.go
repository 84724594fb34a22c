package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/uch-creative-hub/booking-api/internal/metrics"
	"github.com/uch-creative-hub/booking-api/internal/model"
	q "github.com/uch-creative-hub/booking-api/internal/queue"
	"github.com/uch-creative-hub/booking-api/internal/repository"
)

// BookingStore is the persistence the booking flows need.
type BookingStore interface {
	OccupancyReader
	CreateIfFree(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (model.BookingWithUser, error)
	ListSchedule(ctx context.Context, date string) ([]model.BookingWithUser, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	ListAll(ctx context.Context) ([]model.BookingWithUser, error)
	UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) error
}

// CreateBookingInput is a reservation request.  Date is a local
// YYYY-MM-DD; StartTime and EndTime are local "HH:MM" on the hour.
type CreateBookingInput struct {
	Room      string
	Purpose   string
	Audience  int
	Date      string
	StartTime string
	EndTime   string
}

type BookingService struct {
	cal        *Calendar
	store      BookingStore
	notifier   *Notifier
	adminEmail string
	now        func() time.Time
}

func NewBookingService(cal *Calendar, store BookingStore, notifier *Notifier, adminEmail string) *BookingService {
	return &BookingService{cal: cal, store: store, notifier: notifier, adminEmail: adminEmail, now: time.Now}
}

// Create validates and stores a Pending booking for userID.  Overlapping an
// occupying booking of the same room is a Conflict.
func (s *BookingService) Create(ctx context.Context, userID uint64, in CreateBookingInput) (model.BookingWithUser, error) {
	room, err := s.cal.Room(in.Room)
	if err != nil {
		return model.BookingWithUser{}, err
	}
	day, err := s.cal.ParseDate(in.Date)
	if err != nil {
		return model.BookingWithUser{}, err
	}
	purpose := strings.TrimSpace(in.Purpose)
	if purpose == "" {
		return model.BookingWithUser{}, invalid("purpose is required")
	}
	if in.Audience < 1 {
		return model.BookingWithUser{}, invalid("audience must be at least 1")
	}
	startH, err := parseHour(in.StartTime)
	if err != nil {
		return model.BookingWithUser{}, err
	}
	endH, err := parseHour(in.EndTime)
	if err != nil {
		return model.BookingWithUser{}, err
	}
	if endH <= startH {
		return model.BookingWithUser{}, invalid("end time must be after start time")
	}

	today := s.now().In(s.cal.Location())
	if day.Before(time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.cal.Location())) {
		metrics.IncBookingRejected("past_date")
		return model.BookingWithUser{}, invalid("booking date is in the past")
	}
	_, hours, open := s.cal.OpenWindow(day)
	if !open {
		metrics.IncBookingRejected("closed")
		return model.BookingWithUser{}, invalid("the creative hub is closed on %s", day.Weekday())
	}
	if startH < hours.Start || endH > hours.End {
		metrics.IncBookingRejected("outside_hours")
		return model.BookingWithUser{}, invalid("bookings on %s must fall between %02d:00 and %02d:00",
			day.Weekday(), hours.Start, hours.End)
	}

	b := model.Booking{
		UserID:      userID,
		Room:        room,
		Purpose:     purpose,
		Audience:    in.Audience,
		BookingDate: day.Format(dateLayout),
		StartTime:   s.cal.At(day, startH, 0),
		EndTime:     s.cal.At(day, endH, 0),
		Status:      model.BookingPending,
	}
	if err := s.store.CreateIfFree(ctx, &b); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			metrics.IncBookingRejected("overlap")
			return model.BookingWithUser{}, fmt.Errorf("%w: %s is already booked in that time range", ErrConflict, room)
		}
		return model.BookingWithUser{}, fmt.Errorf("create booking: %w", err)
	}
	metrics.IncBookingCreated(room)

	bw, err := s.store.GetByID(ctx, b.ID)
	if err != nil {
		logrus.WithError(err).WithField("booking_id", b.ID).Warn("reload created booking failed")
		bw = model.BookingWithUser{Booking: b}
	}
	s.notifier.Notify(s.event(q.EventBookingCreated, bw, s.adminEmail))
	return bw, nil
}

// Schedule lists the approved and checked-in bookings of every room on a
// local date.
func (s *BookingService) Schedule(ctx context.Context, date string) ([]model.BookingWithUser, error) {
	day, err := s.cal.ParseDate(date)
	if err != nil {
		return nil, err
	}
	out, err := s.store.ListSchedule(ctx, day.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list schedule: %w", err)
	}
	return out, nil
}

// History lists userID's bookings, newest booking date first.
func (s *BookingService) History(ctx context.Context, userID uint64) ([]model.Booking, error) {
	out, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return out, nil
}

func (s *BookingService) ListAll(ctx context.Context) ([]model.BookingWithUser, error) {
	out, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return out, nil
}

// UpdateStatus records an admin decision.  Only Approved and Rejected may
// be set; checked-in bookings are final.
func (s *BookingService) UpdateStatus(ctx context.Context, id uint64, status string) (model.BookingWithUser, error) {
	var next model.BookingStatus
	switch {
	case strings.EqualFold(status, string(model.BookingApproved)):
		next = model.BookingApproved
	case strings.EqualFold(status, string(model.BookingRejected)):
		next = model.BookingRejected
	default:
		return model.BookingWithUser{}, invalid("status must be Approved or Rejected")
	}

	if err := s.store.UpdateStatus(ctx, id, next); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return model.BookingWithUser{}, fmt.Errorf("%w: booking %d", ErrNotFound, id)
		case errors.Is(err, repository.ErrConflict):
			return model.BookingWithUser{}, fmt.Errorf("%w: booking is already checked in", ErrConflict)
		case errors.Is(err, repository.ErrSlotTaken):
			return model.BookingWithUser{}, fmt.Errorf("%w: the time range has since been booked by someone else", ErrConflict)
		}
		return model.BookingWithUser{}, fmt.Errorf("update status: %w", err)
	}
	metrics.IncAdminDecision(string(next))

	bw, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.BookingWithUser{}, fmt.Errorf("reload booking: %w", err)
	}
	s.notifier.Notify(s.event(q.EventBookingStatusChanged, bw, bw.UserEmail))
	return bw, nil
}

func (s *BookingService) event(typ string, bw model.BookingWithUser, to string) q.NotificationEvent {
	return bookingEvent(s.cal, typ, bw, to)
}

func bookingEvent(cal *Calendar, typ string, bw model.BookingWithUser, to string) q.NotificationEvent {
	return q.NotificationEvent{
		Type:      typ,
		BookingID: bw.ID,
		Room:      bw.Room,
		Date:      bw.BookingDate,
		StartTime: cal.Clock(bw.StartTime),
		EndTime:   cal.Clock(bw.EndTime),
		Status:    string(bw.Status),
		Purpose:   bw.Purpose,
		UserName:  bw.UserName,
		UserEmail: bw.UserEmail,
		Recipient: to,
	}
}

// parseHour parses a local "HH:MM" that must fall on the hour.
func parseHour(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, invalid("times must be HH:MM")
	}
	if t.Minute() != 0 {
		return 0, invalid("times must be on the hour")
	}
	return t.Hour(), nil
}
