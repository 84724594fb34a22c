package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"github.com/uch-creative-hub/booking-api/internal/metrics"
	"github.com/uch-creative-hub/booking-api/internal/model"
	q "github.com/uch-creative-hub/booking-api/internal/queue"
	"github.com/uch-creative-hub/booking-api/internal/repository"
	"github.com/uch-creative-hub/booking-api/internal/utils"
)

// tokenBytes is the entropy of a check-in token (hex encoded, 64 chars).
const tokenBytes = 32

type BookingReader interface {
	GetByID(ctx context.Context, id uint64) (model.BookingWithUser, error)
}

type TokenStore interface {
	GetByBookingID(ctx context.Context, bookingID uint64) (model.QRToken, error)
	GetByToken(ctx context.Context, token string) (model.QRToken, error)
	Create(ctx context.Context, t *model.QRToken) error
}

// Redeemer atomically moves an Approved booking to Checked-in and records
// the check-in.
type Redeemer interface {
	Redeem(ctx context.Context, bookingID, userID uint64, at time.Time) (model.Checkin, error)
}

// CheckinService issues and redeems the QR check-in tokens of bookings.
type CheckinService struct {
	cal        *Calendar
	bookings   BookingReader
	tokens     TokenStore
	checkins   Redeemer
	notifier   *Notifier
	adminEmail string
	now        func() time.Time
	random     func(n int) (string, error)
}

func NewCheckinService(cal *Calendar, bookings BookingReader, tokens TokenStore, checkins Redeemer,
	notifier *Notifier, adminEmail string) *CheckinService {
	return &CheckinService{
		cal:        cal,
		bookings:   bookings,
		tokens:     tokens,
		checkins:   checkins,
		notifier:   notifier,
		adminEmail: adminEmail,
		now:        time.Now,
		random:     utils.RandomHex,
	}
}

// IssueToken returns the check-in token of an Approved booking, minting it
// on first call.  Later calls return the same token.  The token expires at
// the end of the booking's local calendar day.
func (s *CheckinService) IssueToken(ctx context.Context, bookingID uint64) (model.QRToken, error) {
	bw, err := s.bookings.GetByID(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.QRToken{}, fmt.Errorf("%w: booking %d", ErrNotFound, bookingID)
	}
	if err != nil {
		return model.QRToken{}, fmt.Errorf("load booking: %w", err)
	}
	if bw.Status != model.BookingApproved {
		return model.QRToken{}, fmt.Errorf("%w: QR codes are only issued for approved bookings (status %s)", ErrConflict, bw.Status)
	}

	existing, err := s.tokens.GetByBookingID(ctx, bookingID)
	if err == nil {
		metrics.IncQRIssued("existing")
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.QRToken{}, fmt.Errorf("load token: %w", err)
	}

	raw, err := s.random(tokenBytes)
	if err != nil {
		return model.QRToken{}, fmt.Errorf("generate token: %w", err)
	}
	t := model.QRToken{
		BookingID: bookingID,
		Token:     raw,
		ExpiresAt: now.With(bw.StartTime.In(s.cal.Location())).EndOfDay().UTC(),
	}
	if err := s.tokens.Create(ctx, &t); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent issue; hand out the winner's token.
			winner, gerr := s.tokens.GetByBookingID(ctx, bookingID)
			if gerr != nil {
				return model.QRToken{}, fmt.Errorf("load token: %w", gerr)
			}
			metrics.IncQRIssued("existing")
			return winner, nil
		}
		return model.QRToken{}, fmt.Errorf("save token: %w", err)
	}
	metrics.IncQRIssued("new")
	return t, nil
}

// Redemption is the outcome of a successful check-in.
type Redemption struct {
	Checkin model.Checkin
	Booking model.BookingWithUser
}

// Redeem checks the owner of a booking in with its token.  Failures leave
// the booking untouched.
func (s *CheckinService) Redeem(ctx context.Context, token string, userID uint64) (Redemption, error) {
	res, err := s.redeem(ctx, token, userID)
	metrics.IncCheckin(checkinResult(err))
	return res, err
}

func (s *CheckinService) redeem(ctx context.Context, token string, userID uint64) (Redemption, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Redemption{}, invalid("token is required")
	}
	t, err := s.tokens.GetByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return Redemption{}, fmt.Errorf("%w: unknown QR code", ErrNotFound)
	}
	if err != nil {
		return Redemption{}, fmt.Errorf("load token: %w", err)
	}

	at := s.now().UTC()
	if at.After(t.ExpiresAt) {
		return Redemption{}, fmt.Errorf("%w: QR code expired at %s", ErrExpired, t.ExpiresAt.Format(time.RFC3339))
	}

	bw, err := s.bookings.GetByID(ctx, t.BookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return Redemption{}, fmt.Errorf("%w: booking %d", ErrNotFound, t.BookingID)
	}
	if err != nil {
		return Redemption{}, fmt.Errorf("load booking: %w", err)
	}
	if bw.UserID != userID {
		return Redemption{}, fmt.Errorf("%w: this QR code belongs to another user", ErrForbidden)
	}
	switch bw.Status {
	case model.BookingCheckedIn:
		return Redemption{}, ErrAlreadyRedeemed
	case model.BookingApproved:
	default:
		return Redemption{}, fmt.Errorf("%w: booking is %s", ErrConflict, bw.Status)
	}

	ci, err := s.checkins.Redeem(ctx, bw.ID, userID, at)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyRedeemed):
			return Redemption{}, ErrAlreadyRedeemed
		case errors.Is(err, repository.ErrConflict):
			return Redemption{}, fmt.Errorf("%w: booking is no longer approved", ErrConflict)
		case errors.Is(err, repository.ErrNotFound):
			return Redemption{}, fmt.Errorf("%w: booking %d", ErrNotFound, bw.ID)
		}
		return Redemption{}, fmt.Errorf("redeem: %w", err)
	}

	bw.Status = model.BookingCheckedIn
	ev := bookingEvent(s.cal, q.EventBookingCheckedIn, bw, s.adminEmail)
	ev.OccurredAt = s.cal.Clock(at)
	s.notifier.Notify(ev)
	return Redemption{Checkin: ci, Booking: bw}, nil
}

func checkinResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAlreadyRedeemed):
		return "already_redeemed"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	}
	return "error"
}
