package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uch-creative-hub/booking-api/internal/model"
)

// QRTokenRepo stores the check-in tokens issued for approved bookings.
type QRTokenRepo struct {
	db *sql.DB
}

func NewQRTokenRepo(db *sql.DB) *QRTokenRepo { return &QRTokenRepo{db: db} }

const qrTokenColumns = `id, booking_id, token, expires_at, created_at`

func scanQRToken(s rowScanner) (model.QRToken, error) {
	var t model.QRToken
	if err := s.Scan(&t.ID, &t.BookingID, &t.Token, &t.ExpiresAt, &t.CreatedAt); err != nil {
		return model.QRToken{}, err
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	return t, nil
}

// GetByBookingID returns the token of a booking, or ErrNotFound.
func (r *QRTokenRepo) GetByBookingID(ctx context.Context, bookingID uint64) (model.QRToken, error) {
	q := `SELECT ` + qrTokenColumns + ` FROM qr_tokens WHERE booking_id = ?`
	t, err := scanQRToken(r.db.QueryRowContext(ctx, q, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.QRToken{}, ErrNotFound
	}
	return t, err
}

// GetByToken looks a token up by its value, or returns ErrNotFound.
func (r *QRTokenRepo) GetByToken(ctx context.Context, token string) (model.QRToken, error) {
	q := `SELECT ` + qrTokenColumns + ` FROM qr_tokens WHERE token = ?`
	t, err := scanQRToken(r.db.QueryRowContext(ctx, q, token))
	if errors.Is(err, sql.ErrNoRows) {
		return model.QRToken{}, ErrNotFound
	}
	return t, err
}

// Create inserts a token.  ErrDuplicate is returned when the booking
// already has one (or, improbably, the token value collides).
func (r *QRTokenRepo) Create(ctx context.Context, t *model.QRToken) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO qr_tokens (booking_id, token, expires_at) VALUES (?, ?, ?)`,
		t.BookingID, t.Token, t.ExpiresAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}
