package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uch-creative-hub/booking-api/internal/model"
)

// BookingRepo provides persistence for room bookings.  All timestamps are
// written and read in UTC; booking_date is the hub-local calendar date and
// is exchanged as "YYYY-MM-DD".
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const dateLayout = "2006-01-02"

const bookingColumns = `b.id, b.user_id, b.room, b.purpose, b.audience, b.booking_date,
	b.start_time, b.end_time, b.status, b.created_at, b.updated_at`

const bookingWithUserColumns = bookingColumns + `, u.name, u.email, u.npm`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner, b *model.Booking, extra ...any) error {
	var (
		date   time.Time
		status string
	)
	dest := []any{&b.ID, &b.UserID, &b.Room, &b.Purpose, &b.Audience, &date,
		&b.StartTime, &b.EndTime, &status, &b.CreatedAt, &b.UpdatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	b.BookingDate = date.Format(dateLayout)
	b.Status = model.BookingStatus(status)
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
	return nil
}

func scanBookingWithUser(s rowScanner) (model.BookingWithUser, error) {
	var bw model.BookingWithUser
	err := scanBooking(s, &bw.Booking, &bw.UserName, &bw.UserEmail, &bw.UserNPM)
	return bw, err
}

// CreateIfFree inserts a booking unless it overlaps an occupying booking
// (Pending, Approved or Checked-in) of the same room and date.  The overlap
// check locks the conflicting rows so two requests for the same slot
// cannot both succeed.  On success the generated ID is set on b.
func (r *BookingRepo) CreateIfFree(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const overlap = `SELECT id FROM bookings
		WHERE room = ? AND booking_date = ? AND status IN (?, ?, ?)
		  AND start_time < ? AND end_time > ?
		LIMIT 1 FOR UPDATE`
	var clash uint64
	err = tx.QueryRowContext(ctx, overlap,
		b.Room, b.BookingDate,
		string(model.BookingPending), string(model.BookingApproved), string(model.BookingCheckedIn),
		b.EndTime.UTC(), b.StartTime.UTC(),
	).Scan(&clash)
	switch {
	case err == nil:
		return ErrSlotTaken
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	if b.Status == "" {
		b.Status = model.BookingPending
	}
	const ins = `INSERT INTO bookings (user_id, room, purpose, audience, booking_date, start_time, end_time, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins,
		b.UserID, b.Room, b.Purpose, b.Audience, b.BookingDate, b.StartTime.UTC(), b.EndTime.UTC(), string(b.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	b.ID = uint64(id)
	return nil
}

// GetByID returns a booking together with its owner, or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.BookingWithUser, error) {
	q := `SELECT ` + bookingWithUserColumns + ` FROM bookings b JOIN users u ON u.id = b.user_id WHERE b.id = ?`
	bw, err := scanBookingWithUser(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.BookingWithUser{}, ErrNotFound
	}
	return bw, err
}

// ListOccupying returns the bookings of a room on a date that block a slot,
// ordered by start time and then by id.
func (r *BookingRepo) ListOccupying(ctx context.Context, room, date string) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings b
		WHERE b.room = ? AND b.booking_date = ? AND b.status IN (?, ?, ?)
		ORDER BY b.start_time, b.id`
	rows, err := r.db.QueryContext(ctx, q, room, date,
		string(model.BookingPending), string(model.BookingApproved), string(model.BookingCheckedIn))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		var b model.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListSchedule returns the approved and checked-in bookings of every room
// on a date.  It backs the public schedule view.
func (r *BookingRepo) ListSchedule(ctx context.Context, date string) ([]model.BookingWithUser, error) {
	q := `SELECT ` + bookingWithUserColumns + ` FROM bookings b JOIN users u ON u.id = b.user_id
		WHERE b.booking_date = ? AND b.status IN (?, ?)
		ORDER BY b.room, b.start_time`
	return r.listWithUser(ctx, q, date, string(model.BookingApproved), string(model.BookingCheckedIn))
}

// ListAll returns every booking with its owner, most recent date first.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.BookingWithUser, error) {
	q := `SELECT ` + bookingWithUserColumns + ` FROM bookings b JOIN users u ON u.id = b.user_id
		ORDER BY b.booking_date DESC, b.start_time DESC`
	return r.listWithUser(ctx, q)
}

// ListByUser returns the bookings created by a user, most recent date first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.user_id = ?
		ORDER BY b.booking_date DESC, b.start_time DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		var b model.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BookingRepo) listWithUser(ctx context.Context, q string, args ...any) ([]model.BookingWithUser, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookingWithUser{}
	for rows.Next() {
		bw, err := scanBookingWithUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bw)
	}
	return out, rows.Err()
}

// UpdateStatus sets the status of a booking that has not been checked in.
// It returns ErrNotFound when no such booking exists and ErrConflict when
// the booking is already checked in.  Reviving a rejected booking re-runs
// the overlap check, since its slot may have been taken meanwhile
// (ErrSlotTaken).  Setting the current status again is a no-op.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var (
		current    string
		room       string
		date       time.Time
		start, end time.Time
	)
	err = tx.QueryRowContext(ctx,
		`SELECT status, room, booking_date, start_time, end_time FROM bookings WHERE id = ? FOR UPDATE`, id,
	).Scan(&current, &room, &date, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if model.BookingStatus(current) == model.BookingCheckedIn {
		return ErrConflict
	}
	if model.BookingStatus(current) == model.BookingRejected && status != model.BookingRejected {
		const overlap = `SELECT id FROM bookings
			WHERE room = ? AND booking_date = ? AND status IN (?, ?, ?)
			  AND start_time < ? AND end_time > ? AND id <> ?
			LIMIT 1 FOR UPDATE`
		var clash uint64
		err = tx.QueryRowContext(ctx, overlap,
			room, date.Format(dateLayout),
			string(model.BookingPending), string(model.BookingApproved), string(model.BookingCheckedIn),
			end.UTC(), start.UTC(), id,
		).Scan(&clash)
		switch {
		case err == nil:
			return ErrSlotTaken
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}
	}
	if model.BookingStatus(current) != status {
		if _, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, string(status), id); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
