package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uch-creative-hub/booking-api/internal/model"
)

// CheckinRepo records token redemptions.
type CheckinRepo struct {
	db *sql.DB
}

func NewCheckinRepo(db *sql.DB) *CheckinRepo { return &CheckinRepo{db: db} }

// Redeem marks an approved booking as checked in and records who redeemed
// it, in one transaction.  The booking row is locked first so concurrent
// redemptions of the same token serialize: the loser sees Checked-in and
// gets ErrAlreadyRedeemed.  A booking that is not Approved yields
// ErrConflict and a missing one ErrNotFound.
func (r *CheckinRepo) Redeem(ctx context.Context, bookingID, userID uint64, at time.Time) (model.Checkin, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Checkin{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = ? FOR UPDATE`, bookingID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Checkin{}, ErrNotFound
	}
	if err != nil {
		return model.Checkin{}, err
	}
	switch model.BookingStatus(status) {
	case model.BookingCheckedIn:
		return model.Checkin{}, ErrAlreadyRedeemed
	case model.BookingApproved:
	default:
		return model.Checkin{}, ErrConflict
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ? AND status = ?`,
		string(model.BookingCheckedIn), bookingID, string(model.BookingApproved)); err != nil {
		return model.Checkin{}, err
	}

	at = at.UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO checkins (booking_id, user_id, created_at) VALUES (?, ?, ?)`,
		bookingID, userID, at)
	if err != nil {
		if isDuplicate(err) {
			return model.Checkin{}, ErrAlreadyRedeemed
		}
		return model.Checkin{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Checkin{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Checkin{}, err
	}
	committed = true
	return model.Checkin{ID: uint64(id), BookingID: bookingID, UserID: userID, CreatedAt: at}, nil
}
