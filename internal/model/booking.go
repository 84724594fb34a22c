package model

import "time"

// BookingStatus is the lifecycle state of a room booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "Pending"
	BookingApproved  BookingStatus = "Approved"
	BookingRejected  BookingStatus = "Rejected"
	BookingCheckedIn BookingStatus = "Checked-in"
)

// OccupyingStatuses are the statuses whose bookings block a time slot,
// including bookings still awaiting a decision.
var OccupyingStatuses = []BookingStatus{BookingPending, BookingApproved, BookingCheckedIn}

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingApproved, BookingRejected, BookingCheckedIn:
		return true
	}
	return false
}

// Booking mirrors the `bookings` table.  StartTime and EndTime are UTC
// instants; BookingDate is the calendar day in the hub's time zone and is
// kept as "YYYY-MM-DD".
type Booking struct {
	ID          uint64        // bookings.id
	UserID      uint64        // bookings.user_id
	Room        string        // bookings.room
	Purpose     string        // bookings.purpose
	Audience    int           // bookings.audience
	BookingDate string        // bookings.booking_date
	StartTime   time.Time     // bookings.start_time (UTC)
	EndTime     time.Time     // bookings.end_time (UTC)
	Status      BookingStatus // bookings.status
	CreatedAt   time.Time     // bookings.created_at
	UpdatedAt   time.Time     // bookings.updated_at
}

// BookingWithUser is a booking joined with the fields of its owner that
// the admin views and notification emails need.
type BookingWithUser struct {
	Booking
	UserName  string
	UserEmail string
	UserNPM   string
}
