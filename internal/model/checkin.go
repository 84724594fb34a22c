package model

import "time"

// QRToken is the single check-in token of an approved booking
// (`qr_tokens` table).  A booking has at most one token; it expires at the
// end of the booking's calendar day.
type QRToken struct {
	ID        uint64    // qr_tokens.id
	BookingID uint64    // qr_tokens.booking_id (unique)
	Token     string    // qr_tokens.token (unique, hex)
	ExpiresAt time.Time // qr_tokens.expires_at (UTC)
	CreatedAt time.Time // qr_tokens.created_at
}

// Checkin records the redemption of a booking's token (`checkins` table).
// There is at most one row per booking.
type Checkin struct {
	ID        uint64    // checkins.id
	BookingID uint64    // checkins.booking_id (unique)
	UserID    uint64    // checkins.user_id
	CreatedAt time.Time // checkins.created_at (UTC)
}
