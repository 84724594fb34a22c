// Package queue defines message payloads exchanged over the message broker
// and the worker that turns them into emails.
package queue

import (
	"fmt"
	"strings"
)

// NotificationQueue is the durable queue booking events are published to.
const NotificationQueue = "booking.notifications"

// Event types.
const (
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"
	EventBookingCheckedIn     = "booking.checked_in"
)

// NotificationEvent carries enough about a booking for the worker to write
// an email without querying the primary database.  Times are local wall
// clock strings ("HH:MM") on the local calendar date.
type NotificationEvent struct {
	Type       string `json:"type"`
	BookingID  uint64 `json:"booking_id"`
	Room       string `json:"room"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Status     string `json:"status"`
	Purpose    string `json:"purpose,omitempty"`
	UserName   string `json:"user_name,omitempty"`
	UserEmail  string `json:"user_email,omitempty"`
	Recipient  string `json:"recipient"`
	OccurredAt string `json:"occurred_at"`
}

// Message renders the subject and plain-text body of the email for e.
func (e NotificationEvent) Message() (subject, body string, err error) {
	slot := fmt.Sprintf("%s on %s, %s-%s", e.Room, e.Date, e.StartTime, e.EndTime)
	var sb strings.Builder
	switch e.Type {
	case EventBookingCreated:
		subject = "New booking request: " + e.Room
		fmt.Fprintf(&sb, "A new booking request #%d is waiting for review.\n\n", e.BookingID)
		fmt.Fprintf(&sb, "Room: %s\n", slot)
		fmt.Fprintf(&sb, "Requested by: %s <%s>\n", e.UserName, e.UserEmail)
		if e.Purpose != "" {
			fmt.Fprintf(&sb, "Purpose: %s\n", e.Purpose)
		}
	case EventBookingStatusChanged:
		subject = fmt.Sprintf("Your booking was %s", strings.ToLower(e.Status))
		fmt.Fprintf(&sb, "Hi %s,\n\n", e.UserName)
		fmt.Fprintf(&sb, "Your booking #%d for %s is now %s.\n", e.BookingID, slot, e.Status)
	case EventBookingCheckedIn:
		subject = "Checked in: " + e.Room
		fmt.Fprintf(&sb, "%s checked in to booking #%d (%s) at %s.\n", e.UserName, e.BookingID, slot, e.OccurredAt)
	default:
		return "", "", fmt.Errorf("unknown event type %q", e.Type)
	}
	return subject, sb.String(), nil
}
