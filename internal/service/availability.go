package service

import (
	"context"
	"fmt"

	"github.com/uch-creative-hub/booking-api/internal/model"
)

// OccupancyReader lists the bookings that block slots of a room on a local
// date (YYYY-MM-DD), ordered by start time.
type OccupancyReader interface {
	ListOccupying(ctx context.Context, room, date string) ([]model.Booking, error)
}

// HourRange is a [Start, End) range of local hours, 0-23.
type HourRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Availability is the free/busy picture of one room on one day.
type Availability struct {
	Date               string      `json:"date"`
	Room               string      `json:"room"`
	Closed             bool        `json:"closed"`
	OperatingHours     *HourRange  `json:"operatingHours"`
	BookedRanges       []HourRange `json:"bookedRanges"`
	AvailableIntervals []HourRange `json:"availableIntervals"`
	Message            string      `json:"message,omitempty"`
}

type AvailabilityService struct {
	cal      *Calendar
	bookings OccupancyReader
}

func NewAvailabilityService(cal *Calendar, bookings OccupancyReader) *AvailabilityService {
	return &AvailabilityService{cal: cal, bookings: bookings}
}

// Slots computes the free intervals of room on date within its operating
// hours.  Pending, approved and checked-in bookings all count as busy.
// Closed days are answered without touching the store.
func (s *AvailabilityService) Slots(ctx context.Context, date, room string) (Availability, error) {
	day, err := s.cal.ParseDate(date)
	if err != nil {
		return Availability{}, err
	}
	room, err = s.cal.Room(room)
	if err != nil {
		return Availability{}, err
	}
	out := Availability{
		Date:               day.Format(dateLayout),
		Room:               room,
		BookedRanges:       []HourRange{},
		AvailableIntervals: []HourRange{},
	}

	open, hours, ok := s.cal.OpenWindow(day)
	if !ok {
		out.Closed = true
		out.Message = fmt.Sprintf("The creative hub is closed on %s.", day.Weekday())
		return out, nil
	}
	out.OperatingHours = &HourRange{Start: hours.Start, End: hours.End}

	booked, err := s.bookings.ListOccupying(ctx, room, out.Date)
	if err != nil {
		return Availability{}, fmt.Errorf("list bookings: %w", err)
	}
	busy := make([]Window, 0, len(booked))
	for _, b := range booked {
		busy = append(busy, Window{Start: b.StartTime, End: b.EndTime})
		out.BookedRanges = append(out.BookedRanges, s.hourRange(Window{Start: b.StartTime, End: b.EndTime}))
	}
	for _, w := range FreeWindows(open, busy) {
		out.AvailableIntervals = append(out.AvailableIntervals, s.hourRange(w))
	}
	return out, nil
}

func (s *AvailabilityService) hourRange(w Window) HourRange {
	return HourRange{Start: s.cal.Hour(w.Start), End: s.cal.Hour(w.End)}
}
