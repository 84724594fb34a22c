package service

import (
	"sort"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Hours is a daily opening window in local wall-clock hours, [Start, End).
type Hours struct {
	Start int
	End   int
}

// operatingHours is the hub's weekly timetable.  Days missing from the
// table are closed.
var operatingHours = map[time.Weekday]Hours{
	time.Monday:    {9, 16},
	time.Tuesday:   {9, 16},
	time.Wednesday: {9, 16},
	time.Thursday:  {9, 16},
	time.Friday:    {9, 16},
	time.Saturday:  {9, 12},
}

// Window is a half-open range of UTC instants [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Calendar knows the hub's time zone, rooms and opening hours.  It is the
// single place where local dates and wall-clock hours become UTC instants
// and back.
type Calendar struct {
	loc   *time.Location
	rooms []string
}

func NewCalendar(loc *time.Location, rooms []string) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc, rooms: append([]string(nil), rooms...)}
}

func (c *Calendar) Location() *time.Location { return c.loc }

func (c *Calendar) Rooms() []string { return append([]string(nil), c.rooms...) }

// Room returns the canonical spelling of room, matching case-insensitively.
func (c *Calendar) Room(room string) (string, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		return "", invalid("missing parameter: room")
	}
	for _, r := range c.rooms {
		if strings.EqualFold(r, room) {
			return r, nil
		}
	}
	return "", invalid("unknown room %q", room)
}

// ParseDate parses a YYYY-MM-DD local date and returns local midnight.
func (c *Calendar) ParseDate(date string) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, invalid("missing parameter: date")
	}
	d, err := time.ParseInLocation(dateLayout, date, c.loc)
	if err != nil {
		return time.Time{}, invalid("date must be YYYY-MM-DD")
	}
	return d, nil
}

// OpenWindow returns the operating hours of the local day as UTC instants.
// ok is false on closed days.
func (c *Calendar) OpenWindow(day time.Time) (w Window, h Hours, ok bool) {
	day = day.In(c.loc)
	h, ok = operatingHours[day.Weekday()]
	if !ok {
		return Window{}, Hours{}, false
	}
	return Window{Start: c.At(day, h.Start, 0), End: c.At(day, h.End, 0)}, h, true
}

// At returns the UTC instant of hour:minute local time on day.
func (c *Calendar) At(day time.Time, hour, minute int) time.Time {
	day = day.In(c.loc)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, c.loc).UTC()
}

// Hour returns the local wall-clock hour of an instant.
func (c *Calendar) Hour(t time.Time) int { return t.In(c.loc).Hour() }

// Clock formats an instant as local "HH:MM".
func (c *Calendar) Clock(t time.Time) string { return t.In(c.loc).Format("15:04") }

// FreeWindows returns the parts of open not covered by busy.  Busy windows
// may overlap, touch or extend past open; they are walked in start order
// with a cursor so overlapping ones merge.
func FreeWindows(open Window, busy []Window) []Window {
	sorted := append([]Window(nil), busy...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	free := []Window{}
	cursor := open.Start
	for _, b := range sorted {
		if !cursor.Before(open.End) {
			break
		}
		if b.Start.After(cursor) {
			end := b.Start
			if end.After(open.End) {
				end = open.End
			}
			free = append(free, Window{Start: cursor, End: end})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(open.End) {
		free = append(free, Window{Start: cursor, End: open.End})
	}
	return free
}
