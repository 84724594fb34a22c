package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/uch-creative-hub/booking-api/internal/model"
	q "github.com/uch-creative-hub/booking-api/internal/queue"
	"github.com/uch-creative-hub/booking-api/internal/repository"
)

var wib = time.FixedZone("WIB", 7*3600)

var testRooms = []string{"Think Tank Room", "Coworking Space", "Prototyping Room"}

func testCalendar() *Calendar { return NewCalendar(wib, testRooms) }

// memStore is an in-memory stand-in for the booking, token and check-in
// repositories with the same error contract.
type memStore struct {
	mu       sync.Mutex
	users    map[uint64]model.User
	bookings map[uint64]*model.Booking
	tokens   map[uint64]model.QRToken
	checkins map[uint64]model.Checkin
	nextID   uint64
	reads    int
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uint64]model.User{},
		bookings: map[uint64]*model.Booking{},
		tokens:   map[uint64]model.QRToken{},
		checkins: map[uint64]model.Checkin{},
	}
}

func (m *memStore) addUser(id uint64, name, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = model.User{ID: id, Name: name, Email: email}
}

func (m *memStore) put(b model.Booking) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = m.nextID
	m.bookings[b.ID] = &b
	return b.ID
}

func (m *memStore) status(id uint64) model.BookingStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings[id].Status
}

func occupying(s model.BookingStatus) bool {
	for _, o := range model.OccupyingStatuses {
		if o == s {
			return true
		}
	}
	return false
}

func (m *memStore) withUser(b model.Booking) model.BookingWithUser {
	u := m.users[b.UserID]
	return model.BookingWithUser{Booking: b, UserName: u.Name, UserEmail: u.Email}
}

func (m *memStore) ListOccupying(_ context.Context, room, date string) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	out := []model.Booking{}
	for _, b := range m.bookings {
		if b.Room == room && b.BookingDate == date && occupying(b.Status) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memStore) CreateIfFree(_ context.Context, nb *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.Room == nb.Room && b.BookingDate == nb.BookingDate && occupying(b.Status) &&
			b.StartTime.Before(nb.EndTime) && b.EndTime.After(nb.StartTime) {
			return repository.ErrSlotTaken
		}
	}
	m.nextID++
	nb.ID = m.nextID
	cp := *nb
	m.bookings[cp.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uint64) (model.BookingWithUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return model.BookingWithUser{}, repository.ErrNotFound
	}
	return m.withUser(*b), nil
}

func (m *memStore) ListSchedule(_ context.Context, date string) ([]model.BookingWithUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.BookingWithUser{}
	for _, b := range m.bookings {
		if b.BookingDate == date && (b.Status == model.BookingApproved || b.Status == model.BookingCheckedIn) {
			out = append(out, m.withUser(*b))
		}
	}
	return out, nil
}

func (m *memStore) ListByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Booking{}
	for _, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingDate > out[j].BookingDate })
	return out, nil
}

func (m *memStore) ListAll(_ context.Context) ([]model.BookingWithUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.BookingWithUser{}
	for _, b := range m.bookings {
		out = append(out, m.withUser(*b))
	}
	return out, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id uint64, status model.BookingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if b.Status == model.BookingCheckedIn {
		return repository.ErrConflict
	}
	b.Status = status
	return nil
}

func (m *memStore) GetByBookingID(_ context.Context, bookingID uint64) (model.QRToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[bookingID]
	if !ok {
		return model.QRToken{}, repository.ErrNotFound
	}
	return t, nil
}

func (m *memStore) GetByToken(_ context.Context, token string) (model.QRToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.Token == token {
			return t, nil
		}
	}
	return model.QRToken{}, repository.ErrNotFound
}

func (m *memStore) Create(_ context.Context, t *model.QRToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[t.BookingID]; ok {
		return repository.ErrDuplicate
	}
	m.nextID++
	t.ID = m.nextID
	m.tokens[t.BookingID] = *t
	return nil
}

func (m *memStore) Redeem(_ context.Context, bookingID, userID uint64, at time.Time) (model.Checkin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return model.Checkin{}, repository.ErrNotFound
	}
	switch b.Status {
	case model.BookingCheckedIn:
		return model.Checkin{}, repository.ErrAlreadyRedeemed
	case model.BookingApproved:
	default:
		return model.Checkin{}, repository.ErrConflict
	}
	if _, dup := m.checkins[bookingID]; dup {
		return model.Checkin{}, repository.ErrAlreadyRedeemed
	}
	b.Status = model.BookingCheckedIn
	m.nextID++
	ci := model.Checkin{ID: m.nextID, BookingID: bookingID, UserID: userID, CreatedAt: at}
	m.checkins[bookingID] = ci
	return ci, nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []q.NotificationEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev q.NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) snapshot() []q.NotificationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]q.NotificationEvent(nil), p.events...)
}

// localBooking builds a booking on a local date between local hours.
func localBooking(userID uint64, room, date string, startH, endH int, status model.BookingStatus) model.Booking {
	cal := testCalendar()
	day, err := cal.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return model.Booking{
		UserID:      userID,
		Room:        room,
		Purpose:     "meeting",
		Audience:    4,
		BookingDate: date,
		StartTime:   cal.At(day, startH, 0),
		EndTime:     cal.At(day, endH, 0),
		Status:      status,
	}
}
