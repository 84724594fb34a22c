package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/uch-creative-hub/booking-api/internal/middleware"
	"github.com/uch-creative-hub/booking-api/internal/model"
	"github.com/uch-creative-hub/booking-api/internal/service"
)

type SlotFinder interface {
	Slots(ctx context.Context, date, room string) (service.Availability, error)
}

type BookingService interface {
	Create(ctx context.Context, userID uint64, in service.CreateBookingInput) (model.BookingWithUser, error)
	Schedule(ctx context.Context, date string) ([]model.BookingWithUser, error)
	History(ctx context.Context, userID uint64) ([]model.Booking, error)
	ListAll(ctx context.Context) ([]model.BookingWithUser, error)
	UpdateStatus(ctx context.Context, id uint64, status string) (model.BookingWithUser, error)
}

// BookingHandler serves the public availability and schedule views and the
// caller's own bookings.
type BookingHandler struct {
	Slots    SlotFinder
	Bookings BookingService
	Loc      *time.Location
}

func NewBookingHandler(slots SlotFinder, bookings BookingService, loc *time.Location) *BookingHandler {
	return &BookingHandler{Slots: slots, Bookings: bookings, Loc: loc}
}

type createBookingReq struct {
	Room      string `json:"room" validate:"required"`
	Purpose   string `json:"purpose" validate:"required,max=500"`
	Audience  int    `json:"audience" validate:"required,min=1,max=500"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

type bookingUser struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	NPM   string `json:"npm,omitempty"`
}

// bookingResp presents a booking with local wall-clock times next to the
// UTC instants.
type bookingResp struct {
	ID        uint64       `json:"id"`
	UserID    uint64       `json:"userId"`
	Room      string       `json:"room"`
	Purpose   string       `json:"purpose"`
	Audience  int          `json:"audience"`
	Date      string       `json:"date"`
	StartTime string       `json:"startTime"`
	EndTime   string       `json:"endTime"`
	StartsAt  time.Time    `json:"startsAt"`
	EndsAt    time.Time    `json:"endsAt"`
	Status    string       `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	User      *bookingUser `json:"user,omitempty"`
}

func presentBooking(b model.Booking, loc *time.Location) bookingResp {
	return bookingResp{
		ID:        b.ID,
		UserID:    b.UserID,
		Room:      b.Room,
		Purpose:   b.Purpose,
		Audience:  b.Audience,
		Date:      b.BookingDate,
		StartTime: b.StartTime.In(loc).Format("15:04"),
		EndTime:   b.EndTime.In(loc).Format("15:04"),
		StartsAt:  b.StartTime,
		EndsAt:    b.EndTime,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
	}
}

func presentWithUser(bw model.BookingWithUser, loc *time.Location) bookingResp {
	r := presentBooking(bw.Booking, loc)
	if bw.UserName != "" || bw.UserEmail != "" {
		r.User = &bookingUser{Name: bw.UserName, Email: bw.UserEmail, NPM: bw.UserNPM}
	}
	return r
}

func presentAll(list []model.BookingWithUser, loc *time.Location) []bookingResp {
	out := make([]bookingResp, 0, len(list))
	for _, bw := range list {
		out = append(out, presentWithUser(bw, loc))
	}
	return out
}

type slotsResp struct {
	Success bool `json:"success"`
	service.Availability
}

// AvailableSlots: GET /api/bookings/available-slots?date=&room=
func (h *BookingHandler) AvailableSlots(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Slots.Slots(ctx, c.QueryParam("date"), c.QueryParam("room"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, slotsResp{Success: true, Availability: a})
}

// Schedule: GET /api/bookings/schedule?date=
func (h *BookingHandler) Schedule(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Bookings.Schedule(ctx, c.QueryParam("date"))
	if err != nil {
		return writeError(c, err)
	}
	// The public view only shows who booked, not how to reach them.
	out := make([]bookingResp, 0, len(list))
	for _, bw := range list {
		r := presentBooking(bw.Booking, h.Loc)
		r.Purpose = ""
		r.User = &bookingUser{Name: bw.UserName}
		out = append(out, r)
	}
	return ok(c, http.StatusOK, echo.Map{"date": c.QueryParam("date"), "bookings": out})
}

// Create: POST /api/bookings
func (h *BookingHandler) Create(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	var req createBookingReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bw, err := h.Bookings.Create(ctx, uid, service.CreateBookingInput{
		Room:      req.Room,
		Purpose:   req.Purpose,
		Audience:  req.Audience,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusCreated, echo.Map{
		"message": "booking submitted and awaiting approval",
		"booking": presentWithUser(bw, h.Loc),
	})
}

// MyHistory: GET /api/bookings/my-history
func (h *BookingHandler) MyHistory(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Bookings.History(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]bookingResp, 0, len(list))
	for _, b := range list {
		out = append(out, presentBooking(b, h.Loc))
	}
	return ok(c, http.StatusOK, echo.Map{"bookings": out})
}
