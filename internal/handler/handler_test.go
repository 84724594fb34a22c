package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uch-creative-hub/booking-api/internal/middleware"
	"github.com/uch-creative-hub/booking-api/internal/model"
	"github.com/uch-creative-hub/booking-api/internal/service"
	"github.com/uch-creative-hub/booking-api/internal/utils"
)

const testSecret = "handler-secret"

var wib = time.FixedZone("WIB", 7*3600)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func do(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func tokenFor(t *testing.T, id uint64, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken(testSecret, id, role, 5)
	require.NoError(t, err)
	return at.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

type fakeSlots struct {
	avail service.Availability
	err   error
}

func (f fakeSlots) Slots(_ context.Context, date, room string) (service.Availability, error) {
	if f.err != nil {
		return service.Availability{}, f.err
	}
	a := f.avail
	a.Date, a.Room = date, room
	return a, nil
}

type fakeBookings struct {
	gotUser  uint64
	gotInput service.CreateBookingInput
	gotID    uint64
	result   model.BookingWithUser
	err      error
}

func (f *fakeBookings) Create(_ context.Context, userID uint64, in service.CreateBookingInput) (model.BookingWithUser, error) {
	f.gotUser, f.gotInput = userID, in
	return f.result, f.err
}

func (f *fakeBookings) Schedule(context.Context, string) ([]model.BookingWithUser, error) {
	return []model.BookingWithUser{f.result}, f.err
}

func (f *fakeBookings) History(_ context.Context, userID uint64) ([]model.Booking, error) {
	f.gotUser = userID
	return []model.Booking{f.result.Booking}, f.err
}

func (f *fakeBookings) ListAll(context.Context) ([]model.BookingWithUser, error) {
	return []model.BookingWithUser{f.result}, f.err
}

func (f *fakeBookings) UpdateStatus(_ context.Context, id uint64, _ string) (model.BookingWithUser, error) {
	f.gotID = id
	return f.result, f.err
}

type fakeTokens struct {
	token  model.QRToken
	redeem service.Redemption
	err    error
	gotID  uint64
}

func (f *fakeTokens) IssueToken(_ context.Context, id uint64) (model.QRToken, error) {
	f.gotID = id
	return f.token, f.err
}

func (f *fakeTokens) Redeem(_ context.Context, _ string, userID uint64) (service.Redemption, error) {
	f.gotID = userID
	return f.redeem, f.err
}

func sampleBooking() model.BookingWithUser {
	return model.BookingWithUser{
		Booking: model.Booking{
			ID: 5, UserID: 3, Room: "Coworking Space", Purpose: "Study group", Audience: 6,
			BookingDate: "2025-06-02",
			StartTime:   time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC),
			EndTime:     time.Date(2025, 6, 2, 5, 0, 0, 0, time.UTC),
			Status:      model.BookingPending,
		},
		UserName: "Sari", UserEmail: "sari@uch.ac.id", UserNPM: "2201001",
	}
}

func TestAvailableSlots(t *testing.T) {
	e := newEcho()
	h := NewBookingHandler(fakeSlots{avail: service.Availability{
		OperatingHours:     &service.HourRange{Start: 9, End: 16},
		BookedRanges:       []service.HourRange{{Start: 9, End: 11}, {Start: 13, End: 14}},
		AvailableIntervals: []service.HourRange{{Start: 11, End: 13}, {Start: 14, End: 16}},
	}}, &fakeBookings{}, wib)
	e.GET("/slots", h.AvailableSlots)

	rec := do(e, http.MethodGet, "/slots?date=2025-06-02&room=Coworking+Space", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"success": true,
		"date": "2025-06-02",
		"room": "Coworking Space",
		"closed": false,
		"operatingHours": {"start": 9, "end": 16},
		"bookedRanges": [{"start": 9, "end": 11}, {"start": 13, "end": 14}],
		"availableIntervals": [{"start": 11, "end": 13}, {"start": 14, "end": 16}]
	}`, rec.Body.String())
}

func TestAvailableSlotsMissingParam(t *testing.T) {
	e := newEcho()
	h := NewBookingHandler(fakeSlots{err: fmt.Errorf("%w: missing parameter: date", service.ErrInvalidRequest)}, &fakeBookings{}, wib)
	e.GET("/slots", h.AvailableSlots)

	rec := do(e, http.MethodGet, "/slots?room=x", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"invalid_request","message":"missing parameter: date"}`, rec.Body.String())
}

func TestCreateBooking(t *testing.T) {
	e := newEcho()
	fb := &fakeBookings{result: sampleBooking()}
	h := NewBookingHandler(fakeSlots{}, fb, wib)
	e.POST("/bookings", h.Create, middleware.JWTAuth(testSecret))

	body := `{"room":"Coworking Space","purpose":"Study group","audience":6,"date":"2025-06-02","startTime":"10:00","endTime":"12:00"}`
	rec := do(e, http.MethodPost, "/bookings", body, tokenFor(t, 3, model.RoleUser))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, uint64(3), fb.gotUser)
	assert.Equal(t, "10:00", fb.gotInput.StartTime)

	m := decode(t, rec)
	assert.Equal(t, true, m["success"])
	b := m["booking"].(map[string]any)
	assert.Equal(t, "10:00", b["startTime"])
	assert.Equal(t, "12:00", b["endTime"])
	assert.Equal(t, "Pending", b["status"])

	rec = do(e, http.MethodPost, "/bookings", `{"room":"Coworking Space"}`, tokenFor(t, 3, model.RoleUser))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["message"], "purpose is required")

	rec = do(e, http.MethodPost, "/bookings", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	fb.err = fmt.Errorf("%w: Coworking Space is already booked in that time range", service.ErrConflict)
	rec = do(e, http.MethodPost, "/bookings", body, tokenFor(t, 3, model.RoleUser))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decode(t, rec)["error"])
}

func TestScheduleHidesContactDetails(t *testing.T) {
	e := newEcho()
	h := NewBookingHandler(fakeSlots{}, &fakeBookings{result: sampleBooking()}, wib)
	e.GET("/schedule", h.Schedule)

	rec := do(e, http.MethodGet, "/schedule?date=2025-06-02", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Sari"`)
	assert.NotContains(t, rec.Body.String(), "sari@uch.ac.id")
	assert.NotContains(t, rec.Body.String(), "Study group")
}

func TestAdminEndpoints(t *testing.T) {
	e := newEcho()
	fb := &fakeBookings{result: sampleBooking()}
	ft := &fakeTokens{token: model.QRToken{BookingID: 5, Token: "abc123", ExpiresAt: time.Date(2025, 6, 2, 16, 59, 59, 0, time.UTC)}}
	h := NewAdminHandler(fb, ft, wib)
	g := e.Group("/admin", middleware.JWTAuth(testSecret), middleware.RequireRole(model.RoleAdmin))
	g.GET("/bookings", h.List)
	g.PATCH("/bookings/:id/status", h.UpdateStatus)
	g.POST("/bookings/:id/generate-qr", h.GenerateQR)

	admin := tokenFor(t, 1, model.RoleAdmin)

	rec := do(e, http.MethodGet, "/admin/bookings", "", tokenFor(t, 3, model.RoleUser))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodGet, "/admin/bookings", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["bookings"], 1)

	rec = do(e, http.MethodPatch, "/admin/bookings/5/status", `{"status":"Approved"}`, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(5), fb.gotID)

	rec = do(e, http.MethodPatch, "/admin/bookings/abc/status", `{"status":"Approved"}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	fb.err = fmt.Errorf("%w: booking 77", service.ErrNotFound)
	rec = do(e, http.MethodPatch, "/admin/bookings/77/status", `{"status":"Rejected"}`, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPost, "/admin/bookings/5/generate-qr", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode(t, rec)
	assert.Equal(t, "abc123", m["token"])
	assert.Equal(t, uint64(5), ft.gotID)

	ft.err = fmt.Errorf("%w: QR codes are only issued for approved bookings", service.ErrConflict)
	rec = do(e, http.MethodPost, "/admin/bookings/5/generate-qr", "", admin)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckinErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"not found", fmt.Errorf("%w: unknown QR code", service.ErrNotFound), http.StatusNotFound, "not_found"},
		{"expired", fmt.Errorf("%w: QR code expired", service.ErrExpired), http.StatusGone, "expired"},
		{"forbidden", fmt.Errorf("%w: not yours", service.ErrForbidden), http.StatusForbidden, "forbidden"},
		{"already redeemed", service.ErrAlreadyRedeemed, http.StatusConflict, "already_redeemed"},
		{"not approved", fmt.Errorf("%w: booking is Rejected", service.ErrConflict), http.StatusConflict, "conflict"},
		{"database", fmt.Errorf("redeem: connection reset"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho()
			h := NewCheckinHandler(&fakeTokens{err: tt.err}, wib)
			e.POST("/checkin", h.Checkin, middleware.JWTAuth(testSecret))

			rec := do(e, http.MethodPost, "/checkin", `{"token":"abc"}`, tokenFor(t, 3, model.RoleUser))
			assert.Equal(t, tt.status, rec.Code)
			m := decode(t, rec)
			assert.Equal(t, false, m["success"])
			assert.Equal(t, tt.kind, m["error"])
			assert.NotContains(t, m["message"], "connection reset")
		})
	}
}

func TestCheckinSuccess(t *testing.T) {
	e := newEcho()
	bw := sampleBooking()
	bw.Status = model.BookingCheckedIn
	ft := &fakeTokens{redeem: service.Redemption{
		Checkin: model.Checkin{ID: 1, BookingID: 5, UserID: 3, CreatedAt: time.Date(2025, 6, 2, 2, 50, 0, 0, time.UTC)},
		Booking: bw,
	}}
	h := NewCheckinHandler(ft, wib)
	e.POST("/checkin", h.Checkin, middleware.JWTAuth(testSecret))

	rec := do(e, http.MethodPost, "/checkin", `{"token":"abc"}`, tokenFor(t, 3, model.RoleUser))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(3), ft.gotID)
	m := decode(t, rec)
	assert.Equal(t, true, m["success"])
	assert.Contains(t, m["message"], "Coworking Space")

	rec = do(e, http.MethodPost, "/checkin", `{}`, tokenFor(t, 3, model.RoleUser))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
