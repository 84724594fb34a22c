package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/uch-creative-hub/booking-api/internal/model"
	"github.com/uch-creative-hub/booking-api/internal/service"
)

type TokenIssuer interface {
	IssueToken(ctx context.Context, bookingID uint64) (model.QRToken, error)
}

// AdminHandler serves the ADMIN-only booking review endpoints.
type AdminHandler struct {
	Bookings BookingService
	Tokens   TokenIssuer
	Loc      *time.Location
}

func NewAdminHandler(bookings BookingService, tokens TokenIssuer, loc *time.Location) *AdminHandler {
	return &AdminHandler{Bookings: bookings, Tokens: tokens, Loc: loc}
}

type statusReq struct {
	Status string `json:"status" validate:"required"`
}

func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid booking id", service.ErrInvalidRequest)
	}
	return id, nil
}

// List: GET /api/admin/bookings
func (h *AdminHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Bookings.ListAll(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"bookings": presentAll(list, h.Loc)})
}

// UpdateStatus: PATCH /api/admin/bookings/:id/status
func (h *AdminHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bw, err := h.Bookings.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{
		"message": "booking " + string(bw.Status),
		"booking": presentWithUser(bw, h.Loc),
	})
}

// GenerateQR: POST /api/admin/bookings/:id/generate-qr
func (h *AdminHandler) GenerateQR(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tokens.IssueToken(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{
		"bookingId": t.BookingID,
		"token":     t.Token,
		"expiresAt": t.ExpiresAt,
	})
}
