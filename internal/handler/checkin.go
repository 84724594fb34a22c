package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/uch-creative-hub/booking-api/internal/middleware"
	"github.com/uch-creative-hub/booking-api/internal/service"
)

type TokenRedeemer interface {
	Redeem(ctx context.Context, token string, userID uint64) (service.Redemption, error)
}

type CheckinHandler struct {
	Tokens TokenRedeemer
	Loc    *time.Location
}

func NewCheckinHandler(tokens TokenRedeemer, loc *time.Location) *CheckinHandler {
	return &CheckinHandler{Tokens: tokens, Loc: loc}
}

type checkinReq struct {
	Token string `json:"token" validate:"required"`
}

// Checkin: POST /api/checkin
func (h *CheckinHandler) Checkin(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	var req checkinReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Tokens.Redeem(ctx, req.Token, uid)
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{
		"message":     "check-in successful, enjoy your session in " + res.Booking.Room,
		"checkedInAt": res.Checkin.CreatedAt,
		"booking":     presentWithUser(res.Booking, h.Loc),
	})
}
