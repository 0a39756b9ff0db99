package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/service"
)

// ReservationHandler serves customer bookings and the admin search.
// Customer routes only ever touch the caller's own reservations.
type ReservationHandler struct {
	Reservations *service.ReservationService
	Log          *zap.Logger
}

type createReservationReq struct {
	ScreeningID uint64   `json:"screening_id" validate:"required"`
	SeatIDs     []uint64 `json:"seat_ids" validate:"required,min=1,max=50,dive,required"`
}

type modifySeatsReq struct {
	Remove []uint64 `json:"remove" validate:"max=50,dive,required"`
	Add    []uint64 `json:"add" validate:"max=50,dive,required"`
}

// Create handles POST /v1/reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req createReservationReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	r, err := h.Reservations.Create(c.Request().Context(), uid, req.ScreeningID, req.SeatIDs)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toReservation(r))
}

// Mine handles GET /v1/my-reservations.
func (h *ReservationHandler) Mine(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	list, err := h.Reservations.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toReservations(list))
}

func (h *ReservationHandler) Get(c echo.Context) error {
	r, err := h.owned(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toReservation(r))
}

// ModifySeats handles PATCH /v1/reservations/:id/seats.
func (h *ReservationHandler) ModifySeats(c echo.Context) error {
	r, err := h.owned(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req modifySeatsReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	if len(req.Remove) == 0 && len(req.Add) == 0 {
		return fail(c, h.Log, missing("remove or add"))
	}
	updated, err := h.Reservations.ModifySeats(c.Request().Context(), r.ID, req.Remove, req.Add)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toReservation(updated))
}

// Cancel handles DELETE /v1/reservations/:id.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	r, err := h.owned(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	cancelled, err := h.Reservations.Cancel(c.Request().Context(), r.ID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toReservation(cancelled))
}

// Search handles GET /v1/admin/reservations.  Filters are tried in the
// order session, email, user, screening; without one every reservation
// is returned.
func (h *ReservationHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()
	if sess := c.QueryParam("session"); sess != "" {
		r, err := h.Reservations.GetBySession(ctx, sess)
		if err != nil {
			return fail(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, []reservationResp{toReservation(r)})
	}
	var (
		list []model.Reservation
		err  error
	)
	userID, err := queryID(c, "user_id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	screeningID, err := queryID(c, "screening_id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	switch {
	case c.QueryParam("email") != "":
		list, err = h.Reservations.ListByUsername(ctx, c.QueryParam("email"))
	case userID != 0:
		list, err = h.Reservations.ListByUser(ctx, userID)
	case screeningID != 0:
		list, err = h.Reservations.ListByScreening(ctx, screeningID)
	default:
		list, err = h.Reservations.List(ctx)
	}
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toReservations(list))
}

func (h *ReservationHandler) owned(c echo.Context) (model.Reservation, error) {
	uid, err := currentUser(c)
	if err != nil {
		return model.Reservation{}, err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return model.Reservation{}, err
	}
	return h.Reservations.GetOwned(c.Request().Context(), uid, id)
}
