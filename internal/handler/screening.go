package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/service"
)

// ScreeningHandler serves the public programme and the admin scheduler.
type ScreeningHandler struct {
	Screenings *service.ScreeningService
	Log        *zap.Logger
}

type screeningReq struct {
	MovieID   uint64    `json:"movie_id" validate:"required"`
	RoomID    uint64    `json:"room_id" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	Format    string    `json:"format" validate:"max=32"`
	Language  string    `json:"language" validate:"max=32"`
	Subtitles string    `json:"subtitles" validate:"max=32"`
	Is3D      bool      `json:"is_3d"`
}

func (r screeningReq) input() service.ScreeningInput {
	return service.ScreeningInput{
		MovieID:   r.MovieID,
		RoomID:    r.RoomID,
		StartTime: r.StartTime,
		Attrs:     model.ScreeningAttrs{Format: r.Format, Language: r.Language, Subtitles: r.Subtitles, Is3D: r.Is3D},
	}
}

func (h *ScreeningHandler) Create(c echo.Context) error {
	var req screeningReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	s, err := h.Screenings.Create(c.Request().Context(), req.input())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toScreening(s))
}

func (h *ScreeningHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req screeningReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	s, err := h.Screenings.Update(c.Request().Context(), id, req.input())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toScreening(s))
}

func (h *ScreeningHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	if err := h.Screenings.Delete(c.Request().Context(), id); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ScreeningHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	s, err := h.Screenings.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toScreening(s))
}

// List handles GET /v1/screenings with either ?date= or ?from=&to=.
func (h *ScreeningHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	if c.QueryParam("date") != "" {
		date, err := queryTime(c, "date")
		if err != nil {
			return fail(c, h.Log, err)
		}
		list, err := h.Screenings.ListByDate(ctx, date)
		if err != nil {
			return fail(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, toScreenings(list))
	}
	from, err := queryTime(c, "from")
	if err != nil {
		return fail(c, h.Log, err)
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return fail(c, h.Log, err)
	}
	list, err := h.Screenings.ListByTimeRange(ctx, from, to)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toScreenings(list))
}

// ByRoom handles GET /v1/rooms/:id/screenings.
func (h *ScreeningHandler) ByRoom(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	list, err := h.Screenings.ListByRoom(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toScreenings(list))
}

// Seats handles GET /v1/screenings/:id/seats.  The map is derived from
// live claims and is never cached.
func (h *ScreeningHandler) Seats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	seats, err := h.Screenings.SeatMap(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	free := 0
	for _, s := range seats {
		if s.State == model.SeatFree {
			free++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"screening_id": id, "available": free, "seats": toSeatMap(seats)})
}
