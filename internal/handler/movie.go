package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-engine/internal/service"
)

// MovieHandler seeds movies and serves a movie's programme.
type MovieHandler struct {
	Movies     *service.MovieService
	Screenings *service.ScreeningService
	Log        *zap.Logger
}

type createMovieReq struct {
	Title           string `json:"title" validate:"required,max=255"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=1,max=1000"`
}

func (h *MovieHandler) Create(c echo.Context) error {
	var req createMovieReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	m, err := h.Movies.CreateMovie(c.Request().Context(), req.Title, req.DurationMinutes)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toMovie(m))
}

func (h *MovieHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	m, err := h.Movies.GetMovie(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toMovie(m))
}

// ListScreenings handles GET /v1/movies/:id/screenings?from=&to=.  With
// group=day the programme is returned grouped by calendar day.
func (h *MovieHandler) ListScreenings(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	from, err := queryTime(c, "from")
	if err != nil {
		return fail(c, h.Log, err)
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx := c.Request().Context()
	if c.QueryParam("group") == "day" {
		days, err := h.Screenings.ScheduleByMovie(ctx, id, from, to)
		if err != nil {
			return fail(c, h.Log, err)
		}
		out := make([]dayResp, 0, len(days))
		for _, d := range days {
			out = append(out, dayResp{Date: d.Date, Slots: toSlots(d.Slots)})
		}
		return c.JSON(http.StatusOK, out)
	}
	list, err := h.Screenings.ListByMovie(ctx, id, from, to)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toScreenings(list))
}

// Dates handles GET /v1/movies/:id/dates.
func (h *MovieHandler) Dates(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	dates, err := h.Screenings.AvailableDates(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if dates == nil {
		dates = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{"movie_id": id, "dates": dates})
}

// Slots handles GET /v1/movies/:id/slots?date=YYYY-MM-DD.
func (h *MovieHandler) Slots(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	date, err := queryTime(c, "date")
	if err != nil {
		return fail(c, h.Log, err)
	}
	if date.IsZero() {
		return fail(c, h.Log, missing("date"))
	}
	slots, err := h.Screenings.TimeSlots(c.Request().Context(), id, date)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toSlots(slots))
}
