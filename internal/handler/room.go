package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-engine/internal/service"
)

// RoomHandler serves the admin room catalogue.
type RoomHandler struct {
	Rooms *service.RoomService
	Log   *zap.Logger
}

type createRoomReq struct {
	Rows    int `json:"rows" validate:"required,min=1"`
	Columns int `json:"columns" validate:"required,min=1"`
}

// Create handles POST /v1/admin/rooms.  Upper bounds are checked by the
// service so the configured limits apply.
func (h *RoomHandler) Create(c echo.Context) error {
	var req createRoomReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	room, err := h.Rooms.CreateRoom(c.Request().Context(), req.Rows, req.Columns)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toRoom(room))
}

func (h *RoomHandler) List(c echo.Context) error {
	rooms, err := h.Rooms.ListRooms(c.Request().Context())
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]roomResp, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toRoom(r))
	}
	return c.JSON(http.StatusOK, out)
}

// DeleteHighest removes the room with the highest number.
func (h *RoomHandler) DeleteHighest(c echo.Context) error {
	room, err := h.Rooms.DeleteRoomWithHighestNumber(c.Request().Context())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toRoom(room))
}
