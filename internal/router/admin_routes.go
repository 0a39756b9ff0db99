package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-engine/internal/middleware"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// RegisterAdmin registers catalogue and scheduling endpoints under
// /v1/admin.  All routes require a valid JWT and the ADMIN role.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Rooms ----
	g.POST("/rooms", d.Rooms.Create)
	g.GET("/rooms", d.Rooms.List)
	g.DELETE("/rooms/highest", d.Rooms.DeleteHighest)

	// ---- Movies ----
	g.POST("/movies", d.Movies.Create)

	// ---- Screenings ----
	g.POST("/screenings", d.Screenings.Create)
	g.PUT("/screenings/:id", d.Screenings.Update)
	g.DELETE("/screenings/:id", d.Screenings.Delete)

	// ---- Reservations ----
	g.GET("/reservations", d.Reservations.Search)
}
