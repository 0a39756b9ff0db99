// Package handler exposes the booking services over HTTP.  Handlers only
// parse input, call one service method and render the result; every rule
// lives in the service layer.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-engine/internal/apperr"
	"github.com/iliyamo/cinema-booking-engine/internal/middleware"
	"github.com/iliyamo/cinema-booking-engine/internal/service"
)

var validate = validator.New()

// fail renders err as {"error", "code"} with the status of its kind.
// Internal errors are logged and hidden from the client.
func fail(c echo.Context, log *zap.Logger, err error) error {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("request_id", middleware.RequestIDOf(c)),
			zap.String("route", c.Path()), zap.Error(err))
		return c.JSON(status, echo.Map{"error": "internal error", "code": "INTERNAL"})
	}
	var e *apperr.Error
	errors.As(err, &e)
	return c.JSON(status, echo.Map{"error": e.Message, "code": e.Code})
}

// bind decodes the body into req and runs its validate tags.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperr.Invalid("invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return apperr.Invalid("field %s failed on %s", strings.ToLower(f.Field()), f.Tag())
		}
		return apperr.Invalid("%s", err.Error())
	}
	return nil
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Invalid("invalid %s", name)
	}
	return id, nil
}

func queryID(c echo.Context, name string) (uint64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.Invalid("invalid %s", name)
	}
	return id, nil
}

// queryTime accepts RFC3339 or a bare date (midnight UTC).  Missing
// values return the zero time.
func queryTime(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(service.DateLayout, raw); err == nil {
		return t, nil
	}
	return time.Time{}, apperr.Invalid("%s must be RFC3339 or YYYY-MM-DD", name)
}

func currentUser(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, apperr.Unauthorized("authentication required")
	}
	return id, nil
}

func missing(name string) error { return apperr.Invalid("%s is required", name) }
