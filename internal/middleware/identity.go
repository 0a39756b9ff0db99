package middleware

// identity.go holds the context keys set by JWTAuth and RequestID and the
// accessors used by handlers and the other middlewares.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

const (
    ctxUserID    = "user_id"
    ctxRole      = "role"
    ctxRequestID = "request_id"
)

// UserID returns the authenticated user id.  ok is false on routes that
// are not behind JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(ctxUserID).(uint64)
    return id, ok && id != 0
}

// Role returns the authenticated user's role or "".
func Role(c echo.Context) string {
    r, _ := c.Get(ctxRole).(string)
    return r
}

// RequestIDOf returns the id assigned by RequestID or "".
func RequestIDOf(c echo.Context) string {
    id, _ := c.Get(ctxRequestID).(string)
    return id
}

// subject names the caller in Redis keys: the user id or "anon".
func subject(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
