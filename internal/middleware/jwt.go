package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-booking-engine/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the user id (uint64) and role in the request context.  Use
// UserID and Role to read them back.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get(echo.HeaderAuthorization)
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token", "code": "UNAUTHORIZED"})
            }
            claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token", "code": "UNAUTHORIZED"})
            }
            // ParseAccessToken has already checked the subject.
            uid, _ := claims.UserID()
            c.Set(ctxUserID, uid)
            c.Set(ctxRole, claims.Role)
            return next(c)
        }
    }
}
