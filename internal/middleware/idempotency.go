package middleware

import (
    "context"
    "crypto/sha1"
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-booking-engine/internal/config"
)

// Idempotency makes a retried booking request with the same key return
// the first response instead of creating a second reservation.  Keys are
// scoped to the caller and the route.  While the first request runs a
// concurrent retry gets 409; 5xx results are not stored so the client
// may try again.
func Idempotency(cfg config.IdempotencyConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := c.Request().Header.Get(cfg.Header)
            if raw == "" {
                return next(c)
            }
            base := idempotencyKey(cfg, c, raw)
            resultKey, lockKey := base+":result", base+":lock"
            ctx := c.Request().Context()

            if bs, err := rdb.Get(ctx, resultKey).Bytes(); err == nil {
                if replay(c, bs, "Idempotent-Replayed", "true") {
                    return nil
                }
            } else if err != redis.Nil {
                log.Warn("idempotency lookup failed", zap.String("key", base), zap.Error(err))
                return next(c)
            }

            locked, err := rdb.SetNX(ctx, lockKey, RequestIDOf(c), cfg.LockTTL).Result()
            if err != nil {
                log.Warn("idempotency lock failed", zap.String("key", base), zap.Error(err))
                return next(c)
            }
            if !locked {
                return c.JSON(http.StatusConflict, echo.Map{
                    "error": "a request with this idempotency key is still in progress",
                    "code":  "IDEMPOTENCY_IN_PROGRESS",
                })
            }

            cw := capture(c, 0)
            herr := next(c)

            bg, cancel := context.WithTimeout(context.Background(), time.Second)
            defer cancel()
            if herr == nil && cw.status < http.StatusInternalServerError {
                if payload, err := encodePayload(cw.status, snapshotHeader(c.Response().Header()), cw.buf.Bytes()); err == nil {
                    if err := rdb.Set(bg, resultKey, payload, cfg.ResultTTL).Err(); err != nil {
                        log.Warn("idempotency store failed", zap.String("key", base), zap.Error(err))
                    }
                }
            }
            if err := rdb.Del(bg, lockKey).Err(); err != nil {
                log.Warn("idempotency unlock failed", zap.String("key", base), zap.Error(err))
            }
            return herr
        }
    }
}

func idempotencyKey(cfg config.IdempotencyConfig, c echo.Context, raw string) string {
    sum := sha1.Sum([]byte(c.Request().Method + " " + c.Path() + " " + raw))
    return fmt.Sprintf("%s:%s:%x", cfg.Prefix, subject(c), sum[:])
}
