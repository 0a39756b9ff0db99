package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-booking-engine/internal/config"
)

// Handler processes one confirmation event.  A returned error rejects the
// message without requeueing it.
type Handler func(ctx context.Context, ev ReservationConfirmedEvent) error

// StartConsumer connects to RabbitMQ and dispatches every delivery on the
// confirmation queue to h.  It runs a reconnect loop with exponential
// backoff and only returns once ctx is cancelled.
func StartConsumer(ctx context.Context, cfg config.QueueConfig, h Handler, log *zap.Logger) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(cfg.URL)
        if err != nil {
            log.Warn("confirmation-consumer: dial failed",
                zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, cfg, h, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn("confirmation-consumer: loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg config.QueueConfig, h Handler, log *zap.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
        log.Warn("confirmation-consumer: set QoS failed", zap.Error(err))
    }
    if _, err := ch.QueueDeclare(cfg.Confirmed, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(cfg.Confirmed, cfg.ConsumerTag, false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := dispatch(ctx, d.Body, h); err != nil {
                log.Error("confirmation-consumer: handle message failed",
                    zap.String("message_id", d.MessageId), zap.Error(err))
                _ = d.Nack(false, false) // do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func dispatch(ctx context.Context, body []byte, h Handler) error {
    var ev ReservationConfirmedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.ReservationID == 0 {
        return errors.New("event without reservation id")
    }
    return h(ctx, ev)
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
