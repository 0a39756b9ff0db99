package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-booking-engine/internal/config"
)

// Publisher sends ReservationConfirmedEvents to the confirmation queue.
// The connection is dialled lazily and re-dialled after any failure, so a
// broker outage only costs the notifications sent while it lasts.
type Publisher struct {
    url   string
    queue string
    log   *zap.Logger

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

func NewPublisher(cfg config.QueueConfig, log *zap.Logger) *Publisher {
    return &Publisher{url: cfg.URL, queue: cfg.Confirmed, log: log}
}

// NotifyConfirmed publishes ev.  Errors are logged and returned; callers
// are expected to ignore them.
func (p *Publisher) NotifyConfirmed(ctx context.Context, ev ReservationConfirmedEvent) error {
    msg, err := encode(ev, time.Now())
    if err != nil {
        return err
    }
    p.mu.Lock()
    defer p.mu.Unlock()
    if err := p.ensureChannel(); err != nil {
        p.log.Warn("rabbitmq: channel unavailable", zap.Error(err))
        return err
    }
    if err := p.ch.PublishWithContext(ctx,
        "",      // default exchange
        p.queue, // routing key = queue name
        false,   // mandatory
        false,   // immediate
        msg,
    ); err != nil {
        p.log.Warn("rabbitmq: publish failed",
            zap.Uint64("reservation_id", ev.ReservationID), zap.Error(err))
        p.reset()
        return err
    }
    return nil
}

// ensureChannel dials and declares the durable queue when needed.
// Callers must hold p.mu.
func (p *Publisher) ensureChannel() error {
    if p.ch != nil && !p.ch.IsClosed() {
        return nil
    }
    p.reset()
    conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
    if err != nil {
        return fmt.Errorf("dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return fmt.Errorf("channel open: %w", err)
    }
    if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return fmt.Errorf("queue declare: %w", err)
    }
    p.conn, p.ch = conn, ch
    return nil
}

func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil {
        _ = p.conn.Close()
    }
    p.ch, p.conn = nil, nil
}

func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
    return nil
}

// encode builds the persistent JSON message for ev.
func encode(ev ReservationConfirmedEvent, at time.Time) (amqp.Publishing, error) {
    body, err := json.Marshal(ev)
    if err != nil {
        return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
    }
    return amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    fmt.Sprintf("reservation-%d-confirmed", ev.ReservationID),
        Timestamp:    at.UTC(),
        Body:         body,
    }, nil
}
