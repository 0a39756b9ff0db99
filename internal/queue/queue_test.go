package queue

import (
    "context"
    "encoding/json"
    "errors"
    "testing"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func sampleEvent() ReservationConfirmedEvent {
    return ReservationConfirmedEvent{
        ReservationID: 42,
        UserEmail:     "ana@example.com",
        MovieTitle:    "Arrival",
        Seats: []TicketSeat{
            {SeatID: 7, Label: "C3", PriceCents: 850, Code: "R42-S7"},
            {SeatID: 8, Label: "C4", PriceCents: 850, Code: "R42-S8"},
        },
        TotalAmountCents: 1700,
    }
}

func TestEncodeIsPersistentJSON(t *testing.T) {
    at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
    msg, err := encode(sampleEvent(), at)
    require.NoError(t, err)

    assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
    assert.Equal(t, "application/json", msg.ContentType)
    assert.Equal(t, "reservation-42-confirmed", msg.MessageId)
    assert.Equal(t, at, msg.Timestamp)

    var back ReservationConfirmedEvent
    require.NoError(t, json.Unmarshal(msg.Body, &back))
    assert.Equal(t, []string{"C3", "C4"}, back.SeatLabels())
}

func TestDispatch(t *testing.T) {
    body, _ := json.Marshal(sampleEvent())

    var got ReservationConfirmedEvent
    err := dispatch(context.Background(), body, func(_ context.Context, ev ReservationConfirmedEvent) error {
        got = ev
        return nil
    })
    require.NoError(t, err)
    assert.EqualValues(t, 1700, got.TotalAmountCents)

    boom := errors.New("smtp down")
    err = dispatch(context.Background(), body, func(context.Context, ReservationConfirmedEvent) error { return boom })
    assert.ErrorIs(t, err, boom)

    assert.Error(t, dispatch(context.Background(), []byte("{"), nil))
    assert.Error(t, dispatch(context.Background(), []byte(`{"user_id":1}`), nil))
}

func TestSleepHonoursContext(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    assert.False(t, sleep(ctx, time.Hour))
    assert.True(t, sleep(context.Background(), time.Millisecond))
}
