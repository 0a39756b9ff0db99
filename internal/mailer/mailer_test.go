package mailer

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/iliyamo/cinema-booking-engine/internal/config"
	"github.com/iliyamo/cinema-booking-engine/internal/queue"
)

type recordingSender struct {
	sent []*gomail.Message
	err  error
}

func (r *recordingSender) DialAndSend(m ...*gomail.Message) error {
	r.sent = append(r.sent, m...)
	return r.err
}

var mailCfg = config.MailConfig{Host: "smtp.test", Port: 587, From: "tickets@cinema.test", CheckinURL: "https://cinema.test/checkin/"}

func event() queue.ReservationConfirmedEvent {
	return queue.ReservationConfirmedEvent{
		ReservationID: 12,
		UserEmail:     "ana@example.com",
		MovieTitle:    "Arrival",
		RoomNumber:    3,
		StartsAt:      "2026-05-01T18:00:00Z",
		Seats: []queue.TicketSeat{
			{SeatID: 1, Label: "C3", Code: "R12-S1-C1"},
			{SeatID: 2, Label: "C4", Code: "R12-S2-C2"},
		},
		TotalAmountCents: 1700,
		Currency:         "eur",
	}
}

func TestHandleSendsTicketPerSeat(t *testing.T) {
	s := &recordingSender{}
	m := NewWithSender(mailCfg, s, zap.NewNop())

	require.NoError(t, m.Handle(context.Background(), event()))
	require.Len(t, s.sent, 1)

	var raw bytes.Buffer
	_, err := s.sent[0].WriteTo(&raw)
	require.NoError(t, err)
	out := raw.String()
	assert.Contains(t, out, "To: ana@example.com")
	assert.Contains(t, out, "ticket-C3.png")
	assert.Contains(t, out, "ticket-C4.png")
	assert.Contains(t, out, "17.00 EUR")
	assert.Contains(t, out, "C3, C4")
}

func TestHandleReportsSendFailure(t *testing.T) {
	s := &recordingSender{err: errors.New("connection refused")}
	m := NewWithSender(mailCfg, s, zap.NewNop())

	err := m.Handle(context.Background(), event())
	assert.ErrorContains(t, err, "connection refused")
}

func TestHandleDisabledIsNoOp(t *testing.T) {
	s := &recordingSender{}
	m := NewWithSender(config.MailConfig{}, s, zap.NewNop())

	require.NoError(t, m.Handle(context.Background(), event()))
	assert.Empty(t, s.sent)
}

func TestTicketQRIsPNG(t *testing.T) {
	b, err := TicketQR("https://cinema.test/checkin/", "R12-S1-C1", 128)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "8.50 EUR", formatAmount(850, "eur"))
	assert.Equal(t, "Fri 01 May 2026, 18:00 UTC", humanTime("2026-05-01T18:00:00Z"))
	assert.Equal(t, "soon", humanTime("soon"))
}
