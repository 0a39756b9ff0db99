// Package mailer sends the booking confirmation email with one QR code
// ticket per seat.  It is driven by the reservation.confirmed consumer.
package mailer

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/iliyamo/cinema-booking-engine/internal/config"
	"github.com/iliyamo/cinema-booking-engine/internal/queue"
)

//go:embed templates/confirmation.html
var confirmationHTML string

var confirmationTmpl = template.Must(template.New("confirmation").Parse(confirmationHTML))

// Sender is satisfied by *gomail.Dialer.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	cfg    config.MailConfig
	sender Sender
	log    *zap.Logger
}

// New returns a mailer backed by an SMTP dialer built from cfg.
func New(cfg config.MailConfig, log *zap.Logger) *Mailer {
	return NewWithSender(cfg, gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), log)
}

func NewWithSender(cfg config.MailConfig, sender Sender, log *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, sender: sender, log: log}
}

// Handle is a queue.Handler.  With mail disabled the event is only logged.
func (m *Mailer) Handle(_ context.Context, ev queue.ReservationConfirmedEvent) error {
	if !m.cfg.Enabled() {
		m.log.Info("mail disabled, confirmation not sent", zap.Uint64("reservation_id", ev.ReservationID),
			zap.String("to", ev.UserEmail))
		return nil
	}
	if ev.UserEmail == "" {
		return fmt.Errorf("reservation %d has no recipient", ev.ReservationID)
	}
	msg, err := m.Build(ev)
	if err != nil {
		return err
	}
	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send confirmation for reservation %d: %w", ev.ReservationID, err)
	}
	m.log.Info("confirmation sent", zap.Uint64("reservation_id", ev.ReservationID), zap.Int("tickets", len(ev.Seats)))
	return nil
}

type confirmationData struct {
	ReservationID uint64
	MovieTitle    string
	RoomNumber    int
	StartsAt      string
	Seats         string
	Total         string
}

// Build renders the message and attaches the ticket images.
func (m *Mailer) Build(ev queue.ReservationConfirmedEvent) (*gomail.Message, error) {
	var body bytes.Buffer
	if err := confirmationTmpl.Execute(&body, confirmationData{
		ReservationID: ev.ReservationID,
		MovieTitle:    ev.MovieTitle,
		RoomNumber:    ev.RoomNumber,
		StartsAt:      humanTime(ev.StartsAt),
		Seats:         strings.Join(ev.SeatLabels(), ", "),
		Total:         formatAmount(ev.TotalAmountCents, ev.Currency),
	}); err != nil {
		return nil, fmt.Errorf("render confirmation: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", ev.UserEmail)
	msg.SetHeader("Subject", fmt.Sprintf("Your tickets for %s (reservation #%d)", ev.MovieTitle, ev.ReservationID))
	msg.SetBody("text/html", body.String())

	for _, seat := range ev.Seats {
		png, err := TicketQR(m.cfg.CheckinURL, seat.Code, 256)
		if err != nil {
			return nil, fmt.Errorf("ticket %s: %w", seat.Label, err)
		}
		msg.Attach("ticket-"+seat.Label+".png",
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(png)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {"image/png"}}),
		)
	}
	return msg, nil
}

// TicketQR encodes base/code as a PNG QR image of size pixels.
func TicketQR(base, code string, size int) ([]byte, error) {
	content := code
	if base != "" {
		content = strings.TrimRight(base, "/") + "/" + code
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}

func humanTime(rfc3339 string) string {
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return rfc3339
	}
	return t.UTC().Format("Mon 02 Jan 2006, 15:04 MST")
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, strings.ToUpper(currency))
}
