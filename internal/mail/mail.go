// Package mail sends transactional email: registration receipts, payment
// confirmations and contact form forwards.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type Address struct {
	Name  string
	Email string
}

type Message struct {
	To      Address
	ReplyTo *Address
	Subject string
	Text    string
	HTML    string
}

// Status describes the configured backend for the /api/email-status
// endpoint.
type Status struct {
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
	From       string `json:"from"`
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
	Status() Status
}

// SendGrid delivers mail through the SendGrid v3 API.
type SendGrid struct {
	client *sendgrid.Client
	from   Address
}

func NewSendGrid(apiKey string, from Address) *SendGrid {
	return newSendGrid(apiKey, "", from)
}

// newSendGrid allows pointing the client at a different API host.
func newSendGrid(apiKey, host string, from Address) *SendGrid {
	req := sendgrid.GetRequest(apiKey, "/v3/mail/send", host)
	req.Method = "POST"
	return &SendGrid{client: &sendgrid.Client{Request: req}, from: from}
}

func (s *SendGrid) Send(ctx context.Context, m Message) error {
	msg := sgmail.NewSingleEmail(
		sgmail.NewEmail(s.from.Name, s.from.Email),
		m.Subject,
		sgmail.NewEmail(m.To.Name, m.To.Email),
		m.Text,
		m.HTML,
	)
	if m.ReplyTo != nil {
		msg.SetReplyTo(sgmail.NewEmail(m.ReplyTo.Name, m.ReplyTo.Email))
	}

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (s *SendGrid) Status() Status {
	return Status{Provider: "sendgrid", Configured: true, From: s.from.Email}
}

// LogMailer writes messages to the log instead of sending them. It keeps
// the sent messages so tests can inspect them.
type LogMailer struct {
	logger *slog.Logger
	from   Address

	mu   sync.Mutex
	sent []Message
}

func NewLogMailer(logger *slog.Logger, from Address) *LogMailer {
	return &LogMailer{logger: logger, from: from}
}

func (l *LogMailer) Send(_ context.Context, m Message) error {
	l.mu.Lock()
	l.sent = append(l.sent, m)
	l.mu.Unlock()

	l.logger.Info("email not sent, no provider configured",
		"to", m.To.Email,
		"subject", m.Subject,
	)
	return nil
}

func (l *LogMailer) Status() Status {
	return Status{Provider: "log", Configured: false, From: l.from.Email}
}

func (l *LogMailer) Sent() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Message(nil), l.sent...)
}

// New picks SendGrid when an API key is configured.
func New(apiKey string, from Address, logger *slog.Logger) Mailer {
	if apiKey == "" {
		return NewLogMailer(logger, from)
	}
	return NewSendGrid(apiKey, from)
}
