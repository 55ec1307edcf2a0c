package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSender sends email through the SendGrid v3 API.
type SendGridSender struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewSendGridSender creates a sender with an API key and a default from address.
// PRE: from parses as an RFC 5322 address
func NewSendGridSender(apiKey, from string) (*SendGridSender, error) {
	addr, err := sgEmail(from)
	if err != nil {
		return nil, err
	}
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey), from: addr}, nil
}

func sgEmail(s string) (*sgmail.Email, error) {
	a, err := mail.ParseAddress(s)
	if err != nil {
		return nil, fmt.Errorf("parse address %q: %w", s, err)
	}
	return sgmail.NewEmail(a.Name, a.Address), nil
}

// build converts a request to a SendGrid message.
func (s *SendGridSender) build(req SendRequest) (*sgmail.SGMailV3, error) {
	from := s.from
	if req.From != "" {
		f, err := sgEmail(req.From)
		if err != nil {
			return nil, err
		}
		from = f
	}
	p := sgmail.NewPersonalization()
	p.Subject = req.Subject
	for _, to := range req.To {
		addr, err := sgEmail(to)
		if err != nil {
			return nil, err
		}
		p.AddTos(addr)
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(from)
	m.AddPersonalizations(p)
	if req.Text != "" {
		m.AddContent(sgmail.NewContent("text/plain", req.Text))
	}
	m.AddContent(sgmail.NewContent("text/html", req.HTML))
	if req.ReplyTo != "" {
		rt, err := sgEmail(req.ReplyTo)
		if err != nil {
			return nil, err
		}
		m.SetReplyTo(rt)
	}
	return m, nil
}

// Send delivers one email.
// POST: a status of 400 or more is an error
func (s *SendGridSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	m, err := s.build(req)
	if err != nil {
		return SendResult{}, err
	}
	// The v3 client has no context-aware send; honour cancellation before the call.
	if err := ctx.Err(); err != nil {
		return SendResult{}, fmt.Errorf("sendgrid send aborted: %w", err)
	}
	res, err := s.client.Send(m)
	if err != nil {
		slog.Error("email_send_failed", "provider", "sendgrid", "error", err, "subject", req.Subject)
		return SendResult{}, fmt.Errorf("sendgrid send failed: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		slog.Error("email_send_failed", "provider", "sendgrid", "status", res.StatusCode, "subject", req.Subject)
		return SendResult{}, fmt.Errorf("sendgrid send failed: status %d", res.StatusCode)
	}
	id := ""
	if v := res.Headers["X-Message-Id"]; len(v) > 0 {
		id = v[0]
	}
	slog.Info("email_sent", "provider", "sendgrid", "message_id", id, "subject", req.Subject)
	return SendResult{MessageID: id, SentAt: time.Now()}, nil
}
