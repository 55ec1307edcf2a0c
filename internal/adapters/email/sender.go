// Package email sends notification email through a provider that holds the
// credential server-side.
package email

import (
	"context"
	"time"
)

// SendRequest is one outgoing email.
type SendRequest struct {
	To      []string
	From    string // "Name <addr>"; empty uses the sender default
	Subject string
	HTML    string
	Text    string // plain-text alternative, optional
	ReplyTo string
}

// SendResult is the provider's acknowledgement.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}
