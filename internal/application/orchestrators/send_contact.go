package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"

	"scolarite/internal/adapters/email"
	"scolarite/internal/domain/contact"
)

// SendContactInput carries a validated contact message.
type SendContactInput struct {
	Message contact.Message
}

// SendContactDeps holds dependencies for SendContact.
type SendContactDeps struct {
	Mailer email.Sender
	To     string
}

// ErrNoRecipient is returned when no contact address is configured.
var ErrNoRecipient = errors.New("no contact recipient configured")

// ExecuteSendContact renders the markdown body and emails it to the school office.
// PRE: input.Message passed contact.FromForm validation
// POST: the reply-to address is the sender's, so the office answers them directly
func ExecuteSendContact(ctx context.Context, input SendContactInput, deps SendContactDeps) error {
	if deps.To == "" {
		return ErrNoRecipient
	}
	m := input.Message
	body, err := email.RenderMarkdown(m.Body)
	if err != nil {
		return err
	}
	header := fmt.Sprintf("<p><strong>%s</strong> &lt;%s&gt; a écrit :</p>\n",
		html.EscapeString(m.Name), html.EscapeString(m.Email))

	res, err := deps.Mailer.Send(ctx, email.SendRequest{
		To:      []string{deps.To},
		Subject: m.Subject(),
		HTML:    header + body,
		Text:    m.Body,
		ReplyTo: m.Email,
	})
	if err != nil {
		return fmt.Errorf("send contact message: %w", err)
	}
	slog.Info("contact_sent", "message_id", res.MessageID, "from", m.Email)
	return nil
}
