package contact

import (
	"net/url"
	"strings"

	"scolarite/internal/domain/draft"
	"scolarite/internal/domain/session"
)

// Message is a contact form submission.
type Message struct {
	Name  string `form:"name" validate:"required"`
	Email string `form:"email" validate:"required,email"`
	Body  string `form:"message" validate:"required,max=5000"`
}

// FromForm validates submitted contact form values.
func FromForm(values url.Values) (Message, error) {
	m := Message{
		Name:  strings.TrimSpace(values.Get("name")),
		Email: strings.TrimSpace(values.Get("email")),
		Body:  strings.TrimSpace(values.Get("message")),
	}
	if err := draft.Validate(m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Prefill returns form defaults taken from the signed-in identity.
func Prefill(id *session.Identity) map[string]string {
	if id == nil {
		return map[string]string{}
	}
	return map[string]string{"name": id.DisplayName(), "email": id.Email}
}

// Subject returns the email subject for m.
func (m Message) Subject() string {
	return "Nouveau message de " + m.Name
}
