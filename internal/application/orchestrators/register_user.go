package orchestrators

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"scolarite/internal/adapters/email"
	"scolarite/internal/domain/user"
)

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, in user.Input) (user.User, error)
}

// RegisterUserInput carries a validated create form.
type RegisterUserInput struct {
	User user.Input
}

// RegisterUserDeps holds dependencies for RegisterUser.
type RegisterUserDeps struct {
	API      Registrar
	Mailer   email.Sender
	NotifyTo string // empty disables the notification
}

// ExecuteRegisterUser creates an account, then notifies the school office.
// PRE: input.User was validated with Register set
// POST: the notification is best effort; its failure is logged and not returned
func ExecuteRegisterUser(ctx context.Context, input RegisterUserInput, deps RegisterUserDeps) (user.User, error) {
	u, err := deps.API.Register(ctx, input.User)
	if err != nil {
		return user.User{}, fmt.Errorf("register user: %w", err)
	}
	slog.Info("user_registered", "id", u.ID, "role", input.User.Role)

	if deps.Mailer == nil || deps.NotifyTo == "" {
		return u, nil
	}
	in := input.User
	text := fmt.Sprintf("Un nouvel étudiant a été ajouté : %s %s (%s)", in.FirstName, in.LastName, in.Email)
	_, err = deps.Mailer.Send(ctx, email.SendRequest{
		To:      []string{deps.NotifyTo},
		Subject: "Nouvel utilisateur : " + in.FirstName + " " + in.LastName,
		HTML:    "<p>" + html.EscapeString(text) + "</p><p>Rôle : " + html.EscapeString(string(in.Role)) + "</p>",
		Text:    text,
	})
	if err != nil {
		slog.Warn("notify_email_failed", "user_email", in.Email, "error", err)
	}
	return u, nil
}
