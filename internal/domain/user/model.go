package user

import (
	"strings"

	"scolarite/internal/domain/draft"
	"scolarite/internal/domain/session"
)

// User is an account held by the backend.
type User struct {
	ID        string       `json:"_id"`
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Email     string       `json:"email"`
	Role      session.Role `json:"role"`
}

// FullName returns "First Last".
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Filter narrows a user listing.
type Filter struct {
	Role    session.Role
	Keyword string
}

// Fields lists the form field names of a user draft.
var Fields = []string{"firstName", "lastName", "email", "password", "role"}

// Input is a validated user form.
// Password is only sent when registering.
type Input struct {
	FirstName string       `form:"firstName" json:"firstName" validate:"required"`
	LastName  string       `form:"lastName" json:"lastName" validate:"required"`
	Email     string       `form:"email" json:"email" validate:"required,email"`
	Password  string       `form:"password" json:"password,omitempty" validate:"required_if=Register true"`
	Role      session.Role `form:"role" json:"role" validate:"required,oneof=ADMIN SCOLARITE STUDENT"`
	Register  bool         `form:"-" json:"-"`
}

// Changes is the edit payload; it never carries a password.
type Changes struct {
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Email     string       `json:"email"`
	Role      session.Role `json:"role"`
}

// DraftOf pre-populates an edit draft from u.
func DraftOf(u User) draft.Draft {
	return draft.NewEdit(u.ID, map[string]string{
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"email":     u.Email,
		"role":      string(u.Role),
	})
}

// FromDraft validates a draft into an Input.
// PRE: d holds the user form fields
// POST: password is required only for create drafts; role is upper-cased
func FromDraft(d draft.Draft) (Input, error) {
	in := Input{
		FirstName: d.Get("firstName"),
		LastName:  d.Get("lastName"),
		Email:     d.Get("email"),
		Password:  d.Get("password"),
		Role:      session.Role(strings.ToUpper(d.Get("role"))),
		Register:  !d.IsEdit(),
	}
	if d.IsEdit() {
		in.Password = ""
	}
	if err := draft.Validate(in); err != nil {
		return Input{}, err
	}
	return in, nil
}

// Changes returns the edit payload of in.
func (in Input) Changes() Changes {
	return Changes{FirstName: in.FirstName, LastName: in.LastName, Email: in.Email, Role: in.Role}
}
