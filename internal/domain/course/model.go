package course

import (
	"strings"

	"scolarite/internal/domain/draft"
)

// Course is a course held by the backend.
type Course struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// Filter narrows a course listing.
type Filter struct {
	Keyword string
}

// Matches reports whether c matches the keyword on name or code, case-insensitively.
func (f Filter) Matches(c Course) bool {
	k := strings.ToLower(strings.TrimSpace(f.Keyword))
	if k == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), k) || strings.Contains(strings.ToLower(c.Code), k)
}

// Fields lists the form field names of a course draft.
var Fields = []string{"name", "code"}

// Input is a validated course form, sent as is on create and update.
type Input struct {
	Name string `form:"name" json:"name" validate:"required"`
	Code string `form:"code" json:"code" validate:"required"`
}

// DraftOf pre-populates an edit draft from c.
func DraftOf(c Course) draft.Draft {
	return draft.NewEdit(c.ID, map[string]string{"name": c.Name, "code": c.Code})
}

// FromDraft validates a draft into an Input.
func FromDraft(d draft.Draft) (Input, error) {
	in := Input{Name: d.Get("name"), Code: d.Get("code")}
	if err := draft.Validate(in); err != nil {
		return Input{}, err
	}
	return in, nil
}
