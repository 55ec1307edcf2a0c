package contact

import (
	"net/url"
	"testing"

	"scolarite/internal/domain/fault"
	"scolarite/internal/domain/session"
)

// TestFromForm tests required fields and email format.
func TestFromForm(t *testing.T) {
	_, err := FromForm(url.Values{"name": {"Ada"}, "email": {"bad"}})
	f := fault.FieldsOf(err)
	if f["email"] == "" || f["message"] == "" {
		t.Errorf("fields = %v", f)
	}
	m, err := FromForm(url.Values{"name": {" Ada "}, "email": {"ada@ecole.fr"}, "message": {"Bonjour"}})
	if err != nil {
		t.Fatalf("FromForm: %v", err)
	}
	if m.Name != "Ada" || m.Subject() != "Nouveau message de Ada" {
		t.Errorf("message = %+v", m)
	}
}

// TestPrefill tests defaults from the identity.
func TestPrefill(t *testing.T) {
	if len(Prefill(nil)) != 0 {
		t.Error("anonymous prefill should be empty")
	}
	p := Prefill(&session.Identity{FirstName: "Ada", LastName: "L", Email: "a@x.fr"})
	if p["name"] != "Ada L" || p["email"] != "a@x.fr" {
		t.Errorf("prefill = %v", p)
	}
}
