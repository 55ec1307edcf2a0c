package access

import (
	"testing"

	"scolarite/internal/domain/session"
)

func identity(role session.Role) *session.Identity {
	return &session.Identity{SubjectID: "x", Role: role}
}

// TestDecide covers anonymous, wrong-role and right-role visits.
func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		id      *session.Identity
		allowed RoleSet
		want    Decision
	}{
		{"public anonymous", nil, nil, Allow},
		{"anonymous restricted", nil, Roles(session.RoleAdmin), RedirectLogin},
		{"wrong role", identity(session.RoleStudent), Roles(session.RoleAdmin), Unauthorized},
		{"right role", identity(session.RoleAdmin), Roles(session.RoleAdmin), Allow},
		{"one of many", identity(session.RoleScolarite), Roles(session.RoleAdmin, session.RoleScolarite), Allow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.id, tt.allowed); got != tt.want {
				t.Errorf("Decide = %v, want %v", got, tt.want)
			}
			if CanAccess(tt.id, tt.allowed) != (tt.want == Allow) {
				t.Error("CanAccess disagrees with Decide")
			}
		})
	}
}

// TestAllowedFor checks the route table for every screen.
func TestAllowedFor(t *testing.T) {
	tests := []struct {
		path  string
		role  session.Role
		allow bool
	}{
		{"/admin", session.RoleAdmin, true},
		{"/admin/users/42/edit", session.RoleScolarite, false},
		{"/scolarite", session.RoleScolarite, true},
		{"/courses", session.RoleScolarite, true},
		{"/notes", session.RoleAdmin, true},
		{"/stats", session.RoleStudent, false},
		{"/student", session.RoleStudent, true},
		{"/student/export.csv", session.RoleAdmin, false},
		{"/contact", session.RoleStudent, true},
		{"/contact", session.RoleAdmin, true},
	}
	for _, tt := range tests {
		got := CanAccess(identity(tt.role), AllowedFor(tt.path))
		if got != tt.allow {
			t.Errorf("%s as %s: got %v, want %v", tt.path, tt.role, got, tt.allow)
		}
	}
	if !AllowedFor("/").Public() || !AllowedFor("/unauthorized").Public() {
		t.Error("login and unauthorized screens must be public")
	}
	if !AllowedFor("/administration").Public() {
		t.Error("prefix match must stop at a path boundary")
	}
}
