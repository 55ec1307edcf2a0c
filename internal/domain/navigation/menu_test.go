package navigation

import (
	"testing"

	"scolarite/internal/domain/access"
	"scolarite/internal/domain/session"
)

// TestMenuFor_Order checks labels and order per role.
func TestMenuFor_Order(t *testing.T) {
	admin := MenuFor(session.RoleAdmin)
	if len(admin) != 5 || admin[0].Path != "/admin" || admin[4].Label != "Contact" {
		t.Errorf("admin menu = %+v", admin)
	}
	student := MenuFor(session.RoleStudent)
	if len(student) != 2 || student[0].Label != "Mes Notes & Statistiques" {
		t.Errorf("student menu = %+v", student)
	}
	if len(MenuFor("GUEST")) != 0 {
		t.Error("unknown role should have no menu")
	}
}

// TestMenuFor_EntriesAreReachable checks every entry passes the access table for its role.
func TestMenuFor_EntriesAreReachable(t *testing.T) {
	for _, role := range session.Roles {
		id := &session.Identity{SubjectID: "x", Role: role}
		for _, e := range MenuFor(role) {
			if !access.CanAccess(id, access.AllowedFor(e.Path)) {
				t.Errorf("%s menu links to forbidden %s", role, e.Path)
			}
		}
	}
}

// TestMenuFor_Copy checks callers cannot mutate the shared menu.
func TestMenuFor_Copy(t *testing.T) {
	m := MenuFor(session.RoleAdmin)
	m[0].Label = "changed"
	if MenuFor(session.RoleAdmin)[0].Label != "Utilisateurs" {
		t.Error("menu was mutated through a returned slice")
	}
}

// TestEntry_Active checks path matching at segment boundaries.
func TestEntry_Active(t *testing.T) {
	e := Entry{Path: "/notes"}
	if !e.Active("/notes") || !e.Active("/notes/new") || e.Active("/notesx") {
		t.Error("unexpected Active result")
	}
}
