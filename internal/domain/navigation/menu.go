// Package navigation holds the role-keyed dashboard menu.
package navigation

import "scolarite/internal/domain/session"

// Entry is one menu item.
type Entry struct {
	Label string
	Path  string
}

var menus = map[session.Role][]Entry{
	session.RoleAdmin: {
		{Label: "Utilisateurs", Path: "/admin"},
		{Label: "Cours", Path: "/courses"},
		{Label: "Notes", Path: "/notes"},
		{Label: "Statistiques", Path: "/stats"},
		{Label: "Contact", Path: "/contact"},
	},
	session.RoleScolarite: {
		{Label: "Étudiants", Path: "/scolarite"},
		{Label: "Cours", Path: "/courses"},
		{Label: "Notes", Path: "/notes"},
		{Label: "Statistiques", Path: "/stats"},
		{Label: "Contact", Path: "/contact"},
	},
	session.RoleStudent: {
		{Label: "Mes Notes & Statistiques", Path: "/student"},
		{Label: "Contact Scolarité", Path: "/contact"},
	},
}

// MenuFor returns the ordered menu for a role. Unknown roles get no entries.
// POST: the returned slice is a copy
func MenuFor(role session.Role) []Entry {
	m := menus[role]
	out := make([]Entry, len(m))
	copy(out, m)
	return out
}

// Active reports whether e is the entry for the current path.
func (e Entry) Active(current string) bool {
	if e.Path == current {
		return true
	}
	return len(current) > len(e.Path) && current[:len(e.Path)] == e.Path && current[len(e.Path)] == '/'
}
