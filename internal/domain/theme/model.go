// Package theme models the light/dark display preference.
// It affects presentation only.
package theme

import "strings"

// Mode is a display palette.
type Mode string

const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

// StorageKey is the local storage key holding the mode.
const StorageKey = "themeMode"

// Default is the mode used when nothing is stored.
const Default = Light

// Parse reads a stored mode, falling back to Default for anything unknown.
// PRE: none
// POST: returns Light or Dark
func Parse(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Dark:
		return Dark
	default:
		return Default
	}
}

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == Dark {
		return Light
	}
	return Dark
}

// IsDark reports whether m is the dark palette.
func (m Mode) IsDark() bool {
	return m == Dark
}
