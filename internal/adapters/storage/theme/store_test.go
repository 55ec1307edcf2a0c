package theme

import (
	"context"
	"errors"
	"testing"

	domain "scolarite/internal/domain/theme"
)

type memLocal struct {
	items  map[string]string
	setErr error
}

func (m *memLocal) GetItem(ctx context.Context, key string) (string, bool, error) {
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memLocal) SetItem(ctx context.Context, key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.items[key] = value
	return nil
}

func (m *memLocal) RemoveItem(ctx context.Context, key string) error {
	delete(m.items, key)
	return nil
}

// TestStore_Toggle verifies the mode flips and persists under themeMode only.
func TestStore_Toggle(t *testing.T) {
	ctx := context.Background()
	local := &memLocal{items: map[string]string{"token": "t"}}
	s := NewStore(local)
	if s.Get(ctx) != domain.Light {
		t.Fatal("default should be light")
	}
	m, err := s.Toggle(ctx)
	if err != nil || m != domain.Dark {
		t.Fatalf("Toggle = %v, %v", m, err)
	}
	if local.items["themeMode"] != "dark" || local.items["token"] != "t" {
		t.Errorf("items = %v", local.items)
	}
	if s.Get(ctx) != domain.Dark {
		t.Error("mode not persisted")
	}
}

// TestStore_ToggleFailure verifies a failed write leaves the mode unchanged.
func TestStore_ToggleFailure(t *testing.T) {
	local := &memLocal{items: map[string]string{}, setErr: errors.New("full")}
	m, err := NewStore(local).Toggle(context.Background())
	if err == nil || m != domain.Light {
		t.Errorf("Toggle = %v, %v", m, err)
	}
}
