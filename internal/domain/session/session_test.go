package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// memLocal is an in-memory LocalStorage for tests.
type memLocal struct {
	mu      sync.Mutex
	items   map[string]string
	setErr  error
	getErr  error
	removes int
}

func newMemLocal() *memLocal {
	return &memLocal{items: make(map[string]string)}
}

func (m *memLocal) GetItem(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memLocal) SetItem(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.items[key] = value
	return nil
}

func (m *memLocal) RemoveItem(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removes++
	delete(m.items, key)
	return nil
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

// TestDecode_ValidToken verifies claims extraction without the signing key.
func TestDecode_ValidToken(t *testing.T) {
	tok := signToken(t, jwt.MapClaims{
		"_id":       "u1",
		"role":      "SCOLARITE",
		"email":     "s@ecole.fr",
		"firstName": "Sarah",
		"lastName":  "Martin",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	id, err := Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if id.SubjectID != "u1" || id.Role != RoleScolarite {
		t.Errorf("got subject=%q role=%q", id.SubjectID, id.Role)
	}
	if id.DisplayName() != "Sarah Martin" {
		t.Errorf("DisplayName = %q", id.DisplayName())
	}
	if v, ok := id.Claim("email"); !ok || v != "s@ecole.fr" {
		t.Errorf("Claim(email) = %v, %v", v, ok)
	}
}

// TestDecode_SubjectFallbacks verifies _id, id and sub are all accepted.
func TestDecode_SubjectFallbacks(t *testing.T) {
	for _, key := range []string{"_id", "id", "sub"} {
		id, err := Decode(signToken(t, jwt.MapClaims{key: "abc", "role": "STUDENT"}))
		if err != nil {
			t.Fatalf("%s: %v", key, err)
		}
		if id.SubjectID != "abc" {
			t.Errorf("%s: SubjectID = %q", key, id.SubjectID)
		}
	}
}

// TestDecode_Rejections verifies malformed, expired and role-less tokens fail.
func TestDecode_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrEmptyToken},
		{"garbage", "not-a-jwt", ErrMalformedToken},
		{"expired", signToken(t, jwt.MapClaims{"_id": "u", "role": "ADMIN", "exp": time.Now().Add(-time.Minute).Unix()}), ErrTokenExpired},
		{"noSubject", signToken(t, jwt.MapClaims{"role": "ADMIN"}), ErrMissingSubject},
		{"badRole", signToken(t, jwt.MapClaims{"_id": "u", "role": "JANITOR"}), ErrUnknownRole},
		{"noRole", signToken(t, jwt.MapClaims{"_id": "u"}), ErrUnknownRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode error = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestStore_LoginLogoutRoundTrip verifies login then read yields the token's role,
// and logout then read yields no identity.
func TestStore_LoginLogoutRoundTrip(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal()
	st := NewStore(local)

	tok := signToken(t, jwt.MapClaims{"_id": "a1", "role": "ADMIN"})
	if _, err := st.Login(ctx, tok); err != nil {
		t.Fatalf("Login: %v", err)
	}
	cur := st.Current()
	if cur.Identity == nil || cur.Identity.Role != RoleAdmin {
		t.Fatalf("after login identity = %+v", cur.Identity)
	}
	if local.items[TokenKey] != tok {
		t.Error("token was not persisted")
	}

	if err := st.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !st.Current().IsZero() {
		t.Error("expected no session after logout")
	}
	if _, ok := local.items[TokenKey]; ok {
		t.Error("token still persisted after logout")
	}
}

// TestStore_LoginRejectsBadToken verifies nothing changes on an undecodable token.
func TestStore_LoginRejectsBadToken(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal()
	st := NewStore(local)
	good := signToken(t, jwt.MapClaims{"_id": "s1", "role": "STUDENT"})
	if _, err := st.Login(ctx, good); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Login(ctx, "garbage"); err == nil {
		t.Fatal("expected error")
	}
	if st.Current().Token != good || local.items[TokenKey] != good {
		t.Error("bad login must not replace the existing session")
	}
}

// TestStore_LoginPersistFailure verifies memory is untouched when storage fails.
func TestStore_LoginPersistFailure(t *testing.T) {
	local := newMemLocal()
	local.setErr = errors.New("disk full")
	st := NewStore(local)
	_, err := st.Login(context.Background(), signToken(t, jwt.MapClaims{"_id": "s1", "role": "STUDENT"}))
	if err == nil {
		t.Fatal("expected error")
	}
	if !st.Current().IsZero() {
		t.Error("identity must not be observable without a persisted token")
	}
}

// TestStore_Restore verifies restore from storage, and silent discard of bad tokens.
func TestStore_Restore(t *testing.T) {
	ctx := context.Background()

	local := newMemLocal()
	local.items[TokenKey] = signToken(t, jwt.MapClaims{"_id": "s1", "role": "STUDENT"})
	if got := NewStore(local).Restore(ctx); got.Identity == nil || got.Identity.SubjectID != "s1" {
		t.Errorf("restore valid: %+v", got)
	}

	expired := newMemLocal()
	expired.items[TokenKey] = signToken(t, jwt.MapClaims{"_id": "s1", "role": "STUDENT", "exp": time.Now().Add(-time.Hour).Unix()})
	if got := NewStore(expired).Restore(ctx); !got.IsZero() {
		t.Errorf("restore expired should be empty, got %+v", got)
	}
	if _, ok := expired.items[TokenKey]; ok {
		t.Error("expired token should be removed")
	}

	broken := newMemLocal()
	broken.getErr = errors.New("io")
	if got := NewStore(broken).Restore(ctx); !got.IsZero() {
		t.Error("restore with storage error should be empty")
	}

	if got := NewStore(newMemLocal()).Restore(ctx); !got.IsZero() {
		t.Error("restore with no token should be empty")
	}
}

// TestRegistry_ForAndSweep verifies per-browser stores are cached and swept.
func TestRegistry_ForAndSweep(t *testing.T) {
	ctx := context.Background()
	locals := map[string]*memLocal{"b1": newMemLocal(), "b2": newMemLocal()}
	locals["b1"].items[TokenKey] = signToken(t, jwt.MapClaims{"_id": "a", "role": "ADMIN"})
	reg := NewRegistry(func(id string) LocalStorage { return locals[id] })

	s1 := reg.For(ctx, "b1")
	if s1.Current().Identity == nil {
		t.Fatal("b1 should be restored")
	}
	if reg.For(ctx, "b1") != s1 {
		t.Error("expected cached store")
	}
	if reg.For(ctx, "b2").Current().Identity != nil {
		t.Error("b2 has no token")
	}

	orig := timeNow
	timeNow = func() time.Time { return orig().Add(2 * time.Hour) }
	defer func() { timeNow = orig }()
	if n := reg.Sweep(time.Hour); n != 2 {
		t.Errorf("Sweep dropped %d, want 2", n)
	}
}

// TestLandingPath verifies role landing screens.
func TestLandingPath(t *testing.T) {
	if LandingPath(RoleAdmin) != "/admin" || LandingPath(RoleScolarite) != "/scolarite" || LandingPath(RoleStudent) != "/student" {
		t.Error("unexpected landing paths")
	}
}
