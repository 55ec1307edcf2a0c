package browser_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/playwright-community/playwright-go"

	_ "modernc.org/sqlite"

	"scolarite/internal/adapters/backend"
	"scolarite/internal/adapters/email"
	web "scolarite/internal/adapters/http"
	"scolarite/internal/adapters/http/middleware"
	"scolarite/internal/adapters/keys"
	"scolarite/internal/adapters/storage"
	"scolarite/internal/adapters/storage/local"
	"scolarite/internal/application/binding"
	"scolarite/internal/domain/session"
)

const testSecret = "browser-test-secret"

// testApp holds the running test server and Playwright handles.
type testApp struct {
	BaseURL string
	Backend *fakeBackend
	Mailer  *email.NoopSender
	Server  *http.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
}

// fakeBackend serves the REST endpoints the screens call. Every account
// signs in with the password "secret"; the email picks the role.
type fakeBackend struct {
	mu      sync.Mutex
	grades  []map[string]any
	deletes map[string]int
}

func newFakeBackend(grades int) *fakeBackend {
	fb := &fakeBackend{deletes: make(map[string]int)}
	for i := 1; i <= grades; i++ {
		month := 2
		if i%3 == 0 {
			month = 9
		}
		fb.grades = append(fb.grades, map[string]any{
			"_id":     fmt.Sprintf("g%02d", i),
			"student": map[string]string{"_id": "stu", "firstName": "Léa", "lastName": "Durand"},
			"course":  map[string]string{"_id": "c1", "name": "Algorithmique"},
			"grade":   8 + i%12,
			"date":    fmt.Sprintf("2025-%02d-10", month),
		})
	}
	return fb
}

func roleFor(email string) string {
	switch {
	case strings.HasPrefix(email, "admin"):
		return "ADMIN"
	case strings.HasPrefix(email, "scol"):
		return "SCOLARITE"
	default:
		return "STUDENT"
	}
}

func (fb *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reply := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			reply(http.StatusUnauthorized, map[string]string{"message": "Identifiants invalides"})
			return
		}
		tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"_id":       "stu",
			"role":      roleFor(body["email"]),
			"email":     body["email"],
			"firstName": "Léa",
			"lastName":  "Durand",
			"exp":       time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("k"))
		reply(http.StatusOK, map[string]any{"token": tok})
	case r.Method == http.MethodGet && r.URL.Path == "/grade":
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		page, limit = max(page, 1), max(limit, 1)
		start := min((page-1)*limit, len(fb.grades))
		end := min(start+limit, len(fb.grades))
		reply(http.StatusOK, map[string]any{"grades": fb.grades[start:end], "pagination": map[string]int{"totalDocuments": len(fb.grades)}})
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/grade/student/"):
		reply(http.StatusOK, fb.grades)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/grade/"):
		id := strings.TrimPrefix(r.URL.Path, "/grade/")
		fb.deletes[id]++
		for i, g := range fb.grades {
			if g["_id"] == id {
				fb.grades = append(fb.grades[:i], fb.grades[i+1:]...)
				break
			}
		}
		reply(http.StatusOK, map[string]string{"message": "ok"})
	case r.Method == http.MethodGet && r.URL.Path == "/course":
		reply(http.StatusOK, []map[string]string{{"_id": "c1", "name": "Algorithmique", "code": "ALG"}})
	case r.Method == http.MethodGet && r.URL.Path == "/user":
		users := []map[string]string{{"_id": "stu", "firstName": "Léa", "lastName": "Durand", "email": "lea@test.fr", "role": "STUDENT"}}
		reply(http.StatusOK, map[string]any{"users": users, "pagination": map[string]int{"totalDocuments": len(users)}})
	default:
		reply(http.StatusOK, map[string]string{"message": "ok"})
	}
}

func (fb *fakeBackend) deleteCount(id string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.deletes[id]
}

// newTestApp wires the real mux over a SQLite local store and a fake backend, then starts Playwright.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	fb := newFakeBackend(25)
	api := httptest.NewServer(fb)
	t.Cleanup(api.Close)

	db, err := storage.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.InitDB(ctx, db); err != nil {
		t.Fatalf("failed to init test DB: %v", err)
	}
	store := local.NewSQLiteStore(db)
	sealer, err := local.NewSealer(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	openLocal := func(id string) session.LocalStorage { return local.ForBrowser(store, sealer, id) }

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	mailer := email.NewNoopSender()
	mux := web.NewMux(web.Deps{
		API:       backend.New(backend.Options{BaseURL: api.URL}),
		Sessions:  session.NewRegistry(openLocal),
		Bindings:  binding.NewRegistry(time.Hour),
		Local:     openLocal,
		Browser:   middleware.NewBrowser(keys.MustDerive(testSecret, keys.PurposeCookieHash, 32), keys.MustDerive(testSecret, keys.PurposeCookieEnc, 32), false),
		Mailer:    mailer,
		ContactTo: "scolarite@test.fr",
		Ping:      store.Ping,
		CSRFKey:   keys.MustDerive(testSecret, keys.PurposeCSRF, 32),
		TrustedOrigins: []string{
			fmt.Sprintf("127.0.0.1:%d", port),
			fmt.Sprintf("localhost:%d", port),
		},
	})
	srv := &http.Server{Addr: fmt.Sprintf("127.0.0.1:%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	// Wait for server to be ready
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	for range 50 {
		resp, err := http.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}

	app := &testApp{BaseURL: baseURL, Backend: fb, Mailer: mailer, Server: srv, PW: pw, Browser: browser}
	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
	})
	return app
}

// newPage creates a new browser page (tab).
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// login signs in with email and waits for the role's landing screen.
func (a *testApp) login(t *testing.T, page playwright.Page, email, landing string) {
	t.Helper()
	if _, err := page.Goto(a.BaseURL + "/"); err != nil {
		t.Fatalf("failed to navigate to login: %v", err)
	}
	if err := page.Locator("input[name=email]").Fill(email); err != nil {
		t.Fatalf("failed to fill email: %v", err)
	}
	if err := page.Locator("input[name=password]").Fill("secret"); err != nil {
		t.Fatalf("failed to fill password: %v", err)
	}
	if err := page.Locator("form[action='/login'] button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to click login: %v", err)
	}
	if err := page.WaitForURL(a.BaseURL+landing, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("login did not land on %s: %v", landing, err)
	}
}

func skipShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
}
