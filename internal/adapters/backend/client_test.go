package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"

	"scolarite/internal/adapters/http/perf"
	"scolarite/internal/domain/fault"
	"scolarite/internal/domain/grade"
	"scolarite/internal/domain/session"
)

func newTestClient(t *testing.T, h http.Handler) (*Client, *Metrics) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	m := NewMetrics(prometheus.NewRegistry())
	return New(Options{BaseURL: srv.URL + "/", Metrics: m, Collector: perf.NewCollector(100)}), m
}

// TestClient_BearerToken verifies the token is attached only when present.
func TestClient_BearerToken(t *testing.T) {
	var got []string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	ctx := context.Background()
	if _, err := c.ListCourses(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := c.WithTokens(StaticToken("abc")).ListCourses(ctx); err != nil {
		t.Fatal(err)
	}
	if got[0] != "" || got[1] != "Bearer abc" {
		t.Errorf("Authorization headers = %q", got)
	}
}

// TestClient_ErrorMapping verifies status codes and body messages become faults.
func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		body   string
		kind   fault.Kind
		msg    string
	}{
		{401, `{"message":"Token invalide"}`, fault.KindAuth, "Token invalide"},
		{400, `{"message":"Champs manquants"}`, fault.KindValidation, "Champs manquants"},
		{404, ``, fault.KindNotFound, "Not Found"},
		{409, `{"error":"Email déjà utilisé"}`, fault.KindConflict, "Email déjà utilisé"},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			err := c.DeleteCourse(context.Background(), "c1")
			var fe *fault.Error
			if !errors.As(err, &fe) {
				t.Fatalf("err = %v, want *fault.Error", err)
			}
			if fe.Kind != tt.kind || fe.Status != tt.status || fe.Message != tt.msg {
				t.Errorf("fault = %+v", fe)
			}
		})
	}
}

// TestClient_NetworkError verifies transport failures map to KindNetwork.
func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(Options{BaseURL: srv.URL})
	_, err := c.ListCourses(context.Background())
	if fault.KindOf(err) != fault.KindNetwork {
		t.Errorf("kind = %q, err = %v", fault.KindOf(err), err)
	}
}

// TestClient_BreakerOpens verifies repeated 5xx responses open the breaker.
func TestClient_BreakerOpens(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	c := New(Options{BaseURL: srv.URL, Breaker: NewBreaker("test", 0)})

	for i := 0; i < 3; i++ {
		if _, err := c.ListCourses(context.Background()); fault.KindOf(err) != fault.KindServer {
			t.Fatalf("call %d: kind = %q", i, fault.KindOf(err))
		}
	}
	_, err := c.ListCourses(context.Background())
	if fault.KindOf(err) != fault.KindNetwork || !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("open breaker err = %v", err)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Errorf("backend hits = %d, want 3", hits)
	}
}

// TestClient_CanceledDoesNotTrip verifies cancellations are returned as is.
func TestClient_CanceledDoesNotTrip(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListCourses(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if fault.KindOf(err) != "" {
		t.Error("cancellation must not be reported as a fault")
	}
}

// TestClient_ListUsersQuery verifies paging and filter query parameters.
func TestClient_ListUsersQuery(t *testing.T) {
	c, m := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/user" || q.Get("page") != "2" || q.Get("limit") != "10" || q.Get("role") != "STUDENT" || q.Get("keyword") != "ada" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Write([]byte(`{"users":[{"_id":"u1","firstName":"Ada","role":"STUDENT"}],"pagination":{"totalDocuments":11}}`))
	}))
	p, err := c.ListUsers(context.Background(), PageQuery{Page: 2, Limit: 10, Keyword: "ada"}, session.RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Users) != 1 || p.Pagination.TotalDocuments != 11 || p.Users[0].Role != session.RoleStudent {
		t.Errorf("page = %+v", p)
	}
	if v := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/user", "ok")); v != 1 {
		t.Errorf("requests_total = %v, want 1", v)
	}
}

// TestClient_AllUsersPages verifies full collection reads stop at the reported total.
func TestClient_AllUsersPages(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		n := AllPageLimit
		if page == 2 {
			n = 5
		}
		users := make([]map[string]string, n)
		for i := range users {
			users[i] = map[string]string{"_id": strconv.Itoa(page*1000 + i)}
		}
		json.NewEncoder(w).Encode(map[string]any{"users": users, "pagination": map[string]int{"totalDocuments": AllPageLimit + 5}})
	}))
	all, err := c.AllUsers(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != AllPageLimit+5 || atomic.LoadInt32(&calls) != 2 {
		t.Errorf("got %d users in %d calls", len(all), calls)
	}
}

// TestClient_CreateGradeBody verifies a grade is posted as a one-element batch.
func TestClient_CreateGradeBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var batch []grade.Payload
		if err := json.Unmarshal(b, &batch); err != nil || len(batch) != 1 || batch[0].Grade != 12.5 {
			t.Errorf("body = %s", b)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	err := c.CreateGrade(context.Background(), grade.Payload{Student: "s", Course: "c", Grade: 12.5, Date: "2026-01-01"})
	if err != nil {
		t.Fatal(err)
	}
}

// TestClient_StudentGradesShapes verifies bare and wrapped grade arrays decode.
func TestClient_StudentGradesShapes(t *testing.T) {
	for _, body := range []string{
		`[{"_id":"g1","course":{"_id":"c1","name":"Algo"},"grade":"12","date":"2025-09-01"}]`,
		`{"grades":[{"_id":"g1","course":{"_id":"c1","name":"Algo"},"grade":12,"date":"2025-09-01"}]}`,
	} {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/grade/student/s1" {
				t.Errorf("path = %s", r.URL.Path)
			}
			w.Write([]byte(body))
		}))
		gs, err := c.StudentGrades(context.Background(), "s1")
		if err != nil {
			t.Fatal(err)
		}
		if len(gs) != 1 || gs[0].Course.Label() != "Algo" || gs[0].Period() != "2025-S2" {
			t.Errorf("grades = %+v", gs)
		}
	}
}

// TestClient_LoginBadCredentials verifies a 401 on login is an auth fault.
func TestClient_LoginBadCredentials(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Identifiants invalides"}`))
	}))
	_, err := c.Login(context.Background(), "a@b.fr", "x")
	if !fault.IsAuth(err) {
		t.Errorf("err = %v", err)
	}
}
