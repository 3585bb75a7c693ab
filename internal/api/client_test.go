package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventease/internal/apitest"
	"eventease/internal/metrics"
	"eventease/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUnconfigured_ReadsReturnEmpty(t *testing.T) {
	c := NewClient(testLogger(), "")
	ctx := context.Background()

	if c.Configured() {
		t.Fatal("client without url should be unconfigured")
	}
	for name, fn := range map[string]func() ([]models.Event, error){
		"list":      func() ([]models.Event, error) { return c.ListEvents(ctx) },
		"my":        func() ([]models.Event, error) { return c.MyEvents(ctx, "t") },
		"attending": func() ([]models.Event, error) { return c.AttendingEvents(ctx, "t") },
	} {
		events, err := fn()
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		if events == nil || len(events) != 0 {
			t.Fatalf("%s: expected empty non-nil slice, got %#v", name, events)
		}
	}
}

func TestUnconfigured_WritesFail(t *testing.T) {
	c := NewClient(testLogger(), "")
	ctx := context.Background()

	checks := map[string]error{}
	_, checks["get"] = c.GetEvent(ctx, "1")
	_, checks["create"] = c.CreateEvent(ctx, models.EventInput{}, "t")
	_, checks["update"] = c.UpdateEvent(ctx, "1", models.EventInput{}, "t")
	checks["delete"] = c.DeleteEvent(ctx, "1", "t")
	checks["join"] = c.JoinEvent(ctx, "1", "t")
	checks["leave"] = c.LeaveEvent(ctx, "1", "t")
	_, checks["attending"] = c.IsAttending(ctx, "1", "t")
	_, checks["health"] = c.Health(ctx)
	_, checks["validate"] = c.ValidateIdentity(ctx, models.Identity{ID: "1"})
	_, checks["users"] = c.ListUsers(ctx, "t")

	for name, err := range checks {
		var ce *ConfigurationError
		if !errors.As(err, &ce) {
			t.Fatalf("%s: expected ConfigurationError, got %v", name, err)
		}
	}
}

func TestHTTPError_DetailFromBody(t *testing.T) {
	b := apitest.NewBackend()
	defer b.Close()
	c := NewClient(testLogger(), b.URL())

	_, err := c.GetEvent(context.Background(), "missing")
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.StatusCode != http.StatusNotFound || he.Detail != "Event not found" {
		t.Fatalf("unexpected error %+v", he)
	}
	if !IsNotFound(err) {
		t.Fatal("IsNotFound should match a 404")
	}
	if Message(err) != "Event not found" {
		t.Fatalf("unexpected message %q", Message(err))
	}
}

func TestHTTPError_GenericWhenBodyUnparseable(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"html", "<html>bad gateway</html>"},
		{"non-string detail", `{"detail":[{"loc":["body","title"],"msg":"field required"}]}`},
		{"empty detail", `{"detail":""}`},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, tt.body)
		}))
		c := NewClient(testLogger(), server.URL)
		_, err := c.ListEvents(context.Background())
		server.Close()

		var he *HTTPError
		if !errors.As(err, &he) {
			t.Fatalf("%s: expected HTTPError, got %v", tt.name, err)
		}
		if he.Detail != "request failed: Bad Gateway" {
			t.Fatalf("%s: expected generic detail, got %q", tt.name, he.Detail)
		}
	}
}

func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := NewClient(testLogger(), url)
	err := c.JoinEvent(context.Background(), "1", "t")
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestMutatingRequestHeaders(t *testing.T) {
	var got http.Header
	var method, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		method, path = r.Method, r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"e1","title":"x","date":"2030-01-01T10:00:00"}`)
	}))
	defer server.Close()

	c := NewClient(testLogger(), server.URL)
	_, err := c.UpdateEvent(context.Background(), "e1", models.EventInput{Title: "x"}, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if method != http.MethodPut || path != "/events/e1" {
		t.Fatalf("unexpected request %s %s", method, path)
	}
	if got.Get("Content-Type") != "application/json" {
		t.Fatalf("expected json content type, got %q", got.Get("Content-Type"))
	}
	if got.Get("Authorization") != "Bearer abc" {
		t.Fatalf("expected bearer auth, got %q", got.Get("Authorization"))
	}
	if got.Get("X-Request-ID") == "" {
		t.Fatal("expected a request id")
	}
}

func TestEventLifecycle(t *testing.T) {
	b := apitest.NewBackend()
	defer b.Close()
	c := NewClient(testLogger(), b.URL())
	ctx := context.Background()
	token := apitest.TokenFor("u1")

	max := 2
	created, err := c.CreateEvent(ctx, models.EventInput{
		Title: "Launch Party", Description: "Annual product launch event",
		Date: time.Now().Add(48 * time.Hour), Location: "Main Hall", MaxAttendees: &max, IsPublic: true,
	}, token)
	if err != nil {
		t.Fatal(err)
	}
	if created.CreatorID != "u1" {
		t.Fatalf("expected creator u1, got %q", created.CreatorID)
	}

	mine, err := c.MyEvents(ctx, token)
	if err != nil || len(mine) != 1 {
		t.Fatalf("expected one own event, got %v (%v)", mine, err)
	}

	other := apitest.TokenFor("u2")
	if err := c.JoinEvent(ctx, created.ID, other); err != nil {
		t.Fatal(err)
	}
	attending, err := c.IsAttending(ctx, created.ID, other)
	if err != nil || !attending {
		t.Fatalf("expected attending after join, got %v (%v)", attending, err)
	}
	list, err := c.AttendingEvents(ctx, other)
	if err != nil || len(list) != 1 || list[0].CurrentAttendees != 1 {
		t.Fatalf("unexpected attending list %+v (%v)", list, err)
	}
	if err := c.LeaveEvent(ctx, created.ID, other); err != nil {
		t.Fatal(err)
	}

	if err := c.DeleteEvent(ctx, created.ID, other); err == nil {
		t.Fatal("non-creator delete should fail")
	}
	if err := c.DeleteEvent(ctx, created.ID, token); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetEvent(ctx, created.ID); !IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestIsAttending_Idempotent(t *testing.T) {
	b := apitest.NewBackend()
	defer b.Close()
	e := b.AddEvent(models.Event{Title: "Meetup", CreatorID: "u1"})
	b.SetAttending(e.ID, "u2", true)
	c := NewClient(testLogger(), b.URL())

	first, err := c.IsAttending(context.Background(), e.ID, apitest.TokenFor("u2"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.IsAttending(context.Background(), e.ID, apitest.TokenFor("u2"))
	if err != nil {
		t.Fatal(err)
	}
	if first != second || !first {
		t.Fatalf("expected stable true, got %v then %v", first, second)
	}
}

func TestValidateIdentity_DefaultsRole(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		io.WriteString(w, `{"access_token":"tok","token_type":"bearer"}`)
	}))
	defer server.Close()

	c := NewClient(testLogger(), server.URL)
	tr, err := c.ValidateIdentity(context.Background(), models.Identity{ID: "1", Email: "a@b.c", Name: "A"})
	if err != nil {
		t.Fatal(err)
	}
	if tr.AccessToken != "tok" {
		t.Fatalf("unexpected token %q", tr.AccessToken)
	}
	want := `{"id":"1","email":"a@b.c","name":"A","role":"USER"}`
	if body != want {
		t.Fatalf("expected body %s, got %s", want, body)
	}
}

func TestUsers(t *testing.T) {
	b := apitest.NewBackend()
	defer b.Close()
	c := NewClient(testLogger(), b.URL())
	ctx := context.Background()

	u, err := c.CreateUser(ctx, models.NewUser{Name: "Ada", Email: "ada@example.com", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.CreateUser(ctx, models.NewUser{Name: "Ada", Email: "ada@example.com", Password: "pw"}); Message(err) != "Email already in use" {
		t.Fatalf("expected duplicate email detail, got %v", err)
	}
	users, err := c.ListUsers(ctx, apitest.TokenFor(u.ID))
	if err != nil || len(users) != 1 {
		t.Fatalf("expected one user, got %v (%v)", users, err)
	}
}

func TestMetricsRecorded(t *testing.T) {
	b := apitest.NewBackend()
	defer b.Close()
	m := metrics.New()
	c := NewClient(testLogger(), b.URL(), WithMetrics(m), WithTimeout(5*time.Second))

	if _, err := c.Health(context.Background()); err != nil {
		t.Fatal(err)
	}
	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "eventease_api_requests_total" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected api request counter to be exported")
	}
}
