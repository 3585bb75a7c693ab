package icloud

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"eventease/internal/models"
)

type recorded struct {
	method, path, contentType, body string
	user, pass                      string
	userAgent                       string
}

func newTestServer(t *testing.T, status int) (*httptest.Server, func() []recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		user, pass, _ := r.BasicAuth()
		mu.Lock()
		reqs = append(reqs, recorded{
			method: r.Method, path: r.URL.Path, contentType: r.Header.Get("Content-Type"),
			body: string(body), user: user, pass: pass, userAgent: r.Header.Get("User-Agent"),
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), reqs...)
	}
}

func testClient(t *testing.T, endpoint string) *CalDAVClient {
	t.Helper()
	c, err := newClient(slog.New(slog.NewTextHandler(io.Discard, nil)), Options{
		Endpoint: endpoint + "/",
		Username: "me@icloud.com",
		Password: "app-password",
	})
	if err != nil {
		t.Fatal(err)
	}
	c.calendarPath = "/123/calendars/events/"
	c.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestSyncEvent(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusCreated)
	c := testClient(t, srv.URL)

	e := &models.Event{ID: "evt-1", Title: "Launch", Date: time.Date(2024, 2, 1, 18, 0, 0, 0, time.UTC)}
	if err := c.SyncEvent(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	got := reqs()
	if len(got) != 1 {
		t.Fatalf("expected one request, got %d", len(got))
	}
	r := got[0]
	if r.method != http.MethodPut || r.path != "/123/calendars/events/evt-1@eventease.ics" {
		t.Fatalf("unexpected request %s %s", r.method, r.path)
	}
	if !strings.HasPrefix(r.contentType, "text/calendar") {
		t.Fatalf("unexpected content type %q", r.contentType)
	}
	if !strings.Contains(r.body, "UID:evt-1@eventease") || !strings.Contains(r.body, "SUMMARY:Launch") {
		t.Fatalf("unexpected body:\n%s", r.body)
	}
	if r.user != "me@icloud.com" || r.pass != "app-password" || r.userAgent != "eventease/1.0" {
		t.Fatalf("missing auth headers: %+v", r)
	}
}

func TestSyncEventServerError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusForbidden)
	c := testClient(t, srv.URL)

	err := c.SyncEvent(context.Background(), &models.Event{ID: "evt-1", Title: "Launch", Date: time.Now()})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRemoveEvent(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusNoContent)
	c := testClient(t, srv.URL)

	if err := c.RemoveEvent(context.Background(), "evt-1@eventease"); err != nil {
		t.Fatal(err)
	}
	got := reqs()
	if len(got) != 1 {
		t.Fatalf("expected one request, got %d", len(got))
	}
	r := got[0]
	if r.method != http.MethodDelete || r.path != "/123/calendars/events/evt-1@eventease.ics" {
		t.Fatalf("unexpected request %s %s", r.method, r.path)
	}
}
