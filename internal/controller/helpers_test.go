package controller

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"eventease/internal/api"
	"eventease/internal/apitest"
	"eventease/internal/auth"
	"eventease/internal/models"
	"eventease/internal/session"
)

type fakeUI struct {
	mu      sync.Mutex
	confirm bool
	prompts []string
	alerts  []string
	routes  []string
}

func (u *fakeUI) Confirm(prompt string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.prompts = append(u.prompts, prompt)
	return u.confirm
}

func (u *fakeUI) Alert(message string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.alerts = append(u.alerts, message)
}

func (u *fakeUI) Navigate(route string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes = append(u.routes, route)
}

func (u *fakeUI) lastRoute() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.routes) == 0 {
		return ""
	}
	return u.routes[len(u.routes)-1]
}

func (u *fakeUI) lastAlert() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.alerts) == 0 {
		return ""
	}
	return u.alerts[len(u.alerts)-1]
}

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	backend *apitest.Backend
	client  *api.Client
	ui      *fakeUI
	deps    Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := apitest.NewBackend()
	t.Cleanup(b.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := api.NewClient(logger, b.URL())
	ui := &fakeUI{confirm: true}
	return &fixture{
		backend: b,
		client:  client,
		ui:      ui,
		deps: Deps{
			API:      client,
			UI:       ui,
			Logger:   logger,
			Now:      func() time.Time { return testNow },
			Location: time.UTC,
		},
	}
}

func (f *fixture) session(userID string) *session.Session {
	return session.New(models.Identity{ID: userID, Email: userID + "@example.com", Name: userID}, auth.NewBackendExchanger(f.client))
}

func intPtr(n int) *int { return &n }
