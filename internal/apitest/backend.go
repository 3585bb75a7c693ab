// Package apitest provides an in-memory EventEase backend for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"eventease/internal/models"
)

// Failure forces a response for a route key such as "POST /events/{id}/join".
type Failure struct {
	Status int
	Body   string
}

// Backend is a fake backend. Tokens are "token-<userID>".
type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	events    []models.Event
	attending map[string]map[string]bool // eventID -> userID -> attending
	users     []models.User
	failures  map[string]Failure
	calls     map[string]int
	nextID    int
	lastAuth  map[string]string
	logins    map[string]login
}

type login struct {
	password string
	token    string
}

// NewBackend starts the fake server. Call Close when done.
func NewBackend() *Backend {
	b := &Backend{
		attending: make(map[string]map[string]bool),
		failures:  make(map[string]Failure),
		calls:     make(map[string]int),
		lastAuth:  make(map[string]string),
		logins:    make(map[string]login),
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	return b
}

func (b *Backend) Close() { b.Server.Close() }

// URL is the base URL of the fake.
func (b *Backend) URL() string { return b.Server.URL }

// TokenFor is the token the fake issues for a user id.
func TokenFor(userID string) string { return "token-" + userID }

// AddEvent seeds an event and returns it with an assigned id.
func (b *Backend) AddEvent(e models.Event) models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e.ID == "" {
		b.nextID++
		e.ID = fmt.Sprintf("evt-%d", b.nextID)
	}
	b.events = append(b.events, e)
	return e
}

// SetLogin makes POST /login accept email/password and return token.
func (b *Backend) SetLogin(email, password, token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logins[email] = login{password: password, token: token}
}

// SetAttending seeds an attendance relation.
func (b *Backend) SetAttending(eventID, userID string, attending bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setAttendingLocked(eventID, userID, attending)
}

// Attending reports whether userID attends eventID.
func (b *Backend) Attending(eventID, userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attending[eventID][userID]
}

// Fail makes route respond with status and a {"detail": detail} body.
// An empty detail sends a non-JSON body.
func (b *Backend) Fail(route string, status int, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	body := "<html>oops</html>"
	if detail != "" {
		d, _ := json.Marshal(map[string]string{"detail": detail})
		body = string(d)
	}
	b.failures[route] = Failure{Status: status, Body: body}
}

// Calls returns how often route was hit.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// LastAuth returns the Authorization header last seen on route.
func (b *Backend) LastAuth(route string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAuth[route]
}

// Events returns a copy of the stored events.
func (b *Backend) Events() []models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Event(nil), b.events...)
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	route, id := routeOf(r.Method, r.URL.Path)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[route]++
	b.lastAuth[route] = r.Header.Get("Authorization")

	if f, ok := b.failures[route]; ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.Status)
		fmt.Fprint(w, f.Body)
		return
	}

	user := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer token-")
	needsAuth := r.Header.Get("Authorization") != "" || strings.Contains(route, "join") ||
		strings.Contains(route, "leave") || strings.Contains(route, "attending") ||
		route == "GET /events/my" || r.Method == http.MethodPut || r.Method == http.MethodDelete ||
		route == "POST /events/" || route == "GET /users/"
	if needsAuth && (user == "" || user == r.Header.Get("Authorization")) {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	switch route {
	case "GET /health":
		writeJSON(w, http.StatusOK, models.Health{Status: "healthy", Timestamp: "2024-01-01T12:00:00"})
	case "POST /auth/validate":
		var ident models.Identity
		if err := json.NewDecoder(r.Body).Decode(&ident); err != nil || ident.ID == "" {
			writeDetail(w, http.StatusUnauthorized, "Invalid identity")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": TokenFor(ident.ID), "token_type": "bearer"})
	case "POST /login":
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		l, ok := b.logins[body.Email]
		if !ok || l.password != body.Password {
			writeDetail(w, http.StatusBadRequest, "Wrong password")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": l.token, "token_type": "bearer"})
	case "POST /users/":
		var nu models.NewUser
		_ = json.NewDecoder(r.Body).Decode(&nu)
		for _, u := range b.users {
			if u.Email == nu.Email {
				writeDetail(w, http.StatusBadRequest, "Email already in use")
				return
			}
		}
		u := models.User{ID: fmt.Sprintf("user-%d", len(b.users)+1), Name: nu.Name, Email: nu.Email, Role: models.DefaultRole}
		b.users = append(b.users, u)
		writeJSON(w, http.StatusCreated, u)
	case "GET /users/":
		writeJSON(w, http.StatusOK, append([]models.User{}, b.users...))
	case "GET /events/":
		writeJSON(w, http.StatusOK, append([]models.Event{}, b.events...))
	case "POST /events/":
		var in models.EventInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
			return
		}
		b.nextID++
		now := time.Now().UTC()
		e := models.Event{
			ID: fmt.Sprintf("evt-%d", b.nextID), Title: in.Title, Description: in.Description,
			Date: in.Date, Location: in.Location, MaxAttendees: in.MaxAttendees,
			IsPublic: in.IsPublic, CreatorID: user, CreatedAt: &now,
		}
		b.events = append(b.events, e)
		writeJSON(w, http.StatusCreated, e)
	case "GET /events/my":
		var out []models.Event
		for _, e := range b.events {
			if e.CreatorID == user {
				out = append(out, e)
			}
		}
		writeJSON(w, http.StatusOK, nonNil(out))
	case "GET /events/attending":
		var out []models.Event
		for _, e := range b.events {
			if b.attending[e.ID][user] {
				out = append(out, e)
			}
		}
		writeJSON(w, http.StatusOK, nonNil(out))
	case "GET /events/{id}":
		if e := b.find(id); e != nil {
			writeJSON(w, http.StatusOK, e)
			return
		}
		writeDetail(w, http.StatusNotFound, "Event not found")
	case "PUT /events/{id}":
		e := b.find(id)
		if e == nil {
			writeDetail(w, http.StatusNotFound, "Event not found")
			return
		}
		if e.CreatorID != user {
			writeDetail(w, http.StatusForbidden, "You are not allowed to edit this event")
			return
		}
		var in models.EventInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		e.Title, e.Description, e.Date, e.Location = in.Title, in.Description, in.Date, in.Location
		e.MaxAttendees, e.IsPublic = in.MaxAttendees, in.IsPublic
		writeJSON(w, http.StatusOK, e)
	case "DELETE /events/{id}":
		e := b.find(id)
		if e == nil {
			writeDetail(w, http.StatusNotFound, "Event not found")
			return
		}
		if e.CreatorID != user {
			writeDetail(w, http.StatusForbidden, "You are not allowed to delete this event")
			return
		}
		for i := range b.events {
			if b.events[i].ID == id {
				b.events = append(b.events[:i], b.events[i+1:]...)
				break
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Event deleted"})
	case "POST /events/{id}/join":
		e := b.find(id)
		if e == nil {
			writeDetail(w, http.StatusNotFound, "Event not found")
			return
		}
		if b.attending[id][user] {
			writeDetail(w, http.StatusBadRequest, "Already attending")
			return
		}
		if e.MaxAttendees != nil && e.CurrentAttendees >= *e.MaxAttendees {
			writeDetail(w, http.StatusBadRequest, "Event is full")
			return
		}
		b.setAttendingLocked(id, user, true)
		e.CurrentAttendees++
		writeJSON(w, http.StatusOK, map[string]string{"message": "joined"})
	case "POST /events/{id}/leave":
		e := b.find(id)
		if e == nil || !b.attending[id][user] {
			writeDetail(w, http.StatusBadRequest, "Not attending")
			return
		}
		b.setAttendingLocked(id, user, false)
		e.CurrentAttendees--
		writeJSON(w, http.StatusOK, map[string]string{"message": "left"})
	case "GET /events/{id}/is-attending":
		writeJSON(w, http.StatusOK, map[string]bool{"is_attending": b.attending[id][user]})
	default:
		writeDetail(w, http.StatusNotFound, "Not Found")
	}
}

func (b *Backend) find(id string) *models.Event {
	for i := range b.events {
		if b.events[i].ID == id {
			return &b.events[i]
		}
	}
	return nil
}

func (b *Backend) setAttendingLocked(eventID, userID string, attending bool) {
	if b.attending[eventID] == nil {
		b.attending[eventID] = make(map[string]bool)
	}
	b.attending[eventID][userID] = attending
}

// routeOf maps a request onto a route key, replacing the event id with {id}.
func routeOf(method, path string) (string, string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "events" && parts[1] != "my" && parts[1] != "attending" {
		rest := ""
		if len(parts) > 2 {
			rest = "/" + strings.Join(parts[2:], "/")
		}
		return method + " /events/{id}" + rest, parts[1]
	}
	return method + " " + path, ""
}

func nonNil(events []models.Event) []models.Event {
	if events == nil {
		return []models.Event{}
	}
	return events
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
