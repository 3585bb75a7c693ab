package controller

import (
	"context"
	"fmt"
	"sync"

	"eventease/internal/api"
	"eventease/internal/models"
	"eventease/internal/notify"
	"eventease/internal/session"
)

// ListKind selects which collection a list shows.
type ListKind string

const (
	ListAll       ListKind = "all"
	ListMine      ListKind = "my"
	ListAttending ListKind = "attending"
)

func (k ListKind) requiresSession() bool {
	return k == ListMine || k == ListAttending
}

// ListController drives the all-events, my-events and attending-events pages.
type ListController struct {
	deps Deps
	kind ListKind

	mu      sync.Mutex
	sess    *session.Session
	events  []models.Event
	loading bool
	banner  string
}

func NewListController(deps Deps, kind ListKind, sess *session.Session) *ListController {
	return &ListController{deps: deps.withDefaults(), kind: kind, sess: sess}
}

// Kind returns which collection the list shows.
func (l *ListController) Kind() ListKind { return l.kind }

// Load fetches the collection. Lists that need a session send anonymous
// viewers to sign-in.
func (l *ListController) Load(ctx context.Context) error {
	l.mu.Lock()
	sess := l.sess
	l.loading = true
	l.banner = ""
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.loading = false
		l.mu.Unlock()
	}()

	if l.kind.requiresSession() && !sess.Authenticated() {
		l.deps.UI.Navigate(RouteSignIn)
		return session.ErrNoSession
	}

	events, err := l.fetch(ctx, sess)
	if err != nil {
		l.deps.Logger.Error("Failed to load events", "list", l.kind, "error", err)
		l.mu.Lock()
		l.banner = api.Message(err)
		l.mu.Unlock()
		return err
	}

	l.mu.Lock()
	l.events = events
	l.mu.Unlock()
	return nil
}

func (l *ListController) fetch(ctx context.Context, sess *session.Session) ([]models.Event, error) {
	if l.kind == ListAll {
		events, err := l.deps.API.ListEvents(ctx)
		if err != nil {
			return nil, err
		}
		return visibleTo(events, sess.UserID()), nil
	}

	// Unconfigured reads are empty; skip the token exchange that would fail.
	if !l.deps.API.Configured() {
		return []models.Event{}, nil
	}
	token, err := sess.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if l.kind == ListMine {
		return l.deps.API.MyEvents(ctx, token)
	}
	return l.deps.API.AttendingEvents(ctx, token)
}

// visibleTo keeps public events and the viewer's own private ones.
func visibleTo(events []models.Event, userID string) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if e.IsPublic || e.IsCreatedBy(userID) {
			out = append(out, e)
		}
	}
	return out
}

// SetSession swaps the session and reloads when it becomes authenticated.
func (l *ListController) SetSession(ctx context.Context, sess *session.Session) error {
	l.mu.Lock()
	was := l.sess.Authenticated()
	l.sess = sess
	l.mu.Unlock()

	if !was && sess.Authenticated() {
		return l.Load(ctx)
	}
	return nil
}

// Events returns the current items in backend order.
func (l *ListController) Events() []models.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Event(nil), l.events...)
}

// Banner is the page-level error, if any.
func (l *ListController) Banner() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.banner
}

// Loading reports whether a fetch is in flight.
func (l *ListController) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// StatusOf classifies an item's date.
func (l *ListController) StatusOf(e models.Event) models.Status {
	return EventStatus(l.deps.now(), e.Date)
}

// Remove deletes (my events) or leaves (attending) the event and drops it
// from the local list without refetching.
func (l *ListController) Remove(ctx context.Context, eventID string) error {
	var (
		prompt string
		kind   notify.Kind
		call   func(token string) error
	)
	switch l.kind {
	case ListMine:
		prompt = "Are you sure you want to delete this event?"
		kind = notify.KindDeleted
		call = func(token string) error { return l.deps.API.DeleteEvent(ctx, eventID, token) }
	case ListAttending:
		prompt = "Are you sure you want to leave this event?"
		kind = notify.KindLeft
		call = func(token string) error { return l.deps.API.LeaveEvent(ctx, eventID, token) }
	default:
		return ErrNotOffered
	}

	l.mu.Lock()
	sess := l.sess
	l.mu.Unlock()
	if !sess.Authenticated() {
		l.deps.UI.Navigate(RouteSignIn)
		return session.ErrNoSession
	}
	if !l.contains(eventID) {
		return fmt.Errorf("event %s is not in this list", eventID)
	}
	if !l.deps.UI.Confirm(prompt) {
		return ErrCancelled
	}

	token, err := sess.AccessToken(ctx)
	if err == nil {
		err = call(token)
	}
	if err != nil {
		l.deps.Logger.Error("Failed to remove event from list", "list", l.kind, "eventID", eventID, "error", err)
		l.deps.UI.Alert(api.Message(err))
		return err
	}

	l.mu.Lock()
	kept := l.events[:0:0]
	for _, e := range l.events {
		if e.ID != eventID {
			kept = append(kept, e)
		}
	}
	l.events = kept
	l.mu.Unlock()

	l.deps.publish(ctx, kind, eventID, sess.UserID())
	return nil
}

func (l *ListController) contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.ID == id {
			return true
		}
	}
	return false
}
