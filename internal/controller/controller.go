// Package controller holds the page logic of the EventEase client: forms,
// the event detail view and event lists. Controllers own their state, talk
// to the backend through Backend and to the user through UI.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"eventease/internal/api"
	"eventease/internal/models"
	"eventease/internal/notify"
)

// Routes used with UI.Navigate.
const (
	RouteSignIn    = "/auth/signin"
	RouteDashboard = "/dashboard"
	RouteEvents    = "/events"
	RouteMyEvents  = "/events/my"
	RouteAttending = "/events/attending"
)

// RouteEvent is the detail route for an event.
func RouteEvent(id string) string {
	return RouteEvents + "/" + id
}

var (
	// ErrNotCreator is returned when a creator-only action is attempted by someone else.
	ErrNotCreator = errors.New("you are not allowed to modify this event")
	// ErrCancelled is returned when the user declines a confirmation.
	ErrCancelled = errors.New("cancelled")
	// ErrNotOffered is returned for an action the current view does not offer.
	ErrNotOffered = errors.New("action not available")
)

// Backend is the part of the REST client the controllers use.
type Backend interface {
	Configured() bool
	ListEvents(ctx context.Context) ([]models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	CreateEvent(ctx context.Context, in models.EventInput, token string) (*models.Event, error)
	UpdateEvent(ctx context.Context, id string, in models.EventInput, token string) (*models.Event, error)
	DeleteEvent(ctx context.Context, id, token string) error
	MyEvents(ctx context.Context, token string) ([]models.Event, error)
	AttendingEvents(ctx context.Context, token string) ([]models.Event, error)
	JoinEvent(ctx context.Context, id, token string) error
	LeaveEvent(ctx context.Context, id, token string) error
	IsAttending(ctx context.Context, id, token string) (bool, error)
}

var _ Backend = (*api.Client)(nil)

// UI is how controllers reach the user.
type UI interface {
	// Confirm asks a yes/no question.
	Confirm(prompt string) bool
	// Alert shows a blocking message.
	Alert(message string)
	// Navigate moves to another page.
	Navigate(route string)
}

// Deps are shared by all controllers.
type Deps struct {
	API      Backend
	UI       UI
	Logger   *slog.Logger
	Activity notify.Publisher
	Now      func() time.Time
	// Location is used to read naive form dates. Defaults to time.Local.
	Location *time.Location
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Activity == nil {
		d.Activity = notify.Noop{}
	}
	return d
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) location() *time.Location {
	if d.Location != nil {
		return d.Location
	}
	return time.Local
}

// publish announces a successful action. Failures are only logged.
func (d Deps) publish(ctx context.Context, kind notify.Kind, eventID, userID string) {
	err := d.Activity.Publish(ctx, notify.Activity{Kind: kind, EventID: eventID, UserID: userID, At: d.now().UTC()})
	if err != nil {
		d.Logger.Warn("Failed to publish activity", "kind", kind, "eventID", eventID, "error", err)
	}
}

// EventStatus classifies an event date relative to now.
func EventStatus(now, date time.Time) models.Status {
	switch {
	case date.Before(now):
		return models.StatusCompleted
	case date.Sub(now) < 24*time.Hour:
		return models.StatusUpcoming
	default:
		return models.StatusFuture
	}
}
