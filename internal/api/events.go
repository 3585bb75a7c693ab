package api

import (
	"context"
	"net/http"
	"net/url"

	"eventease/internal/models"
)

// ListEvents returns all events. It returns an empty list when the client is
// not configured.
func (c *Client) ListEvents(ctx context.Context) ([]models.Event, error) {
	if !c.Configured() {
		return []models.Event{}, nil
	}
	var events []models.Event
	if err := c.do(ctx, request{op: "list_events", method: http.MethodGet, path: "/events/"}, &events); err != nil {
		return nil, err
	}
	return nonNil(events), nil
}

// GetEvent fetches a single event.
func (c *Client) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	if err := c.do(ctx, request{op: "get_event", method: http.MethodGet, path: eventPath(id, "")}, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// CreateEvent creates an event owned by the token's user.
func (c *Client) CreateEvent(ctx context.Context, in models.EventInput, token string) (*models.Event, error) {
	var event models.Event
	req := request{op: "create_event", method: http.MethodPost, path: "/events/", token: token, body: in}
	if err := c.do(ctx, req, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// UpdateEvent replaces the editable fields of an event.
func (c *Client) UpdateEvent(ctx context.Context, id string, in models.EventInput, token string) (*models.Event, error) {
	var event models.Event
	req := request{op: "update_event", method: http.MethodPut, path: eventPath(id, ""), token: token, body: in}
	if err := c.do(ctx, req, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, id, token string) error {
	return c.do(ctx, request{op: "delete_event", method: http.MethodDelete, path: eventPath(id, ""), token: token}, nil)
}

// MyEvents returns events created by the token's user, or an empty list when
// the client is not configured.
func (c *Client) MyEvents(ctx context.Context, token string) ([]models.Event, error) {
	return c.listAuthorized(ctx, "my_events", "/events/my", token)
}

// AttendingEvents returns events the token's user has joined, or an empty
// list when the client is not configured.
func (c *Client) AttendingEvents(ctx context.Context, token string) ([]models.Event, error) {
	return c.listAuthorized(ctx, "attending_events", "/events/attending", token)
}

// JoinEvent adds the token's user to the event's attendees.
func (c *Client) JoinEvent(ctx context.Context, id, token string) error {
	return c.do(ctx, request{op: "join_event", method: http.MethodPost, path: eventPath(id, "/join"), token: token}, nil)
}

// LeaveEvent removes the token's user from the event's attendees.
func (c *Client) LeaveEvent(ctx context.Context, id, token string) error {
	return c.do(ctx, request{op: "leave_event", method: http.MethodPost, path: eventPath(id, "/leave"), token: token}, nil)
}

// IsAttending asks the backend whether the token's user attends the event.
func (c *Client) IsAttending(ctx context.Context, id, token string) (bool, error) {
	var out struct {
		IsAttending bool `json:"is_attending"`
	}
	req := request{op: "is_attending", method: http.MethodGet, path: eventPath(id, "/is-attending"), token: token}
	if err := c.do(ctx, req, &out); err != nil {
		return false, err
	}
	return out.IsAttending, nil
}

func (c *Client) listAuthorized(ctx context.Context, op, path, token string) ([]models.Event, error) {
	if !c.Configured() {
		return []models.Event{}, nil
	}
	var events []models.Event
	if err := c.do(ctx, request{op: op, method: http.MethodGet, path: path, token: token}, &events); err != nil {
		return nil, err
	}
	return nonNil(events), nil
}

func eventPath(id, suffix string) string {
	return "/events/" + url.PathEscape(id) + suffix
}

func nonNil(events []models.Event) []models.Event {
	if events == nil {
		return []models.Event{}
	}
	return events
}
