package models

import (
	"fmt"
	"time"
)

// Event is an event as the backend returns it.
type Event struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Date             time.Time  `json:"date"`
	Location         string     `json:"location"`
	IsPublic         bool       `json:"is_public"`
	MaxAttendees     *int       `json:"max_attendees"`
	CurrentAttendees int        `json:"current_attendees"`
	CreatorID        string     `json:"creator_id"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// Occupancy renders "current / max" for events with a capacity. The values are
// shown exactly as the backend reports them.
func (e *Event) Occupancy() (string, bool) {
	if e.MaxAttendees == nil {
		return "", false
	}
	return fmt.Sprintf("%d / %d", e.CurrentAttendees, *e.MaxAttendees), true
}

// IsCreatedBy reports whether userID created the event.
func (e *Event) IsCreatedBy(userID string) bool {
	return userID != "" && e.CreatorID == userID
}

// EventInput is the create/update payload.
type EventInput struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date"`
	Location     string    `json:"location"`
	MaxAttendees *int      `json:"max_attendees"`
	IsPublic     bool      `json:"is_public"`
}

// InputFrom copies the editable fields of an existing event.
func InputFrom(e *Event) EventInput {
	return EventInput{
		Title:        e.Title,
		Description:  e.Description,
		Date:         e.Date,
		Location:     e.Location,
		MaxAttendees: e.MaxAttendees,
		IsPublic:     e.IsPublic,
	}
}

// Status is the presentation-only classification of an event's date.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusUpcoming  Status = "upcoming"
	StatusFuture    Status = "future"
)

// Label is the human readable form of the status.
func (s Status) Label() string {
	switch s {
	case StatusCompleted:
		return "Completed"
	case StatusUpcoming:
		return "Soon"
	default:
		return "Upcoming"
	}
}
