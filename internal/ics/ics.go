// Package ics renders EventEase events as iCalendar data.
package ics

import (
	"fmt"
	"io"
	"time"

	"eventease/internal/models"

	"github.com/emersion/go-ical"
)

const (
	ProductID = "-//eventease//EN"

	// DefaultDuration is used for DTEND; events only carry a start time.
	DefaultDuration = time.Hour
)

// UID is the stable iCalendar UID for an event id.
func UID(eventID string) string {
	return eventID + "@eventease"
}

// Encode writes a VCALENDAR with one VEVENT per event. events must not be
// empty; a calendar needs at least one component.
func Encode(w io.Writer, events []models.Event, now time.Time) error {
	return EncodeDuration(w, events, now, DefaultDuration)
}

// EncodeDuration is Encode with an explicit event length.
func EncodeDuration(w io.Writer, events []models.Event, now time.Time, d time.Duration) error {
	cal := NewCalendar(now, d, events...)
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// NewCalendar builds the calendar object for events. A non-positive d falls
// back to DefaultDuration.
func NewCalendar(now time.Time, d time.Duration, events ...models.Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	for i := range events {
		cal.Children = append(cal.Children, Component(&events[i], now, d))
	}
	return cal
}

// Component converts an event to a VEVENT.
func Component(event *models.Event, now time.Time, d time.Duration) *ical.Component {
	if d <= 0 {
		d = DefaultDuration
	}
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, UID(event.ID))
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.Date.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.Date.Add(d).UTC())

	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		ve.Props.SetText(ical.PropLocation, event.Location)
	}
	if event.IsPublic {
		ve.Props.SetText(ical.PropClass, "PUBLIC")
	} else {
		ve.Props.SetText(ical.PropClass, "PRIVATE")
	}
	if event.CreatedAt != nil {
		ve.Props.SetDateTime(ical.PropCreated, event.CreatedAt.UTC())
	}
	if event.UpdatedAt != nil {
		ve.Props.SetDateTime(ical.PropLastModified, event.UpdatedAt.UTC())
	}
	return ve
}
