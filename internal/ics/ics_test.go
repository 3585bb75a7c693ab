package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"eventease/internal/models"

	"github.com/emersion/go-ical"
)

func TestEncode(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	events := []models.Event{
		{ID: "evt-1", Title: "Launch", Description: "Product launch", Location: "Hall", IsPublic: true,
			Date: time.Date(2024, 2, 1, 18, 0, 0, 0, time.UTC)},
		{ID: "evt-2", Title: "Private dinner", Date: time.Date(2024, 2, 2, 19, 30, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, events, now); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"PRODID:" + ProductID,
		"UID:evt-1@eventease",
		"DTSTART:20240201T180000Z",
		"DTEND:20240201T190000Z",
		"DTSTAMP:20240101T120000Z",
		"CLASS:PRIVATE",
		"LOCATION:Hall",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	cal, err := ical.NewDecoder(strings.NewReader(out)).Decode()
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if got := len(cal.Events()); got != 2 {
		t.Fatalf("expected 2 events, got %d", got)
	}
}

func TestComponentDuration(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	e := models.Event{ID: "x", Title: "Standup", Date: start}

	tests := []struct {
		d    time.Duration
		want time.Time
	}{
		{30 * time.Minute, start.Add(30 * time.Minute)},
		{0, start.Add(DefaultDuration)},
	}
	for _, tt := range tests {
		ve := ical.Event{Component: Component(&e, start, tt.d)}
		end, err := ve.DateTimeEnd(time.UTC)
		if err != nil {
			t.Fatal(err)
		}
		if !end.Equal(tt.want) {
			t.Errorf("duration %v: expected end %v, got %v", tt.d, tt.want, end)
		}
	}
}
