package controller

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"eventease/internal/models"
)

const (
	minTitleLen       = 3
	minDescriptionLen = 10
	minLocationLen    = 3

	// DateInputLayout is how dates are shown in edit forms.
	DateInputLayout = "2006-01-02T15:04"
)

// FormData is the raw form state, as typed by the user.
type FormData struct {
	Title        string
	Description  string
	Date         string
	Location     string
	MaxAttendees string
	IsPublic     bool
}

// ValidationError carries every violated rule.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, ", ")
}

// ValidateEventData checks the form against the client-side rules and returns
// all violations. Naive dates are read in loc.
func ValidateEventData(d FormData, now time.Time, loc *time.Location) []string {
	var violations []string

	if trimmedLen(d.Title) < minTitleLen {
		violations = append(violations, fmt.Sprintf("Title must be at least %d characters", minTitleLen))
	}
	if trimmedLen(d.Description) < minDescriptionLen {
		violations = append(violations, fmt.Sprintf("Description must be at least %d characters", minDescriptionLen))
	}
	if strings.TrimSpace(d.Date) == "" {
		violations = append(violations, "Date is required")
	} else if date, err := models.ParseTimeIn(strings.TrimSpace(d.Date), loc); err != nil {
		violations = append(violations, "Date is not a valid date")
	} else if date.Before(now) {
		violations = append(violations, "Event date must be in the future")
	}
	if trimmedLen(d.Location) < minLocationLen {
		violations = append(violations, fmt.Sprintf("Location must be at least %d characters", minLocationLen))
	}
	if _, err := parseMaxAttendees(d.MaxAttendees); err != nil {
		violations = append(violations, "Max attendees must be a positive number")
	}
	return violations
}

// Input converts validated form data into the API payload.
func (d FormData) Input(loc *time.Location) (models.EventInput, error) {
	date, err := models.ParseTimeIn(strings.TrimSpace(d.Date), loc)
	if err != nil {
		return models.EventInput{}, err
	}
	max, err := parseMaxAttendees(d.MaxAttendees)
	if err != nil {
		return models.EventInput{}, err
	}
	return models.EventInput{
		Title:        d.Title,
		Description:  d.Description,
		Date:         date.UTC(),
		Location:     d.Location,
		MaxAttendees: max,
		IsPublic:     d.IsPublic,
	}, nil
}

// FormDataFrom fills a form from an existing event.
func FormDataFrom(e *models.Event, loc *time.Location) FormData {
	d := FormData{
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		IsPublic:    e.IsPublic,
	}
	if !e.Date.IsZero() {
		d.Date = e.Date.In(loc).Format(DateInputLayout)
	}
	if e.MaxAttendees != nil {
		d.MaxAttendees = strconv.Itoa(*e.MaxAttendees)
	}
	return d
}

func parseMaxAttendees(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("invalid max attendees %q", s)
	}
	return &n, nil
}

func trimmedLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
