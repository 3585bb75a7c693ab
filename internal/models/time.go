package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// The backend serialises naive datetimes without an offset; those are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses the date formats produced by the backend and by form input.
func ParseTime(s string) (time.Time, error) {
	return ParseTimeIn(s, time.UTC)
}

// ParseTimeIn is ParseTime with naive values read in loc.
func ParseTimeIn(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

func parseOptionalTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := ParseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UnmarshalJSON accepts both offset and naive timestamps.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	aux := struct {
		*plain
		Date      string  `json:"date"`
		CreatedAt *string `json:"created_at"`
		UpdatedAt *string `json:"updated_at"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if aux.Date != "" {
		if e.Date, err = ParseTime(aux.Date); err != nil {
			return fmt.Errorf("event date: %w", err)
		}
	}
	if e.CreatedAt, err = parseOptionalTime(aux.CreatedAt); err != nil {
		return fmt.Errorf("event created_at: %w", err)
	}
	if e.UpdatedAt, err = parseOptionalTime(aux.UpdatedAt); err != nil {
		return fmt.Errorf("event updated_at: %w", err)
	}
	return nil
}

// UnmarshalJSON accepts both offset and naive timestamps.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	aux := struct {
		*plain
		CreatedAt *string `json:"created_at"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var err error
	if u.CreatedAt, err = parseOptionalTime(aux.CreatedAt); err != nil {
		return fmt.Errorf("user created_at: %w", err)
	}
	return nil
}
