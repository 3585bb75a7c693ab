package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ConfigurationError is returned before any network call when no backend URL
// is configured.
type ConfigurationError struct {
	Op string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: backend API is not configured (set EVENTEASE_API_URL)", e.Op)
}

// HTTPError is a non-2xx response. Detail is the backend's `detail` message or
// a generic one when the body could not be read.
type HTTPError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Detail, e.StatusCode)
}

// NetworkError wraps a transport failure (DNS, refused connection, cancelled context).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == http.StatusNotFound
}

// IsNotConfigured reports whether err is a ConfigurationError.
func IsNotConfigured(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// Message returns the text to show a user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Detail
	}
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return "Backend API is not configured yet."
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return "Could not reach the backend API: " + ne.Err.Error()
	}
	return err.Error()
}

func genericDetail(status int) string {
	if text := http.StatusText(status); text != "" {
		return "request failed: " + text
	}
	return fmt.Sprintf("request failed with status %d", status)
}
