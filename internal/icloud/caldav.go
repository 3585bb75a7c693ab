package icloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"eventease/internal/ics"
	"eventease/internal/models"

	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
)

// DefaultEndpoint is iCloud's CalDAV root.
const DefaultEndpoint = "https://caldav.icloud.com/"

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "eventease/1.0")
	return t.Transport.RoundTrip(req)
}

// Options configures a CalDAVClient.
type Options struct {
	Endpoint string
	Username string
	Password string
	Calendar string
	// EventDuration is the length written to DTEND.
	EventDuration time.Duration
	Transport     http.RoundTripper
}

// CalDAVClient writes EventEase events to a CalDAV calendar (iCloud by default).
type CalDAVClient struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	calendarPath string
	duration     time.Duration
	now          func() time.Time
}

// NewClient connects to the CalDAV server and resolves the calendar by name.
func NewClient(ctx context.Context, logger *slog.Logger, opts Options) (*CalDAVClient, error) {
	c, err := newClient(logger, opts)
	if err != nil {
		return nil, err
	}

	logger.Info("Finding CalDAV calendar", "calendarName", opts.Calendar)
	calendarPath, err := c.findCalendar(ctx, opts.Calendar)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", opts.Calendar, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found CalDAV calendar", "path", calendarPath)

	return c, nil
}

func newClient(logger *slog.Logger, opts Options) (*CalDAVClient, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	httpClient := &http.Client{Transport: &customTransport{
		Username:  opts.Username,
		Password:  opts.Password,
		Transport: opts.Transport,
	}}

	caldavClient, err := caldav.NewClient(httpClient, opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	return &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		duration:     opts.EventDuration,
		now:          time.Now,
	}, nil
}

// Name identifies the target in logs, state and metrics.
func (c *CalDAVClient) Name() string { return "icloud" }

// SyncEvent creates or replaces the event's calendar object.
func (c *CalDAVClient) SyncEvent(ctx context.Context, event *models.Event) error {
	uid := ics.UID(event.ID)
	c.logger.Debug("Syncing event to CalDAV", "eventTitle", event.Title, "uid", uid)

	cal := ics.NewCalendar(c.now(), c.duration, *event)
	if _, err := c.caldavClient.PutCalendarObject(ctx, c.objectPath(uid), cal); err != nil {
		return fmt.Errorf("failed to put event on CalDAV server: %w", err)
	}

	c.logger.Info("Successfully synced event to CalDAV", "eventTitle", event.Title)
	return nil
}

// RemoveEvent deletes the calendar object for uid.
func (c *CalDAVClient) RemoveEvent(ctx context.Context, uid string) error {
	if err := c.webdavClient.RemoveAll(ctx, c.objectPath(uid)); err != nil {
		return fmt.Errorf("failed to remove event from CalDAV server: %w", err)
	}
	c.logger.Info("Removed event from CalDAV", "uid", uid)
	return nil
}

func (c *CalDAVClient) objectPath(uid string) string {
	return path.Join(c.calendarPath, uid+".ics")
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if strings.EqualFold(cal.Name, name) {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
