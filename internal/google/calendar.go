package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"eventease/internal/ics"
	"eventease/internal/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const credentialsFile = "credentials.json"

// CalendarClient writes EventEase events to one Google calendar.
type CalendarClient struct {
	service    *calendar.Service
	logger     *slog.Logger
	calendarID string
	account    string
	duration   time.Duration
}

// NewClient creates a Google Calendar client for calendarID using the token
// saved for accountName under dir by the auth flow.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, dir, accountName, calendarID string) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	token, err := tokenFromFile(TokenPath(dir, accountName))
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'calendar auth' command first", accountName, err)
	}

	service, err := calendar.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	c := NewFromService(logger, service, calendarID)
	c.account = accountName
	return c, nil
}

// NewFromService wraps an existing service.
func NewFromService(logger *slog.Logger, service *calendar.Service, calendarID string) *CalendarClient {
	return &CalendarClient{service: service, logger: logger, calendarID: calendarID, duration: ics.DefaultDuration}
}

// SetEventDuration changes the length used for the event end time.
func (c *CalendarClient) SetEventDuration(d time.Duration) {
	if d > 0 {
		c.duration = d
	}
}

// Name identifies the target in logs, state and metrics.
func (c *CalendarClient) Name() string {
	if c.account == "" {
		return "google-" + c.calendarID
	}
	return "google-" + c.account + "-" + c.calendarID
}

// SyncEvent imports the event keyed by its iCalendar UID, so repeated syncs
// update the same Google event.
func (c *CalendarClient) SyncEvent(ctx context.Context, event *models.Event) error {
	ge := c.toGoogle(event)
	c.logger.Debug("Syncing event to Google Calendar", "eventTitle", event.Title, "uid", ge.ICalUID, "calendarID", c.calendarID)

	if _, err := c.service.Events.Import(c.calendarID, ge).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to import event into google calendar: %w", err)
	}
	c.logger.Info("Successfully synced event to Google Calendar", "eventTitle", event.Title, "calendarID", c.calendarID)
	return nil
}

// RemoveEvent deletes every Google event carrying uid.
func (c *CalendarClient) RemoveEvent(ctx context.Context, uid string) error {
	events, err := c.service.Events.List(c.calendarID).ICalUID(uid).ShowDeleted(false).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to look up event %s: %w", uid, err)
	}
	for _, item := range events.Items {
		if err := c.service.Events.Delete(c.calendarID, item.Id).Context(ctx).Do(); err != nil {
			return fmt.Errorf("failed to delete event %s: %w", uid, err)
		}
	}
	c.logger.Info("Removed event from Google Calendar", "uid", uid, "count", len(events.Items), "calendarID", c.calendarID)
	return nil
}

// toGoogle converts an EventEase event to a Google Calendar event.
func (c *CalendarClient) toGoogle(event *models.Event) *calendar.Event {
	visibility := "private"
	if event.IsPublic {
		visibility = "public"
	}
	return &calendar.Event{
		ICalUID:     ics.UID(event.ID),
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		Visibility:  visibility,
		Start:       &calendar.EventDateTime{DateTime: event.Date.UTC().Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: event.Date.Add(c.duration).UTC().Format(time.RFC3339)},
	}
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret, dir string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret, dir)
}

// getOAuthConfig prefers explicit client credentials over credentials.json in dir.
func getOAuthConfig(clientID, clientSecret, dir string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(filepath.Join(dir, credentialsFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in %s", dir)
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob"
	return config, nil
}

// TokenFromWeb exchanges the code pasted back by the user.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, strings.TrimSpace(authCode))
}

// TokenPath is where the token for accountName lives.
func TokenPath(dir, accountName string) string {
	return filepath.Join(dir, fmt.Sprintf("token-%s.json", accountName))
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("unable to create token dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// DiscoverGoogleCalendars lists the calendar ids of the authenticated account.
func (c *CalendarClient) DiscoverGoogleCalendars(ctx context.Context) ([]string, error) {
	list, err := c.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	var calendarIDs []string
	for _, item := range list.Items {
		calendarIDs = append(calendarIDs, item.Id)
	}
	return calendarIDs, nil
}

// GetTokenAccounts lists the accounts with a saved token in dir.
func GetTokenAccounts(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		if strings.HasPrefix(file.Name(), "token-") && strings.HasSuffix(file.Name(), ".json") {
			accountName := strings.TrimSuffix(strings.TrimPrefix(file.Name(), "token-"), ".json")
			accounts = append(accounts, accountName)
		}
	}
	return accounts, nil
}
