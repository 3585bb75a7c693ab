package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"eventease/internal/api"
	"eventease/internal/google"
	"eventease/internal/icloud"
	"eventease/internal/ics"
	"eventease/internal/models"
	"eventease/internal/syncer"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write events as an iCalendar (.ics) file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "list", Value: "attending", Usage: "Which events: all, my or attending."},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file. Defaults to stdout."},
		},
		Action: withRuntime(func(c *cli.Context, r *runtime) error {
			events, err := fetchList(c.Context, r, c.String("list"))
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintln(os.Stderr, "No events to export.")
				return nil
			}

			w := os.Stdout
			if path := c.String("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				defer f.Close()
				w = f
			}
			if err := ics.EncodeDuration(w, events, time.Now(), r.cfg.Calendar.EventDuration); err != nil {
				return err
			}
			r.logger.Info("Exported events", "count", len(events), "list", c.String("list"))
			return nil
		}),
	}
}

// fetchList reads one of the event lists without going through a controller,
// so nothing is printed or navigated.
func fetchList(ctx context.Context, r *runtime, list string) ([]models.Event, error) {
	if list == "all" {
		return r.client.ListEvents(ctx)
	}
	sess, err := r.requireSession()
	if err != nil {
		return nil, err
	}
	token, err := sess.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	switch list {
	case "my":
		return r.client.MyEvents(ctx, token)
	case "attending":
		return r.client.AttendingEvents(ctx, token)
	}
	return nil, fmt.Errorf("unknown list %q, expected all, my or attending", list)
}

func calendarCommand() *cli.Command {
	return &cli.Command{
		Name:  "calendar",
		Usage: "Mirror your attending events into Google Calendar and iCloud.",
		Subcommands: []*cli.Command{
			calendarAuthCommand(),
			calendarSyncCommand(),
		},
	}
}

func calendarAuthCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: withRuntime(func(c *cli.Context, r *runtime) error {
			r.logger.Info("Starting Google authentication flow")
			cal := r.cfg.Calendar

			config, err := google.GetOAuthConfigForAuthFlow(cal.GoogleClientID, cal.GoogleSecret, r.cfg.Home)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			authCode := r.ui.Prompt("Enter Authorization Code: ")
			token, err := google.TokenFromWeb(c.Context, config, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			accountName := r.ui.Prompt("Enter a name for this account (e.g., 'personal', 'work'): ")
			if accountName == "" {
				accountName = "default"
			}
			tokenFile := google.TokenPath(r.cfg.Home, accountName)
			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			r.logger.Info("Successfully authenticated and saved token", "file", tokenFile)
			return nil
		}),
	}
}

func calendarSyncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run the calendar synchronization process.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "Run the sync cycle once and exit."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be synced without making changes."},
			&cli.StringFlag{Name: "schedule", Usage: "Cron spec for repeated runs. Defaults to the configured schedule."},
			&cli.StringFlag{Name: "metrics-addr", Usage: "Serve Prometheus metrics on this address, e.g. :9090."},
		},
		Action: withRuntime(func(c *cli.Context, r *runtime) error {
			logger := r.logger
			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made")
			}
			// An unconfigured client reads as an empty attending list, which
			// would remove every synced event.
			if !r.client.Configured() {
				return &api.ConfigurationError{Op: "calendar_sync"}
			}
			sess, err := r.requireSession()
			if err != nil {
				return err
			}

			targets, err := calendarTargets(c.Context, r)
			if err != nil {
				return err
			}
			source := func(ctx context.Context) ([]models.Event, error) {
				token, err := sess.AccessToken(ctx)
				if err != nil {
					return nil, err
				}
				return r.client.AttendingEvents(ctx, token)
			}
			s, err := syncer.NewSyncer(logger, source, targets, syncer.Options{
				StatePath: r.cfg.Path(syncer.StateFile),
				DryRun:    c.Bool("dry-run"),
				Metrics:   r.metrics,
			})
			if err != nil {
				return fmt.Errorf("failed to create syncer: %w", err)
			}

			if c.Bool("once") {
				logger.Info("Running a single sync cycle")
				if _, err := s.Sync(c.Context); err != nil {
					return fmt.Errorf("single sync cycle failed: %w", err)
				}
				return nil
			}

			if addr := c.String("metrics-addr"); addr != "" {
				srv := &http.Server{Addr: addr, Handler: r.metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
				go func() {
					logger.Info("Serving metrics", "addr", addr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("Metrics server failed", "error", err)
					}
				}()
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(ctx)
				}()
			}

			schedule := r.cfg.Calendar.Schedule
			if c.IsSet("schedule") {
				schedule = c.String("schedule")
			}
			if _, err := s.Sync(c.Context); err != nil {
				logger.Error("Sync cycle failed", "error", err)
			}
			return s.Run(c.Context, schedule)
		}),
	}
}

// calendarTargets builds every configured target: iCloud when credentials are
// set, and one Google target per saved account and calendar id.
func calendarTargets(ctx context.Context, r *runtime) ([]syncer.Target, error) {
	cal := r.cfg.Calendar
	var targets []syncer.Target

	if cal.CalDAVUsername != "" {
		iClient, err := icloud.NewClient(ctx, r.logger, icloud.Options{
			Endpoint:      cal.CalDAVEndpoint,
			Username:      cal.CalDAVUsername,
			Password:      cal.CalDAVPassword,
			Calendar:      cal.CalDAVCalendar,
			EventDuration: cal.EventDuration,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create icloud client: %w", err)
		}
		targets = append(targets, iClient)
	}

	if len(cal.GoogleCalendars) > 0 {
		accounts, err := google.GetTokenAccounts(r.cfg.Home)
		if err != nil {
			return nil, fmt.Errorf("could not list google accounts: %w", err)
		}
		if len(accounts) == 0 {
			return nil, fmt.Errorf("no google accounts found. Run the 'calendar auth' command first")
		}
		for _, acc := range accounts {
			for _, calID := range cal.GoogleCalendars {
				gClient, err := google.NewClient(ctx, r.logger, cal.GoogleClientID, cal.GoogleSecret, r.cfg.Home, acc, calID)
				if err != nil {
					return nil, fmt.Errorf("failed to create google client for account %s: %w", acc, err)
				}
				gClient.SetEventDuration(cal.EventDuration)
				targets = append(targets, gClient)
			}
		}
		r.logger.Info("Initialized Google clients for all accounts", "accounts", len(accounts), "calendars", len(cal.GoogleCalendars))
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no calendar targets configured: set ICLOUD_USERNAME or GOOGLE_CALENDAR_IDS")
	}
	return targets, nil
}
