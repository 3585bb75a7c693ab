package main

import (
	"fmt"
	"log/slog"
	"os"

	"eventease/internal/api"
	"eventease/internal/auth"
	"eventease/internal/config"
	"eventease/internal/controller"
	"eventease/internal/metrics"
	"eventease/internal/notify"
	"eventease/internal/session"

	"github.com/urfave/cli/v2"
)

// runtime is everything a command needs, built from config.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	client   *api.Client
	store    session.Store
	tokens   auth.TokenProvider
	activity notify.Publisher
	ui       *terminalUI
	closers  []func()
}

func newRuntime(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	r := &runtime{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics.New(),
		activity: notify.Noop{},
		ui:       newTerminalUI(os.Stdin, os.Stdout, c.Bool("yes")),
	}

	r.client = api.NewClient(logger, cfg.APIURL, api.WithTimeout(cfg.HTTPTimeout), api.WithMetrics(r.metrics))
	if !r.client.Configured() {
		logger.Warn("EVENTEASE_API_URL is not set, backend calls are disabled")
	}
	r.tokens = auth.NewCachingProvider(logger, auth.NewBackendExchanger(r.client), cfg.TokenCacheTTL)

	switch cfg.SessionStore {
	case config.SessionStoreSQLite:
		store, err := session.OpenSQLite(cfg.Path("session.db"))
		if err != nil {
			return nil, err
		}
		r.store = store
		r.closers = append(r.closers, func() { _ = store.Close() })
	default:
		r.store = session.NewFileStore(cfg.Path("session.json"))
	}

	if cfg.NATSURL != "" {
		pub, err := notify.Connect(logger, cfg.NATSURL)
		if err != nil {
			logger.Warn("Activity publisher unavailable, continuing without it", "url", cfg.NATSURL, "error", err)
		} else {
			r.activity = pub
			r.closers = append(r.closers, pub.Close)
		}
	}
	return r, nil
}

// Close releases resources in reverse order of acquisition.
func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// session returns the stored session, or nil when signed out.
func (r *runtime) session() (*session.Session, error) {
	rec, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	return session.New(rec.Identity, r.tokens), nil
}

// requireSession is session for commands that cannot run signed out.
func (r *runtime) requireSession() (*session.Session, error) {
	sess, err := r.session()
	if err != nil {
		return nil, err
	}
	if !sess.Authenticated() {
		return nil, fmt.Errorf("%w: run 'eventease signin' first", session.ErrNoSession)
	}
	return sess, nil
}

func (r *runtime) authenticator() auth.Authenticator {
	if r.cfg.AuthProvider == config.AuthProviderStatic {
		return auth.NewStaticAuthenticator(r.cfg.StaticUsers)
	}
	return auth.NewBackendAuthenticator(r.client)
}

func (r *runtime) deps() controller.Deps {
	return controller.Deps{
		API:      r.client,
		UI:       r.ui,
		Logger:   r.logger,
		Activity: r.activity,
	}
}

// withRuntime wraps a command action with runtime setup and teardown.
func withRuntime(fn func(c *cli.Context, r *runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := newRuntime(c)
		if err != nil {
			return err
		}
		defer r.Close()
		return fn(c, r)
	}
}
