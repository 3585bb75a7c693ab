package syncer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"eventease/internal/ics"
	"eventease/internal/metrics"
	"eventease/internal/models"

	"github.com/robfig/cron/v3"
)

// StateFile is the default state file name inside the EventEase home.
const StateFile = "sync-state.json"

// Target is a calendar the syncer pushes to.
type Target interface {
	Name() string
	SyncEvent(ctx context.Context, event *models.Event) error
	RemoveEvent(ctx context.Context, uid string) error
}

// Source returns the events to mirror, normally the viewer's attending list.
type Source func(ctx context.Context) ([]models.Event, error)

// Entry records what was last pushed for one event.
type Entry struct {
	UID         string `json:"uid"`
	Fingerprint string `json:"fingerprint"`
}

// SyncState keeps track of which events have been synced.
// The outer key is the target name, the inner key the EventEase event id.
type SyncState map[string]map[string]Entry

// Result counts what one cycle did.
type Result struct {
	Added   int
	Updated int
	Removed int
	Failed  int
}

// Options configures a Syncer.
type Options struct {
	StatePath string
	DryRun    bool
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// Syncer mirrors EventEase events into calendar targets.
type Syncer struct {
	logger  *slog.Logger
	source  Source
	targets []Target
	opts    Options

	mu    sync.Mutex
	state SyncState
}

// NewSyncer creates a new Syncer, loading any saved state.
func NewSyncer(logger *slog.Logger, source Source, targets []Target, opts Options) (*Syncer, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	state, err := loadState(opts.StatePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load sync state: %w", err)
		}
		logger.Info("No sync state file found, starting fresh", "file", opts.StatePath)
		state = make(SyncState)
	}

	return &Syncer{
		logger:  logger,
		source:  source,
		targets: targets,
		opts:    opts,
		state:   state,
	}, nil
}

// Sync performs a full synchronization cycle. Per-event failures are logged
// and counted; the cycle continues with the next event.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res Result
	s.logger.Info("Starting sync cycle", "targets", len(s.targets), "dryRun", s.opts.DryRun)

	events, err := s.source(ctx)
	if err != nil {
		err = fmt.Errorf("failed to fetch events: %w", err)
		s.opts.Metrics.ObserveSync(err, s.opts.Now())
		return res, err
	}
	s.logger.Info("Fetched events to sync", "count", len(events))

	for _, target := range s.targets {
		s.syncTarget(ctx, target, events, &res)
	}

	if !s.opts.DryRun {
		if err := s.saveState(); err != nil {
			s.logger.Error("Failed to save sync state", "error", err)
			s.opts.Metrics.ObserveSync(err, s.opts.Now())
			return res, err
		}
	}

	if res.Failed > 0 {
		err = fmt.Errorf("%d calendar operation(s) failed", res.Failed)
	}
	s.opts.Metrics.ObserveSync(err, s.opts.Now())
	s.logger.Info("Sync cycle finished", "added", res.Added, "updated", res.Updated, "removed", res.Removed, "failed", res.Failed)
	return res, err
}

func (s *Syncer) syncTarget(ctx context.Context, target Target, events []models.Event, res *Result) {
	name := target.Name()
	entries := s.state[name]
	if entries == nil {
		entries = make(map[string]Entry)
		s.state[name] = entries
	}

	current := make(map[string]bool, len(events))
	for i := range events {
		event := &events[i]
		current[event.ID] = true

		fp := fingerprint(event)
		prev, exists := entries[event.ID]
		if exists && prev.Fingerprint == fp {
			s.logger.Debug("Event already synced, skipping", "target", name, "title", event.Title, "id", event.ID)
			continue
		}

		action := "add"
		if exists {
			action = "update"
		}
		if s.opts.DryRun {
			s.logger.Info("[DRY RUN] Would push event", "target", name, "action", action, "title", event.Title, "date", event.Date)
			continue
		}
		if err := target.SyncEvent(ctx, event); err != nil {
			s.logger.Error("Failed to sync event", "target", name, "title", event.Title, "error", err)
			res.Failed++
			continue
		}
		entries[event.ID] = Entry{UID: ics.UID(event.ID), Fingerprint: fp}
		s.opts.Metrics.ObserveSyncedEvent(name, action)
		if exists {
			res.Updated++
		} else {
			res.Added++
		}
	}

	for id, entry := range entries {
		if current[id] {
			continue
		}
		if s.opts.DryRun {
			s.logger.Info("[DRY RUN] Would remove event", "target", name, "uid", entry.UID)
			continue
		}
		if err := target.RemoveEvent(ctx, entry.UID); err != nil {
			s.logger.Error("Failed to remove event", "target", name, "uid", entry.UID, "error", err)
			res.Failed++
			continue
		}
		delete(entries, id)
		s.opts.Metrics.ObserveSyncedEvent(name, "remove")
		res.Removed++
	}
}

// Run syncs on the cron schedule spec until ctx is cancelled. Overlapping
// runs are skipped.
func (s *Syncer) Run(ctx context.Context, spec string) error {
	logger := cronLogger{s.logger}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Sync(ctx); err != nil {
			s.logger.Error("Sync cycle failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}

	s.logger.Info("Calendar sync scheduled", "schedule", spec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("Calendar sync stopped")
	return nil
}

// State returns a copy of the current sync state.
func (s *Syncer) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(SyncState, len(s.state))
	for target, entries := range s.state {
		cp := make(map[string]Entry, len(entries))
		for id, e := range entries {
			cp[id] = e
		}
		out[target] = cp
	}
	return out
}

// fingerprint changes whenever a field written to the calendar changes.
func fingerprint(e *models.Event) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%t", e.Title, e.Description, e.Location, e.Date.UTC().Format(time.RFC3339), e.IsPublic)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// loadState loads the sync state from the JSON file.
func loadState(path string) (SyncState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state == nil {
		state = make(SyncState)
	}
	return state, nil
}

// saveState saves the current sync state to the JSON file.
func (s *Syncer) saveState() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.opts.StatePath), 0o700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	return os.WriteFile(s.opts.StatePath, data, 0o600)
}

// cronLogger routes cron's logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
