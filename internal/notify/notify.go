package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Kind names a user action that succeeded against the backend.
type Kind string

const (
	KindCreated Kind = "created"
	KindUpdated Kind = "updated"
	KindDeleted Kind = "deleted"
	KindJoined  Kind = "joined"
	KindLeft    Kind = "left"
)

const subjectPrefix = "eventease.activity."

// Activity is published after a successful action.
type Activity struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	EventID string    `json:"event_id"`
	UserID  string    `json:"user_id"`
	At      time.Time `json:"at"`
}

// Publisher announces activities. Implementations must not block the caller
// on delivery failures for long; errors are reported, never retried.
type Publisher interface {
	Publish(ctx context.Context, a Activity) error
}

// Noop drops every activity.
type Noop struct{}

func (Noop) Publish(context.Context, Activity) error { return nil }

// Conn is the subset of *nats.Conn used by NATSPublisher.
type Conn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher publishes activities as JSON on eventease.activity.<kind>.
type NATSPublisher struct {
	conn   Conn
	logger *slog.Logger
}

// Connect dials the NATS server at url.
func Connect(logger *slog.Logger, url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("eventease-cli"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return NewNATSPublisher(logger, nc), nil
}

func NewNATSPublisher(logger *slog.Logger, conn Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn, logger: logger}
}

// Subject returns the subject an activity kind is published on.
func Subject(k Kind) string {
	return subjectPrefix + string(k)
}

func (p *NATSPublisher) Publish(ctx context.Context, a Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	if err := p.conn.Publish(Subject(a.Kind), data); err != nil {
		return fmt.Errorf("publish activity: %w", err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush activity: %w", err)
	}
	p.logger.Debug("Published activity", "kind", a.Kind, "eventID", a.EventID)
	return nil
}

func (p *NATSPublisher) Close() {
	p.conn.Close()
}
