// Package notify announces training outcomes to other services.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/okian/lapprice/internal/domain/model"
)

// Sentinel errors for publishers.
var (
	ErrClosed          = errors.New("publisher closed")
	ErrMessageTooLarge = errors.New("message exceeds server payload limit")
)

// Default NATS connection settings.
const (
	defaultConnectTimeout = 5 * time.Second
	defaultReconnectWait  = 2 * time.Second
)

// Event is emitted once per finished training run.
type Event struct {
	RunID      string                  `json:"run_id"`
	ModelName  string                  `json:"model_name"`
	Evaluation *model.EvaluationResult `json:"evaluation,omitempty"`
	Published  bool                    `json:"published"`
	Error      string                  `json:"error,omitempty"`
	At         time.Time               `json:"at"`
}

// Publisher sends events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NATSPublisher publishes JSON events on a core NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to url. The connection reconnects forever.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("lapprice"),
		nats.Timeout(defaultConnectTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(defaultReconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc, subject: subject}, nil
}

// Publish marshals e and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if p.conn.IsClosed() {
		return ErrClosed
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if int64(len(data)) > p.conn.MaxPayload() {
		return ErrMessageTooLarge
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return p.conn.FlushWithContext(ctx)
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn.IsClosed() {
		return nil
	}
	return p.conn.Drain()
}

// Nop discards events.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.events = append(r.events, e)
	return nil
}

// Close implements Publisher.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
