// Package monitor coordinates the live dashboard observers: it owns the set of
// connected sessions, answers their control messages and broadcasts verdicts.
package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/axonhq/axon/internal/metrics"
)

// ErrCoordinatorClosed is returned by Connect once Close has run.
var ErrCoordinatorClosed = errors.New("monitor: coordinator closed")

// Options configures a Coordinator.
type Options struct {
	WriteTimeout    time.Duration
	MaxMessageBytes int64
	PingInterval    time.Duration
	AllowedOrigins  []string

	Metrics *metrics.Metrics
	Now     func() time.Time
	NewID   func() string
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		WriteTimeout:    5 * time.Second,
		MaxMessageBytes: 4096,
		AllowedOrigins:  []string{"*"},
	}
}

// Coordinator is the single owner of the live observer set. Sessions are kept
// in connect order; only Connect, Disconnect, Close and the prune step after a
// broadcast modify the set.
type Coordinator struct {
	opts   Options
	logger zerolog.Logger

	mu       sync.Mutex
	sessions []*Session
	byID     map[string]*Session
	pending  map[string]struct{}
	closed   bool
}

// NewCoordinator builds a Coordinator. Zero-valued options fall back to
// DefaultOptions.
func NewCoordinator(opts Options, logger zerolog.Logger) *Coordinator {
	def := DefaultOptions()
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = def.WriteTimeout
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = def.MaxMessageBytes
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = def.AllowedOrigins
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Coordinator{
		opts:    opts,
		logger:  logger.With().Str("component", "monitor").Logger(),
		byID:    make(map[string]*Session),
		pending: make(map[string]struct{}),
	}
}

func (c *Coordinator) timestamp() int64 {
	return c.opts.Now().UnixMilli()
}

// Connect greets a transport with a connected message and then registers it
// as a live session, so the greeting is always the first message an observer
// sees. If the greeting cannot be sent the transport is closed and the error
// returned; the session never joins the live set.
func (c *Coordinator) Connect(conn Transport) (*Session, error) {
	id, err := c.reserveID()
	if err != nil {
		return nil, err
	}
	s := newSession(id, conn)

	err = c.reply(s, ConnectedMessage{
		Type:      TypeConnected,
		Timestamp: c.timestamp(),
		SessionID: id,
	})

	c.mu.Lock()
	delete(c.pending, id)
	if err == nil && c.closed {
		err = ErrCoordinatorClosed
	}
	if err != nil {
		c.mu.Unlock()
		_ = s.close()
		return nil, fmt.Errorf("greet session %s: %w", id, err)
	}
	c.sessions = append(c.sessions, s)
	c.byID[id] = s
	n := len(c.sessions)
	c.mu.Unlock()

	c.opts.Metrics.SetObservers(n)
	c.logger.Info().Str("session_id", id).Int("observers", n).Msg("observer connected")
	return s, nil
}

// reserveID picks an id unused by live and still-greeting sessions.
func (c *Coordinator) reserveID() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", ErrCoordinatorClosed
	}
	id := c.opts.NewID()
	for c.taken(id) {
		id = c.opts.NewID()
	}
	c.pending[id] = struct{}{}
	return id, nil
}

func (c *Coordinator) taken(id string) bool {
	if _, ok := c.byID[id]; ok {
		return true
	}
	_, ok := c.pending[id]
	return ok
}

// Disconnect removes a session and closes its transport. It reports whether
// the session was live; removing an absent session is a no-op.
func (c *Coordinator) Disconnect(id string) bool {
	c.mu.Lock()
	s := c.removeLocked(id)
	n := len(c.sessions)
	c.mu.Unlock()

	if s == nil {
		return false
	}
	_ = s.close()
	c.opts.Metrics.SetObservers(n)
	c.logger.Info().Str("session_id", id).Int("observers", n).Msg("observer disconnected")
	return true
}

func (c *Coordinator) removeLocked(id string) *Session {
	s, ok := c.byID[id]
	if !ok {
		return nil
	}
	delete(c.byID, id)
	for i, cur := range c.sessions {
		if cur == s {
			c.sessions = append(c.sessions[:i], c.sessions[i+1:]...)
			break
		}
	}
	return s
}

// Count returns the number of live sessions.
func (c *Coordinator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Session looks up a live session by id.
func (c *Coordinator) Session(id string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byID[id]
	return s, ok
}

// Broadcast sends msg to every live session in connect order and returns how
// many sends succeeded. Sessions whose send fails are pruned once the pass is
// over.
func (c *Coordinator) Broadcast(msg []byte) int {
	c.mu.Lock()
	targets := make([]*Session, len(c.sessions))
	copy(targets, c.sessions)
	c.mu.Unlock()

	if len(targets) == 0 {
		return 0
	}

	var failed []*Session
	delivered := 0
	for _, s := range targets {
		if err := s.send(msg); err != nil {
			c.logger.Warn().Err(err).Str("session_id", s.id).Msg("broadcast send failed")
			failed = append(failed, s)
			continue
		}
		delivered++
	}

	c.opts.Metrics.BroadcastDelivered(delivered)
	if len(failed) > 0 {
		c.prune(failed)
	}
	return delivered
}

// BroadcastJSON marshals v and broadcasts it.
func (c *Coordinator) BroadcastJSON(v any) (int, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("marshal broadcast: %w", err)
	}
	return c.Broadcast(b), nil
}

func (c *Coordinator) prune(failed []*Session) {
	c.mu.Lock()
	removed := failed[:0]
	for _, s := range failed {
		// the session may have been disconnected concurrently
		if c.removeLocked(s.id) != nil {
			removed = append(removed, s)
		}
	}
	n := len(c.sessions)
	c.mu.Unlock()

	for _, s := range removed {
		_ = s.close()
	}
	c.opts.Metrics.BroadcastFailed(len(removed))
	c.opts.Metrics.SetObservers(n)
	if len(removed) > 0 {
		c.logger.Info().Int("pruned", len(removed)).Int("observers", n).Msg("pruned stale observers")
	}
}

// Close disconnects every live session. Later connects fail with
// ErrCoordinatorClosed.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	sessions := c.sessions
	c.sessions = nil
	c.byID = make(map[string]*Session)
	c.mu.Unlock()

	for _, s := range sessions {
		_ = s.close()
	}
	c.opts.Metrics.SetObservers(0)
	if len(sessions) > 0 {
		c.logger.Info().Int("closed", len(sessions)).Msg("observers closed")
	}
}
