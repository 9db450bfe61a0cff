package monitor

import (
	"errors"
	"sync"
)

// ErrSessionClosed is returned when sending on a session that was already removed.
var ErrSessionClosed = errors.New("monitor: session closed")

// Transport is the observer connection as seen by the coordinator. Send must
// be safe for concurrent use and must not block without bound.
type Transport interface {
	Send(msg []byte) error
	Close() error
}

// Session is one live observer connection.
type Session struct {
	id   string
	conn Transport

	mu     sync.Mutex
	filter string
	closed bool
}

func newSession(id string, conn Transport) *Session {
	return &Session{id: id, conn: conn}
}

func (s *Session) ID() string { return s.id }

// Filter returns the last prediction filter the observer asked for.
func (s *Session) Filter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *Session) setFilter(f string) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

func (s *Session) send(msg []byte) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}
	return s.conn.Send(msg)
}

// close releases the transport once. Later calls are no-ops.
func (s *Session) close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.conn.Close()
}
