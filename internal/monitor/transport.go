package monitor

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrUpgradeRequired is returned by Serve when the request carries no
// websocket handshake.
var ErrUpgradeRequired = errors.New("monitor: websocket upgrade required")

// wsTransport adapts a gorilla connection to Transport. Writes are serialized
// and bounded by the write timeout.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu sync.Mutex
}

func (t *wsTransport) Send(msg []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, msg)
}

func (t *wsTransport) ping() error {
	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.writeTimeout))
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	_ = t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return t.conn.Close()
}

func (c *Coordinator) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     c.checkOrigin,
	}
}

func (c *Coordinator) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range c.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	return strings.EqualFold(u.Host, r.Host)
}

// Serve upgrades the request, registers the observer and runs its read loop
// until the connection closes. Requests without a websocket handshake fail
// with ErrUpgradeRequired before anything is written.
func (c *Coordinator) Serve(w http.ResponseWriter, r *http.Request) error {
	if !websocket.IsWebSocketUpgrade(r) {
		return ErrUpgradeRequired
	}

	up := c.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already wrote an HTTP error
		return err
	}
	conn.SetReadLimit(c.opts.MaxMessageBytes)

	t := &wsTransport{conn: conn, writeTimeout: c.opts.WriteTimeout}
	s, err := c.Connect(t)
	if err != nil {
		_ = conn.Close()
		return err
	}

	done := make(chan struct{})
	defer close(done)
	if c.opts.PingInterval > 0 {
		c.keepAlive(conn, t, s.id, done)
	} else {
		// drop the deadline left over from the HTTP server
		_ = conn.SetReadDeadline(time.Time{})
	}

	c.readLoop(conn, s)
	return nil
}

func (c *Coordinator) keepAlive(conn *websocket.Conn, t *wsTransport, id string, done <-chan struct{}) {
	wait := 2 * c.opts.PingInterval
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})

	go func() {
		ticker := time.NewTicker(c.opts.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := t.ping(); err != nil {
					c.logger.Debug().Err(err).Str("session_id", id).Msg("ping failed")
					c.Disconnect(id)
					return
				}
			}
		}
	}()
}

func (c *Coordinator) readLoop(conn *websocket.Conn, s *Session) {
	defer c.Disconnect(s.id)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug().Err(err).Str("session_id", s.id).Msg("observer read failed")
			}
			return
		}
		c.HandleMessage(s, data)
	}
}
