package monitor

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	echoPrefix  = "Echo: "
	filterAcked = "Filter applied"
)

// HandleMessage answers one inbound payload from a session. Errors and panics
// while handling become a 500 error reply; the session stays open. A reply
// that cannot be delivered is a transport fault and disconnects the session.
func (c *Coordinator) HandleMessage(s *Session, data []byte) {
	msg := ParseControlMessage(data)

	out, err := c.dispatch(s, msg)
	if err != nil {
		c.logger.Error().Err(err).Str("session_id", s.id).Msg("control message failed")
		out = ErrorMessage{Type: TypeError, Message: err.Error(), Code: http.StatusInternalServerError}
	}

	if err := c.reply(s, out); err != nil {
		c.logger.Warn().Err(err).Str("session_id", s.id).Msg("reply failed")
		c.Disconnect(s.id)
	}
}

func (c *Coordinator) dispatch(s *Session, msg ControlMessage) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handle %T: panic: %v", msg, r)
		}
	}()

	switch m := msg.(type) {
	case Ping:
		return PongMessage{Type: TypePong, Timestamp: c.timestamp()}, nil
	case GetStats:
		return StatsMessage{Type: TypeStats, TotalConnections: c.Count(), Timestamp: c.timestamp()}, nil
	case Filter:
		s.setFilter(m.Prediction)
		c.logger.Debug().Str("session_id", s.id).Str("prediction", m.Prediction).Msg("filter set")
		return AckMessage{Type: TypeAck, Message: filterAcked}, nil
	case Unknown:
		return ErrorMessage{
			Type:    TypeError,
			Message: "Unknown message type: " + m.Type,
			Code:    http.StatusBadRequest,
		}, nil
	case Opaque:
		return rawText(echoPrefix + m.Text), nil
	default:
		return nil, fmt.Errorf("unhandled control message %T", msg)
	}
}

// rawText is sent as is rather than JSON encoded.
type rawText string

func (c *Coordinator) reply(s *Session, v any) error {
	var b []byte
	switch t := v.(type) {
	case rawText:
		b = []byte(t)
	default:
		var err error
		if b, err = json.Marshal(v); err != nil {
			return fmt.Errorf("marshal reply: %w", err)
		}
	}
	return s.send(b)
}
