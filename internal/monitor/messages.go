package monitor

import (
	"bytes"
	"encoding/json"

	"github.com/axonhq/axon/internal/model"
)

// Outbound message types.
const (
	TypeConnected      = "connected"
	TypePong           = "pong"
	TypeStats          = "stats"
	TypeAck            = "ack"
	TypeError          = "error"
	TypeClassification = "classification"
)

// Inbound message tags.
const (
	tagPing     = "ping"
	tagGetStats = "get_stats"
	tagFilter   = "filter"
)

// ControlMessage is a parsed observer message. The set of implementations is
// closed: Ping, GetStats, Filter, Unknown and Opaque.
type ControlMessage interface {
	controlMessage()
}

// Ping asks for a pong reply.
type Ping struct{}

// GetStats asks for the live observer count.
type GetStats struct{}

// Filter records the observer's preferred prediction filter.
type Filter struct {
	Prediction string
}

// Unknown is a well-formed message whose type tag is not handled.
type Unknown struct {
	Type string
}

// Opaque is text that is not a JSON object. It is echoed back.
type Opaque struct {
	Text string
}

func (Ping) controlMessage()     {}
func (GetStats) controlMessage() {}
func (Filter) controlMessage()   {}
func (Unknown) controlMessage()  {}
func (Opaque) controlMessage()   {}

type inboundEnvelope struct {
	Type       string `json:"type"`
	Prediction string `json:"prediction"`
}

// ParseControlMessage decodes an inbound observer payload. Anything that is
// not a JSON object degrades to Opaque; it never fails.
func ParseControlMessage(data []byte) ControlMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Opaque{Text: string(data)}
	}
	var env inboundEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Opaque{Text: string(data)}
	}
	switch env.Type {
	case tagPing:
		return Ping{}
	case tagGetStats:
		return GetStats{}
	case tagFilter:
		return Filter{Prediction: env.Prediction}
	default:
		return Unknown{Type: env.Type}
	}
}

// ConnectedMessage greets a newly connected observer.
type ConnectedMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	SessionID string `json:"session_id"`
}

type PongMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type StatsMessage struct {
	Type             string `json:"type"`
	TotalConnections int    `json:"total_connections"`
	Timestamp        int64  `json:"timestamp"`
}

type AckMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ClassificationMessage is the verdict broadcast sent to every observer.
type ClassificationMessage struct {
	Type       string      `json:"type"`
	Timestamp  int64       `json:"timestamp"`
	Path       string      `json:"path"`
	Method     string      `json:"method"`
	IP         string      `json:"ip"`
	Country    string      `json:"country"`
	UserAgent  string      `json:"user_agent"`
	Prediction model.Label `json:"prediction"`
	Confidence float64     `json:"confidence"`
	BotScore   int         `json:"bot_score"`
}

// NewClassificationMessage builds the broadcast payload for a classified request.
func NewClassificationMessage(ev model.TrafficEvent) ClassificationMessage {
	return ClassificationMessage{
		Type:       TypeClassification,
		Timestamp:  ev.Timestamp,
		Path:       ev.Path,
		Method:     ev.Method,
		IP:         ev.IP,
		Country:    ev.Country,
		UserAgent:  ev.UserAgent,
		Prediction: ev.Prediction,
		Confidence: ev.Confidence,
		BotScore:   ev.BotScore,
	}
}
