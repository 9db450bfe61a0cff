package model

import "time"

// TrafficEvent is one persisted row per classified request. Column names match
// the traffic table.
type TrafficEvent struct {
	ID         int64     `db:"id" json:"id,omitempty"`
	Timestamp  int64     `db:"timestamp" json:"timestamp"`
	Path       string    `db:"path" json:"path"`
	Method     string    `db:"method" json:"method"`
	IP         string    `db:"ip" json:"ip"`
	Country    string    `db:"country" json:"country"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	Prediction Label     `db:"prediction" json:"prediction"`
	Confidence float64   `db:"confidence" json:"confidence"`
	BotScore   int       `db:"bot_score" json:"bot_score"`
	CreatedAt  time.Time `db:"created_at" json:"-"`
}

// NewTrafficEvent builds the row for a request and its verdict.
func NewTrafficEvent(req RequestRecord, v Verdict) TrafficEvent {
	return TrafficEvent{
		Timestamp:  req.Timestamp,
		Path:       req.Target(),
		Method:     req.Method,
		IP:         req.IP,
		Country:    req.Country,
		UserAgent:  req.UserAgent,
		Prediction: v.Label,
		Confidence: v.Confidence,
		BotScore:   v.BotScore,
	}
}

// AttackTypeCount is one entry of the top attack types list.
type AttackTypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// Stats is the aggregate view served to the dashboard.
type Stats struct {
	TotalRequests    int64             `json:"total_requests"`
	AttacksBlocked   int64             `json:"attacks_blocked"`
	LegitTraffic     int64             `json:"legit_traffic"`
	AttackRate       float64           `json:"attack_rate"`
	RequestsLastHour int64             `json:"requests_last_hour"`
	TopAttackTypes   []AttackTypeCount `json:"top_attack_types"`
	Timestamp        int64             `json:"timestamp"`
}
