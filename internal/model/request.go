package model

import "time"

// RequestRecord is an immutable snapshot of one inbound honeypot request.
// Path and Query are kept exactly as received (not percent-decoded).
type RequestRecord struct {
	Path      string `json:"path"`
	Query     string `json:"query,omitempty"`
	Method    string `json:"method"`
	UserAgent string `json:"user_agent"`
	IP        string `json:"ip"`
	Country   string `json:"country"`
	Timestamp int64  `json:"timestamp"` // Unix ms
}

// Target returns the path with its query string re-attached, the form the
// pattern detectors scan.
func (r RequestRecord) Target() string {
	if r.Query == "" {
		return r.Path
	}
	return r.Path + "?" + r.Query
}

// Time returns the arrival timestamp as a time.Time.
func (r RequestRecord) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}
