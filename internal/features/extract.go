// Package features turns a raw honeypot request into the structural and
// lexical signals consumed by the classifier. Every function here is pure and
// total: malformed or empty input yields a neutral result, never an error.
package features

import "github.com/axonhq/axon/internal/model"

// Bundle is the full feature set extracted from one request.
type Bundle struct {
	PathEntropy    float64        `json:"path_entropy"`
	PathChars      *PathStats     `json:"path_chars"`
	UserAgent      UserAgentInfo  `json:"ua_parsed"`
	SQLInjection   SQLInjection   `json:"sql_injection"`
	PathTraversal  PathTraversal  `json:"path_traversal"`
	SensitiveFiles SensitiveFiles `json:"sensitive_files"`
	CommonExploits CommonExploits `json:"common_exploits"`
}

// HasSuspiciousChars reports the suspicious character flag, false when the
// request had no path at all.
func (b Bundle) HasSuspiciousChars() bool {
	return b.PathChars != nil && b.PathChars.SuspiciousChars
}

// Extract computes the feature bundle for req. Entropy is measured over the
// undecoded path only; the pattern detectors scan path and query together,
// both as received and percent-decoded.
func Extract(req model.RequestRecord) Bundle {
	target := req.Target()
	return Bundle{
		PathEntropy:    Entropy(req.Path),
		PathChars:      AnalyzePath(target),
		UserAgent:      ParseUserAgent(req.UserAgent),
		SQLInjection:   DetectSQLInjection(target),
		PathTraversal:  DetectPathTraversal(target),
		SensitiveFiles: DetectSensitiveFiles(target),
		CommonExploits: DetectCommonExploits(target),
	}
}
