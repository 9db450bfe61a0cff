// Package classifier scores a feature bundle into an attack/legit verdict.
//
// Scoring is additive: every signal that fires contributes a fixed weight and
// appends its reason tag, in the fixed evaluation order below. The weights and
// the 40 point threshold are the deployed policy and must not drift.
package classifier

import (
	"math"

	"github.com/axonhq/axon/internal/features"
	"github.com/axonhq/axon/internal/model"
)

const (
	// AttackThreshold is the minimum score labeled as an attack.
	AttackThreshold = 40
	// NeutralReputation is used when no reputation score is available.
	NeutralReputation = 50

	highEntropy   = 4.5
	lowReputation = 30
)

// Reason tags.
const (
	ReasonBotUserAgent        = "bot_user_agent"
	ReasonSQLInjectionHigh    = "sql_injection_high"
	ReasonSQLInjectionMedium  = "sql_injection_medium"
	ReasonPathTraversalHigh   = "path_traversal_high"
	ReasonPathTraversalMedium = "path_traversal_medium"
	ReasonSensitiveFileAccess = "sensitive_file_access"
	ReasonExploitHigh         = "exploit_patterns_high"
	ReasonExploitMedium       = "exploit_patterns_medium"
	ReasonHighEntropy         = "high_entropy"
	ReasonSuspiciousChars     = "suspicious_chars"
	ReasonLowReputation       = "cf_bot_score_low"
)

type scorer struct {
	score   int
	reasons []string
}

func (s *scorer) add(points int, reason string) {
	s.score += points
	s.reasons = append(s.reasons, reason)
}

func (s *scorer) tiered(risk model.RiskLevel, high, medium int, highReason, mediumReason string) {
	switch risk {
	case model.RiskHigh:
		s.add(high, highReason)
	case model.RiskMedium:
		s.add(medium, mediumReason)
	}
}

// Classify deterministically scores f. reputation is the externally supplied
// 0-100 score where lower means more automated; pass NeutralReputation when
// the edge did not provide one.
func Classify(f features.Bundle, reputation int) model.Verdict {
	s := &scorer{reasons: make([]string, 0, 4)}

	if f.UserAgent.IsBot {
		s.add(30, ReasonBotUserAgent)
	}
	s.tiered(f.SQLInjection.Risk, 40, 25, ReasonSQLInjectionHigh, ReasonSQLInjectionMedium)
	s.tiered(f.PathTraversal.Risk, 40, 25, ReasonPathTraversalHigh, ReasonPathTraversalMedium)
	if f.SensitiveFiles.AccessesSensitive {
		s.add(35, ReasonSensitiveFileAccess)
	}
	s.tiered(f.CommonExploits.Risk, 35, 20, ReasonExploitHigh, ReasonExploitMedium)
	if f.PathEntropy > highEntropy {
		s.add(20, ReasonHighEntropy)
	}
	if f.HasSuspiciousChars() {
		s.add(15, ReasonSuspiciousChars)
	}
	if reputation < lowReputation {
		s.add(20, ReasonLowReputation)
	}

	label := model.LabelLegit
	if s.score >= AttackThreshold {
		label = model.LabelAttack
	}
	return model.Verdict{
		Label:      label,
		Score:      s.score,
		Confidence: Confidence(s.score),
		BotScore:   reputation,
		Reasons:    s.reasons,
	}
}

// Confidence maps a score onto [0, 1], rounded to three decimal places.
func Confidence(score int) float64 {
	c := math.Min(float64(score)/100, 1.0)
	if c < 0 {
		c = 0
	}
	return math.Round(c*1000) / 1000
}
