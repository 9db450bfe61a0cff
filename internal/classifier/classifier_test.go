package classifier

import (
	"math"
	"reflect"
	"testing"

	"github.com/axonhq/axon/internal/features"
	"github.com/axonhq/axon/internal/model"
)

type signals struct {
	bot, sql, traversal, sensitive, exploits, suspicious bool
	entropy                                             float64
}

func bundle(s signals) features.Bundle {
	b := features.Bundle{
		PathEntropy:    s.entropy,
		PathChars:      &features.PathStats{SuspiciousChars: s.suspicious},
		UserAgent:      features.UserAgentInfo{IsBot: s.bot, Client: "test"},
		SQLInjection:   features.SQLInjection{Risk: model.RiskLow},
		PathTraversal:  features.PathTraversal{Risk: model.RiskLow},
		CommonExploits: features.CommonExploits{Risk: model.RiskLow},
	}
	if s.entropy == 0 {
		b.PathEntropy = 2.0
	}
	if s.sql {
		b.SQLInjection = features.SQLInjection{HasPattern: true, Count: 3, Risk: model.RiskHigh}
	}
	if s.traversal {
		b.PathTraversal = features.PathTraversal{HasTraversal: true, Count: 2, Risk: model.RiskHigh}
	}
	if s.sensitive {
		b.SensitiveFiles = features.SensitiveFiles{AccessesSensitive: true, Files: []string{".env"}, Count: 1}
	}
	if s.exploits {
		b.CommonExploits = features.CommonExploits{HasExploits: true, Total: 3, Risk: model.RiskHigh}
	}
	return b
}

func TestClassifyCleanRequestIsLegit(t *testing.T) {
	v := Classify(bundle(signals{}), NeutralReputation)
	if v.Label != model.LabelLegit || v.Score != 0 || len(v.Reasons) != 0 {
		t.Fatalf("clean request: %+v", v)
	}
	if v.BotScore != NeutralReputation {
		t.Fatalf("bot score not carried through: %d", v.BotScore)
	}
}

func TestClassifySingleSignals(t *testing.T) {
	tests := []struct {
		name       string
		in         signals
		reputation int
		score      int
		label      model.Label
		reason     string
	}{
		{"bot user agent", signals{bot: true}, 50, 30, model.LabelLegit, ReasonBotUserAgent},
		{"sql injection", signals{sql: true}, 50, 40, model.LabelAttack, ReasonSQLInjectionHigh},
		{"path traversal", signals{traversal: true}, 50, 40, model.LabelAttack, ReasonPathTraversalHigh},
		{"sensitive file", signals{sensitive: true}, 50, 35, model.LabelLegit, ReasonSensitiveFileAccess},
		{"exploit patterns", signals{exploits: true}, 50, 35, model.LabelLegit, ReasonExploitHigh},
		{"high entropy", signals{entropy: 5.0}, 50, 20, model.LabelLegit, ReasonHighEntropy},
		{"suspicious chars", signals{suspicious: true}, 50, 15, model.LabelLegit, ReasonSuspiciousChars},
		{"low reputation", signals{}, 10, 20, model.LabelLegit, ReasonLowReputation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Classify(bundle(tt.in), tt.reputation)
			if v.Score != tt.score || v.Label != tt.label {
				t.Fatalf("got score=%d label=%s, want %d %s", v.Score, v.Label, tt.score, tt.label)
			}
			if !reflect.DeepEqual(v.Reasons, []string{tt.reason}) {
				t.Fatalf("reasons = %v, want [%s]", v.Reasons, tt.reason)
			}
		})
	}
}

func TestClassifyMediumTiers(t *testing.T) {
	b := bundle(signals{})
	b.SQLInjection.Risk = model.RiskMedium
	b.PathTraversal.Risk = model.RiskMedium
	b.CommonExploits.Risk = model.RiskMedium

	v := Classify(b, NeutralReputation)
	want := []string{ReasonSQLInjectionMedium, ReasonPathTraversalMedium, ReasonExploitMedium}
	if v.Score != 70 || !reflect.DeepEqual(v.Reasons, want) {
		t.Fatalf("got score=%d reasons=%v", v.Score, v.Reasons)
	}
}

func TestClassifyReasonOrder(t *testing.T) {
	all := signals{bot: true, sql: true, traversal: true, sensitive: true, exploits: true, suspicious: true, entropy: 6.0}
	v := Classify(bundle(all), 5)
	want := []string{
		ReasonBotUserAgent,
		ReasonSQLInjectionHigh,
		ReasonPathTraversalHigh,
		ReasonSensitiveFileAccess,
		ReasonExploitHigh,
		ReasonHighEntropy,
		ReasonSuspiciousChars,
		ReasonLowReputation,
	}
	if !reflect.DeepEqual(v.Reasons, want) {
		t.Fatalf("reasons = %v, want %v", v.Reasons, want)
	}
	if v.Score != 235 || v.Confidence != 1.0 || v.Label != model.LabelAttack {
		t.Fatalf("got %+v", v)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	b := bundle(signals{bot: true, sensitive: true, entropy: 4.8})
	first := Classify(b, 25)
	for i := 0; i < 10; i++ {
		if got := Classify(b, 25); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestClassifyMonotonic(t *testing.T) {
	base := Classify(bundle(signals{}), NeutralReputation).Score
	for name, s := range map[string]signals{
		"bot":        {bot: true},
		"sql":        {sql: true},
		"traversal":  {traversal: true},
		"sensitive":  {sensitive: true},
		"exploits":   {exploits: true},
		"suspicious": {suspicious: true},
		"entropy":    {entropy: 4.6},
	} {
		if got := Classify(bundle(s), NeutralReputation).Score; got <= base {
			t.Errorf("%s: score %d not above baseline %d", name, got, base)
		}
	}
	if got := Classify(bundle(signals{}), 29).Score; got <= base {
		t.Errorf("low reputation: score %d not above baseline %d", got, base)
	}
}

func TestClassifyThresholdBoundary(t *testing.T) {
	// bot (30) + suspicious chars (15) = 45; bot alone = 30; sql alone = 40.
	cases := []struct {
		in    signals
		score int
	}{
		{signals{bot: true}, 30},
		{signals{sql: true}, 40},
		{signals{bot: true, suspicious: true}, 45},
	}
	for _, c := range cases {
		v := Classify(bundle(c.in), NeutralReputation)
		if v.Score != c.score {
			t.Fatalf("score = %d, want %d", v.Score, c.score)
		}
		if (v.Score >= AttackThreshold) != (v.Label == model.LabelAttack) {
			t.Fatalf("label %s inconsistent with score %d", v.Label, v.Score)
		}
	}
}

func TestClassifyEntropyIsStrict(t *testing.T) {
	v := Classify(bundle(signals{entropy: 4.5}), NeutralReputation)
	if len(v.Reasons) != 0 {
		t.Fatalf("entropy of exactly 4.5 should not fire: %v", v.Reasons)
	}
	v = Classify(bundle(signals{}), 30)
	if len(v.Reasons) != 0 {
		t.Fatalf("reputation of exactly 30 should not fire: %v", v.Reasons)
	}
}

func TestConfidence(t *testing.T) {
	for score := 0; score <= 300; score += 5 {
		c := Confidence(score)
		if c < 0 || c > 1 {
			t.Fatalf("Confidence(%d) = %v out of range", score, c)
		}
		if want := math.Min(float64(score)/100, 1.0); c != want {
			t.Fatalf("Confidence(%d) = %v, want %v", score, c, want)
		}
	}
}

func TestClassifyNilPathChars(t *testing.T) {
	b := bundle(signals{})
	b.PathChars = nil
	if v := Classify(b, NeutralReputation); v.Score != 0 {
		t.Fatalf("nil path stats should not score: %+v", v)
	}
}

func TestScenarioLegitRequest(t *testing.T) {
	req := model.RequestRecord{
		Path:      "/api/users",
		Method:    "GET",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0 Safari/537.36",
	}
	v := Classify(features.Extract(req), 80)
	if v.Label != model.LabelLegit || len(v.Reasons) != 0 {
		t.Fatalf("legit scenario: %+v", v)
	}
}

func TestScenarioSQLInjectionAttack(t *testing.T) {
	req := model.RequestRecord{
		Path:      "/admin/login",
		Query:     "user=admin' OR '1'='1",
		Method:    "GET",
		UserAgent: "curl/7.68.0",
	}
	f := features.Extract(req)
	if f.SQLInjection.Risk != model.RiskHigh {
		t.Fatalf("sql risk = %s", f.SQLInjection.Risk)
	}
	v := Classify(f, 15)
	if v.Label != model.LabelAttack || v.Confidence <= 0.3 {
		t.Fatalf("attack scenario: %+v", v)
	}
	found := false
	for _, r := range v.Reasons {
		if r == ReasonSQLInjectionHigh {
			found = true
		}
	}
	if !found {
		t.Fatalf("reasons %v missing %s", v.Reasons, ReasonSQLInjectionHigh)
	}
}
