package model

type Label string

const (
	LabelAttack Label = "attack"
	LabelLegit  Label = "legit"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Verdict is the labeled, scored result of classifying one request.
type Verdict struct {
	Label      Label    `json:"label"`
	Score      int      `json:"score"`
	Confidence float64  `json:"confidence"`
	BotScore   int      `json:"bot_score"`
	Reasons    []string `json:"reasons"`
}

// IsAttack reports whether the verdict labels the request as an attack.
func (v Verdict) IsAttack() bool { return v.Label == LabelAttack }
