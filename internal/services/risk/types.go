package risk

import "github.com/shopspring/decimal"

// Level is the coarse bucket derived from a score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Input carries the attempt attributes the scorer looks at.
type Input struct {
	Amount        decimal.Decimal
	Category      string
	Location      string
	DeviceID      string
	NetworkOrigin string
}

// Factors is the breakdown behind a score, kept with the transaction for audit.
type Factors struct {
	Amount       float64  `json:"amount"`
	Category     float64  `json:"category"`
	Location     float64  `json:"location"`
	Verification float64  `json:"verification"`
	Base         float64  `json:"base"`
	Amplifiers   []string `json:"amplifiers,omitempty"`
}

// Map flattens the factors for JSON columns.
func (f Factors) Map() map[string]interface{} {
	amplifiers := make([]interface{}, 0, len(f.Amplifiers))
	for _, a := range f.Amplifiers {
		amplifiers = append(amplifiers, a)
	}
	return map[string]interface{}{
		"amount":       f.Amount,
		"category":     f.Category,
		"location":     f.Location,
		"verification": f.Verification,
		"base":         f.Base,
		"amplifiers":   amplifiers,
	}
}

// Assessment is the scorer's verdict for one attempt.
type Assessment struct {
	Score   float64 `json:"score"`
	Level   Level   `json:"risk_level"`
	Flagged bool    `json:"flagged"`
	Factors Factors `json:"factors"`
}

// Scorer turns an attempt into an assessment. Implementations must be pure: the same
// Input always yields the same Assessment.
type Scorer interface {
	Score(in Input) Assessment
}
