// Package risk scores payment and transfer attempts for fraud risk.
//
// The score is a weighted sum of four subscores (amount, category, location and device
// verification) followed by multiplicative amplifiers for risky combinations, clamped to
// [0, 1]. Scoring is deterministic and does no I/O, so it can run on every request
// before the ledger is touched.
package risk

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Config describes the lookup tables a RuleScorer uses. Location names are matched
// case-insensitively.
type Config struct {
	CategoryRisks        map[string]float64
	HighRiskCategories   []string
	HomeLocations        []string
	TopLocation          string
	MajorLocations       []string
	DefaultCategoryScore float64
}

// DefaultConfig returns the UK configuration.
func DefaultConfig() Config {
	risks := make(map[string]float64, len(defaultCategoryRisks))
	for k, v := range defaultCategoryRisks {
		risks[k] = v
	}
	return Config{
		CategoryRisks:        risks,
		HighRiskCategories:   append([]string(nil), defaultHighRiskCategories...),
		HomeLocations:        append([]string(nil), defaultHomeLocations...),
		TopLocation:          defaultTopLocation,
		MajorLocations:       append([]string(nil), defaultMajorLocations...),
		DefaultCategoryScore: defaultCategoryRisk,
	}
}

// RuleScorer is the weighted-rule Scorer.
type RuleScorer struct {
	categoryRisks   map[string]float64
	defaultCategory float64
	highRisk        map[string]struct{}
	home            map[string]struct{}
	major           map[string]struct{}
	top             string
}

var _ Scorer = (*RuleScorer)(nil)

// NewRuleScorer creates a scorer with the default UK tables.
func NewRuleScorer() *RuleScorer {
	return NewRuleScorerWithConfig(DefaultConfig())
}

// NewRuleScorerWithConfig creates a scorer from cfg. The scorer keeps its own copies of the
// tables.
func NewRuleScorerWithConfig(cfg Config) *RuleScorer {
	s := &RuleScorer{
		categoryRisks:   make(map[string]float64, len(cfg.CategoryRisks)),
		defaultCategory: cfg.DefaultCategoryScore,
		highRisk:        toSet(cfg.HighRiskCategories),
		home:            toSet(cfg.HomeLocations),
		major:           toSet(cfg.MajorLocations),
		top:             normalize(cfg.TopLocation),
	}
	for k, v := range cfg.CategoryRisks {
		s.categoryRisks[normalize(k)] = v
	}
	return s
}

// Score evaluates in.
func (s *RuleScorer) Score(in Input) Assessment {
	category := normalize(in.Category)
	location := normalize(in.Location)

	f := Factors{
		Amount:       s.amountScore(in.Amount),
		Category:     s.categoryScore(category),
		Location:     s.locationScore(location),
		Verification: verificationScore(in.DeviceID, in.NetworkOrigin),
	}

	score := f.Amount*weightAmount +
		f.Category*weightCategory +
		f.Location*weightLocation +
		f.Verification*weightVerification
	f.Base = score

	_, highRisk := s.highRisk[category]
	_, atHome := s.home[location]
	unknown := location == "" || location == UnknownLocation
	largeAmount := in.Amount.GreaterThanOrEqual(decimal.NewFromInt(HighRiskAmount))
	veryLargeAmount := in.Amount.GreaterThanOrEqual(decimal.NewFromInt(LargeAmount))

	// Each condition looks at the attempt, not at the running score.
	amplifiers := []struct {
		on   bool
		mult float64
		name string
	}{
		{highRisk && largeAmount, ampHighRiskLargeAmount, AmplifierHighRiskLargeAmount},
		{!atHome && highRisk, ampForeignHighRisk, AmplifierForeignHighRisk},
		{!atHome && veryLargeAmount, ampForeignLargeAmount, AmplifierForeignLargeAmount},
		{unknown && largeAmount, ampUnknownLargeAmount, AmplifierUnknownLargeAmount},
	}
	for _, a := range amplifiers {
		if a.on {
			score *= a.mult
			f.Amplifiers = append(f.Amplifiers, a.name)
		}
	}

	score = math.Min(math.Max(score, 0), 1)

	return Assessment{
		Score:   score,
		Level:   LevelFor(score),
		Flagged: IsFlagged(score),
		Factors: f,
	}
}

// LevelFor buckets a score.
func LevelFor(score float64) Level {
	switch {
	case score <= LowRiskCeiling:
		return LevelLow
	case score <= FraudThreshold:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// IsFlagged reports whether a score crosses the fraud threshold.
func IsFlagged(score float64) bool {
	return score > FraudThreshold
}

func (s *RuleScorer) amountScore(amount decimal.Decimal) float64 {
	for _, tier := range amountTiers {
		if amount.GreaterThanOrEqual(decimal.NewFromInt(tier.min)) {
			return tier.score
		}
	}
	return amountFloorScore
}

func (s *RuleScorer) categoryScore(category string) float64 {
	if v, ok := s.categoryRisks[category]; ok {
		return v
	}
	return s.defaultCategory
}

func (s *RuleScorer) locationScore(location string) float64 {
	if location == "" {
		return 1
	}
	if _, ok := s.home[location]; !ok {
		return 1
	}
	if location == s.top {
		return 0.4
	}
	if _, ok := s.major[location]; ok {
		return 0.3
	}
	return 0.2
}

func verificationScore(deviceID, networkOrigin string) float64 {
	score := 0.0
	if d := strings.TrimSpace(deviceID); d == "" || d == PlaceholderDeviceID {
		score += 0.6
	}
	if n := strings.TrimSpace(networkOrigin); n == "" || n == PlaceholderNetworkOrigin {
		score += 0.7
	}
	return math.Min(score, 1)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[normalize(v)] = struct{}{}
	}
	return set
}
