package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRuleScorer_Scenarios(t *testing.T) {
	scorer := NewRuleScorer()

	tests := []struct {
		name        string
		input       Input
		wantScore   float64
		wantLevel   Level
		wantFlagged bool
		check       func(t *testing.T, a Assessment)
	}{
		{
			name: "large gambling payment abroad",
			input: Input{
				Amount:        amount("6000"),
				Category:      "gambling",
				Location:      "Paris",
				DeviceID:      "device-42",
				NetworkOrigin: "81.2.69.160",
			},
			wantScore:   1.0,
			wantLevel:   LevelHigh,
			wantFlagged: true,
			check: func(t *testing.T, a Assessment) {
				assert.Equal(t, 0.85, a.Factors.Amount)
				assert.Equal(t, 0.95, a.Factors.Category)
				assert.Equal(t, 1.0, a.Factors.Location)
				assert.Equal(t, 0.0, a.Factors.Verification)
				assert.InDelta(t, 0.75, a.Factors.Base, 1e-9)
				assert.Equal(t, []string{
					AmplifierHighRiskLargeAmount,
					AmplifierForeignHighRisk,
					AmplifierForeignLargeAmount,
				}, a.Factors.Amplifiers)
			},
		},
		{
			name: "small food payment in a major city",
			input: Input{
				Amount:        amount("50"),
				Category:      "food",
				Location:      "Manchester",
				DeviceID:      "device-42",
				NetworkOrigin: "81.2.69.160",
			},
			wantScore:   0.165,
			wantLevel:   LevelLow,
			wantFlagged: false,
			check: func(t *testing.T, a Assessment) {
				assert.Equal(t, 0.3, a.Factors.Location)
				assert.Empty(t, a.Factors.Amplifiers)
			},
		},
		{
			name: "placeholders from an anonymous web client",
			input: Input{
				Amount:        amount("20"),
				Category:      "retail",
				Location:      "Leeds",
				DeviceID:      PlaceholderDeviceID,
				NetworkOrigin: PlaceholderNetworkOrigin,
			},
			// .1*.25 + .3*.25 + .2*.3 + 1*.2
			wantScore:   0.36,
			wantLevel:   LevelMedium,
			wantFlagged: false,
			check: func(t *testing.T, a Assessment) {
				assert.Equal(t, 1.0, a.Factors.Verification)
			},
		},
		{
			name: "missing location with a large amount",
			input: Input{
				Amount:        amount("1000"),
				Category:      "retail",
				DeviceID:      "device-42",
				NetworkOrigin: "81.2.69.160",
			},
			// (.5*.25 + .3*.25 + 1*.3) * 1.3
			wantScore:   0.65,
			wantLevel:   LevelHigh,
			wantFlagged: true,
			check: func(t *testing.T, a Assessment) {
				assert.Equal(t, []string{AmplifierUnknownLargeAmount}, a.Factors.Amplifiers)
			},
		},
		{
			name: "unknown category falls back to other",
			input: Input{
				Amount:        amount("100"),
				Category:      "Pet Supplies",
				Location:      "london",
				DeviceID:      "device-42",
				NetworkOrigin: "81.2.69.160",
			},
			// .1*.25 + .5*.25 + .4*.3
			wantScore:   0.27,
			wantLevel:   LevelLow,
			wantFlagged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := scorer.Score(tt.input)

			assert.InDelta(t, tt.wantScore, a.Score, 1e-9)
			assert.Equal(t, tt.wantLevel, a.Level)
			assert.Equal(t, tt.wantFlagged, a.Flagged)
			if tt.check != nil {
				tt.check(t, a)
			}
		})
	}
}

func TestRuleScorer_ScoreBoundsAndLevels(t *testing.T) {
	scorer := NewRuleScorer()
	amounts := []string{"0.01", "1", "499.99", "500", "999.99", "1000", "2500", "4999.99", "5000", "9999.99", "10000", "250000"}
	categories := []string{"gambling", "cryptocurrency", "money_transfer", "electronics", "travel", "entertainment", "retail", "food", "services", "other", "unlisted", ""}
	locations := []string{"", "Unknown", "London", "Manchester", "Cardiff", "Milton Keynes", "New York", "Lagos"}
	devices := []string{"", PlaceholderDeviceID, "device-1"}
	networks := []string{"", PlaceholderNetworkOrigin, "10.1.2.3"}

	for _, amt := range amounts {
		for _, cat := range categories {
			for _, loc := range locations {
				for _, dev := range devices {
					for _, nw := range networks {
						a := scorer.Score(Input{
							Amount:        amount(amt),
							Category:      cat,
							Location:      loc,
							DeviceID:      dev,
							NetworkOrigin: nw,
						})
						require.GreaterOrEqual(t, a.Score, 0.0)
						require.LessOrEqual(t, a.Score, 1.0)
						require.Equal(t, LevelFor(a.Score), a.Level)
						require.Equal(t, a.Score > 0.6, a.Flagged)
					}
				}
			}
		}
	}
}

func TestRuleScorer_AmountSubscoreIsMonotonic(t *testing.T) {
	scorer := NewRuleScorer()
	prev := 0.0
	for cents := int64(1); cents <= 1_200_000; cents += 997 {
		got := scorer.amountScore(decimal.New(cents, -2))
		require.GreaterOrEqual(t, got, prev, "amount %s", decimal.New(cents, -2))
		prev = got
	}
	assert.Equal(t, 1.0, prev)
}

func TestRuleScorer_TierBoundaries(t *testing.T) {
	scorer := NewRuleScorer()
	cases := map[string]float64{
		"499.99":   0.1,
		"500":      0.3,
		"999.99":   0.3,
		"1000":     0.5,
		"2499.99":  0.5,
		"2500":     0.7,
		"5000":     0.85,
		"9999.99":  0.85,
		"10000":    1.0,
		"10000.01": 1.0,
	}
	for in, want := range cases {
		assert.Equal(t, want, scorer.amountScore(amount(in)), in)
	}
}

func TestRuleScorer_IsDeterministic(t *testing.T) {
	scorer := NewRuleScorer()
	in := Input{Amount: amount("2750.50"), Category: "Electronics", Location: "Bristol", DeviceID: "ios-1"}

	first := scorer.Score(in)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, scorer.Score(in))
	}
}

func TestRuleScorer_CustomConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HomeLocations = []string{"Lagos", "Abuja"}
	cfg.TopLocation = "Lagos"
	cfg.MajorLocations = []string{"Abuja"}
	scorer := NewRuleScorerWithConfig(cfg)

	a := scorer.Score(Input{Amount: amount("10"), Category: "food", Location: "Abuja", DeviceID: "d", NetworkOrigin: "n"})
	assert.Equal(t, 0.3, a.Factors.Location)

	a = scorer.Score(Input{Amount: amount("10"), Category: "food", Location: "London", DeviceID: "d", NetworkOrigin: "n"})
	assert.Equal(t, 1.0, a.Factors.Location)
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, LevelLow, LevelFor(0))
	assert.Equal(t, LevelLow, LevelFor(0.3))
	assert.Equal(t, LevelMedium, LevelFor(0.30001))
	assert.Equal(t, LevelMedium, LevelFor(0.6))
	assert.Equal(t, LevelHigh, LevelFor(0.60001))
	assert.False(t, IsFlagged(0.6))
	assert.True(t, IsFlagged(0.61))
}
