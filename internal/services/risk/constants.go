package risk

// Thresholds
const (
	// FraudThreshold is the score above which an attempt is flagged.
	FraudThreshold  = 0.6
	LowRiskCeiling  = 0.3
	HighRiskAmount  = 1000
	LargeAmount     = 5000
	UnknownLocation = "unknown"
)

// Placeholders sent by clients that could not identify the device or network.
const (
	PlaceholderDeviceID      = "web-client"
	PlaceholderNetworkOrigin = "127.0.0.1"
)

// Subscore weights
const (
	weightAmount       = 0.25
	weightCategory     = 0.25
	weightLocation     = 0.30
	weightVerification = 0.20
)

// Amplifier multipliers and the names recorded in Factors.Amplifiers.
const (
	ampHighRiskLargeAmount = 1.3
	ampForeignHighRisk     = 1.5
	ampForeignLargeAmount  = 1.4
	ampUnknownLargeAmount  = 1.3

	AmplifierHighRiskLargeAmount = "high_risk_category_large_amount"
	AmplifierForeignHighRisk     = "foreign_location_high_risk_category"
	AmplifierForeignLargeAmount  = "foreign_location_large_amount"
	AmplifierUnknownLargeAmount  = "unknown_location_large_amount"
)

const defaultCategoryRisk = 0.5

var defaultCategoryRisks = map[string]float64{
	"gambling":       0.95,
	"cryptocurrency": 0.9,
	"money_transfer": 0.85,
	"electronics":    0.7,
	"travel":         0.5,
	"entertainment":  0.4,
	"retail":         0.3,
	"food":           0.2,
	"services":       0.4,
	"other":          0.5,
}

var defaultHighRiskCategories = []string{"gambling", "cryptocurrency", "money_transfer"}

var defaultHomeLocations = []string{
	"London", "Manchester", "Birmingham", "Leeds", "Glasgow", "Liverpool",
	"Edinburgh", "Bristol", "Cardiff", "Newcastle", "Sheffield", "Belfast",
	"Nottingham", "Cambridge", "Oxford", "Reading", "Leicester", "Brighton",
	"Portsmouth", "Milton Keynes",
}

const defaultTopLocation = "London"

var defaultMajorLocations = []string{"Manchester", "Birmingham", "Glasgow", "Liverpool"}

// amountTiers is ordered from the highest threshold down.
var amountTiers = []struct {
	min   int64
	score float64
}{
	{10000, 1.0},
	{5000, 0.85},
	{2500, 0.7},
	{1000, 0.5},
	{500, 0.3},
}

const amountFloorScore = 0.1
