package validation

const (
	// Amount limits
	MinTransactionAmount = "0.01"
	MaxTransactionAmount = "1000000.00"
	AmountDecimalPlaces  = 2

	// Password requirements
	MinPasswordLength = 8
	MaxPasswordLength = 72

	// String lengths
	MaxCategoryLength = 64
	MaxMerchantLength = 120
	MaxLocationLength = 120
	MaxNotesLength    = 2000
	MaxReasonLength   = 1000
	MaxKeyLength      = 128
)
