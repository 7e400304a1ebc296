package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

// Category groups error codes into the three failure families surfaced to callers.
type Category string

const (
	CategoryUnknown       Category = "unknown"
	CategoryConfiguration Category = "configuration"
	CategoryData          Category = "data"
	CategoryIndicator     Category = "indicator"
)

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidConfiguration ErrorCode = 100
	ErrCodeInvalidPeriod        ErrorCode = 101
	ErrCodeInvalidStdDev        ErrorCode = 102
	ErrCodeInvalidSource        ErrorCode = 103
	ErrCodeEmptyROILadder       ErrorCode = 104
	ErrCodeInvalidROILadder     ErrorCode = 105
	ErrCodeInvalidStopLoss      ErrorCode = 106
	ErrCodeInvalidTrailing      ErrorCode = 107
	ErrCodeInvalidPriority      ErrorCode = 108
	ErrCodeInvalidRule          ErrorCode = 109
	ErrCodeUnknownColumn        ErrorCode = 110
	ErrCodeInvalidEntryPrice    ErrorCode = 111
	ErrCodeInvalidTimeframe     ErrorCode = 112
	ErrCodeUnknownScorer        ErrorCode = 113
	ErrCodeVersionMismatch      ErrorCode = 114

	// Data errors (200-299)
	ErrCodeInvalidCandle      ErrorCode = 200
	ErrCodeNonMonotonicTime   ErrorCode = 201
	ErrCodeNegativeValue      ErrorCode = 202
	ErrCodeInvalidPriceRange  ErrorCode = 203
	ErrCodeEmptySeries        ErrorCode = 204
	ErrCodeInvalidObservation ErrorCode = 205
	ErrCodeDataSourceFailed   ErrorCode = 206
	ErrCodeNoDataFound        ErrorCode = 207

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorCalculation   ErrorCode = 302
	ErrCodeColumnNotFound         ErrorCode = 303
)

// Category returns the family an error code belongs to.
func (c ErrorCode) Category() Category {
	switch {
	case c >= 100 && c < 200:
		return CategoryConfiguration
	case c >= 200 && c < 300:
		return CategoryData
	case c >= 300 && c < 400:
		return CategoryIndicator
	default:
		return CategoryUnknown
	}
}
