package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidStrength      ErrorCode = 102
	ErrCodeInvalidPeriod        ErrorCode = 103
	ErrCodeInvalidThreshold     ErrorCode = 104
	ErrCodeInvalidInterval      ErrorCode = 105
	ErrCodeInsufficientData     ErrorCode = 106
	ErrCodeInvalidType          ErrorCode = 107
	ErrCodeMissingParameter     ErrorCode = 108

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeDataParseFailed       ErrorCode = 203

	// Strategy errors (300-399)
	ErrCodeStrategyConfigError ErrorCode = 300
	ErrCodeUnsupportedStrategy ErrorCode = 301

	// Backtest errors (400-499)
	ErrCodeBacktestConfigError  ErrorCode = 400
	ErrCodeInsufficientCandles  ErrorCode = 401
	ErrCodeUnsupportedMetric    ErrorCode = 402
	ErrCodeInsufficientTrades   ErrorCode = 403

	// Provider errors (500-599)
	ErrCodeProviderFetchFailed ErrorCode = 500
	ErrCodeInvalidProvider     ErrorCode = 501
)
