package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidCapital       ErrorCode = 102
	ErrCodeInvalidFeeRate       ErrorCode = 103
	ErrCodeInvalidSlippageRate  ErrorCode = 104
	ErrCodeEmptyPriceSeries     ErrorCode = 105
	ErrCodeUnorderedPriceSeries ErrorCode = 106

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeSignalFileFailed      ErrorCode = 203

	// Backtest errors (600-699)
	ErrCodeStateNotInitialized ErrorCode = 600
	ErrCodeStoreFailed         ErrorCode = 601
	ErrCodeExportFailed        ErrorCode = 602
)
