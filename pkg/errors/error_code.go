package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidConfiguration ErrorCode = 100
	ErrCodeInvalidPeriod        ErrorCode = 101
	ErrCodeInvalidCommission    ErrorCode = 102
	ErrCodeInvalidStake         ErrorCode = 103
	ErrCodeInvalidInitialCash   ErrorCode = 104
	ErrCodeMissingSymbols       ErrorCode = 105
	ErrCodeMissingAPIKey        ErrorCode = 106

	// Data errors (200-299)
	ErrCodeMalformedBar     ErrorCode = 200
	ErrCodeNonMonotonicData ErrorCode = 201
	ErrCodeNoDataFound      ErrorCode = 202
	ErrCodeDataReadFailed   ErrorCode = 203

	// Trading errors (500-599)
	ErrCodeInsufficientFunds ErrorCode = 500
	ErrCodeInvalidOrder      ErrorCode = 501

	// Backtest errors (600-699)
	ErrCodeBacktestNotInitialized ErrorCode = 600
	ErrCodeBacktestNoDataPaths    ErrorCode = 601
	ErrCodeJournalFailed          ErrorCode = 602
	ErrCodeResultsWriteFailed     ErrorCode = 603

	// Live sink errors (700-799)
	ErrCodeLiveSinkRejected    ErrorCode = 700
	ErrCodeLiveSinkUnavailable ErrorCode = 701
)
