package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInsufficientData     ErrorCode = 102
	ErrCodeInvalidProposal      ErrorCode = 103
	ErrCodeInvalidQuantity      ErrorCode = 104
	ErrCodeInvalidPrice         ErrorCode = 105
	ErrCodeSchemaVersion        ErrorCode = 106

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound      ErrorCode = 200
	ErrCodeProviderFailed    ErrorCode = 201
	ErrCodeOutOfOrderBar     ErrorCode = 202
	ErrCodeDuplicateBar      ErrorCode = 203
	ErrCodeUnknownInstrument ErrorCode = 204
	ErrCodeDataParseFailed   ErrorCode = 205
	ErrCodeCacheFailed       ErrorCode = 206

	// Pattern errors (300-399)
	ErrCodeUnknownFormation ErrorCode = 300
	ErrCodeDetectorExists   ErrorCode = 301
	ErrCodeDetectionFailed  ErrorCode = 302
	ErrCodeValidationFailed ErrorCode = 303

	// Decision source errors (400-499)
	ErrCodeDecisionFailed    ErrorCode = 400
	ErrCodeDecisionParse     ErrorCode = 401
	ErrCodeDecisionExhausted ErrorCode = 402

	// Ledger errors (500-599): the invariant-violation family, always fatal.
	ErrCodeDoubleOpen     ErrorCode = 500
	ErrCodeNoOpenPosition ErrorCode = 501
	ErrCodeNegativeCash   ErrorCode = 502
	ErrCodeLedgerDrift    ErrorCode = 503

	// Simulator errors (600-699)
	ErrCodeSimulatorConfig ErrorCode = 600
	ErrCodeEmptyWatchlist  ErrorCode = 601
	ErrCodeNoTradingDays   ErrorCode = 602

	// Journal errors (700-799)
	ErrCodeJournalInit   ErrorCode = 700
	ErrCodeJournalWrite  ErrorCode = 701
	ErrCodeJournalExport ErrorCode = 702
)

// invariantCodes is the set of codes that indicate a logic bug in the caller
// rather than a recoverable runtime condition.
var invariantCodes = map[ErrorCode]bool{
	ErrCodeDoubleOpen:     true,
	ErrCodeNoOpenPosition: true,
	ErrCodeNegativeCash:   true,
	ErrCodeLedgerDrift:    true,
}
