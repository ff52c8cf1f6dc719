package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument  = 1000
	ErrCodeInvalidJSON      = 1001
	ErrCodeRequestTooLarge  = 1002
	ErrCodeMissingRequired  = 1009
	ErrCodeEmptyFile        = 1015
	ErrCodeInvalidMediaType = 1016

	// Domain state (2xxx)
	ErrCodeRecordNotFound     = 2001
	ErrCodeNotAnchored        = 2005
	ErrCodeAnchorUnconfirmed  = 2006
	ErrCodeRevokeUnauthorized = 2007
	ErrCodeConflict           = 2102

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal        = 4001
	ErrCodeStoreFailure    = 4002
	ErrCodeLedgerFailure   = 4006
	ErrCodeReconcileFailed = 4007
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeRecordNotFound
	case 409:
		return ErrCodeConflict
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
