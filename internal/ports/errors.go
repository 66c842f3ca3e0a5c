package ports

import "errors"

// Standard application-level errors.
// Adapters and the engine wrap underlying failures with these so callers can use errors.Is.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Configuration causes (wrapped together with ErrConfigurationError)
	ErrEmptyRange       = errors.New("no bars remain after date filtering")
	ErrInvalidBars      = errors.New("bar table is invalid")
	ErrUnknownStrategy  = errors.New("unknown strategy")
	ErrSignalMismatch   = errors.New("signal series does not match bar series")
	ErrInvalidStockCode = errors.New("invalid stock code")

	// Broker rejections (non-fatal, the order is a no-op for that bar)
	ErrLotSize           = errors.New("order size rounds to zero lots")
	ErrPriceLimit        = errors.New("price at or beyond the daily limit band")
	ErrInsufficientFunds = errors.New("insufficient funds for operation")
	ErrPositionNotFound  = errors.New("no open position to sell")
	ErrPositionExists    = errors.New("position already open")

	// Storage Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
	ErrUpdateFailed   = errors.New("database update failed")
	ErrDeleteFailed   = errors.New("database delete failed")
	ErrStorageRead    = errors.New("bar storage read failed")
	ErrStorageWrite   = errors.New("bar storage write failed")
)
