package ledger

import "errors"

// Domain errors. HTTP handlers translate these into status codes.
var (
	// ErrNotFound means the referenced account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrInvalidAmount means a monetary value was zero or otherwise
	// malformed. Amounts are signed integer cents, nothing else.
	ErrInvalidAmount = errors.New("amount must be a non-zero amount of cents")
)
