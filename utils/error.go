package utils

import "errors"

// Error kinds shared across the core. Callers classify failures with
// errors.Is; everything is wrapped with fmt.Errorf("...: %w", Err...).
var (
	// ErrorRecordNotFound: entity absent or owned by a different tenant.
	ErrorRecordNotFound = errors.New("record not found")

	// ErrorForbidden: missing tenant context, disabled module, or a write
	// into a locked fiscal year.
	ErrorForbidden = errors.New("forbidden")

	// ErrorInvalidState: document lifecycle transition attempted from the
	// wrong state.
	ErrorInvalidState = errors.New("invalid document state")

	// ErrorUnbalanced: journal debits and credits differ beyond tolerance.
	ErrorUnbalanced = errors.New("journal entry is not balanced")

	// ErrorInvalidRange: date outside the fiscal year, or an invalid range.
	ErrorInvalidRange = errors.New("date out of range")

	// ErrorInsufficientStock: posting would drive a stock balance negative.
	ErrorInsufficientStock = errors.New("insufficient stock")

	// ErrorConflict: duplicate post, duplicate number, or a concurrent
	// mutation detected.
	ErrorConflict = errors.New("conflict")
)

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
