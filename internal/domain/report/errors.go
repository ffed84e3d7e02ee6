package report

import "errors"

var (
	// ErrNotFound means the report id does not resolve.
	ErrNotFound = errors.New("report not found")

	// ErrInvalidState means the requested transition is not legal from the
	// report's current status. The caller should re-fetch and reassess.
	ErrInvalidState = errors.New("report is not in a valid state for this operation")

	// ErrNotAssigned means the acting doctor is not the report's assigned
	// reviewer.
	ErrNotAssigned = errors.New("caller is not the assigned doctor")
)
