package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and the audit sink return
// these (optionally wrapped) so callers can tell an outage from a bug.
//
// - ErrUnavailable: backing service or resource temporarily unavailable
// - ErrClosed: component already shut down
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrUnavailable = errors.New("unavailable")
	ErrClosed      = errors.New("closed")
)
