package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Caches and backend adapters return
// these (optionally wrapped) so services can translate them into domain errors.
//
// - ErrNotFound: no entry exists for the key
// - ErrUnavailable: the store or backend could not be reached
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
