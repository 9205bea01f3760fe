package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into outcomes and domain errors.
//
// - ErrNotFound: no record for the requested identifier
// - ErrConflict: a unique identifier is already taken
// - ErrUnavailable: backing service or resource temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
