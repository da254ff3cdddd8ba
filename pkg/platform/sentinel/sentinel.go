package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services and handlers can translate them into responses.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in the store
// - ErrConflict: a uniqueness constraint would be violated
//
// Provider-side failures (bad input, timeouts, malformed responses) have
// their own typed errors in internal/provider.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
