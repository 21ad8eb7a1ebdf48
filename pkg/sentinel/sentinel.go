package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches, and remote clients
// return these (optionally wrapped) so services can translate them into domain
// errors at the boundary.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist on the remote service or in a store
// - ErrConflict: concurrent modification detected
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: collaborator temporarily unreachable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
