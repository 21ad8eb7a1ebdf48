package domain

import "github.com/google/uuid"

// IdentityKind distinguishes entities that exist only in memory from entities
// the remote service has assigned a stable identifier to. All reconciliation
// logic switches on this tag, never on the shape of an ID string.
type IdentityKind int

const (
	// KindTemporary marks a draft entity known only to this process.
	KindTemporary IdentityKind = iota
	// KindPersisted marks an entity addressable on the remote service.
	KindPersisted
)

func (k IdentityKind) String() string {
	if k == KindPersisted {
		return "persisted"
	}
	return "temporary"
}

// EntityRef is the tagged identity union Temporary{localID} | Persisted{remoteID}.
// Temporary local IDs are ephemeral and never leave the process.
type EntityRef struct {
	Kind     IdentityKind
	LocalID  uuid.UUID
	RemoteID string
}

// NewTemporaryRef mints a draft identity.
func NewTemporaryRef() EntityRef {
	return EntityRef{Kind: KindTemporary, LocalID: uuid.New()}
}

// PersistedRef wraps a server-assigned identifier.
func PersistedRef(remoteID string) EntityRef {
	return EntityRef{Kind: KindPersisted, RemoteID: remoteID}
}

// IsPersisted reports whether the entity lives on the remote service.
func (r EntityRef) IsPersisted() bool { return r.Kind == KindPersisted }
