// Package audit captures the key actions of a form session: hydrations,
// saves, commits and status changes. Events are transport-agnostic so stores
// and sinks can fan out.
package audit

import (
	"context"
	"time"

	"caseform/internal/domain"
)

// Action names one auditable operation.
type Action string

const (
	ActionSessionCreated   Action = "session_created"
	ActionSessionClosed    Action = "session_closed"
	ActionCaseHydrated     Action = "case_hydrated"
	ActionCaseCreated      Action = "case_created"
	ActionGeneralSaved     Action = "general_saved"
	ActionSectionCommitted Action = "section_committed"
	ActionStatusRequested  Action = "status_requested"
)

// Event is emitted from domain logic. CaseID is empty for draft-case events;
// Detail carries action-specific context such as the committed section or the
// batch outcome.
type Event struct {
	Action    Action
	Timestamp time.Time
	CaseID    domain.CaseID
	SessionID string
	Actor     string
	Detail    string
	RequestID string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCase(ctx context.Context, caseID domain.CaseID) ([]Event, error)
}

// Sink receives a copy of every emitted event. Sinks are best-effort
// fan-outs (message brokers, log shippers); failures do not block the store.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
