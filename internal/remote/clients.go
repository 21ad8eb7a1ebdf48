package remote

//go:generate mockgen -source=clients.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"io"
	"time"

	"caseform/internal/domain"
)

// The form engine consumes these collaborator services; it never implements
// them. Persistence and transport mechanics live entirely behind the remote
// service. Implementations: HTTP (production) and Memory (dev/tests).

// CreateRecordPayload is the single payload assembled on the creation path:
// case fields plus the entire contents of every child collection.
type CreateRecordPayload struct {
	General      domain.GeneralInfo
	CreationDate time.Time
	Parts        []domain.ProceduralPart
	Interveners  []domain.Intervener
	Payments     []domain.Payment
	Bonus        domain.SuccessBonus
	Documents    []domain.Document
}

// RecordService is the aggregate-root collaborator.
type RecordService interface {
	GetByID(ctx context.Context, id domain.CaseID) (*domain.Record, error)
	Create(ctx context.Context, payload CreateRecordPayload) (*domain.Record, error)
	// UpdateGeneral saves the classification section only; it must not touch
	// any child collection.
	UpdateGeneral(ctx context.Context, id domain.CaseID, fields domain.GeneralInfo) (*domain.Record, error)
}

// PartyService persists procedural parts, keyed by stable identifier.
type PartyService interface {
	Create(ctx context.Context, caseID domain.CaseID, part domain.ProceduralPart) (string, error)
	Update(ctx context.Context, remoteID string, part domain.ProceduralPart) error
	Delete(ctx context.Context, remoteID string) error
}

// IntervenerService persists interveners, keyed by stable identifier.
type IntervenerService interface {
	Create(ctx context.Context, caseID domain.CaseID, intervener domain.Intervener) (string, error)
	Update(ctx context.Context, remoteID string, intervener domain.Intervener) error
	Delete(ctx context.Context, remoteID string) error
}

// PaymentService persists payments. Every payload carries the singleton
// success-bonus fields alongside the specific payment value.
type PaymentService interface {
	Create(ctx context.Context, caseID domain.CaseID, payment domain.Payment, bonus domain.SuccessBonus) (string, error)
	Update(ctx context.Context, remoteID string, payment domain.Payment, bonus domain.SuccessBonus) error
	Delete(ctx context.Context, remoteID string) error
}

// DocumentService persists documents, optionally with a binary attachment.
type DocumentService interface {
	Create(ctx context.Context, caseID domain.CaseID, doc domain.Document, file io.Reader) (string, error)
	Update(ctx context.Context, remoteID string, doc domain.Document) error
	Delete(ctx context.Context, remoteID string) error
}

// ActionService logs procedural actions. The remote side rejects a target
// status equal to the current one or otherwise illegal.
type ActionService interface {
	Create(ctx context.Context, caseID domain.CaseID, action domain.ProceduralAction) error
}

// Services bundles every collaborator one form session needs.
type Services struct {
	Records     RecordService
	Parties     PartyService
	Interveners IntervenerService
	Payments    PaymentService
	Documents   DocumentService
	Actions     ActionService
}
