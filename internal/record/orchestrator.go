// Package record implements the aggregate save orchestrator: the creation
// path that persists a draft case in one payload and the edit path that saves
// the classification section and each child collection independently.
package record

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"caseform/internal/domain"
	"caseform/internal/form"
	"caseform/internal/reconcile"
	"caseform/internal/record/metrics"
	"caseform/internal/remote"
	"caseform/pkg/sentinel"
)

// requiredFields are the classification fields a case cannot be submitted
// without.
var requiredFields = []form.Field{
	form.FieldClientType,
	form.FieldDepartment,
	form.FieldCity,
	form.FieldJurisdiction,
	form.FieldProcessType,
	form.FieldJudicialOffice,
	form.FieldCaseNumber,
}

// Collections groups the four child-entity reconcilers of one case form.
type Collections struct {
	Parties     *reconcile.Collection[domain.ProceduralPart]
	Interveners *reconcile.Collection[domain.Intervener]
	Payments    *reconcile.Collection[domain.Payment]
	Documents   *reconcile.Collection[domain.Document]
}

// Config wires one orchestrator.
type Config struct {
	State       *form.State
	Records     remote.RecordService
	Actions     remote.ActionService
	Collections Collections
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	// Now is the clock used for the creation date. Defaults to time.Now.
	Now func() time.Time
}

// Orchestrator coordinates aggregate saves. Independent sections may save
// concurrently; the orchestrator only guards its own identity and sub-form
// state.
type Orchestrator struct {
	state   *form.State
	records remote.RecordService
	actions remote.ActionService
	cols    Collections
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time

	mu       sync.Mutex
	caseID   domain.CaseID
	bonus    domain.SuccessBonus
	draftDoc domain.Document
}

func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		state:   cfg.State,
		records: cfg.Records,
		actions: cfg.Actions,
		cols:    cfg.Collections,
		logger:  cfg.Logger.With(slog.String("component", "record_orchestrator")),
		metrics: cfg.Metrics,
		tracer:  otel.Tracer("caseform/internal/record"),
		now:     cfg.Now,
	}
}

// CaseID returns the bound case identity, empty while the case is a draft.
func (o *Orchestrator) CaseID() domain.CaseID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.caseID
}

// BindCase attaches an already-persisted identity, switching the orchestrator
// to the edit path. Used when hydrating a loaded record.
func (o *Orchestrator) BindCase(id domain.CaseID) {
	o.mu.Lock()
	o.caseID = id
	o.mu.Unlock()
}

// SetBonus replaces the singleton success-bonus sub-record.
func (o *Orchestrator) SetBonus(bonus domain.SuccessBonus) {
	o.mu.Lock()
	o.bonus = bonus
	o.mu.Unlock()
}

func (o *Orchestrator) Bonus() domain.SuccessBonus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bonus
}

// SetDraftDocument holds the in-progress document sub-form values that were
// not yet confirmed into the collection.
func (o *Orchestrator) SetDraftDocument(doc domain.Document) {
	o.mu.Lock()
	o.draftDoc = doc
	o.mu.Unlock()
}

// ConfirmDraftDocument moves the sub-form values into the document collection.
func (o *Orchestrator) ConfirmDraftDocument() error {
	o.mu.Lock()
	doc := o.draftDoc
	o.mu.Unlock()

	if doc.IsEmpty() {
		return &ValidationError{Fields: map[form.Field]string{"document": "empty"}}
	}
	if !doc.IsComplete() {
		return &ValidationError{Fields: map[form.Field]string{"document": "category and type are required"}}
	}
	o.cols.Documents.Add(doc)
	o.mu.Lock()
	o.draftDoc = domain.Document{}
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) validate(snap form.Snapshot) error {
	missing := make(map[form.Field]string)
	for _, field := range requiredFields {
		if snap[field] == "" {
			missing[field] = "required"
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

func generalFromSnapshot(snap form.Snapshot) domain.GeneralInfo {
	return domain.GeneralInfo{
		ClientType:     snap[form.FieldClientType],
		Department:     snap[form.FieldDepartment],
		City:           snap[form.FieldCity],
		Country:        snap[form.FieldCountry],
		PersonType:     snap[form.FieldPersonType],
		Jurisdiction:   snap[form.FieldJurisdiction],
		ProcessType:    snap[form.FieldProcessType],
		JudicialOffice: snap[form.FieldJudicialOffice],
		CaseNumber:     snap[form.FieldCaseNumber],
	}
}

// CreateCase assembles one payload from the form state and the entire
// contents of every child collection and issues a single creation request.
// On success the case becomes persisted and every local collection is cleared;
// on failure nothing is mutated.
func (o *Orchestrator) CreateCase(ctx context.Context) (*domain.Record, error) {
	ctx, span := o.tracer.Start(ctx, "record.create")
	defer span.End()
	start := o.now()

	if !o.CaseID().IsZero() {
		return nil, fmt.Errorf("case already persisted: %w", sentinel.ErrInvalidState)
	}

	snap := o.state.Snapshot()
	if err := o.validate(snap); err != nil {
		o.metrics.ObserveSave("create", "validation_error", o.now().Sub(start))
		return nil, err
	}

	documents := o.cols.Documents.Items()

	// An in-progress document sub-form with values is promoted into the
	// payload at submission time rather than silently discarded.
	o.mu.Lock()
	draft := o.draftDoc
	o.mu.Unlock()
	if !draft.IsEmpty() {
		if !draft.IsComplete() {
			o.metrics.ObserveSave("create", "validation_error", o.now().Sub(start))
			return nil, &ValidationError{Fields: map[form.Field]string{"document": "category and type are required"}}
		}
		draft.Ref = domain.NewTemporaryRef()
		documents = append(documents, draft)
	}
	for _, doc := range documents {
		if !doc.IsComplete() {
			o.metrics.ObserveSave("create", "validation_error", o.now().Sub(start))
			return nil, &ValidationError{Fields: map[form.Field]string{"document": "category and type are required"}}
		}
	}

	// The remote service needs at least one document to derive its internal
	// case code, so a caseless payload gets a synthesized, system-marked one.
	if len(documents) == 0 {
		documents = append(documents, domain.PlaceholderDocument())
		o.metrics.IncrementPlaceholderDocuments()
	}

	payload := remote.CreateRecordPayload{
		General:      generalFromSnapshot(snap),
		CreationDate: o.now(),
		Parts:        o.cols.Parties.Items(),
		Interveners:  o.cols.Interveners.Items(),
		Payments:     o.cols.Payments.Items(),
		Bonus:        o.Bonus(),
		Documents:    documents,
	}

	rec, err := o.records.Create(ctx, payload)
	if err != nil {
		span.RecordError(err)
		o.metrics.ObserveSave("create", "error", o.now().Sub(start))
		o.logger.Error("case creation failed", slog.String("error", err.Error()))
		return nil, err
	}
	span.SetAttributes(attribute.String("case.id", string(rec.ID)))

	o.mu.Lock()
	o.caseID = rec.ID
	o.draftDoc = domain.Document{}
	o.mu.Unlock()
	o.cols.Parties.Clear()
	o.cols.Interveners.Clear()
	o.cols.Payments.Clear()
	o.cols.Documents.Clear()

	o.metrics.ObserveSave("create", "success", o.now().Sub(start))
	o.logger.Info("case created", slog.String("case_id", string(rec.ID)))
	return rec, nil
}

// SaveGeneral saves the classification-field section of a persisted case. It
// never touches any child collection, so a rejected general-information update
// is never conflated with a failed child-entity save.
func (o *Orchestrator) SaveGeneral(ctx context.Context) (*domain.Record, error) {
	ctx, span := o.tracer.Start(ctx, "record.save_general")
	defer span.End()
	start := o.now()

	id := o.CaseID()
	if id.IsZero() {
		return nil, fmt.Errorf("case not persisted yet: %w", sentinel.ErrInvalidState)
	}

	snap := o.state.Snapshot()
	if err := o.validate(snap); err != nil {
		o.metrics.ObserveSave("general", "validation_error", o.now().Sub(start))
		return nil, err
	}

	rec, err := o.records.UpdateGeneral(ctx, id, generalFromSnapshot(snap))
	if err != nil {
		span.RecordError(err)
		o.metrics.ObserveSave("general", "error", o.now().Sub(start))
		o.logger.Error("general-information save failed",
			slog.String("case_id", string(id)),
			slog.String("error", err.Error()))
		return nil, err
	}

	o.metrics.ObserveSave("general", "success", o.now().Sub(start))
	return rec, nil
}

// SaveAction logs a procedural action with a target status. The remote
// service owns transition legality; an illegal transition surfaces as
// remote.ErrIllegalTransition.
func (o *Orchestrator) SaveAction(ctx context.Context, action domain.ProceduralAction) error {
	ctx, span := o.tracer.Start(ctx, "record.save_action",
		trace.WithAttributes(attribute.String("action.target_status", action.TargetStatus)))
	defer span.End()
	start := o.now()

	id := o.CaseID()
	if id.IsZero() {
		return fmt.Errorf("case not persisted yet: %w", sentinel.ErrInvalidState)
	}

	if err := o.actions.Create(ctx, id, action); err != nil {
		span.RecordError(err)
		o.metrics.ObserveSave("action", "error", o.now().Sub(start))
		o.logger.Warn("procedural action rejected",
			slog.String("case_id", string(id)),
			slog.String("target_status", action.TargetStatus),
			slog.String("error", err.Error()))
		return err
	}

	o.metrics.ObserveSave("action", "success", o.now().Sub(start))
	return nil
}

// CommitSection runs commitAll for one child collection of a persisted case.
type CommitSection string

const (
	SectionParties     CommitSection = "parties"
	SectionInterveners CommitSection = "interveners"
	SectionPayments    CommitSection = "payments"
	SectionDocuments   CommitSection = "documents"
)

// Commit persists the drafts of one section. Sections commit independently
// and report independently.
func (o *Orchestrator) Commit(ctx context.Context, section CommitSection) (reconcile.Outcome, error) {
	id := o.CaseID()
	if id.IsZero() {
		return reconcile.Outcome{}, fmt.Errorf("case not persisted yet: %w", sentinel.ErrInvalidState)
	}

	switch section {
	case SectionParties:
		return o.cols.Parties.CommitAll(ctx, id), nil
	case SectionInterveners:
		return o.cols.Interveners.CommitAll(ctx, id), nil
	case SectionPayments:
		return o.cols.Payments.CommitAll(ctx, id), nil
	case SectionDocuments:
		return o.cols.Documents.CommitAll(ctx, id), nil
	default:
		return reconcile.Outcome{}, fmt.Errorf("unknown section %q: %w", section, sentinel.ErrInvalidState)
	}
}
