// Package session assembles one live case-form instance: the state container,
// cascade resolver, child-entity reconcilers, save orchestrator and hydration
// controller, wired against the remote collaborator services.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"caseform/internal/audit"
	"caseform/internal/cascade"
	"caseform/internal/catalog"
	"caseform/internal/domain"
	"caseform/internal/form"
	"caseform/internal/hydrate"
	"caseform/internal/reconcile"
	"caseform/internal/record"
	"caseform/internal/record/metrics"
	"caseform/internal/remote"
)

// paymentClient adapts the payment service to the reconciler client shape:
// every payload carries the singleton success-bonus fields, read at call time
// so late bonus edits still reach the wire.
type paymentClient struct {
	svc   remote.PaymentService
	bonus func() domain.SuccessBonus
}

func (c paymentClient) Create(ctx context.Context, caseID domain.CaseID, p domain.Payment) (string, error) {
	return c.svc.Create(ctx, caseID, p, c.bonus())
}

func (c paymentClient) Update(ctx context.Context, remoteID string, p domain.Payment) error {
	return c.svc.Update(ctx, remoteID, p, c.bonus())
}

func (c paymentClient) Delete(ctx context.Context, remoteID string) error {
	return c.svc.Delete(ctx, remoteID)
}

// documentClient adapts the document service: a pending attachment staged for
// the document's temporary identity is consumed by the create call.
type documentClient struct {
	svc   remote.DocumentService
	files *attachments
}

func (c documentClient) Create(ctx context.Context, caseID domain.CaseID, doc domain.Document) (string, error) {
	return c.svc.Create(ctx, caseID, doc, c.files.take(doc.Ref.LocalID))
}

func (c documentClient) Update(ctx context.Context, remoteID string, doc domain.Document) error {
	return c.svc.Update(ctx, remoteID, doc)
}

func (c documentClient) Delete(ctx context.Context, remoteID string) error {
	return c.svc.Delete(ctx, remoteID)
}

// attachments stages uploaded files keyed by the temporary identity of their
// draft document.
type attachments struct {
	mu    sync.Mutex
	files map[uuid.UUID]io.Reader
}

func newAttachments() *attachments {
	return &attachments{files: make(map[uuid.UUID]io.Reader)}
}

func (a *attachments) put(id uuid.UUID, file io.Reader) {
	a.mu.Lock()
	a.files[id] = file
	a.mu.Unlock()
}

func (a *attachments) take(id uuid.UUID) io.Reader {
	a.mu.Lock()
	defer a.mu.Unlock()
	file := a.files[id]
	delete(a.files, id)
	return file
}

// Session is one case form. Sections save independently, so methods may be
// called concurrently; each component guards its own state.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	State        *form.State
	Collections  record.Collections
	Orchestrator *record.Orchestrator
	Hydration    *hydrate.Controller

	files   *attachments
	auditor *audit.Publisher
	logger  *slog.Logger

	mu      sync.Mutex
	notices []cascade.Notice
}

// Deps are the shared collaborators every session is built on.
type Deps struct {
	Services remote.Services
	Catalog  *catalog.Cache
	Audit    *audit.Publisher
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

// New wires a fresh session.
func New(deps Deps) *Session {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Session{
		ID:        uuid.New(),
		CreatedAt: deps.Now(),
		State:     form.NewState(),
		files:     newAttachments(),
		auditor:   deps.Audit,
	}
	s.logger = deps.Logger.With(slog.String("session_id", s.ID.String()))

	// The orchestrator and hydration controller are late-bound: payment
	// payloads read the bonus through the orchestrator and collection commits
	// refresh through the controller.
	refresh := func(ctx context.Context) error {
		_, err := s.Hydration.Refresh(ctx)
		return err
	}
	bonus := func() domain.SuccessBonus {
		return s.Orchestrator.Bonus()
	}

	s.Collections = record.Collections{
		Parties: reconcile.NewCollection(reconcile.Config[domain.ProceduralPart]{
			Name:   "parties",
			Client: deps.Services.Parties,
			Ref:    func(p domain.ProceduralPart) domain.EntityRef { return p.Ref },
			WithRef: func(p domain.ProceduralPart, ref domain.EntityRef) domain.ProceduralPart {
				p.Ref = ref
				return p
			},
			Match:   domain.ProceduralPart.SameContent,
			Refresh: refresh,
			Logger:  s.logger,
		}),
		Interveners: reconcile.NewCollection(reconcile.Config[domain.Intervener]{
			Name:   "interveners",
			Client: deps.Services.Interveners,
			Ref:    func(i domain.Intervener) domain.EntityRef { return i.Ref },
			WithRef: func(i domain.Intervener, ref domain.EntityRef) domain.Intervener {
				i.Ref = ref
				return i
			},
			Match:   domain.Intervener.SameContent,
			Refresh: refresh,
			Logger:  s.logger,
		}),
		Payments: reconcile.NewCollection(reconcile.Config[domain.Payment]{
			Name:   "payments",
			Client: paymentClient{svc: deps.Services.Payments, bonus: bonus},
			Ref:    func(p domain.Payment) domain.EntityRef { return p.Ref },
			WithRef: func(p domain.Payment, ref domain.EntityRef) domain.Payment {
				p.Ref = ref
				return p
			},
			Match:   domain.Payment.SameContent,
			Refresh: refresh,
			Logger:  s.logger,
		}),
		Documents: reconcile.NewCollection(reconcile.Config[domain.Document]{
			Name:   "documents",
			Client: documentClient{svc: deps.Services.Documents, files: s.files},
			Ref:    func(d domain.Document) domain.EntityRef { return d.Ref },
			WithRef: func(d domain.Document, ref domain.EntityRef) domain.Document {
				d.Ref = ref
				return d
			},
			Match:   domain.Document.SameContent,
			Refresh: refresh,
			Logger:  s.logger,
		}),
	}

	s.Orchestrator = record.NewOrchestrator(record.Config{
		State:       s.State,
		Records:     deps.Services.Records,
		Actions:     deps.Services.Actions,
		Collections: s.Collections,
		Logger:      s.logger,
		Metrics:     deps.Metrics,
		Now:         deps.Now,
	})

	s.Hydration = hydrate.NewController(hydrate.Config{
		State:        s.State,
		Records:      deps.Services.Records,
		Catalog:      deps.Catalog,
		Collections:  s.Collections,
		Orchestrator: s.Orchestrator,
		Logger:       s.logger,
	})

	s.State.Subscribe(func(field form.Field, _, value string) {
		resolver := s.Hydration.Resolver()
		if resolver == nil {
			return
		}
		eff := resolver.React(s.State.Snapshot(), field, value)
		s.mu.Lock()
		s.notices = append(s.notices, eff.Notices...)
		s.mu.Unlock()
		cascade.Apply(s.State, eff)
	})

	return s
}

// Notices drains the cascade notices accumulated since the last call.
func (s *Session) Notices() []cascade.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	notices := s.notices
	s.notices = nil
	return notices
}

// Attach stages a file for a draft document's create call.
func (s *Session) Attach(ref domain.EntityRef, file io.Reader) {
	s.files.put(ref.LocalID, file)
}

// Prepare readies a creation-mode session. A catalog outage degrades the
// session to manual entry instead of failing the open.
func (s *Session) Prepare(ctx context.Context) {
	s.Hydration.Prepare(ctx)
}

// Hydrate loads a persisted case into the session.
func (s *Session) Hydrate(ctx context.Context, id domain.CaseID) (*domain.Record, error) {
	rec, err := s.Hydration.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, audit.Event{Action: audit.ActionCaseHydrated, CaseID: rec.ID})
	return rec, nil
}

// CreateCase runs the creation path.
func (s *Session) CreateCase(ctx context.Context) (*domain.Record, error) {
	rec, err := s.Orchestrator.CreateCase(ctx)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, audit.Event{Action: audit.ActionCaseCreated, CaseID: rec.ID})
	return rec, nil
}

// SaveGeneral saves the classification section and installs the returned
// authoritative copy.
func (s *Session) SaveGeneral(ctx context.Context) (*domain.Record, error) {
	rec, err := s.Orchestrator.SaveGeneral(ctx)
	if err != nil {
		return nil, err
	}
	s.Hydration.Apply(rec)
	s.emit(ctx, audit.Event{Action: audit.ActionGeneralSaved, CaseID: rec.ID})
	return rec, nil
}

// Commit persists the drafts of one section.
func (s *Session) Commit(ctx context.Context, section record.CommitSection) (reconcile.Outcome, error) {
	outcome, err := s.Orchestrator.Commit(ctx, section)
	if err != nil {
		return outcome, err
	}
	s.emit(ctx, audit.Event{
		Action: audit.ActionSectionCommitted,
		CaseID: s.Orchestrator.CaseID(),
		Detail: fmt.Sprintf("section=%s succeeded=%d failed=%d", section, outcome.Succeeded(), outcome.Failed()),
	})
	return outcome, nil
}

// SaveAction logs a procedural action with a target status.
func (s *Session) SaveAction(ctx context.Context, action domain.ProceduralAction) error {
	if err := s.Orchestrator.SaveAction(ctx, action); err != nil {
		return err
	}
	s.emit(ctx, audit.Event{
		Action: audit.ActionStatusRequested,
		CaseID: s.Orchestrator.CaseID(),
		Detail: "target_status=" + action.TargetStatus,
	})
	if _, err := s.Hydration.Refresh(ctx); err != nil {
		s.logger.Warn("refresh after action failed", slog.String("error", err.Error()))
	}
	return nil
}

func (s *Session) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.SessionID = s.ID.String()
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.Warn("audit emit failed", slog.String("error", err.Error()))
	}
}
