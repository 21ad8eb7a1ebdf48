// Package hydrate drives the Unloaded → Loading → Seeding → Ready lifecycle
// of a form session that edits a persisted case.
package hydrate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"caseform/internal/cascade"
	"caseform/internal/catalog"
	"caseform/internal/domain"
	"caseform/internal/form"
	"caseform/internal/record"
	"caseform/internal/remote"
)

// Phase is the hydration state, keyed by case identity. A new identity
// restarts the machine.
type Phase int

const (
	PhaseUnloaded Phase = iota
	PhaseLoading
	PhaseSeeding
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseSeeding:
		return "seeding"
	case PhaseReady:
		return "ready"
	default:
		return "unloaded"
	}
}

// Config wires one controller.
type Config struct {
	State        *form.State
	Records      remote.RecordService
	Catalog      *catalog.Cache
	Collections  record.Collections
	Orchestrator *record.Orchestrator
	Logger       *slog.Logger
}

// Controller seeds form state and child collections from a persisted record.
// It owns the cascade resolver: hydration needs the resolver in Hydrating mode
// while seeding, and a fresh case identity needs a fresh resolver.
type Controller struct {
	cfg Config

	mu              sync.Mutex
	phase           Phase
	caseID          domain.CaseID
	resolver        *cascade.Resolver
	current         *domain.Record
	catalogDegraded bool
}

func NewController(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Logger = cfg.Logger.With(slog.String("component", "hydration_controller"))
	return &Controller{cfg: cfg, phase: PhaseUnloaded}
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Resolver returns the active cascade resolver, nil until Prepare or Load ran.
func (c *Controller) Resolver() *cascade.Resolver {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolver
}

// Current returns the last loaded record, nil for a creation-mode session.
func (c *Controller) Current() *domain.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Prepare readies a creation-mode session: the catalog is loaded and an
// Interactive resolver is installed. No record is involved. A catalog outage
// does not block creation: the resolver runs over an empty catalog, every
// lookup misses and dependent fields fall back to manual entry. The degraded
// state is reported through CatalogDegraded.
func (c *Controller) Prepare(ctx context.Context) {
	cat, err := c.cfg.Catalog.Load(ctx)
	degraded := err != nil
	if degraded {
		c.cfg.Logger.Warn("catalog unavailable, dependent fields fall back to manual entry",
			slog.String("error", err.Error()))
		cat = catalog.New(catalog.Data{})
	}
	c.mu.Lock()
	if c.resolver == nil {
		c.resolver = cascade.New(cat)
	}
	c.catalogDegraded = degraded
	c.mu.Unlock()
}

// CatalogDegraded reports whether the session runs without reference data
// because the catalog could not be loaded.
func (c *Controller) CatalogDegraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalogDegraded
}

// Load fetches a record and seeds the whole session from it. Calling it again
// with the identity already loaded (or loading) is a no-op returning the
// current record; this guard is strict identity equality, so re-renders never
// trigger redundant fetches. A different identity restarts the machine.
func (c *Controller) Load(ctx context.Context, id domain.CaseID) (*domain.Record, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("hydrate: empty case identity")
	}

	c.mu.Lock()
	if c.caseID == id && c.phase != PhaseUnloaded {
		rec := c.current
		c.mu.Unlock()
		return rec, nil
	}
	c.phase = PhaseLoading
	c.caseID = id
	c.current = nil
	c.mu.Unlock()

	rec, err := c.cfg.Records.GetByID(ctx, id)
	if err != nil {
		c.reset()
		return nil, fmt.Errorf("hydrate %s: %w", id, err)
	}

	// Seeding awaits the catalog: dependent-field option sets come from it.
	cat, err := c.cfg.Catalog.Load(ctx)
	if err != nil {
		c.reset()
		return nil, fmt.Errorf("hydrate %s: %w", id, err)
	}

	resolver := cascade.New(cat)
	resolver.BeginHydration(map[form.Field]string{
		form.FieldCity:           rec.City,
		form.FieldJudicialOffice: rec.JudicialOffice,
		form.FieldProcessType:    rec.ProcessType,
	})

	c.mu.Lock()
	c.phase = PhaseSeeding
	c.resolver = resolver
	c.catalogDegraded = false
	c.mu.Unlock()

	c.seed(rec)

	c.cfg.Orchestrator.BindCase(rec.ID)
	c.cfg.Orchestrator.SetBonus(rec.Bonus)

	resolver.CompleteHydration()
	c.mu.Lock()
	c.phase = PhaseReady
	c.current = rec
	c.mu.Unlock()

	c.cfg.Logger.Info("case hydrated",
		slog.String("case_id", string(id)),
		slog.String("status", rec.Status))
	return rec, nil
}

// Refresh re-fetches the current record and re-populates values without
// re-entering Seeding, so clearing suppression is never re-armed.
func (c *Controller) Refresh(ctx context.Context) (*domain.Record, error) {
	c.mu.Lock()
	id := c.caseID
	ready := c.phase == PhaseReady
	c.mu.Unlock()
	if !ready {
		return nil, fmt.Errorf("hydrate: refresh before ready")
	}

	rec, err := c.cfg.Records.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", id, err)
	}
	c.Apply(rec)
	return rec, nil
}

// Apply installs an authoritative record copy (from a refresh or a save
// response). Values are written silently: the last write wins and no cascade
// side effects run. Collections merge rather than swap, so uncommitted drafts
// survive the refresh and stay retriable.
func (c *Controller) Apply(rec *domain.Record) {
	state := c.cfg.State
	state.SetSilent(form.FieldClientType, rec.ClientType)
	state.SetSilent(form.FieldDepartment, rec.Department)
	state.SetSilent(form.FieldCity, rec.City)
	state.SetSilent(form.FieldCountry, rec.Country)
	state.SetSilent(form.FieldPersonType, rec.PersonType)
	state.SetSilent(form.FieldJurisdiction, rec.Jurisdiction)
	state.SetSilent(form.FieldProcessType, rec.ProcessType)
	state.SetSilent(form.FieldJudicialOffice, rec.JudicialOffice)
	state.SetSilent(form.FieldCaseNumber, rec.CaseNumber)

	c.mergeCollections(rec)
	c.cfg.Orchestrator.SetBonus(rec.Bonus)

	c.mu.Lock()
	c.current = rec
	c.mu.Unlock()
}

// seed populates the form during Seeding. Non-cascading fields are written
// silently; dependent fields go through Set, children before parents, so each
// parent reaction sees its child already in place and option sets populate
// from the parent values.
func (c *Controller) seed(rec *domain.Record) {
	state := c.cfg.State
	state.SetSilent(form.FieldClientType, rec.ClientType)
	state.SetSilent(form.FieldCountry, rec.Country)
	state.SetSilent(form.FieldPersonType, rec.PersonType)
	state.SetSilent(form.FieldCaseNumber, rec.CaseNumber)

	state.Set(form.FieldCity, rec.City)
	state.Set(form.FieldJudicialOffice, rec.JudicialOffice)
	state.Set(form.FieldProcessType, rec.ProcessType)
	state.Set(form.FieldDepartment, rec.Department)
	state.Set(form.FieldJurisdiction, rec.Jurisdiction)

	c.seedCollections(rec)
}

// seedCollections takes the loaded record as the whole truth; at seed time no
// local drafts exist.
func (c *Controller) seedCollections(rec *domain.Record) {
	c.cfg.Collections.Parties.Replace(rec.Parts)
	c.cfg.Collections.Interveners.Replace(rec.Interveners)
	c.cfg.Collections.Payments.Replace(rec.Payments)
	c.cfg.Collections.Documents.Replace(rec.Documents)
}

// mergeCollections installs the server's persisted children while keeping
// local drafts. A general-info save or post-commit refresh must never discard
// work the server has not seen.
func (c *Controller) mergeCollections(rec *domain.Record) {
	c.cfg.Collections.Parties.ReplacePersisted(rec.Parts)
	c.cfg.Collections.Interveners.ReplacePersisted(rec.Interveners)
	c.cfg.Collections.Payments.ReplacePersisted(rec.Payments)
	c.cfg.Collections.Documents.ReplacePersisted(rec.Documents)
}

func (c *Controller) reset() {
	c.mu.Lock()
	c.phase = PhaseUnloaded
	c.caseID = ""
	c.current = nil
	c.mu.Unlock()
}
