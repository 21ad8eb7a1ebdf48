// Package reconcile manages child-entity collections that exist as in-memory
// drafts before the parent case is persisted and must be reconciled against
// server-assigned identities afterward.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"caseform/internal/domain"
)

// Client is the remote surface one collection reconciles against. The party
// and intervener services satisfy it directly; payments and documents adapt
// their extra arguments behind a closure.
type Client[T any] interface {
	Create(ctx context.Context, caseID domain.CaseID, entity T) (string, error)
	Update(ctx context.Context, remoteID string, entity T) error
	Delete(ctx context.Context, remoteID string) error
}

// Config wires one collection. Ref and WithRef expose the entity's identity
// tag; Match is the stable-field content comparison used to locate draft
// entities, whose temporary identifiers are ephemeral.
type Config[T any] struct {
	Name    string
	Client  Client[T]
	Ref     func(T) domain.EntityRef
	WithRef func(T, domain.EntityRef) T
	Match   func(T, T) bool
	// Refresh re-reads the parent case from the authoritative remote state.
	// Called after any remote write that succeeded. Optional.
	Refresh func(ctx context.Context) error
	Logger  *slog.Logger
}

// Collection reconciles one child-entity list (parties, interveners, payments
// or documents) between draft and persisted state.
type Collection[T any] struct {
	cfg Config[T]

	mu    sync.Mutex
	items []T
}

func NewCollection[T any](cfg Config[T]) *Collection[T] {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Logger = cfg.Logger.With(slog.String("collection", cfg.Name))
	return &Collection[T]{cfg: cfg}
}

// Add assigns a temporary identity and appends the draft. No remote effect.
func (c *Collection[T]) Add(entity T) T {
	entity = c.cfg.WithRef(entity, domain.NewTemporaryRef())
	c.mu.Lock()
	c.items = append(c.items, entity)
	c.mu.Unlock()
	return entity
}

// Edit replaces target with updated. A persisted target is updated remotely
// first and the parent case is refreshed on success. A draft target is located
// by content match, never by index, and mutated in place with no remote call.
func (c *Collection[T]) Edit(ctx context.Context, target, updated T) error {
	ref := c.cfg.Ref(target)
	if !ref.IsPersisted() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i := range c.items {
			if !c.cfg.Ref(c.items[i]).IsPersisted() && c.cfg.Match(c.items[i], target) {
				c.items[i] = c.cfg.WithRef(updated, c.cfg.Ref(c.items[i]))
				return nil
			}
		}
		return fmt.Errorf("%s: draft entity not found", c.cfg.Name)
	}

	if err := c.cfg.Client.Update(ctx, ref.RemoteID, updated); err != nil {
		return fmt.Errorf("%s %s: update: %w", c.cfg.Name, ref.RemoteID, err)
	}
	c.mu.Lock()
	for i := range c.items {
		if c.cfg.Ref(c.items[i]).RemoteID == ref.RemoteID {
			c.items[i] = c.cfg.WithRef(updated, ref)
			break
		}
	}
	c.mu.Unlock()
	return c.refresh(ctx)
}

// Remove deletes target. A persisted target is deleted remotely and dropped
// locally only on success; a draft is dropped immediately.
func (c *Collection[T]) Remove(ctx context.Context, target T) error {
	ref := c.cfg.Ref(target)
	if ref.IsPersisted() {
		if err := c.cfg.Client.Delete(ctx, ref.RemoteID); err != nil {
			return fmt.Errorf("%s %s: delete: %w", c.cfg.Name, ref.RemoteID, err)
		}
		c.mu.Lock()
		for i := range c.items {
			if c.cfg.Ref(c.items[i]).RemoteID == ref.RemoteID {
				c.items = append(c.items[:i], c.items[i+1:]...)
				break
			}
		}
		c.mu.Unlock()
		return c.refresh(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if !c.cfg.Ref(c.items[i]).IsPersisted() && c.cfg.Match(c.items[i], target) {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s: draft entity not found", c.cfg.Name)
}

// Items returns a copy of the collection.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Replace swaps the whole collection for the authoritative remote state. Used
// when seeding from a loaded record, where no local drafts exist yet.
func (c *Collection[T]) Replace(items []T) {
	c.mu.Lock()
	c.items = append([]T(nil), items...)
	c.mu.Unlock()
}

// ReplacePersisted installs the server's persisted items while retaining local
// drafts, which only exist in this process and would be lost by a full swap.
// Used after case refreshes: the server copy is authoritative for everything
// it knows about, and it cannot know about uncommitted drafts.
func (c *Collection[T]) ReplacePersisted(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	merged := append([]T(nil), items...)
	for _, item := range c.items {
		if !c.cfg.Ref(item).IsPersisted() {
			merged = append(merged, item)
		}
	}
	c.items = merged
}

// Clear drops every item. Used after the creation path persists the whole
// aggregate in one payload.
func (c *Collection[T]) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Drafts returns the items still carrying a temporary identity.
func (c *Collection[T]) Drafts() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	var drafts []T
	for _, item := range c.items {
		if !c.cfg.Ref(item).IsPersisted() {
			drafts = append(drafts, item)
		}
	}
	return drafts
}

// Result is the outcome of one item inside a CommitAll batch.
type Result struct {
	Ref domain.EntityRef
	Err error
}

// Outcome is the per-item accounting of one CommitAll run.
type Outcome struct {
	Results []Result
	// RefreshErr reports a failed post-batch case refresh. The batch itself
	// already succeeded or failed per item.
	RefreshErr error
}

func (o Outcome) Succeeded() int {
	n := 0
	for _, r := range o.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

func (o Outcome) Failed() int { return len(o.Results) - o.Succeeded() }

// Err folds the batch into a single error without losing per-item failures.
// A fully successful batch yields nil.
func (o Outcome) Err() error {
	failed := o.Failed()
	if failed == 0 {
		return nil
	}
	reasons := make([]string, 0, failed)
	for _, r := range o.Results {
		if r.Err != nil {
			reasons = append(reasons, r.Err.Error())
		}
	}
	return fmt.Errorf("%d succeeded, %d failed: %s", o.Succeeded(), failed, strings.Join(reasons, "; "))
}

// CommitAll persists every draft item against an already-persisted parent
// case. Items are attempted strictly sequentially; a failure on one item never
// prevents attempting the next, succeeded items flip to persisted identity in
// place, and failed items stay drafts so a re-trigger retries only them. After
// the loop one case refresh runs if at least one item succeeded.
func (c *Collection[T]) CommitAll(ctx context.Context, caseID domain.CaseID) Outcome {
	var out Outcome
	for i := 0; ; i++ {
		c.mu.Lock()
		if i >= len(c.items) {
			c.mu.Unlock()
			break
		}
		item := c.items[i]
		c.mu.Unlock()

		ref := c.cfg.Ref(item)
		if ref.IsPersisted() {
			continue
		}

		remoteID, err := c.cfg.Client.Create(ctx, caseID, item)
		if err != nil {
			c.cfg.Logger.Warn("draft commit failed",
				slog.String("case_id", string(caseID)),
				slog.String("error", err.Error()))
			out.Results = append(out.Results, Result{Ref: ref, Err: fmt.Errorf("%s: %w", c.cfg.Name, err)})
			continue
		}

		persisted := domain.PersistedRef(remoteID)
		c.mu.Lock()
		for j := range c.items {
			if c.cfg.Ref(c.items[j]) == ref {
				c.items[j] = c.cfg.WithRef(c.items[j], persisted)
				break
			}
		}
		c.mu.Unlock()
		out.Results = append(out.Results, Result{Ref: persisted})
	}

	if out.Succeeded() > 0 {
		out.RefreshErr = c.refresh(ctx)
	}
	return out
}

func (c *Collection[T]) refresh(ctx context.Context) error {
	if c.cfg.Refresh == nil {
		return nil
	}
	if err := c.cfg.Refresh(ctx); err != nil {
		c.cfg.Logger.Warn("case refresh failed", slog.String("error", err.Error()))
		return fmt.Errorf("%s: refresh: %w", c.cfg.Name, err)
	}
	return nil
}
