package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"caseform/internal/audit"
	"caseform/internal/catalog"
	"caseform/internal/record/metrics"
	"caseform/internal/remote"
	"caseform/pkg/sentinel"
)

// Manager owns the live form sessions of the process. Sessions are in-memory
// and die with the process; persisted state lives behind the remote services.
type Manager struct {
	deps Deps

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// ManagerConfig carries the process-wide collaborators shared by every
// session.
type ManagerConfig struct {
	Services remote.Services
	Catalog  *catalog.Cache
	Audit    *audit.Publisher
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		deps: Deps{
			Services: cfg.Services,
			Catalog:  cfg.Catalog,
			Audit:    cfg.Audit,
			Metrics:  cfg.Metrics,
			Logger:   cfg.Logger,
			Now:      cfg.Now,
		},
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Open creates and registers a fresh session.
func (m *Manager) Open(ctx context.Context) *Session {
	s := New(m.deps)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	s.emit(ctx, audit.Event{Action: audit.ActionSessionCreated})
	return s
}

// Get returns a registered session.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
	}
	return s, nil
}

// Close removes a session. In-flight remote writes complete on their own;
// their results are simply no longer applied anywhere.
func (m *Manager) Close(ctx context.Context, id uuid.UUID) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.emit(ctx, audit.Event{Action: audit.ActionSessionClosed, CaseID: s.Orchestrator.CaseID()})
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
