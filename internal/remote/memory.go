package remote

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"caseform/internal/domain"
	"caseform/pkg/sentinel"
)

// Memory is an in-process stand-in for the remote case-management service.
// It backs the dev wiring and the session tests. Semantics mirror the real
// service: records get server IDs on create, child entities get their own IDs,
// and illegal status transitions are rejected with the marker envelope text.
type Memory struct {
	mu      sync.RWMutex
	records map[domain.CaseID]*domain.Record
	seq     int
}

func NewMemory() *Memory {
	return &Memory{records: make(map[domain.CaseID]*domain.Record)}
}

// Services bundles one Memory behind all six collaborator roles.
func (m *Memory) Services() Services {
	return Services{
		Records:     m,
		Parties:     (*memoryParties)(m),
		Interveners: (*memoryInterveners)(m),
		Payments:    (*memoryPayments)(m),
		Documents:   (*memoryDocuments)(m),
		Actions:     (*memoryActions)(m),
	}
}

func (m *Memory) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%04d", prefix, m.seq)
}

func (m *Memory) GetByID(_ context.Context, id domain.CaseID) (*domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, sentinel.ErrNotFound)
	}
	return cloneRecord(rec), nil
}

func (m *Memory) Create(_ context.Context, payload CreateRecordPayload) (*domain.Record, error) {
	if len(payload.Documents) == 0 {
		return nil, &Rejection{Messages: []string{"a case requires at least one document"}}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := &domain.Record{
		ID:             domain.CaseID(m.nextID("CASE")),
		ClientType:     payload.General.ClientType,
		Department:     payload.General.Department,
		City:           payload.General.City,
		Country:        payload.General.Country,
		PersonType:     payload.General.PersonType,
		Jurisdiction:   payload.General.Jurisdiction,
		ProcessType:    payload.General.ProcessType,
		JudicialOffice: payload.General.JudicialOffice,
		CaseNumber:     payload.General.CaseNumber,
		Status:         "REGISTERED",
		CreatedAt:      payload.CreationDate,
		Bonus:          payload.Bonus,
	}
	for _, part := range payload.Parts {
		part.Ref = domain.PersistedRef(m.nextID("PART"))
		rec.Parts = append(rec.Parts, part)
	}
	for _, intervener := range payload.Interveners {
		intervener.Ref = domain.PersistedRef(m.nextID("INTV"))
		rec.Interveners = append(rec.Interveners, intervener)
	}
	for _, payment := range payload.Payments {
		payment.Ref = domain.PersistedRef(m.nextID("PAY"))
		rec.Payments = append(rec.Payments, payment)
	}
	for _, doc := range payload.Documents {
		doc.Ref = domain.PersistedRef(m.nextID("DOC"))
		rec.Documents = append(rec.Documents, doc)
	}

	m.records[rec.ID] = rec
	return cloneRecord(rec), nil
}

func (m *Memory) UpdateGeneral(_ context.Context, id domain.CaseID, fields domain.GeneralInfo) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, sentinel.ErrNotFound)
	}
	rec.ClientType = fields.ClientType
	rec.Department = fields.Department
	rec.City = fields.City
	rec.Country = fields.Country
	rec.PersonType = fields.PersonType
	rec.Jurisdiction = fields.Jurisdiction
	rec.ProcessType = fields.ProcessType
	rec.JudicialOffice = fields.JudicialOffice
	rec.CaseNumber = fields.CaseNumber
	return cloneRecord(rec), nil
}

// locked returns the live record. Callers hold mu.
func (m *Memory) locked(id domain.CaseID) (*domain.Record, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, sentinel.ErrNotFound)
	}
	return rec, nil
}

type memoryParties Memory

func (m *memoryParties) Create(_ context.Context, caseID domain.CaseID, part domain.ProceduralPart) (string, error) {
	mem := (*Memory)(m)
	mem.mu.Lock()
	defer mem.mu.Unlock()
	rec, err := mem.locked(caseID)
	if err != nil {
		return "", err
	}
	id := mem.nextID("PART")
	part.Ref = domain.PersistedRef(id)
	rec.Parts = append(rec.Parts, part)
	return id, nil
}

func (m *memoryParties) Update(_ context.Context, remoteID string, part domain.ProceduralPart) error {
	mem := (*Memory)(m)
	mem.mu.Lock()
	defer mem.mu.Unlock()
	for _, rec := range mem.records {
		for i := range rec.Parts {
			if rec.Parts[i].Ref.RemoteID == remoteID {
				part.Ref = rec.Parts[i].Ref
				rec.Parts[i] = part
				return nil
			}
		}
	}
	return fmt.Errorf("party %s: %w", remoteID, sentinel.ErrNotFound)
}

func (m *memoryParties) Delete(_ context.Context, remoteID string) error {
	mem := (*Memory)(m)
	mem.mu.Lock()
	defer mem.mu.Unlock()
	for _, rec := range mem.records {
		for i := range rec.Parts {
			if rec.Parts[i].Ref.RemoteID == remoteID {
				rec.Parts = append(rec.Parts[:i], rec.Parts[i+1:]...)
				return nil
			}
		}
	}
	return fmt.Errorf("party %s: %w", remoteID, sentinel.ErrNotFound)
}

type memoryInterveners Memory

func (m *memoryInterveners) Create(_ context.Context, caseID domain.CaseID, intervener domain.Intervener) (string, error) {
	mem := (*Memory)(m)
	mem.mu.Lock()
	defer mem.mu.Unlock()
	rec, err := mem.locked(caseID)
	if err != nil {
		return "", err
	}
	id := mem.nextID("INTV")
	intervener.Ref = domain.PersistedRef(id)
	rec.Interveners = append(rec.Interveners, intervener)
	return id, nil
}

func (m *memoryInterveners) Update(_ context.Context, remoteID string, intervener domain.Intervener) error {
	mem := (*Memory)(m)
	mem.mu.Lock()
	defer mem.mu.Unlock()
	for _, rec := range mem.records {
		for i := range rec.Interveners {
			if rec.Interveners[i].Ref.RemoteID == remoteID {
				intervener.Ref = rec.Interveners[i].Ref
				rec.Interveners[i] = intervener
				return nil
			}
		}
	}
	return fmt.Errorf("intervener %s: %w", remoteID, sentinel.ErrNotFound)
}

func (m *memoryInterveners) Delete(_ context.Context, remoteID string) error {
	mem := (*Memory)(m)
	mem.mu.Lock()
	defer mem.mu.Unlock()
	for _, rec := range mem.records {
		for i := range rec.Interveners {
			if rec.Interveners[i].Ref.RemoteID == remoteID {
				rec.Interveners = append(rec.Interveners[:i], rec.Interveners[i+1:]...)
				return nil
			}
		}
	}
	return fmt.Errorf("intervener %s: %w", remoteID, sentinel.ErrNotFound)
}

type memoryPayments Memory

func (m *memoryPayments) Create(_ context.Context, caseID domain.CaseID, payment domain.Payment, bonus domain.SuccessBonus) (string, error) {
	mem := (*Memory)(m)
	mem.mu.Lock()
	defer mem.mu.Unlock()
	rec, err := mem.locked(caseID)
	if err != nil {
		return "", err
	}
	id := mem.nextID("PAY")
	payment.Ref = domain.PersistedRef(id)
	rec.Payments = append(rec.Payments, payment)
	rec.Bonus = bonus
	return id, nil
}

func (m *memoryPayments) Update(_ context.Context, remoteID string, payment domain.Payment, bonus domain.SuccessBonus) error {
	mem := (*Memory)(m)
	mem.mu.Lock()
	defer mem.mu.Unlock()
	for _, rec := range mem.records {
		for i := range rec.Payments {
			if rec.Payments[i].Ref.RemoteID == remoteID {
				payment.Ref = rec.Payments[i].Ref
				rec.Payments[i] = payment
				rec.Bonus = bonus
				return nil
			}
		}
	}
	return fmt.Errorf("payment %s: %w", remoteID, sentinel.ErrNotFound)
}

func (m *memoryPayments) Delete(_ context.Context, remoteID string) error {
	mem := (*Memory)(m)
	mem.mu.Lock()
	defer mem.mu.Unlock()
	for _, rec := range mem.records {
		for i := range rec.Payments {
			if rec.Payments[i].Ref.RemoteID == remoteID {
				rec.Payments = append(rec.Payments[:i], rec.Payments[i+1:]...)
				return nil
			}
		}
	}
	return fmt.Errorf("payment %s: %w", remoteID, sentinel.ErrNotFound)
}

type memoryDocuments Memory

func (m *memoryDocuments) Create(_ context.Context, caseID domain.CaseID, doc domain.Document, file io.Reader) (string, error) {
	mem := (*Memory)(m)
	if file != nil {
		if _, err := io.Copy(io.Discard, file); err != nil {
			return "", fmt.Errorf("document attachment: %w", err)
		}
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	rec, err := mem.locked(caseID)
	if err != nil {
		return "", err
	}
	id := mem.nextID("DOC")
	doc.Ref = domain.PersistedRef(id)
	rec.Documents = append(rec.Documents, doc)
	return id, nil
}

func (m *memoryDocuments) Update(_ context.Context, remoteID string, doc domain.Document) error {
	mem := (*Memory)(m)
	mem.mu.Lock()
	defer mem.mu.Unlock()
	for _, rec := range mem.records {
		for i := range rec.Documents {
			if rec.Documents[i].Ref.RemoteID == remoteID {
				doc.Ref = rec.Documents[i].Ref
				rec.Documents[i] = doc
				return nil
			}
		}
	}
	return fmt.Errorf("document %s: %w", remoteID, sentinel.ErrNotFound)
}

func (m *memoryDocuments) Delete(_ context.Context, remoteID string) error {
	mem := (*Memory)(m)
	mem.mu.Lock()
	defer mem.mu.Unlock()
	for _, rec := range mem.records {
		for i := range rec.Documents {
			if rec.Documents[i].Ref.RemoteID == remoteID {
				rec.Documents = append(rec.Documents[:i], rec.Documents[i+1:]...)
				return nil
			}
		}
	}
	return fmt.Errorf("document %s: %w", remoteID, sentinel.ErrNotFound)
}

type memoryActions Memory

func (m *memoryActions) Create(_ context.Context, caseID domain.CaseID, action domain.ProceduralAction) error {
	mem := (*Memory)(m)
	mem.mu.Lock()
	defer mem.mu.Unlock()
	rec, err := mem.locked(caseID)
	if err != nil {
		return err
	}
	if strings.EqualFold(rec.Status, action.TargetStatus) {
		rejection := &Rejection{Messages: []string{
			IllegalTransitionMarker + ": case already in status " + rec.Status,
		}}
		return fmt.Errorf("%w: %w", ErrIllegalTransition, rejection)
	}
	rec.Status = action.TargetStatus
	return nil
}

func cloneRecord(rec *domain.Record) *domain.Record {
	out := *rec
	out.Parts = append([]domain.ProceduralPart(nil), rec.Parts...)
	out.Interveners = append([]domain.Intervener(nil), rec.Interveners...)
	out.Payments = append([]domain.Payment(nil), rec.Payments...)
	out.Documents = append([]domain.Document(nil), rec.Documents...)
	return &out
}
