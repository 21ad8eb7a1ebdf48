package form

import "sync"

// Field names one classification field of the case form. Fields are the keys
// of the state container; cascade logic depends on them, never on widget
// identity.
type Field string

const (
	FieldClientType     Field = "client_type"
	FieldDepartment     Field = "department"
	FieldCity           Field = "city"
	FieldCountry        Field = "country"
	FieldPersonType     Field = "person_type"
	FieldJurisdiction   Field = "jurisdiction"
	FieldProcessType    Field = "process_type"
	FieldJudicialOffice Field = "judicial_office"
	FieldCaseNumber     Field = "case_number"
)

// Snapshot is an immutable copy of the form values at one point in time.
// Cascade handlers are pure functions over snapshots.
type Snapshot map[Field]string

// ChangeFunc observes a single field mutation.
type ChangeFunc func(field Field, oldValue, newValue string)

// State is the explicit container replacing shared mutable form state: every
// handler reads through Get/Snapshot and writes through Set, and cascade
// effects attach via Subscribe instead of reaching into widget internals.
type State struct {
	mu     sync.RWMutex
	values map[Field]string
	subs   []ChangeFunc
}

func NewState() *State {
	return &State{values: make(map[Field]string)}
}

// Get returns the current value of a field ("" when unset).
func (s *State) Get(field Field) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[field]
}

// Set writes a field and notifies subscribers. Subscribers run outside the
// lock so they may call Set again (clearing a downstream field re-enters).
// No-op writes do not notify, which keeps cascades finite.
func (s *State) Set(field Field, value string) {
	s.mu.Lock()
	old := s.values[field]
	if old == value {
		s.mu.Unlock()
		return
	}
	s.values[field] = value
	subs := make([]ChangeFunc, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(field, old, value)
	}
}

// SetSilent writes a field without notifying subscribers. Hydration uses it to
// seed values whose cascade reaction is driven explicitly.
func (s *State) SetSilent(field Field, value string) {
	s.mu.Lock()
	s.values[field] = value
	s.mu.Unlock()
}

// Snapshot copies the current values.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(Snapshot, len(s.values))
	for k, v := range s.values {
		snap[k] = v
	}
	return snap
}

// Subscribe registers a change observer. There is no unsubscribe; the state
// container lives and dies with one form session.
func (s *State) Subscribe(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}
