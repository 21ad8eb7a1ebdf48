package cascade

import (
	"fmt"

	"caseform/internal/catalog"
	"caseform/internal/form"
)

// Mode is the resolver's operating mode. Hydrating suppresses the destructive
// clearing that normally keeps dependent fields consistent, so a record loaded
// from the server survives catalog drift; Interactive is the live-edit mode.
type Mode int

const (
	ModeInteractive Mode = iota
	ModeHydrating
)

func (m Mode) String() string {
	if m == ModeHydrating {
		return "hydrating"
	}
	return "interactive"
}

// Notice reports a dependent value cleared because it is absent from the
// option set of its new parent.
type Notice struct {
	Field       form.Field
	Value       string
	Parent      form.Field
	ParentValue string
}

func (n Notice) Message() string {
	return fmt.Sprintf("%s %q is not available under %s %q",
		fieldLabel(n.Field), n.Value, fieldLabel(n.Parent), n.ParentValue)
}

func fieldLabel(f form.Field) string {
	switch f {
	case form.FieldDepartment:
		return "department"
	case form.FieldCity:
		return "city"
	case form.FieldJudicialOffice:
		return "judicial office"
	case form.FieldJurisdiction:
		return "jurisdiction"
	case form.FieldProcessType:
		return "process type"
	default:
		return string(f)
	}
}

// Effects is what a parent-field change wants done to the rest of the form.
// React computes effects as a pure function of the snapshot and the event;
// the session applies them to the state container afterward.
type Effects struct {
	Options map[form.Field][]string
	Clears  []form.Field
	Notices []Notice
}

// Resolver drives the three dependent pairs Department→City,
// City→JudicialOffice, and Jurisdiction→ProcessType. It is not safe for
// concurrent use; the owning session serializes access.
type Resolver struct {
	cat        *catalog.Catalog
	mode       Mode
	completed  bool
	historical map[form.Field]string

	options      map[form.Field][]string
	manualOffice bool
}

// New builds an Interactive resolver, the mode for creating a case from
// scratch.
func New(cat *catalog.Catalog) *Resolver {
	return &Resolver{
		cat:     cat,
		mode:    ModeInteractive,
		options: make(map[form.Field][]string),
	}
}

// BeginHydration switches to Hydrating for seeding a persisted record. The
// historical values are the record's own and are always preserved while
// hydrating. Once a hydration has completed for this resolver the switch is
// refused: the Hydrating→Interactive transition is irreversible per case.
func (r *Resolver) BeginHydration(historical map[form.Field]string) {
	if r.completed {
		return
	}
	r.mode = ModeHydrating
	r.historical = make(map[form.Field]string, len(historical))
	for k, v := range historical {
		r.historical[k] = v
	}
}

// CompleteHydration flips to Interactive once all dependent fields are seeded
// and the catalog has loaded.
func (r *Resolver) CompleteHydration() {
	if r.mode == ModeHydrating {
		r.mode = ModeInteractive
		r.completed = true
	}
}

func (r *Resolver) Mode() Mode { return r.mode }

// ManualOffice reports whether the judicial-office field is in free-text
// manual-entry mode because the current city has no catalog office list.
func (r *Resolver) ManualOffice() bool { return r.manualOffice }

// Options returns the current option set of a dependent field.
func (r *Resolver) Options(field form.Field) []string { return r.options[field] }

// React processes a parent-field change and returns the resulting effects.
// Only the resolver's own option bookkeeping is mutated; the form state is
// untouched until the caller applies the effects.
func (r *Resolver) React(snap form.Snapshot, field form.Field, value string) Effects {
	switch field {
	case form.FieldDepartment:
		return r.reactDepartment(snap, value)
	case form.FieldCity:
		return r.reactCity(snap, value)
	case form.FieldJurisdiction:
		return r.reactJurisdiction(snap, value)
	default:
		return Effects{}
	}
}

// Apply writes the effects back into the state container. Clears go through
// Set so downstream cascades fire.
func Apply(state *form.State, eff Effects) {
	for _, field := range eff.Clears {
		state.Set(field, "")
	}
}

// shouldClear decides whether a dependent value absent from its new option set
// gets cleared. Interactive always clears; Hydrating preserves the record's
// own historical value and clears only values provably foreign to it.
func (r *Resolver) shouldClear(field form.Field, current string) bool {
	if r.mode == ModeInteractive {
		return true
	}
	return catalog.Normalize(current) != catalog.Normalize(r.historical[field])
}

func (r *Resolver) reactDepartment(snap form.Snapshot, department string) Effects {
	eff := Effects{Options: make(map[form.Field][]string)}

	var cities []string
	if department != "" {
		cities, _ = r.cat.Cities(department)
	}
	r.options[form.FieldCity] = cities
	eff.Options[form.FieldCity] = cities

	current := snap[form.FieldCity]
	if current == "" {
		return eff
	}
	if department != "" && r.cat.HasCity(department, current) {
		return eff
	}
	if !r.shouldClear(form.FieldCity, current) {
		return eff
	}

	eff.Clears = append(eff.Clears, form.FieldCity)
	eff.Notices = append(eff.Notices, Notice{
		Field:       form.FieldCity,
		Value:       current,
		Parent:      form.FieldDepartment,
		ParentValue: department,
	})
	return eff
}

func (r *Resolver) reactCity(snap form.Snapshot, city string) Effects {
	eff := Effects{Options: make(map[form.Field][]string)}

	var offices []catalog.JudicialOffice
	if city != "" {
		offices = r.cat.Offices(city)
	}

	// A city with no catalog office list switches the judicial-office field
	// to free-text manual entry; whatever the user types there is kept.
	r.manualOffice = city != "" && len(offices) == 0
	names := make([]string, 0, len(offices))
	for _, o := range offices {
		names = append(names, o.Name)
	}
	if len(names) == 0 {
		names = nil
	}
	r.options[form.FieldJudicialOffice] = names
	eff.Options[form.FieldJudicialOffice] = names

	current := snap[form.FieldJudicialOffice]
	if current == "" || r.manualOffice {
		return eff
	}
	if city != "" && r.cat.HasOffice(city, current) {
		return eff
	}
	if !r.shouldClear(form.FieldJudicialOffice, current) {
		return eff
	}

	eff.Clears = append(eff.Clears, form.FieldJudicialOffice)
	eff.Notices = append(eff.Notices, Notice{
		Field:       form.FieldJudicialOffice,
		Value:       current,
		Parent:      form.FieldCity,
		ParentValue: city,
	})
	return eff
}

func (r *Resolver) reactJurisdiction(snap form.Snapshot, jurisdiction string) Effects {
	eff := Effects{Options: make(map[form.Field][]string)}

	var types []catalog.ProcessType
	if jurisdiction != "" {
		types, _ = r.cat.ProcessTypes(jurisdiction)
	}
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.Name)
	}
	if len(names) == 0 {
		names = nil
	}
	r.options[form.FieldProcessType] = names
	eff.Options[form.FieldProcessType] = names

	current := snap[form.FieldProcessType]
	if current == "" {
		return eff
	}
	if jurisdiction != "" && r.cat.HasProcessType(jurisdiction, current) {
		return eff
	}
	if !r.shouldClear(form.FieldProcessType, current) {
		return eff
	}

	eff.Clears = append(eff.Clears, form.FieldProcessType)
	eff.Notices = append(eff.Notices, Notice{
		Field:       form.FieldProcessType,
		Value:       current,
		Parent:      form.FieldJurisdiction,
		ParentValue: jurisdiction,
	})
	return eff
}
