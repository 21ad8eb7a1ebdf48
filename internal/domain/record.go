package domain

import "time"

// CaseID is the server-assigned identifier of a case record. It is empty while
// the case is still a draft.
type CaseID string

func (id CaseID) IsZero() bool { return id == "" }

// Record is the aggregate root for one legal matter. While ID is empty the
// record is in draft state and none of its child collections may be persisted
// independently.
type Record struct {
	ID             CaseID
	ClientType     string
	Department     string
	City           string
	Country        string
	PersonType     string
	Jurisdiction   string
	ProcessType    string
	JudicialOffice string
	CaseNumber     string
	// Status is owned by the remote service; this side treats it as opaque.
	Status    string
	CreatedAt time.Time

	Parts       []ProceduralPart
	Interveners []Intervener
	Payments    []Payment
	Documents   []Document
	Bonus       SuccessBonus
}

// IsDraft reports whether the case has not been persisted yet.
func (r *Record) IsDraft() bool { return r.ID.IsZero() }

// GeneralInfo is the classification-field section saved independently of the
// child collections on the edit path.
type GeneralInfo struct {
	ClientType     string
	Department     string
	City           string
	Country        string
	PersonType     string
	Jurisdiction   string
	ProcessType    string
	JudicialOffice string
	CaseNumber     string
}

// General extracts the classification section from a record.
func (r *Record) General() GeneralInfo {
	return GeneralInfo{
		ClientType:     r.ClientType,
		Department:     r.Department,
		City:           r.City,
		Country:        r.Country,
		PersonType:     r.PersonType,
		Jurisdiction:   r.Jurisdiction,
		ProcessType:    r.ProcessType,
		JudicialOffice: r.JudicialOffice,
		CaseNumber:     r.CaseNumber,
	}
}
