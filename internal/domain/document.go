package domain

import "time"

// Document describes a filed paper, optionally paired with an uploaded file.
// A document moves through three states: draft (sub-form values not yet
// confirmed), local (confirmed into the in-memory collection of an unsaved
// case), persisted (written to the remote service). Local versus persisted is
// carried by Ref; draft documents live outside the collection entirely.
type Document struct {
	Ref             EntityRef
	Category        string
	Type            string
	SubType         string
	SettlementDate  time.Time
	Sequence        string
	ResponsibleType string
	ResponsibleName string
	Notes           string
	FileName        string
	// SystemGenerated marks the placeholder synthesized on the creation path
	// when no document was confirmed. The remote service needs at least one
	// document to derive its internal case code.
	SystemGenerated bool
}

// IsEmpty reports whether the sub-form holds no values worth promoting.
func (d Document) IsEmpty() bool {
	return d.Category == "" && d.Type == "" && d.SubType == "" &&
		d.Sequence == "" && d.Notes == "" && d.FileName == ""
}

// IsComplete reports whether the document resolves to the category and type
// the creation path requires.
func (d Document) IsComplete() bool {
	return d.Category != "" && d.Type != ""
}

func (d Document) SameContent(other Document) bool {
	return d.Category == other.Category &&
		d.Type == other.Type &&
		d.SubType == other.SubType &&
		d.Sequence == other.Sequence
}

// PlaceholderDocument is the compatibility accommodation for the creation
// path: the remote service refuses a case with zero documents.
func PlaceholderDocument() Document {
	return Document{
		Ref:             NewTemporaryRef(),
		Category:        "GENERAL",
		Type:            "CASE_OPENING",
		Notes:           "auto-generated on case creation",
		SystemGenerated: true,
	}
}
