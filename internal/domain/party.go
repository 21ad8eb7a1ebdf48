package domain

// PartyRole says which side of the case a procedural part is on.
type PartyRole string

const (
	RolePlaintiff PartyRole = "plaintiff"
	RoleDefendant PartyRole = "defendant"
)

// ProceduralPart is a plaintiff or defendant party to the case.
type ProceduralPart struct {
	Ref            EntityRef
	Role           PartyRole
	Name           string
	DocumentType   string
	DocumentNumber string
	Email          string
	Contact        string
}

// SameContent matches drafts by their user-entered fields. Temporary IDs are
// ephemeral, so draft edits locate their target by content instead.
func (p ProceduralPart) SameContent(other ProceduralPart) bool {
	return p.Role == other.Role &&
		p.Name == other.Name &&
		p.DocumentType == other.DocumentType &&
		p.DocumentNumber == other.DocumentNumber
}

// Intervener is a third party participating in the case (attorney, expert,
// ministry representative, etc.).
type Intervener struct {
	Ref              EntityRef
	InterventionType string
	Name             string
	DocumentType     string
	DocumentNumber   string
	Email            string
	Contact          string
}

func (i Intervener) SameContent(other Intervener) bool {
	return i.InterventionType == other.InterventionType &&
		i.Name == other.Name &&
		i.DocumentType == other.DocumentType &&
		i.DocumentNumber == other.DocumentNumber
}
