package remote

import (
	"fmt"
	"time"

	"caseform/internal/domain"
)

// wireDateLayout is the single date format every collaborator accepts.
const wireDateLayout = "2006-01-02"

// WireDate marshals time values in the collaborator wire format. Zero times
// serialize as the empty string.
type WireDate struct {
	time.Time
}

func (d WireDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.Format(wireDateLayout) + `"`), nil
}

func (d *WireDate) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == `""` || raw == "null" {
		d.Time = time.Time{}
		return nil
	}
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return fmt.Errorf("wire date %s: not a JSON string", raw)
	}
	t, err := time.Parse(wireDateLayout, raw[1:len(raw)-1])
	if err != nil {
		return fmt.Errorf("wire date: %w", err)
	}
	d.Time = t
	return nil
}

type recordDTO struct {
	ID             string          `json:"id"`
	ClientType     string          `json:"client_type"`
	Department     string          `json:"department"`
	City           string          `json:"city"`
	Country        string          `json:"country"`
	PersonType     string          `json:"person_type"`
	Jurisdiction   string          `json:"jurisdiction"`
	ProcessType    string          `json:"process_type"`
	JudicialOffice string          `json:"judicial_office"`
	CaseNumber     string          `json:"case_number"`
	Status         string          `json:"status"`
	CreationDate   WireDate        `json:"creation_date"`
	Parts          []partDTO       `json:"procedural_parts"`
	Interveners    []intervenerDTO `json:"interveners"`
	Payments       []paymentDTO    `json:"payments"`
	Documents      []documentDTO   `json:"documents"`
	Bonus          bonusDTO        `json:"success_bonus"`
}

type createRecordDTO struct {
	ClientType     string          `json:"client_type"`
	Department     string          `json:"department"`
	City           string          `json:"city"`
	Country        string          `json:"country"`
	PersonType     string          `json:"person_type"`
	Jurisdiction   string          `json:"jurisdiction"`
	ProcessType    string          `json:"process_type"`
	JudicialOffice string          `json:"judicial_office"`
	CaseNumber     string          `json:"case_number"`
	CreationDate   WireDate        `json:"creation_date"`
	Parts          []partDTO       `json:"procedural_parts"`
	Interveners    []intervenerDTO `json:"interveners"`
	Payments       []paymentDTO    `json:"payments"`
	Documents      []documentDTO   `json:"documents"`
	Bonus          bonusDTO        `json:"success_bonus"`
}

type generalInfoDTO struct {
	ClientType     string `json:"client_type"`
	Department     string `json:"department"`
	City           string `json:"city"`
	Country        string `json:"country"`
	PersonType     string `json:"person_type"`
	Jurisdiction   string `json:"jurisdiction"`
	ProcessType    string `json:"process_type"`
	JudicialOffice string `json:"judicial_office"`
	CaseNumber     string `json:"case_number"`
}

type partDTO struct {
	ID             string `json:"id,omitempty"`
	Role           string `json:"role"`
	Name           string `json:"name"`
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
	Email          string `json:"email"`
	Contact        string `json:"contact"`
}

type intervenerDTO struct {
	ID               string `json:"id,omitempty"`
	InterventionType string `json:"intervention_type"`
	Name             string `json:"name"`
	DocumentType     string `json:"document_type"`
	DocumentNumber   string `json:"document_number"`
	Email            string `json:"email"`
	Contact          string `json:"contact"`
}

type paymentDTO struct {
	ID            string   `json:"id,omitempty"`
	Value         float64  `json:"value"`
	CausationDate WireDate `json:"causation_date"`
	PaymentDate   WireDate `json:"payment_date"`
	Bonus         bonusDTO `json:"success_bonus"`
}

type bonusDTO struct {
	Enabled       bool     `json:"enabled"`
	Percentage    float64  `json:"percentage"`
	Price         float64  `json:"price"`
	CausationDate WireDate `json:"causation_date"`
	PaymentDate   WireDate `json:"payment_date"`
}

type documentDTO struct {
	ID              string   `json:"id,omitempty"`
	Category        string   `json:"category"`
	Type            string   `json:"type"`
	SubType         string   `json:"sub_type"`
	SettlementDate  WireDate `json:"settlement_date"`
	Sequence        string   `json:"sequence"`
	ResponsibleType string   `json:"responsible_type"`
	ResponsibleName string   `json:"responsible_name"`
	Notes           string   `json:"notes"`
	FileName        string   `json:"file_name"`
	SystemGenerated bool     `json:"system_generated"`
}

type actionDTO struct {
	TargetStatus string   `json:"target_status"`
	Observation  string   `json:"observation"`
	Date         WireDate `json:"date"`
}

func toPartDTO(p domain.ProceduralPart) partDTO {
	return partDTO{
		ID:             p.Ref.RemoteID,
		Role:           string(p.Role),
		Name:           p.Name,
		DocumentType:   p.DocumentType,
		DocumentNumber: p.DocumentNumber,
		Email:          p.Email,
		Contact:        p.Contact,
	}
}

func fromPartDTO(d partDTO) domain.ProceduralPart {
	return domain.ProceduralPart{
		Ref:            domain.PersistedRef(d.ID),
		Role:           domain.PartyRole(d.Role),
		Name:           d.Name,
		DocumentType:   d.DocumentType,
		DocumentNumber: d.DocumentNumber,
		Email:          d.Email,
		Contact:        d.Contact,
	}
}

func toIntervenerDTO(i domain.Intervener) intervenerDTO {
	return intervenerDTO{
		ID:               i.Ref.RemoteID,
		InterventionType: i.InterventionType,
		Name:             i.Name,
		DocumentType:     i.DocumentType,
		DocumentNumber:   i.DocumentNumber,
		Email:            i.Email,
		Contact:          i.Contact,
	}
}

func fromIntervenerDTO(d intervenerDTO) domain.Intervener {
	return domain.Intervener{
		Ref:              domain.PersistedRef(d.ID),
		InterventionType: d.InterventionType,
		Name:             d.Name,
		DocumentType:     d.DocumentType,
		DocumentNumber:   d.DocumentNumber,
		Email:            d.Email,
		Contact:          d.Contact,
	}
}

func toPaymentDTO(p domain.Payment, bonus domain.SuccessBonus) paymentDTO {
	return paymentDTO{
		ID:            p.Ref.RemoteID,
		Value:         p.Value,
		CausationDate: WireDate{p.CausationDate},
		PaymentDate:   WireDate{p.PaymentDate},
		Bonus:         toBonusDTO(bonus),
	}
}

func fromPaymentDTO(d paymentDTO) domain.Payment {
	return domain.Payment{
		Ref:           domain.PersistedRef(d.ID),
		Value:         d.Value,
		CausationDate: d.CausationDate.Time,
		PaymentDate:   d.PaymentDate.Time,
	}
}

func toBonusDTO(b domain.SuccessBonus) bonusDTO {
	return bonusDTO{
		Enabled:       b.Enabled,
		Percentage:    b.Percentage,
		Price:         b.Price,
		CausationDate: WireDate{b.CausationDate},
		PaymentDate:   WireDate{b.PaymentDate},
	}
}

func fromBonusDTO(d bonusDTO) domain.SuccessBonus {
	return domain.SuccessBonus{
		Enabled:       d.Enabled,
		Percentage:    d.Percentage,
		Price:         d.Price,
		CausationDate: d.CausationDate.Time,
		PaymentDate:   d.PaymentDate.Time,
	}
}

func toDocumentDTO(doc domain.Document) documentDTO {
	return documentDTO{
		ID:              doc.Ref.RemoteID,
		Category:        doc.Category,
		Type:            doc.Type,
		SubType:         doc.SubType,
		SettlementDate:  WireDate{doc.SettlementDate},
		Sequence:        doc.Sequence,
		ResponsibleType: doc.ResponsibleType,
		ResponsibleName: doc.ResponsibleName,
		Notes:           doc.Notes,
		FileName:        doc.FileName,
		SystemGenerated: doc.SystemGenerated,
	}
}

func fromDocumentDTO(d documentDTO) domain.Document {
	return domain.Document{
		Ref:             domain.PersistedRef(d.ID),
		Category:        d.Category,
		Type:            d.Type,
		SubType:         d.SubType,
		SettlementDate:  d.SettlementDate.Time,
		Sequence:        d.Sequence,
		ResponsibleType: d.ResponsibleType,
		ResponsibleName: d.ResponsibleName,
		Notes:           d.Notes,
		FileName:        d.FileName,
		SystemGenerated: d.SystemGenerated,
	}
}

func toGeneralDTO(g domain.GeneralInfo) generalInfoDTO {
	return generalInfoDTO{
		ClientType:     g.ClientType,
		Department:     g.Department,
		City:           g.City,
		Country:        g.Country,
		PersonType:     g.PersonType,
		Jurisdiction:   g.Jurisdiction,
		ProcessType:    g.ProcessType,
		JudicialOffice: g.JudicialOffice,
		CaseNumber:     g.CaseNumber,
	}
}

func toCreateDTO(p CreateRecordPayload) createRecordDTO {
	dto := createRecordDTO{
		ClientType:     p.General.ClientType,
		Department:     p.General.Department,
		City:           p.General.City,
		Country:        p.General.Country,
		PersonType:     p.General.PersonType,
		Jurisdiction:   p.General.Jurisdiction,
		ProcessType:    p.General.ProcessType,
		JudicialOffice: p.General.JudicialOffice,
		CaseNumber:     p.General.CaseNumber,
		CreationDate:   WireDate{p.CreationDate},
		Bonus:          toBonusDTO(p.Bonus),
	}
	for _, part := range p.Parts {
		dto.Parts = append(dto.Parts, toPartDTO(part))
	}
	for _, intervener := range p.Interveners {
		dto.Interveners = append(dto.Interveners, toIntervenerDTO(intervener))
	}
	for _, payment := range p.Payments {
		dto.Payments = append(dto.Payments, toPaymentDTO(payment, p.Bonus))
	}
	for _, doc := range p.Documents {
		dto.Documents = append(dto.Documents, toDocumentDTO(doc))
	}
	return dto
}

func fromRecordDTO(d recordDTO) *domain.Record {
	rec := &domain.Record{
		ID:             domain.CaseID(d.ID),
		ClientType:     d.ClientType,
		Department:     d.Department,
		City:           d.City,
		Country:        d.Country,
		PersonType:     d.PersonType,
		Jurisdiction:   d.Jurisdiction,
		ProcessType:    d.ProcessType,
		JudicialOffice: d.JudicialOffice,
		CaseNumber:     d.CaseNumber,
		Status:         d.Status,
		CreatedAt:      d.CreationDate.Time,
		Bonus:          fromBonusDTO(d.Bonus),
	}
	for _, part := range d.Parts {
		rec.Parts = append(rec.Parts, fromPartDTO(part))
	}
	for _, intervener := range d.Interveners {
		rec.Interveners = append(rec.Interveners, fromIntervenerDTO(intervener))
	}
	for _, payment := range d.Payments {
		rec.Payments = append(rec.Payments, fromPaymentDTO(payment))
	}
	for _, doc := range d.Documents {
		rec.Documents = append(rec.Documents, fromDocumentDTO(doc))
	}
	return rec
}
