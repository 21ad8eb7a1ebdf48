package httptransport

import (
	"time"

	"github.com/google/uuid"

	"caseform/internal/cascade"
	"caseform/internal/domain"
	"caseform/internal/form"
	"caseform/internal/reconcile"
	"caseform/internal/session"
)

// refDTO is the API shape of an entity identity: drafts carry the ephemeral
// local_id, persisted entities the server-assigned remote_id.
type refDTO struct {
	LocalID  string `json:"local_id,omitempty"`
	RemoteID string `json:"remote_id,omitempty"`
}

func toRefDTO(ref domain.EntityRef) refDTO {
	if ref.IsPersisted() {
		return refDTO{RemoteID: ref.RemoteID}
	}
	if ref.LocalID == uuid.Nil {
		return refDTO{}
	}
	return refDTO{LocalID: ref.LocalID.String()}
}

func fromRefDTO(dto refDTO) domain.EntityRef {
	if dto.RemoteID != "" {
		return domain.PersistedRef(dto.RemoteID)
	}
	if id, err := uuid.Parse(dto.LocalID); err == nil {
		return domain.EntityRef{Kind: domain.KindTemporary, LocalID: id}
	}
	return domain.EntityRef{}
}

type partyDTO struct {
	Ref            refDTO `json:"ref"`
	Role           string `json:"role"`
	Name           string `json:"name"`
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
	Email          string `json:"email,omitempty"`
	Contact        string `json:"contact,omitempty"`
}

func fromPartyDTO(dto partyDTO) domain.ProceduralPart {
	return domain.ProceduralPart{
		Ref:            fromRefDTO(dto.Ref),
		Role:           domain.PartyRole(dto.Role),
		Name:           dto.Name,
		DocumentType:   dto.DocumentType,
		DocumentNumber: dto.DocumentNumber,
		Email:          dto.Email,
		Contact:        dto.Contact,
	}
}

func toPartyDTO(p domain.ProceduralPart) partyDTO {
	return partyDTO{
		Ref:            toRefDTO(p.Ref),
		Role:           string(p.Role),
		Name:           p.Name,
		DocumentType:   p.DocumentType,
		DocumentNumber: p.DocumentNumber,
		Email:          p.Email,
		Contact:        p.Contact,
	}
}

type intervenerDTO struct {
	Ref              refDTO `json:"ref"`
	InterventionType string `json:"intervention_type"`
	Name             string `json:"name"`
	DocumentType     string `json:"document_type"`
	DocumentNumber   string `json:"document_number"`
	Email            string `json:"email,omitempty"`
	Contact          string `json:"contact,omitempty"`
}

func fromIntervenerDTO(dto intervenerDTO) domain.Intervener {
	return domain.Intervener{
		Ref:              fromRefDTO(dto.Ref),
		InterventionType: dto.InterventionType,
		Name:             dto.Name,
		DocumentType:     dto.DocumentType,
		DocumentNumber:   dto.DocumentNumber,
		Email:            dto.Email,
		Contact:          dto.Contact,
	}
}

func toIntervenerDTO(i domain.Intervener) intervenerDTO {
	return intervenerDTO{
		Ref:              toRefDTO(i.Ref),
		InterventionType: i.InterventionType,
		Name:             i.Name,
		DocumentType:     i.DocumentType,
		DocumentNumber:   i.DocumentNumber,
		Email:            i.Email,
		Contact:          i.Contact,
	}
}

type paymentDTO struct {
	Ref           refDTO    `json:"ref"`
	Value         float64   `json:"value"`
	CausationDate time.Time `json:"causation_date,omitzero"`
	PaymentDate   time.Time `json:"payment_date,omitzero"`
}

func fromPaymentDTO(dto paymentDTO) domain.Payment {
	return domain.Payment{
		Ref:           fromRefDTO(dto.Ref),
		Value:         dto.Value,
		CausationDate: dto.CausationDate,
		PaymentDate:   dto.PaymentDate,
	}
}

func toPaymentDTO(p domain.Payment) paymentDTO {
	return paymentDTO{
		Ref:           toRefDTO(p.Ref),
		Value:         p.Value,
		CausationDate: p.CausationDate,
		PaymentDate:   p.PaymentDate,
	}
}

type bonusDTO struct {
	Enabled       bool      `json:"enabled"`
	Percentage    float64   `json:"percentage,omitempty"`
	Price         float64   `json:"price,omitempty"`
	CausationDate time.Time `json:"causation_date,omitzero"`
	PaymentDate   time.Time `json:"payment_date,omitzero"`
}

func fromBonusDTO(dto bonusDTO) domain.SuccessBonus {
	return domain.SuccessBonus{
		Enabled:       dto.Enabled,
		Percentage:    dto.Percentage,
		Price:         dto.Price,
		CausationDate: dto.CausationDate,
		PaymentDate:   dto.PaymentDate,
	}
}

func toBonusDTO(b domain.SuccessBonus) bonusDTO {
	return bonusDTO{
		Enabled:       b.Enabled,
		Percentage:    b.Percentage,
		Price:         b.Price,
		CausationDate: b.CausationDate,
		PaymentDate:   b.PaymentDate,
	}
}

type documentDTO struct {
	Ref             refDTO    `json:"ref"`
	Category        string    `json:"category"`
	Type            string    `json:"type"`
	SubType         string    `json:"sub_type,omitempty"`
	SettlementDate  time.Time `json:"settlement_date,omitzero"`
	Sequence        string    `json:"sequence,omitempty"`
	ResponsibleType string    `json:"responsible_type,omitempty"`
	ResponsibleName string    `json:"responsible_name,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	FileName        string    `json:"file_name,omitempty"`
	SystemGenerated bool      `json:"system_generated,omitempty"`
}

func fromDocumentDTO(dto documentDTO) domain.Document {
	return domain.Document{
		Ref:             fromRefDTO(dto.Ref),
		Category:        dto.Category,
		Type:            dto.Type,
		SubType:         dto.SubType,
		SettlementDate:  dto.SettlementDate,
		Sequence:        dto.Sequence,
		ResponsibleType: dto.ResponsibleType,
		ResponsibleName: dto.ResponsibleName,
		Notes:           dto.Notes,
		FileName:        dto.FileName,
	}
}

func toDocumentDTO(d domain.Document) documentDTO {
	return documentDTO{
		Ref:             toRefDTO(d.Ref),
		Category:        d.Category,
		Type:            d.Type,
		SubType:         d.SubType,
		SettlementDate:  d.SettlementDate,
		Sequence:        d.Sequence,
		ResponsibleType: d.ResponsibleType,
		ResponsibleName: d.ResponsibleName,
		Notes:           d.Notes,
		FileName:        d.FileName,
		SystemGenerated: d.SystemGenerated,
	}
}

type actionDTO struct {
	TargetStatus string    `json:"target_status"`
	Observation  string    `json:"observation,omitempty"`
	Date         time.Time `json:"date,omitzero"`
}

func fromActionDTO(dto actionDTO) domain.ProceduralAction {
	return domain.ProceduralAction{
		TargetStatus: dto.TargetStatus,
		Observation:  dto.Observation,
		Date:         dto.Date,
	}
}

type recordDTO struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	ClientType     string          `json:"client_type"`
	Department     string          `json:"department"`
	City           string          `json:"city"`
	Country        string          `json:"country,omitempty"`
	PersonType     string          `json:"person_type,omitempty"`
	Jurisdiction   string          `json:"jurisdiction"`
	ProcessType    string          `json:"process_type"`
	JudicialOffice string          `json:"judicial_office"`
	CaseNumber     string          `json:"case_number"`
	CreatedAt      time.Time       `json:"created_at,omitzero"`
	Parts          []partyDTO      `json:"procedural_parts"`
	Interveners    []intervenerDTO `json:"interveners"`
	Payments       []paymentDTO    `json:"payments"`
	Documents      []documentDTO   `json:"documents"`
	Bonus          bonusDTO        `json:"success_bonus"`
}

func toRecordDTO(rec *domain.Record) recordDTO {
	dto := recordDTO{
		ID:             string(rec.ID),
		Status:         rec.Status,
		ClientType:     rec.ClientType,
		Department:     rec.Department,
		City:           rec.City,
		Country:        rec.Country,
		PersonType:     rec.PersonType,
		Jurisdiction:   rec.Jurisdiction,
		ProcessType:    rec.ProcessType,
		JudicialOffice: rec.JudicialOffice,
		CaseNumber:     rec.CaseNumber,
		CreatedAt:      rec.CreatedAt,
		Parts:          make([]partyDTO, 0, len(rec.Parts)),
		Interveners:    make([]intervenerDTO, 0, len(rec.Interveners)),
		Payments:       make([]paymentDTO, 0, len(rec.Payments)),
		Documents:      make([]documentDTO, 0, len(rec.Documents)),
		Bonus:          toBonusDTO(rec.Bonus),
	}
	for _, p := range rec.Parts {
		dto.Parts = append(dto.Parts, toPartyDTO(p))
	}
	for _, i := range rec.Interveners {
		dto.Interveners = append(dto.Interveners, toIntervenerDTO(i))
	}
	for _, p := range rec.Payments {
		dto.Payments = append(dto.Payments, toPaymentDTO(p))
	}
	for _, d := range rec.Documents {
		dto.Documents = append(dto.Documents, toDocumentDTO(d))
	}
	return dto
}

type noticeDTO struct {
	Field       string `json:"field"`
	Value       string `json:"value"`
	Parent      string `json:"parent"`
	ParentValue string `json:"parent_value"`
	Message     string `json:"message"`
}

func toNoticeDTOs(notices []cascade.Notice) []noticeDTO {
	out := make([]noticeDTO, 0, len(notices))
	for _, n := range notices {
		out = append(out, noticeDTO{
			Field:       string(n.Field),
			Value:       n.Value,
			Parent:      string(n.Parent),
			ParentValue: n.ParentValue,
			Message:     n.Message(),
		})
	}
	return out
}

type resultDTO struct {
	Ref   refDTO `json:"ref"`
	Error string `json:"error,omitempty"`
}

type outcomeDTO struct {
	Succeeded    int         `json:"succeeded"`
	Failed       int         `json:"failed"`
	Error        string      `json:"error,omitempty"`
	RefreshError string      `json:"refresh_error,omitempty"`
	Results      []resultDTO `json:"results"`
}

func toOutcomeDTO(outcome reconcile.Outcome) outcomeDTO {
	dto := outcomeDTO{
		Succeeded: outcome.Succeeded(),
		Failed:    outcome.Failed(),
		Results:   make([]resultDTO, 0, len(outcome.Results)),
	}
	if err := outcome.Err(); err != nil {
		dto.Error = err.Error()
	}
	if outcome.RefreshErr != nil {
		dto.RefreshError = outcome.RefreshErr.Error()
	}
	for _, res := range outcome.Results {
		r := resultDTO{Ref: toRefDTO(res.Ref)}
		if res.Err != nil {
			r.Error = res.Err.Error()
		}
		dto.Results = append(dto.Results, r)
	}
	return dto
}

type sessionDTO struct {
	ID              string              `json:"id"`
	CreatedAt       time.Time           `json:"created_at"`
	Phase           string              `json:"phase"`
	CaseID          string              `json:"case_id,omitempty"`
	Fields          map[string]string   `json:"fields"`
	Options         map[string][]string `json:"options,omitempty"`
	ManualOffice    bool                `json:"manual_office"`
	CatalogDegraded bool                `json:"catalog_degraded,omitempty"`
	Parties         []partyDTO          `json:"parties"`
	Interveners     []intervenerDTO     `json:"interveners"`
	Payments        []paymentDTO        `json:"payments"`
	Documents       []documentDTO       `json:"documents"`
	Bonus           bonusDTO            `json:"success_bonus"`
}

func toSessionDTO(sess *session.Session) sessionDTO {
	dto := sessionDTO{
		ID:              sess.ID.String(),
		CreatedAt:       sess.CreatedAt,
		Phase:           sess.Hydration.Phase().String(),
		CaseID:          string(sess.Orchestrator.CaseID()),
		Fields:          fieldsDTO(sess.State.Snapshot()),
		CatalogDegraded: sess.Hydration.CatalogDegraded(),
		Bonus:           toBonusDTO(sess.Orchestrator.Bonus()),
	}
	if resolver := sess.Hydration.Resolver(); resolver != nil {
		dto.Options = optionsDTO(resolver)
		dto.ManualOffice = resolver.ManualOffice()
	}

	dto.Parties = make([]partyDTO, 0, sess.Collections.Parties.Len())
	for _, p := range sess.Collections.Parties.Items() {
		dto.Parties = append(dto.Parties, toPartyDTO(p))
	}
	dto.Interveners = make([]intervenerDTO, 0, sess.Collections.Interveners.Len())
	for _, i := range sess.Collections.Interveners.Items() {
		dto.Interveners = append(dto.Interveners, toIntervenerDTO(i))
	}
	dto.Payments = make([]paymentDTO, 0, sess.Collections.Payments.Len())
	for _, p := range sess.Collections.Payments.Items() {
		dto.Payments = append(dto.Payments, toPaymentDTO(p))
	}
	dto.Documents = make([]documentDTO, 0, sess.Collections.Documents.Len())
	for _, d := range sess.Collections.Documents.Items() {
		dto.Documents = append(dto.Documents, toDocumentDTO(d))
	}
	return dto
}

func fieldsDTO(snap form.Snapshot) map[string]string {
	out := make(map[string]string, len(snap))
	for field, value := range snap {
		out[string(field)] = value
	}
	return out
}

// optionsDTO exposes the dependent-field option sets the resolver currently
// holds.
func optionsDTO(resolver *cascade.Resolver) map[string][]string {
	out := make(map[string][]string)
	for _, field := range []form.Field{form.FieldCity, form.FieldJudicialOffice, form.FieldProcessType} {
		if opts := resolver.Options(field); len(opts) > 0 {
			out[string(field)] = opts
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
