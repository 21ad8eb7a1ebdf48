// Package httptransport is the thin HTTP layer over the form-session engine.
// It delegates to sessions without embedding business logic so transport
// concerns remain isolated.
package httptransport

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"caseform/internal/domain"
	"caseform/internal/form"
	"caseform/internal/platform/metrics"
	"caseform/internal/platform/middleware"
	"caseform/internal/reconcile"
	"caseform/internal/record"
	"caseform/internal/session"
	"caseform/pkg/apperr"
)

const maxUploadBytes = 32 << 20

// Handler exposes the session lifecycle and every form operation over HTTP.
type Handler struct {
	sessions  *session.Manager
	validator middleware.JWTValidator
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewHandler creates the HTTP handler. A nil validator disables authentication,
// which is the development mode.
func NewHandler(
	sessions *session.Manager,
	validator middleware.JWTValidator,
	m *metrics.Metrics,
	logger *slog.Logger) *Handler {
	return &Handler{
		sessions:  sessions,
		validator: validator,
		metrics:   m,
		logger:    logger,
	}
}

// Register registers the session routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	api := chi.NewRouter()
	api.Use(middleware.Recovery(h.logger))
	api.Use(middleware.RequestID)
	api.Use(middleware.Logger(h.logger))
	api.Use(middleware.Latency(h.metrics))
	if h.validator != nil {
		api.Use(middleware.RequireAuth(h.validator, h.logger))
	}

	api.Post("/sessions", h.handleOpenSession)
	api.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleGetSession)
		r.Delete("/", h.handleCloseSession)
		r.Post("/hydrate", h.handleHydrate)
		r.Put("/fields/{field}", h.handleSetField)
		r.Put("/bonus", h.handleSetBonus)
		r.Post("/case", h.handleCreateCase)
		r.Put("/general", h.handleSaveGeneral)
		r.Post("/actions", h.handleSaveAction)
		r.Post("/commit/{section}", h.handleCommit)

		r.Post("/parties", h.handleAddParty)
		r.Put("/parties", h.handleEditParty)
		r.Delete("/parties", h.handleRemoveParty)

		r.Post("/interveners", h.handleAddIntervener)
		r.Put("/interveners", h.handleEditIntervener)
		r.Delete("/interveners", h.handleRemoveIntervener)

		r.Post("/payments", h.handleAddPayment)
		r.Put("/payments", h.handleEditPayment)
		r.Delete("/payments", h.handleRemovePayment)

		r.Post("/documents", h.handleAddDocument)
		r.Put("/documents", h.handleEditDocument)
		r.Delete("/documents", h.handleRemoveDocument)
		r.Put("/document-draft", h.handleSetDraftDocument)
		r.Post("/document-draft/confirm", h.handleConfirmDraftDocument)
		r.Post("/documents/{localID}/file", h.handleAttachFile)
	})

	r.Mount("/", api)
}

// session resolves the path session. A false return means the error response
// was already written.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		WriteError(w, apperr.New(apperr.CodeBadRequest, "invalid session id"))
		return nil, false
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		WriteError(w, err)
		return nil, false
	}
	return sess, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, apperr.New(apperr.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

type openSessionRequest struct {
	CaseID string `json:"case_id"`
}

func (h *Handler) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, apperr.New(apperr.CodeBadRequest, "invalid request body"))
		return
	}

	ctx := r.Context()
	sess := h.sessions.Open(ctx)
	h.metrics.SetOpenSessions(h.sessions.Len())

	if req.CaseID != "" {
		if _, err := sess.Hydrate(ctx, domain.CaseID(req.CaseID)); err != nil {
			h.sessions.Close(ctx, sess.ID)
			h.metrics.SetOpenSessions(h.sessions.Len())
			WriteError(w, err)
			return
		}
	} else {
		sess.Prepare(ctx)
	}

	respond(w, http.StatusCreated, toSessionDTO(sess))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, toSessionDTO(sess))
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		WriteError(w, apperr.New(apperr.CodeBadRequest, "invalid session id"))
		return
	}
	h.sessions.Close(r.Context(), id)
	h.metrics.SetOpenSessions(h.sessions.Len())
	w.WriteHeader(http.StatusNoContent)
}

type hydrateRequest struct {
	CaseID string `json:"case_id"`
}

func (h *Handler) handleHydrate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req hydrateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := sess.Hydrate(r.Context(), domain.CaseID(req.CaseID))
	if err != nil {
		WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, toRecordDTO(rec))
}

type setFieldRequest struct {
	Value string `json:"value"`
}

type fieldChangeResponse struct {
	Fields       map[string]string   `json:"fields"`
	Options      map[string][]string `json:"options,omitempty"`
	ManualOffice bool                `json:"manual_office"`
	Notices      []noticeDTO         `json:"notices"`
}

func (h *Handler) handleSetField(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	field := form.Field(chi.URLParam(r, "field"))
	if !knownField(field) {
		WriteError(w, apperr.Newf(apperr.CodeBadRequest, "unknown field %q", field))
		return
	}
	var req setFieldRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sess.State.Set(field, req.Value)

	resp := fieldChangeResponse{
		Fields:  fieldsDTO(sess.State.Snapshot()),
		Notices: toNoticeDTOs(sess.Notices()),
	}
	if resolver := sess.Hydration.Resolver(); resolver != nil {
		resp.Options = optionsDTO(resolver)
		resp.ManualOffice = resolver.ManualOffice()
	}
	respond(w, http.StatusOK, resp)
}

func knownField(field form.Field) bool {
	switch field {
	case form.FieldClientType, form.FieldDepartment, form.FieldCity,
		form.FieldCountry, form.FieldPersonType, form.FieldJurisdiction,
		form.FieldProcessType, form.FieldJudicialOffice, form.FieldCaseNumber:
		return true
	}
	return false
}

func (h *Handler) handleSetBonus(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var dto bonusDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	sess.Orchestrator.SetBonus(fromBonusDTO(dto))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	rec, err := sess.CreateCase(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	respond(w, http.StatusCreated, toRecordDTO(rec))
}

func (h *Handler) handleSaveGeneral(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	rec, err := sess.SaveGeneral(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, toRecordDTO(rec))
}

func (h *Handler) handleSaveAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var dto actionDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	if err := sess.SaveAction(r.Context(), fromActionDTO(dto)); err != nil {
		WriteError(w, err)
		return
	}
	if rec := sess.Hydration.Current(); rec != nil {
		respond(w, http.StatusOK, toRecordDTO(rec))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	section := record.CommitSection(chi.URLParam(r, "section"))
	outcome, err := sess.Commit(r.Context(), section)
	if err != nil {
		WriteError(w, err)
		return
	}
	// Per-item failures are part of the outcome, not an HTTP-level error:
	// failed items stay drafts and a re-trigger retries only them.
	respond(w, http.StatusOK, toOutcomeDTO(outcome))
}

// handleAdd stages a draft in one collection. No remote effect.
func handleAdd[D, T any](
	h *Handler,
	w http.ResponseWriter,
	r *http.Request,
	pick func(*session.Session) *reconcile.Collection[T],
	from func(D) T,
	to func(T) D) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var dto D
	if !decodeBody(w, r, &dto) {
		return
	}
	added := pick(sess).Add(from(dto))
	respond(w, http.StatusCreated, to(added))
}

type editRequest[D any] struct {
	Target  D `json:"target"`
	Updated D `json:"updated"`
}

func handleEdit[D, T any](
	h *Handler,
	w http.ResponseWriter,
	r *http.Request,
	pick func(*session.Session) *reconcile.Collection[T],
	from func(D) T,
	to func(T) D) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req editRequest[D]
	if !decodeBody(w, r, &req) {
		return
	}
	col := pick(sess)
	if err := col.Edit(r.Context(), from(req.Target), from(req.Updated)); err != nil {
		WriteError(w, err)
		return
	}
	items := col.Items()
	dtos := make([]D, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, to(item))
	}
	respond(w, http.StatusOK, dtos)
}

func handleRemove[D, T any](
	h *Handler,
	w http.ResponseWriter,
	r *http.Request,
	pick func(*session.Session) *reconcile.Collection[T],
	from func(D) T) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var dto D
	if !decodeBody(w, r, &dto) {
		return
	}
	if err := pick(sess).Remove(r.Context(), from(dto)); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pickParties(s *session.Session) *reconcile.Collection[domain.ProceduralPart] {
	return s.Collections.Parties
}

func pickInterveners(s *session.Session) *reconcile.Collection[domain.Intervener] {
	return s.Collections.Interveners
}

func pickPayments(s *session.Session) *reconcile.Collection[domain.Payment] {
	return s.Collections.Payments
}

func pickDocuments(s *session.Session) *reconcile.Collection[domain.Document] {
	return s.Collections.Documents
}

func (h *Handler) handleAddParty(w http.ResponseWriter, r *http.Request) {
	handleAdd(h, w, r, pickParties, fromPartyDTO, toPartyDTO)
}

func (h *Handler) handleEditParty(w http.ResponseWriter, r *http.Request) {
	handleEdit(h, w, r, pickParties, fromPartyDTO, toPartyDTO)
}

func (h *Handler) handleRemoveParty(w http.ResponseWriter, r *http.Request) {
	handleRemove(h, w, r, pickParties, fromPartyDTO)
}

func (h *Handler) handleAddIntervener(w http.ResponseWriter, r *http.Request) {
	handleAdd(h, w, r, pickInterveners, fromIntervenerDTO, toIntervenerDTO)
}

func (h *Handler) handleEditIntervener(w http.ResponseWriter, r *http.Request) {
	handleEdit(h, w, r, pickInterveners, fromIntervenerDTO, toIntervenerDTO)
}

func (h *Handler) handleRemoveIntervener(w http.ResponseWriter, r *http.Request) {
	handleRemove(h, w, r, pickInterveners, fromIntervenerDTO)
}

func (h *Handler) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	handleAdd(h, w, r, pickPayments, fromPaymentDTO, toPaymentDTO)
}

func (h *Handler) handleEditPayment(w http.ResponseWriter, r *http.Request) {
	handleEdit(h, w, r, pickPayments, fromPaymentDTO, toPaymentDTO)
}

func (h *Handler) handleRemovePayment(w http.ResponseWriter, r *http.Request) {
	handleRemove(h, w, r, pickPayments, fromPaymentDTO)
}

func (h *Handler) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	handleAdd(h, w, r, pickDocuments, fromDocumentDTO, toDocumentDTO)
}

func (h *Handler) handleEditDocument(w http.ResponseWriter, r *http.Request) {
	handleEdit(h, w, r, pickDocuments, fromDocumentDTO, toDocumentDTO)
}

func (h *Handler) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	handleRemove(h, w, r, pickDocuments, fromDocumentDTO)
}

func (h *Handler) handleSetDraftDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var dto documentDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	sess.Orchestrator.SetDraftDocument(fromDocumentDTO(dto))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleConfirmDraftDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Orchestrator.ConfirmDraftDocument(); err != nil {
		WriteError(w, err)
		return
	}
	items := sess.Collections.Documents.Items()
	dtos := make([]documentDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, toDocumentDTO(item))
	}
	respond(w, http.StatusOK, dtos)
}

// handleAttachFile stages an uploaded file for the draft document addressed by
// its temporary identity. The bytes travel with the document's create call.
func (h *Handler) handleAttachFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	localID, err := uuid.Parse(chi.URLParam(r, "localID"))
	if err != nil {
		WriteError(w, apperr.New(apperr.CodeBadRequest, "invalid document id"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteError(w, apperr.New(apperr.CodeBadRequest, "invalid multipart body"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		WriteError(w, apperr.New(apperr.CodeBadRequest, "missing file field"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		WriteError(w, apperr.Wrap(apperr.CodeInternal, "read upload", err))
		return
	}

	sess.Attach(domain.EntityRef{Kind: domain.KindTemporary, LocalID: localID}, bytes.NewReader(data))
	w.WriteHeader(http.StatusNoContent)
}
