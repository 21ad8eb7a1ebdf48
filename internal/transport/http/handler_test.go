package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"caseform/internal/audit"
	"caseform/internal/catalog"
	"caseform/internal/jwttoken"
	"caseform/internal/remote"
	"caseform/internal/session"
)

type staticSource struct {
	data catalog.Data
}

func (s staticSource) Load(context.Context) (catalog.Data, error) {
	return s.data, nil
}

func testData() catalog.Data {
	return catalog.Data{
		Departments: []catalog.Department{
			{Name: "Atlántico", Cities: []string{"Barranquilla", "Soledad"}},
			{Name: "Antioquia", Cities: []string{"Medellín"}},
		},
		Offices: []catalog.JudicialOffice{
			{Code: "080013103001", Name: "Juzgado 1 Civil del Circuito de Barranquilla", City: "Barranquilla"},
		},
		Jurisdictions: []catalog.Jurisdiction{
			{Key: "CIVIL", Name: "Jurisdicción Civil", ProcessTypes: []catalog.ProcessType{
				{Key: "ORDINARIO", Name: "Proceso Ordinario"},
			}},
		},
	}
}

type HandlerSuite struct {
	suite.Suite
	backend *remote.Memory
	manager *session.Manager
	router  http.Handler
}

func (s *HandlerSuite) SetupTest() {
	s.backend = remote.NewMemory()
	s.manager = session.NewManager(session.ManagerConfig{
		Services: s.backend.Services(),
		Catalog:  catalog.NewCache(staticSource{testData()}),
		Audit:    audit.NewPublisher(audit.NewInMemoryStore()),
		Logger:   slog.New(slog.DiscardHandler),
	})
	handler := NewHandler(s.manager, nil, nil, slog.New(slog.DiscardHandler))
	s.router = NewRouter(handler)
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) decode(w *httptest.ResponseRecorder, v any) {
	require.NoError(s.T(), json.NewDecoder(w.Body).Decode(v))
}

func (s *HandlerSuite) openSession() sessionDTO {
	w := s.do(http.MethodPost, "/sessions", nil)
	require.Equal(s.T(), http.StatusCreated, w.Code)
	var dto sessionDTO
	s.decode(w, &dto)
	return dto
}

func (s *HandlerSuite) setField(sessionID, field, value string) *httptest.ResponseRecorder {
	return s.do(http.MethodPut,
		fmt.Sprintf("/sessions/%s/fields/%s", sessionID, field),
		setFieldRequest{Value: value})
}

func (s *HandlerSuite) fillForm(sessionID string) {
	for field, value := range map[string]string{
		"client_type":     "COMPANY",
		"department":      "Atlántico",
		"city":            "Barranquilla",
		"jurisdiction":    "CIVIL",
		"process_type":    "Proceso Ordinario",
		"judicial_office": "Juzgado 1 Civil del Circuito de Barranquilla",
		"case_number":     "08001-31-03-001-2024-00123-00",
	} {
		w := s.setField(sessionID, field, value)
		require.Equal(s.T(), http.StatusOK, w.Code, field)
	}
}

func (s *HandlerSuite) TestOpenAndGetSession() {
	opened := s.openSession()
	assert.Equal(s.T(), "unloaded", opened.Phase)
	_, err := uuid.Parse(opened.ID)
	require.NoError(s.T(), err)

	w := s.do(http.MethodGet, "/sessions/"+opened.ID, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	var got sessionDTO
	s.decode(w, &got)
	assert.Equal(s.T(), opened.ID, got.ID)
}

func (s *HandlerSuite) TestUnknownSessionIs404() {
	w := s.do(http.MethodGet, "/sessions/"+uuid.NewString(), nil)
	require.Equal(s.T(), http.StatusNotFound, w.Code)

	var env errorEnvelope
	s.decode(w, &env)
	assert.Equal(s.T(), "not_found", env.Error)
}

func (s *HandlerSuite) TestUnknownFieldIs400() {
	opened := s.openSession()
	w := s.setField(opened.ID, "color", "blue")
	require.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestCreationFlow() {
	opened := s.openSession()
	s.fillForm(opened.ID)

	w := s.do(http.MethodPost, "/sessions/"+opened.ID+"/payments",
		paymentDTO{Value: 1500000})
	require.Equal(s.T(), http.StatusCreated, w.Code)
	var added paymentDTO
	s.decode(w, &added)
	assert.NotEmpty(s.T(), added.Ref.LocalID, "draft gets a temporary identity")
	assert.Empty(s.T(), added.Ref.RemoteID)

	w = s.do(http.MethodPost, "/sessions/"+opened.ID+"/case", nil)
	require.Equal(s.T(), http.StatusCreated, w.Code)
	var rec recordDTO
	s.decode(w, &rec)
	assert.NotEmpty(s.T(), rec.ID)
	require.Len(s.T(), rec.Payments, 1)
	assert.NotEmpty(s.T(), rec.Payments[0].Ref.RemoteID)
	require.Len(s.T(), rec.Documents, 1)
	assert.True(s.T(), rec.Documents[0].SystemGenerated)

	// Authority moved server-side: the local collections are cleared.
	w = s.do(http.MethodGet, "/sessions/"+opened.ID, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	var view sessionDTO
	s.decode(w, &view)
	assert.Empty(s.T(), view.Payments)
	assert.Equal(s.T(), rec.ID, view.CaseID)
}

func (s *HandlerSuite) TestCreateWithoutRequiredFieldsIs400() {
	opened := s.openSession()

	w := s.do(http.MethodPost, "/sessions/"+opened.ID+"/case", nil)
	require.Equal(s.T(), http.StatusBadRequest, w.Code)

	var env errorEnvelope
	s.decode(w, &env)
	assert.Equal(s.T(), "bad_request", env.Error)
	assert.Contains(s.T(), env.Message, "client_type")
}

func (s *HandlerSuite) TestCascadeNoticeSurfaces() {
	opened := s.openSession()
	require.Equal(s.T(), http.StatusOK, s.setField(opened.ID, "department", "Atlántico").Code)
	require.Equal(s.T(), http.StatusOK, s.setField(opened.ID, "city", "Barranquilla").Code)

	w := s.setField(opened.ID, "department", "Antioquia")
	require.Equal(s.T(), http.StatusOK, w.Code)

	var resp fieldChangeResponse
	s.decode(w, &resp)
	require.Len(s.T(), resp.Notices, 1)
	assert.Equal(s.T(), "city", resp.Notices[0].Field)
	assert.Equal(s.T(), "Barranquilla", resp.Notices[0].Value)
	assert.Equal(s.T(), "", resp.Fields["city"])
	assert.Equal(s.T(), []string{"Medellín"}, resp.Options["city"])
}

func (s *HandlerSuite) createCase() recordDTO {
	opened := s.openSession()
	s.fillForm(opened.ID)
	w := s.do(http.MethodPost, "/sessions/"+opened.ID+"/case", nil)
	require.Equal(s.T(), http.StatusCreated, w.Code)
	var rec recordDTO
	s.decode(w, &rec)
	return rec
}

func (s *HandlerSuite) TestEditFlowCommitsSection() {
	created := s.createCase()

	// A fresh session opened on the case hydrates during open.
	w := s.do(http.MethodPost, "/sessions", openSessionRequest{CaseID: created.ID})
	require.Equal(s.T(), http.StatusCreated, w.Code)
	var editor sessionDTO
	s.decode(w, &editor)
	assert.Equal(s.T(), "ready", editor.Phase)
	assert.Equal(s.T(), "Barranquilla", editor.Fields["city"])

	w = s.do(http.MethodPost, "/sessions/"+editor.ID+"/parties", partyDTO{
		Role: "plaintiff", Name: "Acme S.A.S.", DocumentType: "NIT", DocumentNumber: "900123",
	})
	require.Equal(s.T(), http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/sessions/"+editor.ID+"/commit/parties", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	var outcome outcomeDTO
	s.decode(w, &outcome)
	assert.Equal(s.T(), 1, outcome.Succeeded)
	assert.Zero(s.T(), outcome.Failed)
	require.Len(s.T(), outcome.Results, 1)
	assert.NotEmpty(s.T(), outcome.Results[0].Ref.RemoteID)

	// The post-commit refresh installed the authoritative copy.
	w = s.do(http.MethodGet, "/sessions/"+editor.ID, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	var view sessionDTO
	s.decode(w, &view)
	require.Len(s.T(), view.Parties, 1)
	assert.NotEmpty(s.T(), view.Parties[0].Ref.RemoteID)
}

func (s *HandlerSuite) TestIllegalTransitionIsConflict() {
	created := s.createCase()

	w := s.do(http.MethodPost, "/sessions", openSessionRequest{CaseID: created.ID})
	require.Equal(s.T(), http.StatusCreated, w.Code)
	var editor sessionDTO
	s.decode(w, &editor)

	w = s.do(http.MethodPost, "/sessions/"+editor.ID+"/actions",
		actionDTO{TargetStatus: "IN_PROGRESS", Observation: "audiencia fijada"})
	require.Equal(s.T(), http.StatusOK, w.Code)
	var rec recordDTO
	s.decode(w, &rec)
	assert.Equal(s.T(), "IN_PROGRESS", rec.Status)

	w = s.do(http.MethodPost, "/sessions/"+editor.ID+"/actions",
		actionDTO{TargetStatus: "IN_PROGRESS"})
	require.Equal(s.T(), http.StatusConflict, w.Code)
	var env errorEnvelope
	s.decode(w, &env)
	assert.Equal(s.T(), "conflict", env.Error)
	assert.Contains(s.T(), env.Message, "not allowed")
}

func (s *HandlerSuite) TestCloseSession() {
	opened := s.openSession()

	w := s.do(http.MethodDelete, "/sessions/"+opened.ID, nil)
	require.Equal(s.T(), http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/sessions/"+opened.ID, nil)
	require.Equal(s.T(), http.StatusNotFound, w.Code)
}

type failingSource struct{}

func (failingSource) Load(context.Context) (catalog.Data, error) {
	return catalog.Data{}, errors.New("catalog service unavailable")
}

func (s *HandlerSuite) TestOpenSessionDegradesOnCatalogOutage() {
	manager := session.NewManager(session.ManagerConfig{
		Services: s.backend.Services(),
		Catalog:  catalog.NewCache(failingSource{}),
		Audit:    audit.NewPublisher(audit.NewInMemoryStore()),
		Logger:   slog.New(slog.DiscardHandler),
	})
	router := NewRouter(NewHandler(manager, nil, nil, slog.New(slog.DiscardHandler)))

	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// A catalog outage degrades the session to manual entry instead of
	// blocking case creation.
	require.Equal(s.T(), http.StatusCreated, w.Code)
	var dto sessionDTO
	require.NoError(s.T(), json.NewDecoder(w.Body).Decode(&dto))
	assert.True(s.T(), dto.CatalogDegraded)
	assert.Equal(s.T(), "unloaded", dto.Phase)
}

func (s *HandlerSuite) TestHealthz() {
	w := s.do(http.MethodGet, "/healthz", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func TestRequireAuthGuardsRoutes(t *testing.T) {
	backend := remote.NewMemory()
	manager := session.NewManager(session.ManagerConfig{
		Services: backend.Services(),
		Catalog:  catalog.NewCache(staticSource{testData()}),
		Audit:    audit.NewPublisher(audit.NewInMemoryStore()),
		Logger:   slog.New(slog.DiscardHandler),
	})
	tokens := jwttoken.NewJWTService("test-key", "caseform", "caseform-api")
	handler := NewHandler(manager, tokens, nil, slog.New(slog.DiscardHandler))
	router := NewRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := tokens.GenerateAccessToken("abogado@firma.co", uuid.NewString(), time.Hour)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPost, "/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}
