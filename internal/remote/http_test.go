package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"caseform/internal/domain"
	"caseform/pkg/sentinel"
)

type HTTPClientSuite struct {
	suite.Suite
	mux    *http.ServeMux
	server *httptest.Server
	client *HTTPClient
}

func (s *HTTPClientSuite) SetupTest() {
	s.mux = http.NewServeMux()
	s.server = httptest.NewServer(s.mux)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.client = NewHTTPClient(s.server.URL, s.server.Client(), logger)
}

func (s *HTTPClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *HTTPClientSuite) TestGetByIDDecodesRecord() {
	s.mux.HandleFunc("GET /records/CASE-0007", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"id": "CASE-0007",
			"department": "Atlántico",
			"city": "Barranquilla",
			"status": "REGISTERED",
			"creation_date": "2024-03-15",
			"procedural_parts": [
				{"id": "PART-1", "role": "plaintiff", "name": "Acme S.A.S."}
			],
			"payments": [
				{"id": "PAY-1", "value": 1500000.50, "causation_date": "2024-03-01", "payment_date": ""}
			]
		}`)
	})

	rec, err := s.client.GetByID(context.Background(), "CASE-0007")

	require.NoError(s.T(), err)
	assert.Equal(s.T(), domain.CaseID("CASE-0007"), rec.ID)
	assert.Equal(s.T(), "Barranquilla", rec.City)
	assert.Equal(s.T(), time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), rec.CreatedAt)

	require.Len(s.T(), rec.Parts, 1)
	assert.True(s.T(), rec.Parts[0].Ref.IsPersisted())
	assert.Equal(s.T(), "PART-1", rec.Parts[0].Ref.RemoteID)
	assert.Equal(s.T(), domain.RolePlaintiff, rec.Parts[0].Role)

	require.Len(s.T(), rec.Payments, 1)
	assert.Equal(s.T(), 1500000.50, rec.Payments[0].Value)
	assert.True(s.T(), rec.Payments[0].PaymentDate.IsZero(), "empty wire date decodes to zero time")
}

func (s *HTTPClientSuite) TestGetByIDNotFound() {
	s.mux.HandleFunc("GET /records/CASE-9999", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, err := s.client.GetByID(context.Background(), "CASE-9999")

	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *HTTPClientSuite) TestCreateSendsWireDates() {
	var got createRecordDTO
	s.mux.HandleFunc("POST /records", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(s.T(), json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"id": "CASE-0001", "status": "REGISTERED"}`)
	})

	rec, err := s.client.Create(context.Background(), CreateRecordPayload{
		General:      domain.GeneralInfo{Department: "Atlántico", City: "Barranquilla"},
		CreationDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Documents:    []domain.Document{domain.PlaceholderDocument()},
	})

	require.NoError(s.T(), err)
	assert.Equal(s.T(), domain.CaseID("CASE-0001"), rec.ID)
	assert.Equal(s.T(), "2024-06-01", got.CreationDate.Format(wireDateLayout))
	require.Len(s.T(), got.Documents, 1)
	assert.True(s.T(), got.Documents[0].SystemGenerated)
	assert.Empty(s.T(), got.Documents[0].ID, "temporary identifiers never cross the wire")
}

func (s *HTTPClientSuite) TestRejectionSurfacesMessages() {
	s.mux.HandleFunc("POST /records", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"message": ["case number already registered"]}`)
	})

	_, err := s.client.Create(context.Background(), CreateRecordPayload{
		Documents: []domain.Document{domain.PlaceholderDocument()},
	})

	var rejection *Rejection
	require.ErrorAs(s.T(), err, &rejection)
	assert.Equal(s.T(), "case number already registered", rejection.Error())
}

func (s *HTTPClientSuite) TestActionIllegalTransition() {
	s.mux.HandleFunc("POST /records/CASE-0001/actions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"message": "INVALID_STATUS_TRANSITION: already closed"}`)
	})

	err := s.client.Services().Actions.Create(context.Background(), "CASE-0001", domain.ProceduralAction{
		TargetStatus: "CLOSED",
	})

	assert.True(s.T(), errors.Is(err, ErrIllegalTransition))
}

func (s *HTTPClientSuite) TestOpaqueFailureBecomesTransportError() {
	s.mux.HandleFunc("DELETE /parties/PART-1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `<html>upstream down</html>`)
	})

	err := s.client.Services().Parties.Delete(context.Background(), "PART-1")

	assert.ErrorIs(s.T(), err, sentinel.ErrUnavailable)
}

func (s *HTTPClientSuite) TestDocumentUploadIsMultipart() {
	var contentType, fileName, fileBody string
	var meta documentDTO
	s.mux.HandleFunc("POST /records/CASE-0001/documents", func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		require.NoError(s.T(), r.ParseMultipartForm(1<<20))
		require.NoError(s.T(), json.Unmarshal([]byte(r.FormValue("metadata")), &meta))
		file, header, err := r.FormFile("file")
		require.NoError(s.T(), err)
		defer file.Close()
		fileName = header.Filename
		raw, _ := io.ReadAll(file)
		fileBody = string(raw)
		io.WriteString(w, `{"id": "DOC-1"}`)
	})

	doc := domain.Document{
		Ref:      domain.NewTemporaryRef(),
		Category: "EVIDENCE",
		Type:     "CONTRACT",
		FileName: "contrato.pdf",
	}
	id, err := s.client.Services().Documents.Create(
		context.Background(), "CASE-0001", doc, strings.NewReader("%PDF-1.4"))

	require.NoError(s.T(), err)
	assert.Equal(s.T(), "DOC-1", id)
	assert.Contains(s.T(), contentType, "multipart/form-data")
	assert.Equal(s.T(), "EVIDENCE", meta.Category)
	assert.Equal(s.T(), "contrato.pdf", fileName)
	assert.Equal(s.T(), "%PDF-1.4", fileBody)
}

func TestHTTPClientSuite(t *testing.T) {
	suite.Run(t, new(HTTPClientSuite))
}

func TestWireDateRoundTrip(t *testing.T) {
	raw, err := json.Marshal(WireDate{time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, `"2024-12-31"`, string(raw))

	var decoded WireDate
	require.NoError(t, json.Unmarshal([]byte(`"2024-12-31"`), &decoded))
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), decoded.Time)

	require.NoError(t, json.Unmarshal([]byte(`""`), &decoded))
	assert.True(t, decoded.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"31/12/2024"`), &decoded))
}
