package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"

	"caseform/internal/domain"
	"caseform/pkg/sentinel"
)

// HTTPClient talks to the remote case-management service. One client serves
// all six collaborator roles; Services() fans it out.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewHTTPClient builds a client against the service base URL. The http.Client
// carries no internal timeout of its own here; deadlines come from the caller
// context.
func NewHTTPClient(baseURL string, client *http.Client, logger *slog.Logger) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{
		baseURL: baseURL,
		http:    client,
		logger:  logger.With(slog.String("component", "remote_client")),
	}
}

// Services fans the client out into the per-collection collaborator bundle.
func (c *HTTPClient) Services() Services {
	return Services{
		Records:     c,
		Parties:     (*partyClient)(c),
		Interveners: (*intervenerClient)(c),
		Payments:    (*paymentClient)(c),
		Documents:   (*documentClient)(c),
		Actions:     (*actionClient)(c),
	}
}

// do issues one JSON round trip. Failure bodies are decoded through
// ParseFailure first; anything else becomes a transport error.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.failure(method, path, resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *HTTPClient) failure(method, path string, resp *http.Response) error {
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if readErr == nil {
		if rejection := ParseFailure(raw); rejection != nil {
			c.logger.Warn("remote rejection",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
				slog.String("detail", rejection.Error()))
			return rejection
		}
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, sentinel.ErrNotFound)
	}
	c.logger.Error("remote call failed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode))
	return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, sentinel.ErrUnavailable)
}

type idResponse struct {
	ID string `json:"id"`
}

func (c *HTTPClient) GetByID(ctx context.Context, id domain.CaseID) (*domain.Record, error) {
	var dto recordDTO
	if err := c.do(ctx, http.MethodGet, "/records/"+url.PathEscape(string(id)), nil, &dto); err != nil {
		return nil, err
	}
	return fromRecordDTO(dto), nil
}

func (c *HTTPClient) Create(ctx context.Context, payload CreateRecordPayload) (*domain.Record, error) {
	var dto recordDTO
	if err := c.do(ctx, http.MethodPost, "/records", toCreateDTO(payload), &dto); err != nil {
		return nil, err
	}
	return fromRecordDTO(dto), nil
}

func (c *HTTPClient) UpdateGeneral(ctx context.Context, id domain.CaseID, fields domain.GeneralInfo) (*domain.Record, error) {
	var dto recordDTO
	path := "/records/" + url.PathEscape(string(id)) + "/general"
	if err := c.do(ctx, http.MethodPut, path, toGeneralDTO(fields), &dto); err != nil {
		return nil, err
	}
	return fromRecordDTO(dto), nil
}

type partyClient HTTPClient

func (c *partyClient) Create(ctx context.Context, caseID domain.CaseID, part domain.ProceduralPart) (string, error) {
	var out idResponse
	path := "/records/" + url.PathEscape(string(caseID)) + "/parties"
	dto := toPartDTO(part)
	dto.ID = ""
	if err := (*HTTPClient)(c).do(ctx, http.MethodPost, path, dto, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *partyClient) Update(ctx context.Context, remoteID string, part domain.ProceduralPart) error {
	return (*HTTPClient)(c).do(ctx, http.MethodPut, "/parties/"+url.PathEscape(remoteID), toPartDTO(part), nil)
}

func (c *partyClient) Delete(ctx context.Context, remoteID string) error {
	return (*HTTPClient)(c).do(ctx, http.MethodDelete, "/parties/"+url.PathEscape(remoteID), nil, nil)
}

type intervenerClient HTTPClient

func (c *intervenerClient) Create(ctx context.Context, caseID domain.CaseID, intervener domain.Intervener) (string, error) {
	var out idResponse
	path := "/records/" + url.PathEscape(string(caseID)) + "/interveners"
	dto := toIntervenerDTO(intervener)
	dto.ID = ""
	if err := (*HTTPClient)(c).do(ctx, http.MethodPost, path, dto, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *intervenerClient) Update(ctx context.Context, remoteID string, intervener domain.Intervener) error {
	return (*HTTPClient)(c).do(ctx, http.MethodPut, "/interveners/"+url.PathEscape(remoteID), toIntervenerDTO(intervener), nil)
}

func (c *intervenerClient) Delete(ctx context.Context, remoteID string) error {
	return (*HTTPClient)(c).do(ctx, http.MethodDelete, "/interveners/"+url.PathEscape(remoteID), nil, nil)
}

type paymentClient HTTPClient

func (c *paymentClient) Create(ctx context.Context, caseID domain.CaseID, payment domain.Payment, bonus domain.SuccessBonus) (string, error) {
	var out idResponse
	path := "/records/" + url.PathEscape(string(caseID)) + "/payments"
	dto := toPaymentDTO(payment, bonus)
	dto.ID = ""
	if err := (*HTTPClient)(c).do(ctx, http.MethodPost, path, dto, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *paymentClient) Update(ctx context.Context, remoteID string, payment domain.Payment, bonus domain.SuccessBonus) error {
	return (*HTTPClient)(c).do(ctx, http.MethodPut, "/payments/"+url.PathEscape(remoteID), toPaymentDTO(payment, bonus), nil)
}

func (c *paymentClient) Delete(ctx context.Context, remoteID string) error {
	return (*HTTPClient)(c).do(ctx, http.MethodDelete, "/payments/"+url.PathEscape(remoteID), nil, nil)
}

type documentClient HTTPClient

// Create uploads metadata as a JSON part plus the optional attachment as a
// file part.
func (c *documentClient) Create(ctx context.Context, caseID domain.CaseID, doc domain.Document, file io.Reader) (string, error) {
	hc := (*HTTPClient)(c)
	path := "/records/" + url.PathEscape(string(caseID)) + "/documents"
	if file == nil {
		var out idResponse
		dto := toDocumentDTO(doc)
		dto.ID = ""
		if err := hc.do(ctx, http.MethodPost, path, dto, &out); err != nil {
			return "", err
		}
		return out.ID, nil
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	meta, err := writer.CreateFormField("metadata")
	if err != nil {
		return "", fmt.Errorf("document upload: %w", err)
	}
	dto := toDocumentDTO(doc)
	dto.ID = ""
	if err := json.NewEncoder(meta).Encode(dto); err != nil {
		return "", fmt.Errorf("document upload: %w", err)
	}
	part, err := writer.CreateFormFile("file", doc.FileName)
	if err != nil {
		return "", fmt.Errorf("document upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("document upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("document upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hc.baseURL+path, &buf)
	if err != nil {
		return "", fmt.Errorf("document upload: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := hc.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("POST %s: %w: %w", path, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", hc.failure(http.MethodPost, path, resp)
	}
	var out idResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode POST %s: %w", path, err)
	}
	return out.ID, nil
}

func (c *documentClient) Update(ctx context.Context, remoteID string, doc domain.Document) error {
	return (*HTTPClient)(c).do(ctx, http.MethodPut, "/documents/"+url.PathEscape(remoteID), toDocumentDTO(doc), nil)
}

func (c *documentClient) Delete(ctx context.Context, remoteID string) error {
	return (*HTTPClient)(c).do(ctx, http.MethodDelete, "/documents/"+url.PathEscape(remoteID), nil, nil)
}

type actionClient HTTPClient

func (c *actionClient) Create(ctx context.Context, caseID domain.CaseID, action domain.ProceduralAction) error {
	path := "/records/" + url.PathEscape(string(caseID)) + "/actions"
	dto := actionDTO{
		TargetStatus: action.TargetStatus,
		Observation:  action.Observation,
		Date:         WireDate{action.Date},
	}
	return (*HTTPClient)(c).do(ctx, http.MethodPost, path, dto, nil)
}
