package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"caseform/internal/record"
	"caseform/internal/remote"
	"caseform/pkg/apperr"
	"caseform/pkg/sentinel"
)

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError centralizes domain error translation to HTTP responses. Keeping
// it here ensures consistent JSON error envelopes.
func WriteError(w http.ResponseWriter, err error) {
	var coded *apperr.Error
	if !errors.As(err, &coded) {
		coded = classify(err)
	}
	respond(w, apperr.ToHTTPStatus(coded.Code), errorEnvelope{
		Error:   string(coded.Code),
		Message: coded.Message,
	})
}

// classify folds engine errors into coded ones. The message is the user-facing
// text the form layer computes, never the raw error chain.
func classify(err error) *apperr.Error {
	var validation *record.ValidationError
	var rejection *remote.Rejection
	switch {
	case errors.As(err, &validation):
		return apperr.Wrap(apperr.CodeBadRequest, record.UserMessage(err), err)
	case errors.Is(err, remote.ErrIllegalTransition):
		return apperr.Wrap(apperr.CodeConflict, record.UserMessage(err), err)
	case errors.Is(err, sentinel.ErrNotFound):
		return apperr.Wrap(apperr.CodeNotFound, "not found", err)
	case errors.Is(err, sentinel.ErrInvalidState):
		return apperr.Wrap(apperr.CodeConflict, err.Error(), err)
	case errors.Is(err, sentinel.ErrUnavailable):
		return apperr.Wrap(apperr.CodeUnavailable, record.UserMessage(err), err)
	case errors.As(err, &rejection):
		return apperr.Wrap(apperr.CodeBadRequest, record.UserMessage(err), err)
	default:
		return apperr.Wrap(apperr.CodeInternal, record.UserMessage(err), err)
	}
}
