package record

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"caseform/internal/form"
	"caseform/internal/remote"
)

// ValidationError reports required classification fields missing before
// submission. It blocks the remote call entirely.
type ValidationError struct {
	Fields map[form.Field]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, string(field))
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

// illegalTransitionMessage replaces the technical transition rejection with
// the message users actually see.
const illegalTransitionMessage = "The requested status change is not allowed for the case's current status."

const genericFailureMessage = "The operation could not be completed. Please try again."

// UserMessage folds any save error into the text shown to the user.
// Validation errors list fields, structured rejections surface verbatim,
// illegal transitions get the specialized message, and anything else collapses
// to a generic one.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		names := make([]string, 0, len(validation.Fields))
		for field, reason := range validation.Fields {
			names = append(names, fmt.Sprintf("%s: %s", field, reason))
		}
		sort.Strings(names)
		return strings.Join(names, "\n")
	}

	if errors.Is(err, remote.ErrIllegalTransition) {
		return illegalTransitionMessage
	}

	var rejection *remote.Rejection
	if errors.As(err, &rejection) {
		return strings.Join(rejection.Messages, "\n")
	}

	return genericFailureMessage
}
