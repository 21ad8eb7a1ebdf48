package remote

import (
	"encoding/json"
	"errors"
	"strings"
)

// IllegalTransitionMarker is the substring the remote service embeds in
// rejections caused by an illegal case-status transition. The engine pattern
// matches it to pick a more specific user message than the raw rejection.
const IllegalTransitionMarker = "INVALID_STATUS_TRANSITION"

// ErrIllegalTransition tags rejections recognized via IllegalTransitionMarker.
var ErrIllegalTransition = errors.New("illegal status transition")

// Rejection is a structured remote rejection: one message per field-level or
// business-rule issue, surfaced verbatim to the user.
type Rejection struct {
	Messages []string
}

func (r *Rejection) Error() string {
	return strings.Join(r.Messages, "; ")
}

// envelope is the failure shape every collaborator returns: a message field
// holding either a string or a list of strings.
type envelope struct {
	Message json.RawMessage `json:"message"`
}

// ParseFailure decodes a failure body into a Rejection, tagging illegal
// transitions. A body that is not the known envelope yields nil so the caller
// falls back to a transport error.
func ParseFailure(body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Message) == 0 {
		return nil
	}

	var messages []string
	var single string
	if err := json.Unmarshal(env.Message, &single); err == nil {
		messages = []string{single}
	} else if err := json.Unmarshal(env.Message, &messages); err != nil {
		return nil
	}
	if len(messages) == 0 {
		return nil
	}

	rejection := &Rejection{Messages: messages}
	for _, msg := range messages {
		if strings.Contains(msg, IllegalTransitionMarker) {
			return errors.Join(ErrIllegalTransition, rejection)
		}
	}
	return rejection
}
