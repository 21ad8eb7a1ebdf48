package remote

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFailureSingleMessage(t *testing.T) {
	err := ParseFailure([]byte(`{"message": "case number already registered"}`))

	require.Error(t, err)
	var rejection *Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, []string{"case number already registered"}, rejection.Messages)
	assert.False(t, errors.Is(err, ErrIllegalTransition))
}

func TestParseFailureMessageList(t *testing.T) {
	err := ParseFailure([]byte(`{"message": ["value is required", "date must not be in the future"]}`))

	var rejection *Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, "value is required; date must not be in the future", rejection.Error())
}

func TestParseFailureTagsIllegalTransition(t *testing.T) {
	err := ParseFailure([]byte(`{"message": ["INVALID_STATUS_TRANSITION: case already closed"]}`))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIllegalTransition))
	var rejection *Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Contains(t, rejection.Error(), "case already closed")
}

func TestParseFailureUnknownShapes(t *testing.T) {
	cases := map[string]string{
		"not json":     `<html>502 Bad Gateway</html>`,
		"no message":   `{"error": "boom"}`,
		"empty list":   `{"message": []}`,
		"wrong type":   `{"message": 42}`,
		"empty body":   ``,
		"null message": `{"message": null}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, ParseFailure([]byte(body)))
		})
	}
}
