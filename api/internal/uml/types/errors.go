package types

import (
	"errors"
	"fmt"
)

// Every kind is terminal for the call that produced it; nothing retries.
var (
	ErrEmptyInput         = errors.New("empty input")
	ErrMissingCredential  = errors.New("missing credential")
	ErrEmptyReply         = errors.New("model returned an empty response")
	ErrNoJSONPayload      = errors.New("model response did not contain a JSON payload")
	ErrIncompleteResponse = errors.New("model response is missing required fields")
	ErrNoCodeOutput       = errors.New("model response did not include usable code output")
)

// RemoteError is a non-success HTTP status from the provider. Body is kept
// verbatim for display.
type RemoteError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Body)
}

// PayloadParseError wraps the JSON decoder's complaint about the extracted payload.
type PayloadParseError struct {
	Err error
}

func (e *PayloadParseError) Error() string {
	return "failed to parse model response: " + e.Err.Error()
}

func (e *PayloadParseError) Unwrap() error { return e.Err }

// MissingCredential names the variable that was expected to hold the key.
func MissingCredential(envKey string) error {
	return fmt.Errorf("%w: %s environment variable is not set", ErrMissingCredential, envKey)
}

// Kind is a short stable name for the error class, used in logs and API replies.
func Kind(err error) string {
	var (
		re *RemoteError
		pe *PayloadParseError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.As(err, &re):
		return "remote"
	case errors.Is(err, ErrEmptyReply):
		return "empty_reply"
	case errors.Is(err, ErrNoJSONPayload):
		return "no_json_payload"
	case errors.As(err, &pe):
		return "payload_parse"
	case errors.Is(err, ErrIncompleteResponse):
		return "incomplete_response"
	case errors.Is(err, ErrNoCodeOutput):
		return "no_code_output"
	default:
		return "internal"
	}
}
