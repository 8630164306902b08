package llm

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrTruncated marks a reply cut off at the MaxTokens limit.
var ErrTruncated = errors.New("response truncated at max tokens")

// ErrInvalidResponse means the reply could not be used: it was truncated,
// empty, not JSON, or did not match the schema.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable means the request never produced a reply. Status
// is the HTTP status the API answered with, or 0 when there was none.
type ErrProviderUnavailable struct {
	Status int
	Err    error
}

func (e *ErrProviderUnavailable) Error() string {
	switch {
	case e.Err == nil:
		return "LLM provider unavailable"
	case e.Status != 0:
		return fmt.Sprintf("LLM provider unavailable (HTTP %d): %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

func truncated(content json.RawMessage) error {
	return &ErrInvalidResponse{Content: content, Err: ErrTruncated}
}

func noContent(provider string) error {
	return &ErrInvalidResponse{Err: fmt.Errorf("no text content in %s response", provider)}
}
