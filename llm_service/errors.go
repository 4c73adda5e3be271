package llm_service

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// backendError is a non-200 reply from the summarization backend. It keeps
// whatever structured detail the body carried so the retry policy can tell
// transient failures from terminal ones.
type backendError struct {
	Status  int
	Kind    string
	Message string
}

func (e *backendError) Error() string {
	return fmt.Sprintf("summarization backend returned HTTP %d: %s (%s)", e.Status, e.Message, e.Kind)
}

// quotaExhausted reports the one failure class retrying cannot help with.
func (e *backendError) quotaExhausted() bool {
	return e.Status == http.StatusTooManyRequests
}

// maxErrorBody caps how much of a failed reply is read for diagnostics.
const maxErrorBody = 1 << 16

// newBackendError drains a failed response and pulls out the structured
// error detail when the body carries one; otherwise the raw body text
// stands in as the message.
func newBackendError(resp *http.Response) *backendError {
	e := &backendError{Status: resp.StatusCode, Kind: "unknown", Message: "unknown error"}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return e
	}

	var payload struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if jsonErr := json.Unmarshal(body, &payload); jsonErr == nil && payload.Error.Message != "" {
		e.Kind = payload.Error.Type
		e.Message = payload.Error.Message
		return e
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		e.Message = text
	}
	return e
}
