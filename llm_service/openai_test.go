package llm_service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(ts *httptest.Server) *OpenAIService {
	s := NewOpenAIService("test-key", "gpt-4o-mini", testLogger())
	s.apiURL = ts.URL
	s.httpClient = ts.Client()
	return s
}

func TestSummarizeSuccess(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"A concise factual summary."}}]}`)
	}))
	defer ts.Close()

	s := newTestService(ts)
	summary, err := s.Summarize(context.Background(), "long research context", 20, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "A concise factual summary." {
		t.Errorf("summary = %q", summary)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestSummarizeQuotaExceededNoRetry(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"insufficient_quota","type":"insufficient_quota"}}`)
	}))
	defer ts.Close()

	s := newTestService(ts)
	_, err := s.Summarize(context.Background(), "text", 20, 50)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "quota exhausted") {
		t.Errorf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("quota errors must not be retried, got %d calls", calls)
	}
}

func TestSummarizeMissingKey(t *testing.T) {
	s := NewOpenAIService("", "gpt-4o-mini", testLogger())
	if _, err := s.Summarize(context.Background(), "text", 20, 50); err == nil {
		t.Error("expected error when API key is missing")
	}
}

func TestSummarizeMalformedResponseCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"unexpected":"shape"}`)
	}))
	defer ts.Close()

	// Cancel after the first failed attempt so the retry loop exits on the
	// context instead of sleeping.
	ctx, cancel := context.WithCancel(context.Background())
	s := newTestService(ts)

	done := make(chan error, 1)
	go func() {
		_, err := s.Summarize(ctx, "text", 20, 50)
		done <- err
	}()
	cancel()

	if err := <-done; err == nil {
		t.Error("expected error for malformed response")
	}
}

func TestBackendErrorDetails(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantKind    string
		wantMessage string
		wantQuota   bool
	}{
		{
			name:        "Structured error body",
			status:      http.StatusBadRequest,
			body:        `{"error":{"message":"bad prompt","type":"invalid_request_error"}}`,
			wantKind:    "invalid_request_error",
			wantMessage: "bad prompt",
		},
		{
			name:        "Plain text body",
			status:      http.StatusBadGateway,
			body:        "upstream unavailable",
			wantKind:    "unknown",
			wantMessage: "upstream unavailable",
		},
		{
			name:        "Empty body",
			status:      http.StatusInternalServerError,
			body:        "",
			wantKind:    "unknown",
			wantMessage: "unknown error",
		},
		{
			name:        "Quota status",
			status:      http.StatusTooManyRequests,
			body:        `{"error":{"message":"insufficient_quota","type":"insufficient_quota"}}`,
			wantKind:    "insufficient_quota",
			wantMessage: "insufficient_quota",
			wantQuota:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer ts.Close()

			resp, err := http.Get(ts.URL)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()

			e := newBackendError(resp)
			if e.Status != tt.status {
				t.Errorf("status = %d, want %d", e.Status, tt.status)
			}
			if e.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", e.Kind, tt.wantKind)
			}
			if e.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", e.Message, tt.wantMessage)
			}
			if e.quotaExhausted() != tt.wantQuota {
				t.Errorf("quotaExhausted = %v, want %v", e.quotaExhausted(), tt.wantQuota)
			}
			if e.Error() == "" {
				t.Error("error string is empty")
			}
		})
	}
}
