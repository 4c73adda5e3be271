// Package sources holds the document source providers. A provider returns
// an empty slice on any failure — rate limit, network error, bad payload —
// and never lets an error cross this boundary; the pipeline depends on
// "empty list" being the universal source-unavailable signal.
package sources

import (
	"context"
	"sync"
	"time"

	"github.com/athellier/larecherche/document"
)

type Source interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) []document.Document
}

// rateLimiter enforces a minimum interval between requests to one
// upstream API.
type rateLimiter struct {
	mu          sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

func (r *rateLimiter) wait(ctx context.Context) {
	r.mu.Lock()
	sleep := r.minInterval - time.Since(r.lastRequest)
	r.lastRequest = time.Now().Add(sleep)
	r.mu.Unlock()

	if sleep <= 0 {
		return
	}
	select {
	case <-time.After(sleep):
	case <-ctx.Done():
	}
}
