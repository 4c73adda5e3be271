// Package llm_service is the summarization capability boundary: given text
// and length bounds, produce one condensed summary string. Implementations
// may fail with an error; the summarizer agent owns the fallback.
package llm_service

import "context"

type SummaryService interface {
	Summarize(ctx context.Context, text string, minWords, maxWords int) (string, error)
}
