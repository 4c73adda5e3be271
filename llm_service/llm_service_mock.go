package llm_service

import "context"

type MockSummaryService struct {
	SummarizeFunc func(ctx context.Context, text string, minWords, maxWords int) (string, error)
}

func (m *MockSummaryService) Summarize(ctx context.Context, text string, minWords, maxWords int) (string, error) {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, text, minWords, maxWords)
	}
	return "mock summary", nil
}
