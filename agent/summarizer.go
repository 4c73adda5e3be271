package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/athellier/larecherche/llm_service"
	"github.com/athellier/larecherche/textutil"
)

type SummarizerConfig struct {
	MinContextWords int
	GenerativeConf  float64
	ExtractiveConf  float64
}

// Summarizer condenses a research context. The generative capability may
// fail at runtime; the extractive lead-sentence fallback keeps the stage
// alive at a lower, fixed confidence.
type Summarizer struct {
	service llm_service.SummaryService
	cfg     SummarizerConfig
	logger  *slog.Logger
}

func NewSummarizer(service llm_service.SummaryService, cfg SummarizerConfig, logger *slog.Logger) *Summarizer {
	if cfg.MinContextWords <= 0 {
		cfg.MinContextWords = 50
	}
	return &Summarizer{service: service, cfg: cfg, logger: logger}
}

// Extractive fallback budgets.
const (
	maxFallbackSentences = 5
	fallbackCharBudget   = 300
)

func (a *Summarizer) Run(ctx context.Context, in Input) (out Output) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("summarizer panicked", slog.Any("panic", r))
			out = failure("summarizer", fmt.Sprintf("unexpected fault: %v", r))
		}
	}()

	text := strings.Join(strings.Fields(in.Context), " ")
	words := textutil.Words(text)
	if words == 0 {
		return failure("summarizer", "no context provided")
	}
	if words < a.cfg.MinContextWords {
		// Summarization models hallucinate on tiny contexts; fail fast.
		return failure("summarizer", fmt.Sprintf("context too short for summarization: %d words", words))
	}

	// Length-adaptive bounds keep summaries proportionate to the source.
	maxWords := clampInt(words/3, 50, 150)
	minWords := clampInt(words/6, 20, 40)

	summary, err := a.service.Summarize(ctx, text, minWords, maxWords)
	if err == nil && strings.TrimSpace(summary) != "" {
		a.logger.Info("generated summary",
			slog.Int("input_words", words),
			slog.Int("summary_words", textutil.Words(summary)))
		return Output{
			Result:     strings.TrimSpace(summary),
			Confidence: a.cfg.GenerativeConf,
			Metadata: map[string]string{
				"source": "summarizer",
				"method": "generative",
			},
		}
	}

	if err != nil {
		a.logger.Warn("summarization capability failed, using extractive fallback",
			slog.String("error", err.Error()))
	}

	return a.extractive(text, maxWords)
}

// extractive takes sentences from the start of the context up to a word
// budget of 1.5x the generative target, capped at a few sentences.
func (a *Summarizer) extractive(text string, maxWords int) Output {
	budget := maxWords + maxWords/2

	var picked []string
	used := 0
	for _, sentence := range textutil.Sentences(text) {
		w := textutil.Words(sentence)
		if len(picked) > 0 && used+w > budget {
			break
		}
		picked = append(picked, sentence)
		used += w
		if len(picked) >= maxFallbackSentences {
			break
		}
	}

	result := strings.Join(picked, " ")
	if result == "" {
		result = textutil.TruncateChars(text, fallbackCharBudget)
	}

	return Output{
		Result:     result,
		Confidence: a.cfg.ExtractiveConf,
		Metadata: map[string]string{
			"source": "summarizer",
			"method": "extractive_fallback",
		},
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
