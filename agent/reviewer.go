package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/athellier/larecherche/textutil"
)

// SummaryRetryer re-runs summarization once when the reviewer's confidence
// falls below threshold. The Summarizer stage satisfies this.
type SummaryRetryer interface {
	Run(ctx context.Context, in Input) Output
}

type ReviewerConfig struct {
	Threshold         float64
	RetryPenalty      float64
	MinWords          int
	MaxWords          int
	LengthPenalty     float64
	KeywordFloor      float64
	KeywordPenalty    float64
	ConfidenceFloor   float64
	ConfidenceCeiling float64
}

// Reviewer validates the summary against the query and triggers at most
// one retry through the summarizer. All quality signals fold into
// confidence multiplicatively so a bad signal can only pull it down.
type Reviewer struct {
	retryer SummaryRetryer
	cfg     ReviewerConfig
	logger  *slog.Logger
}

// retrySuffix is appended to a copy of the query on the single retry; the
// original query is never mutated.
const retrySuffix = " (Focus on key findings and methodology)"

// defaultBaseConfidence is assumed when no previous stage output exists.
const defaultBaseConfidence = 0.7

func NewReviewer(retryer SummaryRetryer, cfg ReviewerConfig, logger *slog.Logger) *Reviewer {
	if cfg.Threshold == 0 {
		cfg.Threshold = 0.75
	}
	if cfg.RetryPenalty == 0 {
		cfg.RetryPenalty = 0.9
	}
	if cfg.ConfidenceCeiling == 0 {
		cfg.ConfidenceCeiling = 0.95
	}
	return &Reviewer{retryer: retryer, cfg: cfg, logger: logger}
}

func (a *Reviewer) Run(ctx context.Context, in Input, previous *Output) (out Output) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("reviewer panicked", slog.Any("panic", r))
			out = failure("reviewer", fmt.Sprintf("unexpected fault: %v", r))
		}
	}()

	if strings.TrimSpace(in.Context) == "" {
		return failure("reviewer", "no summary provided for review")
	}

	confidence := defaultBaseConfidence
	if previous != nil {
		confidence = previous.Confidence
	}

	words := textutil.Words(in.Context)
	if words < a.cfg.MinWords || words > a.cfg.MaxWords {
		confidence *= a.cfg.LengthPenalty
	}

	keywordOverlap := textutil.KeywordOverlap(in.Query, in.Context)
	if keywordOverlap < a.cfg.KeywordFloor {
		confidence *= a.cfg.KeywordPenalty
	}

	// Entity overlap is a weak positive signal; skip it when the query
	// names no capitalized phrases at all.
	if len(textutil.Entities(in.Query)) > 0 {
		entityOverlap := textutil.EntityOverlap(in.Query, in.Context)
		confidence *= 0.95 + entityOverlap*0.05
	}

	result := in.Context
	retried := false

	if confidence < a.cfg.Threshold && a.retryer != nil {
		a.logger.Info("confidence below threshold, retrying summarization",
			slog.Float64("confidence", confidence),
			slog.Float64("threshold", a.cfg.Threshold))

		retryOutput := a.retryer.Run(ctx, Input{
			Query:    in.Query + retrySuffix,
			Context:  in.Context,
			Metadata: in.Metadata,
		})
		if !retryOutput.Failed() && retryOutput.Result != "" {
			result = retryOutput.Result
			confidence = retryOutput.Confidence * a.cfg.RetryPenalty
			retried = true
		} else {
			a.logger.Warn("retry failed, keeping original summary")
		}
	}

	if retried {
		// Metadata must describe the summary actually returned.
		keywordOverlap = textutil.KeywordOverlap(in.Query, result)
		words = textutil.Words(result)
	}

	confidence = clamp(confidence, a.cfg.ConfidenceFloor, a.cfg.ConfidenceCeiling)

	return Output{
		Result:     result,
		Confidence: confidence,
		Metadata: map[string]string{
			"source":          "reviewer",
			"retry":           strconv.FormatBool(retried),
			"keyword_overlap": strconv.FormatFloat(keywordOverlap, 'f', 3, 64),
			"word_count":      itoa(words),
		},
	}
}
