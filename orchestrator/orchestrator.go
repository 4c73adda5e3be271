// Package orchestrator sequences the pipeline stages:
//
//	VALIDATE_INPUT -> NORMALIZE_DOCS -> RESEARCH -> SUMMARIZE ->
//	COHERENCE_CHECK -> REVIEW -> DONE
//
// with FAILED reachable from any state. The orchestrator is the sole
// caller of the agents and owns all failure short-circuiting; it never
// retries a stage itself (the reviewer's single retry is internal to it).
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/athellier/larecherche/agent"
	"github.com/athellier/larecherche/document"
	"github.com/athellier/larecherche/textutil"
)

// Stage names recorded in the final output's metadata.
const (
	StageValidateInput  = "validate_input"
	StageNormalizeDocs  = "normalize_docs"
	StageResearch       = "research"
	StageSummarize      = "summarize"
	StageCoherenceCheck = "coherence_check"
	StageReview         = "review"
)

type Config struct {
	CoherenceKeywordFloor    float64
	CoherenceSimilarityFloor float64
	CoherencePenalty         float64
}

type Orchestrator struct {
	researcher *agent.Researcher
	summarizer *agent.Summarizer
	reviewer   *agent.Reviewer
	cfg        Config
	logger     *slog.Logger
}

func New(researcher *agent.Researcher, summarizer *agent.Summarizer, reviewer *agent.Reviewer, cfg Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		researcher: researcher,
		summarizer: summarizer,
		reviewer:   reviewer,
		cfg:        cfg,
		logger:     logger,
	}
}

// coherenceBump scales the small positive adjustment added for a coherent
// summary; total confidence never exceeds 1.0.
const coherenceBump = 0.1

// RunPipeline executes one full run. Documents may be strings, Documents
// or free-form maps; they are normalized once here and never re-inspected
// downstream. The returned Output always has a populated metadata map and
// the orchestrator as the producer of record.
func (o *Orchestrator) RunPipeline(ctx context.Context, query string, documents []any) (out agent.Output) {
	var stages []string

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline panicked", slog.Any("panic", r))
			out = o.failed(stages, "pipeline", fmt.Sprintf("unexpected fault: %v", r))
		}
	}()

	o.logger.Info("running pipeline", slog.String("query", query))

	// VALIDATE_INPUT
	stages = append(stages, StageValidateInput)
	if strings.TrimSpace(query) == "" {
		return o.failed(stages, StageValidateInput, "empty query")
	}
	if len(documents) == 0 {
		return o.failed(stages, StageValidateInput, "no documents provided")
	}

	// NORMALIZE_DOCS
	stages = append(stages, StageNormalizeDocs)
	var docs []document.Document
	for _, raw := range documents {
		if doc, ok := document.Normalize(raw); ok {
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		return o.failed(stages, StageNormalizeDocs, "no valid documents after normalization")
	}

	// RESEARCH
	stages = append(stages, StageResearch)
	researchOutput := o.researcher.Run(ctx, agent.Input{Query: query}, docs)
	if researchOutput.Failed() {
		return o.failed(stages, StageResearch, stageError(researchOutput, "research failed"))
	}

	// SUMMARIZE
	stages = append(stages, StageSummarize)
	summaryOutput := o.summarizer.Run(ctx, agent.Input{
		Query:    query,
		Context:  researchOutput.Result,
		Metadata: researchOutput.Metadata,
	})
	if summaryOutput.Failed() {
		return o.failed(stages, StageSummarize, stageError(summaryOutput, "summarization failed"))
	}

	// COHERENCE_CHECK: an adjustment signal, never a hard gate.
	stages = append(stages, StageCoherenceCheck)
	summaryOutput.Confidence = o.coherenceAdjust(query, summaryOutput.Result, docs, summaryOutput.Confidence)

	// REVIEW
	stages = append(stages, StageReview)
	reviewOutput := o.reviewer.Run(ctx, agent.Input{
		Query:    query,
		Context:  summaryOutput.Result,
		Metadata: summaryOutput.Metadata,
	}, &summaryOutput)
	if reviewOutput.Failed() {
		return o.failed(stages, StageReview, stageError(reviewOutput, "review failed"))
	}

	// DONE
	if reviewOutput.Metadata == nil {
		reviewOutput.Metadata = map[string]string{}
	}
	reviewOutput.Metadata["source"] = "orchestrator"
	reviewOutput.Metadata["stages"] = strings.Join(stages, ",")
	reviewOutput.Metadata["document_count"] = strconv.Itoa(len(docs))
	if urls := sourceURLs(docs); len(urls) > 0 {
		reviewOutput.Metadata["urls"] = strings.Join(urls, ",")
	}

	o.logger.Info("pipeline completed",
		slog.Float64("confidence", reviewOutput.Confidence),
		slog.Int("documents", len(docs)))
	return reviewOutput
}

// coherenceAdjust penalizes summaries unrelated to both the query and the
// source documents, then adds a small bump proportional to the combined
// coherence score.
func (o *Orchestrator) coherenceAdjust(query, summary string, docs []document.Document, confidence float64) float64 {
	keywordOverlap := textutil.KeywordOverlap(query, summary)

	var docText strings.Builder
	for _, d := range docs {
		docText.WriteString(d.Title)
		docText.WriteString(" ")
		docText.WriteString(d.Body())
		docText.WriteString(" ")
	}
	docSimilarity := textutil.Similarity(query+" "+summary, docText.String())

	coherent := keywordOverlap >= o.cfg.CoherenceKeywordFloor ||
		docSimilarity >= o.cfg.CoherenceSimilarityFloor
	if !coherent {
		o.logger.Warn("summary coherence below floors",
			slog.Float64("keyword_overlap", keywordOverlap),
			slog.Float64("doc_similarity", docSimilarity))
		confidence *= o.cfg.CoherencePenalty
	}

	combined := (keywordOverlap + docSimilarity) / 2
	confidence += coherenceBump * combined
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func (o *Orchestrator) failed(stages []string, stage, cause string) agent.Output {
	o.logger.Error("pipeline failed",
		slog.String("stage", stage),
		slog.String("error", cause))
	return agent.Output{
		Result:     "",
		Confidence: 0.0,
		Metadata: map[string]string{
			"source": "orchestrator",
			"stage":  stage,
			"stages": strings.Join(stages, ","),
			"error":  cause,
		},
	}
}

func stageError(out agent.Output, fallback string) string {
	if msg, ok := out.Metadata["error"]; ok && msg != "" {
		return msg
	}
	return fallback
}

func sourceURLs(docs []document.Document) []string {
	var urls []string
	for _, d := range docs {
		if d.URL != "" {
			urls = append(urls, d.URL)
		}
	}
	return urls
}
