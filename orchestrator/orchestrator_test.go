package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/athellier/larecherche/agent"
	"github.com/athellier/larecherche/document"
	"github.com/athellier/larecherche/embedding"
	"github.com/athellier/larecherche/llm_service"
	"github.com/athellier/larecherche/rag"
	"github.com/athellier/larecherche/vectorstore/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestOrchestrator wires a full pipeline on the in-memory store with the
// hash-based encoder and a canned summarization service.
func newTestOrchestrator(t *testing.T, service llm_service.SummaryService) *Orchestrator {
	t.Helper()
	logger := testLogger()

	provider := embedding.NewProvider(logger, embedding.NewNgramEncoder(256))
	pipeline := rag.New(provider, memory.New(), 300, 60, logger)

	researcher := agent.NewResearcher(pipeline, agent.ResearcherConfig{
		TopK:                 3,
		Threshold:            0.05,
		DirectFallbackConf:   0.7,
		CombinedFallbackConf: 0.6,
	}, logger)

	summarizer := agent.NewSummarizer(service, agent.SummarizerConfig{
		MinContextWords: 50,
		GenerativeConf:  0.85,
		ExtractiveConf:  0.6,
	}, logger)

	reviewer := agent.NewReviewer(summarizer, agent.ReviewerConfig{
		Threshold:         0.75,
		RetryPenalty:      0.9,
		MinWords:          20,
		MaxWords:          500,
		LengthPenalty:     0.8,
		KeywordFloor:      0.15,
		KeywordPenalty:    0.85,
		ConfidenceFloor:   0.3,
		ConfidenceCeiling: 0.95,
	}, logger)

	return New(researcher, summarizer, reviewer, Config{
		CoherenceKeywordFloor:    0.2,
		CoherenceSimilarityFloor: 0.15,
		CoherencePenalty:         0.85,
	}, logger)
}

func aiDocuments() []any {
	return []any{
		map[string]any{
			"title": "Recent AI Advancements",
			"summary": "Artificial intelligence research produced large advancements in language " +
				"models and multimodal systems this year. Training runs now span thousands of " +
				"accelerators and models follow natural language instructions with increasing " +
				"reliability. Evaluation of reasoning capabilities remains an open problem for " +
				"machine learning researchers across academic and industrial laboratories.",
			"url": "https://example.org/ai-advancements",
		},
		"Machine learning advancements accelerated across computer vision and speech " +
			"recognition benchmarks. Self-supervised pretraining on unlabeled data reduced the " +
			"need for expensive annotation. Researchers reported that careful scaling of data " +
			"and compute delivered steady capability improvements across many artificial " +
			"intelligence tasks and domains.",
	}
}

func TestRunPipelineFailFast(t *testing.T) {
	orch := newTestOrchestrator(t, &llm_service.MockSummaryService{})
	ctx := context.Background()

	tests := []struct {
		name       string
		query      string
		documents  []any
		wantStage  string
		wantError  string
		wantStages string
	}{
		{
			name:       "Empty query",
			query:      "  ",
			documents:  aiDocuments(),
			wantStage:  StageValidateInput,
			wantError:  "empty query",
			wantStages: "validate_input",
		},
		{
			name:       "No documents",
			query:      "AI advancements",
			documents:  nil,
			wantStage:  StageValidateInput,
			wantError:  "no documents provided",
			wantStages: "validate_input",
		},
		{
			name:       "No valid documents",
			query:      "AI advancements",
			documents:  []any{"", "tiny", 42},
			wantStage:  StageNormalizeDocs,
			wantError:  "no valid documents after normalization",
			wantStages: "validate_input,normalize_docs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := orch.RunPipeline(ctx, tt.query, tt.documents)
			if !out.Failed() {
				t.Fatalf("expected failure, got confidence %f", out.Confidence)
			}
			if out.Result != "" {
				t.Errorf("failed run should carry no result, got %q", out.Result)
			}
			if out.Metadata["source"] != "orchestrator" {
				t.Errorf("source = %q, want orchestrator", out.Metadata["source"])
			}
			if out.Metadata["stage"] != tt.wantStage {
				t.Errorf("stage = %q, want %q", out.Metadata["stage"], tt.wantStage)
			}
			if out.Metadata["error"] != tt.wantError {
				t.Errorf("error = %q, want %q", out.Metadata["error"], tt.wantError)
			}
			if out.Metadata["stages"] != tt.wantStages {
				t.Errorf("stages = %q, want %q", out.Metadata["stages"], tt.wantStages)
			}
		})
	}
}

func TestRunPipelineEndToEnd(t *testing.T) {
	service := &llm_service.MockSummaryService{
		SummarizeFunc: func(_ context.Context, _ string, _, _ int) (string, error) {
			return "Artificial intelligence advancements this year centered on language models, " +
				"multimodal systems and self-supervised pretraining, with scaling of data and " +
				"compute delivering steady machine learning capability improvements across " +
				"vision, speech and reasoning benchmarks.", nil
		},
	}
	orch := newTestOrchestrator(t, service)

	out := orch.RunPipeline(context.Background(), "AI advancements", aiDocuments())
	if out.Failed() {
		t.Fatalf("pipeline failed: %v", out.Metadata)
	}
	if strings.TrimSpace(out.Result) == "" {
		t.Fatal("expected a non-empty result")
	}
	if out.Confidence <= 0 || out.Confidence > 1.0 {
		t.Errorf("confidence = %f, want in (0, 1]", out.Confidence)
	}
	if out.Metadata["source"] != "orchestrator" {
		t.Errorf("source = %q, want orchestrator", out.Metadata["source"])
	}

	wantStages := "validate_input,normalize_docs,research,summarize,coherence_check,review"
	if out.Metadata["stages"] != wantStages {
		t.Errorf("stages = %q, want %q", out.Metadata["stages"], wantStages)
	}
	if out.Metadata["document_count"] != "2" {
		t.Errorf("document_count = %q, want 2", out.Metadata["document_count"])
	}
	if !strings.Contains(out.Metadata["urls"], "https://example.org/ai-advancements") {
		t.Errorf("urls metadata missing document url: %q", out.Metadata["urls"])
	}
}

func TestRunPipelineSummarizerFailurePropagates(t *testing.T) {
	service := &llm_service.MockSummaryService{
		SummarizeFunc: func(_ context.Context, _ string, _, _ int) (string, error) {
			panic("summarization client corrupted")
		},
	}
	orch := newTestOrchestrator(t, service)

	// A single short document keeps the research context under the
	// summarizer's minimum word guard.
	out := orch.RunPipeline(context.Background(), "AI advancements",
		[]any{"A short note about artificial intelligence advancements."})
	if !out.Failed() {
		t.Fatalf("expected failure, got confidence %f", out.Confidence)
	}
	if out.Metadata["stage"] != StageSummarize {
		t.Errorf("stage = %q, want %q", out.Metadata["stage"], StageSummarize)
	}
	if !strings.Contains(out.Metadata["error"], "context too short") {
		t.Errorf("error = %q, want the summarizer's cause carried through", out.Metadata["error"])
	}
}

func normalizeAll(t *testing.T, raw []any) []document.Document {
	t.Helper()
	var docs []document.Document
	for _, r := range raw {
		doc, ok := document.Normalize(r)
		if !ok {
			t.Fatalf("test document failed normalization: %v", r)
		}
		docs = append(docs, doc)
	}
	return docs
}

func TestCoherenceAdjust(t *testing.T) {
	orch := newTestOrchestrator(t, &llm_service.MockSummaryService{})

	normalized := normalizeAll(t, aiDocuments())

	// A summary sharing the query's vocabulary gets a small bump.
	coherent := orch.coherenceAdjust(
		"machine learning advancements",
		"machine learning advancements continued across language and vision benchmarks",
		normalized, 0.85)
	if coherent <= 0.85 {
		t.Errorf("coherent summary should gain a bump: %f", coherent)
	}
	if coherent > 1.0 {
		t.Errorf("confidence exceeded 1.0: %f", coherent)
	}

	// A summary unrelated to both query and documents gets penalized.
	incoherent := orch.coherenceAdjust(
		"machine learning advancements",
		"sourdough fermentation depends on ambient temperature and starter hydration",
		normalized, 0.85)
	if incoherent >= 0.85 {
		t.Errorf("incoherent summary should lose confidence: %f", incoherent)
	}
}

func TestCoherenceAdjustCapsAtOne(t *testing.T) {
	orch := newTestOrchestrator(t, &llm_service.MockSummaryService{})

	got := orch.coherenceAdjust(
		"machine learning",
		"machine learning",
		normalizeAll(t, aiDocuments()), 0.99)
	if got > 1.0 {
		t.Errorf("confidence must cap at 1.0, got %f", got)
	}
}
