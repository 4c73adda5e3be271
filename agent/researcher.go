package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/athellier/larecherche/document"
	"github.com/athellier/larecherche/vectorstore"
)

// RetrievalPipeline is what the researcher needs from the RAG layer.
type RetrievalPipeline interface {
	Ingest(ctx context.Context, texts []string, metadatas []map[string]string) ([]string, error)
	Retrieve(ctx context.Context, query string, k int, threshold float64) ([]vectorstore.Record, error)
}

type ResearcherConfig struct {
	TopK                 int
	Threshold            float64
	DirectFallbackConf   float64
	CombinedFallbackConf float64
}

// Researcher feeds normalized documents through the retrieval pipeline and
// produces the combined research context with an aggregate confidence.
type Researcher struct {
	rag    RetrievalPipeline
	cfg    ResearcherConfig
	logger *slog.Logger
}

func NewResearcher(rag RetrievalPipeline, cfg ResearcherConfig, logger *slog.Logger) *Researcher {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &Researcher{rag: rag, cfg: cfg, logger: logger}
}

// directFallbackDocs bounds how many document bodies the no-results
// fallback concatenates.
const directFallbackDocs = 3

func (a *Researcher) Run(ctx context.Context, in Input, docs []document.Document) (out Output) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("researcher panicked", slog.Any("panic", r))
			out = failure("researcher", fmt.Sprintf("unexpected fault: %v", r))
		}
	}()

	if strings.TrimSpace(in.Query) == "" {
		return failure("researcher", "empty query")
	}
	if len(docs) == 0 {
		return failure("researcher", "no documents provided")
	}

	var bodies []string
	var metadatas []map[string]string
	for _, d := range docs {
		if !d.Valid() {
			continue
		}
		bodies = append(bodies, d.Body())
		metadatas = append(metadatas, d.Metadata())
	}
	if len(bodies) == 0 {
		return failure("researcher", "no valid documents after normalization")
	}

	if _, err := a.rag.Ingest(ctx, bodies, metadatas); err != nil {
		// Retrieval below decides which fallback tier applies.
		a.logger.Warn("failed to index documents", slog.String("error", err.Error()))
	}

	results, err := a.rag.Retrieve(ctx, in.Query, a.cfg.TopK, a.cfg.Threshold)
	if err != nil {
		// The index itself is broken: combine everything we normalized and
		// mark the degradation so downstream stages can tell.
		a.logger.Warn("retrieval failed, using combined fallback", slog.String("error", err.Error()))
		return Output{
			Result:     strings.Join(bodies, "\n\n"),
			Confidence: a.cfg.CombinedFallbackConf,
			Metadata: map[string]string{
				"source":         "researcher",
				"method":         "combined_fallback",
				"document_count": itoa(len(bodies)),
			},
		}
	}

	if len(results) == 0 {
		// The index worked but nothing matched; fall back to the leading
		// document bodies at a higher confidence than the broken-index tier.
		a.logger.Warn("no relevant chunks found, using direct fallback")
		n := directFallbackDocs
		if n > len(bodies) {
			n = len(bodies)
		}
		return Output{
			Result:     strings.Join(bodies[:n], "\n\n"),
			Confidence: a.cfg.DirectFallbackConf,
			Metadata: map[string]string{
				"source":         "researcher",
				"method":         "direct_fallback",
				"document_count": itoa(n),
			},
		}
	}

	texts := make([]string, len(results))
	total := 0.0
	for i, r := range results {
		texts[i] = r.Text
		total += r.Score
	}
	confidence := total / float64(len(results))

	a.logger.Info("research complete",
		slog.Int("retrieved", len(results)),
		slog.Float64("confidence", confidence))

	return Output{
		Result:     strings.Join(texts, "\n\n"),
		Confidence: confidence,
		Metadata: map[string]string{
			"source":          "researcher",
			"method":          "retrieval",
			"retrieved_count": itoa(len(results)),
		},
	}
}
