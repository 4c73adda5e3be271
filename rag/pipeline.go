// Package rag composes the chunker, the embedding provider and the vector
// store into the two retrieval-augmented operations the agents consume:
// Ingest and Retrieve.
package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/athellier/larecherche/embedding"
	"github.com/athellier/larecherche/textutil"
	"github.com/athellier/larecherche/vectorstore"
)

type Pipeline struct {
	provider  *embedding.Provider
	store     vectorstore.Store
	chunkSize int
	overlap   int
	logger    *slog.Logger
}

func New(provider *embedding.Provider, store vectorstore.Store, chunkSize, overlap int, logger *slog.Logger) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Pipeline{
		provider:  provider,
		store:     store,
		chunkSize: chunkSize,
		overlap:   overlap,
		logger:    logger,
	}
}

// Ingest cleans and chunks each text, replicates its metadata across the
// chunks, embeds all chunks in one batched call and stores them. A failed
// embedding batch surfaces as an error with no ids; nothing is partially
// indexed from the caller's perspective.
func (p *Pipeline) Ingest(ctx context.Context, texts []string, metadatas []map[string]string) ([]string, error) {
	var chunks []string
	var chunkMetadata []map[string]string

	for idx, text := range texts {
		cleaned := textutil.Clean(text)
		textChunks := textutil.Chunk(cleaned, p.chunkSize, p.overlap)
		if len(textChunks) == 0 {
			p.logger.Warn("document produced no chunks", slog.Int("document", idx))
			continue
		}

		var md map[string]string
		if idx < len(metadatas) {
			md = metadatas[idx]
		}
		for _, c := range textChunks {
			chunks = append(chunks, c)
			chunkMetadata = append(chunkMetadata, md)
		}
	}

	if len(chunks) == 0 {
		p.logger.Warn("no chunks produced from input batch", slog.Int("documents", len(texts)))
		return nil, nil
	}

	p.logger.Info("embedding chunk batch", slog.Int("chunks", len(chunks)))
	vectors := p.provider.Embed(ctx, chunks)
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding unavailable: no chunks indexed")
	}

	ids, err := p.store.Add(ctx, chunks, vectors, chunkMetadata)
	if err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}

	p.logger.Info("indexed chunk batch",
		slog.Int("documents", len(texts)),
		slog.Int("chunks", len(ids)))
	return ids, nil
}

// Retrieve embeds the query once and returns the store's ranked, already
// threshold-filtered records verbatim.
//
// The threshold is a tunable floor against totally unrelated matches, not
// a similarity bar with semantic meaning; ranking among the candidate set
// is what carries the signal.
func (p *Pipeline) Retrieve(ctx context.Context, query string, k int, threshold float64) ([]vectorstore.Record, error) {
	queryVector := p.provider.EmbedOne(ctx, query)
	if queryVector == nil {
		return nil, fmt.Errorf("embedding unavailable for query")
	}

	results, err := p.store.Query(ctx, queryVector, k, threshold)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	p.logger.Info("retrieved chunks",
		slog.Int("count", len(results)),
		slog.Float64("threshold", threshold))
	return results, nil
}

// Reset wipes the underlying index; callers needing isolation between runs
// invoke this between sessions.
func (p *Pipeline) Reset(ctx context.Context) error {
	return p.store.Reset(ctx)
}
