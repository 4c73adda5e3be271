package rag

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/athellier/larecherche/embedding"
	"github.com/athellier/larecherche/vectorstore/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingEncoder struct{}

func (failingEncoder) Name() string   { return "failing" }
func (failingEncoder) Dimension() int { return 8 }
func (failingEncoder) Encode(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("encoder unavailable")
}

func TestIngestAndRetrieve(t *testing.T) {
	logger := testLogger()
	provider := embedding.NewProvider(logger, embedding.NewNgramEncoder(128))
	store := memory.New()
	p := New(provider, store, 200, 40, logger)
	ctx := context.Background()

	docs := []string{
		strings.Repeat("Neural networks learn layered representations from data. ", 6),
		strings.Repeat("Medieval fortifications relied on thick stone walls. ", 6),
	}
	metadatas := []map[string]string{
		{"title": "Neural Networks", "source": "arxiv"},
		{"title": "Castles", "source": "wikipedia"},
	}

	ids, err := p.Ingest(ctx, docs, metadatas)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(ids) < 2 {
		t.Fatalf("expected chunks from both documents, got %d ids", len(ids))
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != len(ids) {
		t.Errorf("store holds %d records, Ingest returned %d ids", count, len(ids))
	}

	results, err := p.Retrieve(ctx, "neural network representations", 3, 0.0)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one retrieved chunk")
	}
	if !strings.Contains(strings.ToLower(results[0].Text), "neural") {
		t.Errorf("top chunk should come from the neural networks document, got %q", results[0].Text)
	}
	if results[0].Metadata["source"] != "arxiv" {
		t.Errorf("chunk metadata not propagated: %v", results[0].Metadata)
	}
}

func TestIngestEmptyBatch(t *testing.T) {
	logger := testLogger()
	provider := embedding.NewProvider(logger, embedding.NewNgramEncoder(64))
	p := New(provider, memory.New(), 200, 40, logger)

	ids, err := p.Ingest(context.Background(), []string{"", "tiny"}, nil)
	if err != nil {
		t.Fatalf("Ingest of unusable input should not error, got %v", err)
	}
	if ids != nil {
		t.Errorf("expected no ids for empty batch, got %v", ids)
	}
}

func TestIngestEmbeddingFailure(t *testing.T) {
	logger := testLogger()
	provider := embedding.NewProvider(logger, failingEncoder{})
	p := New(provider, memory.New(), 200, 40, logger)

	text := strings.Repeat("Some indexable sentence with enough length to chunk. ", 5)
	_, err := p.Ingest(context.Background(), []string{text}, nil)
	if err == nil {
		t.Fatal("expected error when embedding fails")
	}
	if !strings.Contains(err.Error(), "embedding unavailable") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	logger := testLogger()
	provider := embedding.NewProvider(logger, failingEncoder{})
	p := New(provider, memory.New(), 200, 40, logger)

	_, err := p.Retrieve(context.Background(), "anything", 3, 0.0)
	if err == nil {
		t.Fatal("expected error when query embedding fails")
	}
	if !strings.Contains(err.Error(), "embedding unavailable") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestReset(t *testing.T) {
	logger := testLogger()
	provider := embedding.NewProvider(logger, embedding.NewNgramEncoder(64))
	store := memory.New()
	p := New(provider, store, 200, 40, logger)
	ctx := context.Background()

	text := strings.Repeat("Indexed content that should disappear after a reset. ", 5)
	if _, err := p.Ingest(ctx, []string{text}, nil); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if err := p.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("store not empty after reset: %d records", n)
	}
}
