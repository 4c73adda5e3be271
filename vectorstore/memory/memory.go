// Package memory is the in-process vectorstore.Store: brute-force cosine
// over normalized vectors. It backs tests and deployments without a
// Postgres instance.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/athellier/larecherche/vectorstore"
)

type record struct {
	id       string
	text     string
	vector   []float32
	metadata map[string]string
}

// Store holds everything under one RWMutex; multiple pipeline runs share it.
type Store struct {
	mu      sync.RWMutex
	records []record
}

func New() *Store { return &Store{} }

func (s *Store) Add(_ context.Context, texts []string, embeddings [][]float32, metadatas []map[string]string) ([]string, error) {
	if len(texts) != len(embeddings) {
		return nil, fmt.Errorf("texts and embeddings length mismatch: %d != %d", len(texts), len(embeddings))
	}
	if metadatas == nil {
		metadatas = make([]map[string]string, len(texts))
	}
	if len(metadatas) != len(texts) {
		return nil, fmt.Errorf("metadatas length %d does not match texts length %d", len(metadatas), len(texts))
	}

	batch := make([]record, len(texts))
	ids := make([]string, len(texts))
	for i := range texts {
		md := metadatas[i]
		if md == nil {
			md = map[string]string{}
		}
		ids[i] = uuid.NewString()
		batch[i] = record{id: ids[i], text: texts[i], vector: embeddings[i], metadata: md}
	}

	s.mu.Lock()
	s.records = append(s.records, batch...)
	s.mu.Unlock()

	return ids, nil
}

func (s *Store) Query(_ context.Context, embedding []float32, k int, threshold float64) ([]vectorstore.Record, error) {
	if k <= 0 {
		k = 3
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]vectorstore.Record, 0, k)
	for _, r := range s.records {
		// Vectors are unit-normalized upstream, so cosine is a dot product.
		score := dot(r.vector, embedding)
		if score < threshold {
			continue
		}
		results = append(results, vectorstore.Record{
			ID:       r.id,
			Text:     r.text,
			Score:    score,
			Metadata: r.metadata,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
