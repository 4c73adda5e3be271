// Package vectorstore defines the persistence boundary for embedded
// chunks: add, nearest-neighbor query with a similarity floor, and a
// wholesale reset. The store is session-scoped shared state; callers that
// need isolation between runs reset it explicitly.
package vectorstore

import "context"

// Record is one stored chunk as returned by a query, ranked by Score.
type Record struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

// Store persists (text, embedding, metadata) triples.
//
// Add returns the assigned ids; from the caller's perspective either all
// records land or none do. Query returns up to k records with similarity
// >= threshold, descending; similarity is 1 - cosine distance. Reset
// empties the store wholesale.
type Store interface {
	Add(ctx context.Context, texts []string, embeddings [][]float32, metadatas []map[string]string) ([]string, error)
	Query(ctx context.Context, embedding []float32, k int, threshold float64) ([]Record, error)
	Reset(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
