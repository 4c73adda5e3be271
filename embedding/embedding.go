// Package embedding maps text to fixed-dimension unit-norm vectors.
//
// The Provider wraps one of possibly several encoders picked at
// construction time and enforces the contract the rest of the pipeline
// relies on: an empty result, never an error, signals "embedding
// unavailable"; every returned vector has L2 norm 1.0.
package embedding

import (
	"context"
	"log/slog"
	"math"
	"strings"
)

// Encoder is a single embedding model implementation.
type Encoder interface {
	Name() string
	Dimension() int
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider selects the first usable encoder at construction and degrades
// to fail-fast empty results once no encoder is available.
type Provider struct {
	encoder Encoder
	logger  *slog.Logger
}

// NewProvider picks the first non-nil encoder. With no usable encoder the
// provider is marked unusable and every Embed call returns nil immediately.
func NewProvider(logger *slog.Logger, encoders ...Encoder) *Provider {
	p := &Provider{logger: logger}
	for _, enc := range encoders {
		if enc != nil {
			p.encoder = enc
			logger.Info("embedding provider initialized", slog.String("model", enc.Name()))
			return p
		}
	}
	logger.Error("no usable embedding model; embeddings disabled")
	return p
}

// Usable reports whether any encoder was selected.
func (p *Provider) Usable() bool { return p.encoder != nil }

// Dimension is the vector width of the active encoder, 0 when unusable.
func (p *Provider) Dimension() int {
	if p.encoder == nil {
		return 0
	}
	return p.encoder.Dimension()
}

// Name identifies the active encoder, "" when unusable.
func (p *Provider) Name() string {
	if p.encoder == nil {
		return ""
	}
	return p.encoder.Name()
}

// Embed encodes a batch of texts. Empty strings are filtered before
// encoding; the result carries one vector per surviving input, in order.
// Any failure yields nil, which callers must treat as a stage failure.
func (p *Provider) Embed(ctx context.Context, texts []string) [][]float32 {
	if p.encoder == nil {
		return nil
	}

	filtered := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	vectors, err := p.encoder.Encode(ctx, filtered)
	if err != nil {
		p.logger.Error("embedding failed",
			slog.String("model", p.encoder.Name()),
			slog.Int("batch_size", len(filtered)),
			slog.String("error", err.Error()))
		return nil
	}
	if len(vectors) != len(filtered) {
		p.logger.Error("embedding returned wrong batch size",
			slog.Int("want", len(filtered)),
			slog.Int("got", len(vectors)))
		return nil
	}

	// Normalize post-hoc regardless of what the model claims to have done.
	for _, v := range vectors {
		normalize(v)
	}
	return vectors
}

// EmbedOne encodes a single text, nil on failure.
func (p *Provider) EmbedOne(ctx context.Context, text string) []float32 {
	vectors := p.Embed(ctx, []string{text})
	if len(vectors) == 0 {
		return nil
	}
	return vectors[0]
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
