package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// NgramEncoder is the lightweight offline fallback model: word and
// character-trigram features hashed into a fixed number of buckets. The
// vectors are only lexically meaningful, which is enough to keep retrieval
// ranking alive when the remote model is unreachable.
type NgramEncoder struct {
	dimension int
}

const defaultNgramDimension = 256

func NewNgramEncoder(dimension int) *NgramEncoder {
	if dimension <= 0 {
		dimension = defaultNgramDimension
	}
	return &NgramEncoder{dimension: dimension}
}

func (e *NgramEncoder) Name() string { return "hashed-ngram" }

func (e *NgramEncoder) Dimension() int { return e.dimension }

func (e *NgramEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := e.encodeOne(text)
		if !ok {
			return nil, fmt.Errorf("text %d has no letter or digit features to hash", i)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// encodeOne reports false for text with no hashable features; a zero vector
// has no direction and must never reach the store.
func (e *NgramEncoder) encodeOne(text string) ([]float32, bool) {
	words := tokenizeLower(text)
	if len(words) == 0 {
		return nil, false
	}

	vec := make([]float32, e.dimension)
	for _, word := range words {
		vec[e.bucket(word)]++

		// Character trigrams give partial-match signal across word forms.
		runes := []rune(word)
		for j := 0; j+3 <= len(runes); j++ {
			vec[e.bucket(string(runes[j:j+3]))] += 0.5
		}
	}

	return vec, true
}

func (e *NgramEncoder) bucket(s string) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32() % uint32(e.dimension))
}

func tokenizeLower(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
