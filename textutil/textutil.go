// Package textutil holds the text normalization, chunking and lexical
// scoring primitives shared by the retrieval pipeline and the agents.
package textutil

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

var (
	htmlTagPattern     = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
	multiPeriodPattern = regexp.MustCompile(`\.{2,}`)
	multiCommaPattern  = regexp.MustCompile(`,{2,}`)
	sentencePattern    = regexp.MustCompile(`[^.!?]+[.!?]`)
	tokenPattern       = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// Clean normalizes raw text: markup stripped, whitespace runs collapsed,
// control characters removed, repeated sentence punctuation collapsed, and
// a terminal punctuation mark guaranteed. Empty input yields "".
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = htmlTagPattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	text = b.String()

	text = multiPeriodPattern.ReplaceAllString(text, ".")
	text = multiCommaPattern.ReplaceAllString(text, ",")
	text = strings.TrimSpace(text)

	if text != "" && !strings.ContainsRune(".!?", rune(text[len(text)-1])) {
		text += "."
	}

	return text
}

// minChunkable guards against indexing trivially short content.
const minChunkable = 10

// Chunk splits text into spans of at most chunkSize characters, preferring
// a sentence boundary in the back half of each window and overlapping
// consecutive chunks by overlap characters. Offsets are rune offsets, so
// multi-byte text never splits mid-character. Pure function of its inputs.
func Chunk(text string, chunkSize, overlap int) []string {
	runes := []rune(text)
	if len(runes) < minChunkable || chunkSize <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 5
	}

	var chunks []string
	start := 0

	for start < len(runes) {
		end := start + chunkSize
		if end < len(runes) {
			// Prefer a sentence ending, but only when it sits far enough
			// into the window to keep chunks from degenerating.
			if idx := lastRune(runes[start:end], '.'); idx >= 0 && idx > chunkSize/2 {
				end = start + idx + 1
			}
		} else {
			end = len(runes)
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			// A sentence boundary early in the window plus a generous
			// overlap must not stall the walk.
			next = end
		}
		start = next
	}

	return chunks
}

func lastRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

// Sentences splits text into sentence-shaped spans. Text without terminal
// punctuation comes back as a single trimmed sentence.
func Sentences(text string) []string {
	matches := sentencePattern.FindAllString(text, -1)
	if len(matches) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if s := strings.TrimSpace(m); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Words returns the whitespace-delimited word count.
func Words(text string) int {
	return len(strings.Fields(text))
}

// TruncateChars cuts text to at most maxLen characters, backing up to the
// previous word boundary when one exists.
func TruncateChars(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	cut := runes[:maxLen]
	if idx := lastRune(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return string(cut) + "..."
}

// Tokens lower-cases text and extracts letter runs, dropping stop words.
func Tokens(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokens(text) {
		set[tok] = struct{}{}
	}
	return set
}

// KeywordOverlap is the fraction of the query's content words that also
// occur in the candidate text. Returns 0 for an empty query.
func KeywordOverlap(query, text string) float64 {
	qset := tokenSet(query)
	if len(qset) == 0 {
		return 0
	}
	tset := tokenSet(text)
	shared := 0
	for tok := range qset {
		if _, ok := tset[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(qset))
}

// Similarity is the cosine of the two texts' content-word sets, a cheap
// order-free relatedness signal in [0,1].
func Similarity(a, b string) float64 {
	aset := tokenSet(a)
	bset := tokenSet(b)
	if len(aset) == 0 || len(bset) == 0 {
		return 0
	}
	shared := 0
	for tok := range aset {
		if _, ok := bset[tok]; ok {
			shared++
		}
	}
	return float64(shared) / math.Sqrt(float64(len(aset))*float64(len(bset)))
}

// Entities extracts capitalized phrases: maximal runs of words starting
// with an upper-case letter, lower-cased for comparison.
func Entities(text string) []string {
	var entities []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			entities = append(entities, strings.ToLower(strings.Join(current, " ")))
			current = nil
		}
	}

	for _, word := range strings.Fields(text) {
		trimmed := strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if trimmed == "" {
			flush()
			continue
		}
		first := []rune(trimmed)[0]
		if unicode.IsUpper(first) {
			current = append(current, trimmed)
		} else {
			flush()
		}
	}
	flush()

	return entities
}

// EntityOverlap is the fraction of the query's capitalized phrases that
// also appear in the candidate text. 0 when the query names none.
func EntityOverlap(query, text string) float64 {
	qents := Entities(query)
	if len(qents) == 0 {
		return 0
	}
	tents := make(map[string]struct{})
	for _, e := range Entities(text) {
		tents[e] = struct{}{}
	}
	shared := 0
	for _, e := range qents {
		if _, ok := tents[e]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(qents))
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
		"to", "of", "in", "on", "at", "by", "with", "as", "is", "are",
		"was", "were", "be", "been", "being", "it", "this", "that", "these",
		"those", "from", "up", "down", "over", "under", "again", "further",
		"than", "so", "such", "into", "about", "between", "through",
		"during", "before", "after", "above", "below", "out", "off", "own",
		"same", "too", "very", "can", "will", "just", "what", "which",
		"who", "whom", "how", "when", "where", "why", "not", "no", "nor",
		"do", "does", "did", "have", "has", "had",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
