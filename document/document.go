// Package document defines the canonical record every input is coerced to
// before entering the pipeline. Inputs are heterogeneous (plain strings,
// partial records, decoded JSON maps); nothing downstream of Normalize is
// allowed to branch on the original shape.
package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/athellier/larecherche/textutil"
)

// Document is the canonical shape of one external input unit.
type Document struct {
	Title    string `json:"title,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Abstract string `json:"abstract,omitempty"`
	Content  string `json:"content,omitempty"`
	URL      string `json:"url,omitempty"`
	Source   string `json:"source,omitempty"`
	Year     int    `json:"year,omitempty"`
}

// minBody drops documents whose normalized body carries no real content.
const minBody = 10

// Body extracts the document's text in priority order: summary, abstract,
// content, then a title+summary+abstract concatenation as last resort.
func (d Document) Body() string {
	if s := strings.TrimSpace(d.Summary); s != "" {
		return s
	}
	if s := strings.TrimSpace(d.Abstract); s != "" {
		return s
	}
	if s := strings.TrimSpace(d.Content); s != "" {
		return s
	}
	combined := strings.TrimSpace(strings.Join([]string{d.Title, d.Summary, d.Abstract}, " "))
	return combined
}

// Valid reports whether the document survives the content guard.
func (d Document) Valid() bool {
	return len(d.Body()) > minBody
}

// Metadata returns the per-document metadata replicated onto every chunk.
func (d Document) Metadata() map[string]string {
	m := map[string]string{}
	if d.Title != "" {
		m["title"] = d.Title
	}
	if d.URL != "" {
		m["url"] = d.URL
	}
	if d.Source != "" {
		m["source"] = d.Source
	}
	if d.Year != 0 {
		m["year"] = strconv.Itoa(d.Year)
	}
	return m
}

// Normalize coerces one heterogeneous input into a Document. Supported
// shapes: Document, *Document, string (used verbatim as content), and
// map[string]any as produced by decoding free-form JSON. The boolean is
// false when the result fails the content guard.
func Normalize(v any) (Document, bool) {
	var doc Document

	switch t := v.(type) {
	case Document:
		doc = t
	case *Document:
		if t != nil {
			doc = *t
		}
	case string:
		doc = Document{Content: strings.TrimSpace(t)}
	case map[string]any:
		doc = fromMap(t)
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = val
		}
		doc = fromMap(m)
	default:
		return Document{}, false
	}

	doc.Title = textutil.Clean(doc.Title)
	doc.Summary = textutil.Clean(doc.Summary)
	doc.Abstract = textutil.Clean(doc.Abstract)
	doc.Content = textutil.Clean(doc.Content)

	return doc, doc.Valid()
}

func fromMap(m map[string]any) Document {
	doc := Document{
		Title:    stringField(m, "title"),
		Summary:  stringField(m, "summary"),
		Abstract: stringField(m, "abstract"),
		URL:      stringField(m, "url"),
		Source:   stringField(m, "source"),
	}

	doc.Content = stringField(m, "content")
	if doc.Content == "" {
		doc.Content = stringField(m, "body")
	}
	if doc.Content == "" {
		doc.Content = stringField(m, "text")
	}

	switch y := m["year"].(type) {
	case int:
		doc.Year = y
	case float64:
		doc.Year = int(y)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(y)); err == nil {
			doc.Year = n
		}
	}

	return doc
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key]; ok && v != nil {
		switch s := v.(type) {
		case string:
			return s
		default:
			return fmt.Sprintf("%v", s)
		}
	}
	return ""
}
