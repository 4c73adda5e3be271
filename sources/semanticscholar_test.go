package sources

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

const semanticScholarFixture = `{
  "data": [
    {
      "title": "Attention Is All You Need",
      "abstract": "We propose the Transformer, a model architecture based solely on attention mechanisms.",
      "url": "https://www.semanticscholar.org/paper/abc123",
      "year": 2017,
      "publicationDate": "2017-06-12",
      "externalIds": {"DOI": "10.5555/3295222"}
    },
    {
      "title": "Paper Without Abstract",
      "abstract": null,
      "url": "https://www.semanticscholar.org/paper/def456",
      "year": 2020
    },
    {
      "title": "DOI Only Paper",
      "abstract": "A study whose landing page is only reachable through its DOI.",
      "url": "",
      "publicationDate": "2019-03-01",
      "externalIds": {"DOI": "10.1000/xyz789"}
    }
  ]
}`

func newTestSemanticScholar(ts *httptest.Server, apiKey string) *SemanticScholar {
	s := NewSemanticScholar(apiKey, testLogger())
	s.BaseURL = ts.URL
	s.HTTPClient = ts.Client()
	s.limiter.minInterval = 0
	return s
}

func TestSemanticScholarSearch(t *testing.T) {
	var gotQuery, gotFields, gotKey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotFields = r.URL.Query().Get("fields")
		gotKey = r.Header.Get("x-api-key")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, semanticScholarFixture)
	}))
	defer ts.Close()

	s := newTestSemanticScholar(ts, "sk-test")
	docs := s.Search(context.Background(), "transformer architectures", 5)

	if gotQuery != "transformer architectures" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotFields != "title,abstract,url,year,publicationDate,externalIds" {
		t.Errorf("fields = %q", gotFields)
	}
	if gotKey != "sk-test" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	// The abstract-less paper is dropped.
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	first := docs[0]
	if first.Title != "Attention Is All You Need" {
		t.Errorf("title = %q", first.Title)
	}
	if first.URL != "https://www.semanticscholar.org/paper/abc123" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.Year != 2017 {
		t.Errorf("year = %d, want 2017", first.Year)
	}
	if first.Source != "semantic_scholar" {
		t.Errorf("source = %q, want semantic_scholar", first.Source)
	}

	second := docs[1]
	if second.URL != "https://doi.org/10.1000/xyz789" {
		t.Errorf("missing URL should fall back to the DOI, got %q", second.URL)
	}
	if second.Year != 2019 {
		t.Errorf("missing year should come from publicationDate, got %d", second.Year)
	}
}

func TestSemanticScholarNoAPIKeyHeader(t *testing.T) {
	sawKey := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawKey = r.Header["X-Api-Key"]
		io.WriteString(w, `{"data": []}`)
	}))
	defer ts.Close()

	s := newTestSemanticScholar(ts, "")
	s.Search(context.Background(), "anything", 3)
	if sawKey {
		t.Error("unauthenticated client must not send an x-api-key header")
	}
}

func TestSemanticScholarSearchServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	s := newTestSemanticScholar(ts, "")
	if docs := s.Search(context.Background(), "anything", 3); docs != nil {
		t.Errorf("non-200 response should yield nil, got %v", docs)
	}
}

func TestSemanticScholarSearchMalformedResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer ts.Close()

	s := newTestSemanticScholar(ts, "")
	if docs := s.Search(context.Background(), "anything", 3); docs != nil {
		t.Errorf("malformed response should yield nil, got %v", docs)
	}
}
