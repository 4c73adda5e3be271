package sources

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/athellier/larecherche/document"
)

const defaultSemanticScholarURL = "https://api.semanticscholar.org/graph/v1/paper/search"

// SemanticScholar searches the Semantic Scholar Graph API for paper
// abstracts. An API key is optional; unauthenticated clients get a tighter
// rate limit.
type SemanticScholar struct {
	BaseURL    string
	HTTPClient *http.Client
	apiKey     string
	logger     *slog.Logger
	limiter    rateLimiter
}

func NewSemanticScholar(apiKey string, logger *slog.Logger) *SemanticScholar {
	interval := 2 * time.Second
	if apiKey != "" {
		interval = time.Second
	}
	return &SemanticScholar{
		BaseURL:    defaultSemanticScholarURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		logger:     logger,
		limiter:    rateLimiter{minInterval: interval},
	}
}

func (s *SemanticScholar) Name() string { return "semantic_scholar" }

type semanticScholarResponse struct {
	Data []struct {
		Title           string `json:"title"`
		Abstract        string `json:"abstract"`
		URL             string `json:"url"`
		Year            int    `json:"year"`
		PublicationDate string `json:"publicationDate"`
		ExternalIDs     struct {
			DOI string `json:"DOI"`
		} `json:"externalIds"`
	} `json:"data"`
}

func (s *SemanticScholar) Search(ctx context.Context, query string, maxResults int) []document.Document {
	if maxResults <= 0 {
		maxResults = 5
	}
	s.limiter.wait(ctx)

	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(maxResults))
	params.Set("fields", "title,abstract,url,year,publicationDate,externalIds")

	req, err := http.NewRequestWithContext(ctx, "GET", s.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		s.logger.Error("failed to build semantic scholar request", slog.String("error", err.Error()))
		return nil
	}
	req.Header.Set("User-Agent", "larecherche/1.0")
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		s.logger.Error("semantic scholar request failed", slog.String("error", err.Error()))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("semantic scholar API returned non-200 status", slog.Int("status_code", resp.StatusCode))
		return nil
	}

	var scholarResp semanticScholarResponse
	if err := json.NewDecoder(resp.Body).Decode(&scholarResp); err != nil {
		s.logger.Error("failed to decode semantic scholar response", slog.String("error", err.Error()))
		return nil
	}

	var docs []document.Document
	for _, paper := range scholarResp.Data {
		// Papers without an abstract carry no retrievable text.
		if paper.Title == "" || paper.Abstract == "" {
			continue
		}
		doc := document.Document{
			Title:   paper.Title,
			Summary: paper.Abstract,
			URL:     paper.URL,
			Source:  s.Name(),
			Year:    paper.Year,
		}
		if doc.URL == "" && paper.ExternalIDs.DOI != "" {
			doc.URL = "https://doi.org/" + paper.ExternalIDs.DOI
		}
		if doc.Year == 0 {
			doc.Year = yearFromDate(paper.PublicationDate)
		}
		docs = append(docs, doc)
	}

	s.logger.Info("fetched semantic scholar documents",
		slog.String("query", query),
		slog.Int("count", len(docs)))
	return docs
}
