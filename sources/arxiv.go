package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/athellier/larecherche/document"
)

const defaultArxivURL = "http://export.arxiv.org/api/query"

// Arxiv searches the arXiv Atom API for paper abstracts.
type Arxiv struct {
	BaseURL    string
	HTTPClient *http.Client
	logger     *slog.Logger
	limiter    rateLimiter
}

func NewArxiv(logger *slog.Logger) *Arxiv {
	return &Arxiv{
		BaseURL:    defaultArxivURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		// arXiv asks for no more than one request every 3 seconds.
		limiter: rateLimiter{minInterval: 3 * time.Second},
	}
}

func (s *Arxiv) Name() string { return "arxiv" }

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Title     string      `xml:"title"`
	Summary   string      `xml:"summary"`
	Published string      `xml:"published"`
	Links     []arxivLink `xml:"link"`
}

type arxivLink struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
}

func (s *Arxiv) Search(ctx context.Context, query string, maxResults int) []document.Document {
	if maxResults <= 0 {
		maxResults = 5
	}
	s.limiter.wait(ctx)

	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", "relevance")

	req, err := http.NewRequestWithContext(ctx, "GET", s.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		s.logger.Error("failed to build arxiv request", slog.String("error", err.Error()))
		return nil
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		s.logger.Error("arxiv request failed", slog.String("error", err.Error()))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("arxiv API returned non-200 status", slog.Int("status_code", resp.StatusCode))
		return nil
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		s.logger.Error("failed to decode arxiv feed", slog.String("error", err.Error()))
		return nil
	}

	docs := make([]document.Document, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		doc := document.Document{
			Title:   entry.Title,
			Summary: entry.Summary,
			Source:  s.Name(),
			Year:    yearFromDate(entry.Published),
		}
		for _, link := range entry.Links {
			if link.Type == "application/pdf" {
				doc.URL = link.Href
				break
			}
			if doc.URL == "" {
				doc.URL = link.Href
			}
		}
		docs = append(docs, doc)
	}

	s.logger.Info("fetched arxiv documents",
		slog.String("query", query),
		slog.Int("count", len(docs)))
	return docs
}

func yearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}
	var year int
	if _, err := fmt.Sscanf(date[:4], "%d", &year); err != nil {
		return 0
	}
	return year
}
