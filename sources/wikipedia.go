package sources

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/athellier/larecherche/document"
)

const defaultWikipediaURL = "https://en.wikipedia.org/w/api.php"

// Wikipedia searches the MediaWiki API and returns article intro extracts.
// Extracts come back as HTML; goquery strips them down to text.
type Wikipedia struct {
	BaseURL    string
	HTTPClient *http.Client
	logger     *slog.Logger
	limiter    rateLimiter
}

func NewWikipedia(logger *slog.Logger) *Wikipedia {
	return &Wikipedia{
		BaseURL:    defaultWikipediaURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		limiter:    rateLimiter{minInterval: time.Second},
	}
}

func (s *Wikipedia) Name() string { return "wikipedia" }

type wikipediaResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
			FullURL string `json:"fullurl"`
		} `json:"pages"`
	} `json:"query"`
}

func (s *Wikipedia) Search(ctx context.Context, query string, maxResults int) []document.Document {
	if maxResults <= 0 {
		maxResults = 3
	}
	s.limiter.wait(ctx)

	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("generator", "search")
	params.Set("gsrsearch", query)
	params.Set("gsrlimit", strconv.Itoa(maxResults))
	params.Set("prop", "extracts|info")
	params.Set("exintro", "1")
	params.Set("inprop", "url")

	req, err := http.NewRequestWithContext(ctx, "GET", s.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		s.logger.Error("failed to build wikipedia request", slog.String("error", err.Error()))
		return nil
	}
	req.Header.Set("User-Agent", "larecherche/1.0")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		s.logger.Error("wikipedia request failed", slog.String("error", err.Error()))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("wikipedia API returned non-200 status", slog.Int("status_code", resp.StatusCode))
		return nil
	}

	var wikiResp wikipediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&wikiResp); err != nil {
		s.logger.Error("failed to decode wikipedia response", slog.String("error", err.Error()))
		return nil
	}

	var docs []document.Document
	for _, page := range wikiResp.Query.Pages {
		extract := stripHTML(page.Extract)
		if extract == "" {
			continue
		}
		docs = append(docs, document.Document{
			Title:   page.Title,
			Summary: extract,
			URL:     page.FullURL,
			Source:  s.Name(),
		})
	}

	s.logger.Info("fetched wikipedia documents",
		slog.String("query", query),
		slog.Int("count", len(docs)))
	return docs
}

func stripHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.TrimSpace(doc.Text())
}
