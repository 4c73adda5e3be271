// Package storage archives fetched documents as timestamped JSON files,
// raw and processed side by side. Archival is best-effort: a failed write
// is logged by the caller and never blocks the pipeline.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/athellier/larecherche/document"
)

type Archive struct {
	rawDir       string
	processedDir string
}

func New(baseDir string) (*Archive, error) {
	a := &Archive{
		rawDir:       filepath.Join(baseDir, "raw"),
		processedDir: filepath.Join(baseDir, "processed"),
	}
	for _, dir := range []string{a.rawDir, a.processedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}
	return a, nil
}

type archivedDocument struct {
	Query     string            `json:"query"`
	Timestamp string            `json:"timestamp"`
	Document  document.Document `json:"document"`
}

func (a *Archive) SaveRaw(query string, doc document.Document) (string, error) {
	return a.save(a.rawDir, query, doc)
}

func (a *Archive) SaveProcessed(query string, doc document.Document) (string, error) {
	return a.save(a.processedDir, query, doc)
}

func (a *Archive) save(dir, query string, doc document.Document) (string, error) {
	record := archivedDocument{
		Query:     query,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Document:  doc,
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	path := filepath.Join(dir, filename(doc.Source, query))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write archive file: %w", err)
	}
	return path, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9 _-]`)

func filename(source, query string) string {
	safe := unsafeChars.ReplaceAllString(query, "")
	safe = strings.ReplaceAll(strings.TrimSpace(safe), " ", "_")
	if len(safe) > 50 {
		safe = safe[:50]
	}
	if source == "" {
		source = "inline"
	}
	timestamp := time.Now().UTC().Format("20060102_150405.000000000")
	return fmt.Sprintf("%s_%s_%s.json", source, safe, timestamp)
}
