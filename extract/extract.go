// Package extract converts uploaded binary documents (PDF, Word) to plain
// text so they can enter the pipeline like any other document.
package extract

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"code.sajari.com/docconv/v2"
	"github.com/ledongthuc/pdf"
)

type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// FromPDF extracts the plain text of every page.
func (e *Extractor) FromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var text strings.Builder
	totalPages := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			e.logger.Warn("null page encountered", slog.Int("page_number", pageIndex))
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", pageIndex, err)
		}
		text.WriteString(pageText)
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("no text content extracted from PDF")
	}

	e.logger.Info("extracted PDF text",
		slog.Int("pages", totalPages),
		slog.Int("text_length", text.Len()))
	return text.String(), nil
}

// FromWord extracts the text of a .docx document.
func (e *Extractor) FromWord(data []byte) (string, error) {
	mimeType := "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	result, err := docconv.Convert(bytes.NewReader(data), mimeType, false)
	if err != nil {
		return "", fmt.Errorf("failed to convert Word document: %w", err)
	}
	if result == nil || strings.TrimSpace(result.Body) == "" {
		return "", fmt.Errorf("no text content extracted from Word document")
	}

	e.logger.Info("extracted Word text", slog.Int("text_length", len(result.Body)))
	return result.Body, nil
}

// FromUpload dispatches on the uploaded file's name.
func (e *Extractor) FromUpload(filename string, data []byte) (string, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".pdf"):
		return e.FromPDF(data)
	case strings.HasSuffix(strings.ToLower(filename), ".docx"):
		return e.FromWord(data)
	case strings.HasSuffix(strings.ToLower(filename), ".txt"):
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported document type: %s", filename)
	}
}
