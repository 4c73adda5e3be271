package extract

import (
	"io"
	"log/slog"
	"strings"
	"testing"
)

func testExtractor() *Extractor {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFromUploadPlainText(t *testing.T) {
	e := testExtractor()

	text, err := e.FromUpload("notes.TXT", []byte("plain text document body"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "plain text document body" {
		t.Errorf("text = %q", text)
	}
}

func TestFromUploadUnsupportedType(t *testing.T) {
	e := testExtractor()

	_, err := e.FromUpload("image.png", []byte{0x89, 0x50})
	if err == nil {
		t.Fatal("expected error for unsupported type")
	}
	if !strings.Contains(err.Error(), "unsupported document type") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFromPDFInvalidData(t *testing.T) {
	e := testExtractor()

	if _, err := e.FromPDF([]byte("not a pdf at all")); err == nil {
		t.Error("expected error for invalid PDF data")
	}
}

func TestFromWordInvalidData(t *testing.T) {
	e := testExtractor()

	if _, err := e.FromWord([]byte("not a docx archive")); err == nil {
		t.Error("expected error for invalid Word data")
	}
}
