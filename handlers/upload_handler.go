package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/athellier/larecherche/extract"
)

// maxUploadBytes bounds in-memory parsing of uploaded documents.
const maxUploadBytes = 20 << 20

// UploadHandler accepts a PDF/Word/plain-text document plus a query and
// runs the pipeline over the extracted text.
type UploadHandler struct {
	runner    PipelineRunner
	extractor *extract.Extractor
	logger    *slog.Logger
}

func NewUploadHandler(runner PipelineRunner, extractor *extract.Extractor, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{runner: runner, extractor: extractor, logger: logger}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	query := r.FormValue("query")
	if query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		http.Error(w, "document file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, "failed to read uploaded document", http.StatusInternalServerError)
		return
	}

	text, err := h.extractor.FromUpload(header.Filename, data)
	if err != nil {
		h.logger.Warn("document extraction failed",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	out := h.runner.RunPipeline(r.Context(), query, []any{text})
	if out.Failed() {
		writeJSON(w, http.StatusUnprocessableEntity, out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
