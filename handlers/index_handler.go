package handlers

import (
	"context"
	"log/slog"
	"net/http"
)

// IndexResetter is implemented by the RAG pipeline.
type IndexResetter interface {
	Reset(ctx context.Context) error
}

// IndexHandler owns the vector index lifecycle endpoint. The index is
// shared across concurrent runs; callers needing isolation reset it
// between sessions.
type IndexHandler struct {
	resetter IndexResetter
	logger   *slog.Logger
}

func NewIndexHandler(resetter IndexResetter, logger *slog.Logger) *IndexHandler {
	return &IndexHandler{resetter: resetter, logger: logger}
}

func (h *IndexHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.resetter.Reset(r.Context()); err != nil {
		h.logger.Error("failed to reset index", slog.String("error", err.Error()))
		http.Error(w, "failed to reset index", http.StatusInternalServerError)
		return
	}
	h.logger.Info("vector index reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
