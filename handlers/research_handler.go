package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/athellier/larecherche/agent"
	"github.com/athellier/larecherche/cache"
	"github.com/athellier/larecherche/runstore"
	"github.com/athellier/larecherche/sources"
	"github.com/athellier/larecherche/storage"
)

// PipelineRunner is the one entry point the HTTP layer needs.
type PipelineRunner interface {
	RunPipeline(ctx context.Context, query string, documents []any) agent.Output
}

type ResearchHandler struct {
	runner  PipelineRunner
	sources []sources.Source
	cache   *cache.QueryCache
	archive *storage.Archive
	runs    *runstore.Store
	logger  *slog.Logger
}

func NewResearchHandler(runner PipelineRunner, srcs []sources.Source, queryCache *cache.QueryCache, archive *storage.Archive, runs *runstore.Store, logger *slog.Logger) *ResearchHandler {
	return &ResearchHandler{
		runner:  runner,
		sources: srcs,
		cache:   queryCache,
		archive: archive,
		runs:    runs,
		logger:  logger,
	}
}

type researchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	Documents  []any  `json:"documents,omitempty"`
}

// Research runs the pipeline synchronously. Documents may be supplied
// inline; otherwise they are fetched from the configured sources.
func (h *ResearchHandler) Research(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	if h.cache != nil && len(req.Documents) == 0 {
		if cached, ok := h.cache.Get(req.Query); ok {
			h.logger.Info("serving cached result", slog.String("query", req.Query))
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	docs := req.Documents
	if len(docs) == 0 {
		docs = h.fetchDocuments(r.Context(), req.Query, req.MaxResults)
	}

	out := h.runner.RunPipeline(r.Context(), req.Query, docs)
	if out.Failed() {
		writeJSON(w, http.StatusUnprocessableEntity, out)
		return
	}

	if h.cache != nil && len(req.Documents) == 0 {
		if err := h.cache.Set(req.Query, out); err != nil {
			h.logger.Warn("failed to cache result", slog.String("error", err.Error()))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Execute starts an asynchronous run and returns its execution id.
func (h *ResearchHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	exec := &runstore.Execution{
		ID:          uuid.NewString(),
		Query:       req.Query,
		Status:      runstore.StatusStarted,
		SubmittedAt: time.Now().UTC().Format(time.RFC3339),
	}
	h.runs.Put(exec)

	go func() {
		// The request context dies with the response; the run does not.
		ctx := context.Background()
		docs := req.Documents
		if len(docs) == 0 {
			docs = h.fetchDocuments(ctx, req.Query, req.MaxResults)
		}
		h.runs.Complete(exec.ID, h.runner.RunPipeline(ctx, req.Query, docs))
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"execution_id": exec.ID})
}

// ExecutionStatus reports an asynchronous run's state and, once finished,
// its output.
func (h *ResearchHandler) ExecutionStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	exec, ok := h.runs.Get(id)
	if !ok {
		http.Error(w, "execution not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

func (h *ResearchHandler) fetchDocuments(ctx context.Context, query string, maxResults int) []any {
	if maxResults <= 0 {
		maxResults = 5
	}

	var docs []any
	for _, src := range h.sources {
		for _, doc := range src.Search(ctx, query, maxResults) {
			docs = append(docs, doc)
			if h.archive != nil {
				if _, err := h.archive.SaveRaw(query, doc); err != nil {
					h.logger.Warn("failed to archive document",
						slog.String("source", src.Name()),
						slog.String("error", err.Error()))
				}
			}
		}
	}
	return docs
}

func (h *ResearchHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
