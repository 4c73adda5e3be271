package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/urfave/negroni"

	"github.com/athellier/larecherche/agent"
	"github.com/athellier/larecherche/cache"
	"github.com/athellier/larecherche/config"
	"github.com/athellier/larecherche/db"
	"github.com/athellier/larecherche/embedding"
	"github.com/athellier/larecherche/extract"
	"github.com/athellier/larecherche/handlers"
	"github.com/athellier/larecherche/llm_service"
	"github.com/athellier/larecherche/logging"
	"github.com/athellier/larecherche/orchestrator"
	"github.com/athellier/larecherche/rag"
	"github.com/athellier/larecherche/runstore"
	"github.com/athellier/larecherche/server"
	"github.com/athellier/larecherche/sources"
	"github.com/athellier/larecherche/storage"
	"github.com/athellier/larecherche/vectorstore"
	"github.com/athellier/larecherche/vectorstore/memory"
	"github.com/athellier/larecherche/vectorstore/pgvector"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogDir)

	provider := buildEmbeddingProvider(cfg, logger)
	store := buildVectorStore(cfg, provider, logger)

	ragPipeline := rag.New(provider, store, cfg.ChunkSize, cfg.ChunkOverlap, logger)

	summaryService := llm_service.NewOpenAIService(cfg.OpenAIAPIKey, cfg.SummaryModel, logger)

	researcher := agent.NewResearcher(ragPipeline, agent.ResearcherConfig{
		TopK:                 cfg.RetrievalTopK,
		Threshold:            cfg.RetrievalThreshold,
		DirectFallbackConf:   cfg.DirectFallbackConf,
		CombinedFallbackConf: cfg.CombinedFallbackConf,
	}, logger)

	summarizer := agent.NewSummarizer(summaryService, agent.SummarizerConfig{
		MinContextWords: cfg.MinContextWords,
		GenerativeConf:  cfg.GenerativeConf,
		ExtractiveConf:  cfg.ExtractiveConf,
	}, logger)

	reviewer := agent.NewReviewer(summarizer, agent.ReviewerConfig{
		Threshold:         cfg.ReviewThreshold,
		RetryPenalty:      cfg.RetryPenalty,
		MinWords:          cfg.ReviewMinWords,
		MaxWords:          cfg.ReviewMaxWords,
		LengthPenalty:     cfg.LengthPenalty,
		KeywordFloor:      cfg.KeywordFloor,
		KeywordPenalty:    cfg.KeywordPenalty,
		ConfidenceFloor:   cfg.ConfidenceFloor,
		ConfidenceCeiling: cfg.ConfidenceCeiling,
	}, logger)

	orch := orchestrator.New(researcher, summarizer, reviewer, orchestrator.Config{
		CoherenceKeywordFloor:    cfg.CoherenceKeywordFloor,
		CoherenceSimilarityFloor: cfg.CoherenceSimilarityFloor,
		CoherencePenalty:         cfg.CoherencePenalty,
	}, logger)

	queryCache, err := cache.New(filepath.Join(cfg.DataDir, "cache"))
	if err != nil {
		logger.Warn("query cache disabled", slog.String("error", err.Error()))
		queryCache = nil
	}
	archive, err := storage.New(cfg.DataDir)
	if err != nil {
		logger.Warn("document archive disabled", slog.String("error", err.Error()))
		archive = nil
	}

	runs := runstore.New(cfg.ExecutionTTL, cfg.ExecutionCleanupInterval, logger)
	defer runs.Close()

	srcs := []sources.Source{
		sources.NewArxiv(logger),
		sources.NewWikipedia(logger),
		sources.NewSemanticScholar(cfg.SemanticScholarAPIKey, logger),
	}

	researchHandler := handlers.NewResearchHandler(orch, srcs, queryCache, archive, runs, logger)
	indexHandler := handlers.NewIndexHandler(ragPipeline, logger)
	uploadHandler := handlers.NewUploadHandler(orch, extract.New(logger), logger)

	r := server.SetupRoutes(researchHandler, indexHandler, uploadHandler)

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.Use(negroni.NewLogger())
	n.UseHandler(r)

	if cfg.Environment == "production" {
		server.ServeProduction(n, server.Config{
			Domains:      cfg.Domains,
			CertCacheDir: cfg.CertCacheDir,
			HTTPPort:     cfg.HTTPPort,
			HTTPSPort:    cfg.HTTPSPort,
		})
		return
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      n,
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	server.ServeDevelopment(srv)
}

func buildEmbeddingProvider(cfg config.Config, logger *slog.Logger) *embedding.Provider {
	var primary embedding.Encoder
	if enc, err := embedding.NewOpenAIEncoder(cfg.OpenAIAPIKey, cfg.EmbeddingModel); err == nil {
		primary = enc
	} else {
		logger.Warn("primary embedding model unavailable, using fallback",
			slog.String("error", err.Error()))
	}
	return embedding.NewProvider(logger, primary, embedding.NewNgramEncoder(0))
}

func buildVectorStore(cfg config.Config, provider *embedding.Provider, logger *slog.Logger) vectorstore.Store {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set, using in-memory vector store")
		return memory.New()
	}

	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	store, err := pgvector.New(context.Background(), pool, provider.Dimension(), logger)
	if err != nil {
		log.Fatalf("failed to initialize pgvector store: %v", err)
	}
	return store
}
