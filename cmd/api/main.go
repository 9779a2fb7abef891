// Package main implements the Snoutiq symptom-checker API server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/snoutiq/snoutiq-engine/engine/corpus"
	"github.com/snoutiq/snoutiq-engine/engine/domain"
	"github.com/snoutiq/snoutiq-engine/engine/rag"
	"github.com/snoutiq/snoutiq-engine/engine/retrieval"
	"github.com/snoutiq/snoutiq-engine/pkg/gemini"
	"github.com/snoutiq/snoutiq-engine/pkg/metrics"
	"github.com/snoutiq/snoutiq-engine/pkg/mid"
	"github.com/snoutiq/snoutiq-engine/pkg/ollama"
)

// Config holds all environment-based configuration.
type Config struct {
	Port         string
	OllamaURL    string
	EmbedModel   string
	GeminiKey    string
	GeminiModel  string
	DatasetDir   string
	LexiconPath  string
	CORSOrigin   string
	EmbedWorkers int
}

func loadConfig() Config {
	return Config{
		Port:         envOr("PORT", "8080"),
		OllamaURL:    envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:   envOr("EMBED_MODEL", "all-minilm"),
		GeminiKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  envOr("GEMINI_MODEL", "gemini-2.0-flash"),
		DatasetDir:   envOr("DATASET_DIR", "datasets"),
		LexiconPath:  os.Getenv("LEXICON_PATH"),
		CORSOrigin:   envOr("CORS_ORIGIN", "*"),
		EmbedWorkers: envIntOr("EMBED_WORKERS", 4),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.GeminiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}

	// --- Build the RAG service ---
	opts := rag.DefaultOptions()
	opts.EmbedWorkers = cfg.EmbedWorkers
	if cfg.LexiconPath != "" {
		lx, err := retrieval.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			return fmt.Errorf("load lexicon: %w", err)
		}
		opts.Search.Lexicon = lx
	}

	reg := metrics.New()
	embedder := ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel)
	generator := gemini.New(cfg.GeminiKey, cfg.GeminiModel)
	svc := rag.New(embedder, generator, opts, reg, logger)

	// --- Load datasets and build the index ---
	paths, err := corpus.FindDatasets(cfg.DatasetDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no dataset files found in %s", cfg.DatasetDir)
	}

	entries, err := corpus.LoadFiles(paths, logger)
	if err != nil {
		return fmt.Errorf("load datasets: %w", err)
	}
	if err := svc.Load(ctx, entries); err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth(svc))
	mux.HandleFunc("POST /query", handleQuery(svc, logger))
	mux.HandleFunc("GET /datasets/info", handleDatasetInfo(svc, cfg))
	mux.Handle("GET /metrics", reg.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("snoutiq-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// --- Handlers ---

func handleHealth(svc *rag.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "healthy",
			"service":    "snoutiq-api",
			"rag_loaded": svc.Loaded(),
		})
	}
}

// QueryRequest is the JSON body for POST /query.
type QueryRequest struct {
	domain.PetDetails
	Query string `json:"query"`
}

// QueryResponse is the envelope for POST /query.
type QueryResponse struct {
	Success bool             `json:"success"`
	Data    *rag.VetResponse `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func handleQuery(svc *rag.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !svc.Loaded() {
			writeJSON(w, http.StatusServiceUnavailable, QueryResponse{Error: "knowledge base not loaded"})
			return
		}

		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, QueryResponse{Error: "invalid request body"})
			return
		}
		if err := domain.ValidatePetDetails(req.PetDetails); err != nil {
			writeJSON(w, http.StatusBadRequest, QueryResponse{Error: err.Error()})
			return
		}
		if err := domain.ValidateQuery(req.Query); err != nil {
			writeJSON(w, http.StatusBadRequest, QueryResponse{Error: err.Error()})
			return
		}

		logger.Info("processing query", "pet", req.Name, "species", req.Species)
		resp := svc.ProcessQuery(r.Context(), req.PetDetails, req.Query)
		writeJSON(w, http.StatusOK, QueryResponse{Success: true, Data: resp})
	}
}

func handleDatasetInfo(svc *rag.Service, cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		store := svc.Store()
		if store == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"success": false,
				"error":   "knowledge base not loaded",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"total_entries":   store.Len(),
				"categories":      store.Categories(),
				"embedding_model": cfg.EmbedModel,
				"llm_model":       cfg.GeminiModel,
			},
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
