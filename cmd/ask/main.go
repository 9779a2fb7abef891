// Package main implements a one-shot CLI for smoke-testing the query
// pipeline against a local dataset directory.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/snoutiq/snoutiq-engine/engine/corpus"
	"github.com/snoutiq/snoutiq-engine/engine/domain"
	"github.com/snoutiq/snoutiq-engine/engine/rag"
	"github.com/snoutiq/snoutiq-engine/pkg/gemini"
	"github.com/snoutiq/snoutiq-engine/pkg/ollama"
)

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func main() {
	_ = godotenv.Load()

	name := flag.String("name", "Buddy", "pet name")
	species := flag.String("species", "Dog", "pet species")
	breed := flag.String("breed", "", "pet breed")
	age := flag.String("age", "", "pet age")
	datasetDir := flag.String("datasets", "datasets", "dataset directory")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ask [flags] <symptom query>")
		os.Exit(2)
	}
	query := flag.Arg(0)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if err := run(*datasetDir, domain.PetDetails{
		Name:    *name,
		Species: *species,
		Breed:   *breed,
		Age:     *age,
	}, query, logger); err != nil {
		logger.Error("ask failed", "err", err)
		os.Exit(1)
	}
}

func run(datasetDir string, pet domain.PetDetails, query string, logger *slog.Logger) error {
	ctx := context.Background()

	paths, err := corpus.FindDatasets(datasetDir)
	if err != nil {
		return err
	}
	entries, err := corpus.LoadFiles(paths, logger)
	if err != nil {
		return err
	}

	embedder := ollama.NewEmbedClient(envOr("OLLAMA_URL", "http://localhost:11434"), envOr("EMBED_MODEL", "all-minilm"))
	generator := gemini.New(os.Getenv("GEMINI_API_KEY"), envOr("GEMINI_MODEL", "gemini-2.0-flash"))
	svc := rag.New(embedder, generator, rag.DefaultOptions(), nil, logger)

	if err := svc.Load(ctx, entries); err != nil {
		return err
	}

	resp := svc.ProcessQuery(ctx, pet, query)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
