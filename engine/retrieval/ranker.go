package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/snoutiq/snoutiq-engine/engine/corpus"
	"github.com/snoutiq/snoutiq-engine/engine/domain"
	"github.com/snoutiq/snoutiq-engine/engine/semantic"
)

// Embedder converts text to fixed-dimension L2-normalized vectors. It must
// be deterministic for identical input and model version.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Options configures the ranking behaviour.
type Options struct {
	// TopK is the maximum number of results returned.
	TopK int
	// MinSimilarity is the raw cosine score below which a match is noise.
	MinSimilarity float32
	// SeverityBoost re-ranks results so more severe conditions surface above
	// equally-similar but less severe ones. Unknown severities get 1.0.
	SeverityBoost map[domain.Severity]float32
	Lexicon       Lexicon
}

// DefaultOptions returns the production search parameters.
func DefaultOptions() Options {
	return Options{
		TopK:          10,
		MinSimilarity: 0.3,
		SeverityBoost: map[domain.Severity]float32{
			domain.SeverityEmergency: 1.5,
			domain.SeverityUrgent:    1.2,
			domain.SeverityRoutine:   1.0,
		},
		Lexicon: DefaultLexicon(),
	}
}

// SearchResult is a ranked corpus match. Score is the severity-boosted
// value used for ordering; Similarity is the raw cosine score in [-1, 1].
type SearchResult struct {
	Score      float32         `json:"score"`
	Similarity float32         `json:"similarity"`
	Text       string          `json:"text"`
	Meta       corpus.Metadata `json:"metadata"`
}

// Ranker executes similarity search over the corpus with species filtering
// and severity-weighted re-ranking. Immutable after construction.
type Ranker struct {
	index  *semantic.Index
	store  *corpus.Store
	embed  Embedder
	opts   Options
	logger *slog.Logger
}

// NewRanker creates a Ranker over a built index and its corpus.
func NewRanker(index *semantic.Index, store *corpus.Store, embed Embedder, opts Options, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{index: index, store: store, embed: embed, opts: opts, logger: logger}
}

// Rank turns a raw query and optional species filter into at most TopK
// results ordered descending by boosted score. A nil or empty index yields
// an empty list rather than an error.
func (r *Ranker) Rank(ctx context.Context, query, speciesFilter string) ([]SearchResult, error) {
	if r == nil || r.index == nil || r.index.Len() == 0 {
		return nil, nil
	}

	expanded := r.opts.Lexicon.ExpandQuery(query)

	vecs, err := r.embed.Embed(ctx, []string{expanded})
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("retrieval: embed returned %d vectors, want 1", len(vecs))
	}

	// Over-fetch so the threshold and species filter still leave TopK.
	fetch := 2 * r.opts.TopK
	if fetch > r.index.Len() {
		fetch = r.index.Len()
	}

	hits, err := r.index.Search(vecs[0], fetch)
	if err != nil {
		return nil, fmt.Errorf("retrieval: index search: %w", err)
	}

	var results []SearchResult
	for _, hit := range hits {
		if hit.Score < r.opts.MinSimilarity {
			continue
		}
		entry := r.store.At(hit.Position)
		if speciesFilter != "" && !strings.EqualFold(entry.Meta.Species, speciesFilter) {
			continue
		}
		boost, ok := r.opts.SeverityBoost[entry.Meta.Severity]
		if !ok {
			boost = 1.0
		}
		results = append(results, SearchResult{
			Score:      hit.Score * boost,
			Similarity: hit.Score,
			Text:       entry.Text,
			Meta:       entry.Meta,
		})
	}

	// Stable: ties keep the index search order.
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})
	if len(results) > r.opts.TopK {
		results = results[:r.opts.TopK]
	}

	r.logger.Debug("retrieval: ranked", "query_len", len(query), "species", speciesFilter, "results", len(results))
	return results, nil
}
