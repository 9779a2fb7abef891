// Package rag orchestrates the retrieval-and-synthesis pipeline. It owns the
// corpus store and the vector index, ranks matches for a symptom query, and
// turns them into a structured recommendation via the generative boundary,
// falling back to a deterministic template when that boundary fails.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/snoutiq/snoutiq-engine/engine/corpus"
	"github.com/snoutiq/snoutiq-engine/engine/domain"
	"github.com/snoutiq/snoutiq-engine/engine/retrieval"
	"github.com/snoutiq/snoutiq-engine/engine/semantic"
	"github.com/snoutiq/snoutiq-engine/pkg/fn"
	"github.com/snoutiq/snoutiq-engine/pkg/metrics"
	"github.com/snoutiq/snoutiq-engine/pkg/resilience"
	"go.opentelemetry.io/otel"
)

// ErrAlreadyLoaded is returned when Load is called twice; the corpus and
// index are built once per process.
var ErrAlreadyLoaded = errors.New("rag: corpus already loaded")

// TextGenerator is the generative boundary: opaque, slow, may fail, and may
// return arbitrary text including non-JSON.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options configures the pipeline behaviour.
type Options struct {
	Search retrieval.Options
	// EmbedBatchSize is the number of corpus texts per embedding call at
	// load time.
	EmbedBatchSize int
	// EmbedWorkers bounds how many embedding batches run concurrently at
	// load time. Query-time embedding is always a single call.
	EmbedWorkers int
	// GenerateTimeout bounds each attempt against the generative boundary.
	GenerateTimeout time.Duration
	// GenerateAttempts is the total number of generation attempts before
	// falling back (2 means one retry).
	GenerateAttempts int
	// GenerateRate limits generation calls per second (0 disables).
	GenerateRate float64
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Search:           retrieval.DefaultOptions(),
		EmbedBatchSize:   64,
		EmbedWorkers:     4,
		GenerateTimeout:  8 * time.Second,
		GenerateAttempts: 2,
		GenerateRate:     5,
	}
}

// loaded is the read-only state published once by Load.
type loaded struct {
	store  *corpus.Store
	ranker *retrieval.Ranker
	dim    int
}

// Service is the query pipeline. Construct once at startup and share across
// request handlers; all state is read-only after Load.
type Service struct {
	embed    retrieval.Embedder
	generate fn.Stage[string, string]
	opts     Options
	logger   *slog.Logger

	loadMu sync.Mutex
	state  atomic.Pointer[loaded]

	queriesTotal     *metrics.Counter
	fallbacksTotal   *metrics.Counter
	emergenciesTotal *metrics.Counter
	corpusEntries    *metrics.Gauge
	queryDuration    *metrics.Histogram
}

// New creates a Service over the embedding and generative boundaries. The
// registry may be shared with the HTTP layer; a nil registry gets a private
// one so the Service never branches on metrics being present.
func New(embed retrieval.Embedder, gen TextGenerator, opts Options, reg *metrics.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = metrics.New()
	}

	s := &Service{
		embed:  embed,
		opts:   opts,
		logger: logger,

		queriesTotal:     reg.Counter("snoutiq_queries_total", "Queries processed"),
		fallbacksTotal:   reg.Counter("snoutiq_fallbacks_total", "Responses served from the deterministic fallback"),
		emergenciesTotal: reg.Counter("snoutiq_emergencies_total", "Queries flagged as emergencies"),
		corpusEntries:    reg.Gauge("snoutiq_corpus_entries", "Corpus entries indexed"),
		queryDuration:    reg.Histogram("snoutiq_query_duration_seconds", "End-to-end query latency", nil),
	}
	s.generate = buildGenerateStage(gen, opts)
	return s
}

// buildGenerateStage wraps the raw generative call with a per-attempt
// timeout, bounded retries, a circuit breaker, and a rate limiter. This is
// the only network suspension point in the pipeline.
func buildGenerateStage(gen TextGenerator, opts Options) fn.Stage[string, string] {
	base := fn.Stage[string, string](func(ctx context.Context, prompt string) fn.Result[string] {
		if opts.GenerateTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.GenerateTimeout)
			defer cancel()
		}
		return fn.FromPair(gen.Generate(ctx, prompt))
	})

	attempts := opts.GenerateAttempts
	if attempts <= 0 {
		attempts = 1
	}
	retried := fn.RetryStage(fn.RetryOpts{
		MaxAttempts: attempts,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     2 * time.Second,
		Jitter:      true,
	}, base)

	guarded := resilience.BreakerStage(resilience.NewBreaker(resilience.DefaultBreakerOpts), retried)
	if opts.GenerateRate > 0 {
		limiter := resilience.NewLimiter(resilience.LimiterOpts{Rate: opts.GenerateRate, Burst: int(opts.GenerateRate)})
		guarded = resilience.LimiterStageWait(limiter, guarded)
	}
	return fn.TracedStage("rag.generate", guarded)
}

// Load embeds the corpus entries, builds the vector index, and publishes the
// read-only state exactly once. Queries arriving before Load completes get
// the no-match fallback.
func (s *Service) Load(ctx context.Context, entries []corpus.Entry) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if s.state.Load() != nil {
		return ErrAlreadyLoaded
	}
	if len(entries) == 0 {
		return corpus.ErrNoEntries
	}

	start := time.Now()
	store := corpus.NewStore(entries)

	batches := fn.Chunk(store.Texts(), s.opts.EmbedBatchSize)
	results := fn.ParMapResult(batches, s.opts.EmbedWorkers, func(batch []string) fn.Result[[][]float32] {
		return fn.FromPair(s.embed.Embed(ctx, batch))
	})
	collected, err := fn.Collect(results).Unwrap()
	if err != nil {
		return fmt.Errorf("rag: embed corpus: %w", err)
	}

	var vectors [][]float32
	for _, batch := range collected {
		vectors = append(vectors, batch...)
	}

	index, err := semantic.Build(vectors)
	if err != nil {
		return fmt.Errorf("rag: build index: %w", err)
	}

	ranker := retrieval.NewRanker(index, store, s.embed, s.opts.Search, s.logger)
	s.state.Store(&loaded{store: store, ranker: ranker, dim: index.Dim()})
	s.corpusEntries.Set(int64(store.Len()))

	s.logger.Info("rag: corpus loaded",
		"entries", store.Len(),
		"dim", index.Dim(),
		"duration", time.Since(start),
	)
	return nil
}

// Loaded reports whether Load has completed. Consumed by readiness checks.
func (s *Service) Loaded() bool {
	return s.state.Load() != nil
}

// Store returns the corpus store, or nil before Load.
func (s *Service) Store() *corpus.Store {
	st := s.state.Load()
	if st == nil {
		return nil
	}
	return st.store
}

// Search ranks corpus matches for a raw query and optional species filter.
// Before Load it returns an empty list rather than failing.
func (s *Service) Search(ctx context.Context, query, speciesFilter string) ([]retrieval.SearchResult, error) {
	st := s.state.Load()
	if st == nil {
		return nil, nil
	}
	return st.ranker.Rank(ctx, query, speciesFilter)
}

// ProcessQuery is the sole public pipeline entry point. It never fails for
// well-formed input: retrieval and generation errors all resolve to a
// deterministic fallback, so the caller always gets a complete VetResponse.
func (s *Service) ProcessQuery(ctx context.Context, pet domain.PetDetails, query string) *VetResponse {
	ctx, span := otel.Tracer("engine/rag").Start(ctx, "rag.process_query")
	defer span.End()

	start := time.Now()
	defer s.queryDuration.Since(start)
	s.queriesTotal.Inc()

	reqID := uuid.NewString()
	pet = domain.ApplyDefaults(pet)
	lex := s.opts.Search.Lexicon

	speciesFilter := lex.NormalizeSpecies(pet.Species)
	isEmergency := lex.DetectEmergency(query)
	if isEmergency {
		s.emergenciesTotal.Inc()
	}

	matches, err := s.Search(ctx, query, speciesFilter)
	if err != nil {
		// Retrieval failure degrades to the no-match fallback path.
		s.logger.Warn("rag: retrieval failed", "req_id", reqID, "err", err)
		matches = nil
	}
	s.logger.Info("rag: retrieved", "req_id", reqID, "matches", len(matches), "species", speciesFilter, "emergency", isEmergency)

	resp, usedFallback := s.synthesize(ctx, pet, query, matches, isEmergency)
	if usedFallback {
		s.fallbacksTotal.Inc()
	}

	resp.QueryMetadata = QueryMetadata{
		Timestamp:   time.Now(),
		NumMatches:  len(matches),
		IsEmergency: isEmergency,
	}
	if len(matches) > 0 {
		resp.QueryMetadata.TopMatchScore = matches[0].Score
	}

	s.logger.Info("rag: response ready",
		"req_id", reqID,
		"urgency", resp.UrgencyLevel,
		"confidence", resp.Confidence,
		"fallback", usedFallback,
		"duration", time.Since(start),
	)
	return resp
}

// synthesize runs BUILD_PROMPT → INVOKE_LLM → PARSE, branching to the
// fallback template when generation or parsing fails. The bool reports
// whether the fallback path was taken.
func (s *Service) synthesize(ctx context.Context, pet domain.PetDetails, query string, matches []retrieval.SearchResult, isEmergency bool) (*VetResponse, bool) {
	prompt := buildPrompt(pet, query, matches, isEmergency)

	reply, err := s.generate(ctx, prompt).Unwrap()
	if err != nil {
		s.logger.Warn("rag: generation failed, using fallback", "err", err)
		resp := fallbackResponse(pet, matches, isEmergency)
		return &resp, true
	}

	parsed, err := parseStructured(reply).Unwrap()
	if err != nil {
		s.logger.Warn("rag: unparseable reply, using fallback", "err", err, "reply_len", len(reply))
		resp := fallbackResponse(pet, matches, isEmergency)
		return &resp, true
	}

	resp := sanitize(parsed, pet, isEmergency)
	return &resp, false
}
