package retrieval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"

	"github.com/snoutiq/snoutiq-engine/engine/corpus"
	"github.com/snoutiq/snoutiq-engine/engine/domain"
	"github.com/snoutiq/snoutiq-engine/engine/semantic"
)

// stubEmbedder returns the same vector for every input text.
type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}

func axis(i int) []float32 {
	v := make([]float32, 4)
	v[i] = 1
	return v
}

// withSim builds a unit vector whose dot product with axis(0) equals sim.
func withSim(sim float64) []float32 {
	rest := float32(math.Sqrt(1 - sim*sim))
	return []float32{float32(sim), rest, 0, 0}
}

type rankedEntry struct {
	vec  []float32
	meta corpus.Metadata
}

func buildRanker(t *testing.T, opts Options, rows []rankedEntry) *Ranker {
	t.Helper()

	vectors := make([][]float32, len(rows))
	entries := make([]corpus.Entry, len(rows))
	for i, row := range rows {
		vectors[i] = row.vec
		entries[i] = corpus.NewEntry(row.meta, i)
	}

	index, err := semantic.Build(vectors)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRanker(index, corpus.NewStore(entries), &stubEmbedder{vec: axis(0)}, opts, logger)
}

func testRows() []rankedEntry {
	return []rankedEntry{
		{axis(0), corpus.Metadata{Symptom: "Mild upset", Description: "d", Severity: domain.SeverityRoutine, Species: "dogs"}},
		{axis(0), corpus.Metadata{Symptom: "Bloat", Description: "d", Severity: domain.SeverityEmergency, Species: "dogs"}},
		{axis(0), corpus.Metadata{Symptom: "Hairball", Description: "d", Severity: domain.SeverityUrgent, Species: "cats"}},
		{axis(1), corpus.Metadata{Symptom: "Unrelated", Description: "d", Severity: domain.SeverityRoutine, Species: "dogs"}},
	}
}

func TestRank_SeverityOrderingAndSpeciesFilter(t *testing.T) {
	r := buildRanker(t, DefaultOptions(), testRows())

	results, err := r.Rank(context.Background(), "strange swelling", "dogs")
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (cats filtered, orthogonal below threshold): %+v", len(results), results)
	}
	if results[0].Meta.Symptom != "Bloat" {
		t.Errorf("emergency entry should outrank routine, got %q first", results[0].Meta.Symptom)
	}
	if got := results[0].Score; math.Abs(float64(got)-1.5) > 1e-5 {
		t.Errorf("emergency boosted score = %v, want 1.5", got)
	}
	if got := results[0].Similarity; math.Abs(float64(got)-1.0) > 1e-5 {
		t.Errorf("raw similarity = %v, want 1.0", got)
	}
	if got := results[1].Score; math.Abs(float64(got)-1.0) > 1e-5 {
		t.Errorf("routine boosted score = %v, want 1.0", got)
	}
}

func TestRank_NoSpeciesFilter(t *testing.T) {
	r := buildRanker(t, DefaultOptions(), testRows())

	results, err := r.Rank(context.Background(), "strange swelling", "")
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("empty filter should keep all species, got %d", len(results))
	}
	if results[1].Meta.Species != "cats" {
		t.Errorf("urgent cats entry (1.2) should rank second, got %+v", results[1].Meta)
	}
}

func TestRank_Threshold(t *testing.T) {
	rows := []rankedEntry{
		{withSim(0.2), corpus.Metadata{Symptom: "Weak match", Severity: domain.SeverityRoutine, Species: "dogs"}},
		{withSim(0.8), corpus.Metadata{Symptom: "Strong match", Severity: domain.SeverityRoutine, Species: "dogs"}},
	}
	r := buildRanker(t, DefaultOptions(), rows)

	results, err := r.Rank(context.Background(), "strange swelling", "dogs")
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(results) != 1 || results[0].Meta.Symptom != "Strong match" {
		t.Errorf("threshold should drop the 0.2 match: %+v", results)
	}
}

func TestRank_ThresholdOnRawScoreNotBoosted(t *testing.T) {
	// Raw 0.25 with a 1.5 boost is 0.375, but the cut uses the raw score.
	rows := []rankedEntry{
		{withSim(0.25), corpus.Metadata{Symptom: "Boosted weak", Severity: domain.SeverityEmergency, Species: "dogs"}},
	}
	r := buildRanker(t, DefaultOptions(), rows)

	results, err := r.Rank(context.Background(), "strange swelling", "dogs")
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("boost must not rescue a sub-threshold match: %+v", results)
	}
}

func TestRank_UnknownSeverityUnboosted(t *testing.T) {
	rows := []rankedEntry{
		{axis(0), corpus.Metadata{Symptom: "Odd", Severity: domain.Severity("critical"), Species: "dogs"}},
	}
	r := buildRanker(t, DefaultOptions(), rows)

	results, err := r.Rank(context.Background(), "strange swelling", "dogs")
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(results) != 1 || math.Abs(float64(results[0].Score)-1.0) > 1e-5 {
		t.Errorf("unknown severity should get boost 1.0: %+v", results)
	}
}

func TestRank_TopKTruncation(t *testing.T) {
	opts := DefaultOptions()
	opts.TopK = 1
	r := buildRanker(t, opts, testRows())

	results, err := r.Rank(context.Background(), "strange swelling", "dogs")
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(results) != 1 || results[0].Meta.Symptom != "Bloat" {
		t.Errorf("TopK=1 should keep only the best result: %+v", results)
	}
}

func TestRank_Deterministic(t *testing.T) {
	r := buildRanker(t, DefaultOptions(), testRows())

	a, err := r.Rank(context.Background(), "strange swelling", "")
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	b, err := r.Rank(context.Background(), "strange swelling", "")
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("identical calls returned different results:\n%+v\n%+v", a, b)
	}
}

func TestRank_NilIndex(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRanker(nil, corpus.NewStore(nil), &stubEmbedder{vec: axis(0)}, DefaultOptions(), logger)

	results, err := r.Rank(context.Background(), "anything at all", "dogs")
	if err != nil || results != nil {
		t.Errorf("nil index should yield (nil, nil), got (%v, %v)", results, err)
	}

	var nilRanker *Ranker
	results, err = nilRanker.Rank(context.Background(), "anything", "")
	if err != nil || results != nil {
		t.Errorf("nil ranker should yield (nil, nil), got (%v, %v)", results, err)
	}
}

func TestRank_EmbedderError(t *testing.T) {
	r := buildRanker(t, DefaultOptions(), testRows())
	r.embed = &stubEmbedder{err: errors.New("boom")}

	if _, err := r.Rank(context.Background(), "strange swelling", "dogs"); err == nil {
		t.Error("expected embedder error to propagate")
	}
}
