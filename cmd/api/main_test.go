package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/snoutiq/snoutiq-engine/engine/corpus"
	"github.com/snoutiq/snoutiq-engine/engine/domain"
	"github.com/snoutiq/snoutiq-engine/engine/rag"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeGenerator struct {
	reply string
	err   error
}

func (f fakeGenerator) Generate(context.Context, string) (string, error) {
	return f.reply, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, gen rag.TextGenerator, load bool) *rag.Service {
	t.Helper()
	opts := rag.DefaultOptions()
	opts.GenerateAttempts = 1
	opts.GenerateRate = 0
	opts.GenerateTimeout = time.Second

	svc := rag.New(fakeEmbedder{}, gen, opts, nil, testLogger())
	if load {
		entries := []corpus.Entry{
			corpus.NewEntry(corpus.Metadata{
				Symptom:     "Vomiting",
				Description: "Repeated vomiting",
				Severity:    domain.SeverityUrgent,
				Species:     "dogs",
				Category:    "digestive",
			}, 0),
		}
		if err := svc.Load(context.Background(), entries); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}
	return svc
}

func TestHandleHealth(t *testing.T) {
	svc := newService(t, fakeGenerator{}, true)

	rec := httptest.NewRecorder()
	handleHealth(svc)(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" || body["rag_loaded"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestHandleQuery_NotLoaded(t *testing.T) {
	svc := newService(t, fakeGenerator{}, false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/query", strings.NewReader(`{}`))
	handleQuery(svc, testLogger())(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleQuery_Validation(t *testing.T) {
	svc := newService(t, fakeGenerator{}, true)
	handler := handleQuery(svc, testLogger())

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing name", `{"species": "Dog", "query": "my dog keeps vomiting"}`},
		{"unsupported species", `{"name": "Polly", "species": "parrot", "query": "my bird keeps sneezing"}`},
		{"short query", `{"name": "Buddy", "species": "Dog", "query": "sick"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest("POST", "/query", strings.NewReader(tc.body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			var resp QueryResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Success || resp.Error == "" {
				t.Errorf("resp = %+v", resp)
			}
		})
	}
}

func TestHandleQuery_Success(t *testing.T) {
	reply := `{"pet_name": "Buddy", "summary": "Mild upset.", "urgency_level": "urgent",
		"service_recommendation": "video_consult", "confidence": "high"}`
	svc := newService(t, fakeGenerator{reply: reply}, true)

	rec := httptest.NewRecorder()
	body := `{"name": "Buddy", "species": "Dog", "query": "my dog keeps vomiting"}`
	handleQuery(svc, testLogger())(rec, httptest.NewRequest("POST", "/query", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp QueryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Data == nil {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Data.Summary != "Mild upset." || resp.Data.UrgencyLevel != domain.SeverityUrgent {
		t.Errorf("data = %+v", resp.Data)
	}
	if resp.Data.QueryMetadata.NumMatches != 1 {
		t.Errorf("metadata = %+v", resp.Data.QueryMetadata)
	}
}

func TestHandleQuery_GeneratorDownStillSucceeds(t *testing.T) {
	svc := newService(t, fakeGenerator{err: errors.New("model down")}, true)

	rec := httptest.NewRecorder()
	body := `{"name": "Buddy", "species": "Dog", "query": "my dog keeps vomiting"}`
	handleQuery(svc, testLogger())(rec, httptest.NewRequest("POST", "/query", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when generation fails", rec.Code)
	}
	var resp QueryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Data == nil || resp.Data.Confidence != domain.ConfidenceMedium {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHandleDatasetInfo(t *testing.T) {
	cfg := Config{EmbedModel: "all-minilm", GeminiModel: "gemini-2.0-flash"}

	svc := newService(t, fakeGenerator{}, false)
	rec := httptest.NewRecorder()
	handleDatasetInfo(svc, cfg)(rec, httptest.NewRequest("GET", "/datasets/info", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status before load = %d, want 503", rec.Code)
	}

	svc = newService(t, fakeGenerator{}, true)
	rec = httptest.NewRecorder()
	handleDatasetInfo(svc, cfg)(rec, httptest.NewRequest("GET", "/datasets/info", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			TotalEntries   int            `json:"total_entries"`
			Categories     map[string]int `json:"categories"`
			EmbeddingModel string         `json:"embedding_model"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Data.TotalEntries != 1 || body.Data.Categories["digestive"] != 1 {
		t.Errorf("body = %+v", body)
	}
	if body.Data.EmbeddingModel != "all-minilm" {
		t.Errorf("embedding model = %q", body.Data.EmbeddingModel)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SNOUTIQ_TEST_STR", "value")
	if envOr("SNOUTIQ_TEST_STR", "fallback") != "value" {
		t.Error("envOr should read the set variable")
	}
	if envOr("SNOUTIQ_TEST_UNSET", "fallback") != "fallback" {
		t.Error("envOr should fall back")
	}

	t.Setenv("SNOUTIQ_TEST_INT", "7")
	if envIntOr("SNOUTIQ_TEST_INT", 3) != 7 {
		t.Error("envIntOr should parse the set variable")
	}
	t.Setenv("SNOUTIQ_TEST_INT", "not a number")
	if envIntOr("SNOUTIQ_TEST_INT", 3) != 3 {
		t.Error("envIntOr should fall back on parse failure")
	}
}
