// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

func init() {
	// Use a tiny backoff so retry tests finish quickly.
	backoffBase = 1 * time.Millisecond
}

// --- mock backend ---

type mockBackend struct {
	response string
	err      error
	calls    int32
}

func (m *mockBackend) Classify(_ context.Context, _, _ string) (string, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.response, m.err
}

func testStudy() types.Study {
	return types.Study{
		PMID:     "11111",
		Title:    "Creatine supplementation and strength",
		Abstract: "A randomized trial of creatine in 120 adults.",
	}
}

func newTest(backend Backend) (*Classifier, *bytes.Buffer) {
	var buf bytes.Buffer
	c := New(backend, types.ClassifierConfig{
		AIConfig: types.AIConfig{MaxRetries: 1},
	}, &buf)
	return c, &buf
}

// --- parseResponse ---

func TestParseResponseStrictJSON(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantSentiment  types.Sentiment
		wantConfidence float64
		wantDegraded   bool
	}{
		{
			"clean json",
			`{"sentiment": "positive", "confidence": 0.9, "reasoning": "Strength improved significantly."}`,
			types.SentimentPositive, 0.9, false,
		},
		{
			"fenced json",
			"```json\n{\"sentiment\": \"negative\", \"confidence\": 0.8, \"reasoning\": \"No effect found.\"}\n```",
			types.SentimentNegative, 0.8, false,
		},
		{
			"uppercase label accepted",
			`{"sentiment": "Neutral", "confidence": 0.6, "reasoning": "Mixed findings."}`,
			types.SentimentNeutral, 0.6, false,
		},
		{
			"invalid label falls back to keyword",
			`{"sentiment": "favorable", "confidence": 0.9, "reasoning": "positive outcome"}`,
			types.SentimentPositive, 0.5, true,
		},
		{
			"out-of-range confidence falls back",
			`{"sentiment": "negative", "confidence": 1.7, "reasoning": "x"}`,
			types.SentimentNegative, 0.5, true,
		},
		{
			"prose with keyword",
			"The study looks negative to me.",
			types.SentimentNegative, 0.5, true,
		},
		{
			"garbage defaults to neutral",
			"¯\\_(ツ)_/¯",
			types.SentimentNeutral, 0.3, true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseResponse(tt.raw)
			if got.Sentiment != tt.wantSentiment {
				t.Errorf("Sentiment = %q, want %q", got.Sentiment, tt.wantSentiment)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
			if got.Degraded != tt.wantDegraded {
				t.Errorf("Degraded = %v, want %v", got.Degraded, tt.wantDegraded)
			}
			if got.Confidence < 0 || got.Confidence > 1 {
				t.Errorf("Confidence %v out of [0,1]", got.Confidence)
			}
		})
	}
}

// --- Classify ---

func TestClassifyNeverFails(t *testing.T) {
	c, buf := newTest(&mockBackend{err: fmt.Errorf("connection refused")})

	got := c.Classify(context.Background(), testStudy(), "creatine")
	if got.Sentiment != types.SentimentNeutral {
		t.Errorf("Sentiment = %q, want neutral", got.Sentiment)
	}
	if got.Confidence != 0.3 {
		t.Errorf("Confidence = %v, want 0.3", got.Confidence)
	}
	if got.Reasoning != "Analysis failed, defaulting to neutral" {
		t.Errorf("Reasoning = %q", got.Reasoning)
	}
	if !got.Degraded {
		t.Error("hard failure must be marked degraded")
	}
	if got.PMID != "11111" {
		t.Errorf("PMID = %q", got.PMID)
	}
	if !strings.Contains(buf.String(), "warning:") {
		t.Error("degraded classification should be logged")
	}
}

func TestClassifyRetriesBeforeDegrading(t *testing.T) {
	backend := &mockBackend{err: fmt.Errorf("boom")}
	c, _ := newTest(backend)

	c.Classify(context.Background(), testStudy(), "creatine")
	// MaxRetries 1 → 2 total attempts.
	if n := atomic.LoadInt32(&backend.calls); n != 2 {
		t.Errorf("backend calls = %d, want 2", n)
	}
}

func TestClassifyValidResponse(t *testing.T) {
	c, _ := newTest(&mockBackend{
		response: `{"sentiment": "positive", "confidence": 0.92, "reasoning": "Strength gains were significant."}`,
	})

	got := c.Classify(context.Background(), testStudy(), "creatine")
	if got.Sentiment != types.SentimentPositive || got.Confidence != 0.92 {
		t.Errorf("got %+v", got)
	}
	if got.Degraded {
		t.Error("valid response must not be degraded")
	}
}

// --- ClassifyAll ---

func TestClassifyAllOrderAndCompleteness(t *testing.T) {
	c, _ := newTest(&mockBackend{
		response: `{"sentiment": "neutral", "confidence": 0.7, "reasoning": "Inconclusive."}`,
	})

	studies := []types.Study{
		{PMID: "1", Title: "a"},
		{PMID: "2", Title: "b"},
		{PMID: "3", Title: "c"},
	}
	results := c.ClassifyAll(context.Background(), studies, "zinc")
	if len(results) != len(studies) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(studies))
	}
	for i, r := range results {
		if r.PMID != studies[i].PMID {
			t.Errorf("results[%d].PMID = %q, want %q", i, r.PMID, studies[i].PMID)
		}
	}
}

func TestClassifyAllBoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	backend := &concurrencyProbe{inFlight: &inFlight, peak: &peak}

	var buf bytes.Buffer
	c := New(backend, types.ClassifierConfig{
		AIConfig:    types.AIConfig{MaxRetries: 1},
		Concurrency: 2,
	}, &buf)

	studies := make([]types.Study, 10)
	for i := range studies {
		studies[i] = types.Study{PMID: fmt.Sprintf("%d", i)}
	}
	c.ClassifyAll(context.Background(), studies, "zinc")

	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Errorf("peak concurrency = %d, want ≤ 2", p)
	}
}

type concurrencyProbe struct {
	inFlight *int32
	peak     *int32
}

func (p *concurrencyProbe) Classify(_ context.Context, _, _ string) (string, error) {
	n := atomic.AddInt32(p.inFlight, 1)
	for {
		old := atomic.LoadInt32(p.peak)
		if n <= old || atomic.CompareAndSwapInt32(p.peak, old, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(p.inFlight, -1)
	return `{"sentiment": "neutral", "confidence": 0.7, "reasoning": "x"}`, nil
}

// --- truncation ---

func TestClassifyTruncatesText(t *testing.T) {
	var gotText string
	backend := &captureBackend{text: &gotText}

	var buf bytes.Buffer
	c := New(backend, types.ClassifierConfig{
		AIConfig: types.AIConfig{MaxRetries: 1},
		MaxChars: 50,
	}, &buf)

	study := types.Study{PMID: "1", Title: "T", Abstract: strings.Repeat("long abstract ", 50)}
	c.Classify(context.Background(), study, "zinc")

	if len([]rune(gotText)) > 50 {
		t.Errorf("classifier received %d chars, want ≤ 50", len([]rune(gotText)))
	}
}

type captureBackend struct {
	text *string
}

func (b *captureBackend) Classify(_ context.Context, text, _ string) (string, error) {
	*b.text = text
	return `{"sentiment": "neutral", "confidence": 0.5, "reasoning": "x"}`, nil
}

// --- ClaudeBackend ---

func TestClaudeBackend(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing anthropic-version header")
		}
		fmt.Fprint(w, `{"content": [{"type": "text", "text": "{\"sentiment\": \"positive\", \"confidence\": 0.9, \"reasoning\": \"x\"}"}]}`)
	}))
	defer ts.Close()

	old := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = old }()

	backend := &ClaudeBackend{APIKey: "test-key", Model: "claude-sonnet-4-5-20250929"}
	raw, err := backend.Classify(context.Background(), "title and abstract", "creatine")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if !strings.Contains(raw, `"positive"`) {
		t.Errorf("raw = %q", raw)
	}
}

func TestClaudeBackendHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	old := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = old }()

	backend := &ClaudeBackend{APIKey: "k", Model: "m"}
	if _, err := backend.Classify(context.Background(), "text", "zinc"); err == nil {
		t.Fatal("expected error on HTTP 502")
	}
}
