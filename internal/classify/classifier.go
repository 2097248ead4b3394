// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify scores studies as positive, negative, or neutral
// evidence for a supplement. Classification is advisory input to
// ranking, so this package fails open: a malformed response or a dead
// backend degrades to a low-confidence neutral, it never returns an
// error. See docs/ARCHITECTURE § Sentiment Classification.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Backend abstracts the classification capability so tests can supply a
// mock. It returns the model's raw text response for one study.
type Backend interface {
	Classify(ctx context.Context, text, supplement string) (string, error)
}

const (
	defaultMaxChars    = 800
	defaultConcurrency = 5

	// fallbackConfidence is assigned when only a keyword match salvaged
	// the label from a malformed response.
	fallbackConfidence = 0.5

	// degradedConfidence is assigned when nothing usable came back.
	degradedConfidence = 0.3

	degradedReasoning = "Analysis failed, defaulting to neutral"
)

// backoffBase controls the base duration for retry backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// classifierResponse is the strict JSON contract requested from the
// backend.
type classifierResponse struct {
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Classifier wraps a Backend with parsing, fallback, and bounded batch
// fan-out.
type Classifier struct {
	backend Backend
	cfg     types.ClassifierConfig
	w       io.Writer
}

// New builds a Classifier. Warnings about degraded classifications are
// written to w.
func New(backend Backend, cfg types.ClassifierConfig, w io.Writer) *Classifier {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = defaultMaxChars
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Classifier{backend: backend, cfg: cfg, w: w}
}

// Classify scores one study. It never fails: hard backend errors and
// unparseable responses both resolve to a usable, clearly low-confidence
// result.
func (c *Classifier) Classify(ctx context.Context, study types.Study, supplement string) types.SentimentResult {
	text := truncate(study.Title+"\n\n"+study.Abstract, c.cfg.MaxChars)

	raw, err := c.callWithRetry(ctx, text, supplement)
	if err != nil {
		fmt.Fprintf(c.w, "warning: classification failed for %s: %v\n", study.PMID, err)
		return types.SentimentResult{
			PMID:       study.PMID,
			Sentiment:  types.SentimentNeutral,
			Confidence: degradedConfidence,
			Reasoning:  degradedReasoning,
			Degraded:   true,
		}
	}

	result := parseResponse(raw)
	result.PMID = study.PMID
	if result.Degraded {
		fmt.Fprintf(c.w, "warning: degraded classification for %s\n", study.PMID)
	}
	return result
}

// ClassifyAll scores studies with bounded concurrency. Results are
// returned in input order and are always complete: one result per study.
func (c *Classifier) ClassifyAll(ctx context.Context, studies []types.Study, supplement string) []types.SentimentResult {
	results := make([]types.SentimentResult, len(studies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for i, study := range studies {
		i, study := i, study
		g.Go(func() error {
			results[i] = c.Classify(gctx, study, supplement)
			return nil
		})
	}
	// Classify never errors, so Wait only joins the goroutines.
	g.Wait()

	return results
}

// callWithRetry calls the backend with exponential backoff.
func (c *Classifier) callWithRetry(ctx context.Context, text, supplement string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		raw, err := c.backend.Classify(ctx, text, supplement)
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", c.cfg.MaxRetries, lastErr)
}

// parseResponse validates the strict JSON contract, salvaging what it
// can from malformed responses.
func parseResponse(raw string) types.SentimentResult {
	cleaned := stripFences(raw)

	var resp classifierResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err == nil {
		sentiment := types.Sentiment(strings.ToLower(strings.TrimSpace(resp.Sentiment)))
		if sentiment.Valid() && resp.Confidence >= 0 && resp.Confidence <= 1 {
			return types.SentimentResult{
				Sentiment:  sentiment,
				Confidence: resp.Confidence,
				Reasoning:  resp.Reasoning,
			}
		}
	}

	return keywordFallback(raw)
}

// keywordFallback scans the raw response for a sentiment keyword when
// JSON validation failed.
func keywordFallback(raw string) types.SentimentResult {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "positive"):
		return types.SentimentResult{
			Sentiment:  types.SentimentPositive,
			Confidence: fallbackConfidence,
			Reasoning:  "Keyword match on malformed response",
			Degraded:   true,
		}
	case strings.Contains(lower, "negative"):
		return types.SentimentResult{
			Sentiment:  types.SentimentNegative,
			Confidence: fallbackConfidence,
			Reasoning:  "Keyword match on malformed response",
			Degraded:   true,
		}
	default:
		return types.SentimentResult{
			Sentiment:  types.SentimentNeutral,
			Confidence: degradedConfidence,
			Reasoning:  degradedReasoning,
			Degraded:   true,
		}
	}
}

// stripFences removes an optional Markdown code fence around a JSON
// response.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// truncate returns s cut to at most max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
