// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/evidence-engine/internal/classify"
	"github.com/pdiddy/evidence-engine/internal/pubmed"
	"github.com/pdiddy/evidence-engine/internal/query"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Classifier is the slice of the sentiment classifier the engine needs.
// Tests supply a mock.
type Classifier interface {
	ClassifyAll(ctx context.Context, studies []types.Study, supplement string) []types.SentimentResult
}

// Engine wires the search client and classifier into the single ranking
// operation. All per-request state lives on the stack of Rank; the only
// shared mutable state is the client's rate limiter.
type Engine struct {
	Search     SearchClient
	Classifier Classifier
	Config     types.EngineConfig

	// Progress is the transcript writer for warnings and per-stage
	// progress; defaults to io.Discard.
	Progress io.Writer
}

// New assembles an Engine with the real PubMed client and Claude-backed
// classifier.
func New(cfg types.EngineConfig, w io.Writer) *Engine {
	if w == nil {
		w = io.Discard
	}
	backend := &classify.ClaudeBackend{
		APIKey: cfg.Classifier.APIKey,
		Model:  cfg.Classifier.Model,
	}
	return &Engine{
		Search:     pubmed.NewClient(cfg.PubMed),
		Classifier: classify.New(backend, cfg.Classifier, w),
		Config:     cfg,
		Progress:   w,
	}
}

// Rank retrieves, scores, classifies, and balances the literature for
// one supplement.
//
// The error is either a *ValidationError (rejected before any network
// call), a *pubmed.SearchError, or an *AllStrategiesFailedError. A
// result built from partial strategy coverage is a success; degraded
// classifications are absorbed into lower confidence, never surfaced as
// errors.
func (e *Engine) Rank(ctx context.Context, supplement string) (types.RankedResult, error) {
	w := e.Progress
	if w == nil {
		w = io.Discard
	}

	name := query.Normalize(supplement)
	if err := (query.Spec{Name: name}).Validate(); err != nil {
		return types.RankedResult{}, &ValidationError{Reason: err.Error()}
	}

	studies, err := fetchStrategies(ctx, e.Search, name, e.Config.Strategy, w)
	if err != nil {
		return types.RankedResult{}, err
	}
	fmt.Fprintf(w, "retrieved %d studies for %s\n", len(studies), name)

	sentiments := e.Classifier.ClassifyAll(ctx, studies, name)

	entries := make([]types.EvidenceEntry, len(studies))
	for i, study := range studies {
		entries[i] = types.EvidenceEntry{
			ScoredStudy: Score(study),
			Sentiment:   sentiments[i],
		}
	}

	result := rank(entries, e.Config.Ranking, w)
	result.Supplement = name
	return result, nil
}
