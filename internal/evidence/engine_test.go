// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// scriptedClassifier returns canned sentiments keyed by PMID; anything
// unkeyed comes back neutral.
type scriptedClassifier struct {
	byPMID map[string]types.SentimentResult
	calls  int
}

func (c *scriptedClassifier) ClassifyAll(_ context.Context, studies []types.Study, _ string) []types.SentimentResult {
	c.calls++
	results := make([]types.SentimentResult, len(studies))
	for i, s := range studies {
		if r, ok := c.byPMID[s.PMID]; ok {
			results[i] = r
			continue
		}
		results[i] = types.SentimentResult{PMID: s.PMID, Sentiment: types.SentimentNeutral, Confidence: 0.5}
	}
	return results
}

func testEngine(search SearchClient, classifier Classifier, w *bytes.Buffer) *Engine {
	return &Engine{
		Search:     search,
		Classifier: classifier,
		Config:     types.DefaultEngineConfig(),
		Progress:   w,
	}
}

func TestRankRejectsInvalidNameBeforeNetwork(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   \t "},
		{"too long", string(bytes.Repeat([]byte("a"), 200))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			search := &mockSearch{}
			classifier := &scriptedClassifier{}
			var buf bytes.Buffer

			_, err := testEngine(search, classifier, &buf).Rank(context.Background(), tt.input)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if search.searchCalls != 0 || search.fetchCalls != 0 {
				t.Errorf("network calls = %d/%d, want none before validation", search.searchCalls, search.fetchCalls)
			}
			if classifier.calls != 0 {
				t.Error("classifier must not run for a rejected request")
			}
		})
	}
}

func TestRankNormalizesSupplementName(t *testing.T) {
	search := &mockSearch{}
	var buf bytes.Buffer

	got, err := testEngine(search, &scriptedClassifier{}, &buf).Rank(context.Background(), "  Vitamin   D  ")
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if got.Supplement != "vitamin d" {
		t.Errorf("Supplement = %q, want the normalized name", got.Supplement)
	}
}

func TestRankPropagatesSearchFailure(t *testing.T) {
	sentinel := errors.New("ncbi down")
	search := &mockSearch{highErr: sentinel, negativeErr: sentinel, systematicErr: sentinel}
	classifier := &scriptedClassifier{}
	var buf bytes.Buffer

	engine := testEngine(search, classifier, &buf)
	engine.Config.Strategy.IncludeNegativeSearch = true
	engine.Config.Strategy.IncludeSystematicReviews = true

	_, err := engine.Rank(context.Background(), "creatine")
	var allFailed *AllStrategiesFailedError
	if !errors.As(err, &allFailed) {
		t.Fatalf("err = %v, want *AllStrategiesFailedError", err)
	}
	if classifier.calls != 0 {
		t.Error("classifier must not run when retrieval failed")
	}
}

func TestRankEndToEnd(t *testing.T) {
	search := &mockSearch{}
	search.highIDs = []string{"cochrane", "p1", "p2", "p3", "p4", "p5", "p6", "p7", "neg", "neu"}

	classifier := &scriptedClassifier{byPMID: map[string]types.SentimentResult{
		"cochrane": {PMID: "cochrane", Sentiment: types.SentimentPositive, Confidence: 0.9},
		"neg":      {PMID: "neg", Sentiment: types.SentimentNegative, Confidence: 0.8},
	}}
	for i := 1; i <= 7; i++ {
		pmid := fmt.Sprintf("p%d", i)
		classifier.byPMID[pmid] = types.SentimentResult{PMID: pmid, Sentiment: types.SentimentPositive, Confidence: 0.8}
	}

	fetch := &richFetch{mockSearch: search}
	var buf bytes.Buffer
	engine := testEngine(fetch, classifier, &buf)

	got, err := engine.Rank(context.Background(), "creatine")
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	if got.TotalPositive != 8 || got.TotalNegative != 1 || got.TotalNeutral != 1 {
		t.Fatalf("buckets = %d/%d/%d, want 8/1/1", got.TotalPositive, got.TotalNegative, got.TotalNeutral)
	}
	// 8/10 positive clears the strong threshold.
	if got.Consensus != types.ConsensusStrongPositive {
		t.Errorf("Consensus = %q, want strong_positive", got.Consensus)
	}

	// The Cochrane meta-analysis outranks everything else.
	top := got.Positive[0]
	if top.Study.PMID != "cochrane" {
		t.Fatalf("Positive[0] = %q, want the Cochrane review", top.Study.PMID)
	}
	if top.Tier != types.TierExceptional {
		t.Errorf("top tier = %q, want exceptional", top.Tier)
	}
	if top.Total < 80 {
		t.Errorf("top total = %d, want ≥ 80", top.Total)
	}

	if got.Confidence <= 0 || got.Confidence > 100 {
		t.Errorf("Confidence = %d, out of range", got.Confidence)
	}
}

// richFetch wraps the shared mock but fabricates realistic study records
// so scoring has something to chew on.
type richFetch struct {
	*mockSearch
}

func (r *richFetch) EFetch(ctx context.Context, ids []string) ([]types.Study, error) {
	if _, err := r.mockSearch.EFetch(ctx, ids); err != nil {
		return nil, err
	}
	studies := make([]types.Study, len(ids))
	for i, id := range ids {
		s := types.Study{
			PMID:         id,
			Title:        "study " + id,
			Year:         2020,
			Participants: 80,
			Type:         types.TypeClinicalTrial,
			Journal:      "Journal of Middling Results",
		}
		if id == "cochrane" {
			s.Journal = "Cochrane Database of Systematic Reviews"
			s.Type = types.TypeMetaAnalysis
			s.Year = 2024
			s.Participants = 2000
		}
		studies[i] = s
	}
	return studies, nil
}
