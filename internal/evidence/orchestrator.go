// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidence turns a supplement name into a balanced,
// quality-weighted set of supporting and opposing studies with a
// consensus verdict. See docs/ARCHITECTURE § Evidence Ranking.
package evidence

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pdiddy/evidence-engine/internal/pubmed"
	"github.com/pdiddy/evidence-engine/internal/query"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// SearchClient is the slice of the PubMed client the orchestrator needs.
// Tests supply a mock.
type SearchClient interface {
	ESearch(ctx context.Context, q string, maxResults int, sort string) (pubmed.ESearchResult, error)
	EFetch(ctx context.Context, ids []string) ([]types.Study, error)
}

// strategy names one query variant in its fixed priority position.
type strategy struct {
	name  string
	build func(name string) (string, error)
}

// fetchStrategies runs the enabled query strategies and returns the
// merged, deduplicated study set.
//
// All ID searches fan out concurrently; results are merged afterwards in
// fixed strategy priority (high-quality, negative-evidence,
// systematic-review), so the outcome is deterministic regardless of
// network completion order. Duplicated PMIDs keep the first-seen
// position. One batch fetch then retrieves the union, so a record found
// by two strategies is fetched once.
//
// A failing strategy is logged and skipped. Only when every strategy
// fails (or the single batch fetch fails) does the function return
// AllStrategiesFailedError. An empty ID union with at least one
// successful strategy is a valid empty result.
func fetchStrategies(ctx context.Context, client SearchClient, name string, cfg types.StrategyConfig, w io.Writer) ([]types.Study, error) {
	primary := strategy{name: "high-quality", build: query.HighQuality}
	if cfg.RecentOnly {
		primary = strategy{name: "recent", build: func(name string) (string, error) {
			return query.Recent(name, cfg.RecentWindowYears)
		}}
	}

	strategies := []strategy{primary}
	if cfg.IncludeNegativeSearch {
		strategies = append(strategies, strategy{name: "negative-evidence", build: query.NegativeEvidence})
	}
	if cfg.IncludeSystematicReviews {
		strategies = append(strategies, strategy{name: "systematic-review", build: query.SystematicReview})
	}

	type outcome struct {
		ids []string
		err error
	}
	outcomes := make([]outcome, len(strategies))

	var wg sync.WaitGroup
	for i, s := range strategies {
		i, s := i, s
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, err := s.build(name)
			if err != nil {
				outcomes[i] = outcome{err: fmt.Errorf("building %s query: %w", s.name, err)}
				return
			}
			res, err := client.ESearch(ctx, q, cfg.MaxResults, "relevance")
			if err != nil {
				outcomes[i] = outcome{err: err}
				return
			}
			outcomes[i] = outcome{ids: res.IDs}
		}()
	}
	wg.Wait()

	// Merge in strategy priority order, not completion order.
	var ids []string
	seen := make(map[string]bool)
	var failures []error
	for i, out := range outcomes {
		if out.err != nil {
			failures = append(failures, out.err)
			fmt.Fprintf(w, "warning: strategy %s failed: %v\n", strategies[i].name, out.err)
			continue
		}
		for _, id := range out.ids {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	if len(failures) == len(strategies) {
		return nil, &AllStrategiesFailedError{Errors: failures}
	}

	studies, err := client.EFetch(ctx, ids)
	if err != nil {
		// The batch fetch is the single delivery leg for every strategy;
		// its failure leaves none of them with results.
		return nil, &AllStrategiesFailedError{Errors: append(failures, err)}
	}

	return studies, nil
}
