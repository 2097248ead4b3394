// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// rank balances classified, scored studies into the final result.
//
// Entries arrive in discovery order; sorting is stable so that order
// breaks score ties. TotalPositive/TotalNegative/TotalNeutral report the
// true bucket sizes before top-N selection and backfill — the returned
// Negative list may be longer than TotalNegative when neutral backfill
// topped it up, and that mismatch is part of the contract.
func rank(entries []types.EvidenceEntry, cfg types.RankingConfig, w io.Writer) types.RankedResult {
	topPositive := cfg.TopPositive
	if topPositive <= 0 {
		topPositive = 5
	}
	topNegative := cfg.TopNegative
	if topNegative <= 0 {
		topNegative = 5
	}

	// Drop classifications too uncertain to bucket.
	kept := make([]types.EvidenceEntry, 0, len(entries))
	for _, e := range entries {
		if e.Sentiment.Confidence >= cfg.MinConfidence {
			kept = append(kept, e)
		}
	}

	var positive, negative, neutral []types.EvidenceEntry
	for _, e := range kept {
		switch e.Sentiment.Sentiment {
		case types.SentimentPositive:
			positive = append(positive, e)
		case types.SentimentNegative:
			negative = append(negative, e)
		default:
			neutral = append(neutral, e)
		}
	}

	byScore := func(list []types.EvidenceEntry) {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Total > list[j].Total
		})
	}
	byScore(positive)
	byScore(negative)
	byScore(neutral)

	result := types.RankedResult{
		TotalPositive: len(positive),
		TotalNegative: len(negative),
		TotalNeutral:  len(neutral),
		Positive:      topN(positive, topPositive),
		Negative:      topN(negative, topNegative),
	}

	// Backfill: pad scarce negative evidence with the best neutral
	// studies so callers always see some counter-evidence context. The
	// reported TotalNegative stays at the true count.
	backfilled := 0
	for _, e := range neutral {
		if len(result.Negative) >= topNegative {
			break
		}
		result.Negative = append(result.Negative, e)
		backfilled++
	}
	if backfilled > 0 {
		fmt.Fprintf(w, "backfilled %d neutral studies into negative results\n", backfilled)
	}

	result.AvgPositiveQuality = avgQuality(result.Positive)
	result.AvgNegativeQuality = avgQuality(result.Negative)
	result.Consensus = consensus(len(positive), len(negative), len(neutral))
	result.Confidence = confidenceScore(result)

	return result
}

// topN returns the first n entries of list (already sorted).
func topN(list []types.EvidenceEntry, n int) []types.EvidenceEntry {
	if len(list) > n {
		list = list[:n]
	}
	return append([]types.EvidenceEntry(nil), list...)
}

// avgQuality is the mean total score of a returned list; 0 when empty.
func avgQuality(list []types.EvidenceEntry) float64 {
	if len(list) == 0 {
		return 0
	}
	sum := 0
	for _, e := range list {
		sum += e.Total
	}
	return float64(sum) / float64(len(list))
}

// consensus derives the aggregate verdict from the full bucket sizes,
// independent of which studies made the top-N lists.
func consensus(positive, negative, neutral int) types.Consensus {
	total := positive + negative + neutral
	if total < 3 {
		return types.ConsensusInsufficientData
	}

	positiveRatio := float64(positive) / float64(total)
	negativeRatio := float64(negative) / float64(total)

	switch {
	case positiveRatio > 0.7:
		return types.ConsensusStrongPositive
	case positiveRatio > 0.55:
		return types.ConsensusModeratePositive
	case negativeRatio > 0.7:
		return types.ConsensusStrongNegative
	case negativeRatio > 0.55:
		return types.ConsensusModerateNegative
	default:
		return types.ConsensusMixed
	}
}

// confidenceScore combines study volume, quality of the returned top
// studies, classifier confidence, and bucket skew into a 0-100 score.
func confidenceScore(r types.RankedResult) int {
	total := r.TotalStudies()

	var score float64
	switch {
	case total >= 20:
		score = 30
	case total >= 10:
		score = 20
	case total >= 5:
		score = 10
	default:
		score = 5
	}

	returned := make([]types.EvidenceEntry, 0, len(r.Positive)+len(r.Negative))
	returned = append(returned, r.Positive...)
	returned = append(returned, r.Negative...)

	if len(returned) > 0 {
		var qualitySum, confSum float64
		for _, e := range returned {
			qualitySum += float64(e.Total)
			confSum += e.Sentiment.Confidence
		}
		score += 40 * (qualitySum / float64(len(returned))) / 100
		score += 20 * (confSum / float64(len(returned)))
	}

	if total > 0 {
		positiveRatio := float64(r.TotalPositive) / float64(total)
		switch {
		case positiveRatio > 0.8 || positiveRatio < 0.2:
			score += 10
		case positiveRatio > 0.65 || positiveRatio < 0.35:
			score += 5
		}
	}

	return int(math.Round(math.Max(0, math.Min(100, score))))
}
