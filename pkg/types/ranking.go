// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Consensus is the aggregate verdict across all classified studies. It is
// computed from full bucket counts, independent of which studies appear
// in the returned top-N lists.
type Consensus string

const (
	ConsensusStrongPositive   Consensus = "strong_positive"
	ConsensusModeratePositive Consensus = "moderate_positive"
	ConsensusStrongNegative   Consensus = "strong_negative"
	ConsensusModerateNegative Consensus = "moderate_negative"
	ConsensusMixed            Consensus = "mixed"
	ConsensusInsufficientData Consensus = "insufficient_data"
)

// EvidenceEntry pairs a scored study with its sentiment classification.
type EvidenceEntry struct {
	ScoredStudy `yaml:",inline"`

	// Sentiment is the classification verdict for the study.
	Sentiment SentimentResult `json:"sentiment" yaml:"sentiment"`
}

// RankedResult is the balanced evidence set returned to the caller.
//
// TotalNegative reports the true negative bucket size before neutral
// backfill; the Negative list itself may be longer when backfill topped
// it up. That mismatch is part of the contract: callers render the list
// for context but report the true count.
type RankedResult struct {
	// Supplement is the normalized supplement name that was ranked.
	Supplement string `json:"supplement" yaml:"supplement"`

	// Positive holds the top supporting studies, best quality first.
	Positive []EvidenceEntry `json:"positive" yaml:"positive"`

	// Negative holds the top opposing studies, best quality first,
	// possibly padded with neutral studies when true negatives are scarce.
	Negative []EvidenceEntry `json:"negative" yaml:"negative"`

	// TotalPositive, TotalNegative, and TotalNeutral are the full bucket
	// sizes before top-N selection and backfill.
	TotalPositive int `json:"total_positive" yaml:"total_positive"`
	TotalNegative int `json:"total_negative" yaml:"total_negative"`
	TotalNeutral  int `json:"total_neutral" yaml:"total_neutral"`

	// AvgPositiveQuality and AvgNegativeQuality are the mean total scores
	// of the returned lists; 0 when a list is empty.
	AvgPositiveQuality float64 `json:"avg_positive_quality" yaml:"avg_positive_quality"`
	AvgNegativeQuality float64 `json:"avg_negative_quality" yaml:"avg_negative_quality"`

	// Consensus is the aggregate verdict over the full buckets.
	Consensus Consensus `json:"consensus" yaml:"consensus"`

	// Confidence is the overall confidence score in [0,100].
	Confidence int `json:"confidence" yaml:"confidence"`
}

// TotalStudies returns the full classified study count across buckets.
func (r RankedResult) TotalStudies() int {
	return r.TotalPositive + r.TotalNegative + r.TotalNeutral
}
