// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Sentiment labels whether a study supports, opposes, or is neutral on a
// supplement's effectiveness.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Valid reports whether s is one of the three accepted labels.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// SentimentResult is the classification verdict for one study. It is
// always well-formed: when the classifier fails or returns malformed
// output the result degrades to a low-confidence neutral, it never goes
// missing.
type SentimentResult struct {
	// PMID identifies the classified study.
	PMID string `json:"pmid" yaml:"pmid"`

	// Sentiment is the classification label.
	Sentiment Sentiment `json:"sentiment" yaml:"sentiment"`

	// Confidence is the classifier's self-reported confidence in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Reasoning is a one-sentence explanation of the label.
	Reasoning string `json:"reasoning" yaml:"reasoning"`

	// Degraded marks results produced by fallback logic rather than a
	// valid classifier response.
	Degraded bool `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}
