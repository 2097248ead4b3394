// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the evidence-engine
// pipeline. See docs/ARCHITECTURE § Data Structures.
package types

// StudyType classifies a study's methodology, derived from PubMed
// publication-type tags.
type StudyType string

const (
	TypeRCT              StudyType = "randomized-controlled-trial"
	TypeMetaAnalysis     StudyType = "meta-analysis"
	TypeSystematicReview StudyType = "systematic-review"
	TypeClinicalTrial    StudyType = "clinical-trial"
	TypeCohort           StudyType = "cohort"
	TypeCaseControl      StudyType = "case-control"
	TypeReview           StudyType = "review"
	TypeNone             StudyType = ""
)

// maxStudyAuthors bounds the author list kept per record.
const maxStudyAuthors = 5

// MaxParticipants is the sanity bound on extracted participant counts.
// Counts at or above this are treated as parse noise and discarded.
const MaxParticipants = 100000

// Study is a single literature record fetched from the search API. It is
// immutable after parsing: scoring and classification read it but never
// modify it.
type Study struct {
	// PMID is the PubMed identifier, unique within one ranking run.
	PMID string `json:"pmid" yaml:"pmid"`

	// Title is the article title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Abstract is the article abstract; the source may truncate it.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists up to five authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year; 0 means unknown.
	Year int `json:"year" yaml:"year"`

	// Journal is the journal name, empty when not reported.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// Type is the methodology classification derived from the record's
	// publication-type tags.
	Type StudyType `json:"type" yaml:"type"`

	// Participants is the sample size extracted from the abstract;
	// 0 means unknown. Always below MaxParticipants.
	Participants int `json:"participants,omitempty" yaml:"participants,omitempty"`

	// DOI is the external identifier when the record carries one.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// URL is the canonical PubMed page for the record.
	URL string `json:"url" yaml:"url"`
}

// QualityTier is the coarse evidence bucket derived from a study's total
// score.
type QualityTier string

const (
	TierExceptional QualityTier = "exceptional"
	TierHigh        QualityTier = "high"
	TierGood        QualityTier = "good"
	TierModerate    QualityTier = "moderate"
	TierLow         QualityTier = "low"
)

// ScoreBreakdown holds the per-factor components of a study's quality
// score. Total is always their sum.
type ScoreBreakdown struct {
	// Methodology scores the study design; a Cochrane journal overrides
	// the type-based table.
	Methodology int `json:"methodology" yaml:"methodology"`

	// Recency scores publication age relative to the current year.
	Recency int `json:"recency" yaml:"recency"`

	// SampleSize scores the extracted participant count.
	SampleSize int `json:"sample_size" yaml:"sample_size"`

	// Citation is a fixed placeholder; real citation counts are not
	// integrated.
	Citation int `json:"citation" yaml:"citation"`

	// Journal scores the venue against fixed tier lists.
	Journal int `json:"journal" yaml:"journal"`
}

// Sum returns the total quality score.
func (b ScoreBreakdown) Sum() int {
	return b.Methodology + b.Recency + b.SampleSize + b.Citation + b.Journal
}

// ScoredStudy pairs a study with its deterministic quality score.
type ScoredStudy struct {
	Study Study `json:"study" yaml:"study"`

	// Breakdown holds the per-factor components.
	Breakdown ScoreBreakdown `json:"breakdown" yaml:"breakdown"`

	// Total is the sum of the breakdown components.
	Total int `json:"total" yaml:"total"`

	// Tier is the coarse bucket derived from Total (or the Cochrane
	// methodology override).
	Tier QualityTier `json:"tier" yaml:"tier"`
}

// BoundAuthors returns authors truncated to the per-study bound.
func BoundAuthors(authors []string) []string {
	if len(authors) > maxStudyAuthors {
		return authors[:maxStudyAuthors]
	}
	return authors
}
