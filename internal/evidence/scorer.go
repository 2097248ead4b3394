// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// citationScorePlaceholder is a deliberate stub: real citation-count
// lookup is not integrated, every study gets this constant.
const citationScorePlaceholder = 3

// cochraneMethodologyScore is the methodology override for Cochrane
// reviews, which outrank every nominal study type.
const cochraneMethodologyScore = 50

// nowYear returns the current year. Declared as a var so tests can pin it.
var nowYear = func() int { return time.Now().Year() }

// methodologyScores ranks study designs by evidentiary strength.
var methodologyScores = map[types.StudyType]int{
	types.TypeMetaAnalysis:     40,
	types.TypeSystematicReview: 35,
	types.TypeRCT:              30,
	types.TypeClinicalTrial:    20,
	types.TypeCohort:           15,
	types.TypeCaseControl:      10,
	types.TypeReview:           8,
	types.TypeNone:             5,
}

// topTierJournals is the fixed high-prestige venue list (scores 5).
var topTierJournals = []string{
	"nature",
	"science",
	"cell",
	"lancet",
	"new england journal of medicine",
	"jama",
	"bmj",
	"plos medicine",
}

// nutritionJournals is the fixed high-impact nutrition venue list
// (scores 4).
var nutritionJournals = []string{
	"american journal of clinical nutrition",
	"journal of nutrition",
	"nutrients",
	"british journal of nutrition",
	"clinical nutrition",
	"nutrition reviews",
}

// Score computes a study's deterministic quality score. Pure function of
// the study's fields: no I/O, no randomness.
func Score(study types.Study) types.ScoredStudy {
	breakdown := types.ScoreBreakdown{
		Methodology: methodologyScore(study),
		Recency:     recencyScore(study.Year),
		SampleSize:  sampleSizeScore(study.Participants),
		Citation:    citationScorePlaceholder,
		Journal:     journalScore(study.Journal),
	}

	total := breakdown.Sum()
	return types.ScoredStudy{
		Study:     study,
		Breakdown: breakdown,
		Total:     total,
		Tier:      qualityTier(breakdown.Methodology, total),
	}
}

// methodologyScore rates the study design. A Cochrane journal overrides
// the type table: Cochrane reviews are the top evidentiary tier no
// matter what the record's publication types say.
func methodologyScore(study types.Study) int {
	if strings.Contains(strings.ToLower(study.Journal), "cochrane") {
		return cochraneMethodologyScore
	}
	if s, ok := methodologyScores[study.Type]; ok {
		return s
	}
	return methodologyScores[types.TypeNone]
}

// recencyScore rates publication age. Unknown and future-dated years
// both land on the floor.
func recencyScore(year int) int {
	if year == 0 {
		return 2
	}
	age := nowYear() - year
	switch {
	case age < 0:
		return 2
	case age <= 2:
		return 20
	case age <= 5:
		return 15
	case age <= 10:
		return 10
	case age <= 20:
		return 5
	default:
		return 2
	}
}

// sampleSizeScore rates the extracted participant count; 0 means unknown.
func sampleSizeScore(participants int) int {
	switch {
	case participants >= 1000:
		return 20
	case participants >= 500:
		return 15
	case participants >= 100:
		return 10
	case participants >= 50:
		return 5
	default:
		return 2
	}
}

// journalScore rates the venue against the fixed tier lists.
func journalScore(journal string) int {
	if journal == "" {
		return 2
	}
	lower := strings.ToLower(journal)
	for _, j := range topTierJournals {
		if strings.Contains(lower, j) {
			return 5
		}
	}
	for _, j := range nutritionJournals {
		if strings.Contains(lower, j) {
			return 4
		}
	}
	return 3
}

// qualityTier buckets the score. The Cochrane methodology override
// short-circuits straight to exceptional.
func qualityTier(methodology, total int) types.QualityTier {
	if methodology >= cochraneMethodologyScore {
		return types.TierExceptional
	}
	switch {
	case total >= 80:
		return types.TierExceptional
	case total >= 60:
		return types.TierHigh
	case total >= 40:
		return types.TierGood
	case total >= 20:
		return types.TierModerate
	default:
		return types.TierLow
	}
}
