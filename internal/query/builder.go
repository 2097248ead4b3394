// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query builds PubMed query strings from a supplement name and
// filter options. Builders are pure functions: no I/O, errors only on
// malformed options. See docs/ARCHITECTURE § Query Construction.
package query

import (
	"fmt"
	"strings"
	"time"
)

// maxNameLength bounds accepted supplement names.
const maxNameLength = 100

// defaultYearFrom is the open lower bound for publication-date filters.
const defaultYearFrom = 1900

// nowYear returns the current year. Declared as a var so tests can pin it.
var nowYear = func() int { return time.Now().Year() }

// Spec holds the parameters for one PubMed query.
type Spec struct {
	// Name is the normalized supplement name.
	Name string

	// UseProximity emits a title-proximity clause for multi-word names
	// instead of AND-joined per-word terms.
	UseProximity bool

	// StudyTypes restricts results to the given publication types.
	StudyTypes []string

	// YearFrom and YearTo bound the publication date; zero means open.
	YearFrom int
	YearTo   int

	// HumanOnly restricts results to human studies.
	HumanOnly bool
}

// pubTypeFilters maps methodology names to PubMed publication-type
// clauses.
var pubTypeFilters = map[string]string{
	"randomized-controlled-trial": `"randomized controlled trial"[pt]`,
	"meta-analysis":               `"meta-analysis"[pt]`,
	"systematic-review":           `"systematic review"[pt]`,
	"clinical-trial":              `"clinical trial"[pt]`,
	"review":                      `"review"[pt]`,
}

// negativePhrases is the fixed OR-group used by the negative-evidence
// strategy to surface null and unfavorable findings.
var negativePhrases = []string{
	"no effect",
	"not effective",
	"ineffective",
	"no significant difference",
	"no benefit",
	"failed to show",
	"did not improve",
}

// Normalize canonicalizes a supplement name: trimmed, lowercased, inner
// whitespace collapsed to single spaces.
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Validate checks a spec before any query is built. Empty and over-length
// names and inverted year ranges are rejected.
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("supplement name is empty")
	}
	if len(s.Name) > maxNameLength {
		return fmt.Errorf("supplement name exceeds %d characters", maxNameLength)
	}
	if s.YearFrom != 0 && s.YearTo != 0 && s.YearFrom > s.YearTo {
		return fmt.Errorf("year range inverted: %d > %d", s.YearFrom, s.YearTo)
	}
	return nil
}

// Build assembles the full PubMed query for the spec. Confusable-term
// exclusions are appended automatically for names with known ambiguities.
func Build(spec Spec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	clauses := []string{MainTerm(spec.Name, spec.UseProximity)}

	if len(spec.StudyTypes) > 0 {
		var parts []string
		for _, t := range spec.StudyTypes {
			if clause, ok := pubTypeFilters[t]; ok {
				parts = append(parts, clause)
			}
		}
		if len(parts) > 0 {
			clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
		}
	}

	if spec.YearFrom != 0 || spec.YearTo != 0 {
		from := spec.YearFrom
		if from == 0 {
			from = defaultYearFrom
		}
		to := spec.YearTo
		if to == 0 {
			to = nowYear()
		}
		clauses = append(clauses, fmt.Sprintf("%d:%d[pdat]", from, to))
	}

	if spec.HumanOnly {
		clauses = append(clauses, `"humans"[mh]`)
	}

	q := strings.Join(clauses, " AND ")

	for _, term := range Confusables(spec.Name) {
		if strings.ContainsRune(term, ' ') {
			term = `"` + term + `"`
		}
		q += fmt.Sprintf(" NOT %s[tiab]", term)
	}

	return q, nil
}

// MainTerm builds the core search clause for a supplement name.
//
// A single token gets a bare [tiab] tag so PubMed's own term expansion
// applies. Multi-word names use a title-proximity clause when proximity
// is enabled (within 3 words, any order), which trades less recall loss
// than an exact phrase against less noise than a pure AND. With
// proximity off, each word gets its own [tiab] clause AND-joined.
func MainTerm(name string, useProximity bool) string {
	words := strings.Fields(name)
	if len(words) == 1 {
		return name + "[tiab]"
	}
	if useProximity {
		return fmt.Sprintf(`"%s"[Title:~3]`, name)
	}
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w + "[tiab]"
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

// HighQuality builds the primary strategy query: top-tier study designs,
// human studies only.
func HighQuality(name string) (string, error) {
	return Build(Spec{
		Name:         name,
		UseProximity: true,
		StudyTypes: []string{
			"randomized-controlled-trial",
			"meta-analysis",
			"systematic-review",
		},
		HumanOnly: true,
	})
}

// Recent builds a query restricted to the last windowYears years
// (default 5 when windowYears is 0 or negative).
func Recent(name string, windowYears int) (string, error) {
	if windowYears <= 0 {
		windowYears = 5
	}
	return Build(Spec{
		Name:         name,
		UseProximity: true,
		YearFrom:     nowYear() - windowYears,
		HumanOnly:    true,
	})
}

// NegativeEvidence builds the counter-evidence strategy query: the main
// term AND the fixed negative-finding phrases, restricted to trials.
func NegativeEvidence(name string) (string, error) {
	base, err := Build(Spec{Name: name, UseProximity: true})
	if err != nil {
		return "", err
	}

	phrases := make([]string, len(negativePhrases))
	for i, p := range negativePhrases {
		phrases[i] = fmt.Sprintf(`"%s"[tiab]`, p)
	}

	return fmt.Sprintf(`%s AND (%s) AND ("randomized controlled trial"[pt] OR "clinical trial"[pt])`,
		base, strings.Join(phrases, " OR ")), nil
}

// SystematicReview builds a query against PubMed's systematic-review
// subset.
func SystematicReview(name string) (string, error) {
	base, err := Build(Spec{Name: name, UseProximity: true})
	if err != nil {
		return "", err
	}
	return base + ` AND systematic[sb]`, nil
}
