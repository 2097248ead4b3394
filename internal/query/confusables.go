// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

// confusableTerms maps normalized supplement names to terms PubMed's own
// expansion routinely confuses them with. Exclusion is opt-in per known
// ambiguity: names absent from the table get no NOT clauses.
var confusableTerms = map[string][]string{
	"ginger":      {"ginseng"},
	"ginseng":     {"ginger"},
	"magnesium":   {"manganese"},
	"manganese":   {"magnesium"},
	"vitamin d":   {"vitamin d2"},
	"vitamin-d":   {"vitamin d2"},
	"omega-3":     {"omega-6", "omega-9"},
	"omega 3":     {"omega-6", "omega-9"},
	"l-carnitine": {"creatine", "carnosine"},
	"carnitine":   {"creatine", "carnosine"},
	"carnosine":   {"carnitine", "creatine"},
	"ashwagandha": {"rhodiola", "ginseng"},
	"zinc":        {"zinc finger"},
	"folate":      {"folate receptor"},
}

// Confusables returns the exclusion terms for a supplement name, or nil
// when the name has no known ambiguity.
func Confusables(name string) []string {
	return confusableTerms[Normalize(name)]
}
