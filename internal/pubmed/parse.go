// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// participantPatterns is the ordered ladder of sample-size expressions
// tried against the abstract. The first match inside the sanity bound
// wins.
var participantPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bn\s*=\s*([\d,]{1,7})`),
	regexp.MustCompile(`(?i)\b([\d,]{1,7})\s+participants\b`),
	regexp.MustCompile(`(?i)\b([\d,]{1,7})\s+subjects\b`),
	regexp.MustCompile(`(?i)\b([\d,]{1,7})\s+patients\b`),
}

// typePriority resolves records that carry several publication-type tags:
// the strongest design present wins.
var typePriority = []struct {
	tag string
	t   types.StudyType
}{
	{"randomized controlled trial", types.TypeRCT},
	{"meta-analysis", types.TypeMetaAnalysis},
	{"systematic review", types.TypeSystematicReview},
	{"clinical trial", types.TypeClinicalTrial},
	{"review", types.TypeReview},
}

// parseArticleSet decodes an EFetch PubmedArticleSet. Records missing a
// PMID or title are dropped individually.
func parseArticleSet(r io.Reader) ([]types.Study, error) {
	var set pubmedArticleSet
	if err := xml.NewDecoder(r).Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing EFetch response: %w", err)
	}

	var studies []types.Study
	for _, article := range set.Articles {
		if s, ok := parseArticle(article); ok {
			studies = append(studies, s)
		}
	}
	return studies, nil
}

// parseArticle converts one PubmedArticle into a Study. Returns false
// when the record lacks the required PMID or title.
func parseArticle(a pubmedArticle) (types.Study, bool) {
	pmid := strings.TrimSpace(a.Citation.PMID)
	title := strings.TrimSpace(a.Citation.Article.Title)
	if pmid == "" || title == "" {
		return types.Study{}, false
	}

	abstract := joinAbstract(a.Citation.Article.Abstract.Sections)

	var authors []string
	for _, au := range a.Citation.Article.Authors.Authors {
		if name := au.fullName(); name != "" {
			authors = append(authors, name)
		}
	}

	s := types.Study{
		PMID:         pmid,
		Title:        title,
		Abstract:     abstract,
		Authors:      types.BoundAuthors(authors),
		Year:         parseYear(a.Citation.Article.Journal.Issue.PubDate),
		Journal:      strings.TrimSpace(a.Citation.Article.Journal.Title),
		Type:         classifyType(a.Citation.Article.PubTypes.Types),
		Participants: extractParticipants(abstract),
		DOI:          findDOI(a.Data.IDs.IDs),
		URL:          "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
	}
	return s, true
}

// joinAbstract flattens a structured abstract, prefixing labeled
// sections (e.g. "RESULTS: ...") the way PubMed renders them.
func joinAbstract(sections []abstractText) string {
	var parts []string
	for _, sec := range sections {
		text := strings.TrimSpace(sec.Text)
		if text == "" {
			continue
		}
		if sec.Label != "" {
			text = sec.Label + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

// parseYear reads the publication year, falling back to the leading year
// of a MedlineDate range ("2019 Nov-Dec"). 0 means unknown.
func parseYear(d pubDate) int {
	if y, err := strconv.Atoi(strings.TrimSpace(d.Year)); err == nil {
		return y
	}
	fields := strings.Fields(d.MedlineDate)
	if len(fields) > 0 {
		if y, err := strconv.Atoi(fields[0]); err == nil {
			return y
		}
	}
	return 0
}

// classifyType picks the strongest study design among the record's
// publication-type tags.
func classifyType(tags []string) types.StudyType {
	for _, p := range typePriority {
		for _, tag := range tags {
			if strings.EqualFold(strings.TrimSpace(tag), p.tag) {
				return p.t
			}
		}
	}
	return types.TypeNone
}

// extractParticipants runs the pattern ladder over the abstract and
// returns the first sample size inside (0, MaxParticipants), or 0.
func extractParticipants(abstract string) int {
	for _, re := range participantPatterns {
		m := re.FindStringSubmatch(abstract)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		if n > 0 && n < types.MaxParticipants {
			return n
		}
	}
	return 0
}

// findDOI returns the DOI from the article ID list, if present.
func findDOI(ids []articleID) string {
	for _, id := range ids {
		if strings.EqualFold(id.IDType, "doi") {
			return strings.TrimSpace(id.Value)
		}
	}
	return ""
}

// EFetch XML structures (PubmedArticleSet subset).
type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation medlineCitation `xml:"MedlineCitation"`
	Data     pubmedData      `xml:"PubmedData"`
}

type medlineCitation struct {
	PMID    string        `xml:"PMID"`
	Article pubmedArticleBody `xml:"Article"`
}

type pubmedArticleBody struct {
	Title    string        `xml:"ArticleTitle"`
	Abstract pubmedAbstract `xml:"Abstract"`
	Authors  authorList    `xml:"AuthorList"`
	Journal  journal       `xml:"Journal"`
	PubTypes pubTypeList   `xml:"PublicationTypeList"`
}

type pubmedAbstract struct {
	Sections []abstractText `xml:"AbstractText"`
}

type abstractText struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",chardata"`
}

type authorList struct {
	Authors []author `xml:"Author"`
}

type author struct {
	LastName       string `xml:"LastName"`
	ForeName       string `xml:"ForeName"`
	CollectiveName string `xml:"CollectiveName"`
}

// fullName returns "ForeName LastName", or the collective name for group
// authorship.
func (a author) fullName() string {
	if a.CollectiveName != "" {
		return strings.TrimSpace(a.CollectiveName)
	}
	name := strings.TrimSpace(a.ForeName + " " + a.LastName)
	return name
}

type journal struct {
	Title string       `xml:"Title"`
	Issue journalIssue `xml:"JournalIssue"`
}

type journalIssue struct {
	PubDate pubDate `xml:"PubDate"`
}

type pubDate struct {
	Year        string `xml:"Year"`
	MedlineDate string `xml:"MedlineDate"`
}

type pubTypeList struct {
	Types []string `xml:"PublicationType"`
}

type pubmedData struct {
	IDs articleIDList `xml:"ArticleIdList"`
}

type articleIDList struct {
	IDs []articleID `xml:"ArticleId"`
}

type articleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}
