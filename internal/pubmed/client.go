// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmed wraps the two NCBI E-utilities operations the engine
// needs: ESearch (query → PMIDs) and EFetch (PMIDs → parsed records).
// All calls on one Client share a single rate limiter so the minimum
// inter-request interval holds process-wide, not per goroutine.
// See docs/ARCHITECTURE § Literature Search.
package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// E-utilities endpoints. Declared as vars so tests can substitute an
// httptest server.
var (
	esearchBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	efetchBase  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
)

const (
	// defaultRateInterval spaces anonymous E-utilities calls. NCBI allows
	// 3 req/s without a key; 350ms keeps a margin under that.
	defaultRateInterval = 350 * time.Millisecond

	// keyedRateInterval applies when an API key raises the allowance to
	// 10 req/s.
	keyedRateInterval = 110 * time.Millisecond
)

// SearchError wraps a failed E-utilities call together with the query
// that produced it. Retry policy belongs to the orchestrator; the client
// surfaces the failure as-is.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("pubmed search %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// ESearchResult holds the outcome of an ID search.
type ESearchResult struct {
	// Count is the total number of matching records on the server, which
	// may exceed len(IDs).
	Count int

	// IDs lists the matching PMIDs in relevance order.
	IDs []string
}

// Client calls the E-utilities API with global rate limiting.
type Client struct {
	client  *http.Client
	cfg     types.PubMedConfig
	limiter *rate.Limiter
}

// NewClient builds a Client from config. A zero RateInterval selects the
// default spacing (tighter when an API key is configured).
func NewClient(cfg types.PubMedConfig) *Client {
	interval := cfg.RateInterval
	if interval <= 0 {
		interval = defaultRateInterval
		if cfg.APIKey != "" {
			interval = keyedRateInterval
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		client:  &http.Client{Timeout: timeout},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// ESearch runs a query and returns matching PMIDs, most relevant first.
func (c *Client) ESearch(ctx context.Context, query string, maxResults int, sort string) (ESearchResult, error) {
	if maxResults <= 0 {
		maxResults = c.cfg.MaxResults
	}
	if maxResults <= 0 {
		maxResults = 20
	}
	if sort == "" {
		sort = "relevance"
	}

	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmax":  {strconv.Itoa(maxResults)},
		"retmode": {"json"},
		"sort":    {sort},
	}
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}

	body, err := c.get(ctx, esearchBase+"?"+params.Encode())
	if err != nil {
		return ESearchResult{}, &SearchError{Query: query, Err: err}
	}
	defer body.Close()

	var er esearchResponse
	if err := json.NewDecoder(body).Decode(&er); err != nil {
		return ESearchResult{}, &SearchError{Query: query, Err: fmt.Errorf("parsing ESearch response: %w", err)}
	}

	count, _ := strconv.Atoi(er.Result.Count)
	return ESearchResult{Count: count, IDs: er.Result.IDList}, nil
}

// EFetch retrieves full records for the given PMIDs in one batch call.
// Records that fail to parse (missing PMID or title) are dropped
// individually; one bad record never fails the batch. The returned
// studies follow the order of ids.
func (c *Client) EFetch(ctx context.Context, ids []string) ([]types.Study, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"xml"},
		"rettype": {"abstract"},
	}
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}

	body, err := c.get(ctx, efetchBase+"?"+params.Encode())
	if err != nil {
		return nil, &SearchError{Query: "efetch:" + strings.Join(ids, ","), Err: err}
	}
	defer body.Close()

	studies, err := parseArticleSet(body)
	if err != nil {
		return nil, &SearchError{Query: "efetch:" + strings.Join(ids, ","), Err: err}
	}

	return orderByIDs(studies, ids), nil
}

// FetchCombined runs all queries' ID searches first, deduplicates the
// union of PMIDs preserving first-seen order across queries, then issues
// exactly one EFetch. Per-query search failures are returned in errs by
// query index; the fetch error, if any, is the second return value.
func (c *Client) FetchCombined(ctx context.Context, queries []string, maxResults int) (studies []types.Study, errs []error, fetchErr error) {
	errs = make([]error, len(queries))

	var ids []string
	seen := make(map[string]bool)
	for i, q := range queries {
		res, err := c.ESearch(ctx, q, maxResults, "relevance")
		if err != nil {
			errs[i] = err
			continue
		}
		for _, id := range res.IDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	studies, fetchErr = c.EFetch(ctx, ids)
	return studies, errs, fetchErr
}

// get performs a rate-limited GET with retry on 429/503.
func (c *Client) get(ctx context.Context, reqURL string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("E-utilities request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("E-utilities returned HTTP %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// orderByIDs re-sorts fetched studies into the requested ID order so
// merge results are deterministic regardless of server response order.
func orderByIDs(studies []types.Study, ids []string) []types.Study {
	byID := make(map[string]types.Study, len(studies))
	for _, s := range studies {
		byID[s.PMID] = s
	}
	ordered := make([]types.Study, 0, len(studies))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			ordered = append(ordered, s)
		}
	}
	return ordered
}

// ESearch JSON structures.
type esearchResponse struct {
	Result esearchResult `json:"esearchresult"`
}

type esearchResult struct {
	Count  string   `json:"count"`
	IDList []string `json:"idlist"`
}
