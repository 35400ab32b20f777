package knowledge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pzaytsev/knowchain/internal/extract"
	"github.com/pzaytsev/knowchain/internal/util"
)

// wikipediaQueryLimit is the search API's maximum query length.
const wikipediaQueryLimit = 300

// summaryLimit bounds each returned extract.
const summaryLimit = 300

// WikipediaSource retrieves article summaries via the MediaWiki
// search+extracts API.
type WikipediaSource struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
}

// WikipediaOptions configures the Wikipedia source.
type WikipediaOptions struct {
	Endpoint   string // defaults to the English Wikipedia API
	UserAgent  string
	Timeout    time.Duration
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// NewWikipediaSource creates a Wikipedia source
func NewWikipediaSource(opts WikipediaOptions, logger *zap.Logger) *WikipediaSource {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "https://en.wikipedia.org/w/api.php"
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &WikipediaSource{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy),
			},
		},
		userAgent: opts.UserAgent,
		logger:    logger,
	}
}

// Name returns the source name
func (s *WikipediaSource) Name() string {
	return SourceWikipedia
}

// wikipediaResponse models the slice of the API response we consume.
type wikipediaResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
			Index   int    `json:"index"`
		} `json:"pages"`
	} `json:"query"`
}

// Search queries the MediaWiki API and returns up to topK intro
// extracts, each bounded to summaryLimit characters.
func (s *WikipediaSource) Search(ctx context.Context, query string, topK int) []string {
	if len(query) > wikipediaQueryLimit {
		query = extract.Clip(query, wikipediaQueryLimit-3) + "..."
		s.logger.Debug("truncated wikipedia query", zap.Int("len", len(query)))
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("generator", "search")
	params.Set("gsrsearch", query)
	params.Set("gsrlimit", strconv.Itoa(topK))
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("exchars", strconv.Itoa(summaryLimit))
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		s.logger.Debug("wikipedia request build failed", zap.Error(err))
		return nil
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Debug("wikipedia search failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Debug("wikipedia unexpected status", zap.Int("status", resp.StatusCode))
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		s.logger.Debug("wikipedia read failed", zap.Error(err))
		return nil
	}

	var parsed wikipediaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		s.logger.Debug("wikipedia parse failed", zap.Error(err))
		return nil
	}

	type page struct {
		index   int
		extract string
	}
	var pages []page
	for _, p := range parsed.Query.Pages {
		if p.Extract == "" {
			continue
		}
		extract := p.Extract
		if len(extract) > summaryLimit {
			extract = extract[:summaryLimit]
		}
		pages = append(pages, page{index: p.Index, extract: extract})
	}

	// The pages map is unordered; the index field carries search rank.
	sort.Slice(pages, func(i, j int) bool { return pages[i].index < pages[j].index })

	var summaries []string
	for _, p := range pages {
		if len(summaries) >= topK {
			break
		}
		summaries = append(summaries, p.extract)
	}

	s.logger.Debug("wikipedia search done", zap.Int("results", len(summaries)))
	return summaries
}
