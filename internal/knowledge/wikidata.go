package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pzaytsev/knowchain/internal/util"
)

// WikidataSource executes SPARQL queries against the Wikidata query
// service. Queries are cleaned and validated before any network call.
type WikidataSource struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
}

// WikidataOptions configures the Wikidata source.
type WikidataOptions struct {
	Endpoint   string // defaults to the public query service
	UserAgent  string
	Timeout    time.Duration
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// NewWikidataSource creates a Wikidata SPARQL source
func NewWikidataSource(opts WikidataOptions, logger *zap.Logger) *WikidataSource {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "https://query.wikidata.org/sparql"
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &WikidataSource{
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
func (s *WikidataSource) Name() string {
	return SourceWikidata
}

// sparqlResponse models the SPARQL JSON results format.
type sparqlResponse struct {
	Results struct {
		Bindings []map[string]struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"bindings"`
	} `json:"results"`
}

// Search cleans and validates the SPARQL query, executes it, and
// formats up to topK result bindings as readable strings.
func (s *WikidataSource) Search(ctx context.Context, sparqlQuery string, topK int) []string {
	cleaned := CleanSPARQL(sparqlQuery)
	if !ValidSPARQL(cleaned) {
		s.logger.Debug("invalid sparql query skipped", zap.String("query", snippet(cleaned, 100)))
		return nil
	}

	params := url.Values{}
	params.Set("query", cleaned)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		s.logger.Debug("wikidata request build failed", zap.Error(err))
		return nil
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Debug("wikidata query failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		s.logger.Debug("wikidata rejected query syntax", zap.String("query", snippet(cleaned, 100)))
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("wikidata unexpected status", zap.Int("status", resp.StatusCode))
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		s.logger.Debug("wikidata read failed", zap.Error(err))
		return nil
	}

	var parsed sparqlResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		s.logger.Debug("wikidata parse failed", zap.Error(err))
		return nil
	}

	results := formatBindings(parsed, topK)
	s.logger.Debug("wikidata query done", zap.Int("results", len(results)))
	return results
}

// formatBindings renders result rows as "var: value | var: value",
// shortening entity URIs to their Q-identifiers.
func formatBindings(parsed sparqlResponse, topK int) []string {
	var formatted []string
	for i, binding := range parsed.Results.Bindings {
		if i >= topK {
			break
		}
		keys := make([]string, 0, len(binding))
		for key := range binding {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		var values []string
		for _, key := range keys {
			value := binding[key].Value
			if strings.Contains(value, "/entity/") {
				value = value[strings.LastIndex(value, "/entity/")+len("/entity/"):]
			}
			values = append(values, fmt.Sprintf("%s: %s", key, value))
		}
		if len(values) > 0 {
			formatted = append(formatted, strings.Join(values, " | "))
		}
	}
	return formatted
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
