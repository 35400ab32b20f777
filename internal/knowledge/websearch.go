package knowledge

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pzaytsev/knowchain/internal/util"
	"github.com/pzaytsev/knowchain/internal/worker"
)

// snippetLimit bounds each returned web snippet.
const snippetLimit = 200

// WebSearchSource is the generic web fallback: it scrapes the
// DuckDuckGo lite HTML page, which needs no API key. It respects
// robots.txt and a per-process request budget.
type WebSearchSource struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	logger     *zap.Logger

	mu           sync.Mutex
	requestCount int
	requestLimit int
}

// WebSearchOptions configures the web search source.
type WebSearchOptions struct {
	Endpoint          string // defaults to the DuckDuckGo lite endpoint
	UserAgent         string
	Timeout           time.Duration
	RequestLimit      int // per-process request budget
	RequestsPerSecond float64
	Burst             int
	HTTPProxy         string
	HTTPSProxy        string
	NoProxy           string
}

// NewWebSearchSource creates a web search source
func NewWebSearchSource(opts WebSearchOptions, logger *zap.Logger) *WebSearchSource {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "https://lite.duckduckgo.com/lite/"
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	requestLimit := opts.RequestLimit
	if requestLimit == 0 {
		requestLimit = 100
	}
	rps := opts.RequestsPerSecond
	if rps == 0 {
		rps = 1.0
	}

	return &WebSearchSource{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy),
			},
		},
		userAgent:    opts.UserAgent,
		robots:       util.NewRobotsChecker(opts.UserAgent, timeout),
		limiter:      worker.NewLimiter(rps, opts.Burst),
		logger:       logger,
		requestLimit: requestLimit,
	}
}

// Name returns the source name
func (s *WebSearchSource) Name() string {
	return SourceWebSearch
}

// Search posts the query to the lite search page and extracts result
// snippets from the HTML. Empty on any failure.
func (s *WebSearchSource) Search(ctx context.Context, query string, topK int) []string {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	s.mu.Lock()
	if s.requestCount >= s.requestLimit {
		s.mu.Unlock()
		s.logger.Warn("web search request budget exhausted", zap.Int("limit", s.requestLimit))
		return nil
	}
	s.requestCount++
	s.mu.Unlock()

	allowed, crawlDelay, err := s.robots.CanFetch(ctx, s.endpoint)
	if err == nil && !allowed {
		s.logger.Debug("web search disallowed by robots.txt")
		return nil
	}

	if err := s.limiter.WaitWithDelay(ctx, s.endpoint, crawlDelay); err != nil {
		s.logger.Debug("web search rate limit wait aborted", zap.Error(err))
		return nil
	}

	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		s.logger.Debug("web search request build failed", zap.Error(err))
		return nil
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Debug("web search failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Debug("web search unexpected status", zap.Int("status", resp.StatusCode))
		return nil
	}

	snippets := parseResultSnippets(io.LimitReader(resp.Body, 1<<20), topK)
	s.logger.Debug("web search done", zap.Int("results", len(snippets)))
	return snippets
}

// parseResultSnippets walks the lite results page and collects the text
// of result-snippet cells.
func parseResultSnippets(r io.Reader, topK int) []string {
	doc, err := html.Parse(r)
	if err != nil {
		return nil
	}

	var snippets []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(snippets) >= topK {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, "result-snippet") {
			text := strings.TrimSpace(nodeText(n))
			if text != "" {
				if len(text) > snippetLimit {
					text = text[:snippetLimit]
				}
				snippets = append(snippets, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return snippets
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}
