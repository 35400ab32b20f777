package retrieve

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pzaytsev/knowchain/internal/extract"
	"github.com/pzaytsev/knowchain/internal/knowledge"
	"github.com/pzaytsev/knowchain/internal/llm"
	"github.com/pzaytsev/knowchain/internal/model"
	"github.com/pzaytsev/knowchain/internal/score"
)

// Status classifies a retrieval attempt.
type Status string

const (
	// StatusFound means relevant evidence survived scoring.
	StatusFound Status = "found"
	// StatusEmpty means sources were queried but nothing relevant came back.
	StatusEmpty Status = "empty"
	// StatusFailed means the attempt could not be made at all.
	StatusFailed Status = "failed"
)

// Outcome is the result of one retrieval attempt. Evidence always
// carries a usable string: joined snippets on success, the no-results
// sentinel otherwise.
type Outcome struct {
	Status   Status
	Evidence string
	Sources  []string // sources that contributed kept snippets
	Reason   string   // short diagnostic for empty/failed outcomes
}

// Retriever turns rationales into domain-appropriate queries and
// executes them against ranked knowledge sources.
type Retriever struct {
	gateway  *llm.Gateway
	registry *knowledge.Registry
	scorer   *score.Scorer
	cfg      model.RetrievalConfig
	logger   *zap.Logger
}

// NewRetriever creates a retriever over the registered sources.
func NewRetriever(gateway *llm.Gateway, registry *knowledge.Registry, cfg model.RetrievalConfig, logger *zap.Logger) *Retriever {
	return &Retriever{
		gateway:  gateway,
		registry: registry,
		scorer:   score.NewScorer(),
		cfg:      cfg,
		logger:   logger,
	}
}

// GenerateQuery produces a retrieval query from one rationale for one
// domain. Factual questions get a structured Wikidata query, medical
// ones extracted terminology, everything else a natural-language query.
func (r *Retriever) GenerateQuery(ctx context.Context, rationale string, domain model.Domain) (model.Query, error) {
	var (
		prompt    string
		queryType model.QueryType
	)
	switch domain {
	case model.DomainFactual:
		prompt = llm.SPARQLPrompt(rationale)
		queryType = model.QueryTypeSPARQL
	case model.DomainMedical:
		prompt = llm.MedicalPrompt(rationale)
		queryType = model.QueryTypeMedical
	default:
		prompt = llm.NaturalQueryPrompt(rationale)
		queryType = model.QueryTypeNatural
	}

	response, err := r.gateway.Call(ctx, prompt, 0.0)
	if err != nil {
		return model.Query{}, fmt.Errorf("generate %s query: %w", queryType, err)
	}

	text := strings.TrimSpace(response)
	if queryType == model.QueryTypeSPARQL {
		text = knowledge.CleanSPARQL(text)
	}
	if max := r.cfg.MaxQueryLen; max > 0 && len(text) > max {
		text = strings.TrimSpace(extract.Clip(text, max))
	}

	return model.Query{Text: text, Type: queryType}, nil
}

// Execute runs the query against the ranked sources for the domain and
// returns scored, filtered evidence. Per-source failures degrade to
// empty results and never abort the attempt.
func (r *Retriever) Execute(ctx context.Context, query model.Query, domain model.Domain) Outcome {
	if strings.TrimSpace(query.Text) == "" {
		return Outcome{Status: StatusFailed, Evidence: model.NoResultsSentinel, Reason: "empty query"}
	}

	ranked := knowledge.RankSources(domain, query.Type, r.registry.Names())
	if len(ranked) == 0 {
		return Outcome{Status: StatusFailed, Evidence: model.NoResultsSentinel, Reason: "no sources registered"}
	}

	if query.Type == model.QueryTypeSPARQL {
		return r.executeSequential(ctx, query, ranked)
	}
	return r.executeFanOut(ctx, query, ranked)
}

// executeSequential walks the ranked sources one by one and stops at the
// first source whose snippets survive scoring. Structured queries only
// make sense against specific endpoints, so fanning out wastes calls.
func (r *Retriever) executeSequential(ctx context.Context, query model.Query, ranked []string) Outcome {
	for i, name := range ranked {
		snippets := r.searchOne(ctx, name, query.Text)
		if len(snippets) == 0 {
			r.logger.Debug("source returned nothing", zap.String("source", name))
			continue
		}

		threshold := r.cfg.MinScore
		if i > 0 {
			// Fallback sources have to clear a stricter bar
			threshold = r.cfg.FallbackMinScore
		}
		if kept := r.rank(query.Text, name, snippets, threshold); len(kept) > 0 {
			return r.found(kept)
		}
	}

	return Outcome{Status: StatusEmpty, Evidence: model.NoResultsSentinel, Reason: "no source produced relevant results"}
}

// executeFanOut queries every ranked source concurrently, each under its
// own timeout, then scores the union of snippets.
func (r *Retriever) executeFanOut(ctx context.Context, query model.Query, ranked []string) Outcome {
	perSource := make([][]string, len(ranked))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range ranked {
		g.Go(func() error {
			perSource[i] = r.searchOne(gctx, name, query.Text)
			return nil
		})
	}
	_ = g.Wait() // goroutines only record results, never error

	threshold := r.cfg.MinScore
	if len(perSource[0]) == 0 {
		// The primary source came back empty, so everything kept is
		// fallback evidence and has to clear the stricter bar.
		threshold = r.cfg.FallbackMinScore
	}

	var items []model.KnowledgeItem
	for i, snippets := range perSource {
		for _, s := range snippets {
			items = append(items, model.KnowledgeItem{Content: s, Source: ranked[i]})
		}
	}
	if len(items) == 0 {
		return Outcome{Status: StatusEmpty, Evidence: model.NoResultsSentinel, Reason: "all sources empty"}
	}

	scored := r.scorer.Score(query.Text, items)
	kept := r.scorer.TopK(r.scorer.FilterByThreshold(scored, threshold), r.cfg.TopK)
	if len(kept) == 0 {
		return Outcome{Status: StatusEmpty, Evidence: model.NoResultsSentinel, Reason: "no snippet above threshold"}
	}
	return r.found(kept)
}

// searchOne queries a single source under the per-source timeout.
func (r *Retriever) searchOne(ctx context.Context, name, query string) []string {
	source := r.registry.Get(name)
	if source == nil {
		return nil
	}

	sctx := ctx
	if r.cfg.SourceTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, r.cfg.SourceTimeout)
		defer cancel()
	}

	snippets := source.Search(sctx, query, r.cfg.TopK)
	r.logger.Debug("source searched",
		zap.String("source", name),
		zap.Int("snippets", len(snippets)))
	return snippets
}

// rank scores one source's snippets and keeps the top results above the
// threshold.
func (r *Retriever) rank(query, sourceName string, snippets []string, threshold float64) []model.KnowledgeItem {
	items := make([]model.KnowledgeItem, len(snippets))
	for i, s := range snippets {
		items[i] = model.KnowledgeItem{Content: s, Source: sourceName}
	}
	scored := r.scorer.Score(query, items)
	return r.scorer.TopK(r.scorer.FilterByThreshold(scored, threshold), r.cfg.TopK)
}

// found assembles the success outcome: kept snippet contents joined by
// newlines, contributing source names de-duplicated in kept order.
func (r *Retriever) found(kept []model.KnowledgeItem) Outcome {
	contents := make([]string, len(kept))
	seen := make(map[string]bool)
	var sources []string
	for i, item := range kept {
		contents[i] = item.Content
		if !seen[item.Source] {
			seen[item.Source] = true
			sources = append(sources, item.Source)
		}
	}
	return Outcome{
		Status:   StatusFound,
		Evidence: strings.Join(contents, "\n"),
		Sources:  sources,
	}
}
