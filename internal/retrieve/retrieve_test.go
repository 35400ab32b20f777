package retrieve

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pzaytsev/knowchain/internal/knowledge"
	"github.com/pzaytsev/knowchain/internal/llm"
	"github.com/pzaytsev/knowchain/internal/model"
)

// fixedProvider returns the same response for every completion.
type fixedProvider struct {
	response string
	prompts  []string
}

func (p *fixedProvider) Name() string { return "fixed" }

func (p *fixedProvider) Complete(_ context.Context, prompt string, _ float64) (string, error) {
	p.prompts = append(p.prompts, prompt)
	return p.response, nil
}

func (p *fixedProvider) IsAvailable(context.Context) bool { return true }

// fakeSource records queries and returns canned snippets.
type fakeSource struct {
	name     string
	snippets []string
	calls    int
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Search(context.Context, string, int) []string {
	s.calls++
	return s.snippets
}

func newTestRetriever(provider llm.Provider, sources ...knowledge.Source) *Retriever {
	registry := knowledge.NewRegistry()
	for _, s := range sources {
		registry.Add(s)
	}
	gw := llm.NewGateway(provider, llm.GatewayOptions{}, zap.NewNop())
	return NewRetriever(gw, registry, model.DefaultConfig().Retrieval, zap.NewNop())
}

func TestGenerateQuery_FactualProducesCleanedSPARQL(t *testing.T) {
	provider := &fixedProvider{response: "```sparql\nSELECT ?capital WHERE { wd:Q142 wdt:P36 ?capital }\n```"}
	r := newTestRetriever(provider)

	q, err := r.GenerateQuery(context.Background(), "France has a capital city.", model.DomainFactual)
	if err != nil {
		t.Fatalf("GenerateQuery: %v", err)
	}
	if q.Type != model.QueryTypeSPARQL {
		t.Errorf("type = %v, want %v", q.Type, model.QueryTypeSPARQL)
	}
	if strings.Contains(q.Text, "```") {
		t.Errorf("markdown fences not stripped: %q", q.Text)
	}
	if !strings.HasPrefix(q.Text, "SELECT") {
		t.Errorf("query should start with SELECT, got %q", q.Text)
	}
}

func TestGenerateQuery_MedicalAndNaturalTypes(t *testing.T) {
	provider := &fixedProvider{response: "  sickle cell anemia hemoglobin  "}
	r := newTestRetriever(provider)

	q, err := r.GenerateQuery(context.Background(), "rationale", model.DomainMedical)
	if err != nil {
		t.Fatalf("GenerateQuery medical: %v", err)
	}
	if q.Type != model.QueryTypeMedical {
		t.Errorf("medical type = %v", q.Type)
	}
	if q.Text != "sickle cell anemia hemoglobin" {
		t.Errorf("query not trimmed: %q", q.Text)
	}

	q, err = r.GenerateQuery(context.Background(), "rationale", model.DomainPhysics)
	if err != nil {
		t.Fatalf("GenerateQuery physics: %v", err)
	}
	if q.Type != model.QueryTypeNatural {
		t.Errorf("physics type = %v, want natural", q.Type)
	}
}

func TestGenerateQuery_CapsLength(t *testing.T) {
	provider := &fixedProvider{response: strings.Repeat("quantum entanglement ", 50)}
	r := newTestRetriever(provider)

	q, err := r.GenerateQuery(context.Background(), "rationale", model.DomainBiology)
	if err != nil {
		t.Fatalf("GenerateQuery: %v", err)
	}
	if max := model.DefaultConfig().Retrieval.MaxQueryLen; len(q.Text) > max {
		t.Errorf("query length %d exceeds cap %d", len(q.Text), max)
	}
}

func TestGenerateQuery_CapKeepsValidUTF8(t *testing.T) {
	provider := &fixedProvider{response: strings.Repeat("量子もつれ ", 100)}
	r := newTestRetriever(provider)

	q, err := r.GenerateQuery(context.Background(), "rationale", model.DomainPhysics)
	if err != nil {
		t.Fatalf("GenerateQuery: %v", err)
	}
	if max := model.DefaultConfig().Retrieval.MaxQueryLen; len(q.Text) > max {
		t.Errorf("query length %d exceeds cap %d", len(q.Text), max)
	}
	if !utf8.ValidString(q.Text) {
		t.Error("capped query is not valid UTF-8")
	}
}

func TestExecute_EmptyQueryFails(t *testing.T) {
	r := newTestRetriever(&fixedProvider{}, &fakeSource{name: knowledge.SourceWikipedia})

	out := r.Execute(context.Background(), model.Query{Text: "  ", Type: model.QueryTypeNatural}, model.DomainFactual)
	if out.Status != StatusFailed {
		t.Errorf("status = %v, want %v", out.Status, StatusFailed)
	}
	if out.Evidence != model.NoResultsSentinel {
		t.Errorf("evidence = %q, want sentinel", out.Evidence)
	}
}

func TestExecute_NoSourcesFails(t *testing.T) {
	r := newTestRetriever(&fixedProvider{})

	out := r.Execute(context.Background(), model.Query{Text: "capital of France", Type: model.QueryTypeNatural}, model.DomainFactual)
	if out.Status != StatusFailed {
		t.Errorf("status = %v, want %v", out.Status, StatusFailed)
	}
}

func TestExecute_FanOutFindsRelevantEvidence(t *testing.T) {
	wikipedia := &fakeSource{
		name: knowledge.SourceWikipedia,
		snippets: []string{
			"Paris is the capital and largest city of France.",
			"Unrelated text about cooking pasta.",
		},
	}
	web := &fakeSource{
		name:     knowledge.SourceWebSearch,
		snippets: []string{"The capital of France is Paris, on the Seine."},
	}
	r := newTestRetriever(&fixedProvider{}, wikipedia, web)

	out := r.Execute(context.Background(),
		model.Query{Text: "capital of France", Type: model.QueryTypeNatural},
		model.DomainFactual)

	if out.Status != StatusFound {
		t.Fatalf("status = %v (%s), want %v", out.Status, out.Reason, StatusFound)
	}
	if !strings.Contains(out.Evidence, "Paris") {
		t.Errorf("evidence should mention Paris: %q", out.Evidence)
	}
	if wikipedia.calls != 1 || web.calls != 1 {
		t.Errorf("fan-out must query all ranked sources, got wikipedia=%d web=%d", wikipedia.calls, web.calls)
	}
	if n := len(strings.Split(out.Evidence, "\n")); n > model.DefaultConfig().Retrieval.TopK {
		t.Errorf("evidence holds %d snippets, cap is %d", n, model.DefaultConfig().Retrieval.TopK)
	}
}

func TestExecute_IrrelevantSnippetsYieldEmpty(t *testing.T) {
	wikipedia := &fakeSource{
		name:     knowledge.SourceWikipedia,
		snippets: []string{"zzzz qqqq"},
	}
	r := newTestRetriever(&fixedProvider{}, wikipedia)

	out := r.Execute(context.Background(),
		model.Query{Text: "capital of France", Type: model.QueryTypeNatural},
		model.DomainFactual)

	if out.Status != StatusEmpty {
		t.Errorf("status = %v, want %v", out.Status, StatusEmpty)
	}
	if out.Evidence != model.NoResultsSentinel {
		t.Errorf("evidence = %q, want sentinel", out.Evidence)
	}
}

func TestExecute_AllSourcesEmpty(t *testing.T) {
	r := newTestRetriever(&fixedProvider{},
		&fakeSource{name: knowledge.SourceWikipedia},
		&fakeSource{name: knowledge.SourceWebSearch})

	out := r.Execute(context.Background(),
		model.Query{Text: "capital of France", Type: model.QueryTypeNatural},
		model.DomainFactual)

	if out.Status != StatusEmpty {
		t.Errorf("status = %v, want %v", out.Status, StatusEmpty)
	}
}

func TestExecute_SPARQLStopsAtFirstHit(t *testing.T) {
	wikidata := &fakeSource{
		name:     knowledge.SourceWikidata,
		snippets: []string{"capital: Paris | country: France"},
	}
	wikipedia := &fakeSource{
		name:     knowledge.SourceWikipedia,
		snippets: []string{"Paris is the capital of France."},
	}
	r := newTestRetriever(&fixedProvider{}, wikidata, wikipedia)

	out := r.Execute(context.Background(),
		model.Query{Text: "SELECT ?capital WHERE { wd:Q142 wdt:P36 ?capital } capital France Paris", Type: model.QueryTypeSPARQL},
		model.DomainFactual)

	if out.Status != StatusFound {
		t.Fatalf("status = %v (%s), want %v", out.Status, out.Reason, StatusFound)
	}
	if wikidata.calls != 1 {
		t.Errorf("structured source calls = %d, want 1", wikidata.calls)
	}
	if wikipedia.calls != 0 {
		t.Errorf("fallback source must not be queried after a structured hit, got %d calls", wikipedia.calls)
	}
	if len(out.Sources) != 1 || out.Sources[0] != knowledge.SourceWikidata {
		t.Errorf("sources = %v, want [%s]", out.Sources, knowledge.SourceWikidata)
	}
}

func TestExecute_SPARQLFallsBackWhenStructuredEmpty(t *testing.T) {
	wikidata := &fakeSource{name: knowledge.SourceWikidata}
	wikipedia := &fakeSource{
		name:     knowledge.SourceWikipedia,
		snippets: []string{"Paris is the capital and largest city of France."},
	}
	r := newTestRetriever(&fixedProvider{}, wikidata, wikipedia)

	out := r.Execute(context.Background(),
		model.Query{Text: "capital of France Paris", Type: model.QueryTypeSPARQL},
		model.DomainFactual)

	if out.Status != StatusFound {
		t.Fatalf("status = %v (%s), want %v", out.Status, out.Reason, StatusFound)
	}
	if wikidata.calls != 1 {
		t.Errorf("structured source must be tried first, got %d calls", wikidata.calls)
	}
	if len(out.Sources) != 1 || out.Sources[0] != knowledge.SourceWikipedia {
		t.Errorf("sources = %v, want [%s]", out.Sources, knowledge.SourceWikipedia)
	}
}
