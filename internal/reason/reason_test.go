package reason

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/pzaytsev/knowchain/internal/llm"
	"github.com/pzaytsev/knowchain/internal/model"
)

// sequenceProvider returns scripted responses in order, then repeats
// the last one.
type sequenceProvider struct {
	responses []string
	calls     int
	prompts   []string
}

func (p *sequenceProvider) Name() string { return "sequence" }

func (p *sequenceProvider) Complete(_ context.Context, prompt string, _ float64) (string, error) {
	p.prompts = append(p.prompts, prompt)
	i := p.calls
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	p.calls++
	return p.responses[i], nil
}

func (p *sequenceProvider) IsAvailable(context.Context) bool { return true }

func newTestStage(provider llm.Provider) *Stage {
	gw := llm.NewGateway(provider, llm.GatewayOptions{}, zap.NewNop())
	return NewStage(gw, model.DefaultConfig().Pipeline, zap.NewNop())
}

func TestGenerateRationalesCount(t *testing.T) {
	provider := &sequenceProvider{responses: []string{
		"Step 1. Answer: Paris",
		"Thinking. Answer: Paris",
		"Answer: Lyon",
		"Answer: Paris",
		"Answer: Paris",
	}}
	stage := newTestStage(provider)

	rationales, err := stage.GenerateRationales(context.Background(), "What is the capital of France?", "")
	if err != nil {
		t.Fatalf("GenerateRationales: %v", err)
	}
	if len(rationales) != 5 {
		t.Fatalf("expected 5 rationales, got %d", len(rationales))
	}
	if provider.calls != 5 {
		t.Fatalf("expected 5 provider calls, got %d (sampling must bypass the response cache)", provider.calls)
	}
	for i, r := range rationales {
		if r.Index != i+1 {
			t.Errorf("rationale %d: index = %d, want %d", i, r.Index, i+1)
		}
		if r.Temperature != temperatureSimple {
			t.Errorf("rationale %d: temperature = %v, want %v", i, r.Temperature, temperatureSimple)
		}
	}
	if rationales[2].Text != "Answer: Lyon" {
		t.Errorf("rationales must preserve call order, got %q at index 2", rationales[2].Text)
	}
}

func TestGenerateRationalesReducedKForClaims(t *testing.T) {
	provider := &sequenceProvider{responses: []string{"Answer: SUPPORTS"}}
	stage := newTestStage(provider)

	rationales, err := stage.GenerateRationales(context.Background(), "Claim: Paris is the capital of France.", "fever")
	if err != nil {
		t.Fatalf("GenerateRationales: %v", err)
	}
	if len(rationales) != 3 {
		t.Fatalf("expected 3 rationales for a claim, got %d", len(rationales))
	}
	if rationales[0].Temperature != temperatureClaim {
		t.Errorf("claim temperature = %v, want %v", rationales[0].Temperature, temperatureClaim)
	}
}

func TestGenerateRationalesPropagatesError(t *testing.T) {
	provider := &errorProvider{err: fmt.Errorf("backend down")}
	stage := newTestStage(provider)

	_, err := stage.GenerateRationales(context.Background(), "What is the capital of France?", "")
	if err == nil {
		t.Fatal("expected error from failing provider")
	}
	if !strings.Contains(err.Error(), "backend down") {
		t.Errorf("error should wrap the provider failure, got %v", err)
	}
}

type errorProvider struct{ err error }

func (p *errorProvider) Name() string { return "error" }
func (p *errorProvider) Complete(context.Context, string, float64) (string, error) {
	return "", p.err
}
func (p *errorProvider) IsAvailable(context.Context) bool { return false }

func TestExtractAnswers(t *testing.T) {
	stage := newTestStage(&sequenceProvider{responses: []string{""}})

	rationales := []model.Rationale{
		{Index: 1, Text: "France is in Europe. The answer is Paris."},
		{Index: 2, Text: "Final answer: Paris"},
		{Index: 3, Text: "It could be Lyon."},
	}
	answers := stage.ExtractAnswers(rationales)
	if len(answers) != 3 {
		t.Fatalf("expected 3 answers, got %d", len(answers))
	}
	if answers[0] != "Paris." {
		t.Errorf("answers[0] = %q, want %q", answers[0], "Paris.")
	}
	if answers[1] != "Paris" {
		t.Errorf("answers[1] = %q, want %q", answers[1], "Paris")
	}
}

func TestHasConsensus(t *testing.T) {
	stage := newTestStage(&sequenceProvider{responses: []string{""}})

	tests := []struct {
		name      string
		answers   []string
		threshold float64
		want      bool
	}{
		{
			name:      "clear majority",
			answers:   []string{"Paris", "Paris", "Paris", "Lyon", "Paris"},
			threshold: 0.7,
			want:      true,
		},
		{
			name:      "share equal to threshold is not consensus",
			answers:   []string{"Paris", "Paris", "Lyon", "Nice"},
			threshold: 0.5,
			want:      false,
		},
		{
			name:      "share just above threshold",
			answers:   []string{"Paris", "Paris", "Paris", "Lyon", "Nice"},
			threshold: 0.5,
			want:      true,
		},
		{
			name:      "normalization merges case and punctuation",
			answers:   []string{"Paris.", "paris", "PARIS", "Lyon"},
			threshold: 0.7,
			want:      true,
		},
		{
			name:      "empty answers",
			answers:   nil,
			threshold: 0.5,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stage.HasConsensus(tt.answers, tt.threshold); got != tt.want {
				t.Errorf("HasConsensus(%v, %v) = %v, want %v", tt.answers, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestModalAnswer(t *testing.T) {
	stage := newTestStage(&sequenceProvider{responses: []string{""}})

	got := stage.ModalAnswer([]string{"Lyon", "Paris.", "paris", "PARIS"})
	if got != "Paris." {
		t.Errorf("ModalAnswer = %q, want first original form %q", got, "Paris.")
	}

	if got := stage.ModalAnswer(nil); got != "" {
		t.Errorf("ModalAnswer(nil) = %q, want empty", got)
	}
}

func TestIdentifyDomains(t *testing.T) {
	provider := &sequenceProvider{responses: []string{
		"This question involves medical and biology domains.",
	}}
	stage := newTestStage(provider)

	domains, err := stage.IdentifyDomains(context.Background(), "What causes sickle cell anemia?")
	if err != nil {
		t.Fatalf("IdentifyDomains: %v", err)
	}
	want := []model.Domain{model.DomainMedical, model.DomainBiology}
	if len(domains) != len(want) {
		t.Fatalf("domains = %v, want %v", domains, want)
	}
	for i := range want {
		if domains[i] != want[i] {
			t.Errorf("domains[%d] = %v, want %v", i, domains[i], want[i])
		}
	}
}

func TestParseDomains(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []model.Domain
	}{
		{
			name:     "single keyword",
			response: "physics",
			want:     []model.Domain{model.DomainPhysics},
		},
		{
			name:     "keyword family match",
			response: "This is about quantum mechanics and energy.",
			want:     []model.Domain{model.DomainPhysics},
		},
		{
			name:     "multiple domains in fixed order",
			response: "biology, medical",
			want:     []model.Domain{model.DomainMedical, model.DomainBiology},
		},
		{
			name:     "no match defaults to factual",
			response: "I am not sure.",
			want:     []model.Domain{model.DomainFactual},
		},
		{
			name:     "case insensitive",
			response: "MEDICAL",
			want:     []model.Domain{model.DomainMedical},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDomains(tt.response)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseDomains(%q) = %v, want %v", tt.response, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("ParseDomains(%q)[%d] = %v, want %v", tt.response, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestValidateConsensus(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{"affirmative", "yes", true},
		{"affirmative with prose", "Yes, that answers the question.", true},
		{"negative", "no", false},
		{"noncommittal", "It depends.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage := newTestStage(&sequenceProvider{responses: []string{tt.response}})
			got := stage.ValidateConsensus(context.Background(), "What is the capital of France?", "Paris")
			if got != tt.want {
				t.Errorf("ValidateConsensus with response %q = %v, want %v", tt.response, got, tt.want)
			}
		})
	}
}

func TestValidateConsensusFailsClosed(t *testing.T) {
	stage := newTestStage(&errorProvider{err: fmt.Errorf("backend down")})
	if stage.ValidateConsensus(context.Background(), "Q", "A") {
		t.Error("validation must reject when the call fails")
	}
}

func TestTemperatureFor(t *testing.T) {
	tests := []struct {
		question string
		want     float64
	}{
		{"Claim: Paris is the capital of France.", temperatureClaim},
		{"What is the capital of France?", temperatureSimple},
		{"Who was the first president of the USA?", temperatureSimple},
		{"Why does ice float on water?", temperatureModerate},
		{"What is the difference between mass and weight?", temperatureModerate},
		{"Which of these rivers flows through both France and Germany?", temperatureComplex},
		{"Name the currently reigning monarchs of Europe.", temperatureDefault},
	}

	for _, tt := range tests {
		if got := TemperatureFor(tt.question); got != tt.want {
			t.Errorf("TemperatureFor(%q) = %v, want %v", tt.question, got, tt.want)
		}
	}
}
