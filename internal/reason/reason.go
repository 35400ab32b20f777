package reason

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pzaytsev/knowchain/internal/extract"
	"github.com/pzaytsev/knowchain/internal/llm"
	"github.com/pzaytsev/knowchain/internal/model"
)

// Stage generates rationales, classifies domains, and evaluates
// self-consistency across extracted answers.
type Stage struct {
	gateway *llm.Gateway
	k       int
	claimK  int
	logger  *zap.Logger
}

// NewStage creates a reasoning stage
func NewStage(gateway *llm.Gateway, cfg model.PipelineConfig, logger *zap.Logger) *Stage {
	k := cfg.NumRationales
	if k <= 0 {
		k = 5
	}
	claimK := cfg.NumRationalesClaim
	if claimK <= 0 {
		claimK = k
	}

	return &Stage{
		gateway: gateway,
		k:       k,
		claimK:  claimK,
		logger:  logger,
	}
}

// K returns how many rationales to generate for a question. Reduced for
// claim-style questions to bound cost: claims always traverse the full
// pipeline, which costs more calls per rationale.
func (s *Stage) K(question string) int {
	if model.IsClaim(question) {
		return s.claimK
	}
	return s.k
}

// GenerateRationales issues k independent chain-of-thought calls. The
// sampling temperature follows a complexity heuristic over the question
// text; claim-style questions always use a fixed low temperature.
// datasetHint names the benchmark the question came from, when known.
// It does not change claim detection, which keys off the question text.
func (s *Stage) GenerateRationales(ctx context.Context, question, datasetHint string) ([]model.Rationale, error) {
	k := s.K(question)
	temperature := TemperatureFor(question)
	prompt := llm.ReasoningPrompt(question)

	s.logger.Info("generating rationales",
		zap.Int("k", k),
		zap.Float64("temperature", temperature),
		zap.String("dataset", datasetHint))

	rationales := make([]model.Rationale, 0, k)
	for i := 1; i <= k; i++ {
		text, err := s.gateway.Sample(ctx, prompt, temperature)
		if err != nil {
			return nil, fmt.Errorf("generate rationale %d/%d: %w", i, k, err)
		}
		rationales = append(rationales, model.Rationale{
			Index:       i,
			Temperature: temperature,
			Text:        text,
		})
		s.logger.Debug("generated rationale", zap.Int("index", i), zap.Int("of", k))
	}

	return rationales, nil
}

// ExtractAnswers derives the short terminal answer of each rationale.
// The result has the same length and order as the input.
func (s *Stage) ExtractAnswers(rationales []model.Rationale) []string {
	answers := make([]string, len(rationales))
	for i, r := range rationales {
		answers[i] = extract.Answer(r.Text)
	}
	return answers
}

// IdentifyDomains classifies the question into knowledge domains with
// one LLM call parsed by keyword matching. Defaults to factual when
// nothing matches.
func (s *Stage) IdentifyDomains(ctx context.Context, question string) ([]model.Domain, error) {
	response, err := s.gateway.Call(ctx, llm.DomainPrompt(question), 0.0)
	if err != nil {
		return nil, fmt.Errorf("identify domains: %w", err)
	}

	domains := ParseDomains(response)
	s.logger.Info("identified domains", zap.Any("domains", domains))
	return domains, nil
}

// HasConsensus reports whether the modal normalized answer's frequency
// share strictly exceeds the threshold. An exactly-equal share is not
// consensus.
func (s *Stage) HasConsensus(answers []string, threshold float64) bool {
	if len(answers) == 0 {
		return false
	}

	_, count := modal(answers)
	share := float64(count) / float64(len(answers))

	has := share > threshold
	s.logger.Info("consensus check",
		zap.Float64("agreement", share),
		zap.Float64("threshold", threshold),
		zap.Bool("consensus", has))
	return has
}

// ModalAnswer returns the most frequent answer, judged on normalized
// forms but returned in its original extracted form.
func (s *Stage) ModalAnswer(answers []string) string {
	normalized, _ := modal(answers)
	for _, a := range answers {
		if extract.Normalize(a) == normalized {
			return a
		}
	}
	return ""
}

// ValidateConsensus gates early stopping with one extra yes/no LLM
// call: a numerically reached consensus still has to look like an
// answer to the question.
func (s *Stage) ValidateConsensus(ctx context.Context, question, answer string) bool {
	response, err := s.gateway.Call(ctx, llm.ValidationPrompt(question, answer), 0.0)
	if err != nil {
		s.logger.Warn("consensus validation call failed", zap.Error(err))
		return false
	}

	verdict := strings.HasPrefix(strings.ToLower(strings.TrimSpace(response)), "yes")
	s.logger.Info("consensus validation", zap.Bool("accepted", verdict))
	return verdict
}

// modal returns the most frequent normalized answer and its count.
func modal(answers []string) (string, int) {
	counts := make(map[string]int)
	for _, a := range answers {
		counts[extract.Normalize(a)]++
	}

	best, bestCount := "", 0
	for _, a := range answers {
		n := extract.Normalize(a)
		if counts[n] > bestCount {
			best, bestCount = n, counts[n]
		}
	}
	return best, bestCount
}
