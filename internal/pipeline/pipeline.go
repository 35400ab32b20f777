package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pzaytsev/knowchain/internal/consolidate"
	"github.com/pzaytsev/knowchain/internal/correct"
	"github.com/pzaytsev/knowchain/internal/knowledge"
	"github.com/pzaytsev/knowchain/internal/llm"
	"github.com/pzaytsev/knowchain/internal/model"
	"github.com/pzaytsev/knowchain/internal/reason"
	"github.com/pzaytsev/knowchain/internal/retrieve"
)

// skippedStage marks pipeline stages bypassed by early stopping.
const skippedStage = "none (early stop)"

// Pipeline runs the chain-of-knowledge flow for one question: rationale
// generation, consensus check with optional early stop, domain-adaptive
// retrieval, progressive correction, and consolidation.
type Pipeline struct {
	reasoner     *reason.Stage
	retriever    *retrieve.Retriever
	corrector    *correct.Corrector
	consolidator *consolidate.Consolidator
	modelName    string
	cfg          *model.Config
	logger       *zap.Logger
}

// New wires a pipeline from a gateway and a source registry.
func New(gateway *llm.Gateway, registry *knowledge.Registry, cfg *model.Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		reasoner:     reason.NewStage(gateway, cfg.Pipeline, logger),
		retriever:    retrieve.NewRetriever(gateway, registry, cfg.Retrieval, logger),
		corrector:    correct.NewCorrector(gateway, logger),
		consolidator: consolidate.NewConsolidator(gateway, logger),
		modelName:    gateway.Provider().Name(),
		cfg:          cfg,
		logger:       logger,
	}
}

// Run answers one question. datasetHint optionally names the benchmark
// the question came from and is forwarded to the reasoning stage; an
// empty hint is fine. The returned result always carries as many
// corrected rationales as rationales, index-aligned, when it reaches
// the full pipeline path.
func (p *Pipeline) Run(ctx context.Context, question, datasetHint string) (*model.PipelineResult, error) {
	p.logger.Info("pipeline start",
		zap.String("question", question),
		zap.String("dataset", datasetHint),
		zap.Bool("claim", model.IsClaim(question)))

	rationales, err := p.reasoner.GenerateRationales(ctx, question, datasetHint)
	if err != nil {
		return nil, fmt.Errorf("reasoning stage: %w", err)
	}
	answers := p.reasoner.ExtractAnswers(rationales)

	domains, err := p.reasoner.IdentifyDomains(ctx, question)
	if err != nil {
		// Retrieval can still proceed with the default domain
		p.logger.Warn("domain identification failed, defaulting to factual", zap.Error(err))
		domains = []model.Domain{model.DomainFactual}
	}

	nominal := p.reasoner.HasConsensus(answers, p.cfg.Pipeline.ConsensusThreshold)
	p.logger.Info("consensus check",
		zap.Bool("nominal", nominal),
		zap.Float64("threshold", p.cfg.Pipeline.ConsensusThreshold))

	// Claims always take the full retrieval path; a vote among
	// unverified rationales is not evidence.
	if !model.IsClaim(question) {
		if result := p.tryEarlyStop(ctx, question, rationales, answers, domains); result != nil {
			return result, nil
		}
	}

	corrected := p.correctAll(ctx, rationales, domains)

	answer, err := p.consolidator.Consolidate(ctx, question, corrected)
	if err != nil {
		return nil, fmt.Errorf("consolidation stage: %w", err)
	}

	return &model.PipelineResult{
		Question:            question,
		Answer:              answer,
		Stage:               model.StageFullPipeline,
		Confidence:          model.ConfidenceMedium,
		Domains:             domains,
		Rationales:          rationales,
		CorrectedRationales: corrected,
		ModelsUsed: map[string]string{
			"reasoning":     p.modelName,
			"retrieval":     p.modelName,
			"correction":    p.modelName,
			"consolidation": p.modelName,
		},
	}, nil
}

// tryEarlyStop returns a finished result when the rationales already
// agree strongly enough and the consensus answer survives validation.
// Nil means the full pipeline must run.
func (p *Pipeline) tryEarlyStop(ctx context.Context, question string, rationales []model.Rationale, answers []string, domains []model.Domain) *model.PipelineResult {
	if !p.reasoner.HasConsensus(answers, p.cfg.Pipeline.EarlyStopThreshold) {
		return nil
	}

	answer := p.reasoner.ModalAnswer(answers)
	if !p.reasoner.ValidateConsensus(ctx, question, answer) {
		p.logger.Info("consensus rejected by validation, running full pipeline")
		return nil
	}

	p.logger.Info("early stop on validated consensus", zap.String("answer", answer))
	return &model.PipelineResult{
		Question:   question,
		Answer:     consolidate.CleanAnswer(answer),
		Stage:      model.StageConsensusValidated,
		Confidence: model.ConfidenceHigh,
		Domains:    domains,
		Rationales: rationales,
		ModelsUsed: map[string]string{
			"reasoning":     p.modelName,
			"retrieval":     skippedStage,
			"correction":    skippedStage,
			"consolidation": skippedStage,
		},
	}
}

// correctAll runs retrieval and correction for every rationale. For
// each rationale the first domain yielding usable evidence and a
// non-empty rewrite wins; when none does, the original text passes
// through. Every failure inside one attempt is absorbed so one bad
// source or call never loses a rationale.
func (p *Pipeline) correctAll(ctx context.Context, rationales []model.Rationale, domains []model.Domain) []string {
	corrected := make([]string, 0, len(rationales))

	for _, rationale := range rationales {
		text := p.correctOne(ctx, rationale, domains, corrected)
		corrected = append(corrected, text)
	}

	return corrected
}

// correctOne attempts retrieval and correction for one rationale across
// the identified domains in order.
func (p *Pipeline) correctOne(ctx context.Context, rationale model.Rationale, domains []model.Domain, prior []string) string {
	for _, domain := range domains {
		query, err := p.retriever.GenerateQuery(ctx, rationale.Text, domain)
		if err != nil {
			p.logger.Warn("query generation failed",
				zap.Int("rationale", rationale.Index),
				zap.String("domain", string(domain)),
				zap.Error(err))
			continue
		}

		outcome := p.retriever.Execute(ctx, query, domain)
		if outcome.Status != retrieve.StatusFound || !correct.Usable(outcome.Evidence) {
			p.logger.Debug("no usable evidence",
				zap.Int("rationale", rationale.Index),
				zap.String("domain", string(domain)),
				zap.String("status", string(outcome.Status)))
			continue
		}

		rewritten, err := p.corrector.Correct(ctx, rationale.Text, outcome.Evidence, prior)
		if err != nil {
			p.logger.Warn("correction failed",
				zap.Int("rationale", rationale.Index),
				zap.String("domain", string(domain)),
				zap.Error(err))
			continue
		}
		if rewritten != "" {
			return rewritten
		}
	}

	return rationale.Text
}
