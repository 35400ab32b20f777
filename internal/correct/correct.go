package correct

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pzaytsev/knowchain/internal/llm"
	"github.com/pzaytsev/knowchain/internal/model"
)

// minEvidenceLen filters out degenerate evidence strings that would
// only pollute the correction prompt.
const minEvidenceLen = 10

// Corrector rewrites rationales against retrieved evidence.
type Corrector struct {
	gateway *llm.Gateway
	logger  *zap.Logger
}

// NewCorrector creates a corrector
func NewCorrector(gateway *llm.Gateway, logger *zap.Logger) *Corrector {
	return &Corrector{gateway: gateway, logger: logger}
}

// Usable reports whether an evidence string is substantial enough to
// ground a correction.
func Usable(evidence string) bool {
	trimmed := strings.TrimSpace(evidence)
	return trimmed != "" && trimmed != model.NoResultsSentinel && len(trimmed) > minEvidenceLen
}

// Correct rewrites one rationale grounded in the evidence. When the
// evidence is unusable the original rationale passes through unchanged.
// Prior corrected rationales, when given, are prepended so later
// corrections can build on earlier ones.
func (c *Corrector) Correct(ctx context.Context, original, evidence string, prior []string) (string, error) {
	if !Usable(evidence) {
		c.logger.Debug("no usable evidence, keeping original rationale")
		return original, nil
	}

	prompt := llm.CorrectionPrompt(original, evidence, llm.PriorContext(prior))
	corrected, err := c.gateway.Call(ctx, prompt, 0.0)
	if err != nil {
		return "", fmt.Errorf("correct rationale: %w", err)
	}

	corrected = strings.TrimSpace(corrected)
	if corrected == "" {
		// A vacuous rewrite is worse than the original
		return original, nil
	}
	return corrected, nil
}
