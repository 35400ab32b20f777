package consolidate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pzaytsev/knowchain/internal/extract"
	"github.com/pzaytsev/knowchain/internal/llm"
	"github.com/pzaytsev/knowchain/internal/model"
)

// maxFinalAnswerLen bounds the consolidated answer; anything longer is
// cut to its last sentence.
const maxFinalAnswerLen = 200

// Consolidator merges corrected rationales into one final answer.
type Consolidator struct {
	gateway *llm.Gateway
	logger  *zap.Logger
}

// NewConsolidator creates a consolidator
func NewConsolidator(gateway *llm.Gateway, logger *zap.Logger) *Consolidator {
	return &Consolidator{gateway: gateway, logger: logger}
}

// Consolidate produces the final answer from the corrected rationales.
// Claim-style questions are answered with one of the three verification
// labels, everything else with a terse free-text answer.
func (c *Consolidator) Consolidate(ctx context.Context, question string, corrected []string) (string, error) {
	transcript := llm.RationaleTranscript(corrected)

	if model.IsClaim(question) {
		return c.consolidateClaim(ctx, question, transcript)
	}

	response, err := c.gateway.Call(ctx, llm.ConsolidationPrompt(question, transcript), 0.0)
	if err != nil {
		return "", fmt.Errorf("consolidate answer: %w", err)
	}

	answer := CleanAnswer(response)
	c.logger.Info("consolidated answer", zap.String("answer", answer))
	return answer, nil
}

// consolidateClaim runs the verification prompt and normalizes the
// response onto the closed label set. Unrecognizable responses map to
// NOT ENOUGH INFO rather than leaking free text into a label field.
func (c *Consolidator) consolidateClaim(ctx context.Context, claim, transcript string) (string, error) {
	response, err := c.gateway.Call(ctx, llm.VerificationPrompt(claim, transcript), 0.0)
	if err != nil {
		return "", fmt.Errorf("consolidate verification label: %w", err)
	}

	label, ok := extract.FeverLabel(response)
	if !ok {
		c.logger.Warn("unrecognizable verification response", zap.String("response", response))
		label = "NOT ENOUGH INFO"
	}
	return label, nil
}

// connectivePrefixes are stripped from the front of a raw final answer.
var connectivePrefixes = []string{
	"therefore,", "therefore",
	"thus,", "thus",
	"based on the reasoning,", "based on the reasoning", "based on",
	"in conclusion,", "in conclusion",
	"so,", "so ",
}

// CleanAnswer post-processes a raw consolidation response into a short
// answer: markdown stripped, explicit answer markers honored,
// connective prefixes and surrounding quotes removed, overlong text cut
// to its last sentence. Single-character answers survive untouched so
// multiple-choice letters come through.
func CleanAnswer(response string) string {
	s := extract.StripMarkdown(response)

	if after, ok := extract.AfterMarker(s); ok {
		s = after
	}

	lowered := strings.ToLower(s)
	for _, prefix := range connectivePrefixes {
		if strings.HasPrefix(lowered, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			lowered = strings.ToLower(s)
		}
	}

	s = strings.Trim(s, `"' `)
	if len(s) > 1 {
		s = strings.TrimRight(s, ".,;: ")
	}

	if len(s) > maxFinalAnswerLen {
		if last := extract.LastSentence(s); last != "" {
			s = last
		} else {
			s = strings.TrimSpace(s[:maxFinalAnswerLen])
		}
	}

	return strings.TrimSpace(s)
}
