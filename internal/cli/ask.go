package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pzaytsev/knowchain/internal/model"
)

var (
	llmProvider string
	llmModel    string
	askTimeout  time.Duration
	outJSON     string
	datasetHint string
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question or verify a claim",
	Long: `Ask runs the full chain-of-knowledge pipeline on one question:
- Generate multiple reasoning chains
- Stop early when the chains already agree on a validated answer
- Otherwise retrieve evidence from Wikipedia, Wikidata, and web search
- Correct each chain against the evidence and consolidate an answer

Prefix the question with "Claim:" to verify a claim instead:
the answer becomes SUPPORTS, REFUTES, or NOT ENOUGH INFO.

Example:
  knowchain ask "What is the capital of France?"
  knowchain ask "Claim: The Eiffel Tower is in Berlin." --llm-provider openai
  knowchain ask "Why does ice float?" --json result.json`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	askCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 5*time.Minute, "overall timeout for one question")
	askCmd.Flags().StringVar(&outJSON, "json", "", "write full result JSON to this path")
	askCmd.Flags().StringVar(&datasetHint, "dataset", "", "benchmark the question came from (fever, hotpotqa, medmcqa)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(args[0])
	if question == "" {
		return fmt.Errorf("question is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := model.DefaultConfig()
	cfg.LLM.Provider = llmProvider
	cfg.LLM.Model = llmModel
	if err := resolveAPIKey(cfg); err != nil {
		return err
	}

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	result, err := p.Run(ctx, question, datasetHint)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	printResult(result)

	if outJSON != "" {
		if err := writeResultJSON(outJSON, result); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Full result written to %s\n", outJSON)
	}

	return nil
}

// printResult renders one result for the terminal.
func printResult(result *model.PipelineResult) {
	fmt.Printf("Answer:     %s\n", result.Answer)
	fmt.Printf("Stage:      %s\n", result.Stage)
	fmt.Printf("Confidence: %s\n", result.Confidence)

	domains := make([]string, len(result.Domains))
	for i, d := range result.Domains {
		domains[i] = string(d)
	}
	fmt.Printf("Domains:    %s\n", strings.Join(domains, ", "))

	if verbose && len(result.CorrectedRationales) > 0 {
		fmt.Println("\nCorrected reasoning:")
		for i, r := range result.CorrectedRationales {
			fmt.Printf("  %d. %s\n", i+1, r)
		}
	}
}

// writeResultJSON writes one or more results as indented JSON.
func writeResultJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
