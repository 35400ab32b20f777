package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pzaytsev/knowchain/internal/model"
	"github.com/pzaytsev/knowchain/internal/worker"
)

var (
	concurrency  int
	batchOutput  string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Answer multiple questions from a file in parallel",
	Long: `Batch answers a file of questions with bounded concurrency:
- One question per line, blank lines and # comments skipped
- Each question runs through the full pipeline
- A failed question keeps its slot with an empty answer

Example:
  knowchain batch questions.txt
  knowchain batch questions.txt --concurrency 4 --output results.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", model.DefaultConfig().Concurrency.BatchWorkers, "number of concurrent workers")
	batchCmd.Flags().StringVar(&batchOutput, "output", "results.json", "output JSON path")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")

	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
	batchCmd.Flags().StringVar(&datasetHint, "dataset", "", "benchmark the questions came from (fever, hotpotqa, medmcqa)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := model.DefaultConfig()
	cfg.LLM.Provider = llmProvider
	cfg.LLM.Model = llmModel
	cfg.Concurrency.BatchWorkers = concurrency
	if err := resolveAPIKey(cfg); err != nil {
		return err
	}

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Processing %s with %d workers...\n", file, cfg.Concurrency.BatchWorkers)

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.BatchWorkers, logger)
	results, err := processor.ProcessFile(ctx, file, datasetHint)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	answered := 0
	for _, r := range results {
		if r.Answer != "" {
			answered++
		}
	}
	fmt.Fprintf(os.Stderr, "Answered %d/%d questions\n", answered, len(results))

	if err := writeResultJSON(batchOutput, results); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Results written to %s\n", batchOutput)

	return nil
}
