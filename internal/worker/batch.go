package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pzaytsev/knowchain/internal/model"
)

// Runner answers one question, optionally tagged with the benchmark it
// came from. Satisfied by pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context, question, datasetHint string) (*model.PipelineResult, error)
}

// QuestionJob answers a single question from a batch. Ctx bounds the
// whole batch and takes precedence over the pool's internal context.
type QuestionJob struct {
	Index       int
	Question    string
	DatasetHint string
	Runner      Runner
	Ctx         context.Context
	Logger      *zap.Logger
}

// QuestionResult carries the pipeline result for one question. A failed
// question yields a result with an empty answer so the batch keeps its
// shape.
type QuestionResult struct {
	Index  int
	Result *model.PipelineResult
	Err    error
}

// GetError implements the Result interface
func (r *QuestionResult) GetError() error { return r.Err }

// Execute implements the Job interface
func (j *QuestionJob) Execute(ctx context.Context) Result {
	if j.Ctx != nil {
		ctx = j.Ctx
	}
	result, err := j.Runner.Run(ctx, j.Question, j.DatasetHint)
	if err != nil {
		j.Logger.Warn("question failed",
			zap.Int("index", j.Index),
			zap.String("question", j.Question),
			zap.Error(err))
		return &QuestionResult{
			Index:  j.Index,
			Result: &model.PipelineResult{Question: j.Question, Answer: ""},
			Err:    err,
		}
	}
	return &QuestionResult{Index: j.Index, Result: result}
}

// BatchProcessor answers a list of questions with bounded concurrency.
type BatchProcessor struct {
	runner  Runner
	workers int
	logger  *zap.Logger
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(runner Runner, workers int, logger *zap.Logger) *BatchProcessor {
	if workers <= 0 {
		workers = 1
	}
	return &BatchProcessor{runner: runner, workers: workers, logger: logger}
}

// Process answers all questions and returns results in input order.
// datasetHint applies to the whole batch. Individual failures become
// empty-answer results, never an error.
func (b *BatchProcessor) Process(ctx context.Context, questions []string, datasetHint string) []*model.PipelineResult {
	pool := NewPool(b.workers)
	pool.Start()

	for i, q := range questions {
		pool.Submit(&QuestionJob{
			Index:       i,
			Question:    q,
			DatasetHint: datasetHint,
			Runner:      b.runner,
			Ctx:         ctx,
			Logger:      b.logger,
		})
	}

	raw := pool.Wait()

	ordered := make([]*QuestionResult, 0, len(raw))
	for _, r := range raw {
		if qr, ok := r.(*QuestionResult); ok {
			ordered = append(ordered, qr)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	results := make([]*model.PipelineResult, 0, len(ordered))
	for _, qr := range ordered {
		results = append(results, qr.Result)
	}

	b.logger.Info("batch complete",
		zap.Int("questions", len(questions)),
		zap.Int("answered", len(results)))
	return results
}

// ProcessFile reads a questions file (one question per line, blank
// lines and # comments skipped) and processes it.
func (b *BatchProcessor) ProcessFile(ctx context.Context, path, datasetHint string) ([]*model.PipelineResult, error) {
	questions, err := ReadQuestions(path)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions in %s", path)
	}
	return b.Process(ctx, questions, datasetHint), nil
}

// ReadQuestions parses a questions file.
func ReadQuestions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open questions file: %w", err)
	}
	defer f.Close()

	var questions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		questions = append(questions, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}
	return questions, nil
}
