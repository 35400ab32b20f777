package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/pzaytsev/knowchain/internal/model"
)

// echoRunner answers every question with its uppercase form, failing on
// questions that contain "fail". It records the dataset hints it saw.
type echoRunner struct {
	mu    sync.Mutex
	calls int
	hints []string
}

func (r *echoRunner) Run(_ context.Context, question, datasetHint string) (*model.PipelineResult, error) {
	r.mu.Lock()
	r.calls++
	r.hints = append(r.hints, datasetHint)
	r.mu.Unlock()

	if strings.Contains(question, "fail") {
		return nil, errors.New("pipeline failed")
	}
	return &model.PipelineResult{
		Question: question,
		Answer:   strings.ToUpper(question),
		Stage:    model.StageFullPipeline,
	}, nil
}

func TestBatchProcessor_PreservesInputOrder(t *testing.T) {
	runner := &echoRunner{}
	b := NewBatchProcessor(runner, 4, zap.NewNop())

	questions := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	results := b.Process(context.Background(), questions, "")

	if len(results) != len(questions) {
		t.Fatalf("results = %d, want %d", len(results), len(questions))
	}
	for i, q := range questions {
		if results[i].Question != q {
			t.Errorf("results[%d].Question = %q, want %q", i, results[i].Question, q)
		}
		if results[i].Answer != strings.ToUpper(q) {
			t.Errorf("results[%d].Answer = %q", i, results[i].Answer)
		}
	}
	if runner.calls != len(questions) {
		t.Errorf("runner calls = %d, want %d", runner.calls, len(questions))
	}
}

func TestBatchProcessor_FailedQuestionGetsEmptyAnswer(t *testing.T) {
	runner := &echoRunner{}
	b := NewBatchProcessor(runner, 2, zap.NewNop())

	results := b.Process(context.Background(), []string{"alpha", "fail me", "charlie"}, "")

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[1].Question != "fail me" || results[1].Answer != "" {
		t.Errorf("failed question must keep its slot with an empty answer, got %+v", results[1])
	}
	if results[0].Answer != "ALPHA" || results[2].Answer != "CHARLIE" {
		t.Errorf("neighbors of a failed question must be unaffected")
	}
}

func TestProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.txt")
	content := "# evaluation set\nalpha\n\nbravo\n   \ncharlie\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &echoRunner{}
	b := NewBatchProcessor(runner, 2, zap.NewNop())
	results, err := b.ProcessFile(context.Background(), path, "hotpotqa")
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3 (comments and blanks skipped)", len(results))
	}
	if results[0].Question != "alpha" || results[2].Question != "charlie" {
		t.Errorf("unexpected question order: %q, %q", results[0].Question, results[2].Question)
	}
	for _, hint := range runner.hints {
		if hint != "hotpotqa" {
			t.Errorf("dataset hint = %q, want %q", hint, "hotpotqa")
		}
	}
	if len(runner.hints) != 3 {
		t.Errorf("hint recorded %d times, want 3", len(runner.hints))
	}
}

func TestProcessFile_Missing(t *testing.T) {
	b := NewBatchProcessor(&echoRunner{}, 1, zap.NewNop())
	if _, err := b.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "absent.txt"), ""); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReadQuestions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.txt")
	if err := os.WriteFile(path, []byte("# header\n\none\ntwo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	questions, err := ReadQuestions(path)
	if err != nil {
		t.Fatalf("ReadQuestions: %v", err)
	}
	if len(questions) != 2 || questions[0] != "one" || questions[1] != "two" {
		t.Errorf("questions = %v", questions)
	}
}
