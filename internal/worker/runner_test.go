package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func testRunner(workers int) *Runner {
	cfg := DefaultRunnerConfig()
	cfg.Workers = workers
	return NewRunner(nil, nil, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEnqueueBuffersWithoutBlocking(t *testing.T) {
	r := testRunner(2) // buffer = 4

	for i := 0; i < 4; i++ {
		if err := r.Enqueue(context.Background(), uuid.New()); err != nil {
			t.Fatalf("enqueue %d: unexpected error: %v", i, err)
		}
	}
}

func TestEnqueueFullQueueReturnsError(t *testing.T) {
	r := testRunner(1) // buffer = 2

	for i := 0; i < 2; i++ {
		if err := r.Enqueue(context.Background(), uuid.New()); err != nil {
			t.Fatalf("enqueue %d: unexpected error: %v", i, err)
		}
	}

	// Third push must fail fast rather than block the caller.
	if err := r.Enqueue(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error on full queue, got nil")
	}
}

func TestNewRunnerAppliesDefaults(t *testing.T) {
	r := NewRunner(nil, nil, RunnerConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	def := DefaultRunnerConfig()

	if r.cfg.Workers != def.Workers {
		t.Errorf("Workers = %d, want %d", r.cfg.Workers, def.Workers)
	}
	if r.cfg.PollInterval != def.PollInterval {
		t.Errorf("PollInterval = %v, want %v", r.cfg.PollInterval, def.PollInterval)
	}
	if r.cfg.JobTimeout != def.JobTimeout {
		t.Errorf("JobTimeout = %v, want %v", r.cfg.JobTimeout, def.JobTimeout)
	}
	if r.cfg.MaxRetries != def.MaxRetries {
		t.Errorf("MaxRetries = %d, want %d", r.cfg.MaxRetries, def.MaxRetries)
	}
	if cap(r.queue) != def.Workers*2 {
		t.Errorf("queue capacity = %d, want %d", cap(r.queue), def.Workers*2)
	}
}

func TestScenarioFromRowDecodesContext(t *testing.T) {
	row := analysisRowWithContext(t, map[string]string{"industry": "logistics"})

	sc, err := scenarioFromRow(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.Situation != row.Situation {
		t.Errorf("Situation = %q, want %q", sc.Situation, row.Situation)
	}
	if sc.Context["industry"] != "logistics" {
		t.Errorf("Context[industry] = %q, want %q", sc.Context["industry"], "logistics")
	}
}

func TestScenarioFromRowRejectsCorruptContext(t *testing.T) {
	row := analysisRowWithContext(t, nil)
	row.Context.Valid = true
	row.Context.RawMessage = []byte(`{not json`)

	if _, err := scenarioFromRow(row); err == nil {
		t.Fatal("expected error for corrupt context jsonb, got nil")
	}
}
