package server

import (
	"context"
	"errors"
	"testing"

	"github.com/evolvekit/evotune/internal/store"
)

func TestRunJob_Completes(t *testing.T) {
	jm := NewJobManager()

	cfg := testRunConfig()
	cfg.Population = 8
	cfg.Generations = 3
	job := jm.CreateJob(cfg)

	if err := runJob(context.Background(), jm, nil, "", job.ID); err != nil {
		t.Fatalf("runJob failed: %v", err)
	}

	got, _ := jm.GetJob(job.ID)
	if got.State != StateCompleted {
		t.Fatalf("State = %s, want completed (error: %s)", got.State, got.Error)
	}
	if len(got.BestParams) != len(cfg.Parameters) {
		t.Errorf("BestParams has %d entries, want %d", len(got.BestParams), len(cfg.Parameters))
	}
	if got.Generation != cfg.Generations {
		t.Errorf("Generation = %d, want %d", got.Generation, cfg.Generations)
	}
	if got.Evaluations < cfg.Population {
		t.Errorf("Evaluations = %d, want at least %d", got.Evaluations, cfg.Population)
	}
	if got.EndTime == nil {
		t.Error("EndTime should be set on completion")
	}
}

func TestRunJob_PersistsResultAndTrace(t *testing.T) {
	jm := NewJobManager()
	dataDir := t.TempDir()

	fs, err := store.NewFSStore(dataDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	cfg := testRunConfig()
	cfg.Population = 8
	cfg.Generations = 2
	job := jm.CreateJob(cfg)

	if err := runJob(context.Background(), jm, fs, dataDir, job.ID); err != nil {
		t.Fatalf("runJob failed: %v", err)
	}

	result, err := fs.LoadResult(job.ID)
	if err != nil {
		t.Fatalf("Result was not persisted: %v", err)
	}
	if result.Generations != cfg.Generations {
		t.Errorf("Persisted generations = %d, want %d", result.Generations, cfg.Generations)
	}
	if result.Config.Seed != cfg.Seed {
		t.Errorf("Persisted seed = %d, want %d", result.Config.Seed, cfg.Seed)
	}

	reader, err := store.NewTraceReader(dataDir, job.ID)
	if err != nil {
		t.Fatalf("Trace was not written: %v", err)
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	if len(entries) != cfg.Generations {
		t.Errorf("Trace has %d entries, want %d", len(entries), cfg.Generations)
	}
}

func TestRunJob_FailsOnInvalidRates(t *testing.T) {
	jm := NewJobManager()

	cfg := testRunConfig()
	cfg.MutateRate = 2.0
	job := jm.CreateJob(cfg)

	if err := runJob(context.Background(), jm, nil, "", job.ID); err == nil {
		t.Fatal("runJob should fail on an out-of-range rate")
	}

	got, _ := jm.GetJob(job.ID)
	if got.State != StateFailed {
		t.Errorf("State = %s, want failed", got.State)
	}
	if got.Error == "" {
		t.Error("Error message should be recorded")
	}
}

func TestRunJob_Cancelled(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(testRunConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runJob(ctx, jm, nil, "", job.ID)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("runJob error = %v, want context.Canceled", err)
	}

	got, _ := jm.GetJob(job.ID)
	if got.State != StateCancelled {
		t.Errorf("State = %s, want cancelled", got.State)
	}
}

func TestRunJob_MissingJob(t *testing.T) {
	jm := NewJobManager()

	if err := runJob(context.Background(), jm, nil, "", "nonexistent"); err == nil {
		t.Error("runJob should fail for an unknown job ID")
	}
}
