package server

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/evolvekit/evotune/internal/eval"
	"github.com/evolvekit/evotune/internal/evo"
	"github.com/evolvekit/evotune/internal/genome"
	"github.com/evolvekit/evotune/internal/search"
	"github.com/evolvekit/evotune/internal/store"
)

// runJob executes a search job in the background. If resultStore is not nil,
// the per-generation trace and the final result are persisted under the job
// ID.
func runJob(ctx context.Context, jm *JobManager, resultStore store.Store, dataDir string, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	}); err != nil {
		return err
	}

	slog.Info("Starting job",
		"job_id", jobID,
		"population", job.Config.Population,
		"generations", job.Config.Generations,
	)

	space, err := genome.NewSpace(job.Config.Parameters)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("build parameter space: %w", err))
		return err
	}
	factory := genome.NewFactory(space)

	optimizer, err := evo.New(space, factory, evo.Config{
		RetainRate:       job.Config.RetainRate,
		RandomSelectRate: job.Config.RandomSelectRate,
		MutateRate:       job.Config.MutateRate,
	})
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	pool := eval.NewPool(eval.NewSurrogate(space), job.Config.Workers)

	var trace *store.TraceWriter
	if resultStore != nil && dataDir != "" {
		trace, err = store.NewTraceWriter(dataDir, jobID)
		if err != nil {
			slog.Warn("Tracing disabled for job", "job_id", jobID, "error", err)
			trace = nil
		} else {
			defer trace.Close()
		}
	}

	start := time.Now()

	runner := &search.Runner{
		Optimizer:   optimizer,
		Pool:        pool,
		Population:  job.Config.Population,
		Generations: job.Config.Generations,
		OnGeneration: func(p search.Progress) {
			jm.UpdateJob(jobID, func(j *Job) {
				j.Generation = p.Generation
				j.BestCost = p.BestCost
				j.Grade = p.Grade
				j.Evaluations += p.Evaluations
				if p.Generation == 1 {
					j.InitialGrade = p.Grade
				}
			})

			elapsed := time.Since(start).Seconds()
			current, _ := jm.GetJob(jobID)
			eps := float64(0)
			if elapsed > 0 && current != nil {
				eps = float64(current.Evaluations) / elapsed
			}

			jm.broadcaster.Broadcast(ProgressEvent{
				JobID:      jobID,
				State:      StateRunning,
				Generation: p.Generation,
				BestCost:   p.BestCost,
				Grade:      p.Grade,
				EPS:        eps,
				Timestamp:  time.Now(),
			})

			if trace != nil {
				if err := trace.Write(store.TraceEntry{
					Generation: p.Generation,
					BestCost:   p.BestCost,
					Grade:      p.Grade,
					Timestamp:  time.Now(),
				}); err != nil {
					slog.Warn("Failed to write trace entry", "job_id", jobID, "error", err)
				}
			}
		},
	}

	rng := rand.New(rand.NewSource(job.Config.Seed))
	result, err := runner.Run(ctx, rng)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			markJobCancelled(jm, jobID)
			return ctx.Err()
		}
		markJobFailed(jm, jobID, err)
		return err
	}

	endTime := time.Now()
	if err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.BestParams = result.Best.Params()
		j.BestCost = result.BestCost
		j.InitialGrade = result.InitialGrade
		j.Grade = result.FinalGrade
		j.Generation = result.Generations
		j.Evaluations = result.Evaluations
		j.EndTime = &endTime
	}); err != nil {
		return err
	}

	eps := float64(result.Evaluations) / elapsed.Seconds()

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"initial_grade", result.InitialGrade,
		"best_cost", result.BestCost,
		"evaluations_per_second", eps,
	)

	if resultStore != nil {
		runResult := &store.RunResult{
			RunID:          jobID,
			BestParams:     result.Best.Params(),
			BestCost:       result.BestCost,
			InitialGrade:   result.InitialGrade,
			FinalGrade:     result.FinalGrade,
			Generations:    result.Generations,
			Evaluations:    result.Evaluations,
			ElapsedSeconds: elapsed.Seconds(),
			Timestamp:      endTime,
			Config:         job.Config,
		}
		if err := resultStore.SaveResult(jobID, runResult); err != nil {
			slog.Warn("Failed to persist run result", "job_id", jobID, "error", err)
		}
		if trace != nil {
			if err := trace.Flush(); err != nil {
				slog.Warn("Failed to flush trace", "job_id", jobID, "error", err)
			}
		}
	}

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:      jobID,
		State:      StateCompleted,
		Generation: result.Generations,
		BestCost:   result.BestCost,
		Grade:      result.FinalGrade,
		EPS:        eps,
		Timestamp:  time.Now(),
	})

	return nil
}

// markJobFailed marks a job as failed with an error message.
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled.
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
}
