package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/evolvekit/evotune/internal/config"
	"github.com/evolvekit/evotune/internal/eval"
	"github.com/evolvekit/evotune/internal/evo"
	"github.com/evolvekit/evotune/internal/genome"
	"github.com/evolvekit/evotune/internal/search"
	"github.com/evolvekit/evotune/internal/store"
)

var (
	specPath string
	outPath  string
	dataDir  string
	seed     int64
	workers  int
	noSave   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single search",
	Long:  `Runs a genetic hyperparameter search from a YAML spec and writes the best configuration found.`,
	RunE:  runSearch,
}

func init() {
	runCmd.Flags().StringVar(&specPath, "spec", "", "Search spec YAML path (required)")
	runCmd.Flags().StringVar(&outPath, "out", "result.json", "Output result path")
	runCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Base directory for run persistence")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed override (0 = from spec)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Evaluation concurrency override (0 = from spec)")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "Skip persisting the run result and trace")

	runCmd.MarkFlagRequired("spec")
	rootCmd.AddCommand(runCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	spec, err := config.Load(specPath)
	if err != nil {
		return err
	}
	if seed != 0 {
		spec.Seed = seed
	}
	if workers > 0 {
		spec.Workers = workers
	}
	if spec.Seed == 0 {
		spec.Seed = time.Now().UnixNano()
	}

	slog.Info("Starting search",
		"spec", specPath,
		"parameters", len(spec.Parameters),
		"population", spec.Population,
		"generations", spec.Generations,
		"seed", spec.Seed,
	)

	space, err := spec.Space()
	if err != nil {
		return fmt.Errorf("failed to build parameter space: %w", err)
	}
	factory := genome.NewFactory(space)

	optimizer, err := evo.New(space, factory, spec.Rates())
	if err != nil {
		return err
	}

	pool := eval.NewPool(eval.NewSurrogate(space), spec.Workers)

	runID := uuid.New().String()

	var trace *store.TraceWriter
	var resultStore store.Store
	if !noSave {
		fsStore, err := store.NewFSStore(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open result store: %w", err)
		}
		resultStore = fsStore

		trace, err = store.NewTraceWriter(dataDir, runID)
		if err != nil {
			return fmt.Errorf("failed to create trace writer: %w", err)
		}
		defer trace.Close()
	}

	runner := &search.Runner{
		Optimizer:   optimizer,
		Pool:        pool,
		Population:  spec.Population,
		Generations: spec.Generations,
		OnGeneration: func(p search.Progress) {
			if trace == nil {
				return
			}
			if err := trace.Write(store.TraceEntry{
				Generation: p.Generation,
				BestCost:   p.BestCost,
				Grade:      p.Grade,
				Timestamp:  time.Now(),
			}); err != nil {
				slog.Warn("Failed to write trace entry", "error", err)
			}
		},
	}

	start := time.Now()
	rng := rand.New(rand.NewSource(spec.Seed))

	result, err := runner.Run(cmd.Context(), rng)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runResult := &store.RunResult{
		RunID:          runID,
		BestParams:     result.Best.Params(),
		BestCost:       result.BestCost,
		InitialGrade:   result.InitialGrade,
		FinalGrade:     result.FinalGrade,
		Generations:    result.Generations,
		Evaluations:    result.Evaluations,
		ElapsedSeconds: elapsed.Seconds(),
		Timestamp:      time.Now(),
		Config: store.RunConfig{
			Parameters:       spec.Parameters,
			Population:       spec.Population,
			Generations:      spec.Generations,
			RetainRate:       *spec.RetainRate,
			RandomSelectRate: *spec.RandomSelectRate,
			MutateRate:       *spec.MutateRate,
			Seed:             spec.Seed,
			Workers:          spec.Workers,
		},
	}

	if resultStore != nil {
		if err := resultStore.SaveResult(runID, runResult); err != nil {
			return fmt.Errorf("failed to persist run result: %w", err)
		}
	}

	data, err := json.MarshalIndent(runResult, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	eps := float64(result.Evaluations) / elapsed.Seconds()

	slog.Info("Search complete",
		"run_id", runID,
		"elapsed", elapsed,
		"initial_grade", result.InitialGrade,
		"final_grade", result.FinalGrade,
		"best_cost", result.BestCost,
		"evaluations_per_second", fmt.Sprintf("%.0f", eps),
	)

	fmt.Printf("Wrote %s (grade: %.4f -> %.4f, best cost: %.4f, %d evaluations)\n",
		outPath, result.InitialGrade, result.FinalGrade, result.BestCost, result.Evaluations)

	return nil
}
