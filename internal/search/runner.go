// Package search drives the generational loop around the optimizer:
// initialize, evaluate, grade, evolve, repeat for a fixed budget.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"

	"github.com/evolvekit/evotune/internal/eval"
	"github.com/evolvekit/evotune/internal/evo"
	"github.com/evolvekit/evotune/internal/genome"
)

// Progress describes the state of the search after one generation.
type Progress struct {
	Generation  int
	BestCost    float64
	Grade       float64
	Evaluations int
}

// Result is the outcome of a completed search run.
type Result struct {
	Best         *genome.Genome
	BestCost     float64
	InitialGrade float64
	FinalGrade   float64
	Generations  int
	Evaluations  int
}

// Runner orchestrates one search run. The optimizer is pure; the runner owns
// the caller-side loop: population bookkeeping, dispatching evaluations and
// deciding when to stop.
type Runner struct {
	Optimizer   *evo.Optimizer
	Pool        *eval.Pool
	Population  int
	Generations int

	// OnGeneration, when set, is called after each generation has been
	// evaluated and graded.
	OnGeneration func(Progress)
}

// Run executes the search and returns the best genome found. Cancellation is
// checked between generations; a single evaluation is never interrupted
// beyond what the evaluator itself honors.
func (r *Runner) Run(ctx context.Context, rng *rand.Rand) (*Result, error) {
	if r.Population <= 0 {
		return nil, fmt.Errorf("population size must be positive, got %d", r.Population)
	}
	if r.Generations <= 0 {
		return nil, fmt.Errorf("generation budget must be positive, got %d", r.Generations)
	}

	pop := slices.Collect(r.Optimizer.CreatePopulation(r.Population, rng))
	slog.Info("Created initial population", "size", len(pop))

	totalEvals := 0
	initialGrade := 0.0

	for gen := 1; gen <= r.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		evals, err := r.Pool.EvaluateAll(ctx, pop)
		if err != nil {
			return nil, fmt.Errorf("generation %d: %w", gen, err)
		}
		totalEvals += evals

		grade, err := r.Optimizer.Grade(pop)
		if err != nil {
			return nil, fmt.Errorf("generation %d: %w", gen, err)
		}
		if gen == 1 {
			initialGrade = grade
		}

		_, bestCost := bestOf(pop)
		slog.Info("Generation complete",
			"generation", gen,
			"grade", grade,
			"best_cost", bestCost,
			"evaluations", evals,
		)

		if r.OnGeneration != nil {
			r.OnGeneration(Progress{
				Generation:  gen,
				BestCost:    bestCost,
				Grade:       grade,
				Evaluations: evals,
			})
		}

		if gen < r.Generations {
			pop, err = r.Optimizer.Evolve(pop, rng)
			if err != nil {
				return nil, fmt.Errorf("generation %d: %w", gen, err)
			}
		}
	}

	finalGrade, err := r.Optimizer.Grade(pop)
	if err != nil {
		return nil, err
	}
	best, bestCost := bestOf(pop)

	slog.Info("Search complete",
		"initial_grade", initialGrade,
		"final_grade", finalGrade,
		"best_cost", bestCost,
		"evaluations", totalEvals,
	)

	return &Result{
		Best:         best,
		BestCost:     bestCost,
		InitialGrade: initialGrade,
		FinalGrade:   finalGrade,
		Generations:  r.Generations,
		Evaluations:  totalEvals,
	}, nil
}

// bestOf returns the lowest-cost genome of an evaluated population.
func bestOf(pop []*genome.Genome) (*genome.Genome, float64) {
	var best *genome.Genome
	bestCost := 0.0
	for _, g := range pop {
		cost, err := g.Cost()
		if err != nil {
			continue
		}
		if best == nil || cost < bestCost {
			best = g
			bestCost = cost
		}
	}
	return best, bestCost
}
