package eval

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/evolvekit/evotune/internal/genome"
)

const defaultWorkers = 4

// Pool evaluates populations with bounded concurrency. Genomes are
// independent, side-effect-free units of work, so every unevaluated genome in
// a generation is dispatched to its own goroutine, capped at Workers in
// flight.
type Pool struct {
	evaluator Evaluator
	workers   int
}

// NewPool creates an evaluation pool. workers <= 0 selects a small default.
func NewPool(evaluator Evaluator, workers int) *Pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Pool{
		evaluator: evaluator,
		workers:   workers,
	}
}

// EvaluateAll attaches a cost to every unevaluated genome in pop and returns
// the number of evaluations performed. Genomes that already carry a cost
// (elites retained from a previous generation) are skipped. The first
// evaluator error cancels the remaining work and is returned.
func (p *Pool) EvaluateAll(ctx context.Context, pop []*genome.Genome) (int, error) {
	pending := make([]*genome.Genome, 0, len(pop))
	for _, g := range pop {
		if !g.Evaluated() {
			pending = append(pending, g)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	wp := pool.New().WithMaxGoroutines(p.workers).WithErrors().WithContext(ctx)

	for _, g := range pending {
		g := g
		wp.Go(func(ctx context.Context) error {
			cost, err := p.evaluator.Evaluate(ctx, g)
			if err != nil {
				return fmt.Errorf("evaluate genome: %w", err)
			}
			g.SetCost(cost)
			return nil
		})
	}

	if err := wp.Wait(); err != nil {
		return 0, err
	}
	return len(pending), nil
}
