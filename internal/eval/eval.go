// Package eval hosts the fitness-evaluation collaborators of the search:
// the Evaluator capability, a bounded-concurrency pool for evaluating whole
// populations, and a deterministic surrogate benchmark used when no external
// training harness is attached.
package eval

import (
	"context"

	"github.com/evolvekit/evotune/internal/genome"
)

// Evaluator computes the scalar cost of one candidate configuration.
// Lower cost is better. Evaluation is the expensive, caller-owned step of a
// search; implementations must be safe for concurrent use across genomes.
type Evaluator interface {
	Evaluate(ctx context.Context, g *genome.Genome) (float64, error)
}

// Func adapts an ordinary function to the Evaluator interface.
type Func func(ctx context.Context, g *genome.Genome) (float64, error)

// Evaluate implements Evaluator.
func (f Func) Evaluate(ctx context.Context, g *genome.Genome) (float64, error) {
	return f(ctx, g)
}
