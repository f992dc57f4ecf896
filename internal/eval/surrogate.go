package eval

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/evolvekit/evotune/internal/genome"
)

// Surrogate is a deterministic synthetic benchmark standing in for a real
// training run. Each parameter has a hidden sweet spot derived from its name;
// the cost is the mean squared normalized distance of the genome's choices
// from those sweet spots, plus a small deterministic interaction term so the
// landscape is not perfectly separable. The same genome always scores the
// same cost, which keeps searches reproducible end to end.
type Surrogate struct {
	space *genome.Space

	// Noise is the amplitude of the deterministic interaction term.
	Noise float64

	// Delay simulates per-evaluation training time. Zero by default.
	Delay time.Duration
}

// NewSurrogate creates a surrogate evaluator over the given space.
func NewSurrogate(space *genome.Space) *Surrogate {
	return &Surrogate{
		space: space,
		Noise: 0.05,
	}
}

// Evaluate implements Evaluator.
func (s *Surrogate) Evaluate(ctx context.Context, g *genome.Genome) (float64, error) {
	if s.Delay > 0 {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(s.Delay):
		}
	} else if err := ctx.Err(); err != nil {
		return 0, err
	}

	var cost float64
	for _, name := range s.space.Names() {
		domain, _ := s.space.Domain(name)

		value, ok := g.Value(name)
		if !ok {
			return 0, fmt.Errorf("genome missing parameter %q", name)
		}
		idx := indexOf(domain, value)
		if idx < 0 {
			return 0, fmt.Errorf("value %v not admissible for parameter %q", value, name)
		}

		if len(domain) == 1 {
			continue
		}

		target := int(hashString(name) % uint64(len(domain)))
		d := float64(idx-target) / float64(len(domain)-1)
		cost += d * d
	}
	cost /= float64(s.space.Len())

	cost += s.Noise * s.interaction(g)

	return cost, nil
}

// interaction hashes the full assignment into [0,1) so that parameter choices
// couple weakly without breaking determinism.
func (s *Surrogate) interaction(g *genome.Genome) float64 {
	h := fnv.New64a()
	for _, name := range s.space.Names() {
		value, _ := g.Value(name)
		fmt.Fprintf(h, "%s=%v;", name, value)
	}
	return float64(h.Sum64()%10000) / 10000
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

func indexOf(domain []any, value any) int {
	for i, v := range domain {
		if v == value {
			return i
		}
	}
	return -1
}
