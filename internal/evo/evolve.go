package evo

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/evolvekit/evotune/internal/genome"
)

// Evolve performs one generational replacement step and returns the next
// population with the same length as pop.
//
// The population is ranked ascending by cost. The best floor(N*RetainRate)
// genomes are kept as elite parents; every remaining genome survives as a
// parent with independent probability RandomSelectRate. The open slots are
// filled by breeding pairs of distinct parents drawn uniformly at random,
// truncating the final child when a pair would overshoot.
//
// Genomes retained as parents keep their evaluated costs; children are
// unevaluated. Every genome in pop must carry a cost before evolving.
func (o *Optimizer) Evolve(pop []*genome.Genome, rng *rand.Rand) ([]*genome.Genome, error) {
	graded := make([]*genome.Genome, len(pop))
	copy(graded, pop)

	for _, g := range graded {
		if !g.Evaluated() {
			return nil, fmt.Errorf("rank population: %w", genome.ErrFitnessNotComputed)
		}
	}

	sort.SliceStable(graded, func(i, j int) bool {
		ci, _ := graded[i].Cost()
		cj, _ := graded[j].Cost()
		return ci < cj
	})

	retain := int(float64(len(graded)) * o.cfg.RetainRate)

	parents := make([]*genome.Genome, 0, len(graded))
	parents = append(parents, graded[:retain]...)
	for _, g := range graded[retain:] {
		if rng.Float64() < o.cfg.RandomSelectRate {
			parents = append(parents, g)
		}
	}

	desired := len(pop) - len(parents)
	if desired <= 0 {
		return parents, nil
	}
	if len(parents) < 2 {
		return nil, &InsufficientParentsError{Parents: len(parents)}
	}

	children := make([]*genome.Genome, 0, desired)
	for len(children) < desired {
		male := rng.Intn(len(parents))
		female := rng.Intn(len(parents))
		if male == female {
			continue
		}

		babies, err := o.Breed(parents[male], parents[female], rng)
		if err != nil {
			return nil, err
		}

		for _, baby := range babies {
			if len(children) < desired {
				children = append(children, baby)
			}
		}
	}

	return append(parents, children...), nil
}
