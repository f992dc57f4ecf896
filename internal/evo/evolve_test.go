package evo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolvekit/evotune/internal/genome"
)

func evaluatedPopulation(t *testing.T, opt *Optimizer, n int, seed int64) []*genome.Genome {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))
	pop := make([]*genome.Genome, 0, n)
	for g := range opt.CreatePopulation(n, rng) {
		g.SetCost(rng.Float64())
		pop = append(pop, g)
	}
	return pop
}

func TestEvolvePreservesLength(t *testing.T) {
	opt, _ := testOptimizer(t, Config{RetainRate: 0.4, RandomSelectRate: 0.1, MutateRate: 0.2})
	pop := evaluatedPopulation(t, opt, 20, 1)

	rng := rand.New(rand.NewSource(2))
	next, err := opt.Evolve(pop, rng)
	require.NoError(t, err)
	assert.Len(t, next, 20)

	// Elites keep their costs; bred children are unevaluated.
	assert.True(t, next[0].Evaluated())
	assert.False(t, next[len(next)-1].Evaluated())
}

func TestEvolveFullRetention(t *testing.T) {
	opt, _ := testOptimizer(t, Config{RetainRate: 1.0, RandomSelectRate: 0, MutateRate: 0.2})
	pop := evaluatedPopulation(t, opt, 10, 3)

	rng := rand.New(rand.NewSource(4))
	next, err := opt.Evolve(pop, rng)
	require.NoError(t, err)
	require.Len(t, next, 10)

	// Same multiset of genomes, sorted ascending by cost, no breeding.
	seen := make(map[*genome.Genome]bool, len(pop))
	for _, g := range pop {
		seen[g] = true
	}
	prev := -1.0
	for _, g := range next {
		assert.True(t, seen[g], "evolve invented a genome under full retention")
		cost, err := g.Cost()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, cost, prev)
		prev = cost
	}
}

func TestEvolveElitesLeadRanking(t *testing.T) {
	opt, _ := testOptimizer(t, Config{RetainRate: 0.5, RandomSelectRate: 0, MutateRate: 0})
	pop := evaluatedPopulation(t, opt, 10, 5)

	lowest := 2.0
	for _, g := range pop {
		cost, _ := g.Cost()
		if cost < lowest {
			lowest = cost
		}
	}

	rng := rand.New(rand.NewSource(6))
	next, err := opt.Evolve(pop, rng)
	require.NoError(t, err)

	// The best genome survives unconditionally and leads the next population.
	cost, err := next[0].Cost()
	require.NoError(t, err)
	assert.Equal(t, lowest, cost)
}

func TestEvolveInsufficientParents(t *testing.T) {
	opt, _ := testOptimizer(t, Config{RetainRate: 0, RandomSelectRate: 0, MutateRate: 0})
	pop := evaluatedPopulation(t, opt, 10, 7)

	rng := rand.New(rand.NewSource(8))
	_, err := opt.Evolve(pop, rng)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientParents)
}

func TestEvolveSingleParent(t *testing.T) {
	// floor(10 * 0.1) = 1 elite, no random selection: breeding cannot pair.
	opt, _ := testOptimizer(t, Config{RetainRate: 0.1, RandomSelectRate: 0, MutateRate: 0})
	pop := evaluatedPopulation(t, opt, 10, 9)

	rng := rand.New(rand.NewSource(10))
	_, err := opt.Evolve(pop, rng)
	assert.ErrorIs(t, err, ErrInsufficientParents)
}

func TestEvolveUnevaluatedPopulation(t *testing.T) {
	opt, _ := testOptimizer(t, Config{RetainRate: 0.4, RandomSelectRate: 0.1, MutateRate: 0.2})

	rng := rand.New(rand.NewSource(11))
	var pop []*genome.Genome
	for g := range opt.CreatePopulation(5, rng) {
		pop = append(pop, g)
	}

	_, err := opt.Evolve(pop, rng)
	assert.ErrorIs(t, err, genome.ErrFitnessNotComputed)
}

func TestEvolveEmptyPopulation(t *testing.T) {
	opt, _ := testOptimizer(t, Config{RetainRate: 0.4, RandomSelectRate: 0.1, MutateRate: 0.2})

	rng := rand.New(rand.NewSource(12))
	next, err := opt.Evolve(nil, rng)
	require.NoError(t, err)
	assert.Empty(t, next)
}

func TestEvolveIsDeterministic(t *testing.T) {
	cfg := Config{RetainRate: 0.4, RandomSelectRate: 0.1, MutateRate: 0.2}

	run := func() []map[string]any {
		opt, _ := testOptimizer(t, cfg)
		pop := evaluatedPopulation(t, opt, 16, 21)

		rng := rand.New(rand.NewSource(22))
		next, err := opt.Evolve(pop, rng)
		require.NoError(t, err)

		out := make([]map[string]any, len(next))
		for i, g := range next {
			out[i] = g.Params()
		}
		return out
	}

	assert.Equal(t, run(), run())
}

func TestEvolveChildrenDoNotAliasParents(t *testing.T) {
	opt, _ := testOptimizer(t, Config{RetainRate: 0.4, RandomSelectRate: 0, MutateRate: 1})
	pop := evaluatedPopulation(t, opt, 10, 13)

	rng := rand.New(rand.NewSource(14))
	next, err := opt.Evolve(pop, rng)
	require.NoError(t, err)

	parents := make(map[*genome.Genome]bool, len(pop))
	for _, g := range pop {
		parents[g] = true
	}

	for _, g := range next {
		if !g.Evaluated() {
			assert.False(t, parents[g], "child shares identity with a parent")
		}
	}
}
