package search

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolvekit/evotune/internal/eval"
	"github.com/evolvekit/evotune/internal/evo"
	"github.com/evolvekit/evotune/internal/genome"
)

func testRunner(t *testing.T) *Runner {
	t.Helper()

	space, err := genome.NewSpace(map[string][]any{
		"nb_layers":  {1, 2, 3, 4},
		"nb_neurons": {64, 128, 256, 512, 768, 1024},
		"activation": {"relu", "elu", "tanh", "sigmoid"},
		"optimizer":  {"rmsprop", "adam", "sgd", "adagrad"},
	})
	require.NoError(t, err)
	factory := genome.NewFactory(space)

	opt, err := evo.New(space, factory, evo.Config{
		RetainRate:       0.4,
		RandomSelectRate: 0.1,
		MutateRate:       0.2,
	})
	require.NoError(t, err)

	return &Runner{
		Optimizer:   opt,
		Pool:        eval.NewPool(eval.NewSurrogate(space), 4),
		Population:  20,
		Generations: 6,
	}
}

func TestRun(t *testing.T) {
	runner := testRunner(t)

	var progress []Progress
	runner.OnGeneration = func(p Progress) {
		progress = append(progress, p)
	}

	rng := rand.New(rand.NewSource(42))
	result, err := runner.Run(context.Background(), rng)
	require.NoError(t, err)

	require.NotNil(t, result.Best)
	assert.Equal(t, 6, result.Generations)
	assert.GreaterOrEqual(t, result.Evaluations, 20)

	// One progress report per generation, generations numbered from 1.
	require.Len(t, progress, 6)
	for i, p := range progress {
		assert.Equal(t, i+1, p.Generation)
	}
	assert.Equal(t, 20, progress[0].Evaluations)

	// The best genome's cost matches the reported best.
	cost, err := result.Best.Cost()
	require.NoError(t, err)
	assert.Equal(t, result.BestCost, cost)

	// Elitist search never ends worse than the first generation's best.
	assert.LessOrEqual(t, result.BestCost, progress[0].BestCost)
}

func TestRunIsReproducible(t *testing.T) {
	run := func() map[string]any {
		runner := testRunner(t)
		rng := rand.New(rand.NewSource(7))
		result, err := runner.Run(context.Background(), rng)
		require.NoError(t, err)
		return result.Best.Params()
	}

	assert.Equal(t, run(), run())
}

func TestRunBestCostNeverIncreases(t *testing.T) {
	runner := testRunner(t)

	prev := -1.0
	first := true
	runner.OnGeneration = func(p Progress) {
		if !first {
			assert.LessOrEqual(t, p.BestCost, prev, "generation %d best cost regressed", p.Generation)
		}
		prev = p.BestCost
		first = false
	}

	rng := rand.New(rand.NewSource(99))
	_, err := runner.Run(context.Background(), rng)
	require.NoError(t, err)
}

func TestRunRejectsInvalidBudget(t *testing.T) {
	runner := testRunner(t)
	rng := rand.New(rand.NewSource(1))

	runner.Population = 0
	_, err := runner.Run(context.Background(), rng)
	assert.Error(t, err)

	runner.Population = 10
	runner.Generations = 0
	_, err = runner.Run(context.Background(), rng)
	assert.Error(t, err)
}

func TestRunHonorsCancellation(t *testing.T) {
	runner := testRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rng := rand.New(rand.NewSource(1))
	_, err := runner.Run(ctx, rng)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunInsufficientParentsSurfaces(t *testing.T) {
	space, err := genome.NewSpace(map[string][]any{"nb_layers": {1, 2, 3}})
	require.NoError(t, err)
	factory := genome.NewFactory(space)

	// No elites and no random selection: evolving cannot breed children.
	opt, err := evo.New(space, factory, evo.Config{})
	require.NoError(t, err)

	runner := &Runner{
		Optimizer:   opt,
		Pool:        eval.NewPool(eval.NewSurrogate(space), 2),
		Population:  10,
		Generations: 3,
	}

	rng := rand.New(rand.NewSource(1))
	_, err = runner.Run(context.Background(), rng)
	assert.ErrorIs(t, err, evo.ErrInsufficientParents)
}
