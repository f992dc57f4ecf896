package eval

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolvekit/evotune/internal/genome"
)

func testPopulation(t *testing.T, n int) (*genome.Space, []*genome.Genome) {
	t.Helper()

	space, err := genome.NewSpace(map[string][]any{
		"nb_layers":  {1, 2, 3, 4},
		"nb_neurons": {64, 128, 256, 512},
		"activation": {"relu", "elu", "tanh"},
	})
	require.NoError(t, err)

	factory := genome.NewFactory(space)
	rng := rand.New(rand.NewSource(42))

	pop := make([]*genome.Genome, n)
	for i := range pop {
		pop[i] = factory.CreateRandom(rng)
	}
	return space, pop
}

func TestEvaluateAll(t *testing.T) {
	_, pop := testPopulation(t, 12)

	var calls atomic.Int64
	pool := NewPool(Func(func(ctx context.Context, g *genome.Genome) (float64, error) {
		calls.Add(1)
		return 0.5, nil
	}), 4)

	count, err := pool.EvaluateAll(context.Background(), pop)
	require.NoError(t, err)
	assert.Equal(t, 12, count)
	assert.Equal(t, int64(12), calls.Load())

	for _, g := range pop {
		cost, err := g.Cost()
		require.NoError(t, err)
		assert.Equal(t, 0.5, cost)
	}
}

func TestEvaluateAllSkipsEvaluated(t *testing.T) {
	_, pop := testPopulation(t, 10)

	// Elites retained across generations already carry a cost.
	for _, g := range pop[:4] {
		g.SetCost(0.1)
	}

	var calls atomic.Int64
	pool := NewPool(Func(func(ctx context.Context, g *genome.Genome) (float64, error) {
		calls.Add(1)
		return 0.9, nil
	}), 2)

	count, err := pool.EvaluateAll(context.Background(), pop)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
	assert.Equal(t, int64(6), calls.Load())

	cost, err := pop[0].Cost()
	require.NoError(t, err)
	assert.Equal(t, 0.1, cost, "already-evaluated genome must keep its cost")
}

func TestEvaluateAllEmpty(t *testing.T) {
	pool := NewPool(Func(func(ctx context.Context, g *genome.Genome) (float64, error) {
		t.Fatal("evaluator should not be called")
		return 0, nil
	}), 2)

	count, err := pool.EvaluateAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEvaluateAllPropagatesError(t *testing.T) {
	_, pop := testPopulation(t, 8)

	boom := errors.New("training diverged")
	pool := NewPool(Func(func(ctx context.Context, g *genome.Genome) (float64, error) {
		return 0, boom
	}), 4)

	_, err := pool.EvaluateAll(context.Background(), pop)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestSurrogateDeterministic(t *testing.T) {
	space, pop := testPopulation(t, 5)

	s := NewSurrogate(space)
	ctx := context.Background()

	for _, g := range pop {
		first, err := s.Evaluate(ctx, g)
		require.NoError(t, err)
		second, err := s.Evaluate(ctx, g)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.GreaterOrEqual(t, first, 0.0)
	}
}

func TestSurrogateDistinguishesGenomes(t *testing.T) {
	space, err := genome.NewSpace(map[string][]any{
		"nb_layers":  {1, 2, 3, 4},
		"nb_neurons": {64, 128, 256, 512},
	})
	require.NoError(t, err)
	factory := genome.NewFactory(space)

	a, err := factory.CreateFromMapping(map[string]any{"nb_layers": 1, "nb_neurons": 64})
	require.NoError(t, err)
	b, err := factory.CreateFromMapping(map[string]any{"nb_layers": 4, "nb_neurons": 512})
	require.NoError(t, err)

	s := NewSurrogate(space)
	costA, err := s.Evaluate(context.Background(), a)
	require.NoError(t, err)
	costB, err := s.Evaluate(context.Background(), b)
	require.NoError(t, err)

	assert.NotEqual(t, costA, costB)
}

func TestSurrogateHonorsCancellation(t *testing.T) {
	space, pop := testPopulation(t, 1)

	s := NewSurrogate(space)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Evaluate(ctx, pop[0])
	assert.ErrorIs(t, err, context.Canceled)
}
