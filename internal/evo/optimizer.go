// Package evo implements the evolutionary optimizer: population lifecycle,
// ranking, elitist plus stochastic selection, uniform per-gene crossover and
// single-gene mutation. Genome construction and fitness evaluation are
// external collaborators; the optimizer only reads costs already attached to
// genomes. Lower cost is always better.
package evo

import (
	"errors"
	"fmt"
	"iter"
	"math/rand"

	"github.com/evolvekit/evotune/internal/genome"
)

// ErrEmptyPopulation is returned when grading an empty population.
var ErrEmptyPopulation = errors.New("empty population")

// ErrInsufficientParents is returned when children are required but the
// parent set holds fewer than two genomes, so no breeding pair can be drawn.
// Use errors.Is(err, ErrInsufficientParents) to check for this error.
var ErrInsufficientParents = &InsufficientParentsError{}

// InsufficientParentsError carries the size of the parent set that made
// breeding impossible.
type InsufficientParentsError struct {
	Parents int
}

func (e *InsufficientParentsError) Error() string {
	return fmt.Sprintf("insufficient parents for breeding: have %d, need at least 2", e.Parents)
}

func (e *InsufficientParentsError) Is(target error) bool {
	_, ok := target.(*InsufficientParentsError)
	return ok
}

// Factory produces genomes satisfying the parameter space. The optimizer
// treats genome construction as an opaque capability.
type Factory interface {
	CreateRandom(rng *rand.Rand) *genome.Genome
	CreateFromMapping(mapping map[string]any) (*genome.Genome, error)
}

// Config holds the optimizer's selection and variation rates.
type Config struct {
	// RetainRate is the fraction of the population kept unconditionally as
	// elite parents each generation.
	RetainRate float64

	// RandomSelectRate is the per-genome probability that a non-elite genome
	// is kept as a parent anyway, injecting diversity.
	RandomSelectRate float64

	// MutateRate is the per-child probability of a single-gene mutation.
	MutateRate float64
}

func (c Config) validate() error {
	if c.RetainRate < 0 || c.RetainRate > 1 {
		return fmt.Errorf("retain rate %v outside [0,1]", c.RetainRate)
	}
	if c.RandomSelectRate < 0 || c.RandomSelectRate > 1 {
		return fmt.Errorf("random select rate %v outside [0,1]", c.RandomSelectRate)
	}
	if c.MutateRate < 0 || c.MutateRate > 1 {
		return fmt.Errorf("mutate rate %v outside [0,1]", c.MutateRate)
	}
	return nil
}

// Optimizer evolves fixed-size populations of genomes. It holds no mutable
// state beyond its configured rates: every operation is a pure function of
// its inputs and the supplied random source.
type Optimizer struct {
	space   *genome.Space
	factory Factory
	cfg     Config
}

// New creates an optimizer over the given space.
func New(space *genome.Space, factory Factory, cfg Config) (*Optimizer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Optimizer{
		space:   space,
		factory: factory,
		cfg:     cfg,
	}, nil
}

// CreatePopulation returns a lazy, single-use sequence of count independently
// random genomes. Construction is delegated to the factory; no duplicate
// elimination is performed. count = 0 yields an empty sequence.
func (o *Optimizer) CreatePopulation(count int, rng *rand.Rand) iter.Seq[*genome.Genome] {
	return func(yield func(*genome.Genome) bool) {
		for i := 0; i < count; i++ {
			if !yield(o.factory.CreateRandom(rng)) {
				return
			}
		}
	}
}

// Fitness returns the genome's precomputed cost. It fails if the genome was
// never evaluated; the optimizer never computes costs itself.
func (o *Optimizer) Fitness(g *genome.Genome) (float64, error) {
	return g.Cost()
}

// Grade returns the arithmetic mean cost over the population.
func (o *Optimizer) Grade(pop []*genome.Genome) (float64, error) {
	if len(pop) == 0 {
		return 0, ErrEmptyPopulation
	}

	var sum float64
	for _, g := range pop {
		cost, err := o.Fitness(g)
		if err != nil {
			return 0, err
		}
		sum += cost
	}
	return sum / float64(len(pop)), nil
}

// Breed produces exactly two children from two parents. For each parameter
// independently, a child inherits the value of one parent chosen uniformly at
// random. Each child is then mutated with probability MutateRate. Children
// own fresh parameter maps and carry no cost.
func (o *Optimizer) Breed(mother, father *genome.Genome, rng *rand.Rand) ([]*genome.Genome, error) {
	children := make([]*genome.Genome, 0, 2)

	for c := 0; c < 2; c++ {
		params := make(map[string]any, o.space.Len())
		for _, name := range o.space.Names() {
			mv, _ := mother.Value(name)
			fv, _ := father.Value(name)
			if rng.Intn(2) == 0 {
				params[name] = mv
			} else {
				params[name] = fv
			}
		}

		child, err := o.factory.CreateFromMapping(params)
		if err != nil {
			return nil, fmt.Errorf("breed child: %w", err)
		}

		if rng.Float64() < o.cfg.MutateRate {
			child = o.Mutate(child, rng)
		}

		children = append(children, child)
	}

	return children, nil
}

// Mutate returns a copy of the genome with exactly one parameter resampled.
// The parameter is chosen uniformly from the full space and its new value
// uniformly from that parameter's domain, so the replacement may coincide
// with the prior value. All other parameters are untouched.
func (o *Optimizer) Mutate(g *genome.Genome, rng *rand.Rand) *genome.Genome {
	name := o.space.RandomName(rng)
	domain, _ := o.space.Domain(name)
	return g.CloneWith(name, domain[rng.Intn(len(domain))])
}
