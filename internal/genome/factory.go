package genome

import (
	"fmt"
	"math/rand"
)

// Factory constructs genomes that satisfy a parameter space.
type Factory struct {
	space *Space
}

// NewFactory creates a genome factory for the given space.
func NewFactory(space *Space) *Factory {
	return &Factory{space: space}
}

// Space returns the parameter space this factory builds against.
func (f *Factory) Space() *Space {
	return f.space
}

// CreateRandom constructs a genome with every parameter drawn uniformly at
// random from its domain.
func (f *Factory) CreateRandom(rng *rand.Rand) *Genome {
	params := make(map[string]any, f.space.Len())
	for _, name := range f.space.Names() {
		domain, _ := f.space.Domain(name)
		params[name] = domain[rng.Intn(len(domain))]
	}
	return &Genome{params: params}
}

// CreateFromMapping constructs a genome from an explicit parameter mapping.
// The mapping must cover exactly the space's parameters with admissible
// values. The genome takes ownership via a copy, so later changes to the
// caller's map do not leak into the genome.
func (f *Factory) CreateFromMapping(mapping map[string]any) (*Genome, error) {
	if len(mapping) != f.space.Len() {
		return nil, fmt.Errorf("mapping has %d parameters, space has %d", len(mapping), f.space.Len())
	}

	params := make(map[string]any, f.space.Len())
	for _, name := range f.space.Names() {
		value, ok := mapping[name]
		if !ok {
			return nil, fmt.Errorf("mapping missing parameter %q", name)
		}
		if !f.space.Admits(name, value) {
			return nil, fmt.Errorf("value %v not admissible for parameter %q", value, name)
		}
		params[name] = value
	}

	return &Genome{params: params}, nil
}
