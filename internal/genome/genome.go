package genome

import "errors"

// ErrFitnessNotComputed is returned when a genome's cost is read before the
// genome has been evaluated. Use errors.Is(err, ErrFitnessNotComputed).
var ErrFitnessNotComputed = errors.New("fitness not computed")

// EmptyDomainError is returned when a parameter space key has no admissible
// values. Rejected at space construction so genomes never observe it.
type EmptyDomainError struct {
	Param string
}

func (e *EmptyDomainError) Error() string {
	return "empty domain for parameter " + e.Param
}

func (e *EmptyDomainError) Is(target error) bool {
	_, ok := target.(*EmptyDomainError)
	return ok
}

// Genome is one candidate configuration: a complete assignment of every
// parameter in the space to one admissible value. A genome owns its parameter
// mapping exclusively; crossover and mutation produce fresh copies rather than
// sharing maps between generations.
//
// Cost is optional state set only after evaluation. Lower cost is better.
type Genome struct {
	params    map[string]any
	cost      float64
	evaluated bool
}

// Value returns the genome's value for the given parameter.
func (g *Genome) Value(name string) (any, bool) {
	v, ok := g.params[name]
	return v, ok
}

// Params returns a copy of the genome's parameter mapping.
func (g *Genome) Params() map[string]any {
	out := make(map[string]any, len(g.params))
	for name, v := range g.params {
		out[name] = v
	}
	return out
}

// Len returns the number of parameters carried by the genome.
func (g *Genome) Len() int {
	return len(g.params)
}

// SetCost records the evaluated cost for this genome.
func (g *Genome) SetCost(cost float64) {
	g.cost = cost
	g.evaluated = true
}

// Cost returns the evaluated cost, or ErrFitnessNotComputed if the genome has
// never been evaluated.
func (g *Genome) Cost() (float64, error) {
	if !g.evaluated {
		return 0, ErrFitnessNotComputed
	}
	return g.cost, nil
}

// Evaluated reports whether a cost has been attached to this genome.
func (g *Genome) Evaluated() bool {
	return g.evaluated
}

// CloneWith returns a copy of the genome with one parameter replaced.
// The copy carries no cost: a perturbed configuration is a new, unevaluated
// candidate even when the replacement value coincides with the prior one.
func (g *Genome) CloneWith(name string, value any) *Genome {
	params := make(map[string]any, len(g.params))
	for k, v := range g.params {
		params[k] = v
	}
	params[name] = value
	return &Genome{params: params}
}
