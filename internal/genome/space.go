package genome

import (
	"fmt"
	"math/rand"
	"sort"
)

// Space is the catalog of tunable parameters: each name maps to an ordered,
// non-empty set of admissible discrete values. A Space is immutable for the
// duration of a search run.
type Space struct {
	names   []string
	domains map[string][]any
}

// NewSpace builds a parameter space from the given domains.
// Parameter names are ordered lexicographically so that iteration order is
// deterministic regardless of map construction order.
func NewSpace(domains map[string][]any) (*Space, error) {
	if len(domains) == 0 {
		return nil, fmt.Errorf("parameter space has no parameters")
	}

	names := make([]string, 0, len(domains))
	copied := make(map[string][]any, len(domains))

	for name, values := range domains {
		if len(values) == 0 {
			return nil, &EmptyDomainError{Param: name}
		}
		names = append(names, name)
		copied[name] = append([]any(nil), values...)
	}

	sort.Strings(names)

	return &Space{
		names:   names,
		domains: copied,
	}, nil
}

// Names returns the parameter names in deterministic order.
// The returned slice must not be modified.
func (s *Space) Names() []string {
	return s.names
}

// Len returns the number of parameters in the space.
func (s *Space) Len() int {
	return len(s.names)
}

// Domain returns the admissible values for the given parameter.
// The returned slice must not be modified.
func (s *Space) Domain(name string) ([]any, bool) {
	values, ok := s.domains[name]
	return values, ok
}

// Admits reports whether value is admissible for the given parameter.
func (s *Space) Admits(name string, value any) bool {
	values, ok := s.domains[name]
	if !ok {
		return false
	}
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// RandomName draws a parameter name uniformly at random.
func (s *Space) RandomName(rng *rand.Rand) string {
	return s.names[rng.Intn(len(s.names))]
}

// RandomValue draws a value for the given parameter uniformly from its domain.
func (s *Space) RandomValue(name string, rng *rand.Rand) (any, error) {
	values, ok := s.domains[name]
	if !ok {
		return nil, fmt.Errorf("unknown parameter %q", name)
	}
	return values[rng.Intn(len(values))], nil
}
