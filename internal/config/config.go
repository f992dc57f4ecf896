// Package config loads and validates YAML search specifications.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/evolvekit/evotune/internal/evo"
	"github.com/evolvekit/evotune/internal/genome"
)

// Defaults applied when a spec omits the corresponding field. The rates match
// the optimizer's conventional operating point.
const (
	DefaultPopulation  = 30
	DefaultGenerations = 10
	DefaultWorkers     = 4

	DefaultRetainRate       = 0.4
	DefaultRandomSelectRate = 0.1
	DefaultMutateRate       = 0.2
)

// SearchSpec is the YAML document describing one hyperparameter search:
// the parameter space plus population size, generation budget, selection and
// variation rates, seed and evaluation concurrency.
//
// Rates are pointers so that an explicit zero survives default application.
type SearchSpec struct {
	Parameters map[string][]any `yaml:"parameters" validate:"required,min=1"`

	Population  int `yaml:"population" validate:"min=0"`
	Generations int `yaml:"generations" validate:"min=0"`
	Workers     int `yaml:"workers" validate:"min=0"`

	RetainRate       *float64 `yaml:"retain_rate" validate:"omitempty,gte=0,lte=1"`
	RandomSelectRate *float64 `yaml:"random_select_rate" validate:"omitempty,gte=0,lte=1"`
	MutateRate       *float64 `yaml:"mutate_rate" validate:"omitempty,gte=0,lte=1"`

	Seed int64 `yaml:"seed"`
}

// Load reads and parses a search spec from a YAML file.
func Load(path string) (*SearchSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read search spec: %w", err)
	}
	return Parse(data)
}

// Parse parses a search spec from YAML bytes, applies defaults and validates
// the result.
func Parse(data []byte) (*SearchSpec, error) {
	var spec SearchSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse search spec: %w", err)
	}

	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// ApplyDefaults fills unset fields with the package defaults.
func (s *SearchSpec) ApplyDefaults() {
	if s.Population <= 0 {
		s.Population = DefaultPopulation
	}
	if s.Generations <= 0 {
		s.Generations = DefaultGenerations
	}
	if s.Workers <= 0 {
		s.Workers = DefaultWorkers
	}
	if s.RetainRate == nil {
		s.RetainRate = ptr(DefaultRetainRate)
	}
	if s.RandomSelectRate == nil {
		s.RandomSelectRate = ptr(DefaultRandomSelectRate)
	}
	if s.MutateRate == nil {
		s.MutateRate = ptr(DefaultMutateRate)
	}
}

// Validate checks the spec against its struct tags and rejects parameters
// with empty domains.
func (s *SearchSpec) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid search spec: %w", err)
	}
	for name, domain := range s.Parameters {
		if len(domain) == 0 {
			return fmt.Errorf("invalid search spec: %w", &genome.EmptyDomainError{Param: name})
		}
	}
	return nil
}

// Space constructs the parameter space described by the spec.
func (s *SearchSpec) Space() (*genome.Space, error) {
	return genome.NewSpace(s.Parameters)
}

// Rates returns the optimizer configuration described by the spec.
// ApplyDefaults must have run first.
func (s *SearchSpec) Rates() evo.Config {
	return evo.Config{
		RetainRate:       *s.RetainRate,
		RandomSelectRate: *s.RandomSelectRate,
		MutateRate:       *s.MutateRate,
	}
}

func ptr(v float64) *float64 {
	return &v
}
