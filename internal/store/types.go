package store

import (
	"fmt"
	"time"
)

// RunConfig holds the resolved configuration of a search run (result copy).
// Living here avoids import cycles with the server package.
type RunConfig struct {
	Parameters       map[string][]any `json:"parameters"`
	Population       int              `json:"population"`
	Generations      int              `json:"generations"`
	RetainRate       float64          `json:"retainRate"`
	RandomSelectRate float64          `json:"randomSelectRate"`
	MutateRate       float64          `json:"mutateRate"`
	Seed             int64            `json:"seed"`
	Workers          int              `json:"workers,omitempty"`
}

// RunResult is the persisted outcome of a completed search run: the best
// configuration found plus summary statistics. Populations are deliberately
// not persisted — a result records what was found, it cannot resume the
// search that found it.
type RunResult struct {
	// RunID is the unique identifier for this search run.
	RunID string `json:"runId"`

	// BestParams is the parameter assignment with the lowest cost found.
	BestParams map[string]any `json:"bestParams"`

	// BestCost is the cost achieved by BestParams.
	BestCost float64 `json:"bestCost"`

	// InitialGrade is the mean cost of the first evaluated generation.
	InitialGrade float64 `json:"initialGrade"`

	// FinalGrade is the mean cost of the last generation.
	FinalGrade float64 `json:"finalGrade"`

	// Generations is the number of generations run.
	Generations int `json:"generations"`

	// Evaluations is the total number of fitness evaluations performed.
	Evaluations int `json:"evaluations"`

	// ElapsedSeconds is the wall-clock duration of the run.
	ElapsedSeconds float64 `json:"elapsedSeconds"`

	// Timestamp records when the run finished.
	Timestamp time.Time `json:"timestamp"`

	// Config is the resolved run configuration, kept for inspection.
	Config RunConfig `json:"config"`
}

// RunInfo contains metadata about a run without the full parameter data.
// Used for listing runs without decoding every result document field.
type RunInfo struct {
	RunID       string    `json:"runId"`
	BestCost    float64   `json:"bestCost"`
	Generations int       `json:"generations"`
	Population  int       `json:"population"`
	Timestamp   time.Time `json:"timestamp"`
}

// ToInfo converts a full RunResult to its listing metadata.
func (r *RunResult) ToInfo() RunInfo {
	return RunInfo{
		RunID:       r.RunID,
		BestCost:    r.BestCost,
		Generations: r.Generations,
		Population:  r.Config.Population,
		Timestamp:   r.Timestamp,
	}
}

// Validate checks that the result is complete enough to persist.
func (r *RunResult) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if len(r.BestParams) == 0 {
		return &ValidationError{Field: "BestParams", Reason: "cannot be empty"}
	}
	if r.Generations <= 0 {
		return &ValidationError{Field: "Generations", Reason: "must be positive"}
	}
	if r.Evaluations <= 0 {
		return &ValidationError{Field: "Evaluations", Reason: "must be positive"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if len(r.Config.Parameters) == 0 {
		return &ValidationError{Field: "Config.Parameters", Reason: "cannot be empty"}
	}
	if r.Config.Population <= 0 {
		return &ValidationError{Field: "Config.Population", Reason: "must be positive"}
	}
	if len(r.BestParams) != len(r.Config.Parameters) {
		return &ValidationError{
			Field:  "BestParams",
			Reason: fmt.Sprintf("has %d parameters, space has %d", len(r.BestParams), len(r.Config.Parameters)),
		}
	}
	return nil
}

// ValidationError represents a run result validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
