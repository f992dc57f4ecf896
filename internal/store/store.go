package store

// Store defines the interface for run result persistence.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if a run doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveResult atomically saves the result for the given run.
	// An existing result for this runID is overwritten. Implementations
	// should use atomic write strategies (temp file + rename) so a crash
	// never leaves a corrupt result behind.
	SaveResult(runID string, result *RunResult) error

	// LoadResult retrieves the result for the given run.
	// Returns ErrNotFound if no result exists for this runID.
	LoadResult(runID string) (*RunResult, error)

	// ListResults returns metadata for all persisted runs.
	// The returned slice may be empty if no runs exist.
	ListResults() ([]RunInfo, error)

	// DeleteResult removes the result and all associated artifacts for the
	// given run, including result.json and trace.jsonl.
	// Returns ErrNotFound if no result exists for this runID.
	DeleteResult(runID string) error
}

// ErrNotFound is returned when a requested run does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run error.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
