package sched

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidBudget is returned when a run asks for fewer than one worker.
	ErrInvalidBudget = errors.New("worker budget must be at least 1")

	// ErrMissingPrerequisite means a subtask value was not in the memo
	// engine after its evaluation finished. It points at a store that lost
	// a write.
	ErrMissingPrerequisite = errors.New("prerequisite value missing after evaluation")

	// errAborted unwinds a worker after the run has been decided, failed or
	// cancelled elsewhere. It never reaches callers.
	errAborted = errors.New("evaluation aborted")
)
