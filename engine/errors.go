package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingDependency signals that a declared upstream result was absent
	// at evaluation time. This is a wiring bug: fatal for the run, no retry.
	ErrMissingDependency = errors.New("engine: missing dependency result")

	// ErrDuplicateEvaluator signals two registrations under the same id.
	ErrDuplicateEvaluator = errors.New("engine: duplicate evaluator id")

	// ErrUnknownDependency signals a declared dependency on an id that was
	// never registered.
	ErrUnknownDependency = errors.New("engine: unknown dependency")
)

// CyclicDependencyError reports a cycle in the declared evaluator graph.
// Raised at registry construction, never during a run.
type CyclicDependencyError struct {
	Members []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("engine: cyclic evaluator dependencies: %s", strings.Join(e.Members, ", "))
}

// EvaluationError wraps a rubric failure for a single evaluator. The runner
// downgrades it to a RED result unless the cause is ErrMissingDependency.
type EvaluationError struct {
	EvaluatorID string
	Err         error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("engine: evaluator %s: %v", e.EvaluatorID, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }
