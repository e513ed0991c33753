package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"dealgate/deal"
)

// Evaluator converts an immutable deal record plus declared upstream results
// into a score, status, and findings. Implementations must be pure: identical
// inputs yield identical output, no I/O, no retained state between runs.
type Evaluator interface {
	ID() string
	Dependencies() []string
	Evaluate(d *deal.Record, upstream Results) (Result, error)
}

// Registry holds the closed set of evaluators for a deployment, validated
// and ordered once at construction. Configuration faults (duplicate ids,
// unknown or cyclic dependencies) surface here, never during a run.
type Registry struct {
	evaluators map[string]Evaluator
	order      []string
	layers     [][]string
	now        func() time.Time
}

// NewRegistry validates the evaluator set and computes its evaluation order.
func NewRegistry(evaluators ...Evaluator) (*Registry, error) {
	byID := make(map[string]Evaluator, len(evaluators))
	for _, ev := range evaluators {
		if _, exists := byID[ev.ID()]; exists {
			return nil, fmt.Errorf("engine: register %s: %w", ev.ID(), ErrDuplicateEvaluator)
		}
		byID[ev.ID()] = ev
	}

	order, layers, err := resolveOrder(evaluators)
	if err != nil {
		return nil, err
	}

	return &Registry{
		evaluators: byID,
		order:      order,
		layers:     layers,
		now:        time.Now,
	}, nil
}

// NewStandardRegistry wires the full evaluator set in declaration order.
func NewStandardRegistry() (*Registry, error) {
	return NewRegistry(
		&ProgramEvaluator{},
		&CollateralEvaluator{},
		&GovernanceEvaluator{},
		&BankingEvaluator{},
		&RiskEvaluator{},
		&ClosingEvaluator{},
		&EscrowEvaluator{},
	)
}

// WithClock overrides the timestamp source, used by tests to pin dashboards.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Order returns the reproducible evaluation order.
func (r *Registry) Order() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ComputeDashboard runs every evaluator against the deal record and composes
// the aggregate verdict. Evaluators within one dependency layer run
// concurrently; the results map is only written between layers. A run either
// produces a complete dashboard or fails entirely: rubric faults degrade the
// owning gate to RED, but a missing declared dependency aborts the run.
func (r *Registry) ComputeDashboard(ctx context.Context, d *deal.Record) (Dashboard, error) {
	results := make(Results, len(r.evaluators))

	for _, layer := range r.layers {
		layerResults := make([]Result, len(layer))
		g, gctx := errgroup.WithContext(ctx)
		for i, id := range layer {
			i, ev := i, r.evaluators[id]
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := r.evaluateOne(ev, d, results)
				if err != nil {
					return err
				}
				layerResults[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Dashboard{}, err
		}
		for _, res := range layerResults {
			results[res.EvaluatorID] = res
		}
	}

	ordered := make([]Result, 0, len(r.order))
	for _, id := range r.order {
		ordered = append(ordered, results[id])
	}

	return compose(d, ordered, r.now().UTC()), nil
}

// evaluateOne applies the error taxonomy: a missing dependency is fatal for
// the run; any other rubric failure becomes a RED result with a critical
// finding so one defective gate cannot abort the whole dashboard.
func (r *Registry) evaluateOne(ev Evaluator, d *deal.Record, upstream Results) (Result, error) {
	for _, dep := range ev.Dependencies() {
		if _, ok := upstream[dep]; !ok {
			return Result{}, &EvaluationError{
				EvaluatorID: ev.ID(),
				Err:         fmt.Errorf("%w: %s requires %s", ErrMissingDependency, ev.ID(), dep),
			}
		}
	}

	res, err := ev.Evaluate(d, upstream)
	if err != nil {
		return Result{
			EvaluatorID: ev.ID(),
			Score:       0,
			Status:      StatusRed,
			Findings: []Finding{{
				Severity:    SeverityCritical,
				Message:     fmt.Sprintf("evaluation failed: %v", err),
				Remediation: "correct the deal record data for this gate",
			}},
		}, nil
	}

	res.EvaluatorID = ev.ID()
	res.Score = clampScore(res.Score)
	return res, nil
}
