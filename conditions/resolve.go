// Package conditions implements the feedback loop between closing
// conditions and the dashboard: auto-checkable conditions are resolved
// against a specific, versioned dashboard snapshot, never a live value.
package conditions

import (
	"errors"
	"fmt"

	"dealgate/deal"
	"dealgate/engine"
)

var (
	// ErrUnknownGate signals a predicate referencing an evaluator absent
	// from the dashboard. A wiring fault, surfaced rather than downgraded.
	ErrUnknownGate = errors.New("conditions: predicate references unknown gate")

	// ErrStaleSnapshot signals a resolution attempt against a snapshot older
	// than one a condition was already satisfied by.
	ErrStaleSnapshot = errors.New("conditions: snapshot older than prior resolution")
)

// Regression records a satisfied condition whose predicate no longer holds
// under a newer snapshot. Per the monotonicity rule it is surfaced, never
// silently applied; reverting requires ApplyRegressions.
type Regression struct {
	ConditionID     string
	SatisfiedAtSnap int64
	ObservedAtSnap  int64
	Detail          string
}

// Resolution is the outcome of evaluating every auto-checkable condition
// against one snapshot version.
type Resolution struct {
	SnapshotVersion int64
	Updated         []deal.Condition
	NewlySatisfied  []string
	Regressions     []Regression
}

// Resolve evaluates each OPEN auto-checkable condition against the dashboard
// computed at the given snapshot version. Manual conditions and conditions
// already satisfied or waived are passed through untouched. Within a single
// snapshot version the operation is idempotent and monotonic: re-resolving
// never reverts an AUTO_SATISFIED condition.
func Resolve(conds []deal.Condition, dash engine.Dashboard, version int64) (Resolution, error) {
	out := Resolution{
		SnapshotVersion: version,
		Updated:         make([]deal.Condition, len(conds)),
	}
	copy(out.Updated, conds)

	for i := range out.Updated {
		c := &out.Updated[i]
		if !c.AutoCheckable() {
			continue
		}

		holds, err := evalPredicate(c.Predicate, dash)
		if err != nil {
			return Resolution{}, fmt.Errorf("conditions: condition %s: %w", c.ID, err)
		}

		switch c.Status {
		case deal.ConditionOpen:
			if holds {
				c.Status = deal.ConditionAutoSatisfied
				c.SatisfiedAtSnap = version
				c.SatisfiedBy = "dashboard"
				out.NewlySatisfied = append(out.NewlySatisfied, c.ID)
			}
		case deal.ConditionAutoSatisfied:
			if version < c.SatisfiedAtSnap {
				return Resolution{}, fmt.Errorf("conditions: condition %s satisfied at snapshot %d: %w", c.ID, c.SatisfiedAtSnap, ErrStaleSnapshot)
			}
			if !holds && version > c.SatisfiedAtSnap {
				out.Regressions = append(out.Regressions, Regression{
					ConditionID:     c.ID,
					SatisfiedAtSnap: c.SatisfiedAtSnap,
					ObservedAtSnap:  version,
					Detail:          describePredicate(c.Predicate, dash),
				})
			}
		}
	}

	return out, nil
}

// ApplyRegressions reopens the conditions named by a prior Resolution's
// regressions, recording the regression detail. This is the only path by
// which an AUTO_SATISFIED condition reverts.
func ApplyRegressions(conds []deal.Condition, regressions []Regression) []deal.Condition {
	byID := make(map[string]Regression, len(regressions))
	for _, r := range regressions {
		byID[r.ConditionID] = r
	}

	out := make([]deal.Condition, len(conds))
	copy(out, conds)
	for i := range out {
		r, ok := byID[out[i].ID]
		if !ok || out[i].Status != deal.ConditionAutoSatisfied {
			continue
		}
		out[i].Status = deal.ConditionOpen
		out[i].SatisfiedAtSnap = 0
		out[i].SatisfiedBy = ""
		out[i].Notes = fmt.Sprintf("regressed at snapshot %d: %s", r.ObservedAtSnap, r.Detail)
	}
	return out
}

// evalPredicate checks every AND-chained clause against the dashboard.
func evalPredicate(p *deal.GatePredicate, dash engine.Dashboard) (bool, error) {
	for ; p != nil; p = p.And {
		gate, ok := dash.Gate(p.Gate)
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrUnknownGate, p.Gate)
		}
		if p.MinStatus != "" && !gate.Status.AtLeast(engine.Status(p.MinStatus)) {
			return false, nil
		}
		if p.MinScore > 0 && gate.Score < p.MinScore {
			return false, nil
		}
	}
	return true, nil
}

func describePredicate(p *deal.GatePredicate, dash engine.Dashboard) string {
	for ; p != nil; p = p.And {
		gate, ok := dash.Gate(p.Gate)
		if !ok {
			return fmt.Sprintf("gate %s absent", p.Gate)
		}
		if p.MinStatus != "" && !gate.Status.AtLeast(engine.Status(p.MinStatus)) {
			return fmt.Sprintf("gate %s is %s, needs %s", p.Gate, gate.Status, p.MinStatus)
		}
		if p.MinScore > 0 && gate.Score < p.MinScore {
			return fmt.Sprintf("gate %s scored %.0f, needs %.0f", p.Gate, gate.Score, p.MinScore)
		}
	}
	return "predicate holds"
}
