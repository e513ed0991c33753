package engine

import (
	"fmt"

	"dealgate/deal"
)

// ClosingEvaluator tracks the deal's declared closing conditions: how many
// are resolved, how many remain open, and which of the open ones are
// auto-checkable against dashboard gates versus requiring manual sign-off.
// It reads upstream gates only to report context; actual auto-satisfaction
// happens in the conditions feedback loop against a stored snapshot.
type ClosingEvaluator struct{}

func (ClosingEvaluator) ID() string { return "closing" }

func (ClosingEvaluator) Dependencies() []string {
	return []string{"program", "collateral", "banking"}
}

func (e ClosingEvaluator) Evaluate(d *deal.Record, upstream Results) (Result, error) {
	res := Result{EvaluatorID: e.ID(), SubScores: map[string]float64{}}

	total := len(d.Conditions)
	if total == 0 {
		res.Status = StatusGrey
		return res, nil
	}

	resolved, open, autoCheckable := 0, 0, 0
	for _, c := range d.Conditions {
		if c.Resolved() {
			resolved++
			continue
		}
		open++
		if c.AutoCheckable() {
			autoCheckable++
		}
		sev := SeverityActionRequired
		remediation := "obtain manual sign-off with evidence"
		if c.AutoCheckable() {
			remediation = fmt.Sprintf("gate %s must reach the declared threshold", c.Predicate.Gate)
		}
		res.Findings = append(res.Findings, Finding{
			Severity:    sev,
			Message:     fmt.Sprintf("condition %s open: %s", c.ID, c.Description),
			Remediation: remediation,
		})
	}

	// Upstream RED gates that open conditions depend on are worth surfacing:
	// those conditions cannot auto-satisfy until the gate recovers.
	for _, gateID := range []string{"program", "collateral", "banking"} {
		gate := upstream[gateID]
		if gate.Status != StatusRed {
			continue
		}
		for _, c := range d.Conditions {
			if !c.Resolved() && c.AutoCheckable() && predicateReferences(c.Predicate, gateID) {
				res.Findings = append(res.Findings, Finding{
					Severity:    SeverityInfo,
					Message:     fmt.Sprintf("condition %s is blocked behind RED gate %s", c.ID, gateID),
					Remediation: "",
				})
			}
		}
	}

	res.Score = clampScore(float64(resolved) / float64(total) * 100)
	res.SubScores["total"] = float64(total)
	res.SubScores["resolved"] = float64(resolved)
	res.SubScores["open"] = float64(open)
	res.SubScores["auto_checkable"] = float64(autoCheckable)

	switch {
	case open == 0:
		res.Status = StatusGreen
	case res.Score >= 50:
		res.Status = StatusAmber
	default:
		res.Status = StatusRed
	}
	return res, nil
}

func predicateReferences(p *deal.GatePredicate, gateID string) bool {
	for ; p != nil; p = p.And {
		if p.Gate == gateID {
			return true
		}
	}
	return false
}
