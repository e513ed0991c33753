package engine

import (
	"time"

	"dealgate/deal"
)

// Dashboard is the aggregated composite verdict over all evaluators for one
// deal record. It is never partially populated: callers only ever observe
// complete, internally consistent snapshots.
type Dashboard struct {
	DealID      string    `json:"dealId"`
	DealName    string    `json:"dealName"`
	Composite   Status    `json:"composite"`
	Results     []Result  `json:"results"` // resolver order, reproducible across runs
	GreenCount  int       `json:"greenCount"`
	AmberCount  int       `json:"amberCount"`
	RedCount    int       `json:"redCount"`
	GreyCount   int       `json:"greyCount"`
	ActionItems int       `json:"actionItems"`
	ComputedAt  time.Time `json:"computedAt"`
}

// Gate returns the result for the named evaluator. The second return is
// false when the gate is not part of this dashboard.
func (db Dashboard) Gate(evaluatorID string) (Result, bool) {
	for _, r := range db.Results {
		if r.EvaluatorID == evaluatorID {
			return r, true
		}
	}
	return Result{}, false
}

// compose rolls per-evaluator results into the fixed-precedence composite:
// RED if any non-GREY result is RED, else AMBER if any non-GREY result is
// AMBER, else GREEN. All-GREY composes to GREY.
func compose(d *deal.Record, results []Result, at time.Time) Dashboard {
	db := Dashboard{
		DealID:     d.ID,
		DealName:   d.Name,
		Results:    results,
		ComputedAt: at,
	}

	composite := StatusGrey
	for _, r := range results {
		db.ActionItems += r.ActionItems()
		switch r.Status {
		case StatusGreen:
			db.GreenCount++
		case StatusAmber:
			db.AmberCount++
		case StatusRed:
			db.RedCount++
		default:
			db.GreyCount++
			continue
		}
		if composite == StatusGrey || r.Status.rank() < composite.rank() {
			composite = r.Status
		}
	}
	db.Composite = composite

	return db
}
