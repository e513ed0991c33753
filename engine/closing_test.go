package engine

import (
	"strings"
	"testing"

	"dealgate/deal"
)

func closingConditions() []deal.Condition {
	return []deal.Condition{
		{ID: "c1", Description: "program gate green",
			Predicate: &deal.GatePredicate{Gate: "program", MinStatus: "GREEN"},
			Status:    deal.ConditionAutoSatisfied, SatisfiedAtSnap: 1, SatisfiedBy: "dashboard"},
		{ID: "c2", Description: "collateral score floor",
			Predicate: &deal.GatePredicate{Gate: "collateral", MinScore: 90},
			Status:    deal.ConditionOpen},
		{ID: "c3", Description: "board minutes delivered", Status: deal.ConditionWaived},
		{ID: "c4", Description: "closing certificate", Status: deal.ConditionOpen},
	}
}

func TestClosingEvaluator_NoConditionsIsGrey(t *testing.T) {
	res, err := (ClosingEvaluator{}).Evaluate(healthyRecord(), upstreamGreen())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusGrey {
		t.Fatalf("expected GREY, got %s", res.Status)
	}
}

func TestClosingEvaluator_CountsAndStatus(t *testing.T) {
	rec := healthyRecord()
	rec.Conditions = closingConditions()

	res, err := (ClosingEvaluator{}).Evaluate(rec, upstreamGreen())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SubScores["total"] != 4 || res.SubScores["resolved"] != 2 || res.SubScores["open"] != 2 {
		t.Fatalf("unexpected counts: %v", res.SubScores)
	}
	if res.SubScores["auto_checkable"] != 1 {
		t.Fatalf("expected one open auto-checkable condition, got %v", res.SubScores["auto_checkable"])
	}
	if res.Score != 50 {
		t.Fatalf("expected score 50, got %.0f", res.Score)
	}
	if res.Status != StatusAmber {
		t.Fatalf("expected AMBER, got %s", res.Status)
	}
}

func TestClosingEvaluator_AllResolvedIsGreen(t *testing.T) {
	rec := healthyRecord()
	rec.Conditions = []deal.Condition{
		{ID: "c1", Status: deal.ConditionManuallySatisfied},
		{ID: "c2", Status: deal.ConditionWaived},
	}

	res, err := (ClosingEvaluator{}).Evaluate(rec, upstreamGreen())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusGreen || res.Score != 100 {
		t.Fatalf("expected GREEN/100, got %s/%.0f", res.Status, res.Score)
	}
}

func TestClosingEvaluator_FlagsConditionsBehindRedGates(t *testing.T) {
	rec := healthyRecord()
	rec.Conditions = closingConditions()

	upstream := upstreamGreen()
	red := upstream["collateral"]
	red.Status = StatusRed
	upstream["collateral"] = red

	res, err := (ClosingEvaluator{}).Evaluate(rec, upstream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blocked := false
	for _, f := range res.Findings {
		if f.Severity == SeverityInfo && strings.Contains(f.Message, "RED gate collateral") {
			blocked = true
		}
	}
	if !blocked {
		t.Fatalf("expected a blocked-behind-RED finding for c2, got %+v", res.Findings)
	}
}
