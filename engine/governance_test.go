package engine

import (
	"reflect"
	"strings"
	"testing"

	"dealgate/deal"
)

func TestGovernanceEvaluator_FullAuthority(t *testing.T) {
	res, err := (GovernanceEvaluator{}).Evaluate(healthyRecord(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusGreen || res.Score != 100 {
		t.Fatalf("expected GREEN/100, got %s/%.0f (%+v)", res.Status, res.Score, res.Findings)
	}
	if res.SubScores["conflicts"] != 0 {
		t.Fatalf("expected no conflicts, got %v", res.SubScores["conflicts"])
	}
}

func TestGovernanceEvaluator_NoEntitiesIsGrey(t *testing.T) {
	res, err := (GovernanceEvaluator{}).Evaluate(&deal.Record{ID: "empty"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusGrey {
		t.Fatalf("expected GREY, got %s", res.Status)
	}
}

func TestGovernanceEvaluator_MissingSignatories(t *testing.T) {
	rec := healthyRecord()
	rec.Entities[0].Signatories = nil

	res, err := (GovernanceEvaluator{}).Evaluate(rec, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 75 {
		t.Fatalf("expected 25-point deduction, got %.0f", res.Score)
	}
	if res.Status != StatusGreen {
		t.Fatalf("score 75 is grade B, expected GREEN, got %s", res.Status)
	}
}

func TestGovernanceEvaluator_GradeBands(t *testing.T) {
	// grade C (50..69) is AMBER, below 50 is RED
	rec := healthyRecord()
	rec.Entities[0].Signatories = nil
	rec.Entities[1].Signatories = nil

	res, err := (GovernanceEvaluator{}).Evaluate(rec, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 50 || res.Status != StatusAmber {
		t.Fatalf("score 50 sits at the AMBER boundary, got %s/%.0f", res.Status, res.Score)
	}

	rec.Entities[2].Signatories = nil
	res, err = (GovernanceEvaluator{}).Evaluate(rec, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 25 || res.Status != StatusRed {
		t.Fatalf("expected RED/25, got %s/%.0f", res.Status, res.Score)
	}
}

func TestGovernanceEvaluator_SingleSignatoryAndNoBoard(t *testing.T) {
	rec := healthyRecord()
	rec.Entities[1].Signatories = []string{"sole-director"}
	rec.Entities[1].BoardResolution = false

	res, err := (GovernanceEvaluator{}).Evaluate(rec, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 80 {
		t.Fatalf("expected two 10-point deductions, got %.0f", res.Score)
	}
	if res.Status != StatusGreen {
		t.Fatalf("score 80 is grade B, expected GREEN, got %s", res.Status)
	}
}

func TestGovernanceEvaluator_ConflictFindingsOrderStable(t *testing.T) {
	build := func() *deal.Record {
		rec := healthyRecord()
		// two people each sign for both ends of the settlement leg
		rec.Entities[0].Signatories = []string{"pat", "sam"}
		rec.Entities[2].Signatories = []string{"pat", "sam"}
		return rec
	}

	first, err := (GovernanceEvaluator{}).Evaluate(build(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.SubScores["conflicts"] != 2 {
		t.Fatalf("expected two conflicts, got %v", first.SubScores["conflicts"])
	}

	var conflictMsgs []string
	for _, f := range first.Findings {
		if strings.Contains(f.Message, "signs for both") {
			conflictMsgs = append(conflictMsgs, f.Message)
		}
	}
	if len(conflictMsgs) != 2 ||
		!strings.HasPrefix(conflictMsgs[0], "pat ") ||
		!strings.HasPrefix(conflictMsgs[1], "sam ") {
		t.Fatalf("conflict findings must follow declaration order, got %v", conflictMsgs)
	}

	for i := 0; i < 20; i++ {
		next, err := (GovernanceEvaluator{}).Evaluate(build(), nil)
		if err != nil {
			t.Fatalf("rerun %d: %v", i, err)
		}
		if !reflect.DeepEqual(first.Findings, next.Findings) {
			t.Fatalf("rerun %d produced a different finding order:\nfirst: %v\nnext:  %v", i, first.Findings, next.Findings)
		}
	}
}

func TestGovernanceEvaluator_CrossLegSigningConflict(t *testing.T) {
	rec := healthyRecord()
	// the same person signs for both ends of the settlement leg
	rec.Entities[0].Signatories = []string{"shared-signer", "treasurer"}
	rec.Entities[2].Signatories = []string{"shared-signer", "officer-2"}

	res, err := (GovernanceEvaluator{}).Evaluate(rec, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SubScores["conflicts"] != 1 {
		t.Fatalf("expected one conflict, got %v", res.SubScores["conflicts"])
	}
	if res.Score != 85 {
		t.Fatalf("expected a 15-point deduction, got %.0f", res.Score)
	}
}
