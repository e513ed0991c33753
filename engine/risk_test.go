package engine

import (
	"math"
	"strings"
	"testing"
	"time"

	"dealgate/deal"
)

func TestRiskEvaluator_CleanProfile(t *testing.T) {
	res, err := (RiskEvaluator{}).Evaluate(healthyRecord(), upstreamGreen())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusGreen || res.Score != 100 {
		t.Fatalf("expected GREEN/100, got %s/%.1f (%+v)", res.Status, res.Score, res.Findings)
	}
}

func TestRiskEvaluator_WeightedComposite(t *testing.T) {
	rec := healthyRecord()
	// zero the litigation factor: 5 open matters at 20 points each
	rec.Entities[0].Litigation = []string{"m1", "m2", "m3", "m4", "m5"}

	res, err := (RiskEvaluator{}).Evaluate(rec, upstreamGreen())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// secured note weights litigation at 0.15, so 100 - 15 = 85
	if math.Abs(res.Score-85) > 1e-9 {
		t.Fatalf("expected weighted score 85, got %.2f", res.Score)
	}
	if res.SubScores["litigation"] != 0 {
		t.Fatalf("expected litigation factor 0, got %v", res.SubScores["litigation"])
	}
	if res.Status != StatusGreen {
		t.Fatalf("85 sits at the GREEN boundary, got %s", res.Status)
	}
}

func TestRiskEvaluator_CategoryShiftsWeights(t *testing.T) {
	rec := healthyRecord()
	rec.Category = deal.CategoryUnsecuredNote
	rec.Entities[0].Litigation = []string{"m1", "m2", "m3", "m4", "m5"}

	res, err := (RiskEvaluator{}).Evaluate(rec, upstreamGreen())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// unsecured notes weight litigation at 0.20, so 100 - 20 = 80: AMBER
	if math.Abs(res.Score-80) > 1e-9 {
		t.Fatalf("expected weighted score 80, got %.2f", res.Score)
	}
	if res.Status != StatusAmber {
		t.Fatalf("expected AMBER, got %s", res.Status)
	}
}

func TestRiskEvaluator_SanctionsHitZeroesFactor(t *testing.T) {
	rec := healthyRecord()
	rec.Entities[0].BeneficialOwners[0].SanctionsCode = "OFAC-SDN-123"

	res, err := (RiskEvaluator{}).Evaluate(rec, upstreamGreen())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SubScores["sanctions"] != 0 {
		t.Fatalf("a list hit must zero the sanctions factor, got %v", res.SubScores["sanctions"])
	}
	critical := false
	for _, f := range res.Findings {
		if f.Severity == SeverityCritical {
			critical = true
		}
	}
	if !critical {
		t.Fatalf("expected a critical finding, got %+v", res.Findings)
	}
}

func TestRiskEvaluator_StaleScreening(t *testing.T) {
	rec := healthyRecord()
	stale := rec.CreatedAt.Add(-200 * 24 * time.Hour)
	rec.Entities[0].BeneficialOwners[0].ScreenedAt = &stale

	res, err := (RiskEvaluator{}).Evaluate(rec, upstreamGreen())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SubScores["sanctions"] != 0 {
		t.Fatalf("the only owner's screening is stale, factor should be 0, got %v", res.SubScores["sanctions"])
	}
}

func TestRiskEvaluator_AbsentBankingResultIsFatal(t *testing.T) {
	_, err := (RiskEvaluator{}).Evaluate(healthyRecord(), Results{})
	if err == nil {
		t.Fatal("expected an error when the banking result is absent entirely")
	}
}

func TestRiskEvaluator_GreyBankingScoresHalfCredit(t *testing.T) {
	rec := healthyRecord()
	rec.SettlementLegs = nil

	upstream := Results{"banking": {EvaluatorID: "banking", Status: StatusGrey}}
	res, err := (RiskEvaluator{}).Evaluate(rec, upstream)
	if err != nil {
		t.Fatalf("GREY banking must not fail the run: %v", err)
	}
	if res.SubScores["banking"] != 50 {
		t.Fatalf("expected half credit for the banking factor, got %v", res.SubScores["banking"])
	}
	if math.Abs(res.Score-90) > 1e-9 {
		t.Fatalf("expected weighted score 90, got %v", res.Score)
	}
	if res.Status != StatusGreen {
		t.Fatalf("expected GREEN, got %s", res.Status)
	}

	var noted bool
	for _, f := range res.Findings {
		if f.Severity == SeverityActionRequired && strings.Contains(f.Message, "half credit") {
			noted = true
		}
	}
	if !noted {
		t.Fatalf("expected an action-required finding about the unassessable factor, got %v", res.Findings)
	}
}

func TestRiskEvaluator_UnknownCategory(t *testing.T) {
	rec := healthyRecord()
	rec.Category = deal.TransactionCategory("repo")

	_, err := (RiskEvaluator{}).Evaluate(rec, upstreamGreen())
	if err == nil {
		t.Fatal("expected an error for an unknown transaction category")
	}
}
