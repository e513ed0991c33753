package engine

import (
	"strings"
	"testing"

	"dealgate/deal"
)

func TestProgramEvaluator_HealthyProgram(t *testing.T) {
	res, err := (ProgramEvaluator{}).Evaluate(healthyRecord(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusGreen {
		t.Fatalf("expected GREEN, got %s (score %.0f, findings %+v)", res.Status, res.Score, res.Findings)
	}
	if res.Score != 100 {
		t.Fatalf("expected score 100, got %.0f", res.Score)
	}
	if res.SubScores["checks_passed"] != res.SubScores["checks_total"] {
		t.Fatalf("expected all checks passed, got %v", res.SubScores)
	}
}

func TestProgramEvaluator_MissingProgramIsHardRed(t *testing.T) {
	rec := healthyRecord()
	rec.Program = nil

	res, err := (ProgramEvaluator{}).Evaluate(rec, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusRed {
		t.Fatalf("missing program must be RED, got %s", res.Status)
	}
	if len(res.Findings) != 1 || res.Findings[0].Severity != SeverityCritical {
		t.Fatalf("expected a single critical finding, got %+v", res.Findings)
	}
}

func TestProgramEvaluator_PartialFailuresBandToAmber(t *testing.T) {
	rec := healthyRecord()
	rec.Program.InsuredAmount = 2_000_000 // 2% of offering, below the floor
	rec.Program.Series = rec.Program.Series[:1]

	res, err := (ProgramEvaluator{}).Evaluate(rec, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusAmber {
		t.Fatalf("expected AMBER, got %s (score %.1f)", res.Status, res.Score)
	}
	for _, f := range res.Findings {
		if f.Severity != SeverityActionRequired {
			t.Fatalf("threshold failures must be action items, got %+v", f)
		}
	}
}

func TestProgramEvaluator_UnassignedAgentFailsEveryRole(t *testing.T) {
	rec := healthyRecord()
	rec.Program.TransferAgent = nil

	res, err := (ProgramEvaluator{}).Evaluate(rec, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 16 of 17 checks pass with the agent block counted as three failures
	// collapsed into one finding.
	if got, want := res.SubScores["checks_total"]-res.SubScores["checks_passed"], 3.0; got != want {
		t.Fatalf("expected %v failed checks, got %v", want, got)
	}
}

func TestProgramEvaluator_CollateralShortfall(t *testing.T) {
	rec := healthyRecord()
	rec.Collateral.PledgedValue = 50_000_000

	res, err := (ProgramEvaluator{}).Evaluate(rec, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score >= 95 {
		t.Fatalf("undersized collateral must cost the coverage check, score %.1f", res.Score)
	}
	found := false
	for _, f := range res.Findings {
		if f.Severity == SeverityActionRequired {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a coverage finding, got %+v", res.Findings)
	}
}

func TestProgramEvaluator_MaturityMeasuredAgainstRecordTime(t *testing.T) {
	rec := healthyRecord()
	past := fixtureCreated.AddDate(-1, 0, 0)
	rec.Program.MaturityDate = &past

	res, err := (ProgramEvaluator{}).Evaluate(rec, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SubScores["checks_passed"] == res.SubScores["checks_total"] {
		t.Fatal("a maturity before the record snapshot must fail")
	}
}

func TestProgramEvaluator_EvidenceChecks(t *testing.T) {
	rec := healthyRecord()
	rec.Entities[0].EvidenceRefs = []string{"cert-registration", "cert-license", "cert-banking"}
	rec.Evidence = map[string]deal.EvidenceStatus{
		"cert-registration": deal.EvidencePresent,
		"cert-license":      deal.EvidenceStale,
		// cert-banking deliberately unmapped
	}

	res, err := (ProgramEvaluator{}).Evaluate(rec, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	failed := res.SubScores["checks_total"] - res.SubScores["checks_passed"]
	if failed != 2 {
		t.Fatalf("expected the stale and unmapped refs to fail, got %.0f failures (%+v)", failed, res.Findings)
	}

	var staleSeen, missingSeen bool
	for _, f := range res.Findings {
		if strings.Contains(f.Message, "cert-license") && strings.Contains(f.Message, "stale") {
			staleSeen = true
		}
		if strings.Contains(f.Message, "cert-banking") && strings.Contains(f.Message, "missing") {
			missingSeen = true
		}
	}
	if !staleSeen || !missingSeen {
		t.Fatalf("expected stale and missing evidence findings, got %+v", res.Findings)
	}
}

func TestProgramEvaluator_AllEvidencePresentKeepsFullScore(t *testing.T) {
	rec := healthyRecord()
	rec.Entities[1].EvidenceRefs = []string{"spv-formation"}
	rec.Evidence = map[string]deal.EvidenceStatus{"spv-formation": deal.EvidencePresent}

	res, err := (ProgramEvaluator{}).Evaluate(rec, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 100 || res.Status != StatusGreen {
		t.Fatalf("verified evidence must not deduct, got %s/%.0f", res.Status, res.Score)
	}
}
