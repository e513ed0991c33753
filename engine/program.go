package engine

import (
	"fmt"
	"strings"

	"dealgate/deal"
)

// ProgramEvaluator validates the structural completeness of the deal's note
// program: offering terms, series registration, transfer agent roles,
// insurance coverage, and legal opinion coverage. Score is the fraction of
// passed checks; a missing program section is a hard RED, not a low score.
type ProgramEvaluator struct{}

func (ProgramEvaluator) ID() string { return "program" }

func (ProgramEvaluator) Dependencies() []string { return nil }

// insuranceFloorPct is the minimum insured amount relative to the maximum
// offering before coverage is considered adequate.
const insuranceFloorPct = 10.0

var requiredAgentRoles = []string{"Transfer Agent", "Escrow Agent", "Paying Agent"}

func (e ProgramEvaluator) Evaluate(d *deal.Record, _ Results) (Result, error) {
	res := Result{EvaluatorID: e.ID(), SubScores: map[string]float64{}}

	p := d.Program
	if p == nil {
		res.Status = StatusRed
		res.Findings = append(res.Findings, Finding{
			Severity:    SeverityCritical,
			Message:     "no note program declared on the deal record",
			Remediation: "attach the program terms before assessment",
		})
		return res, nil
	}

	var passed, total int
	check := func(ok bool, message, remediation string) {
		total++
		if ok {
			passed++
			return
		}
		res.Findings = append(res.Findings, Finding{
			Severity:    SeverityActionRequired,
			Message:     message,
			Remediation: remediation,
		})
	}

	check(p.MaxOffering > 0,
		"maximum offering is zero or missing",
		"set the authorized program size")
	check(p.CouponRate > 0,
		"coupon rate not specified",
		"record the fixed coupon rate")
	check(p.MaturityDate != nil && p.MaturityDate.After(d.CreatedAt),
		"maturity date absent or not in the future",
		"confirm the program maturity date")
	check(p.SettlementMethod != "",
		"settlement method not specified",
		"declare the securities settlement method")
	check(p.Secured,
		"note program is not marked secured",
		"confirm the security package or reclassify the transaction")

	series := make(map[string]bool, len(p.Series))
	for _, s := range p.Series {
		series[strings.ToUpper(s.Type)] = true
	}
	check(len(p.Series) > 0,
		"no series registered on the program",
		"register at least one series identifier")
	check(series["144A"],
		"no 144A series registered",
		"register a 144A series for institutional resale")
	check(series["REG_S"],
		"no Reg S series registered",
		"register a Reg S series for offshore placement")

	if p.TransferAgent == nil {
		check(false,
			"no transfer agent assigned",
			"appoint a transfer agent before settlement")
		total += len(requiredAgentRoles) - 1 // unassigned agent fails every role check
	} else {
		roles := make(map[string]bool, len(p.TransferAgent.Roles))
		for _, role := range p.TransferAgent.Roles {
			roles[role] = true
		}
		for _, role := range requiredAgentRoles {
			check(roles[role],
				fmt.Sprintf("transfer agent %s not confirmed as %s", p.TransferAgent.Name, role),
				fmt.Sprintf("confirm the %s appointment in writing", role))
		}
	}

	check(p.InsuredAmount > 0,
		"no insurance coverage recorded",
		"bind program insurance coverage")
	if p.InsuredAmount > 0 && p.MaxOffering > 0 {
		ratio := p.InsuredAmount / p.MaxOffering * 100
		check(ratio >= insuranceFloorPct,
			fmt.Sprintf("insurance covers only %.1f%% of the maximum offering", ratio),
			"increase coverage to at least 10% of program size")
	}

	var signed int
	issuerCovered := false
	issuerJur := baseJurisdiction(d.PrimaryJurisdiction)
	for _, op := range p.LegalOpinions {
		if op.Signed {
			signed++
		}
		if baseJurisdiction(op.Jurisdiction) == issuerJur {
			issuerCovered = true
		}
	}
	check(len(p.LegalOpinions) > 0,
		"no legal opinions on file",
		"obtain program validity opinions")
	check(signed == len(p.LegalOpinions) && len(p.LegalOpinions) > 0,
		fmt.Sprintf("%d of %d legal opinions remain unsigned", len(p.LegalOpinions)-signed, len(p.LegalOpinions)),
		"finalize draft opinions")
	check(issuerCovered,
		fmt.Sprintf("no opinion covers the primary jurisdiction %s", issuerJur),
		"obtain a local counsel opinion")

	if d.Collateral != nil {
		check(d.Collateral.PledgedValue >= p.MaxOffering,
			fmt.Sprintf("pledged collateral %.0f is below the program size %.0f", d.Collateral.PledgedValue, p.MaxOffering),
			"top up the collateral schedule or reduce program size")
	}

	// Document presence: every declared evidence reference must be verified
	// PRESENT by the evidence collaborator. An unmapped reference counts as
	// missing.
	for _, ent := range d.Entities {
		for _, ref := range ent.EvidenceRefs {
			switch d.Evidence[ref] {
			case deal.EvidencePresent:
				check(true, "", "")
			case deal.EvidenceStale:
				check(false,
					fmt.Sprintf("evidence %s for %s is stale", ref, ent.LegalName),
					"refresh the document and re-verify it")
			default:
				check(false,
					fmt.Sprintf("evidence %s for %s is missing", ref, ent.LegalName),
					"collect the document and submit it for verification")
			}
		}
	}

	res.Score = clampScore(float64(passed) / float64(total) * 100)
	res.Status = bandStatus(res.Score)
	res.SubScores["checks_passed"] = float64(passed)
	res.SubScores["checks_total"] = float64(total)
	return res, nil
}

// baseJurisdiction strips any region suffix (US-DE -> US).
func baseJurisdiction(code string) string {
	if i := strings.IndexByte(code, '-'); i > 0 {
		return strings.ToUpper(code[:i])
	}
	return strings.ToUpper(code)
}
