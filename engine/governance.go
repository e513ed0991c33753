package engine

import (
	"fmt"

	"dealgate/deal"
)

// GovernanceEvaluator assesses signing authority across the deal group:
// signatory coverage, board authorization, and conflicted roles where one
// person signs for both sides of a settlement leg.
type GovernanceEvaluator struct{}

func (GovernanceEvaluator) ID() string { return "governance" }

func (GovernanceEvaluator) Dependencies() []string { return nil }

func (e GovernanceEvaluator) Evaluate(d *deal.Record, _ Results) (Result, error) {
	res := Result{EvaluatorID: e.ID(), SubScores: map[string]float64{}}

	if len(d.Entities) == 0 {
		res.Status = StatusGrey
		return res, nil
	}

	score := 100.0
	deduct := func(pts float64, sev Severity, message, remediation string) {
		score -= pts
		res.Findings = append(res.Findings, Finding{
			Severity:    sev,
			Message:     message,
			Remediation: remediation,
		})
	}

	signers := make(map[string][]string) // signatory -> entities they sign for
	var signerOrder []string             // first-seen order, keeps findings reproducible
	for _, ent := range d.Entities {
		if len(ent.Signatories) == 0 {
			deduct(25, SeverityCritical,
				fmt.Sprintf("%s has no authorized signatories", ent.LegalName),
				"record at least two authorized signatories")
			continue
		}
		if len(ent.Signatories) < 2 {
			deduct(10, SeverityActionRequired,
				fmt.Sprintf("%s has a single signatory; dual authorization unavailable", ent.LegalName),
				"appoint a second signatory")
		}
		if !ent.BoardResolution {
			deduct(10, SeverityActionRequired,
				fmt.Sprintf("%s has no board resolution authorizing the transaction", ent.LegalName),
				"obtain and file the board resolution")
		}
		for _, s := range ent.Signatories {
			if _, seen := signers[s]; !seen {
				signerOrder = append(signerOrder, s)
			}
			signers[s] = append(signers[s], ent.ID)
		}
	}

	// A person signing for both sides of a settlement leg is an authority
	// conflict.
	conflicts := 0
	for _, name := range signerOrder {
		entityIDs := signers[name]
		if len(entityIDs) < 2 {
			continue
		}
		onLeg := make(map[string]bool, len(entityIDs))
		for _, id := range entityIDs {
			onLeg[id] = true
		}
		for _, leg := range d.SettlementLegs {
			if onLeg[leg.PayerID] && onLeg[leg.PayeeID] {
				conflicts++
				deduct(15, SeverityActionRequired,
					fmt.Sprintf("%s signs for both %s and %s on a settlement leg", name, leg.PayerID, leg.PayeeID),
					"segregate signing authority across the leg")
				break
			}
		}
	}

	res.Score = clampScore(score)
	res.SubScores["conflicts"] = float64(conflicts)
	switch {
	case res.Score >= 70: // grades A and B
		res.Status = StatusGreen
	case res.Score >= 50: // grade C
		res.Status = StatusAmber
	default:
		res.Status = StatusRed
	}
	return res, nil
}
