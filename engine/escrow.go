package engine

import (
	"fmt"

	"dealgate/deal"
)

// EscrowEvaluator plans the escrow arrangement: selects an agent from the
// deal's confirmed banks, and reports release-condition readiness using the
// banking and closing gates. GREY when the transaction declares no escrow
// terms.
type EscrowEvaluator struct{}

func (EscrowEvaluator) ID() string { return "escrow" }

func (EscrowEvaluator) Dependencies() []string { return []string{"banking", "closing"} }

func (e EscrowEvaluator) Evaluate(d *deal.Record, upstream Results) (Result, error) {
	res := Result{EvaluatorID: e.ID(), SubScores: map[string]float64{}}

	if d.Escrow == nil {
		res.Status = StatusGrey
		return res, nil
	}

	agent := e.selectAgent(d)
	if agent == nil {
		res.Status = StatusRed
		res.Findings = append(res.Findings, Finding{
			Severity:    SeverityCritical,
			Message:     "no entity in the deal group can act as escrow agent",
			Remediation: "onboard a bank counterpart with confirmed settlement banking",
		})
		return res, nil
	}

	banking := upstream["banking"]
	closing := upstream["closing"]

	// Release conditions: banking confirmed end to end, no open closing
	// conditions. Declared release mechanism governs the wording only.
	met, totalConds := 0, 2
	if banking.Status == StatusGreen {
		met++
	} else {
		res.Findings = append(res.Findings, Finding{
			Severity:    SeverityActionRequired,
			Message:     fmt.Sprintf("escrow release blocked: banking gate is %s", banking.Status),
			Remediation: "confirm settlement banking for every leg",
		})
	}
	if openConds, ok := upstream.Sub("closing", "open"); ok && openConds == 0 && closing.Status != StatusGrey {
		met++
	} else {
		res.Findings = append(res.Findings, Finding{
			Severity:    SeverityActionRequired,
			Message:     "escrow release blocked: closing conditions remain open",
			Remediation: "resolve or waive the remaining conditions",
		})
	}

	res.Score = clampScore(float64(met) / float64(totalConds) * 100)
	res.SubScores["release_conditions_met"] = float64(met)
	res.SubScores["release_conditions_total"] = float64(totalConds)

	confirmedAgent := d.Escrow.AgentEntityID != "" && d.Entity(d.Escrow.AgentEntityID) != nil
	switch {
	case confirmedAgent && met == totalConds:
		res.Status = StatusGreen
	default:
		res.Status = StatusAmber
		if !confirmedAgent {
			res.Findings = append(res.Findings, Finding{
				Severity:    SeverityActionRequired,
				Message:     fmt.Sprintf("escrow agent proposed but unconfirmed: %s", agent.LegalName),
				Remediation: "execute the escrow agreement with the proposed agent",
			})
		}
	}
	return res, nil
}

// selectAgent prefers the declared agent, then any bank entity with
// confirmed banking, in deal-record order so selection is reproducible.
func (EscrowEvaluator) selectAgent(d *deal.Record) *deal.EntityProfile {
	if d.Escrow.AgentEntityID != "" {
		if ent := d.Entity(d.Escrow.AgentEntityID); ent != nil {
			return ent
		}
	}
	for i := range d.Entities {
		ent := &d.Entities[i]
		if ent.IsBank || ent.Banking.Confirmed {
			return ent
		}
	}
	return nil
}
