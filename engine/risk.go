package engine

import (
	"fmt"
	"time"

	"dealgate/deal"
)

// RiskEvaluator scores counterparty risk as a weighted composite of five
// sub-factors. Weights are fixed per transaction category and sum to 1.0.
// Banking completeness is consumed from the banking evaluator's sub-score
// rather than recomputed.
type RiskEvaluator struct{}

func (RiskEvaluator) ID() string { return "risk" }

func (RiskEvaluator) Dependencies() []string { return []string{"banking"} }

// riskWeights per sub-factor. Secured notes lean on banking completeness;
// unsecured notes shift that weight onto litigation exposure.
type riskWeights struct {
	Regulatory float64
	Ownership  float64
	Sanctions  float64
	Litigation float64
	Banking    float64
}

var categoryWeights = map[deal.TransactionCategory]riskWeights{
	deal.CategorySecuredNote:   {Regulatory: 0.25, Ownership: 0.20, Sanctions: 0.20, Litigation: 0.15, Banking: 0.20},
	deal.CategoryUnsecuredNote: {Regulatory: 0.25, Ownership: 0.20, Sanctions: 0.20, Litigation: 0.20, Banking: 0.15},
	deal.CategoryEscrowedSale:  {Regulatory: 0.20, Ownership: 0.20, Sanctions: 0.20, Litigation: 0.15, Banking: 0.25},
}

// sanctionsMaxAge is how recent a screening must be to count as current.
const sanctionsMaxAge = 180 * 24 * time.Hour

func (e RiskEvaluator) Evaluate(d *deal.Record, upstream Results) (Result, error) {
	res := Result{EvaluatorID: e.ID(), SubScores: map[string]float64{}}

	if len(d.Entities) == 0 {
		res.Status = StatusGrey
		return res, nil
	}

	weights, ok := categoryWeights[d.Category]
	if !ok {
		return res, fmt.Errorf("no risk weights for transaction category %q", d.Category)
	}

	regulatory := e.scoreRegulatory(d, &res)
	ownership := e.scoreOwnership(d, &res)
	sanctions := e.scoreSanctions(d, &res)
	litigation := e.scoreLitigation(d, &res)

	// A GREY banking gate means settlement was not assessable (no legs
	// declared); the factor gets half credit rather than failing the run.
	banking, ok := upstream.Sub("banking", "completeness")
	if !ok {
		gate, present := upstream["banking"]
		if !present || gate.Status != StatusGrey {
			return res, fmt.Errorf("banking completeness sub-score absent")
		}
		banking = 50
		res.Findings = append(res.Findings, Finding{
			Severity:    SeverityActionRequired,
			Message:     "settlement readiness not assessable; banking factor scored at half credit",
			Remediation: "declare the settlement legs so banking can be resolved",
		})
	}

	res.SubScores["regulatory"] = regulatory
	res.SubScores["ownership"] = ownership
	res.SubScores["sanctions"] = sanctions
	res.SubScores["litigation"] = litigation
	res.SubScores["banking"] = banking

	res.Score = clampScore(weights.Regulatory*regulatory +
		weights.Ownership*ownership +
		weights.Sanctions*sanctions +
		weights.Litigation*litigation +
		weights.Banking*banking)

	switch {
	case res.Score >= 85: // grade A
		res.Status = StatusGreen
	case res.Score >= 50: // grades B and C
		res.Status = StatusAmber
	default:
		res.Status = StatusRed
	}
	return res, nil
}

// scoreRegulatory: regulated entities must show active licenses for their
// jurisdiction's required set.
func (RiskEvaluator) scoreRegulatory(d *deal.Record, res *Result) float64 {
	score := 100.0
	per := 100.0 / float64(len(d.Entities))
	for _, ent := range d.Entities {
		if !ent.IsRegulated {
			continue
		}
		active := make(map[string]bool)
		for _, lic := range ent.Licenses {
			if lic.Status == "active" {
				active[lic.Authority] = true
			}
		}
		if len(active) == 0 {
			score -= per
			res.Findings = append(res.Findings, Finding{
				Severity:    SeverityActionRequired,
				Message:     fmt.Sprintf("%s claims regulated status with no active licenses", ent.LegalName),
				Remediation: "produce current license evidence",
			})
			continue
		}
		if rule, ok := d.Rule(ent.Jurisdiction); ok {
			for _, required := range rule.RequiredLicenses {
				if !active[required] {
					score -= per / 2
					res.Findings = append(res.Findings, Finding{
						Severity:    SeverityActionRequired,
						Message:     fmt.Sprintf("%s lacks required license from %s", ent.LegalName, required),
						Remediation: fmt.Sprintf("obtain the %s license", required),
					})
				}
			}
		}
	}
	return clampScore(score)
}

// scoreOwnership: beneficial ownership must be fully disclosed.
func (RiskEvaluator) scoreOwnership(d *deal.Record, res *Result) float64 {
	total, disclosed := 0, 0
	for _, ent := range d.Entities {
		for _, bo := range ent.BeneficialOwners {
			total++
			if bo.Disclosed {
				disclosed++
			} else {
				res.Findings = append(res.Findings, Finding{
					Severity:    SeverityActionRequired,
					Message:     fmt.Sprintf("undisclosed beneficial owner at %s", ent.LegalName),
					Remediation: "complete the beneficial ownership disclosure",
				})
			}
		}
	}
	if total == 0 {
		res.Findings = append(res.Findings, Finding{
			Severity:    SeverityActionRequired,
			Message:     "no beneficial owners recorded for any entity",
			Remediation: "collect ownership declarations",
		})
		return 0
	}
	return clampScore(float64(disclosed) / float64(total) * 100)
}

// scoreSanctions: screening must be complete, current relative to the deal
// snapshot, and clear of static-list hits. A hit zeroes the factor.
func (RiskEvaluator) scoreSanctions(d *deal.Record, res *Result) float64 {
	total, current := 0, 0
	for _, ent := range d.Entities {
		for _, bo := range ent.BeneficialOwners {
			total++
			if bo.SanctionsCode != "" {
				res.Findings = append(res.Findings, Finding{
					Severity:    SeverityCritical,
					Message:     fmt.Sprintf("sanctions list match %s for owner of %s", bo.SanctionsCode, ent.LegalName),
					Remediation: "escalate to compliance; the deal cannot proceed as structured",
				})
				return 0
			}
			switch {
			case !bo.SanctionsScreened:
				res.Findings = append(res.Findings, Finding{
					Severity:    SeverityActionRequired,
					Message:     fmt.Sprintf("owner of %s has not been sanctions-screened", ent.LegalName),
					Remediation: "run screening against the configured lists",
				})
			case bo.ScreenedAt == nil || d.CreatedAt.Sub(*bo.ScreenedAt) > sanctionsMaxAge:
				res.Findings = append(res.Findings, Finding{
					Severity:    SeverityActionRequired,
					Message:     fmt.Sprintf("sanctions screening for owner of %s is stale", ent.LegalName),
					Remediation: "re-screen within the 180-day window",
				})
			default:
				current++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return clampScore(float64(current) / float64(total) * 100)
}

// scoreLitigation: each open matter deducts from a full score.
func (RiskEvaluator) scoreLitigation(d *deal.Record, res *Result) float64 {
	score := 100.0
	for _, ent := range d.Entities {
		for _, matter := range ent.Litigation {
			score -= 20
			res.Findings = append(res.Findings, Finding{
				Severity:    SeverityActionRequired,
				Message:     fmt.Sprintf("open litigation %s at %s", matter, ent.LegalName),
				Remediation: "obtain a litigation exposure memo",
			})
		}
	}
	return clampScore(score)
}
