package engine

import (
	"fmt"

	"dealgate/deal"
)

// CollateralEvaluator checks the structural integrity of the collateral
// chain: grantor/secured-party direction, filing perfection, reserve
// coverage, and LTV controls. Absence of a legally required filing is a hard
// RED regardless of the rest of the rubric.
type CollateralEvaluator struct{}

func (CollateralEvaluator) ID() string { return "collateral" }

func (CollateralEvaluator) Dependencies() []string { return nil }

// Jurisdictions whose SPV regimes are considered favorable for bankruptcy
// remoteness.
var favorableSPVJurisdictions = map[string]bool{
	"US-WY": true, "US-DE": true, "US-NV": true,
	"KY": true, "BM": true, "JE": true, "LU": true,
}

func (e CollateralEvaluator) Evaluate(d *deal.Record, _ Results) (Result, error) {
	res := Result{EvaluatorID: e.ID(), SubScores: map[string]float64{}}

	c := d.Collateral
	if c == nil {
		if d.Category == deal.CategoryUnsecuredNote {
			res.Status = StatusGrey
			return res, nil
		}
		res.Status = StatusRed
		res.Findings = append(res.Findings, Finding{
			Severity:    SeverityCritical,
			Message:     "no collateral schedule on a secured transaction",
			Remediation: "attach the collateral schedule",
		})
		return res, nil
	}

	var passed, total int
	hardFail := false
	check := func(ok bool, sev Severity, message, remediation string) {
		total++
		if ok {
			passed++
			return
		}
		if sev == SeverityCritical {
			hardFail = true
		}
		res.Findings = append(res.Findings, Finding{
			Severity:    sev,
			Message:     message,
			Remediation: remediation,
		})
	}

	grantor := d.Entity(c.GrantorID)
	secured := d.Entity(c.SecuredPartyID)

	check(grantor != nil, SeverityCritical,
		"collateral grantor does not reference a deal entity",
		"link the grantor to an entity profile")
	check(secured != nil, SeverityCritical,
		"secured party does not reference a deal entity",
		"link the secured party to an entity profile")
	if grantor != nil {
		check(grantor.EntityType == "special_purpose_vehicle", SeverityActionRequired,
			fmt.Sprintf("grantor %s is not a special purpose vehicle", grantor.LegalName),
			"route the pledge through the SPV")
	}
	if grantor != nil && secured != nil {
		check(grantor.ID != secured.ID, SeverityCritical,
			"grantor and secured party are the same entity",
			"correct the security direction on the schedule")
	}

	// Filing perfection. If the primary jurisdiction legally requires a
	// filing, its absence is a hard failure, never a soft one.
	rule, hasRule := d.Rule(d.PrimaryJurisdiction)
	filingRequired := hasRule && rule.FilingRequired
	hasFiling := c.FilingType != "" && c.FilingType != "none"

	if filingRequired {
		check(hasFiling, SeverityCritical,
			fmt.Sprintf("jurisdiction %s requires a perfection filing and none is recorded", d.PrimaryJurisdiction),
			"file the security interest before closing")
	} else {
		check(hasFiling, SeverityActionRequired,
			"no perfection filing recorded",
			"record the filing type and jurisdiction")
	}
	if hasFiling && grantor != nil {
		check(c.FilingJurisdiction == grantor.Jurisdiction, SeverityActionRequired,
			fmt.Sprintf("filing jurisdiction %s does not match grantor jurisdiction %s", c.FilingJurisdiction, grantor.Jurisdiction),
			"refile in the grantor's jurisdiction of organization")
	}

	if grantor != nil {
		check(favorableSPVJurisdictions[grantor.Jurisdiction], SeverityInfo,
			fmt.Sprintf("SPV jurisdiction %s is outside the favorable set", grantor.Jurisdiction),
			"")
	}

	check(c.PledgedValue > 0, SeverityCritical,
		"pledged collateral value is zero",
		"record the pledged value")
	if c.PledgedValue > 0 {
		check(c.PledgedValue >= c.OutstandingValue, SeverityActionRequired,
			fmt.Sprintf("pledged value %.0f is below outstanding %.0f", c.PledgedValue, c.OutstandingValue),
			"increase the reserve or reduce outstanding exposure")
	}
	check(c.LTVHaircutPct > 0 && c.LTVHaircutPct < 100, SeverityActionRequired,
		"LTV haircut is outside (0,100)",
		"set a defensible haircut range")

	res.Score = clampScore(float64(passed) / float64(total) * 100)
	res.Status = bandStatus(res.Score)
	if hardFail {
		res.Status = StatusRed
	}
	res.SubScores["chain_integrity"] = res.Score
	return res, nil
}
