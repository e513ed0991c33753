package engine

import (
	"fmt"

	"dealgate/deal"
)

// BankingEvaluator resolves settlement readiness per leg. Entities without a
// settlement bank receive a proposed candidate from the jurisdiction+tier
// directory. RED when any leg has neither a real nor a proposed bank on one
// end; AMBER while any leg rests on proposed (unconfirmed) banks; GREEN only
// when every leg is confirmed end to end with a correspondent path of at
// least the minimum node count.
type BankingEvaluator struct{}

func (BankingEvaluator) ID() string { return "banking" }

func (BankingEvaluator) Dependencies() []string { return nil }

// candidateBank is a directory row used to propose settlement banks.
type candidateBank struct {
	Name  string
	Swift string
	Tier  string
}

// bankDirectory maps base jurisdiction to ranked candidates, best first.
// A static table: the engine performs no live lookups.
var bankDirectory = map[string][]candidateBank{
	"US": {
		{Name: "JPMorgan Chase Bank, N.A.", Swift: "CHASUS33", Tier: "GSIB"},
		{Name: "The Bank of New York Mellon", Swift: "IRVTUS3N", Tier: "GSIB"},
		{Name: "Bank of America, N.A.", Swift: "BOFAUS3N", Tier: "GSIB"},
	},
	"GB": {
		{Name: "Barclays Bank PLC", Swift: "BARCGB22", Tier: "GSIB"},
		{Name: "HSBC Bank plc", Swift: "MIDLGB22", Tier: "GSIB"},
	},
	"VN": {
		{Name: "Standard Chartered Bank Vietnam", Swift: "SCBLVNVX", Tier: "INTERNATIONAL"},
		{Name: "Vietcombank", Swift: "BFTVVNVX", Tier: "DOMESTIC_MAJOR"},
	},
	"BS": {
		{Name: "Scotiabank (Bahamas) Limited", Swift: "NOSCBSNS", Tier: "INTERNATIONAL"},
	},
}

// defaultCandidates serve jurisdictions without a directory row.
var defaultCandidates = []candidateBank{
	{Name: "Standard Chartered Bank", Swift: "SCBLGB2L", Tier: "INTERNATIONAL"},
}

// minCorrespondentNodes is the smallest acceptable settlement path: the two
// endpoints plus one intermediary when the leg crosses jurisdictions.
const minCorrespondentNodes = 3

type legResolution int

const (
	legUnresolved legResolution = iota
	legProposed
	legConfirmed
)

func (e BankingEvaluator) Evaluate(d *deal.Record, _ Results) (Result, error) {
	res := Result{EvaluatorID: e.ID(), SubScores: map[string]float64{}}

	if len(d.SettlementLegs) == 0 {
		res.Status = StatusGrey
		return res, nil
	}

	// Per-entity resolution: confirmed bank, proposed candidate, or nothing.
	// Memoized per entity so one on several legs gets a single proposal.
	resolved := make(map[string]legResolution)
	resolve := func(ent *deal.EntityProfile) legResolution {
		if ent == nil {
			return legUnresolved
		}
		if r, ok := resolved[ent.ID]; ok {
			return r
		}
		r := legUnresolved
		switch {
		case ent.IsBank:
			r = legConfirmed // banks self-clear
		case ent.Banking.SettlementBank != "" && ent.Banking.Confirmed:
			r = legConfirmed
		case ent.Banking.SettlementBank != "":
			r = legProposed
		default:
			candidates := bankDirectory[baseJurisdiction(ent.Jurisdiction)]
			if len(candidates) == 0 {
				candidates = defaultCandidates
			}
			if len(candidates) > 0 {
				res.Findings = append(res.Findings, Finding{
					Severity:    SeverityActionRequired,
					Message:     fmt.Sprintf("%s has no settlement bank; proposing %s [%s]", ent.LegalName, candidates[0].Name, candidates[0].Swift),
					Remediation: fmt.Sprintf("open a settlement account with %s", candidates[0].Name),
				})
				r = legProposed
			}
		}
		resolved[ent.ID] = r
		return r
	}

	confirmed, proposed, unresolved := 0, 0, 0
	for _, leg := range d.SettlementLegs {
		payer := resolve(d.Entity(leg.PayerID))
		payee := resolve(d.Entity(leg.PayeeID))

		worst := payer
		if payee < worst {
			worst = payee
		}
		switch worst {
		case legConfirmed:
			// A confirmed cross-border leg still needs a correspondent path
			// of the minimum node count.
			if e.pathNodes(d, leg) < e.requiredNodes(d, leg) {
				proposed++
				res.Findings = append(res.Findings, Finding{
					Severity:    SeverityActionRequired,
					Message:     fmt.Sprintf("settlement leg %s->%s lacks a correspondent path of %d nodes", leg.PayerID, leg.PayeeID, e.requiredNodes(d, leg)),
					Remediation: "establish a correspondent relationship for the leg",
				})
			} else {
				confirmed++
			}
		case legProposed:
			proposed++
		default:
			unresolved++
			res.Findings = append(res.Findings, Finding{
				Severity:    SeverityCritical,
				Message:     fmt.Sprintf("settlement leg %s->%s has no bank, real or proposed", leg.PayerID, leg.PayeeID),
				Remediation: "onboard both counterparts with settlement banking",
			})
		}
	}

	total := len(d.SettlementLegs)
	res.Score = clampScore(float64(confirmed) / float64(total) * 100)
	res.SubScores["completeness"] = res.Score
	res.SubScores["proposed_legs"] = float64(proposed)
	switch {
	case unresolved > 0:
		res.Status = StatusRed
	case proposed > 0:
		res.Status = StatusAmber
	default:
		res.Status = StatusGreen
	}
	return res, nil
}

// requiredNodes returns the minimum correspondent path length for a leg:
// same-jurisdiction legs settle endpoint to endpoint, cross-border legs need
// an intermediary.
func (BankingEvaluator) requiredNodes(d *deal.Record, leg deal.SettlementLeg) int {
	payer, payee := d.Entity(leg.PayerID), d.Entity(leg.PayeeID)
	if payer == nil || payee == nil {
		return minCorrespondentNodes
	}
	if baseJurisdiction(payer.Jurisdiction) == baseJurisdiction(payee.Jurisdiction) {
		return 2
	}
	return minCorrespondentNodes
}

// pathNodes counts the nodes available on a leg: the two settlement banks
// plus one correspondent intermediary whenever either bank is internationally
// networked (GSIB or international tier by directory lookup).
func (BankingEvaluator) pathNodes(d *deal.Record, leg deal.SettlementLeg) int {
	nodes := 0
	international := false
	for _, id := range []string{leg.PayerID, leg.PayeeID} {
		ent := d.Entity(id)
		if ent == nil {
			continue
		}
		if ent.IsBank || ent.Banking.SettlementBank != "" {
			nodes++
			if tier := directoryTier(ent.Banking.SwiftCode); tier == "GSIB" || tier == "INTERNATIONAL" {
				international = true
			}
		}
	}
	if international {
		nodes++
	}
	return nodes
}

func directoryTier(swift string) string {
	for _, candidates := range bankDirectory {
		for _, c := range candidates {
			if c.Swift == swift {
				return c.Tier
			}
		}
	}
	return ""
}
