package engine

import (
	"time"

	"dealgate/deal"
)

var fixtureCreated = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

// healthyRecord builds a secured-note deal that clears every gate: program,
// collateral, governance, banking and risk come out GREEN; closing and
// escrow are GREY because the fixture declares no conditions or escrow
// terms. Tests mutate the copy they get.
func healthyRecord() *deal.Record {
	maturity := fixtureCreated.AddDate(5, 0, 0)
	screened := fixtureCreated.Add(-30 * 24 * time.Hour)

	return &deal.Record{
		ID:                  "deal-1",
		Name:                "Meridian Secured Note",
		Category:            deal.CategorySecuredNote,
		PrimaryJurisdiction: "US-DE",
		CreatedAt:           fixtureCreated,
		Entities: []deal.EntityProfile{
			{
				ID: "issuer", LegalName: "Meridian Capital LLC", Jurisdiction: "US-DE",
				EntityType: "issuer", IsRegulated: true,
				Licenses: []deal.License{{Authority: "SEC", Number: "801-12345", Status: "active"}},
				BeneficialOwners: []deal.BeneficialOwner{
					{Name: "R. Vance", OwnershipPct: 100, Disclosed: true, SanctionsScreened: true, ScreenedAt: &screened},
				},
				Signatories:     []string{"cfo", "treasurer"},
				BoardResolution: true,
				Banking:         deal.Banking{SettlementBank: "JPMorgan Chase Bank, N.A.", SwiftCode: "CHASUS33", Confirmed: true},
			},
			{
				ID: "spv", LegalName: "Meridian Funding SPV", Jurisdiction: "US-DE",
				EntityType:  "special_purpose_vehicle",
				Signatories: []string{"director-1", "director-2"}, BoardResolution: true,
			},
			{
				ID: "bank", LegalName: "The Bank of New York Mellon", Jurisdiction: "US",
				EntityType: "bank", IsBank: true,
				Signatories: []string{"officer-1", "officer-2"}, BoardResolution: true,
				Banking: deal.Banking{SettlementBank: "The Bank of New York Mellon", SwiftCode: "IRVTUS3N", Confirmed: true},
			},
		},
		Program: &deal.NoteProgram{
			Name: "Meridian MTN Program", MaxOffering: 100_000_000, CouponRate: 5.25,
			MaturityDate: &maturity, SettlementMethod: "DVP", Secured: true,
			Series: []deal.Series{{ID: "2026-1", Type: "144A"}, {ID: "2026-2", Type: "REG_S"}},
			TransferAgent: &deal.TransferAgent{
				Name:  "Continental Trust",
				Roles: []string{"Transfer Agent", "Escrow Agent", "Paying Agent"},
			},
			InsuredAmount: 15_000_000,
			LegalOpinions: []deal.LegalOpinion{
				{Counsel: "Harrow & Bell LLP", Jurisdiction: "US-DE", Signed: true, CoversCollateral: true},
			},
		},
		Collateral: &deal.CollateralSchedule{
			GrantorID: "spv", SecuredPartyID: "issuer",
			FilingType: "UCC-1", FilingJurisdiction: "US-DE",
			PledgedValue: 120_000_000, OutstandingValue: 80_000_000, LTVHaircutPct: 20,
		},
		SettlementLegs: []deal.SettlementLeg{{PayerID: "issuer", PayeeID: "bank", Currency: "USD"}},
		Jurisdictions: map[string]deal.JurisdictionRule{
			"US": {RequiredLicenses: []string{"SEC"}, AMLRegime: "BSA", FilingRequired: true, RiskLevel: "LOW"},
		},
	}
}

// upstreamGreen fabricates the upstream results a dependent evaluator needs.
func upstreamGreen() Results {
	return Results{
		"program": {EvaluatorID: "program", Score: 100, Status: StatusGreen,
			SubScores: map[string]float64{"checks_passed": 17, "checks_total": 17}},
		"collateral": {EvaluatorID: "collateral", Score: 100, Status: StatusGreen,
			SubScores: map[string]float64{"chain_integrity": 100}},
		"banking": {EvaluatorID: "banking", Score: 100, Status: StatusGreen,
			SubScores: map[string]float64{"completeness": 100, "proposed_legs": 0}},
	}
}
