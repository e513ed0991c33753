package deal

import "time"

// TransactionCategory selects the rubric weights and filing requirements
// applied by the evaluators.
type TransactionCategory string

const (
	CategorySecuredNote   TransactionCategory = "secured_note"
	CategoryUnsecuredNote TransactionCategory = "unsecured_note"
	CategoryEscrowedSale  TransactionCategory = "escrowed_sale"
)

// EvidenceStatus is supplied by the evidence collaborator before a run; the
// engine never touches the filesystem itself.
type EvidenceStatus string

const (
	EvidencePresent EvidenceStatus = "PRESENT"
	EvidenceMissing EvidenceStatus = "MISSING"
	EvidenceStale   EvidenceStatus = "STALE"
)

// License held by an entity.
type License struct {
	Authority string `json:"authority"`
	Number    string `json:"number"`
	Status    string `json:"status"`    // active, lapsed, pending
}

// BeneficialOwner of an entity, with screening metadata.
type BeneficialOwner struct {
	Name              string     `json:"name"`
	OwnershipPct      float64    `json:"ownershipPct"`
	Disclosed         bool       `json:"disclosed"`
	SanctionsScreened bool       `json:"sanctionsScreened"`
	ScreenedAt        *time.Time `json:"screenedAt,omitempty"`
	SanctionsCode     string     `json:"sanctionsCode,omitempty"` // non-empty means a static-list hit
}

// Banking attributes for settlement.
type Banking struct {
	SettlementBank string `json:"settlementBank"`
	SwiftCode      string `json:"swiftCode"`
	RoutingNumber  string `json:"routingNumber,omitempty"`
	AccountNumber  string `json:"accountNumber,omitempty"`
	Confirmed      bool   `json:"confirmed"`
}

// EntityProfile is one participant in the deal. Validated upstream; the
// engine reads it but never mutates it.
type EntityProfile struct {
	ID               string            `json:"id"`
	LegalName        string            `json:"legalName"`
	Jurisdiction     string            `json:"jurisdiction"`               // ISO country, optionally with region suffix (US-DE)
	EntityType       string            `json:"entityType"`                 // issuer, special_purpose_vehicle, counterparty, bank
	IsBank           bool              `json:"isBank"`
	IsRegulated      bool              `json:"isRegulated"`
	Licenses         []License         `json:"licenses,omitempty"`
	BeneficialOwners []BeneficialOwner `json:"beneficialOwners,omitempty"`
	Signatories      []string          `json:"signatories,omitempty"`
	BoardResolution  bool              `json:"boardResolution"`
	Banking          Banking           `json:"banking"`
	Litigation       []string          `json:"litigation,omitempty"`       // open matters, identifiers only
	EvidenceRefs     []string          `json:"evidenceRefs,omitempty"`
}

// NoteProgram describes the note program under validation.
type NoteProgram struct {
	Name             string         `json:"name"`
	MaxOffering      float64        `json:"maxOffering"`
	CouponRate       float64        `json:"couponRate"`
	MaturityDate     *time.Time     `json:"maturityDate,omitempty"`
	SettlementMethod string         `json:"settlementMethod"`
	Secured          bool           `json:"secured"`
	Series           []Series       `json:"series,omitempty"`
	TransferAgent    *TransferAgent `json:"transferAgent,omitempty"`
	InsuredAmount    float64        `json:"insuredAmount"`
	LegalOpinions    []LegalOpinion `json:"legalOpinions,omitempty"`
}

// Series is one registered tranche of the program.
type Series struct {
	ID   string `json:"id"`
	Type string `json:"type"` // 144A, REG_S
}

// TransferAgent and the roles it is confirmed for.
type TransferAgent struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// LegalOpinion on file for the program.
type LegalOpinion struct {
	Counsel          string `json:"counsel"`
	Jurisdiction     string `json:"jurisdiction"`
	Signed           bool   `json:"signed"`
	CoversCollateral bool   `json:"coversCollateral"`
}

// CollateralSchedule describes the issuer -> SPV -> filing chain.
type CollateralSchedule struct {
	GrantorID          string  `json:"grantorId"`          // must reference the SPV
	SecuredPartyID     string  `json:"securedPartyId"`     // issuer or trustee
	FilingType         string  `json:"filingType"`         // UCC-1, charge, none
	FilingJurisdiction string  `json:"filingJurisdiction"`
	PledgedValue       float64 `json:"pledgedValue"`
	OutstandingValue   float64 `json:"outstandingValue"`
	LTVHaircutPct      float64 `json:"ltvHaircutPct"`
}

// EscrowTerms declared on the transaction, if any.
type EscrowTerms struct {
	Currency         string `json:"currency"`
	ReleaseMechanism string `json:"releaseMechanism"`
	AgentEntityID    string `json:"agentEntityId,omitempty"` // empty until an agent is confirmed
}

// ConditionStatus of a closing condition.
type ConditionStatus string

const (
	ConditionOpen              ConditionStatus = "OPEN"
	ConditionAutoSatisfied     ConditionStatus = "AUTO_SATISFIED"
	ConditionManuallySatisfied ConditionStatus = "MANUALLY_SATISFIED"
	ConditionWaived            ConditionStatus = "WAIVED"
)

// GatePredicate ties a condition to a dashboard gate. All set clauses must
// hold. Manual conditions carry a nil predicate.
type GatePredicate struct {
	Gate      string         `json:"gate"`                // evaluator id
	MinStatus string         `json:"minStatus,omitempty"` // GREEN/AMBER; empty means no status clause
	MinScore  float64        `json:"minScore,omitempty"`  // 0 means no score clause
	And       *GatePredicate `json:"and,omitempty"`
}

// Condition is a discrete closing requirement.
type Condition struct {
	ID              string          `json:"id"`
	Description     string          `json:"description"`
	Predicate       *GatePredicate  `json:"predicate,omitempty"`       // nil => manual
	Status          ConditionStatus `json:"status"`
	EvidenceRef     string          `json:"evidenceRef,omitempty"`
	SatisfiedAtSnap int64           `json:"satisfiedAtSnap,omitempty"` // snapshot version that auto-satisfied it, 0 otherwise
	SatisfiedBy     string          `json:"satisfiedBy,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// Resolved reports whether the condition no longer blocks closing.
func (c Condition) Resolved() bool {
	return c.Status != ConditionOpen
}

// AutoCheckable reports whether the feedback loop may touch this condition.
func (c Condition) AutoCheckable() bool {
	return c.Predicate != nil
}

// SettlementLeg is a required direct counterpart pair.
type SettlementLeg struct {
	PayerID  string `json:"payerId"`
	PayeeID  string `json:"payeeId"`
	Currency string `json:"currency"`
}

// JurisdictionRule is one row of the regulatory matrix, preloaded by the
// jurisdiction collaborator.
type JurisdictionRule struct {
	RequiredLicenses []string `json:"requiredLicenses,omitempty"`
	AMLRegime        string   `json:"amlRegime"`
	SanctionsBodies  []string `json:"sanctionsBodies,omitempty"`
	FilingRequired   bool     `json:"filingRequired"`             // security-interest filing required for perfection
	RiskLevel        string   `json:"riskLevel"`                  // LOW, MEDIUM, HIGH, CRITICAL
}

// Record is the immutable snapshot a single dashboard run evaluates.
// Evaluators never mutate it; the orchestrating caller owns it.
type Record struct {
	ID                  string                      `json:"id"`
	Name                string                      `json:"name"`
	Category            TransactionCategory         `json:"category"`
	PrimaryJurisdiction string                      `json:"primaryJurisdiction"`
	Entities            []EntityProfile             `json:"entities"`
	Program             *NoteProgram                `json:"program,omitempty"`
	Collateral          *CollateralSchedule         `json:"collateral,omitempty"`
	Escrow              *EscrowTerms                `json:"escrow,omitempty"`
	Conditions          []Condition                 `json:"conditions,omitempty"`
	SettlementLegs      []SettlementLeg             `json:"settlementLegs,omitempty"`
	Evidence            map[string]EvidenceStatus   `json:"evidence,omitempty"`
	Jurisdictions       map[string]JurisdictionRule `json:"jurisdictions,omitempty"`
	CreatedAt           time.Time                   `json:"createdAt"`
}

// Entity returns the profile with the given id, or nil.
func (r *Record) Entity(id string) *EntityProfile {
	for i := range r.Entities {
		if r.Entities[i].ID == id {
			return &r.Entities[i]
		}
	}
	return nil
}

// Rule looks up the jurisdiction rule for a (possibly region-suffixed) code.
// Falls back to the base country when the exact code has no row.
func (r *Record) Rule(jurisdiction string) (JurisdictionRule, bool) {
	if rule, ok := r.Jurisdictions[jurisdiction]; ok {
		return rule, true
	}
	if len(jurisdiction) > 2 {
		rule, ok := r.Jurisdictions[jurisdiction[:2]]
		return rule, ok
	}
	return JurisdictionRule{}, false
}
