// Package memory keeps the long-term diplomatic memory of each realm: per-pair event
// ledgers with decaying weights, milestone trackers, and the data-driven impact table
// that gives each event type its default weight.
package memory

import (
	"math"

	"github.com/google/uuid"

	"github.com/talgya/concord/internal/realm"
)

// Category groups event types. A type's category is its code divided by 100.
type Category uint8

const (
	CategoryMilitary Category = iota
	CategoryEconomic
	CategoryDiplomatic
	CategoryPersonal
	CategoryDynastic
	CategoryTerritorial
	CategoryReligious
	CategoryBetrayal
)

var categoryNames = [...]string{
	"military", "economic", "diplomatic", "personal",
	"dynastic", "territorial", "religious", "betrayal",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

// Severity ranks how much an event matters.
type Severity uint8

const (
	SeverityTrivial Severity = iota
	SeverityMinor
	SeverityModerate
	SeverityMajor
	SeverityCritical
)

var severityNames = [...]string{"trivial", "minor", "moderate", "major", "critical"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "unknown"
}

// EventType identifies a kind of remembered occurrence. Codes are grouped by hundreds.
type EventType uint16

const (
	WarDeclared          EventType = 0
	WarWon               EventType = 1
	WarLost              EventType = 2
	BattleWonTogether    EventType = 3
	BattleLostTogether   EventType = 4
	MilitaryAidProvided  EventType = 5
	MilitaryAidRefused   EventType = 6
	SiegeAssisted        EventType = 7
	TroopsGrantedPassage EventType = 8
	TroopsDeniedPassage  EventType = 9

	TradeAgreementSigned EventType = 100
	TradeAgreementBroken EventType = 101
	GiftSent             EventType = 102
	GiftReceived         EventType = 103
	LoanGranted          EventType = 104
	LoanRepaid           EventType = 105
	LoanDefaulted        EventType = 106
	TradeEmbargoImposed  EventType = 107
	EconomicAidProvided  EventType = 108

	AllianceFormed       EventType = 200
	AllianceBroken       EventType = 201
	TreatySigned         EventType = 202
	TreatyViolated       EventType = 203
	TreatyHonored        EventType = 204
	EmbassyEstablished   EventType = 205
	EmbassyClosed        EventType = 206
	DiplomaticInsult     EventType = 207
	ApologyGiven         EventType = 208
	MediationSuccessful  EventType = 209
	PeaceSigned          EventType = 210
	InfluenceStandoff    EventType = 211
	InfluenceWithdrawal  EventType = 212

	RulerFriendshipFormed EventType = 300
	RulerRivalryFormed    EventType = 301
	PersonalFavorGranted  EventType = 302
	PersonalBetrayal      EventType = 303
	RulerSavedLife        EventType = 304
	RulerHumiliated       EventType = 305

	MarriageArranged       EventType = 400
	MarriageRefused        EventType = 401
	HeirBornFromMarriage   EventType = 402
	SuccessionSupported    EventType = 403
	SuccessionOpposed      EventType = 404
	DynasticClaimPressed   EventType = 405
	DynasticClaimRenounced EventType = 406

	TerritoryCeded          EventType = 500
	TerritorySeized         EventType = 501
	BorderAgreementSigned   EventType = 502
	BorderViolated          EventType = 503
	TerritorialClaimMade    EventType = 504
	TerritorialClaimDropped EventType = 505

	ConversionSupported  EventType = 600
	ReligiousPersecution EventType = 601
	HolySiteReturned     EventType = 602
	HolySiteSeized       EventType = 603
	CrusadeAlly          EventType = 604
	CrusadeEnemy         EventType = 605

	StabbedInBack          EventType = 700
	AllyAbandoned          EventType = 701
	SecretAllianceRevealed EventType = 702
	SpyCaught              EventType = 703
	AssassinationAttempted EventType = 704
)

var eventNames = map[EventType]string{
	WarDeclared: "war_declared", WarWon: "war_won", WarLost: "war_lost",
	BattleWonTogether: "battle_won_together", BattleLostTogether: "battle_lost_together",
	MilitaryAidProvided: "military_aid_provided", MilitaryAidRefused: "military_aid_refused",
	SiegeAssisted: "siege_assisted", TroopsGrantedPassage: "troops_granted_passage",
	TroopsDeniedPassage: "troops_denied_passage",

	TradeAgreementSigned: "trade_agreement_signed", TradeAgreementBroken: "trade_agreement_broken",
	GiftSent: "gift_sent", GiftReceived: "gift_received", LoanGranted: "loan_granted",
	LoanRepaid: "loan_repaid", LoanDefaulted: "loan_defaulted",
	TradeEmbargoImposed: "trade_embargo_imposed", EconomicAidProvided: "economic_aid_provided",

	AllianceFormed: "alliance_formed", AllianceBroken: "alliance_broken",
	TreatySigned: "treaty_signed", TreatyViolated: "treaty_violated", TreatyHonored: "treaty_honored",
	EmbassyEstablished: "embassy_established", EmbassyClosed: "embassy_closed",
	DiplomaticInsult: "diplomatic_insult", ApologyGiven: "apology_given",
	MediationSuccessful: "mediation_successful", PeaceSigned: "peace_signed",
	InfluenceStandoff: "influence_standoff", InfluenceWithdrawal: "influence_withdrawal",

	RulerFriendshipFormed: "ruler_friendship_formed", RulerRivalryFormed: "ruler_rivalry_formed",
	PersonalFavorGranted: "personal_favor_granted", PersonalBetrayal: "personal_betrayal",
	RulerSavedLife: "ruler_saved_life", RulerHumiliated: "ruler_humiliated",

	MarriageArranged: "marriage_arranged", MarriageRefused: "marriage_refused",
	HeirBornFromMarriage: "heir_born_from_marriage", SuccessionSupported: "succession_supported",
	SuccessionOpposed: "succession_opposed", DynasticClaimPressed: "dynastic_claim_pressed",
	DynasticClaimRenounced: "dynastic_claim_renounced",

	TerritoryCeded: "territory_ceded", TerritorySeized: "territory_seized",
	BorderAgreementSigned: "border_agreement_signed", BorderViolated: "border_violated",
	TerritorialClaimMade: "territorial_claim_made", TerritorialClaimDropped: "territorial_claim_dropped",

	ConversionSupported: "conversion_supported", ReligiousPersecution: "religious_persecution",
	HolySiteReturned: "holy_site_returned", HolySiteSeized: "holy_site_seized",
	CrusadeAlly: "crusade_ally", CrusadeEnemy: "crusade_enemy",

	StabbedInBack: "stabbed_in_back", AllyAbandoned: "ally_abandoned",
	SecretAllianceRevealed: "secret_alliance_revealed", SpyCaught: "spy_caught",
	AssassinationAttempted: "assassination_attempted",
}

func (t EventType) String() string {
	if n, ok := eventNames[t]; ok {
		return n
	}
	return "unknown"
}

// Category derives the event's category from its code.
func (t EventType) Category() Category {
	c := int(t) / 100
	if c > int(CategoryBetrayal) {
		return CategoryBetrayal
	}
	return Category(c)
}

// ParseEventType resolves a name as produced by String.
func ParseEventType(name string) (EventType, bool) {
	for t, n := range eventNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Event is one remembered occurrence between two realms.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Category    Category  `json:"category"`
	Severity    Severity  `json:"severity"`
	Actor       realm.ID  `json:"actor"`
	Target      realm.ID  `json:"target"`
	Month       int       `json:"month"`
	Description string    `json:"description,omitempty"`

	OpinionImpact  int     `json:"opinion_impact"`
	TrustImpact    float64 `json:"trust_impact"`
	PrestigeImpact float64 `json:"prestige_impact,omitempty"`

	DecayRate float64 `json:"decay_rate"`
	Weight    float64 `json:"weight"`
	Permanent bool    `json:"permanent,omitempty"`
}

// NewEvent builds an event with the impact table's defaults for its type.
func NewEvent(typ EventType, actor, target realm.ID, month int, impacts Impacts) Event {
	imp := impacts.For(typ)
	return Event{
		ID:             uuid.NewString(),
		Type:           typ,
		Category:       typ.Category(),
		Severity:       imp.Severity,
		Actor:          actor,
		Target:         target,
		Month:          month,
		OpinionImpact:  imp.Opinion,
		TrustImpact:    imp.Trust,
		PrestigeImpact: imp.Prestige,
		DecayRate:      imp.DecayRate,
		Weight:         1.0,
		Permanent:      imp.Permanent,
	}
}

const (
	weightFloor     = 0.01
	forgottenWeight = 0.05
)

// ApplyDecay shrinks a non-permanent event's weight by (1-rate)^months. Weights under
// 1% snap to zero.
func (e *Event) ApplyDecay(months int) {
	if e.Permanent || months <= 0 {
		return
	}
	e.Weight *= math.Pow(1-e.DecayRate, float64(months))
	if e.Weight < weightFloor {
		e.Weight = 0
	}
}

// Forgotten reports whether the event no longer carries meaningful weight.
func (e *Event) Forgotten() bool {
	return !e.Permanent && e.Weight < forgottenWeight
}

// CurrentOpinion is the event's present opinion contribution.
func (e *Event) CurrentOpinion() int {
	if e.Permanent {
		return e.OpinionImpact
	}
	return int(float64(e.OpinionImpact) * e.Weight)
}

// CurrentTrust is the event's present trust contribution.
func (e *Event) CurrentTrust() float64 {
	if e.Permanent {
		return e.TrustImpact
	}
	return e.TrustImpact * e.Weight
}

// MonthsToForget is how many months of decay a non-permanent event at rate d needs
// before it is forgotten.
func MonthsToForget(d float64) int {
	if d <= 0 {
		return -1
	}
	if d >= 1 {
		return 1
	}
	return int(math.Ceil(math.Log(forgottenWeight) / math.Log(1-d)))
}
