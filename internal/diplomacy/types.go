// Package diplomacy holds bilateral realm relationships: the opinion/trust calculator,
// the relationship store with its treaties and proposals, and the action handlers that
// mutate it.
package diplomacy

// Relation is the category of a relationship as seen from one side.
type Relation uint8

const (
	RelationNeutral Relation = iota
	RelationAllied
	RelationFriendly
	RelationUnfriendly
	RelationHostile
	RelationAtWar
)

var relationNames = [...]string{"neutral", "allied", "friendly", "unfriendly", "hostile", "at_war"}

func (r Relation) String() string {
	if int(r) < len(relationNames) {
		return relationNames[r]
	}
	return "unknown"
}

// TreatyType enumerates formal agreements.
type TreatyType uint8

const (
	TreatyNonAggression TreatyType = iota
	TreatyTrade
	TreatyAlliance
	TreatyMarriagePact
	TreatyTribute
	TreatyBorder
	TreatyMilitaryAccess
	TreatyDefensiveLeague
)

var treatyNames = [...]string{
	"non_aggression", "trade_agreement", "alliance", "marriage_pact",
	"tribute", "border_agreement", "military_access", "defensive_league",
}

func (t TreatyType) String() string {
	if int(t) < len(treatyNames) {
		return treatyNames[t]
	}
	return "unknown"
}

// Personality drives a realm's diplomatic temperament.
type Personality uint8

const (
	PersonalityPragmatic Personality = iota
	PersonalityAggressive
	PersonalityDiplomatic
	PersonalityIsolationist
	PersonalityOpportunistic
	PersonalityHonorable
	PersonalityTreacherous
	PersonalityMercantile
	PersonalityReligious
	PersonalityForgiving
	PersonalityVengeful
	PersonalityExpansionist
	PersonalityMilitaristic
	PersonalityDefensive
	PersonalityPeaceful
)

var personalityNames = [...]string{
	"pragmatic", "aggressive", "diplomatic", "isolationist", "opportunistic",
	"honorable", "treacherous", "mercantile", "religious", "forgiving",
	"vengeful", "expansionist", "militaristic", "defensive", "peaceful",
}

func (p Personality) String() string {
	if int(p) < len(personalityNames) {
		return personalityNames[p]
	}
	return "unknown"
}

// PersonalityCount is the number of defined personalities.
const PersonalityCount = len(personalityNames)

// Action is a diplomatic occurrence that moves opinion.
type Action uint8

const (
	ActionAllianceFormed Action = iota
	ActionAllianceBroken
	ActionWarDeclared
	ActionPeaceSigned
	ActionTradeAgreement
	ActionMarriageArranged
	ActionGiftSent
	ActionEmbassyEstablished
	ActionEmbassyRecalled
	ActionTreatyHonored
	ActionTreatyViolated
	ActionBorderIncident
	ActionInsultGiven
	ActionPraiseGiven
)

var actionNames = [...]string{
	"alliance formed", "alliance broken", "war declared", "peace signed",
	"trade agreement", "marriage arranged", "gift sent", "embassy established",
	"embassy recalled", "treaty honored", "treaty violated", "border incident",
	"insult given", "praise given",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "unknown"
}

// Incident is a trust-affecting occurrence.
type Incident uint8

const (
	IncidentTreatyBreach Incident = iota
	IncidentBetrayal
	IncidentMilitaryAggression
	IncidentEspionageDiscovered
	IncidentHonoringAlliance
	IncidentKeepingPromise
	IncidentDiplomaticSupport
	IncidentTradeFulfilled
)

// Move is something a realm can do or propose. Moves carry cooldowns.
type Move uint8

const (
	MoveProposeAlliance Move = iota
	MoveProposeTrade
	MoveProposeNonAggression
	MoveDeclareWar
	MoveOfferPeace
	MoveArrangeMarriage
	MoveSendGift
	MoveEstablishEmbassy
	MoveRecallEmbassy
	MoveInsult
	MoveBreakAlliance
	MoveSecretPact
)

var moveNames = [...]string{
	"propose_alliance", "propose_trade", "propose_non_aggression", "declare_war",
	"offer_peace", "arrange_marriage", "send_gift", "establish_embassy",
	"recall_embassy", "insult", "break_alliance", "secret_pact",
}

func (m Move) String() string {
	if int(m) < len(moveNames) {
		return moveNames[m]
	}
	return "unknown"
}

// ParseMove resolves a move name as produced by String.
func ParseMove(s string) (Move, bool) {
	for i, n := range moveNames {
		if n == s {
			return Move(i), true
		}
	}
	return 0, false
}

// CasusBelli is the stated justification for a war.
type CasusBelli uint8

const (
	CasusNone CasusBelli = iota
	CasusBorderDispute
	CasusTradeInterference
	CasusDynasticClaim
	CasusReligiousConflict
	CasusInsultToHonor
	CasusProtectionOfAlly
	CasusReconquest
)

var casusNames = [...]string{
	"none", "border_dispute", "trade_interference", "dynastic_claim",
	"religious_conflict", "insult_to_honor", "protection_of_ally", "reconquest",
}

func (c CasusBelli) String() string {
	if int(c) < len(casusNames) {
		return casusNames[c]
	}
	return "unknown"
}
