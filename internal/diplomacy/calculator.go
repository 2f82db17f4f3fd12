// Opinion/trust calculator — pure functions from an occurrence and current state to a delta.
package diplomacy

import (
	"math"

	"github.com/talgya/concord/internal/realm"
)

// Standing is the slice of a relationship the calculator reads.
type Standing struct {
	Opinion int     `json:"opinion"`
	Trust   float64 `json:"trust"`
}

// Profile is the realm-level state the calculator reads.
type Profile struct {
	ID               realm.ID    `json:"id"`
	Personality      Personality `json:"personality"`
	Prestige         float64     `json:"prestige"`
	Reputation       float64     `json:"reputation"`
	WarWeariness     float64     `json:"war_weariness"`
	Alliances        int         `json:"alliances"`
	Marriages        int         `json:"marriages"`
	HostileRelations int         `json:"hostile_relations"`
	Wars             int         `json:"wars"`
}

// opinionBase is the base opinion delta per action. Gifts are scaled separately.
var opinionBase = map[Action]int{
	ActionAllianceFormed:     20,
	ActionAllianceBroken:     -30,
	ActionWarDeclared:        -50,
	ActionPeaceSigned:        10,
	ActionTradeAgreement:     5,
	ActionMarriageArranged:   20,
	ActionEmbassyEstablished: 10,
	ActionEmbassyRecalled:    -15,
	ActionTreatyHonored:      1,
	ActionTreatyViolated:     -30,
	ActionBorderIncident:     -5,
	ActionInsultGiven:        -10,
	ActionPraiseGiven:        5,
}

var trustIncidents = map[Incident]float64{
	IncidentTreatyBreach:        -0.3,
	IncidentBetrayal:            -0.5,
	IncidentMilitaryAggression:  -0.2,
	IncidentEspionageDiscovered: -0.15,
	IncidentHonoringAlliance:    0.1,
	IncidentKeepingPromise:      0.05,
	IncidentDiplomaticSupport:   0.08,
	IncidentTradeFulfilled:      0.02,
}

// Trust gains are scaled down: trust is harder to earn than to lose.
const trustGainScale = 0.7

var warBase = map[Personality]float64{
	PersonalityAggressive:   0.6,
	PersonalityExpansionist: 0.5,
	PersonalityMilitaristic: 0.55,
	PersonalityDefensive:    0.2,
	PersonalityPeaceful:     0.1,
	PersonalityDiplomatic:   0.15,
	PersonalityPragmatic:    0.3,
}

var tradePreference = map[Personality]float64{
	PersonalityMercantile:   0.9,
	PersonalityPragmatic:    0.7,
	PersonalityDiplomatic:   0.6,
	PersonalityIsolationist: 0.2,
	PersonalityAggressive:   0.3,
}

var alliancePreference = map[Personality]float64{
	PersonalityDiplomatic:   0.9,
	PersonalityDefensive:    0.8,
	PersonalityPragmatic:    0.7,
	PersonalityIsolationist: 0.2,
	PersonalityTreacherous:  0.4,
}

// OpinionDelta returns the opinion change an action causes given the current standing.
// Low trust amplifies harm and dampens goodwill.
func OpinionDelta(cur Standing, action Action, magnitude float64) int {
	var base int
	if action == ActionGiftSent {
		base = int(5.0 + magnitude*2.5)
	} else {
		base = opinionBase[action]
	}

	change := int(float64(base) * magnitude)
	trust := clamp01(cur.Trust)
	if change > 0 {
		change = int(float64(change) * (0.5 + 0.5*trust))
	} else if change < 0 {
		change = int(float64(change) * (1.5 - 0.5*trust))
	}
	return change
}

// OpinionDecay returns the change that drifts opinion toward zero over the elapsed months.
// The result never overshoots zero.
func OpinionDecay(opinion, months int, p Personality) int {
	if months <= 0 || opinion == 0 {
		return 0
	}

	rate := 0.1 * float64(months)
	switch p {
	case PersonalityForgiving:
		rate *= 1.5
	case PersonalityVengeful:
		rate *= 0.5
	case PersonalityPragmatic:
		rate *= 1.2
	}

	step := int(math.Ceil(rate))
	if opinion > 0 {
		return -min(step, opinion)
	}
	return min(step, -opinion)
}

// TrustDelta returns the trust change for an incident.
func TrustDelta(incident Incident) float64 {
	d := trustIncidents[incident]
	if d > 0 {
		d *= trustGainScale
	}
	return d
}

// PersonalityWarBase is the baseline appetite for war.
func PersonalityWarBase(p Personality) float64 {
	if v, ok := warBase[p]; ok {
		return v
	}
	return 0.25
}

// TradePreference is how strongly a personality favours trade.
func TradePreference(p Personality) float64 {
	if v, ok := tradePreference[p]; ok {
		return v
	}
	return 0.5
}

// AlliancePreference is how strongly a personality favours alliances.
func AlliancePreference(p Personality) float64 {
	if v, ok := alliancePreference[p]; ok {
		return v
	}
	return 0.6
}

// WarLikelihood estimates how likely the aggressor is to start a war, in [0,1].
func WarLikelihood(aggressor Profile, opinion int, prestigeDiff float64) float64 {
	l := PersonalityWarBase(aggressor.Personality)

	switch {
	case opinion < -50:
		l += 0.4
	case opinion < -25:
		l += 0.2
	case opinion < 0:
		l += 0.1
	default:
		l -= 0.2
	}

	l -= aggressor.WarWeariness * 0.5

	if prestigeDiff > 50 {
		l += 0.1
	} else if prestigeDiff < -50 {
		l -= 0.2
	}

	return clamp01(l)
}

// Prestige derives diplomatic prestige from reputation and standing commitments.
func Prestige(p Profile) float64 {
	v := p.Reputation*50 +
		float64(p.Alliances)*10 +
		float64(p.Marriages)*15 -
		float64(p.HostileRelations)*5 -
		p.WarWeariness*25
	return math.Max(0, v)
}

// AllianceValue scores a prospective ally in [0,1].
func AllianceValue(candidate Profile) float64 {
	v := 0.5 + candidate.Prestige/200 + (candidate.Reputation-1.0)*0.3 - candidate.WarWeariness*0.3
	return clamp01(v)
}

// TradeTermsAcceptability scores trade terms in [0,1]. Goodwill counts double the weight
// of ill will.
func TradeTermsAcceptability(opinion int, bonus float64) float64 {
	v := 0.5 + bonus/100
	if opinion > 0 {
		v += float64(opinion) / 200
	} else {
		v += float64(opinion) / 400
	}
	return clamp01(v)
}

// BaseOpinion is the compatibility baseline two realms drift toward.
func BaseOpinion(a, b Profile) int {
	base := 0
	if a.Personality == b.Personality {
		base += 10
	}
	if a.Personality == PersonalityDiplomatic && b.Personality == PersonalityDiplomatic {
		base += 15
	}
	if (a.Personality == PersonalityAggressive && b.Personality == PersonalityPeaceful) ||
		(a.Personality == PersonalityPeaceful && b.Personality == PersonalityAggressive) {
		base -= 10
	}
	diff := a.Prestige - b.Prestige
	if diff > 50 {
		base -= 5
	} else if diff < -50 {
		base += 5
	}
	return base
}

// OpinionDescription renders an opinion value as a word.
func OpinionDescription(opinion int) string {
	switch {
	case opinion >= 75:
		return "Excellent"
	case opinion >= 50:
		return "Very Good"
	case opinion >= 25:
		return "Good"
	case opinion >= 0:
		return "Neutral"
	case opinion >= -25:
		return "Poor"
	case opinion >= -50:
		return "Bad"
	case opinion >= -75:
		return "Very Bad"
	default:
		return "Terrible"
	}
}

// TrustDescription renders a trust value as a word.
func TrustDescription(trust float64) string {
	switch {
	case trust >= 0.9:
		return "Absolute"
	case trust >= 0.75:
		return "High"
	case trust >= 0.6:
		return "Moderate"
	case trust >= 0.4:
		return "Low"
	case trust >= 0.2:
		return "Very Low"
	default:
		return "None"
	}
}

// ClampOpinion bounds an opinion to [-100, 100].
func ClampOpinion(v int) int {
	return max(-100, min(100, v))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
