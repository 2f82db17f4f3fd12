// Base strength formulas — what a realm can project of each influence type, before
// distance and relationship modifiers.
package influence

import (
	"math"

	"github.com/talgya/concord/internal/realm"
)

// Relations is the diplomatic state propagation reads.
type Relations interface {
	Opinion(from, to realm.ID) int
	AtWar(a, b realm.ID) bool
	Allies(id realm.ID) []realm.ID
	Trust(a, b realm.ID) float64
	Trade(a, b realm.ID) (volume, dependency float64)
}

// Effects is how conflict resolution writes back into diplomacy.
type Effects interface {
	ModifyOpinion(from, to realm.ID, delta int, reason string) int
	AdjustGlory(id realm.ID, delta float64)
}

// StrengthFunc computes base strength of type t from source onto target.
type StrengthFunc func(source, target realm.ID, t Type) float64

// Calculator derives base strengths from the collaborator snapshots.
type Calculator struct {
	World     realm.Collaborators
	Relations Relations
}

// Strength returns the base strength of type t from source onto target, in [0,100].
// A missing snapshot yields zero.
func (c Calculator) Strength(source, target realm.ID, t Type) float64 {
	src, ok := c.World.Realm(source)
	if !ok {
		return 0
	}
	dst, ok := c.World.Realm(target)
	if !ok {
		return 0
	}
	switch t {
	case Military:
		return MilitaryStrength(src)
	case Economic:
		volume, dep := c.Relations.Trade(source, target)
		return EconomicStrength(src, volume, dep)
	case Dynastic:
		sd, _ := c.World.Dynasty(source)
		td, _ := c.World.Dynasty(target)
		return DynasticStrength(c.World.Ties(source, target), sd, td)
	case Personal:
		return PersonalStrength(src, dst, c.Relations.Opinion(source, target),
			c.Relations.Trust(source, target), c.World.Ties(source, target))
	case Religious:
		return ReligiousStrength(src, c.World.CompareFaith(source, target))
	case Cultural:
		return CulturalStrength(src, c.World.SharedBorders(source, target) > 0)
	case Prestige:
		d, _ := c.World.Dynasty(source)
		return PrestigeStrength(src, d)
	}
	return 0
}

// normalize maps a raw score with the given ceiling onto 0–100.
func normalize(raw, ceiling float64) float64 {
	return clamp(raw/ceiling*100, 0, 100)
}

var rankMultiplier = [...]float64{0.5, 0.7, 1.0, 1.3, 1.5}

// rankScale picks the value for a rank, falling back to the duchy entry.
func rankScale(r realm.Rank, table [5]float64) float64 {
	if int(r) < len(table) {
		return table[r]
	}
	return table[realm.RankDuchy]
}

// ArmyStrength is raw troop strength, 0–100. Ten thousand effective troops is 100.
func ArmyStrength(s realm.Snapshot) float64 {
	troops := float64(s.StandingArmy)*2 + float64(s.Levies)
	return clamp(troops/10000*100*rankScale(s.Rank, rankMultiplier), 0, 100)
}

func militaryTech(s realm.Snapshot) float64 {
	var bonus float64
	switch s.Government {
	case realm.GovTribal, realm.GovNomadic:
		bonus = 0
	case realm.GovFeudal, realm.GovTheocracy:
		bonus = 5
	case realm.GovAbsoluteMonarchy, realm.GovRepublic:
		bonus = 10
	case realm.GovImperial, realm.GovConstitutional:
		bonus = 15
	default:
		bonus = 5
	}
	return clamp(bonus+s.Stability*5, 0, 20)
}

// MilitaryStrength combines troops, military technology and martial prestige.
func MilitaryStrength(s realm.Snapshot) float64 {
	prestige := rankScale(s.Rank, [5]float64{2, 5, 10, 20, 30}) * s.Legitimacy
	raw := ArmyStrength(s) + militaryTech(s) + clamp(prestige, 0, 30)
	return normalize(raw, 150)
}

// EconomicStrength combines wealth, trade dominance over the target and trade hubs.
func EconomicStrength(s realm.Snapshot, tradeVolume, dependency float64) float64 {
	wealth := clamp(math.Log10(max(0, s.Treasury)+1)*10+s.MonthlyIncome/100*20, 0, 60)

	dominance := tradeVolume/1000*20 + dependency*10
	if s.Government == realm.GovMerchantRepublic {
		dominance *= 1.5
	}
	dominance = clamp(dominance, 0, 30)

	hubs := min(10, float64(s.Provinces)/5)
	if s.HasCapital {
		hubs += 5
	}
	return normalize(wealth+dominance+clamp(hubs, 0, 10), 100)
}

// MarriageTies scores spouse and family bonds between two courts, 0–50.
func MarriageTies(ties []realm.Tie) float64 {
	var sum float64
	for _, t := range ties {
		switch t.Kind {
		case realm.TieSpouse:
			if t.SpouseFromTarget {
				sum += 15
				if t.AllianceMarriage {
					sum += 10
				}
			} else {
				sum += 30
			}
		case realm.TieSibling:
			sum += 20
		case realm.TieParentChild:
			sum += 25
		}
	}
	return min(50, sum)
}

// DynasticStrength combines marriage ties, dynasty prestige and shared blood.
func DynasticStrength(ties []realm.Tie, source, target realm.DynastySnapshot) float64 {
	var prestige, family float64
	if source.ID != 0 {
		prestige = clamp(source.Prestige/10+float64(source.RealmsRuled)*2+min(10, float64(source.Generations)/2), 0, 30)
		switch {
		case target.ID == 0:
		case source.ID == target.ID:
			family = 20
		case target.Parent == source.ID || source.Parent == target.ID:
			family = 15
		}
	}
	return normalize(MarriageTies(ties)+prestige+family, 100)
}

// PersonalStrength combines ruler friendship, trust, court bonds and similarity.
func PersonalStrength(src, dst realm.Snapshot, opinion int, trust float64, ties []realm.Tie) float64 {
	friendship := clamp((float64(opinion)+100)/200*60, 0, 60)
	bond := 0.0
	if src.Government == dst.Government {
		bond += 10
	}
	if src.Rank == dst.Rank {
		bond += 5
	}
	var court float64
	for _, t := range ties {
		switch t.Kind {
		case realm.TieFriend:
			court += t.Bond/100*40 + 10
		case realm.TieBloodBrother:
			court += t.Bond/100*40 + 20
		case realm.TieRival:
			court -= 15
		}
	}
	return normalize(friendship+clamp(trust*20, 0, 20)+bond+court, 100)
}

// ReligiousStrength combines religious authority with faith affinity.
func ReligiousStrength(s realm.Snapshot, faith realm.FaithRelation) float64 {
	authority := 10.0
	if s.Government == realm.GovTheocracy {
		authority = 40
	}
	authority += [5]float64{0, 5, 10, 15, 20}[min(int(s.Rank), 4)]
	authority = clamp(authority*s.Stability, 0, 60)

	var affinity float64
	switch faith {
	case realm.FaithSame:
		affinity = 40
	case realm.FaithSameDenomination:
		affinity = 25
	case realm.FaithSameGroup:
		affinity = 10
	}
	return normalize(authority+affinity, 100)
}

// CulturalStrength combines similarity (neighbours share more) with attraction.
func CulturalStrength(s realm.Snapshot, neighbors bool) float64 {
	similarity := 20.0
	if neighbors {
		similarity = 50
	}
	attraction := rankScale(s.Rank, [5]float64{5, 10, 15, 20, 25}) + min(5, math.Log10(max(0, s.Treasury)+1))
	return normalize(similarity+clamp(attraction, 0, 30), 100)
}

// PrestigeStrength combines diplomatic reputation, glory and recent victories.
func PrestigeStrength(s realm.Snapshot, d realm.DynastySnapshot) float64 {
	reputation := clamp(rankScale(s.Rank, [5]float64{5, 10, 20, 30, 40})*(s.Stability+s.Legitimacy)/2, 0, 50)
	glory := clamp(min(20, d.Prestige/10)+min(10, float64(s.Provinces)/3), 0, 30)
	var victory float64
	if s.MilitaryMaintenance > 0.5 {
		victory = 10
	}
	return normalize(reputation+glory+victory, 100)
}
