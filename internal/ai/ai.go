// Diplomatic decision engine — what each realm would like to do next.
// Evaluation is read-only; the simulation decides which decisions to act on.
package ai

import (
	"cmp"
	"math/rand"
	"slices"

	"github.com/talgya/concord/internal/diplomacy"
	"github.com/talgya/concord/internal/influence"
	"github.com/talgya/concord/internal/realm"
)

// Reader is the slice of the relationship store the decision engine looks at.
type Reader interface {
	IDs() []realm.ID
	HasRealm(id realm.ID) bool
	Profile(id realm.ID) diplomacy.Profile
	Opinion(from, to realm.ID) int
	ApparentOpinion(observer, subject realm.ID) int
	Trust(a, b realm.ID) float64
	Allied(a, b realm.ID) bool
	AtWar(a, b realm.ID) bool
	Enemies(id realm.ID) []realm.ID
	HasTreaty(a, b realm.ID, typ diplomacy.TreatyType) bool
	ActiveTreatyCount(id realm.ID, typ diplomacy.TreatyType) int
	OnCooldown(from, to realm.ID, move diplomacy.Move) bool
	HasPendingProposal(from, to realm.ID, move diplomacy.Move) bool
}

// Memory answers long-term grudge and friendship questions.
type Memory interface {
	HasGrudge(self, other realm.ID) bool
	HasDeepFriendship(self, other realm.ID) bool
}

const (
	maxAlliances       = 3
	allianceCandidates = 3
	warTargets         = 2
	tradeCandidates    = 2
	maxWars            = 2
	overextendedWeary  = 0.6
	warWearinessLimit  = 0.7
	peaceWeariness     = 0.6
	apparentHostility  = -25

	priorityPeace    = 0.8
	priorityAlliance = 0.7
	priorityWar      = 0.6
	priorityTrade    = 0.5
)

// Decision is a move a realm would like to make.
type Decision struct {
	Realm    realm.ID       `json:"realm"`
	Target   realm.ID       `json:"target"`
	Move     diplomacy.Move `json:"move"`
	Priority float64        `json:"priority"`
	Score    float64        `json:"score"`
	Reason   string         `json:"reason"`
}

// Engine evaluates diplomatic options. Memory and Realms are optional.
type Engine struct {
	Relations Reader
	Memory    Memory
	Realms    realm.Realms
}

// New creates a decision engine over the given relationship reader.
func New(r Reader, mem Memory, realms realm.Realms) *Engine {
	return &Engine{Relations: r, Memory: mem, Realms: realms}
}

// NeedsAlliances reports whether id holds fewer than three active alliance treaties.
func (e *Engine) NeedsAlliances(id realm.ID) bool {
	return e.Relations.ActiveTreatyCount(id, diplomacy.TreatyAlliance) < maxAlliances
}

// Overextended reports whether id is fighting too many wars or is too weary to start another.
func (e *Engine) Overextended(id realm.ID) bool {
	p := e.Relations.Profile(id)
	return len(e.Relations.Enemies(id)) > maxWars || p.WarWeariness > overextendedWeary
}

// Evaluate returns id's preferred moves, highest priority first.
func (e *Engine) Evaluate(id realm.ID) []Decision {
	if !e.Relations.HasRealm(id) {
		return nil
	}

	var out []Decision
	self := e.Relations.Profile(id)

	if self.WarWeariness > peaceWeariness {
		for _, enemy := range e.Relations.Enemies(id) {
			if e.blocked(id, enemy, diplomacy.MoveOfferPeace) {
				continue
			}
			out = append(out, Decision{
				Realm: id, Target: enemy, Move: diplomacy.MoveOfferPeace,
				Priority: priorityPeace, Score: self.WarWeariness,
				Reason: "Exhausted by war",
			})
		}
	}

	if e.NeedsAlliances(id) {
		for _, c := range e.AllianceCandidates(id, allianceCandidates) {
			if ok, score := e.ShouldProposeAlliance(id, c); ok {
				out = append(out, Decision{
					Realm: id, Target: c, Move: diplomacy.MoveProposeAlliance,
					Priority: priorityAlliance, Score: score,
					Reason: "Strategic alliance opportunity",
				})
			}
		}
	}

	if !e.Overextended(id) {
		for _, t := range e.WarTargets(id, warTargets) {
			if ok, score := e.ShouldDeclareWar(id, t); ok {
				out = append(out, Decision{
					Realm: id, Target: t, Move: diplomacy.MoveDeclareWar,
					Priority: priorityWar, Score: score,
					Reason: "Favorable war opportunity",
				})
			}
		}
	}

	for _, c := range e.TradeCandidates(id, tradeCandidates) {
		if ok, score := e.ShouldProposeTrade(id, c); ok {
			out = append(out, Decision{
				Realm: id, Target: c, Move: diplomacy.MoveProposeTrade,
				Priority: priorityTrade, Score: score,
				Reason: "Profitable trade partner",
			})
		}
	}

	slices.SortStableFunc(out, func(a, b Decision) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Target, b.Target)
	})
	return out
}

// EvaluateAll runs Evaluate for every known realm in ascending id order.
func (e *Engine) EvaluateAll() map[realm.ID][]Decision {
	out := make(map[realm.ID][]Decision)
	for _, id := range e.Relations.IDs() {
		if ds := e.Evaluate(id); len(ds) > 0 {
			out[id] = ds
		}
	}
	return out
}

func (e *Engine) blocked(id, other realm.ID, m diplomacy.Move) bool {
	return e.Relations.OnCooldown(id, other, m) || e.Relations.HasPendingProposal(id, other, m)
}

func (e *Engine) grudge(self, other realm.ID) bool {
	return e.Memory != nil && e.Memory.HasGrudge(self, other)
}

func (e *Engine) friend(self, other realm.ID) bool {
	return e.Memory != nil && e.Memory.HasDeepFriendship(self, other)
}

type scored struct {
	id    realm.ID
	score float64
}

// ranked keeps the top n candidates by score. Ties resolve to the lower id.
func ranked(cands []scored, n int) []realm.ID {
	slices.SortStableFunc(cands, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	out := make([]realm.ID, 0, min(n, len(cands)))
	for i := 0; i < n && i < len(cands); i++ {
		out = append(out, cands[i].id)
	}
	return out
}

// AllianceCandidates returns up to n realms id could ally with, most desirable first.
func (e *Engine) AllianceCandidates(id realm.ID, n int) []realm.ID {
	var cands []scored
	for _, other := range e.Relations.IDs() {
		if other == id || e.Relations.Allied(id, other) || e.Relations.AtWar(id, other) {
			continue
		}
		cands = append(cands, scored{other, e.AllianceDesirability(id, other)})
	}
	return ranked(cands, n)
}

// WarTargets returns up to n realms id could attack, most desirable first.
func (e *Engine) WarTargets(id realm.ID, n int) []realm.ID {
	var cands []scored
	for _, other := range e.Relations.IDs() {
		if other == id || e.Relations.Allied(id, other) || e.Relations.AtWar(id, other) {
			continue
		}
		cands = append(cands, scored{other, e.WarDesirability(id, other)})
	}
	return ranked(cands, n)
}

// TradeCandidates returns up to n realms id has no trade agreement with, best first.
func (e *Engine) TradeCandidates(id realm.ID, n int) []realm.ID {
	var cands []scored
	for _, other := range e.Relations.IDs() {
		if other == id || e.Relations.AtWar(id, other) ||
			e.Relations.HasTreaty(id, other, diplomacy.TreatyTrade) {
			continue
		}
		cands = append(cands, scored{other, e.TradeValue(id, other)})
	}
	return ranked(cands, n)
}

// AllianceDesirability scores other as an ally for id. Grudges rule an alliance out and
// deep friendship makes one more attractive.
func (e *Engine) AllianceDesirability(id, other realm.ID) float64 {
	if e.grudge(id, other) {
		return 0
	}
	v := diplomacy.AllianceValue(e.Relations.Profile(other))
	if e.friend(id, other) {
		v += 0.1
	}
	return clamp01(v)
}

// WarDesirability scores other as a war target for id.
func (e *Engine) WarDesirability(id, other realm.ID) float64 {
	self := e.Relations.Profile(id)
	target := e.Relations.Profile(other)

	d := 0.5
	if self.Prestige-target.Prestige > 0 {
		d += 0.2
	} else {
		d -= 0.2
	}
	d -= self.WarWeariness * 0.5
	d = (d + diplomacy.PersonalityWarBase(self.Personality)) / 2

	switch {
	case e.friend(id, other):
		d -= 0.2
	case e.grudge(id, other):
		d += 0.1
	}
	return clamp01(d)
}

// TradeValue scores other as a trading partner for id.
func (e *Engine) TradeValue(id, other realm.ID) float64 {
	v := 0.5
	if op := e.Relations.Opinion(id, other); op > 0 {
		v += float64(op) / 200
	}
	v += e.Relations.Trust(id, other) * 0.2
	return clamp01(v)
}

// ShouldProposeAlliance applies id's personality threshold to other's desirability. Realms
// that seem hostile toward id are not courted; a masked realm may still seem friendly.
func (e *Engine) ShouldProposeAlliance(id, other realm.ID) (bool, float64) {
	if id == other || !e.Relations.HasRealm(other) ||
		e.Relations.Allied(id, other) || e.Relations.AtWar(id, other) ||
		e.blocked(id, other, diplomacy.MoveProposeAlliance) ||
		e.Relations.ApparentOpinion(id, other) < apparentHostility {
		return false, 0
	}
	d := e.AllianceDesirability(id, other)
	pref := diplomacy.AlliancePreference(e.Relations.Profile(id).Personality)
	return d > 0.7-pref*0.4, d
}

// ShouldDeclareWar reports whether id's appetite for war against other clears its
// personality threshold.
func (e *Engine) ShouldDeclareWar(id, other realm.ID) (bool, float64) {
	if id == other || !e.Relations.HasRealm(other) ||
		e.Relations.Allied(id, other) || e.Relations.AtWar(id, other) ||
		e.blocked(id, other, diplomacy.MoveDeclareWar) || e.friend(id, other) {
		return false, 0
	}
	self := e.Relations.Profile(id)
	if self.WarWeariness > warWearinessLimit {
		return false, 0
	}
	target := e.Relations.Profile(other)
	l := diplomacy.WarLikelihood(self, e.Relations.Opinion(id, other), self.Prestige-target.Prestige)
	if e.grudge(id, other) {
		l = clamp01(l + 0.1)
	}
	return l > 0.9-diplomacy.PersonalityWarBase(self.Personality)*0.4, l
}

// ShouldProposeTrade applies id's trade preference to other's trade value.
func (e *Engine) ShouldProposeTrade(id, other realm.ID) (bool, float64) {
	if id == other || !e.Relations.HasRealm(other) || e.Relations.AtWar(id, other) ||
		e.Relations.HasTreaty(id, other, diplomacy.TreatyTrade) ||
		e.blocked(id, other, diplomacy.MoveProposeTrade) {
		return false, 0
	}
	v := e.TradeValue(id, other)
	pref := diplomacy.TradePreference(e.Relations.Profile(id).Personality)
	return v > 0.6-pref*0.2, v
}

// Acceptance is the target's willingness to accept a proposal, in [0,1].
func (e *Engine) Acceptance(p diplomacy.Proposal) float64 {
	if !e.Relations.HasRealm(p.Proposer) || !e.Relations.HasRealm(p.Target) {
		return 0
	}
	switch p.Move {
	case diplomacy.MoveProposeAlliance:
		return e.allianceAcceptance(p)
	case diplomacy.MoveProposeTrade:
		if e.Relations.AtWar(p.Target, p.Proposer) {
			return 0
		}
		return diplomacy.TradeTermsAcceptability(e.Relations.Opinion(p.Target, p.Proposer), p.Terms["bonus"])
	case diplomacy.MoveOfferPeace:
		return clamp01(0.3 + e.Relations.Profile(p.Target).WarWeariness*0.7)
	default:
		return 0.5
	}
}

func (e *Engine) allianceAcceptance(p diplomacy.Proposal) float64 {
	if e.grudge(p.Target, p.Proposer) || e.Relations.AtWar(p.Target, p.Proposer) {
		return 0
	}
	v := 0.5 + float64(e.Relations.Opinion(p.Target, p.Proposer))/200
	if e.stronger(p.Proposer, p.Target) {
		v += 0.2
	}
	theirs := e.Relations.Enemies(p.Target)
	for _, enemy := range e.Relations.Enemies(p.Proposer) {
		if slices.Contains(theirs, enemy) {
			v += 0.3
		}
	}
	return clamp01(v)
}

// stronger compares military strength when snapshots are available and prestige otherwise.
func (e *Engine) stronger(a, b realm.ID) bool {
	if e.Realms != nil {
		sa, okA := e.Realms.Realm(a)
		sb, okB := e.Realms.Realm(b)
		if okA && okB {
			return influence.MilitaryStrength(sa) > influence.MilitaryStrength(sb)
		}
	}
	return e.Relations.Profile(a).Prestige > e.Relations.Profile(b).Prestige
}

// EvaluateProposal scores p and draws from rng to decide whether the target accepts.
func (e *Engine) EvaluateProposal(p diplomacy.Proposal, rng *rand.Rand) (bool, float64) {
	chance := e.Acceptance(p)
	if chance <= 0 {
		return false, 0
	}
	return rng.Float64() < chance, chance
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}
