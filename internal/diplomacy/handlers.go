// Action handlers — the only code paths that change relations, treaties and marriages.
package diplomacy

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/concord/internal/realm"
)

// ActionResult reports the outcome of a diplomatic action. Failed preconditions set
// Success=false with a reason; they are not errors.
type ActionResult struct {
	Success       bool      `json:"success"`
	Reason        string    `json:"reason,omitempty"`
	OpinionChange int       `json:"opinion_change"`
	TrustChange   float64   `json:"trust_change"`
	Incident      *Incident `json:"incident,omitempty"`
	Treaty        *Treaty   `json:"treaty,omitempty"`
	Broken        []Treaty  `json:"broken,omitempty"`
	Marriage      *Marriage `json:"marriage,omitempty"`
}

func fail(format string, args ...any) ActionResult {
	return ActionResult{Reason: fmt.Sprintf(format, args...)}
}

func succeed(reason string, opinion int, incident Incident) ActionResult {
	inc := incident
	return ActionResult{
		Success:       true,
		Reason:        reason,
		OpinionChange: opinion,
		TrustChange:   TrustDelta(incident),
		Incident:      &inc,
	}
}

// checkPair rejects self-targeting and unknown realms.
func (s *Store) checkPair(a, b realm.ID) (ActionResult, bool) {
	if a == b {
		return fail("a realm cannot act on itself"), false
	}
	if !s.HasRealm(a) {
		return fail("unknown realm %d", a), false
	}
	if !s.HasRealm(b) {
		return fail("unknown realm %d", b), false
	}
	return ActionResult{}, true
}

// applyAction computes the table delta for from's opinion of to and applies it.
func (s *Store) applyAction(from, to realm.ID, action Action, magnitude float64) int {
	delta := OpinionDelta(s.Standing(from, to), action, magnitude)
	s.ModifyOpinion(from, to, delta, action.String())
	return delta
}

func (s *Store) signTreaty(typ TreatyType, a, b realm.ID, years int) Treaty {
	return s.AddTreaty(NewTreaty(typ, a, b, s.Month(), years))
}

// FormAlliance allies a and b.
func (s *Store) FormAlliance(a, b realm.ID) ActionResult {
	if res, ok := s.checkPair(a, b); !ok {
		return res
	}
	switch {
	case s.Allied(a, b):
		return fail("already allied")
	case s.AtWar(a, b):
		return fail("cannot ally while at war")
	case s.OnCooldown(a, b, MoveProposeAlliance):
		return fail("alliance proposal on cooldown")
	}
	if v := AllianceValue(s.Profile(b)); v <= s.tuning.MinAllianceValue {
		return fail("alliance value %.2f too low", v)
	}

	s.SetMutualRelation(a, b, RelationAllied, ActionAllianceFormed.String())
	delta := s.applyAction(a, b, ActionAllianceFormed, 1)
	s.applyAction(b, a, ActionAllianceFormed, 1)
	t := s.signTreaty(TreatyAlliance, a, b, s.tuning.TreatyYears.For(TreatyAlliance))
	s.StartCooldown(a, b, MoveProposeAlliance)

	res := succeed("alliance formed", delta, IncidentDiplomaticSupport)
	res.Treaty = &t
	return res
}

// DeclareWar puts a and b at war. Every treaty between them except marriage pacts is broken
// by the aggressor.
func (s *Store) DeclareWar(aggressor, target realm.ID, cb CasusBelli) ActionResult {
	if res, ok := s.checkPair(aggressor, target); !ok {
		return res
	}
	switch {
	case s.AtWar(aggressor, target):
		return fail("already at war")
	case s.OnCooldown(aggressor, target, MoveDeclareWar):
		return fail("war declaration on cooldown")
	}

	var broken []Treaty
	for _, t := range s.ActiveTreaties(aggressor, target) {
		if t.Type == TreatyMarriagePact {
			continue
		}
		if bt, ok := s.BreakTreaty(aggressor, target, t.ID, aggressor); ok {
			broken = append(broken, bt)
		}
	}

	s.SetMutualRelation(aggressor, target, RelationAtWar, ActionWarDeclared.String())
	delta := s.applyAction(aggressor, target, ActionWarDeclared, 1)
	s.applyAction(target, aggressor, ActionWarDeclared, 1)
	s.AdjustWeariness(aggressor, 0.1)
	s.AdjustWeariness(target, 0.05)

	repHit := 0.05 * float64(len(broken))
	if cb == CasusNone {
		repHit += 0.05
	}
	if repHit > 0 {
		s.AdjustReputation(aggressor, -repHit)
	}
	s.StartCooldown(aggressor, target, MoveDeclareWar)

	res := succeed(fmt.Sprintf("war declared (%s)", cb), delta, IncidentMilitaryAggression)
	res.Broken = broken
	return res
}

// MakePeace ends a war and binds both sides to a non-aggression pact.
func (s *Store) MakePeace(a, b realm.ID) ActionResult {
	if res, ok := s.checkPair(a, b); !ok {
		return res
	}
	if !s.AtWar(a, b) {
		return fail("not at war")
	}

	s.SetMutualRelation(a, b, RelationNeutral, ActionPeaceSigned.String())
	delta := s.applyAction(a, b, ActionPeaceSigned, 1)
	s.applyAction(b, a, ActionPeaceSigned, 1)
	s.AdjustWeariness(a, -0.05)
	s.AdjustWeariness(b, -0.05)
	t := s.signTreaty(TreatyNonAggression, a, b, s.tuning.TreatyYears.For(TreatyNonAggression))

	res := succeed("peace signed", delta, IncidentKeepingPromise)
	res.Treaty = &t
	return res
}

// SignTrade opens a trade agreement worth volume per month.
func (s *Store) SignTrade(a, b realm.ID, volume float64) ActionResult {
	if res, ok := s.checkPair(a, b); !ok {
		return res
	}
	switch {
	case s.AtWar(a, b):
		return fail("cannot trade while at war")
	case s.HasTreaty(a, b, TreatyTrade):
		return fail("trade agreement already in force")
	case s.OnCooldown(a, b, MoveProposeTrade):
		return fail("trade proposal on cooldown")
	}
	bonus := TradePreference(s.Profile(b).Personality) * 20
	if acc := TradeTermsAcceptability(s.Opinion(b, a), bonus); acc < 0.4 {
		return fail("trade terms unacceptable (%.2f)", acc)
	}

	tr := NewTreaty(TreatyTrade, a, b, s.Month(), s.tuning.TreatyYears.For(TreatyTrade))
	tr.Terms = map[string]float64{"volume": volume}
	t := s.AddTreaty(tr)

	v := s.View(a, b)
	total := v.TradeVolume + max(0, volume)
	s.SetTrade(a, b, total, min(1, total/1000))

	delta := s.applyAction(a, b, ActionTradeAgreement, 1)
	s.applyAction(b, a, ActionTradeAgreement, 1)
	s.StartCooldown(a, b, MoveProposeTrade)

	res := succeed("trade agreement signed", delta, IncidentTradeFulfilled)
	res.Treaty = &t
	return res
}

// SignNonAggression binds a and b not to attack each other.
func (s *Store) SignNonAggression(a, b realm.ID) ActionResult {
	if res, ok := s.checkPair(a, b); !ok {
		return res
	}
	switch {
	case s.AtWar(a, b):
		return fail("cannot sign a pact while at war")
	case s.HasTreaty(a, b, TreatyNonAggression):
		return fail("non-aggression pact already in force")
	case s.OnCooldown(a, b, MoveProposeNonAggression):
		return fail("pact proposal on cooldown")
	}

	t := s.signTreaty(TreatyNonAggression, a, b, s.tuning.TreatyYears.For(TreatyNonAggression))
	delta := s.applyAction(a, b, ActionPeaceSigned, 0.5)
	s.applyAction(b, a, ActionPeaceSigned, 0.5)
	s.StartCooldown(a, b, MoveProposeNonAggression)

	res := succeed("non-aggression pact signed", delta, IncidentKeepingPromise)
	res.Treaty = &t
	return res
}

// SignSecretPact binds a and b to a defensive league only they know of. secrecy sets how
// hard outsiders find it to uncover; zero takes the default.
func (s *Store) SignSecretPact(a, b realm.ID, secrecy float64) ActionResult {
	if res, ok := s.checkPair(a, b); !ok {
		return res
	}
	switch {
	case s.AtWar(a, b):
		return fail("cannot conspire with an enemy")
	case s.HasTreaty(a, b, TreatyDefensiveLeague):
		return fail("league already in force")
	case s.OnCooldown(a, b, MoveSecretPact):
		return fail("secret negotiation on cooldown")
	}
	if secrecy <= 0 {
		secrecy = defaultSecrecy
	}

	tr := NewTreaty(TreatyDefensiveLeague, a, b, s.Month(), s.tuning.TreatyYears.For(TreatyDefensiveLeague))
	tr.Secret = true
	tr.SecrecyLevel = clamp01(secrecy)
	t := s.AddTreaty(tr)
	delta := s.applyAction(b, a, ActionTreatyHonored, 0.5)
	s.StartCooldown(a, b, MoveSecretPact)

	res := succeed("secret pact sealed", delta, IncidentKeepingPromise)
	res.Treaty = &t
	return res
}

// ArrangeMarriage weds the houses of two realms. A marriage can carry an alliance with it.
func (s *Store) ArrangeMarriage(bride, groom realm.ID, withAlliance bool) ActionResult {
	if res, ok := s.checkPair(bride, groom); !ok {
		return res
	}
	switch {
	case s.AtWar(bride, groom):
		return fail("cannot marry into an enemy house")
	case s.OnCooldown(bride, groom, MoveArrangeMarriage):
		return fail("marriage negotiation on cooldown")
	}

	now := s.Month()
	m := Marriage{
		ID:               uuid.NewString(),
		BrideRealm:       bride,
		GroomRealm:       groom,
		Month:            now,
		ProducesAlliance: withAlliance,
		DiplomaticBonus:  s.tuning.MarriageBonus,
	}
	s.AddMarriage(m)
	t := s.signTreaty(TreatyMarriagePact, bride, groom, s.tuning.TreatyYears.For(TreatyMarriagePact))

	delta := s.applyAction(bride, groom, ActionMarriageArranged, 1)
	s.applyAction(groom, bride, ActionMarriageArranged, 1)
	if m.DiplomaticBonus != 0 {
		mod := OpinionModifier{Source: "dynastic marriage", Value: m.DiplomaticBonus / 2, YearlyDecay: 0.1}
		s.AddModifier(bride, groom, mod)
		s.AddModifier(groom, bride, mod)
	}

	if withAlliance && !s.Allied(bride, groom) {
		s.SetMutualRelation(bride, groom, RelationAllied, "marriage alliance")
		s.signTreaty(TreatyAlliance, bride, groom, s.tuning.TreatyYears.For(TreatyAlliance))
	}
	s.StartCooldown(bride, groom, MoveArrangeMarriage)

	res := succeed("marriage arranged", delta, IncidentKeepingPromise)
	res.Treaty = &t
	res.Marriage = &m
	return res
}

// SendGift improves to's opinion of from in proportion to the gift's value.
func (s *Store) SendGift(from, to realm.ID, value float64) ActionResult {
	if res, ok := s.checkPair(from, to); !ok {
		return res
	}
	switch {
	case s.AtWar(from, to):
		return fail("cannot send gifts to an enemy")
	case s.OnCooldown(from, to, MoveSendGift):
		return fail("gift on cooldown")
	case value <= 0:
		return fail("gift has no value")
	}

	magnitude := max(0.1, min(4, value/100))
	delta := s.applyAction(to, from, ActionGiftSent, magnitude)
	s.StartCooldown(from, to, MoveSendGift)
	return succeed(fmt.Sprintf("gift of %.0f sent", value), delta, IncidentKeepingPromise)
}

// EstablishEmbassy opens a permanent mission at to's court.
func (s *Store) EstablishEmbassy(from, to realm.ID) ActionResult {
	if res, ok := s.checkPair(from, to); !ok {
		return res
	}
	if s.AtWar(from, to) {
		return fail("cannot open an embassy with an enemy")
	}
	if s.OnCooldown(from, to, MoveEstablishEmbassy) {
		return fail("embassy on cooldown")
	}
	open := false
	s.UpdateRealm(from, func(r *Realm) { open = r.Relationship(to).Embassy })
	if open {
		return fail("embassy already established")
	}

	s.UpdateRealm(from, func(r *Realm) { r.Relationship(to).Embassy = true })
	delta := s.applyAction(to, from, ActionEmbassyEstablished, 1)
	s.applyAction(from, to, ActionEmbassyEstablished, 0.5)
	s.StartCooldown(from, to, MoveEstablishEmbassy)
	return succeed("embassy established", delta, IncidentDiplomaticSupport)
}

// RecallEmbassy withdraws from's mission from to.
func (s *Store) RecallEmbassy(from, to realm.ID) ActionResult {
	if res, ok := s.checkPair(from, to); !ok {
		return res
	}
	closed := false
	s.UpdateRealm(from, func(r *Realm) {
		st := r.Relationship(to)
		closed = st.Embassy
		st.Embassy = false
	})
	if !closed {
		return fail("no embassy to recall")
	}
	delta := s.applyAction(to, from, ActionEmbassyRecalled, 1)
	s.StartCooldown(from, to, MoveRecallEmbassy)
	res := succeed("embassy recalled", delta, IncidentKeepingPromise)
	res.TrustChange = 0
	res.Incident = nil
	return res
}

// Insult worsens to's opinion of from.
func (s *Store) Insult(from, to realm.ID) ActionResult {
	if res, ok := s.checkPair(from, to); !ok {
		return res
	}
	if s.OnCooldown(from, to, MoveInsult) {
		return fail("insult on cooldown")
	}
	delta := s.applyAction(to, from, ActionInsultGiven, 1)
	s.StartCooldown(from, to, MoveInsult)
	return ActionResult{Success: true, Reason: "insult delivered", OpinionChange: delta}
}

// Praise improves to's opinion of from.
func (s *Store) Praise(from, to realm.ID) ActionResult {
	if res, ok := s.checkPair(from, to); !ok {
		return res
	}
	delta := s.applyAction(to, from, ActionPraiseGiven, 1)
	return ActionResult{Success: true, Reason: "praise given", OpinionChange: delta}
}

// BreakAlliance ends an alliance. The betrayed side remembers.
func (s *Store) BreakAlliance(breaker, partner realm.ID) ActionResult {
	if res, ok := s.checkPair(breaker, partner); !ok {
		return res
	}
	if !s.Allied(breaker, partner) {
		return fail("not allied")
	}

	var broken []Treaty
	for _, t := range s.TreatiesOfType(breaker, partner, TreatyAlliance) {
		if bt, ok := s.BreakTreaty(breaker, partner, t.ID, breaker); ok {
			broken = append(broken, bt)
		}
	}
	s.SetMutualRelation(breaker, partner, RelationNeutral, ActionAllianceBroken.String())
	delta := s.applyAction(partner, breaker, ActionAllianceBroken, 1)
	s.applyAction(breaker, partner, ActionAllianceBroken, 0.5)
	s.AdjustReputation(breaker, -0.1)
	s.StartCooldown(breaker, partner, MoveBreakAlliance)

	res := succeed("alliance broken", delta, IncidentBetrayal)
	res.Broken = broken
	return res
}

// BorderIncident records a clash along the shared border.
func (s *Store) BorderIncident(a, b realm.ID, reason string) ActionResult {
	if res, ok := s.checkPair(a, b); !ok {
		return res
	}
	for _, pair := range [][2]realm.ID{{a, b}, {b, a}} {
		s.UpdateRealm(pair[0], func(r *Realm) {
			st := r.Relationship(pair[1])
			st.BorderTension = true
			st.BorderIncidents++
		})
	}
	delta := s.applyAction(a, b, ActionBorderIncident, 1)
	s.applyAction(b, a, ActionBorderIncident, 1)
	return ActionResult{Success: true, Reason: reason, OpinionChange: delta}
}

// Execute dispatches a move. arg carries the gift value or trade volume where relevant.
func (s *Store) Execute(m Move, from, to realm.ID, arg float64) ActionResult {
	switch m {
	case MoveProposeAlliance:
		return s.FormAlliance(from, to)
	case MoveProposeTrade:
		return s.SignTrade(from, to, arg)
	case MoveProposeNonAggression:
		return s.SignNonAggression(from, to)
	case MoveDeclareWar:
		return s.DeclareWar(from, to, CasusBelli(arg))
	case MoveOfferPeace:
		return s.MakePeace(from, to)
	case MoveArrangeMarriage:
		return s.ArrangeMarriage(from, to, arg > 0)
	case MoveSendGift:
		return s.SendGift(from, to, arg)
	case MoveEstablishEmbassy:
		return s.EstablishEmbassy(from, to)
	case MoveRecallEmbassy:
		return s.RecallEmbassy(from, to)
	case MoveInsult:
		return s.Insult(from, to)
	case MoveBreakAlliance:
		return s.BreakAlliance(from, to)
	case MoveSecretPact:
		return s.SignSecretPact(from, to, arg)
	default:
		return fail("unknown move %d", m)
	}
}
