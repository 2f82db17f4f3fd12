package diplomacy

import (
	"testing"

	"github.com/talgya/concord/internal/realm"
)

func newTestStore(t *testing.T, ids ...realm.ID) *Store {
	t.Helper()
	s := NewStore(DefaultTuning())
	for _, id := range ids {
		s.AddRealm(NewRealm(id, PersonalityPragmatic))
	}
	return s
}

func TestLazyDefaultState(t *testing.T) {
	s := newTestStore(t)
	v := s.View(1, 2)
	if v.State.Relation != RelationNeutral || v.State.Opinion != 0 || v.Trust != 0.5 {
		t.Errorf("default view = %+v, want neutral/0/0.5", v)
	}
	s.ModifyOpinion(1, 2, 10, "test")
	if !s.HasRealm(1) {
		t.Error("write on unknown realm should create it")
	}
}

func TestModifyOpinionClampsAndLogs(t *testing.T) {
	s := newTestStore(t, 1, 2)
	for i := 0; i < 15; i++ {
		s.ModifyOpinion(1, 2, 30, "flattery")
	}
	v := s.View(1, 2)
	if v.State.Opinion != 100 {
		t.Errorf("opinion = %d, want 100", v.State.Opinion)
	}
	if n := len(v.State.RecentActions); n != 10 {
		t.Errorf("recent actions = %d, want 10", n)
	}
	if v.State.Relation != RelationFriendly {
		t.Errorf("relation = %v, want friendly", v.State.Relation)
	}
	if s.ModifyOpinion(1, 2, -500, "outrage") != -100 {
		t.Error("opinion not clamped at -100")
	}
}

func TestRelationChangeNotifications(t *testing.T) {
	s := newTestStore(t, 1, 2)
	var got []RelationChange
	s.OnRelationChange(func(c RelationChange) { got = append(got, c) })

	s.ModifyOpinion(1, 2, -70, "raid")
	if len(got) != 1 || got[0].New != RelationHostile {
		t.Fatalf("changes = %+v, want one change to hostile", got)
	}
	s.ModifyOpinion(1, 2, -5, "raid")
	if len(got) != 1 {
		t.Errorf("no-op category change still notified: %+v", got)
	}
}

func TestAlliedAndAtWarExclusive(t *testing.T) {
	s := newTestStore(t, 1, 2)
	s.SetMutualRelation(1, 2, RelationAllied, "test")
	if !s.Allied(1, 2) || s.AtWar(1, 2) {
		t.Fatal("expected allied only")
	}
	s.SetMutualRelation(1, 2, RelationAtWar, "test")
	if s.Allied(1, 2) || !s.AtWar(1, 2) {
		t.Fatal("expected at war only")
	}
	if len(s.Allies(1)) != 0 || len(s.Enemies(1)) != 1 {
		t.Errorf("allies=%v enemies=%v", s.Allies(1), s.Enemies(1))
	}
	s.ModifyOpinion(1, 2, 90, "reconciliation")
	if s.Relation(1, 2) != RelationAtWar {
		t.Error("opinion change must not end a war")
	}
}

func TestTreatyReSignGetsDistinctID(t *testing.T) {
	s := newTestStore(t, 1, 2)
	first := s.AddTreaty(NewTreaty(TreatyTrade, 1, 2, 0, 5))
	s.SetMonth(70)
	second := s.AddTreaty(NewTreaty(TreatyTrade, 2, 1, 70, 5))
	if first.ID != "1_2_trade_agreement" {
		t.Errorf("first id = %q", first.ID)
	}
	if second.ID == first.ID {
		t.Error("re-signed treaty reused the id")
	}
	if n := len(s.Treaties(2, 1)); n != 2 {
		t.Errorf("treaties = %d, want 2", n)
	}
}

func TestSecretTreatyVisibility(t *testing.T) {
	s := newTestStore(t, 1, 2, 3)
	tr := NewTreaty(TreatyAlliance, 1, 2, 0, 20)
	tr.Secret = true
	tr.SecrecyLevel = 0.5
	stored := s.AddTreaty(tr)

	if got := len(s.RealmTreaties(1, 3)); got != 0 {
		t.Errorf("outsider sees %d treaties, want 0", got)
	}
	if got := len(s.RealmTreaties(1, 2)); got != 1 {
		t.Errorf("signatory sees %d treaties, want 1", got)
	}
	if d := stored.DiscoveryDifficulty(); d != 0.4 {
		t.Errorf("discovery difficulty = %v, want 0.4", d)
	}
	s.RevealTreaty(1, 2, stored.ID, 3)
	if got := len(s.RealmTreaties(1, 3)); got != 1 {
		t.Errorf("after reveal outsider sees %d treaties, want 1", got)
	}
}

func TestPerceivedOpinion(t *testing.T) {
	s := newTestStore(t, 1, 2)
	s.ModifyOpinion(1, 2, -80, "secret hatred")
	s.SetDisplayedOpinion(1, 2, 20, 0.6)

	if got := s.PerceivedOpinion(1, 2, 0.5); got != 20 {
		t.Errorf("dull observer sees %d, want 20", got)
	}
	if got := s.PerceivedOpinion(1, 2, 1.0); got != -80 {
		t.Errorf("perfect observer sees %d, want -80", got)
	}
	if got := s.PerceivedOpinion(1, 2, 0.8); got != -30 {
		t.Errorf("sharp observer sees %d, want -30", got)
	}
}

func TestDecayMonthlyTowardBaseline(t *testing.T) {
	s := newTestStore(t, 1, 2)
	s.ModifyOpinion(1, 2, 30, "feast")
	s.SetBaseOpinion(1, 2, 20)

	s.DecayMonthly(0)
	if op := s.Opinion(1, 2); op != 30 {
		t.Fatalf("zero-month decay changed opinion to %d", op)
	}
	for i := 0; i < 20; i++ {
		s.DecayMonthly(1)
	}
	if op := s.Opinion(1, 2); op != 20 {
		t.Errorf("opinion = %d, want settled at baseline 20", op)
	}
}

func TestPermanentModifierSurvivesDecay(t *testing.T) {
	s := newTestStore(t, 1, 2)
	s.AddModifier(1, 2, OpinionModifier{Source: "century of peace", Value: 25, Permanent: true})
	for m := 1; m <= 120; m++ {
		s.SetMonth(m)
		s.DecayMonthly(1)
	}
	if op := s.Opinion(1, 2); op != 25 {
		t.Errorf("opinion = %d, want permanent 25", op)
	}
}

func TestCooldowns(t *testing.T) {
	s := newTestStore(t, 1, 2)
	s.StartCooldown(1, 2, MoveDeclareWar)
	if !s.OnCooldown(1, 2, MoveDeclareWar) {
		t.Fatal("war should be on cooldown")
	}
	if s.OnCooldown(2, 1, MoveDeclareWar) {
		t.Error("cooldown leaked to the other side")
	}
	s.SetMonth(12)
	if s.OnCooldown(1, 2, MoveDeclareWar) {
		t.Error("war cooldown should have lapsed after 12 months")
	}
}

func TestProcessTreatiesExpiryAndBreach(t *testing.T) {
	s := newTestStore(t, 1, 2, 3)
	s.AddTreaty(NewTreaty(TreatyTrade, 1, 2, 0, 1))
	s.AddTreaty(NewTreaty(TreatyNonAggression, 1, 3, 0, 10))
	s.ModifyOpinion(3, 1, -100, "massacre")

	var expired, broken bool
	for m := 1; m <= 12; m++ {
		for _, n := range s.ProcessTreaties(m) {
			switch n.Kind {
			case "expired":
				expired = true
			case "broken":
				broken = true
				if n.Breaker != 3 {
					t.Errorf("breaker = %d, want 3", n.Breaker)
				}
			}
		}
	}
	if !expired {
		t.Error("one-year trade treaty did not expire")
	}
	if !broken {
		t.Error("pact with a hateful signatory did not break")
	}
	if s.HasTreaty(1, 3, TreatyNonAggression) {
		t.Error("broken pact still active")
	}
}

func TestProposalLifecycle(t *testing.T) {
	s := newTestStore(t, 1, 2)
	p := NewProposal(1, 2, MoveProposeAlliance, 0, 1)
	s.AddProposal(p)
	if !s.HasPendingProposal(1, 2, MoveProposeAlliance) {
		t.Fatal("proposal not pending")
	}
	if got := s.ExpireProposals(0); len(got) != 0 {
		t.Errorf("expired early: %v", got)
	}
	if got := s.ExpireProposals(1); len(got) != 1 {
		t.Errorf("expired = %d, want 1", len(got))
	}
	if _, ok := s.TakeProposal(p.ID); ok {
		t.Error("expired proposal still takeable")
	}
}

func TestOpinionHistoryRollup(t *testing.T) {
	var h OpinionHistory
	for m := 0; m < 24; m++ {
		h.Record(m, m)
	}
	if len(h.Monthly) != 12 {
		t.Errorf("monthly = %d, want 12", len(h.Monthly))
	}
	if len(h.Yearly) != 2 {
		t.Fatalf("yearly = %d, want 2", len(h.Yearly))
	}
	if h.Min != 0 || h.Max != 23 {
		t.Errorf("min/max = %d/%d, want 0/23", h.Min, h.Max)
	}
}
