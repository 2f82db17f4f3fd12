package diplomacy

import (
	"testing"

	"github.com/talgya/concord/internal/realm"
)

func TestFormAllianceScenario(t *testing.T) {
	s := newTestStore(t, 1, 2)
	s.SetMonth(100)

	res := s.FormAlliance(1, 2)
	if !res.Success {
		t.Fatalf("alliance failed: %s", res.Reason)
	}
	if res.OpinionChange != 15 {
		t.Errorf("opinion change = %d, want 15", res.OpinionChange)
	}
	for _, pair := range [][2]int{{1, 2}, {2, 1}} {
		a, b := idOf(pair[0]), idOf(pair[1])
		if s.Relation(a, b) != RelationAllied {
			t.Errorf("%d→%d relation = %v, want allied", a, b, s.Relation(a, b))
		}
		if op := s.Opinion(a, b); op != 15 {
			t.Errorf("%d→%d opinion = %d, want 15", a, b, op)
		}
	}
	treaties := s.TreatiesOfType(1, 2, TreatyAlliance)
	if len(treaties) != 1 {
		t.Fatalf("alliance treaties = %d, want 1", len(treaties))
	}
	if years := (treaties[0].ExpiryMonth - 100) / 12; years < 20 || years > 25 {
		t.Errorf("alliance lasts %d years, want 20–25", years)
	}

	if again := s.FormAlliance(1, 2); again.Success {
		t.Error("second alliance should fail")
	}
}

func TestDeclareWarScenario(t *testing.T) {
	s := newTestStore(t, 1, 2)
	nap := s.AddTreaty(NewTreaty(TreatyNonAggression, 1, 2, 0, 10))

	res := s.DeclareWar(1, 2, CasusBorderDispute)
	if !res.Success {
		t.Fatalf("war failed: %s", res.Reason)
	}
	if s.HasTreaty(1, 2, TreatyNonAggression) {
		t.Error("non-aggression pact still active")
	}
	if len(res.Broken) != 1 || res.Broken[0].ID != nap.ID || res.Broken[0].BrokenBy != 1 {
		t.Errorf("broken = %+v, want the pact broken by 1", res.Broken)
	}
	for _, pair := range [][2]int{{1, 2}, {2, 1}} {
		a, b := idOf(pair[0]), idOf(pair[1])
		if s.Relation(a, b) != RelationAtWar {
			t.Errorf("%d→%d relation = %v, want at war", a, b, s.Relation(a, b))
		}
		if op := s.Opinion(a, b); op > -50 || op < -75 {
			t.Errorf("%d→%d opinion = %d, want within [-75,-50]", a, b, op)
		}
	}
	if w := s.Profile(1).WarWeariness; w < 0.1 {
		t.Errorf("aggressor weariness = %v, want >= 0.1", w)
	}
	if w := s.Profile(2).WarWeariness; w < 0.05 {
		t.Errorf("target weariness = %v, want >= 0.05", w)
	}
	if again := s.DeclareWar(1, 2, CasusNone); again.Success {
		t.Error("declaring war twice should fail")
	}
}

func TestPreconditionFailures(t *testing.T) {
	s := newTestStore(t, 1, 2, 3)
	s.DeclareWar(1, 2, CasusNone)

	tests := []struct {
		name string
		res  ActionResult
	}{
		{"ally an enemy", s.FormAlliance(1, 2)},
		{"trade with an enemy", s.SignTrade(1, 2, 100)},
		{"unknown realm", s.FormAlliance(1, 99)},
		{"self", s.SendGift(3, 3, 50)},
		{"peace without war", s.MakePeace(1, 3)},
		{"break missing alliance", s.BreakAlliance(1, 3)},
		{"recall missing embassy", s.RecallEmbassy(1, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.res.Success {
				t.Error("expected failure")
			}
			if tt.res.Reason == "" {
				t.Error("failure without a reason")
			}
		})
	}
}

func TestAllianceCooldown(t *testing.T) {
	s := newTestStore(t, 1, 2)
	if !s.FormAlliance(1, 2).Success {
		t.Fatal("alliance failed")
	}
	s.BreakAlliance(1, 2)
	if res := s.FormAlliance(1, 2); res.Success {
		t.Error("re-alliance inside cooldown should fail")
	}
	s.SetMonth(6)
	if res := s.FormAlliance(1, 2); !res.Success {
		t.Errorf("alliance after cooldown failed: %s", res.Reason)
	}
}

func TestBreakAllianceIsBetrayal(t *testing.T) {
	s := newTestStore(t, 1, 2)
	s.FormAlliance(1, 2)
	before := s.Profile(1).Reputation

	res := s.BreakAlliance(1, 2)
	if !res.Success || res.Incident == nil || *res.Incident != IncidentBetrayal {
		t.Fatalf("break result = %+v", res)
	}
	if s.Allied(1, 2) || s.Allied(2, 1) {
		t.Error("still allied")
	}
	if s.HasTreaty(1, 2, TreatyAlliance) {
		t.Error("alliance treaty still active")
	}
	if s.Profile(1).Reputation >= before {
		t.Error("breaker reputation did not fall")
	}
}

func TestPeaceSignsPact(t *testing.T) {
	s := newTestStore(t, 1, 2)
	s.DeclareWar(1, 2, CasusNone)
	res := s.MakePeace(2, 1)
	if !res.Success {
		t.Fatalf("peace failed: %s", res.Reason)
	}
	if s.AtWar(1, 2) || s.AtWar(2, 1) {
		t.Error("still at war")
	}
	if !s.HasTreaty(1, 2, TreatyNonAggression) {
		t.Error("peace did not produce a pact")
	}
}

func TestMarriageWithAlliance(t *testing.T) {
	s := newTestStore(t, 1, 2)
	res := s.ArrangeMarriage(1, 2, true)
	if !res.Success || res.Marriage == nil {
		t.Fatalf("marriage failed: %+v", res)
	}
	if s.MarriagesBetween(2, 1) != 1 {
		t.Error("marriage not recorded on groom's house")
	}
	if !s.Allied(1, 2) {
		t.Error("marriage alliance not formed")
	}
	if !s.HasTreaty(1, 2, TreatyMarriagePact) {
		t.Error("marriage pact missing")
	}
}

func TestGiftOnlyMovesRecipient(t *testing.T) {
	s := newTestStore(t, 1, 2)
	res := s.SendGift(1, 2, 200)
	if !res.Success || res.OpinionChange <= 0 {
		t.Fatalf("gift result = %+v", res)
	}
	if s.Opinion(2, 1) != res.OpinionChange {
		t.Errorf("recipient opinion = %d, want %d", s.Opinion(2, 1), res.OpinionChange)
	}
	if s.Opinion(1, 2) != 0 {
		t.Errorf("giver opinion moved to %d", s.Opinion(1, 2))
	}
	if s.SendGift(1, 2, 200).Success {
		t.Error("second gift in the same month should be on cooldown")
	}
}

func TestEmbassyLifecycle(t *testing.T) {
	s := newTestStore(t, 1, 2)
	if !s.EstablishEmbassy(1, 2).Success {
		t.Fatal("embassy failed")
	}
	s.SetMonth(5)
	if s.EstablishEmbassy(1, 2).Success {
		t.Error("duplicate embassy allowed")
	}
	if !s.RecallEmbassy(1, 2).Success {
		t.Error("recall failed")
	}
}

func TestExecuteDispatch(t *testing.T) {
	s := newTestStore(t, 1, 2)
	if res := s.Execute(MoveSendGift, 1, 2, 100); !res.Success {
		t.Errorf("gift via Execute failed: %s", res.Reason)
	}
	if res := s.Execute(Move(200), 1, 2, 0); res.Success {
		t.Error("unknown move succeeded")
	}
}

func idOf(n int) realm.ID { return realm.ID(n) }
