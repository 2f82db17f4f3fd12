package memory

import (
	"testing"

	"github.com/talgya/concord/internal/realm"
)

func TestCategoryFromCode(t *testing.T) {
	tests := []struct {
		typ  EventType
		want Category
	}{
		{WarDeclared, CategoryMilitary},
		{GiftSent, CategoryEconomic},
		{AllianceBroken, CategoryDiplomatic},
		{MarriageArranged, CategoryDynastic},
		{StabbedInBack, CategoryBetrayal},
	}
	for _, tt := range tests {
		if got := tt.typ.Category(); got != tt.want {
			t.Errorf("%s category = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestForgettingTakesExpectedMonths(t *testing.T) {
	for _, d := range []float64{0.02, 0.05, 0.08, 0.1} {
		want := MonthsToForget(d)
		e := Event{DecayRate: d, Weight: 1}
		for m := 1; m < want; m++ {
			e.ApplyDecay(1)
			if e.Forgotten() {
				t.Fatalf("rate %v: forgotten after %d months, want %d", d, m, want)
			}
		}
		e.ApplyDecay(1)
		if !e.Forgotten() {
			t.Errorf("rate %v: still remembered after %d months (weight %v)", d, want, e.Weight)
		}
	}
	if MonthsToForget(0.05) != 59 {
		t.Errorf("MonthsToForget(0.05) = %d, want 59", MonthsToForget(0.05))
	}
}

func TestPermanentEventNeverDecays(t *testing.T) {
	e := NewEvent(WarDeclared, 1, 2, 0, DefaultImpacts())
	if !e.Permanent {
		t.Fatal("war declaration should be permanent")
	}
	e.ApplyDecay(600)
	if e.Weight != 1 || e.CurrentOpinion() != -75 {
		t.Errorf("permanent event decayed: weight=%v opinion=%d", e.Weight, e.CurrentOpinion())
	}
}

func TestWeightSnapsToZero(t *testing.T) {
	e := Event{DecayRate: 0.5, Weight: 1}
	e.ApplyDecay(7) // 0.0078
	if e.Weight != 0 {
		t.Errorf("weight = %v, want 0", e.Weight)
	}
}

func TestDecayAndPruneIdempotentAtZero(t *testing.T) {
	l := NewLedger(1, 2)
	im := DefaultImpacts()
	l.Record(NewEvent(GiftSent, 1, 2, 0, im), DefaultMaxEvents)
	l.Record(NewEvent(AllianceFormed, 1, 2, 1, im), DefaultMaxEvents)

	before := l.OpinionImpact()
	l.ApplyMonthlyDecay(0)
	l.Prune(DefaultMaxEvents)
	if l.OpinionImpact() != before || len(l.Events) != 2 {
		t.Errorf("zero-month decay changed the ledger: %d → %d", before, l.OpinionImpact())
	}
}

func TestPruneEvictsOldestNonPermanent(t *testing.T) {
	im := DefaultImpacts()
	l := NewLedger(1, 2)
	l.Record(NewEvent(WarDeclared, 1, 2, 0, im), 0)
	for m := 1; m <= 5; m++ {
		l.Record(NewEvent(GiftSent, 1, 2, m, im), 0)
	}
	l.Prune(3)
	if len(l.Events) != 3 {
		t.Fatalf("events = %d, want 3", len(l.Events))
	}
	if l.Events[0].Type != WarDeclared {
		t.Error("permanent event was evicted")
	}
	if l.Events[1].Month != 4 {
		t.Errorf("oldest surviving gift from month %d, want 4", l.Events[1].Month)
	}
	if got := len(l.ByCategory(CategoryEconomic)); got != 2 {
		t.Errorf("category index = %d, want 2", got)
	}
}

func TestHardCapOnRecord(t *testing.T) {
	im := DefaultImpacts()
	l := NewLedger(1, 2)
	for m := 0; m < 250; m++ {
		l.Record(NewEvent(TreatyHonored, 1, 2, m, im), DefaultMaxEvents)
	}
	if len(l.Events) > DefaultMaxEvents {
		t.Errorf("events = %d, want <= %d", len(l.Events), DefaultMaxEvents)
	}
}

func TestGrudgeAfterThreeBetrayals(t *testing.T) {
	s := NewSystem(nil, 0)
	for m := 0; m < 3; m++ {
		s.RecordType(SpyCaught, 2, 1, m, "spy")
	}
	if !s.HasGrudge(1, 2) || !s.HasGrudge(2, 1) {
		t.Error("three betrayals should produce a grudge on both sides")
	}
	patterns := s.ClaimPatterns()
	if len(patterns) != 2 {
		t.Fatalf("patterns = %+v, want 2", patterns)
	}
	if again := s.ClaimPatterns(); len(again) != 0 {
		t.Errorf("grudge reported twice: %+v", again)
	}
}

func TestDeepFriendshipNeedsTwentyYears(t *testing.T) {
	im := DefaultImpacts()
	l := NewLedger(1, 2)
	for i := 0; i < 10; i++ {
		l.Record(NewEvent(TreatyHonored, 1, 2, i*12, im), 0)
	}
	if l.HasDeepFriendship() {
		t.Fatal("nine years of honored treaties is not a deep friendship")
	}
	l.Record(NewEvent(TreatyHonored, 1, 2, 240, im), 0)
	if !l.HasDeepFriendship() {
		t.Error("eleven positive events over twenty years should count")
	}
}

func TestRivalAndAlly(t *testing.T) {
	s := NewSystem(nil, 0)
	for i := 0; i < 3; i++ {
		s.RecordType(BattleLostTogether, 1, 2, i, "")
		s.RecordType(BattleWonTogether, 1, 3, i, "")
	}
	if !s.IsHistoricalRival(1, 2) {
		t.Error("1 and 2 should be rivals")
	}
	if !s.IsHistoricalAlly(3, 1) {
		t.Error("3 and 1 should be allies")
	}
	if s.IsHistoricalAlly(1, 2) {
		t.Error("rivals cannot be historical allies")
	}
}

func TestTrustImpactClamped(t *testing.T) {
	s := NewSystem(nil, 0)
	for i := 0; i < 5; i++ {
		s.RecordType(StabbedInBack, 1, 2, i, "")
	}
	if got := s.TrustImpact(1, 2); got != -1 {
		t.Errorf("trust impact = %v, want -1", got)
	}
}

func TestReputationEvents(t *testing.T) {
	s := NewSystem(nil, 0)
	s.RecordType(AllianceBroken, 1, 2, 0, "")
	s.RecordType(GiftSent, 1, 2, 0, "")
	b, ok := s.Book(1)
	if !ok {
		t.Fatal("no memory for realm 1")
	}
	if len(b.Reputation) != 1 {
		t.Errorf("reputation events = %d, want 1", len(b.Reputation))
	}
}

func TestImpactOverrides(t *testing.T) {
	im, err := DefaultImpacts().WithOverrides(map[string]Impact{
		"gift_sent": {Severity: SeverityMinor, Opinion: 500, DecayRate: 0.2},
	})
	if err != nil {
		t.Fatalf("overrides: %v", err)
	}
	if got := im.For(GiftSent).Opinion; got != 100 {
		t.Errorf("override opinion = %d, want clamped 100", got)
	}
	if DefaultImpacts().For(GiftSent).Opinion != 10 {
		t.Error("override leaked into the default table")
	}
	if _, err := DefaultImpacts().WithOverrides(map[string]Impact{"no_such_event": {}}); err == nil {
		t.Error("unknown event name accepted")
	}
}

func TestMilestonesAwardedOnce(t *testing.T) {
	mt := NewMilestoneTracker(1, 2)
	var awarded []Milestone
	for y := 0; y < 100; y++ {
		awarded = append(awarded, mt.YearlyUpdate(PairStatus{Allied: true}, 1000+y)...)
	}
	counts := make(map[MilestoneType]int)
	for _, m := range awarded {
		counts[m.Type]++
	}
	for _, typ := range []MilestoneType{FirstContact, FirstAlliance, CenturyOfPeace, EternalAlliance} {
		if counts[typ] != 1 {
			t.Errorf("%s awarded %d times, want 1", typ, counts[typ])
		}
	}
	if counts[FirstWar] != 0 {
		t.Error("first war awarded during peace")
	}
	if got := mt.OpinionModifier(); got != 0+10+25+40 {
		t.Errorf("opinion modifier = %d, want 75", got)
	}
}

func TestYearlyMilestonesThroughSystem(t *testing.T) {
	s := NewSystem(nil, 0)
	s.Touch(1, 2)
	awards := s.YearlyMilestones(1066, func(self, other realm.ID) PairStatus {
		return PairStatus{AtWar: true}
	})
	if len(awards) != 2 {
		t.Fatalf("awards = %+v, want first contact and first war", awards)
	}
	if awards[1].Milestone.Type != FirstWar {
		t.Errorf("second award = %s, want first_war", awards[1].Milestone.Type)
	}
}
