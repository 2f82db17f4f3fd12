package influence

import (
	"math"
	"slices"
	"testing"

	"github.com/talgya/concord/internal/realm"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

// chain links 1-2-3-... as land neighbours.
func chain(n int) *fakeWorld {
	ids := make([]realm.ID, n)
	for i := range ids {
		ids[i] = realm.ID(i + 1)
	}
	w := newFakeWorld(ids...)
	for i := 1; i < n; i++ {
		w.border(ids[i-1], ids[i])
	}
	return w
}

func TestTwoHopMilitaryInfluenceThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{"kept at threshold 10", 10, 36},
		{"pruned above 36", 36.5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSystem(t, Config{MaxHops: 10, MinThreshold: tt.threshold, DecayRate: 0.02}, chain(3), newFakeRelations())
			s.SetStrengthFunc(fixedStrength(Military, map[realm.ID]float64{1: 100}))
			s.Propagate(1)

			st := s.State(3)
			if got := st.Strength(1, Military); !near(got, tt.want) {
				t.Errorf("strength on 3 = %v, want %v", got, tt.want)
			}
			if tt.want == 0 && slices.Contains(st.Influencers(), 1) {
				t.Error("pruned source still listed as influencer")
			}
			if got := s.State(2).Strength(1, Military); !near(got, 60) {
				t.Errorf("strength on 2 = %v, want 60", got)
			}
		})
	}
}

func TestEffectiveStrengthNonIncreasingInHops(t *testing.T) {
	s := NewSystem(DefaultConfig(), newFakeWorld(), newFakeRelations())
	for _, typ := range Types {
		for _, opinion := range []int{-100, 0, 60} {
			prev := math.Inf(1)
			for hops := 0; hops <= 10; hops++ {
				got := s.EffectiveStrength(100, typ, hops, opinion)
				if got > prev {
					t.Fatalf("%s opinion %d: %v at %d hops exceeds %v", typ, opinion, got, hops, prev)
				}
				prev = got
			}
		}
	}
}

func TestRelationshipModifier(t *testing.T) {
	tests := []struct {
		opinion int
		want    float64
	}{
		{-100, 0.5}, {0, 1}, {50, 1.25}, {100, 1.5}, {-300, 0.5},
	}
	for _, tt := range tests {
		if got := RelationshipModifier(tt.opinion); !near(got, tt.want) {
			t.Errorf("RelationshipModifier(%d) = %v, want %v", tt.opinion, got, tt.want)
		}
	}
}

func TestTargetOpinionScalesInfluence(t *testing.T) {
	rel := newFakeRelations()
	rel.opinions[[2]realm.ID{2, 1}] = 100
	s := NewSystem(DefaultConfig(), chain(2), rel)
	s.SetStrengthFunc(fixedStrength(Economic, map[realm.ID]float64{1: 40}))
	s.Propagate(1)
	// 40 * 0.85 * 1.5
	if got := s.State(2).Strength(1, Economic); !near(got, 51) {
		t.Errorf("strength = %v, want 51", got)
	}
}

func TestPropagationBlocking(t *testing.T) {
	tests := []struct {
		name  string
		setup func(w *fakeWorld, r *fakeRelations)
		reach []realm.ID
	}{
		{"open chain", func(*fakeWorld, *fakeRelations) {}, []realm.ID{2, 3, 4}},
		{"war with first hop", func(_ *fakeWorld, r *fakeRelations) {
			r.wars[realm.MakePair(1, 2)] = true
		}, []realm.ID{2}},
		{"origin hates a middle realm", func(_ *fakeWorld, r *fakeRelations) {
			r.opinions[[2]realm.ID{1, 3}] = -80
		}, []realm.ID{2, 3}},
		{"hostile middle segment is not checked", func(_ *fakeWorld, r *fakeRelations) {
			r.opinions[[2]realm.ID{2, 3}] = -100
			r.wars[realm.MakePair(2, 3)] = true
		}, []realm.ID{2, 3, 4}},
		{"vassal link always passes", func(w *fakeWorld, r *fakeRelations) {
			r.wars[realm.MakePair(1, 2)] = true
			snap := w.realms[2]
			snap.Liege = 1
			w.realms[2] = snap
		}, []realm.ID{2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, rel := chain(4), newFakeRelations()
			tt.setup(w, rel)
			s := newTestSystem(t, DefaultConfig(), w, rel)
			s.RebuildGraph()
			var got []realm.ID
			for id := range s.Reach(1) {
				got = append(got, id)
			}
			slices.Sort(got)
			if !slices.Equal(got, tt.reach) {
				t.Errorf("reach = %v, want %v", got, tt.reach)
			}
		})
	}
}

func TestMaxHops(t *testing.T) {
	s := newTestSystem(t, Config{MaxHops: 2, MinThreshold: 5}, chain(5), newFakeRelations())
	s.RebuildGraph()
	if got := s.HopDistance(1, 3); got != 2 {
		t.Errorf("hops to 3 = %d, want 2", got)
	}
	if got := s.HopDistance(1, 4); got != -1 {
		t.Errorf("hops to 4 = %d, want -1 beyond max hops", got)
	}
}

func TestGraphIncludesAlliesAndHierarchy(t *testing.T) {
	w := newFakeWorld(1, 2, 3, 4)
	snap := w.realms[3]
	snap.Vassals = []realm.ID{4}
	w.realms[3] = snap
	rel := newFakeRelations()
	rel.allies[1] = []realm.ID{2}
	s := newTestSystem(t, DefaultConfig(), w, rel)
	s.RebuildGraph()
	if got := s.Adjacent(2); !slices.Equal(got, []realm.ID{1}) {
		t.Errorf("adjacent(2) = %v, want [1]", got)
	}
	if got := s.Adjacent(4); !slices.Equal(got, []realm.ID{3}) {
		t.Errorf("adjacent(4) = %v, want [3]", got)
	}
}

func TestUnrefreshedInfluenceDecays(t *testing.T) {
	w := chain(2)
	s := newTestSystem(t, DefaultConfig(), w, newFakeRelations())
	s.SetStrengthFunc(fixedStrength(Military, map[realm.ID]float64{1: 100}))
	s.Propagate(1)
	clear(w.neighbors)
	s.Propagate(2)
	if got := s.State(2).Strength(1, Military); !near(got, 60*0.98) {
		t.Errorf("decayed strength = %v, want %v", got, 60*0.98)
	}

	// 58.8 * 0.98^n falls under the threshold of 5 after 122 months.
	for m := 3; m < 130; m++ {
		s.Propagate(m)
	}
	if got := s.State(2).Total; got != 0 {
		t.Errorf("total after long decay = %v, want 0", got)
	}
}

func TestStateAggregates(t *testing.T) {
	st := NewState(9)
	st.Sources[Military] = []Source{{Source: 1, Type: Military, Effective: 60}, {Source: 2, Type: Military, Effective: 30}}
	st.Sources[Cultural] = []Source{{Source: 2, Type: Cultural, Effective: 8}}
	st.Recalculate()
	if !near(st.Total, 98) {
		t.Errorf("total = %v, want 98", st.Total)
	}
	if st.Dominant[Military] != 1 {
		t.Errorf("dominant military = %v, want 1", st.Dominant[Military])
	}
	if _, ok := st.Dominant[Cultural]; ok {
		t.Error("cultural influence of 8 should not dominate")
	}
	if !near(st.Autonomy, 1-98.0/200) {
		t.Errorf("autonomy = %v", st.Autonomy)
	}
	if !near(st.DiplomaticFreedom, 1-90.0/150) {
		t.Errorf("diplomatic freedom = %v", st.DiplomaticFreedom)
	}
}

func TestSphereTiers(t *testing.T) {
	w := newFakeWorld(1, 2, 3)
	w.border(1, 3)
	w.border(2, 3)
	w.border(1, 2)
	s := newTestSystem(t, DefaultConfig(), w, newFakeRelations())
	s.SetStrengthFunc(fixedStrength(Military, map[realm.ID]float64{1: 150, 2: 50}))
	s.Propagate(1)
	s.UpdateSpheres()

	sp := s.SphereOf(1)
	if !slices.Equal(sp.Core, []realm.ID{2, 3}) {
		t.Errorf("core = %v, want [2 3]", sp.Core)
	}
	if !slices.Equal(sp.Contested, []realm.ID{3}) {
		t.Errorf("contested = %v, want [3]", sp.Contested)
	}
	sp2 := s.SphereOf(2)
	if !slices.Equal(sp2.Contested, []realm.ID{3}) {
		t.Errorf("contested for 2 = %v", sp2.Contested)
	}
	c, _ := s.Component(1)
	if c.Sphere.Size != 2 {
		t.Errorf("stored sphere size = %d, want 2", c.Sphere.Size)
	}
}

func TestTensionAndEscalation(t *testing.T) {
	c := NewConflict(3, 1, 2, Military, 40, 40)
	if c.Tension != 100 {
		t.Errorf("even tension = %v, want 100", c.Tension)
	}
	c = NewConflict(3, 1, 2, Military, 80, 20)
	if !near(c.Tension, 25) {
		t.Errorf("tension = %v, want 25", c.Tension)
	}
	for range 6 {
		c.AddIncident("friction")
	}
	// 25/200 + min(0.4, 0.6)
	if !near(c.EscalationRisk, 0.525) {
		t.Errorf("escalation risk = %v, want 0.525", c.EscalationRisk)
	}
	if c.IsFlashpoint() {
		t.Error("low tension conflict reported as flashpoint")
	}
}

func TestConflictsAccrueIncidents(t *testing.T) {
	w := newFakeWorld(1, 2, 3)
	w.border(1, 3)
	w.border(2, 3)
	s := newTestSystem(t, DefaultConfig(), w, newFakeRelations())
	s.SetStrengthFunc(fixedStrength(Military, map[realm.ID]float64{1: 50, 2: 50}))
	for month := 1; month <= 3; month++ {
		s.Propagate(month)
		s.UpdateConflicts(month)
	}
	cs := s.Conflicts()
	if len(cs) != 1 {
		t.Fatalf("conflicts = %d, want 1", len(cs))
	}
	c := cs[0]
	if c.ID != "3_1_2_military" {
		t.Errorf("id = %q", c.ID)
	}
	if len(c.Incidents) != 3 || c.StartMonth != 1 {
		t.Errorf("incidents = %d start = %d, want 3 and 1", len(c.Incidents), c.StartMonth)
	}
	if !c.Flashpoint || len(s.Flashpoints()) != 1 {
		t.Error("expected a flashpoint after three months of even rivalry")
	}
}

func TestCompetitionScore(t *testing.T) {
	top := Stake{Own: 50, Opponent: 40, Power: 100, Opinion: -100, Provinces: 10, Treasury: 1e6}
	if got := CompetitionScore(top); !near(got, 100) {
		t.Errorf("max score = %v, want 100", got)
	}
	if got := CompetitionScore(Stake{Opponent: 10, Opinion: 100}); got != 0 {
		t.Errorf("min score = %v, want 0", got)
	}
	tests := []struct {
		score float64
		want  Response
	}{
		{0, BackDown}, {29.9, BackDown}, {30, Hold}, {69.9, Hold}, {70, Escalate}, {100, Escalate},
	}
	for _, tt := range tests {
		if got := ResponseFor(tt.score); got != tt.want {
			t.Errorf("ResponseFor(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

// contestedSystem places 1 and 2 over target 3 with military influence 40 and 38.
func contestedSystem(t *testing.T) (*System, *Conflict) {
	t.Helper()
	w := newFakeWorld(1, 2, 3)
	strong := w.realms[1]
	strong.StandingArmy = 5000
	w.realms[1] = strong
	s := newTestSystem(t, DefaultConfig(), w, newFakeRelations())
	c := NewComponent(3)
	c.Incoming.Sources[Military] = []Source{
		{Source: 1, Type: Military, Effective: 40},
		{Source: 2, Type: Military, Effective: 38},
	}
	c.Incoming.Sources[Cultural] = []Source{{Source: 2, Type: Cultural, Effective: 20}}
	s.PutComponent(c)

	conflict := &Conflict{
		ID: ConflictID(3, 1, 2, Military), Target: 3, Primary: 1, Challenger: 2, Type: Military,
		PrimaryStrength: 40, ChallengerStrength: 38,
		Tension: 75, Incidents: []string{"a", "b", "c"}, EscalationRisk: 0.65,
	}
	return s, conflict
}

func TestFlashpointEscalation(t *testing.T) {
	s, c := contestedSystem(t)
	if !c.IsFlashpoint() {
		t.Fatal("tension 75, three incidents and risk 0.65 should be a flashpoint")
	}
	fx := &fakeEffects{}
	out := s.Resolve(c, Escalate, Escalate, fx)
	if out.Kind != OutcomeIncident {
		t.Fatalf("outcome = %v, want incident", out.Kind)
	}
	if out.Winner != 1 || out.Loser != 2 {
		t.Errorf("winner/loser = %v/%v, want 1/2", out.Winner, out.Loser)
	}
	if len(out.Conflict.Incidents) != 4 {
		t.Errorf("incidents = %d, want 4", len(out.Conflict.Incidents))
	}
	st := s.State(3)
	if got := st.Strength(2, Military); !near(got, 38*0.7) {
		t.Errorf("loser military = %v, want %v", got, 38*0.7)
	}
	if got := st.Strength(1, Military); !near(got, 40) {
		t.Errorf("winner military = %v, want 40", got)
	}
	var penalties int
	for _, oc := range fx.opinions {
		if oc.delta == incidentPenalty {
			penalties++
		}
	}
	if penalties != 2 {
		t.Errorf("incident penalties = %d, want 2", penalties)
	}
	if fx.glory[1] != winnerGlory {
		t.Errorf("winner glory = %v, want %v", fx.glory[1], winnerGlory)
	}
}

func TestMutualWithdrawal(t *testing.T) {
	s, c := contestedSystem(t)
	fx := &fakeEffects{}
	out := s.Resolve(c, BackDown, BackDown, fx)
	if out.Kind != OutcomeWithdrawal {
		t.Fatalf("outcome = %v, want withdrawal", out.Kind)
	}
	st := s.State(3)
	if !near(st.Strength(1, Military), 34) || !near(st.Strength(2, Cultural), 17) {
		t.Errorf("influence not reduced 15%%: %+v", st.Sources)
	}
	if len(fx.opinions) != 2 || fx.opinions[0].delta != withdrawalGoodwill {
		t.Errorf("opinion changes = %+v", fx.opinions)
	}
}

func TestConcession(t *testing.T) {
	s, c := contestedSystem(t)
	fx := &fakeEffects{}
	out := s.Resolve(c, BackDown, Hold, fx)
	if out.Kind != OutcomeConcession || out.Winner != 2 || out.Loser != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	if got := s.State(3).Strength(1, Military); !near(got, 28) {
		t.Errorf("loser influence = %v, want 28", got)
	}
	if fx.glory[2] != winnerGlory {
		t.Errorf("winner glory = %v", fx.glory[2])
	}
}

func TestStandoff(t *testing.T) {
	s, c := contestedSystem(t)
	s.PutConflict(c.clone())
	out := s.Resolve(c, Hold, Hold, &fakeEffects{})
	if out.Kind != OutcomeStandoff {
		t.Fatalf("outcome = %v, want standoff", out.Kind)
	}
	if !near(out.Conflict.Tension, 85) || len(out.Conflict.Incidents) != 4 {
		t.Errorf("tension %v incidents %d, want 85 and 4", out.Conflict.Tension, len(out.Conflict.Incidents))
	}
	if got := s.State(3).Strength(2, Military); !near(got, 38) {
		t.Errorf("standoff changed influence: %v", got)
	}
	if len(s.Conflicts()) != 1 {
		t.Error("standoff should keep the conflict open")
	}
}

func TestVassalPressure(t *testing.T) {
	w := newFakeWorld(1, 2, 3)
	liege := w.realms[1]
	liege.Vassals = []realm.ID{2}
	w.realms[1] = liege
	vassal := w.realms[2]
	vassal.Liege = 1
	w.realms[2] = vassal
	w.border(2, 3)

	s := newTestSystem(t, DefaultConfig(), w, newFakeRelations())
	s.SetStrengthFunc(fixedStrength(Military, map[realm.ID]float64{3: 150}))
	s.Propagate(1)
	s.UpdateVassals()
	s.UpdateVassals()

	c, _ := s.Component(1)
	if len(c.Vassals) != 1 {
		t.Fatalf("vassal records = %d, want 1", len(c.Vassals))
	}
	v := c.Vassals[0]
	if v.Influencer != 3 || !near(v.Strength, 90) || v.Months != 1 {
		t.Errorf("record = %+v", v)
	}
	if !v.MayDefect || !v.AtRisk() {
		t.Error("90 influence should put the vassal at risk of defection")
	}
}

func TestCharacterInfluence(t *testing.T) {
	w := chain(2)
	target := w.realms[2]
	target.Ruler = 7
	w.realms[2] = target
	w.courts[2] = []realm.CharacterID{7, 8}

	s := newTestSystem(t, DefaultConfig(), w, newFakeRelations())
	s.SetStrengthFunc(fixedStrength(Personal, map[realm.ID]float64{1: 100}))
	s.Propagate(1)
	s.UpdateCharacters()

	c, _ := s.Component(2)
	if len(c.Characters) != 2 {
		t.Fatalf("characters = %d, want 2", len(c.Characters))
	}
	ruler, courtier := c.Characters[0], c.Characters[1]
	if ruler.Character != 7 || !near(ruler.OpinionBias, 37.5) || ruler.Compromised {
		t.Errorf("ruler = %+v", ruler)
	}
	if courtier.Character != 8 || !near(courtier.Strength, 37.5) {
		t.Errorf("courtier = %+v", courtier)
	}
}

func TestCharacterCompromise(t *testing.T) {
	ci := CharacterInfluence{Strength: 95}
	ci.calculate()
	if !ci.Compromised || !ci.WouldSabotage() || !ci.WouldLeak() {
		t.Errorf("95 strength = %+v, want compromised saboteur", ci)
	}
	if !near(ci.DecisionBias(), 0.475) {
		t.Errorf("decision bias = %v", ci.DecisionBias())
	}
}

func TestBaseStrengthFormulas(t *testing.T) {
	kingdom := realm.Snapshot{
		Rank: realm.RankKingdom, Government: realm.GovFeudal,
		StandingArmy: 2000, Levies: 1000, Stability: 0.5, Legitimacy: 1,
	}
	// troops 65, tech 7.5, prestige 20 → 92.5 of 150
	if got := MilitaryStrength(kingdom); !near(got, 92.5/150*100) {
		t.Errorf("military = %v", got)
	}
	if got := ReligiousStrength(realm.Snapshot{Government: realm.GovTheocracy, Rank: realm.RankEmpire, Stability: 1}, realm.FaithSame); got != 100 {
		t.Errorf("religious = %v, want 100", got)
	}
	if got := CulturalStrength(realm.Snapshot{Rank: realm.RankBarony}, true); !near(got, 55) {
		t.Errorf("cultural = %v, want 55", got)
	}
	ties := []realm.Tie{{Kind: realm.TieSpouse, SpouseFromTarget: true, AllianceMarriage: true}, {Kind: realm.TieSibling}}
	if got := MarriageTies(ties); got != 45 {
		t.Errorf("marriage ties = %v, want 45", got)
	}
	same := realm.DynastySnapshot{ID: 4}
	if got := DynasticStrength(nil, same, same); !near(got, 20) {
		t.Errorf("same dynasty = %v, want 20", got)
	}
	for _, typ := range Types {
		calc := Calculator{World: newFakeWorld(1, 2), Relations: newFakeRelations()}
		if got := calc.Strength(1, 2, typ); got < 0 || got > 100 {
			t.Errorf("%s strength %v outside [0,100]", typ, got)
		}
		if got := calc.Strength(1, 99, typ); got != 0 {
			t.Errorf("%s strength on missing realm = %v, want 0", typ, got)
		}
	}
}

func TestTypeDecayOverride(t *testing.T) {
	s := NewSystem(Config{TypeDecay: map[string]float64{"military": 0.5, "bogus": 1}}, newFakeWorld(), newFakeRelations())
	if got := s.DistanceModifier(Military, 2); !near(got, 0.25) {
		t.Errorf("overridden modifier = %v, want 0.25", got)
	}
	if got := s.DistanceModifier(Religious, 9); got != 1 {
		t.Errorf("religious modifier = %v, want 1", got)
	}
}
