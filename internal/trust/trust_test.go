package trust

import (
	"math"
	"testing"

	"github.com/talgya/concord/internal/diplomacy"
	"github.com/talgya/concord/internal/memory"
	"github.com/talgya/concord/internal/realm"
)

func TestNewDataIsNeutral(t *testing.T) {
	d := NewData()
	if math.Abs(d.Overall-0.5) > 1e-9 {
		t.Errorf("overall = %v, want 0.5", d.Overall)
	}
	if d.Min != 0 || d.Max != 1 {
		t.Errorf("bounds = [%v,%v], want [0,1]", d.Min, d.Max)
	}
}

func TestModifyWeightedAverage(t *testing.T) {
	d := NewData()
	d.Modify(TreatyCompliance, 0.5)
	// (1.0*1.5 + 0.5*(1.3+1.0+0.8+1.2)) / 5.8
	want := (1.5 + 0.5*4.3) / 5.8
	if math.Abs(d.Overall-want) > 1e-9 {
		t.Errorf("overall = %v, want %v", d.Overall, want)
	}
	f := d.Factor(TreatyCompliance)
	if f.Value != 1 || f.Positive != 1 {
		t.Errorf("factor = %+v, want value 1 and one positive", f)
	}
}

func TestFactorClampAndHistoryWindow(t *testing.T) {
	d := NewData()
	for range 40 {
		d.Modify(EconomicReliability, -0.1)
	}
	f := d.Factor(EconomicReliability)
	if f.Value != 0 {
		t.Errorf("value = %v, want 0", f.Value)
	}
	if len(f.History) != historyWindow {
		t.Errorf("history = %d, want %d", len(f.History), historyWindow)
	}
	if f.Negative != 40 {
		t.Errorf("negative = %d, want 40", f.Negative)
	}
}

func TestTrendFollowsDirection(t *testing.T) {
	d := NewData()
	for range 5 {
		d.Modify(PersonalRelationship, 0.05)
	}
	if tr := d.Factor(PersonalRelationship).Trend; tr <= 0 {
		t.Errorf("trend = %v, want positive", tr)
	}
}

func TestBoundsTightenAfterCollapse(t *testing.T) {
	d := NewData()
	d.Modify(TreatyCompliance, -0.5)
	d.Modify(MilitaryReliability, -0.5)
	d.Modify(HistoricalBehavior, -0.5)
	d.Modify(EconomicReliability, -0.5)
	if d.Max != 0.7 {
		t.Fatalf("max = %v, want 0.7 after a collapse (overall %v)", d.Max, d.Overall)
	}
}

func TestFloorRisesAfterSustainedClimb(t *testing.T) {
	d := NewData()
	for _, f := range []FactorType{TreatyCompliance, MilitaryReliability, HistoricalBehavior, EconomicReliability, PersonalRelationship} {
		d.Modify(f, 0.45)
	}
	if d.Min != 0.3 {
		t.Errorf("min = %v, want 0.3 (overall %v)", d.Min, d.Overall)
	}
}

func TestTrustStaysWithinBounds(t *testing.T) {
	d := NewData()
	deltas := []float64{0.3, -0.9, 0.7, -0.2, 0.5, 1, -1, 0.05, 0.4}
	for i := range 200 {
		f := FactorType(i % int(factorCount))
		d.Modify(f, deltas[i%len(deltas)])
		if i%17 == 0 {
			d.SetCeiling(0.8)
		}
		if d.Overall < d.Min || d.Overall > d.Max {
			t.Fatalf("step %d: overall %v outside [%v,%v]", i, d.Overall, d.Min, d.Max)
		}
		if d.Min < 0 || d.Max > 1 || d.Min > d.Max {
			t.Fatalf("step %d: bad bounds [%v,%v]", i, d.Min, d.Max)
		}
	}
}

func TestDrift(t *testing.T) {
	d := NewData()
	d.Modify(TreatyCompliance, 0.4)
	before := d.Factor(TreatyCompliance).Value
	d.Drift(0)
	if d.Factor(TreatyCompliance).Value != before {
		t.Fatal("zero-month drift changed trust")
	}
	d.Drift(12)
	got := d.Factor(TreatyCompliance).Value
	want := 0.5 + (before-0.5)*math.Pow(0.99, 12)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("after drift = %v, want %v", got, want)
	}
}

func TestModelIsSymmetric(t *testing.T) {
	m := NewModel()
	m.Modify(1, 2, TreatyCompliance, 0.2, "treaty kept")
	if m.Trust(1, 2) != m.Trust(2, 1) {
		t.Errorf("trust differs by direction: %v vs %v", m.Trust(1, 2), m.Trust(2, 1))
	}
	if len(m.Pairs()) != 1 {
		t.Errorf("pairs = %d, want 1", len(m.Pairs()))
	}
	if got := m.Trust(3, 4); got != 0.5 {
		t.Errorf("unknown pair trust = %v, want 0.5", got)
	}
}

// Three betrayals leave a grudge and a permanent 0.6 ceiling.
func TestBetrayalCeilingAndGrudge(t *testing.T) {
	var a, b realm.ID = 1, 2
	m := NewModel()
	mem := memory.NewSystem(nil, 0)
	for i := range 3 {
		mem.RecordType(memory.StabbedInBack, a, b, i*12, "alliance abandoned mid-war")
		m.OnBetrayal(a, b)
	}
	if !mem.HasGrudge(b, a) {
		t.Error("expected grudge after three betrayals")
	}
	for _, f := range []FactorType{TreatyCompliance, MilitaryReliability, EconomicReliability, PersonalRelationship, HistoricalBehavior} {
		for range 20 {
			if got := m.Modify(a, b, f, 0.3, "amends"); got > 0.6+1e-9 {
				t.Fatalf("trust = %v, want <= 0.6", got)
			}
		}
	}
	if got := m.Get(a, b).Max; got > 0.6 {
		t.Errorf("ceiling = %v, want <= 0.6", got)
	}
}

func TestApplyIncident(t *testing.T) {
	m := NewModel()
	got := m.ApplyIncident(1, 2, diplomacy.IncidentMilitaryAggression)
	if got >= 0.5 {
		t.Errorf("trust after aggression = %v, want < 0.5", got)
	}
	if v := m.Get(1, 2).Factor(MilitaryReliability).Value; math.Abs(v-0.3) > 1e-9 {
		t.Errorf("military reliability = %v, want 0.3", v)
	}
	m.ApplyIncident(3, 4, diplomacy.IncidentBetrayal)
	if got := m.Get(3, 4).Max; got != 0.6 {
		t.Errorf("ceiling after betrayal incident = %v, want 0.6", got)
	}
}

func TestSupportAndObligationHooks(t *testing.T) {
	tests := []struct {
		name   string
		apply  func(m *Model)
		factor FactorType
		want   float64
	}{
		{"support given", func(m *Model) { m.OnMilitarySupport(1, 2, true) }, MilitaryReliability, 0.65},
		{"support refused", func(m *Model) { m.OnMilitarySupport(1, 2, false) }, MilitaryReliability, 0.25},
		{"obligation kept", func(m *Model) { m.OnEconomicObligation(1, 2, true) }, EconomicReliability, 0.55},
		{"obligation missed", func(m *Model) { m.OnEconomicObligation(1, 2, false) }, EconomicReliability, 0.40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel()
			tt.apply(m)
			if got := m.Get(1, 2).Factor(tt.factor).Value; math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("factor = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRebuildingPath(t *testing.T) {
	m := NewModel()
	m.OnBetrayal(1, 2)
	m.StartRebuilding(2, 1, 0.6)
	if again := m.StartRebuilding(1, 2, 0.9); again.TargetTrust != 0.6 {
		t.Errorf("second start replaced plan: target %v", again.TargetTrust)
	}

	peace := func(a, b realm.ID) bool { return true }
	if done := m.UpdateRebuilding(0, peace); done != nil {
		t.Fatalf("zero months completed %v", done)
	}
	m.UpdateRebuilding(23, peace)
	p, _ := m.Path(1, 2)
	if p.Progress != 0 {
		t.Errorf("progress before peace requirement = %v, want 0", p.Progress)
	}
	before := m.Trust(1, 2)
	m.UpdateRebuilding(1, peace)
	p, _ = m.Path(1, 2)
	if math.Abs(p.Progress-0.16) > 1e-9 {
		t.Errorf("progress = %v, want 0.16", p.Progress)
	}
	if m.Trust(1, 2) <= before {
		t.Error("natural recovery did not raise trust")
	}

	m.CompleteRequirement(1, 2, ReqTreaties)
	for range 3 {
		m.RecordGift(2, 1)
	}
	var done []realm.Pair
	for range 60 {
		if done = m.UpdateRebuilding(1, peace); len(done) > 0 {
			break
		}
	}
	if len(done) != 1 || done[0] != realm.MakePair(1, 2) {
		t.Fatalf("completed = %v, want pair 1_2", done)
	}
	if _, ok := m.Path(1, 2); ok {
		t.Error("completed plan still open")
	}
}

func TestWarResetsPeaceCount(t *testing.T) {
	p := NewPath(1, 2, 0.2, 0.5)
	p.Advance(20, true)
	p.Advance(1, false)
	if p.PeaceMonths != 0 {
		t.Errorf("peace months = %d, want 0 after war", p.PeaceMonths)
	}
	if p.IsComplete() {
		t.Error("plan complete without requirements")
	}
}

func TestTrustworthiness(t *testing.T) {
	m := NewModel()
	if got := m.Trustworthiness(7); got != 1 {
		t.Errorf("no history = %v, want 1", got)
	}
	m.RecordTreaty(7, false)
	// 0.7*0 + 0.3*1
	if got := m.Trustworthiness(7); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("after violation = %v, want 0.3", got)
	}
	m.RecordTreaty(7, true)
	// 0.7*0.5 + 0.3*0.3
	if got := m.Trustworthiness(7); math.Abs(got-0.44) > 1e-9 {
		t.Errorf("after honoring = %v, want 0.44", got)
	}
}
