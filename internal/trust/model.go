// Trust model — per-pair trust data, rebuilding plans, and per-realm trustworthiness.
package trust

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/talgya/concord/internal/diplomacy"
	"github.com/talgya/concord/internal/realm"
	"github.com/talgya/concord/internal/repo"
)

// Record is one realm's treaty-keeping history, seen by every other realm.
type Record struct {
	Realm            realm.ID `json:"realm"`
	TreatiesHonored  int      `json:"treaties_honored"`
	TreatiesViolated int      `json:"treaties_violated"`
	Trustworthiness  float64  `json:"trustworthiness"`
}

func (r *Record) recalculate() {
	total := r.TreatiesHonored + r.TreatiesViolated
	if total == 0 {
		r.Trustworthiness = 1.0
		return
	}
	ratio := float64(r.TreatiesHonored) / float64(total)
	r.Trustworthiness = 0.7*ratio + 0.3*r.Trustworthiness
}

// Model owns all trust data. Pair data sits behind one mutex; realm records use
// per-realm guards.
type Model struct {
	mu      sync.RWMutex
	pairs   map[realm.Pair]*Data
	paths   map[realm.Pair]*Path
	records *repo.Repository[realm.ID, *Record]
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		pairs: make(map[realm.Pair]*Data),
		paths: make(map[realm.Pair]*Path),
		records: repo.New(func(id realm.ID) *Record {
			return &Record{Realm: id, Trustworthiness: 1.0}
		}),
	}
}

// data returns the pair's data, creating it if needed. Caller holds mu.
func (m *Model) data(a, b realm.ID) *Data {
	p := realm.MakePair(a, b)
	d, ok := m.pairs[p]
	if !ok {
		d = NewData()
		m.pairs[p] = d
	}
	return d
}

// Get returns a copy of the pair's trust data. Unknown pairs read as neutral.
func (m *Model) Get(a, b realm.ID) *Data {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.pairs[realm.MakePair(a, b)]; ok {
		return d.Clone()
	}
	return NewData()
}

// Trust returns the overall trust between a and b.
func (m *Model) Trust(a, b realm.ID) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.pairs[realm.MakePair(a, b)]; ok {
		return d.Overall
	}
	return 0.5
}

// Modify shifts one factor and returns the new overall trust.
func (m *Model) Modify(a, b realm.ID, t FactorType, delta float64, reason string) float64 {
	if a == b {
		return 1
	}
	m.mu.Lock()
	d := m.data(a, b)
	d.Modify(t, delta)
	overall := d.Overall
	m.mu.Unlock()
	slog.Debug("trust modified", "a", a, "b", b, "factor", t, "delta", delta, "reason", reason, "trust", overall)
	return overall
}

var incidentFactors = map[diplomacy.Incident]FactorType{
	diplomacy.IncidentTreatyBreach:        TreatyCompliance,
	diplomacy.IncidentBetrayal:            TreatyCompliance,
	diplomacy.IncidentMilitaryAggression:  MilitaryReliability,
	diplomacy.IncidentEspionageDiscovered: PersonalRelationship,
	diplomacy.IncidentHonoringAlliance:    MilitaryReliability,
	diplomacy.IncidentKeepingPromise:      TreatyCompliance,
	diplomacy.IncidentDiplomaticSupport:   PersonalRelationship,
	diplomacy.IncidentTradeFulfilled:      EconomicReliability,
}

// ApplyIncident routes an incident to its factor. Betrayal also lowers the ceiling.
func (m *Model) ApplyIncident(a, b realm.ID, incident diplomacy.Incident) float64 {
	if incident == diplomacy.IncidentBetrayal {
		return m.OnBetrayal(a, b)
	}
	return m.Modify(a, b, incidentFactors[incident], diplomacy.TrustDelta(incident), "incident")
}

// OnBetrayal collapses treaty and military trust and caps the pair at 0.6 for good.
func (m *Model) OnBetrayal(a, b realm.ID) float64 {
	if a == b {
		return 1
	}
	m.mu.Lock()
	d := m.data(a, b)
	d.Modify(TreatyCompliance, -0.6)
	d.Modify(MilitaryReliability, -0.5)
	d.SetCeiling(min(d.Max, 0.6))
	overall := d.Overall
	m.mu.Unlock()
	slog.Info("trust betrayed", "a", a, "b", b, "trust", overall)
	return overall
}

// OnMilitarySupport records whether an ally answered a call to arms.
func (m *Model) OnMilitarySupport(a, b realm.ID, provided bool) float64 {
	delta := 0.15
	if !provided {
		delta = -0.25
	}
	return m.Modify(a, b, MilitaryReliability, delta, "military support")
}

// OnEconomicObligation records whether an economic promise was kept.
func (m *Model) OnEconomicObligation(a, b realm.ID, fulfilled bool) float64 {
	delta := 0.05
	if !fulfilled {
		delta = -0.10
	}
	return m.Modify(a, b, EconomicReliability, delta, "economic obligation")
}

// SetFloor sets the pair's minimum trust.
func (m *Model) SetFloor(a, b realm.ID, floor float64) {
	m.mu.Lock()
	m.data(a, b).SetFloor(floor)
	m.mu.Unlock()
}

// SetCeiling sets the pair's maximum trust.
func (m *Model) SetCeiling(a, b realm.ID, ceiling float64) {
	m.mu.Lock()
	m.data(a, b).SetCeiling(ceiling)
	m.mu.Unlock()
}

// Pairs returns every pair with trust data, in order.
func (m *Model) Pairs() []realm.Pair {
	m.mu.RLock()
	out := make([]realm.Pair, 0, len(m.pairs))
	for p := range m.pairs {
		out = append(out, p)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, comparePairs)
	return out
}

// Put replaces a pair's data, used when loading.
func (m *Model) Put(p realm.Pair, d *Data) {
	m.mu.Lock()
	m.pairs[p] = d
	m.mu.Unlock()
}

// Drift pulls every pair toward neutral.
func (m *Model) Drift(months int) {
	if months <= 0 {
		return
	}
	m.mu.Lock()
	for _, d := range m.pairs {
		d.Drift(months)
	}
	m.mu.Unlock()
}

// StartRebuilding opens a recovery plan for the pair. An existing plan is kept.
func (m *Model) StartRebuilding(initiator, other realm.ID, target float64) *Path {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := realm.MakePair(initiator, other)
	if path, ok := m.paths[p]; ok {
		return path
	}
	path := NewPath(initiator, other, m.data(initiator, other).Overall, target)
	m.paths[p] = path
	slog.Info("trust rebuilding started", "initiator", initiator, "other", other, "target", target)
	return path
}

// Path returns a copy of the pair's rebuilding plan.
func (m *Model) Path(a, b realm.ID) (Path, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path, ok := m.paths[realm.MakePair(a, b)]
	if !ok {
		return Path{}, false
	}
	c := *path
	c.Requirements = slices.Clone(path.Requirements)
	return c, true
}

// Paths returns copies of all open plans in pair order.
func (m *Model) Paths() []Path {
	m.mu.RLock()
	out := make([]Path, 0, len(m.paths))
	for _, p := range m.paths {
		c := *p
		c.Requirements = slices.Clone(p.Requirements)
		out = append(out, c)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(x, y Path) int { return comparePairs(x.Pair, y.Pair) })
	return out
}

// PutPath replaces a pair's plan, used when loading.
func (m *Model) PutPath(p Path) {
	m.mu.Lock()
	m.paths[p.Pair] = &p
	m.mu.Unlock()
}

// CompleteRequirement marks a named requirement done on the pair's open plan.
func (m *Model) CompleteRequirement(a, b realm.ID, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	path, ok := m.paths[realm.MakePair(a, b)]
	if !ok {
		return false
	}
	return path.Complete(name)
}

// RecordGift counts a gift toward the pair's plan, if one is open.
func (m *Model) RecordGift(a, b realm.ID) {
	m.mu.Lock()
	if path, ok := m.paths[realm.MakePair(a, b)]; ok {
		path.RecordGift()
	}
	m.mu.Unlock()
}

// UpdateRebuilding advances every plan and returns the pairs whose plans completed.
// atPeace reports whether a pair spent the elapsed months at peace.
func (m *Model) UpdateRebuilding(months int, atPeace func(a, b realm.ID) bool) []realm.Pair {
	if months <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var done []realm.Pair
	for p, path := range m.paths {
		gain := path.Advance(months, atPeace(p.Lo, p.Hi))
		if gain > 0 {
			d := m.data(p.Lo, p.Hi)
			d.Modify(HistoricalBehavior, gain)
		}
		if path.IsComplete() {
			done = append(done, p)
		}
	}
	slices.SortFunc(done, comparePairs)
	for _, p := range done {
		delete(m.paths, p)
		slog.Info("trust rebuilt", "pair", p.String())
	}
	return done
}

// RecordTreaty updates a realm's treaty-keeping record.
func (m *Model) RecordTreaty(id realm.ID, honored bool) {
	g, ok := m.records.Ensure(id)
	if !ok {
		return
	}
	defer g.Release()
	r := g.Value()
	if honored {
		r.TreatiesHonored++
	} else {
		r.TreatiesViolated++
	}
	r.recalculate()
}

// Trustworthiness is how reliable the realm looks to everyone. No history reads as 1.
func (m *Model) Trustworthiness(id realm.ID) float64 {
	out := 1.0
	m.records.Read(id, func(r *Record) { out = r.Trustworthiness })
	return out
}

// Records returns every realm record in id order.
func (m *Model) Records() []Record {
	var out []Record
	for _, id := range m.records.Keys() {
		m.records.Read(id, func(r *Record) { out = append(out, *r) })
	}
	return out
}

// PutRecord replaces a realm record, used when loading.
func (m *Model) PutRecord(r Record) {
	m.records.Put(r.Realm, &r)
}

func comparePairs(x, y realm.Pair) int {
	switch {
	case x.Less(y):
		return -1
	case y.Less(x):
		return 1
	}
	return 0
}
