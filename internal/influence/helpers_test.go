package influence

import (
	"slices"
	"testing"

	"github.com/talgya/concord/internal/realm"
)

type fakeWorld struct {
	realms    map[realm.ID]realm.Snapshot
	neighbors map[realm.ID][]realm.ID
	dynasties map[realm.ID]realm.DynastySnapshot
	courts    map[realm.ID][]realm.CharacterID
}

func newFakeWorld(ids ...realm.ID) *fakeWorld {
	w := &fakeWorld{
		realms:    make(map[realm.ID]realm.Snapshot),
		neighbors: make(map[realm.ID][]realm.ID),
		dynasties: make(map[realm.ID]realm.DynastySnapshot),
		courts:    make(map[realm.ID][]realm.CharacterID),
	}
	for _, id := range ids {
		w.realms[id] = realm.Snapshot{ID: id, Rank: realm.RankDuchy, Stability: 0.5, Legitimacy: 0.5}
	}
	return w
}

// border links a and b as land neighbours.
func (w *fakeWorld) border(a, b realm.ID) {
	w.neighbors[a] = append(w.neighbors[a], b)
	w.neighbors[b] = append(w.neighbors[b], a)
}

func (w *fakeWorld) Realm(id realm.ID) (realm.Snapshot, bool) {
	s, ok := w.realms[id]
	return s, ok
}

func (w *fakeWorld) IDs() []realm.ID {
	var ids []realm.ID
	for id := range w.realms {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (w *fakeWorld) Dynasty(id realm.ID) (realm.DynastySnapshot, bool) {
	d, ok := w.dynasties[id]
	return d, ok
}

func (w *fakeWorld) Ties(from, to realm.ID) []realm.Tie { return nil }
func (w *fakeWorld) Courtiers(id realm.ID) []realm.CharacterID { return w.courts[id] }
func (w *fakeWorld) CompareFaith(a, b realm.ID) realm.FaithRelation { return realm.FaithSame }
func (w *fakeWorld) Neighbors(id realm.ID) []realm.ID { return w.neighbors[id] }

func (w *fakeWorld) SharedBorders(a, b realm.ID) int {
	if slices.Contains(w.neighbors[a], b) {
		return 1
	}
	return 0
}

type fakeRelations struct {
	opinions map[[2]realm.ID]int
	wars     map[realm.Pair]bool
	allies   map[realm.ID][]realm.ID
}

func newFakeRelations() *fakeRelations {
	return &fakeRelations{
		opinions: make(map[[2]realm.ID]int),
		wars:     make(map[realm.Pair]bool),
		allies:   make(map[realm.ID][]realm.ID),
	}
}

func (r *fakeRelations) Opinion(from, to realm.ID) int { return r.opinions[[2]realm.ID{from, to}] }
func (r *fakeRelations) AtWar(a, b realm.ID) bool { return r.wars[realm.MakePair(a, b)] }
func (r *fakeRelations) Allies(id realm.ID) []realm.ID { return r.allies[id] }
func (r *fakeRelations) Trust(a, b realm.ID) float64 { return 0.5 }
func (r *fakeRelations) Trade(a, b realm.ID) (float64, float64) { return 0, 0 }

type opinionChange struct {
	from, to realm.ID
	delta    int
}

type fakeEffects struct {
	opinions []opinionChange
	glory    map[realm.ID]float64
}

func (f *fakeEffects) ModifyOpinion(from, to realm.ID, delta int, reason string) int {
	f.opinions = append(f.opinions, opinionChange{from, to, delta})
	return delta
}

func (f *fakeEffects) AdjustGlory(id realm.ID, delta float64) {
	if f.glory == nil {
		f.glory = make(map[realm.ID]float64)
	}
	f.glory[id] += delta
}

// fixedStrength gives every listed source a flat base strength of one type.
func fixedStrength(t Type, bases map[realm.ID]float64) StrengthFunc {
	return func(source, target realm.ID, typ Type) float64 {
		if typ != t || source == target {
			return 0
		}
		return bases[source]
	}
}

func newTestSystem(t *testing.T, cfg Config, w *fakeWorld, rel *fakeRelations) *System {
	t.Helper()
	return NewSystem(cfg, w, rel)
}
