package world

import (
	"math/rand"
	"reflect"
	"slices"
	"testing"

	"github.com/talgya/concord/internal/realm"
)

func testWorld(t *testing.T) *World {
	t.Helper()
	w := Generate(SmallTestConfig())
	if n := len(w.IDs()); n < 2 || n > SmallTestConfig().Realms {
		t.Fatalf("generated %d realms, want between 2 and %d", n, SmallTestConfig().Realms)
	}
	return w
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := Generate(SmallTestConfig())
	b := Generate(SmallTestConfig())
	if !reflect.DeepEqual(a.Holdings(), b.Holdings()) {
		t.Error("same seed produced different holdings")
	}
	for _, c := range a.Map.Coords() {
		if a.Map.Get(c).Terrain != b.Map.Get(c).Terrain || a.Map.Get(c).Owner != b.Map.Get(c).Owner {
			t.Fatalf("hex %v differs between runs", c)
		}
	}
}

func TestEveryLandHexIsOwned(t *testing.T) {
	w := testWorld(t)
	total := 0
	for _, c := range w.Map.Coords() {
		h := w.Map.Get(c)
		if h.Land() && h.Owner == realm.None {
			t.Errorf("land hex %v has no owner", c)
		}
		if !h.Land() && h.Owner != realm.None {
			t.Errorf("ocean hex %v owned by %d", c, h.Owner)
		}
	}
	for _, id := range w.IDs() {
		s, _ := w.Realm(id)
		if got := len(w.Map.Owned(id)); got != s.Provinces {
			t.Errorf("realm %d provinces = %d, owns %d hexes", id, s.Provinces, got)
		}
		total += s.Provinces
	}
	if total == 0 {
		t.Error("no provinces at all")
	}
}

func TestBordersAreSymmetric(t *testing.T) {
	w := testWorld(t)
	for _, a := range w.IDs() {
		for _, b := range w.Neighbors(a) {
			if !slices.Contains(w.Neighbors(b), a) {
				t.Errorf("%d borders %d but not the reverse", a, b)
			}
			if w.SharedBorders(a, b) != w.SharedBorders(b, a) || w.SharedBorders(a, b) == 0 {
				t.Errorf("shared borders %d/%d = %d vs %d", a, b, w.SharedBorders(a, b), w.SharedBorders(b, a))
			}
		}
	}
}

func TestHierarchyIsConsistent(t *testing.T) {
	w := testWorld(t)
	for _, id := range w.IDs() {
		s, _ := w.Realm(id)
		if s.Liege == realm.None {
			continue
		}
		l, ok := w.Realm(s.Liege)
		if !ok {
			t.Fatalf("realm %d has unknown liege %d", id, s.Liege)
		}
		if l.Rank <= s.Rank {
			t.Errorf("liege %d (%v) does not outrank vassal %d (%v)", l.ID, l.Rank, id, s.Rank)
		}
		if !slices.Contains(l.Vassals, id) {
			t.Errorf("liege %d does not list vassal %d", l.ID, id)
		}
	}
}

func TestCourtsAndTies(t *testing.T) {
	w := testWorld(t)
	for _, id := range w.IDs() {
		s, _ := w.Realm(id)
		if s.Ruler == 0 {
			t.Errorf("realm %d has no ruler", id)
		}
		if len(w.Courtiers(id)) < 2 {
			t.Errorf("realm %d court too small: %v", id, w.Courtiers(id))
		}
		if d, ok := w.Dynasty(id); !ok || d.ID == 0 {
			t.Errorf("realm %d has no dynasty", id)
		}
		for _, other := range w.IDs() {
			kinds := func(ts []realm.Tie) []realm.TieKind {
				var out []realm.TieKind
				for _, tie := range ts {
					out = append(out, tie.Kind)
				}
				return out
			}
			if !slices.Equal(kinds(w.Ties(id, other)), kinds(w.Ties(other, id))) {
				t.Errorf("ties %d→%d and %d→%d disagree", id, other, other, id)
			}
		}
	}
}

func TestFaithCompare(t *testing.T) {
	base := Faith{Group: 1, Denomination: 1, Sect: 0}
	tests := []struct {
		other Faith
		want  realm.FaithRelation
	}{
		{base, realm.FaithSame},
		{Faith{Group: 1, Denomination: 1, Sect: 1}, realm.FaithSameDenomination},
		{Faith{Group: 1, Denomination: 0, Sect: 0}, realm.FaithSameGroup},
		{Faith{Group: 2, Denomination: 1, Sect: 0}, realm.FaithDifferent},
	}
	for _, tt := range tests {
		if got := base.Compare(tt.other); got != tt.want {
			t.Errorf("Compare(%+v) = %v, want %v", tt.other, got, tt.want)
		}
	}
}

func TestAdvance(t *testing.T) {
	w := testWorld(t)
	ids := w.IDs()
	peaceful, warring := ids[0], ids[1]
	for _, id := range ids {
		w.Update(id, func(h *Holding) { h.Snapshot.Stability = 0.8 })
	}
	before, _ := w.Realm(peaceful)
	beforeWar, _ := w.Realm(warring)

	w.Advance(1, rand.New(rand.NewSource(7)), func(id realm.ID) int {
		if id == warring {
			return 3
		}
		return 0
	})

	after, _ := w.Realm(peaceful)
	if after.Treasury <= before.Treasury {
		t.Errorf("treasury %f → %f, want growth in peace", before.Treasury, after.Treasury)
	}
	afterWar, _ := w.Realm(warring)
	if afterWar.Stability >= beforeWar.Stability {
		t.Errorf("stability at war %f → %f, want a drop", beforeWar.Stability, afterWar.Stability)
	}
	if afterWar.MilitaryMaintenance <= beforeWar.MilitaryMaintenance {
		t.Errorf("military upkeep at war %f → %f, want a rise", beforeWar.MilitaryMaintenance, afterWar.MilitaryMaintenance)
	}

	w.Advance(0, nil, nil)
}

func TestRestoreOverlaysSavedState(t *testing.T) {
	w := testWorld(t)
	saved := w.Holdings()
	saved[0].Snapshot.Treasury = 12345
	saved = append(saved, Holding{Snapshot: realm.Snapshot{ID: 999}})

	fresh := Generate(SmallTestConfig())
	fresh.Restore(saved)

	s, _ := fresh.Realm(saved[0].Snapshot.ID)
	if s.Treasury != 12345 {
		t.Errorf("restored treasury = %f, want 12345", s.Treasury)
	}
	if _, ok := fresh.Realm(999); ok {
		t.Error("restore invented an unknown realm")
	}
}
