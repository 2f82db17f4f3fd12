package world

import (
	"cmp"
	"log/slog"
	"maps"
	"math/rand"
	"slices"
	"sync"

	"github.com/talgya/concord/internal/realm"
)

// World is the generated scenario. It answers every collaborator query the diplomacy
// engine makes and is safe for concurrent readers.
type World struct {
	Map  *Map
	Seed int64

	mu       sync.RWMutex
	holdings map[realm.ID]*Holding
	borders  map[realm.ID]map[realm.ID]int
	ties     map[[2]realm.ID][]realm.Tie
}

var _ realm.Collaborators = (*World)(nil)

func newWorld(m *Map, seed int64) *World {
	return &World{
		Map:      m,
		Seed:     seed,
		holdings: make(map[realm.ID]*Holding),
		borders:  make(map[realm.ID]map[realm.ID]int),
		ties:     make(map[[2]realm.ID][]realm.Tie),
	}
}

func (w *World) sortedIDs() []realm.ID {
	return slices.Sorted(maps.Keys(w.holdings))
}

func (w *World) neighbors(id realm.ID) []realm.ID {
	return slices.Sorted(maps.Keys(w.borders[id]))
}

// Realm returns the snapshot of a realm.
func (w *World) Realm(id realm.ID) (realm.Snapshot, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	h, ok := w.holdings[id]
	if !ok {
		return realm.Snapshot{}, false
	}
	s := h.Snapshot
	s.Vassals = slices.Clone(h.Snapshot.Vassals)
	return s, true
}

// IDs returns every realm, ascending.
func (w *World) IDs() []realm.ID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sortedIDs()
}

// Dynasty returns the ruling house of a realm.
func (w *World) Dynasty(id realm.ID) (realm.DynastySnapshot, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	h, ok := w.holdings[id]
	if !ok {
		return realm.DynastySnapshot{}, false
	}
	return h.Dynasty, true
}

// Ties returns the bonds from's court holds with to's.
func (w *World) Ties(from, to realm.ID) []realm.Tie {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.ties[[2]realm.ID{from, to}])
}

// Courtiers returns the notable characters at a realm's court, excluding the ruler.
func (w *World) Courtiers(id realm.ID) []realm.CharacterID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if h, ok := w.holdings[id]; ok {
		return slices.Clone(h.Courtiers)
	}
	return nil
}

// CompareFaith reports how closely the faiths of a and b match.
func (w *World) CompareFaith(a, b realm.ID) realm.FaithRelation {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ha, okA := w.holdings[a]
	hb, okB := w.holdings[b]
	if !okA || !okB {
		return realm.FaithDifferent
	}
	return ha.Faith.Compare(hb.Faith)
}

// Neighbors returns the realms sharing a land border with id, ascending.
func (w *World) Neighbors(id realm.ID) []realm.ID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.neighbors(id)
}

// SharedBorders counts the hex edges a and b share.
func (w *World) SharedBorders(a, b realm.ID) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.borders[a][b]
}

// Holding returns a copy of everything known about a realm.
func (w *World) Holding(id realm.ID) (Holding, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	h, ok := w.holdings[id]
	if !ok {
		return Holding{}, false
	}
	return h.clone(), true
}

// Holdings returns copies of every holding, ordered by realm.
func (w *World) Holdings() []Holding {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Holding, 0, len(w.holdings))
	for _, id := range w.sortedIDs() {
		out = append(out, w.holdings[id].clone())
	}
	return out
}

// Restore overlays saved holdings onto a freshly generated world. Territory and ties come
// from the seed; material state comes from the save. Unknown realms are skipped.
func (w *World) Restore(saved []Holding) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, h := range saved {
		id := h.Snapshot.ID
		if _, ok := w.holdings[id]; !ok {
			slog.Warn("saved holding for unknown realm", "realm", id)
			continue
		}
		c := h.clone()
		w.holdings[id] = &c
	}
}

// Update runs fn with exclusive access to a realm's holding.
func (w *World) Update(id realm.ID, fn func(*Holding)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	h, ok := w.holdings[id]
	if ok {
		fn(h)
	}
	return ok
}

// Advance moves every realm's material state forward. wars reports how many wars a realm
// is fighting; each one drains stability and raises military upkeep.
func (w *World) Advance(months int, rng *rand.Rand, wars func(realm.ID) int) {
	if months <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, id := range w.sortedIDs() {
		s := &w.holdings[id].Snapshot
		n := 0
		if wars != nil {
			n = wars(id)
		}

		upkeep := 0.2 + 0.2*float64(n)
		s.MilitaryMaintenance += (upkeep - s.MilitaryMaintenance) * 0.1 * float64(months)
		s.MilitaryMaintenance = clamp01(s.MilitaryMaintenance)
		s.Treasury = max(0, s.Treasury+s.MonthlyIncome*float64(months)*(1-s.MilitaryMaintenance))

		drift := (rng.Float64() - 0.5) * 0.04 * float64(months)
		s.Stability = clamp(s.Stability+drift-0.01*float64(n*months), 0.1, 1)
		s.Legitimacy = clamp(s.Legitimacy+(s.Stability-0.5)*0.005*float64(months), 0.1, 1)

		// Armies regrow toward the size the land can support and bleed while at war.
		target := s.Provinces * 70
		if n > 0 {
			s.StandingArmy = max(0, s.StandingArmy-s.StandingArmy*n*months/50)
		} else if s.StandingArmy < target {
			s.StandingArmy = min(target, s.StandingArmy+max(1, target*months/24))
		}
	}
}

// Strongest returns realms ordered by provinces, largest first.
func (w *World) Strongest() []realm.ID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := w.sortedIDs()
	slices.SortStableFunc(ids, func(a, b realm.ID) int {
		return cmp.Compare(w.holdings[b].Snapshot.Provinces, w.holdings[a].Snapshot.Provinces)
	})
	return ids
}

func clamp(v, lo, hi float64) float64 {
	return min(hi, max(lo, v))
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }
