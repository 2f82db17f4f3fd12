// Realm carving — capitals, territories, hierarchy, courts and dynasties.
package world

import (
	"cmp"
	"math"
	"math/rand"
	"slices"

	"github.com/talgya/concord/internal/realm"
)

// Faith places a realm's religion in a group / denomination / sect tree.
type Faith struct {
	Group        uint8 `json:"group"`
	Denomination uint8 `json:"denomination"`
	Sect         uint8 `json:"sect"`
}

// Compare reports how closely f matches o.
func (f Faith) Compare(o Faith) realm.FaithRelation {
	switch {
	case f == o:
		return realm.FaithSame
	case f.Group == o.Group && f.Denomination == o.Denomination:
		return realm.FaithSameDenomination
	case f.Group == o.Group:
		return realm.FaithSameGroup
	}
	return realm.FaithDifferent
}

// Holding is everything the world knows about one realm.
type Holding struct {
	Snapshot  realm.Snapshot        `json:"snapshot"`
	Capital   HexCoord              `json:"capital"`
	Faith     Faith                 `json:"faith"`
	Dynasty   realm.DynastySnapshot `json:"dynasty"`
	Courtiers []realm.CharacterID   `json:"courtiers"`
}

func (h *Holding) clone() Holding {
	c := *h
	c.Snapshot.Vassals = slices.Clone(h.Snapshot.Vassals)
	c.Courtiers = slices.Clone(h.Courtiers)
	return c
}

// Generate builds a complete scenario from cfg. The same config always yields the same
// world.
func Generate(cfg GenConfig) *World {
	m := GenerateMap(cfg)
	rng := rand.New(rand.NewSource(cfg.Seed + 200))

	w := newWorld(m, cfg.Seed)
	capitals := placeCapitals(m, cfg.Realms, cfg.Radius, rng)
	names := generateNames(rng, len(capitals))

	for i, c := range capitals {
		id := realm.ID(i + 1)
		w.holdings[id] = &Holding{
			Snapshot: realm.Snapshot{ID: id, Name: names[i], HasCapital: true},
			Capital:  c,
		}
	}

	carveTerritories(m, capitals)
	w.computeBorders()
	w.assignAttributes(rng)
	w.assignHierarchy(rng)
	w.assignCourts(rng)
	return w
}

// capitalScore evaluates how desirable a hex is as a realm's seat.
// Prefers coast and rivers, fertile plains and varied surroundings.
func capitalScore(m *Map, coord HexCoord, hex *Hex) float64 {
	score := 0.0

	switch hex.Terrain {
	case TerrainPlains:
		score += 3.0
	case TerrainCoast:
		score += 4.0
	case TerrainRiver:
		score += 3.5
	case TerrainForest:
		score += 1.5
	case TerrainDesert, TerrainSwamp, TerrainTundra:
		score += 0.5
	case TerrainMountain:
		score += 0.3
	default:
		return 0
	}

	terrainTypes := make(map[Terrain]bool)
	for _, nc := range coord.Neighbors() {
		nh := m.Get(nc)
		if nh != nil && nh.Land() {
			terrainTypes[nh.Terrain] = true
		}
	}
	score += float64(len(terrainTypes)) * 0.3

	income := landValue(hex)
	for _, nc := range coord.Neighbors() {
		if nh := m.Get(nc); nh != nil {
			income += landValue(nh)
		}
	}
	return score + math.Log1p(income)*0.2
}

// placeCapitals picks up to n well-spaced capital hexes, best first. The spacing relaxes
// until enough sites are found or the land runs out.
func placeCapitals(m *Map, n, radius int, rng *rand.Rand) []HexCoord {
	type scored struct {
		coord HexCoord
		score float64
	}
	var candidates []scored
	for _, coord := range m.Coords() {
		hex := m.Get(coord)
		if !hex.Land() {
			continue
		}
		// A little jitter keeps equally scored coastlines from always winning.
		s := capitalScore(m, coord, hex) + rng.Float64()*0.1
		if s > 0 {
			candidates = append(candidates, scored{coord, s})
		}
	}
	slices.SortStableFunc(candidates, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	var out []HexCoord
	for minDist := max(2, radius/2); minDist >= 1 && len(out) < n; minDist-- {
		for _, c := range candidates {
			if len(out) >= n {
				break
			}
			if slices.Contains(out, c.coord) || tooClose(c.coord, out, minDist) {
				continue
			}
			out = append(out, c.coord)
		}
	}
	return out
}

func tooClose(coord HexCoord, existing []HexCoord, minDist int) bool {
	for _, c := range existing {
		if Distance(coord, c) < minDist {
			return true
		}
	}
	return false
}

// carveTerritories grows every realm outward from its capital in lockstep, so each land
// hex goes to the nearest capital by land. Capital i belongs to realm i+1.
func carveTerritories(m *Map, capitals []HexCoord) {
	queue := make([]HexCoord, 0, len(m.Hexes))
	for i, c := range capitals {
		m.Get(c).Owner = realm.ID(i + 1)
		queue = append(queue, c)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		owner := m.Get(cur).Owner
		for _, nc := range cur.Neighbors() {
			nh := m.Get(nc)
			if nh == nil || !nh.Land() || nh.Owner != realm.None {
				continue
			}
			nh.Owner = owner
			queue = append(queue, nc)
		}
	}

	// Islands out of reach by land go to the nearest capital.
	for _, coord := range m.Coords() {
		h := m.Get(coord)
		if !h.Land() || h.Owner != realm.None {
			continue
		}
		best := 0
		for i, c := range capitals {
			if Distance(coord, c) < Distance(coord, capitals[best]) {
				best = i
			}
		}
		if len(capitals) > 0 {
			h.Owner = realm.ID(best + 1)
		}
	}
}

func (w *World) computeBorders() {
	for _, coord := range w.Map.Coords() {
		h := w.Map.Get(coord)
		if h.Owner == realm.None {
			continue
		}
		for _, nc := range coord.Neighbors() {
			nh := w.Map.Get(nc)
			if nh == nil || nh.Owner == realm.None || nh.Owner == h.Owner {
				continue
			}
			if w.borders[h.Owner] == nil {
				w.borders[h.Owner] = make(map[realm.ID]int)
			}
			w.borders[h.Owner][nh.Owner]++
		}
	}
}

var governmentsByRank = [...][]realm.Government{
	realm.RankBarony:  {realm.GovTribal, realm.GovFeudal, realm.GovNomadic},
	realm.RankCounty:  {realm.GovFeudal, realm.GovTheocracy, realm.GovMerchantRepublic},
	realm.RankDuchy:   {realm.GovFeudal, realm.GovRepublic, realm.GovMerchantRepublic, realm.GovTheocracy},
	realm.RankKingdom: {realm.GovAbsoluteMonarchy, realm.GovFeudal, realm.GovConstitutional},
	realm.RankEmpire:  {realm.GovImperial},
}

// rankFor places a realm on the feudal ladder by its size relative to the average.
func rankFor(provinces int, mean float64, largest bool, realms int) realm.Rank {
	p := float64(provinces)
	switch {
	case largest && realms >= 10 && p >= 2.5*mean:
		return realm.RankEmpire
	case p >= 1.8*mean:
		return realm.RankKingdom
	case p >= mean:
		return realm.RankDuchy
	case p >= mean/2:
		return realm.RankCounty
	}
	return realm.RankBarony
}

func (w *World) assignAttributes(rng *rand.Rand) {
	ids := w.sortedIDs()
	income := make(map[realm.ID]float64, len(ids))
	trade := make(map[realm.ID]float64, len(ids))
	provinces := make(map[realm.ID]int, len(ids))
	for _, coord := range w.Map.Coords() {
		h := w.Map.Get(coord)
		if h.Owner == realm.None {
			continue
		}
		provinces[h.Owner]++
		income[h.Owner] += landValue(h)
		if h.Terrain == TerrainCoast || h.Terrain == TerrainRiver {
			trade[h.Owner] += 20
		}
	}

	total, largest := 0, realm.None
	for _, id := range ids {
		total += provinces[id]
		if largest == realm.None || provinces[id] > provinces[largest] {
			largest = id
		}
	}
	mean := float64(total) / float64(max(1, len(ids)))

	for _, id := range ids {
		h := w.holdings[id]
		p := provinces[id]
		rank := rankFor(p, mean, id == largest, len(ids))
		govs := governmentsByRank[rank]

		h.Snapshot.Rank = rank
		h.Snapshot.Government = govs[rng.Intn(len(govs))]
		h.Snapshot.Provinces = p
		h.Snapshot.MonthlyIncome = income[id]
		h.Snapshot.TradeVolume = trade[id]
		h.Snapshot.Treasury = income[id] * float64(6+rng.Intn(18))
		h.Snapshot.StandingArmy = p * (40 + rng.Intn(60))
		h.Snapshot.Levies = p * (80 + rng.Intn(120))
		h.Snapshot.Stability = 0.4 + rng.Float64()*0.5
		h.Snapshot.Legitimacy = 0.4 + rng.Float64()*0.5
		h.Snapshot.MilitaryMaintenance = 0.2 + rng.Float64()*0.4
		h.Faith = Faith{
			Group:        uint8(rng.Intn(3)),
			Denomination: uint8(rng.Intn(2)),
			Sect:         uint8(rng.Intn(2)),
		}
	}
}

// assignHierarchy swears small realms to a stronger neighbour. Lieges always outrank
// their vassals, so the hierarchy has no cycles.
func (w *World) assignHierarchy(rng *rand.Rand) {
	for _, id := range w.sortedIDs() {
		h := w.holdings[id]
		if h.Snapshot.Rank > realm.RankCounty || rng.Float64() >= 0.5 {
			continue
		}
		liege := realm.None
		for _, n := range w.neighbors(id) {
			nh := w.holdings[n]
			if nh.Snapshot.Rank <= h.Snapshot.Rank || nh.Snapshot.Liege != realm.None {
				continue
			}
			if liege == realm.None || nh.Snapshot.Provinces > w.holdings[liege].Snapshot.Provinces {
				liege = n
			}
		}
		if liege == realm.None {
			continue
		}
		h.Snapshot.Liege = liege
		lh := w.holdings[liege]
		lh.Snapshot.Vassals = append(lh.Snapshot.Vassals, id)
	}
}

const (
	friendChance = 0.3
	rivalChance  = 0.15
	spouseChance = 0.25
)

// assignCourts creates rulers, courtiers, dynasties and the personal ties between
// neighbouring courts.
func (w *World) assignCourts(rng *rand.Rand) {
	for _, id := range w.sortedIDs() {
		h := w.holdings[id]
		base := realm.CharacterID(id) * 100
		h.Snapshot.Ruler = base
		h.Courtiers = nil
		for i := 1; i <= 2+int(h.Snapshot.Rank); i++ {
			h.Courtiers = append(h.Courtiers, base+realm.CharacterID(i))
		}
		h.Dynasty = realm.DynastySnapshot{
			ID:          uint64(id),
			Prestige:    20 + rng.Float64()*80,
			RealmsRuled: 1,
			Generations: 1 + rng.Intn(12),
		}
	}

	// Cadet branches of the liege's house rule some vassals.
	for _, id := range w.sortedIDs() {
		h := w.holdings[id]
		if h.Snapshot.Liege == realm.None || rng.Float64() >= 0.3 {
			continue
		}
		lh := w.holdings[h.Snapshot.Liege]
		h.Dynasty.Parent = lh.Dynasty.ID
		lh.Dynasty.RealmsRuled++
	}

	for _, a := range w.sortedIDs() {
		for _, b := range w.neighbors(a) {
			if b <= a {
				continue
			}
			if rng.Float64() < spouseChance {
				alliance := rng.Float64() < 0.5
				// a's ruler married a daughter of b.
				w.addTie(a, b, realm.Tie{Kind: realm.TieSpouse, SpouseFromTarget: true, AllianceMarriage: alliance})
				w.addTie(b, a, realm.Tie{Kind: realm.TieSpouse, AllianceMarriage: alliance})
			}
			switch r := rng.Float64(); {
			case r < rivalChance:
				bond := 30 + rng.Float64()*60
				w.addTie(a, b, realm.Tie{Kind: realm.TieRival, Bond: bond})
				w.addTie(b, a, realm.Tie{Kind: realm.TieRival, Bond: bond})
			case r < rivalChance+friendChance:
				bond := 30 + rng.Float64()*60
				w.addTie(a, b, realm.Tie{Kind: realm.TieFriend, Bond: bond})
				w.addTie(b, a, realm.Tie{Kind: realm.TieFriend, Bond: bond})
			}
		}
	}
}

func (w *World) addTie(from, to realm.ID, t realm.Tie) {
	k := [2]realm.ID{from, to}
	w.ties[k] = append(w.ties[k], t)
}

// generateNames produces procedural realm names by combining syllables.
func generateNames(rng *rand.Rand, count int) []string {
	prefixes := []string{
		"Iron", "Green", "Ash", "Stone", "Cross", "Black", "Silver", "Red",
		"White", "High", "Low", "Old", "Far", "Deep", "Broad", "Gold",
		"Frost", "Storm", "Thorn", "Elm", "Oak", "Copper", "River", "Raven",
	}
	suffixes := []string{
		"mark", "ford", "hold", "march", "gate", "keep", "vale", "moor",
		"reach", "crown", "land", "shire", "dale", "crest", "fell", "watch",
	}

	used := make(map[string]bool)
	names := make([]string, 0, count)
	for len(names) < count {
		name := prefixes[rng.Intn(len(prefixes))] + suffixes[rng.Intn(len(suffixes))]
		if used[name] && len(used) < len(prefixes)*len(suffixes) {
			continue
		}
		used[name] = true
		names = append(names, name)
	}
	return names
}
