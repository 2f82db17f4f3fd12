// World generation using layered simplex noise.
// Generates elevation, rainfall, and temperature maps, then derives terrain.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds scenario generation parameters.
type GenConfig struct {
	Radius      int     `yaml:"radius"`       // Hex grid radius
	Seed        int64   `yaml:"-"`            // Noise and placement seed
	SeaLevel    float64 `yaml:"sea_level"`    // Elevation threshold for ocean (0.0–1.0)
	MountainLvl float64 `yaml:"mountain_lvl"` // Elevation threshold for mountains (0.0–1.0)
	Realms      int     `yaml:"realms"`       // Number of realms to carve out
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:      16,
		SeaLevel:    0.25,
		MountainLvl: 0.72,
		Realms:      12,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Radius:      6,
		Seed:        42,
		SeaLevel:    0.20,
		MountainLvl: 0.80,
		Realms:      5,
	}
}

// GenerateMap creates the terrain layer of a scenario. The same seed always yields the
// same map.
func GenerateMap(cfg GenConfig) *Map {
	seed := cfg.Seed

	// Three noise generators for independent layers.
	elevNoise := opensimplex.NewNormalized(seed)
	rainNoise := opensimplex.NewNormalized(seed + 1)
	tempNoise := opensimplex.NewNormalized(seed + 2)

	m := NewMap(cfg.Radius)

	for q := -cfg.Radius; q <= cfg.Radius; q++ {
		for r := -cfg.Radius; r <= cfg.Radius; r++ {
			coord := HexCoord{Q: q, R: r}
			if !m.InBounds(coord) {
				continue
			}

			// Hex axial → cartesian: x = q + r*0.5, y = r * sqrt(3)/2
			x := float64(q) + float64(r)*0.5
			y := float64(r) * math.Sqrt(3.0) / 2.0

			elev := octaveNoise(elevNoise, x, y, 4, 0.08, 0.5)
			rain := octaveNoise(rainNoise, x, y, 3, 0.06, 0.5)
			temp := octaveNoise(tempNoise, x, y, 3, 0.05, 0.5)

			// Continental shaping: reduce elevation near edges to create ocean border.
			distFromCenter := math.Sqrt(x*x+y*y) / float64(max(1, cfg.Radius))
			edgeFalloff := max(0, 1.0-math.Pow(distFromCenter, 3.5))
			elev *= edgeFalloff

			// Temperature decreases with elevation and distance from equator.
			temp = temp*0.6 + (1.0-math.Abs(y)/float64(max(1, cfg.Radius)))*0.3 + (1.0-elev)*0.1

			m.Set(&Hex{
				Coord:       coord,
				Terrain:     deriveTerrain(elev, rain, temp, cfg),
				Elevation:   elev,
				Rainfall:    rain,
				Temperature: temp,
			})
		}
	}

	markCoastalHexes(m)
	placeRivers(m, seed)

	return m
}

// deriveTerrain determines terrain type from environmental parameters.
func deriveTerrain(elev, rain, temp float64, cfg GenConfig) Terrain {
	if elev < cfg.SeaLevel {
		return TerrainOcean
	}
	if elev > cfg.MountainLvl {
		return TerrainMountain
	}
	if temp < 0.25 {
		return TerrainTundra
	}
	if rain < 0.25 && temp > 0.5 {
		return TerrainDesert
	}
	if rain > 0.7 && elev < 0.45 {
		return TerrainSwamp
	}
	if rain > 0.45 && elev > 0.45 {
		return TerrainForest
	}
	return TerrainPlains
}

// landValue is the monthly income a hex yields its owner.
func landValue(h *Hex) float64 {
	switch h.Terrain {
	case TerrainPlains:
		return 8 + h.Rainfall*4
	case TerrainRiver:
		return 10
	case TerrainCoast:
		return 9
	case TerrainForest:
		return 5
	case TerrainMountain:
		return 3 + h.Elevation*2
	case TerrainDesert, TerrainSwamp, TerrainTundra:
		return 2
	}
	return 0
}

// markCoastalHexes converts land hexes adjacent to ocean into coast terrain.
func markCoastalHexes(m *Map) {
	var toMark []HexCoord

	for coord, hex := range m.Hexes {
		if !hex.Land() {
			continue
		}
		for _, neighbor := range coord.Neighbors() {
			nh := m.Get(neighbor)
			if nh != nil && nh.Terrain == TerrainOcean {
				toMark = append(toMark, coord)
				break
			}
		}
	}

	for _, coord := range toMark {
		hex := m.Get(coord)
		// Only convert plains/forest at low elevation to coast.
		if hex.Terrain == TerrainPlains || hex.Terrain == TerrainForest {
			if hex.Elevation < 0.5 {
				hex.Terrain = TerrainCoast
			}
		}
	}
}

// placeRivers traces paths from high elevation to coast/ocean, marking hexes as river.
func placeRivers(m *Map, seed int64) {
	rng := rand.New(rand.NewSource(seed + 100))

	// Find mountain/highland hexes as river sources.
	var sources []HexCoord
	for _, coord := range m.Coords() {
		if hex := m.Get(coord); hex.Elevation > 0.65 && hex.Land() {
			sources = append(sources, coord)
		}
	}

	// A handful of rivers, never more than ten.
	numRivers := min(10, max(2, len(sources)/8))

	// Shuffle and pick.
	rng.Shuffle(len(sources), func(i, j int) {
		sources[i], sources[j] = sources[j], sources[i]
	})
	if len(sources) > numRivers {
		sources = sources[:numRivers]
	}

	for _, start := range sources {
		traceRiver(m, start)
	}
}

// traceRiver follows the steepest descent from a source hex until reaching
// ocean or running out of downhill path.
func traceRiver(m *Map, start HexCoord) {
	current := start
	visited := make(map[HexCoord]bool)
	maxSteps := 50

	for step := 0; step < maxSteps; step++ {
		visited[current] = true
		hex := m.Get(current)
		if hex == nil {
			break
		}

		// Stop at ocean.
		if hex.Terrain == TerrainOcean {
			break
		}

		// Mark as river (unless it's a mountain peak or coast).
		if hex.Terrain != TerrainMountain && hex.Terrain != TerrainCoast {
			hex.Terrain = TerrainRiver
		}

		// Find lowest neighbor.
		var bestNeighbor *HexCoord
		bestElev := hex.Elevation

		for _, nc := range current.Neighbors() {
			if visited[nc] {
				continue
			}
			nh := m.Get(nc)
			if nh == nil {
				continue
			}
			if nh.Elevation < bestElev {
				bestElev = nh.Elevation
				c := nc
				bestNeighbor = &c
			}
		}

		if bestNeighbor == nil {
			break
		}
		current = *bestNeighbor
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// TerrainCounts returns a summary of terrain type distribution.
func TerrainCounts(m *Map) map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, hex := range m.Hexes {
		counts[hex.Terrain]++
	}
	return counts
}

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainPlains:
		return "Plains"
	case TerrainForest:
		return "Forest"
	case TerrainMountain:
		return "Mountain"
	case TerrainCoast:
		return "Coast"
	case TerrainRiver:
		return "River"
	case TerrainDesert:
		return "Desert"
	case TerrainSwamp:
		return "Swamp"
	case TerrainTundra:
		return "Tundra"
	case TerrainOcean:
		return "Ocean"
	default:
		return "Unknown"
	}
}
