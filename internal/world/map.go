package world

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/talgya/concord/internal/realm"
)

// Map holds the complete hex grid.
type Map struct {
	Hexes  map[HexCoord]*Hex `json:"-"` // All hexes keyed by coordinate
	Radius int               `json:"radius"`
}

// NewMap creates an empty map with the given radius.
// A hex grid of radius R contains hexes where max(|q|, |r|, |s|) <= R.
func NewMap(radius int) *Map {
	return &Map{
		Hexes:  make(map[HexCoord]*Hex),
		Radius: radius,
	}
}

// Get returns the hex at the given coordinate, or nil if out of bounds.
func (m *Map) Get(coord HexCoord) *Hex {
	return m.Hexes[coord]
}

// Set places a hex at the given coordinate.
func (m *Map) Set(hex *Hex) {
	m.Hexes[hex.Coord] = hex
}

// InBounds returns true if the coordinate is within the map radius.
func (m *Map) InBounds(coord HexCoord) bool {
	return max(abs(coord.Q), abs(coord.R), abs(coord.S())) <= m.Radius
}

// HexCount returns the total number of hexes in the map.
func (m *Map) HexCount() int {
	return len(m.Hexes)
}

// Coords returns every coordinate in a stable order, so generation passes that walk the
// map are reproducible from the seed.
func (m *Map) Coords() []HexCoord {
	out := make([]HexCoord, 0, len(m.Hexes))
	for c := range m.Hexes {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b HexCoord) int {
		if c := cmp.Compare(a.Q, b.Q); c != 0 {
			return c
		}
		return cmp.Compare(a.R, b.R)
	})
	return out
}

// Owned returns the hexes held by id, in coordinate order.
func (m *Map) Owned(id realm.ID) []*Hex {
	var out []*Hex
	for _, c := range m.Coords() {
		if h := m.Hexes[c]; h.Owner == id {
			out = append(out, h)
		}
	}
	return out
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(radius=%d, hexes=%d)", m.Radius, m.HexCount())
}
