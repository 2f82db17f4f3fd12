// Package realm defines realm identity, the canonical pair key, and the read-only
// collaborator snapshots the diplomacy engine consumes.
package realm

import (
	"fmt"
	"strconv"
	"strings"
)

// ID is an opaque stable identifier for a political entity.
type ID uint64

// None is the zero realm, used for "no liege" and similar absences.
const None ID = 0

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID parses a decimal realm identifier.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return None, fmt.Errorf("parse realm id %q: %w", s, err)
	}
	return ID(v), nil
}

// Pair is the canonical unordered key for two realms. Lo is always the smaller ID.
type Pair struct {
	Lo ID `json:"lo" db:"lo"`
	Hi ID `json:"hi" db:"hi"`
}

// MakePair builds the canonical key for a and b regardless of argument order.
func MakePair(a, b ID) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{Lo: a, Hi: b}
}

// Contains reports whether id is one of the two realms.
func (p Pair) Contains(id ID) bool {
	return p.Lo == id || p.Hi == id
}

// Other returns the partner of id within the pair.
func (p Pair) Other(id ID) ID {
	if p.Lo == id {
		return p.Hi
	}
	return p.Lo
}

func (p Pair) String() string {
	return p.Lo.String() + "_" + p.Hi.String()
}

// Less orders pairs by Lo then Hi.
func (p Pair) Less(o Pair) bool {
	if p.Lo != o.Lo {
		return p.Lo < o.Lo
	}
	return p.Hi < o.Hi
}
