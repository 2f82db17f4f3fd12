// Package influence propagates spheres of influence across the realm network and
// resolves competition over contested realms.
package influence

import (
	"slices"

	"github.com/talgya/concord/internal/realm"
)

// Type is a channel through which one realm projects power over another.
type Type uint8

const (
	Military Type = iota
	Economic
	Dynastic
	Personal
	Religious
	Cultural
	Prestige
	typeCount
)

// Types lists every influence type in order.
var Types = [...]Type{Military, Economic, Dynastic, Personal, Religious, Cultural, Prestige}

var typeNames = [...]string{"military", "economic", "dynastic", "personal", "religious", "cultural", "prestige"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// ParseType looks up a type by name.
func ParseType(s string) (Type, bool) {
	for i, n := range typeNames {
		if n == s {
			return Type(i), true
		}
	}
	return 0, false
}

// Per-hop decay by type. Religious influence does not fade with distance.
var defaultTypeDecay = [typeCount]float64{
	Military:  0.40,
	Economic:  0.15,
	Dynastic:  0.05,
	Personal:  0.25,
	Religious: 0.00,
	Cultural:  0.20,
	Prestige:  0.10,
}

// Source is one realm's influence of one type on one target.
type Source struct {
	Source       realm.ID   `json:"source"`
	Type         Type       `json:"type"`
	Base         float64    `json:"base"`
	Distance     float64    `json:"distance_modifier"`
	Relationship float64    `json:"relationship_modifier"`
	Effective    float64    `json:"effective"`
	Hops         int        `json:"hops"`
	Path         []realm.ID `json:"path,omitempty"`
	Month        int        `json:"month"` // last refreshed by propagation
}

// State aggregates all influence currently affecting one realm.
type State struct {
	Target            realm.ID          `json:"target"`
	Sources           map[Type][]Source `json:"sources"`
	Total             float64           `json:"total"`
	Dominant          map[Type]realm.ID `json:"dominant,omitempty"`
	Autonomy          float64           `json:"autonomy"`
	DiplomaticFreedom float64           `json:"diplomatic_freedom"`
}

// NewState returns an uninfluenced state.
func NewState(target realm.ID) *State {
	return &State{
		Target:            target,
		Sources:           make(map[Type][]Source),
		Dominant:          make(map[Type]realm.ID),
		Autonomy:          1,
		DiplomaticFreedom: 1,
	}
}

// Recalculate refreshes the total, dominant influencers, autonomy and freedom.
func (s *State) Recalculate() {
	s.Total = 0
	clear(s.Dominant)
	if s.Dominant == nil {
		s.Dominant = make(map[Type]realm.ID)
	}
	var pressure float64
	for t, srcs := range s.Sources {
		var best Source
		for _, src := range srcs {
			s.Total += src.Effective
			if t == Military || t == Economic {
				pressure += src.Effective
			}
			if src.Effective > best.Effective {
				best = src
			}
		}
		if best.Effective > 10 {
			s.Dominant[t] = best.Source
		}
	}
	s.Autonomy = clamp(1-s.Total/200, 0, 1)
	s.DiplomaticFreedom = clamp(1-pressure/150, 0, 1)
}

// Strength returns source's effective influence of type t on this realm.
func (s *State) Strength(source realm.ID, t Type) float64 {
	for _, src := range s.Sources[t] {
		if src.Source == source {
			return src.Effective
		}
	}
	return 0
}

// From returns source's summed influence across all types.
func (s *State) From(source realm.ID) float64 {
	var sum float64
	for _, srcs := range s.Sources {
		for _, src := range srcs {
			if src.Source == source {
				sum += src.Effective
			}
		}
	}
	return sum
}

// IsInfluencedBy reports any meaningful influence from source.
func (s *State) IsInfluencedBy(source realm.ID) bool {
	for _, srcs := range s.Sources {
		for _, src := range srcs {
			if src.Source == source && src.Effective > 5 {
				return true
			}
		}
	}
	return false
}

// Influencers returns every realm with influence here, in id order.
func (s *State) Influencers() []realm.ID {
	var out []realm.ID
	for _, srcs := range s.Sources {
		for _, src := range srcs {
			if !slices.Contains(out, src.Source) {
				out = append(out, src.Source)
			}
		}
	}
	slices.Sort(out)
	return out
}

// Scale multiplies influence on this realm by factor, for one source or for all
// sources when source is realm.None.
func (s *State) Scale(source realm.ID, factor float64) {
	for t, srcs := range s.Sources {
		for i := range srcs {
			if source == realm.None || srcs[i].Source == source {
				srcs[i].Effective *= factor
			}
		}
		s.Sources[t] = srcs
	}
	s.Recalculate()
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.Sources = make(map[Type][]Source, len(s.Sources))
	for t, srcs := range s.Sources {
		cp := make([]Source, len(srcs))
		for i, src := range srcs {
			cp[i] = src
			cp[i].Path = slices.Clone(src.Path)
		}
		c.Sources[t] = cp
	}
	c.Dominant = make(map[Type]realm.ID, len(s.Dominant))
	for t, id := range s.Dominant {
		c.Dominant[t] = id
	}
	return &c
}

// Sphere is a realm's outward reach, tiered by how much it projects onto each target.
type Sphere struct {
	Realm      realm.ID   `json:"realm"`
	Core       []realm.ID `json:"core"`
	Peripheral []realm.ID `json:"peripheral"`
	Contested  []realm.ID `json:"contested"`
	Size       int        `json:"size"`
	Strength   float64    `json:"strength"` // mean influence per target
}

// Members returns core and peripheral realms.
func (s Sphere) Members() []realm.ID {
	return append(slices.Clone(s.Core), s.Peripheral...)
}

// VassalInfluence is foreign pressure on a realm's vassal.
type VassalInfluence struct {
	Vassal     realm.ID `json:"vassal"`
	Liege      realm.ID `json:"liege"`
	Influencer realm.ID `json:"influencer"`
	Type       Type     `json:"type"`
	Strength   float64  `json:"strength"`
	Months     int      `json:"months"`

	LoyaltyShift       float64 `json:"loyalty_shift"`
	IndependenceDesire float64 `json:"independence_desire"`
	AllegianceShift    float64 `json:"allegiance_shift"`

	MayDefect            bool `json:"may_defect"`
	MayRevolt            bool `json:"may_revolt"`
	MayRequestProtection bool `json:"may_request_protection"`
}

// defectionThreshold is where foreign pull turns into open risk.
const defectionThreshold = 0.7

func (v *VassalInfluence) calculate() {
	v.LoyaltyShift = clamp(-v.Strength/100, -1, 0)
	v.IndependenceDesire = clamp(v.Strength/80, 0, 1)
	v.AllegianceShift = clamp(v.Strength/120, 0, 1)
	v.MayDefect = v.AllegianceShift > defectionThreshold
	v.MayRevolt = v.IndependenceDesire > defectionThreshold && v.AllegianceShift < 0.5
	v.MayRequestProtection = v.Strength > 50 && v.Months > 12
}

// AtRisk reports a vassal that may defect or revolt.
func (v VassalInfluence) AtRisk() bool {
	return v.MayDefect || v.MayRevolt
}

// CharacterInfluence is a foreign power's hold over one character at a court.
type CharacterInfluence struct {
	Character  realm.CharacterID `json:"character"`
	Realm      realm.ID          `json:"realm"`
	Influencer realm.ID          `json:"influencer"`
	Strength   float64           `json:"strength"`

	OpinionBias     float64 `json:"opinion_bias"`
	PersonalLoyalty float64 `json:"personal_loyalty"`
	Compromised     bool    `json:"compromised"`
}

func (c *CharacterInfluence) calculate() {
	c.OpinionBias = clamp(c.Strength/2, 0, 50)
	c.PersonalLoyalty = clamp(c.Strength/100, 0, 1)
	c.Compromised = c.PersonalLoyalty > 0.8
}

// WouldSabotage reports a character loyal enough to work against their own realm.
func (c CharacterInfluence) WouldSabotage() bool {
	return c.Compromised && c.PersonalLoyalty > 0.9
}

// WouldLeak reports a character who passes secrets to the influencer.
func (c CharacterInfluence) WouldLeak() bool {
	return c.Compromised && c.PersonalLoyalty > 0.8
}

// DecisionBias is the opinion bias as a 0–0.5 multiplier.
func (c CharacterInfluence) DecisionBias() float64 {
	return c.OpinionBias / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
