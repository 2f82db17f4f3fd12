package diplomacy

import (
	"maps"
	"slices"

	"github.com/talgya/concord/internal/realm"
)

// Realm is the diplomacy component owned by one realm.
type Realm struct {
	ID           realm.ID    `json:"id"`
	Personality  Personality `json:"personality"`
	Prestige     float64     `json:"prestige"`
	Glory        float64     `json:"glory"`
	Reputation   float64     `json:"reputation"`
	WarWeariness float64     `json:"war_weariness"`
	Autonomous   bool        `json:"autonomous"`

	Allies  []realm.ID `json:"allies,omitempty"`
	Enemies []realm.ID `json:"enemies,omitempty"`

	Relationships map[realm.ID]*State `json:"relationships"`
	Marriages     []Marriage          `json:"marriages,omitempty"`
}

// NewRealm returns a realm with neutral reputation and no relationships.
func NewRealm(id realm.ID, p Personality) *Realm {
	return &Realm{
		ID:            id,
		Personality:   p,
		Reputation:    1.0,
		Relationships: make(map[realm.ID]*State),
	}
}

// Relationship returns the state toward other, creating a neutral one if needed.
func (r *Realm) Relationship(other realm.ID) *State {
	if r.Relationships == nil {
		r.Relationships = make(map[realm.ID]*State)
	}
	st, ok := r.Relationships[other]
	if !ok {
		st = NewState(other)
		r.Relationships[other] = st
	}
	return st
}

// IsAlliedWith reports whether other is on the ally list.
func (r *Realm) IsAlliedWith(other realm.ID) bool {
	return slices.Contains(r.Allies, other)
}

// IsAtWarWith reports whether other is on the enemy list.
func (r *Realm) IsAtWarWith(other realm.ID) bool {
	return slices.Contains(r.Enemies, other)
}

// setRelation changes the category toward other and keeps the ally and enemy lists in step.
func (r *Realm) setRelation(other realm.ID, rel Relation) Relation {
	st := r.Relationship(other)
	old := st.Relation
	st.Relation = rel

	switch rel {
	case RelationAllied:
		r.Allies = addID(r.Allies, other)
		r.Enemies = removeID(r.Enemies, other)
	case RelationAtWar:
		r.Enemies = addID(r.Enemies, other)
		r.Allies = removeID(r.Allies, other)
	default:
		r.Allies = removeID(r.Allies, other)
		r.Enemies = removeID(r.Enemies, other)
	}
	return old
}

// Profile summarizes the realm for the calculator.
func (r *Realm) Profile() Profile {
	hostile := 0
	for _, st := range r.Relationships {
		if st.Relation == RelationHostile || st.Relation == RelationAtWar {
			hostile++
		}
	}
	return Profile{
		ID:               r.ID,
		Personality:      r.Personality,
		Prestige:         r.Prestige,
		Reputation:       r.Reputation,
		WarWeariness:     r.WarWeariness,
		Alliances:        len(r.Allies),
		Marriages:        len(r.Marriages),
		HostileRelations: hostile,
		Wars:             len(r.Enemies),
	}
}

func (r *Realm) recomputePrestige() {
	p := r.Profile()
	r.Prestige = Prestige(p) + r.Glory
}

// Clone returns a deep copy.
func (r *Realm) Clone() *Realm {
	c := *r
	c.Allies = slices.Clone(r.Allies)
	c.Enemies = slices.Clone(r.Enemies)
	c.Marriages = slices.Clone(r.Marriages)
	c.Relationships = make(map[realm.ID]*State, len(r.Relationships))
	for id, st := range r.Relationships {
		cp := st.clone()
		c.Relationships[id] = &cp
	}
	return &c
}

func (s *State) clone() State {
	c := *s
	c.RecentActions = slices.Clone(s.RecentActions)
	c.Modifiers = slices.Clone(s.Modifiers)
	c.History.Monthly = slices.Clone(s.History.Monthly)
	c.History.Yearly = slices.Clone(s.History.Yearly)
	if s.Deception != nil {
		d := *s.Deception
		c.Deception = &d
	}
	c.Cooldowns = maps.Clone(s.Cooldowns)
	return c
}

func (s *State) modifierTotal() int {
	total := 0
	for _, m := range s.Modifiers {
		total += m.Applied
	}
	return total
}

// refreshModifiers folds modifier decay into the opinion and drops spent modifiers.
func (s *State) refreshModifiers(now int) {
	kept := s.Modifiers[:0]
	for _, m := range s.Modifiers {
		cur := m.CurrentValue(now)
		if cur != m.Applied {
			s.Opinion = ClampOpinion(s.Opinion + cur - m.Applied)
			m.Applied = cur
		}
		if m.Permanent || cur != 0 {
			kept = append(kept, m)
		}
	}
	s.Modifiers = kept
}

func addID(ids []realm.ID, id realm.ID) []realm.ID {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func removeID(ids []realm.ID, id realm.ID) []realm.ID {
	return slices.DeleteFunc(ids, func(x realm.ID) bool { return x == id })
}
