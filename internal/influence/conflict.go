// Spheres and conflicts — tiering each realm's reach and tracking contested targets.
package influence

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/talgya/concord/internal/realm"
)

const (
	coreThreshold       = 80.0
	peripheralThreshold = 30.0

	// Incidents accrue monthly while tension stays above this.
	incidentTension = 50.0
	standoffTension = 10.0
)

// Conflict is two realms competing for the same kind of influence over a target.
type Conflict struct {
	ID         string   `json:"id"`
	Target     realm.ID `json:"target"`
	Primary    realm.ID `json:"primary"`
	Challenger realm.ID `json:"challenger"`
	Type       Type     `json:"type"`

	PrimaryStrength    float64 `json:"primary_strength"`
	ChallengerStrength float64 `json:"challenger_strength"`

	Tension        float64  `json:"tension"`
	EscalationRisk float64  `json:"escalation_risk"`
	Flashpoint     bool     `json:"flashpoint"`
	Incidents      []string `json:"incidents,omitempty"`
	StartMonth     int      `json:"start_month"`
}

// ConflictID is the stable key for a conflict.
func ConflictID(target, primary, challenger realm.ID, t Type) string {
	return fmt.Sprintf("%d_%d_%d_%s", target, primary, challenger, t)
}

// NewConflict builds a conflict and computes its tension.
func NewConflict(target, primary, challenger realm.ID, t Type, ps, cs float64) *Conflict {
	c := &Conflict{
		ID:                 ConflictID(target, primary, challenger, t),
		Target:             target,
		Primary:            primary,
		Challenger:         challenger,
		Type:               t,
		PrimaryStrength:    ps,
		ChallengerStrength: cs,
	}
	c.CalculateTension()
	return c
}

// CalculateTension is highest when the two sides are evenly matched.
func (c *Conflict) CalculateTension() {
	hi := max(c.PrimaryStrength, c.ChallengerStrength)
	if hi <= 0 {
		c.Tension = 0
	} else {
		c.Tension = clamp(100*(1-math.Abs(c.PrimaryStrength-c.ChallengerStrength)/hi), 0, 100)
	}
	c.UpdateEscalationRisk()
}

// UpdateEscalationRisk recomputes risk and the flashpoint flag.
func (c *Conflict) UpdateEscalationRisk() {
	c.EscalationRisk = clamp(min(0.5, c.Tension/200)+min(0.4, float64(len(c.Incidents))*0.1), 0, 1)
	c.Flashpoint = c.IsFlashpoint()
}

// AddIncident logs an incident and raises the escalation risk.
func (c *Conflict) AddIncident(desc string) {
	c.Incidents = append(c.Incidents, desc)
	c.UpdateEscalationRisk()
}

// IsFlashpoint: high tension, repeated incidents and high escalation risk.
func (c *Conflict) IsFlashpoint() bool {
	return c.Tension > 70 && len(c.Incidents) >= 3 && c.EscalationRisk > 0.6
}

func (c *Conflict) clone() *Conflict {
	out := *c
	out.Incidents = slices.Clone(c.Incidents)
	return &out
}

// SphereOf tiers source's reach: core above 80, peripheral above 30, and contested
// wherever another realm projects the same type onto the target.
func (s *System) SphereOf(source realm.ID) Sphere {
	sp := Sphere{Realm: source}
	var total float64
	for _, id := range s.components.Keys() {
		s.components.Read(id, func(c *Component) {
			from := c.Incoming.From(source)
			if from <= 0 {
				return
			}
			sp.Size++
			total += from
			switch {
			case from > coreThreshold:
				sp.Core = append(sp.Core, id)
			case from > peripheralThreshold:
				sp.Peripheral = append(sp.Peripheral, id)
			}
			for _, srcs := range c.Incoming.Sources {
				if len(srcs) >= 2 && slices.ContainsFunc(srcs, func(x Source) bool { return x.Source == source }) {
					sp.Contested = append(sp.Contested, id)
					break
				}
			}
		})
	}
	if sp.Size > 0 {
		sp.Strength = total / float64(sp.Size)
	}
	return sp
}

// UpdateSpheres stores every realm's sphere on its component.
func (s *System) UpdateSpheres() {
	ids := s.components.Keys()
	spheres := make(map[realm.ID]Sphere, len(ids))
	for _, id := range ids {
		spheres[id] = s.SphereOf(id)
	}
	s.components.WriteAll(func(id realm.ID, c *Component) {
		c.Sphere = spheres[id]
	})
}

// detect finds every contested target/type where source faces a challenger.
func (s *System) detect(source realm.ID) []*Conflict {
	var out []*Conflict
	for _, id := range s.components.Keys() {
		s.components.Read(id, func(c *Component) {
			for _, t := range Types {
				srcs := c.Incoming.Sources[t]
				if len(srcs) < 2 {
					continue
				}
				var own, rival *Source
				for i := range srcs {
					switch {
					case srcs[i].Source == source:
						own = &srcs[i]
					case rival == nil || srcs[i].Effective > rival.Effective:
						rival = &srcs[i]
					}
				}
				if own == nil || rival == nil {
					continue
				}
				if own.Effective < s.cfg.MinThreshold || rival.Effective < s.cfg.MinThreshold {
					continue
				}
				out = append(out, NewConflict(id, source, rival.Source, t, own.Effective, rival.Effective))
			}
		})
	}
	return out
}

// UpdateConflicts re-detects conflicts. Conflicts already known keep their incident
// log and gain one incident for the month while tension exceeds 50; conflicts no
// longer detected are dropped. The mirror of a conflict (same target and type,
// sides swapped) is tracked once.
func (s *System) UpdateConflicts(month int) {
	var found []*Conflict
	for _, id := range s.components.Keys() {
		found = append(found, s.detect(id)...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]*Conflict, len(found))
	for _, c := range found {
		mirror := ConflictID(c.Target, c.Challenger, c.Primary, c.Type)
		if _, dup := next[mirror]; dup {
			continue
		}
		if old, ok := s.conflicts[mirror]; ok {
			c = NewConflict(c.Target, c.Challenger, c.Primary, c.Type, c.ChallengerStrength, c.PrimaryStrength)
			c.ID = mirror
			c.Incidents, c.StartMonth = old.Incidents, old.StartMonth
		} else if old, ok := s.conflicts[c.ID]; ok {
			c.Incidents, c.StartMonth = old.Incidents, old.StartMonth
		} else {
			c.StartMonth = month
		}
		c.UpdateEscalationRisk()
		if c.Tension > incidentTension {
			c.AddIncident(fmt.Sprintf("month %d: friction over %s influence", month, c.Type))
		}
		next[c.ID] = c
	}
	s.conflicts = next
}

// Conflicts returns copies of all active conflicts in id order.
func (s *System) Conflicts() []*Conflict {
	s.mu.RLock()
	out := make([]*Conflict, 0, len(s.conflicts))
	for _, c := range s.conflicts {
		out = append(out, c.clone())
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Conflict) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Flashpoints returns the conflicts ripe for resolution.
func (s *System) Flashpoints() []*Conflict {
	var out []*Conflict
	for _, c := range s.Conflicts() {
		if c.IsFlashpoint() {
			out = append(out, c)
		}
	}
	return out
}

// PutConflict stores a conflict, used when loading.
func (s *System) PutConflict(c *Conflict) {
	c.UpdateEscalationRisk()
	s.mu.Lock()
	s.conflicts[c.ID] = c
	s.mu.Unlock()
}

// UpdateVassals records foreign pressure on each realm's vassals. Existing records
// age by a month; new ones appear once a foreign source passes the threshold.
func (s *System) UpdateVassals() {
	pressure := make(map[realm.ID][]VassalInfluence)
	for _, liege := range s.components.Keys() {
		snap, ok := s.world.Realm(liege)
		if !ok {
			continue
		}
		for _, v := range snap.Vassals {
			st := s.State(v)
			for _, inf := range st.Influencers() {
				if inf == liege {
					continue
				}
				var best Source
				for _, t := range Types {
					for _, src := range st.Sources[t] {
						if src.Source == inf && src.Effective > best.Effective {
							best = src
						}
					}
				}
				if best.Effective < s.cfg.MinThreshold {
					continue
				}
				pressure[liege] = append(pressure[liege], VassalInfluence{
					Vassal: v, Liege: liege, Influencer: inf, Type: best.Type, Strength: best.Effective,
				})
			}
		}
	}
	s.components.WriteAll(func(id realm.ID, c *Component) {
		next := pressure[id]
		for i := range next {
			for _, old := range c.Vassals {
				if old.Vassal == next[i].Vassal && old.Influencer == next[i].Influencer {
					next[i].Months = old.Months + 1
				}
			}
			next[i].calculate()
			if next[i].AtRisk() {
				slog.Info("vassal at risk", "liege", id, "vassal", next[i].Vassal, "influencer", next[i].Influencer)
			}
		}
		c.Vassals = next
	})
}

// UpdateCharacters records foreign hold over each realm's ruler and courtiers. The
// ruler carries the full personal influence of a foreign power, courtiers half.
func (s *System) UpdateCharacters() {
	s.components.WriteAll(func(id realm.ID, c *Component) {
		c.Characters = c.Characters[:0]
		snap, ok := s.world.Realm(id)
		if !ok {
			return
		}
		courtiers := s.world.Courtiers(id)
		for _, src := range c.Incoming.Sources[Personal] {
			if snap.Ruler != 0 {
				ci := CharacterInfluence{Character: snap.Ruler, Realm: id, Influencer: src.Source, Strength: src.Effective}
				ci.calculate()
				c.Characters = append(c.Characters, ci)
			}
			for _, ch := range courtiers {
				if ch == snap.Ruler {
					continue
				}
				ci := CharacterInfluence{Character: ch, Realm: id, Influencer: src.Source, Strength: src.Effective / 2}
				ci.calculate()
				c.Characters = append(c.Characters, ci)
			}
		}
	})
}
