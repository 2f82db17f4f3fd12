// Influence system — monthly graph rebuild, propagation, decay and sphere tracking.
package influence

import (
	"cmp"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/talgya/concord/internal/realm"
	"github.com/talgya/concord/internal/repo"
)

// Config holds the propagation constants.
type Config struct {
	MaxHops      int                `yaml:"max_hops"`
	MinThreshold float64            `yaml:"min_threshold"`
	DecayRate    float64            `yaml:"decay_rate"`
	TypeDecay    map[string]float64 `yaml:"type_decay"`
}

// DefaultConfig returns the stock constants.
func DefaultConfig() Config {
	return Config{MaxHops: 10, MinThreshold: 5, DecayRate: 0.02}
}

// Component is everything the influence system tracks for one realm.
type Component struct {
	Realm      realm.ID             `json:"realm"`
	Incoming   *State               `json:"incoming"`
	Projection map[Type]float64     `json:"projection,omitempty"`
	Sphere     Sphere               `json:"sphere"`
	Vassals    []VassalInfluence    `json:"vassals,omitempty"`
	Characters []CharacterInfluence `json:"characters,omitempty"`
}

// NewComponent returns an empty component.
func NewComponent(id realm.ID) *Component {
	return &Component{Realm: id, Incoming: NewState(id), Projection: make(map[Type]float64)}
}

// Clone returns a deep copy.
func (c *Component) Clone() *Component {
	out := *c
	out.Incoming = c.Incoming.Clone()
	out.Projection = make(map[Type]float64, len(c.Projection))
	for t, v := range c.Projection {
		out.Projection[t] = v
	}
	out.Sphere.Core = slices.Clone(c.Sphere.Core)
	out.Sphere.Peripheral = slices.Clone(c.Sphere.Peripheral)
	out.Sphere.Contested = slices.Clone(c.Sphere.Contested)
	out.Vassals = slices.Clone(c.Vassals)
	out.Characters = slices.Clone(c.Characters)
	return &out
}

// System runs propagation over the realm network.
type System struct {
	cfg       Config
	decay     [typeCount]float64
	world     realm.Collaborators
	relations Relations
	strength  StrengthFunc

	components *repo.Repository[realm.ID, *Component]

	mu        sync.RWMutex
	graph     map[realm.ID][]realm.ID
	conflicts map[string]*Conflict
	month     int
}

// NewSystem builds a system over the given collaborators. Unknown type names in
// cfg.TypeDecay are logged and ignored.
func NewSystem(cfg Config, world realm.Collaborators, rel Relations) *System {
	def := DefaultConfig()
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = def.MaxHops
	}
	if cfg.MinThreshold < 0 {
		cfg.MinThreshold = def.MinThreshold
	}
	cfg.DecayRate = clamp(cfg.DecayRate, 0, 1)

	s := &System{
		cfg:        cfg,
		decay:      defaultTypeDecay,
		world:      world,
		relations:  rel,
		components: repo.New(NewComponent),
		graph:      make(map[realm.ID][]realm.ID),
		conflicts:  make(map[string]*Conflict),
	}
	for name, rate := range cfg.TypeDecay {
		t, ok := ParseType(name)
		if !ok {
			slog.Warn("unknown influence type in decay config", "type", name)
			continue
		}
		s.decay[t] = clamp(rate, 0, 1)
	}
	s.strength = Calculator{World: world, Relations: rel}.Strength
	return s
}

// SetStrengthFunc replaces the base strength formulas.
func (s *System) SetStrengthFunc(fn StrengthFunc) { s.strength = fn }

// Config returns the active constants.
func (s *System) Config() Config { return s.cfg }

// DistanceModifier is (1 - decay)^hops for type t.
func (s *System) DistanceModifier(t Type, hops int) float64 {
	return clamp(math.Pow(1-s.decay[t], float64(hops)), 0, 1)
}

// RelationshipModifier scales influence by the target's opinion of the source.
func RelationshipModifier(opinion int) float64 {
	return clamp(1+float64(opinion)/200, 0.5, 1.5)
}

// EffectiveStrength applies both modifiers to a base strength.
func (s *System) EffectiveStrength(base float64, t Type, hops, opinion int) float64 {
	return max(0, base*s.DistanceModifier(t, hops)*RelationshipModifier(opinion))
}

// RebuildGraph links every realm to its liege, vassals, allies and land neighbours.
func (s *System) RebuildGraph() {
	ids := s.world.IDs()
	graph := make(map[realm.ID][]realm.ID, len(ids))
	add := func(a, b realm.ID) {
		if a == b || a == realm.None || b == realm.None {
			return
		}
		if !slices.Contains(graph[a], b) {
			graph[a] = append(graph[a], b)
		}
	}
	for _, id := range ids {
		snap, ok := s.world.Realm(id)
		if !ok {
			continue
		}
		add(id, snap.Liege)
		add(snap.Liege, id)
		for _, v := range snap.Vassals {
			add(id, v)
			add(v, id)
		}
		for _, a := range s.relations.Allies(id) {
			add(id, a)
			add(a, id)
		}
		for _, n := range s.world.Neighbors(id) {
			add(id, n)
			add(n, id)
		}
	}
	for id := range graph {
		slices.Sort(graph[id])
	}
	s.mu.Lock()
	s.graph = graph
	s.mu.Unlock()
}

// Adjacent returns the realms directly linked to id.
func (s *System) Adjacent(id realm.ID) []realm.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.graph[id])
}

// CanPropagate reports whether influence from origin may pass through current to
// next. Hierarchy links always pass. Otherwise current is checked against the origin
// only: war or an opinion below -75 blocks.
func (s *System) CanPropagate(origin, current, next realm.ID) bool {
	if current == origin {
		return true
	}
	if snap, ok := s.world.Realm(current); ok {
		if snap.Liege != realm.None && (snap.Liege == origin || snap.Liege == next) {
			return true
		}
		if slices.Contains(snap.Vassals, origin) || slices.Contains(snap.Vassals, next) {
			return true
		}
	}
	if s.relations.AtWar(origin, current) {
		return false
	}
	return s.relations.Opinion(origin, current) >= -75
}

// Reach runs a bounded breadth-first search from origin and returns the shortest
// path to every reachable realm, origin excluded.
func (s *System) Reach(origin realm.ID) map[realm.ID][]realm.ID {
	s.mu.RLock()
	graph := s.graph
	s.mu.RUnlock()

	paths := map[realm.ID][]realm.ID{origin: {origin}}
	queue := []realm.ID{origin}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		path := paths[cur]
		if len(path)-1 >= s.cfg.MaxHops {
			continue
		}
		for _, next := range graph[cur] {
			if _, seen := paths[next]; seen {
				continue
			}
			if !s.CanPropagate(origin, cur, next) {
				continue
			}
			np := make([]realm.ID, len(path), len(path)+1)
			copy(np, path)
			paths[next] = append(np, next)
			queue = append(queue, next)
		}
	}
	delete(paths, origin)
	return paths
}

// project computes every source's influence on every reachable target.
func (s *System) project(origin realm.ID) []Source {
	var out []Source
	reach := s.Reach(origin)
	targets := make([]realm.ID, 0, len(reach))
	for id := range reach {
		targets = append(targets, id)
	}
	slices.Sort(targets)
	for _, target := range targets {
		path := reach[target]
		hops := len(path) - 1
		opinion := s.relations.Opinion(target, origin)
		for _, t := range Types {
			base := s.strength(origin, target, t)
			src := Source{
				Source:       origin,
				Type:         t,
				Base:         base,
				Distance:     s.DistanceModifier(t, hops),
				Relationship: RelationshipModifier(opinion),
				Hops:         hops,
				Path:         path,
				Month:        s.month,
			}
			src.Effective = max(0, src.Base*src.Distance*src.Relationship)
			if src.Effective < s.cfg.MinThreshold {
				continue
			}
			out = append(out, src)
		}
	}
	return out
}

type targeted struct {
	target realm.ID
	src    Source
}

// Propagate recomputes all influence for the month. Sources refreshed this month
// replace their old values; sources no longer reached decay by the monthly rate and
// are dropped once below the threshold.
func (s *System) Propagate(month int) {
	s.mu.Lock()
	s.month = month
	s.mu.Unlock()

	s.RebuildGraph()
	ids := s.world.IDs()
	for _, id := range ids {
		if g, ok := s.components.Ensure(id); ok {
			g.Release()
		}
	}

	results := make([][]targeted, len(ids))
	var wg sync.WaitGroup
	for i, origin := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, src := range s.project(origin) {
				results[i] = append(results[i], targeted{target: src.Path[len(src.Path)-1], src: src})
			}
		}()
	}
	wg.Wait()

	fresh := make(map[realm.ID][]Source)
	for _, rs := range results {
		for _, r := range rs {
			fresh[r.target] = append(fresh[r.target], r.src)
		}
	}

	s.components.WriteAll(func(id realm.ID, c *Component) {
		next := make(map[Type][]Source)
		refreshed := make(map[realm.ID]map[Type]bool)
		for _, src := range fresh[id] {
			next[src.Type] = append(next[src.Type], src)
			if refreshed[src.Source] == nil {
				refreshed[src.Source] = make(map[Type]bool)
			}
			refreshed[src.Source][src.Type] = true
		}
		for t, old := range c.Incoming.Sources {
			for _, src := range old {
				if refreshed[src.Source][t] {
					continue
				}
				if src, ok := s.decayed(src, 1); ok {
					next[t] = append(next[t], src)
				}
			}
		}
		for t := range next {
			slices.SortFunc(next[t], func(a, b Source) int { return cmp.Compare(a.Source, b.Source) })
		}
		c.Incoming.Sources = next
		c.Incoming.Recalculate()

		for _, t := range []Type{Military, Economic, Prestige} {
			c.Projection[t] = s.strength(id, id, t)
		}
	})
	slog.Debug("influence propagated", "month", month, "realms", len(ids))
}

// decayed shrinks an unrefreshed source by the monthly rate over months, reporting
// false once it falls below the threshold.
func (s *System) decayed(src Source, months int) (Source, bool) {
	src.Effective *= math.Pow(1-s.cfg.DecayRate, float64(months))
	return src, src.Effective >= s.cfg.MinThreshold
}

// State returns a copy of the influence on target.
func (s *System) State(target realm.ID) *State {
	var out *State
	s.components.Read(target, func(c *Component) { out = c.Incoming.Clone() })
	if out == nil {
		return NewState(target)
	}
	return out
}

// Component returns a copy of a realm's component.
func (s *System) Component(id realm.ID) (*Component, bool) {
	var out *Component
	ok := s.components.Read(id, func(c *Component) { out = c.Clone() })
	return out, ok
}

// PutComponent replaces a realm's component, used when loading.
func (s *System) PutComponent(c *Component) {
	if c.Incoming == nil {
		c.Incoming = NewState(c.Realm)
	}
	if c.Incoming.Sources == nil {
		c.Incoming.Sources = make(map[Type][]Source)
	}
	if c.Projection == nil {
		c.Projection = make(map[Type]float64)
	}
	c.Incoming.Recalculate()
	s.components.Put(c.Realm, c)
}

// IDs returns every realm with a component.
func (s *System) IDs() []realm.ID { return s.components.Keys() }

// Dominant returns the strongest influencer of type t on target, or realm.None.
func (s *System) Dominant(target realm.ID, t Type) realm.ID {
	return s.State(target).Dominant[t]
}

// TotalOn is the summed influence on target.
func (s *System) TotalOn(target realm.ID) float64 { return s.State(target).Total }

// Autonomy of target; uninfluenced realms are fully autonomous.
func (s *System) Autonomy(target realm.ID) float64 { return s.State(target).Autonomy }

// DiplomaticFreedom of target.
func (s *System) DiplomaticFreedom(target realm.ID) float64 {
	return s.State(target).DiplomaticFreedom
}

// Competing reports whether a and b both hold influence over contested.
func (s *System) Competing(a, b, contested realm.ID) bool {
	st := s.State(contested)
	return st.IsInfluencedBy(a) && st.IsInfluencedBy(b)
}

// HopDistance is the number of hops from source to target, or -1 when unreachable.
func (s *System) HopDistance(source, target realm.ID) int {
	if source == target {
		return 0
	}
	if p, ok := s.Reach(source)[target]; ok {
		return len(p) - 1
	}
	return -1
}
