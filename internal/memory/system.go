package memory

import (
	"log/slog"
	"slices"

	"github.com/talgya/concord/internal/realm"
	"github.com/talgya/concord/internal/repo"
)

// Book is one realm's memory component: its ledgers and milestone trackers with every
// other realm, plus the events that touched its wider reputation.
type Book struct {
	Realm      realm.ID                       `json:"realm"`
	Ledgers    map[realm.ID]*Ledger           `json:"ledgers"`
	Milestones map[realm.ID]*MilestoneTracker `json:"milestones"`
	Reputation []Event                        `json:"reputation,omitempty"`
}

// NewBook returns an empty memory component.
func NewBook(id realm.ID) *Book {
	return &Book{
		Realm:      id,
		Ledgers:    make(map[realm.ID]*Ledger),
		Milestones: make(map[realm.ID]*MilestoneTracker),
	}
}

func (b *Book) ledger(other realm.ID) *Ledger {
	l, ok := b.Ledgers[other]
	if !ok {
		l = NewLedger(b.Realm, other)
		b.Ledgers[other] = l
	}
	return l
}

func (b *Book) tracker(other realm.ID) *MilestoneTracker {
	mt, ok := b.Milestones[other]
	if !ok {
		mt = NewMilestoneTracker(b.Realm, other)
		b.Milestones[other] = mt
	}
	return mt
}

// Clone returns a deep copy.
func (b *Book) Clone() *Book {
	c := NewBook(b.Realm)
	for id, l := range b.Ledgers {
		lc := *l
		lc.Events = slices.Clone(l.Events)
		lc.Permanent = slices.Clone(l.Permanent)
		lc.byCategory = nil
		c.Ledgers[id] = &lc
	}
	for id, mt := range b.Milestones {
		mc := *mt
		mc.Achieved = slices.Clone(mt.Achieved)
		c.Milestones[id] = &mc
	}
	c.Reputation = slices.Clone(b.Reputation)
	return c
}

// reputationThreshold is the prestige swing beyond which an event is remembered by everyone.
const reputationThreshold = 5.0

// System owns every realm's memory.
type System struct {
	impacts   Impacts
	maxEvents int
	books     *repo.Repository[realm.ID, *Book]
}

// NewSystem creates a memory system with the given impact table and per-ledger cap.
func NewSystem(impacts Impacts, maxEvents int) *System {
	if impacts == nil {
		impacts = DefaultImpacts()
	}
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &System{
		impacts:   impacts,
		maxEvents: maxEvents,
		books:     repo.New(NewBook),
	}
}

// Impacts returns the active impact table.
func (s *System) Impacts() Impacts { return s.impacts }

// NewEvent builds an event from the active impact table.
func (s *System) NewEvent(typ EventType, actor, target realm.ID, month int, description string) Event {
	e := NewEvent(typ, actor, target, month, s.impacts)
	e.Description = description
	return e
}

// Record stores e in the actor's memory of the target and a mirrored copy in the target's
// memory of the actor.
func (s *System) Record(e Event) {
	if e.Actor == e.Target {
		slog.Warn("ignoring self-directed memory event", "realm", e.Actor, "type", e.Type)
		return
	}
	s.recordOne(e.Actor, e.Target, e)

	mirror := e
	mirror.Actor, mirror.Target = e.Target, e.Actor
	s.recordOne(e.Target, e.Actor, mirror)
}

func (s *System) recordOne(self, other realm.ID, e Event) {
	g, ok := s.books.Ensure(self)
	if !ok {
		return
	}
	defer g.Release()
	b := g.Value()
	b.ledger(other).Record(e, s.maxEvents)
	b.tracker(other)
	if e.PrestigeImpact > reputationThreshold || e.PrestigeImpact < -reputationThreshold {
		b.Reputation = append(b.Reputation, e)
	}
}

// RecordType is shorthand for NewEvent followed by Record.
func (s *System) RecordType(typ EventType, actor, target realm.ID, month int, description string) Event {
	e := s.NewEvent(typ, actor, target, month, description)
	s.Record(e)
	return e
}

// Ledger returns a copy of self's memory of other.
func (s *System) Ledger(self, other realm.ID) (Ledger, bool) {
	var out Ledger
	found := false
	s.books.Read(self, func(b *Book) {
		if l, ok := b.Ledgers[other]; ok {
			out = *l
			out.Events = slices.Clone(l.Events)
			out.Permanent = slices.Clone(l.Permanent)
			out.byCategory = nil
			found = true
		}
	})
	return out, found
}

func (s *System) query(self, other realm.ID, fn func(*Ledger) bool) bool {
	res := false
	s.books.Read(self, func(b *Book) {
		if l, ok := b.Ledgers[other]; ok {
			res = fn(l)
		}
	})
	return res
}

// HasGrudge reports whether self holds a grudge against other.
func (s *System) HasGrudge(self, other realm.ID) bool {
	return s.query(self, other, (*Ledger).HasGrudge)
}

// HasDeepFriendship reports whether self counts other a deep friend.
func (s *System) HasDeepFriendship(self, other realm.ID) bool {
	return s.query(self, other, (*Ledger).HasDeepFriendship)
}

// IsHistoricalRival reports a long history of fighting each other.
func (s *System) IsHistoricalRival(self, other realm.ID) bool {
	return s.query(self, other, (*Ledger).IsHistoricalRival)
}

// IsHistoricalAlly reports a long history of fighting side by side.
func (s *System) IsHistoricalAlly(self, other realm.ID) bool {
	return s.query(self, other, (*Ledger).IsHistoricalAlly)
}

// OpinionImpact is the current remembered opinion weight of self toward other.
func (s *System) OpinionImpact(self, other realm.ID) int {
	total := 0
	s.books.Read(self, func(b *Book) {
		if l, ok := b.Ledgers[other]; ok {
			total = l.OpinionImpact()
		}
	})
	return total
}

// TrustImpact is the current remembered trust weight of self toward other.
func (s *System) TrustImpact(self, other realm.ID) float64 {
	total := 0.0
	s.books.Read(self, func(b *Book) {
		if l, ok := b.Ledgers[other]; ok {
			total = l.TrustImpact()
		}
	})
	return total
}

// ApplyMonthlyDecay ages every ledger, one goroutine per realm.
func (s *System) ApplyMonthlyDecay(months int) {
	if months <= 0 {
		return
	}
	s.books.WriteAll(func(_ realm.ID, b *Book) {
		for _, l := range b.Ledgers {
			l.ApplyMonthlyDecay(months)
		}
	})
}

// Prune drops forgotten events from every ledger.
func (s *System) Prune() {
	s.books.WriteAll(func(_ realm.ID, b *Book) {
		for _, l := range b.Ledgers {
			l.Prune(s.maxEvents)
		}
	})
}

// Pattern is a grudge or deep friendship newly recognised in a ledger.
type Pattern struct {
	Self       realm.ID `json:"self"`
	Other      realm.ID `json:"other"`
	Grudge     bool     `json:"grudge"`
	Friendship bool     `json:"friendship"`
}

// ClaimPatterns returns grudges and friendships that have formed since the last call.
// Each is reported once per ledger.
func (s *System) ClaimPatterns() []Pattern {
	var out []Pattern
	for _, id := range s.books.Keys() {
		s.books.Write(id, func(b *Book) {
			for _, other := range sortedKeys(b.Ledgers) {
				l := b.Ledgers[other]
				p := Pattern{Self: id, Other: other}
				if !l.GrudgeApplied && l.HasGrudge() {
					l.GrudgeApplied = true
					p.Grudge = true
				}
				if !l.FriendshipApplied && l.HasDeepFriendship() {
					l.FriendshipApplied = true
					p.Friendship = true
				}
				if p.Grudge || p.Friendship {
					out = append(out, p)
				}
			}
		})
	}
	return out
}

// Award is a milestone earned by Self with respect to Other.
type Award struct {
	Self      realm.ID  `json:"self"`
	Other     realm.ID  `json:"other"`
	Milestone Milestone `json:"milestone"`
}

// YearlyMilestones advances every tracker and returns newly earned milestones. status
// reports the current state of a pair; it must not call back into the memory system.
func (s *System) YearlyMilestones(year int, status func(self, other realm.ID) PairStatus) []Award {
	var out []Award
	for _, id := range s.books.Keys() {
		s.books.Write(id, func(b *Book) {
			for _, other := range sortedKeys(b.Milestones) {
				for _, m := range b.Milestones[other].YearlyUpdate(status(id, other), year) {
					out = append(out, Award{Self: id, Other: other, Milestone: m})
				}
			}
		})
	}
	return out
}

// Touch makes sure self tracks milestones with other even before any event is recorded.
func (s *System) Touch(self, other realm.ID) {
	if self == other {
		return
	}
	g, ok := s.books.Ensure(self)
	if !ok {
		return
	}
	g.Value().tracker(other)
	g.Release()
}

// Book returns a deep copy of a realm's memory.
func (s *System) Book(id realm.ID) (*Book, bool) {
	var out *Book
	ok := s.books.Read(id, func(b *Book) { out = b.Clone() })
	return out, ok
}

// PutBook installs a loaded memory component.
func (s *System) PutBook(b *Book) {
	if b.Ledgers == nil {
		b.Ledgers = make(map[realm.ID]*Ledger)
	}
	if b.Milestones == nil {
		b.Milestones = make(map[realm.ID]*MilestoneTracker)
	}
	for _, l := range b.Ledgers {
		l.reindex()
	}
	s.books.Put(b.Realm, b)
}

// IDs returns every realm with a memory component.
func (s *System) IDs() []realm.ID { return s.books.Keys() }

func sortedKeys[V any](m map[realm.ID]V) []realm.ID {
	keys := make([]realm.ID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
