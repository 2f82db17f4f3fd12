// Relationship store — per-realm diplomacy components plus the shared per-pair record.
package diplomacy

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/talgya/concord/internal/realm"
	"github.com/talgya/concord/internal/repo"
)

// PairRecord holds the fields both sides of a relationship share.
type PairRecord struct {
	Pair               realm.Pair `json:"pair"`
	Trust              float64    `json:"trust"`
	TradeVolume        float64    `json:"trade_volume"`
	EconomicDependency float64    `json:"economic_dependency"`
	Treaties           []*Treaty  `json:"treaties,omitempty"`
}

func newPairRecord(p realm.Pair) *PairRecord {
	return &PairRecord{Pair: p, Trust: 0.5}
}

// RelationChange is emitted whenever a side's relation category changes.
type RelationChange struct {
	From   realm.ID `json:"from"`
	To     realm.ID `json:"to"`
	Old    Relation `json:"old"`
	New    Relation `json:"new"`
	Reason string   `json:"reason"`
}

// View is a read-only snapshot of one side of a relationship plus the shared record.
type View struct {
	Self               realm.ID `json:"self"`
	State              State    `json:"state"`
	Trust              float64  `json:"trust"`
	TradeVolume        float64  `json:"trade_volume"`
	EconomicDependency float64  `json:"economic_dependency"`
	Treaties           []Treaty `json:"treaties"`
}

// Store owns all diplomatic state. Realm components are guarded individually through the
// repository; the pair table has its own lock, always taken after any realm guard.
type Store struct {
	tuning Tuning
	realms *repo.Repository[realm.ID, *Realm]

	mu        sync.RWMutex
	pairs     map[realm.Pair]*PairRecord
	proposals map[string]*Proposal

	month atomic.Int64

	lmu       sync.RWMutex
	listeners []func(RelationChange)
}

// NewStore creates an empty store. Unknown realms are created on first write.
func NewStore(t Tuning) *Store {
	return &Store{
		tuning: t,
		realms: repo.New(func(id realm.ID) *Realm {
			slog.Debug("creating diplomacy component", "realm", id)
			return NewRealm(id, PersonalityPragmatic)
		}),
		pairs:     make(map[realm.Pair]*PairRecord),
		proposals: make(map[string]*Proposal),
	}
}

// Tuning returns the store's tuning table.
func (s *Store) Tuning() Tuning { return s.tuning }

// SetMonth sets the current simulated month.
func (s *Store) SetMonth(m int) { s.month.Store(int64(m)) }

// Month returns the current simulated month.
func (s *Store) Month() int { return int(s.month.Load()) }

// OnRelationChange registers a listener. Listeners run after all locks are released.
func (s *Store) OnRelationChange(fn func(RelationChange)) {
	s.lmu.Lock()
	s.listeners = append(s.listeners, fn)
	s.lmu.Unlock()
}

func (s *Store) emit(changes ...RelationChange) {
	if len(changes) == 0 {
		return
	}
	s.lmu.RLock()
	ls := slices.Clone(s.listeners)
	s.lmu.RUnlock()
	for _, c := range changes {
		for _, fn := range ls {
			fn(c)
		}
	}
}

// --- Realms ---

// AddRealm stores r, replacing any existing component with the same ID.
func (s *Store) AddRealm(r *Realm) {
	if r.Relationships == nil {
		r.Relationships = make(map[realm.ID]*State)
	}
	r.recomputePrestige()
	s.realms.Put(r.ID, r)
}

// HasRealm reports whether a component exists for id.
func (s *Store) HasRealm(id realm.ID) bool { return s.realms.Has(id) }

// IDs returns every realm with a component, ascending.
func (s *Store) IDs() []realm.ID { return s.realms.Keys() }

// Realm returns a deep copy of a realm's component.
func (s *Store) Realm(id realm.ID) (*Realm, bool) {
	var out *Realm
	ok := s.realms.Read(id, func(r *Realm) { out = r.Clone() })
	return out, ok
}

// Profile returns the calculator view of a realm. Unknown realms yield a default profile.
func (s *Store) Profile(id realm.ID) Profile {
	p := NewRealm(id, PersonalityPragmatic).Profile()
	s.realms.Read(id, func(r *Realm) { p = r.Profile() })
	return p
}

// UpdateRealm runs fn with exclusive access to a realm, creating it if needed.
func (s *Store) UpdateRealm(id realm.ID, fn func(*Realm)) {
	g, ok := s.realms.Ensure(id)
	if !ok {
		return
	}
	defer g.Release()
	fn(g.Value())
}

// AdjustGlory adds earned prestige to a realm.
func (s *Store) AdjustGlory(id realm.ID, delta float64) {
	s.UpdateRealm(id, func(r *Realm) {
		r.Glory += delta
		r.recomputePrestige()
	})
}

// AdjustReputation shifts diplomatic reputation, clamped to [0,2].
func (s *Store) AdjustReputation(id realm.ID, delta float64) {
	s.UpdateRealm(id, func(r *Realm) {
		r.Reputation = min(2, max(0, r.Reputation+delta))
		r.recomputePrestige()
	})
}

// AdjustWeariness shifts war weariness, clamped to [0,1].
func (s *Store) AdjustWeariness(id realm.ID, delta float64) {
	s.UpdateRealm(id, func(r *Realm) {
		r.WarWeariness = clamp01(r.WarWeariness + delta)
		r.recomputePrestige()
	})
}

// --- Per-side state ---

// View returns from's side of the relationship with to. Missing state reads as default
// neutral without being created.
func (s *Store) View(from, to realm.ID) View {
	v := View{Self: from, State: *NewState(to), Trust: 0.5}
	s.realms.Read(from, func(r *Realm) {
		if st, ok := r.Relationships[to]; ok {
			v.State = st.clone()
		}
	})

	s.mu.RLock()
	if rec, ok := s.pairs[realm.MakePair(from, to)]; ok {
		v.Trust = rec.Trust
		v.TradeVolume = rec.TradeVolume
		v.EconomicDependency = rec.EconomicDependency
		for _, t := range rec.Treaties {
			v.Treaties = append(v.Treaties, t.clone())
		}
	}
	s.mu.RUnlock()
	return v
}

// Opinion returns from's opinion of to.
func (s *Store) Opinion(from, to realm.ID) int {
	op := 0
	s.realms.Read(from, func(r *Realm) {
		if st, ok := r.Relationships[to]; ok {
			op = st.Opinion
		}
	})
	return op
}

// Relation returns from's relation category toward to.
func (s *Store) Relation(from, to realm.ID) Relation {
	rel := RelationNeutral
	s.realms.Read(from, func(r *Realm) {
		if st, ok := r.Relationships[to]; ok {
			rel = st.Relation
		}
	})
	return rel
}

// Standing returns the calculator input for from's view of to.
func (s *Store) Standing(from, to realm.ID) Standing {
	return Standing{Opinion: s.Opinion(from, to), Trust: s.Trust(from, to)}
}

// AtWar reports whether a is at war with b.
func (s *Store) AtWar(a, b realm.ID) bool {
	at := false
	s.realms.Read(a, func(r *Realm) { at = r.IsAtWarWith(b) })
	return at
}

// Allied reports whether a is allied with b.
func (s *Store) Allied(a, b realm.ID) bool {
	al := false
	s.realms.Read(a, func(r *Realm) { al = r.IsAlliedWith(b) })
	return al
}

// Allies returns a's allies.
func (s *Store) Allies(id realm.ID) []realm.ID {
	var out []realm.ID
	s.realms.Read(id, func(r *Realm) { out = slices.Clone(r.Allies) })
	return out
}

// Enemies returns the realms a is at war with.
func (s *Store) Enemies(id realm.ID) []realm.ID {
	var out []realm.ID
	s.realms.Read(id, func(r *Realm) { out = slices.Clone(r.Enemies) })
	return out
}

// SetRelation sets from's relation toward to. Setting anything other than allied or at
// war re-derives the category from opinion.
func (s *Store) SetRelation(from, to realm.ID, rel Relation, reason string) {
	var change RelationChange
	changed := false
	s.UpdateRealm(from, func(r *Realm) {
		if rel != RelationAllied && rel != RelationAtWar {
			rel = s.tuning.Categorize(r.Relationship(to).Opinion)
		}
		old := r.setRelation(to, rel)
		r.Relationship(to).LastContact = s.Month()
		r.recomputePrestige()
		if old != rel {
			change = RelationChange{From: from, To: to, Old: old, New: rel, Reason: reason}
			changed = true
		}
	})
	if changed {
		s.emit(change)
	}
}

// SetMutualRelation sets the relation on both sides.
func (s *Store) SetMutualRelation(a, b realm.ID, rel Relation, reason string) {
	s.SetRelation(a, b, rel, reason)
	s.SetRelation(b, a, rel, reason)
}

// ModifyOpinion applies delta to from's opinion of to, clamps it, logs the reason and
// returns the new opinion.
func (s *Store) ModifyOpinion(from, to realm.ID, delta int, reason string) int {
	var (
		op      int
		change  RelationChange
		changed bool
	)
	s.UpdateRealm(from, func(r *Realm) {
		st := r.Relationship(to)
		st.Opinion = ClampOpinion(st.Opinion + delta)
		st.logAction(reason, delta, s.tuning.RecentActionLimit)
		st.LastContact = s.Month()
		change, changed = s.reconcile(r, st, reason)
		op = st.Opinion
	})
	if changed {
		s.emit(change)
	}
	return op
}

// SetBaseOpinion sets the baseline opinion drifts toward.
func (s *Store) SetBaseOpinion(from, to realm.ID, base int) {
	s.UpdateRealm(from, func(r *Realm) {
		r.Relationship(to).BaseOpinion = ClampOpinion(base)
	})
}

// AddModifier folds a named opinion modifier into from's opinion of to.
func (s *Store) AddModifier(from, to realm.ID, m OpinionModifier) {
	var (
		change  RelationChange
		changed bool
	)
	now := s.Month()
	s.UpdateRealm(from, func(r *Realm) {
		st := r.Relationship(to)
		m.CreatedMonth = now
		m.Applied = m.CurrentValue(now)
		st.Opinion = ClampOpinion(st.Opinion + m.Applied)
		st.Modifiers = append(st.Modifiers, m)
		st.logAction(m.Source, m.Applied, s.tuning.RecentActionLimit)
		change, changed = s.reconcile(r, st, m.Source)
	})
	if changed {
		s.emit(change)
	}
}

// SetDisplayedOpinion makes from show a false opinion of to.
func (s *Store) SetDisplayedOpinion(from, to realm.ID, displayed int, quality float64) {
	s.UpdateRealm(from, func(r *Realm) {
		r.Relationship(to).SetDisplayedOpinion(displayed, quality)
	})
}

// PerceivedOpinion is what an observer with the given intelligence believes from thinks of to.
func (s *Store) PerceivedOpinion(from, to realm.ID, intelligence float64) int {
	op := 0
	s.realms.Read(from, func(r *Realm) {
		if st, ok := r.Relationships[to]; ok {
			op = st.PerceivedOpinion(intelligence)
		}
	})
	return op
}

// OnCooldown reports whether from must wait before repeating move toward to.
func (s *Store) OnCooldown(from, to realm.ID, move Move) bool {
	blocked := false
	now := s.Month()
	s.realms.Read(from, func(r *Realm) {
		if st, ok := r.Relationships[to]; ok {
			blocked = st.OnCooldown(move, now)
		}
	})
	return blocked
}

// StartCooldown blocks move from from toward to for the configured number of months.
func (s *Store) StartCooldown(from, to realm.ID, move Move) {
	now := s.Month()
	s.UpdateRealm(from, func(r *Realm) {
		r.Relationship(to).setCooldown(move, now, s.tuning.CooldownMonths.For(move))
	})
}

// reconcile re-derives the relation category after an opinion change. Allied and at-war
// are set only by explicit transitions.
func (s *Store) reconcile(r *Realm, st *State, reason string) (RelationChange, bool) {
	if st.Relation == RelationAllied || st.Relation == RelationAtWar {
		return RelationChange{}, false
	}
	next := s.tuning.Categorize(st.Opinion)
	if next == st.Relation {
		return RelationChange{}, false
	}
	old := r.setRelation(st.Other, next)
	return RelationChange{From: r.ID, To: st.Other, Old: old, New: next, Reason: reason}, true
}

// --- Shared pair record ---

// pair returns the record for a and b, creating it. Callers hold s.mu for writing.
func (s *Store) pair(a, b realm.ID) *PairRecord {
	p := realm.MakePair(a, b)
	rec, ok := s.pairs[p]
	if !ok {
		rec = newPairRecord(p)
		s.pairs[p] = rec
	}
	return rec
}

// Trust returns the shared trust between a and b (0.5 when unknown).
func (s *Store) Trust(a, b realm.ID) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.pairs[realm.MakePair(a, b)]; ok {
		return rec.Trust
	}
	return 0.5
}

// SetTrust stores the shared trust, clamped to [0,1].
func (s *Store) SetTrust(a, b realm.ID, v float64) {
	s.mu.Lock()
	s.pair(a, b).Trust = clamp01(v)
	s.mu.Unlock()
}

// SetTrade records trade volume and economic dependency for a pair.
func (s *Store) SetTrade(a, b realm.ID, volume, dependency float64) {
	s.mu.Lock()
	rec := s.pair(a, b)
	rec.TradeVolume = max(0, volume)
	rec.EconomicDependency = clamp01(dependency)
	s.mu.Unlock()
}

// Trade returns the pair's trade volume and economic dependency.
func (s *Store) Trade(a, b realm.ID) (volume, dependency float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.pairs[realm.MakePair(a, b)]; ok {
		return rec.TradeVolume, rec.EconomicDependency
	}
	return 0, 0
}

// Pairs returns copies of every pair record, ordered by pair.
func (s *Store) Pairs() []PairRecord {
	s.mu.RLock()
	out := make([]PairRecord, 0, len(s.pairs))
	for _, rec := range s.pairs {
		c := *rec
		c.Treaties = make([]*Treaty, len(rec.Treaties))
		for i, t := range rec.Treaties {
			tc := t.clone()
			c.Treaties[i] = &tc
		}
		out = append(out, c)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Pair.Less(out[j].Pair) })
	return out
}

// PutPair replaces a pair record, used when loading saved state.
func (s *Store) PutPair(rec *PairRecord) {
	s.mu.Lock()
	s.pairs[rec.Pair] = rec
	s.mu.Unlock()
}

// --- Treaties ---

// AddTreaty stores t. A treaty ID already present for the pair gets the signing month
// appended so re-signed treaties stay distinct.
func (s *Store) AddTreaty(t *Treaty) Treaty {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.pair(t.SignatoryA, t.SignatoryB)
	if slices.ContainsFunc(rec.Treaties, func(x *Treaty) bool { return x.ID == t.ID }) {
		t.ID = fmt.Sprintf("%s_%d", t.ID, t.SignedMonth)
	}
	rec.Treaties = append(rec.Treaties, t)
	return t.clone()
}

// RemoveTreaty deletes a treaty outright.
func (s *Store) RemoveTreaty(a, b realm.ID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.pairs[realm.MakePair(a, b)]
	if !ok {
		return false
	}
	n := len(rec.Treaties)
	rec.Treaties = slices.DeleteFunc(rec.Treaties, func(t *Treaty) bool { return t.ID == id })
	return len(rec.Treaties) != n
}

// BreakTreaty deactivates a treaty and zeroes the breaker's compliance.
func (s *Store) BreakTreaty(a, b realm.ID, id string, breaker realm.ID) (Treaty, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.pairs[realm.MakePair(a, b)]
	if !ok {
		return Treaty{}, false
	}
	for _, t := range rec.Treaties {
		if t.ID == id && t.Active {
			t.Active = false
			t.BrokenBy = breaker
			t.SetCompliance(breaker, 0)
			return t.clone(), true
		}
	}
	return Treaty{}, false
}

// Treaties returns every treaty between a and b, active or not.
func (s *Store) Treaties(a, b realm.ID) []Treaty {
	return s.filterTreaties(a, b, func(*Treaty) bool { return true })
}

// ActiveTreaties returns the active treaties between a and b.
func (s *Store) ActiveTreaties(a, b realm.ID) []Treaty {
	return s.filterTreaties(a, b, func(t *Treaty) bool { return t.Active })
}

// TreatiesOfType returns active treaties of one type between a and b.
func (s *Store) TreatiesOfType(a, b realm.ID, typ TreatyType) []Treaty {
	return s.filterTreaties(a, b, func(t *Treaty) bool { return t.Active && t.Type == typ })
}

// HasTreaty reports whether an active treaty of typ binds a and b.
func (s *Store) HasTreaty(a, b realm.ID, typ TreatyType) bool {
	return len(s.TreatiesOfType(a, b, typ)) > 0
}

func (s *Store) filterTreaties(a, b realm.ID, keep func(*Treaty) bool) []Treaty {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.pairs[realm.MakePair(a, b)]
	if !ok {
		return nil
	}
	var out []Treaty
	for _, t := range rec.Treaties {
		if keep(t) {
			out = append(out, t.clone())
		}
	}
	return out
}

// RealmTreaties returns id's active treaties, optionally filtered to those observer can see.
// Pass realm.None as observer to skip the visibility filter.
func (s *Store) RealmTreaties(id, observer realm.ID) []Treaty {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Treaty
	for p, rec := range s.pairs {
		if !p.Contains(id) {
			continue
		}
		for _, t := range rec.Treaties {
			if !t.Active {
				continue
			}
			if observer != realm.None && !t.IsVisibleTo(observer) {
				continue
			}
			out = append(out, t.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActiveTreatyCount counts id's active treaties of typ.
func (s *Store) ActiveTreatyCount(id realm.ID, typ TreatyType) int {
	n := 0
	for _, t := range s.RealmTreaties(id, realm.None) {
		if t.Type == typ {
			n++
		}
	}
	return n
}

// RevealTreaty lets observer learn of a secret treaty.
func (s *Store) RevealTreaty(a, b realm.ID, id string, observer realm.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.pairs[realm.MakePair(a, b)]
	if !ok {
		return false
	}
	for _, t := range rec.Treaties {
		if t.ID == id {
			t.RevealTo(observer)
			return true
		}
	}
	return false
}

// TreatyNotice reports a treaty state change found during monthly processing.
type TreatyNotice struct {
	Treaty  Treaty   `json:"treaty"`
	Kind    string   `json:"kind"` // expired, broken, honored
	Breaker realm.ID `json:"breaker,omitempty"`
}

// ProcessTreaties drifts compliance toward each signatory's current disposition, then
// expires or breaks treaties. Honored notices fire once a year per active treaty.
func (s *Store) ProcessTreaties(now int) []TreatyNotice {
	type key struct {
		from, to realm.ID
	}
	opinions := make(map[key]int)

	s.mu.RLock()
	var sides []key
	for p, rec := range s.pairs {
		if len(rec.Treaties) > 0 {
			sides = append(sides, key{p.Lo, p.Hi}, key{p.Hi, p.Lo})
		}
	}
	s.mu.RUnlock()
	for _, k := range sides {
		opinions[k] = s.Opinion(k.from, k.to)
	}

	var notices []TreatyNotice
	s.mu.Lock()
	for _, rec := range s.pairs {
		for _, t := range rec.Treaties {
			if !t.Active {
				continue
			}
			for _, id := range []realm.ID{t.SignatoryA, t.SignatoryB} {
				target := complianceTarget(opinions[key{id, t.Partner(id)}])
				cur := t.Compliance(id)
				t.SetCompliance(id, cur+(target-cur)*0.1)
			}

			switch {
			case t.IsExpired(now):
				t.Active = false
				notices = append(notices, TreatyNotice{Treaty: t.clone(), Kind: "expired"})
			case t.IsBroken(s.tuning.ComplianceFloor):
				t.Active = false
				breaker := t.SignatoryA
				if t.ComplianceB < t.ComplianceA {
					breaker = t.SignatoryB
				}
				t.BrokenBy = breaker
				notices = append(notices, TreatyNotice{Treaty: t.clone(), Kind: "broken", Breaker: breaker})
			case now > t.SignedMonth && (now-t.SignedMonth)%12 == 0:
				notices = append(notices, TreatyNotice{Treaty: t.clone(), Kind: "honored"})
			}
		}
	}
	s.mu.Unlock()

	sort.Slice(notices, func(i, j int) bool { return notices[i].Treaty.ID < notices[j].Treaty.ID })
	return notices
}

// complianceTarget maps a signatory's opinion of its partner to the compliance it drifts
// toward. Anything above unfriendly keeps full compliance.
func complianceTarget(opinion int) float64 {
	if opinion >= -25 {
		return 1.0
	}
	return clamp01(1 + float64(opinion+25)/75)
}

// --- Marriages ---

// AddMarriage records a marriage on both houses.
func (s *Store) AddMarriage(m Marriage) {
	s.UpdateRealm(m.BrideRealm, func(r *Realm) {
		r.Marriages = append(r.Marriages, m)
		r.recomputePrestige()
	})
	s.UpdateRealm(m.GroomRealm, func(r *Realm) {
		r.Marriages = append(r.Marriages, m)
		r.recomputePrestige()
	})
}

// MarriagesBetween counts marriages linking a and b.
func (s *Store) MarriagesBetween(a, b realm.ID) int {
	n := 0
	s.realms.Read(a, func(r *Realm) {
		for _, m := range r.Marriages {
			if (m.BrideRealm == a && m.GroomRealm == b) || (m.BrideRealm == b && m.GroomRealm == a) {
				n++
			}
		}
	})
	return n
}

// --- Proposals ---

// AddProposal stores a pending proposal.
func (s *Store) AddProposal(p *Proposal) {
	s.mu.Lock()
	s.proposals[p.ID] = p
	s.mu.Unlock()
}

// Proposals returns every pending proposal ordered by month then ID.
func (s *Store) Proposals() []Proposal {
	s.mu.RLock()
	out := make([]Proposal, 0, len(s.proposals))
	for _, p := range s.proposals {
		out = append(out, *p)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProposedMonth != out[j].ProposedMonth {
			return out[i].ProposedMonth < out[j].ProposedMonth
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// HasPendingProposal reports whether from already has move pending toward to.
func (s *Store) HasPendingProposal(from, to realm.ID, move Move) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.proposals {
		if p.Proposer == from && p.Target == to && p.Move == move {
			return true
		}
	}
	return false
}

// TakeProposal removes and returns a proposal, as on accept or reject.
func (s *Store) TakeProposal(id string) (Proposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok {
		return Proposal{}, false
	}
	delete(s.proposals, id)
	return *p, true
}

// ExpireProposals removes proposals that have lapsed at month now.
func (s *Store) ExpireProposals(now int) []Proposal {
	s.mu.Lock()
	var out []Proposal
	for id, p := range s.proposals {
		if p.Expired(now) {
			out = append(out, *p)
			delete(s.proposals, id)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- Monthly pass ---

// DecayMonthly drifts every opinion toward its baseline, decays modifiers, records history
// and updates war weariness. Each realm is processed in its own goroutine under its own
// write guard. Zero months is a no-op.
func (s *Store) DecayMonthly(months int) {
	if months <= 0 {
		return
	}
	now := s.Month()

	var (
		mu      sync.Mutex
		changes []RelationChange
	)
	s.realms.WriteAll(func(id realm.ID, r *Realm) {
		var local []RelationChange
		others := make([]realm.ID, 0, len(r.Relationships))
		for other := range r.Relationships {
			others = append(others, other)
		}
		slices.Sort(others)

		for _, other := range others {
			st := r.Relationships[other]
			baseline := st.BaseOpinion + st.modifierTotal()
			st.Opinion = ClampOpinion(st.Opinion + OpinionDecay(st.Opinion-baseline, months, r.Personality))
			st.refreshModifiers(now)
			st.History.Record(now, st.Opinion)
			if c, ok := s.reconcile(r, st, "opinion drift"); ok {
				local = append(local, c)
			}
		}

		if len(r.Enemies) > 0 {
			r.WarWeariness = clamp01(r.WarWeariness + 0.01*float64(months*len(r.Enemies)))
		} else {
			r.WarWeariness = clamp01(r.WarWeariness - 0.02*float64(months))
		}
		r.Glory *= 1 - min(1, 0.01*float64(months))
		r.recomputePrestige()

		mu.Lock()
		changes = append(changes, local...)
		mu.Unlock()
	})

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].From != changes[j].From {
			return changes[i].From < changes[j].From
		}
		return changes[i].To < changes[j].To
	})
	s.emit(changes...)
}
