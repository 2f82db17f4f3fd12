// Simulation ties the diplomacy, memory, trust, influence and decision systems together
// and runs them each month.
package engine

import (
	"fmt"
	"log/slog"
	"maps"
	"math/rand"
	"slices"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/talgya/concord/internal/ai"
	"github.com/talgya/concord/internal/diplomacy"
	"github.com/talgya/concord/internal/entropy"
	"github.com/talgya/concord/internal/influence"
	"github.com/talgya/concord/internal/memory"
	"github.com/talgya/concord/internal/realm"
	"github.com/talgya/concord/internal/trust"
	"github.com/talgya/concord/internal/world"
)

// Options configures a simulation.
type Options struct {
	Seed            int64
	ActionChance    float64 // chance a realm acts on its top decision in a month
	EventBuffer     int     // events kept in memory for the API
	MaxMemoryEvents int     // per-ledger cap
	Tuning          diplomacy.Tuning
	Influence       influence.Config
	Impacts         memory.Impacts
}

// DefaultOptions returns the stock settings.
func DefaultOptions() Options {
	return Options{
		Seed:            1,
		ActionChance:    0.3,
		EventBuffer:     1000,
		MaxMemoryEvents: memory.DefaultMaxEvents,
		Tuning:          diplomacy.DefaultTuning(),
		Influence:       influence.DefaultConfig(),
		Impacts:         memory.DefaultImpacts(),
	}
}

const (
	grudgeModifier     = -20
	friendshipModifier = 15
	rebuildTarget      = 0.6
	faithModifier      = 10
	discoveryRate      = 0.1
)

// Simulation holds every subsystem and the recent event log.
type Simulation struct {
	World     *world.World
	Diplomacy *diplomacy.Store
	Memory    *memory.System
	Trust     *trust.Model
	Influence *influence.System
	AI        *ai.Engine
	Streams   *entropy.Streams
	Bus       *Bus
	Options   Options

	// tickMu serialises monthly ticks with externally requested actions.
	tickMu sync.Mutex

	mu        sync.RWMutex
	events    []Event
	unsaved   []Event
	decisions map[realm.ID][]ai.Decision
	lastMonth int
}

// New builds a simulation over a generated world. Personalities, base opinions, vassal
// alliances and court marriages are seeded from opts.Seed.
func New(w *world.World, opts Options) *Simulation {
	def := DefaultOptions()
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = def.EventBuffer
	}
	if opts.MaxMemoryEvents <= 0 {
		opts.MaxMemoryEvents = def.MaxMemoryEvents
	}
	if opts.Impacts == nil {
		opts.Impacts = def.Impacts
	}

	store := diplomacy.NewStore(opts.Tuning)
	mem := memory.NewSystem(opts.Impacts, opts.MaxMemoryEvents)
	s := &Simulation{
		World:     w,
		Diplomacy: store,
		Memory:    mem,
		Trust:     trust.NewModel(),
		Influence: influence.NewSystem(opts.Influence, w, store),
		AI:        ai.New(store, mem, w),
		Streams:   entropy.NewStreams(opts.Seed),
		Bus:       NewBus(),
		Options:   opts,
		decisions: make(map[realm.ID][]ai.Decision),
	}
	store.OnRelationChange(s.relationChanged)
	s.seedRelations()
	return s
}

var governmentPersonalities = map[realm.Government][]diplomacy.Personality{
	realm.GovTribal:           {diplomacy.PersonalityAggressive, diplomacy.PersonalityMilitaristic, diplomacy.PersonalityVengeful, diplomacy.PersonalityExpansionist},
	realm.GovNomadic:          {diplomacy.PersonalityAggressive, diplomacy.PersonalityOpportunistic, diplomacy.PersonalityExpansionist, diplomacy.PersonalityMilitaristic},
	realm.GovFeudal:           {diplomacy.PersonalityPragmatic, diplomacy.PersonalityHonorable, diplomacy.PersonalityMilitaristic, diplomacy.PersonalityDefensive, diplomacy.PersonalityExpansionist},
	realm.GovTheocracy:        {diplomacy.PersonalityReligious, diplomacy.PersonalityHonorable, diplomacy.PersonalityVengeful, diplomacy.PersonalityPeaceful},
	realm.GovAbsoluteMonarchy: {diplomacy.PersonalityExpansionist, diplomacy.PersonalityPragmatic, diplomacy.PersonalityAggressive, diplomacy.PersonalityTreacherous},
	realm.GovRepublic:         {diplomacy.PersonalityDiplomatic, diplomacy.PersonalityPragmatic, diplomacy.PersonalityPeaceful, diplomacy.PersonalityDefensive},
	realm.GovMerchantRepublic: {diplomacy.PersonalityMercantile, diplomacy.PersonalityOpportunistic, diplomacy.PersonalityDiplomatic, diplomacy.PersonalityIsolationist},
	realm.GovImperial:         {diplomacy.PersonalityExpansionist, diplomacy.PersonalityMilitaristic, diplomacy.PersonalityPragmatic},
	realm.GovConstitutional:   {diplomacy.PersonalityDiplomatic, diplomacy.PersonalityPeaceful, diplomacy.PersonalityForgiving, diplomacy.PersonalityHonorable},
}

func pickPersonality(g realm.Government, rng *rand.Rand) diplomacy.Personality {
	pool := governmentPersonalities[g]
	if len(pool) == 0 {
		return diplomacy.Personality(rng.Intn(diplomacy.PersonalityCount))
	}
	return pool[rng.Intn(len(pool))]
}

// seedRelations creates a diplomacy component for every realm in the world and lays down
// the starting web of opinions, vassal alliances and marriages.
func (s *Simulation) seedRelations() {
	rng := s.Streams.Get(entropy.StreamWorld)
	ids := s.World.IDs()
	for _, id := range ids {
		snap, _ := s.World.Realm(id)
		r := diplomacy.NewRealm(id, pickPersonality(snap.Government, rng))
		if d, ok := s.World.Dynasty(id); ok {
			r.Glory = d.Prestige / 10
		}
		s.Diplomacy.AddRealm(r)
	}

	for _, a := range ids {
		pa := s.Diplomacy.Profile(a)
		for _, b := range ids {
			if a == b {
				continue
			}
			base := diplomacy.BaseOpinion(pa, s.Diplomacy.Profile(b))
			s.Diplomacy.SetBaseOpinion(a, b, base)
			s.Diplomacy.ModifyOpinion(a, b, base, "first impressions")
			switch s.World.CompareFaith(a, b) {
			case realm.FaithSame:
				s.Diplomacy.AddModifier(a, b, diplomacy.OpinionModifier{Source: "shared faith", Value: faithModifier, Permanent: true})
			case realm.FaithDifferent:
				s.Diplomacy.AddModifier(a, b, diplomacy.OpinionModifier{Source: "heretics", Value: -faithModifier, Permanent: true})
			}
		}
	}

	for _, id := range ids {
		snap, _ := s.World.Realm(id)
		if snap.Liege != realm.None {
			if res := s.Diplomacy.FormAlliance(snap.Liege, id); !res.Success {
				slog.Debug("vassal alliance not formed", "liege", snap.Liege, "vassal", id, "reason", res.Reason)
			}
		}
	}

	for _, a := range ids {
		for _, b := range s.World.Neighbors(a) {
			if b < a {
				continue
			}
			for _, tie := range s.World.Ties(a, b) {
				if tie.Kind != realm.TieSpouse {
					continue
				}
				bride, groom := a, b
				if !tie.SpouseFromTarget {
					bride, groom = b, a
				}
				s.Diplomacy.ArrangeMarriage(bride, groom, tie.AllianceMarriage)
				break
			}
		}
	}
	s.Diplomacy.RefreshDeceptions()
	slog.Info("relations seeded", "realms", len(ids), "treaties", s.treatyCount())
}

// Month returns the last month processed.
func (s *Simulation) Month() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMonth
}

// SetMonth restores the month counter after loading a save. Random streams are
// reseeded from the seed and month so a resumed run is reproducible.
func (s *Simulation) SetMonth(m int) {
	s.mu.Lock()
	s.lastMonth = m
	s.mu.Unlock()
	s.Diplomacy.SetMonth(m)
	s.Streams.Reseed(s.Options.Seed + int64(m))
}

// TickMonth runs one month: inbound reports, relationship decay and treaties, memory,
// trust, influence, spheres, conflicts, decisions, and finally the material world.
func (s *Simulation) TickMonth(month int) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	s.lastMonth = month
	s.mu.Unlock()
	s.Diplomacy.SetMonth(month)

	s.applyInbound(month)

	s.Diplomacy.DecayMonthly(1)
	s.processTreaties(month)

	s.Memory.ApplyMonthlyDecay(1)
	s.Memory.Prune()
	s.claimPatterns(month)
	s.refreshBaseOpinions()
	s.Diplomacy.RefreshDeceptions()
	if month%MonthsPerYear == 0 {
		s.awardMilestones(month)
	}

	s.updateTrust(month)
	s.discoverSecrets(month)

	s.Influence.Propagate(month)
	s.Influence.UpdateSpheres()
	s.Influence.UpdateVassals()
	s.Influence.UpdateCharacters()
	s.Influence.UpdateConflicts(month)
	s.resolveConflicts(month)

	s.processProposals(month)
	s.decide(month)

	s.World.Advance(1, s.Streams.Get(entropy.StreamWorld), func(id realm.ID) int {
		return len(s.Diplomacy.Enemies(id))
	})

	slog.Debug("monthly tick", "month", month, "time", SimTime(month))
	if month%MonthsPerYear == 0 {
		s.yearlyReport(month)
	}
}

// applyInbound turns reports from the wider game into memories.
func (s *Simulation) applyInbound(month int) {
	for _, in := range s.Bus.Drain() {
		if !s.Diplomacy.HasRealm(in.Actor) || !s.Diplomacy.HasRealm(in.Target) || in.Actor == in.Target {
			slog.Warn("inbound event for unknown realms", "kind", in.Kind, "actor", in.Actor, "target", in.Target)
			continue
		}
		desc := in.Description
		switch in.Kind {
		case InboundWarDeclared:
			s.Memory.RecordType(memory.WarDeclared, in.Actor, in.Target, month, desc)
			s.Trust.ApplyIncident(in.Actor, in.Target, diplomacy.IncidentMilitaryAggression)
		case InboundTreatySigned:
			s.Memory.RecordType(memory.TreatySigned, in.Actor, in.Target, month, desc)
			s.Trust.ApplyIncident(in.Actor, in.Target, diplomacy.IncidentKeepingPromise)
		case InboundTreatyViolated:
			s.Memory.RecordType(memory.TreatyViolated, in.Actor, in.Target, month, desc)
			s.Trust.ApplyIncident(in.Actor, in.Target, diplomacy.IncidentTreatyBreach)
			s.Trust.RecordTreaty(in.Actor, false)
		default:
			slog.Warn("unknown inbound event", "kind", in.Kind)
			continue
		}
		s.syncTrust(in.Actor, in.Target)
	}
}

func (s *Simulation) processTreaties(month int) {
	for _, n := range s.Diplomacy.ProcessTreaties(month) {
		t := n.Treaty
		a, b := t.SignatoryA, t.SignatoryB
		switch n.Kind {
		case "broken":
			s.treatyBroken(t, n.Breaker, month)
			s.lapse(t)
		case "expired":
			s.record(NewEvent(month, KindTreatyExpired, a, b, "diplomacy",
				fmt.Sprintf("%s treaty between %s and %s expired", t.Type, s.name(a), s.name(b))))
			s.lapse(t)
		case "honored":
			s.Memory.RecordType(memory.TreatyHonored, a, b, month, t.Type.String())
			s.Trust.ApplyIncident(a, b, diplomacy.IncidentKeepingPromise)
			s.Trust.RecordTreaty(a, true)
			s.Trust.RecordTreaty(b, true)
			s.Trust.CompleteRequirement(a, b, trust.ReqTreaties)
			s.syncTrust(a, b)
		}
	}
}

// treatyBroken records a breach in memory, trust and the event log.
func (s *Simulation) treatyBroken(t diplomacy.Treaty, breaker realm.ID, month int) {
	victim := t.Partner(breaker)
	if breaker == realm.None || victim == realm.None {
		breaker, victim = t.SignatoryA, t.SignatoryB
	}
	s.Memory.RecordType(memory.TreatyViolated, breaker, victim, month, t.Type.String())
	s.Trust.ApplyIncident(breaker, victim, diplomacy.IncidentTreatyBreach)
	s.Trust.RecordTreaty(breaker, false)
	s.syncTrust(breaker, victim)
	s.record(NewEvent(month, KindTreatyBroken, breaker, victim, "diplomacy",
		fmt.Sprintf("%s broke its %s treaty with %s", s.name(breaker), t.Type, s.name(victim))))
}

// lapse drops an alliance relation once no alliance treaty backs it.
func (s *Simulation) lapse(t diplomacy.Treaty) {
	a, b := t.SignatoryA, t.SignatoryB
	if t.Type != diplomacy.TreatyAlliance || !s.Diplomacy.Allied(a, b) {
		return
	}
	if s.Diplomacy.HasTreaty(a, b, diplomacy.TreatyAlliance) {
		return
	}
	s.Diplomacy.SetMutualRelation(a, b, diplomacy.RelationNeutral, "alliance lapsed")
}

func (s *Simulation) claimPatterns(month int) {
	for _, p := range s.Memory.ClaimPatterns() {
		if p.Grudge {
			s.Diplomacy.AddModifier(p.Self, p.Other, diplomacy.OpinionModifier{Source: "grudge", Value: grudgeModifier, Permanent: true})
			s.record(NewEvent(month, KindGrudge, p.Self, p.Other, "memory",
				fmt.Sprintf("%s holds a grudge against %s", s.name(p.Self), s.name(p.Other))))
		}
		if p.Friendship {
			s.Diplomacy.AddModifier(p.Self, p.Other, diplomacy.OpinionModifier{Source: "old friendship", Value: friendshipModifier, Permanent: true})
			s.record(NewEvent(month, KindFriendship, p.Self, p.Other, "memory",
				fmt.Sprintf("%s counts %s an old friend", s.name(p.Self), s.name(p.Other))))
		}
	}
}

// refreshBaseOpinions folds remembered history into the baseline opinions drift toward.
func (s *Simulation) refreshBaseOpinions() {
	ids := s.Diplomacy.IDs()
	profiles := make(map[realm.ID]diplomacy.Profile, len(ids))
	for _, id := range ids {
		profiles[id] = s.Diplomacy.Profile(id)
	}
	for _, self := range s.Memory.IDs() {
		if _, ok := profiles[self]; !ok {
			continue
		}
		for _, other := range ids {
			if other == self {
				continue
			}
			impact := s.Memory.OpinionImpact(self, other)
			if impact == 0 {
				continue
			}
			base := diplomacy.BaseOpinion(profiles[self], profiles[other]) + impact/4
			s.Diplomacy.SetBaseOpinion(self, other, diplomacy.ClampOpinion(base))
		}
	}
}

func (s *Simulation) awardMilestones(month int) {
	status := func(self, other realm.ID) memory.PairStatus {
		return memory.PairStatus{
			AtWar:     s.Diplomacy.AtWar(self, other),
			Allied:    s.Diplomacy.Allied(self, other),
			Trading:   s.Diplomacy.HasTreaty(self, other, diplomacy.TreatyTrade),
			Marriages: s.Diplomacy.MarriagesBetween(self, other),
		}
	}
	for _, aw := range s.Memory.YearlyMilestones(Year(month), status) {
		m := aw.Milestone
		if m.Opinion != 0 {
			s.Diplomacy.AddModifier(aw.Self, aw.Other, diplomacy.OpinionModifier{Source: m.Type.String(), Value: m.Opinion, Permanent: true})
		}
		if m.Trust != 0 {
			s.Trust.Modify(aw.Self, aw.Other, trust.HistoricalBehavior, m.Trust, m.Type.String())
			s.syncTrust(aw.Self, aw.Other)
		}
		s.record(NewEvent(month, KindMilestone, aw.Self, aw.Other, "memory",
			fmt.Sprintf("%s and %s: %s", s.name(aw.Self), s.name(aw.Other), m.Description)))
	}
}

func (s *Simulation) updateTrust(month int) {
	s.Trust.Drift(1)
	atPeace := func(a, b realm.ID) bool { return !s.Diplomacy.AtWar(a, b) }
	for _, p := range s.Trust.UpdateRebuilding(1, atPeace) {
		s.record(NewEvent(month, KindTrustRebuilt, p.Lo, p.Hi, "trust",
			fmt.Sprintf("trust between %s and %s has been rebuilt", s.name(p.Lo), s.name(p.Hi))))
	}
	for _, p := range s.Trust.Pairs() {
		s.syncTrust(p.Lo, p.Hi)
	}
}

// syncTrust copies the model's trust into the pair record the calculator reads.
func (s *Simulation) syncTrust(a, b realm.ID) {
	s.Diplomacy.SetTrust(a, b, s.Trust.Trust(a, b))
}

// discoverSecrets gives every outsider a monthly chance to uncover each secret treaty. The
// chance grows with the observer's intelligence on either signatory.
func (s *Simulation) discoverSecrets(month int) {
	treaties := s.Diplomacy.SecretTreaties()
	if len(treaties) == 0 {
		return
	}
	rng := s.Streams.Get(entropy.StreamEvents)
	ids := s.Diplomacy.IDs()
	for _, t := range treaties {
		ease := 1 - t.DiscoveryDifficulty()
		a, b := t.SignatoryA, t.SignatoryB
		for _, observer := range ids {
			if t.IsVisibleTo(observer) {
				continue
			}
			intel := max(s.Diplomacy.Intelligence(observer, a), s.Diplomacy.Intelligence(observer, b))
			if rng.Float64() >= ease*intel*discoveryRate {
				continue
			}
			s.Diplomacy.RevealTreaty(a, b, t.ID, observer)
			s.Memory.RecordType(memory.SecretAllianceRevealed, a, observer, month, t.Type.String())
			s.Memory.RecordType(memory.SecretAllianceRevealed, b, observer, month, t.Type.String())
			s.record(NewEvent(month, KindSecretRevealed, observer, a, "diplomacy",
				fmt.Sprintf("%s uncovered a secret %s between %s and %s", s.name(observer), t.Type, s.name(a), s.name(b))))
		}
	}
}

func (s *Simulation) resolveConflicts(month int) {
	for _, o := range s.Influence.ResolveFlashpoints(s.Diplomacy) {
		a, b := o.Conflict.Primary, o.Conflict.Challenger
		switch o.Kind {
		case influence.OutcomeWithdrawal:
			s.Memory.RecordType(memory.InfluenceWithdrawal, a, b, month, o.Description)
		case influence.OutcomeStandoff:
			s.Memory.RecordType(memory.InfluenceStandoff, a, b, month, o.Description)
		case influence.OutcomeIncident:
			s.Memory.RecordType(memory.BorderViolated, o.Winner, o.Loser, month, o.Description)
			s.Trust.ApplyIncident(a, b, diplomacy.IncidentMilitaryAggression)
			s.syncTrust(a, b)
		}
		s.record(NewEvent(month, KindConflictResolved, a, b, "influence", o.Description))
	}
}

// processProposals answers proposals made in earlier months, then drops the lapsed ones.
func (s *Simulation) processProposals(month int) {
	rng := s.Streams.Get(entropy.StreamAcceptance)
	for _, p := range s.Diplomacy.Proposals() {
		if p.ProposedMonth >= month {
			continue
		}
		taken, ok := s.Diplomacy.TakeProposal(p.ID)
		if !ok {
			continue
		}
		accepted, chance := s.AI.EvaluateProposal(taken, rng)
		if !accepted {
			s.Diplomacy.StartCooldown(taken.Proposer, taken.Target, taken.Move)
			s.record(NewEvent(month, KindProposalRefused, taken.Target, taken.Proposer, "diplomacy",
				fmt.Sprintf("%s refused %s from %s (%.0f%% chance)", s.name(taken.Target), taken.Move, s.name(taken.Proposer), chance*100)))
			continue
		}
		s.act(taken.Move, taken.Proposer, taken.Target, proposalArg(taken))
	}
	for _, p := range s.Diplomacy.ExpireProposals(month) {
		slog.Debug("proposal expired", "id", p.ID, "move", p.Move, "from", p.Proposer, "to", p.Target)
	}
}

func proposalArg(p diplomacy.Proposal) float64 {
	switch p.Move {
	case diplomacy.MoveProposeTrade:
		return p.Terms["volume"]
	case diplomacy.MoveArrangeMarriage:
		return p.Terms["alliance"]
	}
	return 0
}

// decide evaluates every realm and lets some act on their most pressing decision.
// Wars are declared outright, less often outside campaign season; everything else
// becomes a proposal answered next month.
func (s *Simulation) decide(month int) {
	all := s.AI.EvaluateAll()
	s.mu.Lock()
	s.decisions = all
	s.mu.Unlock()

	rng := s.Streams.Get(entropy.StreamAI)
	campaign := campaignFactor(SeasonOf(month))
	for _, id := range slices.Sorted(maps.Keys(all)) {
		ds := all[id]
		if len(ds) == 0 || rng.Float64() >= s.Options.ActionChance {
			continue
		}
		d := ds[0]
		if d.Move == diplomacy.MoveDeclareWar {
			if rng.Float64() >= campaign {
				slog.Debug("war postponed for the season", "realm", d.Realm, "target", d.Target, "season", SeasonName(SeasonOf(month)))
				continue
			}
			s.act(d.Move, d.Realm, d.Target, float64(s.casusBelli(d.Realm, d.Target)))
			continue
		}
		s.Propose(d.Realm, d.Target, d.Move, s.proposalTerms(d))
	}
}

func (s *Simulation) casusBelli(aggressor, target realm.ID) diplomacy.CasusBelli {
	switch {
	case s.Diplomacy.Opinion(aggressor, target) < -50:
		return diplomacy.CasusInsultToHonor
	case s.World.SharedBorders(aggressor, target) > 0:
		return diplomacy.CasusBorderDispute
	case s.World.CompareFaith(aggressor, target) == realm.FaithDifferent:
		return diplomacy.CasusReligiousConflict
	default:
		return diplomacy.CasusNone
	}
}

func (s *Simulation) proposalTerms(d ai.Decision) map[string]float64 {
	if d.Move != diplomacy.MoveProposeTrade {
		return nil
	}
	return map[string]float64{"volume": 50 + 100*s.AI.TradeValue(d.Realm, d.Target)}
}

// Propose queues an offer from one realm to another. It is answered at the next tick.
func (s *Simulation) Propose(from, to realm.ID, move diplomacy.Move, terms map[string]float64) (diplomacy.Proposal, bool) {
	if !s.Diplomacy.HasRealm(from) || !s.Diplomacy.HasRealm(to) || from == to {
		return diplomacy.Proposal{}, false
	}
	if s.Diplomacy.HasPendingProposal(from, to, move) || s.Diplomacy.OnCooldown(from, to, move) {
		return diplomacy.Proposal{}, false
	}
	month := s.Diplomacy.Month()
	p := diplomacy.NewProposal(from, to, move, month, s.Options.Tuning.ProposalExpiryMonths)
	p.Terms = terms
	p.Acceptance = s.AI.Acceptance(*p)
	s.Diplomacy.AddProposal(p)
	return *p, true
}

// Decisions returns the moves a realm wanted to make at the last tick.
func (s *Simulation) Decisions(id realm.ID) []ai.Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.decisions[id])
}

// record appends to the event ring and the unsaved queue, then publishes on the bus.
func (s *Simulation) record(e Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	if n := s.Options.EventBuffer; len(s.events) > n {
		s.events = s.events[len(s.events)-n:]
	}
	s.unsaved = append(s.unsaved, e)
	s.mu.Unlock()
	s.Bus.Publish(e)
}

func (s *Simulation) relationChanged(c diplomacy.RelationChange) {
	s.record(NewEvent(s.Diplomacy.Month(), KindRelationChanged, c.From, c.To, "diplomacy",
		fmt.Sprintf("%s now regards %s as %s (was %s): %s", s.name(c.From), s.name(c.To), c.New, c.Old, c.Reason)))
}

// Events returns up to limit of the most recent events, oldest first. limit <= 0 returns all.
func (s *Simulation) Events(limit int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit > 0 && len(s.events) > limit {
		start = len(s.events) - limit
	}
	return slices.Clone(s.events[start:])
}

// TakeUnsaved returns events recorded since the last call.
func (s *Simulation) TakeUnsaved() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.unsaved
	s.unsaved = nil
	return out
}

// LoadEvents replaces the ring with persisted history and forgets unsaved events.
// Nothing is republished.
func (s *Simulation) LoadEvents(events []Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = slices.Clone(events)
	s.unsaved = nil
	if n := s.Options.EventBuffer; len(s.events) > n {
		s.events = s.events[len(s.events)-n:]
	}
}

func (s *Simulation) name(id realm.ID) string {
	if snap, ok := s.World.Realm(id); ok && snap.Name != "" {
		return snap.Name
	}
	return "realm " + id.String()
}

func (s *Simulation) treatyCount() int {
	n := 0
	for _, p := range s.Diplomacy.Pairs() {
		for _, t := range p.Treaties {
			if t.Active {
				n++
			}
		}
	}
	return n
}

// Stats summarises the state of the world.
type Stats struct {
	Month         int     `json:"month"`
	Date          string  `json:"date"`
	Realms        int     `json:"realms"`
	Wars          int     `json:"wars"`
	Alliances     int     `json:"alliances"`
	Treaties      int     `json:"treaties"`
	Conflicts     int     `json:"conflicts"`
	Flashpoints   int     `json:"flashpoints"`
	Proposals     int     `json:"proposals"`
	Treasury      float64 `json:"treasury"`
	AvgOpinion    float64 `json:"avg_opinion"`
	AvgTrust      float64 `json:"avg_trust"`
	EventsInQueue int     `json:"events_in_queue"`
}

// Stats computes aggregate figures across every realm.
func (s *Simulation) Stats() Stats {
	month := s.Month()
	st := Stats{
		Month:       month,
		Date:        SimTime(month),
		Treaties:    s.treatyCount(),
		Conflicts:   len(s.Influence.Conflicts()),
		Flashpoints: len(s.Influence.Flashpoints()),
		Proposals:   len(s.Diplomacy.Proposals()),
	}
	ids := s.Diplomacy.IDs()
	st.Realms = len(ids)
	opinions, n := 0, 0
	for _, a := range ids {
		for _, b := range ids {
			if a == b {
				continue
			}
			opinions += s.Diplomacy.Opinion(a, b)
			n++
			if a < b {
				if s.Diplomacy.AtWar(a, b) {
					st.Wars++
				}
				if s.Diplomacy.Allied(a, b) {
					st.Alliances++
				}
			}
		}
		if snap, ok := s.World.Realm(a); ok {
			st.Treasury += snap.Treasury
		}
	}
	if n > 0 {
		st.AvgOpinion = float64(opinions) / float64(n)
	}
	pairs := s.Diplomacy.Pairs()
	for _, p := range pairs {
		st.AvgTrust += p.Trust
	}
	if len(pairs) > 0 {
		st.AvgTrust /= float64(len(pairs))
	}
	s.mu.RLock()
	st.EventsInQueue = len(s.unsaved)
	s.mu.RUnlock()
	return st
}

func (s *Simulation) yearlyReport(month int) {
	st := s.Stats()
	slog.Info("yearly report",
		"year", Year(month),
		"realms", st.Realms,
		"wars", st.Wars,
		"alliances", st.Alliances,
		"treaties", st.Treaties,
		"conflicts", st.Conflicts,
		"treasury", humanize.Comma(int64(st.Treasury)),
		"avg_opinion", fmt.Sprintf("%.1f", st.AvgOpinion),
		"avg_trust", fmt.Sprintf("%.2f", st.AvgTrust),
	)
}
