// Event bus — outbound notifications from the simulation and inbound reports from the
// wider game.
package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/concord/internal/realm"
)

// Kind names an outbound event.
type Kind string

const (
	KindRelationChanged  Kind = "relation_changed"
	KindTreatySigned     Kind = "treaty_signed"
	KindTreatyBroken     Kind = "treaty_broken"
	KindTreatyExpired    Kind = "treaty_expired"
	KindAllianceFormed   Kind = "alliance_formed"
	KindWarDeclared      Kind = "war_declared"
	KindPeaceSigned      Kind = "peace_signed"
	KindMarriageArranged Kind = "marriage_arranged"
	KindMilestone        Kind = "milestone_achieved"
	KindGrudge           Kind = "grudge_formed"
	KindFriendship       Kind = "friendship_formed"
	KindTrustRebuilt     Kind = "trust_rebuilt"
	KindConflictResolved Kind = "conflict_resolved"
	KindProposalRefused  Kind = "proposal_refused"
	KindSecretRevealed   Kind = "secret_revealed"
	KindAction           Kind = "action"
)

// Event is a notable occurrence, kept in the simulation's ring and published on the bus.
type Event struct {
	ID          string   `json:"id" db:"id"`
	Month       int      `json:"month" db:"month"`
	Kind        Kind     `json:"kind" db:"kind"`
	Actor       realm.ID `json:"actor,omitempty" db:"actor"`
	Target      realm.ID `json:"target,omitempty" db:"target"`
	Description string   `json:"description" db:"description"`
	Category    string   `json:"category" db:"category"` // diplomacy, war, memory, trust, influence
}

// NewEvent stamps an event with a fresh id.
func NewEvent(month int, kind Kind, actor, target realm.ID, category, description string) Event {
	return Event{
		ID:          uuid.NewString(),
		Month:       month,
		Kind:        kind,
		Actor:       actor,
		Target:      target,
		Description: description,
		Category:    category,
	}
}

// InboundKind names a report the wider game sends in.
type InboundKind string

const (
	InboundWarDeclared    InboundKind = "war_declared"
	InboundTreatySigned   InboundKind = "treaty_signed"
	InboundTreatyViolated InboundKind = "treaty_violated"
)

// Inbound is something that happened outside the diplomacy engine that realms should
// remember.
type Inbound struct {
	Kind        InboundKind `json:"kind"`
	Actor       realm.ID    `json:"actor"`
	Target      realm.ID    `json:"target"`
	Description string      `json:"description,omitempty"`
}

// Bus fans outbound events out to subscribers and queues inbound reports for the next tick.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]func(Event)
	nextSub int
	inbound []Inbound
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn for every published event. Handlers run on the publishing
// goroutine and must not block. The returned func removes the subscription.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers e to every subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(e)
	}
}

// Submit queues an inbound report.
func (b *Bus) Submit(in Inbound) {
	b.mu.Lock()
	b.inbound = append(b.inbound, in)
	b.mu.Unlock()
}

// Drain returns and clears the queued inbound reports in arrival order.
func (b *Bus) Drain() []Inbound {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.inbound
	b.inbound = nil
	return out
}
