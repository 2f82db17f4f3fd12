package memory

import (
	"slices"

	"github.com/talgya/concord/internal/realm"
)

// DefaultMaxEvents is the hard cap on events kept per ledger.
const DefaultMaxEvents = 200

// Ledger is one realm's chronological memory of another.
type Ledger struct {
	Self  realm.ID `json:"self"`
	Other realm.ID `json:"other"`

	Events    []Event `json:"events"`
	Permanent []Event `json:"permanent,omitempty"`

	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`

	Betrayals      int `json:"betrayals"`
	WarsTogether   int `json:"wars_together"`
	WarsAgainst    int `json:"wars_against"`
	TreatiesSigned int `json:"treaties_signed"`
	TreatiesBroken int `json:"treaties_broken"`

	// Grudge and friendship modifiers are granted once.
	GrudgeApplied     bool `json:"grudge_applied,omitempty"`
	FriendshipApplied bool `json:"friendship_applied,omitempty"`

	byCategory map[Category][]int
}

// NewLedger returns an empty ledger.
func NewLedger(self, other realm.ID) *Ledger {
	return &Ledger{Self: self, Other: other, byCategory: make(map[Category][]int)}
}

// Record appends an event, updates counters, and prunes past maxEvents.
func (l *Ledger) Record(e Event, maxEvents int) {
	l.Events = append(l.Events, e)
	if l.byCategory == nil {
		l.reindex()
	} else {
		l.byCategory[e.Category] = append(l.byCategory[e.Category], len(l.Events)-1)
	}
	if e.Permanent {
		l.Permanent = append(l.Permanent, e)
	}

	switch {
	case e.OpinionImpact > 0:
		l.Positive++
	case e.OpinionImpact < 0:
		l.Negative++
	default:
		l.Neutral++
	}
	if e.Category == CategoryBetrayal {
		l.Betrayals++
	}
	switch e.Type {
	case BattleWonTogether, MilitaryAidProvided:
		l.WarsTogether++
	case WarDeclared, BattleLostTogether:
		l.WarsAgainst++
	case TreatySigned, AllianceFormed:
		l.TreatiesSigned++
	case TreatyViolated, AllianceBroken:
		l.TreatiesBroken++
	}

	if maxEvents > 0 && len(l.Events) > maxEvents {
		l.Prune(maxEvents)
	}
}

// ApplyMonthlyDecay ages every non-permanent event by months. Zero months is a no-op.
func (l *Ledger) ApplyMonthlyDecay(months int) {
	if months <= 0 {
		return
	}
	for i := range l.Events {
		l.Events[i].ApplyDecay(months)
	}
}

// Prune drops forgotten events, then evicts the oldest non-permanent events until the
// ledger fits within maxEvents. Permanent events are never evicted.
func (l *Ledger) Prune(maxEvents int) {
	l.Events = slices.DeleteFunc(l.Events, func(e Event) bool { return e.Forgotten() })
	for maxEvents > 0 && len(l.Events) > maxEvents {
		i := slices.IndexFunc(l.Events, func(e Event) bool { return !e.Permanent })
		if i < 0 {
			break
		}
		l.Events = slices.Delete(l.Events, i, i+1)
	}
	l.reindex()
}

func (l *Ledger) reindex() {
	l.byCategory = make(map[Category][]int)
	for i, e := range l.Events {
		l.byCategory[e.Category] = append(l.byCategory[e.Category], i)
	}
}

// ByCategory returns the events of one category, oldest first.
func (l *Ledger) ByCategory(c Category) []Event {
	if l.byCategory == nil {
		l.reindex()
	}
	idx := l.byCategory[c]
	out := make([]Event, 0, len(idx))
	for _, i := range idx {
		out = append(out, l.Events[i])
	}
	return out
}

// ByType returns the events of one type, oldest first.
func (l *Ledger) ByType(t EventType) []Event {
	var out []Event
	for _, e := range l.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Recent returns events from the last months months before now.
func (l *Ledger) Recent(now, months int) []Event {
	var out []Event
	for _, e := range l.Events {
		if e.Month >= now-months {
			out = append(out, e)
		}
	}
	return out
}

// Major returns events at or above min severity.
func (l *Ledger) Major(min Severity) []Event {
	var out []Event
	for _, e := range l.Events {
		if e.Severity >= min {
			out = append(out, e)
		}
	}
	return out
}

// OpinionImpact sums the current opinion contribution of remembered events.
func (l *Ledger) OpinionImpact() int {
	total := 0
	for i := range l.Events {
		total += l.Events[i].CurrentOpinion()
	}
	return total
}

// TrustImpact sums the current trust contribution, clamped to [-1,1].
func (l *Ledger) TrustImpact() float64 {
	total := 0.0
	for i := range l.Events {
		total += l.Events[i].CurrentTrust()
	}
	return max(-1, min(1, total))
}

// HasGrudge: three betrayals, five major grievances, or one permanent wound.
func (l *Ledger) HasGrudge() bool {
	if l.Betrayals >= 3 {
		return true
	}
	major := 0
	for _, e := range l.Events {
		if e.Permanent && e.OpinionImpact < -50 {
			return true
		}
		if e.Severity >= SeverityMajor && e.OpinionImpact < -30 {
			major++
		}
	}
	return major >= 5
}

// HasDeepFriendship: ten positive events spanning twenty years, or one permanent kindness.
func (l *Ledger) HasDeepFriendship() bool {
	if l.Positive >= 10 && len(l.Events) > 0 {
		span := l.Events[len(l.Events)-1].Month - l.Events[0].Month
		if span >= 20*12 {
			return true
		}
	}
	for _, e := range l.Events {
		if e.Permanent && e.OpinionImpact > 50 {
			return true
		}
	}
	return false
}

// IsHistoricalRival reports a history of fighting each other and never together.
func (l *Ledger) IsHistoricalRival() bool {
	return l.WarsAgainst >= 3 && l.WarsTogether == 0
}

// IsHistoricalAlly reports a history of fighting together and never against.
func (l *Ledger) IsHistoricalAlly() bool {
	return l.WarsTogether >= 3 && l.WarsAgainst == 0
}
