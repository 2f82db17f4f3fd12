// Per-side relationship state — what one realm thinks of another.
package diplomacy

import (
	"fmt"
	"math"

	"github.com/talgya/concord/internal/realm"
)

// State is one realm's view of its relationship with Other. Symmetric fields such as
// trust and treaties live in the shared PairRecord instead.
type State struct {
	Other       realm.ID `json:"other"`
	Relation    Relation `json:"relation"`
	Opinion     int      `json:"opinion"`
	BaseOpinion int      `json:"base_opinion"`

	BorderTension   bool `json:"border_tension"`
	BorderIncidents int  `json:"border_incidents"`
	Embassy         bool `json:"embassy,omitempty"`

	RecentActions []string          `json:"recent_actions,omitempty"`
	Modifiers     []OpinionModifier `json:"modifiers,omitempty"`
	History       OpinionHistory    `json:"history"`
	Deception     *Deception        `json:"deception,omitempty"`

	// Cooldowns maps a move to the month it becomes available again.
	Cooldowns   map[Move]int `json:"cooldowns,omitempty"`
	LastContact int          `json:"last_contact"`
}

// NewState returns the default neutral relationship toward other.
func NewState(other realm.ID) *State {
	return &State{
		Other:     other,
		Relation:  RelationNeutral,
		Cooldowns: make(map[Move]int),
	}
}

// logAction appends a line to the recent-action ring, dropping the oldest beyond limit.
func (s *State) logAction(reason string, change int, limit int) {
	sign := ""
	if change > 0 {
		sign = "+"
	}
	s.RecentActions = append(s.RecentActions, fmt.Sprintf("%s (%s%d)", reason, sign, change))
	if limit > 0 && len(s.RecentActions) > limit {
		s.RecentActions = s.RecentActions[len(s.RecentActions)-limit:]
	}
}

// OnCooldown reports whether move is still blocked at month now.
func (s *State) OnCooldown(move Move, now int) bool {
	return s.RemainingCooldown(move, now) > 0
}

// RemainingCooldown returns the months left before move is available.
func (s *State) RemainingCooldown(move Move, now int) int {
	until, ok := s.Cooldowns[move]
	if !ok || until <= now {
		return 0
	}
	return until - now
}

func (s *State) setCooldown(move Move, now, months int) {
	if months <= 0 {
		return
	}
	if s.Cooldowns == nil {
		s.Cooldowns = make(map[Move]int)
	}
	s.Cooldowns[move] = now + months
}

// OpinionModifier is a named, decaying contribution to opinion. Applied tracks how much
// of it is currently folded into State.Opinion.
type OpinionModifier struct {
	Source       string  `json:"source"`
	Value        int     `json:"value"`
	Applied      int     `json:"applied"`
	Permanent    bool    `json:"permanent"`
	CreatedMonth int     `json:"created_month"`
	YearlyDecay  float64 `json:"yearly_decay"`
}

// CurrentValue is the modifier's contribution at month now.
func (m OpinionModifier) CurrentValue(now int) int {
	if m.Permanent || m.YearlyDecay <= 0 {
		return m.Value
	}
	years := float64(now-m.CreatedMonth) / 12
	if years <= 0 {
		return m.Value
	}
	return int(float64(m.Value) * math.Pow(1-m.YearlyDecay, years))
}

// OpinionHistory keeps monthly and yearly rollups of opinion.
type OpinionHistory struct {
	Monthly []int   `json:"monthly,omitempty"`
	Yearly  []int   `json:"yearly,omitempty"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
	Sum     int64   `json:"sum"`
	Samples int     `json:"samples"`
	Average float64 `json:"average"`
}

const (
	monthlySamples = 12
	yearlySamples  = 100
)

// Record adds a monthly sample. At the end of each year the monthly average is rolled
// into the yearly series.
func (h *OpinionHistory) Record(month, opinion int) {
	if h.Samples == 0 {
		h.Min, h.Max = opinion, opinion
	}
	h.Min = min(h.Min, opinion)
	h.Max = max(h.Max, opinion)
	h.Sum += int64(opinion)
	h.Samples++
	h.Average = float64(h.Sum) / float64(h.Samples)

	h.Monthly = append(h.Monthly, opinion)
	if len(h.Monthly) > monthlySamples {
		h.Monthly = h.Monthly[len(h.Monthly)-monthlySamples:]
	}

	if month%12 == 11 {
		total := 0
		for _, v := range h.Monthly {
			total += v
		}
		h.Yearly = append(h.Yearly, total/len(h.Monthly))
		if len(h.Yearly) > yearlySamples {
			h.Yearly = h.Yearly[len(h.Yearly)-yearlySamples:]
		}
	}
}

// Deception is a false face shown to observers.
type Deception struct {
	Displayed int     `json:"displayed"`
	Quality   float64 `json:"quality"` // 0–1, how convincing the act is
}

// SetDisplayedOpinion starts hiding the true opinion behind a displayed one.
func (s *State) SetDisplayedOpinion(displayed int, quality float64) {
	s.Deception = &Deception{Displayed: ClampOpinion(displayed), Quality: clamp01(quality)}
}

// StopHidingOpinion drops the act.
func (s *State) StopHidingOpinion() {
	s.Deception = nil
}

// IsOpinionHidden reports whether a displayed opinion is in effect.
func (s *State) IsOpinionHidden() bool {
	return s.Deception != nil
}

// PerceivedOpinion is the opinion an observer with the given intelligence (0–1) reads.
// Observers no sharper than the deception quality see the displayed value; sharper ones
// see proportionally closer to the truth.
func (s *State) PerceivedOpinion(intelligence float64) int {
	if s.Deception == nil {
		return s.Opinion
	}
	q := s.Deception.Quality
	if intelligence <= q || q >= 1 {
		return s.Deception.Displayed
	}
	insight := (intelligence - q) / (1 - q)
	diff := float64(s.Opinion - s.Deception.Displayed)
	return s.Deception.Displayed + int(math.Round(diff*insight))
}
