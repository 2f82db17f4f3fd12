package memory

import "github.com/talgya/concord/internal/realm"

// MilestoneType is a one-time relationship milestone.
type MilestoneType uint8

const (
	FirstContact MilestoneType = iota
	FirstTrade
	FirstAlliance
	FirstWar
	FirstMarriage
	CenturyOfPeace
	CenturyOfWar
	EternalAlliance
	BitterRivals
	TradePartnership
	DynasticUnion
)

// milestoneDef is the description and permanent reward of a milestone.
type milestoneDef struct {
	name        string
	description string
	opinion     int
	trust       float64
}

var milestoneDefs = [...]milestoneDef{
	FirstContact:     {"first_contact", "First diplomatic contact established", 0, 0},
	FirstTrade:       {"first_trade", "First trade agreement", 5, 0.02},
	FirstAlliance:    {"first_alliance", "First alliance", 10, 0.05},
	FirstWar:         {"first_war", "First war between the realms", -10, -0.05},
	FirstMarriage:    {"first_marriage", "First royal marriage", 10, 0.05},
	CenturyOfPeace:   {"century_of_peace", "A century of peace", 25, 0.15},
	CenturyOfWar:     {"century_of_war", "A century of war", -30, -0.20},
	EternalAlliance:  {"eternal_alliance", "Century-long alliance", 40, 0.25},
	BitterRivals:     {"bitter_rivals", "A hundred years spent at war", -25, -0.15},
	TradePartnership: {"trade_partnership", "Fifty years of continuous trade", 15, 0.08},
	DynasticUnion:    {"dynastic_union", "Dynasties united through marriage", 30, 0.20},
}

func (m MilestoneType) String() string {
	if int(m) < len(milestoneDefs) {
		return milestoneDefs[m].name
	}
	return "unknown"
}

// Milestone is an earned milestone.
type Milestone struct {
	Type        MilestoneType `json:"type"`
	Year        int           `json:"year"`
	Description string        `json:"description"`
	Opinion     int           `json:"opinion"`
	Trust       float64       `json:"trust"`
	Active      bool          `json:"active"`
}

// NewMilestone returns the milestone with its stock reward.
func NewMilestone(t MilestoneType, year int) Milestone {
	d := milestoneDefs[t]
	return Milestone{Type: t, Year: year, Description: d.description, Opinion: d.opinion, Trust: d.trust, Active: true}
}

// PairStatus is what the yearly milestone check reads about a relationship.
type PairStatus struct {
	AtWar     bool
	Allied    bool
	Trading   bool
	Marriages int
}

// MilestoneTracker tracks one realm's milestones with another.
type MilestoneTracker struct {
	Self     realm.ID    `json:"self"`
	Other    realm.ID    `json:"other"`
	Achieved []Milestone `json:"achieved,omitempty"`

	PeaceYears    int `json:"peace_years"`
	WarYears      int `json:"war_years"`
	TotalWarYears int `json:"total_war_years"`
	AllianceYears int `json:"alliance_years"`
	TradeYears    int `json:"trade_years"`
	Marriages     int `json:"marriages"`
}

// NewMilestoneTracker returns an empty tracker.
func NewMilestoneTracker(self, other realm.ID) *MilestoneTracker {
	return &MilestoneTracker{Self: self, Other: other}
}

// Has reports whether an active milestone of type t was earned.
func (mt *MilestoneTracker) Has(t MilestoneType) bool {
	for _, m := range mt.Achieved {
		if m.Type == t && m.Active {
			return true
		}
	}
	return false
}

// OpinionModifier sums the opinion rewards of active milestones.
func (mt *MilestoneTracker) OpinionModifier() int {
	total := 0
	for _, m := range mt.Achieved {
		if m.Active {
			total += m.Opinion
		}
	}
	return total
}

// TrustModifier sums the trust rewards of active milestones.
func (mt *MilestoneTracker) TrustModifier() float64 {
	total := 0.0
	for _, m := range mt.Achieved {
		if m.Active {
			total += m.Trust
		}
	}
	return total
}

// YearlyUpdate advances the year counters from the current status and awards any newly
// reached milestones. Each milestone is awarded at most once.
func (mt *MilestoneTracker) YearlyUpdate(st PairStatus, year int) []Milestone {
	if st.AtWar {
		mt.WarYears++
		mt.TotalWarYears++
		mt.PeaceYears = 0
	} else {
		mt.PeaceYears++
		mt.WarYears = 0
	}
	if st.Allied {
		mt.AllianceYears++
	} else {
		mt.AllianceYears = 0
	}
	if st.Trading {
		mt.TradeYears++
	} else {
		mt.TradeYears = 0
	}
	mt.Marriages = max(mt.Marriages, st.Marriages)

	checks := []struct {
		t  MilestoneType
		ok bool
	}{
		{FirstContact, true},
		{FirstTrade, st.Trading},
		{FirstAlliance, st.Allied},
		{FirstWar, st.AtWar},
		{FirstMarriage, mt.Marriages > 0},
		{CenturyOfPeace, mt.PeaceYears >= 100},
		{CenturyOfWar, mt.WarYears >= 100},
		{EternalAlliance, mt.AllianceYears >= 100},
		{BitterRivals, mt.TotalWarYears >= 100},
		{TradePartnership, mt.TradeYears >= 50},
		{DynasticUnion, mt.Marriages >= 5},
	}

	var awarded []Milestone
	for _, c := range checks {
		if c.ok && !mt.Has(c.t) {
			m := NewMilestone(c.t, year)
			mt.Achieved = append(mt.Achieved, m)
			awarded = append(awarded, m)
		}
	}
	return awarded
}
