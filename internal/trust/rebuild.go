package trust

import "github.com/talgya/concord/internal/realm"

// Requirement is one step of a rebuilding plan.
type Requirement struct {
	Name      string  `json:"name"`
	Gain      float64 `json:"gain"`
	Completed bool    `json:"completed"`
}

const (
	ReqPeace    = "maintain peace for two years"
	ReqTreaties = "honor existing treaties"
	ReqAid      = "provide economic aid"
)

// Path is an explicit plan for two realms to recover trust after a breach.
type Path struct {
	Pair          realm.Pair    `json:"pair"`
	Initiator     realm.ID      `json:"initiator"`
	StartingTrust float64       `json:"starting_trust"`
	TargetTrust   float64       `json:"target_trust"`
	Progress      float64       `json:"progress"`
	Requirements  []Requirement `json:"requirements"`

	PeaceMonths     int     `json:"peace_months"`
	PeaceRequired   int     `json:"peace_required"`
	GiftsSent       int     `json:"gifts_sent"`
	GiftsNeeded     int     `json:"gifts_needed"`
	NaturalRecovery float64 `json:"natural_recovery"`
}

// NewPath returns the stock plan: two years of peace, honored treaties, and economic aid.
func NewPath(initiator, other realm.ID, starting, target float64) *Path {
	return &Path{
		Pair:          realm.MakePair(initiator, other),
		Initiator:     initiator,
		StartingTrust: starting,
		TargetTrust:   target,
		Requirements: []Requirement{
			{Name: ReqPeace, Gain: 0.15},
			{Name: ReqTreaties, Gain: 0.20},
			{Name: ReqAid, Gain: 0.10},
		},
		PeaceRequired:   24,
		GiftsNeeded:     3,
		NaturalRecovery: 0.01,
	}
}

// Complete marks a requirement done and credits its gain.
func (p *Path) Complete(name string) bool {
	for i := range p.Requirements {
		r := &p.Requirements[i]
		if r.Name == name && !r.Completed {
			r.Completed = true
			p.Progress = clamp(p.Progress+r.Gain, 0, 1)
			return true
		}
	}
	return false
}

// Advance counts months of peace and applies natural recovery once enough peace has
// held. It returns the natural recovery earned.
func (p *Path) Advance(months int, atPeace bool) float64 {
	if months <= 0 {
		return 0
	}
	if atPeace {
		p.PeaceMonths += months
	} else {
		p.PeaceMonths = 0
	}
	if p.PeaceMonths >= p.PeaceRequired {
		p.Complete(ReqPeace)
		gain := p.NaturalRecovery * float64(months)
		p.Progress = clamp(p.Progress+gain, 0, 1)
		return gain
	}
	return 0
}

// RecordGift counts a gift toward the aid requirement.
func (p *Path) RecordGift() {
	p.GiftsSent++
	if p.GiftsSent >= p.GiftsNeeded {
		p.Complete(ReqAid)
	}
}

// IsComplete reports whether every requirement is met and progress is full.
func (p *Path) IsComplete() bool {
	for _, r := range p.Requirements {
		if !r.Completed {
			return false
		}
	}
	return p.Progress >= 1.0
}
