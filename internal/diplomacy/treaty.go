// Treaties, marriages and proposals.
package diplomacy

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/talgya/concord/internal/realm"
)

// Treaty is a formal agreement between two realms.
type Treaty struct {
	ID          string             `json:"id"`
	Type        TreatyType         `json:"type"`
	SignatoryA  realm.ID           `json:"signatory_a"`
	SignatoryB  realm.ID           `json:"signatory_b"`
	SignedMonth int                `json:"signed_month"`
	ExpiryMonth int                `json:"expiry_month"`
	ComplianceA float64            `json:"compliance_a"`
	ComplianceB float64            `json:"compliance_b"`
	Active      bool               `json:"active"`
	Terms       map[string]float64 `json:"terms,omitempty"`

	Secret       bool       `json:"secret,omitempty"`
	SecrecyLevel float64    `json:"secrecy_level,omitempty"`
	AwareRealms  []realm.ID `json:"aware_realms,omitempty"`

	BrokenBy realm.ID `json:"broken_by,omitempty"`
}

// NewTreaty creates an active treaty with full compliance lasting the given number of years.
func NewTreaty(t TreatyType, a, b realm.ID, signedMonth, years int) *Treaty {
	p := realm.MakePair(a, b)
	if years < 1 {
		years = 1
	}
	return &Treaty{
		ID:          fmt.Sprintf("%s_%s", p, t),
		Type:        t,
		SignatoryA:  a,
		SignatoryB:  b,
		SignedMonth: signedMonth,
		ExpiryMonth: signedMonth + years*12,
		ComplianceA: 1.0,
		ComplianceB: 1.0,
		Active:      true,
	}
}

// IsExpired reports whether the treaty has run out at month now.
func (t *Treaty) IsExpired(now int) bool {
	return now >= t.ExpiryMonth
}

// IsBroken reports whether either side's compliance has fallen below floor.
func (t *Treaty) IsBroken(floor float64) bool {
	return t.ComplianceA < floor || t.ComplianceB < floor
}

// OverallCompliance is the mean of both sides.
func (t *Treaty) OverallCompliance() float64 {
	return (t.ComplianceA + t.ComplianceB) / 2
}

// IsSignatory reports whether id signed the treaty.
func (t *Treaty) IsSignatory(id realm.ID) bool {
	return t.SignatoryA == id || t.SignatoryB == id
}

// Partner returns the other signatory.
func (t *Treaty) Partner(id realm.ID) realm.ID {
	if t.SignatoryA == id {
		return t.SignatoryB
	}
	return t.SignatoryA
}

// Compliance returns id's compliance score.
func (t *Treaty) Compliance(id realm.ID) float64 {
	if t.SignatoryA == id {
		return t.ComplianceA
	}
	return t.ComplianceB
}

// SetCompliance sets id's compliance, clamped to [0,1].
func (t *Treaty) SetCompliance(id realm.ID, v float64) {
	v = clamp01(v)
	if t.SignatoryA == id {
		t.ComplianceA = v
	} else if t.SignatoryB == id {
		t.ComplianceB = v
	}
}

// IsVisibleTo reports whether observer knows the treaty exists.
func (t *Treaty) IsVisibleTo(observer realm.ID) bool {
	if !t.Secret || t.IsSignatory(observer) {
		return true
	}
	return slices.Contains(t.AwareRealms, observer)
}

// RevealTo marks the treaty as discovered by observer.
func (t *Treaty) RevealTo(observer realm.ID) {
	if !t.IsVisibleTo(observer) {
		t.AwareRealms = append(t.AwareRealms, observer)
	}
}

// DiscoveryDifficulty is how hard the treaty is to uncover, in [0,1]. Military pacts
// leak through troop movements; quiet pacts hide well.
func (t *Treaty) DiscoveryDifficulty() float64 {
	if !t.Secret {
		return 0
	}
	factor := 1.0
	switch t.Type {
	case TreatyAlliance, TreatyMilitaryAccess, TreatyDefensiveLeague:
		factor = 0.8
	case TreatyNonAggression:
		factor = 1.2
	case TreatyMarriagePact:
		factor = 0.6
	case TreatyTrade, TreatyTribute:
		factor = 0.9
	}
	return clamp01(t.SecrecyLevel * factor)
}

func (t *Treaty) clone() Treaty {
	c := *t
	if t.Terms != nil {
		c.Terms = make(map[string]float64, len(t.Terms))
		for k, v := range t.Terms {
			c.Terms[k] = v
		}
	}
	c.AwareRealms = slices.Clone(t.AwareRealms)
	return c
}

// Marriage is a dynastic union between two realms' houses.
type Marriage struct {
	ID               string   `json:"id"`
	BrideRealm       realm.ID `json:"bride_realm"`
	GroomRealm       realm.ID `json:"groom_realm"`
	Month            int      `json:"month"`
	ProducesAlliance bool     `json:"produces_alliance"`
	DiplomaticBonus  int      `json:"diplomatic_bonus"`
}

// Proposal is a pending offer from one realm to another.
type Proposal struct {
	ID            string             `json:"id"`
	Proposer      realm.ID           `json:"proposer"`
	Target        realm.ID           `json:"target"`
	Move          Move               `json:"move"`
	Terms         map[string]float64 `json:"terms,omitempty"`
	Acceptance    float64            `json:"acceptance"`
	ProposedMonth int                `json:"proposed_month"`
	ExpiryMonth   int                `json:"expiry_month"`
}

// NewProposal creates a proposal expiring after the given number of months.
func NewProposal(from, to realm.ID, move Move, now, expiryMonths int) *Proposal {
	return &Proposal{
		ID:            uuid.NewString(),
		Proposer:      from,
		Target:        to,
		Move:          move,
		ProposedMonth: now,
		ExpiryMonth:   now + max(1, expiryMonths),
	}
}

// Expired reports whether the proposal lapsed at month now.
func (p *Proposal) Expired(now int) bool {
	return now >= p.ExpiryMonth
}
