package diplomacy

// Tuning holds the configurable thresholds of the relationship store and handlers.
type Tuning struct {
	// Relation category thresholds on opinion, applied unless allied or at war.
	FriendlyAt   int `yaml:"friendly_at" json:"friendly_at"`
	NeutralAt    int `yaml:"neutral_at" json:"neutral_at"`
	UnfriendlyAt int `yaml:"unfriendly_at" json:"unfriendly_at"`

	ComplianceFloor      float64 `yaml:"compliance_floor" json:"compliance_floor"`
	RecentActionLimit    int     `yaml:"recent_action_limit" json:"recent_action_limit"`
	ProposalExpiryMonths int     `yaml:"proposal_expiry_months" json:"proposal_expiry_months"`
	MinAllianceValue     float64 `yaml:"min_alliance_value" json:"min_alliance_value"`
	MarriageBonus        int     `yaml:"marriage_bonus" json:"marriage_bonus"`

	TreatyYears    TreatyYears    `yaml:"treaty_years" json:"treaty_years"`
	CooldownMonths CooldownMonths `yaml:"cooldown_months" json:"cooldown_months"`
}

// TreatyYears is the default lifetime of each treaty type.
type TreatyYears struct {
	Alliance      int `yaml:"alliance" json:"alliance"`
	Trade         int `yaml:"trade" json:"trade"`
	NonAggression int `yaml:"non_aggression" json:"non_aggression"`
	Marriage      int `yaml:"marriage" json:"marriage"`
	Other         int `yaml:"other" json:"other"`
}

// For returns the configured duration of t.
func (y TreatyYears) For(t TreatyType) int {
	switch t {
	case TreatyAlliance, TreatyDefensiveLeague:
		return y.Alliance
	case TreatyTrade:
		return y.Trade
	case TreatyNonAggression:
		return y.NonAggression
	case TreatyMarriagePact:
		return y.Marriage
	default:
		return y.Other
	}
}

// CooldownMonths is how long a move is blocked toward the same realm after use.
type CooldownMonths struct {
	War      int `yaml:"war" json:"war"`
	Alliance int `yaml:"alliance" json:"alliance"`
	Trade    int `yaml:"trade" json:"trade"`
	Marriage int `yaml:"marriage" json:"marriage"`
	Gift     int `yaml:"gift" json:"gift"`
	Embassy  int `yaml:"embassy" json:"embassy"`
	Insult   int `yaml:"insult" json:"insult"`
}

// For returns the cooldown of move in months.
func (c CooldownMonths) For(m Move) int {
	switch m {
	case MoveDeclareWar:
		return c.War
	case MoveProposeAlliance, MoveBreakAlliance, MoveSecretPact:
		return c.Alliance
	case MoveProposeTrade, MoveProposeNonAggression:
		return c.Trade
	case MoveArrangeMarriage:
		return c.Marriage
	case MoveSendGift:
		return c.Gift
	case MoveEstablishEmbassy, MoveRecallEmbassy:
		return c.Embassy
	case MoveInsult:
		return c.Insult
	default:
		return 0
	}
}

// DefaultTuning returns the stock relationship tuning.
func DefaultTuning() Tuning {
	return Tuning{
		FriendlyAt:           40,
		NeutralAt:            -25,
		UnfriendlyAt:         -60,
		ComplianceFloor:      0.5,
		RecentActionLimit:    10,
		ProposalExpiryMonths: 1,
		MinAllianceValue:     0.4,
		MarriageBonus:        20,
		TreatyYears: TreatyYears{
			Alliance:      20,
			Trade:         5,
			NonAggression: 10,
			Marriage:      50,
			Other:         10,
		},
		CooldownMonths: CooldownMonths{
			War:      12,
			Alliance: 6,
			Trade:    3,
			Marriage: 6,
			Gift:     1,
			Embassy:  2,
			Insult:   1,
		},
	}
}

// Categorize maps an opinion onto a relation category.
func (t Tuning) Categorize(opinion int) Relation {
	switch {
	case opinion >= t.FriendlyAt:
		return RelationFriendly
	case opinion >= t.NeutralAt:
		return RelationNeutral
	case opinion >= t.UnfriendlyAt:
		return RelationUnfriendly
	default:
		return RelationHostile
	}
}
