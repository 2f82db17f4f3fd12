package memory

import (
	"fmt"
	"maps"
	"sort"
)

// Impact is the default weight of one event type.
type Impact struct {
	Severity  Severity `yaml:"severity" json:"severity"`
	Opinion   int      `yaml:"opinion" json:"opinion"`
	Trust     float64  `yaml:"trust" json:"trust"`
	Prestige  float64  `yaml:"prestige" json:"prestige"`
	DecayRate float64  `yaml:"decay_rate" json:"decay_rate"`
	Permanent bool     `yaml:"permanent" json:"permanent"`
}

// fallbackImpact applies to any type missing from the table.
var fallbackImpact = Impact{Severity: SeverityMinor, DecayRate: 0.10}

// Impacts maps event types to their default weights.
type Impacts map[EventType]Impact

// For returns the impact for t, or the minor fallback.
func (im Impacts) For(t EventType) Impact {
	if v, ok := im[t]; ok {
		return v
	}
	return fallbackImpact
}

// DefaultImpacts returns the stock impact table.
func DefaultImpacts() Impacts {
	return Impacts{
		BattleWonTogether:   {SeverityMajor, 30, 0.15, 0, 0.03, false},
		BattleLostTogether:  {SeverityModerate, 10, 0.05, 0, 0.05, false},
		MilitaryAidProvided: {SeverityModerate, 20, 0.10, 0, 0.04, false},
		WarDeclared:         {SeverityCritical, -75, -0.50, 0, 0.02, true},
		MilitaryAidRefused:  {SeverityMajor, -40, -0.25, 0, 0.03, false},

		TradeAgreementSigned: {SeverityModerate, 15, 0.08, 0, 0.05, false},
		TradeAgreementBroken: {SeverityModerate, -25, -0.15, 0, 0.04, false},
		GiftSent:             {SeverityMinor, 10, 0.05, 0, 0.08, false},
		LoanGranted:          {SeverityModerate, 25, 0.12, 0, 0.04, false},
		LoanDefaulted:        {SeverityMajor, -45, -0.35, 0, 0.02, false},
		TradeEmbargoImposed:  {SeverityModerate, -30, -0.15, 0, 0.04, false},

		AllianceFormed:      {SeverityMajor, 40, 0.20, 0, 0.02, false},
		AllianceBroken:      {SeverityCritical, -80, -0.60, -10, 0.01, true},
		TreatySigned:        {SeverityMinor, 10, 0.05, 0, 0.05, false},
		TreatyViolated:      {SeverityMajor, -50, -0.40, -6, 0.02, false},
		TreatyHonored:       {SeverityMinor, 8, 0.06, 0, 0.06, false},
		EmbassyEstablished:  {SeverityMinor, 8, 0.03, 0, 0.06, false},
		EmbassyClosed:       {SeverityMinor, -10, -0.03, 0, 0.06, false},
		DiplomaticInsult:    {SeverityModerate, -25, -0.10, 0, 0.05, false},
		MediationSuccessful: {SeverityModerate, 22, 0.10, 5, 0.04, false},
		PeaceSigned:         {SeverityModerate, 15, 0.05, 0, 0.04, false},
		InfluenceStandoff:   {SeverityMinor, -8, -0.03, 0, 0.08, false},
		InfluenceWithdrawal: {SeverityMinor, 5, 0.02, 0, 0.08, false},

		RulerFriendshipFormed: {SeverityMajor, 35, 0.25, 0, 0.03, false},
		RulerSavedLife:        {SeverityCritical, 90, 0.70, 0, 0.01, true},
		PersonalBetrayal:      {SeverityCritical, -85, -0.65, 0, 0.01, true},

		MarriageArranged:     {SeverityMajor, 30, 0.18, 0, 0.02, false},
		HeirBornFromMarriage: {SeverityModerate, 20, 0.12, 0, 0.03, false},

		TerritoryCeded:  {SeverityMajor, 45, 0.20, 0, 0.03, false},
		TerritorySeized: {SeverityCritical, -70, -0.50, 0, 0.01, true},

		StabbedInBack:          {SeverityCritical, -95, -0.80, -15, 0.005, true},
		AllyAbandoned:          {SeverityCritical, -88, -0.75, -10, 0.008, true},
		AssassinationAttempted: {SeverityCritical, -100, -0.90, 0, 0.003, true},
	}
}

// WithOverrides returns a copy of the table with named entries replaced. Unknown names
// are reported as an error listing every bad key.
func (im Impacts) WithOverrides(overrides map[string]Impact) (Impacts, error) {
	out := maps.Clone(im)
	var bad []string
	for name, imp := range overrides {
		t, ok := ParseEventType(name)
		if !ok {
			bad = append(bad, name)
			continue
		}
		if imp.DecayRate < 0 || imp.DecayRate > 1 {
			bad = append(bad, name)
			continue
		}
		imp.Opinion = max(-100, min(100, imp.Opinion))
		imp.Trust = max(-1, min(1, imp.Trust))
		out[t] = imp
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return out, fmt.Errorf("unknown or invalid impact overrides: %v", bad)
	}
	return out, nil
}
