// Campaign seasons — armies rarely march in winter.
package engine

// Season of the year, three months each starting with Thawmoon.
type Season uint8

const (
	SeasonSpring Season = iota
	SeasonSummer
	SeasonAutumn
	SeasonWinter
)

// SeasonOf returns the season a month falls in. Month 0 counts as winter.
func SeasonOf(month int) Season {
	if month <= 0 {
		return SeasonWinter
	}
	return Season((month - 1) % MonthsPerYear / 3)
}

// SeasonName returns a human-readable season name.
func SeasonName(s Season) string {
	switch s {
	case SeasonSpring:
		return "Spring"
	case SeasonSummer:
		return "Summer"
	case SeasonAutumn:
		return "Autumn"
	case SeasonWinter:
		return "Winter"
	default:
		return "Unknown"
	}
}

// campaignFactor is the chance that a realm bent on war actually declares it this season.
func campaignFactor(s Season) float64 {
	switch s {
	case SeasonWinter:
		return 0.25
	case SeasonAutumn:
		return 0.75
	default:
		return 1.0
	}
}
