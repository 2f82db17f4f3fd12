// Package trust models how far two realms rely on each other. Trust is built from five
// weighted factors, held between bounds that move with the pair's history, and stored
// once per unordered pair.
package trust

import "math"

// FactorType names one dimension of trust.
type FactorType uint8

const (
	TreatyCompliance FactorType = iota
	MilitaryReliability
	EconomicReliability
	PersonalRelationship
	HistoricalBehavior
	factorCount
)

var factorNames = [...]string{
	"treaty_compliance", "military_reliability", "economic_reliability",
	"personal_relationship", "historical_behavior",
}

func (f FactorType) String() string {
	if int(f) < len(factorNames) {
		return factorNames[f]
	}
	return "unknown"
}

var factorWeights = [factorCount]float64{
	TreatyCompliance:     1.5,
	MilitaryReliability:  1.3,
	EconomicReliability:  1.0,
	PersonalRelationship: 0.8,
	HistoricalBehavior:   1.2,
}

// historyWindow is two years of monthly samples.
const historyWindow = 24

// Factor is one weighted trust dimension.
type Factor struct {
	Type     FactorType `json:"type"`
	Value    float64    `json:"value"`
	Weight   float64    `json:"weight"`
	Trend    float64    `json:"trend"`
	History  []float64  `json:"history,omitempty"`
	Positive int        `json:"positive"`
	Negative int        `json:"negative"`
}

func (f *Factor) modify(delta float64) {
	f.Value = clamp(f.Value+delta, 0, 1)
	switch {
	case delta > 0:
		f.Positive++
	case delta < 0:
		f.Negative++
	}
	f.History = append(f.History, f.Value)
	if len(f.History) > historyWindow {
		f.History = f.History[len(f.History)-historyWindow:]
	}
	f.Trend = slope(f.History)
}

// slope is the least-squares slope of ys against their index.
func slope(ys []float64) float64 {
	n := float64(len(ys))
	if len(ys) < 2 {
		return 0
	}
	var sx, sy, sxy, sxx float64
	for i, y := range ys {
		x := float64(i)
		sx += x
		sy += y
		sxy += x * y
		sxx += x * x
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0
	}
	return (n*sxy - sx*sy) / den
}

// Data is the trust between one pair of realms.
type Data struct {
	Factors    [factorCount]Factor `json:"factors"`
	Overall    float64             `json:"overall"`
	Previous   float64             `json:"previous"`
	ChangeRate float64             `json:"change_rate"`
	Min        float64             `json:"min"`
	Max        float64             `json:"max"`
	Volatility float64             `json:"volatility"`
	Fragile    bool                `json:"fragile,omitempty"`
	Solid      bool                `json:"solid,omitempty"`
}

// NewData returns neutral trust: every factor at 0.5, full bounds.
func NewData() *Data {
	d := &Data{Overall: 0.5, Previous: 0.5, Max: 1, Volatility: 0.1}
	for i := range d.Factors {
		d.Factors[i] = Factor{Type: FactorType(i), Value: 0.5, Weight: factorWeights[i]}
	}
	d.recalculate()
	return d
}

// Factor returns a copy of one factor.
func (d *Data) Factor(t FactorType) Factor {
	return d.Factors[t]
}

func (d *Data) recalculate() {
	d.Previous = d.Overall
	var sum, weights float64
	for _, f := range d.Factors {
		sum += f.Value * f.Weight
		weights += f.Weight
	}
	overall := 0.5
	if weights > 0 {
		overall = sum / weights
	}
	d.Overall = clamp(overall, d.Min, d.Max)
	d.ChangeRate = d.Overall - d.Previous
	d.assessStability()
}

func (d *Data) assessStability() {
	d.Volatility = 0.9*d.Volatility + 0.1*math.Abs(d.ChangeRate)
	d.Fragile = d.Volatility > 0.15 && d.Overall < 0.4
	d.Solid = d.Volatility < 0.05 && d.Overall > 0.7
}

// Modify shifts one factor, recomputes the overall score and updates the bounds.
func (d *Data) Modify(t FactorType, delta float64) {
	if t >= factorCount {
		return
	}
	d.Factors[t].modify(delta)
	d.recalculate()
	d.UpdateBounds()
}

// UpdateBounds tightens the ceiling after a collapse and raises the floor after a
// sustained climb. Bounds only ever narrow.
func (d *Data) UpdateBounds() {
	if d.Overall < 0.2 && d.ChangeRate < -0.1 {
		d.Max = min(d.Max, 0.7)
	}
	if d.Overall > 0.8 && d.ChangeRate > 0 {
		d.Min = max(d.Min, 0.3)
	}
	if d.Min > d.Max {
		d.Min = d.Max
	}
	d.Overall = clamp(d.Overall, d.Min, d.Max)
}

// SetFloor sets the lowest trust the pair can fall to.
func (d *Data) SetFloor(floor float64) {
	d.Min = min(clamp(floor, 0, 1), d.Max)
	d.Overall = max(d.Overall, d.Min)
}

// SetCeiling sets the highest trust the pair can reach.
func (d *Data) SetCeiling(ceiling float64) {
	d.Max = clamp(ceiling, 0, 1)
	d.Min = min(d.Min, d.Max)
	d.Overall = min(d.Overall, d.Max)
}

// Drift pulls every factor 1% per month toward neutral.
func (d *Data) Drift(months int) {
	if months <= 0 {
		return
	}
	keep := math.Pow(0.99, float64(months))
	for i := range d.Factors {
		f := &d.Factors[i]
		f.Value = 0.5 + (f.Value-0.5)*keep
	}
	d.recalculate()
}

// Clone returns a deep copy.
func (d *Data) Clone() *Data {
	c := *d
	for i := range c.Factors {
		c.Factors[i].History = append([]float64(nil), d.Factors[i].History...)
	}
	return &c
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
