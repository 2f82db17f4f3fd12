// Conflict resolution — each side scores its stake independently, then the pair of
// responses picks the outcome.
package influence

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/concord/internal/realm"
)

// Response is how a realm answers a contest.
type Response uint8

const (
	BackDown Response = iota
	Hold
	Escalate
)

var responseNames = [...]string{"back_down", "hold", "escalate"}

func (r Response) String() string {
	if int(r) < len(responseNames) {
		return responseNames[r]
	}
	return "unknown"
}

// ResponseFor maps a competition score onto a response.
func ResponseFor(score float64) Response {
	switch {
	case score < 30:
		return BackDown
	case score < 70:
		return Hold
	}
	return Escalate
}

// Stake is what one side weighs when deciding how hard to contest a realm.
type Stake struct {
	Own      float64 // responder's influence on the target
	Opponent float64 // opponent's influence on the target
	Power    float64 // responder's raw military strength, 0–100
	Opinion  int     // responder's opinion of the opponent

	// Strategic value of the contested realm.
	Provinces int
	Treasury  float64
}

// CompetitionScore scores a stake out of 100: relative strength up to 40, raw power
// up to 20, hostility toward the opponent up to 25, strategic value up to 15.
func CompetitionScore(st Stake) float64 {
	ratio := 1.0
	if st.Opponent > 0 {
		ratio = min(1, st.Own/st.Opponent)
	}
	power := min(20, st.Power/5)
	hostility := clamp((100-float64(st.Opinion))/200, 0, 1) * 25
	value := min(15, float64(st.Provinces)*1.5+math.Log10(max(0, st.Treasury)+1))
	return clamp(ratio*40+power+hostility+value, 0, 100)
}

// StakeFor assembles responder's stake in a conflict from live state.
func (s *System) StakeFor(c *Conflict, responder realm.ID) Stake {
	opponent := c.Challenger
	own, opp := c.PrimaryStrength, c.ChallengerStrength
	if responder == c.Challenger {
		opponent = c.Primary
		own, opp = opp, own
	}
	st := Stake{Own: own, Opponent: opp, Opinion: s.relations.Opinion(responder, opponent)}
	if snap, ok := s.world.Realm(responder); ok {
		st.Power = ArmyStrength(snap)
	}
	if snap, ok := s.world.Realm(c.Target); ok {
		st.Provinces = snap.Provinces
		st.Treasury = snap.Treasury
	}
	return st
}

// Respond is CompetitionScore mapped to a response for one side of a conflict.
func (s *System) Respond(c *Conflict, responder realm.ID) (Response, float64) {
	score := CompetitionScore(s.StakeFor(c, responder))
	return ResponseFor(score), score
}

// OutcomeKind names how a contest ended.
type OutcomeKind uint8

const (
	OutcomeWithdrawal OutcomeKind = iota // both backed down
	OutcomeConcession                    // one side backed down
	OutcomeIncident                      // both pressed; the stronger side prevailed
	OutcomeStandoff                      // both held
)

var outcomeNames = [...]string{"withdrawal", "concession", "incident", "standoff"}

func (o OutcomeKind) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Outcome is the result of resolving one conflict.
type Outcome struct {
	Conflict    Conflict    `json:"conflict"`
	Kind        OutcomeKind `json:"kind"`
	Primary     Response    `json:"primary_response"`
	Challenger  Response    `json:"challenger_response"`
	Winner      realm.ID    `json:"winner,omitempty"`
	Loser       realm.ID    `json:"loser,omitempty"`
	Description string      `json:"description"`
}

const (
	withdrawalFactor   = 0.85
	concessionFactor   = 0.70
	winnerGlory        = 5.0
	withdrawalGoodwill = 5
	concessionBump     = -5
	incidentPenalty    = -15
)

// Resolve applies the outcome of a conflict given each side's response.
//
// Both back down: every influencer on the target loses 15% and the competitors warm
// slightly. One backs down: the other gains glory and the loser's influence on the
// target drops 30%. Both press (escalate, or one escalates against a hold): an
// incident is logged, both sides sour, and the realm with the greater raw strength
// wins as in a concession. Both hold: tension rises and a standoff is logged.
func (s *System) Resolve(c *Conflict, primary, challenger Response, fx Effects) Outcome {
	out := Outcome{Primary: primary, Challenger: challenger}
	a, b := c.Primary, c.Challenger

	switch {
	case primary == BackDown && challenger == BackDown:
		out.Kind = OutcomeWithdrawal
		s.scaleInfluence(c.Target, realm.None, withdrawalFactor)
		fx.ModifyOpinion(a, b, withdrawalGoodwill, "mutual withdrawal")
		fx.ModifyOpinion(b, a, withdrawalGoodwill, "mutual withdrawal")
		s.dropConflict(c.ID)
		out.Description = fmt.Sprintf("realms %s and %s withdrew from %s", a, b, c.Target)

	case primary == BackDown || challenger == BackDown:
		out.Kind = OutcomeConcession
		out.Winner, out.Loser = a, b
		if primary == BackDown {
			out.Winner, out.Loser = b, a
		}
		s.concede(c, out.Winner, out.Loser, fx)
		out.Description = fmt.Sprintf("realm %s conceded %s to realm %s", out.Loser, c.Target, out.Winner)

	case primary == Hold && challenger == Hold:
		out.Kind = OutcomeStandoff
		s.mu.Lock()
		if live, ok := s.conflicts[c.ID]; ok {
			c = live
		}
		c.Tension = clamp(c.Tension+standoffTension, 0, 100)
		c.AddIncident(fmt.Sprintf("standoff over %s", c.Target))
		c = c.clone()
		s.mu.Unlock()
		out.Description = fmt.Sprintf("standoff between %s and %s over %s", a, b, c.Target)

	default:
		out.Kind = OutcomeIncident
		fx.ModifyOpinion(a, b, incidentPenalty, "diplomatic incident")
		fx.ModifyOpinion(b, a, incidentPenalty, "diplomatic incident")
		out.Winner, out.Loser = a, b
		if s.rawStrength(b) > s.rawStrength(a) {
			out.Winner, out.Loser = b, a
		}
		s.mu.Lock()
		if live, ok := s.conflicts[c.ID]; ok {
			c = live
		}
		c.AddIncident(fmt.Sprintf("diplomatic incident over %s", c.Target))
		c = c.clone()
		s.mu.Unlock()
		s.concede(c, out.Winner, out.Loser, fx)
		out.Description = fmt.Sprintf("incident over %s; realm %s prevailed", c.Target, out.Winner)
	}

	out.Conflict = *c.clone()
	slog.Info("influence conflict resolved",
		"conflict", c.ID,
		"outcome", out.Kind,
		"primary", primary,
		"challenger", challenger,
		"winner", out.Winner,
	)
	return out
}

// ResolveFlashpoints scores and resolves every current flashpoint.
func (s *System) ResolveFlashpoints(fx Effects) []Outcome {
	var out []Outcome
	for _, c := range s.Flashpoints() {
		r1, _ := s.Respond(c, c.Primary)
		r2, _ := s.Respond(c, c.Challenger)
		out = append(out, s.Resolve(c, r1, r2, fx))
	}
	return out
}

func (s *System) concede(c *Conflict, winner, loser realm.ID, fx Effects) {
	fx.AdjustGlory(winner, winnerGlory)
	fx.ModifyOpinion(loser, winner, concessionBump, "lost influence contest")
	s.scaleInfluence(c.Target, loser, concessionFactor)
	s.dropConflict(c.ID)
}

// rawStrength is a realm's military might, independent of any target.
func (s *System) rawStrength(id realm.ID) float64 {
	if snap, ok := s.world.Realm(id); ok {
		return MilitaryStrength(snap)
	}
	return 0
}

func (s *System) scaleInfluence(target, source realm.ID, factor float64) {
	s.components.Write(target, func(c *Component) {
		c.Incoming.Scale(source, factor)
	})
}

func (s *System) dropConflict(id string) {
	s.mu.Lock()
	delete(s.conflicts, id)
	s.mu.Unlock()
}
