package api

import (
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/talgya/concord/internal/diplomacy"
	"github.com/talgya/concord/internal/engine"
	"github.com/talgya/concord/internal/influence"
	"github.com/talgya/concord/internal/realm"
	"github.com/talgya/concord/internal/trust"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Sim.Stats()
	writeJSON(w, map[string]any{
		"name":        "Concord",
		"month":       st.Month,
		"sim_time":    st.Date,
		"season":      engine.SeasonName(engine.SeasonOf(st.Month)),
		"speed":       s.Eng.Speed(),
		"running":     s.Eng.Running(),
		"realms":      st.Realms,
		"wars":        st.Wars,
		"alliances":   st.Alliances,
		"treaties":    st.Treaties,
		"conflicts":   st.Conflicts,
		"flashpoints": st.Flashpoints,
		"proposals":   st.Proposals,
		"treasury":    st.Treasury,
		"avg_opinion": st.AvgOpinion,
		"avg_trust":   st.AvgTrust,
		"unsaved":     st.EventsInQueue,
		"persisted":   s.DB != nil,
		"subscribers": s.streamCount(),
	})
}

type realmSummary struct {
	ID              realm.ID   `json:"id"`
	Name            string     `json:"name"`
	Rank            string     `json:"rank"`
	Government      string     `json:"government"`
	Personality     string     `json:"personality"`
	Prestige        float64    `json:"prestige"`
	Reputation      float64    `json:"reputation"`
	WarWeariness    float64    `json:"war_weariness"`
	Trustworthiness float64    `json:"trustworthiness"`
	Treasury        float64    `json:"treasury"`
	Army            int        `json:"army"`
	Allies          []realm.ID `json:"allies"`
	Enemies         []realm.ID `json:"enemies"`
}

func (s *Server) summary(id realm.ID) (realmSummary, bool) {
	r, ok := s.Sim.Diplomacy.Realm(id)
	if !ok {
		return realmSummary{}, false
	}
	out := realmSummary{
		ID:              id,
		Personality:     r.Personality.String(),
		Prestige:        r.Prestige,
		Reputation:      r.Reputation,
		WarWeariness:    r.WarWeariness,
		Trustworthiness: s.Sim.Trust.Trustworthiness(id),
		Allies:          nonNil(r.Allies),
		Enemies:         nonNil(r.Enemies),
	}
	if snap, ok := s.Sim.World.Realm(id); ok {
		out.Name = snap.Name
		out.Rank = snap.Rank.String()
		out.Government = snap.Government.String()
		out.Treasury = snap.Treasury
		out.Army = snap.StandingArmy + snap.Levies
	}
	return out, true
}

func (s *Server) handleRealms(w http.ResponseWriter, r *http.Request) {
	ids := s.Sim.Diplomacy.IDs()
	out := make([]realmSummary, 0, len(ids))
	for _, id := range ids {
		if sum, ok := s.summary(id); ok {
			out = append(out, sum)
		}
	}
	if r.URL.Query().Get("sort") == "prestige" {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Prestige > out[j].Prestige })
	}
	writeJSON(w, out)
}

type treatyView struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	SignatoryA  realm.ID `json:"signatory_a"`
	SignatoryB  realm.ID `json:"signatory_b"`
	SignedMonth int      `json:"signed_month"`
	ExpiryMonth int      `json:"expiry_month"`
	ComplianceA float64  `json:"compliance_a"`
	ComplianceB float64  `json:"compliance_b"`
	Secret      bool     `json:"secret,omitempty"`
}

func treatyViews(ts []diplomacy.Treaty) []treatyView {
	out := make([]treatyView, 0, len(ts))
	for _, t := range ts {
		out = append(out, treatyView{
			ID:          t.ID,
			Type:        t.Type.String(),
			SignatoryA:  t.SignatoryA,
			SignatoryB:  t.SignatoryB,
			SignedMonth: t.SignedMonth,
			ExpiryMonth: t.ExpiryMonth,
			ComplianceA: t.ComplianceA,
			ComplianceB: t.ComplianceB,
			Secret:      t.Secret,
		})
	}
	return out
}

// handleRealm returns one realm with its treaties and marriages. ?as=<id> hides secret
// treaties that realm has not discovered.
func (s *Server) handleRealm(w http.ResponseWriter, r *http.Request) {
	id, ok := s.realmParam(w, r, "id")
	if !ok {
		return
	}
	observer := realm.None
	if as := r.URL.Query().Get("as"); as != "" {
		parsed, err := realm.ParseID(as)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid observer id")
			return
		}
		observer = parsed
	}

	sum, _ := s.summary(id)
	rd, _ := s.Sim.Diplomacy.Realm(id)
	writeJSON(w, map[string]any{
		"realm":     sum,
		"treaties":  treatyViews(s.Sim.Diplomacy.RealmTreaties(id, observer)),
		"marriages": rd.Marriages,
		"sphere":    s.Sim.Influence.SphereOf(id),
	})
}

func (s *Server) handleRelation(w http.ResponseWriter, r *http.Request) {
	from, ok := s.realmParam(w, r, "id")
	if !ok {
		return
	}
	to, ok := s.realmParam(w, r, "other")
	if !ok {
		return
	}
	if from == to {
		writeError(w, http.StatusBadRequest, "a realm has no relation with itself")
		return
	}

	v := s.Sim.Diplomacy.View(from, to)
	cooldowns := make(map[string]int, len(v.State.Cooldowns))
	for m, until := range v.State.Cooldowns {
		cooldowns[m.String()] = until
	}
	var contested []realm.ID
	for _, id := range s.Sim.Diplomacy.IDs() {
		if id != from && id != to && s.Sim.Influence.Competing(from, to, id) {
			contested = append(contested, id)
		}
	}
	var path *trust.Path
	pair := realm.MakePair(from, to)
	for _, p := range s.Sim.Trust.Paths() {
		if p.Pair == pair {
			path = &p
			break
		}
	}

	writeJSON(w, map[string]any{
		"from":                from,
		"to":                  to,
		"relation":            v.State.Relation.String(),
		"opinion":             v.State.Opinion,
		"apparent_opinion":    s.Sim.Diplomacy.ApparentOpinion(from, to),
		"intelligence":        s.Sim.Diplomacy.Intelligence(from, to),
		"base_opinion":        v.State.BaseOpinion,
		"border_tension":      v.State.BorderTension,
		"border_incidents":    v.State.BorderIncidents,
		"embassy":             v.State.Embassy,
		"recent_actions":      nonNil(v.State.RecentActions),
		"modifiers":           nonNil(v.State.Modifiers),
		"history":             v.State.History,
		"cooldowns":           cooldowns,
		"last_contact":        v.State.LastContact,
		"trust":               v.Trust,
		"trust_detail":        s.Sim.Trust.Get(from, to),
		"rebuilding":          path,
		"trade_volume":        v.TradeVolume,
		"economic_dependency": v.EconomicDependency,
		"treaties":            treatyViews(v.Treaties),
		"influence_hops":      s.Sim.Influence.HopDistance(from, to),
		"contested":           nonNil(contested),
		"grudge":              s.Sim.Memory.HasGrudge(from, to),
		"friendship":          s.Sim.Memory.HasDeepFriendship(from, to),
	})
}

type sourceView struct {
	Source    realm.ID `json:"source"`
	Type      string   `json:"type"`
	Base      float64  `json:"base"`
	Effective float64  `json:"effective"`
	Hops      int      `json:"hops"`
}

func (s *Server) handleInfluence(w http.ResponseWriter, r *http.Request) {
	id, ok := s.realmParam(w, r, "id")
	if !ok {
		return
	}
	c, ok := s.Sim.Influence.Component(id)
	if !ok {
		c = influence.NewComponent(id)
	}

	var incoming []sourceView
	dominant := make(map[string]realm.ID)
	for t, sources := range c.Incoming.Sources {
		for _, src := range sources {
			incoming = append(incoming, sourceView{
				Source:    src.Source,
				Type:      t.String(),
				Base:      src.Base,
				Effective: src.Effective,
				Hops:      src.Hops,
			})
		}
	}
	sort.Slice(incoming, func(i, j int) bool { return incoming[i].Effective > incoming[j].Effective })
	for t, src := range c.Incoming.Dominant {
		dominant[t.String()] = src
	}
	projection := make(map[string]float64, len(c.Projection))
	for t, v := range c.Projection {
		projection[t.String()] = v
	}

	writeJSON(w, map[string]any{
		"realm":              id,
		"incoming":           nonNil(incoming),
		"total":              c.Incoming.Total,
		"dominant":           dominant,
		"autonomy":           c.Incoming.Autonomy,
		"diplomatic_freedom": c.Incoming.DiplomaticFreedom,
		"projection":         projection,
		"sphere":             c.Sphere,
		"vassals":            nonNil(c.Vassals),
		"characters":         nonNil(c.Characters),
	})
}

type memoryEventView struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Category    string   `json:"category"`
	Severity    string   `json:"severity"`
	Actor       realm.ID `json:"actor"`
	Target      realm.ID `json:"target"`
	Month       int      `json:"month"`
	Description string   `json:"description,omitempty"`
	Opinion     int      `json:"opinion_impact"`
	Weight      float64  `json:"weight"`
	Permanent   bool     `json:"permanent,omitempty"`
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	self, ok := s.realmParam(w, r, "id")
	if !ok {
		return
	}
	other, ok := s.realmParam(w, r, "other")
	if !ok {
		return
	}
	l, _ := s.Sim.Memory.Ledger(self, other)

	events := make([]memoryEventView, 0, len(l.Events))
	for i := len(l.Events) - 1; i >= 0; i-- {
		e := l.Events[i]
		events = append(events, memoryEventView{
			ID:          e.ID,
			Type:        e.Type.String(),
			Category:    e.Category.String(),
			Severity:    e.Severity.String(),
			Actor:       e.Actor,
			Target:      e.Target,
			Month:       e.Month,
			Description: e.Description,
			Opinion:     e.OpinionImpact,
			Weight:      e.Weight,
			Permanent:   e.Permanent,
		})
	}
	writeJSON(w, map[string]any{
		"self":            self,
		"other":           other,
		"opinion_impact":  s.Sim.Memory.OpinionImpact(self, other),
		"trust_impact":    s.Sim.Memory.TrustImpact(self, other),
		"positive":        l.Positive,
		"negative":        l.Negative,
		"neutral":         l.Neutral,
		"betrayals":       l.Betrayals,
		"wars_together":   l.WarsTogether,
		"wars_against":    l.WarsAgainst,
		"treaties_signed": l.TreatiesSigned,
		"treaties_broken": l.TreatiesBroken,
		"rival":           s.Sim.Memory.IsHistoricalRival(self, other),
		"ally":            s.Sim.Memory.IsHistoricalAlly(self, other),
		"events":          events,
	})
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	id, ok := s.realmParam(w, r, "id")
	if !ok {
		return
	}
	type decisionView struct {
		Target   realm.ID `json:"target"`
		Move     string   `json:"move"`
		Priority float64  `json:"priority"`
		Score    float64  `json:"score"`
		Reason   string   `json:"reason"`
	}
	decisions := s.Sim.Decisions(id)
	out := make([]decisionView, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, decisionView{
			Target:   d.Target,
			Move:     d.Move.String(),
			Priority: d.Priority,
			Score:    d.Score,
			Reason:   d.Reason,
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	type conflictView struct {
		ID                 string   `json:"id"`
		Target             realm.ID `json:"target"`
		Primary            realm.ID `json:"primary"`
		Challenger         realm.ID `json:"challenger"`
		Type               string   `json:"type"`
		PrimaryStrength    float64  `json:"primary_strength"`
		ChallengerStrength float64  `json:"challenger_strength"`
		Tension            float64  `json:"tension"`
		EscalationRisk     float64  `json:"escalation_risk"`
		Flashpoint         bool     `json:"flashpoint"`
		StartMonth         int      `json:"start_month"`
	}
	onlyFlashpoints := r.URL.Query().Get("flashpoints") == "true"
	conflicts := s.Sim.Influence.Conflicts()
	out := make([]conflictView, 0, len(conflicts))
	for _, c := range conflicts {
		if onlyFlashpoints && !c.Flashpoint {
			continue
		}
		out = append(out, conflictView{
			ID:                 c.ID,
			Target:             c.Target,
			Primary:            c.Primary,
			Challenger:         c.Challenger,
			Type:               c.Type.String(),
			PrimaryStrength:    c.PrimaryStrength,
			ChallengerStrength: c.ChallengerStrength,
			Tension:            c.Tension,
			EscalationRisk:     c.EscalationRisk,
			Flashpoint:         c.Flashpoint,
			StartMonth:         c.StartMonth,
		})
	}
	writeJSON(w, out)
}

// handleEvents returns recent events, newest first. ?realm=<id> narrows to one realm and
// reads the full stored history when a database is attached.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	filter := realm.None
	if v := r.URL.Query().Get("realm"); v != "" {
		id, err := realm.ParseID(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid realm id")
			return
		}
		filter = id
	}

	events := s.Sim.Events(0)
	out := make([]engine.Event, 0, limit)
	for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
		e := events[i]
		if filter != realm.None && e.Actor != filter && e.Target != filter {
			continue
		}
		out = append(out, e)
	}

	if filter != realm.None && s.DB != nil && len(out) < limit {
		stored, err := s.DB.EventsFor(filter, limit)
		if err != nil {
			slog.Error("event history query failed", "realm", filter, "error", err)
			writeError(w, http.StatusInternalServerError, "event history unavailable")
			return
		}
		out = mergeEvents(out, stored, limit)
	}
	writeJSON(w, out)
}

// mergeEvents joins the in-memory ring with stored history, newest first, without
// duplicates.
func mergeEvents(recent, stored []engine.Event, limit int) []engine.Event {
	seen := make(map[string]bool, len(recent))
	for _, e := range recent {
		seen[e.ID] = true
	}
	out := recent
	for _, e := range stored {
		if !seen[e.ID] {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// nonNil keeps empty lists as [] in JSON.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
