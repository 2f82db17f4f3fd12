package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/talgya/concord/internal/diplomacy"
	"github.com/talgya/concord/internal/engine"
	"github.com/talgya/concord/internal/realm"
)

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"speed": s.Eng.Speed(), "running": s.Eng.Running()})
}

func (s *Server) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Speed < 0 || req.Speed > 1000 {
		writeError(w, http.StatusBadRequest, "speed must be 0-1000")
		return
	}
	s.Eng.SetSpeed(req.Speed)
	s.handleSpeed(w, r)
}

// handleAction performs a diplomatic move on behalf of a realm.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Move string   `json:"move"`
		From realm.ID `json:"from"`
		To   realm.ID `json:"to"`
		Arg  float64  `json:"arg,omitempty"` // gift amount, casus belli or pact secrecy
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	move, ok := diplomacy.ParseMove(req.Move)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown move "+req.Move)
		return
	}
	if !s.Sim.Diplomacy.HasRealm(req.From) || !s.Sim.Diplomacy.HasRealm(req.To) {
		writeError(w, http.StatusNotFound, "unknown realm")
		return
	}

	res := s.Sim.Act(move, req.From, req.To, req.Arg)
	slog.Info("admin action", "move", req.Move, "from", req.From, "to", req.To, "success", res.Success)
	if !res.Success {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(res)
		return
	}
	writeJSON(w, res)
}

// handleInbound queues a report from outside the diplomacy engine for the next tick.
func (s *Server) handleInbound(w http.ResponseWriter, r *http.Request) {
	var in engine.Inbound
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	switch in.Kind {
	case engine.InboundWarDeclared, engine.InboundTreatySigned, engine.InboundTreatyViolated:
	default:
		writeError(w, http.StatusBadRequest, "unknown inbound kind (use: war_declared, treaty_signed, treaty_violated)")
		return
	}
	if in.Actor == in.Target || !s.Sim.Diplomacy.HasRealm(in.Actor) || !s.Sim.Diplomacy.HasRealm(in.Target) {
		writeError(w, http.StatusBadRequest, "actor and target must be two known realms")
		return
	}

	s.Sim.Bus.Submit(in)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "queued"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	var err error
	s.Sim.Exclusive(func() { err = s.DB.SaveWorldState(s.Sim) })
	if err != nil {
		slog.Error("snapshot save failed", "error", err)
		writeError(w, http.StatusInternalServerError, "snapshot failed")
		return
	}

	month := s.Sim.Month()
	writeJSON(w, map[string]any{
		"month":    month,
		"sim_time": engine.SimTime(month),
		"message":  "snapshot saved",
	})
}
