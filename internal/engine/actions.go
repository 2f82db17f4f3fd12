package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/concord/internal/diplomacy"
	"github.com/talgya/concord/internal/memory"
	"github.com/talgya/concord/internal/realm"
	"github.com/talgya/concord/internal/trust"
)

// consequence is what a successful move leaves behind outside the relationship store.
type consequence struct {
	memory   memory.EventType
	kind     Kind
	category string
}

var consequences = map[diplomacy.Move]consequence{
	diplomacy.MoveProposeAlliance:      {memory.AllianceFormed, KindAllianceFormed, "diplomacy"},
	diplomacy.MoveProposeTrade:         {memory.TradeAgreementSigned, KindTreatySigned, "diplomacy"},
	diplomacy.MoveProposeNonAggression: {memory.TreatySigned, KindTreatySigned, "diplomacy"},
	diplomacy.MoveDeclareWar:           {memory.WarDeclared, KindWarDeclared, "war"},
	diplomacy.MoveOfferPeace:           {memory.PeaceSigned, KindPeaceSigned, "war"},
	diplomacy.MoveArrangeMarriage:      {memory.MarriageArranged, KindMarriageArranged, "diplomacy"},
	diplomacy.MoveSendGift:             {memory.GiftSent, KindAction, "diplomacy"},
	diplomacy.MoveEstablishEmbassy:     {memory.EmbassyEstablished, KindAction, "diplomacy"},
	diplomacy.MoveRecallEmbassy:        {memory.EmbassyClosed, KindAction, "diplomacy"},
	diplomacy.MoveInsult:               {memory.DiplomaticInsult, KindAction, "diplomacy"},
	diplomacy.MoveBreakAlliance:        {memory.AllianceBroken, KindTreatyBroken, "diplomacy"},
}

// Act carries out a move immediately, outside the monthly schedule, and applies its
// consequences to memory, trust and the event log.
func (s *Simulation) Act(m diplomacy.Move, from, to realm.ID, arg float64) diplomacy.ActionResult {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.act(m, from, to, arg)
}

// Exclusive runs fn while no tick or action is in progress.
func (s *Simulation) Exclusive(fn func()) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	fn()
}

func (s *Simulation) act(m diplomacy.Move, from, to realm.ID, arg float64) diplomacy.ActionResult {
	month := s.Diplomacy.Month()
	res := s.Diplomacy.Execute(m, from, to, arg)
	if !res.Success {
		slog.Debug("action failed", "move", m, "from", from, "to", to, "reason", res.Reason)
		return res
	}

	if res.Incident != nil {
		s.Trust.ApplyIncident(from, to, *res.Incident)
	}
	for _, t := range res.Broken {
		if m == diplomacy.MoveBreakAlliance {
			s.Trust.RecordTreaty(from, false)
			continue
		}
		s.treatyBroken(t, from, month)
		if t.Type == diplomacy.TreatyAlliance {
			s.Memory.RecordType(memory.StabbedInBack, from, to, month, "attacked an ally")
			s.Trust.OnBetrayal(from, to)
		}
	}

	switch m {
	case diplomacy.MoveOfferPeace:
		if s.Trust.Trust(from, to) < rebuildTarget {
			s.Trust.StartRebuilding(from, to, rebuildTarget)
		}
	case diplomacy.MoveProposeTrade, diplomacy.MoveProposeNonAggression:
		s.Trust.CompleteRequirement(from, to, trust.ReqTreaties)
	case diplomacy.MoveSendGift:
		s.Trust.RecordGift(from, to)
	case diplomacy.MoveSecretPact:
		s.Memory.RecordType(memory.TreatySigned, from, to, month, res.Reason)
		slog.Debug("secret pact", "from", from, "to", to, "treaty", res.Treaty.ID)
	}
	s.syncTrust(from, to)

	c, ok := consequences[m]
	if !ok {
		return res
	}
	s.Memory.RecordType(c.memory, from, to, month, res.Reason)
	s.record(NewEvent(month, c.kind, from, to, c.category,
		fmt.Sprintf("%s and %s: %s", s.name(from), s.name(to), res.Reason)))
	slog.Info("diplomatic action", "move", m, "from", from, "to", to, "reason", res.Reason)
	return res
}
