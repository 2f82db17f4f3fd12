package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/talgya/concord/internal/diplomacy"
	"github.com/talgya/concord/internal/influence"
	"github.com/talgya/concord/internal/memory"
	"github.com/talgya/concord/internal/realm"
	"github.com/talgya/concord/internal/trust"
	"github.com/talgya/concord/internal/world"
)

// realmDoc is the stored form of one realm. Sections are kept raw so a damaged section
// only loses itself.
type realmDoc struct {
	Version   int             `json:"version"`
	Diplomacy json.RawMessage `json:"diplomacy"`
	Memory    json.RawMessage `json:"memory,omitempty"`
	Influence json.RawMessage `json:"influence,omitempty"`
	Holding   json.RawMessage `json:"holding,omitempty"`
	Record    json.RawMessage `json:"trust_record,omitempty"`
}

// pairDoc is the stored form of everything two realms share.
type pairDoc struct {
	Record diplomacy.PairRecord `json:"record"`
	Trust  *trust.Data          `json:"trust,omitempty"`
	Path   *trust.Path          `json:"path,omitempty"`
}

// splitField removes one field from a JSON object and returns the remainder and the
// field's raw value (nil when absent).
func splitField(raw json.RawMessage, field string) (json.RawMessage, json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, nil, err
	}
	value := obj[field]
	delete(obj, field)
	rest, err := json.Marshal(obj)
	return rest, value, err
}

// decodeKeyed decodes an object keyed by realm id. Keys that do not parse and entries
// that do not decode are logged and skipped. fresh supplies the defaults an entry is
// decoded over.
func decodeKeyed[V any](raw json.RawMessage, what string, owner realm.ID, fresh func(realm.ID) V) map[realm.ID]V {
	out := make(map[realm.ID]V)
	if len(raw) == 0 || isNull(raw) {
		return out
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		slog.Warn("skipping malformed map", "what", what, "realm", owner, "error", err)
		return out
	}
	for k, v := range entries {
		id, err := realm.ParseID(k)
		if err != nil {
			slog.Warn("skipping unparseable realm key", "what", what, "realm", owner, "key", k)
			continue
		}
		if isNull(v) {
			slog.Warn("skipping null entry", "what", what, "realm", owner, "key", k)
			continue
		}
		val := fresh(id)
		if err := json.Unmarshal(v, &val); err != nil {
			slog.Warn("skipping malformed entry", "what", what, "realm", owner, "key", k, "error", err)
			continue
		}
		out[id] = val
	}
	return out
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeRealm(id realm.ID, raw json.RawMessage) (*diplomacy.Realm, error) {
	rest, rels, err := splitField(raw, "relationships")
	if err != nil {
		return nil, fmt.Errorf("decode realm %d: %w", id, err)
	}
	r := diplomacy.NewRealm(id, diplomacy.PersonalityPragmatic)
	if err := json.Unmarshal(rest, r); err != nil {
		return nil, fmt.Errorf("decode realm %d: %w", id, err)
	}
	r.ID = id
	if int(r.Personality) >= diplomacy.PersonalityCount {
		slog.Warn("unknown personality, using pragmatic", "realm", id, "personality", r.Personality)
		r.Personality = diplomacy.PersonalityPragmatic
	}
	r.Relationships = decodeKeyed(rels, "relationship", id, diplomacy.NewState)
	for other, st := range r.Relationships {
		st.Other = other
		st.Opinion = diplomacy.ClampOpinion(st.Opinion)
		if st.Cooldowns == nil {
			st.Cooldowns = make(map[diplomacy.Move]int)
		}
	}
	return r, nil
}

func decodeBook(id realm.ID, raw json.RawMessage) (*memory.Book, error) {
	rest, ledgers, err := splitField(raw, "ledgers")
	if err != nil {
		return nil, fmt.Errorf("decode memory %d: %w", id, err)
	}
	rest, milestones, err := splitField(rest, "milestones")
	if err != nil {
		return nil, fmt.Errorf("decode memory %d: %w", id, err)
	}
	b := memory.NewBook(id)
	if err := json.Unmarshal(rest, b); err != nil {
		return nil, fmt.Errorf("decode memory %d: %w", id, err)
	}
	b.Realm = id
	b.Ledgers = decodeKeyed(ledgers, "ledger", id, func(other realm.ID) *memory.Ledger {
		return memory.NewLedger(id, other)
	})
	b.Milestones = decodeKeyed(milestones, "milestones", id, func(other realm.ID) *memory.MilestoneTracker {
		return memory.NewMilestoneTracker(id, other)
	})
	for other, l := range b.Ledgers {
		l.Self, l.Other = id, other
	}
	for other, mt := range b.Milestones {
		mt.Self, mt.Other = id, other
	}
	return b, nil
}

func decodeComponent(id realm.ID, raw json.RawMessage) (*influence.Component, error) {
	c := influence.NewComponent(id)
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("decode influence %d: %w", id, err)
	}
	c.Realm = id
	return c, nil
}

func decodeHolding(id realm.ID, raw json.RawMessage) (world.Holding, error) {
	var h world.Holding
	if err := json.Unmarshal(raw, &h); err != nil {
		return h, fmt.Errorf("decode holding %d: %w", id, err)
	}
	h.Snapshot.ID = id
	return h, nil
}

func decodeRecord(id realm.ID, raw json.RawMessage) (trust.Record, error) {
	r := trust.Record{Realm: id, Trustworthiness: 1.0}
	if err := json.Unmarshal(raw, &r); err != nil {
		return r, fmt.Errorf("decode trust record %d: %w", id, err)
	}
	r.Realm = id
	return r, nil
}

// section decodes one optional part of a realm document, logging and skipping failures.
func section[V any](raw json.RawMessage, decode func(realm.ID, json.RawMessage) (V, error), id realm.ID) (V, bool) {
	var zero V
	if len(raw) == 0 || isNull(raw) {
		return zero, false
	}
	v, err := decode(id, raw)
	if err != nil {
		slog.Warn("skipping malformed section", "realm", id, "error", err)
		return zero, false
	}
	return v, true
}
