package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/talgya/concord/internal/diplomacy"
	"github.com/talgya/concord/internal/engine"
	"github.com/talgya/concord/internal/influence"
	"github.com/talgya/concord/internal/realm"
	"github.com/talgya/concord/internal/trust"
	"github.com/talgya/concord/internal/world"
)

type docRow struct {
	Key     string `db:"key"`
	Version int    `db:"version"`
	Doc     string `db:"doc"`
}

// SaveWorldState performs a full save of the simulation. Realm, pair, proposal and
// conflict tables are replaced; events are appended.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	month := sim.Month()
	events := sim.TakeUnsaved()
	slog.Info("saving world state", "month", month, "realms", len(sim.Diplomacy.IDs()), "events", len(events))

	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if err := saveRealms(tx, sim); err != nil {
		return fmt.Errorf("save realms: %w", err)
	}
	if err := savePairs(tx, sim); err != nil {
		return fmt.Errorf("save pairs: %w", err)
	}
	if err := saveProposals(tx, sim); err != nil {
		return fmt.Errorf("save proposals: %w", err)
	}
	if err := saveConflicts(tx, sim); err != nil {
		return fmt.Errorf("save conflicts: %w", err)
	}
	if err := saveEvents(tx, events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	meta := map[string]string{
		"schema_version": strconv.Itoa(SchemaVersion),
		"month":          strconv.Itoa(month),
		"seed":           strconv.FormatInt(sim.World.Seed, 10),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}

	slog.Info("world state saved", "month", month)
	return nil
}

func saveRealms(tx *sqlx.Tx, sim *engine.Simulation) error {
	if _, err := tx.Exec("DELETE FROM realms"); err != nil {
		return err
	}
	stmt, err := tx.Preparex("INSERT INTO realms (id, version, doc) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	records := make(map[realm.ID]trust.Record)
	for _, r := range sim.Trust.Records() {
		records[r.Realm] = r
	}

	for _, id := range sim.Diplomacy.IDs() {
		r, ok := sim.Diplomacy.Realm(id)
		if !ok {
			continue
		}
		doc := realmDoc{Version: SchemaVersion}
		if doc.Diplomacy, err = json.Marshal(r); err != nil {
			return err
		}
		if b, ok := sim.Memory.Book(id); ok {
			if doc.Memory, err = json.Marshal(b); err != nil {
				return err
			}
		}
		if c, ok := sim.Influence.Component(id); ok {
			if doc.Influence, err = json.Marshal(c); err != nil {
				return err
			}
		}
		if h, ok := sim.World.Holding(id); ok {
			if doc.Holding, err = json.Marshal(h); err != nil {
				return err
			}
		}
		if rec, ok := records[id]; ok {
			if doc.Record, err = json.Marshal(rec); err != nil {
				return err
			}
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(int64(id), SchemaVersion, string(data)); err != nil {
			return err
		}
	}
	return nil
}

func savePairs(tx *sqlx.Tx, sim *engine.Simulation) error {
	if _, err := tx.Exec("DELETE FROM pairs"); err != nil {
		return err
	}
	docs := make(map[realm.Pair]*pairDoc)
	get := func(p realm.Pair) *pairDoc {
		d, ok := docs[p]
		if !ok {
			d = &pairDoc{Record: diplomacy.PairRecord{Pair: p, Trust: 0.5}}
			docs[p] = d
		}
		return d
	}
	for _, rec := range sim.Diplomacy.Pairs() {
		get(rec.Pair).Record = rec
	}
	for _, p := range sim.Trust.Pairs() {
		get(p).Trust = sim.Trust.Get(p.Lo, p.Hi)
	}
	for _, path := range sim.Trust.Paths() {
		get(path.Pair).Path = &path
	}

	for p, d := range docs {
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO pairs (pair, doc) VALUES (?, ?)", p.String(), string(data)); err != nil {
			return err
		}
	}
	return nil
}

func saveProposals(tx *sqlx.Tx, sim *engine.Simulation) error {
	if _, err := tx.Exec("DELETE FROM proposals"); err != nil {
		return err
	}
	for _, p := range sim.Diplomacy.Proposals() {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO proposals (id, doc) VALUES (?, ?)", p.ID, string(data)); err != nil {
			return err
		}
	}
	return nil
}

func saveConflicts(tx *sqlx.Tx, sim *engine.Simulation) error {
	if _, err := tx.Exec("DELETE FROM conflicts"); err != nil {
		return err
	}
	for _, c := range sim.Influence.Conflicts() {
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO conflicts (id, doc) VALUES (?, ?)", c.ID, string(data)); err != nil {
			return err
		}
	}
	return nil
}

// LoadWorldState restores a saved simulation into sim, which must have been built from
// the same world seed. It reports false when the database holds no save.
func (db *DB) LoadWorldState(sim *engine.Simulation) (bool, error) {
	month, ok, err := db.metaInt("month")
	if err != nil {
		return false, fmt.Errorf("load meta: %w", err)
	}
	if !ok {
		return false, nil
	}
	if seed, ok, err := db.SavedSeed(); err != nil {
		return false, fmt.Errorf("load meta: %w", err)
	} else if ok && seed != sim.World.Seed {
		return false, fmt.Errorf("save was made with seed %d, world has seed %d", seed, sim.World.Seed)
	}

	if err := db.loadRealms(sim); err != nil {
		return false, fmt.Errorf("load realms: %w", err)
	}
	if err := db.loadPairs(sim); err != nil {
		return false, fmt.Errorf("load pairs: %w", err)
	}
	if err := db.loadProposals(sim); err != nil {
		return false, fmt.Errorf("load proposals: %w", err)
	}
	if err := db.loadConflicts(sim); err != nil {
		return false, fmt.Errorf("load conflicts: %w", err)
	}

	recent, err := db.RecentEvents(sim.Options.EventBuffer)
	if err != nil {
		return false, fmt.Errorf("load events: %w", err)
	}
	slices.Reverse(recent)
	sim.LoadEvents(recent)
	sim.SetMonth(int(month))

	slog.Info("world state loaded", "month", month, "date", engine.SimTime(int(month)), "events", len(recent))
	return true, nil
}

func (db *DB) loadRealms(sim *engine.Simulation) error {
	var rows []docRow
	if err := db.conn.Select(&rows, "SELECT CAST(id AS TEXT) AS key, version, doc FROM realms ORDER BY id"); err != nil {
		return err
	}

	var holdings []world.Holding
	for _, row := range rows {
		id, err := realm.ParseID(row.Key)
		if err != nil {
			slog.Warn("skipping realm with bad id", "id", row.Key)
			continue
		}
		if row.Version > SchemaVersion {
			slog.Warn("realm saved by a newer schema", "realm", id, "version", row.Version)
		}
		var doc realmDoc
		if err := json.Unmarshal([]byte(row.Doc), &doc); err != nil {
			slog.Warn("skipping malformed realm document", "realm", id, "error", err)
			continue
		}
		r, ok := section(doc.Diplomacy, decodeRealm, id)
		if !ok {
			slog.Warn("realm document has no usable diplomacy section", "realm", id)
			continue
		}
		sim.Diplomacy.AddRealm(r)
		if b, ok := section(doc.Memory, decodeBook, id); ok {
			sim.Memory.PutBook(b)
		}
		if c, ok := section(doc.Influence, decodeComponent, id); ok {
			sim.Influence.PutComponent(c)
		}
		if h, ok := section(doc.Holding, decodeHolding, id); ok {
			holdings = append(holdings, h)
		}
		if rec, ok := section(doc.Record, decodeRecord, id); ok {
			sim.Trust.PutRecord(rec)
		}
	}
	sim.World.Restore(holdings)
	return nil
}

func (db *DB) loadPairs(sim *engine.Simulation) error {
	var rows []docRow
	if err := db.conn.Select(&rows, "SELECT pair AS key, 0 AS version, doc FROM pairs ORDER BY pair"); err != nil {
		return err
	}
	for _, row := range rows {
		doc := pairDoc{Trust: trust.NewData()}
		if err := json.Unmarshal([]byte(row.Doc), &doc); err != nil {
			slog.Warn("skipping malformed pair document", "pair", row.Key, "error", err)
			continue
		}
		p := realm.MakePair(doc.Record.Pair.Lo, doc.Record.Pair.Hi)
		if p.Lo == realm.None || p.Lo == p.Hi {
			slog.Warn("skipping pair with bad key", "pair", row.Key)
			continue
		}
		doc.Record.Pair = p
		doc.Record.Trust = min(1, max(0, doc.Record.Trust))
		doc.Record.Treaties = slices.DeleteFunc(doc.Record.Treaties, func(t *diplomacy.Treaty) bool {
			if t == nil || !p.Contains(t.SignatoryA) || !p.Contains(t.SignatoryB) {
				slog.Warn("skipping malformed treaty", "pair", p)
				return true
			}
			return false
		})
		if doc.Trust == nil {
			doc.Trust = trust.NewData()
		}
		sim.Diplomacy.PutPair(&doc.Record)
		sim.Trust.Put(p, doc.Trust)
		if doc.Path != nil {
			doc.Path.Pair = p
			sim.Trust.PutPath(*doc.Path)
		}
	}
	return nil
}

func (db *DB) loadProposals(sim *engine.Simulation) error {
	var docs []string
	if err := db.conn.Select(&docs, "SELECT doc FROM proposals ORDER BY id"); err != nil {
		return err
	}
	for _, raw := range docs {
		var p diplomacy.Proposal
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			slog.Warn("skipping malformed proposal", "error", err)
			continue
		}
		if p.ID == "" || p.Proposer == realm.None || p.Proposer == p.Target {
			slog.Warn("skipping proposal without parties", "id", p.ID)
			continue
		}
		sim.Diplomacy.AddProposal(&p)
	}
	return nil
}

func (db *DB) loadConflicts(sim *engine.Simulation) error {
	var docs []string
	if err := db.conn.Select(&docs, "SELECT doc FROM conflicts ORDER BY id"); err != nil {
		return err
	}
	for _, raw := range docs {
		var c influence.Conflict
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			slog.Warn("skipping malformed conflict", "error", err)
			continue
		}
		if c.ID == "" || c.Target == realm.None {
			slog.Warn("skipping conflict without a target", "id", c.ID)
			continue
		}
		sim.Influence.PutConflict(&c)
	}
	return nil
}
