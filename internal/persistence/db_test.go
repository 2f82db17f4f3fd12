package persistence

import (
	"database/sql"
	"errors"
	"slices"
	"testing"

	"github.com/talgya/concord/internal/diplomacy"
	"github.com/talgya/concord/internal/engine"
	"github.com/talgya/concord/internal/realm"
	"github.com/talgya/concord/internal/world"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestSim(t *testing.T, seed int64) *engine.Simulation {
	t.Helper()
	cfg := world.SmallTestConfig()
	cfg.Seed = seed
	opts := engine.DefaultOptions()
	opts.Seed = 7
	opts.ActionChance = 0.5
	return engine.New(world.Generate(cfg), opts)
}

func TestMigrationsRecorded(t *testing.T) {
	db := openTestDB(t)
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	got, err := db.SchemaVersions()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []int{1}) {
		t.Errorf("versions = %v, want [1]", got)
	}
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetMeta("month"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("missing key error = %v, want sql.ErrNoRows", err)
	}
	if err := db.SaveMeta("month", "12"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMeta("month", "13"); err != nil {
		t.Fatal(err)
	}
	if v, _ := db.GetMeta("month"); v != "13" {
		t.Errorf("month = %q, want 13", v)
	}
	if _, ok, _ := db.SavedSeed(); ok {
		t.Error("seed reported before any save")
	}
}

func TestEventsAppendOnce(t *testing.T) {
	db := openTestDB(t)
	events := []engine.Event{
		engine.NewEvent(1, engine.KindWarDeclared, 1, 2, "war", "first"),
		engine.NewEvent(2, engine.KindPeaceSigned, 1, 2, "war", "second"),
		engine.NewEvent(3, engine.KindAllianceFormed, 3, 4, "diplomacy", "third"),
	}
	if err := db.SaveEvents(events); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveEvents(events[:1]); err != nil {
		t.Fatal(err)
	}

	got, err := db.RecentEvents(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("stored %d events, want 3", len(got))
	}
	if got[0].Description != "third" || got[0].Kind != engine.KindAllianceFormed || got[0].Actor != 3 {
		t.Errorf("newest event = %+v", got[0])
	}

	mine, err := db.EventsFor(2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 {
		t.Errorf("events for realm 2 = %d, want 2", len(mine))
	}
}

func TestLoadWithoutSave(t *testing.T) {
	db := openTestDB(t)
	ok, err := db.LoadWorldState(newTestSim(t, 42))
	if err != nil || ok {
		t.Errorf("LoadWorldState = %v, %v; want false, nil", ok, err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := openTestDB(t)
	a := newTestSim(t, 42)
	ids := a.Diplomacy.IDs()
	x, y := ids[0], ids[len(ids)-1]
	for m := 1; m <= 6; m++ {
		a.TickMonth(m)
	}
	if a.Diplomacy.AtWar(x, y) {
		a.Act(diplomacy.MoveOfferPeace, x, y, 0)
	} else {
		a.Act(diplomacy.MoveDeclareWar, x, y, 0)
	}
	a.Propose(y, x, diplomacy.MoveSendGift, nil)

	if err := db.SaveWorldState(a); err != nil {
		t.Fatalf("save: %v", err)
	}

	b := newTestSim(t, 42)
	ok, err := db.LoadWorldState(b)
	if err != nil || !ok {
		t.Fatalf("load = %v, %v", ok, err)
	}

	if b.Month() != a.Month() {
		t.Errorf("month = %d, want %d", b.Month(), a.Month())
	}
	for _, i := range ids {
		pa, pb := a.Diplomacy.Profile(i), b.Diplomacy.Profile(i)
		if pa != pb {
			t.Errorf("profile %d: %+v vs %+v", i, pb, pa)
		}
		for _, j := range ids {
			if i == j {
				continue
			}
			if a.Diplomacy.Opinion(i, j) != b.Diplomacy.Opinion(i, j) {
				t.Errorf("opinion %d→%d = %d, want %d", i, j, b.Diplomacy.Opinion(i, j), a.Diplomacy.Opinion(i, j))
			}
			if a.Diplomacy.Relation(i, j) != b.Diplomacy.Relation(i, j) {
				t.Errorf("relation %d→%d = %v, want %v", i, j, b.Diplomacy.Relation(i, j), a.Diplomacy.Relation(i, j))
			}
			if a.Trust.Trust(i, j) != b.Trust.Trust(i, j) {
				t.Errorf("trust %d/%d = %f, want %f", i, j, b.Trust.Trust(i, j), a.Trust.Trust(i, j))
			}
			la, _ := a.Memory.Ledger(i, j)
			lb, _ := b.Memory.Ledger(i, j)
			if len(la.Events) != len(lb.Events) {
				t.Errorf("ledger %d→%d has %d events, want %d", i, j, len(lb.Events), len(la.Events))
			}
		}
		ha, _ := a.World.Holding(i)
		hb, _ := b.World.Holding(i)
		if ha.Snapshot.Treasury != hb.Snapshot.Treasury {
			t.Errorf("treasury %d = %f, want %f", i, hb.Snapshot.Treasury, ha.Snapshot.Treasury)
		}
	}
	if len(a.Diplomacy.Pairs()) != len(b.Diplomacy.Pairs()) {
		t.Errorf("pairs = %d, want %d", len(b.Diplomacy.Pairs()), len(a.Diplomacy.Pairs()))
	}
	if len(a.Diplomacy.Proposals()) != len(b.Diplomacy.Proposals()) {
		t.Errorf("proposals = %d, want %d", len(b.Diplomacy.Proposals()), len(a.Diplomacy.Proposals()))
	}
	if len(a.Influence.Conflicts()) != len(b.Influence.Conflicts()) {
		t.Errorf("conflicts = %d, want %d", len(b.Influence.Conflicts()), len(a.Influence.Conflicts()))
	}
	if len(b.Events(0)) == 0 {
		t.Error("no events restored")
	}

	// The loaded simulation keeps running.
	b.TickMonth(b.Month() + 1)
}

func TestLoadRejectsOtherSeed(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveWorldState(newTestSim(t, 42)); err != nil {
		t.Fatal(err)
	}
	if _, err := db.LoadWorldState(newTestSim(t, 43)); err == nil {
		t.Error("loaded a save into a world with a different seed")
	}
	seed, ok, err := db.SavedSeed()
	if err != nil || !ok || seed != 42 {
		t.Errorf("SavedSeed = %d, %v, %v", seed, ok, err)
	}
}

func TestTolerantRealmDecoding(t *testing.T) {
	raw := []byte(`{
		"id": 1,
		"personality": 3,
		"relationships": {
			"abc": {"opinion": 10},
			"2": {"opinion": "high"},
			"3": {"opinion": 500, "relation": 1},
			"4": null
		}
	}`)
	r, err := decodeRealm(1, raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Relationships) != 1 {
		t.Fatalf("kept %d relationships, want 1", len(r.Relationships))
	}
	st := r.Relationships[3]
	if st == nil || st.Opinion != 100 || st.Other != 3 {
		t.Errorf("relationship 3 = %+v, want opinion clamped to 100", st)
	}
	if r.Reputation != 1.0 {
		t.Errorf("missing reputation = %f, want default 1.0", r.Reputation)
	}
	if r.Personality != diplomacy.PersonalityIsolationist {
		t.Errorf("personality = %v", r.Personality)
	}
}

func TestNullMemoryEntriesAreSkipped(t *testing.T) {
	raw := []byte(`{
		"realm": 1,
		"ledgers": {
			"2": null,
			"3": {"events": [{"id": "e1", "type": 0, "month": 4, "weight": 1}]}
		},
		"milestones": {"2": null, "3": {"peace_years": 2}}
	}`)
	b, err := decodeBook(1, raw)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.Ledgers[2]; ok {
		t.Error("null ledger was kept")
	}
	if _, ok := b.Milestones[2]; ok {
		t.Error("null milestone tracker was kept")
	}
	l := b.Ledgers[3]
	if l == nil || l.Self != 1 || l.Other != 3 || len(l.Events) != 1 {
		t.Fatalf("ledger 3 = %+v", l)
	}
	if mt := b.Milestones[3]; mt == nil || mt.PeaceYears != 2 || mt.Other != 3 {
		t.Errorf("milestones 3 = %+v", mt)
	}
}

func TestNullPairPartsAreRepaired(t *testing.T) {
	db := openTestDB(t)
	sim := newTestSim(t, 42)
	if err := db.SaveWorldState(sim); err != nil {
		t.Fatal(err)
	}
	ids := sim.Diplomacy.IDs()
	a, b := ids[0], ids[len(ids)-1]
	pair := realm.MakePair(a, b)
	doc := `{"record":{"pair":{"lo":` + pair.Lo.String() + `,"hi":` + pair.Hi.String() + `},` +
		`"treaties":[null,{"id":"t1","type":0,"signatory_a":` + a.String() + `,"signatory_b":` + b.String() + `,"active":true}]},` +
		`"trust":null}`
	if _, err := db.conn.Exec("DELETE FROM pairs WHERE pair = ?", pair.String()); err != nil {
		t.Fatal(err)
	}
	if _, err := db.conn.Exec("INSERT INTO pairs (pair, doc) VALUES (?, ?)", pair.String(), doc); err != nil {
		t.Fatal(err)
	}
	for _, q := range []string{
		"INSERT INTO proposals (id, doc) VALUES ('n', 'null')",
		"INSERT INTO conflicts (id, doc) VALUES ('n', 'null')",
	} {
		if _, err := db.conn.Exec(q); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
	}

	fresh := newTestSim(t, 42)
	if ok, err := db.LoadWorldState(fresh); err != nil || !ok {
		t.Fatalf("load = %v, %v", ok, err)
	}
	if got := fresh.Trust.Trust(a, b); got < 0 || got > 1 {
		t.Errorf("trust after null record = %f", got)
	}
	treaties := fresh.Diplomacy.View(a, b).Treaties
	if len(treaties) != 1 || treaties[0].ID != "t1" {
		t.Errorf("treaties = %+v, want only t1", treaties)
	}
	for _, p := range fresh.Diplomacy.Proposals() {
		if p.ID == "" {
			t.Error("null proposal was loaded")
		}
	}
	if n := len(fresh.Influence.Conflicts()); n != len(sim.Influence.Conflicts()) {
		t.Errorf("conflicts = %d, want %d", n, len(sim.Influence.Conflicts()))
	}
	fresh.TickMonth(fresh.Month() + 1)
}

func TestMalformedRowsAreSkipped(t *testing.T) {
	db := openTestDB(t)
	sim := newTestSim(t, 42)
	if err := db.SaveWorldState(sim); err != nil {
		t.Fatal(err)
	}
	bad := []string{
		"INSERT INTO realms (id, version, doc) VALUES (900, 1, 'not json')",
		`INSERT INTO realms (id, version, doc) VALUES (901, 1, '{"version":1,"diplomacy":{"personality":"bold"}}')`,
		"INSERT INTO pairs (pair, doc) VALUES ('x', '{broken')",
		`INSERT INTO pairs (pair, doc) VALUES ('5_5', '{"record":{"pair":{"lo":5,"hi":5}}}')`,
		"INSERT INTO proposals (id, doc) VALUES ('p', '[]')",
		"INSERT INTO conflicts (id, doc) VALUES ('c', 'nope')",
	}
	for _, q := range bad {
		if _, err := db.conn.Exec(q); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
	}

	fresh := newTestSim(t, 42)
	ok, err := db.LoadWorldState(fresh)
	if err != nil || !ok {
		t.Fatalf("load = %v, %v", ok, err)
	}
	for _, id := range []realm.ID{900, 901} {
		if fresh.Diplomacy.HasRealm(id) {
			t.Errorf("malformed realm %d was loaded", id)
		}
	}
	if !slices.Equal(fresh.Diplomacy.IDs(), sim.Diplomacy.IDs()) {
		t.Errorf("realms = %v, want %v", fresh.Diplomacy.IDs(), sim.Diplomacy.IDs())
	}
}
