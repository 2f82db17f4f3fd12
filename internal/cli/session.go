package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/talgya/concord/internal/config"
	"github.com/talgya/concord/internal/engine"
	"github.com/talgya/concord/internal/entropy"
	"github.com/talgya/concord/internal/persistence"
	"github.com/talgya/concord/internal/world"
)

// session is an opened database with the simulation it holds.
type session struct {
	cfg     config.Config
	db      *persistence.DB
	sim     *engine.Simulation
	eng     *engine.Engine
	resumed bool
}

// openSession opens the database, regenerates the world from its seed and restores any
// saved state over it.
func openSession(cfg config.Config) (*session, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := persistence.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	slog.Info("database opened", "path", cfg.Database.Path)

	seed, err := resolveSeed(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	cfg.Simulation.Seed = seed
	opts, err := cfg.EngineOptions()
	if err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("generating world", "seed", seed, "radius", cfg.World.Radius, "realms", cfg.World.Realms)
	sim := engine.New(world.Generate(cfg.WorldConfig()), opts)

	resumed, err := db.LoadWorldState(sim)
	if err != nil {
		db.Close()
		return nil, err
	}

	eng := engine.NewEngine()
	eng.Month = sim.Month()
	eng.Interval = cfg.Simulation.Interval
	eng.SetSpeed(cfg.Simulation.Speed)

	s := &session{cfg: cfg, db: db, sim: sim, eng: eng, resumed: resumed}
	if !resumed {
		if err := s.save(); err != nil {
			s.close()
			return nil, fmt.Errorf("initial save: %w", err)
		}
	}
	return s, nil
}

// resolveSeed prefers the seed of an existing save, then the configured seed, then a
// fresh one from random.org or crypto/rand.
func resolveSeed(cfg config.Config, db *persistence.DB) (int64, error) {
	saved, ok, err := db.SavedSeed()
	if err != nil {
		return 0, fmt.Errorf("read saved seed: %w", err)
	}
	if ok {
		if cfg.Simulation.Seed != 0 && cfg.Simulation.Seed != saved {
			slog.Warn("configured seed ignored, database already holds a world", "configured", cfg.Simulation.Seed, "saved", saved)
		}
		return saved, nil
	}
	if cfg.Simulation.Seed != 0 {
		return cfg.Simulation.Seed, nil
	}
	seed := entropy.NewSeed(context.Background(), entropy.NewClient(cfg.Simulation.RandomOrgKey))
	slog.Info("drew a fresh world seed", "seed", seed)
	return seed, nil
}

func (s *session) save() error {
	var err error
	s.sim.Exclusive(func() { err = s.db.SaveWorldState(s.sim) })
	return err
}

func (s *session) close() {
	if err := s.db.Close(); err != nil {
		slog.Warn("closing database", "error", err)
	}
}
