// Package config loads simulation settings from defaults, an optional YAML file and the
// environment, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/talgya/concord/internal/diplomacy"
	"github.com/talgya/concord/internal/engine"
	"github.com/talgya/concord/internal/influence"
	"github.com/talgya/concord/internal/memory"
	"github.com/talgya/concord/internal/world"
)

// Config is every setting the binary reads.
type Config struct {
	Simulation SimulationConfig         `yaml:"simulation"`
	World      world.GenConfig          `yaml:"world"`
	Database   DatabaseConfig           `yaml:"database"`
	Server     ServerConfig             `yaml:"server"`
	Diplomacy  diplomacy.Tuning         `yaml:"diplomacy"`
	Influence  influence.Config         `yaml:"influence"`
	Memory     MemoryConfig             `yaml:"memory"`
	Impacts    map[string]memory.Impact `yaml:"impacts"`
	Log        LogConfig                `yaml:"log"`
}

type SimulationConfig struct {
	// Seed drives world generation and every random stream. Zero asks random.org for
	// one when a key is configured.
	Seed         int64         `yaml:"seed"`
	Speed        float64       `yaml:"speed"`
	Interval     time.Duration `yaml:"interval"`
	ActionChance float64       `yaml:"action_chance"`
	EventBuffer  int           `yaml:"event_buffer"`
	SaveEvery    int           `yaml:"save_every"` // months between saves
	RandomOrgKey string        `yaml:"random_org_key"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	AdminKey  string `yaml:"admin_key"`
	RateLimit int    `yaml:"rate_limit"` // admin requests per minute
}

type MemoryConfig struct {
	MaxEvents int `yaml:"max_events"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Simulation: SimulationConfig{
			Seed:         42,
			Speed:        1.0,
			Interval:     time.Second,
			ActionChance: 0.3,
			EventBuffer:  1000,
			SaveEvery:    12,
		},
		World:     world.DefaultGenConfig(),
		Database:  DatabaseConfig{Path: "data/concord.db"},
		Server:    ServerConfig{Enabled: true, Port: 8080, RateLimit: 30},
		Diplomacy: diplomacy.DefaultTuning(),
		Influence: influence.DefaultConfig(),
		Memory:    MemoryConfig{MaxEvents: memory.DefaultMaxEvents},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads defaults, then the YAML file at path (skipped when empty), then a .env file
// and the CONCORD_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CONCORD_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("CONCORD_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CONCORD_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("CONCORD_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CONCORD_SEED: %w", err)
		}
		c.Simulation.Seed = seed
	}
	if v := os.Getenv("CONCORD_ADMIN_KEY"); v != "" {
		c.Server.AdminKey = v
	}
	if v := os.Getenv("CONCORD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CONCORD_RANDOM_ORG_KEY"); v != "" {
		c.Simulation.RandomOrgKey = v
	}
	return nil
}

// Validate reports settings the simulation cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Simulation.Speed < 0 {
		errs = append(errs, fmt.Errorf("simulation.speed must not be negative"))
	}
	if c.Simulation.Interval <= 0 {
		errs = append(errs, fmt.Errorf("simulation.interval must be positive"))
	}
	if c.Simulation.ActionChance < 0 || c.Simulation.ActionChance > 1 {
		errs = append(errs, fmt.Errorf("simulation.action_chance must be within [0,1]"))
	}
	if c.World.Radius < 2 || c.World.Realms < 2 {
		errs = append(errs, fmt.Errorf("world needs a radius and realm count of at least 2"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.MemoryImpacts(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses log.level.
func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.Log.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// MemoryImpacts returns the stock impact table with the configured overrides applied.
func (c Config) MemoryImpacts() (memory.Impacts, error) {
	return memory.DefaultImpacts().WithOverrides(c.Impacts)
}

// EngineOptions converts the configuration into simulation options.
func (c Config) EngineOptions() (engine.Options, error) {
	impacts, err := c.MemoryImpacts()
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{
		Seed:            c.Simulation.Seed,
		ActionChance:    c.Simulation.ActionChance,
		EventBuffer:     c.Simulation.EventBuffer,
		MaxMemoryEvents: c.Memory.MaxEvents,
		Tuning:          c.Diplomacy,
		Influence:       c.Influence,
		Impacts:         impacts,
	}, nil
}

// WorldConfig returns the generation settings seeded from the simulation seed.
func (c Config) WorldConfig() world.GenConfig {
	g := c.World
	g.Seed = c.Simulation.Seed
	return g
}
