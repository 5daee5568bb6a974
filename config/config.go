// Package config provides the configuration schema and loader for the
// Starfall world server. Gameplay tunables live here so that operators can
// adjust them without a rebuild; every field has a compiled-in default.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for the Starfall server.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server         ServerConfig        `yaml:"server"`
	World          WorldConfig         `yaml:"world"`
	Fragments      FragmentConfig      `yaml:"fragments"`
	Bots           BotConfig           `yaml:"bots"`
	Constellations ConstellationConfig `yaml:"constellations"`
	Limits         LimitConfig         `yaml:"limits"`
	Persistence    PersistenceConfig   `yaml:"persistence"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// StaticDir is served under /static/. Empty disables static serving.
	StaticDir string `yaml:"static_dir"`
}

// WorldConfig fixes the realm set and coordinate space.
type WorldConfig struct {
	// Realms is the fixed realm list. The first entry is the default realm
	// for connections that do not request one. Never mutated at runtime.
	Realms []string `yaml:"realms"`

	// Bound clamps every coordinate to [-Bound, +Bound].
	Bound float64 `yaml:"bound"`

	// TickInterval is the simulation/broadcast period.
	TickInterval time.Duration `yaml:"tick_interval"`

	// EchoTTL is how long a dropped echo stays visible.
	EchoTTL time.Duration `yaml:"echo_ttl"`

	// EchoCap bounds live echoes per realm.
	EchoCap int `yaml:"echo_cap"`

	// LitStarCap bounds the global lit-star set carried in snapshots.
	LitStarCap int `yaml:"lit_star_cap"`
}

// FragmentConfig tunes the collectible economy.
type FragmentConfig struct {
	MaxPerRealm     int           `yaml:"max_per_realm"`
	SpawnInterval   time.Duration `yaml:"spawn_interval"`
	GoldenChance    float64       `yaml:"golden_chance"`
	Value           int           `yaml:"value"`
	GoldenValue     int           `yaml:"golden_value"`
	CollectRadius   float64       `yaml:"collect_radius"`
	CollectSlack    float64       `yaml:"collect_slack"`
	SpawnSpread     float64       `yaml:"spawn_spread"`
	InitialPerRealm int           `yaml:"initial_per_realm"`
}

// BotConfig tunes the NPC population and behavior envelope.
type BotConfig struct {
	MinPopulation int     `yaml:"min_population"`
	SenseRadius   float64 `yaml:"sense_radius"`
	Damping       float64 `yaml:"damping"`
	HomeRadius    float64 `yaml:"home_radius"`
}

// ConstellationConfig tunes the social-cluster detector.
type ConstellationConfig struct {
	ScanInterval time.Duration `yaml:"scan_interval"`
	Radius       float64       `yaml:"radius"`
	Cooldown     time.Duration `yaml:"cooldown"`

	// Tier XP, keyed by tier name.
	TriangleXP int `yaml:"triangle_xp"`
	SquareXP   int `yaml:"square_xp"`
	StarXP     int `yaml:"star_xp"`
	GalaxyXP   int `yaml:"galaxy_xp"`
}

// LimitConfig tunes input throttling and idle cleanup.
type LimitConfig struct {
	// MessagesPerWindow is the per-connection message cap inside Window.
	MessagesPerWindow int           `yaml:"messages_per_window"`
	Window            time.Duration `yaml:"window"`

	// AcceptPerSecond / AcceptBurst throttle websocket upgrades per IP.
	AcceptPerSecond float64 `yaml:"accept_per_second"`
	AcceptBurst     int     `yaml:"accept_burst"`

	// IdleSweepInterval / IdleCutoff close connections that stopped talking.
	IdleSweepInterval time.Duration `yaml:"idle_sweep_interval"`
	IdleCutoff        time.Duration `yaml:"idle_cutoff"`

	// NameMaxRunes caps sanitized display names.
	NameMaxRunes int `yaml:"name_max_runes"`
}

// PersistenceConfig locates the player store.
type PersistenceConfig struct {
	// Path is the sqlite database file. Empty runs without persistence.
	Path string `yaml:"path"`

	// SaveInterval is the periodic flush for all connected players.
	SaveInterval time.Duration `yaml:"save_interval"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
			StaticDir:  "./static",
		},
		World: WorldConfig{
			Realms:       []string{"aurora", "ember", "tide", "grove", "dusk"},
			Bound:        50000,
			TickInterval: 50 * time.Millisecond,
			EchoTTL:      10 * time.Second,
			EchoCap:      16,
			LitStarCap:   128,
		},
		Fragments: FragmentConfig{
			MaxPerRealm:     20,
			SpawnInterval:   5 * time.Second,
			GoldenChance:    0.10,
			Value:           1,
			GoldenValue:     5,
			CollectRadius:   60,
			CollectSlack:    1.5,
			SpawnSpread:     1500,
			InitialPerRealm: 12,
		},
		Bots: BotConfig{
			MinPopulation: 5,
			SenseRadius:   260,
			Damping:       0.94,
			HomeRadius:    2000,
		},
		Constellations: ConstellationConfig{
			ScanInterval: 2 * time.Second,
			Radius:       300,
			Cooldown:     30 * time.Second,
			TriangleXP:   25,
			SquareXP:     40,
			StarXP:       60,
			GalaxyXP:     100,
		},
		Limits: LimitConfig{
			MessagesPerWindow: 50,
			Window:            time.Second,
			AcceptPerSecond:   5,
			AcceptBurst:       10,
			IdleSweepInterval: 10 * time.Second,
			IdleCutoff:        30 * time.Second,
			NameMaxRunes:      24,
		},
		Persistence: PersistenceConfig{
			Path:         "./data/starfall.db",
			SaveInterval: 30 * time.Second,
		},
	}
}

// Load reads the YAML configuration file at path over the defaults and
// returns a validated [Config]. A missing file is not an error: the defaults
// are returned as-is.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and validates
// the result. Useful in tests where configs are built from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv layers environment overrides on top of cfg. Recognised variables:
// STARFALL_ADDR, STARFALL_DB, STARFALL_LOG_LEVEL, and plain PORT.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("STARFALL_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	} else if v := os.Getenv("PORT"); v != "" {
		cfg.Server.ListenAddr = ":" + v
	}
	if v := os.Getenv("STARFALL_DB"); v != "" {
		cfg.Persistence.Path = v
	}
	if v := os.Getenv("STARFALL_LOG_LEVEL"); LogLevel(v).IsValid() {
		cfg.Server.LogLevel = LogLevel(v)
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all failures found.
func Validate(cfg *Config) error {
	var errs []error

	if len(cfg.World.Realms) == 0 {
		errs = append(errs, errors.New("config: world.realms must name at least one realm"))
	}
	seen := make(map[string]bool, len(cfg.World.Realms))
	for _, r := range cfg.World.Realms {
		if r == "" {
			errs = append(errs, errors.New("config: world.realms contains an empty name"))
		}
		if seen[r] {
			errs = append(errs, fmt.Errorf("config: world.realms repeats %q", r))
		}
		seen[r] = true
	}
	if cfg.World.TickInterval <= 0 {
		errs = append(errs, errors.New("config: world.tick_interval must be positive"))
	}
	if cfg.World.Bound <= 0 {
		errs = append(errs, errors.New("config: world.bound must be positive"))
	}
	if cfg.Fragments.MaxPerRealm < 0 {
		errs = append(errs, errors.New("config: fragments.max_per_realm must not be negative"))
	}
	if cfg.Fragments.InitialPerRealm > cfg.Fragments.MaxPerRealm {
		errs = append(errs, errors.New("config: fragments.initial_per_realm exceeds max_per_realm"))
	}
	if cfg.Fragments.GoldenChance < 0 || cfg.Fragments.GoldenChance > 1 {
		errs = append(errs, errors.New("config: fragments.golden_chance must be in [0,1]"))
	}
	if cfg.Fragments.CollectSlack < 1 {
		errs = append(errs, errors.New("config: fragments.collect_slack must be at least 1"))
	}
	if cfg.Bots.Damping <= 0 || cfg.Bots.Damping >= 1 {
		errs = append(errs, errors.New("config: bots.damping must be in (0,1)"))
	}
	if cfg.Constellations.ScanInterval < cfg.World.TickInterval {
		errs = append(errs, errors.New("config: constellations.scan_interval must be at least one tick"))
	}
	if cfg.Limits.MessagesPerWindow <= 0 || cfg.Limits.Window <= 0 {
		errs = append(errs, errors.New("config: limits window settings must be positive"))
	}
	if cfg.Persistence.SaveInterval <= 0 {
		errs = append(errs, errors.New("config: persistence.save_interval must be positive"))
	}

	return errors.Join(errs...)
}
