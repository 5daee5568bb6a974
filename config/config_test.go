package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFromReaderOverridesDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`
server:
  listen_addr: ":9999"
fragments:
  golden_chance: 0.25
  max_per_realm: 40
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.ListenAddr != ":9999" {
		t.Fatalf("listen_addr not applied: %q", cfg.Server.ListenAddr)
	}
	if cfg.Fragments.GoldenChance != 0.25 {
		t.Fatalf("golden_chance not applied: %v", cfg.Fragments.GoldenChance)
	}
	// Untouched fields keep their defaults.
	if cfg.World.TickInterval != 50*time.Millisecond {
		t.Fatalf("tick interval default lost: %v", cfg.World.TickInterval)
	}
	if len(cfg.World.Realms) != 5 {
		t.Fatalf("realm defaults lost: %v", cfg.World.Realms)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("server:\n  listne_addr: \":9\"\n"))
	if err == nil {
		t.Fatal("expected error for misspelled field")
	}
}

func TestValidateCatchesBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no realms", func(c *Config) { c.World.Realms = nil }},
		{"duplicate realm", func(c *Config) { c.World.Realms = []string{"a", "a"} }},
		{"zero tick", func(c *Config) { c.World.TickInterval = 0 }},
		{"golden chance over 1", func(c *Config) { c.Fragments.GoldenChance = 1.5 }},
		{"slack under 1", func(c *Config) { c.Fragments.CollectSlack = 0.5 }},
		{"damping out of range", func(c *Config) { c.Bots.Damping = 1.2 }},
		{"seed above cap", func(c *Config) { c.Fragments.InitialPerRealm = c.Fragments.MaxPerRealm + 1 }},
		{"zero window", func(c *Config) { c.Limits.Window = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Fatal("expected validation failure")
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()
	t.Setenv("STARFALL_ADDR", ":7001")
	t.Setenv("STARFALL_LOG_LEVEL", "debug")
	ApplyEnv(cfg)
	if cfg.Server.ListenAddr != ":7001" {
		t.Fatalf("addr override lost: %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Fatalf("log level override lost: %q", cfg.Server.LogLevel)
	}
}

func TestApplyEnvPortFallback(t *testing.T) {
	cfg := Default()
	t.Setenv("STARFALL_ADDR", "")
	t.Setenv("PORT", "9090")
	ApplyEnv(cfg)
	if cfg.Server.ListenAddr != ":9090" {
		t.Fatalf("PORT fallback lost: %q", cfg.Server.ListenAddr)
	}
}
