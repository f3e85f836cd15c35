package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Game.Framerate != 60 {
		t.Errorf("expected framerate 60, got %d", cfg.Game.Framerate)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("expected token ttl 24h, got %v", cfg.Auth.TokenTTL)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 9100
game:
  width: 640
  height: 480
  wall_count: 3
record:
  driver: sqlite
  dsn: ":memory:"
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected port 9100, got %d", cfg.Server.Port)
	}
	if cfg.Game.Width != 640 || cfg.Game.Height != 480 {
		t.Errorf("unexpected arena %vx%v", cfg.Game.Width, cfg.Game.Height)
	}
	if cfg.Game.Framerate != 60 {
		t.Errorf("unset keys should keep defaults, got framerate %d", cfg.Game.Framerate)
	}
	if cfg.Record.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %q", cfg.Record.Driver)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PMT_GAME_WALL_COUNT", "7")
	t.Setenv("PMT_SERVER_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Game.WallCount != 7 {
		t.Errorf("expected wall count 7 from env, got %d", cfg.Game.WallCount)
	}
	if cfg.Server.LogLevel != "debug" {
		t.Errorf("expected log level debug from env, got %q", cfg.Server.LogLevel)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestGameValidate(t *testing.T) {
	base := Default().Game

	tests := []struct {
		name   string
		mutate func(g *GameConfig)
	}{
		{"zero width", func(g *GameConfig) { g.Width = 0 }},
		{"negative height", func(g *GameConfig) { g.Height = -1 }},
		{"zero scale", func(g *GameConfig) { g.Scale = 0 }},
		{"zero framerate", func(g *GameConfig) { g.Framerate = 0 }},
		{"negative walls", func(g *GameConfig) { g.WallCount = -2 }},
		{"zero rocket speed", func(g *GameConfig) { g.RocketSpeed = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := base
			tt.mutate(&g)
			err := g.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	zeroWalls := base
	zeroWalls.WallCount = 0
	if err := zeroWalls.Validate(); err != nil {
		t.Errorf("zero walls should be allowed: %v", err)
	}
}

func TestUnknownRecordDriver(t *testing.T) {
	cfg := Default()
	cfg.Record.Driver = "mongo"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestTicksFor(t *testing.T) {
	g := Default().Game
	if got := g.TicksFor(500); got != 30 {
		t.Errorf("expected 30 ticks for 500ms at 60fps, got %d", got)
	}
	if got := g.TicksFor(0); got != 1 {
		t.Errorf("expected minimum of 1 tick, got %d", got)
	}
	if got := g.TickInterval(); got != time.Second/60 {
		t.Errorf("unexpected tick interval %v", got)
	}
}
