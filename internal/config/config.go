// Package config loads the editor's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"photo-editor/pkg/colorutil"
)

const (
	appDir     = "photo-editor"
	configFile = "config.toml"
)

// Config is the contents of config.toml.
type Config struct {
	Performance PerformanceConfig `toml:"performance"`
	Canvas      CanvasConfig      `toml:"canvas"`
	Log         LogConfig         `toml:"log"`
	UI          UIConfig          `toml:"ui"`
}

// PerformanceConfig bounds memory held by history.
type PerformanceConfig struct {
	UndoDepth int `toml:"undo_depth"`
	RedoDepth int `toml:"redo_depth"`
}

// CanvasConfig sets the dimensions and background of new projects.
type CanvasConfig struct {
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Background string `toml:"background"`
}

// LogConfig selects the logger preset.
type LogConfig struct {
	Development bool   `toml:"development"`
	Level       string `toml:"level"`
}

// UIConfig styles the editor chrome.
type UIConfig struct {
	Theme  string `toml:"theme"`  // "dark" or "light"
	Accent string `toml:"accent"` // hex color of buttons and selection
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Performance: PerformanceConfig{UndoDepth: 100, RedoDepth: 100},
		Canvas:      CanvasConfig{Width: 1920, Height: 1080, Background: "#ffffff"},
		Log:         LogConfig{Level: "info"},
		UI:          UIConfig{Theme: "dark", Accent: "#3d8bfd"},
	}
}

// Path returns ~/.config/photo-editor/config.toml (or the platform equivalent).
func Path() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, appDir, configFile)
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating its directory.
func Save(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Performance.UndoDepth < 1 || c.Performance.RedoDepth < 1 {
		return fmt.Errorf("history depths must be at least 1")
	}
	if c.Canvas.Width < 1 || c.Canvas.Height < 1 {
		return fmt.Errorf("canvas dimensions must be positive")
	}
	if _, err := colorutil.ParseHex(c.Canvas.Background); err != nil {
		return fmt.Errorf("canvas background: %w", err)
	}
	if c.UI.Theme != "dark" && c.UI.Theme != "light" {
		return fmt.Errorf("ui theme %q must be dark or light", c.UI.Theme)
	}
	if _, err := colorutil.ParseHex(c.UI.Accent); err != nil {
		return fmt.Errorf("ui accent: %w", err)
	}
	return nil
}
