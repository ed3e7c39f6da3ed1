// internal/config/config.go
// Package: config
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. LOADBENCH_MOCK=1.
const EnvPrefix = "LOADBENCH"

// Config holds the resolved harness settings.
type Config struct {
	// URL of the page under test. Empty means the local server on Port.
	URL         string `json:"url"`
	Runs        int    `json:"runs"`
	TimeoutMS   int    `json:"timeout_ms"`
	Mock        bool   `json:"mock"`
	SkipPrepare bool   `json:"skip_prepare"`
	Port        int    `json:"port"`
	OutputDir   string `json:"output_dir"`

	// Environment preparation.
	BuildCommand  []string      `json:"build_command"`
	Artifacts     []string      `json:"artifacts"`
	ServeDir      string        `json:"serve_dir"`
	ArtifactDir   string        `json:"artifact_dir"` // relative to ServeDir
	SettleDelay   time.Duration `json:"settle_delay"`
	ServerCommand []string      `json:"server_command"` // empty: "<self> serve"

	// Browser and page contract.
	Headless      bool   `json:"headless"`
	ChromePath    string `json:"chrome_path"`
	StartSelector string `json:"start_selector"`
	MetricsGlobal string `json:"metrics_global"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
	TUI       bool   `json:"tui"`
	Debug     bool   `json:"debug"`
}

// Defaults applied by New.
var defaults = map[string]any{
	"url":            "",
	"runs":           10,
	"timeout":        120000,
	"mock":           false,
	"skip-prepare":   false,
	"port":           8080,
	"output-dir":     "bench-results",
	"build-command":  "wasm-pack build droneforge-web --release --target web",
	"artifacts":      []string{"droneforge-web/pkg/droneforge_web_bg.wasm", "droneforge-web/pkg/droneforge_web.js"},
	"serve-dir":      "web",
	"artifact-dir":   "pkg",
	"settle-delay":   "1s",
	"server-command": "",
	"headless":       true,
	"chrome-path":    "",
	"start-selector": "#start-button",
	"metrics-global": "droneforgeMetrics",
	"log-level":      "info",
	"log-format":     "text",
	"tui":            false,
	"debug":          false,
}

// New returns a viper instance with defaults and LOADBENCH_* environment
// overrides wired. Flags are bound by the caller.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load resolves the configuration from v, reading the file named by the
// "config" key first when set.
func Load(v *viper.Viper) (*Config, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
	}

	cfg := &Config{
		URL:           strings.TrimSpace(v.GetString("url")),
		Runs:          v.GetInt("runs"),
		TimeoutMS:     v.GetInt("timeout"),
		Mock:          v.GetBool("mock"),
		SkipPrepare:   v.GetBool("skip-prepare"),
		Port:          v.GetInt("port"),
		OutputDir:     v.GetString("output-dir"),
		BuildCommand:  commandLine(v, "build-command"),
		Artifacts:     v.GetStringSlice("artifacts"),
		ServeDir:      v.GetString("serve-dir"),
		ArtifactDir:   v.GetString("artifact-dir"),
		SettleDelay:   v.GetDuration("settle-delay"),
		ServerCommand: commandLine(v, "server-command"),
		Headless:      v.GetBool("headless"),
		ChromePath:    v.GetString("chrome-path"),
		StartSelector: v.GetString("start-selector"),
		MetricsGlobal: v.GetString("metrics-global"),
		LogLevel:      v.GetString("log-level"),
		LogFormat:     v.GetString("log-format"),
		TUI:           v.GetBool("tui"),
		Debug:         v.GetBool("debug"),
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// commandLine accepts either a single string ("cmd arg arg") or a list.
func commandLine(v *viper.Viper, key string) []string {
	switch raw := v.Get(key).(type) {
	case []string:
		return raw
	case []any:
		return v.GetStringSlice(key)
	default:
		return strings.Fields(v.GetString(key))
	}
}

func validate(cfg *Config) error {
	if cfg.Runs < 1 {
		return errors.New("runs must be at least 1")
	}
	if cfg.TimeoutMS <= 0 {
		return errors.New("timeout must be greater than 0")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port %d out of range", cfg.Port)
	}
	if cfg.OutputDir == "" {
		return errors.New("output-dir is required")
	}
	if cfg.SettleDelay < 0 {
		return errors.New("settle-delay must not be negative")
	}
	if cfg.NeedsPrepare() {
		if len(cfg.BuildCommand) == 0 {
			return errors.New("build-command is required unless skip-prepare is set")
		}
		if len(cfg.Artifacts) == 0 {
			return errors.New("at least one artifact is required unless skip-prepare is set")
		}
		if cfg.ServeDir == "" {
			return errors.New("serve-dir is required unless skip-prepare is set")
		}
	}
	if !cfg.Mock && cfg.StartSelector == "" {
		return errors.New("start-selector is required in live mode")
	}
	return nil
}

// NeedsPrepare reports whether the build/serve steps run. Mock mode never
// touches the environment.
func (c *Config) NeedsPrepare() bool {
	return !c.Mock && !c.SkipPrepare
}

// Timeout is the per-step wait limit.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// TargetURL is the page under test.
func (c *Config) TargetURL() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("http://127.0.0.1:%d/", c.Port)
}

// Mode is the report label of the execution mode.
func (c *Config) Mode() string {
	if c.Mock {
		return "mock"
	}
	return "playwright"
}
