// Package benchconfig loads the daemon's process-wide configuration:
// database connection, cache directory/build id, log format/level, and
// scheduler tunables. Grounded on the layering the rest of the corpus
// uses — defaults, then an optional TOML file, then environment
// variables taking final precedence (nevindra-oasis/internal/config) —
// combined with the teacher's env-var-with-default + Validate() shape
// (pkg/database/config.go, already adapted as internal/store.Config).
package benchconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/codeready-toolchain/llmbench/internal/store"
)

// Config is the full set of knobs cmd/benchd needs to wire the system.
type Config struct {
	Database store.Config

	CacheDir   string        `toml:"cache_dir"`
	BuildID    string        `toml:"build_id"`
	CacheTTL   time.Duration `toml:"-"`
	CacheSchema string       `toml:"-"`

	LogFormat string `toml:"log_format"`
	LogLevel  string `toml:"log_level"`

	ToolConcurrency int  `toml:"tool_concurrency"`
	PerfLogging     bool `toml:"perf_logging"`

	// TaskOverlayPath optionally points at a YAML file layered over the
	// built-in task catalog (internal/task.LoadOverlay/MergeOverlay).
	TaskOverlayPath string `toml:"task_overlay_path"`
}

// tomlFile is the on-disk shape of the optional TOML config file; database
// credentials are intentionally excluded from it so they can only ever
// come from the environment (spec.md §6 "Environment").
type tomlFile struct {
	CacheDir        string `toml:"cache_dir"`
	BuildID         string `toml:"build_id"`
	LogFormat       string `toml:"log_format"`
	LogLevel        string `toml:"log_level"`
	ToolConcurrency int    `toml:"tool_concurrency"`
	PerfLogging     bool   `toml:"perf_logging"`
	TaskOverlayPath string `toml:"task_overlay_path"`
}

func defaults() Config {
	return Config{
		CacheDir:        "/var/cache/llmbench",
		CacheSchema:     "v1",
		CacheTTL:        300 * time.Second,
		LogFormat:       "json",
		LogLevel:        "info",
		ToolConcurrency: 3,
		PerfLogging:     false,
	}
}

// Load reads config: defaults -> TOML file (if tomlPath exists) -> env
// vars, with env winning every conflict, grounded on nevindra-oasis's
// config.Load layering.
func Load(tomlPath string) (Config, error) {
	cfg := defaults()

	if tomlPath != "" {
		if data, err := os.ReadFile(tomlPath); err == nil {
			var f tomlFile
			if err := toml.Unmarshal(data, &f); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", tomlPath, err)
			}
			applyTomlFile(&cfg, f)
		}
	}

	applyEnvOverrides(&cfg)

	dbCfg, err := store.LoadConfigFromEnv()
	if err != nil {
		return Config{}, fmt.Errorf("load database config: %w", err)
	}
	cfg.Database = dbCfg

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyTomlFile(cfg *Config, f tomlFile) {
	if f.CacheDir != "" {
		cfg.CacheDir = f.CacheDir
	}
	if f.BuildID != "" {
		cfg.BuildID = f.BuildID
	}
	if f.LogFormat != "" {
		cfg.LogFormat = f.LogFormat
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.ToolConcurrency > 0 {
		cfg.ToolConcurrency = f.ToolConcurrency
	}
	if f.TaskOverlayPath != "" {
		cfg.TaskOverlayPath = f.TaskOverlayPath
	}
	cfg.PerfLogging = cfg.PerfLogging || f.PerfLogging
}

// applyEnvOverrides applies the optional environment variables from
// spec.md §6: cache directory override, build id, and a performance
// logging toggle, plus the log format/level and tool-suite concurrency
// this daemon additionally exposes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LLMBENCH_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("LLMBENCH_BUILD_ID"); v != "" {
		cfg.BuildID = v
	}
	if v := os.Getenv("LLMBENCH_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("LLMBENCH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LLMBENCH_TASK_OVERLAY"); v != "" {
		cfg.TaskOverlayPath = v
	}
	if v := os.Getenv("LLMBENCH_TOOL_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ToolConcurrency = n
		}
	}
	if v := os.Getenv("LLMBENCH_PERF_LOGGING"); v == "true" || v == "1" {
		cfg.PerfLogging = true
	}
}

// Validate checks the configuration is internally consistent.
func (c Config) Validate() error {
	if c.CacheDir == "" {
		return fmt.Errorf("cache_dir must not be empty")
	}
	if c.ToolConcurrency < 1 {
		return fmt.Errorf("tool_concurrency must be at least 1")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("log_format must be \"json\" or \"text\", got %q", c.LogFormat)
	}
	return nil
}
