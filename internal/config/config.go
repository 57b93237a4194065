// Package config loads cogni.yaml. Values go through a fixed pipeline:
// defaults, then the file, then environment overrides, then validation.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"cogni/internal/cognition"
)

// DefaultFile is the config filename looked up in the working directory.
const DefaultFile = "cogni.yaml"

// Safety mirrors cognition.SafetyConfig with yaml tags. Zero means "use
// the stock limit"; negative values are rejected.
type Safety struct {
	MaxFixLines                     int `yaml:"max_fix_lines"`
	MaxBacktrackDepth               int `yaml:"max_backtrack_depth"`
	MaxDeliberationsWithoutProgress int `yaml:"max_deliberations_without_progress"`
}

// Config models cogni.yaml.
type Config struct {
	Provider    string            `yaml:"provider"`
	Model       string            `yaml:"model"`
	MaxRetries  int               `yaml:"max_retries"`
	Budget      int64             `yaml:"budget"`
	Safety      Safety            `yaml:"safety"`
	TracePath   string            `yaml:"trace"`
	SandboxRoot string            `yaml:"sandbox_root"`
	Databases   map[string]string `yaml:"databases"`
	RPS         float64           `yaml:"rps"`
	Burst       int               `yaml:"burst"`
	Checkpoints int               `yaml:"checkpoints"`
}

// Default returns the configuration used when no file is present: no
// provider, three retries, unlimited budget, stock safety limits.
func Default() Config {
	return Config{
		Provider:   "off",
		MaxRetries: 3,
	}
}

// Load reads path and layers it over Default. A missing file is an error.
func Load(path string) (Config, error) {
	return load(path, false)
}

// LoadOptional behaves like Load except a missing file yields Default.
func LoadOptional(path string) (Config, error) {
	return load(path, true)
}

func load(path string, optional bool) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			cfg.applyEnv()
			if verr := cfg.validate(); verr != nil {
				return cfg, fmt.Errorf("config: %w", verr)
			}
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	// Unmarshal over the seeded struct so absent keys keep their defaults
	// while explicit zeros stick.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	cfg.normalize()
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Provider) == "" {
		c.Provider = "off"
	}
}

func (c *Config) normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "null" {
		c.Provider = "script"
	}
	c.Model = strings.TrimSpace(c.Model)
	c.TracePath = strings.TrimSpace(c.TracePath)
	c.SandboxRoot = strings.TrimSpace(c.SandboxRoot)
}

// applyEnv lets operators throttle provider traffic without editing the
// file.
func (c *Config) applyEnv() {
	if v := os.Getenv("COGNI_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RPS = f
		}
	}
	if v := os.Getenv("COGNI_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Burst = n
		}
	}
}

var providers = map[string]bool{
	"off":    true,
	"script": true,
	"openai": true,
	"gemini": true,
	"ollama": true,
}

func (c *Config) validate() error {
	if !providers[c.Provider] {
		return fmt.Errorf("unknown provider %q (want off, script, openai, gemini or ollama)", c.Provider)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.Budget < 0 {
		return fmt.Errorf("budget must be >= 0, got %d", c.Budget)
	}
	if c.RPS < 0 {
		return fmt.Errorf("rps must be >= 0, got %v", c.RPS)
	}
	if c.Burst < 0 {
		return fmt.Errorf("burst must be >= 0, got %d", c.Burst)
	}
	if c.Checkpoints < 0 {
		return fmt.Errorf("checkpoints must be >= 0, got %d", c.Checkpoints)
	}
	if c.Safety.MaxFixLines < 0 {
		return fmt.Errorf("safety.max_fix_lines must be >= 0, got %d", c.Safety.MaxFixLines)
	}
	if c.Safety.MaxBacktrackDepth < 0 {
		return fmt.Errorf("safety.max_backtrack_depth must be >= 0, got %d", c.Safety.MaxBacktrackDepth)
	}
	if c.Safety.MaxDeliberationsWithoutProgress < 0 {
		return fmt.Errorf("safety.max_deliberations_without_progress must be >= 0, got %d", c.Safety.MaxDeliberationsWithoutProgress)
	}
	for name, dsn := range c.Databases {
		if strings.TrimSpace(dsn) == "" {
			return fmt.Errorf("databases[%s]: dsn is empty", name)
		}
	}
	return nil
}

// SafetyConfig converts the yaml block into runtime limits, filling zeros
// with the stock values.
func (c Config) SafetyConfig() cognition.SafetyConfig {
	return cognition.SafetyConfig{
		MaxFixLines:                     c.Safety.MaxFixLines,
		MaxBacktrackDepth:               c.Safety.MaxBacktrackDepth,
		MaxDeliberationsWithoutProgress: c.Safety.MaxDeliberationsWithoutProgress,
	}.Normalize()
}

// CognitionOff reports whether runs should skip the agent runtime
// entirely.
func (c Config) CognitionOff() bool { return c.Provider == "off" }

// APIKey returns the selected provider's key from the environment, or "".
func (c Config) APIKey() string {
	switch c.Provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	}
	return ""
}
