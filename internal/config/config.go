// Package config loads the agent's runtime configuration: built-in
// defaults, overridden by a JSON file, overridden by environment variables,
// with built-in defaults filling any field still left zero. Layering and
// validation follow the same Default / ApplyDefaults / Validate /
// LoadOrDefault / Save shape as the teacher's own configuration package.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nextlevelbuilder/vibeagent/internal/atomicfile"
)

// Config is the fully-resolved runtime configuration for one agent run.
type Config struct {
	Provider          string  `json:"provider"`
	BaseURL           string  `json:"base_url"`
	APIKey            string  `json:"-"`
	Model             string  `json:"model"`
	Temperature       float64 `json:"temperature,omitempty"`
	MaxIterations     int     `json:"max_iterations"`
	ToolTimeoutMS     int     `json:"tool_timeout_ms"`
	MaxToolOutputChars int    `json:"max_tool_output_chars"`
	MaxScanFiles      int     `json:"max_scan_files"`
	AutoRepairRounds  int     `json:"auto_repair_rounds"`
	AutoVerify        bool    `json:"auto_verify"`
	WorkspaceRoot     string  `json:"workspace_root"`
	StateDir          string  `json:"state_dir"`
}

// Default returns the built-in baseline configuration.
func Default() Config {
	return Config{
		Provider:           "groq",
		BaseURL:            "https://api.groq.com/openai/v1",
		Model:              "llama-3.3-70b-versatile",
		Temperature:        0.2,
		MaxIterations:      6,
		ToolTimeoutMS:      120000,
		MaxToolOutputChars: 18000,
		MaxScanFiles:       6000,
		AutoRepairRounds:   3,
		AutoVerify:         true,
		WorkspaceRoot:      ".",
		StateDir:           ".vibe-agent",
	}
}

// ApplyDefaults fills any zero-valued field from Default().
func (c *Config) ApplyDefaults() {
	d := Default()
	if c.Provider == "" {
		c.Provider = d.Provider
	}
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.Temperature == 0 {
		c.Temperature = d.Temperature
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.ToolTimeoutMS == 0 {
		c.ToolTimeoutMS = d.ToolTimeoutMS
	}
	if c.MaxToolOutputChars == 0 {
		c.MaxToolOutputChars = d.MaxToolOutputChars
	}
	if c.MaxScanFiles == 0 {
		c.MaxScanFiles = d.MaxScanFiles
	}
	if c.AutoRepairRounds == 0 {
		c.AutoRepairRounds = d.AutoRepairRounds
	}
	if c.WorkspaceRoot == "" {
		c.WorkspaceRoot = d.WorkspaceRoot
	}
	if c.StateDir == "" {
		c.StateDir = d.StateDir
	}
}

// Validate checks invariants the orchestrator depends on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("model is required")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("base_url is required")
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be >= 1, got %d", c.MaxIterations)
	}
	if c.ToolTimeoutMS < 1 {
		return fmt.Errorf("tool_timeout_ms must be >= 1, got %d", c.ToolTimeoutMS)
	}
	if c.MaxToolOutputChars < 1 {
		return fmt.Errorf("max_tool_output_chars must be >= 1, got %d", c.MaxToolOutputChars)
	}
	if c.MaxScanFiles < 1 {
		return fmt.Errorf("max_scan_files must be >= 1, got %d", c.MaxScanFiles)
	}
	if c.AutoRepairRounds < 0 {
		return errors.New("auto_repair_rounds cannot be negative")
	}
	if strings.TrimSpace(c.WorkspaceRoot) == "" {
		return errors.New("workspace_root cannot be empty")
	}
	if strings.TrimSpace(c.StateDir) == "" {
		return errors.New("state_dir cannot be empty")
	}
	return nil
}

// applyEnv overlays recognized environment variables onto c. Unset or
// unparsable variables are left untouched.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := firstSet(lookup, "VIBE_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY"); ok {
		c.APIKey = v
	}
	if v, ok := firstSet(lookup, "VIBE_BASE_URL", "GROQ_BASE_URL"); ok {
		c.BaseURL = v
	}
	if v, ok := firstSet(lookup, "VIBE_MODEL", "GROQ_MODEL"); ok {
		c.Model = v
	}
	if v, ok := lookup("VIBE_MAX_ITERATIONS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxIterations = n
		}
	}
	if v, ok := lookup("VIBE_TOOL_TIMEOUT_MS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.ToolTimeoutMS = n
		}
	}
	if v, ok := lookup("VIBE_MAX_TOOL_OUTPUT_CHARS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxToolOutputChars = n
		}
	}
	if v, ok := lookup("VIBE_MAX_SCAN_FILES"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxScanFiles = n
		}
	}
	if v, ok := lookup("VIBE_AUTO_REPAIR_ROUNDS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.AutoRepairRounds = n
		}
	}
	if v, ok := lookup("VIBE_AUTO_VERIFY"); ok {
		c.AutoVerify = v != "0" && !strings.EqualFold(v, "false")
	}
	if v, ok := lookup("VIBE_STATE_DIR"); ok {
		c.StateDir = v
	}
}

func firstSet(lookup func(string) (string, bool), keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := lookup(k); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// LoadOrDefault loads path if present, applying env-var and default
// layering on top; if path does not exist, it returns the defaults layered
// with environment overrides.
func LoadOrDefault(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if raw, err := os.ReadFile(path); err == nil {
			if jsonErr := json.Unmarshal(raw, &cfg); jsonErr != nil {
				return Config{}, fmt.Errorf("parse config: %w", jsonErr)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save persists cfg as indented JSON at path via an atomic write-with-backup.
func Save(path string, cfg Config) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	buf, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	buf = append(buf, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomicfile.WriteWithBackup(path, buf, 0o600)
}
