// Package config handles configuration loading from YAML files, .env files and
// environment variables.
// Configuration precedence: CLI flags > environment > .env file > config file > embedded > defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the config reads.
const EnvPrefix = "PROCWATCH_"

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "15s", "30s", "1m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all procwatch configuration.
type Config struct {
	Report      ReportConfig      `yaml:"report"`
	Consumption ConsumptionConfig `yaml:"consumption"`
	Server      ServerConfig      `yaml:"server"`
	Agent       AgentConfig       `yaml:"agent"`
	Buffer      BufferConfig      `yaml:"buffer"`
	Docker      DockerConfig      `yaml:"docker"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ReportConfig controls how the process table is read and rendered.
type ReportConfig struct {
	ProcRoot    string `yaml:"proc_root"`
	FullCmdline bool   `yaml:"full_cmdline"`
	UTC         bool   `yaml:"utc"`
	Indent      bool   `yaml:"indent"`
}

// ConsumptionConfig holds the limits splitting container processes into low
// and high consumption.
type ConsumptionConfig struct {
	MemoryThresholdKb uint64   `yaml:"memory_threshold_kb"`
	CPUScoreThreshold int      `yaml:"cpu_score_threshold"`
	Exclude           []string `yaml:"exclude"`
}

// ServerConfig holds the report HTTP surface settings.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// AgentConfig holds the report shipping settings.
type AgentConfig struct {
	Enabled       bool     `yaml:"enabled"`
	URL           string   `yaml:"url"`
	Token         string   `yaml:"token"`
	Interval      Duration `yaml:"interval"`
	BatchInterval Duration `yaml:"batch_interval"`
	Kinds         []string `yaml:"kinds"`
}

// BufferConfig holds the offline batch buffer settings.
type BufferConfig struct {
	Dir       string `yaml:"dir"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// DockerConfig holds container runtime inventory settings.
type DockerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Report: ReportConfig{
			ProcRoot: "/proc",
			Indent:   true,
		},
		Consumption: ConsumptionConfig{
			MemoryThresholdKb: 30000,
			CPUScoreThreshold: 2,
			Exclude:           []string{"grafana", "containerd", "dockerd"},
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:3001",
		},
		Agent: AgentConfig{
			URL:           "http://localhost:3000",
			Interval:      Duration{15 * time.Second},
			BatchInterval: Duration{60 * time.Second},
			Kinds:         []string{"summary", "system", "containers"},
		},
		Buffer: BufferConfig{
			Dir:       defaultBufferDir(),
			MaxSizeMB: 50,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// CLIOverrides holds values from command-line flags.
// Empty strings are treated as "not set" and skipped.
type CLIOverrides struct {
	Listen   string
	URL      string
	Token    string
	LogLevel string
	EnvFile  string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain.
//
// An optional configPath argument controls external-file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value  → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		if err := mergeFile(cfg, filePath); err != nil {
			return nil, err
		}
	}

	// godotenv never overrides variables already set in the process
	// environment, so real env vars keep precedence over the .env file.
	if err := loadEnvFile(cli.EnvFile); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if cli.Listen != "" {
		cfg.Server.Listen = cli.Listen
	}
	if cli.URL != "" {
		cfg.Agent.URL = cli.URL
	}
	if cli.Token != "" {
		cfg.Agent.Token = cli.Token
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}

	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// loadEnvFile loads an explicit .env file, or ./.env when present.
func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading env file %s: %w", path, err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("loading .env: %w", err)
		}
	}
	return nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnvOverrides applies PROCWATCH_* variables to the configuration.
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"PROC_ROOT":   &cfg.Report.ProcRoot,
		"LISTEN":      &cfg.Server.Listen,
		"AGENT_URL":   &cfg.Agent.URL,
		"AGENT_TOKEN": &cfg.Agent.Token,
		"BUFFER_DIR":  &cfg.Buffer.Dir,
		"DOCKER_HOST": &cfg.Docker.Host,
		"LOG_LEVEL":   &cfg.Logging.Level,
		"LOG_FILE":    &cfg.Logging.File,
	}
	for key, dst := range strs {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"FULL_CMDLINE":   &cfg.Report.FullCmdline,
		"UTC":            &cfg.Report.UTC,
		"INDENT":         &cfg.Report.Indent,
		"AGENT_ENABLED":  &cfg.Agent.Enabled,
		"DOCKER_ENABLED": &cfg.Docker.Enabled,
	}
	for key, dst := range bools {
		v := os.Getenv(EnvPrefix + key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, key, v, err)
		}
		*dst = b
	}

	durations := map[string]*Duration{
		"AGENT_INTERVAL":       &cfg.Agent.Interval,
		"AGENT_BATCH_INTERVAL": &cfg.Agent.BatchInterval,
	}
	for key, dst := range durations {
		v := os.Getenv(EnvPrefix + key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, key, v, err)
		}
		dst.Duration = d
	}

	if v := os.Getenv(EnvPrefix + "AGENT_KINDS"); v != "" {
		cfg.Agent.Kinds = strings.Split(v, ",")
	}
	return nil
}

var validKinds = map[string]bool{"summary": true, "system": true, "containers": true, "consumption": true}

// Validate checks settings shared by every command.
func (c *Config) Validate() error {
	if c.Report.ProcRoot == "" {
		return fmt.Errorf("report.proc_root is required")
	}
	if c.Consumption.MemoryThresholdKb == 0 {
		return fmt.Errorf("consumption.memory_threshold_kb must be positive")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

// ValidateServer checks the settings the report server needs.
func (c *Config) ValidateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		return fmt.Errorf("invalid server.listen %q: %w", c.Server.Listen, err)
	}
	return nil
}

// ValidateAgent checks that the shipping agent can run. Non-localhost URLs
// must use HTTPS.
func (c *Config) ValidateAgent() error {
	if c.Agent.URL == "" {
		return fmt.Errorf("agent URL is required")
	}
	if c.Agent.Token == "" {
		return fmt.Errorf("agent token is required")
	}
	if !strings.HasPrefix(c.Agent.URL, "https://") {
		if !strings.Contains(c.Agent.URL, "localhost") && !strings.Contains(c.Agent.URL, "127.0.0.1") {
			return fmt.Errorf("agent URL must use HTTPS (got: %s)", c.Agent.URL)
		}
	}
	if c.Agent.Interval.Duration <= 0 || c.Agent.BatchInterval.Duration <= 0 {
		return fmt.Errorf("agent intervals must be positive")
	}
	if len(c.Agent.Kinds) == 0 {
		return fmt.Errorf("agent.kinds must name at least one report")
	}
	for _, k := range c.Agent.Kinds {
		if !validKinds[strings.TrimSpace(k)] {
			return fmt.Errorf("unknown report kind %q in agent.kinds", k)
		}
	}
	return nil
}
