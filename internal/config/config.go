package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/audiolibrelab/voxcapture/internal/settings"
)

// EnvPrefix prefixes environment overrides, e.g. VOXCAPTURE_SERVER_PORT
const EnvPrefix = "VOXCAPTURE"

type Config struct {
	Audio    AudioConfig    `mapstructure:"audio" yaml:"audio"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Settings SettingsConfig `mapstructure:"settings" yaml:"settings"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

type AudioConfig struct {
	Backend            string `mapstructure:"backend" yaml:"backend"` // "malgo", "auto"
	FallbackSampleRate uint32 `mapstructure:"fallback_sample_rate" yaml:"fallback_sample_rate"`
}

type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
}

type ServerConfig struct {
	Port       string `mapstructure:"port" yaml:"port"`
	EventQueue int    `mapstructure:"event_queue" yaml:"event_queue"`
}

type SettingsConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

type LoggingConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

var defaults = map[string]any{
	"audio.backend":              "auto",
	"audio.fallback_sample_rate": 44100,
	"output.directory":           "",
	"output.prefix":              "recording",
	"server.port":                "8080",
	"server.event_queue":         64,
	"settings.file":              "",
	"logging.file":               "",
	"logging.max_size_mb":        10,
	"logging.max_backups":        3,
	"logging.max_age_days":       28,
}

// Default returns the built-in configuration without file or environment input
func Default() *Config {
	var cfg Config
	if err := newViper().Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("invalid built-in defaults: %v", err))
	}
	// Without a user config dir the settings file stays empty and callers must set it
	_ = cfg.resolvePaths()
	return &cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// Load reads configFile (if not empty), applies VOXCAPTURE_* environment
// overrides on top of the defaults, resolves paths and validates the result.
func Load(configFile string) (*Config, error) {
	v := newViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) resolvePaths() error {
	c.Output.Directory = expandPath(c.Output.Directory)
	if c.Output.Directory == "" {
		c.Output.Directory = os.TempDir()
	}

	c.Logging.File = expandPath(c.Logging.File)

	c.Settings.File = expandPath(c.Settings.File)
	if c.Settings.File == "" {
		path, err := settings.DefaultPath()
		if err != nil {
			return err
		}
		c.Settings.File = path
	}
	return nil
}

// Validate checks value ranges that viper cannot express
func (c *Config) Validate() error {
	switch strings.ToLower(c.Audio.Backend) {
	case "", "auto", "malgo":
	default:
		return fmt.Errorf("audio.backend must be 'auto' or 'malgo', got: %s", c.Audio.Backend)
	}

	if c.Audio.FallbackSampleRate < 8000 || c.Audio.FallbackSampleRate > 384000 {
		return fmt.Errorf("audio.fallback_sample_rate must be between 8000 and 384000, got: %d", c.Audio.FallbackSampleRate)
	}

	if !isValidPrefix(c.Output.Prefix) {
		return fmt.Errorf("output.prefix must be non-empty and contain only letters, digits, '-' or '_', got: %q", c.Output.Prefix)
	}

	if !isNumeric(c.Server.Port) {
		return fmt.Errorf("server.port must be numeric, got: %s", c.Server.Port)
	}
	if port, _ := strconv.Atoi(c.Server.Port); port < 1 || port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %s", c.Server.Port)
	}

	if c.Server.EventQueue < 1 {
		return fmt.Errorf("server.event_queue must be at least 1, got: %d", c.Server.EventQueue)
	}

	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging rotation limits cannot be negative")
	}

	return nil
}

// WriteDefault writes the default configuration to path.
// An existing file is left untouched.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	cfg := Default()
	// Keep machine-specific paths out of the written file
	cfg.Output.Directory = ""
	cfg.Settings.File = ""

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file %s: %w", path, err)
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

func isValidPrefix(prefix string) bool {
	if prefix == "" {
		return false
	}
	for _, r := range prefix {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
