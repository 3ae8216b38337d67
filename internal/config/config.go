// Package config provides YAML-based configuration for the server and CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig is the root of the configuration file.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Intake   IntakeConfig   `yaml:"intake"`
	Logging  LoggingConfig  `yaml:"logging"`
	Advanced AdvancedConfig `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bindAddress"`
	EnableCORS   bool   `yaml:"enableCors"`
	AllowOrigins string `yaml:"allowOrigins"`
	ReadTimeout  int    `yaml:"readTimeoutSeconds"`
	WriteTimeout int    `yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `yaml:"idleTimeoutSeconds"`
	BodyLimit    string `yaml:"bodyLimit"`
}

// IntakeConfig tunes the conversion pipeline.
type IntakeConfig struct {
	NamingDelayMs  int   `yaml:"namingDelayMs"`
	ConvertDelayMs int   `yaml:"convertDelayMs"`
	MaxFileSize    int64 `yaml:"maxFileSizeBytes"`
}

// LoggingConfig selects log level, encoding and an optional rotated file.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Encoding   string `yaml:"encoding"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// AdvancedConfig contains tuning options.
type AdvancedConfig struct {
	EnableRequestLogging bool `yaml:"enableRequestLogging"`
	EnableCompression    bool `yaml:"enableCompression"`
	CompressionLevel     int  `yaml:"compressionLevel"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "64M",
		},
		Intake: IntakeConfig{
			NamingDelayMs:  400,
			ConvertDelayMs: 600,
			MaxFileSize:    16 << 20,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Encoding:   "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Advanced: AdvancedConfig{
			EnableRequestLogging: true,
			EnableCompression:    true,
			CompressionLevel:     5,
		},
	}
}

// LoadConfig loads configuration from a YAML file, creating it with
// defaults when missing. A .env file next to it is loaded before the
// environment overrides are applied.
func LoadConfig(configPath string) (*AppConfig, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	envFile := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# htmlmd configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *AppConfig) applyEnvironmentOverrides() error {
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		c.Server.Port = p
	}

	if addr := os.Getenv("HTMLMD_BIND_ADDRESS"); addr != "" {
		c.Server.BindAddress = addr
	}

	if level := os.Getenv("HTMLMD_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	for key, dst := range map[string]*int{
		"HTMLMD_NAMING_DELAY_MS":  &c.Intake.NamingDelayMs,
		"HTMLMD_CONVERT_DELAY_MS": &c.Intake.ConvertDelayMs,
	} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = ms
	}
	return nil
}

// Validate rejects values the server cannot start with.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Intake.NamingDelayMs < 0 || c.Intake.ConvertDelayMs < 0 {
		errs = append(errs, errors.New("intake delays must not be negative"))
	}
	if c.Intake.MaxFileSize < 0 {
		errs = append(errs, errors.New("intake.maxFileSizeBytes must not be negative"))
	}
	switch strings.ToLower(c.Logging.Encoding) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.encoding %q must be console or json", c.Logging.Encoding))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetServerAddr returns the server bind address.
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// NamingDelay is the pause before the inferred name is published.
func (c IntakeConfig) NamingDelay() time.Duration {
	return time.Duration(c.NamingDelayMs) * time.Millisecond
}

// ConvertDelay is the pause before conversion starts.
func (c IntakeConfig) ConvertDelay() time.Duration {
	return time.Duration(c.ConvertDelayMs) * time.Millisecond
}

// Origins splits AllowOrigins, defaulting to "*".
func (c ServerConfig) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
