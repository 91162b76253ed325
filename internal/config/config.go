// Package config is the single source of truth for runtime configuration
// and filesystem paths. Configuration is loaded from an optional YAML file
// with IMPACT_* environment variables taking precedence, then validated.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/etl.log"`
}

// PathsConfig contains the filesystem layout of a pipeline run
type PathsConfig struct {
	BaseDir  string `yaml:"base_dir" envconfig:"BASE_DIR"`
	RawDir   string `yaml:"raw_dir" envconfig:"RAW_DIR" default:"data_raw" validate:"required"`
	CleanDir string `yaml:"clean_dir" envconfig:"CLEAN_DIR" default:"data_clean" validate:"required"`
	LogsDir  string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// PipelineConfig contains pipeline behavior knobs
type PipelineConfig struct {
	// BootstrapMissing generates a seeded synthetic extract for any raw
	// file that is absent, so a fresh checkout runs end to end.
	BootstrapMissing bool  `yaml:"bootstrap_missing" envconfig:"BOOTSTRAP_MISSING" default:"true"`
	BootstrapSeed    int64 `yaml:"bootstrap_seed" envconfig:"BOOTSTRAP_SEED" default:"42"`
	// ExcelBOM prefixes exported CSVs with a UTF-8 BOM so Excel opens
	// them with the right encoding.
	ExcelBOM bool `yaml:"excel_bom" envconfig:"EXCEL_BOM" default:"true"`
}

// ServerConfig contains the report API server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// Load loads configuration from the given YAML file (if it exists) and
// environment variables, environment winning on conflicts.
func Load(configFile string) (*Config, error) {
	var cfg Config

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			data, err := os.ReadFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Environment variables override the file; envconfig also applies
	// struct defaults for anything still unset.
	if err := envconfig.Process("IMPACT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills zero values that envconfig leaves untouched when the
// field was already populated from YAML with an empty string.
func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "console"
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = "logs/etl.log"
	}
	if cfg.Paths.RawDir == "" {
		cfg.Paths.RawDir = "data_raw"
	}
	if cfg.Paths.CleanDir == "" {
		cfg.Paths.CleanDir = "data_clean"
	}
	if cfg.Paths.LogsDir == "" {
		cfg.Paths.LogsDir = "logs"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
}

// validate checks the configuration using struct tags
func (c *Config) validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	return nil
}
