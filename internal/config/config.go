// Package config loads guardsim application settings from an optional
// config file and GUARDSIM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/ppiankov/guardsim/internal/artifact"
)

// EnvPrefix is the prefix of environment overrides, e.g. GUARDSIM_LOG_LEVEL.
const EnvPrefix = "GUARDSIM"

// Config holds application settings. Run inputs (tools, policy, tasks) are
// not settings; they are loaded by the snapshot package.
type Config struct {
	InputDir    string        `mapstructure:"input_dir"`
	OutputDir   string        `mapstructure:"output_dir"`
	Concurrency int           `mapstructure:"concurrency"`
	HistoryDB   string        `mapstructure:"history_db"`
	AuditLog    string        `mapstructure:"audit_log"`
	Log         LogConfig     `mapstructure:"log"`
	Storage     StorageConfig `mapstructure:"storage"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Log record formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// StorageConfig selects where run artifacts are written.
type StorageConfig struct {
	Type string            `mapstructure:"type"`
	S3   artifact.S3Config `mapstructure:"s3"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		InputDir:    ".",
		OutputDir:   "runs",
		Concurrency: 1,
		Log:         LogConfig{Level: "info", Format: LogFormatText},
		Storage:     StorageConfig{Type: string(artifact.StoreTypeFS)},
	}
}

// Dir returns the guardsim config directory.
func Dir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".guardsim")
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads settings from path, or from Path() when path is empty.
// A missing default file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	file := path
	if file == "" {
		if _, err := os.Stat(Path()); err == nil {
			file = Path()
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found", file)
			}
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
	}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("input_dir", cfg.InputDir)
	v.SetDefault("output_dir", cfg.OutputDir)
	v.SetDefault("concurrency", cfg.Concurrency)
	v.SetDefault("history_db", cfg.HistoryDB)
	v.SetDefault("audit_log", cfg.AuditLog)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.prefix", "")
}

// Validate checks values and fills derived defaults.
func (c *Config) Validate() error {
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if c.Concurrency == 0 {
		c.Concurrency = 1
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		c.OutputDir = "runs"
	}
	if strings.TrimSpace(c.InputDir) == "" {
		c.InputDir = "."
	}

	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "":
		c.Log.Level = "info"
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}

	switch format := strings.ToLower(strings.TrimSpace(c.Log.Format)); format {
	case "":
		c.Log.Format = LogFormatText
	case LogFormatText, LogFormatJSON:
		c.Log.Format = format
	default:
		return fmt.Errorf("log.format must be text or json; got %q", c.Log.Format)
	}

	switch artifact.StoreType(strings.ToLower(c.Storage.Type)) {
	case "", artifact.StoreTypeFS:
		c.Storage.Type = string(artifact.StoreTypeFS)
	case artifact.StoreTypeS3:
		c.Storage.Type = string(artifact.StoreTypeS3)
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when storage.type is s3")
		}
	default:
		return fmt.Errorf("storage.type must be fs or s3; got %q", c.Storage.Type)
	}
	return nil
}

// ArtifactConfig returns the artifact store configuration.
func (c *Config) ArtifactConfig() artifact.Config {
	return artifact.Config{
		Type: artifact.StoreType(c.Storage.Type),
		Dir:  c.OutputDir,
		S3:   c.Storage.S3,
	}
}

// HistoryPath returns the run index location, defaulting to output_dir/history.db.
func (c *Config) HistoryPath() string {
	if c.HistoryDB != "" {
		return c.HistoryDB
	}
	return filepath.Join(c.OutputDir, "history.db")
}
