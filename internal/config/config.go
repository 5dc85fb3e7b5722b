// Package config loads runtime settings from defaults, an optional YAML
// file, an optional .env file and HANDRECEIPT_* environment variables, in
// that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines runtime configuration.
type Config struct {
	DB     DBConfig     `yaml:"db"`
	Log    LogConfig    `yaml:"log"`
	Output OutputConfig `yaml:"output"`
	Proof  ProofConfig  `yaml:"proof"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// ProofConfig controls PNG proof rendering.
type ProofConfig struct {
	TemplateImage string  `yaml:"template_image"`
	Scale         float64 `yaml:"scale"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DB:     DBConfig{Path: "handreceipt.sqlite3"},
		Log:    LogConfig{Level: "info"},
		Output: OutputConfig{Dir: "."},
		Proof:  ProofConfig{Scale: 2},
	}
}

// Load builds the configuration. path names a YAML file and may be empty,
// in which case HANDRECEIPT_CONFIG is consulted. envFile names a dotenv
// file; when empty a .env in the working directory is used if present.
func Load(path, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("HANDRECEIPT_CONFIG")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("HANDRECEIPT_DB_PATH"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("HANDRECEIPT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HANDRECEIPT_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("HANDRECEIPT_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("HANDRECEIPT_TEMPLATE_IMAGE"); v != "" {
		cfg.Proof.TemplateImage = v
	}
	if v := os.Getenv("HANDRECEIPT_PROOF_SCALE"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid HANDRECEIPT_PROOF_SCALE: %w", err)
		}
		cfg.Proof.Scale = scale
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.DB.Path) == "":
		return errors.New("db path must be provided")
	case c.Proof.Scale <= 0:
		return fmt.Errorf("proof scale must be positive, got %v", c.Proof.Scale)
	case c.Output.Dir == "":
		return errors.New("output dir must be provided")
	}
	return nil
}
