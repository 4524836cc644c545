// Package config loads the portforge.toml configuration file. Flags set
// on the CLI override file values; file values override the defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName = "portforge"
	configType = "toml"
	configDir  = ".portforge"
)

// Assistant configures the conversion assistant endpoint.
type Assistant struct {
	URL            string `toml:"url"`
	Model          string `toml:"model"`
	EmbedModel     string `toml:"embed_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Retry configures the bounded-retry policy for transient invocation faults.
type Retry struct {
	Attempts    int `toml:"attempts"`
	BaseDelayMS int `toml:"base_delay_ms"`
	MaxDelayMS  int `toml:"max_delay_ms"`
}

// Corpus describes the source side of the port.
type Corpus struct {
	SourceExt      string `toml:"source_ext"`
	SourceLanguage string `toml:"source_language"`
	TargetLanguage string `toml:"target_language"`
}

// Output describes where and how artifacts are written.
type Output struct {
	Dir       string `toml:"dir"`
	Ext       string `toml:"ext"`
	KeepNotes bool   `toml:"keep_notes"`
	Examples  int    `toml:"examples"`
}

// Config is the full portforge configuration.
type Config struct {
	Assistant Assistant `toml:"assistant"`
	Retry     Retry     `toml:"retry"`
	Corpus    Corpus    `toml:"corpus"`
	Output    Output    `toml:"output"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Assistant: Assistant{
			URL:            "http://localhost:11434",
			Model:          "qwen3:8b",
			EmbedModel:     "nomic-embed-text",
			TimeoutSeconds: 300,
		},
		Retry: Retry{
			Attempts:    3,
			BaseDelayMS: 1000,
			MaxDelayMS:  30000,
		},
		Corpus: Corpus{
			SourceExt:      ".py",
			SourceLanguage: "Python",
			TargetLanguage: "Go",
		},
		Output: Output{
			Dir:       "ported",
			Ext:       ".go",
			KeepNotes: true,
			Examples:  3,
		},
	}
}

// Timeout returns the per-invocation timeout.
func (a Assistant) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// BaseDelay returns the first backoff delay.
func (r Retry) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// MaxDelay returns the backoff ceiling.
func (r Retry) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMS) * time.Millisecond
}

// Load reads the configuration. With an explicit path the file must
// exist; otherwise viper searches the working directory and
// ~/.portforge, and a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		v := viper.New()
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, configDir))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return cfg, nil
			}
			return cfg, fmt.Errorf("read config: %w", err)
		}
		path = v.ConfigFileUsed()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as TOML, creating parent directories.
func (c Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
