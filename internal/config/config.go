// Package config loads PoliteMail settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file when none is given.
const DefaultPath = "politemail.yaml"

// Config holds runtime settings for the web app and the CLI.
type Config struct {
	Addr            string   `yaml:"addr"`
	BaseURL         string   `yaml:"base_url"`
	From            string   `yaml:"from"`
	FromName        string   `yaml:"from_name"`
	SecretKey       string   `yaml:"secret_key"`
	Database        string   `yaml:"database"`
	TemplatesDir    string   `yaml:"templates_dir"`
	StaticDir       string   `yaml:"static_dir"`
	Debug           bool     `yaml:"debug"`
	LoginTTL        Duration `yaml:"login_ttl"`
	MaxExtraOptions int      `yaml:"max_extra_options"`
}

// Duration decodes YAML strings such as "1h" or "90m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("config: duration: %w", err)
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("config: duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// Default returns the settings used for anything the file leaves out.
func Default() Config {
	return Config{
		Addr:            ":8080",
		From:            "politemail@example.com",
		FromName:        "PoliteMail",
		Database:        "politemail.db",
		LoginTTL:        Duration{time.Hour},
		MaxExtraOptions: 20,
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports settings the web app cannot run without.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.SecretKey) == "" {
		problems = append(problems, "secret_key is required")
	}
	if strings.TrimSpace(c.Addr) == "" {
		problems = append(problems, "addr is required")
	}
	if strings.TrimSpace(c.Database) == "" {
		problems = append(problems, "database is required")
	}
	if c.LoginTTL.Duration <= 0 {
		problems = append(problems, "login_ttl must be positive")
	}
	if c.MaxExtraOptions < 0 {
		problems = append(problems, "max_extra_options cannot be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
