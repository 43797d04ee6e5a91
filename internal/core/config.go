package core

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

const (
	DefaultAPIURL         = "http://localhost:8000"
	DefaultMessagePoll    = 3 * time.Second
	DefaultGroupPoll      = 5 * time.Second
	DefaultRequestTimeout = 20 * time.Second
	DefaultToastDuration  = 2500 * time.Millisecond

	configFileName = "config.yaml"
	envHome        = "GCHAT_HOME"
	envAPIURL      = "GCHAT_API_URL"
	envSound       = "GCHAT_SOUND"
	envLogLevel    = "GCHAT_LOG_LEVEL"
)

// Config holds client settings.
type Config struct {
	APIURL         string          `yaml:"api_url"`
	MessagePoll    Duration        `yaml:"message_poll"`
	GroupPoll      Duration        `yaml:"group_poll"`
	RequestTimeout Duration        `yaml:"request_timeout"`
	Sound          bool            `yaml:"sound"`
	NotifyDesktop  bool            `yaml:"notify_desktop"`
	LogLevel       string          `yaml:"log_level"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`

	// Path is the file the config was read from, if any.
	Path string `yaml:"-"`
}

// RateLimitConfig bounds outgoing request rate.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Duration accepts "3s" style strings or numeric seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		APIURL:         DefaultAPIURL,
		MessagePoll:    Duration(DefaultMessagePoll),
		GroupPoll:      Duration(DefaultGroupPoll),
		RequestTimeout: Duration(DefaultRequestTimeout),
		Sound:          true,
		LogLevel:       "info",
		RateLimit:      RateLimitConfig{RPS: 5, Burst: 10},
	}
}

// HomeDir returns the gchat state directory.
func HomeDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(envHome)); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gchat"), nil
}

// DefaultConfigPath is the config file used when none is given.
func DefaultConfigPath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// EnsureHomeDir creates the state directory if needed.
func EnsureHomeDir() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// LoadConfig builds the effective config. Precedence: environment, .env in
// the working directory, config file, defaults. An empty path means the
// default location; a missing file is not an error.
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load(".env")

	cfg := DefaultConfig()
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return cfg, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.Path = path
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(envAPIURL)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(envSound)); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", envSound, err)
		}
		cfg.Sound = enabled
	}
	if v := strings.TrimSpace(os.Getenv(envLogLevel)); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// Validate fills zero intervals with defaults and rejects unusable values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("api_url cannot be empty")
	}
	if c.MessagePoll <= 0 {
		c.MessagePoll = Duration(DefaultMessagePoll)
	}
	if c.GroupPoll <= 0 {
		c.GroupPoll = Duration(DefaultGroupPoll)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout cannot be negative")
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values cannot be negative")
	}
	return nil
}

// WriteConfig writes cfg as YAML to path.
func WriteConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
