package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap/zapcore"

	"finitefield.org/geostudio-web/internal/mapwidget"
)

// EnvPrefix prefixes every environment override. Sections are separated by a
// double underscore: GEOSTUDIO_SERVER__ADDR sets server.addr.
const EnvPrefix = "GEOSTUDIO_"

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid")

// Config is the complete runtime configuration.
type Config struct {
	Server  ServerConfig     `yaml:"server" koanf:"server"`
	Session SessionConfig    `yaml:"session" koanf:"session"`
	Shell   ShellConfig      `yaml:"shell" koanf:"shell"`
	Site    SiteConfig       `yaml:"site" koanf:"site"`
	Map     mapwidget.Config `yaml:"map" koanf:"map"`
	Log     LogConfig        `yaml:"log" koanf:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr" koanf:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" koanf:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" koanf:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" koanf:"shutdown_timeout"`
}

// SessionConfig holds cookie session settings. An empty hash key makes the
// server generate an ephemeral one at start-up.
type SessionConfig struct {
	HashKey  string        `yaml:"hash_key" koanf:"hash_key"`
	BlockKey string        `yaml:"block_key" koanf:"block_key"`
	Secure   bool          `yaml:"secure" koanf:"secure"`
	Lifetime time.Duration `yaml:"lifetime" koanf:"lifetime"`
}

// ShellConfig controls how long idle view-state is kept.
type ShellConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl" koanf:"idle_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval" koanf:"sweep_interval"`
}

// SiteConfig controls rendering.
type SiteConfig struct {
	Dev          bool   `yaml:"dev" koanf:"dev"`
	TemplatesDir string `yaml:"templates_dir" koanf:"templates_dir"`
	ContentFile  string `yaml:"content_file" koanf:"content_file"`
	BaseURL      string `yaml:"base_url" koanf:"base_url"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level" koanf:"level"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			Lifetime: 24 * time.Hour,
		},
		Shell: ShellConfig{
			IdleTTL:       2 * time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		Site: SiteConfig{
			TemplatesDir: "internal/views/templates",
		},
		Map: mapwidget.DefaultConfig(),
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from the YAML file at path when it exists, then
// overlays GEOSTUDIO_* environment variables and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path = strings.TrimSpace(path); path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalid)
	}
	for name, d := range map[string]time.Duration{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.idle_timeout":     c.Server.IdleTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"session.lifetime":        c.Session.Lifetime,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalid, name)
		}
	}
	if n := len(c.Session.HashKey); n > 0 && n < 32 {
		return fmt.Errorf("%w: session.hash_key must be at least 32 bytes", ErrInvalid)
	}
	switch len(c.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("%w: session.block_key must be 16, 24 or 32 bytes", ErrInvalid)
	}
	if c.Shell.IdleTTL < 0 {
		return fmt.Errorf("%w: shell.idle_ttl must be non-negative", ErrInvalid)
	}
	if c.Shell.IdleTTL > 0 && c.Shell.SweepInterval <= 0 {
		return fmt.Errorf("%w: shell.sweep_interval must be positive when idle_ttl is set", ErrInvalid)
	}
	if c.Site.Dev && strings.TrimSpace(c.Site.TemplatesDir) == "" {
		return fmt.Errorf("%w: site.templates_dir is required in dev mode", ErrInvalid)
	}
	if base := strings.TrimSpace(c.Site.BaseURL); base != "" {
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: site.base_url must be an absolute url", ErrInvalid)
		}
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	if err := c.Map.Validate(); err != nil {
		return fmt.Errorf("%w: map: %v", ErrInvalid, err)
	}
	return nil
}
