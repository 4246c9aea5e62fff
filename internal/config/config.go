// Package config loads the settings of the chatflow binaries.
//
// Values come from three layers, later ones winning: built-in defaults, a YAML
// (or JSON) file, and the environment. A .env file next to the process is read
// into the environment first.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the file read when no path is given.
const DefaultPath = "chatflow.yaml"

// EnvPrefix prefixes every chatflow environment variable.
const EnvPrefix = "CHATFLOW_"

// Session backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the root of chatflow.yaml.
type Config struct {
	LogLevel     string    `yaml:"log_level" json:"log_level"`
	LogFormat    string    `yaml:"log_format" json:"log_format"`
	MaxInputSize int       `yaml:"max_input_size" json:"max_input_size"`
	StepLimit    int       `yaml:"step_limit" json:"step_limit"`
	Server       Server    `yaml:"server" json:"server"`
	Templates    Templates `yaml:"templates" json:"templates"`
	Sessions     Sessions  `yaml:"sessions" json:"sessions"`
	Providers    Providers `yaml:"providers" json:"providers"`
	Actions      Actions   `yaml:"actions" json:"actions"`
}

// Server configures the HTTP channel.
type Server struct {
	Port    int  `yaml:"port" json:"port"`
	Metrics bool `yaml:"metrics" json:"metrics"`
}

// Templates configures where published graphs are read from. SQLite wins over
// Dir when both are set.
type Templates struct {
	Dir      string        `yaml:"dir" json:"dir"`
	SQLite   string        `yaml:"sqlite" json:"sqlite"`
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// Sessions configures the session store.
type Sessions struct {
	Backend string `yaml:"backend" json:"backend"`
	Dir     string `yaml:"dir" json:"dir"`
	SQLite  string `yaml:"sqlite" json:"sqlite"`
	Redis   Redis  `yaml:"redis" json:"redis"`

	// EncryptionKey is a base64 AES-256 key. Empty disables encryption.
	EncryptionKey string `yaml:"encryption_key" json:"encryption_key"`
	// FallbackKeys decrypt sessions written before a key rotation.
	FallbackKeys []string `yaml:"fallback_keys" json:"fallback_keys"`
}

// Redis configures the redis session store and distributed lock.
type Redis struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	Prefix   string        `yaml:"prefix" json:"prefix"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
	LockTTL  time.Duration `yaml:"lock_ttl" json:"lock_ttl"`
}

// Providers configures the AI and voice adapters and the retry policy.
type Providers struct {
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
	Backoff    time.Duration `yaml:"backoff" json:"backoff"`
	OpenAI     OpenAI        `yaml:"openai" json:"openai"`
	Minimax    Minimax       `yaml:"minimax" json:"minimax"`
}

// OpenAI configures the openai adapter.
type OpenAI struct {
	APIKey  string `yaml:"api_key" json:"api_key"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	Model   string `yaml:"model" json:"model"`
}

// Minimax configures the minimax adapter.
type Minimax struct {
	APIKey  string `yaml:"api_key" json:"api_key"`
	GroupID string `yaml:"group_id" json:"group_id"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	Model   string `yaml:"model" json:"model"`
}

// Actions configures the backend of action nodes. Commands names a YAML or
// JSON file of local commands; action types it does not list go to the webhook.
type Actions struct {
	Commands   string            `yaml:"commands" json:"commands"`
	WebhookURL string            `yaml:"webhook_url" json:"webhook_url"`
	Headers    map[string]string `yaml:"headers" json:"headers"`
	Timeout    time.Duration     `yaml:"timeout" json:"timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Server:    Server{Port: 8080, Metrics: true},
		Templates: Templates{
			Dir:      "templates",
			CacheTTL: time.Minute,
		},
		Sessions: Sessions{
			Backend: BackendMemory,
			Dir:     filepath.Join(".chatflow", "sessions"),
			Redis:   Redis{Addr: "localhost:6379"},
		},
		Providers: Providers{
			Timeout:    30 * time.Second,
			MaxRetries: 1,
			Backoff:    500 * time.Millisecond,
		},
	}
}

// Load builds the configuration from path. A missing file is not an error
// unless the path was given explicitly.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if err := cfg.readFile(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg.finish()
		}
		return nil, err
	}
	return cfg.finish()
}

func (c *Config) finish() (*Config, error) {
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays environment variables. lookup is os.LookupEnv outside tests.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(dst *string, names ...string) {
		for _, name := range names {
			if v, ok := lookup(name); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	num := func(dst *int, name string) {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(dst *time.Duration, name string) {
		if v, ok := lookup(name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}

	str(&c.LogLevel, EnvPrefix+"LOG_LEVEL")
	str(&c.LogFormat, EnvPrefix+"LOG_FORMAT")
	num(&c.MaxInputSize, EnvPrefix+"MAX_INPUT_SIZE")
	num(&c.StepLimit, EnvPrefix+"STEP_LIMIT")
	num(&c.Server.Port, EnvPrefix+"PORT")

	str(&c.Templates.Dir, EnvPrefix+"TEMPLATES_DIR")
	str(&c.Templates.SQLite, EnvPrefix+"TEMPLATES_SQLITE")
	dur(&c.Templates.CacheTTL, EnvPrefix+"TEMPLATES_CACHE_TTL")

	str(&c.Sessions.Backend, EnvPrefix+"SESSIONS_BACKEND")
	str(&c.Sessions.Dir, EnvPrefix+"SESSIONS_DIR")
	str(&c.Sessions.SQLite, EnvPrefix+"SESSIONS_SQLITE")
	str(&c.Sessions.EncryptionKey, EnvPrefix+"ENCRYPTION_KEY")
	str(&c.Sessions.Redis.Addr, EnvPrefix+"REDIS_ADDR")
	str(&c.Sessions.Redis.Password, EnvPrefix+"REDIS_PASSWORD")
	num(&c.Sessions.Redis.DB, EnvPrefix+"REDIS_DB")
	dur(&c.Sessions.Redis.TTL, EnvPrefix+"SESSION_TTL")

	dur(&c.Providers.Timeout, EnvPrefix+"PROVIDER_TIMEOUT")
	num(&c.Providers.MaxRetries, EnvPrefix+"PROVIDER_MAX_RETRIES")
	str(&c.Providers.OpenAI.APIKey, EnvPrefix+"OPENAI_API_KEY", "OPENAI_API_KEY")
	str(&c.Providers.OpenAI.BaseURL, EnvPrefix+"OPENAI_BASE_URL", "OPENAI_BASE_URL")
	str(&c.Providers.Minimax.APIKey, EnvPrefix+"MINIMAX_API_KEY", "MINIMAX_API_KEY")
	str(&c.Providers.Minimax.GroupID, EnvPrefix+"MINIMAX_GROUP_ID", "MINIMAX_GROUP_ID")

	str(&c.Actions.Commands, EnvPrefix+"ACTIONS_COMMANDS")
	str(&c.Actions.WebhookURL, EnvPrefix+"ACTIONS_WEBHOOK_URL")

	return errors.Join(errs...)
}

// Validate rejects settings the binaries cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	switch c.Sessions.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	case BackendSQLite:
		if c.Sessions.SQLite == "" {
			errs = append(errs, errors.New("sessions.sqlite is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown sessions.backend %q", c.Sessions.Backend))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Providers.MaxRetries < 0 {
		errs = append(errs, errors.New("providers.max_retries must not be negative"))
	}
	if c.Templates.Dir == "" && c.Templates.SQLite == "" {
		errs = append(errs, errors.New("templates.dir or templates.sqlite is required"))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
