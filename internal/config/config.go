// Package config loads tally.yaml, applies TALLY_* environment overrides
// and validates the result.
package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/tally/internal/logging"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no explicit file is given. It may be absent.
const DefaultPath = "tally.yaml"

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Redis   RedisConfig   `yaml:"redis"`
	Session SessionConfig `yaml:"session"`
	History HistoryConfig `yaml:"history"`
	Input   InputConfig   `yaml:"input"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr" validate:"required,hostname_port"`
	Metrics bool   `yaml:"metrics"`
}

// RedisConfig enables the shared store when URL is set.
type RedisConfig struct {
	URL    string        `yaml:"url" validate:"omitempty,url"`
	Prefix string        `yaml:"prefix" validate:"required"`
	TTL    time.Duration `yaml:"ttl" validate:"gte=0s"`
}

type SessionConfig struct {
	LockTTL time.Duration `yaml:"lock_ttl" validate:"gt=0s"`
	// EncryptionKey (base64, 32 bytes) seals stored sessions with AES-GCM.
	EncryptionKey string `yaml:"encryption_key" validate:"omitempty,base64"`
	// PreviousKeys still open sessions sealed before a key rotation.
	PreviousKeys []string `yaml:"previous_keys" validate:"omitempty,dive,base64"`
}

type HistoryConfig struct {
	Capacity int `yaml:"capacity" validate:"gte=1,lte=1000"`
}

type InputConfig struct {
	MaxSize int `yaml:"max_size" validate:"gte=1,lte=1048576"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: ":8080"},
		Redis:   RedisConfig{Prefix: "tally:session:"},
		Session: SessionConfig{LockTTL: 30 * time.Second},
		History: HistoryConfig{Capacity: 10},
		Input:   InputConfig{MaxSize: 4096},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults, then applies the environment.
// An empty path means DefaultPath, which is optional.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type envVar struct {
	name string
	set  func(cfg *Config, value string) error
}

var envVars = []envVar{
	{"TALLY_SERVER_ADDR", func(c *Config, v string) error { c.Server.Addr = v; return nil }},
	{"TALLY_SERVER_METRICS", func(c *Config, v string) (err error) { c.Server.Metrics, err = strconv.ParseBool(v); return }},
	{"TALLY_REDIS_URL", func(c *Config, v string) error { c.Redis.URL = v; return nil }},
	{"TALLY_REDIS_PREFIX", func(c *Config, v string) error { c.Redis.Prefix = v; return nil }},
	{"TALLY_REDIS_TTL", func(c *Config, v string) (err error) { c.Redis.TTL, err = time.ParseDuration(v); return }},
	{"TALLY_SESSION_LOCK_TTL", func(c *Config, v string) (err error) { c.Session.LockTTL, err = time.ParseDuration(v); return }},
	{"TALLY_ENCRYPTION_KEY", func(c *Config, v string) error { c.Session.EncryptionKey = v; return nil }},
	{"TALLY_PREVIOUS_KEYS", func(c *Config, v string) error {
		c.Session.PreviousKeys = nil
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				c.Session.PreviousKeys = append(c.Session.PreviousKeys, k)
			}
		}
		return nil
	}},
	{"TALLY_HISTORY_CAPACITY", func(c *Config, v string) (err error) { c.History.Capacity, err = strconv.Atoi(v); return }},
	{"TALLY_MAX_INPUT_SIZE", func(c *Config, v string) (err error) { c.Input.MaxSize, err = strconv.Atoi(v); return }},
	{"TALLY_LOG_LEVEL", func(c *Config, v string) error { c.Log.Level = strings.ToLower(v); return nil }},
	{"TALLY_LOG_FORMAT", func(c *Config, v string) error { c.Log.Format = strings.ToLower(v); return nil }},
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(ev.name)
		if !ok || v == "" {
			continue
		}
		if err := ev.set(c, v); err != nil {
			return fmt.Errorf("invalid %s: %w", ev.name, err)
		}
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate reports every invalid field by its YAML path.
func (c Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		if strings.HasPrefix(field, "session.encryption_key") || strings.HasPrefix(field, "session.previous_keys") {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q", field, fe.Tag()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", field, fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// EncryptionKeys decodes the session keys. active is nil when encryption is off.
func (c Config) EncryptionKeys() (active []byte, previous [][]byte, err error) {
	if c.Session.EncryptionKey == "" {
		return nil, nil, nil
	}
	if active, err = base64.StdEncoding.DecodeString(c.Session.EncryptionKey); err != nil {
		return nil, nil, fmt.Errorf("session.encryption_key: %w", err)
	}
	for i, k := range c.Session.PreviousKeys {
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(k))
		if err != nil {
			return nil, nil, fmt.Errorf("session.previous_keys[%d]: %w", i, err)
		}
		previous = append(previous, key)
	}
	return active, previous, nil
}

// LogLevel returns the parsed log level.
func (c Config) LogLevel() slog.Level {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// LogFormat returns the handler format for the logger.
func (c Config) LogFormat() logging.Format {
	if c.Log.Format == "json" {
		return logging.FormatJSON
	}
	return logging.FormatText
}
