package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/randalmurphal/eventlog/pkg/eventlog/observability"
)

// Defaults applied when neither the file nor the environment sets a value.
const (
	DefaultMaxPayloadLength = 255
	DefaultLockTTL          = 30 * time.Second
	DefaultListenAddr       = ":8080"
)

// Settings is the typed view of an eventlog deployment's configuration.
//
// Values come from a YAML or JSON file first, then EVENTLOG_* environment
// variables override whatever the file set.
type Settings struct {
	// BaseURI is the beacon endpoint events are sent to. Empty disables
	// client-side dispatch.
	BaseURI string `env:"EVENTLOG_BASE_URI"`

	// Origin identifies the producing site and is sent as the _db
	// provenance field.
	Origin string `env:"EVENTLOG_ORIGIN"`

	// File is the server-side sink: a path, udp://host:port or tcp://host:port.
	File string `env:"EVENTLOG_FILE"`

	// ModelsURIFormat is the fmt template used to fetch a model by name,
	// e.g. "https://meta.example.org/schema/%s?action=raw".
	ModelsURIFormat string `env:"EVENTLOG_MODELS_URI_FORMAT"`

	MaxPayloadLength int           `env:"EVENTLOG_MAX_PAYLOAD_LENGTH"`
	LockTTL          time.Duration `env:"EVENTLOG_LOCK_TTL"`
	FetchTimeout     time.Duration `env:"EVENTLOG_FETCH_TIMEOUT"`

	// Store selects the shared cache backend: "memory", "redis" or "sqlite".
	Store         string `env:"EVENTLOG_STORE"`
	RedisAddr     string `env:"EVENTLOG_REDIS_ADDR"`
	RedisPassword string `env:"EVENTLOG_REDIS_PASSWORD"`
	RedisDB       int    `env:"EVENTLOG_REDIS_DB"`
	SQLitePath    string `env:"EVENTLOG_SQLITE_PATH"`
	KeyPrefix     string `env:"EVENTLOG_KEY_PREFIX"`

	ListenAddr string `env:"EVENTLOG_LISTEN_ADDR"`

	// UnknownKeys lists keys in the loaded file that no setting reads.
	UnknownKeys []string
}

// FromConfig extracts Settings from a decoded document. Redis options may be
// given flat (redis_addr) or nested under a "redis" section.
func FromConfig(cfg Config) Settings {
	redis := cfg.Section("redis")
	return Settings{
		BaseURI:          cfg.String("base_uri", ""),
		Origin:           cfg.String("origin", ""),
		File:             cfg.String("file", ""),
		ModelsURIFormat:  cfg.String("models_uri_format", ""),
		MaxPayloadLength: cfg.Int("max_payload_length", DefaultMaxPayloadLength),
		LockTTL:          cfg.Duration("lock_ttl", DefaultLockTTL),
		FetchTimeout:     cfg.Duration("fetch_timeout", 0),
		Store:            cfg.String("store", "memory"),
		RedisAddr:        cfg.String("redis_addr", redis.String("addr", "")),
		RedisPassword:    cfg.String("redis_password", redis.String("password", "")),
		RedisDB:          cfg.Int("redis_db", redis.Int("db", 0)),
		SQLitePath:       cfg.String("sqlite_path", ""),
		KeyPrefix:        cfg.String("key_prefix", ""),
		ListenAddr:       cfg.String("listen_addr", DefaultListenAddr),
	}
}

// Load reads Settings from path (skipped when empty) and applies
// environment overrides.
func Load(path string) (Settings, error) {
	cfg := New(nil)
	if path != "" {
		var err error
		if cfg, err = FromFile(path); err != nil {
			return Settings{}, err
		}
	}

	s := FromConfig(cfg)
	s.UnknownKeys = UnknownKeys(cfg)
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}

// Check logs every deployment variable that is unset and returns their
// setting names. Unset variables are not fatal; the affected feature is
// simply disabled. Unknown file keys are logged as warnings as well.
func (s Settings) Check(logger *slog.Logger) []string {
	vars := []struct {
		name  string
		value string
	}{
		{"base_uri", s.BaseURI},
		{"origin", s.Origin},
		{"file", s.File},
		{"models_uri_format", s.ModelsURIFormat},
	}

	for _, k := range s.UnknownKeys {
		observability.LogConfigUnknown(logger, k)
	}

	var unset []string
	for _, v := range vars {
		if v.value == "" {
			observability.LogConfigUnset(logger, v.name)
			unset = append(unset, v.name)
		}
	}
	return unset
}
