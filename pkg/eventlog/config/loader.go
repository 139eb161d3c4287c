package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// settingKeys are the top-level keys FromConfig reads. "redis" holds the
// nested form of the redis_* settings.
var settingKeys = map[string]bool{
	"base_uri":           true,
	"origin":             true,
	"file":               true,
	"models_uri_format":  true,
	"max_payload_length": true,
	"lock_ttl":           true,
	"fetch_timeout":      true,
	"store":              true,
	"redis_addr":         true,
	"redis_password":     true,
	"redis_db":           true,
	"redis":              true,
	"sqlite_path":        true,
	"key_prefix":         true,
	"listen_addr":        true,
}

var redisKeys = map[string]bool{
	"addr":     true,
	"password": true,
	"db":       true,
}

// FromFile reads a settings document, choosing the decoder by extension:
// .yaml, .yml or .json.
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	}
	return Config{}, fmt.Errorf("unsupported config file extension %q for %s", ext, path)
}

// FromYAML decodes a YAML settings document.
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON decodes a JSON settings document.
func FromJSON(data []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return New(m), nil
}

// UnknownKeys returns the keys in cfg that no setting reads, sorted. Keys
// under the redis section are reported as "redis.<key>". A misspelled key
// would otherwise be ignored silently and its setting left at the default.
func UnknownKeys(cfg Config) []string {
	var unknown []string
	for _, k := range cfg.Keys() {
		if !settingKeys[k] {
			unknown = append(unknown, k)
		}
	}
	for _, k := range cfg.Section("redis").Keys() {
		if !redisKeys[k] {
			unknown = append(unknown, "redis."+k)
		}
	}
	sort.Strings(unknown)
	return unknown
}
