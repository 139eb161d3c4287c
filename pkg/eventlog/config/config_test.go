package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/eventlog/pkg/eventlog/config"
)

// TestNew verifies Config creation from maps.
func TestNew(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
	}{
		{"nil map", nil},
		{"empty map", map[string]any{}},
		{"with values", map[string]any{"key": "value"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(tt.data)
			assert.Len(t, cfg.Keys(), len(tt.data))
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want string
	}{
		{"key exists", map[string]any{"origin": "enwiki"}, "enwiki"},
		{"key missing", map[string]any{"other": "value"}, "default"},
		{"empty string", map[string]any{"origin": ""}, ""},
		{"wrong type int", map[string]any{"origin": 123}, "default"},
		{"nil map", nil, "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := config.New(tt.data).String("origin", "default")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  time.Duration
	}{
		{"string", "45s", 45 * time.Second},
		{"complex string", "1m30s", 90 * time.Second},
		{"int seconds", 30, 30 * time.Second},
		{"int64 seconds", int64(12), 12 * time.Second},
		{"float seconds", 1.5, 1500 * time.Millisecond},
		{"duration", 2 * time.Second, 2 * time.Second},
		{"invalid string", "soon", 10 * time.Second},
		{"wrong type", true, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(map[string]any{"lock_ttl": tt.value})
			assert.Equal(t, tt.want, cfg.Duration("lock_ttl", 10*time.Second))
		})
	}

	t.Run("missing", func(t *testing.T) {
		assert.Equal(t, 10*time.Second, config.New(nil).Duration("lock_ttl", 10*time.Second))
	})
}

func TestBool(t *testing.T) {
	cfg := config.New(map[string]any{"on": true, "str": "true"})
	assert.True(t, cfg.Bool("on", false))
	assert.False(t, cfg.Bool("str", false))
	assert.True(t, cfg.Bool("missing", true))
}

func TestInt(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"int", 255, 255},
		{"int64", int64(512), 512},
		{"whole float", float64(100), 100},
		{"fractional float", 2.5, -1},
		{"string", "255", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(map[string]any{"max": tt.value})
			assert.Equal(t, tt.want, cfg.Int("max", -1))
		})
	}
}

func TestSection(t *testing.T) {
	cfg := config.New(map[string]any{
		"redis": map[string]any{"addr": "localhost:6379"},
		"flat":  "value",
	})

	assert.Equal(t, "localhost:6379", cfg.Section("redis").String("addr", ""))
	assert.Empty(t, cfg.Section("flat").Keys())
	assert.Empty(t, cfg.Section("missing").Keys())
}

func TestKeys(t *testing.T) {
	cfg := config.New(map[string]any{"origin": "a", "base_uri": nil, "redis": map[string]any{}})
	assert.Equal(t, []string{"base_uri", "origin", "redis"}, cfg.Keys())
}
