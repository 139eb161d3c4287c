// Package modelcache resolves schema documents from a remote authority
// through a shared cache, with at most one fetch per model per lock window.
package modelcache

import (
	"context"
	"errors"
	"time"
)

// Store is the shared cache the model cache coordinates through. Every
// worker resolving models must see the same Store.
//
// Implementations must be safe for concurrent use, and Add must be atomic
// across every process sharing the store.
type Store interface {
	// Get returns the value for key and whether it is present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Add stores value only if key is absent or expired, and reports
	// whether it did. ttl 0 means no expiry.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Set stores value unconditionally. ttl 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases any resources (connections, files).
	Close() error
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("model cache store closed")

// StoreOption configures the MemoryStore and SQLiteStore.
type StoreOption func(*storeOptions)

type storeOptions struct {
	now func() time.Time
}

func defaultStoreOptions() storeOptions {
	return storeOptions{now: time.Now}
}

// WithStoreClock sets the clock used for expiry. Tests use it to move time
// forward without sleeping.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(o *storeOptions) {
		o.now = now
	}
}

// Keys builds the per-model cache keys. Each model has a value, a lock and
// an mtime key; the kind is part of the key so kinds never collide, and the
// model name is last so names never collide within a kind.
type Keys struct {
	// Prefix namespaces every key, e.g. per wiki or per deployment.
	Prefix string
}

// Value is the key holding the model's JSON document.
func (k Keys) Value(model string) string { return k.key("value", model) }

// Lock is the key gating the remote fetch.
func (k Keys) Lock(model string) string { return k.key("lock", model) }

// Mtime is the key holding the model's first-observed unix time.
func (k Keys) Mtime(model string) string { return k.key("mtime", model) }

func (k Keys) key(kind, model string) string {
	if k.Prefix == "" {
		return kind + ":" + model
	}
	return k.Prefix + ":" + kind + ":" + model
}
