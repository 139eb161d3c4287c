package modelcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	elerrors "github.com/randalmurphal/eventlog/pkg/eventlog/errors"
	"github.com/randalmurphal/eventlog/pkg/eventlog/observability"
	"github.com/randalmurphal/eventlog/pkg/eventlog/schema"
)

// DefaultLockTTL bounds how long one worker may hold a model's fetch lock.
const DefaultLockTTL = 30 * time.Second

// fetchTimeoutRatio keeps the fetch well inside the lock window so a slow
// fetch cannot outlive its lock and admit a second fetcher.
const fetchTimeoutRatio = 0.8

var errCachedNotObject = errors.New("cached model is not a JSON object")

// servingEmpty is the log context for failures that fall back to an empty
// model.
const servingEmpty = "serving empty model"

// Model is a resolved schema document. It is never nil.
type Model map[string]any

// Outcome describes how Resolve produced its model.
type Outcome int

// Resolve outcomes. Only OutcomeHit and OutcomeFetched carry a real model;
// the rest serve an empty one.
const (
	OutcomeHit Outcome = iota + 1
	OutcomeFetched
	OutcomeFetchFailed
	OutcomeLockUnavailable
	OutcomeStoreError
)

// String returns the outcome name used in metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeFetched:
		return "fetched"
	case OutcomeFetchFailed:
		return "fetch_failed"
	case OutcomeLockUnavailable:
		return "lock_unavailable"
	case OutcomeStoreError:
		return "store_error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Cache resolves models through a shared Store, falling back to the
// remote Fetcher on a miss. Of all the workers sharing the Store, only the
// one that wins the model's lock fetches; the others immediately get an
// empty model. Consumers never see an error.
type Cache struct {
	store        Store
	fetcher      Fetcher
	keys         Keys
	lockTTL      time.Duration
	fetchTimeout time.Duration
	valueTTL     time.Duration
	now          func() time.Time

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// Option configures a Cache.
type Option func(*Cache)

// WithLockTTL sets the fetch lock lifetime. Default 30s.
func WithLockTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.lockTTL = ttl
		}
	}
}

// WithFetchTimeout sets the remote fetch timeout. It must be below the
// lock TTL; zero or anything at or above the TTL selects 80% of the TTL.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		c.fetchTimeout = d
	}
}

// WithValueTTL sets the lifetime of cached model documents. Default 0,
// which leaves eviction to the store.
func WithValueTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.valueTTL = ttl
	}
}

// WithKeys sets the cache key scheme.
func WithKeys(k Keys) Option {
	return func(c *Cache) {
		c.keys = k
	}
}

// WithLogger sets the cache logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithMetrics enables or disables OpenTelemetry metrics.
func WithMetrics(enabled bool) Option {
	return func(c *Cache) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithMetricsRecorder sets a specific metrics recorder.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithSpanManager sets the span manager.
func WithSpanManager(sm observability.SpanManager) Option {
	return func(c *Cache) {
		c.spans = sm
	}
}

// WithClock sets the clock used for mtime values.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a Cache over store and fetcher.
func New(store Store, fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		fetcher: fetcher,
		lockTTL: DefaultLockTTL,
		now:     time.Now,
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetchTimeout <= 0 || c.fetchTimeout >= c.lockTTL {
		c.fetchTimeout = time.Duration(float64(c.lockTTL) * fetchTimeoutRatio)
	}
	return c
}

// LockTTL returns the effective lock lifetime.
func (c *Cache) LockTTL() time.Duration { return c.lockTTL }

// FetchTimeout returns the effective fetch timeout.
func (c *Cache) FetchTimeout() time.Duration { return c.fetchTimeout }

// Model returns the named model, or an empty one if it cannot be resolved
// right now.
func (c *Cache) Model(ctx context.Context, name string) Model {
	m, _ := c.Resolve(ctx, name)
	return m
}

// Resolve returns the named model and how it was obtained.
//
// A cached value is returned as is. On a miss the caller tries to take the
// model's lock; the loser returns an empty model at once, without waiting
// or retrying. The winner fetches with a timeout below the lock TTL and
// caches a successful result. The lock is never released early; it
// expires, so a failed fetch is retried no sooner than one TTL later.
func (c *Cache) Resolve(ctx context.Context, name string) (m Model, outcome Outcome) {
	defer func() {
		c.metrics.RecordModelLookup(ctx, name, outcome.String())
	}()

	raw, ok, err := c.store.Get(ctx, c.keys.Value(name))
	if err != nil {
		observability.LogStoreError(c.logger, name, "get", elerrors.Fallback(err, servingEmpty))
		return Model{}, OutcomeStoreError
	}
	if ok {
		var doc Model
		if err := json.Unmarshal(raw, &doc); err != nil {
			observability.LogStoreError(c.logger, name, "decode", elerrors.Fallback(err, servingEmpty))
			return Model{}, OutcomeStoreError
		}
		if doc == nil {
			observability.LogStoreError(c.logger, name, "decode", elerrors.Fallback(errCachedNotObject, servingEmpty))
			return Model{}, OutcomeStoreError
		}
		return doc, OutcomeHit
	}

	won, err := c.store.Add(ctx, c.keys.Lock(name), []byte(uuid.NewString()), c.lockTTL)
	if err != nil {
		observability.LogStoreError(c.logger, name, "lock", elerrors.Fallback(err, servingEmpty))
		return Model{}, OutcomeStoreError
	}
	if !won {
		observability.LogLockUnavailable(c.logger, name)
		return Model{}, OutcomeLockUnavailable
	}

	doc, err := c.fetch(ctx, name)
	if err != nil {
		return Model{}, OutcomeFetchFailed
	}

	data, err := json.Marshal(doc)
	if err == nil {
		// Losing this Add means another write already landed; the value is
		// the same document, so the write is simply redundant.
		_, err = c.store.Add(ctx, c.keys.Value(name), data, c.valueTTL)
	}
	if err != nil {
		observability.LogStoreError(c.logger, name, "add", err)
	}
	return Model(doc), OutcomeFetched
}

func (c *Cache) fetch(ctx context.Context, name string) (map[string]any, error) {
	ctx, span := c.spans.StartFetchSpan(ctx, name)
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	start := time.Now()
	doc, err := c.fetcher.Fetch(fetchCtx, name)
	if err == nil && doc == nil {
		err = fmt.Errorf("%w: fetcher returned no document", elerrors.ErrRemoteFetch)
	}
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", &elerrors.TimeoutError{
			Operation: "fetch model " + name,
			Duration:  c.fetchTimeout.String(),
		}, err)
	}

	took := time.Since(start)
	c.metrics.RecordFetch(ctx, name, took, err)
	c.spans.EndSpanWithError(span, err)

	durationMs := float64(took.Microseconds()) / 1000
	if err != nil {
		observability.LogFetchFailed(c.logger, name, elerrors.Fallback(err, servingEmpty), durationMs)
		return nil, err
	}
	observability.LogFetchComplete(c.logger, name, durationMs)
	return doc, nil
}

// ModifiedTime returns the time the model was first observed, truncated to
// the second. The first call for a model records the current time with a
// create-if-absent write; later calls never change it. Only Refresh moves
// it forward.
func (c *Cache) ModifiedTime(ctx context.Context, name string) time.Time {
	key := c.keys.Mtime(name)
	if t, ok := c.readMtime(ctx, name, key); ok {
		return t
	}

	now := time.Unix(c.now().Unix(), 0)
	added, err := c.store.Add(ctx, key, []byte(strconv.FormatInt(now.Unix(), 10)), 0)
	if err != nil {
		observability.LogStoreError(c.logger, name, "add", err)
		return now
	}
	if !added {
		// Another worker recorded it first; theirs is final.
		if t, ok := c.readMtime(ctx, name, key); ok {
			return t
		}
	}
	return now
}

func (c *Cache) readMtime(ctx context.Context, name, key string) (time.Time, bool) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		observability.LogStoreError(c.logger, name, "get", err)
		return time.Time{}, false
	}
	if !ok {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		observability.LogStoreError(c.logger, name, "decode", err)
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

// Refresh replaces the cached document and mtime for a model after the
// authority saved a new revision. It is the only path that overwrites
// either key. raw must be a valid schema document.
func (c *Cache) Refresh(ctx context.Context, name string, raw []byte, modified time.Time) error {
	if err := schema.ValidateDocument(raw); err != nil {
		return fmt.Errorf("refresh %s: %w", name, err)
	}
	if err := c.store.Set(ctx, c.keys.Value(name), raw, c.valueTTL); err != nil {
		return fmt.Errorf("refresh %s: %w", name, err)
	}
	mtime := []byte(strconv.FormatInt(modified.Unix(), 10))
	if err := c.store.Set(ctx, c.keys.Mtime(name), mtime, 0); err != nil {
		return fmt.Errorf("refresh %s: %w", name, err)
	}
	return nil
}
