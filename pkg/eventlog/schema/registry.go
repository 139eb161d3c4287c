package schema

import (
	"fmt"
	"log/slog"
	"sort"

	elerrors "github.com/randalmurphal/eventlog/pkg/eventlog/errors"
	"github.com/randalmurphal/eventlog/pkg/eventlog/observability"
	"github.com/randalmurphal/eventlog/pkg/eventlog/registry"
)

// Registry owns every Schema known to a process. Callers only ever see
// snapshot copies; all mutation goes through Registry methods.
//
// Registry is safe for concurrent use.
type Registry struct {
	entries *registry.Registry[string, Schema]
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for clobber, unknown-schema and
// validation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: registry.New[string, Schema](),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type registerOptions struct {
	overwrite *bool
}

// RegisterOption configures a single Register call.
type RegisterOption func(*registerOptions)

// Overwrite states the caller's overwrite intent explicitly. Overwrite(false)
// makes Register fail on an existing name; Overwrite(true) merges silently.
// Without this option an existing schema is merged over with a warning.
func Overwrite(allow bool) RegisterOption {
	return func(o *registerOptions) {
		o.overwrite = &allow
	}
}

// Register declares or updates the schema called name by merging body over
// any existing entry.
func (r *Registry) Register(name string, body Body, opts ...RegisterOption) (*Schema, error) {
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}

	clobbered := false
	s, err := r.entries.Update(name, func(cur Schema, exists bool) (Schema, error) {
		if !exists {
			return newSchema(name).merge(body), nil
		}
		if o.overwrite != nil && !*o.overwrite {
			return cur, fmt.Errorf("register %q: %w", name, elerrors.ErrSchemaAlreadyExists)
		}
		clobbered = o.overwrite == nil
		return cur.merge(body), nil
	})
	if err != nil {
		return nil, err
	}
	if clobbered {
		observability.LogClobber(r.logger, name)
	}
	return s.clone(), nil
}

// Lookup returns a snapshot of the named schema, or nil if it is not
// registered.
func (r *Registry) Lookup(name string) *Schema {
	var out *Schema
	r.entries.View(name, func(s Schema, exists bool) {
		if exists {
			out = s.clone()
		}
	})
	return out
}

// Ensure returns the named schema, registering an empty one with a warning
// if it is unknown.
func (r *Registry) Ensure(name string) *Schema {
	return r.ensure(name, "ensure")
}

func (r *Registry) ensure(name, op string) *Schema {
	s, created := r.entries.GetOrCreate(name, func() Schema {
		return newSchema(name)
	})
	if created {
		observability.LogUnknownSchema(r.logger, name, op)
	}
	return s.clone()
}

// SetDefaults overlays defaults onto the schema's stored defaults and
// returns the result. A nil map clears all defaults. Unknown schemas are
// registered empty first. Defaults are not validated here; they are checked
// as part of the composed event at dispatch time.
func (r *Registry) SetDefaults(name string, defaults Event) Event {
	created := false
	s, _ := r.entries.Update(name, func(cur Schema, exists bool) (Schema, error) {
		if !exists {
			cur = newSchema(name)
			created = true
		}
		if defaults == nil {
			cur.Defaults = Event{}
		} else {
			cur.Defaults = defaults.Overlay(cur.Defaults)
		}
		return cur, nil
	})
	if created {
		observability.LogUnknownSchema(r.logger, name, "set_defaults")
	}
	return s.Defaults.Clone()
}

// Record appends a copy of ev to the schema's log. The dispatcher calls it
// once the transport reports completion.
func (r *Registry) Record(name string, ev Event) {
	_, _ = r.entries.Update(name, func(cur Schema, exists bool) (Schema, error) {
		if !exists {
			cur = newSchema(name)
		}
		cur.Log = append(cur.Log, ev.Clone())
		return cur, nil
	})
}

// Log returns a copy of the events recorded under name, oldest first.
func (r *Registry) Log(name string) []Event {
	var out []Event
	r.entries.View(name, func(s Schema, exists bool) {
		if !exists {
			return
		}
		out = make([]Event, len(s.Log))
		for i, ev := range s.Log {
			out[i] = ev.Clone()
		}
	})
	return out
}

// Names returns the registered schema names in sorted order.
func (r *Registry) Names() []string {
	names := r.entries.Keys()
	sort.Strings(names)
	return names
}

// Validate checks ev against the named schema, registering an empty schema
// if it is unknown. Every issue is logged as a warning.
func (r *Registry) Validate(name string, ev Event) Result {
	s := r.ensure(name, "validate")
	res := Validate(ev, s)
	for _, issue := range res.Issues {
		observability.LogValidationIssue(r.logger, name, elerrors.Advisory(issue, "validate"))
	}
	return res
}
