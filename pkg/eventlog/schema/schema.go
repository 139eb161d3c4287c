package schema

import (
	"maps"
	"sort"
)

// UnknownRevision is the revision of a schema registered without one.
const UnknownRevision = "UNKNOWN"

// Event is one event instance: field name to value.
type Event map[string]any

// Clone returns a shallow copy of the event. A nil event clones to an
// empty one.
func (e Event) Clone() Event {
	out := make(Event, len(e))
	maps.Copy(out, e)
	return out
}

// Overlay returns a new event holding base with e layered on top; keys in
// e win.
func (e Event) Overlay(base Event) Event {
	out := make(Event, len(base)+len(e))
	maps.Copy(out, base)
	maps.Copy(out, e)
	return out
}

// Keys returns the event's field names in sorted order.
func (e Event) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Schema is a named, revisioned set of field specifications together with
// its stored defaults and the log of events sent under it.
type Schema struct {
	Name     string
	Revision string
	Fields   map[string]FieldSpec
	Defaults Event
	Log      []Event
}

// Body is the declarative part of a schema supplied on registration.
// Zero-valued parts leave the existing entry unchanged.
type Body struct {
	Revision string               `json:"revision,omitempty"`
	Fields   map[string]FieldSpec `json:"fields,omitempty"`
	Defaults Event                `json:"defaults,omitempty"`
}

func newSchema(name string) Schema {
	return Schema{
		Name:     name,
		Revision: UnknownRevision,
		Fields:   map[string]FieldSpec{},
		Defaults: Event{},
		Log:      []Event{},
	}
}

// clone returns a copy that shares nothing mutable with s.
func (s Schema) clone() *Schema {
	out := Schema{
		Name:     s.Name,
		Revision: s.Revision,
		Fields:   make(map[string]FieldSpec, len(s.Fields)),
		Defaults: s.Defaults.Clone(),
		Log:      make([]Event, len(s.Log)),
	}
	for k, f := range s.Fields {
		f.Enum = append([]any(nil), f.Enum...)
		out.Fields[k] = f
	}
	for i, ev := range s.Log {
		out.Log[i] = ev.Clone()
	}
	return &out
}

// merge overlays body onto s: revision when set, then fields and defaults
// key by key. The log is kept.
func (s Schema) merge(body Body) Schema {
	next := *s.clone()
	if body.Revision != "" {
		next.Revision = body.Revision
	}
	for k, f := range body.Fields {
		f.Enum = append([]any(nil), f.Enum...)
		next.Fields[k] = f
	}
	maps.Copy(next.Defaults, body.Defaults)
	return next
}

// FieldNames returns the declared field names in sorted order.
func (s *Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for k := range s.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
