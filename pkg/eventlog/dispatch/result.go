package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/randalmurphal/eventlog/pkg/eventlog/schema"
)

// Error is the rejection carried by a Result that never reached the
// transport. It keeps the composed event and built payload for diagnosis.
type Error struct {
	Schema  string
	Event   schema.Event
	Payload string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("dispatch %q: %v", e.Schema, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *Error) Unwrap() error {
	return e.Err
}

// Result is the pending outcome of one Dispatch call. It resolves exactly
// once: with the sent event when the transport completes, or with an
// *Error when the dispatch was rejected. There is no cancellation; a
// transport that never completes leaves the Result pending.
type Result struct {
	id      string
	schema  string
	payload string
	valid   bool

	once  sync.Once
	done  chan struct{}
	event schema.Event
	err   error
}

func newResult(id, name, payload string, valid bool) *Result {
	return &Result{
		id:      id,
		schema:  name,
		payload: payload,
		valid:   valid,
		done:    make(chan struct{}),
	}
}

// resolve settles the result, running before first. Later calls are ignored
// and report false.
func (r *Result) resolve(ev schema.Event, err error, before func()) bool {
	settled := false
	r.once.Do(func() {
		if before != nil {
			before()
		}
		if ev != nil {
			r.event = ev.Clone()
		}
		r.err = err
		settled = true
		close(r.done)
	})
	return settled
}

// Done returns a channel closed once the result has settled.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the result settles or ctx is done. Giving up on the
// wait does not abort the send.
func (r *Result) Wait(ctx context.Context) (schema.Event, error) {
	select {
	case <-r.done:
		return r.sent(), r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Event returns the sent event, or nil while pending or when rejected.
func (r *Result) Event() schema.Event {
	select {
	case <-r.done:
		return r.sent()
	default:
		return nil
	}
}

// sent returns a copy of the settled event so callers never share the
// result's or the schema log's map.
func (r *Result) sent() schema.Event {
	if r.event == nil {
		return nil
	}
	return r.event.Clone()
}

// Err returns the rejection, or nil while pending or on success.
func (r *Result) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// ID returns the dispatch id used in logs and spans.
func (r *Result) ID() string { return r.id }

// Schema returns the schema name the event was dispatched under.
func (r *Result) Schema() string { return r.schema }

// Payload returns the encoded payload, including the terminator.
func (r *Result) Payload() string { return r.payload }

// Valid reports whether the event passed validation. Invalid events are
// still sent.
func (r *Result) Valid() bool { return r.valid }
