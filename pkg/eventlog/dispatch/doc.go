// Package dispatch sends events to a collection endpoint.
//
// A Dispatcher composes each event from the schema's stored defaults and
// the caller's values, validates it, encodes it as a bounded query string
// and hands it to a one-way Transport. Dispatch never blocks on the
// network; it returns a Result that settles once:
//
//	d := dispatch.New(reg, dispatch.NewHTTPBeacon(nil, logger), dispatch.Config{
//	    BaseURI: "//events.example.org/event.gif",
//	    Origin:  "enwiki",
//	})
//	r := d.Dispatch(ctx, "earthquake", schema.Event{"magnitude": 9.5})
//	ev, err := r.Wait(ctx)
//
// Validation failures do not stop a dispatch. Only a missing destination
// (errors.ErrNoDestination) or a payload over the length budget
// (errors.ErrPayloadTooLong) reject the Result, and in both cases nothing
// is sent.
//
// The payload is
//
//	_db=<origin>&_id=<schema>&_rv=<revision>&_ok=<valid>&<field>=<value>...;
//
// with event fields in sorted key order. The trailing ';' lets the
// receiver detect truncation; see DecodePayload.
package dispatch
