package dispatch_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventlog/pkg/eventlog/dispatch"
	elerrors "github.com/randalmurphal/eventlog/pkg/eventlog/errors"
	"github.com/randalmurphal/eventlog/pkg/eventlog/schema"
)

func newEarthquakeRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry(schema.WithLogger(nil))
	_, err := reg.Register("earthquake", schema.Body{
		Revision: "4720",
		Fields: map[string]schema.FieldSpec{
			"epicenter": {Type: schema.TypeString, Required: true, Enum: []any{"Valdivia", "Sumatra", "Kamchatka"}},
			"magnitude": {Type: schema.TypeNumber, Required: true},
			"article":   {Type: schema.TypeString},
		},
	})
	require.NoError(t, err)
	return reg
}

func testConfig() dispatch.Config {
	return dispatch.Config{BaseURI: "//events.example.org/event.gif", Origin: "testwiki"}
}

func waitResult(t *testing.T, r *dispatch.Result) (schema.Event, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return r.Wait(ctx)
}

func TestDispatch_MergesDefaults(t *testing.T) {
	reg := newEarthquakeRegistry(t)
	reg.SetDefaults("earthquake", schema.Event{"epicenter": "Valdivia"})
	rec := dispatch.NewRecorder(false)
	d := dispatch.New(reg, rec, testConfig(), dispatch.WithLogger(nil))

	r := d.Dispatch(context.Background(), "earthquake", schema.Event{"magnitude": 9.5})

	ev, err := waitResult(t, r)
	require.NoError(t, err)
	assert.Equal(t, schema.Event{"epicenter": "Valdivia", "magnitude": 9.5}, ev)
	assert.True(t, r.Valid())
	assert.Equal(t, "_db=testwiki&_id=earthquake&_rv=4720&_ok=true&epicenter=Valdivia&magnitude=9.5;", r.Payload())

	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "//events.example.org/event.gif", sent[0].Base)
	assert.Equal(t, r.Payload(), sent[0].Payload)
}

func TestDispatch_CallerWinsOverDefaults(t *testing.T) {
	reg := newEarthquakeRegistry(t)
	reg.SetDefaults("earthquake", schema.Event{"epicenter": "Valdivia", "magnitude": 1.0})
	d := dispatch.New(reg, dispatch.NewRecorder(false), testConfig(), dispatch.WithLogger(nil))

	ev, err := waitResult(t, d.Dispatch(context.Background(), "earthquake", schema.Event{"epicenter": "Sumatra"}))
	require.NoError(t, err)
	assert.Equal(t, "Sumatra", ev["epicenter"])
	assert.Equal(t, 1.0, ev["magnitude"])
}

func TestDispatch_InvalidEventStillSent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	reg := newEarthquakeRegistry(t)
	rec := dispatch.NewRecorder(false)
	d := dispatch.New(reg, rec, testConfig(), dispatch.WithLogger(logger))

	r := d.Dispatch(context.Background(), "earthquake", schema.Event{"epicenter": "Tōhoku", "magnitude": 9.0})

	ev, err := waitResult(t, r)
	require.NoError(t, err)
	assert.False(t, r.Valid())
	assert.Equal(t, "Tōhoku", ev["epicenter"])
	assert.Contains(t, r.Payload(), "_ok=false")
	assert.Len(t, rec.Sent(), 1)
	assert.Contains(t, buf.String(), "event failed validation")
	assert.Contains(t, buf.String(), "category: advisory")
	assert.Len(t, reg.Log("earthquake"), 1)
}

func TestDispatch_UnknownSchema(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	reg := schema.NewRegistry(schema.WithLogger(logger))
	d := dispatch.New(reg, dispatch.NewRecorder(false), testConfig(), dispatch.WithLogger(nil))

	r := d.Dispatch(context.Background(), "mystery", schema.Event{"a": 1})

	_, err := waitResult(t, r)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "unknown schema")
	assert.NotNil(t, reg.Lookup("mystery"))
	assert.False(t, r.Valid(), "every key is unrecognized on an empty schema")
	assert.Contains(t, r.Payload(), "_rv=UNKNOWN")
}

func TestDispatch_NoDestination(t *testing.T) {
	reg := newEarthquakeRegistry(t)
	rec := dispatch.NewRecorder(false)
	d := dispatch.New(reg, rec, dispatch.Config{Origin: "testwiki"}, dispatch.WithLogger(nil))

	r := d.Dispatch(context.Background(), "earthquake", schema.Event{"epicenter": "Valdivia", "magnitude": 9.5})

	select {
	case <-r.Done():
	default:
		t.Fatal("result should be settled immediately")
	}

	ev, err := r.Wait(context.Background())
	assert.Nil(t, ev)
	require.ErrorIs(t, err, elerrors.ErrNoDestination)
	assert.True(t, elerrors.IsFatal(err))

	var dErr *dispatch.Error
	require.True(t, errors.As(err, &dErr))
	assert.Equal(t, "earthquake", dErr.Schema)
	assert.Equal(t, schema.Event{"epicenter": "Valdivia", "magnitude": 9.5}, dErr.Event)
	assert.Equal(t, r.Payload(), dErr.Payload)
	assert.NotEmpty(t, dErr.Payload)

	assert.Empty(t, rec.Sent(), "transport never contacted")
	assert.Empty(t, reg.Log("earthquake"))
}

func TestDispatch_PayloadTooLong(t *testing.T) {
	reg := newEarthquakeRegistry(t)
	rec := dispatch.NewRecorder(false)
	d := dispatch.New(reg, rec, testConfig(), dispatch.WithLogger(nil))

	r := d.Dispatch(context.Background(), "earthquake", schema.Event{
		"epicenter": "Valdivia",
		"magnitude": 9.5,
		"article":   strings.Repeat("a", 300),
	})

	_, err := waitResult(t, r)
	require.ErrorIs(t, err, elerrors.ErrPayloadTooLong)
	assert.Contains(t, err.Error(), "request URI too long")
	assert.Empty(t, rec.Sent())
	assert.Empty(t, reg.Log("earthquake"), "rejected events are never logged")
}

func TestDispatch_PayloadLengthBoundary(t *testing.T) {
	reg := newEarthquakeRegistry(t)
	base := dispatch.EncodePayload("testwiki", "earthquake", "4720", true,
		schema.Event{"epicenter": "Valdivia", "magnitude": 9.5, "article": ""})
	limit := len(base) + 10

	rec := dispatch.NewRecorder(false)
	d := dispatch.New(reg, rec, dispatch.Config{
		BaseURI:          "//e",
		Origin:           "testwiki",
		MaxPayloadLength: limit,
	}, dispatch.WithLogger(nil))

	atLimit := d.Dispatch(context.Background(), "earthquake", schema.Event{
		"epicenter": "Valdivia", "magnitude": 9.5, "article": strings.Repeat("a", 10),
	})
	_, err := waitResult(t, atLimit)
	require.NoError(t, err)
	assert.Len(t, atLimit.Payload(), limit)

	over := d.Dispatch(context.Background(), "earthquake", schema.Event{
		"epicenter": "Valdivia", "magnitude": 9.5, "article": strings.Repeat("a", 11),
	})
	_, err = waitResult(t, over)
	assert.ErrorIs(t, err, elerrors.ErrPayloadTooLong)
	assert.Len(t, rec.Sent(), 1)
}

func TestDispatch_CompletionIsAsynchronousAndSingleShot(t *testing.T) {
	reg := newEarthquakeRegistry(t)
	rec := dispatch.NewRecorder(true)
	d := dispatch.New(reg, rec, testConfig(), dispatch.WithLogger(nil))

	r := d.Dispatch(context.Background(), "earthquake", schema.Event{"epicenter": "Valdivia", "magnitude": 9.5})

	assert.Nil(t, r.Event(), "pending until the transport completes")
	assert.NoError(t, r.Err())
	assert.Empty(t, reg.Log("earthquake"))
	assert.Equal(t, 1, rec.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := r.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.True(t, rec.CompleteNext())
	ev, err := waitResult(t, r)
	require.NoError(t, err)
	assert.Equal(t, "Valdivia", ev["epicenter"])
	assert.Len(t, reg.Log("earthquake"), 1)
}

// doubleCompleter calls complete twice to exercise single-shot resolution.
type doubleCompleter struct{}

func (doubleCompleter) Send(_ context.Context, _, _ string, complete func()) {
	complete()
	complete()
}

func TestDispatch_DoubleCompletionRecordsOnce(t *testing.T) {
	reg := newEarthquakeRegistry(t)
	d := dispatch.New(reg, doubleCompleter{}, testConfig(), dispatch.WithLogger(nil))

	_, err := waitResult(t, d.Dispatch(context.Background(), "earthquake", schema.Event{"epicenter": "Valdivia", "magnitude": 9.5}))
	require.NoError(t, err)
	assert.Len(t, reg.Log("earthquake"), 1)
}

func TestDispatch_RawEventNotMutated(t *testing.T) {
	reg := newEarthquakeRegistry(t)
	reg.SetDefaults("earthquake", schema.Event{"epicenter": "Valdivia"})
	d := dispatch.New(reg, dispatch.NewRecorder(false), testConfig(), dispatch.WithLogger(nil))

	raw := schema.Event{"magnitude": 9.5}
	_, err := waitResult(t, d.Dispatch(context.Background(), "earthquake", raw))
	require.NoError(t, err)
	assert.Equal(t, schema.Event{"magnitude": 9.5}, raw)
}

func TestDispatch_SentEventIsolatedFromLog(t *testing.T) {
	reg := newEarthquakeRegistry(t)
	d := dispatch.New(reg, dispatch.NewRecorder(false), testConfig(), dispatch.WithLogger(nil))

	r := d.Dispatch(context.Background(), "earthquake", schema.Event{"epicenter": "Valdivia", "magnitude": 9.5})
	ev, err := waitResult(t, r)
	require.NoError(t, err)

	ev["magnitude"] = "tampered"
	ev["injected"] = true
	r.Event()["epicenter"] = "Atlantis"

	want := []schema.Event{{"epicenter": "Valdivia", "magnitude": 9.5}}
	assert.Equal(t, want, reg.Log("earthquake"))
	assert.Equal(t, want, reg.Lookup("earthquake").Log)

	again, err := waitResult(t, r)
	require.NoError(t, err)
	assert.Equal(t, want[0], again)
}

func TestDispatch_RejectionEventIsolated(t *testing.T) {
	reg := newEarthquakeRegistry(t)
	reg.SetDefaults("earthquake", schema.Event{"epicenter": "Valdivia"})
	d := dispatch.New(reg, dispatch.NewRecorder(false), dispatch.Config{Origin: "testwiki"}, dispatch.WithLogger(nil))

	_, err := waitResult(t, d.Dispatch(context.Background(), "earthquake", schema.Event{"magnitude": 9.5}))
	var dispatchErr *dispatch.Error
	require.ErrorAs(t, err, &dispatchErr)

	dispatchErr.Event["epicenter"] = "Atlantis"
	assert.Equal(t, schema.Event{"epicenter": "Valdivia"}, reg.Lookup("earthquake").Defaults)
}

func TestNew_DefaultMaxPayloadLength(t *testing.T) {
	d := dispatch.New(schema.NewRegistry(), dispatch.NewRecorder(false), dispatch.Config{BaseURI: "//e"})
	assert.Equal(t, dispatch.DefaultMaxPayloadLength, d.Config().MaxPayloadLength)
}
