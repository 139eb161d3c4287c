package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
)

// HTTPBeacon sends each payload as a GET to base?payload, the way a
// tracking pixel does. The response body is discarded; any response or
// network failure counts as completion.
type HTTPBeacon struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPBeacon creates a beacon transport. A nil client uses
// http.DefaultClient; a nil logger disables logging.
func NewHTTPBeacon(client *http.Client, logger *slog.Logger) *HTTPBeacon {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPBeacon{client: client, logger: logger}
}

// Send issues the request in the background and calls complete when it
// finishes. Cancelling ctx does not abort the request.
func (b *HTTPBeacon) Send(ctx context.Context, base, payload string, complete func()) {
	ctx = context.WithoutCancel(ctx)
	target := beaconURL(base, payload)

	go func() {
		defer complete()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			b.debug("beacon request invalid", target, err)
			return
		}
		resp, err := b.client.Do(req)
		if err != nil {
			b.debug("beacon failed", target, err)
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			b.debug("beacon non-2xx response", target, fmt.Errorf("status %d", resp.StatusCode))
		}
	}()
}

// Close releases idle connections held by the client.
func (b *HTTPBeacon) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

func (b *HTTPBeacon) debug(msg, target string, err error) {
	if b.logger == nil {
		return
	}
	b.logger.Debug(msg,
		slog.String("url", target),
		slog.String("error", err.Error()),
	)
}

// beaconURL joins base and payload. Protocol-relative bases get https.
func beaconURL(base, payload string) string {
	if strings.HasPrefix(base, "//") {
		base = "https:" + base
	}
	return base + "?" + payload
}

// WriterTransport writes each payload as one line, "?payload\n", to an
// io.Writer. It is the server-side sink for events logged by the service
// itself. Writes are serialized and complete synchronously.
type WriterTransport struct {
	mu     sync.Mutex
	w      io.Writer
	logger *slog.Logger
}

// NewWriterTransport creates a transport writing to w.
func NewWriterTransport(w io.Writer, logger *slog.Logger) *WriterTransport {
	return &WriterTransport{w: w, logger: logger}
}

// Send writes the payload line and calls complete. A write error is logged
// and still completes; there is no retry.
func (t *WriterTransport) Send(_ context.Context, _, payload string, complete func()) {
	t.mu.Lock()
	_, err := io.WriteString(t.w, "?"+payload+"\n")
	t.mu.Unlock()

	if err != nil && t.logger != nil {
		t.logger.Warn("event sink write failed", slog.String("error", err.Error()))
	}
	complete()
}

// Close closes the underlying writer if it is an io.Closer.
func (t *WriterTransport) Close() error {
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// OpenSink opens a server-side event sink. dest is udp://host:port,
// tcp://host:port, file:///path or a bare file path, opened for append.
func OpenSink(dest string) (io.WriteCloser, error) {
	switch {
	case strings.HasPrefix(dest, "udp://"):
		conn, err := net.Dial("udp", strings.TrimPrefix(dest, "udp://"))
		if err != nil {
			return nil, fmt.Errorf("open udp sink: %w", err)
		}
		return conn, nil
	case strings.HasPrefix(dest, "tcp://"):
		conn, err := net.Dial("tcp", strings.TrimPrefix(dest, "tcp://"))
		if err != nil {
			return nil, fmt.Errorf("open tcp sink: %w", err)
		}
		return conn, nil
	default:
		path := strings.TrimPrefix(dest, "file://")
		if path == "" {
			return nil, fmt.Errorf("open file sink: empty path")
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open file sink: %w", err)
		}
		return f, nil
	}
}

// NewTransport picks a transport for dest: an HTTPBeacon for http, https
// and protocol-relative URLs, otherwise a WriterTransport over OpenSink.
// The returned transport implements io.Closer.
func NewTransport(dest string, logger *slog.Logger) (Transport, error) {
	if strings.HasPrefix(dest, "http://") || strings.HasPrefix(dest, "https://") || strings.HasPrefix(dest, "//") {
		return NewHTTPBeacon(nil, logger), nil
	}
	w, err := OpenSink(dest)
	if err != nil {
		return nil, err
	}
	return NewWriterTransport(w, logger), nil
}

// Sent is one payload captured by a Recorder.
type Sent struct {
	Base    string
	Payload string
}

// Recorder is an in-memory Transport. By default it completes each send
// immediately; with manual completion the caller decides when via
// CompleteNext or CompleteAll.
type Recorder struct {
	mu      sync.Mutex
	manual  bool
	sent    []Sent
	pending []func()
}

// NewRecorder creates a Recorder. If manual is true, sends stay pending
// until completed explicitly.
func NewRecorder(manual bool) *Recorder {
	return &Recorder{manual: manual}
}

// Send records the payload.
func (r *Recorder) Send(_ context.Context, base, payload string, complete func()) {
	r.mu.Lock()
	r.sent = append(r.sent, Sent{Base: base, Payload: payload})
	if r.manual {
		r.pending = append(r.pending, complete)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	complete()
}

// Sent returns a copy of everything sent so far.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Pending returns the number of sends awaiting completion.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// CompleteNext completes the oldest pending send and reports whether there
// was one.
func (r *Recorder) CompleteNext() bool {
	r.mu.Lock()
	if len(r.pending) == 0 {
		r.mu.Unlock()
		return false
	}
	complete := r.pending[0]
	r.pending = r.pending[1:]
	r.mu.Unlock()

	complete()
	return true
}

// CompleteAll completes every pending send.
func (r *Recorder) CompleteAll() {
	for r.CompleteNext() {
	}
}
