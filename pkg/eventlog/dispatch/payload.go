package dispatch

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/randalmurphal/eventlog/pkg/eventlog/schema"
)

// Terminator ends every payload so a receiver can tell a complete payload
// from one truncated in transit.
const Terminator = ";"

// Provenance keys, always emitted first and in this order.
const (
	KeyOrigin   = "_db"
	KeySchema   = "_id"
	KeyRevision = "_rv"
	KeyValid    = "_ok"
)

// EncodePayload serializes the provenance fields followed by the event's
// fields, sorted by key, as a percent-encoded query string ending in
// Terminator.
func EncodePayload(origin, name, revision string, valid bool, ev schema.Event) string {
	var b strings.Builder
	write := func(k, v string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}

	write(KeyOrigin, origin)
	write(KeySchema, name)
	write(KeyRevision, revision)
	write(KeyValid, strconv.FormatBool(valid))
	for _, k := range ev.Keys() {
		write(k, FormatValue(ev[k]))
	}
	b.WriteString(Terminator)
	return b.String()
}

// DecodePayload parses a payload as produced by EncodePayload. A leading
// '?' and trailing newline, as written by WriterTransport, are tolerated.
// complete reports whether the terminator was present.
func DecodePayload(line string) (values url.Values, complete bool, err error) {
	line = strings.TrimRight(line, "\r\n")
	line = strings.TrimPrefix(line, "?")
	if complete = strings.HasSuffix(line, Terminator); complete {
		line = strings.TrimSuffix(line, Terminator)
	}
	values, err = url.ParseQuery(line)
	if err != nil {
		return nil, complete, fmt.Errorf("decode payload: %w", err)
	}
	return values, complete, nil
}

// FormatValue renders one event value for the wire. Times are sent as unix
// milliseconds and floats in their shortest exact form.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.FormatInt(int64(val), 10)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case time.Time:
		return strconv.FormatInt(val.UnixMilli(), 10)
	case *time.Time:
		if val == nil {
			return ""
		}
		return strconv.FormatInt(val.UnixMilli(), 10)
	default:
		return fmt.Sprint(val)
	}
}
