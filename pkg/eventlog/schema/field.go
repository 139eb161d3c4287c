package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// FieldType is the closed set of value types a field may declare.
type FieldType int

// Supported field types.
const (
	TypeString FieldType = iota + 1
	TypeBoolean
	TypeInteger
	TypeNumber
	TypeTimestamp
)

var fieldTypeNames = map[FieldType]string{
	TypeString:    "string",
	TypeBoolean:   "boolean",
	TypeInteger:   "integer",
	TypeNumber:    "number",
	TypeTimestamp: "timestamp",
}

// predicates holds the acceptance rule for each variant.
var predicates = map[FieldType]func(v any) bool{
	TypeString: func(v any) bool {
		_, ok := v.(string)
		return ok
	},
	TypeBoolean: func(v any) bool {
		_, ok := v.(bool)
		return ok
	},
	TypeInteger: isInteger,
	TypeNumber: func(v any) bool {
		_, ok := finite(v)
		return ok
	},
	TypeTimestamp: func(v any) bool {
		switch t := v.(type) {
		case time.Time:
			return true
		case *time.Time:
			return t != nil
		}
		if !isInteger(v) {
			return false
		}
		f, _ := finite(v)
		return f >= 0
	},
}

// ParseFieldType returns the FieldType named s.
func ParseFieldType(s string) (FieldType, error) {
	for t, name := range fieldTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown field type %q", s)
}

// String returns the type name used in schema documents.
func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// Accepts reports whether v is a valid value of this type. nil is never
// accepted.
func (t FieldType) Accepts(v any) bool {
	if v == nil {
		return false
	}
	pred, ok := predicates[t]
	if !ok {
		return false
	}
	return pred(v)
}

// MarshalText implements encoding.TextMarshaler.
func (t FieldType) MarshalText() ([]byte, error) {
	name, ok := fieldTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown field type %d", int(t))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FieldType) UnmarshalText(b []byte) error {
	parsed, err := ParseFieldType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// FieldSpec declares the contract for one event field.
type FieldSpec struct {
	Type     FieldType `json:"type"`
	Required bool      `json:"required,omitempty"`
	Enum     []any     `json:"enum,omitempty"`

	// Optional mirrors !Required. Documents may carry either flag; only
	// Required is consulted during validation.
	Optional bool `json:"optional,omitempty"`
}

// allows reports whether v is one of the enum members. An empty enum
// allows everything.
func (f FieldSpec) allows(v any) bool {
	if len(f.Enum) == 0 {
		return true
	}
	for _, member := range f.Enum {
		if equal(member, v) {
			return true
		}
	}
	return false
}

// equal is strict equality, except that numbers compare by value so an
// enum decoded from JSON (float64) matches an int supplied by Go code.
func equal(a, b any) bool {
	fa, aNum := number(a)
	fb, bNum := number(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

func isInteger(v any) bool {
	f, ok := finite(v)
	return ok && f == math.Trunc(f)
}

// finite returns v as a float64 if it is a number that is neither NaN nor
// infinite.
func finite(v any) (float64, bool) {
	f, ok := number(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
