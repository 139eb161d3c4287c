package schema

import (
	"fmt"

	elerrors "github.com/randalmurphal/eventlog/pkg/eventlog/errors"
)

// IssueKind classifies a validation failure.
type IssueKind int

// Validation failure kinds, in the order they are checked.
const (
	UnrecognizedField IssueKind = iota + 1
	MissingField
	TypeMismatch
	EnumViolation
)

// String returns the kind name.
func (k IssueKind) String() string {
	switch k {
	case UnrecognizedField:
		return "unrecognized_field"
	case MissingField:
		return "missing_field"
	case TypeMismatch:
		return "type_mismatch"
	case EnumViolation:
		return "enum_violation"
	default:
		return fmt.Sprintf("IssueKind(%d)", int(k))
	}
}

// sentinel returns the errors package sentinel for this kind.
func (k IssueKind) sentinel() error {
	switch k {
	case UnrecognizedField:
		return elerrors.ErrUnrecognizedField
	case MissingField:
		return elerrors.ErrMissingField
	case TypeMismatch:
		return elerrors.ErrTypeMismatch
	case EnumViolation:
		return elerrors.ErrEnumViolation
	default:
		return nil
	}
}

// Issue is one validation failure.
type Issue struct {
	Kind  IssueKind
	Field string
	Value any
}

// Error implements the error interface.
func (i Issue) Error() string {
	msg := "validation failed"
	if s := i.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if i.Kind == EnumViolation || i.Kind == TypeMismatch {
		return fmt.Sprintf("%s: %s=%#v", msg, i.Field, i.Value)
	}
	return fmt.Sprintf("%s: %s", msg, i.Field)
}

// Unwrap returns the sentinel for the issue kind, so errors.Is works
// against the errors package.
func (i Issue) Unwrap() error {
	return i.Kind.sentinel()
}

// Result is the outcome of validating one event.
type Result struct {
	Issues []Issue
}

// Valid reports whether no issues were found.
func (r Result) Valid() bool {
	return len(r.Issues) == 0
}

// Err returns the first issue, which is the reason the event is invalid,
// or nil if it is valid.
func (r Result) Err() error {
	if len(r.Issues) == 0 {
		return nil
	}
	return r.Issues[0]
}

// Validate checks ev against s. Checks run in a fixed order: unrecognized
// fields, missing required fields, type mismatches, then enum violations.
// All issues are collected; the first one is the reason. A nil schema has
// no fields, so every key is unrecognized.
func Validate(ev Event, s *Schema) Result {
	var fields map[string]FieldSpec
	if s != nil {
		fields = s.Fields
	}

	var res Result
	for _, key := range ev.Keys() {
		if _, ok := fields[key]; !ok {
			res.Issues = append(res.Issues, Issue{Kind: UnrecognizedField, Field: key, Value: ev[key]})
		}
	}
	if s == nil {
		return res
	}

	names := s.FieldNames()
	for _, name := range names {
		if _, present := ev[name]; !present && fields[name].Required {
			res.Issues = append(res.Issues, Issue{Kind: MissingField, Field: name})
		}
	}

	var typed []string
	for _, name := range names {
		v, present := ev[name]
		if !present {
			continue
		}
		if !fields[name].Type.Accepts(v) {
			res.Issues = append(res.Issues, Issue{Kind: TypeMismatch, Field: name, Value: v})
			continue
		}
		typed = append(typed, name)
	}

	for _, name := range typed {
		if v := ev[name]; !fields[name].allows(v) {
			res.Issues = append(res.Issues, Issue{Kind: EnumViolation, Field: name, Value: v})
		}
	}
	return res
}
