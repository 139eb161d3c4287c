package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// documentSchemaURL identifies the meta-schema resource inside the compiler.
const documentSchemaURL = "https://eventlog.schemas.local/field-document.schema.json"

// documentSchema describes a schema document: a JSON object mapping field
// names to field specifications.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "required": ["type"],
    "properties": {
      "type": {"enum": ["string", "boolean", "integer", "number", "timestamp"]},
      "required": {"type": "boolean"},
      "optional": {"type": "boolean"},
      "enum": {"type": "array", "minItems": 1},
      "description": {"type": "string"}
    },
    "additionalProperties": false
  }
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func documentValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(documentSchemaURL, strings.NewReader(documentSchema)); err != nil {
			compileErr = fmt.Errorf("load document schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(documentSchemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile document schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// ValidateDocument checks that raw is a JSON object whose every property
// is a well-formed field specification. It is the save-time filter for
// schema documents.
func ValidateDocument(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return validateDecoded(doc)
}

func validateDecoded(doc any) error {
	v, err := documentValidator()
	if err != nil {
		return err
	}
	if err := v.Validate(doc); err != nil {
		return fmt.Errorf("invalid schema document: %w", err)
	}
	return nil
}

// DecodeBody converts a decoded schema document into a Body that can be
// passed to Registry.Register.
func DecodeBody(doc map[string]any, revision string) (Body, error) {
	if err := validateDecoded(doc); err != nil {
		return Body{}, err
	}

	// Round-trip through JSON so FieldSpec's text unmarshaling applies.
	raw, err := json.Marshal(doc)
	if err != nil {
		return Body{}, fmt.Errorf("encode schema document: %w", err)
	}
	var fields map[string]FieldSpec
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Body{}, fmt.Errorf("decode schema document: %w", err)
	}
	return Body{Revision: revision, Fields: fields}, nil
}

// Beautify re-indents a JSON document for display.
func Beautify(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		return nil, fmt.Errorf("beautify: %w", err)
	}
	return buf.Bytes(), nil
}
