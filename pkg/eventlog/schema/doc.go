/*
Package schema declares event schemas and validates event instances
against them.

# Schemas

A Schema maps field names to FieldSpecs. Each FieldSpec names one of five
types (string, boolean, integer, number, timestamp), whether the field is
required, and optionally the enum of allowed values.

	reg := schema.NewRegistry(schema.WithLogger(logger))
	reg.Register("earthquake", schema.Body{
	    Revision: "4720",
	    Fields: map[string]schema.FieldSpec{
	        "epicenter": {Type: schema.TypeString, Required: true, Enum: []any{"Valdivia", "Sumatra", "Kamchatka"}},
	        "magnitude": {Type: schema.TypeNumber, Required: true},
	        "article":   {Type: schema.TypeString},
	    },
	})

Registering an existing name merges the new body over the old one and logs
a clobber warning. Pass Overwrite(false) to refuse instead, or
Overwrite(true) to merge without the warning.

# Validation

Validate collects every issue, checking in order: unrecognized fields,
missing required fields, type mismatches, enum violations. Result.Err
returns the first issue. Each Issue unwraps to a sentinel in the errors
package:

	res := schema.Validate(ev, s)
	if errors.Is(res.Err(), elerrors.ErrMissingField) {
	    ...
	}

Validation failures are advisory. The dispatcher still sends invalid
events, flagged with _ok=false.

# Documents

Schema documents are JSON objects of field specs, as served by the model
cache. ValidateDocument rejects malformed documents and DecodeBody turns a
decoded one into a Body.
*/
package schema
