// Package schema declares the shape of stored documents and checks raw field
// maps against it in one place.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind is the scalar type a field must hold.
type Kind int

const (
	String Kind = iota
	Number
	Integer
	Timestamp
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Integer:
		return "integer"
	case Timestamp:
		return "timestamp"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Field declares one field. Required string fields must be non-blank unless
// AllowEmpty is set; AllowEmpty still requires the field to be present.
// NonNegative rejects numbers below zero.
type Field struct {
	Name        string
	Kind        Kind
	Required    bool
	AllowEmpty  bool
	NonNegative bool
}

// Schema is the declared shape of a collection's documents.
type Schema struct {
	Fields []Field
}

// RejectionError explains why a document does not match its schema.
type RejectionError struct {
	Field  string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// Check reports the first field of fields that violates s.
func (s Schema) Check(fields map[string]any) error {
	for _, f := range s.Fields {
		v, ok := fields[f.Name]
		if !ok || v == nil {
			if f.Required {
				return &RejectionError{Field: f.Name, Reason: "missing"}
			}
			continue
		}
		if err := f.check(v); err != nil {
			return err
		}
	}
	return nil
}

func (f Field) check(v any) error {
	switch f.Kind {
	case String:
		s, ok := v.(string)
		if !ok {
			return &RejectionError{Field: f.Name, Reason: fmt.Sprintf("expected string, got %T", v)}
		}
		if f.Required && !f.AllowEmpty && strings.TrimSpace(s) == "" {
			return &RejectionError{Field: f.Name, Reason: "empty"}
		}
	case Number:
		n, ok := AsFloat(v)
		if !ok {
			return &RejectionError{Field: f.Name, Reason: fmt.Sprintf("expected number, got %T", v)}
		}
		return f.checkSign(n)
	case Integer:
		n, ok := AsFloat(v)
		if !ok {
			return &RejectionError{Field: f.Name, Reason: fmt.Sprintf("expected integer, got %T", v)}
		}
		if n != math.Trunc(n) {
			return &RejectionError{Field: f.Name, Reason: "not an integer"}
		}
		// Integers are read back as int.
		if n >= math.MaxInt || n < math.MinInt {
			return &RejectionError{Field: f.Name, Reason: "too large"}
		}
		return f.checkSign(n)
	case Timestamp:
		if _, ok := v.(time.Time); !ok {
			return &RejectionError{Field: f.Name, Reason: fmt.Sprintf("expected timestamp, got %T", v)}
		}
	}
	return nil
}

func (f Field) checkSign(n float64) error {
	if f.NonNegative && n < 0 {
		return &RejectionError{Field: f.Name, Reason: "negative"}
	}
	return nil
}

// AsFloat converts any numeric field value to float64. NaN and infinities are rejected.
func AsFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
