// Package schema provides structural validation for decoded JSON values.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Schema is a JSON Schema subset. Zero-valued fields impose no constraint.
//
// Supported keywords:
//   - type (string, number, integer, boolean, object, array, null)
//   - required, properties
//   - items (for arrays)
//   - enum
//   - minimum, maximum
//   - minLength, minItems
type Schema struct {
	Type       string
	Required   []string
	Properties map[string]*Schema
	Items      *Schema
	Enum       []any
	Minimum    *float64
	Maximum    *float64
	MinLength  *int
	MinItems   *int
}

// ValidationError reports the first constraint a value failed.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Path + ": " + e.Reason
}

func fail(path, format string, args ...any) error {
	return &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// Float returns a pointer to v, for Minimum and Maximum.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for MinLength and MinItems.
func Int(v int) *int { return &v }

// Validate checks a value decoded by encoding/json against s.
// A nil schema accepts everything.
func Validate(s *Schema, value any) error {
	if s == nil {
		return nil
	}
	return validateValue(s, value, "$")
}

// ValidateJSON decodes raw and validates the result. Decoding errors are
// returned unchanged so callers can tell bad bytes from bad shape.
func ValidateJSON(s *Schema, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return Validate(s, v)
}

func validateValue(s *Schema, value any, path string) error {
	if s.Type != "" {
		if err := checkType(s.Type, value, path); err != nil {
			return err
		}
	}
	if len(s.Enum) > 0 {
		if err := checkEnum(s.Enum, value, path); err != nil {
			return err
		}
	}

	switch v := value.(type) {
	case map[string]any:
		return validateObject(s, v, path)
	case []any:
		return validateArray(s, v, path)
	case string:
		if s.MinLength != nil && len(v) < *s.MinLength {
			return fail(path, "string length %d is less than minLength %d", len(v), *s.MinLength)
		}
	case float64:
		return validateNumber(s, v, path)
	}
	return nil
}

func checkType(expected string, value any, path string) error {
	actual := jsonType(value)
	switch {
	case actual == expected:
		return nil
	case expected == "integer" && actual == "number":
		if f := value.(float64); f == float64(int64(f)) {
			return nil
		}
	}
	return fail(path, "expected type %q, got %q", expected, actual)
}

func jsonType(v any) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	default:
		return reflect.TypeOf(v).String()
	}
}

func checkEnum(allowed []any, value any, path string) error {
	for _, a := range allowed {
		if reflect.DeepEqual(a, value) {
			return nil
		}
	}
	return fail(path, "value %v not in enum %v", value, allowed)
}

func validateObject(s *Schema, obj map[string]any, path string) error {
	for _, field := range s.Required {
		if _, ok := obj[field]; !ok {
			return fail(path, "missing required field %q", field)
		}
	}

	// Deterministic order so the reported error is stable.
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		val, ok := obj[name]
		if !ok {
			continue
		}
		if err := validateValue(s.Properties[name], val, path+"."+name); err != nil {
			return err
		}
	}
	return nil
}

func validateArray(s *Schema, arr []any, path string) error {
	if s.MinItems != nil && len(arr) < *s.MinItems {
		return fail(path, "array length %d is less than minItems %d", len(arr), *s.MinItems)
	}
	if s.Items == nil {
		return nil
	}
	for i, elem := range arr {
		if err := validateValue(s.Items, elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func validateNumber(s *Schema, n float64, path string) error {
	if s.Minimum != nil && n < *s.Minimum {
		return fail(path, "%v is less than minimum %v", n, *s.Minimum)
	}
	if s.Maximum != nil && n > *s.Maximum {
		return fail(path, "%v is greater than maximum %v", n, *s.Maximum)
	}
	return nil
}
