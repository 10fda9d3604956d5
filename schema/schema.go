// Package schema validates collection documents against a JSON Schema
// (draft-07 subset).
//
// Supported keywords:
//   - type (string, number, integer, boolean, object, array, null)
//   - properties, required, additionalProperties
//   - items (for arrays)
//   - minimum, maximum
//   - minLength, maxLength, pattern
//   - enum
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("document does not match schema")

// Schema is a compiled schema. The zero value and nil accept everything.
type Schema struct {
	def      map[string]any
	patterns map[string]*regexp.Regexp
}

// Compile checks def and precompiles its patterns.
func Compile(def map[string]any) (*Schema, error) {
	s := &Schema{def: def, patterns: make(map[string]*regexp.Regexp)}
	if err := s.compile(def, "$"); err != nil {
		return nil, err
	}
	return s, nil
}

// MustCompile is like Compile but panics on error. Intended for package
// level schema definitions.
func MustCompile(def map[string]any) *Schema {
	s, err := Compile(def)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) compile(def map[string]any, path string) error {
	if p, ok := def["pattern"]; ok {
		ps, ok := p.(string)
		if !ok {
			return fmt.Errorf("schema %s: pattern must be a string", path)
		}
		re, err := regexp.Compile(ps)
		if err != nil {
			return fmt.Errorf("schema %s: %w", path, err)
		}
		s.patterns[ps] = re
	}
	if props, ok := def["properties"].(map[string]any); ok {
		for field, sub := range props {
			if m, ok := sub.(map[string]any); ok {
				if err := s.compile(m, path+"."+field); err != nil {
					return err
				}
			}
		}
	}
	if items, ok := def["items"].(map[string]any); ok {
		return s.compile(items, path+"[]")
	}
	return nil
}

// Validate checks doc. Returns nil when s is nil.
func (s *Schema) Validate(doc map[string]any) error {
	if s == nil || s.def == nil {
		return nil
	}
	if err := s.value(s.def, normalize(doc), "$"); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// normalize round-trips v through JSON so Go types (int, time.Time, typed
// structs) are checked the way they will be stored.
func normalize(v map[string]any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func (s *Schema) value(def map[string]any, v any, path string) error {
	if t, ok := def["type"].(string); ok {
		if err := checkType(t, v, path); err != nil {
			return err
		}
	}
	if allowed, ok := def["enum"].([]any); ok {
		if !inEnum(allowed, v) {
			return fmt.Errorf("%s: value not in enum %v", path, allowed)
		}
	}
	switch x := v.(type) {
	case map[string]any:
		return s.object(def, x, path)
	case []any:
		return s.array(def, x, path)
	case string:
		return s.str(def, x, path)
	case float64:
		return number(def, x, path)
	}
	return nil
}

func checkType(expected string, v any, path string) error {
	actual := jsonType(v)
	if expected == actual {
		return nil
	}
	if expected == "integer" {
		if f, ok := v.(float64); ok && f == float64(int64(f)) {
			return nil
		}
	}
	return fmt.Errorf("%s: expected type %q, got %q", path, expected, actual)
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
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

func inEnum(allowed []any, v any) bool {
	for _, a := range allowed {
		if reflect.DeepEqual(a, v) {
			return true
		}
	}
	return false
}

func (s *Schema) object(def map[string]any, obj map[string]any, path string) error {
	if req, ok := def["required"].([]any); ok {
		for _, r := range req {
			if field, ok := r.(string); ok {
				if _, exists := obj[field]; !exists {
					return fmt.Errorf("%s: missing required field %q", path, field)
				}
			}
		}
	}

	props, _ := def["properties"].(map[string]any)
	for field, sub := range props {
		val, exists := obj[field]
		if !exists {
			continue
		}
		if m, ok := sub.(map[string]any); ok {
			if err := s.value(m, val, path+"."+field); err != nil {
				return err
			}
		}
	}

	if ap, ok := def["additionalProperties"].(bool); ok && !ap {
		var extra []string
		for field := range obj {
			if _, defined := props[field]; !defined {
				extra = append(extra, field)
			}
		}
		if len(extra) > 0 {
			sort.Strings(extra)
			return fmt.Errorf("%s: additional properties not allowed: %s", path, strings.Join(extra, ", "))
		}
	}
	return nil
}

func (s *Schema) array(def map[string]any, arr []any, path string) error {
	items, ok := def["items"].(map[string]any)
	if !ok {
		return nil
	}
	for i, elem := range arr {
		if err := s.value(items, elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) str(def map[string]any, v string, path string) error {
	if n, ok := toFloat(def["minLength"]); ok && float64(len(v)) < n {
		return fmt.Errorf("%s: string length %d is less than minLength %v", path, len(v), n)
	}
	if n, ok := toFloat(def["maxLength"]); ok && float64(len(v)) > n {
		return fmt.Errorf("%s: string length %d is greater than maxLength %v", path, len(v), n)
	}
	if p, ok := def["pattern"].(string); ok {
		if re := s.patterns[p]; re != nil && !re.MatchString(v) {
			return fmt.Errorf("%s: does not match pattern %q", path, p)
		}
	}
	return nil
}

func number(def map[string]any, n float64, path string) error {
	if v, ok := toFloat(def["minimum"]); ok && n < v {
		return fmt.Errorf("%s: %v is less than minimum %v", path, n, v)
	}
	if v, ok := toFloat(def["maximum"]); ok && n > v {
		return fmt.Errorf("%s: %v is greater than maximum %v", path, n, v)
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
