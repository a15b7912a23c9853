// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the value type of a schema field.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindStringList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindStringList:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field is one property of a flat response object.
type Field struct {
	Name        string
	Description string
	Kind        Kind

	// Enum restricts string values, or list items for KindStringList.
	// Matching is case-insensitive and returns the spelling given here.
	Enum []string

	// Min and Max bound KindNumber values, inclusive.
	Min *float64
	Max *float64

	Required bool
}

// Schema describes the flat object an inference call must return.
type Schema struct {
	Name        string
	Description string
	Fields      []Field
}

// Bound returns a pointer to v, for Field.Min and Field.Max.
func Bound(v float64) *float64 {
	return &v
}

// JSONSchema renders the schema as a JSON Schema object, suitable for tool parameters.
func (s *Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	required := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		props[f.Name] = f.jsonSchema()
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func (f Field) jsonSchema() map[string]any {
	prop := map[string]any{"type": f.Kind.String()}
	if f.Description != "" {
		prop["description"] = f.Description
	}
	switch f.Kind {
	case KindString:
		if len(f.Enum) > 0 {
			prop["enum"] = f.Enum
		}
	case KindNumber:
		if f.Min != nil {
			prop["minimum"] = *f.Min
		}
		if f.Max != nil {
			prop["maximum"] = *f.Max
		}
	case KindStringList:
		items := map[string]any{"type": "string"}
		if len(f.Enum) > 0 {
			items["enum"] = f.Enum
		}
		prop["items"] = items
	}
	return prop
}

// Validate checks raw against the schema and returns a normalized copy.
// Optional fields that are absent take their zero value; unknown keys are dropped.
// List items outside the enum are dropped, while scalar enum mismatches are violations.
func (s *Schema) Validate(raw map[string]any) (map[string]any, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: %s: no object", ErrSchemaViolation, s.Name)
	}
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		v, ok := raw[f.Name]
		if !ok || v == nil {
			if f.Required {
				return nil, fmt.Errorf("%w: %s.%s is required", ErrSchemaViolation, s.Name, f.Name)
			}
			out[f.Name] = f.zero()
			continue
		}
		nv, err := f.normalize(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %w", ErrSchemaViolation, s.Name, f.Name, err)
		}
		out[f.Name] = nv
	}
	return out, nil
}

func (f Field) zero() any {
	switch f.Kind {
	case KindNumber:
		return 0.0
	case KindBool:
		return false
	case KindStringList:
		return []string{}
	default:
		return ""
	}
}

func (f Field) normalize(v any) (any, error) {
	switch f.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		s = strings.TrimSpace(s)
		if len(f.Enum) == 0 {
			return s, nil
		}
		if canon, ok := matchEnum(f.Enum, s); ok {
			return canon, nil
		}
		return nil, fmt.Errorf("%q not in %v", s, f.Enum)

	case KindNumber:
		n, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		if f.Min != nil && n < *f.Min {
			return nil, fmt.Errorf("%v below minimum %v", n, *f.Min)
		}
		if f.Max != nil && n > *f.Max {
			return nil, fmt.Errorf("%v above maximum %v", n, *f.Max)
		}
		return n, nil

	case KindBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(x))
			if err != nil {
				return nil, fmt.Errorf("expected boolean, got %q", x)
			}
			return b, nil
		default:
			return nil, fmt.Errorf("expected boolean, got %T", v)
		}

	case KindStringList:
		items, err := toStrings(v)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(items))
		seen := make(map[string]struct{}, len(items))
		for _, item := range items {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if len(f.Enum) > 0 {
				canon, ok := matchEnum(f.Enum, item)
				if !ok {
					continue
				}
				item = canon
			}
			if _, dup := seen[item]; dup {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported kind %s", f.Kind)
}

func matchEnum(enum []string, s string) (string, bool) {
	for _, e := range enum {
		if strings.EqualFold(e, s) {
			return e, true
		}
	}
	return "", false
}

func toFloat(v any) (float64, error) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case int32:
		n = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("expected number, got %q", x)
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("expected number, got %q", x)
		}
		n = f
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("expected finite number, got %v", n)
	}
	return n, nil
}

func toStrings(v any) ([]string, error) {
	switch x := v.(type) {
	case []string:
		return x, nil
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected list of strings, got item %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		// Some models collapse single-item lists to a bare string.
		return []string{x}, nil
	default:
		return nil, fmt.Errorf("expected list, got %T", v)
	}
}
