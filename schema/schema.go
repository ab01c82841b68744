// Package schema decodes the JSON Schema a server attaches to a tool.
package schema

import (
	"encoding/json"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// TypeLabel is the declared "type" of a schema node, kept as an opaque
// display string. No coercion or validation is derived from it.
type TypeLabel string

// UnmarshalJSON accepts a string, a list of strings (joined with "|") or
// any other value, which yields an empty label instead of an error.
func (l *TypeLabel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = TypeLabel(s)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = TypeLabel(strings.Join(list, "|"))
		return nil
	}

	*l = ""
	return nil
}

// String returns the label text.
func (l TypeLabel) String() string {
	return string(l)
}

// Property describes one parameter of a tool input.
type Property struct {
	Type        TypeLabel `json:"type,omitempty"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Default     any       `json:"default,omitempty"`
	Enum        []any     `json:"enum,omitempty"`
}

// UnmarshalJSON accepts any JSON value. Boolean sub-schemas and objects with
// unexpected field types decode to a zero Property, so the parameter is kept
// with an empty type label.
func (p *Property) UnmarshalJSON(data []byte) error {
	type plain Property

	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		*p = Property{}
		return nil
	}
	*p = Property(v)
	return nil
}

// Properties maps parameter names to their descriptors in the order the
// server declared them.
type Properties = orderedmap.OrderedMap[string, Property]

// Schema represents a tool input schema.
type Schema struct {
	Type        TypeLabel   `json:"type,omitempty"`
	Properties  *Properties `json:"properties,omitempty"`
	Required    []string    `json:"required,omitempty"`
	Description string      `json:"description,omitempty"`
}

// NewProperties returns an empty ordered property map.
func NewProperties() *Properties {
	return orderedmap.New[string, Property]()
}

// Len returns the number of declared properties.
func (s *Schema) Len() int {
	if s == nil || s.Properties == nil {
		return 0
	}
	return s.Properties.Len()
}

// Each calls fn for every property in declaration order and stops at the
// first error.
func (s *Schema) Each(fn func(name string, p Property) error) error {
	if s.Len() == 0 {
		return nil
	}
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		if err := fn(pair.Key, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the property names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, 0, s.Len())
	_ = s.Each(func(name string, _ Property) error {
		names = append(names, name)
		return nil
	})
	return names
}
