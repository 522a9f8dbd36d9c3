package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaskedSecret is the placeholder a secret field renders as on every read
// path once a value is set. Submitting it back on an update means "leave the
// stored secret unchanged". This exact value is part of the API contract.
const MaskedSecret = "•••set•••"

// ErrUnknownKind means a lookup for a kind outside the registry. With the
// closed Kind enum validated at the routing layer this is a programming
// error, not user input.
var ErrUnknownKind = errors.New("unknown integration kind")

type ValueKind string

const (
	ValueString ValueKind = "string"
	ValueInt    ValueKind = "int"
	ValueBool   ValueKind = "bool"
)

// FieldSpec declares one configuration field of an integration.
type FieldSpec struct {
	Name     string    `json:"name"`
	Kind     ValueKind `json:"kind"`
	Secret   bool      `json:"secret"`
	Required bool      `json:"required"`
	Default  any       `json:"default,omitempty"`
}

type Schema struct {
	Kind   Kind        `json:"kind"`
	Fields []FieldSpec `json:"fields"`
}

func (s Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// SecretFields returns the names of the schema's secret fields.
func (s Schema) SecretFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Secret {
			names = append(names, f.Name)
		}
	}
	return names
}

var registry = map[Kind]Schema{
	KindIdentity: {
		Kind: KindIdentity,
		Fields: []FieldSpec{
			{Name: "issuer_url", Kind: ValueString, Required: true},
			{Name: "client_id", Kind: ValueString, Required: true},
			{Name: "client_secret", Kind: ValueString, Secret: true, Required: true},
		},
	},
	KindTelephony: {
		Kind: KindTelephony,
		Fields: []FieldSpec{
			{Name: "host", Kind: ValueString, Required: true},
			{Name: "port", Kind: ValueInt, Required: true, Default: 8443},
			{Name: "username", Kind: ValueString, Required: true},
			{Name: "password", Kind: ValueString, Secret: true, Required: true},
			{Name: "use_tls", Kind: ValueBool, Default: true},
		},
	},
	KindMediaRecording: {
		Kind: KindMediaRecording,
		Fields: []FieldSpec{
			{Name: "api_url", Kind: ValueString, Required: true},
			{Name: "api_token", Kind: ValueString, Secret: true, Required: true},
			{Name: "verify_tls", Kind: ValueBool, Default: true},
		},
	},
	KindSearchIndex: {
		Kind: KindSearchIndex,
		Fields: []FieldSpec{
			{Name: "address", Kind: ValueString, Required: true},
			{Name: "username", Kind: ValueString},
			{Name: "password", Kind: ValueString, Secret: true},
		},
	},
	KindEmail: {
		Kind: KindEmail,
		Fields: []FieldSpec{
			{Name: "host", Kind: ValueString, Required: true},
			{Name: "port", Kind: ValueInt, Default: 587},
			{Name: "username", Kind: ValueString},
			{Name: "password", Kind: ValueString, Secret: true},
			{Name: "from_address", Kind: ValueString, Required: true},
			{Name: "use_starttls", Kind: ValueBool, Default: true},
		},
	},
}

// For returns the schema registered for kind.
func For(kind Kind) (Schema, error) {
	s, ok := registry[kind]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return s, nil
}

// ValidationError collects everything wrong with a submitted value map.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Issues, "; ")
}

// Validate checks raw values against the kind's schema and returns the
// normalized value map. The result's keys are exactly the schema's field
// names: required fields must be present, optional absent fields are filled
// from their defaults, unknown fields are rejected. The only coercion
// allowed is a numeric string for an int field.
func Validate(kind Kind, raw map[string]any) (map[string]any, error) {
	s, err := For(kind)
	if err != nil {
		return nil, err
	}

	var issues []string
	for name := range raw {
		if _, ok := s.Field(name); !ok {
			issues = append(issues, fmt.Sprintf("unknown field %q", name))
		}
	}

	values := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		v, ok := raw[f.Name]
		if !ok || v == nil {
			if f.Required {
				issues = append(issues, fmt.Sprintf("missing required field %q", f.Name))
				continue
			}
			values[f.Name] = defaultFor(f)
			continue
		}

		normalized, err := normalize(f, v)
		if err != nil {
			issues = append(issues, err.Error())
			continue
		}
		values[f.Name] = normalized
	}

	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return values, nil
}

func defaultFor(f FieldSpec) any {
	if f.Default != nil {
		return f.Default
	}
	switch f.Kind {
	case ValueInt:
		return 0
	case ValueBool:
		return false
	default:
		return ""
	}
}

func normalize(f FieldSpec, v any) (any, error) {
	switch f.Kind {
	case ValueString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %q must be a string", f.Name)
		}
		return s, nil
	case ValueInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n != float64(int(n)) {
				return nil, fmt.Errorf("field %q must be an integer", f.Name)
			}
			return int(n), nil
		case string:
			// textual port numbers round-tripped by forms
			parsed, err := strconv.Atoi(strings.TrimSpace(n))
			if err != nil {
				return nil, fmt.Errorf("field %q must be an integer", f.Name)
			}
			return parsed, nil
		default:
			return nil, fmt.Errorf("field %q must be an integer", f.Name)
		}
	case ValueBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("field %q must be a boolean", f.Name)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("field %q has unsupported kind %q", f.Name, f.Kind)
	}
}
