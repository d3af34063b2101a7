package workflow

import (
	"fmt"
	"math"
	"strings"
)

// FieldKind classifies a config field for validation and for the
// external editor's form generation.
type FieldKind string

const (
	FieldInt       FieldKind = "int"
	FieldFloat     FieldKind = "float"
	FieldString    FieldKind = "string"
	FieldMultiline FieldKind = "multiline"
	FieldChoice    FieldKind = "choice"
	FieldBool      FieldKind = "bool"
	FieldPath      FieldKind = "path"
	FieldWindow    FieldKind = "window"
)

// Choice is one admissible value of a FieldChoice field.
type Choice struct {
	Value string
	Label string
}

// ConfigField declares one node config field: its key, presentation
// label, kind, and constraints. The same declaration drives
// ValidateConfig and the editor's ConfigSchema, so the two can never
// disagree.
type ConfigField struct {
	Key   string
	Label string
	Kind  FieldKind

	// Min and Max bound numeric kinds inclusively. They are ignored
	// when equal.
	Min float64
	Max float64
	// Step is an editor increment hint.
	Step float64

	// Choices constrain a FieldChoice field.
	Choices []Choice

	// Required rejects empty strings for string-like kinds.
	Required bool

	Default any
}

func defaultsOf(fields []ConfigField) map[string]any {
	cfg := make(map[string]any, len(fields))
	for _, f := range fields {
		cfg[f.Key] = f.Default
	}
	return cfg
}

func cloneConfig(cfg map[string]any) map[string]any {
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	return out
}

// validateFields checks cfg against the field declarations and
// normalises numeric values in place: int fields end up as int, float
// fields as float64, whatever width they arrived with. Persisted
// documents decode numbers as float64; normalisation makes a decoded
// config equal to the one that was saved.
func validateFields(cfg map[string]any, fields []ConfigField) error {
	for _, f := range fields {
		v, ok := cfg[f.Key]
		if !ok {
			return &ConfigError{Field: f.Key, Reason: "value is missing"}
		}

		switch f.Kind {
		case FieldInt:
			iv, ok := coerceInt(v)
			if !ok {
				return &ConfigError{Field: f.Key, Reason: "must be an integer"}
			}
			if err := checkBounds(f, float64(iv)); err != nil {
				return err
			}
			cfg[f.Key] = iv

		case FieldFloat:
			fv, ok := coerceFloat(v)
			if !ok {
				return &ConfigError{Field: f.Key, Reason: "must be a number"}
			}
			if err := checkBounds(f, fv); err != nil {
				return err
			}
			cfg[f.Key] = fv

		case FieldString, FieldMultiline, FieldPath, FieldWindow:
			s, ok := v.(string)
			if !ok {
				return &ConfigError{Field: f.Key, Reason: "must be a string"}
			}
			if f.Required && s == "" {
				return &ConfigError{Field: f.Key, Reason: "must not be empty"}
			}

		case FieldChoice:
			s, ok := v.(string)
			if !ok {
				return &ConfigError{Field: f.Key, Reason: "must be a string"}
			}
			if !choiceAllowed(f.Choices, s) {
				return &ConfigError{
					Field:  f.Key,
					Reason: fmt.Sprintf("must be one of %s", choiceList(f.Choices)),
				}
			}

		case FieldBool:
			if _, ok := v.(bool); !ok {
				return &ConfigError{Field: f.Key, Reason: "must be a boolean"}
			}

		default:
			return &ConfigError{Field: f.Key, Reason: fmt.Sprintf("unknown field kind %q", f.Kind)}
		}
	}
	return nil
}

func coerceInt(v any) (int, bool) {
	switch v := v.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	}
	return 0, false
}

func coerceFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func checkBounds(f ConfigField, v float64) error {
	if f.Min == f.Max {
		return nil
	}
	if v < f.Min || v > f.Max {
		return &ConfigError{
			Field:  f.Key,
			Reason: fmt.Sprintf("must be between %g and %g", f.Min, f.Max),
		}
	}
	return nil
}

func choiceAllowed(choices []Choice, v string) bool {
	for _, c := range choices {
		if c.Value == v {
			return true
		}
	}
	return false
}

func choiceList(choices []Choice) string {
	values := make([]string, len(choices))
	for i, c := range choices {
		values[i] = c.Value
	}
	return strings.Join(values, ", ")
}
