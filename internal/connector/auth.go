package connector

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// FieldSpec describes one field of an authentication method's configuration.
type FieldSpec struct {
	Name        string
	Description string
	Required    bool
	Secret      bool
}

// Schema is the set of fields an authentication method accepts.
type Schema struct {
	Fields []FieldSpec
}

func (s Schema) field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Config is a validated credential bundle for one authentication method.
// Values are held in memory only; secret fields never reach logs or default
// JSON output. The zero value is an empty bundle.
type Config struct {
	schema Schema
	values map[string]string
}

// NewConfig validates values against schema and returns the bundle. Missing
// required fields and fields outside the schema fail with a
// ConfigurationError.
func NewConfig(schema Schema, values map[string]string) (Config, error) {
	trimmed := make(map[string]string, len(values))
	for name, value := range values {
		spec, ok := schema.field(name)
		if !ok {
			return Config{}, &ConfigurationError{Reason: fmt.Sprintf("unknown field %q", name)}
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		trimmed[spec.Name] = value
	}
	for _, f := range schema.Fields {
		if f.Required && trimmed[f.Name] == "" {
			return Config{}, &ConfigurationError{Reason: fmt.Sprintf("field %q is required", f.Name)}
		}
	}
	return Config{schema: schema, values: trimmed}, nil
}

// Schema returns the schema this bundle was validated against.
func (c Config) Schema() Schema { return c.schema }

// Value returns the cleartext of a non-secret field, or the empty string for
// absent and secret fields. Secret fields must go through SecretValue.
func (c Config) Value(name string) string {
	if spec, ok := c.schema.field(name); !ok || spec.Secret {
		return ""
	}
	return c.values[name]
}

// SecretValue returns a field's value wrapped as a Secret regardless of its
// secrecy tag. Cleartext requires an explicit Reveal.
func (c Config) SecretValue(name string) Secret {
	return Secret{value: c.values[name]}
}

// Has reports whether a field carries a value.
func (c Config) Has(name string) bool {
	return c.values[name] != ""
}

// Fingerprint is a stable digest of the credential values. Cached clients
// carry the fingerprint they were created with, so a credential rotation is
// observable as a mismatch.
func (c Config) Fingerprint() string {
	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		fmt.Fprintf(h, "%d:%s=%d:%s;", len(name), name, len(c.values[name]), c.values[name])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MarshalJSON emits field values with secrets masked. This is the only JSON
// form the bundle produces by default; storage uses EncodeSensitive.
func (c Config) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(c.values))
	for name, value := range c.values {
		if spec, ok := c.schema.field(name); ok && spec.Secret {
			out[name] = secretMask
			continue
		}
		out[name] = value
	}
	return json.Marshal(out)
}

// LogValue masks secret fields in slog output.
func (c Config) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(c.values))
	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := c.values[name]
		if spec, ok := c.schema.field(name); ok && spec.Secret {
			value = secretMask
		}
		attrs = append(attrs, slog.String(name, value))
	}
	return slog.GroupValue(attrs...)
}

type sensitiveField struct {
	Value  string `json:"value"`
	Secret bool   `json:"secret,omitempty"`
}

// EncodeSensitive emits the cleartext storage form, with every secret field
// tagged so a reader can tell which values must never be displayed.
func (c Config) EncodeSensitive() ([]byte, error) {
	out := make(map[string]sensitiveField, len(c.values))
	for name, value := range c.values {
		spec, _ := c.schema.field(name)
		out[name] = sensitiveField{Value: value, Secret: spec.Secret}
	}
	return json.Marshal(out)
}

// DecodeSensitive rebuilds a bundle from its storage form, re-validating it
// against the schema.
func DecodeSensitive(schema Schema, data []byte) (Config, error) {
	var fields map[string]sensitiveField
	if err := json.Unmarshal(data, &fields); err != nil {
		return Config{}, &ConfigurationError{Reason: "malformed stored config", Err: err}
	}
	values := make(map[string]string, len(fields))
	for name, f := range fields {
		values[name] = f.Value
	}
	return NewConfig(schema, values)
}
