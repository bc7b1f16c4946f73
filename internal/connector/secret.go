package connector

import (
	"encoding/json"
	"log/slog"
)

const secretMask = "********"

// Secret wraps a sensitive string so that it cannot leak through logging or
// default serialization. Cleartext is only available through Reveal.
type Secret struct {
	value string
}

// NewSecret wraps a cleartext value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Reveal returns the cleartext value. This is the only way to get it back.
func (s Secret) Reveal() string { return s.value }

// IsZero reports whether the secret is empty.
func (s Secret) IsZero() bool { return s.value == "" }

func (s Secret) String() string {
	if s.value == "" {
		return ""
	}
	return secretMask
}

func (s Secret) GoString() string { return "connector.Secret{" + s.String() + "}" }

// LogValue masks the secret in slog output.
func (s Secret) LogValue() slog.Value { return slog.StringValue(s.String()) }

// MarshalJSON always emits the masked form.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts a cleartext string. The masked form is rejected by
// callers that round-trip records; see record.go.
func (s *Secret) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	s.value = value
	return nil
}
