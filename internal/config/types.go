package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration read from text such as "90s" or "2m".
type Duration time.Duration

// UnmarshalText parses a Go duration string. Negative values are rejected.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	switch {
	case err != nil:
		return fmt.Errorf("invalid duration %q: %w", text, err)
	case v < 0:
		return fmt.Errorf("invalid duration %q: must not be negative", text)
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders d in time.Duration form.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns d as a time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

const redacted = "[REDACTED]"

// Secret is an API key or Hub token. Formatting and marshaling never
// reveal it; call Value for the raw string.
type Secret string

// Value returns the raw secret.
func (s Secret) Value() string { return string(s) }

// IsSet reports whether a secret was provided.
func (s Secret) IsSet() bool { return s != "" }

// Mask keeps a short recognizable prefix, e.g. "hf_a****".
func (s Secret) Mask() string {
	const keep = 4
	if len(s) <= keep*2 {
		return redacted
	}
	return string(s[:keep]) + "****"
}

// String is empty for an unset secret and redacted otherwise.
func (s Secret) String() string {
	if !s.IsSet() {
		return ""
	}
	return redacted
}

// GoString keeps %#v redacted.
func (s Secret) GoString() string { return "Secret(" + redacted + ")" }

// MarshalText writes the redacted form.
func (s Secret) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// MarshalJSON writes the redacted form.
func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// UnmarshalText stores text unchanged.
func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(text)
	return nil
}
