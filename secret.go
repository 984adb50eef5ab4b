package secretstore

import (
	"fmt"
	"log/slog"
)

// redacted replaces secret values wherever a Secret is formatted or logged.
const redacted = "[REDACTED]"

// Secret is a named secret value.
//
// Name uniquely identifies the secret within a store and is never empty on a Secret
// returned by the store. Value may be any text, including the empty string.
type Secret struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Clone returns a copy of the secret. A nil secret clones to nil.
func (s *Secret) Clone() *Secret {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// String implements fmt.Stringer without exposing the value.
func (s *Secret) String() string {
	if s == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Secret{Name: %q, Value: %s}", s.Name, redacted)
}

// LogValue implements slog.LogValuer so secrets passed to a logger never leak their value.
func (s *Secret) LogValue() slog.Value {
	if s == nil {
		return slog.StringValue("<nil>")
	}
	return slog.GroupValue(
		slog.String("name", s.Name),
		slog.String("value", redacted),
	)
}
