package connector

import (
	"errors"
	"fmt"
	"strings"
)

// ErrProviderUnreachable marks a verification that could not reach the
// provider at all. Verify treats it as an inconclusive result rather than a
// failure; every other error is surfaced to the caller unmodified.
var ErrProviderUnreachable = errors.New("provider unreachable")

// ConfigurationError reports malformed or out-of-schema credentials or
// resource descriptors. Caller error, not retryable.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid connector configuration: %s: %v", e.Reason, e.Err)
	}
	return "invalid connector configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// InvalidResourceIDError reports a resource id that matches none of the
// accepted shapes for its resource type.
type InvalidResourceIDError struct {
	ResourceType string
	Raw          string
	Hint         string
}

func (e *InvalidResourceIDError) Error() string {
	msg := fmt.Sprintf("invalid resource id %q for resource type %q", e.Raw, e.ResourceType)
	if strings.TrimSpace(e.Hint) != "" {
		msg += ": " + e.Hint
	}
	return msg
}

// AmbiguousResourceError reports an operation that needs exactly one resource
// id on a multi-instance resource type with none supplied.
type AmbiguousResourceError struct {
	ResourceType string
}

func (e *AmbiguousResourceError) Error() string {
	return fmt.Sprintf("resource type %q supports multiple instances and no resource id was supplied", e.ResourceType)
}

// DuplicateTypeError reports a connector type id registered twice.
type DuplicateTypeError struct {
	TypeID string
}

func (e *DuplicateTypeError) Error() string {
	return fmt.Sprintf("connector type %q already registered", e.TypeID)
}

// UnknownTypeError reports a lookup for a connector type that was never
// registered.
type UnknownTypeError struct {
	TypeID string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown connector type %q", e.TypeID)
}

// AuthorizationError reports credentials the provider rejected. Terminal:
// nothing in this package retries it, and the provider diagnostic is carried
// verbatim.
type AuthorizationError struct {
	TypeID string
	Err    error
}

func (e *AuthorizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authorization failed for connector type %q: %v", e.TypeID, e.Err)
	}
	return fmt.Sprintf("authorization failed for connector type %q", e.TypeID)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// NotSupportedError reports a capability a connector type does not implement.
type NotSupportedError struct {
	TypeID     string
	Capability string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("connector type %q does not support %s", e.TypeID, e.Capability)
}

// LocalToolError reports a failed external tool invocation, with the tool's
// raw diagnostic attached.
type LocalToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *LocalToolError) Error() string {
	msg := fmt.Sprintf("%s invocation failed", e.Tool)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if strings.TrimSpace(e.Stderr) != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

func (e *LocalToolError) Unwrap() error { return e.Err }
