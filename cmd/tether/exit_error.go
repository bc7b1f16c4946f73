package main

import (
	"errors"
	"fmt"

	"github.com/tetherhq/tether/internal/connector"
)

// Exit codes beyond the generic 1, so scripts wrapping tether can tell a
// misconfigured connector apart from rejected credentials or a broken
// local tool without parsing stderr.
const (
	exitCodeUsage       = 2
	exitCodeAuth        = 3
	exitCodeUnsupported = 4
	exitCodeLocalTool   = 5
)

type exitError struct {
	code   int
	err    error
	silent bool
}

func (e *exitError) Error() string {
	if e == nil {
		return ""
	}
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit %d", e.code)
}

func (e *exitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// connectorExitCode maps connector failures onto the dedicated exit codes.
// Errors outside the connector taxonomy report no code and fall through to
// the generic handling.
func connectorExitCode(err error) (int, bool) {
	var (
		cfgErr     *connector.ConfigurationError
		idErr      *connector.InvalidResourceIDError
		ambErr     *connector.AmbiguousResourceError
		unknownErr *connector.UnknownTypeError
		authErr    *connector.AuthorizationError
		nsErr      *connector.NotSupportedError
		toolErr    *connector.LocalToolError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &idErr),
		errors.As(err, &ambErr), errors.As(err, &unknownErr):
		return exitCodeUsage, true
	case errors.As(err, &authErr):
		return exitCodeAuth, true
	case errors.As(err, &nsErr):
		return exitCodeUnsupported, true
	case errors.As(err, &toolErr):
		return exitCodeLocalTool, true
	}
	return 0, false
}
