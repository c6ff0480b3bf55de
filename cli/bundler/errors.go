package bundler

import (
	"errors"
	"fmt"
)

// Configuration errors. They are fatal and never retried.
var (
	ErrNoBundler         = errors.New("no bundler configured")
	ErrEmptyEntrypoint   = errors.New("entrypoint is empty")
	ErrExtensionMismatch = errors.New("entrypoint does not end with the configured extension")
)

// ExitError reports an esbuild run that did not succeed.
type ExitError struct {
	Bundle   string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("bundle %s: esbuild exited with code %d", e.Bundle, e.ExitCode)
	}
	return fmt.Sprintf("bundle %s: esbuild exited with code %d: %s", e.Bundle, e.ExitCode, e.Stderr)
}
