// Package exitcode provides standardized exit codes for cargohook
package exitcode

import "errors"

// Exit codes for the cargohook CLI. Failures of pipeline stages are not
// mapped through this table: the failing tool's own exit status is
// propagated to the caller verbatim.
const (
	Success         = 0
	GeneralError    = 1
	ConfigError     = 2
	FileSystemError = 3
	ToolNotFound    = 4
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ConfigError:
		return "Configuration error"
	case FileSystemError:
		return "File system error"
	case ToolNotFound:
		return "Tool not found"
	default:
		return "Unknown error"
	}
}

// Coded is implemented by errors that carry the exit status the process
// should terminate with.
type Coded interface {
	ExitCode() int
}

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }
func (e *codedError) ExitCode() int { return e.code }

// WithCode tags err with an explicit exit status.
func WithCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &codedError{err: err, code: code}
}

// FromError resolves the exit status for err. Errors implementing Coded
// (including wrapped ones) win; anything else maps to GeneralError.
func FromError(err error) int {
	if err == nil {
		return Success
	}
	var coded Coded
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return GeneralError
}
