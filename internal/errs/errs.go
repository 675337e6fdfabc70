// Package errs wraps configuration and lifecycle failures with enough
// context to diagnose a bad startup without losing the underlying cause.
//
// ConfigError is a plain error value that propagates out of Initialize,
// Start, and Shutdown the same way a single fatal exception type would in a
// language that has exceptions: one type, caught once at the top of main.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigError marks a configuration problem: bad path, bad executor
// ordering, duplicate name, unknown type, invalid scheduling string, CPU
// index out of range. Returned from Initialize, it aborts startup. The
// ConfigErrors that threadpolicy.Apply returns (invalid scheduling string,
// CPU index out of range) are only logged by the executors and do not
// abort startup.
type ConfigError struct {
	msg string
	err error
}

func (e *ConfigError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *ConfigError) Unwrap() error { return e.err }

// Config builds a ConfigError from a message.
func Config(format string, args ...any) error {
	return &ConfigError{msg: errors.Errorf(format, args...).Error()}
}

// WrapConfig wraps an existing error as a ConfigError, preserving it for
// errors.Is/errors.As against the cause. msg holds only the format/args
// message — Error() appends the cause itself, so it must not already be
// baked into msg.
func WrapConfig(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &ConfigError{msg: fmt.Sprintf(format, args...), err: err}
}

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
