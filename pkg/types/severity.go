package types

import (
	"errors"
	"fmt"
)

// Severity is the outcome of a probe or of the whole check.
//
// OK < Warning < Critical form a total order used by the aggregator.
// Unknown is out of band: it is never folded, it aborts the run.
type Severity int

const (
	OK Severity = iota
	Warning
	Critical
	Unknown
)

// String returns the upper-case name printed in the status line.
func (s Severity) String() string {
	switch s {
	case OK:
		return "OK"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ExitCode returns the monitoring-plugin exit status for s.
func (s Severity) ExitCode() int {
	switch s {
	case OK, Warning, Critical:
		return int(s)
	default:
		return int(Unknown)
	}
}

// Max returns the more severe of a and b under OK < Warning < Critical.
func Max(a, b Severity) Severity {
	if b > a {
		return b
	}
	return a
}

// UnknownError is a fatal condition: a fact the check needs could not be
// determined. Msg is printed verbatim after "PUPPET UNKNOWN: ".
type UnknownError struct {
	Msg string
	Err error
}

func (e *UnknownError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *UnknownError) Unwrap() error { return e.Err }

// Unknownf builds an UnknownError with a formatted message.
func Unknownf(format string, args ...any) error {
	return &UnknownError{Msg: fmt.Sprintf(format, args...)}
}

// WrapUnknown builds an UnknownError that keeps err as its cause.
// Only msg is shown to the operator.
func WrapUnknown(err error, msg string) error {
	return &UnknownError{Msg: msg, Err: err}
}

// AsUnknown reports whether err is, or wraps, an UnknownError.
func AsUnknown(err error) (*UnknownError, bool) {
	var ue *UnknownError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
