package script

import "github.com/juju/errors"

// ParseError is reported while loading a script, per spec.md §4.5: unknown
// commands, malformed arguments, an orphan END_LOOP, or an unclosed LOOP.
// A script carrying one is not runnable.
type ParseError struct {
	Line   int
	Reason string

	err error
}

func (e *ParseError) Error() string { return e.err.Error() }
func (e *ParseError) Unwrap() error { return e.err }
func (e *ParseError) Cause() error  { return errors.Cause(e.err) }

func parseErr(line int, reason string) error {
	return &ParseError{
		Line: line, Reason: reason,
		err: errors.Errorf("script parse error at line %d: %s", line, reason),
	}
}

// RuntimeError ends the current run (but leaves the engine ready to load
// another) per spec.md §7: an unknown field referenced by WAIT_UNTIL at
// execution time.
type RuntimeError struct {
	Line   int
	Reason string

	err error
}

func (e *RuntimeError) Error() string { return e.err.Error() }
func (e *RuntimeError) Unwrap() error { return e.err }
func (e *RuntimeError) Cause() error  { return errors.Cause(e.err) }

func runtimeErr(line int, reason string) error {
	return &RuntimeError{
		Line: line, Reason: reason,
		err: errors.Errorf("script runtime error at line %d: %s", line, reason),
	}
}
