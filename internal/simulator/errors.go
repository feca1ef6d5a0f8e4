package simulator

import "github.com/juju/errors"

// ServerStartFailedError is returned when the S7 server library fails to
// start (spec.md §7's ServerStartFailed kind), aborting Start.
type ServerStartFailedError struct {
	Port int

	err error
}

func (e *ServerStartFailedError) Error() string { return e.err.Error() }
func (e *ServerStartFailedError) Unwrap() error { return e.err }
func (e *ServerStartFailedError) Cause() error  { return errors.Cause(e.err) }

func serverStartFailed(port int, cause error) error {
	return &ServerStartFailedError{
		Port: port,
		err:  errors.Annotatef(cause, "s7 server failed to start on port %d", port),
	}
}
