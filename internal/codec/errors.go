package codec

import "github.com/juju/errors"

// InvalidValueError is returned by Pack when the input value does not
// satisfy the target type's textual or range constraints (spec.md §7).
type InvalidValueError struct {
	Type  string
	Value interface{}

	err error
}

func (e *InvalidValueError) Error() string { return e.err.Error() }
func (e *InvalidValueError) Unwrap() error { return e.err }
func (e *InvalidValueError) Cause() error  { return errors.Cause(e.err) }

// ShortBufferError is returned by Unpack when fewer bytes than the type's
// fixed size are supplied (spec.md §7).
type ShortBufferError struct {
	Type string
	Need int
	Got  int

	err error
}

func (e *ShortBufferError) Error() string { return e.err.Error() }
func (e *ShortBufferError) Unwrap() error { return e.err }
func (e *ShortBufferError) Cause() error  { return errors.Cause(e.err) }

func invalidValue(typ string, value interface{}, cause error) error {
	var err error
	if cause != nil {
		err = errors.Annotatef(cause, "codec: invalid value %v for type %s", value, typ)
	} else {
		err = errors.Errorf("codec: invalid value %v for type %s", value, typ)
	}
	return &InvalidValueError{Type: typ, Value: value, err: err}
}

func shortBuffer(typ string, need, got int) error {
	return &ShortBufferError{
		Type: typ, Need: need, Got: got,
		err: errors.Errorf("codec: short buffer for type %s: need %d bytes, got %d", typ, need, got),
	}
}
