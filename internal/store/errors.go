package store

import "github.com/juju/errors"

// OutOfRangeError is returned by Read/Write when a request's offset/size (or
// bit) falls outside the addressed DB's buffer, per spec.md §7's OutOfRange
// kind. Bit is -1 for the byte/size-range form.
type OutOfRangeError struct {
	DB     uint32
	Offset int
	Size   int
	Bit    int
	BufLen int

	err error
}

func (e *OutOfRangeError) Error() string { return e.err.Error() }
func (e *OutOfRangeError) Unwrap() error { return e.err }
func (e *OutOfRangeError) Cause() error  { return errors.Cause(e.err) }

func outOfRangeErr(db uint32, offset, size, bufLen int) error {
	return &OutOfRangeError{
		DB: db, Offset: offset, Size: size, Bit: -1, BufLen: bufLen,
		err: errors.Errorf("db %d: out of range at offset %d, size %d, buffer %d", db, offset, size, bufLen),
	}
}

func bitOutOfRangeErr(db uint32, offset, bit, bufLen int) error {
	return &OutOfRangeError{
		DB: db, Offset: offset, Size: 1, Bit: bit, BufLen: bufLen,
		err: errors.Errorf("db %d: bit out of range at offset %d.%d, buffer %d", db, offset, bit, bufLen),
	}
}
