package codec

import "fmt"

// strconvErrf builds a plain error for value-parsing failures; kept distinct
// from InvalidValueError so Pack can wrap it as the Cause.
func strconvErrf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
