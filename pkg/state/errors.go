package state

import "fmt"

// DecodeError reports a stored record whose encoding is unrecognized or
// corrupt. It is never recovered from internally: substituting a default
// state would mask data corruption.
type DecodeError struct {
	// Field names the record field that failed to decode.
	Field string
	// Value holds the offending raw value, when it is printable.
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("state: cannot decode field %q", e.Field)
	if e.Value != "" {
		msg = fmt.Sprintf("%s: unsupported value %q", msg, e.Value)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
