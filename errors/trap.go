package errors

import "fmt"

// TrapKind identifies the guest condition that ended execution.
type TrapKind string

const (
	TrapAssert        TrapKind = "assert"
	TrapAbort         TrapKind = "abort"
	TrapStackOverflow TrapKind = "stack_overflow"
	TrapException     TrapKind = "exception"
)

// TrapError is raised from inside a host import and unwinds the guest call.
// A runtime that produced one cannot be resumed.
type TrapError struct {
	Kind    TrapKind
	Message string
}

func (e *TrapError) Error() string {
	return fmt.Sprintf("Aborted(%s)", e.Message)
}

// Is reports whether target is a TrapError of the same kind, or a zero TrapError.
func (e *TrapError) Is(target error) bool {
	t, ok := target.(*TrapError)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// GuestError is an error-tagged handle returned by the guest.
type GuestError struct {
	Export  string
	Message string
	Code    uint32
}

func (e *GuestError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("error code %d", e.Code)
	}
	if e.Export != "" {
		return fmt.Sprintf("guest error from %s: %s", e.Export, msg)
	}
	return "guest error: " + msg
}
