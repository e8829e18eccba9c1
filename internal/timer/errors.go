package timer

import (
	"errors"
	"fmt"
)

// Code classifies why a timer operation was rejected.
type Code int

const (
	// NotStarted indicates the operation requires a timer that has been started.
	NotStarted Code = iota + 1
	// NotStopped indicates the operation requires a timer that has been stopped.
	NotStopped
	// RequiresReset indicates the timer must be reset before the operation is allowed.
	RequiresReset
)

// String returns the code as a snake_case identifier, suitable for metric tags.
func (c Code) String() string {
	switch c {
	case NotStarted:
		return "not_started"
	case NotStopped:
		return "not_stopped"
	case RequiresReset:
		return "requires_reset"
	default:
		return fmt.Sprintf("code_%d", int(c))
	}
}

func (c Code) message() string {
	switch c {
	case NotStarted:
		return "timer must be started first"
	case NotStopped:
		return "timer must be stopped first"
	case RequiresReset:
		return "timer must be reset"
	default:
		return "unknown timer error"
	}
}

// Error is returned by a timer operation that is not valid in the timer's current state.
type Error struct {
	// Op names the rejected operation, e.g. "start" or "add lap".
	Op   string
	Code Code
}

var (
	// ErrNotStarted matches any Error with the NotStarted code.
	ErrNotStarted = &Error{Code: NotStarted}

	// ErrNotStopped matches any Error with the NotStopped code.
	ErrNotStopped = &Error{Code: NotStopped}

	// ErrRequiresReset matches any Error with the RequiresReset code.
	ErrRequiresReset = &Error{Code: RequiresReset}
)

func (e *Error) Error() string {
	if e.Op == "" {
		return "timer: " + e.Code.message()
	}

	return fmt.Sprintf("timer: cannot %s: %s", e.Op, e.Code.message())
}

// Is reports whether target is an *Error with the same code. A target without an Op matches
// errors from every operation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Code == e.Code && (t.Op == "" || t.Op == e.Op)
}

// ErrorCode returns the Code of a timer error anywhere in err's chain, or zero if there is none.
func ErrorCode(err error) Code {
	var timerErr *Error
	if errors.As(err, &timerErr) {
		return timerErr.Code
	}

	return 0
}
