package errors

import "fmt"

// ErrorCode represents a unique identifier for specific error conditions in nightowl.
type ErrorCode int

const (
	ErrCodeUnknown       ErrorCode = 1000
	ErrCodeConfigInvalid ErrorCode = 1001

	// Remote console
	ErrCodeConsoleConnect ErrorCode = 2001
	ErrCodeConsoleExec    ErrorCode = 2002
	ErrCodeOccupancyParse ErrorCode = 2003

	// Log tail
	ErrCodeLogFileMissing ErrorCode = 3001
	ErrCodeWatcherFailed  ErrorCode = 3002

	// Host
	ErrCodePowerOffFailed ErrorCode = 4001

	// Status socket
	ErrCodeStatusSocket ErrorCode = 5001
)

// NightowlError is a custom error type that provides structured error information,
// including an error code, the operation being performed, and the underlying cause.
type NightowlError struct {
	// Code is the specific error code.
	Code ErrorCode
	// Msg is a human-readable description of the error.
	Msg string
	// Operation describes the action being performed when the error occurred.
	Operation string
	// Err is the underlying error that caused this error, if any.
	Err error
}

// Error returns a formatted string representation of the error.
func (e *NightowlError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %s (cause: %v)", e.Code, e.Operation, e.Msg, e.Err)
	}
	return fmt.Sprintf("[%d] %s: %s", e.Code, e.Operation, e.Msg)
}

// Unwrap returns the underlying error.
func (e *NightowlError) Unwrap() error {
	return e.Err
}

// New creates a new NightowlError with the specified code, operation, message, and underlying error.
func New(code ErrorCode, op, msg string, err error) error {
	return &NightowlError{
		Code:      code,
		Msg:       msg,
		Operation: op,
		Err:       err,
	}
}

// CodeOf returns the code carried by err, or ErrCodeUnknown when err is not
// a NightowlError anywhere in its chain.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if ne, ok := err.(*NightowlError); ok {
			return ne.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ErrCodeUnknown
}

// Personal.AI order the ending
