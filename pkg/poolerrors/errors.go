// Package poolerrors provides structured error handling for the object pool
// with error categorization, key-value context and stack capture.
//
// # Overview
//
// Every failure the pool registry can report maps to one ErrorType:
//   - ErrorTypeInvalidArgument: a null type key or null instance was passed
//   - ErrorTypeCreationFailed: the instantiation facility produced no instance
//   - ErrorTypePoolNotFound: no pool exists for the referenced type
//   - ErrorTypeInstanceNotActive: the instance is not in its pool's active set
//
// Configuration and session problems use ErrorTypeConfig and
// ErrorTypeUnsupported.
//
// # Basic Usage
//
//	err := poolerrors.New(poolerrors.ErrorTypePoolNotFound, "no pool for type").
//	    WithDetail("type", key.String())
//
//	if poolerrors.IsType(err, poolerrors.ErrorTypePoolNotFound) {
//	    // seed the type first
//	}
//
// # Propagation
//
// None of these errors are fatal. The registry returns them synchronously
// and remains usable afterwards.
package poolerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of a pool failure.
type ErrorType string

const (
	// ErrorTypeInvalidArgument represents a null or unresolved argument
	ErrorTypeInvalidArgument ErrorType = "invalid_argument"
	// ErrorTypeCreationFailed represents a failed instantiation
	ErrorTypeCreationFailed ErrorType = "creation_failed"
	// ErrorTypePoolNotFound represents a reference to a type with no pool
	ErrorTypePoolNotFound ErrorType = "pool_not_found"
	// ErrorTypeInstanceNotActive represents an instance missing from the active set
	ErrorTypeInstanceNotActive ErrorType = "instance_not_active"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeUnsupported represents a session kind that does not support pooling
	ErrorTypeUnsupported ErrorType = "unsupported"
	// ErrorTypeInternal represents internal errors
	ErrorTypeInternal ErrorType = "internal"
)

// Error represents a structured pool error.
//
// Fields:
//   - Type: failure category
//   - Message: human-readable description
//   - Cause: underlying error, if any
//   - Details: key-value context (type name, instance name, counts)
//   - Stack: call stack at the point of creation
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame is one frame of a captured call stack.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error. Calls can be chained.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an error of the given type, capturing the caller's stack.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Wrap wraps err with a type and message. If err is already an *Error its
// stack is preserved. Returns nil when err is nil.
//
// Example:
//
//	inst, err := spawner.Spawn(ctx, key, pool.DefaultPlacement())
//	if err != nil {
//	    return nil, poolerrors.Wrap(err, poolerrors.ErrorTypeCreationFailed, "spawn failed").
//	        WithDetail("type", key.String())
//	}
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType reports whether the outermost *Error in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// TypeOf returns the category of err, or the empty string when err is not
// an *Error.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Type
}

func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
