// Package errors provides structured error handling for the churn pipeline.
//
// Every failure the pipeline surfaces is an *Error carrying an ErrorType.
// Callers branch on the type with IsType rather than on message text.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents invalid values in an inference batch
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotFound represents a missing data file, model or object
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeNotFitted represents use of a transformer before it was fitted
	ErrorTypeNotFitted ErrorType = "not_fitted"
	// ErrorTypeSchemaMismatch represents a column set or kind that differs from fit time
	ErrorTypeSchemaMismatch ErrorType = "schema_mismatch"
	// ErrorTypeConflict represents conflict errors
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeConnection represents connection errors
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeData represents data processing errors
	ErrorTypeData ErrorType = "data"
	// ErrorTypeFile represents file operation errors
	ErrorTypeFile ErrorType = "file"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Detail returns a detail value, or nil if absent.
func (e *Error) Detail(key string) interface{} {
	if e.Details == nil {
		return nil
	}
	return e.Details[key]
}

// DetailKeys returns the detail keys in sorted order.
func (e *Error) DetailKeys() []string {
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
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

// NotFound reports a path or object that does not exist.
func NotFound(message, path string) *Error {
	e := New(ErrorTypeNotFound, message).WithDetail("path", path)
	e.Stack = captureStack(2)
	return e
}

// NotFitted reports a transform requested before any fit.
func NotFitted(message string) *Error {
	e := New(ErrorTypeNotFitted, message)
	e.Stack = captureStack(2)
	return e
}

// SchemaMismatch reports the columns that differ from the fitted schema.
// Empty lists are omitted from the details.
func SchemaMismatch(missing, extra, changed []string) *Error {
	e := New(ErrorTypeSchemaMismatch, fmt.Sprintf(
		"dataset schema differs from fitted schema: missing %v, extra %v, changed %v",
		missing, extra, changed))
	if len(missing) > 0 {
		e.WithDetail("missing", missing)
	}
	if len(extra) > 0 {
		e.WithDetail("extra", extra)
	}
	if len(changed) > 0 {
		e.WithDetail("changed", changed)
	}
	e.Stack = captureStack(2)
	return e
}

// Validation reports invalid input values in the named columns.
func Validation(message string, columns []string) *Error {
	e := New(ErrorTypeValidation, message).WithDetail("columns", columns)
	e.Stack = captureStack(2)
	return e
}

// Configuration reports an unsupported setting.
func Configuration(message string) *Error {
	e := New(ErrorTypeConfig, message)
	e.Stack = captureStack(2)
	return e
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// As is errors.As from the standard library, re-exported so callers
// importing this package under the name errors keep access to it.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Columns returns the "columns" detail of a structured error, if any.
func Columns(err error) []string {
	var e *Error
	if !errors.As(err, &e) {
		return nil
	}
	cols, _ := e.Detail("columns").([]string)
	return cols
}

// captureStack captures the current call stack
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
