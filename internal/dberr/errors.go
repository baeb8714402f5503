// Package dberr defines the error taxonomy shared by the data access core.
//
// Every failure surfaced by a DataSource, Transactor, dialect encoder or
// ScopedTransaction is an *Error carrying a Code. Callers classify errors with
// the Is*Error helpers, which use errors.As and therefore see through
// fmt.Errorf("...: %w") wrapping. Native driver errors stay reachable via
// errors.Unwrap.
//
// The core never retries. Retry policy belongs to the host application or the
// backend driver.
package dberr

import (
	"errors"
	"fmt"
)

// Code categorizes data access errors.
type Code string

const (
	// CodeConnection indicates native connection establishment or teardown failed.
	CodeConnection Code = "CONNECTION"

	// CodeNotOpen indicates an operation needed an open DataSource.
	CodeNotOpen Code = "NOT_OPEN"

	// CodeTransaction indicates begin/commit/rollback failed.
	CodeTransaction Code = "TRANSACTION"

	// CodeUnsupportedOperation indicates the backend cannot do what was asked,
	// either because its capabilities deny it or no encoder exists.
	CodeUnsupportedOperation Code = "UNSUPPORTED_OPERATION"

	// CodeQueryExecution indicates the backend rejected or failed a statement.
	CodeQueryExecution Code = "QUERY_EXECUTION"

	// CodeInvalidExpression indicates a malformed expression tree or statement.
	CodeInvalidExpression Code = "INVALID_EXPRESSION"
)

// Error is a classified data access error.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Backend is the driver type key (e.g. "SQLITE"), when known.
	Backend string

	// Op names the operation that failed (e.g. "open", "commit", "ST_Relate").
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying native error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Backend != "" {
		msg += " [" + e.Backend + "]"
	}
	if e.Op != "" {
		msg += " " + e.Op
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying native error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewConnectionError wraps a native connection failure.
func NewConnectionError(backend, op string, err error) *Error {
	return &Error{
		Code:    CodeConnection,
		Backend: backend,
		Op:      op,
		Message: "connection failed",
		Err:     err,
	}
}

// NewNotOpenError reports an operation attempted on a closed DataSource.
func NewNotOpenError(backend, op string) *Error {
	return &Error{
		Code:    CodeNotOpen,
		Backend: backend,
		Op:      op,
		Message: "data source is not open",
	}
}

// NewTransactionError wraps a begin/commit/rollback failure.
func NewTransactionError(backend, op, message string, err error) *Error {
	return &Error{
		Code:    CodeTransaction,
		Backend: backend,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewUnsupportedError reports a capability the backend denies.
func NewUnsupportedError(backend, feature string) *Error {
	return &Error{
		Code:    CodeUnsupportedOperation,
		Backend: backend,
		Op:      feature,
		Message: fmt.Sprintf("%s is not supported by backend %s", feature, backendLabel(backend)),
	}
}

// NewUnsupportedFunctionError reports a function with no registered encoder.
func NewUnsupportedFunctionError(backend, function string) *Error {
	return &Error{
		Code:    CodeUnsupportedOperation,
		Backend: backend,
		Op:      function,
		Message: fmt.Sprintf("no encoder for function %q in dialect %s", function, backendLabel(backend)),
	}
}

// NewQueryError wraps a native statement execution failure.
func NewQueryError(backend, op string, err error) *Error {
	return &Error{
		Code:    CodeQueryExecution,
		Backend: backend,
		Op:      op,
		Message: "statement failed",
		Err:     err,
	}
}

// NewInvalidExpressionError reports a malformed expression or statement.
func NewInvalidExpressionError(op, message string) *Error {
	return &Error{
		Code:    CodeInvalidExpression,
		Op:      op,
		Message: message,
	}
}

func backendLabel(backend string) string {
	if backend == "" {
		return "<unknown>"
	}
	return backend
}

// CodeOf returns the Code of err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsConnectionError reports whether err is a connection error.
func IsConnectionError(err error) bool { return CodeOf(err) == CodeConnection }

// IsNotOpenError reports whether err is a not-open error.
func IsNotOpenError(err error) bool { return CodeOf(err) == CodeNotOpen }

// IsTransactionError reports whether err is a transaction error.
func IsTransactionError(err error) bool { return CodeOf(err) == CodeTransaction }

// IsUnsupportedError reports whether err is an unsupported-operation error.
func IsUnsupportedError(err error) bool { return CodeOf(err) == CodeUnsupportedOperation }

// IsQueryError reports whether err is a query execution error.
func IsQueryError(err error) bool { return CodeOf(err) == CodeQueryExecution }

// IsInvalidExpressionError reports whether err is an invalid-expression error.
func IsInvalidExpressionError(err error) bool { return CodeOf(err) == CodeInvalidExpression }
