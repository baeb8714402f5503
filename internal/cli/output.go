package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/roach88/dacore/internal/dberr"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Backend failure (query rejected, connection lost, etc.)
	ExitCommandError = 2 // Command error (bad flags, unknown source, invalid SQL, etc.)
)

// Error codes reported in CLI responses.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeConfig        = "E002" // Config missing or invalid
	ErrCodeUnknownType   = "E003" // Unknown driver type or dialect
	ErrCodeUnknownSource = "E004" // Data source not in config
	ErrCodeConnection    = "E010" // Connection failed
	ErrCodeNotOpen       = "E011" // Data source not open
	ErrCodeTransaction   = "E012" // Transaction failed
	ErrCodeUnsupported   = "E013" // Backend cannot perform the operation
	ErrCodeQuery         = "E014" // Backend rejected a statement
	ErrCodeInvalidExpr   = "E015" // SQL or expression is malformed
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// classify maps a data access error to a response code and exit code.
// Errors outside the dberr taxonomy get fallback.
func classify(err error, fallback string) (string, int) {
	var dbErr *dberr.Error
	if !errors.As(err, &dbErr) {
		return fallback, ExitCommandError
	}
	switch dbErr.Code {
	case dberr.CodeConnection:
		return ErrCodeConnection, ExitFailure
	case dberr.CodeNotOpen:
		return ErrCodeNotOpen, ExitFailure
	case dberr.CodeTransaction:
		return ErrCodeTransaction, ExitFailure
	case dberr.CodeUnsupportedOperation:
		return ErrCodeUnsupported, ExitCommandError
	case dberr.CodeQueryExecution:
		return ErrCodeQuery, ExitFailure
	case dberr.CodeInvalidExpression:
		return ErrCodeInvalidExpr, ExitCommandError
	default:
		return fallback, ExitCommandError
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err and returns the ExitError the command should return.
func (f *OutputFormatter) Fail(fallback, message string, err error) error {
	code, exit := classify(err, fallback)
	var details any
	var dbErr *dberr.Error
	if errors.As(err, &dbErr) {
		details = map[string]string{"category": string(dbErr.Code), "backend": dbErr.Backend, "op": dbErr.Op}
	}
	_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), details)
	return WrapExitError(exit, message, err)
}

// Table writes rows as aligned text columns under header.
func (f *OutputFormatter) Table(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
