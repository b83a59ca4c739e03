// Package errors defines the categorized error type shared by the loader,
// the reconciliation engine and the CLI.
//
// Every fatal condition of a run is reported as a *ReconcilerError. The
// category decides the process exit code; the code, context and suggestion
// are printed by the CLI error handler.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"
	CodeDirectoryError ErrorCode = "directory_error"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeMissingSheet  ErrorCode = "missing_sheet"
	CodeEncodingError ErrorCode = "encoding_error"

	// Validation errors
	CodeInvalidAmount   ErrorCode = "invalid_amount"
	CodeInvalidPrice    ErrorCode = "invalid_price"
	CodeInvalidQuantity ErrorCode = "invalid_quantity"
	CodeMissingField    ErrorCode = "missing_field"

	// Configuration errors
	CodeInvalidConfig     ErrorCode = "invalid_config"
	CodeMissingConfig     ErrorCode = "missing_config"
	CodeUnsupportedFormat ErrorCode = "unsupported_format"

	// Reconciliation errors
	CodeProcessingError ErrorCode = "processing_error"
	CodeCancelled       ErrorCode = "cancelled"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconciliation, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// suggestions holds the default fix hint of each code
var suggestions = map[ErrorCode]string{
	CodeFileNotFound:   "check if the file path is correct and the file exists",
	CodeFilePermission: "check file permissions and ensure you have read access",
	CodeFileCorrupted:  "re-export the workbook or CSV and try again",
	CodeDirectoryError: "ensure the directory exists and is accessible",

	CodeInvalidFormat: "check the data format and ensure it matches the expected structure",
	CodeMissingColumn: "verify the file has all required columns with correct headers",
	CodeMissingSheet:  "check the sheet name or omit it to read the first sheet",
	CodeEncodingError: "ensure the file is saved in UTF-8 encoding",

	CodeInvalidAmount:   "ensure amounts are plain decimal numbers (e.g., '12.34')",
	CodeInvalidPrice:    "ensure prices are plain decimal numbers (e.g., '12.34')",
	CodeInvalidQuantity: "ensure quantities are whole numbers",
	CodeMissingField:    "provide a value for this required field",

	CodeInvalidConfig:     "check the configuration documentation for valid values",
	CodeMissingConfig:     "provide this configuration setting or use a config file",
	CodeUnsupportedFormat: "use one of the supported formats listed in --help",

	CodeProcessingError: "check the input tables and try again",
	CodeCancelled:       "rerun the command to completion",

	CodeUnexpectedError: "this is likely a bug - please report it with the error details",
}

// categorySuggestions apply to codes without their own entry
var categorySuggestions = map[ErrorCategory]string{
	CategoryFile:           "check the file and try again",
	CategoryParse:          "check the file format and data integrity",
	CategoryValidation:     "check the field value and format",
	CategoryConfiguration:  "check your configuration and try again",
	CategoryReconciliation: "review the data and configuration",
	CategoryInternal:       "try again or contact support if the problem persists",
}

func build(category ErrorCategory, code ErrorCode, message string, err error) *ReconcilerError {
	var built *ReconcilerError
	if err != nil {
		built = Wrap(err, category, code, message)
	} else {
		built = New(category, code, message)
	}

	if suggestion, ok := suggestions[code]; ok {
		return built.WithSuggestion(suggestion)
	}
	return built.WithSuggestion(categorySuggestions[category])
}

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *ReconcilerError {
	var message string
	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
	case CodeFileCorrupted:
		message = fmt.Sprintf("file appears to be corrupted: %s", path)
	case CodeDirectoryError:
		message = fmt.Sprintf("directory error: %s", path)
	default:
		message = fmt.Sprintf("file error: %s", path)
	}

	return build(CategoryFile, code, message, err).
		WithContext("file_path", path)
}

// ParseError creates a parsing-related error located at a line and column
// of a source table
func ParseError(code ErrorCode, file string, line int, column string, value string, err error) *ReconcilerError {
	var message string
	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("invalid format in file %s at line %d, column '%s': '%s'", file, line, column, value)
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required column '%s' in file %s", column, file)
	case CodeMissingSheet:
		message = fmt.Sprintf("sheet '%s' not found in workbook %s", value, file)
	case CodeEncodingError:
		message = fmt.Sprintf("encoding error in file %s at line %d", file, line)
	default:
		message = fmt.Sprintf("parse error in file %s at line %d", file, line)
	}

	return build(CategoryParse, code, message, err).
		WithContext("file", file).
		WithContext("line", line).
		WithContext("column", column).
		WithContext("value", value)
}

// ValidationError creates an error for a value that parsed but is not usable
func ValidationError(code ErrorCode, field string, value interface{}, err error) *ReconcilerError {
	var message string
	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
	case CodeInvalidPrice:
		message = fmt.Sprintf("invalid price in field '%s': %v", field, value)
	case CodeInvalidQuantity:
		message = fmt.Sprintf("invalid quantity in field '%s': %v", field, value)
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
	}

	return build(CategoryValidation, code, message, err).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	var message string
	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
	case CodeUnsupportedFormat:
		message = fmt.Sprintf("unsupported format for '%s': %v", setting, value)
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
	}

	return build(CategoryConfiguration, code, message, err).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ReconciliationError creates an error raised while a run is in progress
func ReconciliationError(code ErrorCode, operation string, err error) *ReconcilerError {
	message := fmt.Sprintf("reconciliation error during %s", operation)
	switch code {
	case CodeProcessingError:
		message = fmt.Sprintf("processing error during %s", operation)
	case CodeCancelled:
		message = fmt.Sprintf("reconciliation cancelled during %s", operation)
	}

	return build(CategoryReconciliation, code, message, err).
		WithContext("operation", operation)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *ReconcilerError {
	message := fmt.Sprintf("internal error during %s", operation)
	if code == CodeUnexpectedError {
		message = fmt.Sprintf("unexpected error during %s", operation)
	}

	return build(CategoryInternal, code, message, err).
		WithContext("operation", operation)
}

// IsReconcilerError checks if an error is a ReconcilerError
func IsReconcilerError(err error) bool {
	_, ok := AsReconcilerError(err)
	return ok
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a ReconcilerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}
	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}
	return Wrap(err, category, code, message)
}
