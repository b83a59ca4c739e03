package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestReconcilerError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "file error",
			category:   CategoryFile,
			code:       CodeFileNotFound,
			message:    "file not found",
			cause:      errors.New("no such file"),
			expectCode: 2,
		},
		{
			name:       "parse error",
			category:   CategoryParse,
			code:       CodeMissingColumn,
			message:    "missing column",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "validation error",
			category:   CategoryValidation,
			code:       CodeInvalidAmount,
			message:    "bad amount",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "configuration error",
			category:   CategoryConfiguration,
			code:       CodeInvalidConfig,
			message:    "invalid config",
			cause:      errors.New("missing field"),
			expectCode: 4,
		},
		{
			name:       "reconciliation error",
			category:   CategoryReconciliation,
			code:       CodeCancelled,
			message:    "cancelled",
			cause:      nil,
			expectCode: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *ReconcilerError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}
			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}
			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
			if len(err.StackTrace) == 0 {
				t.Error("expected a stack trace to be captured")
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(nil, CategoryFile, CodeFileNotFound, "x"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestReconcilerErrorWithContext(t *testing.T) {
	err := New(CategoryParse, CodeMissingColumn, "test error").
		WithContext("file", "sales.csv").
		WithContext("line", 1).
		WithSuggestion("add the column")

	if err.Context["file"] != "sales.csv" {
		t.Errorf("expected file context 'sales.csv', got %v", err.Context["file"])
	}
	if err.Context["line"] != 1 {
		t.Errorf("expected line context 1, got %v", err.Context["line"])
	}

	expected := "test error (suggestion: add the column)"
	if err.Error() != expected {
		t.Errorf("expected error string '%s', got '%s'", expected, err.Error())
	}
}

func TestSpecificErrorConstructors(t *testing.T) {
	t.Run("FileError", func(t *testing.T) {
		cause := errors.New("permission denied")
		err := FileError(CodeFilePermission, "/data/sales.xlsx", cause)

		if err.Category != CategoryFile {
			t.Errorf("expected file category, got %s", err.Category)
		}
		if err.Context["file_path"] != "/data/sales.xlsx" {
			t.Errorf("expected file_path context, got %v", err.Context["file_path"])
		}
		if err.Cause != cause {
			t.Errorf("expected cause to be %v, got %v", cause, err.Cause)
		}
	})

	t.Run("ParseError", func(t *testing.T) {
		err := ParseError(CodeMissingColumn, "price_list.csv", 1, "Sale Price", "", nil)

		if err.Category != CategoryParse {
			t.Errorf("expected parse category, got %s", err.Category)
		}
		if err.Context["column"] != "Sale Price" {
			t.Errorf("expected column context, got %v", err.Context["column"])
		}
		if err.Suggestion == "" {
			t.Error("expected suggestion to be set")
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError(CodeInvalidQuantity, "Sale Quantity", "two", nil)

		if err.Category != CategoryValidation {
			t.Errorf("expected validation category, got %s", err.Category)
		}
		if err.Context["value"] != "two" {
			t.Errorf("expected value context, got %v", err.Context["value"])
		}
	})

	t.Run("ConfigurationError", func(t *testing.T) {
		err := ConfigurationError(CodeUnsupportedFormat, "sales", ".ods", nil)
		if err.GetExitCode() != 4 {
			t.Errorf("expected exit code 4, got %d", err.GetExitCode())
		}
	})
}

func TestAsReconcilerError(t *testing.T) {
	base := ValidationError(CodeInvalidPrice, "Sale Price", "abc", nil)
	wrapped := fmt.Errorf("loading price list: %w", base)

	got, ok := AsReconcilerError(wrapped)
	if !ok {
		t.Fatal("expected to find ReconcilerError in chain")
	}
	if got != base {
		t.Error("expected the original error to be returned")
	}
	if !IsReconcilerError(wrapped) {
		t.Error("expected IsReconcilerError to see through wrapping")
	}
	if IsReconcilerError(errors.New("plain")) {
		t.Error("plain errors are not ReconcilerErrors")
	}
}

func TestWrapIfNeeded(t *testing.T) {
	original := New(CategoryFile, CodeFileNotFound, "missing")
	if got := WrapIfNeeded(original, CategoryInternal, CodeUnexpectedError, "x"); got != original {
		t.Error("expected existing ReconcilerError to be returned unchanged")
	}

	plain := errors.New("boom")
	got := WrapIfNeeded(plain, CategoryInternal, CodeUnexpectedError, "wrapped")
	if got.Category != CategoryInternal || got.Cause != plain {
		t.Errorf("unexpected wrap result: %+v", got)
	}

	if WrapIfNeeded(nil, CategoryInternal, CodeUnexpectedError, "x") != nil {
		t.Error("expected nil for nil error")
	}
}

func TestSuggestionFallback(t *testing.T) {
	tests := []struct {
		name     string
		err      *ReconcilerError
		expected string
	}{
		{
			name:     "code suggestion",
			err:      ParseError(CodeMissingSheet, "sales.xlsx", 0, "", "Orders", nil),
			expected: "check the sheet name or omit it to read the first sheet",
		},
		{
			name:     "category fallback",
			err:      ValidationError("negative_total", "Sale Amount", "-1", nil),
			expected: "check the field value and format",
		},
		{
			name:     "explicit override",
			err:      FileError(CodeFileNotFound, "prices.xlsx", nil).WithSuggestion("pass --price-list"),
			expected: "pass --price-list",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Suggestion != tt.expected {
				t.Errorf("expected suggestion %q, got %q", tt.expected, tt.err.Suggestion)
			}
		})
	}
}
