package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cabewaldrop/pagedb/internal/storage"
)

// statusFor maps an execution error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrIO):
		return http.StatusInternalServerError
	case errors.Is(err, storage.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		// Parse errors, schema violations and bad slots are the caller's fault.
		return http.StatusBadRequest
	}
}

// GetErrorHint returns a helpful hint for common command errors.
// Returns empty string if no hint is available.
func GetErrorHint(err string) string {
	errLower := strings.ToLower(err)

	switch {
	case strings.Contains(errLower, "not found: table"):
		return "Check table name spelling or run ListTables to see available tables."
	case strings.Contains(errLower, "has no column"):
		return "Check column name or run TableInfo <table> to see columns."
	case strings.Contains(errLower, "parse errors"):
		return "Check command syntax, e.g. Select * FROM t WHERE ID = 1."
	case strings.Contains(errLower, "duplicate"):
		return "A row with this key already exists."
	case strings.Contains(errLower, "cannot be null"), strings.Contains(errLower, "missing value"):
		return "Every column requires a value."
	case strings.Contains(errLower, "expects"), strings.Contains(errLower, "is not a valid"):
		return "Check each value against the column types shown by TableInfo <table>."
	case strings.Contains(errLower, "unsupported: not"):
		return "Rewrite the condition without NOT, e.g. ID != 3 instead of NOT ID = 3."
	case strings.Contains(errLower, "timeout") || strings.Contains(errLower, "timed out"):
		return "Consider a condition on the primary key so the index can be used."
	default:
		return ""
	}
}
