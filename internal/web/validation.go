// Package web - Input validation for web handlers
//
// EDUCATIONAL NOTES:
// ------------------
// Table and column names arrive in URLs and JSON bodies. They end up in
// file names (<dir>/<table>/<table>_N.bin) and in the comma-separated
// schema header, so they are checked before they reach the catalog.

package web

import (
	"regexp"

	"github.com/cabewaldrop/pagedb/internal/storage"
)

// identifierPattern matches valid identifiers:
// - Must start with a letter (a-z, A-Z) or underscore
// - Can contain letters, numbers, and underscores
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// IsValidIdentifier checks if a string is a valid table or column name.
//
// Examples:
//
//	IsValidIdentifier("people")     // true
//	IsValidIdentifier("_private")   // true
//	IsValidIdentifier("123start")   // false (starts with number)
//	IsValidIdentifier("has space")  // false (contains space)
//	IsValidIdentifier("../etc")     // false (path characters)
func IsValidIdentifier(s string) bool {
	return s != "" && identifierPattern.MatchString(s)
}

// ParseColumnType returns the kind named by t. Integer, Double and String
// are accepted in any case, as are the aliases int, float and text.
func ParseColumnType(t string) (storage.Kind, bool) {
	kind, err := storage.ParseKind(t)
	return kind, err == nil
}
