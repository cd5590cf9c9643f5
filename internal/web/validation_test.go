package web

import (
	"testing"

	"github.com/cabewaldrop/pagedb/internal/storage"
)

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"users", true},
		{"user_table", true},
		{"_private", true},
		{"Table1", true},
		{"a", true},
		{"123start", false},   // starts with number
		{"has-dash", false},   // contains dash
		{"has space", false},  // contains space
		{"has,comma", false},  // would break the schema header
		{"../escape", false},  // path characters
		{"", false},           // empty
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := IsValidIdentifier(tt.input)
			if got != tt.valid {
				t.Errorf("IsValidIdentifier(%q) = %v, want %v", tt.input, got, tt.valid)
			}
		})
	}
}

func TestParseColumnType(t *testing.T) {
	tests := []struct {
		input string
		kind  storage.Kind
		valid bool
	}{
		{"Integer", storage.KindInteger, true},
		{"double", storage.KindDouble, true},
		{"STRING", storage.KindText, true},
		{"text", storage.KindText, true},
		{"BLOB", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		kind, ok := ParseColumnType(tt.input)
		if ok != tt.valid {
			t.Errorf("ParseColumnType(%q) valid = %v, want %v", tt.input, ok, tt.valid)
			continue
		}
		if ok && kind != tt.kind {
			t.Errorf("ParseColumnType(%q) = %v, want %v", tt.input, kind, tt.kind)
		}
	}
}
