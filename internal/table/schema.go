package table

import (
	"fmt"
	"strings"

	"github.com/cabewaldrop/pagedb/internal/storage"
)

// Column is a named, typed column.
type Column struct {
	Name string
	Type storage.Kind
}

// Schema is the ordered column list of a table plus its optional primary
// key. It satisfies query.Schema.
type Schema struct {
	Columns []Column

	primaryKey string
	lookup     map[string]int
}

// NewSchema validates the column list and primary key.
func NewSchema(columns []Column, primaryKey string) (*Schema, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: a table needs at least one column", storage.ErrSchemaViolation)
	}

	s := &Schema{
		Columns:    append([]Column(nil), columns...),
		primaryKey: primaryKey,
		lookup:     make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		if col.Name == "" || strings.ContainsAny(col.Name, ", \t\n") {
			return nil, fmt.Errorf("%w: invalid column name %q", storage.ErrSchemaViolation, col.Name)
		}
		if _, dup := s.lookup[col.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", storage.ErrSchemaViolation, col.Name)
		}
		s.lookup[col.Name] = i
	}
	if primaryKey != "" {
		if _, ok := s.lookup[primaryKey]; !ok {
			return nil, fmt.Errorf("%w: primary key %q is not a column", storage.ErrSchemaViolation, primaryKey)
		}
	}
	return s, nil
}

// ColumnIndex returns the position of a column.
func (s *Schema) ColumnIndex(name string) (int, bool) {
	i, ok := s.lookup[name]
	return i, ok
}

// ColumnKind returns the declared kind of a column.
func (s *Schema) ColumnKind(name string) (storage.Kind, bool) {
	i, ok := s.lookup[name]
	if !ok {
		return 0, false
	}
	return s.Columns[i].Type, true
}

// PrimaryKey returns the primary key column name, "" when the table is
// unkeyed.
func (s *Schema) PrimaryKey() string { return s.primaryKey }

// Names returns the column names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Header is the comma-terminated column list stored in table metadata,
// e.g. "ID,Name,".
func (s *Schema) Header() string {
	var sb strings.Builder
	for _, c := range s.Columns {
		sb.WriteString(c.Name)
		sb.WriteByte(',')
	}
	return sb.String()
}

// String renders the schema the way CreateTable accepts it.
func (s *Schema) String() string {
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		parts[i] = c.Name + ":" + c.Type.String()
	}
	out := "(" + strings.Join(parts, ", ") + ")"
	if s.primaryKey == "" {
		return out + " No Index on this table"
	}
	return out + " Index ON " + s.primaryKey
}
