// Package parser turns command text into statement values.
//
// EDUCATIONAL NOTES:
// ------------------
// Every command the shell understands becomes one Statement:
//
//	Select Name, Age FROM people WHERE Age > 18 OrderBy Name
//
// becomes
//
//	SelectStatement
//	├── Columns: [Name, Age]
//	├── From:    people
//	├── Where:   "Age > 18"
//	└── OrderBy: Name
//
// Conditions are kept as text. They can only be type-checked once the
// table's schema is known, so the executor hands them to the query package
// together with that schema.

package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cabewaldrop/pagedb/internal/storage"
)

// Node is the base interface for all AST nodes.
type Node interface {
	node()
	String() string
}

// Statement represents one command.
type Statement interface {
	Node
	statement()
}

// ============================================================================
// Statements
// ============================================================================

// CreateTableStatement creates a table.
//
// Example: CreateTable people (ID:Integer, Name:String) Index ON ID
type CreateTableStatement struct {
	Name       string
	Columns    []ColumnDefinition
	PrimaryKey string // empty when the table has no index
}

func (s *CreateTableStatement) node()      {}
func (s *CreateTableStatement) statement() {}
func (s *CreateTableStatement) String() string {
	cols := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = c.String()
	}
	out := fmt.Sprintf("CreateTable %s (%s)", s.Name, strings.Join(cols, ", "))
	if s.PrimaryKey != "" {
		out += " Index ON " + s.PrimaryKey
	}
	return out
}

// ColumnDefinition is one column of a CreateTable command.
type ColumnDefinition struct {
	Name string
	Type storage.Kind
}

func (c ColumnDefinition) String() string {
	return fmt.Sprintf("%s:%s", c.Name, c.Type)
}

// DropTableStatement deletes a table and its files.
type DropTableStatement struct {
	Name string
}

func (s *DropTableStatement) node()           {}
func (s *DropTableStatement) statement()      {}
func (s *DropTableStatement) String() string { return "DropTable " + s.Name }

// ListTablesStatement lists the tables of the database.
type ListTablesStatement struct{}

func (s *ListTablesStatement) node()           {}
func (s *ListTablesStatement) statement()      {}
func (s *ListTablesStatement) String() string { return "ListTables" }

// TableInfoStatement describes one table.
type TableInfoStatement struct {
	Name string
}

func (s *TableInfoStatement) node()           {}
func (s *TableInfoStatement) statement()      {}
func (s *TableInfoStatement) String() string { return "TableInfo " + s.Name }

// SelectStatement reads rows.
//
// Example: Select Name, Age FROM people WHERE Age > 18 OrderBy Name DISTINCT
type SelectStatement struct {
	Columns  []string // nil means every column
	From     string
	Where    string // raw condition, empty when absent
	OrderBy  string
	Distinct bool
}

func (s *SelectStatement) node()      {}
func (s *SelectStatement) statement() {}
func (s *SelectStatement) String() string {
	cols := "*"
	if len(s.Columns) > 0 {
		cols = strings.Join(s.Columns, ", ")
	}
	out := fmt.Sprintf("Select %s FROM %s", cols, s.From)
	if s.Where != "" {
		out += " WHERE " + s.Where
	}
	if s.OrderBy != "" {
		out += " OrderBy " + s.OrderBy
	}
	if s.Distinct {
		out += " DISTINCT"
	}
	return out
}

// RemoveStatement tombstones the rows matching a condition.
//
// Example: Remove FROM people WHERE ID = 3
type RemoveStatement struct {
	From  string
	Where string
}

func (s *RemoveStatement) node()      {}
func (s *RemoveStatement) statement() {}
func (s *RemoveStatement) String() string {
	if s.Where == "" {
		return "Remove FROM " + s.From
	}
	return fmt.Sprintf("Remove FROM %s WHERE %s", s.From, s.Where)
}

// InsertStatement appends rows. Values are given in schema column order.
//
// Example: Insert INTO people {(1, "Ann"), (2, "Bob")}
type InsertStatement struct {
	Table string
	Rows  [][]Literal
}

func (s *InsertStatement) node()      {}
func (s *InsertStatement) statement() {}
func (s *InsertStatement) String() string {
	rows := make([]string, len(s.Rows))
	for i, row := range s.Rows {
		vals := make([]string, len(row))
		for j, v := range row {
			vals[j] = v.String()
		}
		rows[i] = "(" + strings.Join(vals, ", ") + ")"
	}
	return fmt.Sprintf("Insert INTO %s {%s}", s.Table, strings.Join(rows, ", "))
}

// ExplainStatement shows how a Select or Remove would find its rows.
type ExplainStatement struct {
	Statement Statement
}

func (s *ExplainStatement) node()      {}
func (s *ExplainStatement) statement() {}
func (s *ExplainStatement) String() string {
	return "Explain " + s.Statement.String()
}

// Target returns the table and condition of the explained statement.
func (s *ExplainStatement) Target() (table, where string) {
	switch inner := s.Statement.(type) {
	case *SelectStatement:
		return inner.From, inner.Where
	case *RemoveStatement:
		return inner.From, inner.Where
	}
	return "", ""
}

// QuitStatement ends the session.
type QuitStatement struct{}

func (s *QuitStatement) node()           {}
func (s *QuitStatement) statement()      {}
func (s *QuitStatement) String() string { return "Quit" }

// ============================================================================
// Literals
// ============================================================================

// LiteralKind is the lexical form of an insert value.
type LiteralKind int

const (
	LiteralInteger LiteralKind = iota
	LiteralDouble
	LiteralString
)

// Literal is an untyped insert value. It gets its type from the column it
// is stored in.
type Literal struct {
	Kind LiteralKind
	Text string
}

func (l Literal) String() string {
	if l.Kind == LiteralString {
		return strconv.Quote(l.Text)
	}
	return l.Text
}

// Value converts the literal to a value of kind. Integer columns take only
// integer literals, Double columns take integer or decimal literals, and
// String columns take only quoted text.
func (l Literal) Value(kind storage.Kind) (storage.Value, error) {
	switch {
	case kind == storage.KindInteger && l.Kind == LiteralInteger:
		n, err := strconv.ParseInt(l.Text, 10, 64)
		if err != nil {
			return storage.Value{}, fmt.Errorf("%w: invalid integer %s", storage.ErrSchemaViolation, l.Text)
		}
		return storage.NewInteger(n), nil
	case kind == storage.KindDouble && l.Kind != LiteralString:
		f, err := strconv.ParseFloat(l.Text, 64)
		if err != nil {
			return storage.Value{}, fmt.Errorf("%w: invalid double %s", storage.ErrSchemaViolation, l.Text)
		}
		return storage.NewDouble(f), nil
	case kind == storage.KindText && l.Kind == LiteralString:
		return storage.NewText(l.Text), nil
	}
	return storage.Value{}, fmt.Errorf("%w: %s is not a valid %s", storage.ErrSchemaViolation, l, kind)
}
