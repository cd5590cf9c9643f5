// Package query compiles WHERE conditions into clauses plus a postfix
// program and evaluates that program.
//
// EDUCATIONAL NOTES:
// ------------------
// A condition such as
//
//	ID > 1 AND (Age < 40 OR Name = "Ann")
//
// is split into numbered clauses, each a single column/operator/literal
// comparison:
//
//	0: ID > 1    1: Age < 40    2: Name = "Ann"
//
// and the boolean structure is rewritten in postfix (reverse Polish)
// order with Dijkstra's shunting-yard algorithm:
//
//	0 1 2 OR AND
//
// Postfix needs no parentheses and is evaluated with a single stack, which
// lets the same program be run two ways: against one record (each clause
// yields a bool) or against a whole table (each clause yields a set of
// records, AND intersects and OR unions).
//
// Precedence is OR < AND < NOT. NOT is parsed and placed in the program
// but evaluating it returns storage.ErrUnsupported.

package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cabewaldrop/pagedb/internal/storage"
)

// Schema describes the columns a condition may reference.
type Schema interface {
	// ColumnKind returns the declared kind of a column.
	ColumnKind(name string) (storage.Kind, bool)
	// PrimaryKey returns the primary key column, or "" when there is none.
	PrimaryKey() string
}

// Clause is one "<column> <op> <literal>" comparison.
type Clause struct {
	ID         int
	Column     string
	Op         storage.Comparison
	Value      storage.Value
	PrimaryKey bool
}

func (c Clause) String() string {
	if c.Value.Kind() == storage.KindText {
		return fmt.Sprintf("%s %s %q", c.Column, c.Op, c.Value.Text())
	}
	return fmt.Sprintf("%s %s %s", c.Column, c.Op, c.Value)
}

// InstrKind is the kind of a postfix instruction.
type InstrKind int

const (
	InstrClause InstrKind = iota
	InstrAnd
	InstrOr
	InstrNot
)

// Instr is one step of the postfix program.
type Instr struct {
	Kind   InstrKind
	Clause int // index into Query.Clauses for InstrClause
}

func (i Instr) String() string {
	switch i.Kind {
	case InstrAnd:
		return "AND"
	case InstrOr:
		return "OR"
	case InstrNot:
		return "NOT"
	default:
		return strconv.Itoa(i.Clause)
	}
}

// Query is a compiled condition.
type Query struct {
	Condition string
	Clauses   []Clause
	Program   []Instr
}

// Empty reports whether the condition was blank. An empty query matches
// every record.
func (q *Query) Empty() bool { return len(q.Program) == 0 }

// Postfix renders the program, e.g. "0 1 AND".
func (q *Query) Postfix() string {
	parts := make([]string, len(q.Program))
	for i, in := range q.Program {
		parts[i] = in.String()
	}
	return strings.Join(parts, " ")
}

// HasPrimaryKeyClause reports whether any clause tests the primary key.
func (q *Query) HasPrimaryKeyClause() bool {
	for _, c := range q.Clauses {
		if c.PrimaryKey {
			return true
		}
	}
	return false
}

// Columns returns the distinct columns the condition references.
func (q *Query) Columns() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range q.Clauses {
		if !seen[c.Column] {
			seen[c.Column] = true
			out = append(out, c.Column)
		}
	}
	return out
}

// Eval runs the postfix program. clause resolves a single clause to a
// value, and and/or combine the two topmost stack values.
func Eval[T any](q *Query, clause func(Clause) (T, error), and, or func(a, b T) T) (T, error) {
	var zero T
	stack := make([]T, 0, len(q.Clauses))

	for _, in := range q.Program {
		switch in.Kind {
		case InstrClause:
			v, err := clause(q.Clauses[in.Clause])
			if err != nil {
				return zero, err
			}
			stack = append(stack, v)
		case InstrAnd, InstrOr:
			if len(stack) < 2 {
				return zero, fmt.Errorf("malformed condition %q: %s needs two operands", q.Condition, in)
			}
			a, b := stack[len(stack)-2], stack[len(stack)-1]
			stack = stack[:len(stack)-2]
			if in.Kind == InstrAnd {
				stack = append(stack, and(a, b))
			} else {
				stack = append(stack, or(a, b))
			}
		case InstrNot:
			return zero, fmt.Errorf("%w: NOT in condition %q", storage.ErrUnsupported, q.Condition)
		}
	}

	if len(stack) != 1 {
		return zero, fmt.Errorf("malformed condition %q", q.Condition)
	}
	return stack[0], nil
}

// Matches evaluates the condition against one record. colIndex maps a
// column name to its position in the record.
func (q *Query) Matches(r *storage.Record, colIndex func(string) (int, bool)) (bool, error) {
	if q.Empty() {
		return true, nil
	}
	return Eval(q,
		func(c Clause) (bool, error) {
			i, ok := colIndex(c.Column)
			if !ok {
				return false, fmt.Errorf("%w: unknown column %q", storage.ErrSchemaViolation, c.Column)
			}
			v, err := r.Get(i)
			if err != nil {
				return false, err
			}
			return c.Op.Matches(v, c.Value), nil
		},
		func(a, b bool) bool { return a && b },
		func(a, b bool) bool { return a || b },
	)
}
