package query

import (
	"fmt"
	"strings"

	"github.com/cabewaldrop/pagedb/internal/sql/lexer"
	"github.com/cabewaldrop/pagedb/internal/storage"
)

var precedence = map[InstrKind]int{
	InstrOr:  1,
	InstrAnd: 2,
	InstrNot: 3,
}

// stackEntry is an operator or an open parenthesis on the shunting-yard
// operator stack.
type stackEntry struct {
	paren bool
	op    InstrKind
}

// Parse compiles condition against schema. A blank condition yields an
// empty query.
//
// EDUCATIONAL NOTE:
// -----------------
// The shunting-yard algorithm reads tokens left to right. Operands go
// straight to the output; operators wait on a stack until an operator of
// lower precedence (or a closing parenthesis) arrives and flushes them.
// NOT is a prefix operator, so it is pushed without flushing anything.
func Parse(condition string, schema Schema) (*Query, error) {
	q := &Query{Condition: strings.TrimSpace(condition)}
	toks := lexer.New(condition).Tokenize()

	var ops []stackEntry
	expectOperand := true

	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch tok.Type {
		case lexer.TokenEOF:
			if len(q.Program) == 0 && len(ops) == 0 {
				return q, nil
			}
			if expectOperand {
				return nil, parseError(condition, tok, "condition ends where a comparison was expected")
			}
			for len(ops) > 0 {
				top := ops[len(ops)-1]
				ops = ops[:len(ops)-1]
				if top.paren {
					return nil, parseError(condition, tok, "unclosed parenthesis")
				}
				q.Program = append(q.Program, Instr{Kind: top.op})
			}
			return q, nil

		case lexer.TokenError, lexer.TokenIllegal:
			return nil, parseError(condition, tok, tok.Literal)

		case lexer.TokenIdent:
			if !expectOperand {
				return nil, parseError(condition, tok, "expected AND or OR")
			}
			if i+2 >= len(toks) {
				return nil, parseError(condition, tok, "incomplete comparison")
			}
			clause, err := parseClause(len(q.Clauses), tok, toks[i+1], toks[i+2], schema)
			if err != nil {
				return nil, err
			}
			q.Clauses = append(q.Clauses, clause)
			q.Program = append(q.Program, Instr{Kind: InstrClause, Clause: clause.ID})
			i += 2
			expectOperand = false

		case lexer.TokenLeftParen:
			if !expectOperand {
				return nil, parseError(condition, tok, "unexpected '('")
			}
			ops = append(ops, stackEntry{paren: true})

		case lexer.TokenRightParen:
			if expectOperand {
				return nil, parseError(condition, tok, "unexpected ')'")
			}
			for {
				if len(ops) == 0 {
					return nil, parseError(condition, tok, "unbalanced ')'")
				}
				top := ops[len(ops)-1]
				ops = ops[:len(ops)-1]
				if top.paren {
					break
				}
				q.Program = append(q.Program, Instr{Kind: top.op})
			}

		case lexer.TokenNot:
			if !expectOperand {
				return nil, parseError(condition, tok, "unexpected NOT")
			}
			ops = append(ops, stackEntry{op: InstrNot})

		case lexer.TokenAnd, lexer.TokenOr:
			if expectOperand {
				return nil, parseError(condition, tok, "unexpected "+strings.ToUpper(tok.Literal))
			}
			op := InstrAnd
			if tok.Type == lexer.TokenOr {
				op = InstrOr
			}
			for len(ops) > 0 {
				top := ops[len(ops)-1]
				if top.paren || precedence[top.op] < precedence[op] {
					break
				}
				ops = ops[:len(ops)-1]
				q.Program = append(q.Program, Instr{Kind: top.op})
			}
			ops = append(ops, stackEntry{op: op})
			expectOperand = true

		default:
			return nil, parseError(condition, tok, fmt.Sprintf("unexpected %q", tok.Literal))
		}
	}
	return q, nil
}

// parseClause builds a clause from "<column> <op> <literal>" and checks the
// literal against the column's declared kind.
func parseClause(id int, col, op, lit lexer.Token, schema Schema) (Clause, error) {
	if !op.Type.IsComparison() {
		return Clause{}, parseError("", op, fmt.Sprintf("expected comparison operator after %s", col.Literal))
	}

	kind, ok := schema.ColumnKind(col.Literal)
	if !ok {
		return Clause{}, fmt.Errorf("%w: unknown column %q in condition", storage.ErrSchemaViolation, col.Literal)
	}

	var value storage.Value
	switch lit.Type {
	case lexer.TokenString:
		value = storage.NewText(lit.Literal)
	case lexer.TokenInteger, lexer.TokenDouble:
		v, err := storage.ParseLiteral(lit.Literal)
		if err != nil {
			return Clause{}, err
		}
		value = v
	default:
		return Clause{}, parseError("", lit, fmt.Sprintf("expected a literal after %s %s", col.Literal, op.Literal))
	}

	value, err := coerce(col.Literal, kind, value)
	if err != nil {
		return Clause{}, err
	}

	return Clause{
		ID:         id,
		Column:     col.Literal,
		Op:         storage.ParseComparison(op.Literal),
		Value:      value,
		PrimaryKey: schema.PrimaryKey() != "" && col.Literal == schema.PrimaryKey(),
	}, nil
}

// coerce converts a literal to the column's kind. Integers widen to
// doubles; every other mismatch is a schema violation.
func coerce(column string, kind storage.Kind, v storage.Value) (storage.Value, error) {
	if v.Kind() == kind {
		return v, nil
	}
	if kind == storage.KindDouble && v.Kind() == storage.KindInteger {
		return storage.NewDouble(float64(v.Int())), nil
	}
	return storage.Value{}, fmt.Errorf("%w: column %q is %s, literal %s is %s",
		storage.ErrSchemaViolation, column, kind, v, v.Kind())
}

func parseError(condition string, tok lexer.Token, msg string) error {
	if condition == "" {
		return fmt.Errorf("syntax error at column %d: %s", tok.Column, msg)
	}
	return fmt.Errorf("syntax error in %q at column %d: %s", condition, tok.Column, msg)
}
