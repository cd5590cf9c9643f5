package storage

// Comparison is the operator of a single query clause.
type Comparison int

const (
	OpEqual Comparison = iota
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
)

// ParseComparison maps an operator token to a Comparison. Any token that is
// not one of = < > <= >= means "not equal", which is how != and <> arrive.
func ParseComparison(op string) Comparison {
	switch op {
	case "=":
		return OpEqual
	case "<":
		return OpLess
	case "<=":
		return OpLessEqual
	case ">":
		return OpGreater
	case ">=":
		return OpGreaterEqual
	default:
		return OpNotEqual
	}
}

func (c Comparison) String() string {
	switch c {
	case OpEqual:
		return "="
	case OpLess:
		return "<"
	case OpLessEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterEqual:
		return ">="
	default:
		return "!="
	}
}

// Matches reports whether v <op> literal holds. Both must share a Kind.
func (c Comparison) Matches(v, literal Value) bool {
	cmp := v.Compare(literal)
	switch c {
	case OpEqual:
		return cmp == 0
	case OpLess:
		return cmp < 0
	case OpLessEqual:
		return cmp <= 0
	case OpGreater:
		return cmp > 0
	case OpGreaterEqual:
		return cmp >= 0
	default:
		return cmp != 0
	}
}

// IsRange reports whether the operator selects an ordered range of keys.
func (c Comparison) IsRange() bool { return c != OpEqual }
