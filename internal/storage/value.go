// Package storage implements the paged record store and its primary index.
//
// EDUCATIONAL NOTES:
// ------------------
// Everything a table holds is built from three small pieces:
// 1. Value - a tagged integer, double or text cell
// 2. Record - an ordered row of values that can be tombstoned in place
// 3. Page - a file holding a fixed number of records
//
// A RecordPtr (page, slot) addresses one record, and the B+ tree primary
// index maps key values to those pointers. Because the index stores
// positions rather than copies, records are never moved or compacted: a
// deleted record stays in its slot as a tombstone.
//
// All on-disk integers are little-endian and every string is written as an
// 8-byte length followed by the raw bytes.

package storage

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int32

const (
	KindInteger Kind = iota
	KindDouble
	KindText
)

// String returns the column type name used in schemas and metadata files.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "Integer"
	case KindDouble:
		return "Double"
	case KindText:
		return "String"
	default:
		return fmt.Sprintf("Kind(%d)", int32(k))
	}
}

// ParseKind maps a column type name back to its Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "integer", "int":
		return KindInteger, nil
	case "double", "float":
		return KindDouble, nil
	case "string", "text":
		return KindText, nil
	}
	return 0, fmt.Errorf("%w: unknown column type %q", ErrSchemaViolation, name)
}

// Value is an immutable tagged cell value.
//
// EDUCATIONAL NOTE:
// -----------------
// Values only compare with values of the same Kind. Comparing an Integer
// with a Text is a programming error and panics; the query layer checks
// literals against column types before any comparison happens, so a panic
// here always points at a bug in the caller.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// NewInteger returns an Integer value.
func NewInteger(v int64) Value { return Value{kind: KindInteger, i: v} }

// NewDouble returns a Double value.
func NewDouble(v float64) Value { return Value{kind: KindDouble, f: v} }

// NewText returns a Text value.
func NewText(v string) Value { return Value{kind: KindText, s: v} }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// Int returns the integer payload. It is zero for other kinds.
func (v Value) Int() int64 { return v.i }

// Float returns the double payload. It is zero for other kinds.
func (v Value) Float() float64 { return v.f }

// Text returns the text payload. It is empty for other kinds.
func (v Value) Text() string { return v.s }

// String returns a human readable form of the value.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	default:
		return "?"
	}
}

// Compare returns -1, 0 or 1. Both values must have the same Kind.
func (v Value) Compare(other Value) int {
	if v.kind != other.kind {
		panic(fmt.Sprintf("storage: compare %s value with %s value", v.kind, other.kind))
	}

	switch v.kind {
	case KindInteger:
		if v.i < other.i {
			return -1
		} else if v.i > other.i {
			return 1
		}
		return 0
	case KindDouble:
		if doubleEqual(v.f, other.f) {
			return 0
		}
		if v.f < other.f {
			return -1
		}
		return 1
	case KindText:
		return strings.Compare(v.s, other.s)
	default:
		panic(fmt.Sprintf("storage: compare invalid kind %d", v.kind))
	}
}

// Equal reports whether v and other compare equal.
func (v Value) Equal(other Value) bool { return v.Compare(other) == 0 }

// Less reports whether v orders before other.
func (v Value) Less(other Value) bool { return v.Compare(other) < 0 }

// doubleEqual treats values within a relative machine epsilon as equal.
func doubleEqual(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= scale*epsilon
}

// epsilon is the gap between 1.0 and the next representable float64.
var epsilon = math.Nextafter(1, 2) - 1

// ParseLiteral types a literal the way conditions and insert lists spell it:
// double-quoted text, then integer, then decimal with digits on both sides
// of a single dot. Anything else is rejected.
func ParseLiteral(lit string) (Value, error) {
	lit = strings.TrimSpace(lit)
	if len(lit) >= 2 && lit[0] == '"' && lit[len(lit)-1] == '"' {
		return NewText(lit[1 : len(lit)-1]), nil
	}

	if isIntegerLiteral(lit) {
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: integer literal %q: %v", ErrSchemaViolation, lit, err)
		}
		return NewInteger(n), nil
	}

	if isDoubleLiteral(lit) {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: double literal %q: %v", ErrSchemaViolation, lit, err)
		}
		return NewDouble(f), nil
	}

	return Value{}, fmt.Errorf("%w: invalid literal %q", ErrSchemaViolation, lit)
}

func isIntegerLiteral(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isDoubleLiteral(s string) bool {
	whole, frac, ok := strings.Cut(s, ".")
	return ok && isIntegerLiteral(whole) && frac != "" && isIntegerLiteral(frac) && frac[0] != '-'
}

// Encode writes the kind tag followed by the payload.
func (v Value) Encode(e *Encoder) {
	e.Int32(int32(v.kind))
	switch v.kind {
	case KindInteger:
		e.Int64(v.i)
	case KindDouble:
		e.Float64(v.f)
	case KindText:
		e.String(v.s)
	}
}

// DecodeValue reads a value written by Encode.
func DecodeValue(d *Decoder) Value {
	kind := Kind(d.Int32())
	if d.Err() != nil {
		return Value{}
	}
	switch kind {
	case KindInteger:
		return NewInteger(d.Int64())
	case KindDouble:
		return NewDouble(d.Float64())
	case KindText:
		return NewText(d.String())
	default:
		d.Fail(fmt.Errorf("unknown value kind %d", kind))
		return Value{}
	}
}
