package storage

import (
	"fmt"
	"strings"
)

// Record is one row: a fixed number of values plus a tombstone flag.
//
// EDUCATIONAL NOTE:
// -----------------
// Deleting a record never removes it from its page. Invalidate clears the
// values and marks the slot as a tombstone, so every other record keeps
// its slot number and the RecordPtrs stored in the index stay valid.
type Record struct {
	columns int
	values  []Value
	invalid bool
}

// NewRecord creates an empty record that will hold exactly columns values.
func NewRecord(columns int) *Record {
	return &Record{columns: columns, values: make([]Value, 0, columns)}
}

// RecordOf builds a complete record from values.
func RecordOf(values ...Value) *Record {
	r := NewRecord(len(values))
	r.values = append(r.values, values...)
	return r
}

// AddValue appends the next column value.
func (r *Record) AddValue(v Value) error {
	if r.invalid {
		return fmt.Errorf("%w: cannot add value to an invalidated record", ErrSchemaViolation)
	}
	if len(r.values) >= r.columns {
		return fmt.Errorf("%w: record already holds %d values", ErrSchemaViolation, r.columns)
	}
	r.values = append(r.values, v)
	return nil
}

// Get returns the value in column i.
func (r *Record) Get(i int) (Value, error) {
	if i < 0 || i >= len(r.values) {
		return Value{}, fmt.Errorf("%w: column %d of %d", ErrOutOfRange, i, len(r.values))
	}
	return r.values[i], nil
}

// Columns reports the column count. Tombstones report zero.
func (r *Record) Columns() int {
	if r.invalid {
		return 0
	}
	return r.columns
}

// Values returns the record's values. The slice must not be modified.
func (r *Record) Values() []Value { return r.values }

// Invalidate turns the record into a tombstone.
func (r *Record) Invalidate() {
	r.invalid = true
	r.values = nil
}

// IsInvalid reports whether the record is a tombstone.
func (r *Record) IsInvalid() bool { return r.invalid }

// Project returns a new record holding the columns at idx, in that order.
func (r *Record) Project(idx []int) (*Record, error) {
	out := NewRecord(len(idx))
	for _, i := range idx {
		v, err := r.Get(i)
		if err != nil {
			return nil, err
		}
		out.values = append(out.values, v)
	}
	return out, nil
}

// Equal reports whether both records have the same columns with equal values.
func (r *Record) Equal(other *Record) bool {
	if r.Columns() != other.Columns() || len(r.values) != len(other.values) {
		return false
	}
	for i, v := range r.values {
		o := other.values[i]
		if v.Kind() != o.Kind() || !v.Equal(o) {
			return false
		}
	}
	return true
}

// Less reports whether every column of r is strictly less than the matching
// column of other. This is not lexicographic order: records that differ in
// direction across columns are neither Less nor Greater.
func (r *Record) Less(other *Record) bool {
	return r.allColumns(other, func(c int) bool { return c < 0 })
}

// Greater reports whether every column of r is strictly greater than the
// matching column of other.
func (r *Record) Greater(other *Record) bool {
	return r.allColumns(other, func(c int) bool { return c > 0 })
}

func (r *Record) allColumns(other *Record, ok func(int) bool) bool {
	if r.Columns() != other.Columns() || len(r.values) != len(other.values) || len(r.values) == 0 {
		return false
	}
	for i, v := range r.values {
		o := other.values[i]
		if v.Kind() != o.Kind() || !ok(v.Compare(o)) {
			return false
		}
	}
	return true
}

// DataSize is the number of payload bytes the record accounts for.
func (r *Record) DataSize() int64 {
	var n int64
	for _, v := range r.values {
		switch v.Kind() {
		case KindText:
			n += int64(len(v.Text()))
		default:
			n += 8
		}
	}
	return n
}

func (r *Record) String() string {
	if r.invalid {
		return "<deleted>"
	}
	parts := make([]string, len(r.values))
	for i, v := range r.values {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// Encode writes the tombstone flag, the column count and every value.
func (r *Record) Encode(e *Encoder) {
	e.Bool(r.invalid)
	e.Uint64(uint64(len(r.values)))
	for _, v := range r.values {
		v.Encode(e)
	}
}

// DecodeRecord reads a record written by Encode.
func DecodeRecord(d *Decoder) *Record {
	invalid := d.Bool()
	n := d.Count()
	r := NewRecord(n)
	for i := 0; i < n && d.Err() == nil; i++ {
		r.values = append(r.values, DecodeValue(d))
	}
	if invalid {
		r.Invalidate()
	}
	return r
}
