// Package storage - Primary key index
//
// EDUCATIONAL NOTES:
// ------------------
// A table with a primary key keeps one Index over that column. The index
// maps each key value to the RecordPtr of the row that holds it, so a point
// query costs one tree descent plus one page read instead of a scan of
// every page.
//
// Range predicates (<, <=, >, >=, !=) are answered by walking the linked
// leaves. That is linear in the number of matching keys, but it never
// touches a page that holds no match.
//
// Only the primary key is indexed. Conditions on other columns are always
// answered by scanning pages.

package storage

import (
	"fmt"
)

// Index is a unique index over a table's primary key column.
type Index struct {
	Column string
	tree   *BPTree
}

// NewIndex creates an empty index over column.
func NewIndex(column string, order int) (*Index, error) {
	tree, err := NewBPTree(order)
	if err != nil {
		return nil, fmt.Errorf("failed to create index on %s: %w", column, err)
	}
	return &Index{Column: column, tree: tree}, nil
}

// Insert registers key at ptr. Keys are unique.
func (idx *Index) Insert(key Value, ptr RecordPtr) error {
	if _, found := idx.tree.Search(key); found {
		return fmt.Errorf("%w: duplicate key %s for primary key %q", ErrSchemaViolation, key, idx.Column)
	}
	idx.tree.Insert(key, ptr)
	return nil
}

// Delete removes key from the index.
func (idx *Index) Delete(key Value) error {
	if !idx.tree.Remove(key) {
		return fmt.Errorf("%w: key %s in index on %q", ErrNotFound, key, idx.Column)
	}
	return nil
}

// Get returns the location of the row whose key equals key.
func (idx *Index) Get(key Value) (RecordPtr, bool) {
	return idx.tree.Search(key)
}

// Lookup returns the locations of every row whose key satisfies
// key <op> value.
func (idx *Index) Lookup(op Comparison, value Value) []RecordPtr {
	switch op {
	case OpEqual:
		if ptr, ok := idx.tree.Search(value); ok {
			return []RecordPtr{ptr}
		}
		return nil
	case OpLess:
		return idx.tree.LessThan(value, false)
	case OpLessEqual:
		return idx.tree.LessThan(value, true)
	case OpGreater:
		return idx.tree.GreaterThan(value, false)
	case OpGreaterEqual:
		return idx.tree.GreaterThan(value, true)
	default:
		return idx.tree.AllExcept(value)
	}
}

// Len returns the number of indexed keys.
func (idx *Index) Len() int { return idx.tree.Len() }

// Tree exposes the underlying B+ tree.
func (idx *Index) Tree() *BPTree { return idx.tree }

// Encode writes the index tree.
func (idx *Index) Encode(e *Encoder) { idx.tree.Encode(e) }

// DecodeIndex reads an index over column written by Encode.
func DecodeIndex(d *Decoder, column string) (*Index, error) {
	tree, err := DecodeBPTree(d)
	if err != nil {
		return nil, fmt.Errorf("failed to load index on %s: %w", column, err)
	}
	return &Index{Column: column, tree: tree}, nil
}
