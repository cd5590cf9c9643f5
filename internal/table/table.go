// Package table implements tables: schema, paged record storage and the
// primary key index kept in sync with it.
//
// EDUCATIONAL NOTES:
// ------------------
// A table lives in its own directory:
//
//	<db>/<name>/<name>.bin     metadata (schema, counters, primary index)
//	<db>/<name>/<name>_N.bin   page N
//
// Records are appended to the last page; when it is full a new page is
// allocated. A record's address (page, slot) never changes, because
// deletion only tombstones it. That stability is what lets the primary
// index store addresses instead of copies.
//
// Queries are answered by running the compiled condition's postfix program
// over record sets:
// - a clause on the primary key is resolved through the B+ tree
// - any other clause is resolved by scanning every page
// - AND intersects the two sets, OR unions them
//
// Metadata is rewritten after every mutation. There are no transactions:
// a failure in the middle of a batch leaves earlier changes in place.

package table

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cabewaldrop/pagedb/internal/storage"
)

// DefaultPageCapacity is the number of records per page for new tables.
const DefaultPageCapacity = 1024

// Options tune a new table.
type Options struct {
	PageCapacity int // records per page; DefaultPageCapacity when zero
	IndexOrder   int // B+ tree order; storage.DefaultOrder when zero
}

// Table is an open table.
type Table struct {
	Name   string
	Schema *Schema

	pager *storage.Pager
	index *storage.Index // nil for unkeyed tables
	bytes int64          // payload bytes of live records
}

// Create makes the table directory under dbPath with its first page and,
// if the schema has a primary key, an empty index.
func Create(dbPath, name string, schema *Schema, opts Options) (*Table, error) {
	if opts.PageCapacity == 0 {
		opts.PageCapacity = DefaultPageCapacity
	}
	if opts.IndexOrder == 0 {
		opts.IndexOrder = storage.DefaultOrder
	}

	dir := filepath.Join(dbPath, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create table directory %s: %v", storage.ErrIO, dir, err)
	}

	t := &Table{
		Name:   name,
		Schema: schema,
		pager:  storage.NewPager(dir, name, opts.PageCapacity, 0),
	}
	if pk := schema.PrimaryKey(); pk != "" {
		idx, err := storage.NewIndex(pk, opts.IndexOrder)
		if err != nil {
			return nil, err
		}
		t.index = idx
	}

	if _, _, err := t.createPage(); err != nil {
		return nil, err
	}
	return t, nil
}

// Path returns the table's metadata file.
func (t *Table) Path() string { return t.pager.MetaPath() }

// Dir returns the table directory.
func (t *Table) Dir() string { return t.pager.Dir() }

// Index returns the primary index, nil for unkeyed tables.
func (t *Table) Index() *storage.Index { return t.index }

// Bytes returns the payload bytes of live records.
func (t *Table) Bytes() int64 { return t.bytes }

// PageCount returns the number of page files.
func (t *Table) PageCount() int32 { return t.pager.PageCount() }

// PageCapacity returns the records per page.
func (t *Table) PageCapacity() int { return t.pager.Capacity() }

// createPage allocates a new tail page and persists the metadata.
func (t *Table) createPage() (*storage.Page, int32, error) {
	page, id, err := t.pager.AllocatePage()
	if err != nil {
		return nil, -1, err
	}
	if err := t.Save(); err != nil {
		return nil, -1, err
	}
	return page, id, nil
}

// addRecord appends r to the tail page, allocating a new page first when
// the tail is full.
func (t *Table) addRecord(r *storage.Record) (storage.RecordPtr, error) {
	id := t.pager.PageCount() - 1
	page, err := t.pager.GetPage(id)
	if err != nil {
		return storage.NilRecordPtr, err
	}
	if page.IsFull() {
		if page, id, err = t.createPage(); err != nil {
			return storage.NilRecordPtr, err
		}
	}

	slot, err := page.AddRecord(r)
	if err != nil {
		return storage.NilRecordPtr, err
	}
	if err := page.Save(); err != nil {
		return storage.NilRecordPtr, err
	}
	t.bytes += r.DataSize()
	return storage.RecordPtr{Page: id, Slot: int32(slot)}, nil
}

// Insert adds one row given as column name to value. Every column must be
// present with a value of its declared kind, and a primary key value must
// not exist yet.
//
// EDUCATIONAL NOTE:
// -----------------
// Inserting a row involves:
// 1. Validate values against the schema
// 2. Check the primary key is present and unused
// 3. Append the record to the tail page
// 4. Register (key, page/slot) in the index
// 5. Persist the metadata
func (t *Table) Insert(values map[string]storage.Value) (storage.RecordPtr, error) {
	for name := range values {
		if _, ok := t.Schema.ColumnIndex(name); !ok {
			return storage.NilRecordPtr, fmt.Errorf("%w: table %s has no column %q", storage.ErrSchemaViolation, t.Name, name)
		}
	}

	r := storage.NewRecord(len(t.Schema.Columns))
	for _, col := range t.Schema.Columns {
		v, ok := values[col.Name]
		if !ok {
			if col.Name == t.Schema.PrimaryKey() {
				return storage.NilRecordPtr, fmt.Errorf("%w: primary key %q cannot be null", storage.ErrSchemaViolation, col.Name)
			}
			return storage.NilRecordPtr, fmt.Errorf("%w: missing value for column %q", storage.ErrSchemaViolation, col.Name)
		}
		if v.Kind() != col.Type {
			return storage.NilRecordPtr, fmt.Errorf("%w: column %q expects %s, got %s", storage.ErrSchemaViolation, col.Name, col.Type, v.Kind())
		}
		if err := r.AddValue(v); err != nil {
			return storage.NilRecordPtr, err
		}
	}

	pk := t.Schema.PrimaryKey()
	if pk != "" {
		exists, err := t.keyExists(values[pk])
		if err != nil {
			return storage.NilRecordPtr, err
		}
		if exists {
			return storage.NilRecordPtr, fmt.Errorf("%w: duplicate primary key %s=%s", storage.ErrSchemaViolation, pk, values[pk])
		}
	}

	ptr, err := t.addRecord(r)
	if err != nil {
		return storage.NilRecordPtr, err
	}
	if t.index != nil {
		if err := t.index.Insert(values[pk], ptr); err != nil {
			return storage.NilRecordPtr, err
		}
	}
	if err := t.Save(); err != nil {
		return storage.NilRecordPtr, err
	}
	return ptr, nil
}

// InsertRow inserts values given in schema column order.
func (t *Table) InsertRow(values ...storage.Value) (storage.RecordPtr, error) {
	if len(values) != len(t.Schema.Columns) {
		return storage.NilRecordPtr, fmt.Errorf("%w: table %s has %d columns, got %d values",
			storage.ErrSchemaViolation, t.Name, len(t.Schema.Columns), len(values))
	}
	m := make(map[string]storage.Value, len(values))
	for i, col := range t.Schema.Columns {
		m[col.Name] = values[i]
	}
	return t.Insert(m)
}

// keyExists checks the index, or scans when the table has no index.
func (t *Table) keyExists(key storage.Value) (bool, error) {
	if t.index != nil {
		_, ok := t.index.Get(key)
		return ok, nil
	}
	col, _ := t.Schema.ColumnIndex(t.Schema.PrimaryKey())
	found := false
	err := t.scan(func(_ storage.RecordPtr, r *storage.Record) error {
		if v, _ := r.Get(col); v.Equal(key) {
			found = true
			return errStopScan
		}
		return nil
	})
	return found, err
}

var errStopScan = errors.New("stop scan")

// scan calls fn for every live record in page order. fn may return
// errStopScan to end the scan early without an error.
func (t *Table) scan(fn func(ptr storage.RecordPtr, r *storage.Record) error) error {
	for id := int32(0); id < t.pager.PageCount(); id++ {
		page, err := t.pager.GetPage(id)
		if err != nil {
			return err
		}
		err = page.Live(func(slot int, r *storage.Record) error {
			return fn(storage.RecordPtr{Page: id, Slot: int32(slot)}, r)
		})
		if errors.Is(err, errStopScan) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Scan returns every live record in page order.
func (t *Table) Scan() ([]*storage.Record, error) {
	var out []*storage.Record
	err := t.scan(func(_ storage.RecordPtr, r *storage.Record) error {
		out = append(out, r)
		return nil
	})
	return out, err
}

// FetchRecordsByReference loads the records at ptrs, skipping tombstones.
// Pointers are visited in (page, slot) order so each page is read once per
// run of pointers into it; the result follows that order, not the input's.
func (t *Table) FetchRecordsByReference(ptrs []storage.RecordPtr) ([]*storage.Record, error) {
	hits, err := t.fetch(ptrs)
	if err != nil {
		return nil, err
	}
	out := make([]*storage.Record, len(hits))
	for i, h := range hits {
		out[i] = h.record
	}
	return out, nil
}

// hit is a record together with its address.
type hit struct {
	ptr    storage.RecordPtr
	record *storage.Record
}

func (t *Table) fetch(ptrs []storage.RecordPtr) ([]hit, error) {
	sorted := append([]storage.RecordPtr(nil), ptrs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	var (
		out  []hit
		page *storage.Page
		cur  int32 = -1
	)
	for _, p := range sorted {
		if page == nil || p.Page != cur {
			var err error
			if page, err = t.pager.GetPage(p.Page); err != nil {
				return nil, err
			}
			cur = p.Page
		}
		r, err := page.Get(int(p.Slot))
		if err != nil {
			return nil, err
		}
		if r.IsInvalid() {
			continue
		}
		out = append(out, hit{ptr: p, record: r})
	}
	return out, nil
}

// Stats summarizes a table for TableInfo.
type Stats struct {
	Rows  int
	Bytes int64
	Pages int32
}

// Stats counts live rows by scanning.
func (t *Table) Stats() (Stats, error) {
	s := Stats{Bytes: t.bytes, Pages: t.pager.PageCount()}
	err := t.scan(func(storage.RecordPtr, *storage.Record) error {
		s.Rows++
		return nil
	})
	return s, err
}

// RebuildIndex recreates the primary index from the live records.
func (t *Table) RebuildIndex() error {
	pk := t.Schema.PrimaryKey()
	if pk == "" {
		return fmt.Errorf("%w: table %s has no primary key", storage.ErrNotFound, t.Name)
	}
	order := storage.DefaultOrder
	if t.index != nil {
		order = t.index.Tree().Order()
	}
	idx, err := storage.NewIndex(pk, order)
	if err != nil {
		return err
	}

	col, _ := t.Schema.ColumnIndex(pk)
	err = t.scan(func(ptr storage.RecordPtr, r *storage.Record) error {
		v, err := r.Get(col)
		if err != nil {
			return err
		}
		return idx.Insert(v, ptr)
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild index on %s.%s: %w", t.Name, pk, err)
	}
	t.index = idx
	return t.Save()
}

// Drop deletes every file of the table and its directory.
func (t *Table) Drop() error {
	if err := t.pager.RemoveAll(); err != nil {
		return err
	}
	if err := os.Remove(t.pager.Dir()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: failed to remove %s: %v", storage.ErrIO, t.pager.Dir(), err)
	}
	return nil
}

// Save writes the metadata file.
//
// Metadata layout (little-endian):
//
//	bytes            int64
//	page capacity    int32
//	current page     int32
//	path             string
//	table name       string
//	primary key      string
//	header           string, comma-terminated column names
//	column types     uint64 count + (name, type name) string pairs
//	index            B+ tree dump, only when there is a primary key
func (t *Table) Save() error {
	var buf bytes.Buffer
	e := storage.NewEncoder(&buf)
	e.Int64(t.bytes)
	e.Int32(int32(t.pager.Capacity()))
	e.Int32(t.pager.PageCount() - 1)
	e.String(t.pager.Dir())
	e.String(t.Name)
	e.String(t.Schema.PrimaryKey())
	e.String(t.Schema.Header())
	e.Uint64(uint64(len(t.Schema.Columns)))
	for _, c := range t.Schema.Columns {
		e.String(c.Name)
		e.String(c.Type.String())
	}
	if t.index != nil {
		t.index.Encode(e)
	}
	if err := e.Err(); err != nil {
		return fmt.Errorf("%w: failed to encode table %s: %v", storage.ErrIO, t.Name, err)
	}

	path := t.pager.MetaPath()
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: failed to write table %s: %v", storage.ErrIO, path, err)
	}
	return nil
}

// Load opens the table whose metadata file is path.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read table %s: %v", storage.ErrIO, path, err)
	}

	d := storage.NewDecoder(bytes.NewReader(data))
	size := d.Int64()
	capacity := int(d.Int32())
	curPage := d.Int32()
	_ = d.String() // stored directory; the file's location wins
	name := d.String()
	pk := d.String()
	_ = d.String() // header, implied by the column list
	n := d.Count()
	columns := make([]Column, 0, n)
	for i := 0; i < n && d.Err() == nil; i++ {
		colName := d.String()
		typeName := d.String()
		kind, err := storage.ParseKind(typeName)
		if err != nil {
			d.Fail(err)
			break
		}
		columns = append(columns, Column{Name: colName, Type: kind})
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: corrupt table %s: %v", storage.ErrIO, path, err)
	}

	schema, err := NewSchema(columns, pk)
	if err != nil {
		return nil, fmt.Errorf("corrupt table %s: %w", path, err)
	}

	t := &Table{
		Name:   name,
		Schema: schema,
		pager:  storage.NewPager(filepath.Dir(path), name, capacity, curPage+1),
		bytes:  size,
	}
	if pk != "" {
		if t.index, err = storage.DecodeIndex(d, pk); err != nil {
			return nil, fmt.Errorf("%w: corrupt index in %s: %v", storage.ErrIO, path, err)
		}
	}
	return t, nil
}
