package table

import (
	"container/heap"
	"fmt"

	"github.com/cabewaldrop/pagedb/internal/query"
	"github.com/cabewaldrop/pagedb/internal/storage"
)

// Select returns the live records matching q. An empty query returns every
// record.
//
// EDUCATIONAL NOTE:
// -----------------
// The postfix program is evaluated over record sets. A clause on the
// primary key costs one index lookup plus reads of the pages it points
// into; any other clause costs a full scan. The sets are combined with
// pairwise value comparisons, so AND and OR are quadratic in the size of
// their inputs.
func (t *Table) Select(q *query.Query) ([]*storage.Record, error) {
	hits, err := t.selectHits(q)
	if err != nil {
		return nil, err
	}
	out := make([]*storage.Record, len(hits))
	for i, h := range hits {
		out[i] = h.record
	}
	return out, nil
}

func (t *Table) selectHits(q *query.Query) ([]hit, error) {
	if q.Empty() {
		return t.scanHits(func(*storage.Record) (bool, error) { return true, nil })
	}
	return query.Eval(q, t.resolveClause, intersect, union)
}

// resolveClause returns the records satisfying a single clause.
func (t *Table) resolveClause(c query.Clause) ([]hit, error) {
	if c.PrimaryKey && t.index != nil {
		ptrs, err := t.LookupIndex(c)
		if err != nil {
			return nil, err
		}
		return t.fetch(ptrs)
	}

	col, ok := t.Schema.ColumnIndex(c.Column)
	if !ok {
		return nil, fmt.Errorf("%w: table %s has no column %q", storage.ErrSchemaViolation, t.Name, c.Column)
	}
	return t.scanHits(func(r *storage.Record) (bool, error) {
		v, err := r.Get(col)
		if err != nil {
			return false, err
		}
		return c.Op.Matches(v, c.Value), nil
	})
}

// LookupIndex answers a primary key clause from the index alone.
func (t *Table) LookupIndex(c query.Clause) ([]storage.RecordPtr, error) {
	if t.index == nil {
		return nil, fmt.Errorf("%w: table %s has no index", storage.ErrNotFound, t.Name)
	}
	if c.Column != t.index.Column {
		return nil, fmt.Errorf("%w: column %q is not indexed, only %q is", storage.ErrSchemaViolation, c.Column, t.index.Column)
	}
	return t.index.Lookup(c.Op, c.Value), nil
}

func (t *Table) scanHits(match func(*storage.Record) (bool, error)) ([]hit, error) {
	var out []hit
	err := t.scan(func(ptr storage.RecordPtr, r *storage.Record) error {
		ok, err := match(r)
		if err != nil {
			return err
		}
		if ok {
			out = append(out, hit{ptr: ptr, record: r})
		}
		return nil
	})
	return out, err
}

func containsRecord(hits []hit, r *storage.Record) bool {
	for _, h := range hits {
		if h.record.Equal(r) {
			return true
		}
	}
	return false
}

// intersect keeps the records of the smaller set that also appear in the
// larger one.
func intersect(a, b []hit) []hit {
	if len(b) < len(a) {
		a, b = b, a
	}
	var out []hit
	for _, h := range a {
		if containsRecord(b, h.record) {
			out = append(out, h)
		}
	}
	return out
}

// union keeps the first occurrence of every record of a, then b.
func union(a, b []hit) []hit {
	out := make([]hit, 0, len(a)+len(b))
	for _, set := range [][]hit{a, b} {
		for _, h := range set {
			if !containsRecord(out, h.record) {
				out = append(out, h)
			}
		}
	}
	return out
}

// Delete tombstones every record matching q, removes its key from the
// index and returns the number of records deleted. A blank condition
// deletes nothing.
func (t *Table) Delete(q *query.Query) (int, error) {
	if q.Empty() {
		return 0, nil
	}

	var hits []hit
	var err error
	if t.index != nil && q.HasPrimaryKeyClause() {
		hits, err = t.selectHits(q)
	} else {
		hits, err = t.scanHits(func(r *storage.Record) (bool, error) {
			return q.Matches(r, t.Schema.ColumnIndex)
		})
	}
	if err != nil {
		return 0, err
	}
	if len(hits) == 0 {
		return 0, nil
	}

	ptrs := make([]storage.RecordPtr, len(hits))
	for i, h := range hits {
		ptrs[i] = h.ptr
	}
	n, err := t.tombstone(ptrs)
	if saveErr := t.Save(); err == nil {
		err = saveErr
	}
	return n, err
}

// tombstone invalidates the records at ptrs page by page, keeping the
// index and byte count in step.
func (t *Table) tombstone(ptrs []storage.RecordPtr) (int, error) {
	byPage := make(map[int32][]int32)
	var pages []int32
	for _, p := range ptrs {
		if _, seen := byPage[p.Page]; !seen {
			pages = append(pages, p.Page)
		}
		byPage[p.Page] = append(byPage[p.Page], p.Slot)
	}

	pkCol := -1
	if t.index != nil {
		pkCol, _ = t.Schema.ColumnIndex(t.index.Column)
	}

	deleted := 0
	for _, id := range pages {
		page, err := t.pager.GetPage(id)
		if err != nil {
			return deleted, err
		}
		for _, slot := range byPage[id] {
			r, err := page.Get(int(slot))
			if err != nil {
				return deleted, err
			}
			if r.IsInvalid() {
				continue
			}
			if pkCol >= 0 {
				key, err := r.Get(pkCol)
				if err != nil {
					return deleted, err
				}
				if err := t.index.Delete(key); err != nil {
					return deleted, err
				}
			}
			freed, err := page.Invalidate(int(slot))
			if err != nil {
				return deleted, err
			}
			t.bytes -= freed
			deleted++
		}
		if err := page.Save(); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// SelectOptions control projection and presentation of a select.
type SelectOptions struct {
	Columns  []string // nil or ["*"] for every column
	OrderBy  string   // sort ascending by this column when set
	Distinct bool     // drop rows equal on the selected columns
}

// SelectWith runs Select, sorts by OrderBy, projects onto Columns and then
// removes duplicates when Distinct is set.
func (t *Table) SelectWith(q *query.Query, opts SelectOptions) ([]*storage.Record, error) {
	cols, err := t.resolveColumns(opts.Columns)
	if err != nil {
		return nil, err
	}
	records, err := t.Select(q)
	if err != nil {
		return nil, err
	}

	if opts.OrderBy != "" {
		col, ok := t.Schema.ColumnIndex(opts.OrderBy)
		if !ok {
			return nil, fmt.Errorf("%w: cannot order by unknown column %q", storage.ErrSchemaViolation, opts.OrderBy)
		}
		records = OrderBy(records, col)
	}

	projected := make([]*storage.Record, len(records))
	for i, r := range records {
		if projected[i], err = r.Project(cols); err != nil {
			return nil, err
		}
	}

	if opts.Distinct {
		projected = Distinct(projected)
	}
	return projected, nil
}

// resolveColumns maps column names to positions; nil or "*" selects all.
func (t *Table) resolveColumns(names []string) ([]int, error) {
	if len(names) == 0 || (len(names) == 1 && names[0] == "*") {
		idx := make([]int, len(t.Schema.Columns))
		for i := range idx {
			idx[i] = i
		}
		return idx, nil
	}
	idx := make([]int, len(names))
	for i, name := range names {
		col, ok := t.Schema.ColumnIndex(name)
		if !ok {
			return nil, fmt.Errorf("%w: table %s has no column %q", storage.ErrSchemaViolation, t.Name, name)
		}
		idx[i] = col
	}
	return idx, nil
}

// Distinct keeps a record only when no later record equals it, so the last
// of each group of equal records survives.
func Distinct(records []*storage.Record) []*storage.Record {
	var out []*storage.Record
	for i, r := range records {
		dup := false
		for _, later := range records[i+1:] {
			if r.Equal(later) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}

// recordHeap is a min-heap of records keyed on one column.
type recordHeap struct {
	records []*storage.Record
	col     int
}

func (h *recordHeap) Len() int { return len(h.records) }

func (h *recordHeap) Less(i, j int) bool {
	a, _ := h.records[i].Get(h.col)
	b, _ := h.records[j].Get(h.col)
	return a.Less(b)
}

func (h *recordHeap) Swap(i, j int) {
	h.records[i], h.records[j] = h.records[j], h.records[i]
}

func (h *recordHeap) Push(x any) {
	h.records = append(h.records, x.(*storage.Record))
}

func (h *recordHeap) Pop() any {
	old := h.records
	n := len(old)
	r := old[n-1]
	h.records = old[:n-1]
	return r
}

// OrderBy heap-sorts records ascending by column col. Equal keys keep no
// particular order.
func OrderBy(records []*storage.Record, col int) []*storage.Record {
	h := &recordHeap{records: append([]*storage.Record(nil), records...), col: col}
	heap.Init(h)
	out := make([]*storage.Record, 0, len(records))
	for h.Len() > 0 {
		out = append(out, heap.Pop(h).(*storage.Record))
	}
	return out
}
