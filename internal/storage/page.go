package storage

import (
	"bytes"
	"fmt"
	"os"
)

// Page is a file-backed, fixed-capacity sequence of records and the unit of
// I/O for table data.
//
// Page file layout (little-endian):
//
//	+--------------------------------+
//	| capacity       int32           |
//	| path           uint64 + bytes  |
//	| record count   uint64          |
//	+--------------------------------+
//	| per record:                    |
//	|   invalidated  byte            |
//	|   columns      uint64          |
//	|   values       tag + payload   |
//	+--------------------------------+
//
// Tombstoned records keep their slot, so the record count never shrinks.
type Page struct {
	capacity int
	path     string
	records  []*Record
}

// NewPage creates an empty page and writes it to path immediately.
func NewPage(path string, capacity int) (*Page, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("page capacity must be positive, got %d", capacity)
	}
	p := &Page{capacity: capacity, path: path}
	if err := p.Save(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadPage reads a page file from disk.
func LoadPage(path string) (*Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read page %s: %v", ErrIO, path, err)
	}

	d := NewDecoder(bytes.NewReader(data))
	p := &Page{
		capacity: int(d.Int32()),
		path:     d.String(),
	}
	n := d.Count()
	p.records = make([]*Record, 0, n)
	for i := 0; i < n && d.Err() == nil; i++ {
		p.records = append(p.records, DecodeRecord(d))
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: corrupt page %s: %v", ErrIO, path, err)
	}
	// The file is authoritative for where it lives now.
	p.path = path
	return p, nil
}

// Save writes the whole page to its file.
func (p *Page) Save() error {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	e.Int32(int32(p.capacity))
	e.String(p.path)
	e.Uint64(uint64(len(p.records)))
	for _, r := range p.records {
		r.Encode(e)
	}
	if err := e.Err(); err != nil {
		return fmt.Errorf("%w: failed to encode page %s: %v", ErrIO, p.path, err)
	}
	if err := os.WriteFile(p.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: failed to write page %s: %v", ErrIO, p.path, err)
	}
	return nil
}

// Path returns the page's file path.
func (p *Page) Path() string { return p.path }

// Capacity returns the maximum number of slots.
func (p *Page) Capacity() int { return p.capacity }

// Len returns the number of used slots, tombstones included.
func (p *Page) Len() int { return len(p.records) }

// IsFull reports whether every slot is used.
func (p *Page) IsFull() bool { return len(p.records) >= p.capacity }

// AddRecord appends r and returns its slot. It does not save the page.
func (p *Page) AddRecord(r *Record) (int, error) {
	if p.IsFull() {
		return -1, fmt.Errorf("page %s is full (%d records)", p.path, p.capacity)
	}
	p.records = append(p.records, r)
	return len(p.records) - 1, nil
}

// Get returns the record at slot, tombstone or not.
func (p *Page) Get(slot int) (*Record, error) {
	if slot < 0 || slot >= len(p.records) {
		return nil, fmt.Errorf("%w: slot %d of page %s with %d records", ErrOutOfRange, slot, p.path, len(p.records))
	}
	return p.records[slot], nil
}

// Invalidate tombstones the record at slot and returns the bytes it held.
// Invalidating a tombstone is a no-op that returns zero.
func (p *Page) Invalidate(slot int) (int64, error) {
	r, err := p.Get(slot)
	if err != nil {
		return 0, err
	}
	if r.IsInvalid() {
		return 0, nil
	}
	size := r.DataSize()
	r.Invalidate()
	return size, nil
}

// Records returns every slot in order. The slice must not be modified.
func (p *Page) Records() []*Record { return p.records }

// Live calls fn for every record that is not a tombstone.
func (p *Page) Live(fn func(slot int, r *Record) error) error {
	for i, r := range p.records {
		if r.IsInvalid() {
			continue
		}
		if err := fn(i, r); err != nil {
			return err
		}
	}
	return nil
}
