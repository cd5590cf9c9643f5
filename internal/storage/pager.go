// Package storage - Pager component
//
// EDUCATIONAL NOTES:
// ------------------
// The Pager maps a table's page numbers to files in the table's directory:
//
//	<dir>/<table>.bin     table metadata
//	<dir>/<table>_0.bin   page 0
//	<dir>/<table>_1.bin   page 1 ...
//
// There is deliberately no page cache. Every read opens the file, decodes
// it and closes it again, and every write replaces the whole file. A real
// database would keep a buffer pool with dirty tracking and write-ahead
// logging; here the process is the only user of the files and a crash in
// the middle of a write can leave a page torn.

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Pager creates, reads and removes the page files of one table.
type Pager struct {
	dir       string
	name      string
	capacity  int
	pageCount int32
}

// NewPager returns a pager for the table called name stored in dir, which
// already owns pageCount page files.
func NewPager(dir, name string, capacity int, pageCount int32) *Pager {
	return &Pager{dir: dir, name: name, capacity: capacity, pageCount: pageCount}
}

// Dir returns the table directory.
func (p *Pager) Dir() string { return p.dir }

// Capacity returns the record capacity given to new pages.
func (p *Pager) Capacity() int { return p.capacity }

// PageCount returns the number of allocated pages.
func (p *Pager) PageCount() int32 { return p.pageCount }

// MetaPath returns the path of the table metadata file.
func (p *Pager) MetaPath() string {
	return filepath.Join(p.dir, p.name+".bin")
}

// PagePath returns the path of page i.
func (p *Pager) PagePath(i int32) string {
	return filepath.Join(p.dir, fmt.Sprintf("%s_%d.bin", p.name, i))
}

// AllocatePage creates the next page file and returns it with its number.
func (p *Pager) AllocatePage() (*Page, int32, error) {
	id := p.pageCount
	page, err := NewPage(p.PagePath(id), p.capacity)
	if err != nil {
		return nil, -1, fmt.Errorf("failed to allocate page %d: %w", id, err)
	}
	p.pageCount++
	return page, id, nil
}

// GetPage reads page i from disk.
func (p *Pager) GetPage(i int32) (*Page, error) {
	if i < 0 || i >= p.pageCount {
		return nil, fmt.Errorf("%w: page %d does not exist (only %d pages)", ErrOutOfRange, i, p.pageCount)
	}
	return LoadPage(p.PagePath(i))
}

// RemoveAll deletes the metadata file and every page file.
func (p *Pager) RemoveAll() error {
	paths := []string{p.MetaPath()}
	for i := int32(0); i < p.pageCount; i++ {
		paths = append(paths, p.PagePath(i))
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: failed to remove %s: %v", ErrIO, path, err)
		}
	}
	p.pageCount = 0
	return nil
}
