// Package catalog manages a database: its catalog file and the set of
// open tables.
//
// EDUCATIONAL NOTES:
// ------------------
// Every database keeps a "catalog" of the tables it owns. Ours is a single
// file, <dir>/<name>.bin:
//
//	database name    string
//	database path    string
//	table count      uint64
//	per table:       name string, metadata path string
//
// Each table's own metadata lives in its directory and is opened
// independently (see package table). The catalog is rewritten whenever a
// table is created or dropped.
//
// In memory the open tables are kept in an ordered B-tree keyed by name,
// so listing and persisting them is always in name order.

package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/btree"

	"github.com/cabewaldrop/pagedb/internal/query"
	"github.com/cabewaldrop/pagedb/internal/storage"
	"github.com/cabewaldrop/pagedb/internal/table"
)

// registryDegree is the google/btree degree of the table registry.
const registryDegree = 8

type entry struct {
	name  string
	table *table.Table
}

func lessEntry(a, b entry) bool { return a.name < b.name }

// Database is an open database directory.
type Database struct {
	Name string
	Dir  string

	// Options used for tables created through this database.
	TableOptions table.Options

	tables *btree.BTreeG[entry]
}

// Open loads the database called name from dir, creating the directory and
// an empty catalog when none exists yet.
func Open(dir, name string) (*Database, error) {
	db := &Database{
		Name:   name,
		Dir:    dir,
		tables: btree.NewG[entry](registryDegree, lessEntry),
	}

	data, err := os.ReadFile(db.Path())
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: failed to create database directory %s: %v", storage.ErrIO, dir, err)
		}
		if err := db.Save(); err != nil {
			return nil, err
		}
		return db, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read catalog %s: %v", storage.ErrIO, db.Path(), err)
	}

	d := storage.NewDecoder(bytes.NewReader(data))
	db.Name = d.String()
	_ = d.String() // stored path; the directory we were given wins
	n := d.Count()
	type ref struct{ name, path string }
	refs := make([]ref, 0, n)
	for i := 0; i < n && d.Err() == nil; i++ {
		refs = append(refs, ref{name: d.String(), path: d.String()})
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: corrupt catalog %s: %v", storage.ErrIO, db.Path(), err)
	}

	for _, r := range refs {
		path := r.path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		t, err := table.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open table %s: %w", r.name, err)
		}
		db.tables.ReplaceOrInsert(entry{name: r.name, table: t})
	}
	return db, nil
}

// Path returns the catalog file path.
func (db *Database) Path() string {
	return filepath.Join(db.Dir, db.Name+".bin")
}

// Save writes the catalog file. Table paths are stored relative to the
// database directory.
func (db *Database) Save() error {
	var buf bytes.Buffer
	e := storage.NewEncoder(&buf)
	e.String(db.Name)
	e.String(db.Dir)
	e.Uint64(uint64(db.tables.Len()))
	db.tables.Ascend(func(ent entry) bool {
		rel, err := filepath.Rel(db.Dir, ent.table.Path())
		if err != nil {
			rel = ent.table.Path()
		}
		e.String(ent.name)
		e.String(rel)
		return true
	})
	if err := e.Err(); err != nil {
		return fmt.Errorf("%w: failed to encode catalog: %v", storage.ErrIO, err)
	}
	if err := os.WriteFile(db.Path(), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: failed to write catalog %s: %v", storage.ErrIO, db.Path(), err)
	}
	return nil
}

// CreateTable creates a new table and records it in the catalog.
func (db *Database) CreateTable(name string, schema *table.Schema) (*table.Table, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: table name is empty", storage.ErrSchemaViolation)
	}
	if _, ok := db.tables.Get(entry{name: name}); ok {
		return nil, fmt.Errorf("%w: table %s already exists", storage.ErrSchemaViolation, name)
	}

	t, err := table.Create(db.Dir, name, schema, db.TableOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", name, err)
	}
	db.tables.ReplaceOrInsert(entry{name: name, table: t})
	if err := db.Save(); err != nil {
		return nil, err
	}
	return t, nil
}

// DropTable deletes a table's files and removes it from the catalog.
func (db *Database) DropTable(name string) error {
	t, err := db.Table(name)
	if err != nil {
		return err
	}
	if err := t.Drop(); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	db.tables.Delete(entry{name: name})
	return db.Save()
}

// Table returns the open table called name.
func (db *Database) Table(name string) (*table.Table, error) {
	ent, ok := db.tables.Get(entry{name: name})
	if !ok {
		return nil, fmt.Errorf("%w: table %s", storage.ErrNotFound, name)
	}
	return ent.table, nil
}

// Tables returns the table names in order.
func (db *Database) Tables() []string {
	names := make([]string, 0, db.tables.Len())
	db.tables.Ascend(func(ent entry) bool {
		names = append(names, ent.name)
		return true
	})
	return names
}

// Len returns the number of tables.
func (db *Database) Len() int { return db.tables.Len() }

// Insert inserts rows into a table in order. Rows are not applied
// atomically: when a row fails, the rows before it stay inserted and the
// returned count says how many there were.
func (db *Database) Insert(name string, rows []map[string]storage.Value) (int, error) {
	t, err := db.Table(name)
	if err != nil {
		return 0, err
	}
	for i, row := range rows {
		if _, err := t.Insert(row); err != nil {
			return i, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return len(rows), nil
}

// Remove deletes the rows of a table matching condition.
func (db *Database) Remove(name, condition string) (int, error) {
	t, err := db.Table(name)
	if err != nil {
		return 0, err
	}
	q, err := query.Parse(condition, t.Schema)
	if err != nil {
		return 0, err
	}
	return t.Delete(q)
}

// Select returns the rows of a table matching condition.
func (db *Database) Select(name, condition string, opts table.SelectOptions) ([]*storage.Record, error) {
	t, err := db.Table(name)
	if err != nil {
		return nil, err
	}
	q, err := query.Parse(condition, t.Schema)
	if err != nil {
		return nil, err
	}
	return t.SelectWith(q, opts)
}
