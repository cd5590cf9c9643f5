package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabewaldrop/pagedb/internal/storage"
	"github.com/cabewaldrop/pagedb/internal/table"
)

func setupTestDatabase(t *testing.T) (*Database, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "DB")
	db, err := Open(dir, "TestDB")
	require.NoError(t, err)
	db.TableOptions = table.Options{PageCapacity: 2}
	return db, dir
}

func peopleSchema(t *testing.T) *table.Schema {
	t.Helper()
	s, err := table.NewSchema([]table.Column{
		{Name: "ID", Type: storage.KindInteger},
		{Name: "Name", Type: storage.KindText},
	}, "ID")
	require.NoError(t, err)
	return s
}

func row(id int64, name string) map[string]storage.Value {
	return map[string]storage.Value{"ID": storage.NewInteger(id), "Name": storage.NewText(name)}
}

func TestOpenNewDatabase(t *testing.T) {
	db, dir := setupTestDatabase(t)

	_, err := os.Stat(filepath.Join(dir, "TestDB.bin"))
	require.NoError(t, err)
	assert.Equal(t, 0, db.Len())
	assert.Empty(t, db.Tables())
}

func TestCreateAndListTables(t *testing.T) {
	db, _ := setupTestDatabase(t)

	for _, name := range []string{"zebra", "apple", "mango"} {
		_, err := db.CreateTable(name, peopleSchema(t))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"apple", "mango", "zebra"}, db.Tables())

	_, err := db.CreateTable("apple", peopleSchema(t))
	assert.ErrorIs(t, err, storage.ErrSchemaViolation)

	_, err = db.Table("missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPersistence(t *testing.T) {
	db, dir := setupTestDatabase(t)
	_, err := db.CreateTable("people", peopleSchema(t))
	require.NoError(t, err)

	n, err := db.Insert("people", []map[string]storage.Value{row(1, "Ann"), row(2, "Bob"), row(3, "Cy")})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	reopened, err := Open(dir, "TestDB")
	require.NoError(t, err)
	assert.Equal(t, []string{"people"}, reopened.Tables())

	got, err := reopened.Select("people", "ID >= 2", table.SelectOptions{Columns: []string{"Name"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Bob", got[0].String())
	assert.Equal(t, "Cy", got[1].String())
}

func TestInsertBatchIsNotAtomic(t *testing.T) {
	db, _ := setupTestDatabase(t)
	_, err := db.CreateTable("people", peopleSchema(t))
	require.NoError(t, err)

	n, err := db.Insert("people", []map[string]storage.Value{row(1, "Ann"), row(1, "Dup"), row(3, "Cy")})
	assert.ErrorIs(t, err, storage.ErrSchemaViolation)
	assert.Equal(t, 1, n)

	got, err := db.Select("people", "", table.SelectOptions{})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = db.Insert("nope", nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRemove(t *testing.T) {
	db, _ := setupTestDatabase(t)
	_, err := db.CreateTable("people", peopleSchema(t))
	require.NoError(t, err)
	_, err = db.Insert("people", []map[string]storage.Value{row(1, "Ann"), row(2, "Bob"), row(3, "Ann")})
	require.NoError(t, err)

	n, err := db.Remove("people", `Name = "Ann"`)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = db.Remove("people", `Zip = 1`)
	assert.ErrorIs(t, err, storage.ErrSchemaViolation)
	_, err = db.Remove("nope", `ID = 1`)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDropTable(t *testing.T) {
	db, dir := setupTestDatabase(t)
	tbl, err := db.CreateTable("people", peopleSchema(t))
	require.NoError(t, err)

	require.NoError(t, db.DropTable("people"))
	assert.Empty(t, db.Tables())
	_, err = os.Stat(tbl.Dir())
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, db.DropTable("people"), storage.ErrNotFound)

	reopened, err := Open(dir, "TestDB")
	require.NoError(t, err)
	assert.Equal(t, 0, reopened.Len())
}

func TestOpenCorruptCatalog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Bad.bin"), []byte{9, 9}, 0644))
	_, err := Open(dir, "Bad")
	assert.ErrorIs(t, err, storage.ErrIO)
}
