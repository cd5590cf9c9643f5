package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestPage(t *testing.T, capacity int) *Page {
	t.Helper()
	p, err := NewPage(filepath.Join(t.TempDir(), "people_0.bin"), capacity)
	require.NoError(t, err)
	return p
}

func TestNewPageWritesFile(t *testing.T) {
	p := setupTestPage(t, 4)
	_, err := os.Stat(p.Path())
	require.NoError(t, err)
	assert.Equal(t, 4, p.Capacity())
	assert.Equal(t, 0, p.Len())
	assert.False(t, p.IsFull())

	_, err = NewPage(filepath.Join(t.TempDir(), "x.bin"), 0)
	assert.Error(t, err)
}

func TestPageAddUntilFull(t *testing.T) {
	p := setupTestPage(t, 2)

	slot, err := p.AddRecord(RecordOf(NewInteger(1)))
	require.NoError(t, err)
	assert.Equal(t, 0, slot)
	slot, err = p.AddRecord(RecordOf(NewInteger(2)))
	require.NoError(t, err)
	assert.Equal(t, 1, slot)

	assert.True(t, p.IsFull())
	_, err = p.AddRecord(RecordOf(NewInteger(3)))
	assert.Error(t, err)
}

func TestPageSaveLoad(t *testing.T) {
	p := setupTestPage(t, 8)
	_, err := p.AddRecord(RecordOf(NewInteger(1), NewText("Ann"), NewDouble(1.5)))
	require.NoError(t, err)
	_, err = p.AddRecord(RecordOf(NewInteger(2), NewText("Bob"), NewDouble(2.5)))
	require.NoError(t, err)
	require.NoError(t, p.Save())

	loaded, err := LoadPage(p.Path())
	require.NoError(t, err)
	assert.Equal(t, 8, loaded.Capacity())
	require.Equal(t, 2, loaded.Len())
	for i := 0; i < 2; i++ {
		want, _ := p.Get(i)
		got, err := loaded.Get(i)
		require.NoError(t, err)
		assert.True(t, want.Equal(got))
	}
}

func TestPageInvalidateKeepsSlots(t *testing.T) {
	p := setupTestPage(t, 8)
	for i := int64(0); i < 4; i++ {
		_, err := p.AddRecord(RecordOf(NewInteger(i), NewText("row")))
		require.NoError(t, err)
	}

	freed, err := p.Invalidate(1)
	require.NoError(t, err)
	assert.Equal(t, int64(11), freed)
	require.NoError(t, p.Save())

	loaded, err := LoadPage(p.Path())
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Len())

	dead, _ := loaded.Get(1)
	assert.True(t, dead.IsInvalid())
	for _, slot := range []int{0, 2, 3} {
		r, err := loaded.Get(slot)
		require.NoError(t, err)
		v, _ := r.Get(0)
		assert.Equal(t, int64(slot), v.Int(), "slot %d moved", slot)
	}

	var live []int
	require.NoError(t, loaded.Live(func(slot int, _ *Record) error {
		live = append(live, slot)
		return nil
	}))
	assert.Equal(t, []int{0, 2, 3}, live)

	freed, err = loaded.Invalidate(1)
	require.NoError(t, err)
	assert.Zero(t, freed)

	_, err = loaded.Invalidate(9)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestLoadPageErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadPage(filepath.Join(dir, "missing.bin"))
	assert.ErrorIs(t, err, ErrIO)

	corrupt := filepath.Join(dir, "corrupt.bin")
	require.NoError(t, os.WriteFile(corrupt, []byte{1, 2, 3}, 0644))
	_, err = LoadPage(corrupt)
	assert.ErrorIs(t, err, ErrIO)
}
