package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagerPaths(t *testing.T) {
	p := NewPager("db/people", "people", 16, 0)
	assert.Equal(t, filepath.Join("db/people", "people.bin"), p.MetaPath())
	assert.Equal(t, filepath.Join("db/people", "people_3.bin"), p.PagePath(3))
}

func TestPagerAllocateAndGet(t *testing.T) {
	dir := t.TempDir()
	p := NewPager(dir, "t", 2, 0)

	first, id, err := p.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, int32(0), id)
	_, err = first.AddRecord(RecordOf(NewInteger(1)))
	require.NoError(t, err)
	require.NoError(t, first.Save())

	_, id, err = p.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, int32(1), id)
	assert.Equal(t, int32(2), p.PageCount())

	got, err := p.GetPage(0)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
	assert.Equal(t, 2, got.Capacity())

	_, err = p.GetPage(2)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestPagerReopen(t *testing.T) {
	dir := t.TempDir()
	p := NewPager(dir, "t", 4, 0)
	for i := 0; i < 3; i++ {
		_, _, err := p.AllocatePage()
		require.NoError(t, err)
	}

	reopened := NewPager(dir, "t", 4, p.PageCount())
	for i := int32(0); i < 3; i++ {
		_, err := reopened.GetPage(i)
		require.NoError(t, err)
	}
}

func TestPagerRemoveAll(t *testing.T) {
	dir := t.TempDir()
	p := NewPager(dir, "t", 4, 0)
	_, _, err := p.AllocatePage()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p.MetaPath(), []byte("meta"), 0644))

	require.NoError(t, p.RemoveAll())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, int32(0), p.PageCount())

	// Missing files are not an error.
	require.NoError(t, p.RemoveAll())
}
