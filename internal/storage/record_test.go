package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAddValue(t *testing.T) {
	r := NewRecord(2)
	require.NoError(t, r.AddValue(NewInteger(1)))
	require.NoError(t, r.AddValue(NewText("a")))
	assert.ErrorIs(t, r.AddValue(NewInteger(3)), ErrSchemaViolation)
	assert.Equal(t, 2, r.Columns())

	v, err := r.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "a", v.Text())

	_, err = r.Get(2)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestRecordInvalidate(t *testing.T) {
	r := RecordOf(NewInteger(1), NewText("abc"))
	assert.Equal(t, int64(11), r.DataSize())

	r.Invalidate()
	assert.True(t, r.IsInvalid())
	assert.Equal(t, 0, r.Columns())
	assert.Empty(t, r.Values())
	assert.Equal(t, int64(0), r.DataSize())
	assert.ErrorIs(t, r.AddValue(NewInteger(1)), ErrSchemaViolation)
}

func TestRecordOrdering(t *testing.T) {
	a := RecordOf(NewInteger(1), NewInteger(10))
	b := RecordOf(NewInteger(2), NewInteger(20))
	mixed := RecordOf(NewInteger(0), NewInteger(30))

	assert.True(t, a.Less(b))
	assert.True(t, b.Greater(a))
	assert.False(t, a.Greater(b))

	// Every column must agree for Less/Greater to hold.
	assert.False(t, a.Less(mixed))
	assert.False(t, a.Greater(mixed))

	assert.True(t, a.Equal(RecordOf(NewInteger(1), NewInteger(10))))
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(RecordOf(NewInteger(1))))
	assert.False(t, a.Less(RecordOf(NewInteger(5))))
	assert.False(t, a.Equal(RecordOf(NewInteger(1), NewText("10"))))
}

func TestRecordProject(t *testing.T) {
	r := RecordOf(NewInteger(1), NewText("x"), NewDouble(2.5))
	p, err := r.Project([]int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, "2.5, 1", p.String())

	_, err = r.Project([]int{3})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestRecordEncodeDecode(t *testing.T) {
	live := RecordOf(NewInteger(7), NewText("seven"), NewDouble(7.5))
	dead := RecordOf(NewInteger(8))
	dead.Invalidate()

	var buf bytes.Buffer
	e := NewEncoder(&buf)
	live.Encode(e)
	dead.Encode(e)
	require.NoError(t, e.Err())

	d := NewDecoder(&buf)
	gotLive := DecodeRecord(d)
	gotDead := DecodeRecord(d)
	require.NoError(t, d.Err())

	assert.True(t, live.Equal(gotLive))
	assert.True(t, gotDead.IsInvalid())
	assert.Equal(t, 0, gotDead.Columns())
}

func TestRecordPtr(t *testing.T) {
	assert.True(t, NilRecordPtr.IsNil())
	assert.True(t, RecordPtr{0, 5}.Less(RecordPtr{1, 0}))
	assert.True(t, RecordPtr{1, 1}.Less(RecordPtr{1, 2}))
	assert.Equal(t, 0, RecordPtr{2, 3}.Compare(RecordPtr{2, 3}))
	assert.Equal(t, "(2,3)", RecordPtr{2, 3}.String())

	var buf bytes.Buffer
	e := NewEncoder(&buf)
	RecordPtr{Page: 4, Slot: -1}.Encode(e)
	assert.Equal(t, 8, buf.Len())
	assert.Equal(t, RecordPtr{Page: 4, Slot: -1}, DecodeRecordPtr(NewDecoder(&buf)))
}
