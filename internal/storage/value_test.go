package storage

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want int
	}{
		{"int less", NewInteger(1), NewInteger(2), -1},
		{"int equal", NewInteger(7), NewInteger(7), 0},
		{"int greater", NewInteger(-1), NewInteger(-5), 1},
		{"double less", NewDouble(1.5), NewDouble(2.5), -1},
		{"double epsilon", NewDouble(0.1 + 0.2), NewDouble(0.3), 0},
		{"double zero", NewDouble(0), NewDouble(0), 0},
		{"text less", NewText("abc"), NewText("abd"), -1},
		{"text prefix", NewText("ab"), NewText("abc"), -1},
		{"text equal", NewText("x"), NewText("x"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
			assert.Equal(t, -tt.want, tt.b.Compare(tt.a))
		})
	}
}

func TestValueCompareAcrossKindsPanics(t *testing.T) {
	assert.Panics(t, func() { NewInteger(1).Compare(NewText("1")) })
	assert.Panics(t, func() { NewInteger(1).Compare(NewDouble(1)) })
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		lit  string
		want Value
	}{
		{`"hello world"`, NewText("hello world")},
		{`""`, NewText("")},
		{`42`, NewInteger(42)},
		{`-7`, NewInteger(-7)},
		{`3.25`, NewDouble(3.25)},
		{`-0.5`, NewDouble(-0.5)},
		{` 12 `, NewInteger(12)},
	}
	for _, tt := range tests {
		t.Run(tt.lit, func(t *testing.T) {
			got, err := ParseLiteral(tt.lit)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Kind(), got.Kind())
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	for _, bad := range []string{"abc", "1.2.3", ".5", "5.", "1e5", `"open`, "", "-"} {
		_, err := ParseLiteral(bad)
		assert.True(t, errors.Is(err, ErrSchemaViolation), "literal %q should be rejected", bad)
	}
}

func TestParseKind(t *testing.T) {
	for name, want := range map[string]Kind{"Integer": KindInteger, "double": KindDouble, "String": KindText} {
		got, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, want, must(ParseKind(want.String())))
	}
	_, err := ParseKind("Boolean")
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

func must(k Kind, err error) Kind {
	if err != nil {
		panic(err)
	}
	return k
}

func TestValueEncodeDecode(t *testing.T) {
	values := []Value{NewInteger(-12345), NewDouble(2.75), NewText("héllo"), NewText("")}

	var buf bytes.Buffer
	e := NewEncoder(&buf)
	for _, v := range values {
		v.Encode(e)
	}
	require.NoError(t, e.Err())

	// Integer: 4-byte tag + 8-byte payload.
	assert.Equal(t, byte(KindInteger), buf.Bytes()[0])

	d := NewDecoder(&buf)
	for _, want := range values {
		got := DecodeValue(d)
		require.NoError(t, d.Err())
		assert.Equal(t, want, got)
	}
}

func TestDecodeValueUnknownKind(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	e.Int32(99)
	d := NewDecoder(&buf)
	DecodeValue(d)
	assert.Error(t, d.Err())
}

func TestComparison(t *testing.T) {
	assert.Equal(t, OpEqual, ParseComparison("="))
	assert.Equal(t, OpLessEqual, ParseComparison("<="))
	assert.Equal(t, OpGreaterEqual, ParseComparison(">="))
	assert.Equal(t, OpNotEqual, ParseComparison("!="))
	assert.Equal(t, OpNotEqual, ParseComparison("<>"))
	assert.Equal(t, OpNotEqual, ParseComparison("~"))

	five := NewInteger(5)
	assert.True(t, OpLess.Matches(NewInteger(4), five))
	assert.False(t, OpLess.Matches(five, five))
	assert.True(t, OpLessEqual.Matches(five, five))
	assert.True(t, OpGreater.Matches(NewInteger(6), five))
	assert.True(t, OpGreaterEqual.Matches(five, five))
	assert.True(t, OpNotEqual.Matches(NewInteger(6), five))
	assert.True(t, OpEqual.Matches(five, five))
}
