package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare_NumericCrossKind(t *testing.T) {
	assert.Equal(t, 0, Compare(Int(2), Float(2.0)))
	assert.Equal(t, -1, Compare(Int(1), Float(1.5)))
	assert.Equal(t, 1, Compare(Float(3.5), Int(3)))
}

func TestCompare_NullsSortLast(t *testing.T) {
	assert.Equal(t, 1, Compare(Null{}, Int(0)))
	assert.Equal(t, -1, Compare(String(""), Null{}))
	assert.Equal(t, 0, Compare(Null{}, Null{}))
}

func TestCompare_Strings(t *testing.T) {
	assert.Equal(t, -1, Compare(String("alice"), String("bob")))
	assert.Equal(t, 0, Compare(String("x"), String("x")))
}

func TestCompare_Bools(t *testing.T) {
	assert.Equal(t, -1, Compare(Bool(false), Bool(true)))
	assert.Equal(t, 0, Compare(Bool(true), Bool(true)))
}

func TestEqual_CrossKind(t *testing.T) {
	assert.True(t, Equal(Int(2), Float(2.0)))
	assert.False(t, Equal(String("2"), Int(2)))
	assert.False(t, Equal(Null{}, Int(0)))
	assert.True(t, Equal(Null{}, Null{}))
}

func TestCanonical_Deterministic(t *testing.T) {
	assert.Equal(t, "null", Canonical(Null{}))
	assert.Equal(t, "42", Canonical(Int(42)))
	assert.Equal(t, "0.9", Canonical(Float(0.9)))
	assert.Equal(t, "true", Canonical(Bool(true)))
	assert.Equal(t, `"hi"`, Canonical(String("hi")))
}

func TestCanonical_NFCNormalization(t *testing.T) {
	// U+00E9 (precomposed) and U+0065 U+0301 (decomposed) must render
	// identically.
	composed := String("caf\u00e9")
	decomposed := String("cafe\u0301")
	assert.Equal(t, Canonical(composed), Canonical(decomposed))
}

func TestSQLLiteral_QuoteEscaping(t *testing.T) {
	assert.Equal(t, "'it''s'", SQLLiteral(String("it's")))
	assert.Equal(t, "NULL", SQLLiteral(Null{}))
	assert.Equal(t, "1", SQLLiteral(Bool(true)))
}

func TestFromAny_RoundTrip(t *testing.T) {
	cases := []struct {
		in   any
		want Value
	}{
		{nil, Null{}},
		{"s", String("s")},
		{true, Bool(true)},
		{int(3), Int(3)},
		{int64(4), Int(4)},
		{float64(2.5), Float(2.5)},
		{float64(7), Int(7)}, // whole JSON numbers stay integral
	}
	for _, tc := range cases {
		got, err := FromAny(tc.in)
		assert.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestFromAny_Unsupported(t *testing.T) {
	_, err := FromAny([]string{"no"})
	assert.Error(t, err)
}

func TestKindOf_NilInterface(t *testing.T) {
	var v Value
	assert.Equal(t, KindNull, KindOf(v))
	assert.True(t, IsNull(v))
}
