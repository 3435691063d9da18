package codec

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDumpLoadRoundTrip verifies load(dump(v)) == v for one representative
// of every tag in the value universe.
func TestDumpLoadRoundTrip(t *testing.T) {
	cases := []Value{
		Nil(),
		Bool(false),
		Bool(true),
		Int(0),
		Int(42),
		Int(-42),
		Uint(1 << 40),
		Int(math.MinInt64),
		Double(3.14159),
		Double(-0.5),
		String("hello"),
		Raw([]byte{0x00, 0x01, 0x00, 0xFF}),
		Array([]Value{Int(1), String("a"), Bool(true)}),
		Map([]Value{String("field"), Int(7)}),
	}

	for _, v := range cases {
		buf, err := Dump(v)
		require.NoError(t, err)

		got, err := LoadOne(buf)
		require.NoError(t, err)
		assert.Equal(t, v.Tag, got.Tag)

		buf2, err := Dump(got)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(buf, buf2), "dump(load(dump(v))) must equal dump(v)")
	}
}

// TestDumpAllLoadConcatenation verifies that a concatenation of dumped
// values loads back as the same ordered list.
func TestDumpAllLoadConcatenation(t *testing.T) {
	vs := []Value{String("field"), String("term"), Int(12345)}

	buf, err := DumpAll(vs)
	require.NoError(t, err)

	got, err := Load(buf)
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i, v := range got {
		assert.Equal(t, vs[i].Tag, v.Tag)
	}
}

// TestCanonicalIntegerWidth verifies Int/Uint always pick the smallest
// lossless variant, preferring unsigned for non-negative magnitudes — the
// property that makes cross-magnitude comparison correct.
func TestCanonicalIntegerWidth(t *testing.T) {
	assert.Equal(t, TagUInt32, Int(0).Tag)
	assert.Equal(t, TagUInt32, Int(maxUint32Int()).Tag)
	assert.Equal(t, TagUInt64, Int(maxUint32Int()+1).Tag)
	assert.Equal(t, TagInt32, Int(-1).Tag)
	assert.Equal(t, TagInt64, Int(math.MinInt32-1).Tag)
}

func maxUint32Int() int64 { return int64(maxUint32) }

// TestCompareValuesByTagRank verifies the declared tag order: Nil < False <
// True < UInt32 < Int32 < UInt64 < Int64 < Double < Raw < Array < Map.
func TestCompareValuesByTagRank(t *testing.T) {
	ordered := []Value{
		Nil(),
		Bool(false),
		Bool(true),
		Value{Tag: TagUInt32},
		Value{Tag: TagInt32},
		Value{Tag: TagUInt64},
		Value{Tag: TagInt64},
		Value{Tag: TagDouble},
		Raw(nil),
		Array(nil),
		Map(nil),
	}
	for i := 0; i < len(ordered)-1; i++ {
		assert.Equal(t, -1, CompareValues(ordered[i], ordered[i+1]))
		assert.Equal(t, 1, CompareValues(ordered[i+1], ordered[i]))
	}
}

// TestCompareNumericMagnitude verifies that same-tag integers and doubles
// compare by numeric value, including negative vs. positive.
func TestCompareNumericMagnitude(t *testing.T) {
	assert.Equal(t, -1, CompareValues(Int(-10), Int(-1)))
	assert.Equal(t, 1, CompareValues(Int(10), Int(1)))
	assert.Equal(t, 0, CompareValues(Int(5), Int(5)))
	assert.Equal(t, -1, CompareValues(Double(-1.5), Double(1.5)))
	assert.Equal(t, 1, CompareValues(Double(2.0), Double(1.0)))
}

// TestCompareRawMemcmpThenLength verifies raw values compare lexicographically
// and a byte-prefix sorts before its extension.
func TestCompareRawMemcmpThenLength(t *testing.T) {
	assert.Equal(t, -1, CompareValues(String("ab"), String("b")))
	assert.Equal(t, -1, CompareValues(String("ab"), String("abc")))
	assert.Equal(t, 0, CompareValues(String("ab"), String("ab")))
	assert.Equal(t, 1, CompareValues(String("abc"), String("ab")))
}

// TestDumpOrderMatchesCompare verifies the encoding invariant Dump depends
// on: bytewise comparison of encoded buffers agrees with CompareValues for
// scalar values across differing tags and magnitudes.
func TestDumpOrderMatchesCompare(t *testing.T) {
	values := []Value{
		Nil(), Bool(false), Bool(true),
		Int(0), Int(1), Int(-1), Int(1000000),
		Uint(1 << 40), Int(math.MinInt64), Int(math.MaxInt64),
		Double(-5.5), Double(0), Double(5.5),
		String(""), String("a"), String("ab"), String("b"),
		Raw([]byte{0x00}), Raw([]byte{0x00, 0x00}),
	}

	for i := range values {
		for j := range values {
			bufI, err := Dump(values[i])
			require.NoError(t, err)
			bufJ, err := Dump(values[j])
			require.NoError(t, err)

			wantSign := sign(CompareValues(values[i], values[j]))
			gotSign := sign(bytes.Compare(bufI, bufJ))
			assert.Equal(t, wantSign, gotSign, "dump order mismatch for %v vs %v", values[i], values[j])
		}
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// TestCompareBufferExhaustionRule verifies that a buffer whose concatenated
// values run out first is the lesser one, per the iteration/range-check
// algorithm used throughout the engine.
func TestCompareBufferExhaustionRule(t *testing.T) {
	short, err := DumpAll([]Value{String("events"), Int(1)})
	require.NoError(t, err)
	long, err := DumpAll([]Value{String("events"), Int(1), String("extra")})
	require.NoError(t, err)

	c, err := Compare(short, long)
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = Compare(long, short)
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = Compare(short, short)
	require.NoError(t, err)
	assert.Equal(t, 0, c)
}

// TestLoadMalformedBuffer verifies load surfaces a CodecError instead of
// panicking on truncated or invalid input.
func TestLoadMalformedBuffer(t *testing.T) {
	_, err := Load([]byte{byte(TagUInt32), 0x01})
	require.Error(t, err)

	_, err = Load([]byte{byte(TagRaw), 'a', 'b'})
	require.Error(t, err)

	_, err = Load([]byte{0xEE})
	require.Error(t, err)
}
