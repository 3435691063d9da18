package codec

import (
	"encoding/binary"
	"math"

	appErrors "github.com/iamNilotpal/ember/pkg/errors"
)

const signMask32 = uint32(1) << 31
const signMask64 = uint64(1) << 63

// Dump serializes a single value to its self-describing wire form. The
// encoding is constructed so that, for every pair of scalar values,
// bytes.Compare(Dump(a), Dump(b)) agrees with CompareValues(a, b) (arrays
// and maps do not always agree: Array[5] sorts after Array[1, 1] under
// CompareValues but before it by bytes) — this is
// what lets the kv layer rely on the backing store's native ascending byte
// order for range scans over codec-encoded keys instead of a pluggable
// comparator.
func Dump(v Value) ([]byte, error) {
	var buf []byte
	if err := appendValue(&buf, v); err != nil {
		return nil, err
	}
	return buf, nil
}

// DumpAll serializes a sequence of values as a concatenation of individually
// dumped elements. load() on the result returns the same sequence back.
func DumpAll(vs []Value) ([]byte, error) {
	var buf []byte
	for _, v := range vs {
		if err := appendValue(&buf, v); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendValue(buf *[]byte, v Value) error {
	switch v.Tag {
	case TagNil, TagFalse, TagTrue:
		*buf = append(*buf, byte(v.Tag))

	case TagUInt32:
		*buf = append(*buf, byte(v.Tag))
		*buf = binary.BigEndian.AppendUint32(*buf, v.u32)

	case TagInt32:
		*buf = append(*buf, byte(v.Tag))
		*buf = binary.BigEndian.AppendUint32(*buf, uint32(v.i32)^signMask32)

	case TagUInt64:
		*buf = append(*buf, byte(v.Tag))
		*buf = binary.BigEndian.AppendUint64(*buf, v.u64)

	case TagInt64:
		*buf = append(*buf, byte(v.Tag))
		*buf = binary.BigEndian.AppendUint64(*buf, uint64(v.i64)^signMask64)

	case TagDouble:
		*buf = append(*buf, byte(v.Tag))
		*buf = binary.BigEndian.AppendUint64(*buf, orderedDoubleBits(v.f64))

	case TagRaw:
		*buf = append(*buf, byte(v.Tag))
		appendEscapedRaw(buf, v.raw)

	case TagArray:
		*buf = append(*buf, byte(v.Tag))
		*buf = binary.BigEndian.AppendUint32(*buf, uint32(len(v.seq)))
		for _, item := range v.seq {
			if err := appendValue(buf, item); err != nil {
				return err
			}
		}

	case TagMap:
		if len(v.kv)%2 != 0 {
			return appErrors.NewUnsupportedTypeError("codec.Value: map payload has odd entry count")
		}
		*buf = append(*buf, byte(v.Tag))
		*buf = binary.BigEndian.AppendUint32(*buf, uint32(len(v.kv)/2))
		for _, item := range v.kv {
			if err := appendValue(buf, item); err != nil {
				return err
			}
		}

	default:
		return appErrors.NewUnsupportedTypeError("codec.Value: unknown tag")
	}
	return nil
}

// orderedDoubleBits maps f's IEEE 754 bit pattern into an unsigned integer
// whose ordinary numeric order matches f's floating-point order: negative
// numbers flip all bits (so more-negative sorts lower), non-negative numbers
// flip only the sign bit (so they sort above every negative number).
func orderedDoubleBits(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&signMask64 != 0 {
		return ^bits
	}
	return bits | signMask64
}

// appendEscapedRaw appends raw using a null-escaped, null-terminated
// encoding: every literal 0x00 byte becomes 0x00 0xFF, and the payload ends
// with a 0x00 0x00 terminator. Because the terminator's second byte (0x00)
// sorts below an escaped null's second byte (0xFF) and below any other
// literal byte, a raw value that is a byte-prefix of another always sorts
// lower — matching the memcmp-then-length comparison rule.
func appendEscapedRaw(buf *[]byte, raw []byte) {
	for _, b := range raw {
		if b == 0x00 {
			*buf = append(*buf, 0x00, 0xFF)
		} else {
			*buf = append(*buf, b)
		}
	}
	*buf = append(*buf, 0x00, 0x00)
}
