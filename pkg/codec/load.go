package codec

import (
	"encoding/binary"
	"math"

	appErrors "github.com/iamNilotpal/ember/pkg/errors"
)

// Load parses buf as a concatenation of zero or more wire-encoded values. If
// exactly one value is present it is returned as the sole element of the
// result slice; callers expecting exactly one value should use LoadOne.
func Load(buf []byte) ([]Value, error) {
	var out []Value
	pos := 0
	for pos < len(buf) {
		v, next, err := readValue(buf, pos)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		pos = next
	}
	return out, nil
}

// LoadOne parses buf and requires it to contain exactly one value.
func LoadOne(buf []byte) (Value, error) {
	vs, err := Load(buf)
	if err != nil {
		return Value{}, err
	}
	if len(vs) != 1 {
		return Value{}, appErrors.NewMalformedError(0, "expected exactly one value")
	}
	return vs[0], nil
}

func readValue(buf []byte, pos int) (Value, int, error) {
	if pos >= len(buf) {
		return Value{}, pos, appErrors.NewMalformedError(pos, "truncated buffer: expected tag byte")
	}
	tag := Tag(buf[pos])
	pos++

	switch tag {
	case TagNil:
		return Value{Tag: TagNil}, pos, nil
	case TagFalse:
		return Value{Tag: TagFalse}, pos, nil
	case TagTrue:
		return Value{Tag: TagTrue}, pos, nil

	case TagUInt32:
		end := pos + 4
		if end > len(buf) {
			return Value{}, pos, appErrors.NewMalformedError(pos, "truncated uint32 payload")
		}
		return Value{Tag: TagUInt32, u32: binary.BigEndian.Uint32(buf[pos:end])}, end, nil

	case TagInt32:
		end := pos + 4
		if end > len(buf) {
			return Value{}, pos, appErrors.NewMalformedError(pos, "truncated int32 payload")
		}
		raw := binary.BigEndian.Uint32(buf[pos:end]) ^ signMask32
		return Value{Tag: TagInt32, i32: int32(raw)}, end, nil

	case TagUInt64:
		end := pos + 8
		if end > len(buf) {
			return Value{}, pos, appErrors.NewMalformedError(pos, "truncated uint64 payload")
		}
		return Value{Tag: TagUInt64, u64: binary.BigEndian.Uint64(buf[pos:end])}, end, nil

	case TagInt64:
		end := pos + 8
		if end > len(buf) {
			return Value{}, pos, appErrors.NewMalformedError(pos, "truncated int64 payload")
		}
		raw := binary.BigEndian.Uint64(buf[pos:end]) ^ signMask64
		return Value{Tag: TagInt64, i64: int64(raw)}, end, nil

	case TagDouble:
		end := pos + 8
		if end > len(buf) {
			return Value{}, pos, appErrors.NewMalformedError(pos, "truncated double payload")
		}
		f := unorderDoubleBits(binary.BigEndian.Uint64(buf[pos:end]))
		return Value{Tag: TagDouble, f64: f}, end, nil

	case TagRaw:
		raw, end, err := readEscapedRaw(buf, pos)
		if err != nil {
			return Value{}, pos, err
		}
		return Value{Tag: TagRaw, raw: raw}, end, nil

	case TagArray:
		items, end, err := readSeq(buf, pos)
		if err != nil {
			return Value{}, pos, err
		}
		return Value{Tag: TagArray, seq: items}, end, nil

	case TagMap:
		end := pos + 4
		if end > len(buf) {
			return Value{}, pos, appErrors.NewMalformedError(pos, "truncated map count")
		}
		npairs := binary.BigEndian.Uint32(buf[pos:end])
		pos = end
		kv := make([]Value, 0, npairs*2)
		for range npairs {
			k, next, err := readValue(buf, pos)
			if err != nil {
				return Value{}, pos, err
			}
			pos = next
			val, next, err := readValue(buf, pos)
			if err != nil {
				return Value{}, pos, err
			}
			pos = next
			kv = append(kv, k, val)
		}
		return Value{Tag: TagMap, kv: kv}, pos, nil

	default:
		return Value{}, pos, appErrors.NewMalformedError(pos-1, "unrecognized tag byte")
	}
}

func readSeq(buf []byte, pos int) ([]Value, int, error) {
	end := pos + 4
	if end > len(buf) {
		return nil, pos, appErrors.NewMalformedError(pos, "truncated array count")
	}
	n := binary.BigEndian.Uint32(buf[pos:end])
	pos = end
	items := make([]Value, 0, n)
	for range n {
		v, next, err := readValue(buf, pos)
		if err != nil {
			return nil, pos, err
		}
		items = append(items, v)
		pos = next
	}
	return items, pos, nil
}

func unorderDoubleBits(bits uint64) float64 {
	if bits&signMask64 != 0 {
		bits &^= signMask64
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}

func readEscapedRaw(buf []byte, pos int) ([]byte, int, error) {
	var out []byte
	for {
		if pos >= len(buf) {
			return nil, pos, appErrors.NewMalformedError(pos, "unterminated raw value")
		}
		b := buf[pos]
		if b != 0x00 {
			out = append(out, b)
			pos++
			continue
		}
		if pos+1 >= len(buf) {
			return nil, pos, appErrors.NewMalformedError(pos, "unterminated raw value")
		}
		switch buf[pos+1] {
		case 0xFF:
			out = append(out, 0x00)
			pos += 2
		case 0x00:
			return out, pos + 2, nil
		default:
			return nil, pos, appErrors.NewMalformedError(pos, "invalid raw escape sequence")
		}
	}
}
