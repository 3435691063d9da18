// Package codec implements the self-describing tagged-value serializer used
// for every key and value stored in the engine's kv substrate. Its defining
// property is that the serialized byte form of a value sorts, under a plain
// byte comparator, in the same order as the value's logical order — this is
// what lets the engine keep the kv substrate's plain byte order (no custom
// comparator is installed) and still get correct typed range scans.
package codec

// Tag identifies which member of the value universe a Value holds. Tag order
// IS sort order: two values with different tags compare by Tag alone, so the
// constants below must stay in ascending rank order exactly as declared.
type Tag uint8

const (
	TagNil Tag = iota
	TagFalse
	TagTrue
	TagUInt32
	TagInt32
	TagUInt64
	TagInt64
	TagDouble
	TagRaw
	TagArray
	TagMap
)

// Value is the tagged variant every public get/set function in the engine
// consumes and produces. Only Dump/Load/Compare in this package ever touch
// the wire bytes directly.
type Value struct {
	Tag Tag

	u32 uint32
	i32 int32
	u64 uint64
	i64 int64
	f64 float64
	raw []byte
	seq []Value
	kv  []Value // Map payload: flattened [key0, val0, key1, val1, ...]
}

// Nil returns the Nil value.
func Nil() Value { return Value{Tag: TagNil} }

// Bool returns the False or True value for b.
func Bool(b bool) Value {
	if b {
		return Value{Tag: TagTrue}
	}
	return Value{Tag: TagFalse}
}

// Raw returns a Raw value wrapping b. The codec treats Raw payloads as
// opaque bytes (UTF-8 text included); callers own decoding.
func Raw(b []byte) Value { return Value{Tag: TagRaw, raw: b} }

// String returns a Raw value wrapping s's UTF-8 bytes.
func String(s string) Value { return Value{Tag: TagRaw, raw: []byte(s)} }

// Array returns an Array value wrapping items.
func Array(items []Value) Value { return Value{Tag: TagArray, seq: items} }

// Map returns a Map value from the given key/value pairs. pairs must have
// even length; it is stored as alternating key, value entries.
func Map(pairs []Value) Value { return Value{Tag: TagMap, kv: pairs} }

// Int returns the canonical Value for a signed Go integer: the smallest
// lossless integer variant, preferring unsigned when n is non-negative.
// This canonicalization is load-bearing — Compare only gives the right
// cross-magnitude answer when every occurrence of a given logical integer
// dumps to the same tag.
func Int(n int64) Value {
	if n >= 0 {
		if u := uint64(n); u <= maxUint32 {
			return Value{Tag: TagUInt32, u32: uint32(u)}
		}
		return Value{Tag: TagUInt64, u64: uint64(n)}
	}
	if n >= minInt32 && n <= maxInt32 {
		return Value{Tag: TagInt32, i32: int32(n)}
	}
	return Value{Tag: TagInt64, i64: n}
}

// Uint returns the canonical Value for an unsigned Go integer.
func Uint(n uint64) Value {
	if n <= maxUint32 {
		return Value{Tag: TagUInt32, u32: uint32(n)}
	}
	return Value{Tag: TagUInt64, u64: n}
}

// Double returns a Double value wrapping f.
func Double(f float64) Value { return Value{Tag: TagDouble, f64: f} }

const (
	maxUint32 = uint64(1)<<32 - 1
	minInt32  = int64(-1) << 31
	maxInt32  = int64(1)<<31 - 1
)

// IsNil reports whether v holds the Nil value.
func (v Value) IsNil() bool { return v.Tag == TagNil }

// Bool reports the boolean this value holds; ok is false for any other tag.
func (v Value) Bool() (b bool, ok bool) {
	switch v.Tag {
	case TagTrue:
		return true, true
	case TagFalse:
		return false, true
	default:
		return false, false
	}
}

// Int64 returns v widened to int64, for any integer-tagged value. ok is
// false for a non-integer tag or for a UInt64 too large to fit.
func (v Value) Int64() (n int64, ok bool) {
	switch v.Tag {
	case TagUInt32:
		return int64(v.u32), true
	case TagInt32:
		return int64(v.i32), true
	case TagInt64:
		return v.i64, true
	case TagUInt64:
		if v.u64 <= uint64(1)<<63-1 {
			return int64(v.u64), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// Uint64 returns v widened to uint64, for any non-negative integer-tagged
// value. ok is false for a negative or non-integer value.
func (v Value) Uint64() (n uint64, ok bool) {
	switch v.Tag {
	case TagUInt32:
		return uint64(v.u32), true
	case TagUInt64:
		return v.u64, true
	case TagInt32:
		if v.i32 >= 0 {
			return uint64(v.i32), true
		}
		return 0, false
	case TagInt64:
		if v.i64 >= 0 {
			return uint64(v.i64), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// Float64 returns v's double payload. ok is false for any other tag.
func (v Value) Float64() (f float64, ok bool) {
	if v.Tag != TagDouble {
		return 0, false
	}
	return v.f64, true
}

// Bytes returns v's raw payload. ok is false for any other tag.
func (v Value) Bytes() (b []byte, ok bool) {
	if v.Tag != TagRaw {
		return nil, false
	}
	return v.raw, true
}

// String returns v's raw payload decoded as a string. ok is false for any
// other tag.
func (v Value) String() (s string, ok bool) {
	if v.Tag != TagRaw {
		return "", false
	}
	return string(v.raw), true
}

// Items returns v's Array elements. ok is false for any other tag.
func (v Value) Items() (items []Value, ok bool) {
	if v.Tag != TagArray {
		return nil, false
	}
	return v.seq, true
}

// Pairs returns v's Map payload as alternating key, value entries. ok is
// false for any other tag.
func (v Value) Pairs() (pairs []Value, ok bool) {
	if v.Tag != TagMap {
		return nil, false
	}
	return v.kv, true
}
