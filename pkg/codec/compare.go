package codec

import "bytes"

// Compare parses a and b as concatenations of codec values and compares
// them element by element: both streams advance one value at a time; if
// both are exhausted the buffers are equal; if one is exhausted first, its
// buffer is the lesser one; otherwise the two values are compared by
// CompareValues and, on any nonzero result, that result is returned
// immediately. It returns an error only if either buffer is malformed.
//
// Dump guarantees bytes.Compare(Dump(a), Dump(b)) == CompareValues(a, b) for
// every pair of scalar values, so callers on the hot path of a range scan
// over codec-encoded keys can rely directly on the backing store's native
// byte ordering instead of calling Compare.
func Compare(a, b []byte) (int, error) {
	posA, posB := 0, 0
	for posA < len(a) && posB < len(b) {
		va, nextA, err := readValue(a, posA)
		if err != nil {
			return 0, err
		}
		vb, nextB, err := readValue(b, posB)
		if err != nil {
			return 0, err
		}
		if c := CompareValues(va, vb); c != 0 {
			return c, nil
		}
		posA, posB = nextA, nextB
	}
	switch {
	case posA >= len(a) && posB >= len(b):
		return 0, nil
	case posA >= len(a):
		return -1, nil
	default:
		return 1, nil
	}
}

// CompareValues compares two decoded values: values with different tags
// compare by tag rank alone (the order declared by the Tag constants);
// values sharing a tag compare by payload — numeric magnitude for integers
// and doubles, memcmp-then-length for raw, and element-by-element
// (exhaustion rule as in Compare) for arrays and maps.
func CompareValues(a, b Value) int {
	if a.Tag != b.Tag {
		if a.Tag < b.Tag {
			return -1
		}
		return 1
	}

	switch a.Tag {
	case TagNil, TagFalse, TagTrue:
		return 0

	case TagUInt32:
		return compareUint64(uint64(a.u32), uint64(b.u32))
	case TagUInt64:
		return compareUint64(a.u64, b.u64)
	case TagInt32:
		return compareInt64(int64(a.i32), int64(b.i32))
	case TagInt64:
		return compareInt64(a.i64, b.i64)
	case TagDouble:
		switch {
		case a.f64 < b.f64:
			return -1
		case a.f64 > b.f64:
			return 1
		default:
			return 0
		}

	case TagRaw:
		return bytes.Compare(a.raw, b.raw)

	case TagArray:
		return compareSeq(a.seq, b.seq)

	case TagMap:
		return compareSeq(a.kv, b.kv)

	default:
		return 0
	}
}

func compareSeq(a, b []Value) int {
	n := min(len(a), len(b))
	for i := range n {
		if c := CompareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) == len(b):
		return 0
	case len(a) < len(b):
		return -1
	default:
		return 1
	}
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
