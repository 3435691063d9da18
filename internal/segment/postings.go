package segment

import (
	"context"

	"github.com/iamNilotpal/ember/internal/iter"
	"github.com/iamNilotpal/ember/internal/txn"
	"github.com/iamNilotpal/ember/pkg/codec"
	appErrors "github.com/iamNilotpal/ember/pkg/errors"
)

// PostingKey builds the composite `[field, term, event-id]` key spec.md
// §3/§4.6 describes, with codec's tag-ranked, byte-for-byte stable
// ordering guaranteeing bytewise order equals tuple order.
func PostingKey(field, term string, evid []byte) ([]byte, error) {
	return codec.DumpAll([]codec.Value{codec.String(field), codec.String(term), codec.Raw(evid)})
}

// NewPosting inserts value under key in `_postings_fwd` (mirrored into
// `_postings_rev`) without overwriting an existing entry, failing with
// *errors.DocError (DocExists) on a duplicate.
func (s *Segment) NewPosting(tx *txn.Txn, key, value []byte) error {
	if err := tx.PutIfAbsent(s.db, bucketPostingsFwd, key, value); err != nil {
		return err
	}
	revKey := complementBytes(key)
	return tx.Put(s.db, bucketPostingsRev, revKey, value)
}

// GetPosting returns the value stored at key.
func (s *Segment) GetPosting(tx *txn.Txn, key []byte) ([]byte, error) {
	return tx.Get(s.db, bucketPostingsFwd, key)
}

// ContainsPosting reports whether key has an entry.
func (s *Segment) ContainsPosting(tx *txn.Txn, key []byte) (bool, error) {
	return tx.Contains(s.db, bucketPostingsFwd, key)
}

// DeletePosting removes key from both posting buckets, failing with
// *errors.DocError (KeyNotFound) if it is absent from the forward one.
func (s *Segment) DeletePosting(tx *txn.Txn, key []byte) error {
	if err := tx.Delete(s.db, bucketPostingsFwd, key); err != nil {
		return err
	}
	revKey := complementBytes(key)
	return tx.Delete(s.db, bucketPostingsRev, revKey)
}

// SetPosting overwrites (or creates) key's value in both buckets.
func (s *Segment) SetPosting(tx *txn.Txn, key, value []byte) error {
	if err := tx.Put(s.db, bucketPostingsFwd, key, value); err != nil {
		return err
	}
	revKey := complementBytes(key)
	return tx.Put(s.db, bucketPostingsRev, revKey, value)
}

// EstimatePostings mirrors EstimateEvents over `_postings_fwd`.
func (s *Segment) EstimatePostings(ctx context.Context, tx *txn.Txn, start, end []byte) (float64, error) {
	lo, hi, reverse, err := normalizeWithinBounds(start, end)
	if err != nil {
		return 0.0, nil
	}

	bucket, err := tx.Bucket(s.db, bucketPostingsFwd)
	if err != nil {
		return 0.0, nil
	}
	total := bucket.Stats().KeyN
	if total == 0 {
		return 0.0, nil
	}

	it, err := iter.New(ctx, s.env, tx, s.db, bucketPostingsFwd, iter.Within, lo, hi, reverse, nil)
	if err != nil {
		return 0.0, nil
	}
	defer it.Close()

	matched := 0
	for {
		_, _, ok, err := it.Next()
		if err != nil {
			return 0.0, nil
		}
		if !ok {
			break
		}
		matched++
	}
	return float64(matched) / float64(total), nil
}

// IterPostings implements spec.md §4.6's four bound patterns over
// postings: both bounds nil selects ALL, start-only selects FROM,
// end-only selects UNTIL (FROM in reverse, anchored at end), both
// selects WITHIN. The reverse argument XORs against the pattern's base
// direction (true only for UNTIL), so a caller can force either
// direction regardless of which bound was supplied.
//
// When the effective direction is reverse, this walks `_postings_rev` in
// forward cursor order using bit-complemented bounds (so ascending
// complement order matches descending original order) and complements
// each yielded key back to its logical form before returning it to the
// caller. skipFn, if given, must already operate in logical (forward)
// key space; it is translated internally.
func (s *Segment) IterPostings(
	ctx context.Context,
	tx *txn.Txn,
	start, end []byte,
	reverse bool,
	skipFn iter.SkipFunc,
) (*PostingIter, error) {
	var mode iter.Mode
	var baseReverse bool
	var anchor, lo, hi []byte

	switch {
	case start == nil && end == nil:
		mode = iter.All
	case start != nil && end == nil:
		mode = iter.From
		anchor = start
	case start == nil && end != nil:
		mode = iter.From
		anchor = end
		baseReverse = true
	default:
		mode = iter.Within
		cmp, err := codec.Compare(start, end)
		if err != nil {
			return nil, appErrors.NewMalformedError(0, "invalid posting bound: "+err.Error())
		}
		if cmp > 0 {
			lo, hi, baseReverse = end, start, true
		} else {
			lo, hi = start, end
		}
	}

	effectiveReverse := baseReverse != reverse

	if !effectiveReverse {
		var s0, e0 []byte
		if mode == iter.From {
			s0 = anchor
		} else {
			s0, e0 = lo, hi
		}
		inner, err := iter.New(ctx, s.env, tx, s.db, bucketPostingsFwd, mode, s0, e0, false, skipFn)
		if err != nil {
			return nil, err
		}
		return &PostingIter{inner: inner}, nil
	}

	var revSkip iter.SkipFunc
	if skipFn != nil {
		revSkip = func(target []byte) []byte {
			return complementBytes(skipFn(target))
		}
	}

	var revStart, revEnd []byte
	if mode == iter.From {
		revStart = complementBytes(anchor)
	} else {
		revStart = complementBytesOrNil(hi)
		revEnd = complementBytesOrNil(lo)
	}

	inner, err := iter.New(ctx, s.env, tx, s.db, bucketPostingsRev, mode, revStart, revEnd, false, revSkip)
	if err != nil {
		return nil, err
	}
	return &PostingIter{inner: inner, complemented: true}, nil
}

// PostingIter wraps an *iter.Iter positioned over either the forward or
// reverse posting bucket, undoing the bit-complement transform on keys
// read from the reverse bucket so every caller sees logical
// `[field, term, event-id]` keys regardless of which bucket answered the
// scan.
type PostingIter struct {
	inner        *iter.Iter
	complemented bool
}

// Next returns the next logical posting key/value pair, or ok=false at
// end of range.
func (p *PostingIter) Next() (key, value []byte, ok bool, err error) {
	key, value, ok, err = p.inner.Next()
	if err != nil || !ok {
		return nil, nil, ok, err
	}
	if p.complemented {
		key = complementBytes(key)
	}
	return key, value, true, nil
}

// Skip positions the iterator exactly at target, translating through the
// complement transform when reading from the reverse bucket.
func (p *PostingIter) Skip(target []byte) error {
	return p.inner.Skip(target)
}

// Close releases the underlying cursor.
func (p *PostingIter) Close() error {
	return p.inner.Close()
}

// complementBytes returns the bitwise complement of every byte in b, the
// transform used to store `_postings_rev` keys so that ascending byte
// order in the reverse bucket matches descending order in the forward
// one. Because pkg/codec never produces a complete encoded key that is a
// strict byte-prefix of another (Raw is null-terminated/escaped and
// every other tag is fixed-width), complementing whole keys preserves a
// total order inversion with no prefix-collision exception to handle.
func complementBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = c ^ 0xFF
	}
	return out
}

func complementBytesOrNil(b []byte) []byte {
	if b == nil {
		return nil
	}
	return complementBytes(b)
}
