package segment

import (
	"context"

	"github.com/iamNilotpal/ember/internal/iter"
	"github.com/iamNilotpal/ember/internal/txn"
	"github.com/iamNilotpal/ember/pkg/codec"
	appErrors "github.com/iamNilotpal/ember/pkg/errors"
)

// NewEvent inserts body under evid in `_documents` without overwriting an
// existing entry, failing with *errors.DocError (DocExists) on a
// duplicate. evid and body are already codec-encoded.
func (s *Segment) NewEvent(tx *txn.Txn, evid, body []byte) error {
	return tx.PutIfAbsent(s.db, bucketDocuments, evid, body)
}

// GetEvent returns the codec-encoded body stored at evid.
func (s *Segment) GetEvent(tx *txn.Txn, evid []byte) ([]byte, error) {
	return tx.Get(s.db, bucketDocuments, evid)
}

// ContainsEvent reports whether evid has an entry.
func (s *Segment) ContainsEvent(tx *txn.Txn, evid []byte) (bool, error) {
	return tx.Contains(s.db, bucketDocuments, evid)
}

// DeleteEvent removes evid, failing with *errors.DocError
// (KeyNotFound) if it is absent.
func (s *Segment) DeleteEvent(tx *txn.Txn, evid []byte) error {
	return tx.Delete(s.db, bucketDocuments, evid)
}

// SetEvent overwrites (or creates) evid's body.
func (s *Segment) SetEvent(tx *txn.Txn, evid, body []byte) error {
	return tx.Put(s.db, bucketDocuments, evid, body)
}

// IterEvents returns a WITHIN iterator over `_documents` bounded by start
// and end (already codec-encoded event ids); reverse direction is
// inferred when start sorts after end under the codec comparator, per
// spec.md §4.6.
func (s *Segment) IterEvents(ctx context.Context, tx *txn.Txn, start, end []byte) (*iter.Iter, error) {
	lo, hi, reverse, err := normalizeWithinBounds(start, end)
	if err != nil {
		return nil, err
	}
	return iter.New(ctx, s.env, tx, s.db, bucketDocuments, iter.Within, lo, hi, reverse, nil)
}

// EstimateEvents returns an approximate fraction in [0, 1] of the
// `_documents` bucket whose keys fall in the inclusive interval [start,
// end] (reversed automatically if start sorts after end). bbolt offers
// no sub-linear key-range cardinality estimator, so this counts matching
// keys via a cursor scan and divides by the bucket's total key count — an
// honest O(k) approximation of the estimator spec.md §4.6 describes,
// rather than a true O(log n) one. On any internal failure it returns
// 0.0, nil: an unavailable estimate reads as "nothing here" to a
// query planner, which is safer than surfacing an internal error for a
// purely advisory statistic.
func (s *Segment) EstimateEvents(ctx context.Context, tx *txn.Txn, start, end []byte) (float64, error) {
	lo, hi, reverse, err := normalizeWithinBounds(start, end)
	if err != nil {
		return 0.0, nil
	}

	bucket, err := tx.Bucket(s.db, bucketDocuments)
	if err != nil {
		return 0.0, nil
	}
	total := bucket.Stats().KeyN
	if total == 0 {
		return 0.0, nil
	}

	it, err := iter.New(ctx, s.env, tx, s.db, bucketDocuments, iter.Within, lo, hi, reverse, nil)
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

// normalizeWithinBounds orders lo/hi by codec comparison and reports
// whether the original start/end pair was given reversed, the "treated
// as its reverse" rule spec.md §4.6 requires for estimate_events and
// iter_events alike.
func normalizeWithinBounds(start, end []byte) (lo, hi []byte, reverse bool, err error) {
	cmp, err := codec.Compare(start, end)
	if err != nil {
		return nil, nil, false, appErrors.NewMalformedError(0, "invalid event-id bound: "+err.Error())
	}
	if cmp > 0 {
		return end, start, true, nil
	}
	return start, end, false, nil
}
