package segment

import (
	"github.com/iamNilotpal/ember/internal/txn"
	"github.com/iamNilotpal/ember/pkg/codec"
	appErrors "github.com/iamNilotpal/ember/pkg/errors"
)

// TermStats holds the aggregate statistics `_terms` keeps per `[field,
// term]` pair: how many distinct events carry the term, and the total
// number of occurrences across all of them.
type TermStats struct {
	DocFrequency int64
	Occurrences  int64
}

func (t TermStats) encode() ([]byte, error) {
	return codec.DumpAll([]codec.Value{codec.Int(t.DocFrequency), codec.Int(t.Occurrences)})
}

func decodeTermStats(buf []byte) (TermStats, error) {
	values, err := codec.Load(buf)
	if err != nil {
		return TermStats{}, err
	}
	df, _ := values[0].Int64()
	occ, _ := values[1].Int64()
	return TermStats{DocFrequency: df, Occurrences: occ}, nil
}

// termKey builds the `[field, term]` compound key `_terms` is indexed by.
func termKey(field, term string) ([]byte, error) {
	return codec.DumpAll([]codec.Value{codec.String(field), codec.String(term)})
}

// GetTermStats returns the stats recorded for field/term, or the zero
// value if none have been recorded yet.
func (s *Segment) GetTermStats(tx *txn.Txn, field, term string) (TermStats, error) {
	key, err := termKey(field, term)
	if err != nil {
		return TermStats{}, err
	}
	buf, err := tx.Get(s.db, bucketTerms, key)
	if appErrors.IsKeyNotFound(err) {
		return TermStats{}, nil
	}
	if err != nil {
		return TermStats{}, err
	}
	return decodeTermStats(buf)
}

// UpdateTermStats adds deltaDocFrequency and deltaOccurrences to the
// stats recorded for field/term, creating the record if absent. Callers
// pass negative deltas to reflect a posting removal.
func (s *Segment) UpdateTermStats(tx *txn.Txn, field, term string, deltaDocFrequency, deltaOccurrences int64) error {
	key, err := termKey(field, term)
	if err != nil {
		return err
	}

	current := TermStats{}
	buf, err := tx.Get(s.db, bucketTerms, key)
	if err == nil {
		current, err = decodeTermStats(buf)
		if err != nil {
			return err
		}
	} else if !appErrors.IsKeyNotFound(err) {
		return err
	}

	current.DocFrequency += deltaDocFrequency
	current.Occurrences += deltaOccurrences

	encoded, err := current.encode()
	if err != nil {
		return err
	}
	return tx.Put(s.db, bucketTerms, key, encoded)
}
