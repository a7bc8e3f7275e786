// Package store holds the catalog records backing the search index. Record
// ids are dense, 0-based and assigned in insertion order; once a record is
// appended it is never mutated or removed.
package store

import (
	"fmt"

	"github.com/tobiaswidmer/poisearch/internal/catalog"
	"github.com/tobiaswidmer/poisearch/internal/index/tokenizer"
	"github.com/tobiaswidmer/poisearch/pkg/errors"
)

// Record is one immutable catalog entry. NormalizedWord is the matching form
// of DisplayName (lower-cased, non-word characters stripped) computed on
// append so queries never re-normalise stored names.
type Record struct {
	ID             int
	DisplayName    string
	NormalizedWord string
	Latitude       *float64
	Longitude      *float64
	Category       catalog.Category
}

// RecordStore is an append-only array of Records.
type RecordStore struct {
	records []Record
}

// New returns an empty RecordStore.
func New() *RecordStore {
	return &RecordStore{}
}

// Append adds a record and returns its assigned id. Missing coordinates and
// categories are accepted as-is; upstream catalog rows do not always carry
// all columns.
func (s *RecordStore) Append(displayName string, lat, lon *float64, category catalog.Category) int {
	id := len(s.records)
	s.records = append(s.records, Record{
		ID:             id,
		DisplayName:    displayName,
		NormalizedWord: tokenizer.Normalize(displayName),
		Latitude:       lat,
		Longitude:      lon,
		Category:       category,
	})
	return id
}

// Get returns the record with the given id, or ErrOutOfRange if the id was
// never assigned.
func (s *RecordStore) Get(id int) (Record, error) {
	if id < 0 || id >= len(s.records) {
		return Record{}, fmt.Errorf("%w: id %d, store holds %d records", errors.ErrOutOfRange, id, len(s.records))
	}
	return s.records[id], nil
}

// Len returns the number of stored records.
func (s *RecordStore) Len() int {
	return len(s.records)
}
