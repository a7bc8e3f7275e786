// Package inverted maps q-grams to posting lists of record ids. The index is
// append-only: it is populated once at build time and read-only afterwards,
// which makes concurrent queries safe without locking.
package inverted

import (
	"github.com/tobiaswidmer/poisearch/internal/index/tokenizer"
)

// Index is the q-gram inverted index.
type Index struct {
	q        int
	postings map[string][]int
}

// New returns an empty inverted index for q-grams of the given length.
func New(q int) *Index {
	return &Index{
		q:        q,
		postings: make(map[string][]int),
	}
}

// Q returns the configured q-gram length.
func (idx *Index) Q() int {
	return idx.q
}

// Add appends recordID to the posting list of every q-gram of word. A record
// id is appended once per occurrence of the q-gram, not once per distinct
// q-gram: a word with repeated structure contributes multiple postings and
// therefore a higher overlap count at query time.
func (idx *Index) Add(recordID int, word string) {
	for _, gram := range tokenizer.QGrams(word, idx.q) {
		idx.postings[gram] = append(idx.postings[gram], recordID)
	}
}

// PostingList returns the record ids for the given q-gram, or an empty list
// for a q-gram that was never observed.
func (idx *Index) PostingList(qgram string) []int {
	return idx.postings[qgram]
}

// Terms returns the number of distinct q-grams in the index.
func (idx *Index) Terms() int {
	return len(idx.postings)
}
