// Package merger combines the posting lists touched by a query into a single
// candidate list with overlap counts.
package merger

// Candidate pairs a record id with the number of query q-gram occurrences
// found in its posting lists, counted with multiplicity.
type Candidate struct {
	RecordID int
	Count    int
}

// Merge treats every input list as a multiset of record ids and returns each
// distinct id with its total occurrence count. Candidates appear in the
// order an id is first seen across the concatenation of the input lists;
// callers depend on that ordering being deterministic, so it is part of the
// contract, not an accident of the implementation.
func Merge(lists [][]int) []Candidate {
	position := make(map[int]int)
	var merged []Candidate
	for _, list := range lists {
		for _, id := range list {
			if at, seen := position[id]; seen {
				merged[at].Count++
				continue
			}
			position[id] = len(merged)
			merged = append(merged, Candidate{RecordID: id, Count: 1})
		}
	}
	return merged
}
