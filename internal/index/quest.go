package index

import (
	"github.com/tobiaswidmer/poisearch/internal/catalog"
	"github.com/tobiaswidmer/poisearch/pkg/errors"
)

// QuestIndex reserves the Index contract for quest records. Quest indexing
// is not implemented; every operation returns ErrNotSupported so that a
// misconfigured caller fails loudly instead of silently matching nothing.
type QuestIndex struct{}

// NewQuestIndex returns the placeholder quest index.
func NewQuestIndex() *QuestIndex {
	return &QuestIndex{}
}

func (q *QuestIndex) BuildFromFile(path string) error {
	return errors.ErrNotSupported
}

func (q *QuestIndex) BuildFromRows(rows []catalog.Row) error {
	return errors.ErrNotSupported
}

func (q *QuestIndex) PostingList(qgram string) ([]int, error) {
	return nil, errors.ErrNotSupported
}

func (q *QuestIndex) FindMatches(query Query) ([]Match, error) {
	return nil, errors.ErrNotSupported
}

var _ Index = (*QuestIndex)(nil)
var _ Index = (*PointIndex)(nil)
