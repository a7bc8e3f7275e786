// Package index implements the q-gram search engine: a build-once inverted
// index over catalog records, filtered by q-gram overlap and ranked by
// sequence alignment. After Build* completes the index is immutable, so any
// number of goroutines may query it concurrently without locking.
package index

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/tobiaswidmer/poisearch/internal/catalog"
	"github.com/tobiaswidmer/poisearch/internal/geofence"
	"github.com/tobiaswidmer/poisearch/internal/index/inverted"
	"github.com/tobiaswidmer/poisearch/internal/index/merger"
	"github.com/tobiaswidmer/poisearch/internal/index/scoring"
	"github.com/tobiaswidmer/poisearch/internal/index/store"
	"github.com/tobiaswidmer/poisearch/internal/index/tokenizer"
	"github.com/tobiaswidmer/poisearch/pkg/errors"
	"github.com/tobiaswidmer/poisearch/pkg/logger"
)

// DefaultK is the number of matches returned when Query.K is not set.
const DefaultK = 5

// Query is one find-matches request.
type Query struct {
	// Text is matched against the normalised record names. Callers should
	// pass it pre-normalised; the scorers are case-sensitive.
	Text string
	// Delta is reserved for a prefix-edit-distance driven threshold. The
	// overlap threshold is currently derived from the query length alone,
	// so Delta does not influence results yet.
	Delta int
	// K caps the number of returned matches; 0 means DefaultK.
	K int
	// SkipPrefilter disables the q-gram candidate stage. No full-scan
	// fallback exists, so a skipped prefilter yields no matches; the flag
	// is an extension point, not a slow path.
	SkipPrefilter bool
	// ChannelID selects the geofence set to restrict results to. An
	// unknown or empty channel applies no restriction.
	ChannelID string
}

// Match is one ranked search result. Lower scores are closer matches.
type Match struct {
	Name      string           `json:"name"`
	Latitude  *float64         `json:"latitude"`
	Longitude *float64         `json:"longitude"`
	Category  catalog.Category `json:"category"`
	Score     float64          `json:"score"`
}

// Index is the contract shared by all record-type indexes. Variants that do
// not support an operation return ErrNotSupported rather than silently doing
// nothing.
type Index interface {
	BuildFromFile(path string) error
	BuildFromRows(rows []catalog.Row) error
	PostingList(qgram string) ([]int, error)
	FindMatches(q Query) ([]Match, error)
}

// PointIndex is the point-of-interest implementation of Index.
type PointIndex struct {
	method      scoring.Method
	store       *store.RecordStore
	inv         *inverted.Index
	fences      *geofence.Registry
	onFenceDrop func()
	built       bool
	logger      *slog.Logger
}

// Option configures a PointIndex at construction.
type Option func(*PointIndex)

// WithScoring overrides the default scoring method. The value is validated
// lazily: an unknown method surfaces on the first FindMatches call.
func WithScoring(method scoring.Method) Option {
	return func(idx *PointIndex) {
		idx.method = method
	}
}

// WithGeofences attaches a channel-to-geofence registry used to restrict
// matches geographically per channel.
func WithGeofences(registry *geofence.Registry) Option {
	return func(idx *PointIndex) {
		idx.fences = registry
	}
}

// WithFenceDrops registers a callback invoked once per candidate discarded
// by a geofence, e.g. a metrics counter increment.
func WithFenceDrops(onDrop func()) Option {
	return func(idx *PointIndex) {
		idx.onFenceDrop = onDrop
	}
}

// NewPointIndex creates an empty index for q-grams of length q. The index
// must be populated by exactly one Build call before it is queried.
func NewPointIndex(q int, opts ...Option) *PointIndex {
	idx := &PointIndex{
		method: scoring.DefaultMethod,
		store:  store.New(),
		inv:    inverted.New(q),
		logger: logger.WithComponent("qgram-index"),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// BuildFromFile populates the index from a CSV catalog export. Malformed or
// short rows are recovered by defaulting the absent fields; I/O failures are
// returned unmodified.
func (idx *PointIndex) BuildFromFile(path string) error {
	rows, err := catalog.ReadFile(path)
	if err != nil {
		return err
	}
	return idx.BuildFromRows(rows)
}

// BuildFromRows populates the index from in-memory catalog rows. Building an
// already-built index returns ErrAlreadyBuilt; construct a fresh instance to
// reindex.
func (idx *PointIndex) BuildFromRows(rows []catalog.Row) error {
	if idx.built {
		return errors.ErrAlreadyBuilt
	}
	for _, row := range rows {
		category := row.Category
		if category != catalog.CategoryGym && category != catalog.CategoryPokestop {
			category = catalog.CategoryUnknown
		}
		id := idx.store.Append(row.Name, row.Latitude, row.Longitude, category)
		rec, err := idx.store.Get(id)
		if err != nil {
			return fmt.Errorf("reading back record %d: %w", id, err)
		}
		idx.inv.Add(id, rec.NormalizedWord)
	}
	idx.built = true
	idx.logger.Info("index built",
		"records", idx.store.Len(),
		"qgrams", idx.inv.Terms(),
		"q", idx.inv.Q(),
	)
	return nil
}

// PostingList returns the record ids whose normalised name contains the
// given q-gram, empty for an unseen q-gram.
func (idx *PointIndex) PostingList(qgram string) ([]int, error) {
	return idx.inv.PostingList(qgram), nil
}

// Len returns the number of indexed records.
func (idx *PointIndex) Len() int {
	return idx.store.Len()
}

// Q returns the q-gram length the index was built with.
func (idx *PointIndex) Q() int {
	return idx.inv.Q()
}

type scoredRecord struct {
	record store.Record
	score  float64
}

// FindMatches returns the top-K records ranked ascending by alignment score.
// Candidates are prefiltered by q-gram overlap: a candidate survives when its
// overlap count reaches floor((len(query)+q-1)/4). Ties are broken by
// ascending record id, which keeps results deterministic across rebuilds of
// the same catalog.
func (idx *PointIndex) FindMatches(q Query) ([]Match, error) {
	k := q.K
	if k <= 0 {
		k = DefaultK
	}
	if q.SkipPrefilter {
		return []Match{}, nil
	}

	grams := tokenizer.QGrams(q.Text, idx.inv.Q())
	lists := make([][]int, len(grams))
	for i, gram := range grams {
		lists[i] = idx.inv.PostingList(gram)
	}
	candidates := merger.Merge(lists)
	threshold := (len([]rune(q.Text)) + idx.inv.Q() - 1) / 4

	fence := idx.lookupFence(q.ChannelID)
	scored := make([]scoredRecord, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Count < threshold {
			continue
		}
		rec, err := idx.store.Get(cand.RecordID)
		if err != nil {
			return nil, fmt.Errorf("resolving candidate: %w", err)
		}
		score, err := scoring.Score(idx.method, q.Text, rec.NormalizedWord)
		if err != nil {
			return nil, err
		}
		if fence != nil && !recordInFence(fence, rec) {
			if idx.onFenceDrop != nil {
				idx.onFenceDrop()
			}
			continue
		}
		scored = append(scored, scoredRecord{record: rec, score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score < scored[j].score
		}
		return scored[i].record.ID < scored[j].record.ID
	})
	if len(scored) > k {
		scored = scored[:k]
	}

	matches := make([]Match, len(scored))
	for i, s := range scored {
		matches[i] = Match{
			Name:      s.record.DisplayName,
			Latitude:  s.record.Latitude,
			Longitude: s.record.Longitude,
			Category:  s.record.Category,
			Score:     s.score,
		}
	}
	return matches, nil
}

func (idx *PointIndex) lookupFence(channelID string) geofence.Fence {
	if idx.fences == nil || channelID == "" {
		return nil
	}
	return idx.fences.Lookup(channelID)
}

// recordInFence reports whether the record lies inside any fence of the set.
// Records without coordinates cannot be located and are excluded whenever a
// fence applies.
func recordInFence(fence geofence.Fence, rec store.Record) bool {
	if rec.Latitude == nil || rec.Longitude == nil {
		return false
	}
	return fence.IsInAnyGeofence(*rec.Latitude, *rec.Longitude)
}
