package index

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tobiaswidmer/poisearch/internal/catalog"
	"github.com/tobiaswidmer/poisearch/internal/geofence"
	"github.com/tobiaswidmer/poisearch/internal/index/scoring"
	pkgerrors "github.com/tobiaswidmer/poisearch/pkg/errors"
)

func poiRows() []catalog.Row {
	return []catalog.Row{
		{Name: "Ballarena", Latitude: catalog.Coord(0), Longitude: catalog.Coord(0), Category: catalog.CategoryGym},
		{Name: "Balena Park", Latitude: catalog.Coord(1), Longitude: catalog.Coord(1), Category: catalog.CategoryPokestop},
	}
}

func buildPOI(t *testing.T, opts ...Option) *PointIndex {
	t.Helper()
	idx := NewPointIndex(3, opts...)
	if err := idx.BuildFromRows(poiRows()); err != nil {
		t.Fatalf("BuildFromRows: %v", err)
	}
	return idx
}

func TestFindMatchesRanksExactNameFirst(t *testing.T) {
	idx := buildPOI(t)
	matches, err := idx.FindMatches(Query{Text: "ballarena", K: 5})
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(matches), matches)
	}
	if matches[0].Name != "Ballarena" {
		t.Errorf("top match = %q, want Ballarena", matches[0].Name)
	}
	if matches[0].Score >= matches[1].Score {
		t.Errorf("scores not ascending: %v then %v", matches[0].Score, matches[1].Score)
	}
	if matches[0].Category != catalog.CategoryGym {
		t.Errorf("top match category = %v, want Gym", matches[0].Category)
	}
}

func TestFindMatchesTruncatesToK(t *testing.T) {
	idx := buildPOI(t)
	matches, err := idx.FindMatches(Query{Text: "ballarena", K: 1})
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(matches) != 1 || matches[0].Name != "Ballarena" {
		t.Errorf("matches = %+v, want single Ballarena", matches)
	}
}

func TestFindMatchesKPrefixMonotonic(t *testing.T) {
	// Results for k must be a prefix of results for any larger k.
	idx := buildPOI(t)
	full, err := idx.FindMatches(Query{Text: "balena", K: 10})
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	for k := 1; k <= len(full); k++ {
		part, err := idx.FindMatches(Query{Text: "balena", K: k})
		if err != nil {
			t.Fatalf("FindMatches k=%d: %v", k, err)
		}
		if !reflect.DeepEqual(part, full[:len(part)]) {
			t.Errorf("k=%d results %+v are not a prefix of %+v", k, part, full)
		}
	}
}

func TestFindMatchesDefaultK(t *testing.T) {
	idx := buildPOI(t)
	matches, err := idx.FindMatches(Query{Text: "balena"})
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(matches) > DefaultK {
		t.Errorf("got %d matches, want at most %d", len(matches), DefaultK)
	}
}

func TestFindMatchesSkipPrefilterYieldsEmpty(t *testing.T) {
	idx := buildPOI(t)
	matches, err := idx.FindMatches(Query{Text: "ballarena", SkipPrefilter: true})
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if matches == nil || len(matches) != 0 {
		t.Errorf("matches = %v, want empty non-nil slice", matches)
	}
}

func TestFindMatchesDeterministicAcrossRebuilds(t *testing.T) {
	first, err := buildPOI(t).FindMatches(Query{Text: "balena", K: 5})
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := buildPOI(t).FindMatches(Query{Text: "balena", K: 5})
		if err != nil {
			t.Fatalf("FindMatches: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("rebuild changed results: %+v vs %+v", first, again)
		}
	}
}

func TestFindMatchesGeofence(t *testing.T) {
	// A fence around the origin includes Ballarena (0,0) and excludes
	// Balena Park (1,1).
	fence := &geofence.Set{Polygons: []geofence.Polygon{{
		Name: "origin",
		Points: []geofence.Point{
			{Lat: -0.5, Lon: -0.5},
			{Lat: -0.5, Lon: 0.5},
			{Lat: 0.5, Lon: 0.5},
			{Lat: 0.5, Lon: -0.5},
		},
	}}}
	registry := geofence.NewRegistry()
	registry.Register("channel-42", fence)
	idx := buildPOI(t, WithGeofences(registry))

	matches, err := idx.FindMatches(Query{Text: "balena", K: 5, ChannelID: "channel-42"})
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	for _, m := range matches {
		if m.Name == "Balena Park" {
			t.Errorf("Balena Park returned despite fence: %+v", matches)
		}
	}

	// A channel without a registered fence applies no restriction.
	unrestricted, err := idx.FindMatches(Query{Text: "balena", K: 5, ChannelID: "other-channel"})
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(unrestricted) != 2 {
		t.Errorf("unrestricted channel got %d matches, want 2", len(unrestricted))
	}
}

func TestFindMatchesCountsFenceDrops(t *testing.T) {
	fence := &geofence.Set{Polygons: []geofence.Polygon{{
		Name: "origin",
		Points: []geofence.Point{
			{Lat: -0.5, Lon: -0.5},
			{Lat: -0.5, Lon: 0.5},
			{Lat: 0.5, Lon: 0.5},
			{Lat: 0.5, Lon: -0.5},
		},
	}}}
	registry := geofence.NewRegistry()
	registry.Register("channel-42", fence)

	drops := 0
	idx := buildPOI(t, WithGeofences(registry), WithFenceDrops(func() { drops++ }))

	// Balena Park (1,1) falls outside the origin fence.
	if _, err := idx.FindMatches(Query{Text: "balena", K: 5, ChannelID: "channel-42"}); err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if drops != 1 {
		t.Errorf("drops = %d, want 1", drops)
	}

	// No fence for the channel, nothing to drop.
	if _, err := idx.FindMatches(Query{Text: "balena", K: 5, ChannelID: "other-channel"}); err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if drops != 1 {
		t.Errorf("drops = %d after unrestricted query, want still 1", drops)
	}
}

func TestFindMatchesGeofenceExcludesRecordsWithoutCoordinates(t *testing.T) {
	fence := &geofence.Set{Polygons: []geofence.Polygon{{
		Name: "everywhere",
		Points: []geofence.Point{
			{Lat: -90, Lon: -180},
			{Lat: -90, Lon: 180},
			{Lat: 90, Lon: 180},
			{Lat: 90, Lon: -180},
		},
	}}}
	registry := geofence.NewRegistry()
	registry.Register("c", fence)
	idx := NewPointIndex(3, WithGeofences(registry))
	if err := idx.BuildFromRows([]catalog.Row{{Name: "Nowhere Gym", Category: catalog.CategoryGym}}); err != nil {
		t.Fatalf("BuildFromRows: %v", err)
	}
	matches, err := idx.FindMatches(Query{Text: "nowheregym", K: 5, ChannelID: "c"})
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("coordinate-less record passed fence: %+v", matches)
	}
}

func TestFindMatchesUnknownScoringMethodLazy(t *testing.T) {
	// An unknown method is accepted at construction and only rejected on
	// the first query.
	idx := NewPointIndex(3, WithScoring(scoring.Method("soundex")))
	if err := idx.BuildFromRows(poiRows()); err != nil {
		t.Fatalf("BuildFromRows: %v", err)
	}
	_, err := idx.FindMatches(Query{Text: "ballarena"})
	if !errors.Is(err, pkgerrors.ErrUnsupportedScoring) {
		t.Errorf("err = %v, want ErrUnsupportedScoring", err)
	}
}

func TestFindMatchesScoringMethods(t *testing.T) {
	for _, method := range []scoring.Method{scoring.Levenshtein, scoring.NeedlemanWunsch, scoring.AffineGaps} {
		t.Run(string(method), func(t *testing.T) {
			idx := buildPOI(t, WithScoring(method))
			matches, err := idx.FindMatches(Query{Text: "ballarena", K: 5})
			if err != nil {
				t.Fatalf("FindMatches: %v", err)
			}
			if len(matches) == 0 || matches[0].Name != "Ballarena" {
				t.Errorf("method %s: matches = %+v, want Ballarena first", method, matches)
			}
		})
	}
}

func TestBuildTwiceFails(t *testing.T) {
	idx := buildPOI(t)
	if err := idx.BuildFromRows(poiRows()); !errors.Is(err, pkgerrors.ErrAlreadyBuilt) {
		t.Errorf("second build err = %v, want ErrAlreadyBuilt", err)
	}
}

func TestBuildNormalizesForeignCategories(t *testing.T) {
	idx := NewPointIndex(3)
	err := idx.BuildFromRows([]catalog.Row{{Name: "Mystery Spot", Category: catalog.Category(99)}})
	if err != nil {
		t.Fatalf("BuildFromRows: %v", err)
	}
	matches, err := idx.FindMatches(Query{Text: "mysteryspot", K: 1})
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(matches) != 1 || matches[0].Category != catalog.CategoryUnknown {
		t.Errorf("matches = %+v, want Unknown category", matches)
	}
}

func TestBuildFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	content := "name,latitude,longitude,category\nBallarena,0,0,Gym\nBalena Park,1,1,Pokestop\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	idx := NewPointIndex(3)
	if err := idx.BuildFromFile(path); err != nil {
		t.Fatalf("BuildFromFile: %v", err)
	}
	if idx.Len() != 2 {
		t.Errorf("Len() = %d, want 2", idx.Len())
	}
	matches, err := idx.FindMatches(Query{Text: "ballarena", K: 5})
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(matches) == 0 || matches[0].Name != "Ballarena" {
		t.Errorf("matches = %+v, want Ballarena first", matches)
	}
}

func TestBuildFromFilePropagatesIOError(t *testing.T) {
	idx := NewPointIndex(3)
	if err := idx.BuildFromFile(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("expected error for missing catalog file")
	}
}

func TestPostingListMultiplicityBiasesOverlap(t *testing.T) {
	idx := NewPointIndex(2)
	if err := idx.BuildFromRows([]catalog.Row{{Name: "banana"}}); err != nil {
		t.Fatalf("BuildFromRows: %v", err)
	}
	list, err := idx.PostingList("an")
	if err != nil {
		t.Fatalf("PostingList: %v", err)
	}
	if len(list) != 2 {
		t.Errorf(`posting list for "an" = %v, want the record twice`, list)
	}
}

func TestQuestIndexNotSupported(t *testing.T) {
	quest := NewQuestIndex()
	if err := quest.BuildFromFile("x"); !errors.Is(err, pkgerrors.ErrNotSupported) {
		t.Errorf("BuildFromFile err = %v, want ErrNotSupported", err)
	}
	if err := quest.BuildFromRows(nil); !errors.Is(err, pkgerrors.ErrNotSupported) {
		t.Errorf("BuildFromRows err = %v, want ErrNotSupported", err)
	}
	if _, err := quest.PostingList("abc"); !errors.Is(err, pkgerrors.ErrNotSupported) {
		t.Errorf("PostingList err = %v, want ErrNotSupported", err)
	}
	if _, err := quest.FindMatches(Query{Text: "q"}); !errors.Is(err, pkgerrors.ErrNotSupported) {
		t.Errorf("FindMatches err = %v, want ErrNotSupported", err)
	}
}
