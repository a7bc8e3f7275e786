package store

import (
	"errors"
	"testing"

	"github.com/tobiaswidmer/poisearch/internal/catalog"
	pkgerrors "github.com/tobiaswidmer/poisearch/pkg/errors"
)

func TestAppendAssignsDenseIDs(t *testing.T) {
	s := New()
	ids := []int{
		s.Append("Ballarena", catalog.Coord(48.0), catalog.Coord(7.8), catalog.CategoryGym),
		s.Append("Balena Park", nil, nil, catalog.CategoryPokestop),
		s.Append("Old Fountain", catalog.Coord(48.1), nil, catalog.CategoryUnknown),
	}
	for i, id := range ids {
		if id != i {
			t.Errorf("id %d assigned as %d, want insertion order", i, id)
		}
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
}

func TestAppendNormalizes(t *testing.T) {
	s := New()
	id := s.Append("St. Mary's Church", nil, nil, catalog.CategoryGym)
	rec, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.DisplayName != "St. Mary's Church" {
		t.Errorf("display name mutated: %q", rec.DisplayName)
	}
	if rec.NormalizedWord != "stmaryschurch" {
		t.Errorf("normalized word = %q, want stmaryschurch", rec.NormalizedWord)
	}
}

func TestGetOutOfRange(t *testing.T) {
	s := New()
	s.Append("Solo", nil, nil, catalog.CategoryUnknown)
	for _, id := range []int{-1, 1, 100} {
		if _, err := s.Get(id); !errors.Is(err, pkgerrors.ErrOutOfRange) {
			t.Errorf("Get(%d) err = %v, want ErrOutOfRange", id, err)
		}
	}
	if _, err := s.Get(0); err != nil {
		t.Errorf("Get(0) err = %v, want nil", err)
	}
}

func TestPartialRowsAccepted(t *testing.T) {
	s := New()
	id := s.Append("No Coordinates", nil, nil, catalog.CategoryUnknown)
	rec, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Latitude != nil || rec.Longitude != nil {
		t.Errorf("coordinates = (%v, %v), want nil", rec.Latitude, rec.Longitude)
	}
	if rec.Category != catalog.CategoryUnknown {
		t.Errorf("category = %v, want Unknown", rec.Category)
	}
}
