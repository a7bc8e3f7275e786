package geofence

import (
	"os"
	"path/filepath"
	"testing"
)

func unitSquare() Polygon {
	return Polygon{
		Name: "unit",
		Points: []Point{
			{Lat: 0, Lon: 0},
			{Lat: 0, Lon: 1},
			{Lat: 1, Lon: 1},
			{Lat: 1, Lon: 0},
		},
	}
}

func TestPolygonContains(t *testing.T) {
	poly := unitSquare()
	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"center", 0.5, 0.5, true},
		{"outside east", 0.5, 2.0, false},
		{"outside north", 2.0, 0.5, false},
		{"outside negative", -0.5, -0.5, false},
		{"near corner inside", 0.01, 0.01, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := poly.Contains(tt.lat, tt.lon); got != tt.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}

func TestPolygonTooFewVertices(t *testing.T) {
	poly := Polygon{Points: []Point{{0, 0}, {1, 1}}}
	if poly.Contains(0.5, 0.5) {
		t.Error("degenerate polygon must contain nothing")
	}
}

func TestSetIsInAnyGeofence(t *testing.T) {
	far := Polygon{Name: "far", Points: []Point{
		{Lat: 10, Lon: 10}, {Lat: 10, Lon: 11}, {Lat: 11, Lon: 11}, {Lat: 11, Lon: 10},
	}}
	set := &Set{Polygons: []Polygon{unitSquare(), far}}
	if !set.IsInAnyGeofence(0.5, 0.5) {
		t.Error("point in first polygon not matched")
	}
	if !set.IsInAnyGeofence(10.5, 10.5) {
		t.Error("point in second polygon not matched")
	}
	if set.IsInAnyGeofence(5, 5) {
		t.Error("point between polygons matched")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fences.txt")
	content := `[Downtown]
47.99, 7.83
47.99, 7.86
48.02, 7.86
48.02, 7.83

[Suburb]
48.05,7.80
48.05,7.82
48.07,7.82
48.07,7.80
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	set, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(set.Polygons) != 2 {
		t.Fatalf("got %d polygons, want 2", len(set.Polygons))
	}
	if set.Polygons[0].Name != "Downtown" || set.Polygons[1].Name != "Suburb" {
		t.Errorf("polygon names = %q, %q", set.Polygons[0].Name, set.Polygons[1].Name)
	}
	if !set.IsInAnyGeofence(48.0, 7.84) {
		t.Error("point inside Downtown not matched")
	}
	if set.IsInAnyGeofence(48.0, 7.90) {
		t.Error("point outside both fences matched")
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	headerless := filepath.Join(dir, "headerless.txt")
	os.WriteFile(headerless, []byte("47.99,7.83\n"), 0o644)
	if _, err := LoadFile(headerless); err == nil {
		t.Error("expected error for vertex before header")
	}

	malformed := filepath.Join(dir, "malformed.txt")
	os.WriteFile(malformed, []byte("[A]\nnot-a-vertex\n"), 0o644)
	if _, err := LoadFile(malformed); err == nil {
		t.Error("expected error for malformed vertex")
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	set := &Set{Polygons: []Polygon{unitSquare()}}
	reg.Register("channel-1", set)

	if got := reg.Lookup("channel-1"); got == nil {
		t.Fatal("registered channel not found")
	}
	// Unknown channel means unrestricted, not an error.
	if got := reg.Lookup("unknown"); got != nil {
		t.Errorf("Lookup(unknown) = %v, want nil", got)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}
