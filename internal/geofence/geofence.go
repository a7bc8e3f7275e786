// Package geofence restricts search results to caller-defined geographic
// boundaries. A fence file holds one or more named polygons; a Registry maps
// channel identifiers to their fence sets. The containment test is a pure
// function over in-memory polygons and never blocks.
package geofence

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Fence answers point-in-boundary queries for one boundary set.
type Fence interface {
	IsInAnyGeofence(lat, lon float64) bool
}

// Point is one polygon vertex.
type Point struct {
	Lat float64
	Lon float64
}

// Polygon is a closed boundary; the last vertex connects back to the first.
type Polygon struct {
	Name   string
	Points []Point
}

// Contains tests the point with a ray cast along constant latitude.
func (p Polygon) Contains(lat, lon float64) bool {
	n := len(p.Points)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := p.Points[i], p.Points[j]
		if (pi.Lon > lon) != (pj.Lon > lon) &&
			lat < (pj.Lat-pi.Lat)*(lon-pi.Lon)/(pj.Lon-pi.Lon)+pi.Lat {
			inside = !inside
		}
	}
	return inside
}

// Set is a Fence made of several polygons.
type Set struct {
	Polygons []Polygon
}

// IsInAnyGeofence reports whether the point lies inside at least one polygon
// of the set.
func (s *Set) IsInAnyGeofence(lat, lon float64) bool {
	for _, poly := range s.Polygons {
		if poly.Contains(lat, lon) {
			return true
		}
	}
	return false
}

// LoadFile parses a fence file: `[name]` lines start a polygon, followed by
// one `lat,lon` vertex per line. Blank lines are ignored.
func LoadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fence file: %w", err)
	}
	defer f.Close()
	set, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing fence file %s: %w", path, err)
	}
	return set, nil
}

func parse(f *os.File) (*Set, error) {
	set := &Set{}
	var current *Polygon
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			if current != nil {
				set.Polygons = append(set.Polygons, *current)
			}
			current = &Polygon{Name: strings.Trim(line, "[]")}
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("line %d: vertex before any [name] header", lineNo)
		}
		lat, lon, err := parseVertex(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		current.Points = append(current.Points, Point{Lat: lat, Lon: lon})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if current != nil {
		set.Polygons = append(set.Polygons, *current)
	}
	return set, nil
}

func parseVertex(line string) (float64, float64, error) {
	parts := strings.SplitN(line, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed vertex %q", line)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("latitude in %q: %w", line, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("longitude in %q: %w", line, err)
	}
	return lat, lon, nil
}

// Registry maps channel identifiers to their fence sets. A channel without
// an entry means "no restriction", never an error.
type Registry struct {
	fences map[string]Fence
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{fences: make(map[string]Fence)}
}

// Register binds a fence set to a channel, replacing any previous binding.
func (r *Registry) Register(channelID string, fence Fence) {
	r.fences[channelID] = fence
}

// Lookup returns the fence set for a channel, or nil when the channel is
// unrestricted.
func (r *Registry) Lookup(channelID string) Fence {
	return r.fences[channelID]
}

// Len returns the number of registered channels.
func (r *Registry) Len() int {
	return len(r.fences)
}
