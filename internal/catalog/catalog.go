// Package catalog defines the point-of-interest rows consumed by the search
// index and the ingestion paths that produce them: a pipe-quoted CSV export
// and a relational pull from PostgreSQL.
package catalog

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Category classifies a point of interest.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryGym
	CategoryPokestop
)

func (c Category) String() string {
	switch c {
	case CategoryGym:
		return "Gym"
	case CategoryPokestop:
		return "Pokestop"
	default:
		return "Unknown"
	}
}

// MarshalJSON renders the category by name, matching the CSV literals.
func (c Category) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(c.String())), nil
}

// UnmarshalJSON accepts the same names MarshalJSON emits; unrecognised
// values become Unknown.
func (c *Category) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("category must be a string: %w", err)
	}
	*c = ParseCategory(s)
	return nil
}

// ParseCategory maps the CSV literal values to a Category. Anything that is
// not exactly "Gym" or "Pokestop" is Unknown.
func ParseCategory(s string) Category {
	switch s {
	case "Gym":
		return CategoryGym
	case "Pokestop":
		return CategoryPokestop
	default:
		return CategoryUnknown
	}
}

// Row is one catalog entry. Latitude and Longitude are nil when the source
// column is absent or not numeric; Category defaults to Unknown. Upstream
// exports are not guaranteed to carry all four columns, so partial rows are
// accepted by design.
type Row struct {
	Name      string
	Latitude  *float64
	Longitude *float64
	Category  Category
}

// ReadFile loads catalog rows from a CSV export: comma-delimited, fields
// optionally quoted with '|', UTF-8 with lossy replacement of undecodable
// bytes, first line treated as a header and skipped. Rows shorter than four
// columns fill the missing trailing fields with nil/Unknown.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog file: %w", err)
	}
	defer f.Close()

	var rows []Row
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		line := strings.ToValidUTF8(scanner.Text(), "�")
		if first {
			first = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, parseLine(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog file %s: %w", path, err)
	}
	return rows, nil
}

// parseLine splits one CSV line on commas, honouring '|' as the quote
// character. encoding/csv cannot be configured away from '"' quoting, so the
// split is done here.
func parseLine(line string) Row {
	fields := splitFields(line)
	row := Row{Category: CategoryUnknown}
	if len(fields) > 0 {
		row.Name = strings.TrimSpace(fields[0])
	}
	if len(fields) > 1 {
		row.Latitude = parseCoordinate(fields[1])
	}
	if len(fields) > 2 {
		row.Longitude = parseCoordinate(fields[2])
	}
	if len(fields) > 3 {
		row.Category = ParseCategory(strings.TrimSpace(fields[3]))
	}
	return row
}

func splitFields(line string) []string {
	var fields []string
	var b strings.Builder
	quoted := false
	for _, r := range line {
		switch {
		case r == '|':
			quoted = !quoted
		case r == ',' && !quoted:
			fields = append(fields, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	fields = append(fields, b.String())
	return fields
}

func parseCoordinate(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Coord is a convenience constructor for literal rows in tests and seeds.
func Coord(v float64) *float64 {
	return &v
}
