// Package scoring ranks candidate records by sequence alignment. Three
// interchangeable dynamic-programming scorers are provided — plain edit
// distance, a gap-penalised Needleman-Wunsch variant and an affine-gap
// scorer — plus a bounded prefix edit distance. Lower scores mean closer
// matches. All scorers operate on runes and are case-sensitive;
// normalisation happens upstream.
package scoring

import (
	"fmt"

	"github.com/tobiaswidmer/poisearch/pkg/errors"
)

// Method selects the alignment scorer. The zero value is not valid; unknown
// methods are rejected by Score at query time, not at configuration time.
type Method string

const (
	Levenshtein     Method = "levenshtein"
	NeedlemanWunsch Method = "needleman_wunsch"
	AffineGaps      Method = "affine_gaps"
)

// DefaultMethod is the production default.
const DefaultMethod = AffineGaps

// Needleman-Wunsch variant costs.
const (
	nwMatch      = -1.0
	nwMismatch   = 1.0
	nwGapPenalty = 1.0
	nwGapOpening = 3.0
)

// Affine-gap costs: a larger match reward and a cheap gap extension, so long
// runs of insertions are preferred over scattered mismatches.
const (
	affineMatch      = -3.0
	affineMismatch   = 1.0
	affineGapPenalty = 0.5
	affineGapOpening = 3.0
)

// Score computes the alignment score of query against word using the given
// method. An unrecognised method returns ErrUnsupportedScoring.
func Score(method Method, query, word string) (float64, error) {
	switch method {
	case Levenshtein:
		return LevenshteinDistance(query, word), nil
	case NeedlemanWunsch:
		return NeedlemanWunschScore(query, word), nil
	case AffineGaps:
		return AffineGapScore(query, word), nil
	default:
		return 0, fmt.Errorf("%w: %q", errors.ErrUnsupportedScoring, method)
	}
}

// LevenshteinDistance is the classic unit-cost edit distance: match 0,
// mismatch 1, insertion/deletion 1.
func LevenshteinDistance(seq1, seq2 string) float64 {
	a, b := []rune(seq1), []rune(seq2)
	matrix := newMatrix(len(a)+1, len(b)+1)
	for x := 1; x <= len(a); x++ {
		for y := 1; y <= len(b); y++ {
			sub := matrix[x-1][y-1]
			if a[x-1] != b[y-1] {
				sub++
			}
			matrix[x][y] = min3(matrix[x-1][y]+1, sub, matrix[x][y-1]+1)
		}
	}
	return matrix[len(a)][len(b)]
}

// NeedlemanWunschScore rewards matches and charges a one-time opening
// penalty when an alignment transitions into a gap run.
func NeedlemanWunschScore(seq1, seq2 string) float64 {
	return gapAwareScore(seq1, seq2, nwMatch, nwMismatch, nwGapPenalty, nwGapOpening)
}

// AffineGapScore is the production default: opening a gap run costs more
// than extending one, and matches carry a stronger reward.
func AffineGapScore(seq1, seq2 string) float64 {
	return gapAwareScore(seq1, seq2, affineMatch, affineMismatch, affineGapPenalty, affineGapOpening)
}

// gapAwareScore fills the DP matrix in row-major order. The gap-open flag is
// carried across cells in scan order: the opening penalty is charged only on
// the transition into a gap run, and the flag clears on the first cell whose
// chosen value is not a gap extension.
func gapAwareScore(seq1, seq2 string, match, mismatch, gapPenalty, gapOpening float64) float64 {
	a, b := []rune(seq1), []rune(seq2)
	matrix := newMatrix(len(a)+1, len(b)+1)
	gapOpened := false
	for x := 1; x <= len(a); x++ {
		for y := 1; y <= len(b); y++ {
			sub := matrix[x-1][y-1] + mismatch
			if a[x-1] == b[y-1] {
				sub = matrix[x-1][y-1] + match
			}
			v := min3(matrix[x-1][y]+gapPenalty, sub, matrix[x][y-1]+gapPenalty)
			if v == matrix[x-1][y]+gapPenalty || v == matrix[x][y-1]+gapPenalty {
				if !gapOpened {
					v += gapOpening
					gapOpened = true
				}
			} else {
				gapOpened = false
			}
			matrix[x][y] = v
		}
	}
	return matrix[len(a)][len(b)]
}

// ComputePED returns the bounded prefix edit distance between prefix and
// text: the minimum edit distance between prefix and any prefix of text.
// The matrix width is capped at len(prefix)+delta+1 columns, so cost beyond
// delta insertions past the prefix is never computed. The answer is the
// minimum over the last row, not the bottom-right cell — text need not be
// consumed completely.
func ComputePED(prefix, text string, delta int) int {
	p, s := []rune(prefix), []rune(text)
	n := len(p) + 1
	m := len(p) + delta + 1
	if len(s)+1 < m {
		m = len(s) + 1
	}
	matrix := make([][]int, n)
	for i := range matrix {
		matrix[i] = make([]int, m)
		matrix[i][0] = i
	}
	for j := 1; j < m; j++ {
		matrix[0][j] = j
	}
	for i := 1; i < n; i++ {
		for j := 1; j < m; j++ {
			repl := matrix[i-1][j-1]
			if p[i-1] != s[j-1] {
				repl++
			}
			v := repl
			if d := matrix[i][j-1] + 1; d < v {
				v = d
			}
			if d := matrix[i-1][j] + 1; d < v {
				v = d
			}
			matrix[i][j] = v
		}
	}
	ped := matrix[n-1][0]
	for _, v := range matrix[n-1][1:] {
		if v < ped {
			ped = v
		}
	}
	return ped
}

func newMatrix(sizeX, sizeY int) [][]float64 {
	matrix := make([][]float64, sizeX)
	for x := range matrix {
		matrix[x] = make([]float64, sizeY)
		matrix[x][0] = float64(x)
	}
	for y := 1; y < sizeY; y++ {
		matrix[0][y] = float64(y)
	}
	return matrix
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
