package benchmark

import (
	"testing"

	"github.com/tobiaswidmer/poisearch/internal/index/scoring"
)

const (
	benchQuery = "stadtgarten freiburg"
	benchWord  = "stadtgartenfreiburgnord"
)

// BenchmarkScore compares the three alignment scorers on a realistic
// query/name pair.
func BenchmarkScore(b *testing.B) {
	for _, method := range []scoring.Method{scoring.Levenshtein, scoring.NeedlemanWunsch, scoring.AffineGaps} {
		b.Run(string(method), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := scoring.Score(method, benchQuery, benchWord); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkComputePED measures bounded prefix edit distance, whose truncated
// matrix should stay cheap even against long names.
func BenchmarkComputePED(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = scoring.ComputePED("stadtg", benchWord, 2)
	}
}
