package index

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/m-mizutani/floorbot/pkg/model"
)

// Index stores embedded fragments and answers nearest-neighbour queries.
// Search fails with model.ErrNotInitialized while the index is empty.
type Index interface {
	// Add stores fragments; re-adding an id overwrites the previous fragment
	Add(ctx context.Context, fragments ...*model.Fragment) error

	// Search returns up to k fragments nearest to query. An empty kind
	// searches all kinds.
	Search(ctx context.Context, query []float32, kind model.FragmentKind, k int) ([]*model.RetrievalResult, error)

	// Fragments returns every stored fragment
	Fragments(ctx context.Context) ([]*model.Fragment, error)
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when the vectors differ in length or either is zero
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// clampSimilarity maps a raw similarity into [0,1]
func clampSimilarity(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// compareResults orders by similarity descending, then page, chunk index and
// file path ascending. The fragment id settles anything left.
func compareResults(a, b *model.RetrievalResult) int {
	if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
		return c
	}
	fa, fb := a.Fragment, b.Fragment
	if c := cmp.Compare(fa.Page(), fb.Page()); c != 0 {
		return c
	}
	if c := cmp.Compare(fa.Kind, fb.Kind); c != 0 {
		return c
	}
	if c := cmp.Compare(fa.ChunkIndex(), fb.ChunkIndex()); c != 0 {
		return c
	}
	if c := cmp.Compare(fa.FilePath(), fb.FilePath()); c != 0 {
		return c
	}
	return cmp.Compare(fa.ID, fb.ID)
}

// SortResults sorts results in the deterministic search order
func SortResults(results []*model.RetrievalResult) {
	slices.SortFunc(results, compareResults)
}
