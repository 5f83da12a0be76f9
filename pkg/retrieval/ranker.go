package retrieval

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/m-mizutani/floorbot/pkg/model"
)

const (
	pageMatchWeight    = 10
	bedroomMatchWeight = 5
	poolMatchWeight    = 3
)

var bedroomPattern = regexp.MustCompile(`(?i)\b(\d+)\s*-?\s*(?:bedrooms?|br|beds?)\b`)

// BedroomsInQuery returns the first integer directly preceding
// "bedroom", "br" or "bed"
func BedroomsInQuery(query string) (int, bool) {
	m := bedroomPattern.FindStringSubmatch(query)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// PoolRequired reports whether the query asks for a pool
func PoolRequired(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(q, "pool") || strings.Contains(q, "swimming")
}

// Rank scores images against the retrieved documents and the query. The
// score only ever adds weights: page overlap 10, bedroom match 5, pool
// match 3. Ties fall back to similarity, then file path.
func Rank(query string, docs, images []*model.RetrievalResult) []*model.RankedImage {
	pages := make(map[int]struct{}, len(docs))
	for _, d := range docs {
		pages[d.Fragment.Page()] = struct{}{}
	}
	bedrooms, hasBedrooms := BedroomsInQuery(query)
	pool := PoolRequired(query)

	ranked := make([]*model.RankedImage, 0, len(images))
	for _, img := range images {
		meta := img.Fragment.Image
		if meta == nil {
			continue
		}

		score := 0
		if _, ok := pages[meta.Page]; ok {
			score += pageMatchWeight
		}
		if hasBedrooms && meta.BedroomCount != nil && *meta.BedroomCount == bedrooms {
			score += bedroomMatchWeight
		}
		if pool && meta.HasPool != nil && *meta.HasPool {
			score += poolMatchWeight
		}

		ranked = append(ranked, &model.RankedImage{
			RetrievalResult: img,
			RelevanceScore:  float64(score),
		})
	}

	slices.SortStableFunc(ranked, func(a, b *model.RankedImage) int {
		if c := cmp.Compare(b.RelevanceScore, a.RelevanceScore); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(a.Fragment.FilePath(), b.Fragment.FilePath())
	})

	return ranked
}
