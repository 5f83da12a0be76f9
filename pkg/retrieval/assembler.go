package retrieval

import (
	"fmt"
	"slices"
	"strings"

	"github.com/m-mizutani/floorbot/pkg/index"
	"github.com/m-mizutani/floorbot/pkg/model"
)

// DefaultMaxImages is the number of ranked images returned with a turn
const DefaultMaxImages = 3

// VillaTyper names the villa type a fragment text describes
type VillaTyper func(text string) string

// Context is the grounding input for one generation call
type Context struct {
	Block     string
	Docs      []*model.RetrievalResult
	Citations []*model.Citation
	Images    []*model.RankedImage
}

// HasDocuments reports whether any document cleared the similarity floor
func (c *Context) HasDocuments() bool {
	return len(c.Docs) > 0
}

type fragmentKey struct {
	page  int
	chunk int
}

type citationKey struct {
	kind model.FragmentKind
	page int
}

// Assemble deduplicates docs by page and chunk, serializes them in
// similarity order with a citation header each, and keeps the first
// maxImages ranked images
func Assemble(docs []*model.RetrievalResult, images []*model.RankedImage, villaType VillaTyper, maxImages int) *Context {
	sorted := slices.Clone(docs)
	index.SortResults(sorted)

	result := &Context{
		Docs:      []*model.RetrievalResult{},
		Citations: []*model.Citation{},
		Images:    []*model.RankedImage{},
	}

	seen := make(map[fragmentKey]struct{})
	cited := make(map[citationKey]struct{})
	var blocks []string
	for _, doc := range sorted {
		f := doc.Fragment
		key := fragmentKey{page: f.Page(), chunk: f.ChunkIndex()}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result.Docs = append(result.Docs, doc)

		blocks = append(blocks, fmt.Sprintf("Source: %s, Page: %d\n%s", f.Kind, f.Page(), f.Text))

		ck := citationKey{kind: f.Kind, page: f.Page()}
		if _, ok := cited[ck]; ok {
			continue
		}
		cited[ck] = struct{}{}

		citation := &model.Citation{
			Source: string(f.Kind),
			Page:   f.Page(),
		}
		if villaType != nil {
			citation.VillaType = villaType(f.Text)
		}
		result.Citations = append(result.Citations, citation)
	}
	result.Block = strings.Join(blocks, "\n\n")

	if maxImages > 0 && len(images) > maxImages {
		images = images[:maxImages]
	}
	result.Images = append(result.Images, images...)

	return result
}

// ImageRefs converts ranked images to the response payload shape
func ImageRefs(images []*model.RankedImage) []*model.ImageRef {
	refs := make([]*model.ImageRef, 0, len(images))
	for _, img := range images {
		refs = append(refs, &model.ImageRef{
			Path:        img.Fragment.FilePath(),
			Description: img.Fragment.Text,
			Relevance:   img.RelevanceScore,
		})
	}
	return refs
}
