package retrieval

import (
	"context"

	"github.com/m-mizutani/floorbot/pkg/adapter"
	"github.com/m-mizutani/floorbot/pkg/index"
	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/floorbot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultDocumentK       = 5
	DefaultImageK          = 3
	DefaultSimilarityFloor = 0.7
)

// Result holds the documents that cleared the similarity floor and the
// image candidates. Empty Docs is a valid outcome meaning no relevant
// documentation was found.
type Result struct {
	Docs   []*model.RetrievalResult
	Images []*model.RetrievalResult
}

// Retriever searches documents and images for one query
type Retriever struct {
	index    index.Index
	embedder adapter.Embedder

	docK   int
	imageK int
	floor  float64
}

type Option func(*Retriever)

func WithDocumentK(k int) Option {
	return func(r *Retriever) {
		r.docK = k
	}
}

func WithImageK(k int) Option {
	return func(r *Retriever) {
		r.imageK = k
	}
}

// WithSimilarityFloor sets the minimum similarity for document results
func WithSimilarityFloor(floor float64) Option {
	return func(r *Retriever) {
		r.floor = floor
	}
}

func New(idx index.Index, embedder adapter.Embedder, opts ...Option) *Retriever {
	r := &Retriever{
		index:    idx,
		embedder: embedder,
		docK:     DefaultDocumentK,
		imageK:   DefaultImageK,
		floor:    DefaultSimilarityFloor,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve embeds query once and runs the document and image searches
func (r *Retriever) Retrieve(ctx context.Context, query string) (*Result, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(model.ErrUpstreamUnavailable, "failed to embed query", goerr.V("cause", err))
	}

	docs, err := r.index.Search(ctx, vec, model.FragmentKindDocument, r.docK)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search documents")
	}

	images, err := r.index.Search(ctx, vec, model.FragmentKindImage, r.imageK)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search images")
	}

	result := &Result{
		Docs:   []*model.RetrievalResult{},
		Images: []*model.RetrievalResult{},
	}
	for _, doc := range wellFormed(ctx, docs) {
		if doc.Similarity >= r.floor {
			result.Docs = append(result.Docs, doc)
		}
	}
	result.Images = append(result.Images, wellFormed(ctx, images)...)

	return result, nil
}

// wellFormed drops results whose fragment metadata cannot be ranked or cited
func wellFormed(ctx context.Context, results []*model.RetrievalResult) []*model.RetrievalResult {
	var valid []*model.RetrievalResult
	for _, r := range results {
		if r == nil || r.Fragment == nil {
			continue
		}
		if err := r.Fragment.Validate(); err != nil {
			logging.From(ctx).Warn("skip malformed fragment", "error", err)
			continue
		}
		valid = append(valid, r)
	}
	return valid
}
