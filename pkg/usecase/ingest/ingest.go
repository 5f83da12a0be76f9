package ingest

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/m-mizutani/floorbot/pkg/adapter"
	"github.com/m-mizutani/floorbot/pkg/catalog"
	"github.com/m-mizutani/floorbot/pkg/index"
	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/floorbot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// UseCase turns a manifest into embedded fragments and adds them to an
// index
type UseCase struct {
	embedder adapter.Embedder
	index    index.Index
	catalog  *catalog.Catalog

	chunkSize    int
	chunkOverlap int
}

type Option func(*UseCase)

func WithCatalog(cat *catalog.Catalog) Option {
	return func(uc *UseCase) {
		uc.catalog = cat
	}
}

func WithChunkSize(size, overlap int) Option {
	return func(uc *UseCase) {
		uc.chunkSize = size
		uc.chunkOverlap = overlap
	}
}

func New(embedder adapter.Embedder, idx index.Index, opts ...Option) *UseCase {
	uc := &UseCase{
		embedder:     embedder,
		index:        idx,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.catalog == nil {
		uc.catalog = catalog.Default()
	}
	return uc
}

// Report summarizes one ingestion run
type Report struct {
	Fragments []*model.Fragment
	Documents int
	Images    int
	Skipped   []string
}

// Run builds document chunks and image descriptors from the manifest,
// embeds them and adds them to the index in one batch
func (uc *UseCase) Run(ctx context.Context, manifest *Manifest) (*Report, error) {
	logger := logging.From(ctx)
	report := &Report{}

	for _, page := range manifest.Pages {
		for i, chunk := range Split(page.Text, uc.chunkSize, uc.chunkOverlap) {
			report.Fragments = append(report.Fragments, &model.Fragment{
				ID:       model.FragmentID(fmt.Sprintf("doc-p%d-c%d", page.Page, i)),
				Kind:     model.FragmentKindDocument,
				Text:     chunk,
				Document: &model.DocumentMeta{Page: page.Page, ChunkIndex: i},
			})
			report.Documents++
		}
	}

	paths, err := manifest.ImagePaths()
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		f, err := uc.imageFragment(path)
		if err != nil {
			logger.Warn("skip image", "path", path, "error", err)
			report.Skipped = append(report.Skipped, path)
			continue
		}
		report.Fragments = append(report.Fragments, f)
		report.Images++
	}

	for _, f := range report.Fragments {
		vec, err := uc.embedder.Embed(ctx, f.Text)
		if err != nil {
			return nil, goerr.Wrap(model.ErrUpstreamUnavailable, "failed to embed fragment",
				goerr.V("id", f.ID),
				goerr.V("cause", err))
		}
		f.Embedding = vec
	}

	if err := uc.index.Add(ctx, report.Fragments...); err != nil {
		return nil, goerr.Wrap(err, "failed to add fragments to index")
	}

	logger.Info("ingestion completed",
		"documents", report.Documents,
		"images", report.Images,
		"skipped", len(report.Skipped),
	)
	return report, nil
}

// imageFragment describes a floorplan image using the catalog page it was
// rendered from
func (uc *UseCase) imageFragment(path string) (*model.Fragment, error) {
	page, ok := catalog.PageFromFilename(path)
	if !ok {
		return nil, goerr.Wrap(model.ErrMalformedFragmentMetadata, "image file name has no page number", goerr.V("path", path))
	}

	meta := &model.ImageMeta{
		Page:     page,
		FilePath: path,
	}
	description := fmt.Sprintf("Floor plan from page %d", page)
	if info, ok := uc.catalog.PageInfo(page); ok {
		description = info.Description
		bedrooms, pool := info.Bedrooms, info.Pool
		meta.BedroomCount = &bedrooms
		meta.HasPool = &pool
	}

	f := &model.Fragment{
		ID:    model.FragmentID("img-" + filepath.Base(path)),
		Kind:  model.FragmentKindImage,
		Text:  description,
		Image: meta,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}
