package model

import (
	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
)

type FragmentKind string

const (
	FragmentKindDocument FragmentKind = "document"
	FragmentKindImage    FragmentKind = "image"
)

// Validate checks if the kind is known
func (k FragmentKind) Validate() error {
	switch k {
	case FragmentKindDocument, FragmentKindImage:
		return nil
	default:
		return goerr.New("invalid fragment kind", goerr.V("kind", k))
	}
}

type FragmentID string

// Fragment is an indexed unit of retrievable content. Exactly one of
// Document or Image is set according to Kind.
type Fragment struct {
	ID        FragmentID         `json:"id" firestore:"id"`
	Kind      FragmentKind       `json:"kind" firestore:"kind"`
	Text      string             `json:"text" firestore:"text"`
	Embedding firestore.Vector32 `json:"embedding" firestore:"embedding"`

	Document *DocumentMeta `json:"document,omitempty" firestore:"document,omitempty"`
	Image    *ImageMeta    `json:"image,omitempty" firestore:"image,omitempty"`
}

type DocumentMeta struct {
	Page       int `json:"page" firestore:"page"`
	ChunkIndex int `json:"chunk_index" firestore:"chunk_index"`
}

type ImageMeta struct {
	Page         int    `json:"page" firestore:"page"`
	FilePath     string `json:"file_path" firestore:"file_path"`
	BedroomCount *int   `json:"bedroom_count,omitempty" firestore:"bedroom_count,omitempty"`
	HasPool      *bool  `json:"has_pool,omitempty" firestore:"has_pool,omitempty"`
}

// Page returns the source page of the fragment, 0 if unknown
func (f *Fragment) Page() int {
	switch {
	case f.Document != nil:
		return f.Document.Page
	case f.Image != nil:
		return f.Image.Page
	default:
		return 0
	}
}

// ChunkIndex returns the chunk position for document fragments
func (f *Fragment) ChunkIndex() int {
	if f.Document == nil {
		return 0
	}
	return f.Document.ChunkIndex
}

// FilePath returns the image path for image fragments
func (f *Fragment) FilePath() string {
	if f.Image == nil {
		return ""
	}
	return f.Image.FilePath
}

// Validate checks that the metadata required by the fragment kind is present.
// Metadata problems are reported as ErrMalformedFragmentMetadata.
func (f *Fragment) Validate() error {
	if f.ID == "" {
		return goerr.Wrap(ErrMalformedFragmentMetadata, "fragment id is empty")
	}
	if err := f.Kind.Validate(); err != nil {
		return goerr.Wrap(ErrMalformedFragmentMetadata, "invalid fragment kind", goerr.V("id", f.ID), goerr.V("kind", f.Kind))
	}

	switch f.Kind {
	case FragmentKindDocument:
		if f.Document == nil || f.Document.Page <= 0 {
			return goerr.Wrap(ErrMalformedFragmentMetadata, "document fragment has no page", goerr.V("id", f.ID))
		}
		if f.Document.ChunkIndex < 0 {
			return goerr.Wrap(ErrMalformedFragmentMetadata, "document fragment has negative chunk index", goerr.V("id", f.ID))
		}
	case FragmentKindImage:
		if f.Image == nil || f.Image.Page <= 0 {
			return goerr.Wrap(ErrMalformedFragmentMetadata, "image fragment has no page", goerr.V("id", f.ID))
		}
		if f.Image.FilePath == "" {
			return goerr.Wrap(ErrMalformedFragmentMetadata, "image fragment has no file path", goerr.V("id", f.ID))
		}
	}

	return nil
}

// RetrievalResult is a fragment with its similarity to a query, in [0,1]
type RetrievalResult struct {
	Fragment   *Fragment
	Similarity float64
}

// RankedImage is an image retrieval result re-scored against the query and
// the retrieved documents
type RankedImage struct {
	*RetrievalResult
	RelevanceScore float64
}
