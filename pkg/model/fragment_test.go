package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestFragmentValidate(t *testing.T) {
	page := func(p int) *model.ImageMeta {
		return &model.ImageMeta{Page: p, FilePath: "floorplans-4.webp"}
	}

	testCases := []struct {
		name  string
		frag  *model.Fragment
		valid bool
	}{
		{
			name:  "document",
			frag:  &model.Fragment{ID: "d1", Kind: model.FragmentKindDocument, Document: &model.DocumentMeta{Page: 4}},
			valid: true,
		},
		{
			name:  "image",
			frag:  &model.Fragment{ID: "i1", Kind: model.FragmentKindImage, Image: page(4)},
			valid: true,
		},
		{
			name: "image without page",
			frag: &model.Fragment{ID: "i2", Kind: model.FragmentKindImage, Image: page(0)},
		},
		{
			name: "image without metadata",
			frag: &model.Fragment{ID: "i3", Kind: model.FragmentKindImage},
		},
		{
			name: "document without page",
			frag: &model.Fragment{ID: "d2", Kind: model.FragmentKindDocument, Document: &model.DocumentMeta{}},
		},
		{
			name: "unknown kind",
			frag: &model.Fragment{ID: "x", Kind: "video"},
		},
		{
			name: "missing id",
			frag: &model.Fragment{Kind: model.FragmentKindDocument, Document: &model.DocumentMeta{Page: 1}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.frag.Validate()
			if tc.valid {
				gt.NoError(t, err)
				return
			}
			gt.Error(t, err)
			gt.True(t, errors.Is(err, model.ErrMalformedFragmentMetadata))
		})
	}
}

func TestFragmentAccessors(t *testing.T) {
	doc := &model.Fragment{ID: "d1", Kind: model.FragmentKindDocument, Document: &model.DocumentMeta{Page: 6, ChunkIndex: 2}}
	gt.Equal(t, doc.Page(), 6)
	gt.Equal(t, doc.ChunkIndex(), 2)
	gt.Equal(t, doc.FilePath(), "")

	img := &model.Fragment{ID: "i1", Kind: model.FragmentKindImage, Image: &model.ImageMeta{Page: 7, FilePath: "a-7.webp"}}
	gt.Equal(t, img.Page(), 7)
	gt.Equal(t, img.FilePath(), "a-7.webp")
	gt.Equal(t, img.ChunkIndex(), 0)
}
