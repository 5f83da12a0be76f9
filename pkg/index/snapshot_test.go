package index_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/floorbot/pkg/index"
	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "fragments.json")

	bedrooms, pool := 4, true
	img := image("i1", 7, "plan-7.webp", 0, 1)
	img.Image.BedroomCount = &bedrooms
	img.Image.HasPool = &pool

	gt.NoError(t, index.SaveSnapshot(path, []*model.Fragment{doc("d1", 4, 1, 1, 0), img}))

	idx, err := index.LoadMemory(ctx, path)
	gt.NoError(t, err)
	gt.Equal(t, idx.Len(), 2)

	results, err := idx.Search(ctx, []float32{0, 1}, model.FragmentKindImage, 1)
	gt.NoError(t, err)
	gt.A(t, results).Length(1)
	gt.Equal(t, *results[0].Fragment.Image.BedroomCount, 4)
	gt.True(t, *results[0].Fragment.Image.HasPool)
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	_, err := index.LoadSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	gt.Error(t, err)
}
