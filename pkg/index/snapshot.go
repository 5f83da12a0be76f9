package index

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// SaveSnapshot writes fragments with their embeddings to a JSON file
func SaveSnapshot(path string, fragments []*model.Fragment) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create snapshot directory", goerr.V("path", path))
	}

	data, err := json.Marshal(fragments)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal fragments")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return goerr.Wrap(err, "failed to write snapshot", goerr.V("path", path))
	}
	return nil
}

// LoadSnapshot reads fragments written by SaveSnapshot
func LoadSnapshot(path string) ([]*model.Fragment, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read snapshot", goerr.V("path", path))
	}

	var fragments []*model.Fragment
	if err := json.Unmarshal(data, &fragments); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal snapshot", goerr.V("path", path))
	}
	return fragments, nil
}

// LoadMemory builds an in-memory index from a snapshot file
func LoadMemory(ctx context.Context, path string) (*Memory, error) {
	fragments, err := LoadSnapshot(path)
	if err != nil {
		return nil, err
	}

	m := NewMemory()
	if len(fragments) == 0 {
		return m, nil
	}
	if err := m.Add(ctx, fragments...); err != nil {
		return nil, goerr.Wrap(err, "failed to load snapshot into index", goerr.V("path", path))
	}
	return m, nil
}
