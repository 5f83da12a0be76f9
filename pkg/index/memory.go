package index

import (
	"context"
	"sync"

	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Memory is a brute-force in-process index
type Memory struct {
	mu        sync.RWMutex
	fragments map[model.FragmentID]*model.Fragment
}

func NewMemory() *Memory {
	return &Memory{
		fragments: make(map[model.FragmentID]*model.Fragment),
	}
}

func (m *Memory) Add(ctx context.Context, fragments ...*model.Fragment) error {
	for _, f := range fragments {
		if f == nil || f.ID == "" {
			return goerr.New("fragment id is required")
		}
		if len(f.Embedding) == 0 {
			return goerr.New("fragment has no embedding", goerr.V("id", f.ID))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range fragments {
		m.fragments[f.ID] = f
	}
	return nil
}

func (m *Memory) Search(ctx context.Context, query []float32, kind model.FragmentKind, k int) ([]*model.RetrievalResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.fragments) == 0 {
		return nil, goerr.Wrap(model.ErrNotInitialized, "no fragment has been added")
	}
	if k <= 0 {
		return []*model.RetrievalResult{}, nil
	}

	results := make([]*model.RetrievalResult, 0, len(m.fragments))
	for _, f := range m.fragments {
		if kind != "" && f.Kind != kind {
			continue
		}
		results = append(results, &model.RetrievalResult{
			Fragment:   f,
			Similarity: clampSimilarity(CosineSimilarity(query, f.Embedding)),
		})
	}

	SortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *Memory) Fragments(ctx context.Context) ([]*model.Fragment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fragments := make([]*model.Fragment, 0, len(m.fragments))
	for _, f := range m.fragments {
		fragments = append(fragments, f)
	}
	return fragments, nil
}

// Len returns the number of stored fragments
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.fragments)
}
