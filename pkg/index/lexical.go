package index

import (
	"github.com/blevesearch/bleve"
	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Lexical is a keyword (BM25) index over fragment text, used to look up
// fragments without going through the embedding model
type Lexical struct {
	index     bleve.Index
	fragments map[string]*model.Fragment
}

// LexicalHit is one keyword search result
type LexicalHit struct {
	Fragment *model.Fragment
	Score    float64
}

type lexicalDoc struct {
	Text string `json:"text"`
	Kind string `json:"kind"`
}

// NewLexical builds an in-memory keyword index over fragments
func NewLexical(fragments []*model.Fragment) (*Lexical, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create lexical index")
	}

	l := &Lexical{
		index:     idx,
		fragments: make(map[string]*model.Fragment, len(fragments)),
	}

	batch := idx.NewBatch()
	for _, f := range fragments {
		if err := batch.Index(string(f.ID), lexicalDoc{Text: f.Text, Kind: string(f.Kind)}); err != nil {
			return nil, goerr.Wrap(err, "failed to index fragment", goerr.V("id", f.ID))
		}
		l.fragments[string(f.ID)] = f
	}
	if err := idx.Batch(batch); err != nil {
		return nil, goerr.Wrap(err, "failed to commit lexical index")
	}

	return l, nil
}

// Search returns up to k fragments matching the keywords in q
func (l *Lexical) Search(q string, k int) ([]*LexicalHit, error) {
	if k <= 0 {
		return []*LexicalHit{}, nil
	}

	query := bleve.NewMatchQuery(q)
	query.SetField("text")
	req := bleve.NewSearchRequestOptions(query, k, 0, false)

	res, err := l.index.Search(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search lexical index", goerr.V("query", q))
	}

	hits := make([]*LexicalHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		f, ok := l.fragments[h.ID]
		if !ok {
			continue
		}
		hits = append(hits, &LexicalHit{Fragment: f, Score: h.Score})
	}
	return hits, nil
}

// Len returns the number of indexed fragments
func (l *Lexical) Len() int {
	return len(l.fragments)
}

func (l *Lexical) Close() error {
	return l.index.Close()
}
