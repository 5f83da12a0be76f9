package index

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

const (
	defaultFragmentCollection = "fragments"
	distanceField             = "vector_distance"
)

// Firestore keeps fragments in a Firestore collection and relies on its
// vector search. A vector index on the "embedding" field filtered by "kind"
// must exist.
type Firestore struct {
	client     *firestore.Client
	collection string
}

type FirestoreOption func(*Firestore)

func WithCollection(name string) FirestoreOption {
	return func(f *Firestore) {
		f.collection = name
	}
}

func NewFirestore(ctx context.Context, projectID, databaseID string, opts ...FirestoreOption) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseID))
	}

	f := &Firestore{
		client:     client,
		collection: defaultFragmentCollection,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) Add(ctx context.Context, fragments ...*model.Fragment) error {
	coll := f.client.Collection(f.collection)
	for _, frag := range fragments {
		if frag == nil || frag.ID == "" {
			return goerr.New("fragment id is required")
		}
		if _, err := coll.Doc(string(frag.ID)).Set(ctx, frag); err != nil {
			return goerr.Wrap(err, "failed to put fragment", goerr.V("id", frag.ID))
		}
	}
	return nil
}

func (f *Firestore) Search(ctx context.Context, query []float32, kind model.FragmentKind, k int) ([]*model.RetrievalResult, error) {
	if k <= 0 {
		return []*model.RetrievalResult{}, nil
	}

	q := f.client.Collection(f.collection).Query
	if kind != "" {
		q = q.Where("kind", "==", string(kind))
	}

	vq := q.FindNearest("embedding", firestore.Vector32(query), k, firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{DistanceResultField: distanceField})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	var results []*model.RetrievalResult
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to search fragments", goerr.V("kind", kind))
		}

		var frag model.Fragment
		if err := doc.DataTo(&frag); err != nil {
			return nil, goerr.Wrap(err, "failed to decode fragment", goerr.V("doc", doc.Ref.ID))
		}

		distance, _ := doc.Data()[distanceField].(float64)
		results = append(results, &model.RetrievalResult{
			Fragment:   &frag,
			Similarity: clampSimilarity(1 - distance),
		})
	}

	if len(results) == 0 {
		empty, err := f.empty(ctx)
		if err != nil {
			return nil, err
		}
		if empty {
			return nil, goerr.Wrap(model.ErrNotInitialized, "fragment collection is empty", goerr.V("collection", f.collection))
		}
	}

	SortResults(results)
	return results, nil
}

func (f *Firestore) empty(ctx context.Context) (bool, error) {
	iter := f.client.Collection(f.collection).Limit(1).Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == iterator.Done {
		return true, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to check fragment collection")
	}
	return false, nil
}

func (f *Firestore) Fragments(ctx context.Context) ([]*model.Fragment, error) {
	iter := f.client.Collection(f.collection).Documents(ctx)
	defer iter.Stop()

	var fragments []*model.Fragment
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list fragments")
		}

		var frag model.Fragment
		if err := doc.DataTo(&frag); err != nil {
			return nil, goerr.Wrap(err, "failed to decode fragment", goerr.V("doc", doc.Ref.ID))
		}
		fragments = append(fragments, &frag)
	}
	return fragments, nil
}
