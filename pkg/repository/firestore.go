package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const sessionCollection = "sessions"

// Firestore stores one document per session
type Firestore struct {
	client *firestore.Client
	opts   options
}

// NewFirestore creates a new Firestore session store
func NewFirestore(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID))
	}

	return &Firestore{
		client: client,
		opts:   newOptions(opts...),
	}, nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) Load(ctx context.Context, id model.SessionID) (*model.Session, error) {
	doc, err := f.client.Collection(sessionCollection).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get session", goerr.V("session_id", id))
	}

	var session model.Session
	if err := doc.DataTo(&session); err != nil {
		return nil, goerr.Wrap(err, "failed to decode session", goerr.V("session_id", id))
	}
	if f.opts.expired(&session) {
		return nil, nil
	}
	return &session, nil
}

func (f *Firestore) Save(ctx context.Context, session *model.Session) error {
	if session == nil || session.ID == "" {
		return goerr.New("session id is required")
	}

	if _, err := f.client.Collection(sessionCollection).Doc(string(session.ID)).Set(ctx, session); err != nil {
		return goerr.Wrap(err, "failed to save session", goerr.V("session_id", session.ID))
	}
	return nil
}

func (f *Firestore) Cleanup(ctx context.Context, now time.Time) (int, error) {
	iter := f.client.Collection(sessionCollection).
		Where("updated_at", "<", now.Add(-f.opts.ttl)).
		Documents(ctx)
	defer iter.Stop()

	removed := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return removed, goerr.Wrap(err, "failed to iterate expired sessions")
		}

		if _, err := doc.Ref.Delete(ctx); err != nil {
			return removed, goerr.Wrap(err, "failed to delete session", goerr.V("session_id", doc.Ref.ID))
		}
		removed++
	}
	return removed, nil
}
