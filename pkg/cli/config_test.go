package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/floorbot/pkg/index"
	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestNewIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("missing snapshot gives empty index", func(t *testing.T) {
		cfg := &config{indexKind: indexMemory, snapshotPath: filepath.Join(dir, "none.json")}
		idx, err := cfg.newIndex(ctx)
		gt.NoError(t, err)
		fragments, err := idx.Fragments(ctx)
		gt.NoError(t, err)
		gt.A(t, fragments).Length(0)
	})

	t.Run("snapshot is loaded", func(t *testing.T) {
		path := filepath.Join(dir, "fragments.json")
		gt.NoError(t, index.SaveSnapshot(path, []*model.Fragment{
			{
				ID:        "doc-p4-c0",
				Kind:      model.FragmentKindDocument,
				Text:      "3BR MIA Type A",
				Embedding: []float32{1, 0},
				Document:  &model.DocumentMeta{Page: 4},
			},
		}))

		cfg := &config{indexKind: indexMemory, snapshotPath: path}
		defer cfg.close(ctx)
		idx, err := cfg.newIndex(ctx)
		gt.NoError(t, err)

		lexical, err := cfg.newLexical(ctx, idx)
		gt.NoError(t, err)
		gt.Equal(t, lexical.Len(), 1)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := &config{indexKind: "pinecone"}
		_, err := cfg.newIndex(ctx)
		gt.Error(t, err)
	})
}

func TestNewSessionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		cfg := &config{
			storeKind:  storeSQLite,
			sqlitePath: filepath.Join(t.TempDir(), "sessions.db"),
			sessionTTL: time.Hour,
		}
		defer cfg.close(ctx)

		store, err := cfg.newSessionStore(ctx)
		gt.NoError(t, err)
		gt.A(t, cfg.closers).Length(1)

		session := model.NewSession("s-1", time.Now())
		gt.NoError(t, store.Save(ctx, session))
		loaded, err := store.Load(ctx, "s-1")
		gt.NoError(t, err)
		gt.V(t, loaded).NotNil()
	})

	t.Run("firestore needs a project", func(t *testing.T) {
		cfg := &config{storeKind: storeFirestore}
		_, err := cfg.newSessionStore(ctx)
		gt.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := &config{storeKind: "etcd"}
		_, err := cfg.newSessionStore(ctx)
		gt.Error(t, err)
	})
}

func TestNewGeminiRequiresProject(t *testing.T) {
	cfg := &config{geminiLocation: "us-central1"}
	_, err := cfg.newGemini(context.Background())
	gt.Error(t, err)
}

func TestExcerpt(t *testing.T) {
	gt.Equal(t, excerpt("  5BR   MODEA\nground floor "), "5BR MODEA ground floor")

	long := excerpt(strings.Repeat("a", 98))
	gt.Equal(t, len([]rune(long)), 80)
	gt.S(t, long).Contains("...")
}
