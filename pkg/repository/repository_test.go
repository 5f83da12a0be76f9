package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/floorbot/pkg/repository"
	"github.com/m-mizutani/gt"
)

type storeFactory func(t *testing.T, opts ...repository.Option) repository.SessionStore

func testSessionStore(t *testing.T, newStore storeFactory) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	clock := func() time.Time { return now }

	t.Run("load missing session", func(t *testing.T) {
		store := newStore(t, repository.WithClock(clock))
		got, err := store.Load(context.Background(), model.NewSessionID())
		gt.NoError(t, err)
		gt.True(t, got == nil)
	})

	t.Run("save and load", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, repository.WithClock(clock))

		session := model.NewSession(model.NewSessionID(), now)
		session.AddMessage(model.RoleUser, "Tell me about the 4 bedroom villa", now)
		session.AddMessage(model.RoleAssistant, "The 4BR SHADEA has two types.", now)
		session.AddSignals(model.SignalSpecificRequirements, model.SignalViewingInterest)
		session.AddPropertiesViewed("4BR-SHADEA-TYPE-A")
		session.LeadInfo = model.LeadInfo{Name: "Sarah", Email: "sarah@example.com"}
		session.LeadStatus = model.LeadStatusQualified
		gt.NoError(t, store.Save(ctx, session))

		got, err := store.Load(ctx, session.ID)
		gt.NoError(t, err)
		gt.V(t, got).NotNil()
		gt.Equal(t, got.ID, session.ID)
		gt.Equal(t, got.MessageCount, 2)
		gt.A(t, got.Messages).Length(2)
		gt.Equal(t, got.Messages[1].Content, "The 4BR SHADEA has two types.")
		gt.Equal(t, got.Messages[1].Role, model.RoleAssistant)
		gt.V(t, got.BuyingSignals).Equal(session.BuyingSignals)
		gt.V(t, got.PropertiesViewed).Equal(session.PropertiesViewed)
		gt.Equal(t, got.LeadInfo, session.LeadInfo)
		gt.Equal(t, got.LeadStatus, model.LeadStatusQualified)
		gt.True(t, got.UpdatedAt.Equal(now))
	})

	t.Run("save overwrites", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, repository.WithClock(clock))

		session := model.NewSession(model.NewSessionID(), now)
		gt.NoError(t, store.Save(ctx, session))

		session.AddSignals(model.SignalTimeline)
		session.LeadStatus = model.LeadStatusHot
		gt.NoError(t, store.Save(ctx, session))

		got, err := store.Load(ctx, session.ID)
		gt.NoError(t, err)
		gt.V(t, got.BuyingSignals).Equal([]model.Signal{model.SignalTimeline})
		gt.Equal(t, got.LeadStatus, model.LeadStatusHot)
	})

	t.Run("expired session is not loaded", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, repository.WithClock(clock), repository.WithTTL(time.Hour))

		session := model.NewSession(model.NewSessionID(), now.Add(-2*time.Hour))
		gt.NoError(t, store.Save(ctx, session))

		got, err := store.Load(ctx, session.ID)
		gt.NoError(t, err)
		gt.True(t, got == nil)
	})

	t.Run("cleanup removes idle sessions", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, repository.WithClock(clock), repository.WithTTL(time.Hour))

		stale := model.NewSession(model.NewSessionID(), now.Add(-2*time.Hour))
		fresh := model.NewSession(model.NewSessionID(), now.Add(-10*time.Minute))
		gt.NoError(t, store.Save(ctx, stale))
		gt.NoError(t, store.Save(ctx, fresh))

		removed, err := store.Cleanup(ctx, now)
		gt.NoError(t, err)
		gt.True(t, removed >= 1)

		got, err := store.Load(ctx, fresh.ID)
		gt.NoError(t, err)
		gt.V(t, got).NotNil()
	})

	t.Run("session id is required", func(t *testing.T) {
		store := newStore(t)
		gt.Error(t, store.Save(context.Background(), &model.Session{}))
	})
}

func TestMemory(t *testing.T) {
	testSessionStore(t, func(t *testing.T, opts ...repository.Option) repository.SessionStore {
		return repository.NewMemory(opts...)
	})
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := repository.NewMemory()

	session := model.NewSession("s1", now)
	gt.NoError(t, store.Save(ctx, session))

	// mutating the caller's value after save must not leak into the store
	session.AddSignals(model.SignalBudgetMention)
	got, err := store.Load(ctx, "s1")
	gt.NoError(t, err)
	gt.A(t, got.BuyingSignals).Length(0)

	got.AddSignals(model.SignalTimeline)
	again, err := store.Load(ctx, "s1")
	gt.NoError(t, err)
	gt.A(t, again.BuyingSignals).Length(0)
}

func TestMemoryCleanupCount(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := repository.NewMemory()

	for i := range 3 {
		s := model.NewSession(model.SessionID("old-"+strconv.Itoa(i)), now.Add(-25*time.Hour))
		gt.NoError(t, store.Save(ctx, s))
	}
	gt.NoError(t, store.Save(ctx, model.NewSession("new", now.Add(-23*time.Hour))))

	removed, err := store.Cleanup(ctx, now)
	gt.NoError(t, err)
	gt.Equal(t, removed, 3)

	removed, err = store.Cleanup(ctx, now)
	gt.NoError(t, err)
	gt.Equal(t, removed, 0)
}

func TestSQLite(t *testing.T) {
	testSessionStore(t, func(t *testing.T, opts ...repository.Option) repository.SessionStore {
		store, err := repository.NewSQLite(filepath.Join(t.TempDir(), "db", "sessions.db"), opts...)
		gt.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestSQLiteCleanupCount(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store, err := repository.NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	gt.NoError(t, err)
	defer store.Close()

	gt.NoError(t, store.Save(ctx, model.NewSession("old", now.Add(-48*time.Hour))))
	gt.NoError(t, store.Save(ctx, model.NewSession("new", now)))

	removed, err := store.Cleanup(ctx, now)
	gt.NoError(t, err)
	gt.Equal(t, removed, 1)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}

	testSessionStore(t, func(t *testing.T, opts ...repository.Option) repository.SessionStore {
		store := repository.NewRedis(addr, os.Getenv("TEST_REDIS_PASSWORD"), 0, opts...)
		gt.NoError(t, store.Ping(context.Background()))
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestFirestore(t *testing.T) {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	testSessionStore(t, func(t *testing.T, opts ...repository.Option) repository.SessionStore {
		store, err := repository.NewFirestore(context.Background(), projectID, databaseID, opts...)
		gt.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}
