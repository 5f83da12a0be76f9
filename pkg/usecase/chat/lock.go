package chat

import (
	"context"
	"sync"

	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// keyLock serializes work per session id. Entries are dropped once no
// goroutine holds or waits for them. It is process-local: replicas sharing a
// session store are not serialized against each other.
type keyLock struct {
	mu      sync.Mutex
	entries map[model.SessionID]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{entries: make(map[model.SessionID]*lockEntry)}
}

// Lock blocks until the key is free or ctx is done
func (l *keyLock) Lock(ctx context.Context, key model.SessionID) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			l.release(key, e)
		}, nil
	case <-ctx.Done():
		l.release(key, e)
		return nil, goerr.Wrap(ctx.Err(), "failed to acquire session lock", goerr.V("session_id", key))
	}
}

func (l *keyLock) release(key model.SessionID, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *keyLock) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
