package repository

import (
	"context"
	"time"

	"github.com/m-mizutani/floorbot/pkg/model"
)

// SessionStore defines the interface for session persistence. Load returns
// the latest saved state, or nil when the session does not exist or has
// been idle longer than the TTL.
type SessionStore interface {
	// Load retrieves a session by ID
	Load(ctx context.Context, id model.SessionID) (*model.Session, error)

	// Save replaces the stored session
	Save(ctx context.Context, session *model.Session) error

	// Cleanup deletes sessions idle since before now minus the TTL and
	// returns how many were removed
	Cleanup(ctx context.Context, now time.Time) (int, error)
}

type options struct {
	ttl   time.Duration
	clock func() time.Time
}

type Option func(*options)

// WithTTL overrides model.SessionTTL
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithClock replaces time.Now for expiry checks on Load
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func newOptions(opts ...Option) options {
	o := options{
		ttl:   model.SessionTTL,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) expired(s *model.Session) bool {
	return s.Expired(o.clock(), o.ttl)
}
