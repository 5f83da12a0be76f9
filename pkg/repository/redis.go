package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "floorbot:session:"

// Redis stores sessions as JSON values whose key TTL is refreshed on
// every save
type Redis struct {
	client *redis.Client
	opts   options
}

func NewRedis(addr, password string, db int, opts ...Option) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		opts: newOptions(opts...),
	}
}

func redisKey(id model.SessionID) string {
	return redisKeyPrefix + string(id)
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return goerr.Wrap(err, "failed to ping redis")
	}
	return nil
}

func (r *Redis) Load(ctx context.Context, id model.SessionID) (*model.Session, error) {
	raw, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get session", goerr.V("session_id", id))
	}

	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, goerr.Wrap(err, "failed to decode session", goerr.V("session_id", id))
	}
	if r.opts.expired(&session) {
		return nil, nil
	}
	return &session, nil
}

func (r *Redis) Save(ctx context.Context, session *model.Session) error {
	if session == nil || session.ID == "" {
		return goerr.New("session id is required")
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return goerr.Wrap(err, "failed to encode session", goerr.V("session_id", session.ID))
	}
	if err := r.client.Set(ctx, redisKey(session.ID), raw, r.opts.ttl).Err(); err != nil {
		return goerr.Wrap(err, "failed to save session", goerr.V("session_id", session.ID))
	}
	return nil
}

// Cleanup removes sessions whose UpdatedAt is past the TTL. Keys normally
// expire by themselves; this catches sessions saved with a longer TTL.
func (r *Redis) Cleanup(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return removed, goerr.Wrap(err, "failed to get session", goerr.V("key", key))
		}

		var session model.Session
		if err := json.Unmarshal(raw, &session); err == nil && !session.Expired(now, r.opts.ttl) {
			continue
		}

		if err := r.client.Del(ctx, key).Err(); err != nil {
			return removed, goerr.Wrap(err, "failed to delete session", goerr.V("key", key))
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, goerr.Wrap(err, "failed to scan sessions")
	}
	return removed, nil
}
