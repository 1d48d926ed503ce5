package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"cv-optimizer/internal/shared/apperr"
)

const redisKeyPrefix = "session:"

// RedisStore implements Store on Redis. Every write refreshes the key TTL,
// so idle sessions expire on their own.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStore wraps a go-redis client.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string { return redisKeyPrefix + id }

func (r *RedisStore) Create(ctx context.Context, s Session) error {
	state, err := encodeState(s)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, redisKey(s.ID), state, r.ttl).Result()
	if err != nil {
		return apperr.Storage("create session", err)
	}
	if !ok {
		return apperr.New(apperr.ErrConflict, "session already exists")
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	data, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, apperr.Storage("load session", err)
	}
	s, err := decodeState(data)
	if err != nil {
		return Session{}, apperr.Storage("load session", err)
	}
	return s, nil
}

// Update rewrites an existing key only (SET XX).
func (r *RedisStore) Update(ctx context.Context, s Session) error {
	state, err := encodeState(s)
	if err != nil {
		return err
	}
	err = r.client.SetArgs(ctx, redisKey(s.ID), state, redis.SetArgs{Mode: "XX", TTL: r.ttl}).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return apperr.Storage("update session", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return apperr.Storage("delete session", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
