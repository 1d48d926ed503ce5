package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-optimizer/internal/shared/apperr"
)

func newMiniRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, Session{ID: "s-1", Status: StatusEmpty}))
	assert.True(t, mr.Exists("session:s-1"))
	assert.Equal(t, time.Hour, mr.TTL("session:s-1"))

	sess, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	sess.Status = StatusCVUploaded
	sess.Resume = &Resume{RawText: "Jane Doe"}
	require.NoError(t, store.Update(ctx, sess))

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCVUploaded, got.Status)
	assert.Equal(t, "Jane Doe", got.Resume.RawText)
}

func TestRedisStoreCreateDuplicateConflicts(t *testing.T) {
	store, _ := newMiniRedisStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, Session{ID: "s-1"}))
	assert.ErrorIs(t, store.Create(ctx, Session{ID: "s-1"}), apperr.ErrConflict)
}

func TestRedisStoreUpdateDoesNotResurrect(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, Session{ID: "s-1"}))
	require.NoError(t, store.Delete(ctx, "s-1"))

	err := store.Update(ctx, Session{ID: "s-1", Status: StatusGenerated})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists("session:s-1"))
}

func TestRedisStoreExpiresIdleSessions(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, Session{ID: "s-1"}))

	mr.FastForward(2 * time.Hour)
	_, err := store.Get(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreGetMissingWithMock(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, time.Hour)

	mock.ExpectGet("session:ghost").RedisNil()
	_, err := store.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreBackendErrorIsStorage(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, time.Hour)

	mock.ExpectGet("session:s-1").SetErr(errors.New("connection refused"))
	mock.ExpectDel("session:s-1").SetErr(errors.New("connection refused"))

	_, err := store.Get(context.Background(), "s-1")
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.ErrorIs(t, store.Delete(context.Background(), "s-1"), apperr.ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}
