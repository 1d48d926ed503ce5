package sessions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"cv-optimizer/internal/events"
	"cv-optimizer/internal/shared/apperr"
	"cv-optimizer/internal/shared/metrics"
	"cv-optimizer/internal/shared/storage/object"
	"cv-optimizer/internal/shared/telemetry"
)

// Service owns session creation, the single-writer discipline, and deletion.
type Service struct {
	Store   Store
	Locks   *LockTable
	Objects object.ObjectStore
	Events  events.Publisher
	Now     func() time.Time
	NewID   func() string
}

// NewService wires a Service with default clock, id source, and no-op events.
func NewService(store Store, objects object.ObjectStore, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		Store:   store,
		Locks:   NewLockTable(),
		Objects: objects,
		Events:  publisher,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// Create stores a new empty session.
func (s *Service) Create(ctx context.Context) (Session, error) {
	now := s.now()
	sess := Session{
		ID:        s.newID(),
		Status:    StatusEmpty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Create(ctx, sess); err != nil {
		return Session{}, asStorage("create session", err)
	}
	metrics.IncSessionsCreated()
	s.publish(ctx, sess, events.NameCreated)
	return sess, nil
}

// Get loads a session by id.
func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Session{}, apperr.Validation("session_id is required")
	}
	sess, err := s.Store.Get(ctx, id)
	if err != nil {
		return Session{}, asStorage("load session", err)
	}
	return sess, nil
}

// Summary returns the status view of a session.
func (s *Service) Summary(ctx context.Context, id string) (Summary, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(sess), nil
}

type transitionHookKey struct{}

// WithTransitionHook registers fn to observe a status change committed by a
// mutation running under the returned context.
func WithTransitionHook(ctx context.Context, fn func(from, to Status)) context.Context {
	return context.WithValue(ctx, transitionHookKey{}, fn)
}

// MutateFunc changes a loaded session in place. It receives the operation
// context, which is cancelled if the session is deleted mid-flight.
type MutateFunc func(ctx context.Context, sess *Session) error

// Mutate runs fn under the session write lock, waiting for the slot, and
// persists the result only when fn succeeds.
func (s *Service) Mutate(ctx context.Context, id, event string, fn MutateFunc) (Session, error) {
	return s.mutate(ctx, id, event, true, fn)
}

// TryMutate is Mutate that fails with a conflict instead of waiting.
func (s *Service) TryMutate(ctx context.Context, id, event string, fn MutateFunc) (Session, error) {
	return s.mutate(ctx, id, event, false, fn)
}

func (s *Service) mutate(ctx context.Context, id, event string, wait bool, fn MutateFunc) (Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Session{}, apperr.Validation("session_id is required")
	}

	var (
		opCtx   context.Context
		release func()
		err     error
	)
	if wait {
		opCtx, release, err = s.Locks.Lock(ctx, id)
	} else {
		opCtx, release, err = s.Locks.TryLock(ctx, id)
	}
	if err != nil {
		return Session{}, err
	}
	defer release()

	sess, err := s.Store.Get(opCtx, id)
	if err != nil {
		return Session{}, asStorage("load session", evictedCause(opCtx, err))
	}
	from := sess.Status

	if err := fn(opCtx, &sess); err != nil {
		return Session{}, evictedCause(opCtx, err)
	}
	if cause := context.Cause(opCtx); errors.Is(cause, ErrNotFound) {
		return Session{}, ErrNotFound
	}

	sess.UpdatedAt = s.now()
	if err := s.Store.Update(opCtx, sess); err != nil {
		return Session{}, asStorage("update session", evictedCause(opCtx, err))
	}
	release()

	if from != sess.Status {
		telemetry.Info("session.status", map[string]any{
			"session_id": sess.ID,
			"from":       string(from),
			"to":         string(sess.Status),
		})
		if hook, ok := ctx.Value(transitionHookKey{}).(func(from, to Status)); ok {
			hook(from, sess.Status)
		}
	}
	s.publish(ctx, sess, event)
	return sess, nil
}

// Delete purges a session: it cancels any in-flight operation and waits for
// it to stop, removes the record, then the stored files. New operations on
// the id fail with not-found until it returns. Unknown ids succeed.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperr.Validation("session_id is required")
	}

	lift, err := s.Locks.Tombstone(ctx, id)
	if err != nil {
		return err
	}
	defer lift()

	if err := s.Store.Delete(ctx, id); err != nil {
		return asStorage("delete session", err)
	}
	if s.Objects != nil {
		if err := s.Objects.DeletePrefix(ctx, object.SessionPrefix(id)); err != nil {
			return apperr.Storage("delete session files", err)
		}
	}

	lift()
	metrics.IncSessionsDeleted()
	s.publish(ctx, Session{ID: id, Status: StatusDeleted}, events.NameDeleted)
	return nil
}

// PurgeExpired deletes every session idle for longer than maxAge, including
// its files. It needs a store that implements Purger.
func (s *Service) PurgeExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	purger, ok := s.Store.(Purger)
	if !ok {
		return 0, apperr.New(apperr.ErrUnavailable, "session store does not support purge")
	}
	ids, err := purger.PurgeExpired(ctx, s.now().Add(-maxAge))
	if err != nil {
		return 0, asStorage("purge sessions", err)
	}
	for _, id := range ids {
		s.purgeFiles(ctx, id)
	}
	telemetry.Info("session.purge", map[string]any{"purged": len(ids), "max_age": maxAge.String()})
	return len(ids), nil
}

func (s *Service) purgeFiles(ctx context.Context, id string) {
	lift, err := s.Locks.Tombstone(ctx, id)
	if err != nil {
		telemetry.Warn("session.purge_files_failed", map[string]any{"session_id": id, "error": err})
		return
	}
	defer lift()
	if s.Objects == nil {
		return
	}
	if err := s.Objects.DeletePrefix(ctx, object.SessionPrefix(id)); err != nil {
		telemetry.Warn("session.purge_files_failed", map[string]any{"session_id": id, "error": err})
	}
}

// RemoveObjects deletes keys left behind by a replaced or abandoned write.
// Failures are logged only.
func (s *Service) RemoveObjects(ctx context.Context, keys ...string) {
	if s.Objects == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.Objects.DeletePrefix(ctx, key); err != nil {
			telemetry.Warn("session.object_cleanup_failed", map[string]any{"key": key, "error": err})
		}
	}
}

func (s *Service) publish(ctx context.Context, sess Session, event string) {
	if s.Events == nil || event == "" {
		return
	}
	err := s.Events.Publish(context.WithoutCancel(ctx), events.Event{
		SessionID: sess.ID,
		Status:    string(sess.Status),
		Name:      event,
		At:        s.now(),
	})
	if err != nil {
		telemetry.Warn("session.event_publish_failed", map[string]any{
			"session_id": sess.ID,
			"event":      event,
			"error":      err,
		})
	}
}

// evictedCause reports a deletion that raced the operation as not-found
// rather than as a bare context cancellation.
func evictedCause(opCtx context.Context, err error) error {
	if cause := context.Cause(opCtx); errors.Is(cause, ErrNotFound) && errors.Is(err, context.Canceled) {
		return ErrNotFound
	}
	return err
}

// asStorage leaves typed errors alone and tags anything else as a storage failure.
func asStorage(op string, err error) error {
	var typed *apperr.Error
	if errors.As(err, &typed) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperr.Storage(op, err)
}
