// Package client talks to the optimizer API and owns the session bootstrap:
// at most one session creation in flight, optimistic reuse of a cached id,
// and a single lazy replacement when the server has forgotten the session.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cv-optimizer/internal/shared/telemetry"
)

const (
	flightKey = "session"

	DefaultCreateAttempts = 3
	DefaultRetryDelay     = 600 * time.Millisecond
)

// SessionCreator issues the create-session call.
type SessionCreator interface {
	CreateSession(ctx context.Context) (string, error)
}

// Bootstrapper hands out a valid session id to any number of concurrent
// callers.
type Bootstrapper struct {
	Creator  SessionCreator
	Cache    IDCache
	Attempts int
	// RetryDelay is multiplied by the attempt number between create attempts.
	RetryDelay time.Duration
	Sleep      func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	id     string
	flight singleflight.Group
}

func NewBootstrapper(creator SessionCreator, cache IDCache) *Bootstrapper {
	if cache == nil {
		cache = &MemoryCache{}
	}
	return &Bootstrapper{
		Creator:    creator,
		Cache:      cache,
		Attempts:   DefaultCreateAttempts,
		RetryDelay: DefaultRetryDelay,
		Sleep:      sleepCtx,
	}
}

// SessionID returns the held id, joins an in-flight attempt, restores the
// cached id, or creates a session, in that order.
func (b *Bootstrapper) SessionID(ctx context.Context) (string, error) {
	if id := b.current(); id != "" {
		return id, nil
	}
	// The flight outlives any single caller so a cancelled leader does not
	// fail the callers that joined it.
	ch := b.flight.DoChan(flightKey, func() (any, error) {
		return b.obtain(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Do runs op with the current session. When the server reports the session
// missing, op is retried once against a single shared replacement. Earlier
// workflow steps are not replayed.
func (b *Bootstrapper) Do(ctx context.Context, op func(ctx context.Context, sessionID string) error) error {
	id, err := b.SessionID(ctx)
	if err != nil {
		return err
	}
	err = op(ctx, id)
	if !errors.Is(err, ErrSessionNotFound) {
		return err
	}

	b.Invalidate(id)
	replacement, rerr := b.SessionID(ctx)
	if rerr != nil {
		return fmt.Errorf("replace session: %w", rerr)
	}
	telemetry.Info("client.session_replaced", map[string]any{"stale_id": id, "session_id": replacement})

	if err := op(ctx, replacement); err != nil {
		if errors.Is(err, ErrInvalidState) {
			return fmt.Errorf("%w: %w", ErrSessionReplaced, err)
		}
		return err
	}
	return nil
}

// Invalidate forgets stale if it is still the held or cached id. It reports
// whether anything was cleared; a caller that lost the race simply picks up
// the replacement.
func (b *Bootstrapper) Invalidate(stale string) bool {
	if stale == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	cleared := false
	if b.id == stale {
		b.id = ""
		cleared = true
	}
	if cached, err := b.Cache.Load(); err == nil && cached == stale {
		if err := b.Cache.Clear(); err != nil {
			telemetry.Warn("client.cache_clear_failed", map[string]any{"error": err.Error()})
		}
		cleared = true
	}
	return cleared
}

// Forget drops the held and cached id, for example after deleting the session.
func (b *Bootstrapper) Forget() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.id = ""
	if err := b.Cache.Clear(); err != nil {
		telemetry.Warn("client.cache_clear_failed", map[string]any{"error": err.Error()})
	}
}

func (b *Bootstrapper) current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.id
}

func (b *Bootstrapper) obtain(ctx context.Context) (string, error) {
	if id, ok := b.restore(); ok {
		return id, nil
	}

	id, err := b.create(ctx)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	b.id = id
	if err := b.Cache.Store(id); err != nil {
		telemetry.Warn("client.cache_store_failed", map[string]any{"error": err.Error()})
	}
	b.mu.Unlock()
	return id, nil
}

// restore adopts the cached id without asking the server. A stale id is
// caught by the first operation that uses it.
func (b *Bootstrapper) restore() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.id != "" {
		return b.id, true
	}
	cached, err := b.Cache.Load()
	if err != nil {
		telemetry.Warn("client.cache_load_failed", map[string]any{"error": err.Error()})
		return "", false
	}
	if cached == "" {
		return "", false
	}
	b.id = cached
	return cached, true
}

func (b *Bootstrapper) create(ctx context.Context) (string, error) {
	attempts := b.Attempts
	if attempts <= 0 {
		attempts = DefaultCreateAttempts
	}
	sleep := b.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		id, err := b.Creator.CreateSession(ctx)
		if err == nil && id != "" {
			return id, nil
		}
		if err == nil {
			err = errors.New("server returned an empty session id")
		}
		lastErr = err
		telemetry.Warn("client.create_session_failed", map[string]any{"attempt": attempt, "error": err.Error()})
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, time.Duration(attempt)*b.RetryDelay); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("create session after %d attempts: %w", attempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
