package sessions

import (
	"context"
	"sync"

	"cv-optimizer/internal/shared/apperr"
	"cv-optimizer/internal/shared/metrics"
)

// LockTable serializes mutating operations per session id. Entries exist
// only while someone holds or waits for them, so the table does not grow
// with the number of sessions ever seen. A tombstoned id refuses new
// holders until its deletion finishes.
type LockTable struct {
	mu         sync.Mutex
	entries    map[string]*lockEntry
	tombstones map[string]int
}

type lockEntry struct {
	sem     chan struct{}
	refs    int
	evicted context.Context
	evict   context.CancelFunc
	// drained is closed once the last holder or waiter lets go.
	drained chan struct{}
}

// NewLockTable constructs an empty table.
func NewLockTable() *LockTable {
	return &LockTable{
		entries:    make(map[string]*lockEntry),
		tombstones: make(map[string]int),
	}
}

// Lock waits for the write slot of id. The returned context is cancelled
// when the caller's ctx ends or the session is evicted, with
// ErrSessionNotFound as the cause in the latter case. release must be
// called exactly once; extra calls are ignored.
func (t *LockTable) Lock(ctx context.Context, id string) (context.Context, func(), error) {
	e, err := t.acquireEntry(id)
	if err != nil {
		return nil, nil, err
	}
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		t.dropRef(id, e)
		return nil, nil, ctx.Err()
	case <-e.evicted.Done():
		t.dropRef(id, e)
		return nil, nil, ErrNotFound
	}
	opCtx, release := t.bind(ctx, id, e)
	return opCtx, release, nil
}

// TryLock takes the write slot of id without waiting. A busy session yields
// a conflict error.
func (t *LockTable) TryLock(ctx context.Context, id string) (context.Context, func(), error) {
	e, err := t.acquireEntry(id)
	if err != nil {
		return nil, nil, err
	}
	select {
	case e.sem <- struct{}{}:
	default:
		t.dropRef(id, e)
		metrics.IncLockConflict()
		return nil, nil, apperr.New(apperr.ErrConflict, "another operation is in progress for this session")
	}
	opCtx, release := t.bind(ctx, id, e)
	return opCtx, release, nil
}

// Evict cancels the in-flight operation for id, fails its waiters, and
// forgets the entry. Evicting an unknown id is a no-op.
func (t *LockTable) Evict(id string) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()
	if ok {
		e.evict()
	}
}

// Tombstone evicts id, then waits until the evicted holder and waiters have
// let go. Until lift is called, Lock and TryLock on id fail with
// ErrNotFound. On ctx expiry the tombstone is lifted and ctx.Err returned.
func (t *LockTable) Tombstone(ctx context.Context, id string) (lift func(), err error) {
	t.mu.Lock()
	t.tombstones[id]++
	e, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	var once sync.Once
	lift = func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.tombstones[id]--; t.tombstones[id] <= 0 {
				delete(t.tombstones, id)
			}
		})
	}
	if !ok {
		return lift, nil
	}
	e.evict()
	select {
	case <-e.drained:
		return lift, nil
	case <-ctx.Done():
		lift()
		return nil, ctx.Err()
	}
}

// Len reports how many ids currently have an entry.
func (t *LockTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *LockTable) acquireEntry(id string) (*lockEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tombstones[id] > 0 {
		return nil, ErrNotFound
	}
	e, ok := t.entries[id]
	if !ok {
		evicted, evict := context.WithCancel(context.Background())
		e = &lockEntry{
			sem:     make(chan struct{}, 1),
			evicted: evicted,
			evict:   evict,
			drained: make(chan struct{}),
		}
		t.entries[id] = e
	}
	e.refs++
	return e, nil
}

func (t *LockTable) dropRef(id string, e *lockEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e.refs--
	if e.refs > 0 {
		return
	}
	if cur, ok := t.entries[id]; ok && cur == e {
		delete(t.entries, id)
	}
	e.evict()
	close(e.drained)
}

func (t *LockTable) bind(ctx context.Context, id string, e *lockEntry) (context.Context, func()) {
	opCtx, cancel := context.WithCancelCause(ctx)
	stop := context.AfterFunc(e.evicted, func() { cancel(ErrNotFound) })

	var once sync.Once
	release := func() {
		once.Do(func() {
			stop()
			cancel(context.Canceled)
			<-e.sem
			t.dropRef(id, e)
		})
	}
	return opCtx, release
}
