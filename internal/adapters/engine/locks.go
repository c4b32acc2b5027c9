package engine

import (
	"context"
	"sync"

	"github.com/imniteen/loom/internal/domain"
)

// ThreadLocks serializes turns per thread inside this process. Each
// thread id owns a capacity-one channel; entries are reference counted
// and dropped when the last holder or waiter releases.
type ThreadLocks struct {
	mu    sync.Mutex
	locks map[string]*threadLock
}

type threadLock struct {
	ch   chan struct{}
	refs int
}

func NewThreadLocks() *ThreadLocks {
	return &ThreadLocks{locks: make(map[string]*threadLock)}
}

func (t *ThreadLocks) Acquire(ctx context.Context, threadID string) (func(), error) {
	t.mu.Lock()
	l, ok := t.locks[threadID]
	if !ok {
		l = &threadLock{ch: make(chan struct{}, 1)}
		t.locks[threadID] = l
	}
	l.refs++
	t.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		t.unref(threadID, l)
		return nil, domain.Error{
			Type:    domain.ErrorTypeUnavailable,
			Message: "timed out waiting for thread lock",
			Details: map[string]interface{}{"thread_id": threadID, "error": ctx.Err().Error()},
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-l.ch
			t.unref(threadID, l)
		})
	}
	return release, nil
}

func (t *ThreadLocks) unref(threadID string, l *threadLock) {
	t.mu.Lock()
	defer t.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(t.locks, threadID)
	}
}
