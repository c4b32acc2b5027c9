package ports

import "context"

// ThreadLocker serializes turns per thread id. Acquire blocks until the
// thread is free or ctx is done; the returned release must be called
// exactly once and is held for the full turn.
type ThreadLocker interface {
	Acquire(ctx context.Context, threadID string) (release func(), err error)
}
