package git

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// maxReaders bounds concurrent shared holders.
const maxReaders = 1 << 20

// rwLock is a context-aware readers/writer lock. Waiters
// are served in FIFO order, so a queued writer holds back
// later readers.
type rwLock struct {
	sem *semaphore.Weighted
}

func newRWLock() *rwLock {
	return &rwLock{sem: semaphore.NewWeighted(maxReaders)}
}

func (l *rwLock) rLock(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1) //nolint:wrapcheck
}

func (l *rwLock) rUnlock() {
	l.sem.Release(1)
}

func (l *rwLock) lock(ctx context.Context) error {
	return l.sem.Acquire(ctx, maxReaders) //nolint:wrapcheck
}

func (l *rwLock) unlock() {
	l.sem.Release(maxReaders)
}
