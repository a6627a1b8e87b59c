package service

import (
	"context"
	"sort"
	"sync"
)

// CardLocks hands out one exclusive lock per card id. Entries are reference
// counted and dropped once nobody holds or waits on them.
type CardLocks struct {
	mu    sync.Mutex
	locks map[int64]*cardLock
}

type cardLock struct {
	sem  chan struct{}
	refs int
}

func NewCardLocks() *CardLocks {
	return &CardLocks{locks: make(map[int64]*cardLock)}
}

// Acquire locks every distinct id in ascending order, so two callers locking
// the same pair in opposite order cannot deadlock. If ctx ends while waiting,
// locks already taken are released and ctx's error is returned.
func (l *CardLocks) Acquire(ctx context.Context, ids ...int64) (release func(), err error) {
	ordered := uniqueSorted(ids)
	held := make([]int64, 0, len(ordered))

	unlock := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.unlock(held[i])
		}
	}

	for _, id := range ordered {
		lock := l.ref(id)
		select {
		case lock.sem <- struct{}{}:
			held = append(held, id)
		case <-ctx.Done():
			l.unref(id)
			unlock()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(unlock) }, nil
}

func (l *CardLocks) ref(id int64) *cardLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &cardLock{sem: make(chan struct{}, 1)}
		l.locks[id] = lock
	}
	lock.refs++
	return lock
}

func (l *CardLocks) unref(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock := l.locks[id]
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, id)
	}
}

func (l *CardLocks) unlock(id int64) {
	l.mu.Lock()
	lock := l.locks[id]
	l.mu.Unlock()
	<-lock.sem
	l.unref(id)
}

// size reports how many ids currently have a lock entry.
func (l *CardLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func uniqueSorted(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
