// Package locks serializes work on individual accounts.
//
// Locks are always taken in ascending account id order, so two movements
// over the same pair of accounts can never deadlock regardless of direction.
// Waiting is bounded: Acquire gives up with ErrTimeout instead of blocking
// forever.
package locks

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

var ErrTimeout = errors.New("lock wait timed out")

type entry struct {
	ch   chan struct{} // buffered(1); holding the token means holding the lock
	refs int
}

// Manager hands out one exclusive lock per account id. Entries are created on
// demand and dropped once nobody holds or waits for them.
type Manager struct {
	mu    sync.Mutex
	locks map[int64]*entry
}

func NewManager() *Manager {
	return &Manager{locks: make(map[int64]*entry)}
}

func (m *Manager) ref(id int64) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.locks[id]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		m.locks[id] = e
	}
	e.refs++
	return e
}

func (m *Manager) unref(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.locks[id]
	e.refs--
	if e.refs == 0 {
		delete(m.locks, id)
	}
}

// Acquire locks every id, waiting at most timeout in total. Duplicate ids are
// locked once. On success the returned release func unlocks all of them and
// is safe to call more than once. On failure nothing stays locked and the
// error is ErrTimeout or the context error.
func (m *Manager) Acquire(ctx context.Context, timeout time.Duration, ids ...int64) (func(), error) {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	held := make([]int64, 0, len(ordered))
	releaseHeld := func() {
		for i := len(held) - 1; i >= 0; i-- {
			m.release(held[i])
		}
	}

	for _, id := range ordered {
		e := m.ref(id)
		select {
		case e.ch <- struct{}{}:
			held = append(held, id)
		case <-timer.C:
			m.unref(id)
			releaseHeld()
			return nil, ErrTimeout
		case <-ctx.Done():
			m.unref(id)
			releaseHeld()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(releaseHeld) }, nil
}

func (m *Manager) release(id int64) {
	m.mu.Lock()
	e := m.locks[id]
	m.mu.Unlock()
	<-e.ch
	m.unref(id)
}

// Len reports how many account ids are currently held or awaited.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
