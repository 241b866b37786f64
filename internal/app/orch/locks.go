package orch

import (
	"cmp"
	"slices"
	"sync"
)

// keyedLocks hands out one mutex per key. Entries are reference counted and
// dropped as soon as nobody holds or waits for them.
type keyedLocks[K cmp.Ordered] struct {
	mu    sync.Mutex
	locks map[K]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

// lock acquires the locks for keys in sorted order, skipping zero keys and
// duplicates, and returns the matching unlock.
func (l *keyedLocks[K]) lock(keys ...K) func() {
	var zero K
	keys = slices.DeleteFunc(slices.Clone(keys), func(k K) bool { return k == zero })
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*refLock, 0, len(keys))
	for _, k := range keys {
		l.mu.Lock()
		if l.locks == nil {
			l.locks = make(map[K]*refLock)
		}
		rl, ok := l.locks[k]
		if !ok {
			rl = &refLock{}
			l.locks[k] = rl
		}
		rl.refs++
		l.mu.Unlock()

		rl.Lock()
		held = append(held, rl)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			l.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(l.locks, keys[i])
			}
			l.mu.Unlock()
		}
	}
}

func (l *keyedLocks[K]) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
