package sift

import (
	"sort"
	"sync"
)

// pathLocks serializes work on the same path while letting different paths
// proceed concurrently.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*pathLock)}
}

// Lock blocks until path is free and returns the matching unlock function.
func (l *pathLocks) Lock(path string) func() {
	l.mu.Lock()
	pl, ok := l.locks[path]
	if !ok {
		pl = &pathLock{}
		l.locks[path] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.locks, path)
		}
		l.mu.Unlock()
	}
}

// LockAll locks several paths in a fixed order so two callers never deadlock.
func (l *pathLocks) LockAll(paths ...string) func() {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	var unlocks []func()
	var prev string
	for i, p := range sorted {
		if i > 0 && p == prev {
			continue
		}
		prev = p
		unlocks = append(unlocks, l.Lock(p))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
