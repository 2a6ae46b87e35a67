package file

import (
	"path/filepath"
	"sync"
)

// Locks hands out one mutex per file path, so that writers of the same path
// are serialized while writers of different paths never wait on each other.
// The zero value is ready to use and a nil *Locks never blocks.
type Locks struct {
	mu    sync.Mutex
	paths map[string]*sync.Mutex
}

// Lock locks path and returns the function that unlocks it.
func (l *Locks) Lock(path string) (unlock func()) {
	if l == nil {
		return func() {}
	}
	key := filepath.Clean(path)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}

	l.mu.Lock()
	if l.paths == nil {
		l.paths = make(map[string]*sync.Mutex)
	}
	m, ok := l.paths[key]
	if !ok {
		m = &sync.Mutex{}
		l.paths[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
