package lifecycle

import (
	"sort"
	"sync"
)

// KeyedMutex serializes work per key. Entries are reference counted so the
// map does not grow with every case id ever touched.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: map[string]*lockEntry{}}
}

// Lock acquires the mutex for key, creating it on first use.
func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key and drops it once unreferenced.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e := k.entries[key]
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// LockAll acquires every key in ascending order, so two overlapping LockAll
// calls can never deadlock against each other. Duplicate keys are collapsed.
// The returned function releases everything in reverse order.
func (k *KeyedMutex) LockAll(keys []string) func() {
	uniq := map[string]bool{}
	ordered := make([]string, 0, len(keys))
	for _, key := range keys {
		if !uniq[key] {
			uniq[key] = true
			ordered = append(ordered, key)
		}
	}
	sort.Strings(ordered)

	for _, key := range ordered {
		k.Lock(key)
	}

	return func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			k.Unlock(ordered[i])
		}
	}
}
