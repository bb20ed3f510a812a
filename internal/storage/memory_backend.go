package storage

import "sync"

// MemoryBackend implements Backend with an in-process map.
//
// Nothing survives the process; it backs tests and the "memory" backend type.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string

	// failWith, when non-nil, is returned by every Set.
	failWith error
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (b *MemoryBackend) Get(key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.values[key]
	return v, ok, nil
}

// FailWrites makes every later Set return err. A nil err restores normal
// writes. Tests use it to simulate a broken or full store.
func (b *MemoryBackend) FailWrites(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWith = err
}

// Set stores value under key unless writes have been made to fail.
func (b *MemoryBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failWith != nil {
		return b.failWith
	}
	b.values[key] = value
	return nil
}

// Delete removes key.
func (b *MemoryBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.values, key)
	return nil
}

// Sizes reports the byte length of every stored value.
func (b *MemoryBackend) Sizes() (map[string]int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sizes := make(map[string]int, len(b.values))
	for k, v := range b.values {
		sizes[k] = len(v)
	}
	return sizes, nil
}
