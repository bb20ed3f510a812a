package storage

import (
	"fmt"
	"sync"
)

// QuotaBackend wraps a Backend and rejects writes that would push the total
// size of stored values past MaxBytes, the way a browser's local storage
// refuses writes once its quota is used up.
type QuotaBackend struct {
	Backend

	// MaxBytes is the capacity shared by all keys.
	MaxBytes int

	mu     sync.Mutex
	sizes  map[string]int
	seeded bool
}

// WithQuota wraps b with a MaxBytes capacity. A non-positive maxBytes returns
// b unchanged.
func WithQuota(b Backend, maxBytes int) Backend {
	if maxBytes <= 0 {
		return b
	}
	return &QuotaBackend{Backend: b, MaxBytes: maxBytes, sizes: make(map[string]int)}
}

// seed loads current sizes from the wrapped backend once. Backends that don't
// implement Sizer start from zero and learn sizes as keys are written.
func (q *QuotaBackend) seed() error {
	if q.seeded {
		return nil
	}
	if s, ok := q.Backend.(Sizer); ok {
		sizes, err := s.Sizes()
		if err != nil {
			return err
		}
		for k, v := range sizes {
			q.sizes[k] = v
		}
	}
	q.seeded = true
	return nil
}

// Used returns the number of bytes currently accounted for.
func (q *QuotaBackend) Used() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	total := 0
	for _, n := range q.sizes {
		total += n
	}
	return total
}

// Set writes value unless the resulting total exceeds MaxBytes, in which case
// nothing is written and an error wrapping ErrQuotaExceeded is returned.
func (q *QuotaBackend) Set(key, value string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.seed(); err != nil {
		return err
	}

	total := len(value)
	for k, n := range q.sizes {
		if k != key {
			total += n
		}
	}
	if total > q.MaxBytes {
		return fmt.Errorf("%w: writing %q needs %d bytes, capacity is %d", ErrQuotaExceeded, key, total, q.MaxBytes)
	}

	if err := q.Backend.Set(key, value); err != nil {
		return err
	}
	q.sizes[key] = len(value)
	return nil
}

// Delete removes key and releases its bytes.
func (q *QuotaBackend) Delete(key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.Backend.Delete(key); err != nil {
		return err
	}
	delete(q.sizes, key)
	return nil
}
