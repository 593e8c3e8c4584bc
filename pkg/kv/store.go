// Package kv provides a generic map guarded by a read-write mutex.
package kv

import "sync"

// Store is a thread-safe generic key-value store.
type Store[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

// New creates an empty store.
func New[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{
		data: make(map[K]V),
	}
}

// Get retrieves a value by key.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

// Set stores a value by key.
func (s *Store[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Update runs fn with the current value under the write lock. The value fn
// returns is stored only when fn returns a nil error. Update reports
// ok=false without calling fn when key is absent.
func (s *Store[K, V]) Update(key K, fn func(V) (V, error)) (V, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.data[key]
	if !ok {
		return cur, false, nil
	}
	next, err := fn(cur)
	if err != nil {
		return cur, true, err
	}
	s.data[key] = next
	return next, true, nil
}

// Delete removes a key from the store.
func (s *Store[K, V]) Delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Len returns the number of items in the store.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Values returns a snapshot of all values in unspecified order.
func (s *Store[K, V]) Values() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]V, 0, len(s.data))
	for _, v := range s.data {
		out = append(out, v)
	}
	return out
}
