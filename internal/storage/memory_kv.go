// ABOUTME: In-memory KV store for tests and the memory cache backend.
// ABOUTME: Nothing survives the process.
package storage

import "sync"

// MemoryKV keeps values in process memory. Used for tests and --cache=memory.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryKV returns an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *MemoryKV) Update(keys []string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			current[k] = append([]byte(nil), v...)
		}
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	for k, v := range next {
		if v == nil {
			delete(m.data, k)
			continue
		}
		m.data[k] = append([]byte(nil), v...)
	}
	return nil
}

func (m *MemoryKV) Close() error { return nil }
