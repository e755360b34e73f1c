// ABOUTME: Explicit operation-status container keyed by operation and entity id.
// ABOUTME: Tracks Idle/Pending/Synced/LocalOnly/Rejected per key plus a global offline notice.
package state

import (
	"fmt"
	"sort"
	"sync"
)

// Phase is where an operation is in its lifecycle.
type Phase int

const (
	Idle Phase = iota
	Pending
	Synced
	LocalOnly
	Rejected
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Synced:
		return "synced"
	case LocalOnly:
		return "local-only"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Status is the state of one operation key.
type Status struct {
	Phase Phase
	Err   error
}

// Loading reports whether the operation is in flight.
func (s Status) Loading() bool { return s.Phase == Pending }

// DefaultNotice is shown when the backend cannot be reached.
const DefaultNotice = "Backend unavailable. Changes are saved locally."

// Key builds an operation key such as "like_42". Without an id it is just op.
func Key(op string, id ...int64) string {
	if len(id) == 0 {
		return op
	}
	return fmt.Sprintf("%s_%d", op, id[0])
}

// Store holds per-operation status and the global notice.
type Store struct {
	mu     sync.RWMutex
	status map[string]Status
	notice string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{status: make(map[string]Status)}
}

// Status returns the status of key; unknown keys are Idle.
func (s *Store) Status(key string) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status[key]
}

// Loading reports whether key is Pending.
func (s *Store) Loading(key string) bool {
	return s.Status(key).Loading()
}

// Err returns the error recorded for key, if any.
func (s *Store) Err(key string) error {
	return s.Status(key).Err
}

// Begin marks key Pending. The previous error is kept until the outcome is known.
func (s *Store) Begin(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status[key]
	st.Phase = Pending
	s.status[key] = st
}

// Succeed marks key Synced and clears its error.
func (s *Store) Succeed(key string) {
	s.set(key, Status{Phase: Synced})
}

// Fallback marks key LocalOnly with the error that caused it.
func (s *Store) Fallback(key string, err error) {
	s.set(key, Status{Phase: LocalOnly, Err: err})
}

// Reject marks key Rejected with err.
func (s *Store) Reject(key string, err error) {
	s.set(key, Status{Phase: Rejected, Err: err})
}

// Fail records err against key and returns it to Idle, for failures outside the optimistic flow.
func (s *Store) Fail(key string, err error) {
	s.set(key, Status{Phase: Idle, Err: err})
}

// Reset forgets key.
func (s *Store) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.status, key)
}

func (s *Store) set(key string, st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[key] = st
}

// SetNotice shows the global notice.
func (s *Store) SetNotice(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = msg
}

// ClearNotice hides the global notice.
func (s *Store) ClearNotice() {
	s.SetNotice("")
}

// Notice returns the global notice, or "".
func (s *Store) Notice() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notice
}

// Errors returns every key that currently has an error.
func (s *Store) Errors() map[string]error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]error)
	for k, st := range s.status {
		if st.Err != nil {
			out[k] = st.Err
		}
	}
	return out
}

// PendingKeys returns the keys currently in flight, sorted.
func (s *Store) PendingKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k, st := range s.status {
		if st.Phase == Pending {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
